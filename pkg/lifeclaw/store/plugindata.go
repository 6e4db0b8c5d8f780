package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// SetPluginData upserts a JSON-serialized value scoped to
// (plugin name, user, key). Last write wins.
func (s *Store) SetPluginData(pluginName string, userID int64, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal plugin data %s/%s: %w", pluginName, key, err)
	}
	now := time.Now().UTC().Format(timeLayout)
	_, err = s.db.Exec(`
		INSERT INTO plugin_data (plugin_name, user_id, data_key, data_value, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(plugin_name, user_id, data_key)
		DO UPDATE SET data_value = excluded.data_value, updated_at = excluded.updated_at`,
		pluginName, userID, key, string(raw), now, now)
	if err != nil {
		return fmt.Errorf("store plugin data %s/%s for user %d: %w", pluginName, key, userID, err)
	}
	return nil
}

// GetPluginData loads the value stored under (plugin name, user, key) into
// out, which must be a pointer. Returns false when no value exists.
func (s *Store) GetPluginData(pluginName string, userID int64, key string, out any) (bool, error) {
	var raw string
	err := s.db.QueryRow(`
		SELECT data_value FROM plugin_data
		WHERE plugin_name = ? AND user_id = ? AND data_key = ?`,
		pluginName, userID, key).Scan(&raw)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("load plugin data %s/%s for user %d: %w", pluginName, key, userID, err)
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return false, fmt.Errorf("unmarshal plugin data %s/%s: %w", pluginName, key, err)
	}
	return true, nil
}

// DeletePluginData removes the value under (plugin name, user, key).
func (s *Store) DeletePluginData(pluginName string, userID int64, key string) error {
	_, err := s.db.Exec(`
		DELETE FROM plugin_data WHERE plugin_name = ? AND user_id = ? AND data_key = ?`,
		pluginName, userID, key)
	return err
}
