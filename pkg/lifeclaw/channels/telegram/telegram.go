// Package telegram implements the Telegram channel for LifeClaw using
// the Telegram Bot API directly via HTTP: long polling for updates,
// text send/receive, typing indicators. No external dependencies.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jholhewres/lifeclaw/pkg/lifeclaw/channels"
)

// Config holds Telegram channel configuration.
type Config struct {
	// Enabled turns the channel on.
	Enabled bool `yaml:"enabled"`

	// Token is the Telegram Bot API token (from @BotFather).
	Token string `yaml:"token"`

	// AllowedChats restricts which chat IDs the bot responds to.
	// Empty means respond to all chats.
	AllowedChats []int64 `yaml:"allowed_chats"`

	// SendTyping sends "typing..." indicators while processing.
	SendTyping bool `yaml:"send_typing"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		SendTyping: true,
	}
}

// Telegram implements channels.Channel over the Bot API.
type Telegram struct {
	cfg    Config
	logger *slog.Logger
	client *http.Client

	// baseURL is https://api.telegram.org/bot<token>.
	baseURL string

	messages chan *channels.IncomingMessage

	// closeMu pairs enqueue (read lock) with Disconnect (write lock) so
	// the message stream is closed only after in-flight sends return.
	closeMu sync.RWMutex
	closed  bool

	connected  atomic.Bool
	lastMsg    atomic.Value // time.Time
	errorCount atomic.Int64

	// offset is the last processed update ID + 1.
	offset int64

	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a new Telegram channel instance.
func New(cfg Config, logger *slog.Logger) *Telegram {
	if logger == nil {
		logger = slog.Default()
	}
	return &Telegram{
		cfg:      cfg,
		logger:   logger.With("component", "telegram"),
		client:   &http.Client{Timeout: 60 * time.Second},
		baseURL:  "https://api.telegram.org/bot" + cfg.Token,
		messages: make(chan *channels.IncomingMessage, 256),
	}
}

// Name returns "telegram".
func (t *Telegram) Name() string { return "telegram" }

// Connect verifies the token and starts the long-polling loop.
func (t *Telegram) Connect(ctx context.Context) error {
	if t.cfg.Token == "" {
		return fmt.Errorf("telegram: bot token is required")
	}
	// Prevent double-connect goroutine leak.
	if t.connected.Load() {
		return nil
	}
	// The stream closes exactly once; a disconnected instance cannot be
	// reused.
	t.closeMu.RLock()
	closed := t.closed
	t.closeMu.RUnlock()
	if closed {
		return fmt.Errorf("telegram: channel already disconnected")
	}

	t.ctx, t.cancel = context.WithCancel(ctx)

	me, err := t.getMe()
	if err != nil {
		return fmt.Errorf("telegram: failed to verify token: %w", err)
	}
	t.logger.Info("telegram: connected", "bot", me.Username, "id", me.ID)
	t.connected.Store(true)

	go t.pollLoop()
	return nil
}

// Disconnect stops the polling loop and closes the message stream.
// Cancelling first unblocks a poller waiting to enqueue; the write lock
// then guarantees no send races the close.
func (t *Telegram) Disconnect() error {
	if t.cancel != nil {
		t.cancel()
	}
	t.connected.Store(false)

	t.closeMu.Lock()
	alreadyClosed := t.closed
	t.closed = true
	t.closeMu.Unlock()
	if !alreadyClosed {
		close(t.messages)
	}

	t.logger.Info("telegram: disconnected")
	return nil
}

// Send sends a text message to the specified chat.
func (t *Telegram) Send(ctx context.Context, to string, message *channels.OutgoingMessage) error {
	if !t.connected.Load() {
		return channels.ErrChannelDisconnected
	}
	chatID, err := strconv.ParseInt(to, 10, 64)
	if err != nil {
		return fmt.Errorf("telegram: invalid chat ID %q: %w", to, err)
	}

	payload := map[string]any{
		"chat_id": chatID,
		"text":    message.Content,
	}
	if message.ReplyTo != "" {
		if msgID, e := strconv.ParseInt(message.ReplyTo, 10, 64); e == nil {
			payload["reply_parameters"] = map[string]any{"message_id": msgID}
		}
	}

	_, err = t.apiCall(ctx, "sendMessage", payload)
	return err
}

// SendTyping sends a "typing..." chat action.
func (t *Telegram) SendTyping(ctx context.Context, to string) error {
	if !t.connected.Load() || !t.cfg.SendTyping {
		return nil
	}
	chatID, err := strconv.ParseInt(to, 10, 64)
	if err != nil {
		return nil
	}
	_, err = t.apiCall(ctx, "sendChatAction", map[string]any{
		"chat_id": chatID,
		"action":  "typing",
	})
	return err
}

// Receive returns the incoming messages channel.
func (t *Telegram) Receive() <-chan *channels.IncomingMessage {
	return t.messages
}

// IsConnected returns true if the bot is connected.
func (t *Telegram) IsConnected() bool { return t.connected.Load() }

// Health returns the channel health status.
func (t *Telegram) Health() channels.HealthStatus {
	var lastAt time.Time
	if v := t.lastMsg.Load(); v != nil {
		lastAt = v.(time.Time)
	}
	return channels.HealthStatus{
		Connected:     t.connected.Load(),
		LastMessageAt: lastAt,
		ErrorCount:    int(t.errorCount.Load()),
	}
}

// pollLoop long-polls getUpdates with exponential backoff on errors.
func (t *Telegram) pollLoop() {
	t.logger.Info("telegram: polling started")
	backoff := time.Second

	for {
		select {
		case <-t.ctx.Done():
			t.logger.Info("telegram: polling stopped")
			return
		default:
		}

		updates, err := t.getUpdates(t.offset, 100, 30)
		if err != nil {
			t.errorCount.Add(1)
			t.logger.Warn("telegram: getUpdates error", "error", err, "backoff", backoff)
			select {
			case <-t.ctx.Done():
				return
			case <-time.After(backoff):
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}

		backoff = time.Second
		t.errorCount.Store(0)

		for _, u := range updates {
			if u.UpdateID >= t.offset {
				t.offset = u.UpdateID + 1
			}
			t.processUpdate(u)
		}
	}
}

// processUpdate converts one update into an IncomingMessage, applying the
// allowed-chats filter and skipping non-text content.
func (t *Telegram) processUpdate(u tgUpdate) {
	msg := u.Message
	if msg == nil || msg.Text == "" || msg.From == nil {
		return
	}
	if !t.chatAllowed(msg.Chat.ID) {
		t.logger.Debug("telegram: chat not allowed", "chat_id", msg.Chat.ID)
		return
	}

	t.lastMsg.Store(time.Now())
	t.enqueue(&channels.IncomingMessage{
		ID:        strconv.FormatInt(msg.MessageID, 10),
		Channel:   "telegram",
		From:      strconv.FormatInt(msg.From.ID, 10),
		Username:  msg.From.Username,
		FirstName: msg.From.FirstName,
		LastName:  msg.From.LastName,
		ChatID:    strconv.FormatInt(msg.Chat.ID, 10),
		Content:   msg.Text,
		Timestamp: time.Unix(msg.Date, 0),
	})
}

// enqueue forwards a message into the stream, dropping it when shutdown
// has already closed the stream.
func (t *Telegram) enqueue(msg *channels.IncomingMessage) {
	t.closeMu.RLock()
	defer t.closeMu.RUnlock()
	if t.closed {
		return
	}
	select {
	case t.messages <- msg:
	case <-t.ctx.Done():
	}
}

func (t *Telegram) chatAllowed(chatID int64) bool {
	if len(t.cfg.AllowedChats) == 0 {
		return true
	}
	for _, id := range t.cfg.AllowedChats {
		if id == chatID {
			return true
		}
	}
	return false
}

// ---------- Bot API wire types ----------

type tgUpdate struct {
	UpdateID int64      `json:"update_id"`
	Message  *tgMessage `json:"message"`
}

type tgMessage struct {
	MessageID int64   `json:"message_id"`
	From      *tgUser `json:"from"`
	Chat      tgChat  `json:"chat"`
	Date      int64   `json:"date"`
	Text      string  `json:"text"`
}

type tgUser struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

type tgChat struct {
	ID   int64  `json:"id"`
	Type string `json:"type"`
}

// apiCall issues one Bot API method call and returns the raw result.
func (t *Telegram) apiCall(ctx context.Context, method string, payload map[string]any) (json.RawMessage, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("telegram: marshal %s: %w", method, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+"/"+method, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("telegram: creating request for %s: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("telegram: %s request failed: %w", method, err)
	}
	defer resp.Body.Close()

	var result struct {
		OK          bool            `json:"ok"`
		Description string          `json:"description"`
		Result      json.RawMessage `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("telegram: decoding %s response: %w", method, err)
	}
	if !result.OK {
		return nil, fmt.Errorf("telegram: %s: %s", method, result.Description)
	}
	return result.Result, nil
}

func (t *Telegram) getMe() (*tgUser, error) {
	raw, err := t.apiCall(t.ctx, "getMe", map[string]any{})
	if err != nil {
		return nil, err
	}
	var me tgUser
	if err := json.Unmarshal(raw, &me); err != nil {
		return nil, fmt.Errorf("telegram: decoding getMe: %w", err)
	}
	return &me, nil
}

func (t *Telegram) getUpdates(offset int64, limit, timeoutSecs int) ([]tgUpdate, error) {
	raw, err := t.apiCall(t.ctx, "getUpdates", map[string]any{
		"offset":          offset,
		"limit":           limit,
		"timeout":         timeoutSecs,
		"allowed_updates": []string{"message"},
	})
	if err != nil {
		return nil, err
	}
	var updates []tgUpdate
	if err := json.Unmarshal(raw, &updates); err != nil {
		return nil, fmt.Errorf("telegram: decoding updates: %w", err)
	}
	return updates, nil
}
