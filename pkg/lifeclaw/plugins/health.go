package plugins

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jholhewres/lifeclaw/pkg/lifeclaw/plugin"
)

var metricTypes = []string{
	"weight", "sleep", "water", "steps", "calories",
	"blood pressure", "heart rate", "mood",
}

type workoutEntry struct {
	Date      time.Time `json:"date"`
	Activity  string    `json:"activity"`
	Duration  int       `json:"duration_minutes"`
	Intensity string    `json:"intensity"`
	Notes     string    `json:"notes,omitempty"`
}

type symptomEntry struct {
	Date     time.Time `json:"date"`
	Symptom  string    `json:"symptom"`
	Severity string    `json:"severity"`
	Location string    `json:"location,omitempty"`
	Notes    string    `json:"notes,omitempty"`
}

type medicationEntry struct {
	Date       time.Time `json:"date"`
	Medication string    `json:"medication"`
	Dosage     string    `json:"dosage,omitempty"`
	When       string    `json:"when,omitempty"`
}

type metricEntry struct {
	Date  time.Time `json:"date"`
	Value any       `json:"value"`
	Unit  string    `json:"unit,omitempty"`
}

// Health tracks workouts, symptoms, medications, and metrics in plugin
// KV storage, and produces a weekly summary.
type Health struct {
	plugin.Base
}

// NewHealth constructs the health tracker plugin.
func NewHealth(host plugin.Host, settings map[string]any, logger *slog.Logger) (plugin.Plugin, error) {
	h := &Health{}
	h.Base = plugin.NewBase(plugin.Info{
		Name:        "health",
		Description: "Track health metrics, symptoms, medications, and wellness activities",
		Version:     "1.0.0",
		Enabled:     true,
		Priority:    60,
		Keywords: []string{
			"health", "workout", "exercise", "symptom", "medicine",
			"medication", "weight", "sleep", "water", "steps",
			"calories", "pain", "headache", "sick", "feeling",
		},
	}, host, settings, logger)
	return h, nil
}

func (h *Health) Handle(ctx context.Context, message string, pctx *plugin.Context) (string, error) {
	lower := strings.ToLower(message)

	if containsAny(lower, "health report", "health summary", "how am i") {
		return h.report(), nil
	}
	if containsAny(lower, "workout", "exercise", "gym", "ran", "run") {
		return h.logWorkout(ctx, message), nil
	}
	if containsAny(lower, "symptom", "pain", "headache", "sick", "feeling") {
		return h.logSymptom(ctx, message), nil
	}
	if containsAny(lower, "medicine", "medication", "pill", "took") {
		return h.logMedication(ctx, message), nil
	}
	if containsAny(lower, metricTypes...) {
		return h.logMetric(ctx, lower, message), nil
	}
	return "", nil
}

func (h *Health) logWorkout(ctx context.Context, message string) string {
	details, err := h.Brain().ExtractStructured(ctx, message, map[string]string{
		"activity":         "string - type of workout",
		"duration_minutes": "number - how long",
		"intensity":        "string - low/medium/high",
		"notes":            "string - any additional details",
	})
	if err != nil {
		h.Logger().Error("workout extraction failed", "error", err)
		return "I had trouble logging that workout."
	}

	activity := asString(details, "activity")
	if activity == "" {
		activity = "workout"
	}
	duration := 30
	if v, ok := asFloat(details, "duration_minutes"); ok {
		duration = int(v)
	}
	intensity := asString(details, "intensity")
	if intensity == "" {
		intensity = "medium"
	}

	var workouts []workoutEntry
	if _, err := h.LoadData("workouts", &workouts); err != nil {
		h.Logger().Error("failed to load workouts", "error", err)
		return "I had trouble logging that workout."
	}
	workouts = append(workouts, workoutEntry{
		Date:      time.Now().UTC(),
		Activity:  activity,
		Duration:  duration,
		Intensity: intensity,
		Notes:     asString(details, "notes"),
	})
	if err := h.StoreData("workouts", workouts); err != nil {
		h.Logger().Error("failed to store workouts", "error", err)
		return "I had trouble logging that workout."
	}
	return fmt.Sprintf("✅ Logged workout: %s for %d minutes 💪", activity, duration)
}

func (h *Health) logSymptom(ctx context.Context, message string) string {
	details, err := h.Brain().ExtractStructured(ctx, message, map[string]string{
		"symptom":  "string - what symptom",
		"severity": "string - mild/moderate/severe",
		"location": "string - where (if applicable)",
		"notes":    "string - additional context",
	})
	if err != nil {
		h.Logger().Error("symptom extraction failed", "error", err)
		return "I had trouble logging that symptom."
	}

	symptom := asString(details, "symptom")
	if symptom == "" {
		symptom = "symptom"
	}
	severity := asString(details, "severity")
	if severity == "" {
		severity = "moderate"
	}

	var symptoms []symptomEntry
	if _, err := h.LoadData("symptoms", &symptoms); err != nil {
		h.Logger().Error("failed to load symptoms", "error", err)
		return "I had trouble logging that symptom."
	}
	symptoms = append(symptoms, symptomEntry{
		Date:     time.Now().UTC(),
		Symptom:  symptom,
		Severity: severity,
		Location: asString(details, "location"),
		Notes:    asString(details, "notes"),
	})
	if err := h.StoreData("symptoms", symptoms); err != nil {
		h.Logger().Error("failed to store symptoms", "error", err)
		return "I had trouble logging that symptom."
	}

	response := fmt.Sprintf("✅ Logged %s %s", severity, symptom)
	if pattern := symptomPattern(symptoms, symptom); pattern != "" {
		response += "\n\n💡 " + pattern
	}
	return response
}

func (h *Health) logMedication(ctx context.Context, message string) string {
	details, err := h.Brain().ExtractStructured(ctx, message, map[string]string{
		"medication": "string - medication name",
		"dosage":     "string - how much",
		"time":       "string - when taken",
	})
	if err != nil {
		h.Logger().Error("medication extraction failed", "error", err)
		return "I had trouble logging that medication."
	}

	medication := asString(details, "medication")
	if medication == "" {
		medication = "medication"
	}

	var meds []medicationEntry
	if _, err := h.LoadData("medications", &meds); err != nil {
		h.Logger().Error("failed to load medications", "error", err)
		return "I had trouble logging that medication."
	}
	meds = append(meds, medicationEntry{
		Date:       time.Now().UTC(),
		Medication: medication,
		Dosage:     asString(details, "dosage"),
		When:       asString(details, "time"),
	})
	if err := h.StoreData("medications", meds); err != nil {
		h.Logger().Error("failed to store medications", "error", err)
		return "I had trouble logging that medication."
	}
	return strings.TrimSpace(fmt.Sprintf("✅ Logged: %s %s", medication, asString(details, "dosage")))
}

func (h *Health) logMetric(ctx context.Context, lower, message string) string {
	var metricType string
	for _, m := range metricTypes {
		if strings.Contains(lower, m) {
			metricType = strings.ReplaceAll(m, " ", "_")
			break
		}
	}
	if metricType == "" {
		return ""
	}

	details, err := h.Brain().ExtractStructured(ctx, message, map[string]string{
		"value": "number or string - the measurement",
		"unit":  "string - unit of measurement",
	})
	if err != nil {
		h.Logger().Error("metric extraction failed", "error", err)
		return "I had trouble logging that metric."
	}

	key := "metrics_" + metricType
	var metrics []metricEntry
	if _, err := h.LoadData(key, &metrics); err != nil {
		h.Logger().Error("failed to load metrics", "metric", metricType, "error", err)
		return "I had trouble logging that metric."
	}
	metrics = append(metrics, metricEntry{
		Date:  time.Now().UTC(),
		Value: details["value"],
		Unit:  asString(details, "unit"),
	})
	if err := h.StoreData(key, metrics); err != nil {
		h.Logger().Error("failed to store metrics", "metric", metricType, "error", err)
		return "I had trouble logging that metric."
	}
	return strings.TrimSpace(fmt.Sprintf("✅ Logged %s: %v %s", metricType, details["value"], asString(details, "unit")))
}

// report summarizes the last seven days of workouts and symptoms.
func (h *Health) report() string {
	var workouts []workoutEntry
	var symptoms []symptomEntry
	if _, err := h.LoadData("workouts", &workouts); err != nil {
		h.Logger().Error("failed to load workouts", "error", err)
		return "I had trouble generating your health report."
	}
	if _, err := h.LoadData("symptoms", &symptoms); err != nil {
		h.Logger().Error("failed to load symptoms", "error", err)
		return "I had trouble generating your health report."
	}

	weekAgo := time.Now().UTC().AddDate(0, 0, -7)
	var recentWorkouts int
	var totalMinutes int
	for _, w := range workouts {
		if w.Date.After(weekAgo) {
			recentWorkouts++
			totalMinutes += w.Duration
		}
	}
	var recentSymptoms int
	for _, s := range symptoms {
		if s.Date.After(weekAgo) {
			recentSymptoms++
		}
	}

	var sb strings.Builder
	sb.WriteString("🏥 Health summary (last 7 days):\n\n")
	if recentWorkouts > 0 {
		fmt.Fprintf(&sb, "💪 Workouts: %d sessions (%d min total)\n", recentWorkouts, totalMinutes)
	} else {
		sb.WriteString("💪 Workouts: none logged\n")
	}
	if recentSymptoms > 0 {
		fmt.Fprintf(&sb, "⚠️ Symptoms logged: %d\n", recentSymptoms)
	} else {
		sb.WriteString("✅ No symptoms logged\n")
	}
	return sb.String()
}

func (h *Health) Commands() []plugin.Command {
	return []plugin.Command{
		{Example: "I worked out for [X] minutes", Description: "Log workout"},
		{Example: "Log symptom: [description]", Description: "Track health symptoms"},
		{Example: "I took [medication]", Description: "Log medication"},
		{Example: "My weight is [X] lbs", Description: "Track health metrics"},
		{Example: "Health report", Description: "View health summary"},
	}
}

// symptomPattern flags a symptom logged three or more times in the last
// week.
func symptomPattern(symptoms []symptomEntry, symptom string) string {
	weekAgo := time.Now().UTC().AddDate(0, 0, -7)
	count := 0
	for _, s := range symptoms {
		if s.Symptom == symptom && s.Date.After(weekAgo) {
			count++
		}
	}
	if count >= 3 {
		return fmt.Sprintf("You've logged '%s' %d times this week. Consider tracking triggers.", symptom, count)
	}
	return ""
}
