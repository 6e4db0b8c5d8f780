package plugins

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jholhewres/lifeclaw/pkg/lifeclaw/plugin"
	"github.com/jholhewres/lifeclaw/pkg/lifeclaw/store"
)

// Reminders creates and lists time- and context-triggered reminders.
// Delivery of due reminders is the scheduler's job, not this plugin's.
type Reminders struct {
	plugin.Base
}

// NewReminders constructs the reminders plugin.
func NewReminders(host plugin.Host, settings map[string]any, logger *slog.Logger) (plugin.Plugin, error) {
	r := &Reminders{}
	r.Base = plugin.NewBase(plugin.Info{
		Name:        "reminders",
		Description: "Set time-based, recurring, and context-aware reminders",
		Version:     "1.0.0",
		Enabled:     true,
		Priority:    20,
		Keywords: []string{
			"remind", "reminder", "alert", "notify",
			"don't forget", "make sure", "scheduled",
		},
	}, host, settings, logger)
	return r, nil
}

func (r *Reminders) Handle(ctx context.Context, message string, pctx *plugin.Context) (string, error) {
	lower := strings.ToLower(message)

	if containsAny(lower, "list", "show", "what", "my reminders") {
		return r.list(pctx), nil
	}
	if containsAny(lower, "delete", "cancel", "remove") {
		return "Which reminder would you like to delete? You can say the number from the list or describe it.", nil
	}
	return r.create(ctx, pctx, message), nil
}

func (r *Reminders) create(ctx context.Context, pctx *plugin.Context, message string) string {
	details, err := r.Brain().ExtractStructured(ctx, message, map[string]string{
		"title":           "string - brief title",
		"description":     "string - full description",
		"time":            "ISO datetime string or null",
		"recurring":       "boolean",
		"pattern":         "string - daily/weekly/monthly or null",
		"context_trigger": "string - person/location/event or null",
	})
	if err != nil {
		r.Logger().Error("reminder extraction failed", "error", err)
		return "I had trouble creating that reminder. Try being more specific about when you want to be reminded."
	}

	remindAt := asTime(details, "time")
	trigger := asString(details, "context_trigger")
	if remindAt == nil && trigger == "" {
		return "I need to know when to remind you. Try: 'Remind me to call mom tomorrow at 2pm' or 'Remind me next time I talk to Jake'"
	}

	reminder := &store.Reminder{
		UserID:      pctx.User.ID,
		Title:       asString(details, "title"),
		Description: asString(details, "description"),
		RemindAt:    remindAt,
		Recurring:   asBool(details, "recurring"),
		Pattern:     asString(details, "pattern"),
		TriggerCtx:  trigger,
	}
	if _, err := r.Store().CreateReminder(reminder); err != nil {
		r.Logger().Error("failed to create reminder", "error", err)
		return "I had trouble creating that reminder. Please try again."
	}

	var response string
	if remindAt != nil {
		response = fmt.Sprintf("✅ Reminder set for %s", remindAt.Format("January 2 at 3:04 PM"))
	} else {
		response = fmt.Sprintf("✅ Reminder set for when %s", trigger)
	}
	if reminder.Recurring && reminder.Pattern != "" {
		response += fmt.Sprintf(" (repeats %s)", reminder.Pattern)
	}
	r.Logger().Info("created reminder", "title", reminder.Title)
	return response
}

func (r *Reminders) list(pctx *plugin.Context) string {
	reminders, err := r.Store().ActiveReminders(pctx.User.ID)
	if err != nil {
		r.Logger().Error("failed to list reminders", "error", err)
		return "I had trouble fetching your reminders."
	}
	if len(reminders) == 0 {
		return "You don't have any active reminders."
	}

	var sb strings.Builder
	sb.WriteString("📋 Your reminders:\n\n")
	for i, rem := range reminders {
		if rem.RemindAt != nil {
			fmt.Fprintf(&sb, "%d. %s - %s\n", i+1, rem.Title, rem.RemindAt.Format("Jan 2 at 3:04 PM"))
		} else {
			fmt.Fprintf(&sb, "%d. %s - when %s\n", i+1, rem.Title, rem.TriggerCtx)
		}
	}
	return sb.String()
}

func (r *Reminders) Commands() []plugin.Command {
	return []plugin.Command{
		{Example: "remind me to [task] at [time]", Description: "Create time-based reminder"},
		{Example: "remind me to [task] when [context]", Description: "Create context-based reminder"},
		{Example: "list reminders", Description: "Show all active reminders"},
		{Example: "delete reminder [number]", Description: "Remove a reminder"},
	}
}
