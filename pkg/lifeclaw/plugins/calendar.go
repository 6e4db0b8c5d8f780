package plugins

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jholhewres/lifeclaw/pkg/lifeclaw/plugin"
)

// calendarEvent is one locally stored event. Events live in plugin KV
// storage under the "events" key; external calendar sync is out of scope.
type calendarEvent struct {
	ID       int       `json:"id"`
	Title    string    `json:"title"`
	Details  string    `json:"details,omitempty"`
	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`
	Location string    `json:"location,omitempty"`
	Created  time.Time `json:"created_at"`
}

// Calendar manages locally stored events: show, create, and free-time
// lookup.
type Calendar struct {
	plugin.Base
}

// NewCalendar constructs the calendar plugin.
func NewCalendar(host plugin.Host, settings map[string]any, logger *slog.Logger) (plugin.Plugin, error) {
	c := &Calendar{}
	c.Base = plugin.NewBase(plugin.Info{
		Name:        "calendar",
		Description: "View, create, and manage calendar events",
		Version:     "1.0.0",
		Enabled:     true,
		Priority:    30,
		Keywords: []string{
			"calendar", "schedule", "meeting", "event",
			"appointment", "when am i", "what's on my",
			"free time", "available", "busy",
		},
	}, host, settings, logger)
	return c, nil
}

func (c *Calendar) Handle(ctx context.Context, message string, pctx *plugin.Context) (string, error) {
	lower := strings.ToLower(message)

	if containsAny(lower, "show", "what", "list", "when am i") {
		return c.showEvents(lower), nil
	}
	if containsAny(lower, "add", "create", "schedule", "book", "meeting") {
		return c.createEvent(ctx, message), nil
	}
	if containsAny(lower, "free", "available", "busy") {
		return c.freeTime(), nil
	}
	return "", nil
}

func (c *Calendar) loadEvents() ([]calendarEvent, error) {
	var events []calendarEvent
	if _, err := c.LoadData("events", &events); err != nil {
		return nil, err
	}
	return events, nil
}

func (c *Calendar) showEvents(lower string) string {
	start, end, label := calendarRange(lower)

	events, err := c.loadEvents()
	if err != nil {
		c.Logger().Error("failed to load events", "error", err)
		return "I had trouble fetching your calendar."
	}

	var matched []calendarEvent
	for _, e := range events {
		if !e.Start.Before(start) && !e.Start.After(end) {
			matched = append(matched, e)
		}
	}
	if len(matched) == 0 {
		return fmt.Sprintf("No events scheduled for %s", label)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "📅 Events for %s:\n\n", label)
	for _, e := range matched {
		fmt.Fprintf(&sb, "- %s - %s\n", e.Start.Format("3:04 PM"), e.Title)
		if e.Location != "" {
			fmt.Fprintf(&sb, "  📍 %s\n", e.Location)
		}
	}
	return sb.String()
}

func (c *Calendar) createEvent(ctx context.Context, message string) string {
	details, err := c.Brain().ExtractStructured(ctx, message, map[string]string{
		"title":       "string - event title",
		"description": "string - event description",
		"start_time":  "ISO datetime string",
		"end_time":    "ISO datetime string or null",
		"location":    "string or null",
	})
	if err != nil {
		c.Logger().Error("event extraction failed", "error", err)
		return "I had trouble creating that event. Please try again with more details."
	}

	start := asTime(details, "start_time")
	if start == nil {
		return "I need to know when the event is. Try: 'Schedule meeting tomorrow at 2pm'"
	}
	end := asTime(details, "end_time")
	if end == nil {
		t := start.Add(time.Hour)
		end = &t
	}

	title := asString(details, "title")
	if title == "" {
		title = "Untitled Event"
	}

	events, err := c.loadEvents()
	if err != nil {
		c.Logger().Error("failed to load events", "error", err)
		return "I had trouble creating that event. Please try again."
	}
	events = append(events, calendarEvent{
		ID:       len(events) + 1,
		Title:    title,
		Details:  asString(details, "description"),
		Start:    *start,
		End:      *end,
		Location: asString(details, "location"),
		Created:  time.Now().UTC(),
	})
	if err := c.StoreData("events", events); err != nil {
		c.Logger().Error("failed to store events", "error", err)
		return "I had trouble creating that event. Please try again."
	}

	response := fmt.Sprintf("✅ Event created: %s\n📅 %s", title, start.Format("January 2 at 3:04 PM"))
	if loc := asString(details, "location"); loc != "" {
		response += "\n📍 " + loc
	}
	return response
}

// freeTime lists days in the next week with no scheduled events.
func (c *Calendar) freeTime() string {
	events, err := c.loadEvents()
	if err != nil {
		c.Logger().Error("failed to load events", "error", err)
		return "I had trouble checking your calendar."
	}

	today := startOfDay(time.Now())
	var freeDays []string
	for day := 0; day < 7; day++ {
		date := today.AddDate(0, 0, day)
		busy := false
		for _, e := range events {
			if startOfDay(e.Start).Equal(date) {
				busy = true
				break
			}
		}
		if !busy {
			freeDays = append(freeDays, date.Format("Monday, January 2"))
		}
	}

	if len(freeDays) == 0 {
		return "You're booked solid for the next week!"
	}
	if len(freeDays) > 5 {
		freeDays = freeDays[:5]
	}
	var sb strings.Builder
	sb.WriteString("🆓 Free days:\n\n")
	for _, d := range freeDays {
		fmt.Fprintf(&sb, "- %s\n", d)
	}
	return sb.String()
}

func (c *Calendar) Commands() []plugin.Command {
	return []plugin.Command{
		{Example: "what's on my calendar today", Description: "Show today's events"},
		{Example: "schedule [event] at [time]", Description: "Create new event"},
		{Example: "when am I free", Description: "Find available time slots"},
		{Example: "show my schedule for [timeframe]", Description: "View events for specific period"},
	}
}

// calendarRange maps period words to a [start, end] range and label.
// Defaults to today.
func calendarRange(lower string) (time.Time, time.Time, string) {
	now := time.Now()
	switch {
	case strings.Contains(lower, "tomorrow"):
		start := startOfDay(now).AddDate(0, 0, 1)
		return start, start.AddDate(0, 0, 1).Add(-time.Second), start.Format("Monday, January 2")
	case strings.Contains(lower, "week"):
		return startOfDay(now), now.AddDate(0, 0, 7), "the next 7 days"
	default:
		start := startOfDay(now)
		return start, start.AddDate(0, 0, 1).Add(-time.Second), start.Format("Monday, January 2")
	}
}
