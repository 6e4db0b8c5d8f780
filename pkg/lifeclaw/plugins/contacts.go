package plugins

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/jholhewres/lifeclaw/pkg/lifeclaw/plugin"
	"github.com/jholhewres/lifeclaw/pkg/lifeclaw/store"
)

var relationTypes = []string{"friend", "family", "colleague", "acquaintance", "other"}

// Contacts tracks people, interactions, and birthdays, and suggests who
// to reach out to.
type Contacts struct {
	plugin.Base
}

// NewContacts constructs the contacts plugin. Settings:
// check_in_interval_days (default 14), birthday_reminder_days (default 7).
func NewContacts(host plugin.Host, settings map[string]any, logger *slog.Logger) (plugin.Plugin, error) {
	c := &Contacts{}
	c.Base = plugin.NewBase(plugin.Info{
		Name:        "contacts",
		Description: "Remember contacts, track interactions, and get relationship insights",
		Version:     "1.0.0",
		Enabled:     true,
		Priority:    50,
		Keywords: []string{
			"contact", "friend", "family", "call", "text",
			"talk to", "message", "birthday", "relationship",
			"haven't talked", "reach out", "check in",
		},
	}, host, settings, logger)
	return c, nil
}

func (c *Contacts) Handle(ctx context.Context, message string, pctx *plugin.Context) (string, error) {
	lower := strings.ToLower(message)

	if containsAny(lower, "add contact", "new contact", "save contact") {
		return c.addContact(ctx, pctx, message), nil
	}
	if containsAny(lower, "list contacts", "show contacts", "my contacts") {
		return c.listContacts(pctx), nil
	}
	if containsAny(lower, "talked to", "called", "texted", "met with", "saw") {
		return c.logInteraction(ctx, pctx, message), nil
	}
	if containsAny(lower, "haven't talked", "should reach out", "who should i") {
		return c.insights(pctx), nil
	}
	if strings.Contains(lower, "birthday") {
		return c.birthdays(pctx), nil
	}
	return "", nil
}

func (c *Contacts) addContact(ctx context.Context, pctx *plugin.Context, message string) string {
	details, err := c.Brain().ExtractStructured(ctx, message, map[string]string{
		"name":     "string - full name",
		"relation": "string - one of " + strings.Join(relationTypes, ", "),
		"phone":    "string - phone number or null",
		"email":    "string - email address or null",
		"birthday": "string - date (month day) or null",
		"notes":    "string - any additional notes",
	})
	if err != nil {
		c.Logger().Error("contact extraction failed", "error", err)
		return "I had trouble adding that contact. Please try again."
	}

	name := asString(details, "name")
	if name == "" {
		return "I need at least a name. Try: 'Add contact: John Smith, friend, birthday March 15'"
	}

	existing, err := c.Store().ContactByName(pctx.User.ID, name)
	if err != nil {
		c.Logger().Error("contact lookup failed", "error", err)
		return "I had trouble adding that contact. Please try again."
	}
	if existing != nil {
		return fmt.Sprintf("You already have a contact named %s. Want to update their info?", existing.Name)
	}

	contact := &store.Contact{
		UserID:   pctx.User.ID,
		Name:     name,
		Relation: asString(details, "relation"),
		Phone:    asString(details, "phone"),
		Email:    asString(details, "email"),
		Birthday: asTime(details, "birthday"),
		Notes:    asString(details, "notes"),
	}
	if err := c.Store().AddContact(contact); err != nil {
		c.Logger().Error("failed to add contact", "error", err)
		return "I had trouble adding that contact. Please try again."
	}

	response := fmt.Sprintf("✅ Added %s (%s)", contact.Name, contact.Relation)
	if contact.Birthday != nil {
		response += fmt.Sprintf("\n🎂 Birthday: %s", contact.Birthday.Format("January 2"))
	}
	return response
}

func (c *Contacts) listContacts(pctx *plugin.Context) string {
	contacts, err := c.Store().ListContacts(pctx.User.ID)
	if err != nil {
		c.Logger().Error("failed to list contacts", "error", err)
		return "I had trouble fetching your contacts."
	}
	if len(contacts) == 0 {
		return "You don't have any contacts yet. Try: 'Add contact: John Smith, friend'"
	}

	grouped := map[string][]store.Contact{}
	for _, contact := range contacts {
		grouped[contact.Relation] = append(grouped[contact.Relation], contact)
	}
	relations := make([]string, 0, len(grouped))
	for rel := range grouped {
		relations = append(relations, rel)
	}
	sort.Strings(relations)

	var sb strings.Builder
	sb.WriteString("👥 Your contacts:\n\n")
	for _, rel := range relations {
		fmt.Fprintf(&sb, "%s (%d):\n", titleCase(rel), len(grouped[rel]))
		for _, contact := range grouped[rel] {
			fmt.Fprintf(&sb, "- %s%s\n", contact.Name, lastContactLabel(contact.LastContact))
		}
		sb.WriteString("\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}

func (c *Contacts) logInteraction(ctx context.Context, pctx *plugin.Context, message string) string {
	details, err := c.Brain().ExtractStructured(ctx, message, map[string]string{
		"contact_name":     "string - person's name",
		"interaction_type": "string - called/texted/met/etc",
		"notes":            "string - what was discussed",
	})
	if err != nil {
		c.Logger().Error("interaction extraction failed", "error", err)
		return "I had trouble logging that interaction."
	}

	name := asString(details, "contact_name")
	if name == "" {
		return "Who did you interact with? Try: 'I talked to Sarah today about her new job'"
	}

	contact, err := c.Store().ContactByName(pctx.User.ID, name)
	if err != nil {
		c.Logger().Error("contact lookup failed", "error", err)
		return "I had trouble logging that interaction."
	}
	if contact == nil {
		return fmt.Sprintf("I don't have a contact for %s. Want to add them first?", name)
	}

	if err := c.Store().TouchContact(contact.ID); err != nil {
		c.Logger().Error("failed to touch contact", "error", err)
		return "I had trouble logging that interaction."
	}
	return fmt.Sprintf("✅ Logged interaction with %s", contact.Name)
}

// insights lists contacts not interacted with inside the check-in window.
func (c *Contacts) insights(pctx *plugin.Context) string {
	checkInDays := intSetting(c.GetConfig("check_in_interval_days", nil), 14)
	cutoff := time.Now().UTC().AddDate(0, 0, -checkInDays)

	contacts, err := c.Store().ListContacts(pctx.User.ID)
	if err != nil {
		c.Logger().Error("failed to list contacts", "error", err)
		return "I had trouble generating relationship insights."
	}

	type overdue struct {
		contact store.Contact
		daysAgo int
	}
	var stale []overdue
	for _, contact := range contacts {
		if contact.LastContact == nil {
			stale = append(stale, overdue{contact, -1})
			continue
		}
		if contact.LastContact.Before(cutoff) {
			stale = append(stale, overdue{contact, int(time.Since(*contact.LastContact).Hours() / 24)})
		}
	}
	if len(stale) == 0 {
		return "🎉 You're doing great staying in touch with everyone!"
	}

	sort.Slice(stale, func(i, j int) bool { return stale[i].daysAgo > stale[j].daysAgo })
	if len(stale) > 5 {
		stale = stale[:5]
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "💡 Consider reaching out. You haven't talked to these people in %d+ days:\n\n", checkInDays)
	for _, o := range stale {
		if o.daysAgo < 0 {
			fmt.Fprintf(&sb, "- %s (never logged)\n", o.contact.Name)
		} else {
			fmt.Fprintf(&sb, "- %s (%d days ago)\n", o.contact.Name, o.daysAgo)
		}
	}
	return sb.String()
}

// birthdays lists contacts whose birthday falls within the reminder window.
func (c *Contacts) birthdays(pctx *plugin.Context) string {
	reminderDays := intSetting(c.GetConfig("birthday_reminder_days", nil), 7)

	contacts, err := c.Store().ListContacts(pctx.User.ID)
	if err != nil {
		c.Logger().Error("failed to list contacts", "error", err)
		return "I had trouble checking birthdays."
	}

	today := startOfDay(time.Now())
	type upcoming struct {
		contact   store.Contact
		birthday  time.Time
		daysUntil int
	}
	var hits []upcoming
	var anySaved bool
	for _, contact := range contacts {
		if contact.Birthday == nil {
			continue
		}
		anySaved = true
		bday := time.Date(today.Year(), contact.Birthday.Month(), contact.Birthday.Day(), 0, 0, 0, 0, today.Location())
		if bday.Before(today) {
			bday = bday.AddDate(1, 0, 0)
		}
		daysUntil := int(bday.Sub(today).Hours() / 24)
		if daysUntil <= reminderDays {
			hits = append(hits, upcoming{contact, bday, daysUntil})
		}
	}
	if !anySaved {
		return "You don't have any birthdays saved yet."
	}
	if len(hits) == 0 {
		return fmt.Sprintf("No birthdays in the next %d days.", reminderDays)
	}

	sort.Slice(hits, func(i, j int) bool { return hits[i].daysUntil < hits[j].daysUntil })

	var sb strings.Builder
	sb.WriteString("🎂 Upcoming birthdays:\n\n")
	for _, h := range hits {
		switch h.daysUntil {
		case 0:
			fmt.Fprintf(&sb, "🎉 %s - TODAY!\n", h.contact.Name)
		case 1:
			fmt.Fprintf(&sb, "- %s - tomorrow (%s)\n", h.contact.Name, h.birthday.Format("January 2"))
		default:
			fmt.Fprintf(&sb, "- %s - %d days (%s)\n", h.contact.Name, h.daysUntil, h.birthday.Format("January 2"))
		}
	}
	return sb.String()
}

func (c *Contacts) Commands() []plugin.Command {
	return []plugin.Command{
		{Example: "add contact [name], [relation]", Description: "Add new contact"},
		{Example: "list contacts", Description: "Show all contacts"},
		{Example: "I talked to [name]", Description: "Log interaction"},
		{Example: "who should I reach out to", Description: "Get relationship insights"},
		{Example: "upcoming birthdays", Description: "See upcoming birthdays"},
	}
}

func lastContactLabel(last *time.Time) string {
	if last == nil {
		return ""
	}
	daysAgo := int(time.Since(*last).Hours() / 24)
	switch daysAgo {
	case 0:
		return " (today)"
	case 1:
		return " (yesterday)"
	default:
		return fmt.Sprintf(" (%d days ago)", daysAgo)
	}
}
