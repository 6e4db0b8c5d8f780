package plugins

import (
	"github.com/jholhewres/lifeclaw/pkg/lifeclaw/plugin"
)

// Builtin returns the static plugin catalog: name → constructor. The
// registry instantiates only the names listed in the enablement config.
func Builtin() map[string]plugin.Factory {
	return map[string]plugin.Factory{
		"memory":          NewBackgroundMemory,
		"personal_memory": NewPersonalMemory,
		"reminders":       NewReminders,
		"calendar":        NewCalendar,
		"financial":       NewFinancial,
		"contacts":        NewContacts,
		"health":          NewHealth,
		"conversation":    NewConversation,
	}
}

// DefaultEnabled lists the plugins enabled out of the box, in
// registration order. Health tracking is opt-in.
func DefaultEnabled() []string {
	return []string{
		"memory",
		"personal_memory",
		"reminders",
		"calendar",
		"financial",
		"contacts",
		"conversation",
	}
}
