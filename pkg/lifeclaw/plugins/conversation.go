package plugins

import (
	"context"
	"log/slog"

	"github.com/jholhewres/lifeclaw/pkg/lifeclaw/plugin"
)

// Conversation is the general-conversation fallback. Priority 999 sorts
// it last, and CanHandle always claims the message, so it runs whenever
// no domain plugin produced a response.
type Conversation struct {
	plugin.Base
}

// NewConversation constructs the fallback conversation plugin.
func NewConversation(host plugin.Host, settings map[string]any, logger *slog.Logger) (plugin.Plugin, error) {
	c := &Conversation{}
	c.Base = plugin.NewBase(plugin.Info{
		Name:        "conversation",
		Description: "General conversation and knowledge queries",
		Version:     "1.0.0",
		Enabled:     true,
		Priority:    999,
	}, host, settings, logger)
	return c, nil
}

// CanHandle always claims the message.
func (c *Conversation) CanHandle(string, *plugin.Context) bool {
	return true
}

func (c *Conversation) Handle(ctx context.Context, message string, pctx *plugin.Context) (string, error) {
	response, err := c.Brain().Think(ctx, message, pctx.History, pctx.PluginNames)
	if err != nil {
		c.Logger().Error("conversation generation failed", "error", err)
		return "I'm having trouble processing that right now. Could you try rephrasing?", nil
	}
	return response, nil
}

func (c *Conversation) Commands() []plugin.Command {
	return []plugin.Command{
		{Example: "anything!", Description: "I can handle general conversation and questions"},
	}
}
