package plugins

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jholhewres/lifeclaw/pkg/lifeclaw/plugin"
)

// memoryPhrases trigger storage even without an explicit keyword.
var memoryPhrases = []string{
	"my name is", "i am", "i live", "i work",
	"my favorite", "i like", "i prefer", "i hate",
}

// memoryCategories maps category → cue words for classifying stored facts.
var memoryCategories = []struct {
	name string
	cues []string
}{
	{"personal", []string{"name", "birthday", "age", "i am", "i was born"}},
	{"work", []string{"work", "job", "career", "office", "colleague", "boss"}},
	{"family", []string{"mom", "dad", "mother", "father", "sister", "brother", "family"}},
	{"health", []string{"health", "doctor", "medicine", "symptom", "allergy"}},
	{"preferences", []string{"favorite", "like", "prefer", "love", "hate", "enjoy"}},
	{"location", []string{"live", "address", "home", "apartment", "house"}},
}

// PersonalMemory stores facts the user states and recalls them on request.
type PersonalMemory struct {
	plugin.Base
}

// NewPersonalMemory constructs the personal memory plugin.
func NewPersonalMemory(host plugin.Host, settings map[string]any, logger *slog.Logger) (plugin.Plugin, error) {
	p := &PersonalMemory{}
	p.Base = plugin.NewBase(plugin.Info{
		Name:        "personal_memory",
		Description: "Remembers important information about you and recalls it when needed",
		Version:     "1.0.0",
		Enabled:     true,
		Priority:    10,
		Keywords: []string{
			"remember", "recall", "forget", "my", "what did",
			"when did", "have i", "did i", "i told you",
			"what do you know", "know about me",
		},
	}, host, settings, logger)
	return p, nil
}

// CanHandle extends the keyword policy with fact-stating phrases like
// "my name is" or "i prefer".
func (p *PersonalMemory) CanHandle(message string, pctx *plugin.Context) bool {
	if p.Base.CanHandle(message, pctx) {
		return true
	}
	lower := strings.ToLower(message)
	return containsAny(lower, memoryPhrases...)
}

func (p *PersonalMemory) Handle(ctx context.Context, message string, pctx *plugin.Context) (string, error) {
	lower := strings.ToLower(message)

	if containsAny(lower, "recall", "what", "when", "have i", "did i") {
		return p.recall(ctx, pctx, message), nil
	}
	if strings.Contains(lower, "forget") {
		return "What specifically would you like me to forget? You can say things like 'forget my old address' or 'delete memories about X'.", nil
	}
	return p.remember(pctx, message), nil
}

func (p *PersonalMemory) remember(pctx *plugin.Context, message string) string {
	category := classifyMemory(message)
	if _, err := p.Store().SaveMemory(pctx.User.ID, category, message, 0.7); err != nil {
		p.Logger().Error("failed to store memory", "error", err)
		return "Sorry, I had trouble storing that memory."
	}
	p.Logger().Info("stored memory", "category", category)
	return "✅ Got it, I'll remember that."
}

// recall answers a query against the user's stored memories: load the top
// memories, hand them to the model with the query, return its answer.
func (p *PersonalMemory) recall(ctx context.Context, pctx *plugin.Context, query string) string {
	memories, err := p.Store().RecallMemories(pctx.User.ID, 10)
	if err != nil {
		p.Logger().Error("failed to recall memories", "error", err)
		return "I'm having trouble recalling that right now."
	}
	if len(memories) == 0 {
		return "I don't have any memories stored yet. Tell me about yourself!"
	}

	var sb strings.Builder
	for _, m := range memories {
		fmt.Fprintf(&sb, "- [%s] %s\n", m.Category, m.Content)
	}
	prompt := fmt.Sprintf("Based on these memories about the user:\n%s\nAnswer this query: %s", sb.String(), query)

	response, err := p.Brain().Think(ctx, prompt, nil, nil)
	if err != nil {
		p.Logger().Error("memory recall generation failed", "error", err)
		return "I'm having trouble recalling that right now."
	}
	return response
}

func (p *PersonalMemory) Commands() []plugin.Command {
	return []plugin.Command{
		{Example: "tell me about...", Description: "Recall information about a topic"},
		{Example: "remember that...", Description: "Store new information"},
		{Example: "forget about...", Description: "Remove stored information"},
		{Example: "what do you know about me", Description: "Show stored memories"},
	}
}

func classifyMemory(message string) string {
	lower := strings.ToLower(message)
	for _, c := range memoryCategories {
		if containsAny(lower, c.cues...) {
			return c.name
		}
	}
	return "general"
}
