package brain

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

// fakeLLM returns a server that replies to chat completions with the given
// content and captures the last request body.
func fakeLLM(t *testing.T, content string, lastReq *chatRequest) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if lastReq != nil {
			if err := json.NewDecoder(r.Body).Decode(lastReq); err != nil {
				t.Errorf("decoding request: %v", err)
			}
		}
		fmt.Fprintf(w, `{"choices":[{"message":{"content":%q}}]}`, content)
	}))
}

func newTestClient(baseURL string) *Client {
	return New(Config{BaseURL: baseURL, Model: "test-model", TimeoutSeconds: 5}, nil)
}

func TestThink_SendsSystemAndHistory(t *testing.T) {
	var req chatRequest
	srv := fakeLLM(t, "hello there", &req)
	defer srv.Close()

	c := newTestClient(srv.URL)
	history := []Turn{
		{Role: "user", Content: "hi"},
		{Role: "assistant", Content: "hey"},
	}

	got, err := c.Think(context.Background(), "how are you?", history, []string{"financial", "reminders"})
	if err != nil {
		t.Fatalf("Think failed: %v", err)
	}
	if got != "hello there" {
		t.Errorf("expected server content, got %q", got)
	}

	// system + 2 history + current message.
	if len(req.Messages) != 4 {
		t.Fatalf("expected 4 messages, got %d", len(req.Messages))
	}
	if req.Messages[0].Role != "system" {
		t.Errorf("first message should be system, got %q", req.Messages[0].Role)
	}
	if req.Messages[3].Content != "how are you?" {
		t.Errorf("last message should be the current one, got %q", req.Messages[3].Content)
	}
	if req.Model != "test-model" {
		t.Errorf("expected model test-model, got %q", req.Model)
	}
}

func TestAnalyzeIntent_ParsesFencedJSON(t *testing.T) {
	reply := "```json\n{\"primary_intent\":\"financial\",\"action_type\":\"create\",\"entities\":[\"$25\"],\"urgency\":\"low\",\"requires_context\":true}\n```"
	srv := fakeLLM(t, reply, nil)
	defer srv.Close()

	c := newTestClient(srv.URL)
	intent, err := c.AnalyzeIntent(context.Background(), "I spent $25 on groceries")
	if err != nil {
		t.Fatalf("AnalyzeIntent failed: %v", err)
	}

	if intent.Primary != "financial" || intent.ActionType != "create" {
		t.Errorf("unexpected intent: %+v", intent)
	}
	if !intent.RequiresContext {
		t.Error("expected requires_context true")
	}
}

func TestAnalyzeIntent_MalformedJSONIsError(t *testing.T) {
	srv := fakeLLM(t, "sorry, I can't do that", nil)
	defer srv.Close()

	c := newTestClient(srv.URL)
	if _, err := c.AnalyzeIntent(context.Background(), "hi"); err == nil {
		t.Error("expected error for non-JSON intent response")
	}
}

func TestExtractStructured(t *testing.T) {
	srv := fakeLLM(t, `{"amount": 25.0, "category": "groceries", "date": null}`, nil)
	defer srv.Close()

	c := newTestClient(srv.URL)
	fields, err := c.ExtractStructured(context.Background(), "I spent $25 on groceries", map[string]string{
		"amount":   "the amount spent",
		"category": "spending category",
		"date":     "when it happened",
	})
	if err != nil {
		t.Fatalf("ExtractStructured failed: %v", err)
	}

	if fields["amount"] != 25.0 {
		t.Errorf("expected amount 25.0, got %v", fields["amount"])
	}
	if fields["category"] != "groceries" {
		t.Errorf("expected category groceries, got %v", fields["category"])
	}
}

func TestComplete_APIErrorSurfaced(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":{"message":"bad api key","type":"auth"}}`)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	if _, err := c.Think(context.Background(), "hi", nil, nil); err == nil {
		t.Error("expected error for API failure")
	}
}

func TestDefaultIntent(t *testing.T) {
	intent := DefaultIntent()
	if intent.Primary != "general" || intent.RequiresContext {
		t.Errorf("unexpected default intent: %+v", intent)
	}
}

func TestStripCodeFences(t *testing.T) {
	cases := map[string]string{
		"```json\n{\"a\":1}\n```": `{"a":1}`,
		"```\n{\"a\":1}\n```":     `{"a":1}`,
		`{"a":1}`:                 `{"a":1}`,
	}
	for in, want := range cases {
		if got := stripCodeFences(in); got != want {
			t.Errorf("stripCodeFences(%q) = %q, want %q", in, got, want)
		}
	}
}
