package channels

import (
	"context"
	"testing"
	"time"
)

// fakeChannel is an in-memory transport for manager tests.
type fakeChannel struct {
	name      string
	messages  chan *IncomingMessage
	connected bool
	failOpen  bool
	sent      []*OutgoingMessage
}

func newFakeChannel(name string) *fakeChannel {
	return &fakeChannel{name: name, messages: make(chan *IncomingMessage, 8)}
}

func (f *fakeChannel) Name() string { return f.name }

func (f *fakeChannel) Connect(context.Context) error {
	if f.failOpen {
		return ErrConnectionFailed
	}
	f.connected = true
	return nil
}

func (f *fakeChannel) Disconnect() error {
	if f.connected {
		f.connected = false
		close(f.messages)
	}
	return nil
}

func (f *fakeChannel) Send(_ context.Context, _ string, msg *OutgoingMessage) error {
	f.sent = append(f.sent, msg)
	return nil
}

func (f *fakeChannel) Receive() <-chan *IncomingMessage { return f.messages }
func (f *fakeChannel) IsConnected() bool                { return f.connected }
func (f *fakeChannel) Health() HealthStatus             { return HealthStatus{Connected: f.connected} }

func TestManager_ForwardsMessages(t *testing.T) {
	m := NewManager(nil)
	ch := newFakeChannel("fake")
	if err := m.Register(ch); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	ch.messages <- &IncomingMessage{ID: "1", Channel: "fake", Content: "hi"}

	select {
	case got := <-m.Messages():
		if got.Content != "hi" {
			t.Errorf("unexpected message: %+v", got)
		}
	case <-time.After(time.Second):
		t.Fatal("message was not forwarded")
	}

	m.Stop()
}

func TestManager_StopClosesStream(t *testing.T) {
	m := NewManager(nil)
	ch := newFakeChannel("fake")
	m.Register(ch)
	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	m.Stop()

	select {
	case _, open := <-m.Messages():
		if open {
			t.Error("expected stream to be closed after Stop")
		}
	case <-time.After(time.Second):
		t.Fatal("stream not closed after Stop")
	}
}

func TestManager_DuplicateRegister(t *testing.T) {
	m := NewManager(nil)
	if err := m.Register(newFakeChannel("fake")); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if err := m.Register(newFakeChannel("fake")); err == nil {
		t.Error("expected error for duplicate channel name")
	}
}

func TestManager_StartErrorsWhenNothingConnects(t *testing.T) {
	m := NewManager(nil)
	broken := newFakeChannel("broken")
	broken.failOpen = true
	m.Register(broken)

	if err := m.Start(context.Background()); err == nil {
		t.Error("expected error when no channel connects")
	}
}

func TestManager_StartWithoutChannels(t *testing.T) {
	m := NewManager(nil)
	if err := m.Start(context.Background()); err != nil {
		t.Errorf("Start with no channels should succeed, got %v", err)
	}
	m.Stop()
}

func TestManager_SendRouting(t *testing.T) {
	m := NewManager(nil)
	a := newFakeChannel("a")
	b := newFakeChannel("b")
	m.Register(a)
	m.Register(b)
	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer m.Stop()

	if err := m.Send(context.Background(), "a", "chat1", &OutgoingMessage{Content: "to a"}); err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if len(a.sent) != 1 || len(b.sent) != 0 {
		t.Errorf("message routed wrong: a=%d b=%d", len(a.sent), len(b.sent))
	}

	if err := m.Send(context.Background(), "ghost", "chat1", &OutgoingMessage{}); err == nil {
		t.Error("expected error for unknown channel")
	}
}

func TestManager_Broadcast(t *testing.T) {
	m := NewManager(nil)
	a := newFakeChannel("a")
	b := newFakeChannel("b")
	m.Register(a)
	m.Register(b)
	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer m.Stop()

	m.Broadcast(context.Background(), "user1", &OutgoingMessage{Content: "reminder"})
	if len(a.sent) != 1 || len(b.sent) != 1 {
		t.Errorf("broadcast should reach every connected channel: a=%d b=%d", len(a.sent), len(b.sent))
	}
}
