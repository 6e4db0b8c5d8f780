// manager.go multiplexes several transports into one inbound message
// stream and routes replies back to the channel they came from.
package channels

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// Manager owns the registered channels, aggregates their incoming
// messages, and routes outgoing messages by channel name.
type Manager struct {
	channels map[string]Channel
	messages chan *IncomingMessage
	logger   *slog.Logger

	// listenWg tracks per-channel listener goroutines for clean shutdown.
	listenWg sync.WaitGroup

	mu     sync.RWMutex
	ctx    context.Context
	cancel context.CancelFunc
}

// NewManager creates an empty channel manager.
func NewManager(logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		channels: make(map[string]Channel),
		messages: make(chan *IncomingMessage, 256),
		logger:   logger.With("component", "channels"),
	}
}

// Register adds a channel. Must be called before Start.
func (m *Manager) Register(ch Channel) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	name := ch.Name()
	if _, exists := m.channels[name]; exists {
		return fmt.Errorf("channel %q already registered", name)
	}
	m.channels[name] = ch
	m.logger.Info("channel registered", "channel", name)
	return nil
}

// Start connects every registered channel and begins listening. A channel
// that fails to connect is logged and skipped; Start errors only when
// channels were registered and none connected.
func (m *Manager) Start(ctx context.Context) error {
	m.ctx, m.cancel = context.WithCancel(ctx)

	m.mu.RLock()
	snapshot := make(map[string]Channel, len(m.channels))
	for k, v := range m.channels {
		snapshot[k] = v
	}
	m.mu.RUnlock()

	if len(snapshot) == 0 {
		m.logger.Warn("no channels registered, running without messaging")
		return nil
	}

	var connected int
	for name, ch := range snapshot {
		if err := ch.Connect(m.ctx); err != nil {
			m.logger.Error("failed to connect channel", "channel", name, "error", err)
			continue
		}
		connected++
		m.logger.Info("channel connected", "channel", name)

		m.listenWg.Add(1)
		go func(c Channel) {
			defer m.listenWg.Done()
			m.listenChannel(c)
		}(ch)
	}

	if connected == 0 {
		return fmt.Errorf("no channel connected successfully")
	}
	return nil
}

// Stop disconnects all channels, waits for the listeners to drain, then
// closes the aggregate stream.
func (m *Manager) Stop() {
	if m.cancel != nil {
		m.cancel()
	}

	m.mu.RLock()
	for name, ch := range m.channels {
		if err := ch.Disconnect(); err != nil {
			m.logger.Error("failed to disconnect channel", "channel", name, "error", err)
		}
	}
	m.mu.RUnlock()

	m.listenWg.Wait()
	close(m.messages)
	m.logger.Info("channel manager stopped")
}

// Messages returns the aggregate stream of incoming messages.
func (m *Manager) Messages() <-chan *IncomingMessage {
	return m.messages
}

// Send delivers a message through the named channel.
func (m *Manager) Send(ctx context.Context, channelName, to string, msg *OutgoingMessage) error {
	m.mu.RLock()
	ch, exists := m.channels[channelName]
	m.mu.RUnlock()

	if !exists {
		return fmt.Errorf("channel %q not found", channelName)
	}
	if !ch.IsConnected() {
		return fmt.Errorf("channel %q: %w", channelName, ErrChannelDisconnected)
	}
	return ch.Send(ctx, to, msg)
}

// SendTyping shows a typing indicator on the named channel when the
// transport supports one.
func (m *Manager) SendTyping(ctx context.Context, channelName, to string) {
	m.mu.RLock()
	ch, exists := m.channels[channelName]
	m.mu.RUnlock()

	if !exists {
		return
	}
	if typer, ok := ch.(interface {
		SendTyping(context.Context, string) error
	}); ok {
		if err := typer.SendTyping(ctx, to); err != nil {
			m.logger.Debug("typing indicator failed", "channel", channelName, "error", err)
		}
	}
}

// Broadcast sends the message to the user's chat on every connected
// channel. Used by the scheduler, which does not know which transport the
// user is on.
func (m *Manager) Broadcast(ctx context.Context, to string, msg *OutgoingMessage) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for name, ch := range m.channels {
		if !ch.IsConnected() {
			continue
		}
		if err := ch.Send(ctx, to, msg); err != nil {
			m.logger.Warn("broadcast send failed", "channel", name, "error", err)
		}
	}
}

// HasChannels reports whether any channel is registered.
func (m *Manager) HasChannels() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.channels) > 0
}

// HealthAll returns the health status of every registered channel.
func (m *Manager) HealthAll() map[string]HealthStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()

	statuses := make(map[string]HealthStatus, len(m.channels))
	for name, ch := range m.channels {
		statuses[name] = ch.Health()
	}
	return statuses
}

// listenChannel forwards one channel's messages into the aggregate stream.
func (m *Manager) listenChannel(ch Channel) {
	for msg := range ch.Receive() {
		select {
		case m.messages <- msg:
		case <-m.ctx.Done():
			return
		}
	}
}
