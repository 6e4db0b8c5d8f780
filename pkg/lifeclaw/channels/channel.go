// Package channels defines the interface and types for LifeClaw
// messaging transports. Each channel (Telegram, Discord) implements the
// Channel interface to receive and send messages in a unified way.
package channels

import (
	"context"
	"fmt"
	"time"
)

// Channel defines the interface that every messaging transport implements.
type Channel interface {
	// Name returns the channel identifier (e.g. "telegram", "discord").
	Name() string

	// Connect establishes the connection to the messaging platform.
	Connect(ctx context.Context) error

	// Disconnect gracefully closes the connection.
	Disconnect() error

	// Send sends a message to the specified recipient.
	Send(ctx context.Context, to string, message *OutgoingMessage) error

	// Receive returns a Go channel that emits incoming messages.
	Receive() <-chan *IncomingMessage

	// IsConnected returns true if the channel is connected.
	IsConnected() bool

	// Health returns the channel health status.
	Health() HealthStatus
}

// IncomingMessage represents a message received from any channel.
type IncomingMessage struct {
	// ID is the unique message identifier in the source channel.
	ID string

	// Channel identifies the source channel (e.g. "telegram").
	Channel string

	// From is the sender identifier on the platform.
	From string

	// Username is the sender's handle (if the platform has one).
	Username string

	// FirstName and LastName are the sender's profile name fields.
	FirstName string
	LastName  string

	// ChatID is the conversation identifier replies go to.
	ChatID string

	// Content is the text content of the message.
	Content string

	// Timestamp is when the message was sent.
	Timestamp time.Time
}

// OutgoingMessage represents a message to be sent through a channel.
type OutgoingMessage struct {
	// Content is the text content of the message.
	Content string

	// ReplyTo contains the ID of the message to reply to.
	ReplyTo string
}

// HealthStatus represents the health state of a channel.
type HealthStatus struct {
	Connected     bool
	LastMessageAt time.Time
	ErrorCount    int
}

// Errors.
var (
	ErrChannelDisconnected = fmt.Errorf("channel is not connected")
	ErrConnectionFailed    = fmt.Errorf("failed to connect to channel")
)
