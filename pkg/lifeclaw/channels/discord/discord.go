// Package discord implements the Discord channel for LifeClaw using
// discordgo. Text messages in DMs and allowed channels; discordgo's
// gateway handles reconnection.
package discord

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/jholhewres/lifeclaw/pkg/lifeclaw/channels"
)

// Config holds Discord channel configuration.
type Config struct {
	// Enabled turns the channel on.
	Enabled bool `yaml:"enabled"`

	// Token is the Discord bot token.
	Token string `yaml:"token"`

	// AllowedChannels restricts which channel IDs the bot responds in.
	// Empty means respond in all channels.
	AllowedChannels []string `yaml:"allowed_channels"`

	// SendTyping sends "typing..." indicators while processing.
	SendTyping bool `yaml:"send_typing"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		SendTyping: true,
	}
}

// Discord implements channels.Channel over the discordgo gateway.
type Discord struct {
	cfg     Config
	logger  *slog.Logger
	session *discordgo.Session

	messages chan *channels.IncomingMessage

	// closeMu pairs enqueue (read lock) with Disconnect (write lock) so
	// the message stream is closed only after in-flight sends return.
	closeMu sync.RWMutex
	closed  bool

	connected  atomic.Bool
	lastMsg    atomic.Value // time.Time
	errorCount atomic.Int64

	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a new Discord channel instance.
func New(cfg Config, logger *slog.Logger) *Discord {
	if logger == nil {
		logger = slog.Default()
	}
	return &Discord{
		cfg:      cfg,
		logger:   logger.With("component", "discord"),
		messages: make(chan *channels.IncomingMessage, 256),
	}
}

// Name returns "discord".
func (d *Discord) Name() string { return "discord" }

// Connect opens the Discord gateway WebSocket connection.
func (d *Discord) Connect(ctx context.Context) error {
	if d.cfg.Token == "" {
		return fmt.Errorf("discord: bot token is required")
	}
	// The stream closes exactly once; a disconnected instance cannot be
	// reused.
	d.closeMu.RLock()
	closed := d.closed
	d.closeMu.RUnlock()
	if closed {
		return fmt.Errorf("discord: channel already disconnected")
	}

	d.ctx, d.cancel = context.WithCancel(ctx)

	session, err := discordgo.New("Bot " + d.cfg.Token)
	if err != nil {
		return fmt.Errorf("discord: creating session: %w", err)
	}

	session.Identify.Intents = discordgo.IntentsGuildMessages |
		discordgo.IntentsDirectMessages |
		discordgo.IntentsMessageContent

	session.AddHandler(d.onMessageCreate)

	if err := session.Open(); err != nil {
		return fmt.Errorf("discord: opening gateway: %w", err)
	}

	d.session = session
	d.connected.Store(true)

	user := session.State.User
	d.logger.Info("discord: connected", "bot", user.Username, "id", user.ID)
	return nil
}

// Disconnect closes the gateway connection and the message stream.
// Cancelling first unblocks any handler waiting to enqueue; the write
// lock then guarantees no send races the close.
func (d *Discord) Disconnect() error {
	if d.cancel != nil {
		d.cancel()
	}
	if d.session != nil {
		if err := d.session.Close(); err != nil {
			d.logger.Warn("discord: close error", "error", err)
		}
	}
	d.connected.Store(false)

	d.closeMu.Lock()
	alreadyClosed := d.closed
	d.closed = true
	d.closeMu.Unlock()
	if !alreadyClosed {
		close(d.messages)
	}

	d.logger.Info("discord: disconnected")
	return nil
}

// Send sends a text message to the specified channel, splitting at
// Discord's 2000 character limit.
func (d *Discord) Send(ctx context.Context, to string, message *channels.OutgoingMessage) error {
	if d.session == nil || !d.connected.Load() {
		return channels.ErrChannelDisconnected
	}

	for i, chunk := range splitMessage(message.Content, 2000) {
		msgSend := &discordgo.MessageSend{Content: chunk}
		if i == 0 && message.ReplyTo != "" {
			msgSend.Reference = &discordgo.MessageReference{MessageID: message.ReplyTo}
		}
		if _, err := d.session.ChannelMessageSendComplex(to, msgSend); err != nil {
			d.errorCount.Add(1)
			return fmt.Errorf("discord: sending message: %w", err)
		}
	}
	return nil
}

// SendTyping sends a typing indicator to the channel.
func (d *Discord) SendTyping(ctx context.Context, to string) error {
	if d.session == nil || !d.cfg.SendTyping {
		return nil
	}
	return d.session.ChannelTyping(to)
}

// Receive returns the incoming messages channel.
func (d *Discord) Receive() <-chan *channels.IncomingMessage {
	return d.messages
}

// IsConnected returns true if the gateway is open.
func (d *Discord) IsConnected() bool { return d.connected.Load() }

// Health returns the channel health status.
func (d *Discord) Health() channels.HealthStatus {
	var lastAt time.Time
	if v := d.lastMsg.Load(); v != nil {
		lastAt = v.(time.Time)
	}
	return channels.HealthStatus{
		Connected:     d.connected.Load(),
		LastMessageAt: lastAt,
		ErrorCount:    int(d.errorCount.Load()),
	}
}

// onMessageCreate forwards user text messages into the aggregate stream.
func (d *Discord) onMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	// Ignore the bot's own messages and other bots.
	if m.Author == nil || m.Author.ID == s.State.User.ID || m.Author.Bot {
		return
	}
	if m.Content == "" {
		return
	}
	if !d.channelAllowed(m.ChannelID) {
		return
	}

	d.lastMsg.Store(time.Now())
	d.enqueue(&channels.IncomingMessage{
		ID:        m.ID,
		Channel:   "discord",
		From:      m.Author.ID,
		Username:  m.Author.Username,
		FirstName: m.Author.GlobalName,
		ChatID:    m.ChannelID,
		Content:   m.Content,
		Timestamp: m.Timestamp,
	})
}

// enqueue forwards a message into the stream, dropping it when shutdown
// has already closed the stream.
func (d *Discord) enqueue(msg *channels.IncomingMessage) {
	d.closeMu.RLock()
	defer d.closeMu.RUnlock()
	if d.closed {
		return
	}
	select {
	case d.messages <- msg:
	case <-d.ctx.Done():
	}
}

func (d *Discord) channelAllowed(channelID string) bool {
	if len(d.cfg.AllowedChannels) == 0 {
		return true
	}
	for _, id := range d.cfg.AllowedChannels {
		if id == channelID {
			return true
		}
	}
	return false
}

// splitMessage breaks content into chunks of at most limit bytes,
// preferring newline boundaries.
func splitMessage(content string, limit int) []string {
	if len(content) <= limit {
		return []string{content}
	}
	var chunks []string
	for len(content) > limit {
		cut := limit
		for i := limit - 1; i > limit/2; i-- {
			if content[i] == '\n' {
				cut = i
				break
			}
		}
		chunks = append(chunks, content[:cut])
		content = content[cut:]
	}
	if content != "" {
		chunks = append(chunks, content)
	}
	return chunks
}
