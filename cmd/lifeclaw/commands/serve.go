package commands

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jholhewres/lifeclaw/pkg/lifeclaw/agent"
	"github.com/jholhewres/lifeclaw/pkg/lifeclaw/channels"
	"github.com/jholhewres/lifeclaw/pkg/lifeclaw/channels/discord"
	"github.com/jholhewres/lifeclaw/pkg/lifeclaw/channels/telegram"
	"github.com/jholhewres/lifeclaw/pkg/lifeclaw/plugins"
	"github.com/jholhewres/lifeclaw/pkg/lifeclaw/scheduler"
)

// newServeCmd creates the `lifeclaw serve` command that starts the daemon.
func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the daemon with messaging channels",
		Long: `Start LifeClaw as a daemon service, connecting to enabled channels
(Telegram, Discord) and processing messages.

Examples:
  lifeclaw serve
  lifeclaw serve --channel telegram
  lifeclaw serve --config ./config.yaml`,
		RunE: runServe,
	}

	cmd.Flags().StringSlice("channel", nil, "channels to enable (telegram, discord)")
	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	// ── Load config ──
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}

	// ── Configure logger ──
	logger := buildLogger(cmd, cfg)

	// ── Resolve secrets ──
	// Keyring → env/.env → config.yaml.
	agent.ResolveSecrets(cfg, logger)

	// ── Create assistant ──
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	assistant, err := agent.New(ctx, cfg, plugins.Builtin(), logger)
	if err != nil {
		return fmt.Errorf("failed to create assistant: %w", err)
	}

	// ── Register channels ──
	channelFilter, _ := cmd.Flags().GetStringSlice("channel")
	manager := channels.NewManager(logger)

	if shouldEnable("telegram", channelFilter, cfg.Channels.Telegram.Enabled) {
		tg := telegram.New(cfg.Channels.Telegram, logger)
		if err := manager.Register(tg); err != nil {
			logger.Error("failed to register Telegram", "error", err)
		}
	}
	if shouldEnable("discord", channelFilter, cfg.Channels.Discord.Enabled) {
		dc := discord.New(cfg.Channels.Discord, logger)
		if err := manager.Register(dc); err != nil {
			logger.Error("failed to register Discord", "error", err)
		}
	}

	if err := manager.Start(ctx); err != nil {
		assistant.Close()
		return fmt.Errorf("failed to start channels: %w", err)
	}

	// ── Start scheduler ──
	sched := scheduler.New(cfg.Scheduler, assistant.Store(), manager, logger)
	if err := sched.Start(ctx); err != nil {
		logger.Error("failed to start scheduler", "error", err)
	}

	// ── Message loop ──
	var loopWg sync.WaitGroup
	loopWg.Add(1)
	go func() {
		defer loopWg.Done()
		for msg := range manager.Messages() {
			handleMessage(ctx, assistant, manager, msg, logger)
		}
	}()

	// ── Wait for shutdown ──
	logger.Info("LifeClaw running. Press Ctrl+C to stop.",
		"name", cfg.Name,
		"plugins", len(assistant.ListPlugins()),
	)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutdown signal received, stopping...")

	// Graceful shutdown with timeout. Transports first so the message
	// loop drains, then the scheduler, then the assistant and store.
	done := make(chan struct{})
	go func() {
		manager.Stop()
		loopWg.Wait()
		sched.Stop()
		assistant.Close()
		close(done)
	}()

	select {
	case <-done:
		logger.Info("shutdown complete")
	case <-time.After(10 * time.Second):
		logger.Warn("shutdown timed out after 10s, forcing exit")
	}

	return nil
}

// handleMessage processes one inbound message and sends the reply back to
// the chat it came from.
func handleMessage(ctx context.Context, assistant *agent.Agent, manager *channels.Manager, msg *channels.IncomingMessage, logger *slog.Logger) {
	if _, err := assistant.SetUser(msg.From, msg.Username, msg.FirstName, msg.LastName); err != nil {
		logger.Error("failed to resolve user", "from", msg.From, "error", err)
		return
	}

	manager.SendTyping(ctx, msg.Channel, msg.ChatID)

	reply := assistant.ProcessMessage(ctx, msg.Content)
	if reply == "" {
		return
	}

	err := manager.Send(ctx, msg.Channel, msg.ChatID, &channels.OutgoingMessage{
		Content: reply,
		ReplyTo: msg.ID,
	})
	if err != nil {
		logger.Error("failed to send reply", "channel", msg.Channel, "error", err)
	}
}

// buildLogger creates the slog logger from config and the --verbose flag.
func buildLogger(cmd *cobra.Command, cfg *agent.Config) *slog.Logger {
	verbose, _ := cmd.Root().PersistentFlags().GetBool("verbose")
	logLevel := slog.LevelInfo
	switch {
	case verbose || cfg.Logging.Level == "debug":
		logLevel = slog.LevelDebug
	case cfg.Logging.Level == "warn":
		logLevel = slog.LevelWarn
	case cfg.Logging.Level == "error":
		logLevel = slog.LevelError
	}

	var handler slog.Handler
	if cfg.Logging.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	}
	return slog.New(handler)
}

// resolveConfig loads config from file, running interactive setup if missing.
// When the config names no plugins, the default set is enabled.
func resolveConfig(cmd *cobra.Command) (*agent.Config, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	if len(cfg.Plugins.Enabled) == 0 {
		cfg.Plugins.Enabled = plugins.DefaultEnabled()
	}
	return cfg, nil
}

func loadConfig(cmd *cobra.Command) (*agent.Config, error) {
	configPath, _ := cmd.Root().PersistentFlags().GetString("config")

	// Try explicit path first.
	if configPath != "" {
		cfg, err := agent.LoadConfigFromFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("loading config: %w", err)
		}
		return cfg, nil
	}

	// Auto-discover config file.
	if found := agent.FindConfigFile(); found != "" {
		cfg, err := agent.LoadConfigFromFile(found)
		if err != nil {
			return nil, fmt.Errorf("loading config from %s: %w", found, err)
		}
		return cfg, nil
	}

	// No config file. Offer interactive setup before starting.
	fmt.Println()
	fmt.Println("No configuration file found.")
	fmt.Println()

	reader := bufio.NewReader(os.Stdin)
	fmt.Print("Run interactive setup now? (y/n) [y]: ")
	answer := strings.TrimSpace(readLine(reader))

	if answer != "" && strings.ToLower(answer) != "y" {
		fmt.Println()
		fmt.Println("Run 'lifeclaw setup' to create the configuration.")
		return nil, fmt.Errorf("configuration required before starting")
	}

	if err := runInteractiveSetup(); err != nil {
		return nil, fmt.Errorf("setup: %w", err)
	}

	if found := agent.FindConfigFile(); found != "" {
		cfg, err := agent.LoadConfigFromFile(found)
		if err != nil {
			return nil, fmt.Errorf("loading config from %s: %w", found, err)
		}
		return cfg, nil
	}

	return nil, fmt.Errorf("setup completed but no config file was found")
}

// shouldEnable checks if a channel should be enabled. The --channel flag
// overrides the per-channel enabled setting.
func shouldEnable(name string, filter []string, defaultEnabled bool) bool {
	if len(filter) == 0 {
		return defaultEnabled
	}
	for _, f := range filter {
		if f == name {
			return true
		}
	}
	return false
}
