package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/jholhewres/lifeclaw/pkg/lifeclaw/agent"
	"github.com/jholhewres/lifeclaw/pkg/lifeclaw/plugins"
)

// newChatCmd creates the `lifeclaw chat` command for conversations.
func newChatCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chat [message]",
		Short: "Chat with the assistant",
		Long: `Starts a conversation with the assistant. Send a single message as
an argument or enter interactive mode (no arguments).

Examples:
  lifeclaw chat "I spent $25 on groceries"
  lifeclaw chat  # interactive mode`,
		Args: cobra.MaximumNArgs(1),
		RunE: runChat,
	}

	cmd.Flags().StringP("model", "m", "", "LLM model to use (e.g. gpt-4o-mini)")
	return cmd
}

func runChat(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	if model, _ := cmd.Flags().GetString("model"); model != "" {
		cfg.API.Model = model
	}

	// Keep the terminal clean: only warnings and errors unless --verbose.
	verbose, _ := cmd.Root().PersistentFlags().GetBool("verbose")
	logLevel := slog.LevelWarn
	if verbose {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))

	agent.ResolveSecrets(cfg, logger)

	ctx := context.Background()
	assistant, err := agent.New(ctx, cfg, plugins.Builtin(), logger)
	if err != nil {
		return fmt.Errorf("failed to create assistant: %w", err)
	}
	defer assistant.Close()

	if _, err := assistant.SetUser("local", localUsername(), "", ""); err != nil {
		return fmt.Errorf("failed to set up local user: %w", err)
	}

	// Single message mode.
	if len(args) > 0 {
		fmt.Println(assistant.ProcessMessage(ctx, args[0]))
		return nil
	}

	return runREPL(ctx, cfg, assistant)
}

// runREPL runs the interactive chat loop.
func runREPL(ctx context.Context, cfg *agent.Config, assistant *agent.Agent) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "you> ",
		HistoryFile:     filepath.Join(os.TempDir(), ".lifeclaw_history"),
		InterruptPrompt: "^C",
		EOFPrompt:       "bye",
	})
	if err != nil {
		return fmt.Errorf("initializing readline: %w", err)
	}
	defer rl.Close()

	fmt.Printf("%s interactive chat. Type /help for commands, /quit to exit.\n\n", cfg.Name)

	for {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			if len(line) == 0 {
				break
			}
			continue
		}
		if err == io.EOF {
			break
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		switch line {
		case "/quit", "/exit":
			return nil
		case "/help":
			fmt.Println(assistant.Help())
			continue
		case "/plugins":
			for _, info := range assistant.ListPlugins() {
				fmt.Printf("  %-16s v%-6s priority %3d  %s\n",
					info.Name, info.Version, info.Priority, info.Description)
			}
			continue
		}

		fmt.Printf("%s> %s\n\n", cfg.Name, assistant.ProcessMessage(ctx, line))
	}

	return nil
}

// localUsername picks an identity for CLI sessions.
func localUsername() string {
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	return "local"
}
