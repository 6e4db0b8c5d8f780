package commands

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jholhewres/lifeclaw/pkg/lifeclaw/store"
)

// newRememberCmd creates the `lifeclaw remember` command for adding facts
// to long-term memory without going through the LLM.
func newRememberCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remember <fact>",
		Short: "Add a fact to long-term memory",
		Long: `Adds a fact the assistant should remember in future conversations.
Useful for preferences, personal context and recurring information.

Examples:
  lifeclaw remember "I prefer short answers"
  lifeclaw remember "my wife's birthday is March 12"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd)
			if err != nil {
				return err
			}

			logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
			st, err := store.Open(cfg.Database, logger)
			if err != nil {
				return fmt.Errorf("opening store: %w", err)
			}
			defer st.Close()

			user, err := st.GetOrCreateUser("local", localUsername(), "", "")
			if err != nil {
				return fmt.Errorf("resolving local user: %w", err)
			}

			fact := strings.Join(args, " ")
			if _, err := st.SaveMemory(user.ID, "personal", fact, 0.8); err != nil {
				return fmt.Errorf("saving memory: %w", err)
			}

			fmt.Printf("Remembered: %q\n", fact)
			return nil
		},
	}
}
