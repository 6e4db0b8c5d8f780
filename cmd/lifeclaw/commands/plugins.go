package commands

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/jholhewres/lifeclaw/pkg/lifeclaw/plugins"
)

// newPluginsCmd creates the `lifeclaw plugins` command listing the
// available plugins and which ones the config enables.
func newPluginsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "plugins",
		Short: "List available plugins",
		Long: `Lists every built-in plugin with its dispatch priority and whether
the current configuration enables it.

Examples:
  lifeclaw plugins`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := resolveConfig(cmd)
			if err != nil {
				return err
			}

			enabled := make(map[string]bool, len(cfg.Plugins.Enabled))
			for _, name := range cfg.Plugins.Enabled {
				enabled[name] = true
			}

			names := make([]string, 0, len(plugins.Builtin()))
			for name := range plugins.Builtin() {
				names = append(names, name)
			}
			sort.Strings(names)

			fmt.Println("Available plugins:")
			for _, name := range names {
				state := "disabled"
				if enabled[name] {
					state = "enabled"
				}
				fmt.Printf("  %-16s %s\n", name, state)
			}
			return nil
		},
	}
}
