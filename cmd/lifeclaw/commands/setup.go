package commands

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/jholhewres/lifeclaw/pkg/lifeclaw/agent"
)

// newSetupCmd creates the `lifeclaw setup` command for interactive configuration.
func newSetupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "setup",
		Short: "Interactive setup wizard",
		Long: `Starts an interactive wizard to create your initial config.yaml.
Asks for the assistant name, timezone, LLM provider and channel tokens.
Secrets go to the OS keyring when available, never to the config file.

Examples:
  lifeclaw setup`,
		RunE: func(_ *cobra.Command, _ []string) error {
			return runInteractiveSetup()
		},
	}
}

// runInteractiveSetup guides the user through config creation step by step.
func runInteractiveSetup() error {
	reader := bufio.NewReader(os.Stdin)
	cfg := agent.DefaultConfig()

	fmt.Println()
	fmt.Println("╔══════════════════════════════════════════════╗")
	fmt.Println("║           LifeClaw - Setup Wizard            ║")
	fmt.Println("╚══════════════════════════════════════════════╝")
	fmt.Println()

	// ── Step 1: Assistant name ──
	fmt.Printf("1. Assistant name [%s]: ", cfg.Name)
	if name := readLine(reader); name != "" {
		cfg.Name = name
	}

	// ── Step 2: Timezone ──
	fmt.Printf("2. Timezone [%s]: ", cfg.Timezone)
	if tz := readLine(reader); tz != "" {
		if _, err := time.LoadLocation(tz); err != nil {
			fmt.Printf("   [!] Unknown timezone %q, keeping %s.\n", tz, cfg.Timezone)
		} else {
			cfg.Timezone = tz
		}
	}

	// ── Step 3: API provider ──
	fmt.Println()
	fmt.Println("   API endpoint (OpenAI-compatible):")
	fmt.Println()
	fmt.Printf("3. API base URL [%s]: ", cfg.API.BaseURL)
	if url := readLine(reader); url != "" {
		cfg.API.BaseURL = url
	}

	// ── Step 4: Model ──
	fmt.Printf("4. Model [%s]: ", cfg.API.Model)
	if model := readLine(reader); model != "" {
		cfg.API.Model = model
	}

	// ── Step 5: API key ──
	fmt.Println()
	apiKey, err := agent.ReadPassword("5. API key (hidden input, Enter to skip): ")
	if err != nil {
		fmt.Print("5. API key (or press Enter to skip): ")
		apiKey = readLine(reader)
	}
	if apiKey != "" {
		storeSecret(agent.KeyringAPIKey, "LIFECLAW_API_KEY", apiKey)
	} else {
		fmt.Println("   Skipped. Set LIFECLAW_API_KEY or OPENAI_API_KEY in the environment.")
	}
	// config.yaml never contains the real key.
	cfg.API.APIKey = "${LIFECLAW_API_KEY}"

	// ── Step 6: Telegram ──
	fmt.Println()
	fmt.Print("6. Enable the Telegram channel? (y/n) [n]: ")
	if answer := strings.ToLower(readLine(reader)); answer == "y" {
		cfg.Channels.Telegram.Enabled = true
		token, err := agent.ReadPassword("   Bot token from @BotFather (hidden input): ")
		if err != nil {
			fmt.Print("   Bot token: ")
			token = readLine(reader)
		}
		if token != "" {
			storeSecret(agent.KeyringTelegramToken, "TELEGRAM_BOT_TOKEN", token)
		}
		cfg.Channels.Telegram.Token = "${TELEGRAM_BOT_TOKEN}"
	}

	// ── Step 7: Discord ──
	fmt.Print("7. Enable the Discord channel? (y/n) [n]: ")
	if answer := strings.ToLower(readLine(reader)); answer == "y" {
		cfg.Channels.Discord.Enabled = true
		fmt.Println("   Set DISCORD_BOT_TOKEN in the environment or .env file.")
		cfg.Channels.Discord.Token = "${DISCORD_BOT_TOKEN}"
	}

	// ── Write config ──
	if err := agent.SaveConfigToFile(cfg, "config.yaml"); err != nil {
		return fmt.Errorf("writing config.yaml: %w", err)
	}

	fmt.Println()
	fmt.Println("config.yaml created.")
	fmt.Println("Start chatting with: lifeclaw chat")
	fmt.Println("Or run the daemon:   lifeclaw serve")
	return nil
}

// storeSecret tries the OS keyring and falls back to suggesting an env var.
func storeSecret(keyringKey, envVar, value string) {
	if err := agent.StoreKeyring(keyringKey, value); err != nil {
		fmt.Printf("   [!] Keyring unavailable (%v). Set %s in the environment instead.\n", err, envVar)
		return
	}
	fmt.Println("   Stored in the OS keyring.")
}

// readLine reads one trimmed line from stdin.
func readLine(reader *bufio.Reader) string {
	line, _ := reader.ReadString('\n')
	return strings.TrimSpace(line)
}
