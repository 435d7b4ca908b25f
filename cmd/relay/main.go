// Command sudokucon-relay joins a shared puzzle room on the user's behalf
// and mirrors it into a private channel where the user keeps their own
// selection.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/DoyleJ11/sudokucon-relay/internal/config"
)

var (
	// Global flags
	verbose    bool
	configPath string
	envFile    string

	// Overrides, applied only when set on the command line
	addr      string
	baseURL   string
	roomID    string
	userName  string
	userColor string
	userID    string
	noSeed    bool

	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "sudokucon-relay",
	Short: "Relay a shared puzzle room into a private view",
	Long: `sudokucon-relay connects to a shared puzzle room and to a private channel
for the same puzzle. Edits flow both ways; each side keeps its own cell
selection.

Run without a subcommand to start the relay server.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg := zap.NewProductionConfig()
		if verbose {
			cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = cfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: runServe,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	pf.StringVar(&configPath, "config", "relay.yaml", "YAML config file (optional)")
	pf.StringVar(&envFile, "env-file", ".env", "dotenv file (optional)")
	pf.StringVar(&baseURL, "base-url", "", "puzzle host base URL")

	for _, cmd := range []*cobra.Command{rootCmd, serveCmd} {
		f := cmd.Flags()
		f.StringVar(&addr, "addr", "", "HTTP listen address")
		f.StringVar(&roomID, "room", "", "room to join at startup")
		f.StringVar(&userName, "name", "", "display name")
		f.StringVar(&userColor, "color", "", "pointer color")
		f.StringVar(&userID, "user-id", "", "user id (random when empty)")
		f.BoolVar(&noSeed, "no-seed", false, "do not upload blank puzzles before connecting")
	}

	rootCmd.AddCommand(serveCmd, uploadCmd)
}

// loadConfig layers command line flags over the file and environment.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(configPath, envFile)
	if err != nil {
		return nil, err
	}
	flags := cmd.Flags()
	set := func(name string, dst *string, v string) {
		if flags.Changed(name) {
			*dst = v
		}
	}
	set("addr", &cfg.Addr, addr)
	set("base-url", &cfg.BaseURL, baseURL)
	set("room", &cfg.RoomID, roomID)
	set("name", &cfg.User.Name, userName)
	set("color", &cfg.User.Color, userColor)
	set("user-id", &cfg.User.ID, userID)
	if flags.Changed("no-seed") {
		cfg.SeedPuzzles = !noSeed
	}
	return cfg, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
