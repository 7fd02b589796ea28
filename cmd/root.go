// file: cmd/root.go
// version: 2.0.0
// guid: 6d37b575-ef1f-4ed3-b3b6-519b2111abd6

package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/jdfalk/album-enricher/internal/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "album-enricher",
	Short: "Enrich a music library with Last.fm album metadata",
	Long: `Album Enricher scans a music library, identifies each album from its
track tags (falling back to folder names), and fetches descriptions,
release dates, tags, artwork and MusicBrainz IDs from Last.fm.

Albums are only looked up again when their tracks change or their last
lookup is older than refresh.max_age.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Assigned here rather than in the literal to avoid an initialization
	// cycle (rootCmd -> bindFlags -> rootCmd).
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		bindFlags(cmd)
		initConfig()
		return config.InitConfig()
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is $HOME/.album-enricher.yaml)")
	flags.String("dir", "", "music library root directory")
	flags.String("db", "album-enricher.pebble", "path to the state database")
	flags.String("db-type", "pebble", "database type: pebble (default), sqlite or memory")
	flags.String("log-level", "info", "log level: debug, info, warn, error")
	flags.String("log-format", "text", "log format: text or json")
	flags.Bool("save-local-meta", false, "write lastfmalbum.json into each matched album folder")

	rootCmd.AddCommand(refreshCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(configCmd)
}

// persistentBindings maps root flags to config keys.
var persistentBindings = map[string]string{
	"library.root":    "dir",
	"database.path":   "db",
	"database.type":   "db-type",
	"log.level":       "log-level",
	"log.format":      "log-format",
	"save_local_meta": "save-local-meta",
}

// bindFlags binds root flags and the flags of cmd to viper keys. It runs on
// every invocation so bindings survive viper.Reset.
func bindFlags(cmd *cobra.Command) {
	for key, flag := range persistentBindings {
		_ = viper.BindPFlag(key, rootCmd.PersistentFlags().Lookup(flag))
	}
	if b, ok := commandBindings[cmd]; ok {
		for key, flag := range b {
			_ = viper.BindPFlag(key, cmd.Flags().Lookup(flag))
		}
	}
}

// commandBindings maps per-command flags to config keys.
var commandBindings = map[*cobra.Command]map[string]string{}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else if home, err := os.UserHomeDir(); err == nil {
		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".album-enricher")
	}

	config.BindEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}

	// Ensure database directory exists
	if dbPath := viper.GetString("database.path"); dbPath != "" {
		if dbDir := filepath.Dir(dbPath); dbDir != "." {
			if err := os.MkdirAll(dbDir, 0o755); err != nil {
				fmt.Fprintf(os.Stderr, "Error creating database directory: %v\n", err)
			}
		}
	}
}
