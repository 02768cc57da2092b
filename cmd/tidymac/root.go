package main

import (
	"github.com/jamesainslie/tidymac/pkg/tidymac/config"
	"github.com/jamesainslie/tidymac/pkg/tidymac/engine"
	"github.com/jamesainslie/tidymac/pkg/tidymac/logging"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:   "tidymac",
	Short: "Reclaim disk space safely",
	Long: `TidyMac discovers, classifies, and removes unwanted files: caches,
logs, developer build artifacts, and duplicates. Soft-mode removals go
to a reversible staging area with a seven-day undo window; without
--mode, clean only previews.

Examples:
  tidymac scan                       # Scan with the quick profile
  tidymac scan -p developer          # Scan developer caches
  tidymac clean -p developer --mode soft  # Reversible clean (soft mode)
  tidymac clean --mode hard --yes    # Permanent removal
  tidymac dups ~/Pictures --images   # Find duplicates and similar images
  tidymac sessions restore <id>      # Undo a soft clean`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringP("profile", "p", "", "cleanup profile (quick, developer, creative, deep, or custom)")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "output JSON")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "debug logging")

	_ = viper.BindPFlag("profile", rootCmd.PersistentFlags().Lookup("profile"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
}

// initConfig initializes logging from the engine configuration.
func initConfig() {
	cfg, err := config.Load()
	if err != nil {
		return
	}

	level := cfg.Logging.Level
	if viper.GetBool("verbose") {
		level = "debug"
	}
	_ = logging.Init(logging.Config{
		Level:      level,
		Path:       cfg.Logging.Path,
		Rotation:   logging.DefaultRotationConfig(),
		Components: cfg.Logging.Components,
	})
}

// Execute runs the root command.
func Execute() error {
	defer func() { _ = logging.Close() }()
	return rootCmd.Execute()
}

// newEngine constructs the engine shared by all commands.
func newEngine() (*engine.Engine, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := config.WriteDefault(); err != nil {
		return nil, err
	}

	return engine.New(engine.Options{Config: cfg})
}

// profileFlag resolves the active profile name.
func profileFlag() string {
	return viper.GetString("profile")
}

// jsonOutput reports whether --json was requested.
func jsonOutput() bool {
	return viper.GetBool("json")
}
