// Package main is the CLI entry point for parentguard.
package main

import (
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/eliteGoblin/focusd/parentguard/internal/config"
)

var (
	// Version info (set via ldflags)
	Version   = "0.1.0"
	Commit    = "dev"
	BuildTime = "unknown"
)

var (
	v          = config.New()
	cfg        *config.Config
	configFile string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "parentguard",
	Short: "Parental-control enforcement agent",
	Long: `parentguard enforces a parental-control policy on this device.
It terminates blocked applications, blocks domains through the hosts
file, keeps a daily screen-time budget and cuts the network outside
permitted time windows.

Run 'parentguard run' as root (or an administrator) to start the agent;
the other commands talk to the running agent over its local API.`,
	Version:           Version,
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configFile, "config", "", "config file (default: search /etc/parentguard, data dir, .)")
	flags.String("addr", config.DefaultAPIAddr, "agent API address")
	flags.String("pin", "", "admin PIN for commands that change enforcement")

	_ = v.BindPFlag("api.addr", flags.Lookup("addr"))
	_ = v.BindPFlag("pin", flags.Lookup("pin"))
}

func loadConfig(cmd *cobra.Command, _ []string) error {
	c, err := config.Load(v, configFile)
	if err != nil {
		return err
	}
	cfg = c
	return nil
}

// newLogger writes JSON logs to log.file, or stderr when unset.
func newLogger(lc config.LogConfig) *zap.Logger {
	zc := zap.NewProductionConfig()
	if lc.File != "" {
		zc.OutputPaths = []string{lc.File}
		zc.ErrorOutputPaths = []string{lc.File}
	}
	zc.EncoderConfig.TimeKey = "time"
	zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if level, err := zapcore.ParseLevel(lc.Level); err == nil {
		zc.Level = zap.NewAtomicLevelAt(level)
	}

	logger, err := zc.Build()
	if err != nil {
		// Fallback to stderr if file logging fails
		logger, _ = zap.NewProduction()
		logger.Warn("failed to build configured logger", zap.Error(err))
	}
	return logger
}
