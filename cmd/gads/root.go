package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var (
	configPath string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "gads",
	Short: "Game development agent system",
	Long: `GADS routes game-development requests to specialised agents and keeps
the project state they work on in a persistent session.

Agents:
  architect      game concepts, system design, architecture
  designer       mechanics, levels, balancing
  developer_2d   2D features, scenes, scripts, debugging
  developer_3d   3D features, scenes, scripts, debugging
  art_director   visual style, asset specs, image prompts
  qa             testing, validation, review

With no arguments, starts an interactive chat on the most recent session.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runChat(cmd, args)
	},
}

// Execute runs the root command
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default: user and project config)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Override logging.level (debug, info, warn, error)")

	rootCmd.AddCommand(newCmd)
	rootCmd.AddCommand(iterateCmd)
	rootCmd.AddCommand(pipelineCmd)
	rootCmd.AddCommand(sessionsCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(mcpCmd)
	rootCmd.AddCommand(versionCmd)
}
