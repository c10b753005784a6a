package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mrgbiryu-cyber/maestro/pkg/config"
	"github.com/mrgbiryu-cyber/maestro/pkg/logger"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "maestro",
	Short: "Chat client for the maestro project-management backend",
	Long: `Maestro streams master-agent conversations from the backend,
tracks conversation mode and the ready-to-start task gate, and follows
live execution logs once a workflow is confirmed.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.Init(cfgFile); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}
		if err := logger.Init(); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default is .maestro/settings.yaml)")

	rootCmd.PersistentFlags().StringP("server", "s", "http://localhost:8002/api/v1", "backend base URL")
	viper.BindPFlag("server.url", rootCmd.PersistentFlags().Lookup("server"))

	rootCmd.PersistentFlags().StringP("token", "t", "", "bearer token for the backend")
	viper.BindPFlag("server.token", rootCmd.PersistentFlags().Lookup("token"))

	rootCmd.PersistentFlags().StringP("project", "P", "", "active project id")
	viper.BindPFlag("project.id", rootCmd.PersistentFlags().Lookup("project"))

	rootCmd.PersistentFlags().String("thread", "", "conversation thread id")
	viper.BindPFlag("project.thread", rootCmd.PersistentFlags().Lookup("thread"))

	rootCmd.PersistentFlags().StringP("log-level", "l", "info", "log level")
	viper.BindPFlag("logging.level", rootCmd.PersistentFlags().Lookup("log-level"))
}
