package main

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	configPath string
	rootCmd    = &cobra.Command{
		Use:           "greetings",
		Short:         "Send festival greetings across chains over CCIP",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yml", "path to the yaml config file")
	rootCmd.AddCommand(serveCmd, sendCmd, lastCmd, reprocessCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		newLogger().WithError(err).Error("command failed")
		os.Exit(1)
	}
}
