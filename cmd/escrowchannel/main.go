package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stellar/escrowchannel/logger"
	"go.uber.org/zap"
)

var (
	rootLog = zap.NewNop().Sugar()
	log     = rootLog
)

func newRootCmd() *cobra.Command {
	var configFile string

	rootCmd := &cobra.Command{
		Use:           "escrowchannel",
		Short:         "runs and uses two-party escrowed payment channels",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := viper.BindPFlags(cmd.Flags()); err != nil {
				return err
			}
			if err := initConfig(configFile); err != nil {
				return err
			}
			l, err := logger.New(viper.GetString("log-level"))
			if err != nil {
				return err
			}
			rootLog = l
			log = l.Named("cli")
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("program-id", "escrowchannel", "program ID that instructions are bound to")
	rootCmd.PersistentFlags().String("server", "http://localhost:8080", "URL of a running escrowchannel server")

	rootCmd.AddCommand(
		newServeCmd(),
		newKeygenCmd(),
		newInstructionCmd(),
		newSignCmd(),
		newSubmitCmd(),
		newChannelCmd(),
		newIdentityCmd(),
		newEscrowCmd(),
		newSnapshotCmd(),
	)
	return rootCmd
}

func initConfig(configFile string) error {
	viper.SetEnvPrefix("ESCROW")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	if configFile == "" {
		return nil
	}
	viper.SetConfigFile(configFile)
	if err := viper.ReadInConfig(); err != nil {
		return fmt.Errorf("reading config file %s: %w", configFile, err)
	}
	return nil
}

func main() {
	err := newRootCmd().Execute()
	_ = rootLog.Sync()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
