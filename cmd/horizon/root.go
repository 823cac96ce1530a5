// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package main

import (
	"errors"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/sigil-dev/horizon/internal/config"
	hzerr "github.com/sigil-dev/horizon/pkg/errors"
)

// NewRootCmd creates the root horizon command with all subcommands registered.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "horizon",
		Short:         "Horizon: context windows from tiered memory",
		Long:          "Horizon assembles a bounded, ranked context window for an assistant from facts, profile, tasks and conversation history.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return initViper(cmd)
		},
	}

	// Global flags, mapped to viper keys in initViper.
	root.PersistentFlags().StringP("config", "c", "", "path to config file")
	root.PersistentFlags().String("data-dir", "", "path to data directory")
	root.PersistentFlags().BoolP("verbose", "v", false, "enable verbose output")
	root.PersistentFlags().String("address", "", "server address (host:port); defaults to networking.listen")

	root.AddCommand(
		newStartCmd(),
		newContextCmd(),
		newFactCmd(),
		newStatusCmd(),
		newDoctorCmd(),
		newVersionCmd(),
	)

	return root
}

// initViper sets up the global Viper with defaults, env bindings, flag
// bindings, and optional config file so the standard precedence
// (flag > env > file > defaults) is handled uniformly.
func initViper(cmd *cobra.Command) error {
	v := viper.GetViper()

	config.SetDefaults(v)
	config.SetupEnv(v)

	if cfgFile, _ := cmd.Flags().GetString("config"); cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return hzerr.Errorf(hzerr.CodeConfigLoadReadFailure, "reading config file: %w", err)
		}
	} else {
		// SetConfigType is omitted so viper never matches a bare ./horizon binary.
		v.SetConfigName("horizon")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/horizon")
		v.AddConfigPath("/etc/horizon")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return hzerr.Errorf(hzerr.CodeConfigLoadReadFailure, "reading config: %w", err)
			}
			if err := bootstrapConfig(v); err != nil {
				return err
			}
		}
	}

	if used := v.ConfigFileUsed(); used != "" {
		config.WarnInsecurePermissions(used)
	}

	if err := v.BindPFlag("storage.data_dir", cmd.Root().PersistentFlags().Lookup("data-dir")); err != nil {
		return hzerr.Errorf(hzerr.CodeCLISetupFailure, "binding data-dir flag: %w", err)
	}
	if err := v.BindPFlag("verbose", cmd.Root().PersistentFlags().Lookup("verbose")); err != nil {
		return hzerr.Errorf(hzerr.CodeCLISetupFailure, "binding verbose flag: %w", err)
	}

	return nil
}

// bootstrapConfig writes the commented default config to
// ~/.config/horizon/ when no config exists anywhere, then reads it.
func bootstrapConfig(v *viper.Viper) error {
	path, err := config.DefaultConfigPath()
	if err != nil {
		return nil
	}
	if path = config.BootstrapConfig(path); path == "" {
		return nil
	}
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return hzerr.Errorf(hzerr.CodeConfigLoadReadFailure, "reading bootstrapped config: %w", err)
	}
	return nil
}

// serverAddress is the --address flag, else the configured listen address.
func serverAddress(cmd *cobra.Command) string {
	if addr, _ := cmd.Flags().GetString("address"); addr != "" {
		return addr
	}
	return viper.GetString("networking.listen")
}
