package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	goPrereg "github.com/MrEthical07/goPrereg"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	configPath string
	envFile    string
	serverURL  string
	redisAddr  string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:           "prereg",
		Short:         "Pre-registration email verification",
		Long:          "Command-line driver for the email-verification-gated pre-registration flow",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "Path to a YAML config file")
	flags.StringVar(&opts.envFile, "env-file", ".env", "Dotenv file with PREREG_* variables")
	flags.StringVar(&opts.serverURL, "server", "", "Verification backend base URL")
	flags.StringVar(&opts.redisAddr, "redis-addr", "", "Redis address for the dispatch limit; in-memory when empty")
	flags.StringVar(&opts.logLevel, "log-level", "", "Log level (debug, info, warn, error)")

	rootCmd.AddCommand(newRunCmd(opts), newConfigCmd(opts))
	return rootCmd
}

// resolveConfig layers defaults, the config file or environment, and flags.
func (o *rootOptions) resolveConfig(cmd *cobra.Command) (goPrereg.Config, error) {
	var (
		cfg goPrereg.Config
		err error
	)

	if o.configPath != "" {
		cfg, err = goPrereg.LoadConfigFile(o.configPath)
		if err != nil {
			return goPrereg.Config{}, err
		}
		if o.envFile != "" {
			if err := godotenv.Load(o.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
				return goPrereg.Config{}, fmt.Errorf("load %s: %w", o.envFile, err)
			}
		}
		if err := goPrereg.ApplyEnv(&cfg, os.LookupEnv); err != nil {
			return goPrereg.Config{}, err
		}
	} else {
		var files []string
		if o.envFile != "" {
			files = append(files, o.envFile)
		}
		cfg, err = goPrereg.LoadConfigFromEnv(files...)
		if err != nil {
			return goPrereg.Config{}, err
		}
	}

	if cmd.Flags().Changed("server") {
		cfg.Backend.BaseURL = o.serverURL
	}
	if cmd.Flags().Changed("log-level") {
		cfg.Log.Level = o.logLevel
	}

	if err := cfg.Validate(); err != nil {
		return goPrereg.Config{}, err
	}
	return cfg, nil
}
