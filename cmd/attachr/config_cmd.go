package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"attachr/internal/config"
)

// configEntry is one effective setting. Secrets come back masked.
type configEntry struct {
	Key   string `json:"key" yaml:"key"`
	Value string `json:"value" yaml:"value"`
}

func newConfigCmd(cfg *config.Config, flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or change uploader settings",
	}

	cmd.AddCommand(
		newConfigGetCmd(cfg, flags),
		newConfigListCmd(cfg, flags),
		newConfigSetCmd(flags),
	)
	return cmd
}

func newConfigGetCmd(cfg *config.Config, flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Print the effective value of one setting",
		Args:  exactArgs(1, "config key is required"),
		RunE: func(cmd *cobra.Command, args []string) error {
			entry, err := lookupConfig(cfg, args[0])
			if err != nil {
				return err
			}
			if flags.structured() {
				return writeStructured(entry)
			}
			return writePlain("%s\n", entry.Value)
		},
	}
}

func newConfigListCmd(cfg *config.Config, flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Print every setting after files and env overrides are applied",
		Args:  noArgs("config list"),
		RunE: func(cmd *cobra.Command, args []string) error {
			keys := config.AllowedKeys()
			entries := make([]configEntry, 0, len(keys))
			for _, key := range keys {
				entry, err := lookupConfig(cfg, key)
				if err != nil {
					return err
				}
				entries = append(entries, entry)
			}
			if flags.structured() {
				return writeStructured(entries)
			}
			for _, entry := range entries {
				if err := writePlain("%s = %s\n", entry.Key, entry.Value); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func newConfigSetCmd(flags *globalFlags) *cobra.Command {
	var global bool

	cmd := &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Write a setting to the project or global config file",
		Args:  exactArgs(2, "config key and value are required"),
		RunE: func(cmd *cobra.Command, args []string) error {
			pathFn := config.ProjectPath
			if global {
				pathFn = config.GlobalPath
			}
			path, err := pathFn()
			if err != nil {
				return err
			}
			if err := config.SetKey(path, args[0], args[1]); err != nil {
				return err
			}
			if flags.structured() {
				return nil
			}
			return writePlain("%s written to %s\n", args[0], path)
		},
	}

	cmd.Flags().BoolVar(&global, "global", false, "write to the global config (~/.attachr.toml)")
	return cmd
}

func lookupConfig(cfg *config.Config, key string) (configEntry, error) {
	if !config.IsAllowedKey(key) {
		return configEntry{}, fmt.Errorf("unknown key: %s (allowed: %v)", key, config.AllowedKeys())
	}
	value, err := cfg.Get(key)
	if err != nil {
		return configEntry{}, err
	}
	return configEntry{Key: key, Value: value}, nil
}
