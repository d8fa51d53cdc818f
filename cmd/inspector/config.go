package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/panbanda/inspector/internal/output"
	"github.com/panbanda/inspector/pkg/config"
	"github.com/pelletier/go-toml"
	"github.com/urfave/cli/v2"
)

func configCmd() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Configuration management commands",
		Subcommands: []*cli.Command{
			{
				Name:      "init",
				Usage:     "Write the default configuration to a TOML file",
				ArgsUsage: "[dir]",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "force",
						Usage: "Overwrite an existing config file",
					},
				},
				Action: runConfigInit,
			},
			{
				Name:  "show",
				Usage: "Show the effective configuration",
				Description: `Shows the configuration from defaults, the config file and flags.

Examples:
  inspector config show                    # Show effective config
  inspector -c inspector.toml config show  # Show config from specific file`,
				Action: runConfigShow,
			},
			{
				Name:   "validate",
				Usage:  "Validate a configuration file",
				Action: runConfigValidate,
			},
		},
	}
}

// messages writes status lines to w.
func messages(c *cli.Context, w io.Writer) *output.Formatter {
	return output.NewWriterFormatter(output.FormatText, w, !c.Bool("no-color"))
}

func runConfigInit(c *cli.Context) error {
	path := filepath.Join(getPath(c), config.ConfigNames[0])
	if _, err := os.Stat(path); err == nil && !c.Bool("force") {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	} else if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}

	content, err := toml.Marshal(config.DefaultConfig())
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	messages(c, c.App.Writer).Success("Created %s", path)
	return nil
}

func runConfigShow(c *cli.Context) error {
	cfg, source, err := loadConfig(c)
	if err != nil {
		return err
	}

	if source != "" {
		fmt.Fprintf(c.App.Writer, "# Configuration from: %s\n\n", source)
	} else {
		fmt.Fprintln(c.App.Writer, "# Default configuration (no config file found)")
	}

	content, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	_, err = c.App.Writer.Write(content)
	return err
}

func runConfigValidate(c *cli.Context) error {
	_, source, err := loadConfig(c)
	if err != nil {
		messages(c, c.App.ErrWriter).Error("Configuration validation failed:")
		return err
	}

	if source != "" {
		messages(c, c.App.Writer).Success("Configuration valid: %s", source)
	} else {
		messages(c, c.App.Writer).Warning("No config file found. Default configuration is valid.")
	}
	return nil
}
