package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"wardan/internal/config"
)

const (
	configFormatJSON = "json"
	configFormatTOML = "toml"
)

func newConfigCommand(w commandWiring) *cobra.Command {
	var (
		defaults bool
		format   string
	)
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.Default()
			if !defaults {
				loaded, err := w.loadConfig()
				if err != nil {
					return err
				}
				cfg = loaded
			}
			var (
				out []byte
				err error
			)
			switch strings.ToLower(strings.TrimSpace(format)) {
			case configFormatTOML:
				out, err = cfg.Encode()
			case configFormatJSON:
				out, err = json.MarshalIndent(cfg, "", "  ")
				out = append(out, '\n')
			default:
				return fmt.Errorf("unsupported format %q (use json or toml)", format)
			}
			if err != nil {
				return err
			}
			_, err = w.stdout.Write(out)
			return err
		},
	}
	cmd.Flags().BoolVar(&defaults, "default", false, "print built-in defaults instead of the effective values")
	cmd.Flags().StringVar(&format, "format", configFormatTOML, "output format: toml|json")
	return cmd
}
