package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hazyhaar/pdfbundle/bundle"
)

func newValidateCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check the configuration and watermark resources without touching any file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			p, err := bundle.New(*cfg)
			if err != nil {
				return err
			}
			c := p.Config()
			fmt.Fprintf(cmd.OutOrStdout(), "config ok: %d types, z-order %s, %d worker(s)\nmerge order: %s\n",
				len(c.Types), c.ZOrder, c.Workers, strings.Join(c.MergeOrder, ", "))
			return nil
		},
	}
	configFlag(cmd, &configPath)
	return cmd
}
