package cmd

import (
	"fmt"

	cfgpkg "github.com/KaramelBytes/geoagg-cli/internal/config"
	"github.com/KaramelBytes/geoagg-cli/internal/pipeline"
	"github.com/spf13/cobra"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or set geoagg configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg == nil {
			fmt.Fprintln(cmd.OutOrStdout(), "No config loaded")
			return nil
		}
		out := cmd.OutOrStdout()
		for _, k := range cfgpkg.Keys {
			v, err := cfg.Get(k)
			if err != nil {
				return err
			}
			if v == "" {
				continue
			}
			fmt.Fprintf(out, "%s: %s\n", k, v)
		}
		for _, s := range cfg.Sources {
			fmt.Fprintf(out, "source: %d=%s\n", s.Year, s.Path)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a config value and save to disk",
	Long: `Set a config value and save to disk.

The key "source" takes YEAR=PATH and adds or replaces that year's input file.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, val := args[0], args[1]
		if cfg == nil {
			c, err := cfgpkg.Load(cfgFile)
			if err != nil {
				return err
			}
			cfg = c
		}
		if key == "source" {
			src, err := pipeline.ParseSource(val)
			if err != nil {
				return err
			}
			setSource(cfg, cfgpkg.Source{Year: src.Year, Path: src.Path})
		} else if err := cfg.Set(key, val); err != nil {
			return err
		}
		if err := cfgpkg.Save(cfg, cfgFile); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "✓ Saved config")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}

func setSource(c *cfgpkg.Global, s cfgpkg.Source) {
	for i := range c.Sources {
		if c.Sources[i].Year == s.Year {
			c.Sources[i] = s
			return
		}
	}
	c.Sources = append(c.Sources, s)
}
