package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"pkt.systems/ayen/internal/appconfig"
	"pkt.systems/ayen/internal/shield"
	"pkt.systems/pslog"
)

func newShieldCmd() *cobra.Command {
	var cfgPath string
	var refresh bool
	cmd := &cobra.Command{
		Use:   "shield",
		Short: "Inspect the request filter",
	}
	cmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "path to config file")
	cmd.PersistentFlags().BoolVar(&refresh, "refresh", false, "fetch remote filter lists first")

	load := func(cmd *cobra.Command) (*shield.Shield, error) {
		cfg, err := appconfig.Load(cfgPath)
		if err != nil {
			return nil, err
		}
		sh, err := shield.New(toShieldConfig(cfg.Shield, pslog.Ctx(cmd.Context())))
		if err != nil {
			return nil, err
		}
		if refresh {
			if err := sh.Refresh(cmd.Context()); err != nil {
				return nil, err
			}
		}
		return sh, nil
	}

	stats := &cobra.Command{
		Use:   "stats",
		Short: "Print rule and list counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			start := time.Now()
			sh, err := load(cmd)
			if err != nil {
				return err
			}
			s := sh.Stats()
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "rules\t%d\nlists\t%d\nrefreshed\t%t\nload_ms\t%d\n", s.Rules, s.Lists, s.Refreshed, time.Since(start).Milliseconds())
			return err
		},
	}

	var source string
	var resourceType string
	check := &cobra.Command{
		Use:   "check <url>",
		Short: "Report whether a request would be blocked",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sh, err := load(cmd)
			if err != nil {
				return err
			}
			verdict := "allow"
			if sh.Match(args[0], source, resourceType) {
				verdict = "block"
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", verdict, args[0])
			return err
		},
	}
	check.Flags().StringVar(&source, "source", "", "URL of the page issuing the request")
	check.Flags().StringVar(&resourceType, "type", "", "resource type (Script, Image, XHR, ...)")

	cmd.AddCommand(stats, check)
	return cmd
}
