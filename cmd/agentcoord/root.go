package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/hupe1980/agentcoord/config"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

type cli struct {
	configPath  string
	showMetrics bool
	deps        wireDeps
}

func newRootCmd(deps wireDeps) *cobra.Command {
	c := &cli{deps: deps}

	rootCmd := &cobra.Command{
		Use:           "agentcoord",
		Short:         "Coordinate influencer marketing advisor agents",
		Long:          "agentcoord selects advisor agents for a task, runs them on their context and tools, and coordinates handoffs and conflicts within a session.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	rootCmd.PersistentFlags().StringVar(&c.configPath, "config", "", "path to a YAML config file")
	rootCmd.PersistentFlags().BoolVar(&c.showMetrics, "metrics", false, "print collected metrics to stderr on exit")

	rootCmd.AddCommand(
		newVersionCmd(),
		newMigrateCmd(c),
		newAgentsCmd(c),
		newClassifyCmd(c),
		newSelectCmd(c),
		newRecommendCmd(c),
	)
	return rootCmd
}

func (c *cli) loadConfig() (*config.Config, error) {
	return config.Load(c.configPath)
}

// withApp wires the application for one command and closes it afterwards.
func (c *cli) withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app) error) error {
	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}
	a, err := wireApp(cmd.Context(), cfg, cmd.ErrOrStderr(), c.deps)
	if err != nil {
		return err
	}
	defer a.Close()

	err = fn(cmd.Context(), a)
	if c.showMetrics {
		if merr := writeMetrics(cmd.ErrOrStderr(), a.gatherer); merr != nil && err == nil {
			err = merr
		}
	}
	return err
}

// writeMetrics prints one line per sample; histograms report their count.
func writeMetrics(w io.Writer, g prometheus.Gatherer) error {
	families, err := g.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			labels := make([]string, 0, len(m.GetLabel()))
			for _, lp := range m.GetLabel() {
				labels = append(labels, lp.GetName()+"="+lp.GetValue())
			}
			var v float64
			switch {
			case m.GetCounter() != nil:
				v = m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				v = m.GetGauge().GetValue()
			case m.GetHistogram() != nil:
				v = float64(m.GetHistogram().GetSampleCount())
			default:
				continue
			}
			if _, err := fmt.Fprintf(w, "%s{%s} %g\n", mf.GetName(), strings.Join(labels, ","), v); err != nil {
				return err
			}
		}
	}
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), version)
			return err
		},
	}
}
