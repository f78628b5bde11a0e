package main

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/hupe1980/agentcoord/coordinator"
	"github.com/hupe1980/agentcoord/core"
	"github.com/hupe1980/agentcoord/registry"
	"github.com/hupe1980/agentcoord/registry/sqlite"
	"github.com/hupe1980/agentcoord/selection"
)

func newMigrateCmd(c *cli) *cobra.Command {
	var seed bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations and seed the default agents",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			store, err := sqlite.Open(cmd.Context(), &sqlite.Config{Path: cfg.Store.SQLitePath, Lenient: cfg.Store.Lenient})
			if err != nil {
				return err
			}
			defer store.Close()

			n := 0
			if seed {
				if n, err = registry.Seed(cmd.Context(), store, store); err != nil {
					return err
				}
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "migrated %s, seeded %d agents\n", cfg.Store.SQLitePath, n)
			return err
		},
	}
	cmd.Flags().BoolVar(&seed, "seed", true, "register missing default agents")
	return cmd
}

func newAgentsCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "agents",
		Short: "Inspect the agent registry",
	}

	var (
		capability string
		agentType  string
		all        bool
		asJSON     bool
	)
	list := &cobra.Command{
		Use:   "list",
		Short: "List registered agents",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withApp(cmd, func(ctx context.Context, a *app) error {
				agents, err := a.registry.ListAgents(ctx, core.AgentFilter{
					Type:            agentType,
					Capability:      core.Capability(capability),
					IncludeInactive: all,
				})
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd.OutOrStdout(), agents)
				}

				w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
				fmt.Fprintln(w, "ID\tTYPE\tSTATUS\tCAPABILITIES")
				for _, ag := range agents {
					fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", ag.ID, ag.Type, ag.Status, strings.Join(ag.Capabilities.Strings(), ","))
				}
				return w.Flush()
			})
		},
	}
	list.Flags().StringVar(&capability, "capability", "", "only agents with this capability")
	list.Flags().StringVar(&agentType, "type", "", "only agents of this type")
	list.Flags().BoolVar(&all, "all", false, "include inactive agents")
	list.Flags().BoolVar(&asJSON, "json", false, "print JSON")

	cmd.AddCommand(list)
	return cmd
}

func newClassifyCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "classify <task>",
		Short: "Rate the complexity of a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(cmd, func(ctx context.Context, a *app) error {
				complexity := a.selector.Classifier().Classify(ctx, args[0])
				path := "llm"
				if selection.UseDatabase(complexity, a.cfg.Threshold()) {
					path = "database"
				}
				_, err := fmt.Fprintf(cmd.OutOrStdout(), "complexity: %s\nhybrid path: %s\n", complexity, path)
				return err
			})
		},
	}
}

func newSelectCmd(c *cli) *cobra.Command {
	var (
		capability string
		mode       string
		userID     int64
	)
	cmd := &cobra.Command{
		Use:   "select <task>",
		Short: "Select agents for a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withApp(cmd, func(ctx context.Context, a *app) error {
				req := core.TaskRequirements{Description: args[0], Capability: core.Capability(capability)}
				var (
					sel *core.AgentSelection
					err error
				)
				if mode != "" {
					m, perr := core.ParseSelectionMode(mode)
					if perr != nil {
						return perr
					}
					sel, err = a.selector.SelectWithMode(ctx, m, req)
				} else {
					sel, err = a.coordinator.GetAvailableAgents(ctx, userID, req)
				}
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), sel)
			})
		},
	}
	cmd.Flags().StringVar(&capability, "capability", "", "capability hint")
	cmd.Flags().StringVar(&mode, "mode", "", "override the configured mode (database, llm, hybrid)")
	cmd.Flags().Int64Var(&userID, "user", 1, "requesting user id")
	return cmd
}

func newRecommendCmd(c *cli) *cobra.Command {
	var req coordinator.RecommendRequest
	var capability string
	cmd := &cobra.Command{
		Use:   "recommend",
		Short: "Run the advisor agents on a task and coordinate their answers",
		RunE: func(cmd *cobra.Command, _ []string) error {
			req.Capability = core.Capability(capability)
			return c.withApp(cmd, func(ctx context.Context, a *app) error {
				rec, err := a.coordinator.Recommend(ctx, req)
				if rec != nil {
					if werr := writeJSON(cmd.OutOrStdout(), rec); werr != nil {
						return werr
					}
				}
				return err
			})
		},
	}
	cmd.Flags().Int64Var(&req.UserID, "user", 0, "requesting user id")
	cmd.Flags().StringVar(&req.Task, "task", "", "task description")
	cmd.Flags().StringVar(&req.TaskType, "task-type", "", "session task type")
	cmd.Flags().StringVar(&capability, "capability", "", "capability to select by first")
	cmd.Flags().StringSliceVar(&req.GatherTools, "tool", nil, "tools to gather context with before the agents run")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("task")
	return cmd
}
