package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"creatorhub/internal/export"
	"creatorhub/internal/generation"
	"creatorhub/internal/views"
	"creatorhub/pkg/domain"
)

// weekFlag parses --week as YYYY-MM-DD, defaulting to today.
func (rt *runtime) week(value string) (time.Time, error) {
	if value == "" {
		return views.StartOfDay(rt.now()), nil
	}
	t, err := time.ParseInLocation("2006-01-02", value, rt.now().Location())
	if err != nil {
		return time.Time{}, fmt.Errorf("--week: %w", err)
	}
	return t, nil
}

func newLoadCommand(rt *runtime) *cobra.Command {
	var week string
	cmd := &cobra.Command{
		Use:   "load",
		Short: "Show the weekly workload heatmap",
		RunE: func(cmd *cobra.Command, _ []string) error {
			start, err := rt.week(week)
			if err != nil {
				return err
			}
			renderWeek(cmd.OutOrStdout(), rt.app.Workspace.WeeklyLoad(start, rt.thresholds()))
			return nil
		},
	}
	cmd.Flags().StringVar(&week, "week", "", "first day of the week (YYYY-MM-DD)")
	return cmd
}

func newHealthCommand(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Score every company relationship and summarize the workload",
		RunE: func(cmd *cobra.Command, _ []string) error {
			renderHealth(cmd.OutOrStdout(), rt.app.Workspace.Health(rt.now()))
			return nil
		},
	}
}

func newRebalanceCommand(rt *runtime) *cobra.Command {
	var week string
	var apply bool
	cmd := &cobra.Command{
		Use:   "rebalance",
		Short: "Suggest moving low priority tasks off heavy days",
		RunE: func(cmd *cobra.Command, _ []string) error {
			start, err := rt.week(week)
			if err != nil {
				return err
			}
			ws := rt.app.Workspace
			if !apply {
				days := ws.WeeklyLoad(start, rt.thresholds())
				renderMoves(cmd.OutOrStdout(), views.SuggestRebalance(days, ws.Tasks.List(), rt.thresholds()))
				return nil
			}
			moves, err := ws.Rebalance(cmd.Context(), start, rt.thresholds())
			renderMoves(cmd.OutOrStdout(), moves)
			return err
		},
	}
	cmd.Flags().StringVar(&week, "week", "", "first day of the week (YYYY-MM-DD)")
	cmd.Flags().BoolVar(&apply, "apply", false, "move the tasks instead of only listing them")
	return cmd
}

func newPlanCommand(rt *runtime) *cobra.Command {
	var week, company string
	cmd := &cobra.Command{
		Use:   "plan <template.yaml>",
		Short: "Create a week of calendar events from a recurring content template",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			start, err := rt.week(week)
			if err != nil {
				return err
			}
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			tpl, err := views.ParseTemplate(data)
			if err != nil {
				return err
			}
			var c *domain.Company
			if company != "" {
				found, err := rt.company(company)
				if err != nil {
					return err
				}
				c = &found
			}
			created, err := rt.app.Workspace.ApplyTemplate(cmd.Context(), tpl, start, c)
			renderEvents(cmd.OutOrStdout(), created)
			return err
		},
	}
	cmd.Flags().StringVar(&week, "week", "", "first day of the week (YYYY-MM-DD)")
	cmd.Flags().StringVar(&company, "company", "", "link the events to this company (id or name)")
	return cmd
}

// company finds a company by id or by case-insensitive name.
func (rt *runtime) company(ref string) (domain.Company, error) {
	companies := rt.app.Workspace.Companies
	if c, ok := companies.Get(ref); ok {
		return c, nil
	}
	for _, c := range companies.List() {
		if strings.EqualFold(c.Name, ref) {
			return c, nil
		}
	}
	return domain.Company{}, fmt.Errorf("company %q not found", ref)
}

func newExportCommand(rt *runtime) *cobra.Command {
	var entities, formats []string
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write collections to the archive as JSON or CSV",
		RunE: func(cmd *cobra.Command, _ []string) error {
			req := export.Request{Source: export.FromWorkspace(rt.app.Workspace), RequestedBy: rt.user}
			for _, e := range entities {
				req.Entities = append(req.Entities, domain.EntityType(e))
			}
			for _, f := range formats {
				req.Formats = append(req.Formats, export.Format(f))
			}
			rec, err := rt.app.Exports.Enqueue(req)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			done, err := rt.app.Exports.Wait(ctx, rec.ID)
			if err != nil {
				return err
			}
			renderExport(cmd.OutOrStdout(), done)
			if done.Status == export.StatusFailed {
				return errors.New(done.Error)
			}
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&entities, "entities", nil, "collections to export (default all)")
	cmd.Flags().StringSliceVar(&formats, "formats", []string{"json"}, "json and/or csv")
	cmd.Flags().DurationVar(&timeout, "timeout", time.Minute, "how long to wait for the export")
	return cmd
}

func newGenerateCommand(rt *runtime) *cobra.Command {
	var kind, platform, tone, company string
	cmd := &cobra.Command{
		Use:   "generate <topic>",
		Short: "Draft a caption, script, hook or idea list and save it",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := generation.Request{
				Kind:     domain.GenerationKind(kind),
				Topic:    strings.Join(args, " "),
				Platform: platform,
				Tone:     tone,
			}
			if company != "" {
				c, err := rt.company(company)
				if err != nil {
					return err
				}
				req.Company = &c
			}
			g, err := rt.app.Generation.Generate(cmd.Context(), req)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), g.Output)
			fmt.Fprintln(cmd.OutOrStdout(), subtleStyle.Render("saved as "+g.ID+" ("+g.Model+")"))
			return nil
		},
	}
	cmd.Flags().StringVarP(&kind, "kind", "k", string(domain.GenerationCaption), "caption, script, hook or idea")
	cmd.Flags().StringVar(&platform, "platform", "", "target platform, e.g. instagram")
	cmd.Flags().StringVar(&tone, "tone", "", "tone of voice")
	cmd.Flags().StringVar(&company, "company", "", "brand to write for (id or name)")
	return cmd
}

func newActivityCommand(rt *runtime) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "activity",
		Short: "List recent changes, newest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			renderActivity(cmd.OutOrStdout(), rt.app.Workspace.Activity.Recent(limit))
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "entries to show")
	return cmd
}
