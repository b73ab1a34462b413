// Package cli implements the creatorhub command line.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"creatorhub/internal/config"
	"creatorhub/internal/injector"
	"creatorhub/internal/views"
)

// runtime carries flag values and the assembled app between the cobra hooks
// and the commands.
type runtime struct {
	configPath string
	user       string
	demo       bool

	out     io.Writer
	now     func() time.Time
	app     *injector.App
	cleanup func()
}

func (rt *runtime) thresholds() views.Thresholds {
	l := rt.app.Config.Load
	return views.Thresholds{Light: l.Light, Moderate: l.Moderate}
}

// start loads config, builds the app and signs in the selected creator.
func (rt *runtime) start(ctx context.Context) error {
	cfg, err := config.Load(rt.configPath)
	if err != nil {
		return err
	}
	app, cleanup, err := injector.InitializeApp(ctx, cfg)
	if err != nil {
		return err
	}
	rt.app, rt.cleanup = app, cleanup
	if rt.user == "" {
		return errors.New("--user is required")
	}
	if err := app.Session.Login(ctx, rt.user); err != nil {
		return fmt.Errorf("sign in %s: %w", rt.user, err)
	}
	if rt.demo {
		app.Workspace.LoadDemo(rt.user, rt.now())
	}
	return nil
}

func (rt *runtime) close() {
	if rt.cleanup != nil {
		rt.cleanup()
		rt.cleanup = nil
	}
	if rt.app != nil {
		_ = rt.app.Logger.Sync()
	}
}

func newRootCommand(rt *runtime) *cobra.Command {
	root := &cobra.Command{
		Use:           "creatorhub",
		Short:         "Plan, track and draft content for creators and the brands they work with",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "help" || (cmd.HasParent() && cmd.Parent().Name() == "completion") {
				return nil
			}
			return rt.start(cmd.Context())
		},
	}
	root.SetOut(rt.out)
	root.SetErr(rt.out)

	f := root.PersistentFlags()
	f.StringVarP(&rt.configPath, "config", "c", "creatorhub.yaml", "config file; missing files use defaults")
	f.StringVarP(&rt.user, "user", "u", os.Getenv("CREATORHUB_USER"), "creator id to act as")
	f.BoolVar(&rt.demo, "demo", false, "load the demo data set instead of stored data (nothing is saved)")

	root.AddCommand(
		newLoadCommand(rt),
		newHealthCommand(rt),
		newRebalanceCommand(rt),
		newPlanCommand(rt),
		newExportCommand(rt),
		newGenerateCommand(rt),
		newActivityCommand(rt),
		newServeCommand(rt),
	)
	return root
}

func run(ctx context.Context, args []string, out io.Writer, now func() time.Time) error {
	rt := &runtime{out: out, now: now}
	defer rt.close()
	root := newRootCommand(rt)
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

// Execute runs the command line and returns the process exit code.
func Execute(args []string) int {
	if err := run(context.Background(), args, os.Stdout, time.Now); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("error: "+err.Error()))
		return 1
	}
	return 0
}
