package cli

import (
	"errors"
	"fmt"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/GriffinCanCode/AppLauncher/backend/internal/shared/types"
)

func newAppsCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "apps",
		Short: "List applications the user may launch",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			apps, err := opts.client().Apps(cmd.Context())
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(out(cmd), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tTYPE\tCATEGORY\tROLE")
			for _, a := range apps {
				name := a.Name
				if !a.Enabled {
					name += " (disabled)"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", a.ID, name, a.Type, a.Category, a.MinimumRole)
			}
			return w.Flush()
		},
	}
}

func newLaunchCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "launch APP_ID",
		Short: "Launch an application",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := opts.client().Launch(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printLaunch(cmd, args[0], res)
		},
	}
}

func newRestartCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "restart INSTANCE_ID",
		Short: "Close an instance and launch its application again",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := opts.client().Restart(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printLaunch(cmd, args[0], res)
		},
	}
}

func printLaunch(cmd *cobra.Command, name string, res *LaunchResult) error {
	if !res.Success {
		return fmt.Errorf("%s: %s", res.ErrorCode, res.ErrorMessage)
	}
	inst := res.Instance
	if inst == nil {
		fmt.Fprintf(out(cmd), "%s (%s)\n", name, res.LaunchType)
		return nil
	}
	fmt.Fprintf(out(cmd), "%s %s pid=%d via %s (%s)\n",
		inst.InstanceID, name, inst.ProcessID, res.Launcher, res.LaunchType)
	return nil
}

func newPsCmd(opts *options) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "ps",
		Short: "List application instances",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			list, err := opts.client().Instances(cmd.Context(), !all)
			if err != nil {
				return err
			}
			sort.Slice(list, func(i, j int) bool { return list[i].StartTime.Before(list[j].StartTime) })
			w := tabwriter.NewWriter(out(cmd), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "INSTANCE\tAPP\tUSER\tPID\tSTATE\tMEM(MB)\tUPTIME")
			for _, in := range list {
				app := "-"
				if in.Application != nil {
					app = in.Application.ID
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%.1f\t%s\n",
					in.InstanceID, app, in.LaunchedBy, in.ProcessID, in.State,
					in.MemoryUsageMB, time.Since(in.StartTime).Truncate(time.Second))
			}
			return w.Flush()
		},
	}
	cmd.Flags().BoolVarP(&all, "all", "a", false, "Include terminated instances")
	return cmd
}

func newWindowCmd(opts *options, action, short string) *cobra.Command {
	return &cobra.Command{
		Use:   action + " INSTANCE_ID",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := opts.client().Action(cmd.Context(), args[0], action, nil)
			if err != nil {
				return err
			}
			return report(cmd, action, res)
		},
	}
}

func newCloseCmd(opts *options) *cobra.Command {
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:   "close INSTANCE_ID",
		Short: "Ask an instance to exit",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body := types.CloseRequest{TimeoutMs: int(timeout / time.Millisecond)}
			res, err := opts.client().Action(cmd.Context(), args[0], "close", body)
			if err != nil {
				return err
			}
			return report(cmd, "close", res)
		},
	}
	cmd.Flags().DurationVar(&timeout, "wait", 0, "Graceful exit budget (server default when zero)")
	return cmd
}

func newKillCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "kill INSTANCE_ID",
		Short: "Forcibly terminate an instance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := opts.client().Action(cmd.Context(), args[0], "kill", nil)
			if err != nil {
				return err
			}
			return report(cmd, "kill", res)
		},
	}
}

func report(cmd *cobra.Command, action string, res *ActionResult) error {
	if !res.Success {
		if res.Error != "" {
			return fmt.Errorf("%s %s failed: %s", action, res.InstanceID, res.Error)
		}
		return fmt.Errorf("%s %s failed", action, res.InstanceID)
	}
	if res.State != "" {
		fmt.Fprintf(out(cmd), "%s %s\n", res.InstanceID, res.State)
	} else {
		fmt.Fprintf(out(cmd), "%s ok\n", res.InstanceID)
	}
	return nil
}

func newShutdownCmd(opts *options) *cobra.Command {
	var graceful, final time.Duration
	cmd := &cobra.Command{
		Use:   "shutdown",
		Short: "Close every instance, killing those that do not exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := opts.client().Shutdown(cmd.Context(), graceful, final)
			if err != nil {
				return err
			}
			fmt.Fprintf(out(cmd), "total=%d graceful=%d forced=%d failed=%d in %s\n",
				res.TotalApplications, res.GracefullyClosed, res.ForceClosed,
				res.FailedToClose, res.Duration.Truncate(time.Millisecond))
			if !res.Succeeded() {
				return errors.New("some instances did not exit")
			}
			return nil
		},
	}
	cmd.Flags().DurationVar(&graceful, "graceful", 0, "Per-instance graceful budget")
	cmd.Flags().DurationVar(&final, "final", 0, "Budget for the forced pass")
	return cmd
}

func newStatsCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show lifecycle statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			stats, err := opts.client().Stats(cmd.Context())
			if err != nil {
				return err
			}
			keys := make([]string, 0, len(stats))
			for k := range stats {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			w := tabwriter.NewWriter(out(cmd), 0, 4, 2, ' ', 0)
			for _, k := range keys {
				fmt.Fprintf(w, "%s\t%v\n", k, stats[k])
			}
			return w.Flush()
		},
	}
}
