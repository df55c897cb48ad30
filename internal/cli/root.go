package cli

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
)

type options struct {
	server  string
	user    string
	timeout time.Duration
}

// Execute runs launcherctl with os.Args.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// NewRootCmd wires the cobra tree.
func NewRootCmd() *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:           "launcherctl",
		Short:         "Control the application launcher",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.server, "server", envOr("LAUNCHER_SERVER", "http://127.0.0.1:8000"), "Launcher server URL")
	root.PersistentFlags().StringVarP(&opts.user, "user", "u", os.Getenv("USER"), "User to act as")
	root.PersistentFlags().DurationVar(&opts.timeout, "timeout", 60*time.Second, "Request timeout")

	root.AddCommand(
		newAppsCmd(opts),
		newLaunchCmd(opts),
		newPsCmd(opts),
		newWindowCmd(opts, "switch", "Bring an instance to the foreground"),
		newWindowCmd(opts, "minimize", "Minimize an instance"),
		newWindowCmd(opts, "restore", "Restore a minimized instance"),
		newCloseCmd(opts),
		newKillCmd(opts),
		newRestartCmd(opts),
		newShutdownCmd(opts),
		newStatsCmd(opts),
	)
	return root
}

func (o *options) client() *Client {
	return NewClient(o.server, o.user, o.timeout)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func out(cmd *cobra.Command) io.Writer {
	return cmd.OutOrStdout()
}
