package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/spf13/cobra"

	"github.com/dd0wney/cluso-pathfinder/pkg/client"
	"github.com/dd0wney/cluso-pathfinder/pkg/events"
	"github.com/dd0wney/cluso-pathfinder/pkg/jobs"
)

// options are the persistent flags shared by every command
type options struct {
	server  string
	caFile  string
	timeout time.Duration
	json    bool
}

func (o *options) client() (*client.Client, error) {
	c := client.NewClient(o.server, o.timeout)
	if o.caFile != "" {
		if err := c.TrustCAFile(o.caFile); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func newRootCmd(out io.Writer) *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:           "pathctl",
		Short:         "Command line client for the pathfinder API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.SetOut(out)

	rootCmd.PersistentFlags().StringVar(&opts.server, "server", envOr("PATHFINDER_SERVER", client.DefaultServerURL),
		"pathfinder base URL (env PATHFINDER_SERVER)")
	rootCmd.PersistentFlags().StringVar(&opts.caFile, "ca-file", os.Getenv("PATHFINDER_CA_FILE"),
		"PEM bundle used to verify an HTTPS server")
	rootCmd.PersistentFlags().DurationVar(&opts.timeout, "timeout", client.DefaultTimeout, "per-request timeout")
	rootCmd.PersistentFlags().BoolVar(&opts.json, "json", false, "print raw JSON")

	rootCmd.AddCommand(
		newCreateNodeCmd(opts),
		newConnectCmd(opts),
		newFindPathCmd(opts),
		newSlowFindPathCmd(opts),
		newResultCmd(opts),
		newHealthCmd(opts),
		newWatchCmd(opts),
	)
	return rootCmd
}

func newCreateNodeCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "create-node NAME",
		Short: "Create a node",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.client()
			if err != nil {
				return err
			}
			name, err := c.CreateNode(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if opts.json {
				return printJSON(cmd.OutOrStdout(), map[string]string{"name": name})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created %s\n", name)
			return nil
		},
	}
}

func newConnectCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "connect FROM TO",
		Short: "Add the directed edge FROM -> TO",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.client()
			if err != nil {
				return err
			}
			msg, err := c.ConnectNodes(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			if opts.json {
				return printJSON(cmd.OutOrStdout(), map[string]string{"message": msg})
			}
			fmt.Fprintln(cmd.OutOrStdout(), msg)
			return nil
		},
	}
}

func newFindPathCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "find-path FROM TO",
		Short: "Find the shortest path synchronously",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.client()
			if err != nil {
				return err
			}
			path, err := c.FindPath(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			if opts.json {
				return printJSON(cmd.OutOrStdout(), map[string][]string{"path": path})
			}
			fmt.Fprintln(cmd.OutOrStdout(), formatPath(path))
			return nil
		},
	}
}

func newSlowFindPathCmd(opts *options) *cobra.Command {
	var wait bool

	cmd := &cobra.Command{
		Use:   "slow-find-path FROM TO",
		Short: "Queue a shortest path search and print its task ID",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.client()
			if err != nil {
				return err
			}
			id, err := c.SubmitSlowPath(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			if !wait {
				if opts.json {
					return printJSON(cmd.OutOrStdout(), map[string]string{"task_id": id})
				}
				fmt.Fprintln(cmd.OutOrStdout(), id)
				return nil
			}

			res, err := c.WaitResult(cmd.Context(), id, pollInterval(opts.timeout))
			if err != nil {
				return err
			}
			return printResult(cmd.OutOrStdout(), opts.json, res)
		},
	}
	cmd.Flags().BoolVar(&wait, "wait", false, "wait for the result")
	return cmd
}

func newResultCmd(opts *options) *cobra.Command {
	var wait bool

	cmd := &cobra.Command{
		Use:   "result TASK_ID",
		Short: "Show the state of a queued search",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.client()
			if err != nil {
				return err
			}

			var res client.JobResult
			if wait {
				res, err = c.WaitResult(cmd.Context(), args[0], pollInterval(opts.timeout))
			} else {
				res, err = c.Result(cmd.Context(), args[0], 0)
			}
			if err != nil {
				return err
			}
			return printResult(cmd.OutOrStdout(), opts.json, res)
		},
	}
	cmd.Flags().BoolVar(&wait, "wait", false, "wait until the job finishes")
	return cmd
}

func newHealthCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Show server health",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := opts.client()
			if err != nil {
				return err
			}
			doc, code, err := c.Health(cmd.Context())
			if err != nil {
				return err
			}
			if opts.json {
				if err := printJSON(cmd.OutOrStdout(), doc); err != nil {
					return err
				}
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "%v\n", doc["status"])
			}
			if code != 200 {
				return errors.New("server is unhealthy")
			}
			return nil
		},
	}
}

func newWatchCmd(opts *options) *cobra.Command {
	var natsURL, subject string

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Stream job lifecycle events from NATS until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			nc, err := nats.Connect(natsURL, nats.Name("pathctl"))
			if err != nil {
				return fmt.Errorf("connect to NATS: %w", err)
			}
			defer nc.Close()

			out := cmd.OutOrStdout()
			evs := make(chan jobs.Event, 64)
			sub, err := events.Subscribe(nc, subject, func(ev jobs.Event) {
				select {
				case evs <- ev:
				default:
				}
			})
			if err != nil {
				return fmt.Errorf("subscribe: %w", err)
			}
			defer sub.Unsubscribe()

			for {
				select {
				case <-cmd.Context().Done():
					return nil
				case ev := <-evs:
					if opts.json {
						if err := printJSON(out, ev); err != nil {
							return err
						}
						continue
					}
					fmt.Fprintln(out, formatEvent(ev))
				}
			}
		},
	}
	cmd.Flags().StringVar(&natsURL, "nats-url", envOr("PATHFINDER_NATS_URL", nats.DefaultURL), "NATS server URL")
	cmd.Flags().StringVar(&subject, "subject", envOr("PATHFINDER_NATS_SUBJECT", events.DefaultSubject), "event subject prefix")
	return cmd
}

// pollInterval keeps each long-poll inside the client timeout
func pollInterval(timeout time.Duration) time.Duration {
	interval := timeout / 2
	if interval > 25*time.Second {
		interval = 25 * time.Second
	}
	if interval < time.Second {
		interval = time.Second
	}
	return interval
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printResult(w io.Writer, asJSON bool, res client.JobResult) error {
	if asJSON {
		return printJSON(w, res)
	}
	switch res.Status {
	case client.StatusSuccess:
		fmt.Fprintf(w, "%s %s\n", res.Status, formatPath(res.Result))
	case client.StatusFailure:
		fmt.Fprintf(w, "%s %s\n", res.Status, res.Error)
	default:
		fmt.Fprintln(w, res.Status)
	}
	return nil
}

func formatPath(path []string) string {
	if path == nil {
		return "no path"
	}
	return strings.Join(path, " -> ")
}

func formatEvent(ev jobs.Event) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s %s %s -> %s",
		ev.Time.Format(time.RFC3339), ev.Type, ev.JobID, ev.From, ev.To)
	if ev.Status != "" {
		fmt.Fprintf(&b, " [%s]", ev.Status)
	}
	if ev.Error != "" {
		fmt.Fprintf(&b, " %s", ev.Error)
	}
	return b.String()
}
