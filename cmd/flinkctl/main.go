// flinkctl is a command line client for a cluster's REST API. Every command
// prints the server's answer as JSON.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flinkrest/internal/config"
	"flinkrest/internal/discovery"
	"flinkrest/pkg/flink"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/urfave/cli/v3"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newApp().Run(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		var fe *flink.Error
		if errors.As(err, &fe) && fe.Diagnostic() != "" {
			fmt.Fprintln(os.Stderr, fe.Diagnostic())
		}
		os.Exit(1)
	}
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:  "flinkctl",
		Usage: "talk to a cluster's REST API",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Usage: "cluster file", Sources: cli.EnvVars("FLINK_CONFIG")},
			&cli.StringFlag{Name: "cluster", Usage: "cluster name in the cluster file", Sources: cli.EnvVars("FLINK_CLUSTER")},
			&cli.StringFlag{Name: "host", Usage: "job manager host", Sources: cli.EnvVars("FLINK_HOST")},
			&cli.StringFlag{Name: "port", Usage: "job manager REST port", Sources: cli.EnvVars("FLINK_PORT")},
			&cli.StringFlag{Name: "scheme", Usage: "http or https (default: inferred from the port)", Sources: cli.EnvVars("FLINK_SCHEME")},
			&cli.BoolFlag{Name: "insecure", Usage: "skip TLS certificate verification", Sources: cli.EnvVars("FLINK_INSECURE")},
			&cli.DurationFlag{Name: "timeout", Usage: "timeout of one REST call", Sources: cli.EnvVars("FLINK_TIMEOUT")},
			&cli.StringFlag{Name: "docker-container", Usage: "resolve host and port from a local container", Sources: cli.EnvVars("FLINK_DOCKER_CONTAINER")},
			&cli.BoolFlag{Name: "verbose", Aliases: []string{"v"}, Usage: "log every request to stderr"},
		},
		Commands: []*cli.Command{
			overviewCommand(),
			configCommand(),
			jobsCommand(),
			jarsCommand(),
			triggerCommand(),
			taskManagersCommand(),
			jobManagerCommand(),
			datasetsCommand(),
		},
	}
}

// loadFlinkConfig reads the cluster file or the environment, then applies
// flags given on the command line.
func loadFlinkConfig(cmd *cli.Command) (*config.FlinkConfig, error) {
	var (
		cfg *config.FlinkConfig
		err error
	)
	if path := cmd.String("config"); path != "" {
		cfg, err = config.LoadCluster(path, cmd.String("cluster"))
	} else {
		cfg, err = config.LoadFlinkConfig()
	}
	if err != nil {
		return nil, err
	}

	if cmd.IsSet("host") {
		cfg.Host = cmd.String("host")
	}
	if cmd.IsSet("port") {
		cfg.Port = cmd.String("port")
	}
	if cmd.IsSet("scheme") {
		cfg.Scheme = cmd.String("scheme")
	}
	if cmd.IsSet("insecure") {
		cfg.Insecure = cmd.Bool("insecure")
	}
	if cmd.IsSet("timeout") {
		cfg.Timeout = cmd.Duration("timeout")
	}
	if cmd.IsSet("docker-container") {
		cfg.DockerContainer = cmd.String("docker-container")
	}
	return cfg, nil
}

func newClient(ctx context.Context, cmd *cli.Command) (*flink.Client, error) {
	cfg, err := loadFlinkConfig(cmd)
	if err != nil {
		return nil, err
	}

	logger := newLogger(cmd)
	if cfg.DockerContainer != "" {
		finder, err := discovery.NewFinder(logger)
		if err != nil {
			return nil, err
		}
		defer finder.Close()
		if err := finder.Apply(ctx, cfg); err != nil {
			return nil, err
		}
	}

	return flink.New(cfg.Target(), flink.WithTimeout(cfg.Timeout), flink.WithLogger(logger))
}

func newLogger(cmd *cli.Command) *slog.Logger {
	level := slog.LevelWarn
	if cmd.Bool("verbose") {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(cmd.Root().ErrWriter, &slog.HandlerOptions{Level: level}))
}

// withClient adapts a client call into a command action.
func withClient(fn func(ctx context.Context, cmd *cli.Command, c *flink.Client) (any, error)) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		c, err := newClient(ctx, cmd)
		if err != nil {
			return err
		}
		out, err := fn(ctx, cmd, c)
		if err != nil {
			return err
		}
		return printJSON(cmd.Root().Writer, out)
	}
}

func printJSON(w io.Writer, v any) error {
	if w == nil {
		w = os.Stdout
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// requireArgs returns the first n positional arguments.
func requireArgs(cmd *cli.Command, names ...string) ([]string, error) {
	if cmd.NArg() < len(names) {
		return nil, fmt.Errorf("%s: expected arguments: %s", cmd.Name, strings.Join(names, " "))
	}
	args := make([]string, len(names))
	for i := range names {
		args[i] = cmd.Args().Get(i)
	}
	return args, nil
}

// metricQueryFlags are shared by the aggregated metrics commands.
func metricQueryFlags(idsName string) []cli.Flag {
	return []cli.Flag{
		&cli.StringSliceFlag{Name: "get", Usage: "metric names (default: every metric)"},
		&cli.StringSliceFlag{Name: "agg", Usage: "aggregations: min, max, sum, avg (default: all)"},
		&cli.StringSliceFlag{Name: idsName, Usage: "restrict to these ids (default: all)"},
	}
}

func metricQuery(cmd *cli.Command, idsName string) flink.MetricQuery {
	var modes []flink.AggregationMode
	for _, m := range cmd.StringSlice("agg") {
		modes = append(modes, flink.AggregationMode(m))
	}
	return flink.MetricQuery{
		Names:        nilIfEmpty(cmd.StringSlice("get")),
		Aggregations: modes,
		IDs:          nilIfEmpty(cmd.StringSlice(idsName)),
	}
}

func nilIfEmpty(s []string) []string {
	if len(s) == 0 {
		return nil
	}
	return s
}

// waitFlags add --wait to commands that start an asynchronous operation.
func waitFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{Name: "wait", Usage: "poll until the operation completes"},
		&cli.DurationFlag{Name: "wait-timeout", Usage: "give up waiting after this long", Value: 10 * time.Minute},
	}
}

// triggerResult prints where to find an operation, or its final status when
// --wait is set.
func triggerResult(ctx context.Context, cmd *cli.Command, t *flink.Trigger) (any, error) {
	if !cmd.Bool("wait") {
		return map[string]string{
			"jobId":     t.JobID,
			"kind":      t.Kind(),
			"triggerId": t.ID,
			"statusUrl": t.URL(),
		}, nil
	}
	return t.Await(ctx, flink.AwaitOptions{Timeout: cmd.Duration("wait-timeout")})
}
