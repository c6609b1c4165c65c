package main

import (
	"context"
	"flinkrest/pkg/flink"

	"github.com/urfave/cli/v3"
)

func overviewCommand() *cli.Command {
	return &cli.Command{
		Name:  "overview",
		Usage: "show the cluster overview",
		Action: withClient(func(ctx context.Context, _ *cli.Command, c *flink.Client) (any, error) {
			return c.Overview(ctx)
		}),
	}
}

func configCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "show the web UI configuration",
		Action: withClient(func(ctx context.Context, _ *cli.Command, c *flink.Client) (any, error) {
			return c.Config(ctx)
		}),
	}
}

func datasetsCommand() *cli.Command {
	return &cli.Command{
		Name:  "datasets",
		Usage: "cluster data sets",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "list cluster data sets",
				Action: withClient(func(ctx context.Context, _ *cli.Command, c *flink.Client) (any, error) {
					return c.Datasets(ctx)
				}),
			},
			{
				Name:      "delete",
				Usage:     "delete a cluster data set",
				ArgsUsage: "<dataset-id>",
				Flags:     waitFlags(),
				Action: withClient(func(ctx context.Context, cmd *cli.Command, c *flink.Client) (any, error) {
					args, err := requireArgs(cmd, "dataset-id")
					if err != nil {
						return nil, err
					}
					t, err := c.DeleteDataset(ctx, args[0])
					if err != nil {
						return nil, err
					}
					return triggerResult(ctx, cmd, t)
				}),
			},
		},
	}
}

func triggerCommand() *cli.Command {
	// trigger resolves <job-id> <kind> <trigger-id>, or <trigger-id> alone
	// for dataset deletions.
	trigger := func(cmd *cli.Command, c *flink.Client) (*flink.Trigger, error) {
		if cmd.NArg() == 1 {
			return c.DatasetTrigger(cmd.Args().First()), nil
		}
		args, err := requireArgs(cmd, "job-id", "kind", "trigger-id")
		if err != nil {
			return nil, err
		}
		return c.Jobs.Trigger(args[1], args[0], args[2]), nil
	}

	return &cli.Command{
		Name:  "trigger",
		Usage: "asynchronous operations",
		Commands: []*cli.Command{
			{
				Name:      "status",
				Usage:     "read the status of an operation",
				ArgsUsage: "<job-id> <savepoints|rescaling> <trigger-id> | <dataset-trigger-id>",
				Action: withClient(func(ctx context.Context, cmd *cli.Command, c *flink.Client) (any, error) {
					t, err := trigger(cmd, c)
					if err != nil {
						return nil, err
					}
					return t.Status(ctx)
				}),
			},
			{
				Name:      "wait",
				Usage:     "poll an operation until it completes",
				ArgsUsage: "<job-id> <savepoints|rescaling> <trigger-id> | <dataset-trigger-id>",
				Flags:     waitFlags(),
				Action: withClient(func(ctx context.Context, cmd *cli.Command, c *flink.Client) (any, error) {
					t, err := trigger(cmd, c)
					if err != nil {
						return nil, err
					}
					return t.Await(ctx, flink.AwaitOptions{Timeout: cmd.Duration("wait-timeout")})
				}),
			},
		},
	}
}

func taskManagersCommand() *cli.Command {
	return &cli.Command{
		Name:    "taskmanagers",
		Aliases: []string{"tm"},
		Usage:   "task managers",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "list task managers",
				Action: withClient(func(ctx context.Context, _ *cli.Command, c *flink.Client) (any, error) {
					return c.TaskManagers.All(ctx)
				}),
			},
			{
				Name:      "get",
				Usage:     "show one task manager",
				ArgsUsage: "<taskmanager-id>",
				Action: withClient(func(ctx context.Context, cmd *cli.Command, c *flink.Client) (any, error) {
					args, err := requireArgs(cmd, "taskmanager-id")
					if err != nil {
						return nil, err
					}
					return c.TaskManagers.Get(ctx, args[0])
				}),
			},
			{
				Name:  "metrics",
				Usage: "aggregated metrics across task managers",
				Flags: metricQueryFlags("taskmanagers"),
				Action: withClient(func(ctx context.Context, cmd *cli.Command, c *flink.Client) (any, error) {
					return c.TaskManagers.Metrics(ctx, metricQuery(cmd, "taskmanagers"))
				}),
			},
			{
				Name:      "logs",
				Usage:     "list the log files of a task manager",
				ArgsUsage: "<taskmanager-id>",
				Action: withClient(func(ctx context.Context, cmd *cli.Command, c *flink.Client) (any, error) {
					args, err := requireArgs(cmd, "taskmanager-id")
					if err != nil {
						return nil, err
					}
					return c.TaskManagers.Logs(ctx, args[0])
				}),
			},
			{
				Name:      "thread-dump",
				Usage:     "thread dump of a task manager",
				ArgsUsage: "<taskmanager-id>",
				Action: withClient(func(ctx context.Context, cmd *cli.Command, c *flink.Client) (any, error) {
					args, err := requireArgs(cmd, "taskmanager-id")
					if err != nil {
						return nil, err
					}
					return c.TaskManagers.ThreadDump(ctx, args[0])
				}),
			},
		},
	}
}

func jobManagerCommand() *cli.Command {
	return &cli.Command{
		Name:    "jobmanager",
		Aliases: []string{"jm"},
		Usage:   "the job manager",
		Commands: []*cli.Command{
			{
				Name:  "config",
				Usage: "show the cluster configuration",
				Action: withClient(func(ctx context.Context, _ *cli.Command, c *flink.Client) (any, error) {
					return c.JobManager.Config(ctx)
				}),
			},
			{
				Name:  "logs",
				Usage: "list the job manager log files",
				Action: withClient(func(ctx context.Context, _ *cli.Command, c *flink.Client) (any, error) {
					return c.JobManager.Logs(ctx)
				}),
			},
			{
				Name:      "log",
				Usage:     "print one log file",
				ArgsUsage: "<file>",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					args, err := requireArgs(cmd, "file")
					if err != nil {
						return err
					}
					c, err := newClient(ctx, cmd)
					if err != nil {
						return err
					}
					text, err := c.JobManager.Log(ctx, args[0])
					if err != nil {
						return err
					}
					_, err = cmd.Root().Writer.Write([]byte(text))
					return err
				},
			},
			{
				Name:  "metrics",
				Usage: "job manager metrics",
				Flags: []cli.Flag{
					&cli.StringSliceFlag{Name: "get", Usage: "metric names (default: every metric)"},
				},
				Action: withClient(func(ctx context.Context, cmd *cli.Command, c *flink.Client) (any, error) {
					return c.JobManager.Metrics(ctx, nilIfEmpty(cmd.StringSlice("get")))
				}),
			},
		},
	}
}
