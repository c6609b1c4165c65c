package main

import (
	"context"
	"flinkrest/pkg/flink"
	"fmt"
	"strconv"

	"github.com/urfave/cli/v3"
)

// jobAction runs fn with the <job-id> argument.
func jobAction(fn func(ctx context.Context, cmd *cli.Command, c *flink.Client, jobID string) (any, error)) cli.ActionFunc {
	return withClient(func(ctx context.Context, cmd *cli.Command, c *flink.Client) (any, error) {
		args, err := requireArgs(cmd, "job-id")
		if err != nil {
			return nil, err
		}
		return fn(ctx, cmd, c, args[0])
	})
}

func jobsCommand() *cli.Command {
	return &cli.Command{
		Name:  "jobs",
		Usage: "jobs on the cluster",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "summarize every job",
				Action: withClient(func(ctx context.Context, _ *cli.Command, c *flink.Client) (any, error) {
					return c.Jobs.Overview(ctx)
				}),
			},
			{
				Name:  "ids",
				Usage: "list job ids",
				Action: withClient(func(ctx context.Context, _ *cli.Command, c *flink.Client) (any, error) {
					return c.Jobs.IDs(ctx)
				}),
			},
			{
				Name:      "get",
				Usage:     "show one job",
				ArgsUsage: "<job-id>",
				Action: jobAction(func(ctx context.Context, _ *cli.Command, c *flink.Client, jobID string) (any, error) {
					return c.Jobs.Get(ctx, jobID)
				}),
			},
			{
				Name:      "config",
				Usage:     "show a job's configuration",
				ArgsUsage: "<job-id>",
				Action: jobAction(func(ctx context.Context, _ *cli.Command, c *flink.Client, jobID string) (any, error) {
					return c.Jobs.Config(ctx, jobID)
				}),
			},
			{
				Name:      "exceptions",
				Usage:     "show a job's exception history",
				ArgsUsage: "<job-id>",
				Action: jobAction(func(ctx context.Context, _ *cli.Command, c *flink.Client, jobID string) (any, error) {
					return c.Jobs.Exceptions(ctx, jobID)
				}),
			},
			{
				Name:      "result",
				Usage:     "show a job's execution result",
				ArgsUsage: "<job-id>",
				Action: jobAction(func(ctx context.Context, _ *cli.Command, c *flink.Client, jobID string) (any, error) {
					return c.Jobs.ExecutionResult(ctx, jobID)
				}),
			},
			{
				Name:      "plan",
				Usage:     "show a job's dataflow plan",
				ArgsUsage: "<job-id>",
				Action: jobAction(func(ctx context.Context, _ *cli.Command, c *flink.Client, jobID string) (any, error) {
					return c.Jobs.Plan(ctx, jobID)
				}),
			},
			{
				Name:      "accumulators",
				Usage:     "show a job's accumulators",
				ArgsUsage: "<job-id>",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "serialized", Usage: "include serialized user task accumulators"},
				},
				Action: jobAction(func(ctx context.Context, cmd *cli.Command, c *flink.Client, jobID string) (any, error) {
					var include *bool
					if cmd.IsSet("serialized") {
						v := cmd.Bool("serialized")
						include = &v
					}
					return c.Jobs.Accumulators(ctx, jobID, include)
				}),
			},
			{
				Name:      "checkpoints",
				Usage:     "show checkpoint statistics, or one checkpoint",
				ArgsUsage: "<job-id> [checkpoint-id]",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "subtasks", Usage: "include per-vertex subtask statistics of one checkpoint"},
					&cli.BoolFlag{Name: "config", Usage: "show the checkpointing configuration instead"},
				},
				Action: jobAction(func(ctx context.Context, cmd *cli.Command, c *flink.Client, jobID string) (any, error) {
					if cmd.Bool("config") {
						return c.Jobs.CheckpointConfig(ctx, jobID)
					}
					if cmd.NArg() < 2 {
						return c.Jobs.Checkpoints(ctx, jobID)
					}
					id, err := strconv.ParseInt(cmd.Args().Get(1), 10, 64)
					if err != nil {
						return nil, fmt.Errorf("invalid checkpoint id %q", cmd.Args().Get(1))
					}
					return c.Jobs.CheckpointDetails(ctx, jobID, id, cmd.Bool("subtasks"))
				}),
			},
			{
				Name:      "metrics",
				Usage:     "metrics of one job, or aggregated across jobs",
				ArgsUsage: "[job-id]",
				Flags:     metricQueryFlags("jobs"),
				Action: withClient(func(ctx context.Context, cmd *cli.Command, c *flink.Client) (any, error) {
					if cmd.NArg() > 0 {
						return c.Jobs.JobMetrics(ctx, cmd.Args().First(), nilIfEmpty(cmd.StringSlice("get")))
					}
					return c.Jobs.Metrics(ctx, metricQuery(cmd, "jobs"))
				}),
			},
			{
				Name:      "vertices",
				Usage:     "list the vertex ids of a job",
				ArgsUsage: "<job-id>",
				Action: jobAction(func(ctx context.Context, _ *cli.Command, c *flink.Client, jobID string) (any, error) {
					return c.Jobs.VertexIDs(ctx, jobID)
				}),
			},
			vertexCommand(),
			{
				Name:      "cancel",
				Usage:     "cancel a job",
				ArgsUsage: "<job-id>",
				Action: jobAction(func(ctx context.Context, _ *cli.Command, c *flink.Client, jobID string) (any, error) {
					outcome, err := c.Jobs.Terminate(ctx, jobID)
					if err != nil {
						return nil, err
					}
					return map[string]bool{"success": outcome.Bool()}, nil
				}),
			},
			{
				Name:      "cancel-by-name",
				Usage:     "cancel every running job with a name",
				ArgsUsage: "<job-name>",
				Action: withClient(func(ctx context.Context, cmd *cli.Command, c *flink.Client) (any, error) {
					args, err := requireArgs(cmd, "job-name")
					if err != nil {
						return nil, err
					}
					return c.Jobs.DeleteByName(ctx, args[0])
				}),
			},
			{
				Name:      "savepoint",
				Usage:     "trigger a savepoint",
				ArgsUsage: "<job-id>",
				Flags: append([]cli.Flag{
					&cli.StringFlag{Name: "dir", Usage: "target directory", Required: true},
					&cli.BoolFlag{Name: "cancel", Usage: "cancel the job after the savepoint"},
				}, waitFlags()...),
				Action: jobAction(func(ctx context.Context, cmd *cli.Command, c *flink.Client, jobID string) (any, error) {
					t, err := c.Jobs.CreateSavepoint(ctx, jobID, cmd.String("dir"), cmd.Bool("cancel"))
					if err != nil {
						return nil, err
					}
					return triggerResult(ctx, cmd, t)
				}),
			},
			{
				Name:      "stop",
				Usage:     "stop a job with a savepoint",
				ArgsUsage: "<job-id>",
				Flags: append([]cli.Flag{
					&cli.StringFlag{Name: "dir", Usage: "target directory (default: the cluster's)"},
					&cli.BoolFlag{Name: "drain", Usage: "emit MAX_WATERMARK before stopping"},
				}, waitFlags()...),
				Action: jobAction(func(ctx context.Context, cmd *cli.Command, c *flink.Client, jobID string) (any, error) {
					t, err := c.Jobs.Stop(ctx, jobID, cmd.String("dir"), cmd.Bool("drain"))
					if err != nil {
						return nil, err
					}
					return triggerResult(ctx, cmd, t)
				}),
			},
			{
				Name:      "rescale",
				Usage:     "change a job's parallelism",
				ArgsUsage: "<job-id>",
				Flags: append([]cli.Flag{
					&cli.IntFlag{Name: "parallelism", Aliases: []string{"p"}, Required: true},
				}, waitFlags()...),
				Action: jobAction(func(ctx context.Context, cmd *cli.Command, c *flink.Client, jobID string) (any, error) {
					t, err := c.Jobs.Rescale(ctx, jobID, int(cmd.Int("parallelism")))
					if err != nil {
						return nil, err
					}
					return triggerResult(ctx, cmd, t)
				}),
			},
		},
	}
}

func vertexCommand() *cli.Command {
	return &cli.Command{
		Name:      "vertex",
		Usage:     "one vertex of a job",
		ArgsUsage: "<job-id> <vertex-id>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "show",
				Usage: "details, backpressure, watermarks, subtask-times, taskmanagers, accumulators or metrics",
				Value: "details",
			},
			&cli.StringSliceFlag{Name: "get", Usage: "metric names for --show metrics"},
		},
		Action: withClient(func(ctx context.Context, cmd *cli.Command, c *flink.Client) (any, error) {
			args, err := requireArgs(cmd, "job-id", "vertex-id")
			if err != nil {
				return nil, err
			}
			v := c.Jobs.Vertex(args[0], args[1])
			switch show := cmd.String("show"); show {
			case "details":
				return v.Details(ctx)
			case "backpressure":
				return v.Backpressure(ctx)
			case "watermarks":
				return v.Watermarks(ctx)
			case "subtask-times":
				return v.SubtaskTimes(ctx)
			case "taskmanagers":
				return v.TaskManagers(ctx)
			case "accumulators":
				return v.Subtasks().Accumulators(ctx)
			case "metrics":
				return v.Metrics(ctx, nilIfEmpty(cmd.StringSlice("get")))
			default:
				return nil, fmt.Errorf("unknown --show value %q", show)
			}
		}),
	}
}
