package main

import (
	"context"
	"flinkrest/pkg/flink"
	"fmt"
	"strings"

	"github.com/urfave/cli/v3"
)

func runFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "entry-class", Usage: "fully qualified main class"},
		&cli.IntFlag{Name: "parallelism", Aliases: []string{"p"}, Usage: "job parallelism"},
		&cli.StringSliceFlag{Name: "arg", Usage: "program argument as key=value, passed as --key value"},
		&cli.StringFlag{Name: "program-args", Usage: "program arguments, sent verbatim (overrides --arg)"},
		&cli.StringFlag{Name: "savepoint", Usage: "savepoint to restore from"},
		&cli.BoolFlag{Name: "allow-non-restored-state", Usage: "skip savepoint state that maps to no operator"},
	}
}

// runOptions builds RunOptions from the flags set on the command line.
func runOptions(cmd *cli.Command) (flink.RunOptions, error) {
	opts := flink.RunOptions{
		EntryClass:    cmd.String("entry-class"),
		ProgramArgs:   cmd.String("program-args"),
		SavepointPath: cmd.String("savepoint"),
	}
	if cmd.IsSet("parallelism") {
		p := int(cmd.Int("parallelism"))
		opts.Parallelism = &p
	}
	if cmd.IsSet("allow-non-restored-state") {
		v := cmd.Bool("allow-non-restored-state")
		opts.AllowNonRestoredState = &v
	}
	for _, kv := range cmd.StringSlice("arg") {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || key == "" {
			return opts, fmt.Errorf("invalid --arg %q, expected key=value", kv)
		}
		if opts.Arguments == nil {
			opts.Arguments = map[string]string{}
		}
		opts.Arguments[key] = value
	}
	return opts, nil
}

func jarsCommand() *cli.Command {
	return &cli.Command{
		Name:  "jars",
		Usage: "uploaded jar files",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "list uploaded jars",
				Action: withClient(func(ctx context.Context, _ *cli.Command, c *flink.Client) (any, error) {
					return c.Jars.All(ctx)
				}),
			},
			{
				Name:  "ids",
				Usage: "list uploaded jar ids",
				Action: withClient(func(ctx context.Context, _ *cli.Command, c *flink.Client) (any, error) {
					return c.Jars.IDs(ctx)
				}),
			},
			{
				Name:      "upload",
				Usage:     "upload a jar file",
				ArgsUsage: "<path>",
				Action: withClient(func(ctx context.Context, cmd *cli.Command, c *flink.Client) (any, error) {
					args, err := requireArgs(cmd, "path")
					if err != nil {
						return nil, err
					}
					res, err := c.Jars.Upload(ctx, args[0])
					if err != nil {
						return nil, err
					}
					return map[string]string{"status": res.Status, "filename": res.Filename, "jarId": res.JarID()}, nil
				}),
			},
			{
				Name:      "plan",
				Usage:     "show the dataflow plan of a jar",
				ArgsUsage: "<jar-id>",
				Action: withClient(func(ctx context.Context, cmd *cli.Command, c *flink.Client) (any, error) {
					args, err := requireArgs(cmd, "jar-id")
					if err != nil {
						return nil, err
					}
					return c.Jars.Plan(ctx, args[0])
				}),
			},
			{
				Name:      "run",
				Usage:     "run an uploaded jar",
				ArgsUsage: "<jar-id>",
				Flags:     runFlags(),
				Action: withClient(func(ctx context.Context, cmd *cli.Command, c *flink.Client) (any, error) {
					args, err := requireArgs(cmd, "jar-id")
					if err != nil {
						return nil, err
					}
					opts, err := runOptions(cmd)
					if err != nil {
						return nil, err
					}
					jobID, err := c.Jars.Run(ctx, args[0], opts)
					if err != nil {
						return nil, err
					}
					return map[string]string{"jobid": jobID}, nil
				}),
			},
			{
				Name:      "submit",
				Usage:     "upload a jar file and run it",
				ArgsUsage: "<path>",
				Flags:     runFlags(),
				Action: withClient(func(ctx context.Context, cmd *cli.Command, c *flink.Client) (any, error) {
					args, err := requireArgs(cmd, "path")
					if err != nil {
						return nil, err
					}
					opts, err := runOptions(cmd)
					if err != nil {
						return nil, err
					}
					jobID, err := c.Jars.UploadAndRun(ctx, args[0], opts)
					if err != nil {
						return nil, err
					}
					return map[string]string{"jobid": jobID}, nil
				}),
			},
			{
				Name:      "delete",
				Usage:     "delete an uploaded jar",
				ArgsUsage: "<jar-id>",
				Action: withClient(func(ctx context.Context, cmd *cli.Command, c *flink.Client) (any, error) {
					args, err := requireArgs(cmd, "jar-id")
					if err != nil {
						return nil, err
					}
					outcome, err := c.Jars.Delete(ctx, args[0])
					if err != nil {
						return nil, err
					}
					return map[string]bool{"success": outcome.Bool()}, nil
				}),
			},
			{
				Name:  "delete-all",
				Usage: "delete every uploaded jar",
				Action: withClient(func(ctx context.Context, _ *cli.Command, c *flink.Client) (any, error) {
					outcome, err := c.Jars.DeleteAll(ctx)
					if err != nil {
						return nil, err
					}
					return map[string]bool{"success": outcome.Bool()}, nil
				}),
			},
		},
	}
}
