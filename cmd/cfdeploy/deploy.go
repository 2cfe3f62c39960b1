// deploy.go wires the deploy command: AWS clients, the operator prompt, and the pipeline run.
package main

import (
	"context"
	"fmt"
	"io"

	"code.cloudfoundry.org/clock"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/example/cfdeploy/internal/config"
	"github.com/example/cfdeploy/internal/deployerr"
	"github.com/example/cfdeploy/internal/logging"
	"github.com/example/cfdeploy/internal/objectstore"
	"github.com/example/cfdeploy/internal/params"
	"github.com/example/cfdeploy/internal/pipeline"
	"github.com/example/cfdeploy/internal/stack"
	"github.com/spf13/cobra"
)

func newDeployCommand(cfg *config.Config, globals *globalOptions, in io.Reader, out io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "deploy",
		Short: "Deploy the newest artifact (default command)",
		Long: "Locate the newest archive in --dir, extract it beside the archive, upload every file under " +
			"<project>/ in the bucket, then create or update the stack named after the project and wait for it to settle.",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDeploy(cmd.Context(), cfg, globals, in, out)
		},
	}
}

func runDeploy(ctx context.Context, cfg *config.Config, globals *globalOptions, in io.Reader, out io.Writer) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	log, err := logging.New(globals.logLevel)
	if err != nil {
		return err
	}
	applyColorMode(cfg.ColorMode, out)

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return deployerr.New(deployerr.RemoteState, "load AWS configuration", err)
	}
	store := objectstore.NewS3Store(awsCfg, cfg.BucketName, log)
	orchestrator := stack.NewCloudFormation(awsCfg, log)

	deployer := &pipeline.Deployer{
		Config:       cfg,
		Store:        store,
		Orchestrator: orchestrator,
		Prompter:     params.NewLinePrompter(in, out),
		Clock:        clock.NewClock(),
		Observer:     &statusPrinter{out: out},
		Log:          log,
		Out:          out,
	}
	report, err := deployer.Run(ctx)
	if line := report.Timings.Line(); line != "" {
		log.V(1).Info(line)
	}
	if len(report.Pruned) > 0 {
		fmt.Fprintf(out, "Removed %d stale object(s) under %s/\n", len(report.Pruned), report.Project)
	}
	if err != nil {
		return err
	}
	printResult(out, report.Project, report.Result)
	return nil
}
