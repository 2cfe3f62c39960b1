// File: internal/pipeline/pipeline.go
// Brief: Runs a deployment end to end: locate, extract, provision, publish, resolve, converge.

// Package pipeline wires the deployment stages together. Every stage runs to
// completion before the next starts; the first failure ends the run.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"strings"

	"code.cloudfoundry.org/clock"
	"github.com/example/cfdeploy/internal/artifact"
	"github.com/example/cfdeploy/internal/config"
	"github.com/example/cfdeploy/internal/deployerr"
	"github.com/example/cfdeploy/internal/objectstore"
	"github.com/example/cfdeploy/internal/params"
	"github.com/example/cfdeploy/internal/stack"
	"github.com/example/cfdeploy/internal/telemetry"
	"github.com/example/cfdeploy/internal/template"
	"github.com/go-logr/logr"
)

// Prompter asks the operator for the project name and parameter values.
type Prompter interface {
	params.Prompter
	Line(ctx context.Context, label string) (string, error)
}

// Deployer holds the collaborators of one run.
type Deployer struct {
	Config       *config.Config
	Store        objectstore.Store
	Orchestrator stack.Orchestrator
	Prompter     Prompter
	Clock        clock.Clock
	Observer     stack.Observer
	Log          logr.Logger
	Out          io.Writer
}

// Report summarises a finished run.
type Report struct {
	Project       string
	Archive       string
	Folder        string
	Manifest      artifact.Manifest
	BucketCreated bool
	Publication   objectstore.Publication
	Parameters    params.Set
	Pruned        []string
	Result        stack.Result
	Timings       telemetry.Summary
}

// Run performs the deployment. The report is filled as far as the run got.
func (d *Deployer) Run(ctx context.Context) (rep Report, err error) {
	cfg := d.Config
	timer := telemetry.NewPhaseTimer(d.Clock)
	defer func() {
		rep.Timings = timer.Summary()
		rep.Timings.Uploads = len(rep.Publication.Keys)
		rep.Timings.Polls = rep.Result.Polls
	}()
	overrides, err := params.LoadOverrides(cfg.ParameterFile, cfg.ParameterArgs)
	if err != nil {
		return rep, deployerr.New(deployerr.Input, "load parameter overrides", err)
	}
	if rep.Project, err = d.projectName(ctx); err != nil {
		return rep, err
	}
	timer.Lap("prompt")
	log := d.Log.WithValues("project", rep.Project)

	if rep.Archive, err = artifact.Locate(cfg.ScanDirectory, cfg.ArchiveExtension); err != nil {
		return rep, err
	}
	rep.Folder = artifact.FolderName(rep.Archive)
	log.Info("using artifact", "archive", rep.Archive, "folder", rep.Folder)
	if rep.Manifest, err = artifact.Extract(rep.Archive, cfg.ScanDirectory, log); err != nil {
		return rep, err
	}
	timer.Lap("extract")

	provisioner := &objectstore.Provisioner{Store: d.Store, Log: log}
	existing, err := provisioner.Ensure(ctx, rep.Project)
	if err != nil {
		return rep, err
	}
	rep.BucketCreated = existing.Created
	if existing.Created {
		d.printf("No bucket, creating one\n")
	}
	timer.Lap("provision")

	publisher := &objectstore.Publisher{
		Store:              d.Store,
		TemplateExtensions: cfg.TemplateExtensions,
		Log:                log,
		Out:                d.Out,
	}
	if rep.Publication, err = publisher.Publish(ctx, rep.Project, rep.Manifest); err != nil {
		return rep, err
	}
	if cfg.PruneStale {
		if rep.Pruned, err = publisher.Prune(ctx, existing.Keys, rep.Publication); err != nil {
			return rep, err
		}
	}
	timer.Lap("publish")

	doc, err := template.Parse(rep.Publication.Template)
	if err != nil {
		return rep, fmt.Errorf("%s: %w", rep.Publication.TemplateKey, err)
	}
	resolver := &params.Resolver{
		Prompter:    d.Prompter,
		UseDefaults: cfg.UseDefaults,
		Overrides:   overrides,
		Log:         log,
	}
	rep.Parameters, err = resolver.Resolve(ctx, doc, params.Input{
		Project: rep.Project,
		Folder:  rep.Folder,
		Bucket:  d.Store.Bucket(),
	})
	if err != nil {
		return rep, err
	}
	timer.Lap("resolve")

	engine := &stack.Engine{
		Orchestrator: d.Orchestrator,
		Clock:        d.Clock,
		Interval:     cfg.PollInterval,
		MaxPolls:     cfg.MaxPolls,
		Timeout:      cfg.PollTimeout,
		Observer:     d.Observer,
		Log:          log,
	}
	rep.Result, err = engine.Converge(ctx, stack.Request{
		StackName:    rep.Project,
		Parameters:   rep.Parameters,
		TemplateURL:  rep.Publication.TemplateURL,
		Capabilities: cfg.Capabilities,
	})
	timer.Lap("converge")
	return rep, err
}

func (d *Deployer) projectName(ctx context.Context) (string, error) {
	if name := strings.TrimSpace(d.Config.ProjectName); name != "" {
		return name, nil
	}
	if d.Prompter == nil {
		return "", deployerr.Errorf(deployerr.Input, "project name is required")
	}
	line, err := d.Prompter.Line(ctx, "Enter project name: ")
	if err != nil {
		return "", deployerr.New(deployerr.Input, "read project name", err)
	}
	name := strings.TrimSuffix(line, "\n")
	if name == "" {
		return "", deployerr.Errorf(deployerr.Input, "project name is empty")
	}
	if strings.Contains(name, "/") {
		return "", deployerr.Errorf(deployerr.Input, "project name %q must not contain '/'", name)
	}
	return name, nil
}

func (d *Deployer) printf(format string, args ...any) {
	if d.Out != nil {
		fmt.Fprintf(d.Out, format, args...)
	}
}
