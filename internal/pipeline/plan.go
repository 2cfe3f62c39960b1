// File: internal/pipeline/plan.go
// Brief: Read-only preview of how an artifact's parameters would resolve.

package pipeline

import (
	"context"
	"os"
	"strings"

	"github.com/example/cfdeploy/internal/artifact"
	"github.com/example/cfdeploy/internal/config"
	"github.com/example/cfdeploy/internal/deployerr"
	"github.com/example/cfdeploy/internal/objectstore"
	"github.com/example/cfdeploy/internal/params"
	"github.com/example/cfdeploy/internal/template"
	"github.com/go-logr/logr"
)

const placeholderProject = "<project>"

// PlannedParameter is one row of a plan.
type PlannedParameter struct {
	Name        string
	Type        string
	Description string
	Source      params.Source
	// Value is set for injected and override sources, and for defaults.
	Value string
}

// Plan is the preview produced by Inspect.
type Plan struct {
	Archive      string
	Folder       string
	Files        []string
	TemplateName string
	TemplateURL  string
	Parameters   []PlannedParameter
}

// Inspect locates and unpacks the newest artifact into a scratch directory and
// classifies every template parameter. It makes no remote calls and prompts
// no one.
func Inspect(ctx context.Context, cfg *config.Config, log logr.Logger) (Plan, error) {
	var plan Plan
	if err := ctx.Err(); err != nil {
		return plan, err
	}
	overrides, err := params.LoadOverrides(cfg.ParameterFile, cfg.ParameterArgs)
	if err != nil {
		return plan, deployerr.New(deployerr.Input, "load parameter overrides", err)
	}
	if plan.Archive, err = artifact.Locate(cfg.ScanDirectory, cfg.ArchiveExtension); err != nil {
		return plan, err
	}
	plan.Folder = artifact.FolderName(plan.Archive)

	scratch, err := os.MkdirTemp("", "cfdeploy-inspect-")
	if err != nil {
		return plan, deployerr.New(deployerr.Extraction, "create scratch directory", err)
	}
	defer os.RemoveAll(scratch)
	manifest, err := artifact.Extract(plan.Archive, scratch, log.V(1))
	if err != nil {
		return plan, err
	}
	plan.Files = manifest.Names()

	project := strings.TrimSpace(cfg.ProjectName)
	if project == "" {
		project = placeholderProject
	}
	entry, err := objectstore.TemplateEntry(manifest, cfg.TemplateExtensions)
	if err != nil {
		return plan, err
	}
	data, err := os.ReadFile(entry.Path)
	if err != nil {
		return plan, deployerr.New(deployerr.Extraction, "read template", err)
	}
	doc, err := template.Parse(data)
	if err != nil {
		return plan, err
	}
	plan.TemplateName = entry.Name
	plan.TemplateURL = objectstore.ObjectURL(cfg.BucketName, cfg.Region, objectstore.ProjectKey(project, entry.Name))

	resolver := &params.Resolver{UseDefaults: cfg.UseDefaults, Overrides: overrides}
	for _, p := range doc.Parameters {
		row := PlannedParameter{Name: p.Name, Type: p.Type, Description: p.Description, Source: resolver.Classify(p)}
		switch row.Source {
		case params.SourceDefault:
			row.Value = template.FormatDefault(p.Default)
		case params.SourceInjected:
			if p.Name == params.DeploymentBucketParam {
				row.Value = cfg.BucketName
			} else {
				row.Value = config.DeploymentPath(project, plan.Folder)
			}
		case params.SourceOverride:
			row.Value = overrides[p.Name]
		}
		plan.Parameters = append(plan.Parameters, row)
	}
	return plan, nil
}
