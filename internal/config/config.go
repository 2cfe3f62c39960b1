// File: internal/config/config.go
// Brief: Deployment options and their flag plumbing.

// Package config defines the runtime options shared by cfdeploy's commands,
// translating Cobra/Viper flag values into a strongly typed struct that the
// pipeline consumes. Nothing here is process-global; callers build a Config
// and hand it to the components that need it.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// Config holds every option a deployment run honours.
type Config struct {
	Region             string
	BucketName         string
	ScanDirectory      string
	UseDefaults        bool
	ProjectName        string
	ArchiveExtension   string
	TemplateExtensions []string
	Capabilities       []string
	PollInterval       time.Duration
	MaxPolls           int
	PollTimeout        time.Duration
	ParameterFile      string
	ParameterArgs      []string
	PruneStale         bool
	ColorMode          string
}

const (
	DefaultRegion       = "ap-southeast-1"
	DefaultPollInterval = 2 * time.Second
	DefaultCapability   = "CAPABILITY_NAMED_IAM"
)

// NewConfig returns Config with defaults applied.
func NewConfig() *Config {
	return &Config{
		Region:             DefaultRegion,
		ScanDirectory:      "~/Downloads",
		UseDefaults:        true,
		ArchiveExtension:   ".zip",
		TemplateExtensions: []string{".json"},
		Capabilities:       []string{DefaultCapability},
		PollInterval:       DefaultPollInterval,
		ColorMode:          "auto",
	}
}

// AddFlags binds configuration flags to the provided Cobra command.
func (c *Config) AddFlags(cmd *cobra.Command) []string {
	return c.BindFlags(cmd.Flags())
}

// BindFlags attaches deploy flags to an arbitrary FlagSet and returns the flag names.
func (c *Config) BindFlags(fs *pflag.FlagSet) []string {
	var names []string
	fs.StringVar(&c.Region, "region", c.Region, "AWS region for the bucket and the stack")
	names = append(names, "region")
	fs.StringVar(&c.BucketName, "bucket", c.BucketName, "Versioned S3 bucket that receives artifact files")
	names = append(names, "bucket")
	fs.StringVarP(&c.ScanDirectory, "dir", "d", c.ScanDirectory, "Directory scanned for the newest artifact archive")
	names = append(names, "dir")
	fs.BoolVar(&c.UseDefaults, "use-defaults", c.UseDefaults, "Let the stack backend apply template defaults instead of prompting")
	names = append(names, "use-defaults")
	fs.StringVarP(&c.ProjectName, "project", "p", c.ProjectName, "Project name (stack name and key prefix); prompted when empty")
	names = append(names, "project")
	fs.StringVar(&c.ArchiveExtension, "archive-ext", c.ArchiveExtension, "Extension of artifact archives")
	names = append(names, "archive-ext")
	fs.StringSliceVar(&c.TemplateExtensions, "template-ext", c.TemplateExtensions, "Extensions that identify the stack template inside the artifact")
	names = append(names, "template-ext")
	fs.StringSliceVar(&c.Capabilities, "capability", c.Capabilities, "Capabilities acknowledged on create and update")
	names = append(names, "capability")
	fs.DurationVar(&c.PollInterval, "poll-interval", c.PollInterval, "Delay between stack status polls")
	names = append(names, "poll-interval")
	fs.IntVar(&c.MaxPolls, "max-polls", c.MaxPolls, "Give up after this many re-polls (0 = no limit)")
	names = append(names, "max-polls")
	fs.DurationVar(&c.PollTimeout, "poll-timeout", c.PollTimeout, "Give up waiting after this long (0 = no limit)")
	names = append(names, "poll-timeout")
	fs.StringVar(&c.ParameterFile, "parameter-file", c.ParameterFile, "YAML or JSON map of parameter values answered without prompting")
	names = append(names, "parameter-file")
	fs.StringArrayVar(&c.ParameterArgs, "param", c.ParameterArgs, "Parameter value as KEY=VALUE (repeatable, wins over --parameter-file)")
	names = append(names, "param")
	fs.BoolVar(&c.PruneStale, "prune", c.PruneStale, "Delete previously published objects that are not part of this artifact")
	names = append(names, "prune")
	fs.StringVar(&c.ColorMode, "color", c.ColorMode, "Colorize status output: auto, always, never")
	names = append(names, "color")
	return names
}

// Validate normalises values and rejects unusable combinations.
func (c *Config) Validate() error {
	c.Region = strings.TrimSpace(c.Region)
	if c.Region == "" {
		return fmt.Errorf("region is required")
	}
	c.BucketName = strings.TrimSpace(c.BucketName)
	if c.BucketName == "" {
		return fmt.Errorf("bucket is required (set --bucket or CFDEPLOY_BUCKET)")
	}
	dir := strings.TrimSpace(c.ScanDirectory)
	if dir == "" {
		return fmt.Errorf("scan directory is required")
	}
	expanded, err := homedir.Expand(dir)
	if err != nil {
		return fmt.Errorf("expand scan directory: %w", err)
	}
	c.ScanDirectory = expanded
	c.ProjectName = strings.TrimSpace(c.ProjectName)
	if strings.Contains(c.ProjectName, "/") {
		return fmt.Errorf("project name %q must not contain '/'", c.ProjectName)
	}
	c.ArchiveExtension = normalizeExt(c.ArchiveExtension)
	if c.ArchiveExtension == "" {
		return fmt.Errorf("archive extension is required")
	}
	var exts []string
	for _, ext := range c.TemplateExtensions {
		if ext = normalizeExt(ext); ext != "" {
			exts = append(exts, ext)
		}
	}
	if len(exts) == 0 {
		return fmt.Errorf("at least one template extension is required")
	}
	c.TemplateExtensions = exts
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll interval must be positive, got %s", c.PollInterval)
	}
	if c.MaxPolls < 0 {
		return fmt.Errorf("max polls must not be negative")
	}
	if c.PollTimeout < 0 {
		return fmt.Errorf("poll timeout must not be negative")
	}
	switch strings.ToLower(strings.TrimSpace(c.ColorMode)) {
	case "", "auto":
		c.ColorMode = "auto"
	case "always", "never":
		c.ColorMode = strings.ToLower(strings.TrimSpace(c.ColorMode))
	default:
		return fmt.Errorf("invalid --color %q (expected auto, always, or never)", c.ColorMode)
	}
	return nil
}

// DeploymentPath is the key prefix under which this artifact's files live.
func DeploymentPath(project, folder string) string {
	return project + "/" + folder
}

func normalizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimSpace(ext))
	if ext == "" {
		return ""
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return ext
}
