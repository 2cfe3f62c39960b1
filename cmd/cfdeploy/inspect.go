// inspect.go implements 'cfdeploy inspect', a dry preview of how the newest artifact would be deployed.
package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/example/cfdeploy/internal/config"
	"github.com/example/cfdeploy/internal/logging"
	"github.com/example/cfdeploy/internal/params"
	"github.com/example/cfdeploy/internal/pipeline"
	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"
)

func newInspectCommand(cfg *config.Config, globals *globalOptions, out io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect",
		Short: "Preview the newest artifact and its parameter resolution without touching AWS",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Validate(); err != nil {
				return err
			}
			log, err := logging.New(globals.logLevel)
			if err != nil {
				return err
			}
			plan, err := pipeline.Inspect(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			return writePlan(out, plan)
		},
	}
}

func writePlan(out io.Writer, plan pipeline.Plan) error {
	fmt.Fprintf(out, "Archive:  %s\n", plan.Archive)
	fmt.Fprintf(out, "Folder:   %s\n", plan.Folder)
	fmt.Fprintf(out, "Files:    %d\n", len(plan.Files))
	fmt.Fprintf(out, "Template: %s\n", plan.TemplateName)
	fmt.Fprintf(out, "URL:      %s\n\n", plan.TemplateURL)

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "PARAMETER\tTYPE\tSOURCE\tVALUE\tDESCRIPTION")
	for _, p := range plan.Parameters {
		value := p.Value
		if p.Source == params.SourcePrompt {
			value = "<asked at deploy>"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", p.Name, dash(p.Type), p.Source, dash(value), dash(trimToWidth(p.Description, descriptionWidth)))
	}
	return tw.Flush()
}

const descriptionWidth = 48

// trimToWidth cuts s to width terminal cells, ending in an ellipsis when cut.
func trimToWidth(s string, width int) string {
	s = strings.Join(strings.Fields(s), " ")
	if runewidth.StringWidth(s) <= width {
		return s
	}
	return runewidth.Truncate(s, width, "…")
}

func dash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
