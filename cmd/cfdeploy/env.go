// env.go implements 'cfdeploy env', listing the environment variables that shape a run.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/example/cfdeploy/internal/envcatalog"
	"github.com/spf13/cobra"
	"sigs.k8s.io/yaml"
)

type envRow struct {
	Category    string `json:"category"`
	Variable    string `json:"variable"`
	Value       string `json:"value,omitempty"`
	Description string `json:"description"`
}

var secretVariables = map[string]bool{
	"AWS_SECRET_ACCESS_KEY": true,
	"AWS_SESSION_TOKEN":     true,
}

func envRows(category string, onlySet bool) []envRow {
	var out []envRow
	for _, v := range envcatalog.Catalog() {
		if category != "" && !strings.EqualFold(v.Category, category) {
			continue
		}
		value := ""
		if !v.Dynamic {
			value = strings.TrimSpace(os.Getenv(v.Name))
		}
		if value != "" && secretVariables[v.Name] {
			value = "<set>"
		}
		if onlySet && value == "" {
			continue
		}
		out = append(out, envRow{Category: v.Category, Variable: v.Name, Value: value, Description: v.Description})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Category != out[j].Category {
			return out[i].Category < out[j].Category
		}
		return out[i].Variable < out[j].Variable
	})
	return out
}

func newEnvCommand(out io.Writer) *cobra.Command {
	var format, category string
	var onlySet bool
	cmd := &cobra.Command{
		Use:   "env",
		Short: "Show environment variables used by cfdeploy",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rows := envRows(strings.TrimSpace(category), onlySet)
			switch strings.ToLower(strings.TrimSpace(format)) {
			case "", "table":
				tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "CATEGORY\tVARIABLE\tVALUE\tDESCRIPTION")
				for _, row := range rows {
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", row.Category, row.Variable, row.Value, row.Description)
				}
				return tw.Flush()
			case "json":
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(rows)
			case "yaml", "yml":
				b, err := yaml.Marshal(rows)
				if err != nil {
					return err
				}
				_, err = out.Write(b)
				return err
			default:
				return fmt.Errorf("unsupported --format %q (expected table, json, or yaml)", format)
			}
		},
	}
	cmd.Flags().StringVar(&format, "format", "table", "Output format: table, json, yaml")
	cmd.Flags().StringVar(&category, "category", "", "Filter to a category (case-insensitive)")
	cmd.Flags().BoolVar(&onlySet, "set", false, "Show only variables with a non-empty value")
	return cmd
}
