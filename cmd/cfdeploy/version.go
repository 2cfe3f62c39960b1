// version.go prints build metadata for 'cfdeploy version'.
package main

import (
	"fmt"
	"io"

	"github.com/example/cfdeploy/internal/version"
	"github.com/spf13/cobra"
)

func newVersionCommand(out io.Writer) *cobra.Command {
	var short bool
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print the cfdeploy version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			info := version.Get()
			if short {
				fmt.Fprintln(out, info.Version)
				return nil
			}
			fmt.Fprintln(out, info.String())
			return nil
		},
	}
	cmd.Flags().BoolVar(&short, "short", false, "Print only the version number")
	return cmd
}
