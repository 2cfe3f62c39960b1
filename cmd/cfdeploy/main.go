// main.go bootstraps cfdeploy: it builds the root Cobra command, binds Viper, and executes with signal-aware contexts.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/example/cfdeploy/internal/config"
	"github.com/example/cfdeploy/internal/deployerr"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	rootCmd := newRootCommand(os.Stdin, os.Stdout)
	err := rootCmd.ExecuteContext(ctx)
	handleError(os.Stderr, err)
	if err != nil {
		os.Exit(1)
	}
}

type globalOptions struct {
	logLevel   string
	configFile string
}

func newRootCommand(in io.Reader, out io.Writer) *cobra.Command {
	cfg := config.NewConfig()
	globals := &globalOptions{logLevel: "info"}
	cmd := &cobra.Command{
		Use:   "cfdeploy",
		Short: "Publish the newest artifact to S3 and converge its CloudFormation stack",
		Long: "cfdeploy finds the newest artifact archive, extracts it, uploads its files to a versioned bucket, " +
			"resolves the template parameters, and creates or updates the stack until it settles.",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDeploy(cmd.Context(), cfg, globals, in, out)
		},
	}
	cmd.SetIn(in)
	cmd.SetOut(out)
	cmd.PersistentFlags().StringVar(&globals.logLevel, "log-level", globals.logLevel, "Log level for cfdeploy output (debug, info, warn, error)")
	cmd.PersistentFlags().StringVar(&globals.configFile, "config", os.Getenv("CFDEPLOY_CONFIG"), "Config file (default: config.yaml under $XDG_CONFIG_HOME/cfdeploy, ~/.config/cfdeploy, or ~/.cfdeploy)")
	cfg.BindFlags(cmd.PersistentFlags())

	deployCmd := newDeployCommand(cfg, globals, in, out)
	inspectCmd := newInspectCommand(cfg, globals, out)
	cmd.AddCommand(deployCmd, inspectCmd, newEnvCommand(out), newVersionCommand(out))
	cmd.Example = `  # Deploy the newest zip in ~/Downloads as project "myapp"
  cfdeploy --bucket my-deploy-bucket --project myapp

  # Answer every parameter prompt yourself
  cfdeploy deploy --bucket my-deploy-bucket --use-defaults=false

  # Preview how the template's parameters would be resolved
  cfdeploy inspect --bucket my-deploy-bucket --project myapp`
	bindViper(cmd, globals)
	return cmd
}

func bindViper(root *cobra.Command, globals *globalOptions) {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.SetEnvPrefix("CFDEPLOY")
	v.AutomaticEnv()

	prev := root.PersistentPreRunE
	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		configureConfigFile(v, globals.configFile)
		if err := v.BindPFlags(cmd.Flags()); err != nil {
			return err
		}
		if err := readConfigFile(v, globals.configFile != ""); err != nil {
			return err
		}
		var applyErr error
		cmd.Flags().VisitAll(func(f *pflag.Flag) {
			if f.Changed || !v.IsSet(f.Name) || applyErr != nil {
				return
			}
			if err := setFlagFromViper(f, v.Get(f.Name)); err != nil {
				applyErr = fmt.Errorf("config value for --%s: %w", f.Name, err)
			}
		})
		if applyErr != nil {
			return applyErr
		}
		if prev != nil {
			return prev(cmd, args)
		}
		return nil
	}
}

// setFlagFromViper applies a config or environment value to a flag that was not set on the command line.
func setFlagFromViper(f *pflag.Flag, raw any) error {
	if list, ok := raw.([]any); ok {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			items := make([]string, 0, len(list))
			for _, item := range list {
				items = append(items, fmt.Sprintf("%v", item))
			}
			return sv.Replace(items)
		}
	}
	val := fmt.Sprintf("%v", raw)
	if val == "" {
		return nil
	}
	if sv, ok := f.Value.(pflag.SliceValue); ok {
		return sv.Replace(strings.Split(val, ","))
	}
	return f.Value.Set(val)
}

func configureConfigFile(v *viper.Viper, explicitPath string) {
	if explicitPath != "" {
		v.SetConfigFile(explicitPath)
		return
	}
	v.SetConfigName("config")
	for _, dir := range configSearchDirs() {
		v.AddConfigPath(dir)
	}
}

func readConfigFile(v *viper.Viper, strict bool) error {
	if err := v.ReadInConfig(); err != nil {
		var cfgErr viper.ConfigFileNotFoundError
		if errors.As(err, &cfgErr) && !strict {
			return nil
		}
		return err
	}
	return nil
}

func configSearchDirs() []string {
	added := make(map[string]struct{})
	var dirs []string
	add := func(path string) {
		if path == "" {
			return
		}
		if _, ok := added[path]; ok {
			return
		}
		added[path] = struct{}{}
		dirs = append(dirs, path)
	}
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		add(filepath.Join(xdg, "cfdeploy"))
	}
	if home, err := os.UserHomeDir(); err == nil && home != "" {
		add(filepath.Join(home, ".config", "cfdeploy"))
		add(filepath.Join(home, ".cfdeploy"))
	}
	return dirs
}

func handleError(w io.Writer, err error) {
	if err == nil || errors.Is(err, pflag.ErrHelp) {
		return
	}
	message := err.Error()
	switch {
	case errors.Is(err, context.Canceled):
		message = fmt.Sprintf("%s\nHint: the run was interrupted; remote stack operations already submitted keep running.", err)
	case errors.Is(err, context.DeadlineExceeded):
		message = fmt.Sprintf("%s\nHint: verify network connectivity to AWS.", err)
	default:
		if hint := hintFor(deployerr.KindOf(err)); hint != "" {
			message = fmt.Sprintf("%s: %s\nHint: %s", deployerr.KindOf(err), err, hint)
		}
	}
	fmt.Fprintf(w, "Error: %s\n", message)
}

func hintFor(kind deployerr.Kind) string {
	switch kind {
	case deployerr.Discovery:
		return "build the artifact first or point --dir at the folder that holds it."
	case deployerr.Extraction:
		return "the archive may be incomplete; rebuild it and retry."
	case deployerr.Schema:
		return "the template needs a top-level Parameters object and a recognized extension (--template-ext)."
	case deployerr.Input:
		return "pass --project and --param/--parameter-file to run without prompts."
	case deployerr.RemoteState:
		return "check AWS credentials, --region, and S3/CloudFormation permissions."
	case deployerr.ConvergenceTimeout:
		return "the stack is still converging; raise --max-polls/--poll-timeout or watch it in the console."
	default:
		return ""
	}
}
