package cli

import (
	"context"
	"io"
	"strings"

	"github.com/specialistvlad/tempogrid/internal/app"
	"github.com/spf13/cobra"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

func usageError(err error) error {
	return &ExitError{Code: 2, Message: err.Error()}
}

// globalOptions are the persistent flags shared by every command.
type globalOptions struct {
	configPath  string
	logLevel    string
	logFormat   string
	backend     string
	metricsPort int
}

// config loads the config file and applies the flags the user set on top.
func (o *globalOptions) config(cmd *cobra.Command) (*app.Config, error) {
	cfg, err := app.LoadConfigFile(o.configPath)
	if err != nil {
		return nil, usageError(err)
	}
	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.LogLevel = strings.ToLower(o.logLevel)
	}
	if flags.Changed("log-format") {
		cfg.LogFormat = strings.ToLower(o.logFormat)
	}
	if flags.Changed("backend") {
		cfg.Backend = o.backend
	}
	if flags.Changed("metrics-port") {
		cfg.MetricsPort = o.metricsPort
	}
	validated, err := app.NewConfig(cfg)
	if err != nil {
		return nil, usageError(err)
	}
	return validated, nil
}

// newApp builds the application with logs going to the command's stderr.
func (o *globalOptions) newApp(cmd *cobra.Command) (*app.App, error) {
	cfg, err := o.config(cmd)
	if err != nil {
		return nil, err
	}
	return app.NewApp(cmd.ErrOrStderr(), cfg), nil
}

// NewRootCommand assembles the command tree.
func NewRootCommand() *cobra.Command {
	opts := &globalOptions{}
	def := app.DefaultConfig()

	root := &cobra.Command{
		Use:   "tempogrid",
		Short: "Tempogrid - temporal feature engineering over event sets.",
		Long: `Tempogrid evaluates graphs of temporal operators over indexed event data.

Graphs are HCL files (or directories of them) naming their inputs, operators
and outputs. Event data is read from and written to Arrow IPC or Parquet files.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError(err)
	})

	pf := root.PersistentFlags()
	pf.StringVarP(&opts.configPath, "config", "c", "", "Path to a YAML config file.")
	pf.StringVar(&opts.logLevel, "log-level", def.LogLevel, "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	pf.StringVar(&opts.logFormat, "log-format", def.LogFormat, "Log output format. Options: 'text' or 'json'.")
	pf.StringVar(&opts.backend, "backend", def.Backend, "Execution backend.")
	pf.IntVar(&opts.metricsPort, "metrics-port", def.MetricsPort, "Port for the /metrics and /health server. 0 is disabled.")

	root.AddCommand(
		newOpsCommand(opts),
		newValidateCommand(opts),
		newRunCommand(opts),
	)
	return root
}

// Execute runs the command tree against args.
func Execute(ctx context.Context, args []string, outW, errW io.Writer) error {
	root := NewRootCommand()
	root.SetArgs(args)
	root.SetOut(outW)
	root.SetErr(errW)
	return root.ExecuteContext(ctx)
}
