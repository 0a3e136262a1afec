package main

import (
	"context"
	"io"

	"github.com/gonzalop/ftpc"
	"github.com/gonzalop/ftpc/internal/config"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

// app holds what the subcommands share for one invocation.
type app struct {
	stdout io.Writer
	stderr io.Writer

	// fs backs both the config file lookup and local operands
	fs afero.Fs

	loader  *config.Loader
	cfgFile string
	cfg     *config.Config
	logger  *logrus.Logger

	// dialed is set once the control connection is attempted; earlier
	// failures are usage errors
	dialed bool
}

func newApp(stdout, stderr io.Writer, fs afero.Fs) *app {
	logger := logrus.New()
	logger.SetOutput(stderr)
	logger.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})

	return &app{
		stdout: stdout,
		stderr: stderr,
		fs:     fs,
		loader: config.NewLoader(fs),
		logger: logger,
	}
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "ftpc",
		Short: "Run one FTP operation in passive mode",
		Long: `ftpc connects to an FTP server, logs in, negotiates binary stream
transfers and runs exactly one operation. Every reply from the server is
echoed to standard output; the first error reply ends the session.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError{err: err}
	})

	flags := root.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "config file (default "+config.DefaultFile+")")
	flags.Duration(config.KeyTimeout, config.DefaultTimeout, "Timeout for connecting and for each read or write, 0 to disable")
	flags.BoolP(config.KeyVerbose, "v", false, "Log every command and reply")
	flags.BoolP(config.KeyQuiet, "q", false, "Only log errors")
	flags.String(config.KeyLimitRate, "0", "Limit data transfer rate in bytes per second, e.g. 512k or 1MiB")
	flags.Bool(config.KeyProgress, false, "Show transfer progress on stderr")
	flags.Bool(config.KeyKeepSource, false, "Keep the local file after an upload with mv")

	for _, c := range operationCmds {
		root.AddCommand(a.operationCmd(c.use, c.short))
	}
	return root
}

// setup resolves the configuration once flags are parsed.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	if err := a.loader.BindFlags(cmd.Root().PersistentFlags()); err != nil {
		return usageError{err: err}
	}
	cfg, err := a.loader.Load(a.cfgFile)
	if err != nil {
		return usageError{err: err}
	}
	a.cfg = cfg

	switch {
	case cfg.Verbose:
		a.logger.SetLevel(logrus.DebugLevel)
	case cfg.Quiet:
		a.logger.SetLevel(logrus.ErrorLevel)
	default:
		a.logger.SetLevel(logrus.InfoLevel)
	}
	if cfg.File != "" {
		a.logger.WithField("file", cfg.File).Debug("loaded config file")
	}
	return nil
}

// operationCmds are the subcommands; the first word of use is the verb.
var operationCmds = []struct {
	use   string
	short string
}{
	{"ls URL", "List a remote directory"},
	{"cp SOURCE DEST", "Copy a file to or from the server"},
	{"mv SOURCE DEST", "Move a file to or from the server"},
	{"rm URL", "Delete a remote file"},
	{"mkdir URL", "Create a remote directory"},
	{"rmdir URL", "Remove a remote directory"},
}

func (a *app) operationCmd(use, short string) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			verb, err := ftpc.ParseVerb(cmd.Name())
			if err != nil {
				return usageError{err: err}
			}
			return a.runOperation(cmd.Context(), verb, args)
		},
	}
}

// run executes the command line and returns the process exit status.
func (a *app) run(ctx context.Context, args []string) int {
	root := a.rootCmd()
	root.SetArgs(args)

	err := root.ExecuteContext(ctx)
	if err == nil {
		return exitOK
	}

	a.logger.Error(err)
	code := a.exitCode(err)
	if code == exitUsage {
		a.logger.Error("run 'ftpc --help' for usage")
	}
	return code
}
