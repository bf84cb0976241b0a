// Package cli implements the easyupdate command-line interface.
package cli

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/extsync/easyupdate/internal/config"
	"github.com/extsync/easyupdate/pkg/buildinfo"
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger
	Out    io.Writer // Command output (DOT, tables, status lines)
	Err    io.Writer // Spinner and styled status messages

	flags struct {
		verbose bool
		debug   bool
		config  string
		metrics string
		timeout time.Duration
	}

	cfg     config.Config
	runID   string
	metrics *metrics
	cancel  context.CancelFunc
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: newLogger(w, level),
		Out:    os.Stdout,
		Err:    w,
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RunID identifies the current invocation in logs and reports.
func (c *CLI) RunID() string { return c.runID }

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "easyupdate",
		Short: "easyupdate refreshes the extension lists of EasyBuild recipes",
		Long: `easyupdate reads an EasyBuild easyconfig that bundles R or Python
packages, looks every extension up on CRAN, Bioconductor or PyPI, and
writes a sibling <recipe>.update file with updated versions and any missing
dependencies. Everything outside exts_list is left byte for byte.`,
		Version:           buildinfo.Version,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: c.setup,
	}

	root.SetVersionTemplate(buildinfo.Template())

	pf := root.PersistentFlags()
	pf.BoolVarP(&c.flags.verbose, "verbose", "v", false, "print a status line for every package")
	pf.BoolVar(&c.flags.debug, "debug", false, "enable debug logging")
	pf.StringVar(&c.flags.config, "config", "", "config file (default $XDG_CONFIG_HOME/easyupdate/config.yaml)")
	pf.StringVar(&c.flags.metrics, "metrics", "", "write Prometheus metrics to this file on exit")
	pf.DurationVar(&c.flags.timeout, "timeout", 0, "abort after this long (0 disables)")
	pf.Int("workers", 0, "concurrent registry lookups (default from config)")

	root.AddCommand(c.updateCommand())
	root.AddCommand(c.depGraphCommand())
	root.AddCommand(c.descriptionCommand())
	root.AddCommand(c.searchCRANCommand())
	root.AddCommand(c.searchPyPICommand())
	root.AddCommand(c.completionCommand())

	return root
}

// setup loads the configuration and prepares the command context.
func (c *CLI) setup(cmd *cobra.Command, _ []string) error {
	if c.flags.debug {
		c.SetLogLevel(LogDebug)
	}

	v, err := config.New(c.flags.config)
	if err != nil {
		return err
	}
	bindFlags(v, cmd)
	if c.cfg, err = config.Load(v); err != nil {
		return err
	}

	c.runID = uuid.NewString()
	logger := c.Logger.With("run", c.runID[:8])
	logger.Debug("configuration loaded", "file", v.ConfigFileUsed(), "workers", c.cfg.Workers, "robot_paths", c.cfg.RobotPaths)

	if c.flags.metrics != "" {
		c.metrics = newMetrics()
		c.metrics.install()
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if c.cfg.Timeout > 0 {
		ctx, c.cancel = context.WithTimeout(ctx, c.cfg.Timeout)
	}
	cmd.SetContext(withLogger(ctx, logger))
	return nil
}

// bindFlags lets command-line flags override configuration keys.
func bindFlags(v *viper.Viper, cmd *cobra.Command) {
	for key, flag := range map[string]string{
		"timeout":         "timeout",
		"drop_duplicates": "drop-duplicates",
		"workers":         "workers",
	} {
		if f := cmd.Flags().Lookup(flag); f != nil && f.Changed {
			_ = v.BindPFlag(key, f)
		}
	}
}

// Close releases the command context and writes the metrics file.
func (c *CLI) Close() error {
	if c.cancel != nil {
		c.cancel()
	}
	if c.metrics == nil {
		return nil
	}
	defer c.metrics.uninstall()
	if err := c.metrics.write(c.flags.metrics); err != nil {
		return err
	}
	c.Logger.Debug("metrics written", "path", c.flags.metrics)
	return nil
}
