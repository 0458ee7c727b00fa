// Package cmd implements the kitsunedns command-line interface.
package cmd

import (
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// rootCommand carries the state shared by every subcommand.
type rootCommand struct {
	cmd    *cobra.Command
	logger *logrus.Logger
	fs     afero.Fs

	verbose        bool
	quiet          bool
	noColor        bool
	configFilePath string
}

func newRootCommand() *rootCommand {
	c := &rootCommand{
		logger: &logrus.Logger{
			Out:       os.Stderr,
			Formatter: new(logrus.TextFormatter),
			Hooks:     make(logrus.LevelHooks),
			Level:     logrus.InfoLevel,
		},
		fs: afero.NewOsFs(),
	}

	rootCmd := &cobra.Command{
		Use:           "kitsunedns",
		Short:         "An iterative DNS resolver with a lookaside cache",
		Long:          "KitsuneDNS resolves names by walking the delegation chain down from the root servers itself, caching every answer for the life of the process.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			c.setupLogging()
			return nil
		},
	}
	rootCmd.PersistentFlags().AddFlagSet(c.rootCmdPersistentFlagSet())
	rootCmd.AddCommand(getCmdServe(c), getCmdResolve(c), getCmdVersion(c))

	c.cmd = rootCmd
	return c
}

func (c *rootCommand) setupLogging() {
	if c.verbose {
		c.logger.SetLevel(logrus.DebugLevel)
	}
	if c.quiet {
		c.logger.SetLevel(logrus.WarnLevel)
	}
	if c.noColor || !isatty.IsTerminal(os.Stderr.Fd()) {
		c.logger.SetFormatter(&logrus.TextFormatter{DisableColors: true})
		color.NoColor = true
	}
}

func (c *rootCommand) rootCmdPersistentFlagSet() *pflag.FlagSet {
	flags := pflag.NewFlagSet("", pflag.ContinueOnError)
	flags.BoolVarP(&c.verbose, "verbose", "v", false, "enable verbose logging")
	flags.BoolVarP(&c.quiet, "quiet", "q", false, "disable logging below the warning level")
	flags.BoolVar(&c.noColor, "no-color", false, "disable colored output")
	flags.StringVarP(&c.configFilePath, "config", "c", "", "JSON config file")
	return flags
}

// Execute runs the root command and exits the process on error.
func Execute() {
	c := newRootCommand()
	if err := c.cmd.Execute(); err != nil {
		c.logger.Error(err.Error())
		os.Exit(1)
	}
}
