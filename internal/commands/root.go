package commands

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/cleared-dev/bankfeed/internal/buildinfo"
	"github.com/cleared-dev/bankfeed/internal/config"
	"github.com/cleared-dev/bankfeed/internal/logger"
)

// globalOptions holds the persistent flags shared by every subcommand.
type globalOptions struct {
	repo       string
	configPath string
	v          *viper.Viper
}

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	opts := &globalOptions{v: config.NewViper()}

	rootCmd := &cobra.Command{
		Use:     "bankfeed",
		Short:   "Import bank exports without duplicating transactions",
		Version: buildinfo.String(),
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage:      true,
		PersistentPreRunE: opts.setupLogging,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&opts.repo, "repo", ".", "workspace directory")
	pf.StringVar(&opts.configPath, "config", "", "config file (default: <repo>/"+config.FileName+")")
	pf.String("log-level", "info", "log level (debug, info, warn, error)")
	pf.String("log-format", logger.FormatConsole, "log format (console, json)")
	_ = opts.v.BindPFlag("log.level", pf.Lookup("log-level"))
	_ = opts.v.BindPFlag("log.format", pf.Lookup("log-format"))

	rootCmd.AddCommand(newInitCommand())
	rootCmd.AddCommand(newImportCommand(opts))
	rootCmd.AddCommand(newRecentCommand(opts))
	rootCmd.AddCommand(newServeCommand(opts))

	return rootCmd
}

func (o *globalOptions) setupLogging(cmd *cobra.Command, _ []string) error {
	log, err := logger.New(o.v.GetString("log.level"), o.v.GetString("log.format"), cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	cmd.SetContext(logger.WithContext(cmd.Context(), log))
	return nil
}
