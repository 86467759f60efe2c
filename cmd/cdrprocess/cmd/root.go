package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"cdrcli/internal/config"
	"cdrcli/pkg/contracts"
)

// options are the flags shared by every command
type options struct {
	configPath string
	profile    string
}

// NewRootCmd builds the command tree
func NewRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   config.AppName,
		Short: "일일 CDR 미통화 리포트 생성",
		Long: `cdrprocess - daily CDR no-answer report

Loads one day's call detail export into a staging table, writes the
no-answer report beside the input, appends the day to the ledger and
drops the staging table.

Configuration comes from config.yaml (or --config) and CDR_* variables.`,
		Version:       contracts.GetFullVersionString(),
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file (default: config.yaml or configs/config.yaml)")
	root.PersistentFlags().StringVar(&opts.profile, "profile", "", "connection profile name in the settings cache")

	root.AddCommand(
		newRunCmd(opts),
		newSettingsCmd(opts),
		newDateCmd(),
	)
	return root
}

// Execute runs the CLI with ctx
func Execute(ctx context.Context) error {
	return NewRootCmd().ExecuteContext(ctx)
}

// load reads configuration and applies the shared flag overrides
func (o *options) load() (*config.Config, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, err
	}
	if o.profile != "" {
		cfg.Settings.Profile = o.profile
	}
	return cfg, nil
}
