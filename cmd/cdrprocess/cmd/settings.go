package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"cdrcli/internal/infrastructure"
	"cdrcli/internal/settings"
)

func newSettingsCmd(opts *options) *cobra.Command {
	settingsCmd := &cobra.Command{
		Use:   "settings",
		Short: "접속 설정 관리",
	}

	var asJSON bool
	show := &cobra.Command{
		Use:   "show",
		Short: "현재 접속 프로필 표시 (계정 정보 마스킹)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.load()
			if err != nil {
				return err
			}
			logger, err := infrastructure.InitializeLogger(cfg.Logging)
			if err != nil {
				return err
			}
			defer infrastructure.CloseLogFile()

			profile, err := settings.Bootstrap(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}

			masked := profile.Masked()
			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(masked)
			}
			fmt.Fprintf(out, "profile:  %s\n", masked.Name)
			fmt.Fprintf(out, "driver:   %s\n", masked.Driver)
			fmt.Fprintf(out, "host:     %s\n", masked.Host)
			fmt.Fprintf(out, "port:     %d\n", masked.Port)
			fmt.Fprintf(out, "database: %s\n", masked.Database)
			fmt.Fprintf(out, "user:     %s\n", masked.User)
			if profile.Password != "" {
				fmt.Fprintf(out, "password: %s\n", masked.Password)
			}
			return nil
		},
	}
	show.Flags().BoolVar(&asJSON, "json", false, "JSON 출력")

	settingsCmd.AddCommand(show)
	return settingsCmd
}
