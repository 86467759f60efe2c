package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"cdrcli/internal/cdr"
)

func newDateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "date <file>",
		Short: "파일명에서 업무일자 확인",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			date, err := cdr.ResolveBusinessDate(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "business date: %s\nfile date:     %s\nreport code:   %s\n",
				date, date.Nominal.Format("2006-01-02"), date.Code())
			return nil
		},
	}
}
