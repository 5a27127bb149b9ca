package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var columnsCmd = &cobra.Command{
	Use:   "columns [table...]",
	Short: "Show the aggregation rules, or the data columns of given tables",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()
		rc, err := ruleCache(st)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(args) > 0 {
			for _, tbl := range args {
				cols, err := rc.Columns(cmd.Context(), tbl)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%s:\n", tbl)
				for _, c := range cols {
					fmt.Fprintf(out, "  - %s\n", c)
				}
			}
			return nil
		}
		rs, err := rc.Rules(cmd.Context())
		if err != nil {
			return err
		}
		for _, r := range rs {
			fmt.Fprintf(out, "%s\t%s\n", r.Column, r.Op)
		}
		fmt.Fprintf(out, "(weight column: %s)\n", rc.WeightColumn())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(columnsCmd)
}
