package cmd

import (
	"github.com/spf13/cobra"
)

var (
	queryOutput  string
	queryPreview int
)

var queryCmd = &cobra.Command{
	Use:   "query <sql> [args...]",
	Short: "Run a query against the OxCOVID19 database",
	Long: `Run a query through the retrying store and print or save the result.
Extra arguments bind to $1, $2, ... placeholders.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()
		params := make([]any, 0, len(args)-1)
		for _, a := range args[1:] {
			params = append(params, a)
		}
		t, err := st.Query(cmd.Context(), args[0], params...)
		if err != nil {
			return err
		}
		return emit(cmd, t, queryOutput, queryPreview)
	},
}

func init() {
	rootCmd.AddCommand(queryCmd)
	queryCmd.Flags().StringVarP(&queryOutput, "output", "o", "", "write the result to a file (.csv, .tsv, .xlsx, .json, .md)")
	queryCmd.Flags().IntVar(&queryPreview, "preview", 20, "rows printed when no --output is given (0 = all)")
}
