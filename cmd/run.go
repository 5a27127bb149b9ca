package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/johnharveymath/oxcovid19db/internal/job"
	"github.com/johnharveymath/oxcovid19db/internal/logger"
	"github.com/johnharveymath/oxcovid19db/internal/merge"
)

var runNoSave bool

var runCmd = &cobra.Command{
	Use:   "run <job.yaml>",
	Short: "Execute a merge job file and record the run in it",
	Long: `Run executes a YAML job:

  name: england
  how: left
  left:
    query: SELECT * FROM epidemiology WHERE source = 'GBR_PHE'
  right:
    file: mobility.csv
  output: out/england.xlsx
  summary: true

Relative paths resolve against the job file's directory.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		j, err := job.Load(args[0])
		if err != nil {
			return err
		}
		opt, err := parseOptions()
		if err != nil {
			return err
		}
		st, err := openStore()
		if err != nil {
			return err
		}
		defer st.Close()
		rc, err := ruleCache(st)
		if err != nil {
			return err
		}

		res, runErr := j.Run(cmd.Context(), job.Deps{
			Merger:  merge.New(rc, logger.L()),
			Querier: st,
			Parse:   opt,
		})
		if !runNoSave {
			if err := j.Save(); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "⚠ Warning: could not record run: %v\n", err)
			}
		}
		if runErr != nil {
			return runErr
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "✓ %s: %d rows in %s (run %s)\n", j.Name, res.Table.Len(), res.Duration.Round(time.Millisecond), res.ID)
		if res.Output != "" {
			fmt.Fprintf(out, "  output: %s\n", res.Output)
		} else {
			fmt.Fprint(out, res.Table.Markdown(20))
		}
		if res.Report != nil {
			fmt.Fprintln(out, res.Report.Markdown())
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().BoolVar(&runNoSave, "no-save", false, "do not append the run to the job's history")
}
