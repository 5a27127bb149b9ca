package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/johnharveymath/oxcovid19db/internal/analysis"
	"github.com/johnharveymath/oxcovid19db/internal/job"
	"github.com/johnharveymath/oxcovid19db/internal/logger"
	"github.com/johnharveymath/oxcovid19db/internal/merge"
)

var (
	mergeHow        string
	mergeOutput     string
	mergeSummary    bool
	mergeLeftQuery  string
	mergeRightQuery string
	mergeLeftSheet  string
	mergeRightSheet string
	mergePreview    int
)

var mergeCmd = &cobra.Command{
	Use:   "merge [left-file] [right-file]",
	Short: "Merge two tables on their common ancestor regions",
	Long: `Merge lifts every row of both tables onto the closest region that covers
identifiers on both sides, aggregates each side per region (and date when both
tables have one) and joins the aggregates.

Either side can be a file (csv, tsv, xlsx, json) or a SQL query:

  oxcovid19db merge epi.csv mobility.csv --how left -o merged.xlsx
  oxcovid19db merge --left-query "SELECT * FROM epidemiology WHERE countrycode='GBR'" \
      --right-query "SELECT * FROM mobility WHERE countrycode='GBR'"`,
	Args: cobra.MaximumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		left, right, err := mergeSources(args)
		if err != nil {
			return err
		}
		how, err := merge.ParseHow(mergeHow)
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

		ctx := cmd.Context()
		lt, rt, err := job.LoadPair(ctx, "", st, opt, left, right)
		if err != nil {
			return err
		}
		out, err := merge.New(rc, logger.L()).Merge(ctx, lt, rt, how)
		if err != nil {
			return err
		}
		if err := emit(cmd, out, mergeOutput, mergePreview); err != nil {
			return err
		}
		if mergeSummary {
			rep, err := analysis.Analyze("merged", out, analysis.DefaultOptions())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), rep.Markdown())
		}
		return nil
	},
}

// mergeSources pairs positional files with the --*-query flags: files fill
// whichever sides have no query, left first.
func mergeSources(args []string) (job.Source, job.Source, error) {
	left := job.Source{Query: mergeLeftQuery, Sheet: mergeLeftSheet}
	right := job.Source{Query: mergeRightQuery, Sheet: mergeRightSheet}
	files := append([]string(nil), args...)
	for _, s := range []*job.Source{&left, &right} {
		if s.Query == "" && len(files) > 0 {
			s.File, files = files[0], files[1:]
		}
	}
	if len(files) > 0 {
		return left, right, fmt.Errorf("too many inputs: %v", files)
	}
	if err := left.Validate(); err != nil {
		return left, right, fmt.Errorf("left: %w", err)
	}
	if err := right.Validate(); err != nil {
		return left, right, fmt.Errorf("right: %w", err)
	}
	return left, right, nil
}

func init() {
	rootCmd.AddCommand(mergeCmd)
	f := mergeCmd.Flags()
	f.StringVar(&mergeHow, "how", "inner", "join kind: inner|left|right|outer")
	f.StringVarP(&mergeOutput, "output", "o", "", "write the result to a file (.csv, .tsv, .xlsx, .json, .md)")
	f.BoolVar(&mergeSummary, "summary", false, "print a profile of the merged table")
	f.StringVar(&mergeLeftQuery, "left-query", "", "SQL producing the left table")
	f.StringVar(&mergeRightQuery, "right-query", "", "SQL producing the right table")
	f.StringVar(&mergeLeftSheet, "left-sheet", "", "worksheet of an XLSX left file")
	f.StringVar(&mergeRightSheet, "right-sheet", "", "worksheet of an XLSX right file")
	f.IntVar(&mergePreview, "preview", 20, "rows printed when no --output is given (0 = all)")
}
