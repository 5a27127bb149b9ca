package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/johnharveymath/oxcovid19db/internal/analysis"
	"github.com/johnharveymath/oxcovid19db/internal/parser"
	"github.com/johnharveymath/oxcovid19db/internal/utils"
)

var (
	descSheet      string
	descMaxRows    int
	descSampleRows int
	descTopValues  int
	descNoCorr     bool
	descOutput     string
)

var describeCmd = &cobra.Command{
	Use:   "describe <file>",
	Short: "Profile a table file and check it can be merged",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opt, err := parseOptions()
		if err != nil {
			return err
		}
		opt.Sheet = descSheet
		opt.MaxRows = descMaxRows
		t, err := parser.ReadFile(args[0], opt)
		if err != nil {
			return err
		}
		aopt := analysis.DefaultOptions()
		aopt.SampleRows = descSampleRows
		aopt.TopValues = descTopValues
		aopt.Correlations = !descNoCorr
		rep, err := analysis.Analyze(filepath.Base(args[0]), t, aopt)
		if err != nil {
			return err
		}
		md := rep.Markdown()
		if descOutput != "" {
			if err := utils.SafeWriteFile(descOutput, []byte(md)); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "✓ Wrote report to %s\n", descOutput)
			return nil
		}
		fmt.Fprintln(cmd.OutOrStdout(), md)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(describeCmd)
	f := describeCmd.Flags()
	f.StringVar(&descSheet, "sheet", "", "XLSX worksheet (default first)")
	f.IntVar(&descMaxRows, "max-rows", 0, "rows to read (0 = all)")
	f.IntVar(&descSampleRows, "sample-rows", 5, "head rows included in the report")
	f.IntVar(&descTopValues, "top-values", 5, "most frequent values listed per text column")
	f.BoolVar(&descNoCorr, "no-corr", false, "skip pairwise correlations")
	f.StringVarP(&descOutput, "output", "o", "", "write the report to a file instead of stdout")
}
