package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	cfgpkg "github.com/johnharveymath/oxcovid19db/internal/config"
	"github.com/johnharveymath/oxcovid19db/internal/logger"
	"github.com/johnharveymath/oxcovid19db/internal/parser"
	"github.com/johnharveymath/oxcovid19db/internal/rules"
	"github.com/johnharveymath/oxcovid19db/internal/store"
	"github.com/johnharveymath/oxcovid19db/internal/table"
	"github.com/johnharveymath/oxcovid19db/internal/utils"
)

var (
	// Global flags
	cfgFile    string
	schemaFile string
	logLevel   string
	logFormat  string
	// Database flags (override config if set)
	flagDBHost   string
	flagDBPort   int
	flagRetryMax int
	// Text table flags
	flagDelimiter string
	flagDecimal   string
	flagThousands string

	// Loaded configuration
	cfg *cfgpkg.Global
)

var rootCmd = &cobra.Command{
	Use:   "oxcovid19db",
	Short: "Merge OxCOVID19 tables recorded at different administrative levels",
	Long: `oxcovid19db lifts two tables of regional data onto their common ancestor
regions, aggregates each side per region (and date) and joins the results.
Tables come from CSV/TSV/XLSX/JSON files or from queries against the OxCOVID19
Postgres database.`,
	SilenceUsage: true,
}

// Execute is the entry point called by main.main()
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "✗ Error:", err)
		os.Exit(1)
	}
}

func init() {
	// Assigned here rather than in the literal: loadConfig refers to rootCmd.
	rootCmd.PersistentPreRunE = loadConfig

	f := rootCmd.PersistentFlags()
	f.StringVar(&cfgFile, "config", "", "config file (default is ~/.oxcovid19db/config.yaml)")
	f.StringVar(&schemaFile, "schema", "", "YAML file mapping source tables to their columns (skips the database for rules)")
	f.StringVar(&logLevel, "log-level", "", "log level: debug|info|warn|error (overrides config)")
	f.StringVar(&logFormat, "log-format", "", "log format: text|json (overrides config)")
	f.StringVar(&flagDBHost, "db-host", "", "database host (overrides config)")
	f.IntVar(&flagDBPort, "db-port", 0, "database port (overrides config)")
	f.IntVar(&flagRetryMax, "retry-max", -1, "retries after the first attempt (overrides config)")
	f.StringVar(&flagDelimiter, "delimiter", "", "CSV delimiter: ',' | ';' | tab (default from extension)")
	f.StringVar(&flagDecimal, "decimal", "", "decimal separator for text tables: '.' | comma")
	f.StringVar(&flagThousands, "thousands", "", "thousands separator for text tables: ',' | '.' | space")
}

func loadConfig(cmd *cobra.Command, _ []string) error {
	// .env is optional
	_ = godotenv.Load()

	cfgFile = utils.ExpandHome(cfgFile)
	c, err := cfgpkg.Load(cfgFile)
	if err != nil {
		return err
	}
	cfg = c

	f := rootCmd.PersistentFlags()
	if f.Changed("db-host") && flagDBHost != "" {
		cfg.DBHost = flagDBHost
	}
	if f.Changed("db-port") && flagDBPort > 0 {
		cfg.DBPort = flagDBPort
	}
	if f.Changed("retry-max") {
		if flagRetryMax < 0 {
			return fmt.Errorf("--retry-max must be >= 0")
		}
		cfg.RetryMaxAttempts = flagRetryMax
	}
	if f.Changed("log-level") {
		cfg.LogLevel = logLevel
	}
	if f.Changed("log-format") {
		cfg.LogFormat = logFormat
	}
	logger.SetupWriter(cmd.ErrOrStderr(), cfg.LogLevel, cfg.LogFormat)
	return nil
}

// openStore returns a lazily connecting store; nothing is dialled until the
// first query.
func openStore() (*store.Store, error) {
	return store.New(cfg.StoreConfig(), store.WithLogger(logger.L()))
}

// ruleCache builds the rule table from --schema when given, else from the
// database with the optional redis cache in front.
func ruleCache(st *store.Store) (*rules.Cache, error) {
	srcs, err := cfg.Sources()
	if err != nil {
		return nil, err
	}
	var d rules.Describer
	if schemaFile != "" {
		if d, err = loadSchema(schemaFile); err != nil {
			return nil, err
		}
	} else {
		client := store.OpenRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		d = store.NewRedisDescriber(st, client, cfg.RedisTTL(), logger.L())
	}
	return rules.NewCache(d,
		rules.WithSources(srcs),
		rules.WithWeightColumn(cfg.WeightColumn),
		rules.WithLogger(logger.L()),
	), nil
}

func loadSchema(path string) (rules.StaticDescriber, error) {
	b, err := os.ReadFile(utils.ExpandHome(path))
	if err != nil {
		return nil, fmt.Errorf("read schema: %w", err)
	}
	var s map[string][]string
	if err := yaml.Unmarshal(b, &s); err != nil {
		return nil, fmt.Errorf("parse schema: %w", err)
	}
	return rules.StaticDescriber(s), nil
}

// parseOptions turns the text-table flags into reader options.
func parseOptions() (parser.Options, error) {
	var opt parser.Options
	switch flagDelimiter {
	case "":
	case ",":
		opt.Delimiter = ','
	case ";":
		opt.Delimiter = ';'
	case "\t", "tab":
		opt.Delimiter = '\t'
	default:
		return opt, fmt.Errorf("unsupported --delimiter: %s", flagDelimiter)
	}
	switch flagDecimal {
	case "", ".", "dot":
	case ",", "comma":
		opt.Parse.DecimalSeparator = ','
	default:
		return opt, fmt.Errorf("unsupported --decimal: %s (use '.'|'comma')", flagDecimal)
	}
	switch flagThousands {
	case "":
	case ",":
		opt.Parse.ThousandsSeparator = ','
	case ".":
		opt.Parse.ThousandsSeparator = '.'
	case " ", "space":
		opt.Parse.ThousandsSeparator = ' '
	default:
		return opt, fmt.Errorf("unsupported --thousands: %s (use ','|'.'|'space')", flagThousands)
	}
	return opt, nil
}

// emit writes t to path, or prints it as Markdown when path is empty.
func emit(cmd *cobra.Command, t *table.Table, path string, previewRows int) error {
	if path == "" {
		fmt.Fprint(cmd.OutOrStdout(), t.Markdown(previewRows))
		return nil
	}
	if err := parser.WriteFile(path, t); err != nil {
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "✓ Wrote %d rows to %s\n", t.Len(), path)
	return nil
}
