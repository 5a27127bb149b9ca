package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	cfgpkg "github.com/johnharveymath/oxcovid19db/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or set oxcovid19db configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "db_host: %s\n", cfg.DBHost)
		fmt.Fprintf(out, "db_port: %d\n", cfg.DBPort)
		fmt.Fprintf(out, "db_name: %s\n", cfg.DBName)
		fmt.Fprintf(out, "db_user: %s\n", cfg.DBUser)
		fmt.Fprintf(out, "db_password: %s\n", cfgpkg.Mask(cfg.DBPassword))
		fmt.Fprintf(out, "db_sslmode: %s\n", cfg.DBSSLMode)
		fmt.Fprintf(out, "retry_max_attempts: %d\n", cfg.RetryMaxAttempts)
		fmt.Fprintf(out, "retry_connect_delay_ms: %d\n", cfg.RetryConnectDelayMs)
		fmt.Fprintf(out, "retry_query_delay_ms: %d\n", cfg.RetryQueryDelayMs)
		fmt.Fprintln(out, "rule_tables:")
		for _, rt := range cfg.RuleTables {
			fmt.Fprintf(out, "  - %s: %s\n", rt.Table, rt.Op)
		}
		fmt.Fprintf(out, "weight_column: %s\n", cfg.WeightColumn)
		if cfg.RedisAddr != "" {
			fmt.Fprintf(out, "redis_addr: %s\n", cfg.RedisAddr)
			fmt.Fprintf(out, "redis_password: %s\n", cfgpkg.Mask(cfg.RedisPassword))
			fmt.Fprintf(out, "redis_ttl_sec: %d\n", cfg.RedisTTLSec)
		}
		fmt.Fprintf(out, "listen_addr: %s\n", cfg.ListenAddr)
		fmt.Fprintf(out, "log_level: %s\n", cfg.LogLevel)
		fmt.Fprintf(out, "log_format: %s\n", cfg.LogFormat)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a config value and save to disk",
	Long: `Set a config value and save to disk. rule_tables takes comma-separated
table=op pairs, e.g. "epidemiology=sum,mobility=mean,weather=wtmean".`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Set(args[0], args[1]); err != nil {
			return err
		}
		if err := cfgpkg.Save(cfg, cfgFile); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Saved config")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}
