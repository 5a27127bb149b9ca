package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/johnharveymath/oxcovid19db/internal/rules"
	"github.com/johnharveymath/oxcovid19db/internal/store"
	"github.com/johnharveymath/oxcovid19db/internal/utils"
)

// RuleTable assigns an operator name (sum, mean, wtmean) to every data column
// of a backing-store table.
type RuleTable struct {
	Table string `mapstructure:"table" yaml:"table"`
	Op    string `mapstructure:"op" yaml:"op"`
}

// Global configuration structure.
type Global struct {
	DBHost              string `mapstructure:"db_host" yaml:"db_host"`
	DBPort              int    `mapstructure:"db_port" yaml:"db_port"`
	DBName              string `mapstructure:"db_name" yaml:"db_name"`
	DBUser              string `mapstructure:"db_user" yaml:"db_user"`
	DBPassword          string `mapstructure:"db_password" yaml:"db_password"`
	DBSSLMode           string `mapstructure:"db_sslmode" yaml:"db_sslmode"`
	DBConnectTimeoutSec int    `mapstructure:"db_connect_timeout_sec" yaml:"db_connect_timeout_sec"`

	// Retry budget for the backing store
	RetryMaxAttempts    int `mapstructure:"retry_max_attempts" yaml:"retry_max_attempts"`
	RetryConnectDelayMs int `mapstructure:"retry_connect_delay_ms" yaml:"retry_connect_delay_ms"`
	RetryQueryDelayMs   int `mapstructure:"retry_query_delay_ms" yaml:"retry_query_delay_ms"`

	RuleTables   []RuleTable `mapstructure:"rule_tables" yaml:"rule_tables"`
	WeightColumn string      `mapstructure:"weight_column" yaml:"weight_column"`

	// Optional column-list cache
	RedisAddr     string `mapstructure:"redis_addr" yaml:"redis_addr"`
	RedisPassword string `mapstructure:"redis_password" yaml:"redis_password"`
	RedisDB       int    `mapstructure:"redis_db" yaml:"redis_db"`
	RedisTTLSec   int    `mapstructure:"redis_ttl_sec" yaml:"redis_ttl_sec"`

	ListenAddr string `mapstructure:"listen_addr" yaml:"listen_addr"`
	LogLevel   string `mapstructure:"log_level" yaml:"log_level"`
	LogFormat  string `mapstructure:"log_format" yaml:"log_format"`
}

// DefaultPath returns ~/.oxcovid19db/config.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".oxcovid19db", "config.yaml"), nil
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to DefaultPath, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	path := cfgFile
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return err
		}
		path = p
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := utils.SafeWriteFile(path, b); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	d := store.DefaultConfig()
	v.SetDefault("db_host", d.Host)
	v.SetDefault("db_port", d.Port)
	v.SetDefault("db_name", d.Database)
	v.SetDefault("db_user", d.User)
	v.SetDefault("db_password", d.Password)
	v.SetDefault("db_sslmode", d.SSLMode)
	v.SetDefault("db_connect_timeout_sec", int(d.ConnectTimeout/time.Second))
	v.SetDefault("retry_max_attempts", d.Retries)
	v.SetDefault("retry_connect_delay_ms", int(d.ConnectDelay/time.Millisecond))
	v.SetDefault("retry_query_delay_ms", int(d.QueryDelay/time.Millisecond))

	var tables []map[string]any
	for _, s := range rules.DefaultSources() {
		tables = append(tables, map[string]any{"table": s.Table, "op": s.Op.String()})
	}
	v.SetDefault("rule_tables", tables)
	v.SetDefault("weight_column", rules.WeightColumn)

	v.SetDefault("redis_addr", "")
	v.SetDefault("redis_password", "")
	v.SetDefault("redis_db", 0)
	v.SetDefault("redis_ttl_sec", 86400)
	v.SetDefault("listen_addr", ":8080")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
}

// Load loads configuration from file, env, and defaults.
// Precedence: flags (applied by the caller) > env > config file > defaults.
func Load(cfgFile string) (*Global, error) {
	v := viper.New()
	v.SetEnvPrefix("OXCOVID")
	v.AutomaticEnv()
	setDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		v.AddConfigPath(filepath.Dir(p))
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	// a missing file is fine; a malformed one is not
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks the values a store or rule cache would reject later.
func (c *Global) Validate() error {
	if c.RetryMaxAttempts < 0 {
		return fmt.Errorf("retry_max_attempts must be >= 0, got %d", c.RetryMaxAttempts)
	}
	if _, err := c.Sources(); err != nil {
		return err
	}
	return nil
}

// StoreConfig converts the db_* and retry_* keys.
func (c *Global) StoreConfig() store.Config {
	return store.Config{
		Host:           c.DBHost,
		Port:           c.DBPort,
		Database:       c.DBName,
		User:           c.DBUser,
		Password:       c.DBPassword,
		SSLMode:        c.DBSSLMode,
		ConnectTimeout: time.Duration(c.DBConnectTimeoutSec) * time.Second,
		Retries:        c.RetryMaxAttempts,
		ConnectDelay:   time.Duration(c.RetryConnectDelayMs) * time.Millisecond,
		QueryDelay:     time.Duration(c.RetryQueryDelayMs) * time.Millisecond,
	}
}

// Sources parses rule_tables in order.
func (c *Global) Sources() ([]rules.Source, error) {
	out := make([]rules.Source, 0, len(c.RuleTables))
	for i, rt := range c.RuleTables {
		if strings.TrimSpace(rt.Table) == "" {
			return nil, fmt.Errorf("rule_tables[%d]: table is required", i)
		}
		op, err := rules.ParseOperator(rt.Op)
		if err != nil {
			return nil, fmt.Errorf("rule_tables[%d]: %w", i, err)
		}
		out = append(out, rules.Source{Table: rt.Table, Op: op})
	}
	return out, nil
}

// RedisTTL returns redis_ttl_sec as a duration.
func (c *Global) RedisTTL() time.Duration { return time.Duration(c.RedisTTLSec) * time.Second }

// Set assigns one key from its string form. Keys match the YAML names.
func (c *Global) Set(key, val string) error {
	setInt := func(dst *int, floor int) error {
		i, err := strconv.Atoi(val)
		if err != nil || i < floor {
			return fmt.Errorf("invalid int for %s: %v", key, val)
		}
		*dst = i
		return nil
	}
	switch key {
	case "db_host":
		c.DBHost = val
	case "db_port":
		return setInt(&c.DBPort, 1)
	case "db_name":
		c.DBName = val
	case "db_user":
		c.DBUser = val
	case "db_password":
		c.DBPassword = val
	case "db_sslmode":
		switch val {
		case "disable", "allow", "prefer", "require", "verify-ca", "verify-full":
			c.DBSSLMode = val
		default:
			return fmt.Errorf("invalid db_sslmode: %s", val)
		}
	case "db_connect_timeout_sec":
		return setInt(&c.DBConnectTimeoutSec, 0)
	case "retry_max_attempts":
		return setInt(&c.RetryMaxAttempts, 0)
	case "retry_connect_delay_ms":
		return setInt(&c.RetryConnectDelayMs, 0)
	case "retry_query_delay_ms":
		return setInt(&c.RetryQueryDelayMs, 0)
	case "rule_tables":
		// table=op pairs separated by commas, e.g. "epidemiology=sum,mobility=mean"
		var rts []RuleTable
		for _, part := range strings.Split(val, ",") {
			t, op, ok := strings.Cut(strings.TrimSpace(part), "=")
			if !ok {
				return fmt.Errorf("invalid rule_tables entry %q (want table=op)", part)
			}
			rts = append(rts, RuleTable{Table: strings.TrimSpace(t), Op: strings.TrimSpace(op)})
		}
		prev := c.RuleTables
		c.RuleTables = rts
		if _, err := c.Sources(); err != nil {
			c.RuleTables = prev
			return err
		}
	case "weight_column":
		if val == "" {
			return errors.New("weight_column cannot be empty")
		}
		c.WeightColumn = val
	case "redis_addr":
		c.RedisAddr = val
	case "redis_password":
		c.RedisPassword = val
	case "redis_db":
		return setInt(&c.RedisDB, 0)
	case "redis_ttl_sec":
		return setInt(&c.RedisTTLSec, 0)
	case "listen_addr":
		c.ListenAddr = val
	case "log_level":
		switch strings.ToLower(val) {
		case "debug", "info", "warn", "error":
			c.LogLevel = strings.ToLower(val)
		default:
			return fmt.Errorf("invalid log_level: %s (use debug, info, warn or error)", val)
		}
	case "log_format":
		switch strings.ToLower(val) {
		case "text", "json":
			c.LogFormat = strings.ToLower(val)
		default:
			return fmt.Errorf("invalid log_format: %s (use text or json)", val)
		}
	default:
		return fmt.Errorf("unknown key: %s", key)
	}
	return nil
}

// Mask hides all but the edges of a secret.
func Mask(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 6 {
		return "******"
	}
	return s[:3] + "****" + s[len(s)-3:]
}
