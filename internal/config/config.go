// Package config resolves the CLI configuration. Values come from command
// flags, MIGPLAN_* environment variables and an optional TOML config file;
// an explicitly set flag wins over the environment, which wins over the file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/multierr"

	"migplan/internal/logger"
)

const (
	EnvPrefix    = "MIGPLAN"
	ConfigEnvVar = "MIGPLAN_CONFIG"
	ConfigName   = "migplan"
)

// Flag names. They double as viper keys.
const (
	KeyConfig        = "config"
	KeyMigrationsDir = "migrations-dir"
	KeyModels        = "models"
	KeyDSN           = "dsn"
	KeyDialect       = "dialect"
	KeyTypePrefix    = "type-prefix"
	KeyTransaction   = "transaction"
	KeyFormat        = "format"
	KeyLogLevel      = "log-level"
)

// Config is the resolved configuration of one CLI invocation.
type Config struct {
	MigrationsDir  string
	ModelsFile     string
	DSN            string
	Dialect        string
	TypePrefix     string
	UseTransaction bool
	Format         string
	LogLevel       string
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		MigrationsDir: "migrations",
		ModelsFile:    "models.toml",
		Dialect:       "mysql",
		TypePrefix:    "DataTypes.",
		Format:        "script",
		LogLevel:      "info",
	}
}

// RegisterFlags adds the shared flags to the root command.
func RegisterFlags(cmd *cobra.Command) {
	d := Default()
	f := cmd.PersistentFlags()
	f.String(KeyConfig, "", "Path to a TOML config file (default ./migplan.toml)")
	f.String(KeyMigrationsDir, d.MigrationsDir, "Directory holding migration scripts and the state file")
	f.String(KeyModels, d.ModelsFile, "TOML file declaring the models")
	f.String(KeyDSN, "", "Database connection string (required by up and down)")
	f.String(KeyDialect, d.Dialect, "Database dialect")
	f.String(KeyTypePrefix, d.TypePrefix, "Namespace prefix of rendered type expressions")
	f.Bool(KeyTransaction, false, "Run commands inside a single transaction")
	f.String(KeyFormat, d.Format, "Output format: script, json, sql or summary")
	f.String(KeyLogLevel, d.LogLevel, "Log level: debug, info, warn or error")
}

// Init resets viper and points it at the environment and the config file.
// A missing default config file is not an error; a missing explicit one is.
func Init(cmd *cobra.Command) error {
	configPath := ResolveString(cmd, KeyConfig)

	viper.Reset()
	viper.SetEnvPrefix(EnvPrefix)
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	explicit := false
	switch {
	case configPath != "":
		viper.SetConfigFile(configPath)
		explicit = true
	case os.Getenv(ConfigEnvVar) != "":
		viper.SetConfigFile(os.Getenv(ConfigEnvVar))
		explicit = true
	default:
		viper.SetConfigName(ConfigName)
		viper.AddConfigPath(".")
	}
	viper.SetConfigType("toml")

	if err := viper.ReadInConfig(); err != nil {
		var missing viper.ConfigFileNotFoundError
		if explicit || !errors.As(err, &missing) {
			return fmt.Errorf("read config: %w", err)
		}
	}
	return nil
}

// Load resolves the configuration for cmd. Init must have run.
func Load(cmd *cobra.Command) Config {
	return Config{
		MigrationsDir:  ResolveString(cmd, KeyMigrationsDir),
		ModelsFile:     ResolveString(cmd, KeyModels),
		DSN:            ResolveString(cmd, KeyDSN),
		Dialect:        ResolveString(cmd, KeyDialect),
		TypePrefix:     ResolveString(cmd, KeyTypePrefix),
		UseTransaction: ResolveBool(cmd, KeyTransaction),
		Format:         ResolveString(cmd, KeyFormat),
		LogLevel:       ResolveString(cmd, KeyLogLevel),
	}
}

// Validate checks the settings every command needs and reports every
// problem found.
func (c Config) Validate() error {
	var err error
	if strings.TrimSpace(c.MigrationsDir) == "" {
		err = multierr.Append(err, errors.New("migrations directory must be set"))
	}
	if strings.TrimSpace(c.Dialect) == "" {
		err = multierr.Append(err, errors.New("dialect must be set"))
	}
	if _, lerr := logger.ParseLevel(c.LogLevel); lerr != nil {
		err = multierr.Append(err, fmt.Errorf("invalid log level %q", c.LogLevel))
	}
	return err
}

// RequireDSN fails when no connection string is configured.
func (c Config) RequireDSN() error {
	if strings.TrimSpace(c.DSN) == "" {
		return fmt.Errorf("DSN is required: use --%s or %s_DSN", KeyDSN, EnvPrefix)
	}
	return nil
}

// ResolveString returns the flag value unless the flag was left at its
// default and viper has a value for key.
func ResolveString(cmd *cobra.Command, key string) string {
	value, err := cmd.Flags().GetString(key)
	if err != nil {
		return viper.GetString(key)
	}
	if f := cmd.Flags().Lookup(key); f == nil || (!f.Changed && viper.IsSet(key)) {
		return viper.GetString(key)
	}
	return value
}

// ResolveBool is ResolveString for boolean flags.
func ResolveBool(cmd *cobra.Command, key string) bool {
	value, err := cmd.Flags().GetBool(key)
	if err != nil {
		return viper.GetBool(key)
	}
	if f := cmd.Flags().Lookup(key); f == nil || (!f.Changed && viper.IsSet(key)) {
		return viper.GetBool(key)
	}
	return value
}
