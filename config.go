package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	storageMemory = "memory"
	storageBolt   = "bolt"
	storageSQLite = "sqlite"
)

type Config struct {
	bind           string
	dbPath         string
	envFile        string
	port           int
	prefix         string
	profile        bool
	sessionTimeout time.Duration
	storage        string
	tlsCert        string
	tlsKey         string
	verbose        bool
	version        bool
}

func (c *Config) validate() error {
	if (c.tlsCert == "") != (c.tlsKey == "") {
		return errors.New("both --tls-cert and --tls-key must be provided together")
	}
	if c.port < 1 || c.port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.port)
	}
	switch c.storage {
	case storageMemory:
	case storageBolt, storageSQLite:
		if strings.TrimSpace(c.dbPath) == "" {
			return fmt.Errorf("--db is required when --storage=%s", c.storage)
		}
	default:
		return fmt.Errorf("invalid storage (must be one of %s, %s, %s): %q", storageMemory, storageBolt, storageSQLite, c.storage)
	}
	if c.sessionTimeout < 0 {
		return fmt.Errorf("invalid session timeout (must not be negative): %s", c.sessionTimeout)
	}
	return nil
}

func (c *Config) scheme() string {
	if c.tlsCert != "" && c.tlsKey != "" {
		return "https"
	}
	return "http"
}

// loadEnvFile reads KEY=value pairs from path into the environment without
// overriding variables that are already set. A missing default file is fine.
func loadEnvFile(path string, required bool) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) && !required {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}

// envFileFromArgs finds --env-file before cobra parses flags, since the file
// has to be loaded before viper reads the environment.
func envFileFromArgs(args []string) (string, bool) {
	for i, arg := range args {
		switch {
		case arg == "--env-file" && i+1 < len(args):
			return args[i+1], true
		case strings.HasPrefix(arg, "--env-file="):
			return strings.TrimPrefix(arg, "--env-file="), true
		}
	}
	if path := os.Getenv("REACH100_ENV_FILE"); path != "" {
		return path, true
	}
	return ".env", false
}

func newCmd(cfg *Config, args []string) (*cobra.Command, error) {
	envFile, required := envFileFromArgs(args)
	if err := loadEnvFile(envFile, required); err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetEnvPrefix("REACH100")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "reach100",
		Short:         "Take turns nudging your score to exactly 100, in the browser.",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		Version:       releaseVersion,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.validate(); err != nil {
				return err
			}
			return ServePage(cmd.Context(), cfg, args)
		},
	}

	fs := cmd.Flags()

	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.StringVarP(&cfg.bind, "bind", "b", "0.0.0.0", "address to bind to (env: REACH100_BIND)")
	fs.StringVar(&cfg.dbPath, "db", "", "path to the database file for bolt or sqlite storage (env: REACH100_DB)")
	fs.StringVar(&cfg.envFile, "env-file", envFile, "file of KEY=value pairs loaded into the environment (env: REACH100_ENV_FILE)")
	fs.IntVarP(&cfg.port, "port", "p", 8080, "port to listen on (env: REACH100_PORT)")
	fs.StringVar(&cfg.prefix, "prefix", "", "path to prepend to all URLs, for use behind reverse proxy (env: REACH100_PREFIX)")
	fs.BoolVar(&cfg.profile, "profile", false, "register net/http/pprof handlers (env: REACH100_PROFILE)")
	fs.DurationVar(&cfg.sessionTimeout, "session-timeout", 60*time.Minute, "time before idle game sessions are unloaded (env: REACH100_SESSION_TIMEOUT)")
	fs.StringVarP(&cfg.storage, "storage", "s", storageMemory, "where rosters and leaderboards are kept: memory, bolt or sqlite (env: REACH100_STORAGE)")
	fs.StringVar(&cfg.tlsCert, "tls-cert", "", "path to tls certificate (env: REACH100_TLS_CERT)")
	fs.StringVar(&cfg.tlsKey, "tls-key", "", "path to tls keyfile (env: REACH100_TLS_KEY)")
	fs.BoolVarP(&cfg.verbose, "verbose", "v", false, "display additional output (env: REACH100_VERBOSE)")
	fs.BoolVarP(&cfg.version, "version", "V", false, "display version and exit (env: REACH100_VERSION)")

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetVersionTemplate("reach100 v{{.Version}}\n")

	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	return cmd, nil
}
