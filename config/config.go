/*
Package config loads server configuration from the environment.

PURPOSE:
  Collects every knob of the time-clock server in one struct. Values come
  from TIMECLOCK_* environment variables, optionally seeded from a .env
  file, with defaults for everything. Command-line flags in cmd/server
  override what is loaded here.

VARIABLES:
  TIMECLOCK_PORT              HTTP port (default 8080)
  TIMECLOCK_DB                SQLite path, ":memory:" allowed (default timeclock.db)
  TIMECLOCK_TIMEZONE          IANA zone for calendar days (default Europe/Madrid)
  TIMECLOCK_LOG_LEVEL         debug|info|warn|error (default info)
  TIMECLOCK_LOG_FORMAT        json|text (default json)
  TIMECLOCK_GEO_TOLERANCE_M   metres added to every radius (default 10)
  TIMECLOCK_JUSTIFY_OVERTIME  require a reason for overtime clock-outs (default true)
  TIMECLOCK_SNAPSHOT_CRON     cron spec for daily snapshots, "off" disables (default "5 0 * * *")
  TIMECLOCK_CORS_ORIGINS      comma separated allowed origins

ERRORS:
  All invalid variables are reported together, not one at a time.

SEE ALSO:
  - cmd/server/main.go: flag overrides
*/
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // Europe/Madrid on hosts without a zoneinfo database

	"github.com/joho/godotenv"

	"github.com/warp/timeclock/punch"
)

// Config is the resolved server configuration.
type Config struct {
	Port            int
	DBPath          string
	TimezoneName    string
	Location        *time.Location
	LogLevel        string
	LogFormat       string
	GeoTolerance    float64
	JustifyOvertime bool
	SnapshotCron    string
	CORSOrigins     []string
}

// Defaults returns the configuration used when nothing is set.
func Defaults() Config {
	return Config{
		Port:            8080,
		DBPath:          "timeclock.db",
		TimezoneName:    "Europe/Madrid",
		LogLevel:        "info",
		LogFormat:       "json",
		GeoTolerance:    punch.DefaultTolerance,
		JustifyOvertime: true,
		SnapshotCron:    "5 0 * * *",
		CORSOrigins:     []string{"http://localhost:5173", "http://localhost:8080"},
	}
}

// ErrInvalid is wrapped by every error Load returns.
var ErrInvalid = errors.New("invalid configuration")

// LoadDotEnv seeds the process environment from the given files. Missing
// files are skipped; variables already set are never overwritten.
func LoadDotEnv(files ...string) error {
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// FromEnv loads ".env" if present and then reads the process environment.
func FromEnv() (Config, error) {
	if err := LoadDotEnv(".env"); err != nil {
		return Config{}, err
	}
	return Load(os.Getenv)
}

// Load reads TIMECLOCK_* variables through getenv.
func Load(getenv func(string) string) (Config, error) {
	cfg := Defaults()
	var invalid []string

	get := func(key string) string { return strings.TrimSpace(getenv(key)) }

	if v := get("TIMECLOCK_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil || port <= 0 || port > 65535 {
			invalid = append(invalid, "TIMECLOCK_PORT")
		} else {
			cfg.Port = port
		}
	}

	if v := get("TIMECLOCK_DB"); v != "" {
		cfg.DBPath = v
	}

	if v := get("TIMECLOCK_TIMEZONE"); v != "" {
		cfg.TimezoneName = v
	}

	if v := get("TIMECLOCK_LOG_LEVEL"); v != "" {
		switch strings.ToLower(v) {
		case "debug", "info", "warn", "warning", "error":
			cfg.LogLevel = strings.ToLower(v)
		default:
			invalid = append(invalid, "TIMECLOCK_LOG_LEVEL")
		}
	}

	if v := get("TIMECLOCK_LOG_FORMAT"); v != "" {
		switch strings.ToLower(v) {
		case "json", "text":
			cfg.LogFormat = strings.ToLower(v)
		default:
			invalid = append(invalid, "TIMECLOCK_LOG_FORMAT")
		}
	}

	if v := get("TIMECLOCK_GEO_TOLERANCE_M"); v != "" {
		tol, err := strconv.ParseFloat(v, 64)
		if err != nil || tol < 0 {
			invalid = append(invalid, "TIMECLOCK_GEO_TOLERANCE_M")
		} else {
			cfg.GeoTolerance = tol
		}
	}

	if v := get("TIMECLOCK_JUSTIFY_OVERTIME"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			invalid = append(invalid, "TIMECLOCK_JUSTIFY_OVERTIME")
		} else {
			cfg.JustifyOvertime = b
		}
	}

	// Unset keeps the default; set-but-empty is not distinguishable from
	// unset through getenv, so "off" disables the job.
	if v := get("TIMECLOCK_SNAPSHOT_CRON"); v != "" {
		if strings.EqualFold(v, "off") {
			cfg.SnapshotCron = ""
		} else {
			cfg.SnapshotCron = v
		}
	}

	if v := get("TIMECLOCK_CORS_ORIGINS"); v != "" {
		cfg.CORSOrigins = splitList(v)
	}

	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("%w: %s", ErrInvalid, strings.Join(invalid, ", "))
	}
	if err := cfg.Resolve(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Resolve loads the timezone named by TimezoneName. Call it again after
// changing TimezoneName.
func (c *Config) Resolve() error {
	loc, err := time.LoadLocation(c.TimezoneName)
	if err != nil {
		return fmt.Errorf("%w: TIMECLOCK_TIMEZONE %q: %v", ErrInvalid, c.TimezoneName, err)
	}
	c.Location = loc
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
