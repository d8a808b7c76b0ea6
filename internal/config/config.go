package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

const (
	DefaultTimeZone       = "UTC"
	DefaultImportSchedule = "0 */6 * * *"
	DefaultReportsDir     = "./reports"
	DefaultSQLitePath     = "./data/ledger.db"
	DefaultServicesFile   = "./services.yaml"
	DefaultLogFolder      = "./logs"

	// Creator recorded on transactions written by imports and transfers.
	ImportActor   = "import"
	TransferActor = "transfer"
)

// ImporterConfig drives the scheduled import service.
type ImporterConfig struct {
	Schedule   string
	TimeZone   string
	ReportsDir string
	Clubs      []string
	Families   []string
	Force      bool
	Timeout    time.Duration
}

func NewDefaultImporterConfig() *ImporterConfig {
	return &ImporterConfig{
		Schedule:   DefaultImportSchedule,
		TimeZone:   DefaultTimeZone,
		ReportsDir: EnvOr("REPORTS_DIR", DefaultReportsDir),
		Timeout:    5 * time.Minute,
	}
}

// ImporterConfigFrom overlays a services.yaml config map on the defaults.
func ImporterConfigFrom(cfg map[string]interface{}) *ImporterConfig {
	c := NewDefaultImporterConfig()
	if cfg == nil {
		return c
	}
	if v := ToString(cfg["schedule"]); v != "" {
		c.Schedule = v
	}
	if v := ToString(cfg["timezone"]); v != "" {
		c.TimeZone = v
	}
	if v := ToString(cfg["reports_dir"]); v != "" {
		c.ReportsDir = v
	}
	if v := ToStrings(cfg["clubs"]); len(v) > 0 {
		c.Clubs = v
	}
	if v := ToStrings(cfg["families"]); len(v) > 0 {
		c.Families = v
	}
	if v, ok := cfg["force"].(bool); ok {
		c.Force = v
	}
	if v := ToInt(cfg["timeout_seconds"]); v > 0 {
		c.Timeout = time.Duration(v) * time.Second
	}
	return c
}

// PostgresDSN builds a connection string from DB_* environment variables.
func PostgresDSN() string {
	return fmt.Sprintf(
		"user=%s password=%s host=%s port=%s dbname=%s sslmode=disable",
		os.Getenv("DB_USER"), os.Getenv("DB_PASSWORD"), os.Getenv("DB_HOST"),
		os.Getenv("DB_PORT"), os.Getenv("DB_NAME"),
	)
}

// EnvOr returns the trimmed environment value of key, or def when unset.
func EnvOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

// ToInt coerces yaml scalars; anything unparseable is 0.
func ToInt(v interface{}) int {
	switch t := v.(type) {
	case int:
		return t
	case int64:
		return int(t)
	case float64:
		return int(t)
	case string:
		var parsed int
		if _, err := fmt.Sscanf(t, "%d", &parsed); err == nil {
			return parsed
		}
	}
	return 0
}

func ToString(v interface{}) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case nil:
		return ""
	}
	return fmt.Sprint(v)
}

// ToStrings accepts a yaml list or a comma separated string.
func ToStrings(v interface{}) []string {
	var out []string
	switch t := v.(type) {
	case []interface{}:
		for _, e := range t {
			if s := ToString(e); s != "" {
				out = append(out, s)
			}
		}
	case []string:
		for _, e := range t {
			if s := strings.TrimSpace(e); s != "" {
				out = append(out, s)
			}
		}
	case string:
		for _, e := range strings.Split(t, ",") {
			if s := strings.TrimSpace(e); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}
