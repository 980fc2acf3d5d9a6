package config

import (
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/dukerupert/medtrack/internal/logging"
	"github.com/dukerupert/medtrack/internal/store"
)

// Storage backends selectable with MEDTRACK_STORE.
const (
	StoreSQLite = "sqlite"
	StoreS3     = "s3"
)

// Config holds the process configuration read from the environment.
type Config struct {
	Port       string
	LogLevel   string
	Store      string
	DBPath     string
	Passphrase string
	S3         store.S3Config

	// WriteLimit is the number of mutating API requests a client may send
	// per minute.
	WriteLimit int
}

// Load reads MEDTRACK_* variables, applying defaults for anything unset.
// Every missing or invalid variable is reported in a single error.
func Load() (Config, error) {
	cfg := Config{
		Port:       "8080",
		LogLevel:   "info",
		Store:      StoreSQLite,
		DBPath:     "medtrack.db",
		WriteLimit: 120,
		S3: store.S3Config{
			Region: "us-east-1",
		},
	}

	var missing, invalid []string

	if port := env("MEDTRACK_PORT"); port != "" {
		if n, err := strconv.Atoi(port); err != nil || n <= 0 || n > 65535 {
			invalid = append(invalid, "MEDTRACK_PORT")
		} else {
			cfg.Port = port
		}
	}

	if level := env("MEDTRACK_LOG_LEVEL"); level != "" {
		if _, ok := logging.ParseLevel(level); !ok {
			invalid = append(invalid, "MEDTRACK_LOG_LEVEL")
		} else {
			cfg.LogLevel = level
		}
	}

	if kind := strings.ToLower(env("MEDTRACK_STORE")); kind != "" {
		switch kind {
		case StoreSQLite, StoreS3:
			cfg.Store = kind
		default:
			invalid = append(invalid, "MEDTRACK_STORE")
		}
	}

	if path := env("MEDTRACK_DB_PATH"); path != "" {
		cfg.DBPath = path
	}

	if limit := env("MEDTRACK_WRITE_LIMIT"); limit != "" {
		if n, err := strconv.Atoi(limit); err != nil || n <= 0 {
			invalid = append(invalid, "MEDTRACK_WRITE_LIMIT")
		} else {
			cfg.WriteLimit = n
		}
	}

	// Not trimmed: surrounding spaces are part of the passphrase.
	cfg.Passphrase = os.Getenv("MEDTRACK_PASSPHRASE")

	cfg.S3.Endpoint = env("MEDTRACK_S3_ENDPOINT")
	cfg.S3.Bucket = env("MEDTRACK_S3_BUCKET")
	cfg.S3.AccessKey = env("MEDTRACK_S3_ACCESS_KEY")
	cfg.S3.SecretKey = env("MEDTRACK_S3_SECRET_KEY")
	cfg.S3.Prefix = env("MEDTRACK_S3_PREFIX")
	if region := env("MEDTRACK_S3_REGION"); region != "" {
		cfg.S3.Region = region
	}

	if cfg.Store == StoreS3 {
		for name, value := range map[string]string{
			"MEDTRACK_S3_BUCKET":     cfg.S3.Bucket,
			"MEDTRACK_S3_ACCESS_KEY": cfg.S3.AccessKey,
			"MEDTRACK_S3_SECRET_KEY": cfg.S3.SecretKey,
		} {
			if value == "" {
				missing = append(missing, name)
			}
		}
	}

	if len(missing) > 0 || len(invalid) > 0 {
		return Config{}, configError(missing, invalid)
	}
	return cfg, nil
}

// Sealed reports whether the stored collection is encrypted at rest.
func (c Config) Sealed() bool {
	return c.Passphrase != ""
}

func env(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func configError(missing, invalid []string) error {
	slices.Sort(missing)
	var parts []string
	if len(missing) > 0 {
		parts = append(parts, "missing "+strings.Join(missing, ", "))
	}
	if len(invalid) > 0 {
		parts = append(parts, "invalid "+strings.Join(invalid, ", "))
	}
	return fmt.Errorf("config: %s", strings.Join(parts, "; "))
}
