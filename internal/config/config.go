// Package config loads application configuration from environment variables.
package config

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// EncryptionKeySize is the decoded length required of PANELVAULT_ENCRYPTION_KEY.
const EncryptionKeySize = 32

// Config holds the application configuration loaded from environment variables.
type Config struct {
	EncryptionKey []byte
	KeyVersion    int
	PurgeDays     int
	PurgeInterval time.Duration
	LabelAlphabet string
	DBPath        string
	ListenAddr    string
	RedisAddr     string
	ProbeTimeout  time.Duration
}

// HasRedis reports whether a Redis address was configured for the sweep lock.
func (c *Config) HasRedis() bool {
	return c.RedisAddr != ""
}

// LoadEnvFile loads KEY=VALUE pairs from path into the environment without
// overriding variables that are already set. A missing file is not an error.
func LoadEnvFile(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// Load reads configuration from environment variables and returns a validated Config.
// PANELVAULT_ENCRYPTION_KEY is required and must be standard base64 decoding to
// exactly 32 bytes. Optional variables with defaults: PANELVAULT_DATA_KEY_VERSION (1),
// PANELVAULT_CRED_PURGE_DAYS (7), PANELVAULT_PURGE_INTERVAL (24h),
// PANELVAULT_LABEL_ALPHABET (123456789), PANELVAULT_DB_PATH (panelvault.db),
// PANELVAULT_LISTEN_ADDR (127.0.0.1:8080), PANELVAULT_REDIS_ADDR (unset),
// PANELVAULT_PROBE_TIMEOUT (30s).
func Load() (*Config, error) {
	key, err := loadEncryptionKey()
	if err != nil {
		return nil, err
	}

	keyVersion, err := intEnv("PANELVAULT_DATA_KEY_VERSION", 1, 1)
	if err != nil {
		return nil, err
	}

	purgeDays, err := intEnv("PANELVAULT_CRED_PURGE_DAYS", 7, 0)
	if err != nil {
		return nil, err
	}

	purgeInterval, err := durationEnv("PANELVAULT_PURGE_INTERVAL", 24*time.Hour)
	if err != nil {
		return nil, err
	}

	probeTimeout, err := durationEnv("PANELVAULT_PROBE_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, err
	}

	alphabet := "123456789"
	if v, ok := os.LookupEnv("PANELVAULT_LABEL_ALPHABET"); ok {
		v = strings.TrimSpace(v)
		if v == "" {
			return nil, fmt.Errorf("PANELVAULT_LABEL_ALPHABET must not be empty")
		}
		alphabet = v
	}

	listenAddr := "127.0.0.1:8080"
	if v, ok := os.LookupEnv("PANELVAULT_LISTEN_ADDR"); ok {
		listenAddr = v
	}

	return &Config{
		EncryptionKey: key,
		KeyVersion:    keyVersion,
		PurgeDays:     purgeDays,
		PurgeInterval: purgeInterval,
		LabelAlphabet: alphabet,
		DBPath:        DBPath(),
		ListenAddr:    listenAddr,
		RedisAddr:     strings.TrimSpace(os.Getenv("PANELVAULT_REDIS_ADDR")),
		ProbeTimeout:  probeTimeout,
	}, nil
}

// DBPath returns PANELVAULT_DB_PATH, or panelvault.db when unset. It needs no
// encryption key, so tools that never decrypt can open the database with it.
func DBPath() string {
	if v, ok := os.LookupEnv("PANELVAULT_DB_PATH"); ok {
		return v
	}
	return "panelvault.db"
}

func loadEncryptionKey() ([]byte, error) {
	raw := strings.TrimSpace(os.Getenv("PANELVAULT_ENCRYPTION_KEY"))
	if raw == "" {
		return nil, fmt.Errorf("PANELVAULT_ENCRYPTION_KEY is required")
	}

	key, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return nil, fmt.Errorf("PANELVAULT_ENCRYPTION_KEY is not valid base64: %w", err)
	}
	if len(key) != EncryptionKeySize {
		return nil, fmt.Errorf("PANELVAULT_ENCRYPTION_KEY must decode to %d bytes, got %d", EncryptionKeySize, len(key))
	}

	return key, nil
}

func intEnv(name string, def, minimum int) (int, error) {
	v, ok := os.LookupEnv(name)
	if !ok {
		return def, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0, fmt.Errorf("%s has invalid integer %q: %w", name, v, err)
	}
	if n < minimum {
		return 0, fmt.Errorf("%s must be at least %d, got %d", name, minimum, n)
	}
	return n, nil
}

func durationEnv(name string, def time.Duration) (time.Duration, error) {
	v, ok := os.LookupEnv(name)
	if !ok {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s has invalid duration %q: %w", name, v, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %s", name, d)
	}
	return d, nil
}
