package params

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type API struct {
	Addr        string
	CORSOrigins []string
}

// Node is the upstream exchange node the desk reads state from and
// broadcasts signed transactions to.
type Node struct {
	URL            string
	Timeout        time.Duration // per request
	ConfirmTimeout time.Duration // total wait for a tx confirmation
	PollInterval   time.Duration
}

type Log struct {
	File       string // rotated log file; empty logs to stdout only
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// Orders tunes plan construction.
type Orders struct {
	ChainID     int64
	MarketsFile string // YAML market table; empty uses the built-in table

	// LadderRemainderToLast puts the truncation remainder of a scaled order
	// on its last leg so the legs sum to the requested size.
	LadderRemainderToLast bool
}

type Config struct {
	API    API
	Node   Node
	Log    Log
	Orders Orders
}

func Default() Config {
	return Config{
		API: API{
			Addr:        ":8080",
			CORSOrigins: []string{"http://localhost:3000"},
		},
		Node: Node{
			URL:            "http://localhost:26657",
			Timeout:        5 * time.Second,
			ConfirmTimeout: 30 * time.Second,
			PollInterval:   250 * time.Millisecond,
		},
		Log: Log{
			File:       "", // stdout only
			MaxSizeMB:  100,
			MaxBackups: 5,
			MaxAgeDays: 28,
		},
		Orders: Orders{
			ChainID: 1337,
		},
	}
}

// LoadFromEnv loads configuration from .env file (if exists) and environment variables
// Priority: ENV > .env file > defaults
func LoadFromEnv(envPath string) Config {
	cfg := Default()

	if envPath != "" {
		_ = godotenv.Load(envPath)
	} else {
		_ = godotenv.Load()
	}

	cfg.API.Addr = getEnv("API_ADDR", cfg.API.Addr)
	if origins := os.Getenv("CORS_ORIGINS"); origins != "" {
		cfg.API.CORSOrigins = splitList(origins)
	}

	cfg.Node.URL = getEnv("NODE_URL", cfg.Node.URL)
	cfg.Node.Timeout = getEnvMillis("NODE_TIMEOUT_MS", cfg.Node.Timeout)
	cfg.Node.ConfirmTimeout = getEnvMillis("CONFIRM_TIMEOUT_MS", cfg.Node.ConfirmTimeout)
	cfg.Node.PollInterval = getEnvMillis("CONFIRM_POLL_MS", cfg.Node.PollInterval)

	cfg.Log.File = getEnv("LOG_FILE", cfg.Log.File)
	cfg.Log.MaxSizeMB = getEnvInt("LOG_MAX_SIZE_MB", cfg.Log.MaxSizeMB)
	cfg.Log.MaxBackups = getEnvInt("LOG_MAX_BACKUPS", cfg.Log.MaxBackups)
	cfg.Log.MaxAgeDays = getEnvInt("LOG_MAX_AGE_DAYS", cfg.Log.MaxAgeDays)

	cfg.Orders.MarketsFile = getEnv("MARKETS_FILE", cfg.Orders.MarketsFile)
	if v := os.Getenv("CHAIN_ID"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Orders.ChainID = id
		}
	}
	if v := os.Getenv("LADDER_REMAINDER_TO_LAST"); v != "" {
		cfg.Orders.LadderRemainderToLast = v == "true"
	}

	return cfg
}

// getEnv returns environment variable value or default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvMillis(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if ms, err := strconv.Atoi(value); err == nil && ms > 0 {
			return time.Duration(ms) * time.Millisecond
		}
	}
	return defaultValue
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
