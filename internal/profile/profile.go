package profile

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Profile is the configuration to start main server.
type Profile struct {
	// Mode can be "prod" or "dev" or "demo"
	Mode string
	// Addr is the binding address for server
	Addr string
	// Port is the binding port for server
	Port int
	// Data is the data directory
	Data string
	// DSN points to where cogniflow stores its own data
	DSN string
	// Driver is the database driver (sqlite or postgres)
	Driver string
	// Version is the current version of server
	Version string
	// InstanceURL is the public url of the instance, used in feeds.
	InstanceURL string
	// JWTSecret signs the bearer tokens accepted by the API.
	JWTSecret string
	// Timezone names the zone "now" is read in for time normalization.
	Timezone string

	// AI Configuration
	AIEnabled     bool    // COGNIFLOW_AI_ENABLED
	AIAPIKey      string  // COGNIFLOW_AI_API_KEY
	AIBaseURL     string  // COGNIFLOW_AI_BASE_URL (default: https://open.bigmodel.cn/api/paas/v4)
	AILLMModel    string  // COGNIFLOW_AI_LLM_MODEL (default: glm-4-flash)
	AITemperature float32 // COGNIFLOW_AI_TEMPERATURE (default: 0.3)

	// Web search configuration
	SearchAPIKey   string // COGNIFLOW_SEARCH_API_KEY (default: AIAPIKey)
	SearchURL      string // COGNIFLOW_SEARCH_URL (default: https://open.bigmodel.cn/api/paas/v4/web_search)
	SearchEngine   string // COGNIFLOW_SEARCH_ENGINE (default: search_std)
	SearchCount    int    // COGNIFLOW_SEARCH_COUNT (default: 5)
	SearchQPS      float64
	SearchRecency  string // COGNIFLOW_SEARCH_RECENCY (default: noLimit)
	SearchContent  string // COGNIFLOW_SEARCH_CONTENT_SIZE (default: medium)

	// Assist scheduler configuration
	AssistInterval  time.Duration // COGNIFLOW_ASSIST_INTERVAL (default: 30s)
	AssistBatchSize int           // COGNIFLOW_ASSIST_BATCH_SIZE (default: 5)
	AssistTaskDelay time.Duration // COGNIFLOW_ASSIST_TASK_DELAY (default: 1s)
}

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// IsAIEnabled returns true if AI is enabled and an API key is configured.
func (p *Profile) IsAIEnabled() bool {
	return p.AIEnabled && p.AIAPIKey != ""
}

// IsSearchEnabled returns true if a search API key is configured.
func (p *Profile) IsSearchEnabled() bool {
	return p.SearchAPIKey != "" && p.SearchURL != ""
}

// Location returns the configured time zone, falling back to time.Local.
func (p *Profile) Location() *time.Location {
	if p.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(p.Timezone)
	if err != nil {
		slog.Warn("unknown timezone, using local", slog.String("timezone", p.Timezone))
		return time.Local
	}
	return loc
}

func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
		slog.Warn("invalid duration in env, using default", slog.String("key", key), slog.String("value", value))
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
		slog.Warn("invalid integer in env, using default", slog.String("key", key), slog.String("value", value))
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// FromEnv loads AI, search and scheduler configuration from environment variables.
func (p *Profile) FromEnv() {
	p.AIEnabled = os.Getenv("COGNIFLOW_AI_ENABLED") == "true"
	p.AIAPIKey = os.Getenv("COGNIFLOW_AI_API_KEY")
	p.AIBaseURL = getEnvWithDefault("COGNIFLOW_AI_BASE_URL", "https://open.bigmodel.cn/api/paas/v4")
	p.AILLMModel = getEnvWithDefault("COGNIFLOW_AI_LLM_MODEL", "glm-4-flash")
	p.AITemperature = float32(getFloatEnv("COGNIFLOW_AI_TEMPERATURE", 0.3))

	p.SearchAPIKey = getEnvWithDefault("COGNIFLOW_SEARCH_API_KEY", p.AIAPIKey)
	p.SearchURL = getEnvWithDefault("COGNIFLOW_SEARCH_URL", "https://open.bigmodel.cn/api/paas/v4/web_search")
	p.SearchEngine = getEnvWithDefault("COGNIFLOW_SEARCH_ENGINE", "search_std")
	p.SearchCount = getIntEnv("COGNIFLOW_SEARCH_COUNT", 5)
	p.SearchQPS = getFloatEnv("COGNIFLOW_SEARCH_QPS", 2)
	p.SearchRecency = getEnvWithDefault("COGNIFLOW_SEARCH_RECENCY", "noLimit")
	p.SearchContent = getEnvWithDefault("COGNIFLOW_SEARCH_CONTENT_SIZE", "medium")

	p.AssistInterval = getDurationEnv("COGNIFLOW_ASSIST_INTERVAL", 30*time.Second)
	p.AssistBatchSize = getIntEnv("COGNIFLOW_ASSIST_BATCH_SIZE", 5)
	p.AssistTaskDelay = getDurationEnv("COGNIFLOW_ASSIST_TASK_DELAY", time.Second)

	if p.JWTSecret == "" {
		p.JWTSecret = os.Getenv("COGNIFLOW_JWT_SECRET")
	}
	if p.Timezone == "" {
		p.Timezone = os.Getenv("COGNIFLOW_TIMEZONE")
	}
}

func checkDataDir(dataDir string) (string, error) {
	// Convert to absolute path if relative path is supplied.
	if !filepath.IsAbs(dataDir) {
		relativeDir := filepath.Join(filepath.Dir(os.Args[0]), dataDir)
		absDir, err := filepath.Abs(relativeDir)
		if err != nil {
			return "", err
		}
		dataDir = absDir
	}

	dataDir = strings.TrimRight(dataDir, "\\/")
	if _, err := os.Stat(dataDir); err != nil {
		return "", errors.Wrapf(err, "unable to access data folder %s", dataDir)
	}
	return dataDir, nil
}

func (p *Profile) Validate() error {
	if p.Mode != "demo" && p.Mode != "dev" && p.Mode != "prod" {
		p.Mode = "demo"
	}
	if p.Driver == "" {
		p.Driver = "sqlite"
	}
	if p.Driver != "sqlite" && p.Driver != "postgres" {
		return errors.Errorf("unsupported driver %q", p.Driver)
	}
	if p.Driver == "postgres" && p.DSN == "" {
		return errors.New("dsn is required for postgres")
	}

	if p.Mode == "prod" && p.Data == "" {
		if runtime.GOOS == "windows" {
			p.Data = filepath.Join(os.Getenv("ProgramData"), "cogniflow")
		} else {
			p.Data = "/var/opt/cogniflow"
		}
		if _, err := os.Stat(p.Data); os.IsNotExist(err) {
			if err := os.MkdirAll(p.Data, 0770); err != nil {
				slog.Error("failed to create data directory", slog.String("data", p.Data), slog.String("error", err.Error()))
				return err
			}
		}
	}
	if p.Data == "" {
		p.Data = "."
	}

	dataDir, err := checkDataDir(p.Data)
	if err != nil {
		slog.Error("failed to check data dir", slog.String("data", p.Data), slog.String("error", err.Error()))
		return err
	}

	p.Data = dataDir
	if p.Driver == "sqlite" && p.DSN == "" {
		dbFile := fmt.Sprintf("cogniflow_%s.db", p.Mode)
		p.DSN = filepath.Join(dataDir, dbFile)
	}
	if p.AssistBatchSize <= 0 {
		p.AssistBatchSize = 5
	}
	return nil
}
