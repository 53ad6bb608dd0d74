package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the application
type Config struct {
	// MySQL target
	MySQLHost     string
	MySQLPort     int
	MySQLUser     string
	MySQLPassword string
	MySQLDB       string
	MySQLCharset  string

	// Connection establishment retry
	ConnectMaxAttempts    int
	ConnectInitialDelayMs int
	ConnectMaxDelayMs     int

	// Dump and log locations
	ImportDir string // Directory the dump files are resolved against
	LogDir    string // Directory for per-session import logs

	// Batch tuning
	BatchLines      int           // Line budget per batch
	BatchTime       time.Duration // Wall-clock budget per batch
	ReadBufferBytes int           // Read chunk size of the line source

	// Engine behaviour
	PolicyPath          string   // YAML file with non-fatal codes and collation substitutions
	ExtraNonFatalCodes  []uint16 // Added on top of the policy
	TruncatedStatements string   // "report" or "silent"
	CollectTableStats   bool
	SkipVersionComments bool // Treat /*!NNNNN ... */ lines as comments

	// Checkpoint storage
	CheckpointDBPath string

	// HTTP API
	HTTPPort int

	// Progress mirror to ClickHouse
	ProgressMirror bool
	ClickHouseHost string
	ClickHousePort int
	ClickHouseDB   string

	// Observability
	LogLevel        string
	LogFile         string
	TracingEnabled  bool
	TracingEndpoint string
	TracingProtocol string
	TracingSample   float64 // Fraction of batch spans kept
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	extraCodes, err := parseCodeList(getEnv("NON_FATAL_CODES", ""))
	if err != nil {
		return nil, fmt.Errorf("invalid NON_FATAL_CODES: %w", err)
	}

	importDir := getEnv("IMPORT_DIR", ".")

	cfg := &Config{
		MySQLHost:     getEnv("MYSQL_HOST", "localhost"),
		MySQLPort:     getEnvInt("MYSQL_PORT", 3306),
		MySQLUser:     getEnv("MYSQL_USER", "root"),
		MySQLPassword: os.Getenv("MYSQL_PASSWORD"),
		MySQLDB:       getEnv("MYSQL_DB", ""),
		MySQLCharset:  getEnv("MYSQL_CHARSET", "utf8mb4"),

		ConnectMaxAttempts:    getEnvInt("DB_CONNECT_MAX_ATTEMPTS", 3),
		ConnectInitialDelayMs: getEnvInt("DB_CONNECT_INITIAL_DELAY_MS", 200),
		ConnectMaxDelayMs:     getEnvInt("DB_CONNECT_MAX_DELAY_MS", 2000),

		ImportDir: importDir,
		LogDir:    getEnv("IMPORT_LOG_DIR", importDir),

		BatchLines:      getEnvInt("BATCH_LINES", 3000),
		BatchTime:       time.Duration(getEnvInt("BATCH_TIME_SECONDS", 25)) * time.Second,
		ReadBufferBytes: getEnvInt("READ_BUFFER_BYTES", 40960),

		PolicyPath:          getEnv("IMPORT_POLICY_PATH", ""),
		ExtraNonFatalCodes:  extraCodes,
		TruncatedStatements: strings.ToLower(getEnv("TRUNCATED_STATEMENTS", "report")),
		CollectTableStats:   getEnvBool("COLLECT_TABLE_STATS", true),
		SkipVersionComments: getEnvBool("SKIP_VERSION_COMMENTS", false),

		CheckpointDBPath: getEnv("CHECKPOINT_DB", "checkpoints.db"),

		HTTPPort: getEnvInt("HTTP_PORT", 8080),

		ProgressMirror: getEnvBool("PROGRESS_MIRROR", false),
		ClickHouseHost: getEnv("CLICKHOUSE_HOST", "localhost"),
		ClickHousePort: getEnvInt("CLICKHOUSE_PORT", 9000),
		ClickHouseDB:   getEnv("CLICKHOUSE_DB", "logs"),

		LogLevel:        getEnv("LOG_LEVEL", "info"),
		LogFile:         getEnv("LOG_FILE", ""),
		TracingEnabled:  getEnvBool("TRACING_ENABLED", false),
		TracingEndpoint: getEnv("TRACING_ENDPOINT", ""),
		TracingProtocol: getEnv("TRACING_PROTOCOL", "grpc"),
		TracingSample:   getEnvFloat("TRACING_SAMPLE_RATIO", 1),
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.MySQLHost == "" {
		return fmt.Errorf("MYSQL_HOST is required")
	}
	if c.MySQLPort <= 0 || c.MySQLPort > 65535 {
		return fmt.Errorf("MYSQL_PORT must be between 1 and 65535")
	}
	if c.MySQLDB == "" {
		return fmt.Errorf("MYSQL_DB is required")
	}
	if c.ConnectMaxAttempts < 1 {
		return fmt.Errorf("DB_CONNECT_MAX_ATTEMPTS must be at least 1")
	}
	if c.BatchLines < 1 {
		return fmt.Errorf("BATCH_LINES must be at least 1")
	}
	if c.BatchTime < time.Second {
		return fmt.Errorf("BATCH_TIME_SECONDS must be at least 1")
	}
	if c.ReadBufferBytes < 1024 {
		return fmt.Errorf("READ_BUFFER_BYTES must be at least 1024")
	}
	if c.TruncatedStatements != "report" && c.TruncatedStatements != "silent" {
		return fmt.Errorf("TRUNCATED_STATEMENTS must be 'report' or 'silent'")
	}
	if c.TracingSample < 0 || c.TracingSample > 1 {
		return fmt.Errorf("TRACING_SAMPLE_RATIO must be between 0 and 1")
	}
	if c.CheckpointDBPath == "" {
		return fmt.Errorf("CHECKPOINT_DB is required")
	}
	if c.HTTPPort <= 0 || c.HTTPPort > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535")
	}
	if c.ProgressMirror {
		if c.ClickHouseHost == "" {
			return fmt.Errorf("CLICKHOUSE_HOST is required when PROGRESS_MIRROR is enabled")
		}
		if c.ClickHousePort <= 0 || c.ClickHousePort > 65535 {
			return fmt.Errorf("CLICKHOUSE_PORT must be between 1 and 65535")
		}
		if c.ClickHouseDB == "" {
			return fmt.Errorf("CLICKHOUSE_DB is required when PROGRESS_MIRROR is enabled")
		}
	}

	return nil
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets an integer environment variable or returns a default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvFloat gets a float environment variable or returns a default value
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

// getEnvBool gets a boolean environment variable or returns a default value
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// parseCodeList parses a comma or semicolon separated list of MySQL error numbers
func parseCodeList(value string) ([]uint16, error) {
	if value == "" {
		return nil, nil
	}

	fields := strings.FieldsFunc(value, func(r rune) bool {
		return r == ',' || r == ';'
	})
	result := make([]uint16, 0, len(fields))

	for _, field := range fields {
		trimmed := strings.TrimSpace(field)
		if trimmed == "" {
			continue
		}
		code, err := strconv.ParseUint(trimmed, 10, 16)
		if err != nil {
			return nil, fmt.Errorf("bad error code %q: %w", trimmed, err)
		}
		result = append(result, uint16(code))
	}

	return result, nil
}
