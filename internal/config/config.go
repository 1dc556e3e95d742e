package config

import (
	"log/slog"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	LISListenPort   int
	HL7ListenPort   int
	MLLPListenPort  int
	LISUsername     string
	LISPassword     string
	TokenTTLMinutes int
	ResultBridge    bool
	LogLevel        string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		LISListenPort:   getEnvAsInt("LIS_LISTEN_PORT", 8000),
		HL7ListenPort:   getEnvAsInt("HL7_LISTEN_PORT", 5000),
		MLLPListenPort:  getEnvAsInt("MLLP_LISTEN_PORT", 2575),
		LISUsername:     getEnv("LIS_USERNAME", "wsadmin"),
		LISPassword:     getEnv("LIS_PASSWORD", "password"),
		TokenTTLMinutes: getEnvAsInt("TOKEN_TTL_MINUTES", 60),
		ResultBridge:    getEnvAsBool("LIS_RESULT_BRIDGE", true),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
	}

	setupLogger(cfg.LogLevel)

	slog.Info("Configuration loaded",
		"lisPort", cfg.LISListenPort,
		"hl7Port", cfg.HL7ListenPort,
		"mllpPort", cfg.MLLPListenPort,
		"tokenTTLMinutes", cfg.TokenTTLMinutes,
		"resultBridge", cfg.ResultBridge,
	)

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func setupLogger(level string) {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: logLevel,
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, opts))
	slog.SetDefault(logger)
}
