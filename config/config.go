package config

import (
	"encoding/base64"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	DSN            string
	Port           string
	MaxConnections int
	DBLogLevel     string

	// SigningSecret is the decoded HMAC key for worker tokens.
	SigningSecret []byte

	// The shortfall reason catalog comes from a YAML file, or failing that an
	// SSM parameter. With neither set the built-in catalog is used.
	ReasonCatalogFile  string
	ReasonCatalogParam string
	DatabasesParam     string

	ReportBucket     string
	ReportEmailFrom  string
	ReportEmailTo    []string
	SlackToken       string
	SlackInfoChannel string
	SlackErrChannel  string
}

// LoadEnv reads .env when present. Variables already in the environment win.
func LoadEnv(files ...string) {
	if err := godotenv.Load(files...); err != nil {
		log.Println("[INFO] no .env file loaded, using the process environment")
	}
}

func GetEnv(key string, defaultValue ...string) string {
	value, exists := os.LookupEnv(key)
	if (!exists || value == "") && len(defaultValue) > 0 {
		return defaultValue[0]
	}
	return value
}

// Load reads the configuration from the environment.
func Load() (*Config, error) {
	cfg := &Config{
		DSN:                GetEnv("DSN"),
		Port:               GetEnv("PORT", "8090"),
		DBLogLevel:         GetEnv("DB_LOG_LEVEL", "error"),
		ReasonCatalogFile:  GetEnv("REASON_CATALOG_FILE"),
		ReasonCatalogParam: GetEnv("REASON_CATALOG_PARAM"),
		DatabasesParam:     GetEnv("DATABASES_PARAM", "databases"),
		ReportBucket:       GetEnv("REPORT_BUCKET"),
		ReportEmailFrom:    GetEnv("REPORT_EMAIL_FROM"),
		ReportEmailTo:      splitList(GetEnv("REPORT_EMAIL_TO")),
		SlackToken:         GetEnv("SLACK_BOT_TOKEN"),
		SlackInfoChannel:   GetEnv("SLACK_INFO_CHANNEL"),
		SlackErrChannel:    GetEnv("SLACK_ERROR_CHANNEL"),
	}

	maxConn, err := strconv.Atoi(GetEnv("DB_MAX_CONNECTIONS", "10"))
	if err != nil || maxConn <= 0 {
		return nil, fmt.Errorf("DB_MAX_CONNECTIONS must be a positive integer")
	}
	cfg.MaxConnections = maxConn

	if secret := GetEnv("SIGNING_SECRET"); secret != "" {
		decoded, err := base64.StdEncoding.DecodeString(secret)
		if err != nil {
			return nil, fmt.Errorf("failed to decode SIGNING_SECRET: %w", err)
		}
		cfg.SigningSecret = decoded
	}

	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
