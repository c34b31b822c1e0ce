package config

import (
	"os"
	"strings"
)

type Config struct {
	Port         string
	PostgresURL  string
	KafkaBrokers []string
	RedisAddr    string
	ServiceName  string

	WorkflowTokenURL     string
	WorkflowAPIURL       string
	WorkflowClientID     string
	WorkflowClientSecret string
	WorkflowDefinitionID string
}

func Load() Config {
	return Config{
		Port:         getenv("PORT", "8080"),
		PostgresURL:  os.Getenv("POSTGRES_URL"),
		KafkaBrokers: splitCSV(os.Getenv("KAFKA_BROKERS")),
		RedisAddr:    os.Getenv("REDIS_ADDR"),
		ServiceName:  getenv("SERVICE_NAME", "stockflow"),

		WorkflowTokenURL:     os.Getenv("WORKFLOW_TOKEN_URL"),
		WorkflowAPIURL:       os.Getenv("WORKFLOW_API_URL"),
		WorkflowClientID:     os.Getenv("WORKFLOW_CLIENT_ID"),
		WorkflowClientSecret: os.Getenv("WORKFLOW_CLIENT_SECRET"),
		WorkflowDefinitionID: os.Getenv("WORKFLOW_DEFINITION_ID"),
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}
