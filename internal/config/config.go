package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config 聚合整个服务的配置项。
type Config struct {
	Server    ServerConfig
	Log       LogConfig
	Chat      ChatConfig
	Events    EventsConfig
	Telemetry TelemetryConfig
}

// Load 从环境变量加载配置。
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	chat, err := loadChatConfig()
	if err != nil {
		return nil, err
	}

	events, err := loadEventsConfig()
	if err != nil {
		return nil, err
	}

	return &Config{
		Server:    server,
		Log:       loadLogConfig(),
		Chat:      chat,
		Events:    events,
		Telemetry: loadTelemetryConfig(),
	}, nil
}

// ServerConfig 描述 HTTP 服务配置。
type ServerConfig struct {
	Addr           string
	AllowedOrigins []string
}

// loadServerConfig 解析服务器监听地址。
func loadServerConfig() (ServerConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}

	origins := parseListEnv("CORS_ALLOWED_ORIGINS")
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	if strings.Contains(port, ":") {
		// 允许用户直接传入 ":8080" 或 "127.0.0.1:8080"。
		return ServerConfig{Addr: port, AllowedOrigins: origins}, nil
	}

	if _, err := strconv.Atoi(port); err != nil {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port, AllowedOrigins: origins}, nil
}

// LogConfig 描述日志输出。
type LogConfig struct {
	Level  string
	Format string
}

func loadLogConfig() LogConfig {
	return LogConfig{
		Level:  getEnvOrDefault("LOG_LEVEL", "info"),
		Format: getEnvOrDefault("LOG_FORMAT", "console"),
	}
}

// ChatConfig 描述客服组件的行为。
type ChatConfig struct {
	TypingDelay time.Duration
	CatalogPath string
	IdleTimeout time.Duration
}

func loadChatConfig() (ChatConfig, error) {
	delay, err := parseDurationEnv("CHAT_TYPING_DELAY", 1500*time.Millisecond)
	if err != nil {
		return ChatConfig{}, err
	}
	if delay < 0 {
		return ChatConfig{}, fmt.Errorf("invalid CHAT_TYPING_DELAY value %q: must not be negative", delay)
	}

	idle, err := parseDurationEnv("CHAT_SESSION_IDLE_TIMEOUT", 30*time.Minute)
	if err != nil {
		return ChatConfig{}, err
	}
	if idle < 0 {
		return ChatConfig{}, fmt.Errorf("invalid CHAT_SESSION_IDLE_TIMEOUT value %q: must not be negative", idle)
	}

	return ChatConfig{
		TypingDelay: delay,
		CatalogPath: strings.TrimSpace(os.Getenv("CHAT_CATALOG_PATH")),
		IdleTimeout: idle,
	}, nil
}

// EventsConfig 描述对话事件投递到 RabbitMQ 的配置。
type EventsConfig struct {
	AMQPURL       string
	Exchange      string
	RetryAttempts int
	RetryDelay    time.Duration
}

// Enabled 表示是否配置了消息代理。
func (c EventsConfig) Enabled() bool {
	return c.AMQPURL != ""
}

func loadEventsConfig() (EventsConfig, error) {
	attempts := 5
	if override, err := parseOptionalIntEnv("AMQP_RETRY_ATTEMPTS"); err != nil {
		return EventsConfig{}, err
	} else if override != nil {
		if *override < 1 {
			return EventsConfig{}, fmt.Errorf("invalid AMQP_RETRY_ATTEMPTS value %d: must be at least 1", *override)
		}
		attempts = *override
	}

	delay, err := parseDurationEnv("AMQP_RETRY_DELAY", time.Second)
	if err != nil {
		return EventsConfig{}, err
	}

	return EventsConfig{
		AMQPURL:       strings.TrimSpace(os.Getenv("AMQP_URL")),
		Exchange:      getEnvOrDefault("AMQP_EXCHANGE", "fixmycar.chat"),
		RetryAttempts: attempts,
		RetryDelay:    delay,
	}, nil
}

// TelemetryConfig 描述 OpenTelemetry 指标导出。
type TelemetryConfig struct {
	ServiceName  string
	Environment  string
	OTLPEndpoint string
	OTLPHeaders  string
}

// Enabled 表示是否配置了 OTLP 导出端点。
func (c TelemetryConfig) Enabled() bool {
	return c.OTLPEndpoint != ""
}

func loadTelemetryConfig() TelemetryConfig {
	return TelemetryConfig{
		ServiceName:  getEnvOrDefault("OTEL_SERVICE_NAME", "fixmycar-assistant"),
		Environment:  getEnvOrDefault("APP_ENV", "development"),
		OTLPEndpoint: strings.TrimSpace(os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")),
		OTLPHeaders:  strings.TrimSpace(os.Getenv("OTEL_EXPORTER_OTLP_HEADERS")),
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseDurationEnv(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
}

func parseOptionalIntEnv(key string) (*int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

func parseListEnv(key string) []string {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return nil
	}

	var out []string
	for _, part := range strings.Split(raw, ",") {
		if item := strings.TrimSpace(part); item != "" {
			out = append(out, item)
		}
	}
	return out
}
