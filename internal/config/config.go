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
	Server  ServerConfig
	Agent   AgentConfig
	Store   StoreConfig
	Logging LoggingConfig
}

// Load 从环境变量加载配置。
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	agent, err := loadAgentConfig()
	if err != nil {
		return nil, err
	}

	return &Config{
		Server:  server,
		Agent:   agent,
		Store:   loadStoreConfig(),
		Logging: loadLoggingConfig(),
	}, nil
}

// ServerConfig 描述 HTTP 服务配置。
type ServerConfig struct {
	Addr string
}

// loadServerConfig 解析服务器监听地址。
func loadServerConfig() (ServerConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}

	if strings.Contains(port, ":") {
		// 允许用户直接传入 ":8080" 或 "127.0.0.1:8080"。
		return ServerConfig{Addr: port}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port}, nil
}

// AgentConfig 描述外部智能体接口的配置。
type AgentConfig struct {
	Endpoint string
	AgentID  string
	Timeout  time.Duration
}

// loadAgentConfig 解析外部智能体相关配置。
func loadAgentConfig() (AgentConfig, error) {
	timeoutSeconds := 60
	if override, err := parseOptionalIntEnv("AGENT_TIMEOUT_SECONDS"); err != nil {
		return AgentConfig{}, err
	} else if override != nil {
		if *override < 1 {
			timeoutSeconds = 1
		} else {
			timeoutSeconds = *override
		}
	}

	return AgentConfig{
		Endpoint: getEnvOrDefault("AGENT_ENDPOINT", "http://localhost:8001/api/chat"),
		AgentID:  getEnvOrDefault("AGENT_ID", "scribe-agent"),
		Timeout:  time.Duration(timeoutSeconds) * time.Second,
	}, nil
}

// StoreConfig 描述快照数据库的位置。
type StoreConfig struct {
	Path string
}

func loadStoreConfig() StoreConfig {
	return StoreConfig{Path: getEnvOrDefault("DB_PATH", "scribe.db")}
}

// LoggingConfig 描述日志级别与输出格式。
type LoggingConfig struct {
	Level  string
	Format string
}

func loadLoggingConfig() LoggingConfig {
	return LoggingConfig{
		Level:  getEnvOrDefault("LOG_LEVEL", "info"),
		Format: getEnvOrDefault("LOG_FORMAT", "console"),
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
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
