package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	AWS       AWSConfig
	Cognito   CognitoConfig
	LLM       LLMConfig
	Cache     CacheConfig
	Session   SessionConfig
	RateLimit RateLimitConfig
	Logging   LoggingConfig
}

type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  int
	WriteTimeout int
	BodyLimit    int
}

type AWSConfig struct {
	Region       string
	TendersTable string
	UsersTable   string

	// Recognized for deployment parity; no operation here reads bookmarks.
	BookmarksTable string
}

type CognitoConfig struct {
	// Empty pool id disables the identity-provider indirection; profile
	// resolution then works by direct identifier only.
	UserPoolID string
}

type LLMConfig struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float32
	MaxTokens   int
	TimeoutSec  int
}

type CacheConfig struct {
	TTLMinutes int
}

type SessionConfig struct {
	// WindowSize bounds the full message list, pinned instruction included.
	WindowSize         int
	IdleTimeoutMinutes int
	RankLimit          int
}

type RateLimitConfig struct {
	MaxRequestsPerMinute int
}

type LoggingConfig struct {
	Level      string
	Format     string
	OutputPath string
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/etc/bmax")

	viper.SetEnvPrefix("BMAX")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Bare env names the deployment environment already exports.
	viper.BindEnv("aws.region", "BMAX_AWS_REGION", "AWS_REGION")
	viper.BindEnv("aws.tendersTable", "BMAX_AWS_TENDERSTABLE", "DYNAMODB_TABLE_DEST")
	viper.BindEnv("aws.usersTable", "BMAX_AWS_USERSTABLE", "DYNAMODB_TABLE_USERS")
	viper.BindEnv("aws.bookmarksTable", "BMAX_AWS_BOOKMARKSTABLE", "DYNAMODB_TABLE_BOOKMARKS")
	viper.BindEnv("cognito.userPoolId", "BMAX_COGNITO_USERPOOLID", "COGNITO_USER_POOL_ID")
	viper.BindEnv("llm.apiKey", "BMAX_LLM_APIKEY", "OLLAMA_API_KEY")
	viper.BindEnv("server.port", "BMAX_SERVER_PORT", "PORT")

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8000)
	viper.SetDefault("server.readTimeout", 30)
	viper.SetDefault("server.writeTimeout", 120)
	viper.SetDefault("server.bodyLimit", 1048576)

	viper.SetDefault("aws.region", "af-south-1")
	viper.SetDefault("aws.tendersTable", "ProcessedTender")
	viper.SetDefault("aws.usersTable", "BMaxUsers")
	viper.SetDefault("aws.bookmarksTable", "BMaxBookmarks")

	viper.SetDefault("cognito.userPoolId", "")

	viper.SetDefault("llm.baseUrl", "https://ollama.com/v1")
	viper.SetDefault("llm.model", "gpt-oss:120b")
	viper.SetDefault("llm.temperature", 0.4)
	viper.SetDefault("llm.maxTokens", 1024)
	viper.SetDefault("llm.timeoutSec", 60)

	viper.SetDefault("cache.ttlMinutes", 30)

	viper.SetDefault("session.windowSize", 21)
	viper.SetDefault("session.idleTimeoutMinutes", 120)
	viper.SetDefault("session.rankLimit", 5)

	viper.SetDefault("ratelimit.maxRequestsPerMinute", 60)

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
	viper.SetDefault("logging.outputPath", "stdout")
}
