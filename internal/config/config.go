package config

import (
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server" json:"server"`
	Database  DatabaseConfig  `mapstructure:"database" json:"database"`
	Warehouse DatabaseConfig  `mapstructure:"warehouse" json:"warehouse"`
	OpenAI    OpenAIConfig    `mapstructure:"openai" json:"openai"`
	Retrieval RetrievalConfig `mapstructure:"retrieval" json:"retrieval"`
	Session   SessionConfig   `mapstructure:"session" json:"session"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit" json:"rate_limit"`
	Routing   RoutingConfig   `mapstructure:"routing" json:"routing"`
	Admin     AdminConfig     `mapstructure:"admin" json:"admin"`
}

type ServerConfig struct {
	Host string `mapstructure:"host" json:"host"`
	Port int    `mapstructure:"port" json:"port"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host" json:"host"`
	Port     int    `mapstructure:"port" json:"port"`
	User     string `mapstructure:"user" json:"user"`
	Password string `mapstructure:"password" json:"password"`
	Database string `mapstructure:"database" json:"database"`
	SSLMode  string `mapstructure:"sslmode" json:"sslmode"`
}

type OpenAIConfig struct {
	APIKey         string  `mapstructure:"api_key" json:"api_key"`
	ChatModel      string  `mapstructure:"chat_model" json:"chat_model"`
	EmbeddingModel string  `mapstructure:"embedding_model" json:"embedding_model"`
	Temperature    float32 `mapstructure:"temperature" json:"temperature"`
}

type RetrievalConfig struct {
	TopK int `mapstructure:"top_k" json:"top_k"`
}

type SessionConfig struct {
	TTLSeconds      int `mapstructure:"ttl_seconds" json:"ttl_seconds"`
	MaxHistoryPairs int `mapstructure:"max_history_pairs" json:"max_history_pairs"`
}

type RateLimitConfig struct {
	Enabled    bool `mapstructure:"enabled" json:"enabled"`
	DailyLimit int  `mapstructure:"daily_limit" json:"daily_limit"`
}

// RoutingConfig carries the heuristic vocabularies and the SQL verb denylist.
// All lists are overridable so new warehouse vocabulary can be added without
// a rebuild.
type RoutingConfig struct {
	SQLKeywords      []string `mapstructure:"sql_keywords" json:"sql_keywords"`
	DocKeywords      []string `mapstructure:"doc_keywords" json:"doc_keywords"`
	ForbiddenSQL     []string `mapstructure:"forbidden_sql" json:"forbidden_sql"`
	SchemaFile       string   `mapstructure:"schema_file" json:"schema_file"`
	MaxBlockingCalls int      `mapstructure:"max_blocking_calls" json:"max_blocking_calls"`
}

type AdminConfig struct {
	// Bcrypt hash of the admin token. Empty disables the admin endpoints.
	TokenHash string `mapstructure:"token_hash" json:"token_hash"`
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("json")

	// Add config paths
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	// Check for user config directory
	homeDir, err := os.UserHomeDir()
	if err == nil {
		viper.AddConfigPath(filepath.Join(homeDir, ".dealerdesk"))
	}

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		// No config file is fine; defaults plus env cover everything
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	loadEnvOverrides(&cfg)

	return &cfg, nil
}

func setDefaults() {
	viper.SetDefault("server.host", "localhost")
	viper.SetDefault("server.port", 8080)

	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.user", "dealerdesk")
	viper.SetDefault("database.database", "dealerdesk")
	viper.SetDefault("database.sslmode", "disable")

	viper.SetDefault("warehouse.host", "localhost")
	viper.SetDefault("warehouse.port", 5432)
	viper.SetDefault("warehouse.user", "dealerdesk_ro")
	viper.SetDefault("warehouse.database", "sales")
	viper.SetDefault("warehouse.sslmode", "disable")

	viper.SetDefault("openai.chat_model", "gpt-4o-mini")
	viper.SetDefault("openai.embedding_model", "text-embedding-3-small")
	viper.SetDefault("openai.temperature", 0.0)

	viper.SetDefault("retrieval.top_k", 4)

	viper.SetDefault("session.ttl_seconds", 3600)
	viper.SetDefault("session.max_history_pairs", 10)

	viper.SetDefault("rate_limit.enabled", true)
	viper.SetDefault("rate_limit.daily_limit", 20)

	viper.SetDefault("routing.sql_keywords", []string{
		"sales", "revenue", "total", "average", "count", "sum",
		"top", "best", "monthly", "quarterly", "yearly", "by brand",
		"by model", "by region", "how many", "how much",
	})
	viper.SetDefault("routing.doc_keywords", []string{
		"warranty", "policy", "manual", "contract", "coverage",
		"maintenance", "service interval", "terms", "appendix",
		"procedure", "instructions",
	})
	viper.SetDefault("routing.forbidden_sql", []string{
		"DROP", "DELETE", "UPDATE", "INSERT", "ALTER", "CREATE",
		"TRUNCATE", "EXEC", "EXECUTE", "MERGE", "REPLACE", "GRANT",
		"REVOKE",
	})
	viper.SetDefault("routing.schema_file", "")
	viper.SetDefault("routing.max_blocking_calls", 8)
}

func loadEnvOverrides(cfg *Config) {
	if port := os.Getenv("DEALERDESK_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.Server.Port = p
		}
	}
	if host := os.Getenv("DEALERDESK_HOST"); host != "" {
		cfg.Server.Host = host
	}

	// Database overrides
	if dbHost := os.Getenv("POSTGRES_HOST"); dbHost != "" {
		cfg.Database.Host = dbHost
	}
	if dbPort := os.Getenv("POSTGRES_PORT"); dbPort != "" {
		if port, err := strconv.Atoi(dbPort); err == nil {
			cfg.Database.Port = port
		}
	}
	if dbUser := os.Getenv("POSTGRES_USER"); dbUser != "" {
		cfg.Database.User = dbUser
	}
	if dbPass := os.Getenv("POSTGRES_PASSWORD"); dbPass != "" {
		cfg.Database.Password = dbPass
	}
	if dbName := os.Getenv("POSTGRES_DB"); dbName != "" {
		cfg.Database.Database = dbName
	}

	// Warehouse overrides (read-only analytics store)
	if whHost := os.Getenv("WAREHOUSE_HOST"); whHost != "" {
		cfg.Warehouse.Host = whHost
	}
	if whUser := os.Getenv("WAREHOUSE_USER"); whUser != "" {
		cfg.Warehouse.User = whUser
	}
	if whPass := os.Getenv("WAREHOUSE_PASSWORD"); whPass != "" {
		cfg.Warehouse.Password = whPass
	}
	if whName := os.Getenv("WAREHOUSE_DB"); whName != "" {
		cfg.Warehouse.Database = whName
	}

	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		cfg.OpenAI.APIKey = key
	}
	if hash := os.Getenv("DEALERDESK_ADMIN_TOKEN_HASH"); hash != "" {
		cfg.Admin.TokenHash = hash
	}
}
