package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const (
	StoreRedis  = "redis"
	StoreSQL    = "sql"
	StoreMemory = "memory"
)

type Config struct {
	Port        string `mapstructure:"port"`
	BindAddress string `mapstructure:"bind_address"`
	Mode        string `mapstructure:"mode"` // gin mode: debug, release, test

	DBDriver   string `mapstructure:"db_driver"` // postgres, mysql
	DBHost     string `mapstructure:"db_host"`
	DBPort     string `mapstructure:"db_port"`
	DBUser     string `mapstructure:"db_user"`
	DBPassword string `mapstructure:"db_password"`
	DBName     string `mapstructure:"db_name"`

	RedisHost     string `mapstructure:"redis_host"`
	RedisPort     string `mapstructure:"redis_port"`
	RedisPassword string `mapstructure:"redis_password"`
	RedisDB       int    `mapstructure:"redis_db"`

	// QuizStore selects where published quizzes live: redis, sql or memory.
	QuizStore string `mapstructure:"quiz_store"`

	SessionTTL    time.Duration `mapstructure:"session_ttl"`
	DraftTTL      time.Duration `mapstructure:"draft_ttl"`
	TickInterval  time.Duration `mapstructure:"tick_interval"`
	PublicBaseURL string        `mapstructure:"public_base_url"`

	LogLevel string `mapstructure:"log_level"`
	LogFile  string `mapstructure:"log_file"`

	CORSOrigins     []string      `mapstructure:"cors_origins"`
	RateLimit       int           `mapstructure:"rate_limit"`
	RateLimitWindow time.Duration `mapstructure:"rate_limit_window"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", "8080")
	v.SetDefault("bind_address", "localhost")
	v.SetDefault("mode", "debug")

	v.SetDefault("db_driver", "postgres")
	v.SetDefault("db_host", "localhost")
	v.SetDefault("db_port", "5432")
	v.SetDefault("db_user", "cbt")
	v.SetDefault("db_password", "cbt123")
	v.SetDefault("db_name", "cbtportal")

	v.SetDefault("redis_host", "localhost")
	v.SetDefault("redis_port", "6379")
	v.SetDefault("redis_password", "")
	v.SetDefault("redis_db", 0)

	v.SetDefault("quiz_store", StoreRedis)

	v.SetDefault("session_ttl", 30*time.Minute)
	v.SetDefault("draft_ttl", 24*time.Hour)
	v.SetDefault("tick_interval", time.Second)
	v.SetDefault("public_base_url", "")

	v.SetDefault("log_level", "info")
	v.SetDefault("log_file", "logs/app.log")

	v.SetDefault("cors_origins", []string{"http://localhost:3000"})
	v.SetDefault("rate_limit", 600)
	v.SetDefault("rate_limit_window", time.Minute)
}

// Load reads configuration from, in increasing priority: defaults, an optional
// config.yaml, a .env file, the environment (PORT, DB_HOST, REDIS_HOST, ...) and
// command-line flags.
func Load(args []string) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	flags := pflag.NewFlagSet("cbtportal", pflag.ContinueOnError)
	configPath := flags.String("config", "", "path to a config.yaml")
	flags.String("port", "", "HTTP port")
	flags.String("quiz-store", "", "quiz store backend: redis, sql or memory")
	flags.String("log-level", "", "log level: debug, info, warn, error")
	if err := flags.Parse(args); err != nil {
		return nil, err
	}
	for _, name := range []string{"port", "quiz-store", "log-level"} {
		f := flags.Lookup(name)
		if f.Changed {
			v.Set(strings.ReplaceAll(name, "-", "_"), f.Value.String())
		}
	}

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("configs")
	if *configPath != "" {
		v.SetConfigFile(*configPath)
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) || *configPath != "" {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.QuizStore {
	case StoreRedis, StoreSQL, StoreMemory:
	default:
		return fmt.Errorf("unknown quiz store %q", c.QuizStore)
	}
	switch c.DBDriver {
	case "postgres", "mysql":
	default:
		return fmt.Errorf("unknown db driver %q", c.DBDriver)
	}
	if c.TickInterval <= 0 {
		return fmt.Errorf("tick interval must be positive, got %s", c.TickInterval)
	}
	return nil
}

func InitDB(cfg *Config) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.DBDriver {
	case "mysql":
		dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=true&loc=UTC",
			cfg.DBUser, cfg.DBPassword, cfg.DBHost, cfg.DBPort, cfg.DBName)
		dialector = mysql.Open(dsn)
	default:
		dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=UTC",
			cfg.DBHost, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBPort)
		dialector = postgres.Open(dsn)
	}

	logMode := gormlogger.Warn
	if cfg.Mode == "debug" {
		logMode = gormlogger.Info
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(logMode),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return db, nil
}

func InitRedis(cfg *Config) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", cfg.RedisHost, cfg.RedisPort),
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	return client
}
