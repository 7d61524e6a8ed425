package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	envPath  = ".env"
	EnvLocal = "local"
	EnvDev   = "dev"
	EnvProd  = "prod"

	StorageFile     = "file"
	StoragePostgres = "postgres"
)

type Config struct {
	Env       string            `mapstructure:"app_env"`
	Storage   Storage           `mapstructure:"storage"`
	Database  Database          `mapstructure:"database"`
	File      File              `mapstructure:"file"`
	Worker    Worker            `mapstructure:"worker"`
	GC        GC                `mapstructure:"gc"`
	Limits    Limits            `mapstructure:"limits"`
	Cooldowns Cooldowns         `mapstructure:"cooldowns"`
	Rewards   map[string]Reward `mapstructure:"rewards"`
	Server    Server            `mapstructure:"server"`
	Log       Log               `mapstructure:"log"`
}

type Storage struct {
	Type string `mapstructure:"type"`
}

// Database - параметры пула соединений PostgreSQL
type Database struct {
	DSN             string        `mapstructure:"dsn"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	AcquireTimeout  time.Duration `mapstructure:"acquire_timeout"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`
	RunMigrations   bool          `mapstructure:"run_migrations"`
}

type File struct {
	Path string `mapstructure:"path"`
	// SaveInterval - как часто повторять неудавшуюся запись документа; 0 отключает
	SaveInterval time.Duration `mapstructure:"save_interval"`
}

// Worker - пул фоновых задач и очередь главного цикла
type Worker struct {
	Size          int           `mapstructure:"size"`
	QueueSize     int           `mapstructure:"queue_size"`
	JobTimeout    time.Duration `mapstructure:"job_timeout"`
	LoopQueueSize int           `mapstructure:"loop_queue_size"`
}

// GC - очистка записей, удаленных дольше RetentionDays дней
type GC struct {
	Enabled       bool          `mapstructure:"enabled"`
	RetentionDays int           `mapstructure:"retention_days"`
	Interval      time.Duration `mapstructure:"interval"`
	StartupSweep  bool          `mapstructure:"startup_sweep"`
	StartupDelay  time.Duration `mapstructure:"startup_delay"`
}

type Limits struct {
	MinContentLength int `mapstructure:"min_content_length"`
	MaxContentLength int `mapstructure:"max_content_length"`
}

type Cooldowns struct {
	MaxPlayers  int           `mapstructure:"max_players"`
	ExpireAfter time.Duration `mapstructure:"expire_after"`
}

// Reward - настройки одного типа награды.
// Command может содержать %player%.
type Reward struct {
	Enabled       bool   `mapstructure:"enabled"`
	Chance        int    `mapstructure:"chance"`
	CooldownHours int    `mapstructure:"cooldown_hours"`
	Command       string `mapstructure:"command"`
}

type Server struct {
	Address         string        `mapstructure:"address"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	// APIToken - bearer токен для /api/*; пустой отключает API, кроме /health
	APIToken string `mapstructure:"api_token"`
}

type Log struct {
	Level string `mapstructure:"level"`
}

const DefaultRewardCooldownHours = 6

func setDefaults(v *viper.Viper) {
	v.SetDefault("app_env", EnvLocal)
	v.SetDefault("storage.type", StorageFile)

	v.SetDefault("database.dsn", "")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.min_conns", 2)
	v.SetDefault("database.acquire_timeout", 10*time.Second)
	v.SetDefault("database.max_conn_lifetime", 30*time.Minute)
	v.SetDefault("database.max_conn_idle_time", 10*time.Minute)
	v.SetDefault("database.run_migrations", true)

	v.SetDefault("file.path", "data/data.yml")
	v.SetDefault("file.save_interval", 30*time.Second)

	v.SetDefault("worker.size", 4)
	v.SetDefault("worker.queue_size", 256)
	v.SetDefault("worker.job_timeout", 15*time.Second)
	v.SetDefault("worker.loop_queue_size", 1024)

	v.SetDefault("gc.enabled", true)
	v.SetDefault("gc.retention_days", 30)
	v.SetDefault("gc.interval", 24*time.Hour)
	v.SetDefault("gc.startup_sweep", true)
	v.SetDefault("gc.startup_delay", time.Minute)

	v.SetDefault("limits.min_content_length", 3)
	v.SetDefault("limits.max_content_length", 5000)

	v.SetDefault("cooldowns.max_players", 10000)
	v.SetDefault("cooldowns.expire_after", 30*24*time.Hour)

	v.SetDefault("rewards", map[string]any{
		"daily": map[string]any{
			"enabled":        true,
			"chance":         10,
			"cooldown_hours": DefaultRewardCooldownHours,
			"command":        "give %player% diamond 1",
		},
	})

	v.SetDefault("server.address", ":8080")
	v.SetDefault("server.read_timeout", 10*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.api_token", "")

	v.SetDefault("log.level", "")
}

// Load читает конфигурацию: значения по умолчанию, затем YAML файл (если есть), затем .env и переменные окружения.
// Пустой path означает CONFIG_PATH или ./config.yaml.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(envPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Println("Failed to read .env file, relying on environment variables:", err)
	}

	v := viper.New()
	setDefaults(v)

	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// старые имена переменных
	_ = v.BindEnv("database.dsn", "DATABASE_DSN", "DATABASE_URI")
	_ = v.BindEnv("server.address", "SERVER_ADDRESS", "RUN_ADDRESS")
	_ = v.BindEnv("log.level", "LOG_LEVEL")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) || path != "" {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// MustLoad как Load, но завершает процесс при ошибке
func MustLoad() *Config {
	cfg, err := Load("")
	if err != nil {
		log.Fatalln("config:", err)
	}
	return cfg
}

func (c *Config) normalize() {
	c.Env = strings.ToLower(strings.TrimSpace(c.Env))
	c.Storage.Type = strings.ToLower(strings.TrimSpace(c.Storage.Type))

	for name, r := range c.Rewards {
		if r.CooldownHours <= 0 {
			r.CooldownHours = DefaultRewardCooldownHours
		}
		c.Rewards[name] = r
	}
}

// Validate проверяет согласованность настроек
func (c *Config) Validate() error {
	var errs []error

	switch c.Env {
	case EnvLocal, EnvDev, EnvProd:
	default:
		errs = append(errs, fmt.Errorf("app_env: unknown environment %q", c.Env))
	}

	switch c.Storage.Type {
	case StorageFile:
	case StoragePostgres:
		if c.Database.DSN == "" {
			errs = append(errs, errors.New("database.dsn is required for postgres storage"))
		}
	default:
		errs = append(errs, fmt.Errorf("storage.type: unknown type %q", c.Storage.Type))
	}

	if c.Database.MaxConns <= 0 {
		errs = append(errs, errors.New("database.max_conns must be positive"))
	}
	if c.Database.MinConns < 0 || c.Database.MinConns > c.Database.MaxConns {
		errs = append(errs, errors.New("database.min_conns must be between 0 and max_conns"))
	}
	if c.File.Path == "" {
		errs = append(errs, errors.New("file.path is required"))
	}
	if c.File.SaveInterval < 0 {
		errs = append(errs, errors.New("file.save_interval must not be negative"))
	}
	if c.Worker.Size <= 0 || c.Worker.QueueSize <= 0 || c.Worker.LoopQueueSize <= 0 {
		errs = append(errs, errors.New("worker sizes must be positive"))
	}
	if c.Worker.JobTimeout <= 0 {
		errs = append(errs, errors.New("worker.job_timeout must be positive"))
	}
	if c.GC.RetentionDays < 1 {
		errs = append(errs, errors.New("gc.retention_days must be at least 1"))
	}
	if c.GC.Enabled && c.GC.Interval <= 0 {
		errs = append(errs, errors.New("gc.interval must be positive"))
	}
	if c.Limits.MinContentLength < 1 || c.Limits.MaxContentLength < c.Limits.MinContentLength {
		errs = append(errs, errors.New("limits: need 1 <= min_content_length <= max_content_length"))
	}
	if c.Cooldowns.MaxPlayers <= 0 || c.Cooldowns.ExpireAfter <= 0 {
		errs = append(errs, errors.New("cooldowns: max_players and expire_after must be positive"))
	}
	for name, r := range c.Rewards {
		if r.Chance < 0 || r.Chance > 100 {
			errs = append(errs, fmt.Errorf("rewards.%s.chance must be within 0..100", name))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// GCRetention возвращает срок хранения удаленных записей
func (c *Config) GCRetention() time.Duration {
	return time.Duration(c.GC.RetentionDays) * 24 * time.Hour
}
