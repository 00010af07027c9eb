package config

import (
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	Env        string `yaml:"env" env:"ENV" env-default:"local"`
	HTTPServer `yaml:"http_server"`
	Backend    Backend    `yaml:"backend"`
	Submission Submission `yaml:"submission"`
	DB         DB         `yaml:"db"`
	Archive    Archive    `yaml:"archive"`
	Events     Events     `yaml:"events"`
	Auth       Auth       `yaml:"auth"`
	Metrics    Metrics    `yaml:"metrics"`
}

type HTTPServer struct {
	Address     string        `yaml:"address" env:"HTTP_ADDRESS" env-default:"localhost:8080"`
	Timeout     time.Duration `yaml:"timeout" env-default:"4s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env-default:"60s"`
}

// Backend points at the detection service. Every JSON call is bounded by Timeout,
// streams and downloads are bounded only by the caller.
type Backend struct {
	BaseURL string        `yaml:"base_url" env:"BACKEND_URL" env-default:"http://localhost:5000"`
	Timeout time.Duration `yaml:"timeout" env-default:"30s"`
}

type Submission struct {
	SpoolDir          string        `yaml:"spool_dir" env-default:""`
	PollInterval      time.Duration `yaml:"poll_interval" env-default:"2s"`
	ProcessingTimeout time.Duration `yaml:"processing_timeout" env-default:"15m"`
	DriveFeed         bool          `yaml:"drive_feed" env-default:"true"`
}

type DB struct {
	Enabled  bool   `yaml:"enabled" env-default:"false"`
	Host     string `yaml:"host" env-default:"localhost"`
	Port     string `yaml:"port" env-default:"5432"`
	Username string `yaml:"username" env-default:"postgres"`
	Password string `yaml:"-" env:"POSTGRES_PASSWORD"`
	DBName   string `yaml:"dbname" env-default:"flameguard"`
	SSLMode  string `yaml:"sslmode" env-default:"disable"`
}

type Archive struct {
	Enabled   bool   `yaml:"enabled" env-default:"false"`
	Endpoint  string `yaml:"endpoint" env:"MINIO_ENDPOINT" env-default:"localhost:9000"`
	AccessKey string `yaml:"access_key" env:"MINIO_ACCESS_KEY"`
	SecretKey string `yaml:"-" env:"MINIO_SECRET_KEY"`
	Bucket    string `yaml:"bucket" env-default:"flameguard-artifacts"`
	UseSSL    bool   `yaml:"use_ssl" env-default:"false"`
}

type Events struct {
	Kafka Kafka `yaml:"kafka"`
}

type Kafka struct {
	Enabled bool     `yaml:"enabled" env-default:"false"`
	Brokers []string `yaml:"brokers" env:"KAFKA_BROKERS" env-separator:","`
	Topic   string   `yaml:"topic" env-default:"flameguard-events"`
}

type Auth struct {
	Enabled   bool          `yaml:"enabled" env-default:"false"`
	Secret    string        `yaml:"-" env:"AUTH_SECRET"`
	TokenTTL  time.Duration `yaml:"token_ttl" env-default:"12h"`
	Operators []Operator    `yaml:"operators"`
}

type Operator struct {
	Email        string `yaml:"email"`
	PasswordHash string `yaml:"password_hash"`
}

type Metrics struct {
	Enabled bool `yaml:"enabled" env-default:"true"`
}

func MustLoad() *Config {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		panic("CONFIG_PATH is not set")
	}

	return MustLoadPath(configPath)
}

func MustLoadPath(configPath string) *Config {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		panic("config file does not exist: " + configPath)
	}

	var cfg Config

	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		panic("cannot read config: " + err.Error())
	}

	return &cfg
}
