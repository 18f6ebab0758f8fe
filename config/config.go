package config

import (
	"errors"
	"strings"
	"time"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Session  SessionConfig  `mapstructure:"session"`
	Game     GameConfig     `mapstructure:"game"`
	Log      LogConfig      `mapstructure:"log"`
}

type ServerConfig struct {
	HTTPAddress    string   `mapstructure:"http_address"`
	RPCAddress     string   `mapstructure:"rpc_address"`
	MetricsAddress string   `mapstructure:"metrics_address"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type DatabaseConfig struct {
	// Driver is gorm, postgres or sqlite.
	Driver   string         `mapstructure:"driver"`
	Postgres PostgresConfig `mapstructure:"postgres"`
	SQLite   SQLiteConfig   `mapstructure:"sqlite"`
}

type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
}

type SQLiteConfig struct {
	Path string `mapstructure:"path"`
}

type SessionConfig struct {
	TokenTTL          time.Duration `mapstructure:"token_ttl"`
	GracePeriod       time.Duration `mapstructure:"grace_period"`
	ChannelBuffer     int           `mapstructure:"channel_buffer"`
	HeartbeatInterval time.Duration `mapstructure:"heartbeat_interval"`
}

type GameConfig struct {
	HandSize int `mapstructure:"hand_size"`
}

type LogConfig struct {
	Level    string `mapstructure:"level"`
	Encoding string `mapstructure:"encoding"`
}

// EnvPrefix prefixes every environment override, e.g. CARDROOM_SERVER_HTTP_ADDRESS.
const EnvPrefix = "CARDROOM"

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.http_address", ":8080")
	v.SetDefault("server.rpc_address", ":8081")
	v.SetDefault("server.metrics_address", ":9090")
	v.SetDefault("server.allowed_origins", []string{"*"})

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.postgres.host", "localhost")
	v.SetDefault("database.postgres.port", 5432)
	v.SetDefault("database.postgres.user", "postgres")
	v.SetDefault("database.postgres.password", "")
	v.SetDefault("database.postgres.dbname", "cardroom")
	v.SetDefault("database.sqlite.path", "cardroom.db")

	v.SetDefault("session.token_ttl", 7*24*time.Hour)
	v.SetDefault("session.grace_period", 5*time.Second)
	v.SetDefault("session.channel_buffer", 64)
	v.SetDefault("session.heartbeat_interval", 30*time.Second)

	v.SetDefault("game.hand_size", 8)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "json")
}

// LoadConfig reads file, or config.yaml from the working directory, the home
// directory or /etc/cardroom when file is empty. A missing config file is
// fine; defaults and the environment still apply.
func LoadConfig(file string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := homedir.Dir(); err == nil {
			v.AddConfigPath(home)
		}
		v.AddConfigPath("/etc/cardroom")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, err
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}
	return &config, nil
}
