package core

import (
	"log"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	Config struct {
		Env              string // DEV (local; default), TEST, QA, PROD
		Build            string
		Debug            bool
		TestMode         bool
		AppName          string
		SecretKey        string
		RollbarToken     string
		PasswordHashCost int

		Server   ServerConfig
		Database DatabaseConfig
	}

	ServerConfig struct {
		Host                 string
		Address              string
		DebugAddress         string
		ShutdownTimeout      time.Duration
		TokenExpirationDelta time.Duration
		LoginRateLimit       int // attempts per minute per client IP; 0 disables
		RedisAddr            string
	}

	DatabaseConfig struct {
		Engine        string // postgres | pgx | sqlite3
		Host          string
		Port          int
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
		Path          string // sqlite3 only
	}
)

// Address returns the database host:port.
func (dbc DatabaseConfig) Address() string {
	return net.JoinHostPort(dbc.Host, strconv.Itoa(dbc.Port))
}

// IsSQLite reports whether the configured engine is the embedded SQLite driver.
func (dbc DatabaseConfig) IsSQLite() bool {
	return dbc.Engine == "sqlite3"
}

// NewConfig loads the configuration from defaults, the optional `config/.env.<env>` file and the environment.
func NewConfig() *Config {
	v := viper.New()

	// defaults
	v.SetTypeByDefaultValue(true)
	v.SetDefault("debug", true)
	v.SetDefault("build", "develop")
	v.SetDefault("appName", "Marksheet")
	v.SetDefault("secretKey", "kq2-7we)r0ue$+x5=dz&uoxh2(h!x)#*c2(#yg4h^$cegm2emy")
	v.SetDefault("rollbarToken", "")
	v.SetDefault("passwordHashCost", 12)
	v.SetDefault("serverHost", "localhost")
	v.SetDefault("serverAddress", ":8000")
	v.SetDefault("debugAddress", ":4000")
	v.SetDefault("shutdownTimeout", 5*time.Second)
	v.SetDefault("tokenExpirationDelta", 24*time.Hour)
	v.SetDefault("loginRateLimit", 20)
	v.SetDefault("redisAddr", "")
	v.SetDefault("dbEngine", "postgres")
	v.SetDefault("dbHost", "localhost")
	v.SetDefault("dbPort", 5432)
	v.SetDefault("dbName", "marksheet")
	v.SetDefault("dbUser", "marksheet")
	v.SetDefault("dbPassword", "")
	v.SetDefault("dbAdminUser", "postgres")
	v.SetDefault("dbAdminPassword", "")
	v.SetDefault("dbDisableTLS", true)
	v.SetDefault("dbPath", "marksheet.db")

	env := strings.ToUpper(os.Getenv("ENV"))
	if env == "" {
		env = "DEV"
	}
	v.SetEnvPrefix(env)

	// load .env if it exists (ignore if it does not)
	if wd, err := os.Getwd(); err == nil {
		dotEnvPath := filepath.Join(wd, "config", ".env."+strings.ToLower(env))
		if _, err := os.Stat(dotEnvPath); err == nil {
			if err := godotenv.Load(dotEnvPath); err != nil {
				log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
			}
		} else if !os.IsNotExist(err) {
			log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
		}
	}
	v.AutomaticEnv()

	return &Config{
		Env:              env,
		Build:            v.GetString("build"),
		Debug:            v.GetBool("debug"),
		TestMode:         env == "TEST",
		AppName:          v.GetString("appName"),
		SecretKey:        v.GetString("secretKey"),
		RollbarToken:     v.GetString("rollbarToken"),
		PasswordHashCost: v.GetInt("passwordHashCost"),
		Server: ServerConfig{
			Host:                 v.GetString("serverHost"),
			Address:              v.GetString("serverAddress"),
			DebugAddress:         v.GetString("debugAddress"),
			ShutdownTimeout:      v.GetDuration("shutdownTimeout"),
			TokenExpirationDelta: v.GetDuration("tokenExpirationDelta"),
			LoginRateLimit:       v.GetInt("loginRateLimit"),
			RedisAddr:            v.GetString("redisAddr"),
		},
		Database: DatabaseConfig{
			Engine:        v.GetString("dbEngine"),
			Host:          v.GetString("dbHost"),
			Port:          v.GetInt("dbPort"),
			Name:          v.GetString("dbName"),
			User:          v.GetString("dbUser"),
			Password:      v.GetString("dbPassword"),
			AdminUser:     v.GetString("dbAdminUser"),
			AdminPassword: v.GetString("dbAdminPassword"),
			DisableTLS:    v.GetBool("dbDisableTLS"),
			Path:          v.GetString("dbPath"),
		},
	}
}
