package core

import (
	"log"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	Config struct {
		Env      string // DEV (local; default), TEST, QA, PROD
		Build    string
		Debug    bool
		TestMode bool

		AppName          string
		SecretKey        string
		DefaultFromEmail mail.Address
		FrontendBaseURL  string
		RollbarToken     string
		SendgridAPIKey   string

		Database DatabaseConfig
		Server   ServerConfig
		Auth     AuthConfig
		Remote   RemoteConfig
	}

	DatabaseConfig struct {
		Engine        string // postgres | sqlite | memory
		Host          string
		Port          string
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
		SQLitePath    string
	}

	ServerConfig struct {
		Host                      string
		Address                   string
		DebugHost                 string
		ShutdownTimeout           time.Duration
		JWTExpirationDelta        time.Duration
		JWTRefreshExpirationDelta time.Duration
	}

	AuthConfig struct {
		VerificationPollInterval time.Duration
		VerificationTokenTTL     time.Duration
		RecentLoginWindow        time.Duration
	}

	RemoteConfig struct {
		BaseURL string
		Timeout time.Duration
	}
)

func (dc DatabaseConfig) Address() string {
	return dc.Host + ":" + dc.Port
}

func setDefaults(v *viper.Viper) {
	v.SetTypeByDefaultValue(true)
	v.SetDefault("debug", true)
	v.SetDefault("build", "develop")
	v.SetDefault("appName", "Little Dragons")
	v.SetDefault("secretKey", "w1r$-9q+lk2)dn!ragons=h7u#8c3v(p0x&a5m*e4tzb6yj")
	v.SetDefault("defaultFromEmail", "Little Dragons <noreply@localhost>")
	v.SetDefault("frontendBaseURL", "http://localhost:8080")
	v.SetDefault("rollbarToken", "")
	v.SetDefault("sendgridApiKey", "")

	v.SetDefault("db.engine", "memory")
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", "5432")
	v.SetDefault("db.name", "littledragons")
	v.SetDefault("db.user", "littledragons")
	v.SetDefault("db.password", "littledragons")
	v.SetDefault("db.adminUser", "postgres")
	v.SetDefault("db.adminPassword", "postgres")
	v.SetDefault("db.disableTLS", true)
	v.SetDefault("db.sqlitePath", "littledragons.db")

	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.address", ":8000")
	v.SetDefault("server.debugHost", ":4000")
	v.SetDefault("server.shutdownTimeout", 5*time.Second)
	v.SetDefault("server.jwtExpirationDelta", 7*24*time.Hour)
	v.SetDefault("server.jwtRefreshExpirationDelta", 4*time.Hour)

	v.SetDefault("auth.verificationPollInterval", 3*time.Second)
	v.SetDefault("auth.verificationTokenTTL", 3*24*time.Hour)
	v.SetDefault("auth.recentLoginWindow", 5*time.Minute)

	v.SetDefault("remote.baseURL", "http://localhost:8000")
	v.SetDefault("remote.timeout", 10*time.Second)
}

// NewConfig loads the configuration from defaults, the optional `config/.env.<env>` file and the environment.
// Environment variables are prefixed with the env name, eg. DEV_DB_ENGINE=sqlite.
func NewConfig() *Config {
	v := viper.New()
	setDefaults(v)

	env := strings.ToUpper(os.Getenv("ENV"))
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		v.SetDefault("testMode", true)
	}
	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(configDir(), ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()

	return fromViper(env, v)
}

func fromViper(env string, v *viper.Viper) *Config {
	from, err := mail.ParseAddress(v.GetString("defaultFromEmail"))
	if err != nil {
		from = &mail.Address{Address: v.GetString("defaultFromEmail")}
	}

	return &Config{
		Env:              env,
		Build:            v.GetString("build"),
		Debug:            v.GetBool("debug"),
		TestMode:         v.GetBool("testMode"),
		AppName:          v.GetString("appName"),
		SecretKey:        v.GetString("secretKey"),
		DefaultFromEmail: *from,
		FrontendBaseURL:  v.GetString("frontendBaseURL"),
		RollbarToken:     v.GetString("rollbarToken"),
		SendgridAPIKey:   v.GetString("sendgridApiKey"),
		Database: DatabaseConfig{
			Engine:        v.GetString("db.engine"),
			Host:          v.GetString("db.host"),
			Port:          v.GetString("db.port"),
			Name:          v.GetString("db.name"),
			User:          v.GetString("db.user"),
			Password:      v.GetString("db.password"),
			AdminUser:     v.GetString("db.adminUser"),
			AdminPassword: v.GetString("db.adminPassword"),
			DisableTLS:    v.GetBool("db.disableTLS"),
			SQLitePath:    v.GetString("db.sqlitePath"),
		},
		Server: ServerConfig{
			Host:                      v.GetString("server.host"),
			Address:                   v.GetString("server.address"),
			DebugHost:                 v.GetString("server.debugHost"),
			ShutdownTimeout:           v.GetDuration("server.shutdownTimeout"),
			JWTExpirationDelta:        v.GetDuration("server.jwtExpirationDelta"),
			JWTRefreshExpirationDelta: v.GetDuration("server.jwtRefreshExpirationDelta"),
		},
		Auth: AuthConfig{
			VerificationPollInterval: v.GetDuration("auth.verificationPollInterval"),
			VerificationTokenTTL:     v.GetDuration("auth.verificationTokenTTL"),
			RecentLoginWindow:        v.GetDuration("auth.recentLoginWindow"),
		},
		Remote: RemoteConfig{
			BaseURL: v.GetString("remote.baseURL"),
			Timeout: v.GetDuration("remote.timeout"),
		},
	}
}

// NewTestConfig returns the default configuration with TestMode set, ignoring the environment.
func NewTestConfig() *Config {
	v := viper.New()
	setDefaults(v)
	v.Set("testMode", true)
	return fromViper("TEST", v)
}

func configDir() string {
	if dir := os.Getenv("CONFIG_DIR"); dir != "" {
		return dir
	}
	wd, err := os.Getwd()
	if err != nil {
		log.Fatal(err)
	}
	return filepath.Join(wd, "config")
}
