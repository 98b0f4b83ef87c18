package core

import (
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

type (
	Config struct {
		Env      string // DEV (default), TEST, QA, PROD
		Debug    bool
		TestMode bool
		AppName  string
		Build    string
		WorkDir  string

		SchoolName string
		// Timezone the school operates in; lateness and day/month bucketing
		// are computed in this zone, not in UTC.
		Timezone       string
		LatenessCutoff string // "HH:MM", local school time

		SecretKey          string
		JWTExpirationDelta time.Duration

		// static access PINs; AdminPINHash (bcrypt) takes precedence over
		// AdminPIN when set. See apps/admin `resetpin`.
		StudentPIN   string
		AdminPIN     string
		AdminPINHash string

		DefaultFromEmail string
		AdminEmail       string
		SendgridApiKey   string

		Gemini      GeminiConfig
		Spreadsheet SpreadsheetConfig
		Server      ServerConfig
		Database    DatabaseConfig

		RollbarToken string

		location *time.Location
	}

	GeminiConfig struct {
		APIKey         string
		BaseURL        string
		FlashModel     string // classification
		ProModel       string // behavioral reports
		AttemptTimeout time.Duration
		MaxRetries     int
		RetryDelay     time.Duration
	}

	SpreadsheetConfig struct {
		WebhookURL string
		Timeout    time.Duration
	}

	ServerConfig struct {
		Host    string
		Address string
	}

	DatabaseConfig struct {
		Enabled       bool // inmem log when false
		Engine        string
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		Host          string
		Port          string
		DisableTLS    bool
	}
)

func (c DatabaseConfig) Address() string {
	return net.JoinHostPort(c.Host, c.Port)
}

// Location returns the school timezone, resolved once at load time.
func (c *Config) Location() *time.Location {
	if c.location == nil {
		return time.UTC
	}
	return c.location
}

// NewConfig loads the app configuration from defaults, an optional
// config/.env.<env> file and environment variables (prefixed with the env name).
func NewConfig() (*Config, error) {
	v := viper.New()
	v.SetTypeByDefaultValue(true)

	// defaults
	v.SetDefault("debug", true)
	v.SetDefault("appName", "Presensi")
	v.SetDefault("schoolName", "SMAN 1 Caringin")
	v.SetDefault("timezone", "Asia/Jakarta")
	v.SetDefault("latenessCutoff", "06:30")
	v.SetDefault("secretKey", "k3y-harap-diganti-di-production-ya!")
	v.SetDefault("jwtExpirationDelta", 12*time.Hour)
	v.SetDefault("studentPIN", "123")
	v.SetDefault("adminPIN", "admin")
	v.SetDefault("defaultFromEmail", "noreply@localhost")
	v.SetDefault("geminiBaseURL", "https://generativelanguage.googleapis.com/v1beta")
	v.SetDefault("geminiFlashModel", "gemini-3-flash-preview")
	v.SetDefault("geminiProModel", "gemini-3-pro-preview")
	v.SetDefault("geminiAttemptTimeout", 30*time.Second)
	v.SetDefault("geminiMaxRetries", 2)
	v.SetDefault("geminiRetryDelay", time.Second)
	v.SetDefault("spreadsheetTimeout", 10*time.Second)
	v.SetDefault("serverAddress", ":8000")
	v.SetDefault("dbEngine", "postgres")
	v.SetDefault("dbName", "presensi")
	v.SetDefault("dbHost", "localhost")
	v.SetDefault("dbPort", "5432")
	v.SetDefault("dbDisableTLS", true)

	env := strings.ToUpper(os.Getenv("ENV"))
	if env == "" {
		env = "DEV"
	}
	if env == "TEST" {
		v.SetDefault("testMode", true)
	}
	v.SetEnvPrefix(env)

	// load .env if it exists (ignore if it does not)
	wd := getwd()
	dotEnvPath := filepath.Join(wd, "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			return nil, errors.Wrapf(err, "config.godotenv(%s)", dotEnvPath)
		}
	} else if !os.IsNotExist(err) {
		return nil, errors.Wrapf(err, "config.os.Stat(%s)", dotEnvPath)
	}
	v.AutomaticEnv()

	conf := &Config{
		Env:                env,
		Debug:              v.GetBool("debug"),
		TestMode:           v.GetBool("testMode"),
		AppName:            v.GetString("appName"),
		Build:              v.GetString("build"),
		WorkDir:            wd,
		SchoolName:         v.GetString("schoolName"),
		Timezone:           v.GetString("timezone"),
		LatenessCutoff:     v.GetString("latenessCutoff"),
		SecretKey:          v.GetString("secretKey"),
		JWTExpirationDelta: v.GetDuration("jwtExpirationDelta"),
		StudentPIN:         v.GetString("studentPIN"),
		AdminPIN:           v.GetString("adminPIN"),
		AdminPINHash:       v.GetString("adminPINHash"),
		DefaultFromEmail:   v.GetString("defaultFromEmail"),
		AdminEmail:         v.GetString("adminEmail"),
		SendgridApiKey:     v.GetString("sendgridApiKey"),
		Gemini: GeminiConfig{
			APIKey:         v.GetString("geminiApiKey"),
			BaseURL:        v.GetString("geminiBaseURL"),
			FlashModel:     v.GetString("geminiFlashModel"),
			ProModel:       v.GetString("geminiProModel"),
			AttemptTimeout: v.GetDuration("geminiAttemptTimeout"),
			MaxRetries:     v.GetInt("geminiMaxRetries"),
			RetryDelay:     v.GetDuration("geminiRetryDelay"),
		},
		Spreadsheet: SpreadsheetConfig{
			WebhookURL: v.GetString("spreadsheetWebhookURL"),
			Timeout:    v.GetDuration("spreadsheetTimeout"),
		},
		Server: ServerConfig{
			Host:    v.GetString("serverHost"),
			Address: v.GetString("serverAddress"),
		},
		Database: DatabaseConfig{
			Enabled:       v.GetBool("dbEnabled"),
			Engine:        v.GetString("dbEngine"),
			Name:          v.GetString("dbName"),
			User:          v.GetString("dbUser"),
			Password:      v.GetString("dbPassword"),
			AdminUser:     v.GetString("dbAdminUser"),
			AdminPassword: v.GetString("dbAdminPassword"),
			Host:          v.GetString("dbHost"),
			Port:          v.GetString("dbPort"),
			DisableTLS:    v.GetBool("dbDisableTLS"),
		},
		RollbarToken: v.GetString("rollbarToken"),
	}

	loc, err := time.LoadLocation(conf.Timezone)
	if err != nil {
		return nil, errors.Wrapf(err, "config: unknown timezone %q", conf.Timezone)
	}
	conf.location = loc

	return conf, nil
}

func getwd() string {
	wd, err := os.Getwd()
	if err != nil {
		return "."
	}
	return wd
}
