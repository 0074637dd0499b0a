// Package config loads the service configuration. Values are layered in
// this order, later sources winning: built-in defaults, an optional JSON
// file (CONFIG env or -c flag), environment variables (a .env file is loaded
// first when present), command-line flags.
package config

import (
	"encoding/base64"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	env "github.com/caarlos0/env/v6"
	validator "github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Config holds every setting of the service.
type Config struct {
	RunAddr  string `env:"SERVER_ADDRESS" json:"server_address" validate:"hostname_port"`
	LogLevel string `env:"LOG_LEVEL" json:"log_level" validate:"loglevel"`
	LogFile  string `env:"LOG_FILE" json:"log_file" validate:"filepath"`

	DBFileName          string        `env:"FILE_STORAGE_PATH" json:"file_storage_path" validate:"filepath"`
	DatabaseDSN         string        `env:"DATABASE_DSN" json:"database_dsn"`
	DBConnectionTimeout time.Duration `env:"DB_CONNECTION_TIMEOUT" json:"-" validate:"gt=0"`
	MigrationsDir       string        `env:"MIGRATIONS_DIR" json:"migrations_dir" validate:"required"`

	AuthCookieName             string        `env:"AUTH_COOKIE_NAME" json:"auth_cookie_name" validate:"required"`
	AuthCookieSigningSecretKey string        `env:"AUTH_COOKIE_SIGNING_SECRET_KEY" json:"auth_cookie_signing_secret_key" validate:"required,signingkey"`
	AuthTokenTTL               time.Duration `env:"AUTH_TOKEN_TTL" json:"-" validate:"gt=0"`
	RequireAuth                bool          `env:"REQUIRE_AUTH" json:"require_auth"`
	TrustedSubnet              string        `env:"TRUSTED_SUBNET" json:"trusted_subnet" validate:"omitempty,cidr"`
	TrustProxyHeaders          bool          `env:"TRUST_PROXY_HEADERS" json:"trust_proxy_headers"`

	RapidAPIKey     string        `env:"RAPIDAPI_KEY" json:"rapidapi_key"`
	RapidAPIHost    string        `env:"RAPIDAPI_HOST" json:"rapidapi_host" validate:"required"`
	CaptionsBaseURL string        `env:"CAPTIONS_BASE_URL" json:"captions_base_url" validate:"url"`
	CaptionsTimeout time.Duration `env:"CAPTIONS_TIMEOUT" json:"-" validate:"gt=0"`

	GeminiAPIKey      string        `env:"GEMINI_API_KEY" json:"gemini_api_key"`
	GeminiBaseURL     string        `env:"GEMINI_BASE_URL" json:"gemini_base_url" validate:"url"`
	GeminiModel       string        `env:"GEMINI_MODEL" json:"gemini_model" validate:"required"`
	GenerationTimeout time.Duration `env:"GENERATION_TIMEOUT" json:"-" validate:"gt=0"`

	SupabaseURL            string        `env:"SUPABASE_URL" json:"supabase_url" validate:"omitempty,url"`
	SupabaseAnonKey        string        `env:"SUPABASE_ANON_KEY" json:"supabase_anon_key"`
	SupabaseServiceRoleKey string        `env:"SUPABASE_SERVICE_ROLE_KEY" json:"supabase_service_role_key"`
	AccountTimeout         time.Duration `env:"ACCOUNT_TIMEOUT" json:"-" validate:"gt=0"`

	QuotaLimit          int    `env:"QUOTA_LIMIT" json:"quota_limit" validate:"gte=1"`
	QuotaExemptIdentity string `env:"QUOTA_EXEMPT_IDENTITY" json:"quota_exempt_identity" validate:"omitempty,email"`

	SummarizeRatePerMinute int `env:"SUMMARIZE_RATE_PER_MINUTE" json:"summarize_rate_per_minute" validate:"gte=0"`
	SummarizeRateBurst     int `env:"SUMMARIZE_RATE_BURST" json:"summarize_rate_burst" validate:"gte=0"`
}

var defaultConfig = Config{
	RunAddr:                    ":8080",
	LogLevel:                   "info",
	DBConnectionTimeout:        10 * time.Second,
	MigrationsDir:              "cmd/summarizer/migrations",
	AuthCookieName:             "ytsummarizer_session",
	AuthTokenTTL:               24 * time.Hour,
	RequireAuth:                true,
	RapidAPIHost:               "youtube-captions-transcript-subtitles-video-combiner.p.rapidapi.com",
	CaptionsBaseURL:            "https://youtube-captions-transcript-subtitles-video-combiner.p.rapidapi.com",
	CaptionsTimeout:            20 * time.Second,
	GeminiBaseURL:              "https://generativelanguage.googleapis.com",
	GeminiModel:                "gemini-2.5-flash",
	GenerationTimeout:          45 * time.Second,
	AccountTimeout:             10 * time.Second,
	QuotaLimit:                 5,
	SummarizeRatePerMinute:     10,
	SummarizeRateBurst:         3,
}

// UnmarshalJSON reads durations as Go duration strings, e.g. "20s".
func (c *Config) UnmarshalJSON(data []byte) error {
	type plain Config
	aux := struct {
		*plain
		DBConnectionTimeout string `json:"db_connection_timeout"`
		AuthTokenTTL        string `json:"auth_token_ttl"`
		CaptionsTimeout     string `json:"captions_timeout"`
		GenerationTimeout   string `json:"generation_timeout"`
		AccountTimeout      string `json:"account_timeout"`
	}{plain: (*plain)(c)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	durations := []struct {
		raw    string
		target *time.Duration
	}{
		{aux.DBConnectionTimeout, &c.DBConnectionTimeout},
		{aux.AuthTokenTTL, &c.AuthTokenTTL},
		{aux.CaptionsTimeout, &c.CaptionsTimeout},
		{aux.GenerationTimeout, &c.GenerationTimeout},
		{aux.AccountTimeout, &c.AccountTimeout},
	}
	for _, duration := range durations {
		if duration.raw == "" {
			continue
		}
		parsed, err := time.ParseDuration(duration.raw)
		if err != nil {
			return err
		}
		*duration.target = parsed
	}

	return nil
}

func validateFilePath(fieldLevel validator.FieldLevel) bool {
	path := fieldLevel.Field().String()
	if path == "" {
		return true
	}
	_, err := os.Stat(path)

	return err == nil || os.IsNotExist(err)
}

// MinSigningKeyBytes is the shortest accepted session signing key.
const MinSigningKeyBytes = 32

func validateSigningKey(fieldLevel validator.FieldLevel) bool {
	key, err := base64.URLEncoding.DecodeString(fieldLevel.Field().String())
	return err == nil && len(key) >= MinSigningKeyBytes
}

func validateLogLevel(fieldLevel validator.FieldLevel) bool {
	value := fieldLevel.Field().String()

	allowedLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
		"fatal": true,
	}

	return allowedLogLevels[value]
}

func (c *Config) validate() error {
	validate := validator.New()

	err := validate.RegisterValidation("loglevel", validateLogLevel)
	if err != nil {
		return err
	}

	err = validate.RegisterValidation("filepath", validateFilePath)
	if err != nil {
		return err
	}

	err = validate.RegisterValidation("signingkey", validateSigningKey)
	if err != nil {
		return err
	}

	return validate.Struct(c)
}

// InitOption defines a functional option for New.
type InitOption func(*initOptions)

type initOptions struct {
	disableFlagsParsing bool
	args                []string
}

// WithDisableFlagsParsing skips the command-line layer, which tests need.
func WithDisableFlagsParsing(disableFlagsParsing bool) InitOption {
	return func(options *initOptions) {
		options.disableFlagsParsing = disableFlagsParsing
	}
}

// WithArgs parses args instead of os.Args[1:].
func WithArgs(args []string) InitOption {
	return func(options *initOptions) {
		options.args = args
	}
}

// New builds the configuration from all sources and validates it.
func New(optionsProto ...InitOption) (*Config, error) {
	options := &initOptions{
		disableFlagsParsing: false,
		args:                os.Args[1:],
	}
	for _, protoOption := range optionsProto {
		protoOption(options)
	}

	// A missing .env file is the normal case outside development.
	_ = godotenv.Load()

	cfg := defaultConfig

	configPath := os.Getenv("CONFIG")
	if !options.disableFlagsParsing {
		if path := configPathFromArgs(options.args); path != "" {
			configPath = path
		}
	}
	if configPath != "" {
		if err := cfg.loadJSON(configPath); err != nil {
			return nil, err
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("in internal/config/config.go/New(): error while `env.Parse()` calling: %w", err)
	}

	if !options.disableFlagsParsing {
		if err := cfg.parseFlags(options.args); err != nil {
			return nil, err
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) loadJSON(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("in internal/config/config.go/loadJSON(): error while `os.ReadFile()` calling: %w", err)
	}

	if err := json.Unmarshal(raw, c); err != nil {
		return fmt.Errorf("in internal/config/config.go/loadJSON(): error while `json.Unmarshal()` calling: %w", err)
	}

	return nil
}

func (c *Config) parseFlags(args []string) error {
	flags := flag.NewFlagSet("summarizer", flag.ContinueOnError)

	var configPath string
	flags.StringVar(&configPath, "c", "", "path to a JSON configuration file")
	flags.StringVar(&c.RunAddr, "a", c.RunAddr, "address and port to run server")
	flags.StringVar(&c.LogLevel, "l", c.LogLevel, "logger level")
	flags.StringVar(&c.DBFileName, "f", c.DBFileName, "JSON file name with the quota database")
	flags.StringVar(&c.DatabaseDSN, "d", c.DatabaseDSN, "A string with the database connection details")
	flags.StringVar(&c.TrustedSubnet, "t", c.TrustedSubnet, "trusted subnet in CIDR notation for the internal endpoints")
	flags.BoolVar(&c.RequireAuth, "r", c.RequireAuth, "require a session for summarize requests")
	flags.BoolVar(&c.TrustProxyHeaders, "p", c.TrustProxyHeaders, "take the client IP from X-Real-IP/X-Forwarded-For")

	return flags.Parse(args)
}

// configPathFromArgs finds -c ahead of the full flag parse.
func configPathFromArgs(args []string) string {
	for i, arg := range args {
		name := strings.TrimLeft(arg, "-")
		if name == arg {
			continue
		}
		switch {
		case name == "c" && i+1 < len(args):
			return args[i+1]
		case strings.HasPrefix(name, "c="):
			return strings.TrimPrefix(name, "c=")
		}
	}
	return ""
}
