package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration required by the API and dialer processes.
// All values come from env; nothing below cmd/ reads the environment directly.
type Config struct {
	App   AppConfig
	DB    DBConfig
	Redis RedisConfig
	Auth  AuthConfig
	Call  CallConfig
	Chat  ChatConfig
}

type AppConfig struct {
	Env  string
	Port int
}

// DBConfig is optional: an empty Host selects the in-memory stores.
type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string

	// Accepts: disable, require, verify-ca, verify-full
	SSLMode string
}

// RedisConfig is optional: an empty Host keeps the one-call-per-user guard in process.
type RedisConfig struct {
	Host string
	Port int
}

type AuthConfig struct {
	JWTSecret      string
	JWTIssuer      string
	JWTAudience    string
	AccessTokenTTL time.Duration
}

type CallConfig struct {
	// ConnectTimeout bounds the wait for remote media once a call is connecting.
	ConnectTimeout time.Duration
	VideoEnabled   bool
	ICEServers     []string
	// APIBaseURL is where the dialer reaches the /call surface.
	APIBaseURL string
	// APIToken is the bearer credential the dialer presents.
	APIToken string
}

type ChatConfig struct {
	PollRatePerMinute int
	PollBurst         int
}

var defaultICEServers = []string{
	"stun:stun.l.google.com:19302",
	"stun:stun1.l.google.com:19302",
}

func Load() (Config, error) {
	c := Config{}
	var parseErrs []error

	c.App.Env = strings.TrimSpace(os.Getenv("APP_ENV"))
	{
		n, err := mustInt("APP_PORT")
		parseErrs = appendErr(parseErrs, err)
		c.App.Port = n
	}

	c.DB.Host = strings.TrimSpace(os.Getenv("DB_HOST"))
	if c.DB.Host != "" {
		n, err := mustInt("DB_PORT")
		parseErrs = appendErr(parseErrs, err)
		c.DB.Port = n
	}
	c.DB.User = strings.TrimSpace(os.Getenv("DB_USER"))
	c.DB.Password = os.Getenv("DB_PASSWORD")
	c.DB.Name = strings.TrimSpace(os.Getenv("DB_NAME"))
	c.DB.SSLMode = strings.TrimSpace(os.Getenv("DB_SSLMODE"))

	c.Redis.Host = strings.TrimSpace(os.Getenv("REDIS_HOST"))
	if c.Redis.Host != "" {
		n, err := mustInt("REDIS_PORT")
		parseErrs = appendErr(parseErrs, err)
		c.Redis.Port = n
	}

	c.Auth.JWTSecret = os.Getenv("JWT_SECRET")
	c.Auth.JWTIssuer = strings.TrimSpace(os.Getenv("JWT_ISSUER"))
	c.Auth.JWTAudience = strings.TrimSpace(os.Getenv("JWT_AUDIENCE"))
	c.Auth.AccessTokenTTL = optionalDuration("JWT_ACCESS_TTL")

	c.Call.ConnectTimeout = optionalDuration("CALL_CONNECT_TIMEOUT")
	{
		b, err := optionalBool("CALL_VIDEO_ENABLED", true)
		parseErrs = appendErr(parseErrs, err)
		c.Call.VideoEnabled = b
	}
	c.Call.ICEServers = splitList(os.Getenv("CALL_ICE_SERVERS"))
	c.Call.APIBaseURL = strings.TrimSpace(os.Getenv("API_BASE_URL"))
	c.Call.APIToken = strings.TrimSpace(os.Getenv("API_TOKEN"))

	{
		n, err := optionalInt("CHAT_POLL_RATE_PER_MINUTE")
		parseErrs = appendErr(parseErrs, err)
		c.Chat.PollRatePerMinute = n
	}
	{
		n, err := optionalInt("CHAT_POLL_BURST")
		parseErrs = appendErr(parseErrs, err)
		c.Chat.PollBurst = n
	}

	if err := joinErrors(parseErrs); err != nil {
		return Config{}, err
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate checks c and fills defaults in place.
func (c *Config) Validate() error {
	var errs []error

	if c.App.Env == "" {
		errs = append(errs, errors.New("APP_ENV is required"))
	} else if !isValidEnv(c.App.Env) {
		errs = append(errs, fmt.Errorf("APP_ENV must be one of local, dev, staging, production, got %q", c.App.Env))
	}
	if c.App.Port <= 0 || c.App.Port > 65535 {
		errs = append(errs, fmt.Errorf("APP_PORT must be a valid port, got %d", c.App.Port))
	}

	if c.UsesPostgres() {
		if c.DB.Port <= 0 || c.DB.Port > 65535 {
			errs = append(errs, fmt.Errorf("DB_PORT must be a valid port, got %d", c.DB.Port))
		}
		if c.DB.User == "" {
			errs = append(errs, errors.New("DB_USER is required"))
		}
		if c.DB.Name == "" {
			errs = append(errs, errors.New("DB_NAME is required"))
		}
		if c.DB.SSLMode == "" {
			if c.IsProduction() {
				errs = append(errs, errors.New("DB_SSLMODE is required in production"))
			} else {
				c.DB.SSLMode = "disable"
			}
		}
		if c.DB.SSLMode != "" && !isValidSSLMode(c.DB.SSLMode) {
			errs = append(errs, fmt.Errorf("DB_SSLMODE must be one of disable, require, verify-ca, verify-full, got %q", c.DB.SSLMode))
		}
	} else if c.IsProduction() {
		errs = append(errs, errors.New("DB_HOST is required in production"))
	}

	if c.UsesRedis() && (c.Redis.Port <= 0 || c.Redis.Port > 65535) {
		errs = append(errs, fmt.Errorf("REDIS_PORT must be a valid port, got %d", c.Redis.Port))
	}

	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if c.IsProduction() {
		if c.Auth.JWTIssuer == "" {
			errs = append(errs, errors.New("JWT_ISSUER is required in production"))
		}
		if c.Auth.JWTAudience == "" {
			errs = append(errs, errors.New("JWT_AUDIENCE is required in production"))
		}
	}
	if c.Auth.AccessTokenTTL <= 0 {
		// Matches the week-long session cookie of the web client.
		c.Auth.AccessTokenTTL = 7 * 24 * time.Hour
	}

	if c.Call.ConnectTimeout <= 0 {
		c.Call.ConnectTimeout = 30 * time.Second
	}
	if len(c.Call.ICEServers) == 0 {
		c.Call.ICEServers = append([]string(nil), defaultICEServers...)
	}
	for _, s := range c.Call.ICEServers {
		if !strings.HasPrefix(s, "stun:") && !strings.HasPrefix(s, "turn:") && !strings.HasPrefix(s, "turns:") {
			errs = append(errs, fmt.Errorf("CALL_ICE_SERVERS entries must be stun:/turn: urls, got %q", s))
		}
	}
	if c.Call.APIBaseURL == "" {
		c.Call.APIBaseURL = fmt.Sprintf("http://localhost:%d", c.App.Port)
	}

	if c.Chat.PollRatePerMinute < 0 || c.Chat.PollBurst < 0 {
		errs = append(errs, errors.New("CHAT_POLL_RATE_PER_MINUTE and CHAT_POLL_BURST must not be negative"))
	}
	if c.Chat.PollRatePerMinute == 0 {
		c.Chat.PollRatePerMinute = 120
	}
	if c.Chat.PollBurst == 0 {
		c.Chat.PollBurst = 20
	}

	return joinErrors(errs)
}

func (c Config) IsProduction() bool {
	return c.App.Env == "production"
}

func (c Config) UsesPostgres() bool { return c.DB.Host != "" }

func (c Config) UsesRedis() bool { return c.Redis.Host != "" }

func (c Config) HTTPAddr() string {
	return fmt.Sprintf(":%d", c.App.Port)
}

func (c Config) PostgresDSN() string {
	// Contains the password; never log it.
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.DB.Host,
		c.DB.Port,
		c.DB.User,
		c.DB.Password,
		c.DB.Name,
		c.DB.SSLMode,
	)
}

func (c Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}

func mustInt(key string) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0, fmt.Errorf("%s is required", key)
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer, got %q", key, v)
	}
	return n, nil
}

func optionalInt(key string) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer, got %q", key, v)
	}
	return n, nil
}

func optionalBool(key string, def bool) (bool, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def, fmt.Errorf("%s must be a boolean, got %q", key, v)
	}
	return b, nil
}

// optionalDuration returns 0 for unset or unparsable values; Validate applies defaults.
func optionalDuration(key string) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0
	}
	return d
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func appendErr(errs []error, err error) []error {
	if err != nil {
		errs = append(errs, err)
	}
	return errs
}

func isValidEnv(v string) bool {
	switch v {
	case "local", "dev", "staging", "production":
		return true
	default:
		return false
	}
}

func isValidSSLMode(v string) bool {
	switch v {
	case "disable", "require", "verify-ca", "verify-full":
		return true
	default:
		return false
	}
}

func joinErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	if len(errs) == 1 {
		return errs[0]
	}
	var b strings.Builder
	b.WriteString("config errors:\n")
	for _, e := range errs {
		b.WriteString("- ")
		b.WriteString(e.Error())
		b.WriteString("\n")
	}
	return errors.New(strings.TrimSpace(b.String()))
}
