package roadside

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const envPrefix = "ROADSIDE_"

// Options is the env backed Config implementation. It also carries the
// settings the server binary needs.
type Options struct {
	SigningKey      string
	Issuer          string
	Audience        []string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	CookieName      string
	CookieMaxAge    time.Duration
	CookieSecure    bool
	CookieSameSite  string
	BcryptCost      int

	HTTPAddr      string
	DatabaseURL   string
	DatabaseDebug bool
	RefreshStore  string
	RedisAddr     string
	MetricsAddr   string
}

var _ Config = Options{}

// DefaultOptions returns the baseline settings, without a signing key.
func DefaultOptions() Options {
	return Options{
		Issuer:          "roadside",
		Audience:        []string{"roadside-api"},
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: 7 * 24 * time.Hour,
		CookieName:      "roadside_access",
		CookieMaxAge:    15 * time.Minute,
		CookieSameSite:  "Lax",
		BcryptCost:      DefaultBcryptCost,
		HTTPAddr:        ":8080",
		DatabaseURL:     "file:roadside.db?cache=shared",
		RefreshStore:    RefreshStoreNone,
		RedisAddr:       "127.0.0.1:6379",
		MetricsAddr:     ":9090",
	}
}

const (
	RefreshStoreNone  = "none"
	RefreshStoreSQL   = "sql"
	RefreshStoreRedis = "redis"
)

// LoadOptions reads optional dotenv files and then the environment.
// Missing files are ignored.
func LoadOptions(files ...string) (Options, error) {
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return Options{}, fmt.Errorf("load %s: %w", f, err)
		}
	}

	o := DefaultOptions()
	o.SigningKey = getenv("SIGNING_KEY", "")
	o.Issuer = getenv("ISSUER", o.Issuer)
	if aud := getenv("AUDIENCE", ""); aud != "" {
		o.Audience = splitList(aud)
	}

	var err error
	if o.AccessTokenTTL, err = getenvDuration("ACCESS_TOKEN_TTL", o.AccessTokenTTL); err != nil {
		return Options{}, err
	}
	if o.RefreshTokenTTL, err = getenvDuration("REFRESH_TOKEN_TTL", o.RefreshTokenTTL); err != nil {
		return Options{}, err
	}
	if o.CookieMaxAge, err = getenvDuration("COOKIE_MAX_AGE", o.AccessTokenTTL); err != nil {
		return Options{}, err
	}

	o.CookieName = getenv("COOKIE_NAME", o.CookieName)
	o.CookieSameSite = getenv("COOKIE_SAMESITE", o.CookieSameSite)
	if o.CookieSecure, err = getenvBool("COOKIE_SECURE", o.CookieSecure); err != nil {
		return Options{}, err
	}
	if o.BcryptCost, err = getenvInt("BCRYPT_COST", o.BcryptCost); err != nil {
		return Options{}, err
	}

	o.HTTPAddr = getenv("HTTP_ADDR", o.HTTPAddr)
	o.DatabaseURL = getenv("DATABASE_URL", o.DatabaseURL)
	if o.DatabaseDebug, err = getenvBool("DATABASE_DEBUG", o.DatabaseDebug); err != nil {
		return Options{}, err
	}
	o.RefreshStore = strings.ToLower(getenv("REFRESH_STORE", o.RefreshStore))
	o.RedisAddr = getenv("REDIS_ADDR", o.RedisAddr)
	o.MetricsAddr = getenvAllowEmpty("METRICS_ADDR", o.MetricsAddr)

	return o, o.Validate()
}

// Validate checks the settings that have no safe default.
func (o Options) Validate() error {
	if len(o.SigningKey) < 32 {
		return fmt.Errorf("%sSIGNING_KEY must be at least 32 bytes", envPrefix)
	}
	if o.AccessTokenTTL <= 0 {
		return fmt.Errorf("%sACCESS_TOKEN_TTL must be positive", envPrefix)
	}
	if o.RefreshTokenTTL <= o.AccessTokenTTL {
		return fmt.Errorf("%sREFRESH_TOKEN_TTL must be longer than the access token TTL", envPrefix)
	}
	switch o.RefreshStore {
	case RefreshStoreNone, RefreshStoreSQL, RefreshStoreRedis:
	default:
		return fmt.Errorf("%sREFRESH_STORE %q is not one of none, sql, redis", envPrefix, o.RefreshStore)
	}
	return nil
}

func (o Options) GetSigningKey() string { return o.SigningKey }
func (o Options) GetIssuer() string { return o.Issuer }
func (o Options) GetAudience() []string { return o.Audience }
func (o Options) GetAccessTokenTTL() time.Duration { return o.AccessTokenTTL }
func (o Options) GetRefreshTokenTTL() time.Duration { return o.RefreshTokenTTL }
func (o Options) GetCookieName() string { return o.CookieName }
func (o Options) GetCookieSecure() bool { return o.CookieSecure }
func (o Options) GetCookieSameSite() string { return o.CookieSameSite }
func (o Options) GetBcryptCost() int { return o.BcryptCost }

// GetCookieMaxAge falls back to the access token TTL.
func (o Options) GetCookieMaxAge() time.Duration {
	if o.CookieMaxAge <= 0 {
		return o.AccessTokenTTL
	}
	return o.CookieMaxAge
}

func getenv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(envPrefix + key)); v != "" {
		return v
	}
	return fallback
}

func getenvAllowEmpty(key, fallback string) string {
	if v, ok := os.LookupEnv(envPrefix + key); ok {
		return strings.TrimSpace(v)
	}
	return fallback
}

// getenvDuration accepts Go duration syntax on KEY or whole seconds on KEY_SECONDS.
func getenvDuration(key string, fallback time.Duration) (time.Duration, error) {
	if v := getenv(key, ""); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return 0, fmt.Errorf("%s%s: %w", envPrefix, key, err)
		}
		return d, nil
	}
	if v := getenv(key+"_SECONDS", ""); v != "" {
		secs, err := strconv.Atoi(v)
		if err != nil {
			return 0, fmt.Errorf("%s%s_SECONDS: %w", envPrefix, key, err)
		}
		return time.Duration(secs) * time.Second, nil
	}
	return fallback, nil
}

func getenvInt(key string, fallback int) (int, error) {
	v := getenv(key, "")
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s%s: %w", envPrefix, key, err)
	}
	return n, nil
}

func getenvBool(key string, fallback bool) (bool, error) {
	v := getenv(key, "")
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s%s: %w", envPrefix, key, err)
	}
	return b, nil
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
