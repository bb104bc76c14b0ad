// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package cliparse

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"net/netip"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Port         int
	DatabaseURL  string
	DatabaseType string
	LogLevel     string

	// SessionSecret keys share-link signatures and IP hashes
	SessionSecret string
	PublicBaseURL string

	MarketCheckAPIKey  string
	MarketCheckBaseURL string
	MarketCheckRPS     float64
	NHTSABaseURL       string

	ResendAPIKey string
	MailFrom     string

	PDFEnabled bool
	ChromeBin  string

	RulesFile      string
	ReportFeeCents int

	// RateLimit is requests per second allowed per client IP, 0 disables
	RateLimit float64
	// TrustedProxies may set X-Forwarded-For; empty means use the peer address
	TrustedProxies []netip.Prefix
	// CORSOrigins may make credentialed cross-origin calls
	CORSOrigins []string
}

// AllowedOrigins returns CORSOrigins, or the public base URL when none are set
func (c Config) AllowedOrigins() []string {
	if len(c.CORSOrigins) > 0 {
		return c.CORSOrigins
	}
	if c.PublicBaseURL == "" {
		return nil
	}
	return []string{c.PublicBaseURL}
}

// SecureCookies reports whether the public URL is served over HTTPS
func (c Config) SecureCookies() bool {
	return strings.HasPrefix(c.PublicBaseURL, "https://")
}

// ParseFlags validates flags and fills the rest from the environment
func ParseFlags(args []string) (Config, error) {
	var cfg Config
	var envFile string
	var pdf string

	flags := flag.NewFlagSet("dv-appraisal", flag.ContinueOnError)

	flags.StringVar(&envFile, "env-file", ".env", "dotenv file loaded before reading the environment")

	// Network config (can be CLI args or env)
	flags.IntVar(&cfg.Port, "p", 0, "Server port")
	flags.StringVar(&cfg.DatabaseURL, "d", "", "Database URL")
	flags.StringVar(&cfg.DatabaseType, "t", "", "Database type (sqlite or postgres)")
	flags.StringVar(&cfg.LogLevel, "log-level", "", "Log level (debug, info, warn, error)")

	// Secrets (prefer env variables, but allow CLI for dev)
	flags.StringVar(&cfg.SessionSecret, "session-secret", "", "Signing secret (prefer env)")
	flags.StringVar(&cfg.MarketCheckAPIKey, "marketcheck-key", "", "MarketCheck API key (prefer env)")
	flags.StringVar(&cfg.ResendAPIKey, "resend-key", "", "Resend API key (prefer env)")

	flags.StringVar(&cfg.RulesFile, "rules", "", "YAML valuation rules overriding the built-in defaults")
	flags.StringVar(&pdf, "pdf", "", "Enable PDF rendering (true or false)")

	if err := flags.Parse(args); err != nil {
		return Config{}, err
	}

	// Existing environment variables win over the file
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	// Fall back to environment variables
	if cfg.Port == 0 {
		if portStr := os.Getenv("PORT"); portStr != "" {
			port, err := strconv.Atoi(portStr)
			if err != nil {
				return Config{}, errors.New("invalid PORT env variable")
			}
			cfg.Port = port
		} else {
			cfg.Port = 8080 // default
		}
	}
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if cfg.DatabaseURL == "" {
		return Config{}, errors.New("database URL required (use -d or DATABASE_URL env)")
	}

	if cfg.DatabaseType == "" {
		cfg.DatabaseType = os.Getenv("DATABASE_TYPE")
		if cfg.DatabaseType == "" {
			cfg.DatabaseType = "sqlite"
		}
	}
	if cfg.DatabaseType != "sqlite" && cfg.DatabaseType != "postgres" {
		return Config{}, fmt.Errorf("unsupported database type %q (sqlite or postgres)", cfg.DatabaseType)
	}

	cfg.LogLevel = orEnv(cfg.LogLevel, "LOG_LEVEL", "info")

	// Secrets - MUST be provided
	cfg.SessionSecret = orEnv(cfg.SessionSecret, "SESSION_SECRET", "")
	if cfg.SessionSecret == "" {
		return Config{}, errors.New("SESSION_SECRET required")
	}

	cfg.PublicBaseURL = strings.TrimRight(orEnv("", "PUBLIC_BASE_URL", "http://localhost:"+strconv.Itoa(cfg.Port)), "/")

	cfg.MarketCheckAPIKey = orEnv(cfg.MarketCheckAPIKey, "MARKETCHECK_API_KEY", "")
	cfg.MarketCheckBaseURL = orEnv("", "MARKETCHECK_BASE_URL", "")
	cfg.NHTSABaseURL = orEnv("", "NHTSA_BASE_URL", "")
	cfg.ResendAPIKey = orEnv(cfg.ResendAPIKey, "RESEND_API_KEY", "")
	cfg.MailFrom = orEnv("", "MAIL_FROM", "DV Appraisal <reports@localhost>")
	cfg.ChromeBin = orEnv("", "CHROME_BIN", "")
	cfg.RulesFile = orEnv(cfg.RulesFile, "RULES_FILE", "")

	var err error
	if cfg.PDFEnabled, err = parseBool(orEnv(pdf, "PDF_ENABLED", "false")); err != nil {
		return Config{}, errors.New("invalid PDF_ENABLED env variable")
	}
	if cfg.ReportFeeCents, err = strconv.Atoi(orEnv("", "REPORT_FEE_CENTS", "4900")); err != nil || cfg.ReportFeeCents < 0 {
		return Config{}, errors.New("invalid REPORT_FEE_CENTS env variable")
	}
	if cfg.RateLimit, err = strconv.ParseFloat(orEnv("", "RATE_LIMIT", "5"), 64); err != nil || cfg.RateLimit < 0 {
		return Config{}, errors.New("invalid RATE_LIMIT env variable")
	}
	if cfg.MarketCheckRPS, err = strconv.ParseFloat(orEnv("", "MARKETCHECK_RPS", "2"), 64); err != nil || cfg.MarketCheckRPS < 0 {
		return Config{}, errors.New("invalid MARKETCHECK_RPS env variable")
	}

	if cfg.TrustedProxies, err = parsePrefixes(os.Getenv("TRUSTED_PROXIES")); err != nil {
		return Config{}, fmt.Errorf("invalid TRUSTED_PROXIES env variable: %w", err)
	}
	cfg.CORSOrigins = splitList(os.Getenv("CORS_ORIGINS"))

	return cfg, nil
}

// parsePrefixes reads a comma list of CIDRs or bare addresses
func parsePrefixes(s string) ([]netip.Prefix, error) {
	var out []netip.Prefix
	for _, item := range splitList(s) {
		if strings.Contains(item, "/") {
			p, err := netip.ParsePrefix(item)
			if err != nil {
				return nil, err
			}
			out = append(out, p.Masked())
			continue
		}
		addr, err := netip.ParseAddr(item)
		if err != nil {
			return nil, err
		}
		addr = addr.Unmap()
		out = append(out, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return out, nil
}

func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimRight(strings.TrimSpace(item), "/"); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// orEnv returns v, else the environment variable, else def
func orEnv(v, key, def string) string {
	if v != "" {
		return v
	}
	if e := os.Getenv(key); e != "" {
		return e
	}
	return def
}

func parseBool(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "on":
		return true, nil
	case "0", "false", "no", "off", "":
		return false, nil
	}
	return false, fmt.Errorf("invalid boolean %q", s)
}
