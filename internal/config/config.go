package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Store drivers accepted by RELAY_STORE_DRIVER.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverRedis    = "redis"
	DriverMemory   = "memory"
)

type Config struct {
	ListenPort      string        // ex: ":8080"
	ShutdownTimeout time.Duration // ex: 5s

	LogLevel  string // "debug" | "info" | "warn" | "error"
	PrettyLog bool   // true => zap dev (color), false => zap prod (JSON)

	// History store
	StoreDriver    string // postgres | sqlite | redis | memory
	DatabaseURL    string // postgres DSN (required when StoreDriver=postgres)
	SQLitePath     string // sqlite database file
	MigrateOnStart bool   // run postgres migrations on startup

	// Redis (StoreDriver=redis)
	RedisAddr           string        // ex: "localhost:6379"
	RedisUser           string        // optional
	RedisPassword       string        // optional
	RedisDB             int           // Redis DB number
	RedisKeyPrefix      string        // namespace for every history key
	RedisDT             time.Duration // Redis dial timeout (ex: 5s)
	RedisRT             time.Duration // Redis read timeout (ex: 3s)
	RedisWT             time.Duration // Redis write timeout (ex: 3s)
	RedisMaxWait        time.Duration // max wait between retries (ex: 10s)
	RedisPingTimeout    time.Duration // timeout for each ping attempt (ex: 5s)
	RedisPoolSize       int           // Redis connection pool size
	RedisConnectTimeout time.Duration // Total time to retry connecting (ex: 30s)
	RedisRetryInterval  time.Duration // Initial wait between retries (ex: 2s, grows exponentially)
	RedisWarnThreshold  int           // warn after this many attempts

	// Outbound executor
	OutboundTimeout  time.Duration // whole outbound call budget (default: 30s)
	MaxRedirects     int           // 0 = do not follow redirects
	MaxResponseBytes int64         // response body read cap
	OutboundProxy    string        // http(s):// or socks5:// proxy URL
	NoProxy          []string      // hosts bypassing the proxy
	SkipTLSVerify    bool          // accept invalid upstream certificates

	// History listing
	DefaultPageSize int
	MaxPageSize     int

	StoreProbeInterval time.Duration // health probe period

	AllowedCIDRS []string // optional, restrict ops endpoints to specific IPs/CIDRs
	AllowedHosts []string // optional, restrict ops endpoints to these Host values (*.example.com allowed)
	TrustProxy   bool     // true => trust X-Forwarded-For headers (e.g. cloudflared)
	CORSOrigins  []string // allowed browser origins, "*" for any
}

// source resolves a key from the environment first, then the optional YAML file.
type source struct {
	file map[string]string
}

// Load reads RELAY_CONFIG_FILE (if set) and the environment. Invalid values
// fall back to defaults; missing required values and impossible settings panic.
func Load() *Config {
	src := source{}
	if path := os.Getenv("RELAY_CONFIG_FILE"); path != "" {
		values, err := readFile(path)
		if err != nil {
			panic(fmt.Sprintf("❌ FATAL: cannot read config file %s: %v", path, err))
		}
		src.file = values
	}
	return src.load()
}

func (s source) load() *Config {
	cfg := &Config{
		// Server settings
		ListenPort:      s.getenv("RELAY_LISTEN_PORT", ":8080"),
		ShutdownTimeout: s.mustDuration("RELAY_SHUTDOWN_TIMEOUT", 5*time.Second),

		// Logging
		LogLevel:  s.getenv("RELAY_LOG_LEVEL", "info"),
		PrettyLog: s.mustBool("RELAY_PRETTY_LOG", true),

		// Store
		StoreDriver:    strings.ToLower(s.getenv("RELAY_STORE_DRIVER", DriverSQLite)),
		DatabaseURL:    s.getenv("RELAY_DATABASE_URL", ""),
		SQLitePath:     s.getenv("RELAY_SQLITE_PATH", "relay.db"),
		MigrateOnStart: s.mustBool("RELAY_MIGRATE_ON_START", true),

		// Redis settings
		RedisAddr:           s.getenv("RELAY_REDIS_ADDR", "localhost:6379"),
		RedisUser:           s.getenv("RELAY_REDIS_USERNAME", ""),
		RedisPassword:       s.getenv("RELAY_REDIS_PASSWORD", ""),
		RedisDB:             s.getenvInt("RELAY_REDIS_DB", 0),
		RedisKeyPrefix:      s.getenv("RELAY_REDIS_KEY_PREFIX", "relay:"),
		RedisDT:             s.mustDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
		RedisRT:             s.mustDuration("REDIS_READ_TIMEOUT", 3*time.Second),
		RedisWT:             s.mustDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		RedisMaxWait:        s.mustDuration("REDIS_MAX_WAIT", 10*time.Second),
		RedisPingTimeout:    s.mustDuration("REDIS_PING_TIMEOUT", 5*time.Second),
		RedisPoolSize:       s.getenvInt("REDIS_POOL_SIZE", 10),
		RedisConnectTimeout: s.mustDuration("REDIS_CONNECT_TIMEOUT", 30*time.Second),
		RedisRetryInterval:  s.mustDuration("REDIS_RETRY_INTERVAL", 2*time.Second),
		RedisWarnThreshold:  s.getenvInt("REDIS_WARN_THRESHOLD", 3),

		// Outbound
		OutboundTimeout:  s.mustDuration("RELAY_OUTBOUND_TIMEOUT", 30*time.Second),
		MaxRedirects:     s.getenvInt("RELAY_MAX_REDIRECTS", 10),
		MaxResponseBytes: s.getenvInt64("RELAY_MAX_RESPONSE_BYTES", 10<<20),
		OutboundProxy:    s.getenv("RELAY_OUTBOUND_PROXY", ""),
		NoProxy:          splitAndTrim(s.getenv("RELAY_NO_PROXY", "")),
		SkipTLSVerify:    s.mustBool("RELAY_SKIP_TLS_VERIFY", false),

		// Listing
		DefaultPageSize: s.getenvInt("RELAY_DEFAULT_PAGE_SIZE", 10),
		MaxPageSize:     s.getenvInt("RELAY_MAX_PAGE_SIZE", 100),

		StoreProbeInterval: s.mustDuration("RELAY_STORE_PROBE_INTERVAL", 30*time.Second),

		// Access restrictions
		AllowedCIDRS: parseAllowedIPs(s.getenv("RELAY_ALLOWED_CIDRS", "")),
		AllowedHosts: splitAndTrim(s.getenv("RELAY_ALLOWED_HOSTS", "")),
		TrustProxy:   s.mustBool("RELAY_TRUST_PROXY", false),
		CORSOrigins:  splitAndTrim(s.getenv("RELAY_CORS_ORIGINS", "*")),
	}

	if err := cfg.Validate(); err != nil {
		panic(fmt.Sprintf("❌ FATAL: %v", err))
	}

	// Log config only in debug mode with redacted sensitive fields
	if cfg.LogLevel == "debug" {
		cfgCopy := *cfg
		cfgCopy.RedisPassword = "***REDACTED***"
		if cfg.DatabaseURL != "" {
			cfgCopy.DatabaseURL = "***REDACTED***"
		}
		log.Printf("[DEBUG] cfg: %+v\n", cfgCopy)
	}

	return cfg
}

// Validate rejects settings the relay cannot run with.
func (c *Config) Validate() error {
	switch c.StoreDriver {
	case DriverPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("RELAY_DATABASE_URL is required when RELAY_STORE_DRIVER=%s", DriverPostgres)
		}
	case DriverSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("RELAY_SQLITE_PATH must not be empty")
		}
	case DriverRedis:
		if c.RedisAddr == "" {
			return fmt.Errorf("RELAY_REDIS_ADDR is required when RELAY_STORE_DRIVER=%s", DriverRedis)
		}
	case DriverMemory:
	default:
		return fmt.Errorf("unknown RELAY_STORE_DRIVER %q (use: postgres, sqlite, redis, memory)", c.StoreDriver)
	}

	if c.OutboundTimeout <= 0 {
		return fmt.Errorf("RELAY_OUTBOUND_TIMEOUT must be > 0, got %v", c.OutboundTimeout)
	}
	if c.MaxRedirects < 0 {
		return fmt.Errorf("RELAY_MAX_REDIRECTS must be >= 0, got %d", c.MaxRedirects)
	}
	if c.MaxResponseBytes <= 0 {
		return fmt.Errorf("RELAY_MAX_RESPONSE_BYTES must be > 0, got %d", c.MaxResponseBytes)
	}
	if c.MaxPageSize < 1 {
		return fmt.Errorf("RELAY_MAX_PAGE_SIZE must be >= 1, got %d", c.MaxPageSize)
	}
	if c.DefaultPageSize < 1 || c.DefaultPageSize > c.MaxPageSize {
		return fmt.Errorf("RELAY_DEFAULT_PAGE_SIZE must be within [1, %d], got %d", c.MaxPageSize, c.DefaultPageSize)
	}
	if c.StoreProbeInterval <= 0 {
		return fmt.Errorf("RELAY_STORE_PROBE_INTERVAL must be > 0, got %v", c.StoreProbeInterval)
	}
	return nil
}

// RequestTimeout bounds one inbound request: the outbound budget plus room
// for the history write and response encoding.
func (c *Config) RequestTimeout() time.Duration {
	return c.OutboundTimeout + 10*time.Second
}

// readFile loads a flat YAML mapping. Keys are matched case-insensitively
// against the environment variable names.
func readFile(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return parseFile(data)
}

func parseFile(data []byte) (map[string]string, error) {
	raw := map[string]yaml.Node{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	values := make(map[string]string, len(raw))
	for k, node := range raw {
		key := strings.ToUpper(strings.TrimSpace(k))
		switch node.Kind {
		case yaml.ScalarNode:
			values[key] = node.Value
		case yaml.SequenceNode:
			items := make([]string, 0, len(node.Content))
			for _, item := range node.Content {
				items = append(items, item.Value)
			}
			values[key] = strings.Join(items, ",")
		default:
			return nil, fmt.Errorf("key %s: expected a scalar or a list", k)
		}
	}
	return values, nil
}

// helpers
func (s source) lookup(key string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return s.file[key]
}

func (s source) getenv(key, def string) string {
	if v := s.lookup(key); v != "" {
		return v
	}
	return def
}

func (s source) getenvInt(key string, def int) int {
	if v := s.lookup(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func (s source) getenvInt64(key string, def int64) int64 {
	if v := s.lookup(key); v != "" {
		if i, err := strconv.ParseInt(v, 10, 64); err == nil {
			return i
		}
	}
	return def
}

func (s source) mustBool(key string, def bool) bool {
	if v := s.lookup(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func (s source) mustDuration(key string, def time.Duration) time.Duration {
	if v := s.lookup(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func parseAllowedIPs(allowed string) []string {
	if allowed == "" {
		return nil
	}
	ips := make([]string, 0, 4)
	for _, ip := range splitAndTrim(allowed) {
		if ip != "" {
			ips = append(ips, ip)
		}
	}
	return ips
}

func splitAndTrim(s string) []string {
	if s == "" {
		return nil
	}
	raw := strings.Split(s, ",")
	parts := make([]string, 0, len(raw))
	for _, part := range raw {
		trimmed := strings.TrimSpace(part)
		// Remove surrounding quotes if present
		trimmed = strings.Trim(trimmed, `"'`)
		if trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return parts
}
