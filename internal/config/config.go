package config

import (
    "bytes"
    "errors"
    "fmt"
    "io"
    "os"
    "strconv"
    "strings"
    "sync"

    "github.com/joho/godotenv"
    "gopkg.in/yaml.v3"
)

type Server struct {
    Port              string `yaml:"port"`
    RequestTimeoutSec int    `yaml:"request_timeout_sec"`
    StaticDir         string `yaml:"static_dir"`
}

type Log struct {
    Level  string `yaml:"level"`
    Pretty bool   `yaml:"pretty"`
}

type Binance struct {
    BaseURL            string `yaml:"base_url"`
    TimeoutSec         int    `yaml:"timeout_sec"`
    QuoteAsset         string `yaml:"quote_asset"`
    SymbolsCacheTTLSec int    `yaml:"symbols_cache_ttl_sec"`
}

type CMC struct {
    Enabled         bool   `yaml:"enabled"`
    APIKey          string `yaml:"api_key"`
    BaseURL         string `yaml:"base_url"`
    MapTimeoutSec   int    `yaml:"map_timeout_sec"`
    QuoteTimeoutSec int    `yaml:"quote_timeout_sec"`
    MapPageSize     int    `yaml:"map_page_size"`
    MapMaxPages     int    `yaml:"map_max_pages"`
    CacheTTLSec     int    `yaml:"cache_ttl_sec"`
}

type CoinGecko struct {
    Enabled              bool   `yaml:"enabled"`
    APIKey               string `yaml:"api_key"`
    BaseURL              string `yaml:"base_url"`
    ListTimeoutSec       int    `yaml:"list_timeout_sec"`
    CoinTimeoutSec       int    `yaml:"coin_timeout_sec"`
    ListPages            int    `yaml:"list_pages"`
    PerPage              int    `yaml:"per_page"`
    PageIntervalMS       int    `yaml:"page_interval_ms"`
    MaxRequestsPerMinute int    `yaml:"max_requests_per_minute"`
    Burst                int    `yaml:"burst"`
    CacheTTLSec          int    `yaml:"cache_ttl_sec"`
}

type Supply struct {
    CacheTTLSec   int      `yaml:"cache_ttl_sec"`
    QuoteSuffixes []string `yaml:"quote_suffixes"`
}

type Telegram struct {
    Token string `yaml:"token"`
}

type Config struct {
    Server    Server    `yaml:"server"`
    Log       Log       `yaml:"log"`
    Binance   Binance   `yaml:"binance"`
    CMC       CMC       `yaml:"cmc"`
    CoinGecko CoinGecko `yaml:"coingecko"`
    Supply    Supply    `yaml:"supply"`
    Telegram  Telegram  `yaml:"telegram"`
}

func Default() Config {
    return Config{
        Server: Server{Port: "8080", RequestTimeoutSec: 20, StaticDir: "frontend"},
        Log:    Log{Level: "info"},
        Binance: Binance{
            BaseURL:            "https://fapi.binance.com",
            TimeoutSec:         10,
            QuoteAsset:         "USDT",
            SymbolsCacheTTLSec: 3600,
        },
        CMC: CMC{
            Enabled:         true,
            BaseURL:         "https://pro-api.coinmarketcap.com",
            MapTimeoutSec:   30,
            QuoteTimeoutSec: 8,
            MapPageSize:     5000,
            MapMaxPages:     2,
            CacheTTLSec:     600,
        },
        CoinGecko: CoinGecko{
            Enabled:              true,
            BaseURL:              "https://api.coingecko.com/api/v3",
            ListTimeoutSec:       30,
            CoinTimeoutSec:       10,
            ListPages:            8,
            PerPage:              250,
            PageIntervalMS:       300,
            MaxRequestsPerMinute: 30,
            Burst:                5,
            CacheTTLSec:          600,
        },
        Supply: Supply{
            CacheTTLSec:   600,
            QuoteSuffixes: []string{"USDT", "BUSD", "USDC", "FDUSD", "USD"},
        },
    }
}

// Load reads YAML config from path. If path is empty or the file does not exist,
// it returns defaults. A .env file and environment variables override select fields.
func Load(path string) (Config, error) {
    loadDotenvOnce()
    cfg := Default()
    if path == "" {
        if _, err := os.Stat("config.yaml"); err == nil {
            path = "config.yaml"
        }
    }
    if path != "" {
        b, err := os.ReadFile(path)
        if err != nil && !errors.Is(err, os.ErrNotExist) {
            return cfg, fmt.Errorf("read config: %w", err)
        }
        if err == nil {
            if cfg, err = parse(bytes.NewReader(b), cfg); err != nil {
                return cfg, err
            }
        }
    }
    applyEnv(&cfg)
    if err := cfg.Validate(); err != nil {
        return cfg, err
    }
    return cfg, nil
}

// LoadFromReader parses YAML from r over the defaults. Environment is not consulted.
func LoadFromReader(r io.Reader) (Config, error) {
    cfg, err := parse(r, Default())
    if err != nil {
        return cfg, err
    }
    return cfg, cfg.Validate()
}

func parse(r io.Reader, cfg Config) (Config, error) {
    dec := yaml.NewDecoder(r)
    dec.KnownFields(true)
    if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
        return cfg, fmt.Errorf("parse config: %w", err)
    }
    return cfg, nil
}

// Validate rejects settings the services cannot run with.
func (c Config) Validate() error {
    var errs []error
    if p, err := strconv.Atoi(c.Server.Port); err != nil || p <= 0 || p > 65535 {
        errs = append(errs, fmt.Errorf("server.port: invalid %q", c.Server.Port))
    }
    if c.Server.RequestTimeoutSec <= 0 {
        errs = append(errs, errors.New("server.request_timeout_sec must be positive"))
    }
    if c.Binance.SymbolsCacheTTLSec <= 0 {
        errs = append(errs, errors.New("binance.symbols_cache_ttl_sec must be positive"))
    }
    if c.CMC.CacheTTLSec <= 0 {
        errs = append(errs, errors.New("cmc.cache_ttl_sec must be positive"))
    }
    if c.CoinGecko.CacheTTLSec <= 0 {
        errs = append(errs, errors.New("coingecko.cache_ttl_sec must be positive"))
    }
    if c.Supply.CacheTTLSec <= 0 {
        errs = append(errs, errors.New("supply.cache_ttl_sec must be positive"))
    }
    if len(c.Supply.QuoteSuffixes) == 0 {
        errs = append(errs, errors.New("supply.quote_suffixes must not be empty"))
    }
    return errors.Join(errs...)
}

var dotenvOnce sync.Once

// loadDotenvOnce loads .env (or $ENV_FILE) without overriding variables
// already set. NO_DOTENV=1 disables it.
func loadDotenvOnce() {
    dotenvOnce.Do(func() {
        if os.Getenv("NO_DOTENV") == "1" {
            return
        }
        path := ".env"
        if v := os.Getenv("ENV_FILE"); v != "" {
            path = v
        }
        _ = godotenv.Load(path)
    })
}

func applyEnv(cfg *Config) {
    if v := os.Getenv("PORT"); v != "" { cfg.Server.Port = v }
    if x, ok := envInt("REQUEST_TIMEOUT_SEC"); ok && x > 0 { cfg.Server.RequestTimeoutSec = x }
    if v := os.Getenv("STATIC_DIR"); v != "" { cfg.Server.StaticDir = v }

    if v := os.Getenv("LOG_LEVEL"); v != "" { cfg.Log.Level = v }
    if b, ok := envBool("LOG_PRETTY"); ok { cfg.Log.Pretty = b }

    if v := os.Getenv("BINANCE_BASE_URL"); v != "" { cfg.Binance.BaseURL = v }
    if x, ok := envInt("SYMBOLS_CACHE_TTL_SEC"); ok && x > 0 { cfg.Binance.SymbolsCacheTTLSec = x }

    if v := os.Getenv("CMC_API_KEY"); v != "" { cfg.CMC.APIKey = v }
    if b, ok := envBool("CMC_ENABLED"); ok { cfg.CMC.Enabled = b }

    if v := os.Getenv("COINGECKO_API_KEY"); v != "" { cfg.CoinGecko.APIKey = v }
    if b, ok := envBool("COINGECKO_ENABLED"); ok { cfg.CoinGecko.Enabled = b }

    if x, ok := envInt("SUPPLY_CACHE_TTL_SEC"); ok && x > 0 { cfg.Supply.CacheTTLSec = x }
    if v := os.Getenv("QUOTE_SUFFIXES"); v != "" { cfg.Supply.QuoteSuffixes = splitCSV(v) }

    if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" { cfg.Telegram.Token = v }
}

func envInt(key string) (int, bool) {
    v := os.Getenv(key)
    if v == "" { return 0, false }
    x, err := strconv.Atoi(strings.TrimSpace(v))
    if err != nil { return 0, false }
    return x, true
}

func envBool(key string) (bool, bool) {
    switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
    case "1", "true", "yes", "y": return true, true
    case "0", "false", "no", "n": return false, true
    }
    return false, false
}

func splitCSV(s string) []string {
    parts := strings.Split(s, ",")
    out := make([]string, 0, len(parts))
    for _, p := range parts {
        p = strings.TrimSpace(p)
        if p != "" { out = append(out, p) }
    }
    return out
}
