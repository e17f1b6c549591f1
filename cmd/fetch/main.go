package main

import (
    "context"
    "encoding/json"
    "flag"
    "fmt"
    "os"
    "strings"
    "sync"
    "time"

    "github.com/rs/zerolog/log"
    "golang.org/x/sync/errgroup"

    "oitracker/internal/aggregate"
    "oitracker/internal/config"
    "oitracker/internal/logging"
    "oitracker/internal/svc"
)

func main() {
    var symbolsCSV string
    var timeout int
    var configPath string
    var concurrency int

    flag.StringVar(&symbolsCSV, "symbols", getenv("SYMBOLS", "BTCUSDT,ETHUSDT"), "comma-separated futures symbols")
    flag.IntVar(&timeout, "timeout", 60, "overall timeout seconds")
    flag.IntVar(&concurrency, "concurrency", 4, "symbols fetched in parallel")
    flag.StringVar(&configPath, "config", getenv("CONFIG_FILE", ""), "path to config.yaml (optional)")
    flag.Parse()

    cfg, err := config.Load(configPath)
    if err != nil {
        logging.Init("info", true)
        log.Fatal().Err(err).Msg("config")
    }
    logging.Init(cfg.Log.Level, true)

    symbols := splitCSV(symbolsCSV)
    if len(symbols) == 0 { log.Fatal().Msg("no symbols provided") }

    sc := svc.NewServiceContext(cfg, nil)

    ctx, cancel := context.WithTimeout(context.Background(), time.Duration(timeout)*time.Second)
    defer cancel()

    var mu sync.Mutex
    coins := make([]aggregate.Coin, len(symbols))
    found := make([]bool, len(symbols))

    g := new(errgroup.Group)
    g.SetLimit(max(concurrency, 1))
    for i, sym := range symbols {
        g.Go(func() error {
            c, err := sc.Service.Coin(ctx, sym)
            if err != nil {
                log.Error().Err(err).Str("symbol", sym).Msg("fetch failed")
                return nil
            }
            mu.Lock()
            coins[i], found[i] = c, true
            mu.Unlock()
            return nil
        })
    }
    _ = g.Wait()

    out := make([]aggregate.Coin, 0, len(coins))
    for i, c := range coins {
        if found[i] { out = append(out, c) }
    }
    if len(out) == 0 {
        log.Fatal().Msg("no data received")
    }

    b, _ := json.MarshalIndent(out, "", "  ")
    fmt.Println(string(b))
}

func splitCSV(s string) []string {
    parts := strings.Split(s, ",")
    out := make([]string, 0, len(parts))
    for _, p := range parts {
        p = strings.ToUpper(strings.TrimSpace(p))
        if p != "" { out = append(out, p) }
    }
    return out
}

func getenv(key, def string) string { if v := os.Getenv(key); v != "" { return v }; return def }
