package main

import (
    "bufio"
    "context"
    "encoding/json"
    "flag"
    "os"
    "time"

    "github.com/rs/zerolog/log"

    "oitracker/internal/config"
    "oitracker/internal/logging"
    "oitracker/internal/svc"
)

// dump is the file layout: provider name to base asset to provider id.
type dump struct {
    GeneratedAt time.Time         `json:"generated_at"`
    CMC         map[string]int    `json:"cmc,omitempty"`
    CoinGecko   map[string]string `json:"coingecko,omitempty"`
    Catalog     map[string]string `json:"catalog"`
}

func main() {
    var (
        outPath    string
        cfgPath    string
        timeoutSec int
    )
    flag.StringVar(&outPath, "out", "coin_map.json", "output JSON file path")
    flag.StringVar(&cfgPath, "config", "", "path to config.yaml (optional)")
    flag.IntVar(&timeoutSec, "timeout", 120, "overall timeout seconds")
    flag.Parse()

    cfg, err := config.Load(cfgPath)
    if err != nil {
        logging.Init("info", true)
        log.Fatal().Err(err).Msg("config")
    }
    logging.Init(cfg.Log.Level, true)

    sc := svc.NewServiceContext(cfg, nil)
    ctx, cancel := context.WithTimeout(context.Background(), time.Duration(timeoutSec)*time.Second)
    defer cancel()

    d := dump{GeneratedAt: time.Now().UTC()}
    if sc.CMC != nil {
        d.CMC = sc.CMC.IDs(ctx)
        log.Info().Int("coins", len(d.CMC)).Msg("cmc ids")
    }
    if sc.CoinGecko != nil {
        d.CoinGecko = sc.CoinGecko.IDs(ctx)
        d.Catalog = sc.CoinGecko.Catalog()
        log.Info().Int("coins", len(d.CoinGecko)).Msg("coingecko ids")
    }

    outFile, err := os.Create(outPath)
    if err != nil {
        log.Fatal().Err(err).Msg("create out")
    }
    defer outFile.Close()
    bw := bufio.NewWriterSize(outFile, 1<<20)

    enc := json.NewEncoder(bw)
    enc.SetIndent("", "  ")
    if err := enc.Encode(d); err != nil {
        log.Fatal().Err(err).Msg("encode")
    }
    if err := bw.Flush(); err != nil {
        log.Fatal().Err(err).Msg("flush")
    }
    log.Info().Str("path", outPath).Msg("done")
}
