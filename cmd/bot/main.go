package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"oitracker/internal/bot"
	"oitracker/internal/config"
	"oitracker/internal/logging"
	"oitracker/internal/svc"
)

func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		logging.Init("info", true)
		log.Fatal().Err(err).Msg("config")
	}
	logging.Init(cfg.Log.Level, cfg.Log.Pretty)

	if cfg.Telegram.Token == "" {
		log.Fatal().Msg("TELEGRAM_BOT_TOKEN not set")
	}

	sc := svc.NewServiceContext(cfg, nil)
	b, err := bot.New(cfg.Telegram.Token, sc.Service, time.Duration(cfg.Server.RequestTimeoutSec)*time.Second)
	if err != nil {
		log.Fatal().Err(err).Msg("bot")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	b.Start(ctx)
}
