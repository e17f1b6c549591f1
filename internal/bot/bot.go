package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"

	"oitracker/internal/aggregate"
	"oitracker/internal/supply"
)

const helpText = `📊 OI Tracker

/oi SYMBOL  open interest, price and OI/supply ratio (e.g. /oi BTCUSDT)
/symbols    number of tracked futures symbols
/help       this message`

// CoinService is the request service the bot answers from.
type CoinService interface {
	Symbols(ctx context.Context) ([]aggregate.SymbolEntry, error)
	Coin(ctx context.Context, symbol string) (aggregate.Coin, error)
}

type Bot struct {
	api     *tgbotapi.BotAPI
	service CoinService
	timeout time.Duration
}

func New(token string, service CoinService, timeout time.Duration) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &Bot{api: api, service: service, timeout: timeout}, nil
}

// Start long-polls for updates until ctx is done.
func (b *Bot) Start(ctx context.Context) {
	log.Info().Str("account", b.api.Self.UserName).Msg("bot authorized")

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)
	go func() {
		<-ctx.Done()
		b.api.StopReceivingUpdates()
	}()
	b.handleUpdates(ctx, updates)
}

func (b *Bot) handleUpdates(ctx context.Context, updates tgbotapi.UpdatesChannel) {
	for update := range updates {
		if update.Message == nil || !update.Message.IsCommand() {
			continue
		}
		cmd := update.Message.Command()
		text := b.reply(ctx, cmd, update.Message.CommandArguments())
		if text == "" {
			continue
		}
		msg := tgbotapi.NewMessage(update.Message.Chat.ID, text)
		if _, err := b.api.Send(msg); err != nil {
			log.Error().Err(err).Str("command", cmd).Msg("send failed")
		}
	}
}

// reply builds the answer to one command. Unknown commands get no answer.
func (b *Bot) reply(ctx context.Context, command, args string) string {
	ctx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	switch command {
	case "start", "help":
		return helpText

	case "oi":
		symbol := strings.ToUpper(strings.TrimSpace(args))
		if symbol == "" {
			return "usage: /oi SYMBOL (e.g. /oi BTCUSDT)"
		}
		symbol = contractSymbol(symbol)
		coin, err := b.service.Coin(ctx, symbol)
		if errors.Is(err, aggregate.ErrUnknownSymbol) {
			return fmt.Sprintf("%s not found on Binance Futures", symbol)
		}
		if err != nil {
			log.Error().Err(err).Str("symbol", symbol).Msg("bot coin")
			return "⚠️ upstream error, try again later"
		}
		return formatCoin(coin)

	case "symbols":
		entries, err := b.service.Symbols(ctx)
		if err != nil {
			log.Error().Err(err).Msg("bot symbols")
			return "⚠️ upstream error, try again later"
		}
		supported := 0
		for _, e := range entries {
			if e.Supported {
				supported++
			}
		}
		return fmt.Sprintf("📋 %d futures symbols tracked, %d with curated supply data", len(entries), supported)
	}
	return ""
}

func formatCoin(c aggregate.Coin) string {
	changeIndicator := "➖"
	if c.ChangePct > 0 {
		changeIndicator = "🟢"
	} else if c.ChangePct < 0 {
		changeIndicator = "🔴"
	}

	supplyText, ratio := "N/A", "N/A"
	if c.CirculatingSupply != nil {
		supplyText = formatValue(*c.CirculatingSupply)
	}
	if c.OISupplyRatio != nil {
		ratio = fmt.Sprintf("%.4f%%", *c.OISupplyRatio)
	}

	return fmt.Sprintf(`%s
💰 Price: %s (%s%.2f%%)
📈 Vol 24h: %s
📊 OI: %s (%s)
🪙 Supply: %s
⚖️ OI/Supply: %s`,
		c.Symbol,
		formatPrice(c.Price),
		changeIndicator,
		c.ChangePct,
		formatValue(c.VolumeUSDT),
		formatValue(c.OpenInterest),
		formatUSD(c.OpenInterestUSDT),
		supplyText,
		ratio)
}

func formatValue(value float64) string {
	if value == 0 {
		return "N/A"
	}
	if value >= 1e9 {
		return fmt.Sprintf("%.2f B", value/1e9)
	}
	if value >= 1e6 {
		return fmt.Sprintf("%.2f M", value/1e6)
	}
	return fmt.Sprintf("%.2f", value)
}

func formatUSD(value float64) string {
	if value == 0 {
		return "N/A"
	}
	return "$" + formatValue(value)
}

func formatPrice(price float64) string {
	if price == 0 {
		return "N/A"
	}
	return fmt.Sprintf("$%.4f", price)
}

// contractSymbol maps a bare base asset to its USDT contract. Anything already
// ending in a quote asset, including a bare quote such as USDT, is kept.
func contractSymbol(symbol string) string {
	for _, q := range supply.DefaultQuoteSuffixes {
		if strings.HasSuffix(symbol, q) {
			return symbol
		}
	}
	return symbol + "USDT"
}
