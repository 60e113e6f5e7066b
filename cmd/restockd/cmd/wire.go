package cmd

import (
	"log/slog"
	"net/http"

	"github.com/restockd/restockd/internal/config"
	"github.com/restockd/restockd/internal/notify"
	"github.com/restockd/restockd/internal/retailer"
)

// buildCheckers constructs the retailer adapters from config. Croma and
// Flipkart need no credentials and are always active; Amazon joins only
// when its credential set is configured.
func buildCheckers(cfg *config.Config) []retailer.Checker {
	cromaOpts := []retailer.CromaOption{
		retailer.WithCromaBaseURL(cfg.Retailers.Croma.BaseURL),
		retailer.WithCromaHTTPClient(&http.Client{Timeout: cfg.Retailers.Croma.Timeout}),
	}
	if cfg.Retailers.Croma.SubscriptionKey != "" {
		cromaOpts = append(cromaOpts,
			retailer.WithCromaSubscriptionKey(cfg.Retailers.Croma.SubscriptionKey))
	}

	checkers := []retailer.Checker{
		retailer.NewCromaChecker(cromaOpts...),
		retailer.NewFlipkartChecker(
			retailer.WithFlipkartBaseURL(cfg.Retailers.Flipkart.BaseURL),
			retailer.WithFlipkartHTTPClient(&http.Client{Timeout: cfg.Retailers.Flipkart.Timeout}),
		),
	}

	a := cfg.Retailers.Amazon
	if a.AccessKey != "" {
		checkers = append(checkers, retailer.NewAmazonChecker(
			a.AccessKey, a.SecretKey, a.PartnerTag, a.Region,
			retailer.WithAmazonHost(a.Host),
			retailer.WithAmazonMarketplace(a.Marketplace),
			retailer.WithAmazonHTTPClient(&http.Client{Timeout: a.Timeout}),
		))
	}

	return checkers
}

// buildNotifier returns the Telegram notifier when a bot token is
// configured, and the logging no-op notifier otherwise.
func buildNotifier(cfg *config.Config, log *slog.Logger) notify.Notifier {
	t := cfg.Telegram
	if t.BotToken == "" {
		log.Warn("telegram bot token not configured, notifications disabled")
		return notify.NewNoOpNotifier(log)
	}

	return notify.NewTelegramNotifier(t.BotToken, t.ChatIDs,
		notify.WithAPIURL(t.APIURL),
		notify.WithSendInterval(t.SendInterval),
		notify.WithHTTPClient(&http.Client{Timeout: t.Timeout}),
		notify.WithLogger(log),
	)
}
