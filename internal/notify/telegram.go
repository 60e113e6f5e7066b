package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/restockd/restockd/internal/metrics"
)

const defaultTelegramAPIURL = "https://api.telegram.org"

// TelegramNotifier implements Notifier via the Telegram Bot API. Messages
// go out sequentially, one sendMessage call per chat ID, paced by a rate
// limiter to stay under the Bot API's per-second message cap.
type TelegramNotifier struct {
	token   string
	chatIDs []string
	apiURL  string
	client  *http.Client
	limiter *rate.Limiter
	log     *slog.Logger
}

// TelegramOption configures a TelegramNotifier.
type TelegramOption func(*TelegramNotifier)

// WithAPIURL overrides the Telegram API base URL.
func WithAPIURL(u string) TelegramOption {
	return func(t *TelegramNotifier) {
		t.apiURL = u
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) TelegramOption {
	return func(t *TelegramNotifier) {
		t.client = c
	}
}

// WithSendInterval sets the minimum delay between consecutive sends.
func WithSendInterval(d time.Duration) TelegramOption {
	return func(t *TelegramNotifier) {
		t.limiter = rate.NewLimiter(rate.Every(d), 1)
	}
}

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) TelegramOption {
	return func(t *TelegramNotifier) {
		t.log = l
	}
}

// NewTelegramNotifier creates a notifier sending to the given chat IDs.
func NewTelegramNotifier(token string, chatIDs []string, opts ...TelegramOption) *TelegramNotifier {
	t := &TelegramNotifier{
		token:   token,
		chatIDs: chatIDs,
		apiURL:  defaultTelegramAPIURL,
		client:  &http.Client{Timeout: 10 * time.Second},
		limiter: rate.NewLimiter(rate.Every(500*time.Millisecond), 1),
		log:     slog.Default(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// telegramSendMessage is the Bot API sendMessage payload.
type telegramSendMessage struct {
	ChatID                string `json:"chat_id"`
	Text                  string `json:"text"`
	ParseMode             string `json:"parse_mode"`
	DisableWebPagePreview bool   `json:"disable_web_page_preview"`
}

type telegramResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

// Send delivers text to every configured chat ID. Per-recipient failures
// are logged and counted but never abort the remaining sends.
func (t *TelegramNotifier) Send(ctx context.Context, text string) error {
	for _, chatID := range t.chatIDs {
		if err := t.limiter.Wait(ctx); err != nil {
			return err
		}

		if err := t.sendOne(ctx, chatID, text); err != nil {
			t.log.Error("telegram send failed", "chat_id", chatID, "error", err)
			metrics.NotificationFailuresTotal.Inc()
			continue
		}

		metrics.NotificationsSentTotal.Inc()
	}
	return nil
}

func (t *TelegramNotifier) sendOne(ctx context.Context, chatID, text string) error {
	body, err := json.Marshal(telegramSendMessage{
		ChatID:                chatID,
		Text:                  text,
		ParseMode:             "Markdown",
		DisableWebPagePreview: true,
	})
	if err != nil {
		return fmt.Errorf("marshaling sendMessage payload: %w", err)
	}

	url := t.apiURL + "/bot" + t.token + "/sendMessage"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating sendMessage request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("sending telegram message: %w", err)
	}
	defer resp.Body.Close()

	raw, readErr := io.ReadAll(resp.Body)
	if readErr != nil {
		return fmt.Errorf("telegram returned %d (body unreadable)", resp.StatusCode)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var tgResp telegramResponse
		if json.Unmarshal(raw, &tgResp) == nil && tgResp.Description != "" {
			return fmt.Errorf("telegram returned %d: %s", resp.StatusCode, tgResp.Description)
		}
		return fmt.Errorf("telegram returned %d: %s", resp.StatusCode, raw)
	}

	return nil
}
