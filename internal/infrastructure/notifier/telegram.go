package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/LavaJover/shvark-checkout-service/internal/config"
	"github.com/LavaJover/shvark-checkout-service/internal/domain"
)

// TelegramSink posts order messages to a chat through the Bot API.
type TelegramSink struct {
	cfg    config.Telegram
	client *http.Client
}

// NewTelegramSink returns nil when the bot token or chat id is missing.
func NewTelegramSink(cfg config.Telegram, client *http.Client) *TelegramSink {
	if cfg.BotToken == "" || cfg.ChatID == "" {
		return nil
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &TelegramSink{cfg: cfg, client: client}
}

func (s *TelegramSink) Name() string {
	return "telegram"
}

type sendMessageRequest struct {
	ChatID                string `json:"chat_id"`
	Text                  string `json:"text"`
	DisableWebPagePreview bool   `json:"disable_web_page_preview"`
}

func (s *TelegramSink) Send(ctx context.Context, n domain.OrderNotification) error {
	body, err := json.Marshal(sendMessageRequest{
		ChatID:                s.cfg.ChatID,
		Text:                  FormatOrderMessage(n),
		DisableWebPagePreview: true,
	})
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", strings.TrimRight(s.cfg.BaseURL, "/"), s.cfg.BotToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		// the error string carries the URL and with it the bot token
		return fmt.Errorf("telegram request failed: %s", redact(err.Error(), s.cfg.BotToken))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("telegram returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	return nil
}

func redact(s, secret string) string {
	if secret == "" {
		return s
	}
	return strings.ReplaceAll(s, secret, "***")
}
