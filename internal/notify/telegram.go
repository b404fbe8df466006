package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bluebook-labs/satprep/internal/config"
)

// TelegramNotifier posts announcements to the configured chat.
type TelegramNotifier struct {
	cfg        config.TelegramConfig
	httpClient *http.Client
}

func NewTelegramNotifier(cfg config.TelegramConfig) *TelegramNotifier {
	return &TelegramNotifier{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

func (n *TelegramNotifier) Announce(ctx context.Context, text string) error {
	if !n.cfg.IsEnabled() || n.cfg.ChatID == "" {
		// Missing credentials skip the announcement, never fail the caller.
		return nil
	}
	form := url.Values{}
	form.Set("chat_id", n.cfg.ChatID)
	form.Set("text", text)

	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", n.cfg.APIBase, n.cfg.BotToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var body struct {
		OK bool `json:"ok"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return err
	}
	if !body.OK {
		return fmt.Errorf("sendMessage rejected")
	}
	return nil
}
