package images

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/bluebook-labs/satprep/internal/config"
)

// RefScheme prefixes opaque hosted-image references.
const RefScheme = "tg://file/"

// Resolver turns an opaque image reference into a time-limited download URL.
// On persistent failure the unresolved reference comes back unchanged, so a
// broken hosting backend degrades to broken images, not broken pages.
type Resolver interface {
	Resolve(ctx context.Context, ref string) string
}

// TelegramResolver resolves tg://file/<id> references through the Bot API
// getFile call. Download links from Telegram stay valid for about an hour.
type TelegramResolver struct {
	cfg        config.TelegramConfig
	httpClient *http.Client
	cache      Cache
	retryMax   int
	retryBase  time.Duration
}

func NewTelegramResolver(cfg config.TelegramConfig, cache Cache, retryMax int, retryBase time.Duration) *TelegramResolver {
	return &TelegramResolver{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		cache:      cache,
		retryMax:   retryMax,
		retryBase:  retryBase,
	}
}

func (r *TelegramResolver) Resolve(ctx context.Context, ref string) string {
	fileID, ok := strings.CutPrefix(ref, RefScheme)
	if !ok || !r.cfg.IsEnabled() {
		// Plain URLs and unrecognized refs pass through.
		return ref
	}

	if r.cache != nil {
		if url, ok := r.cache.Get(ctx, fileID); ok {
			return url
		}
	}

	var (
		url   string
		err   error
		delay = r.retryBase
	)
	for attempt := 0; ; attempt++ {
		url, err = r.getFileURL(ctx, fileID)
		if err == nil {
			break
		}
		if attempt >= r.retryMax {
			// Fall back to the unresolved reference.
			return ref
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ref
		}
		delay *= 2
	}

	if r.cache != nil {
		r.cache.Set(ctx, fileID, url)
	}
	return url
}

func (r *TelegramResolver) getFileURL(ctx context.Context, fileID string) (string, error) {
	endpoint := fmt.Sprintf("%s/bot%s/getFile?file_id=%s", r.cfg.APIBase, r.cfg.BotToken, fileID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", err
	}
	resp, err := r.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var body struct {
		OK     bool `json:"ok"`
		Result struct {
			FilePath string `json:"file_path"`
		} `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", err
	}
	if !body.OK || body.Result.FilePath == "" {
		return "", fmt.Errorf("getFile failed for %s", fileID)
	}
	return fmt.Sprintf("%s/file/bot%s/%s", r.cfg.APIBase, r.cfg.BotToken, body.Result.FilePath), nil
}
