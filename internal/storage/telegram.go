package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/bluebook-labs/satprep/internal/config"
	"github.com/bluebook-labs/satprep/internal/images"
)

// TelegramStore uploads question images to a chat through the Bot API and
// hands back the file ID as an opaque tg://file/ reference. The images
// resolver turns the ref back into a download URL at render time.
type TelegramStore struct {
	cfg        config.TelegramConfig
	httpClient *http.Client
}

func NewTelegramStore(cfg config.TelegramConfig) *TelegramStore {
	return &TelegramStore{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (s *TelegramStore) Put(ctx context.Context, name string, r io.Reader) (string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if err := mw.WriteField("chat_id", s.cfg.ChatID); err != nil {
		return "", err
	}
	part, err := mw.CreateFormFile("document", name)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(part, r); err != nil {
		return "", err
	}
	if err := mw.Close(); err != nil {
		return "", err
	}

	endpoint := fmt.Sprintf("%s/bot%s/sendDocument", s.cfg.APIBase, s.cfg.BotToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &buf)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var body struct {
		OK     bool `json:"ok"`
		Result struct {
			Document struct {
				FileID string `json:"file_id"`
			} `json:"document"`
		} `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", err
	}
	if !body.OK || body.Result.Document.FileID == "" {
		return "", fmt.Errorf("sendDocument failed for %s", name)
	}
	return images.RefScheme + body.Result.Document.FileID, nil
}
