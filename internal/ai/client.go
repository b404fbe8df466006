package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/bluebook-labs/satprep/internal/config"
)

// ErrUnavailable marks analysis that could not be produced (disabled config,
// exhausted retries, or an unparseable response). Callers degrade to "no
// analysis"; scoring itself is unaffected.
var ErrUnavailable = errors.New("analysis unavailable")

// Analyzer produces a performance analysis for a graded run.
type Analyzer interface {
	Analyze(ctx context.Context, req AnalysisRequest) (*Analysis, error)
}

// Client calls a Gemini-style generateContent endpoint. Transient failures
// are retried with exponential backoff; the retry budget is configuration.
type Client struct {
	cfg        config.AIConfig
	httpClient *http.Client
	retryMax   int
	retryBase  time.Duration
}

func NewClient(cfg config.AIConfig, retryMax int, retryBase time.Duration) *Client {
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: time.Duration(cfg.TimeoutMS) * time.Millisecond},
		retryMax:   retryMax,
		retryBase:  retryBase,
	}
}

func (c *Client) Analyze(ctx context.Context, req AnalysisRequest) (*Analysis, error) {
	if !c.cfg.IsEnabled() {
		return nil, ErrUnavailable
	}
	prompt, err := buildPrompt(req)
	if err != nil {
		return nil, ErrUnavailable
	}

	var text string
	delay := c.retryBase
	for attempt := 0; ; attempt++ {
		text, err = c.generate(ctx, prompt)
		if err == nil {
			break
		}
		if attempt >= c.retryMax || !retryable(err) {
			return nil, ErrUnavailable
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ErrUnavailable
		}
		delay *= 2
	}

	var out Analysis
	if err := json.Unmarshal([]byte(text), &out); err != nil {
		// Malformed model output is absence of the enhancement.
		return nil, ErrUnavailable
	}
	return &out, nil
}

type httpStatusError struct{ code int }

func (e httpStatusError) Error() string { return fmt.Sprintf("upstream status %d", e.code) }

func retryable(err error) bool {
	var se httpStatusError
	if errors.As(err, &se) {
		return se.code == http.StatusTooManyRequests || se.code >= 500
	}
	// Network-level errors are retryable.
	return true
}

func (c *Client) generate(ctx context.Context, prompt string) (string, error) {
	reqBody := map[string]interface{}{
		"contents": []map[string]interface{}{
			{"parts": []map[string]string{{"text": prompt}}},
		},
		"generationConfig": map[string]interface{}{
			"responseMimeType": "application/json",
		},
	}
	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return "", err
	}

	url := fmt.Sprintf("%s?key=%s", c.cfg.ModelEndpoint(), c.cfg.APIKey)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonBody))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return "", httpStatusError{code: resp.StatusCode}
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	var geminiResp struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
	}
	if err := json.Unmarshal(body, &geminiResp); err != nil {
		return "", err
	}
	if len(geminiResp.Candidates) > 0 && len(geminiResp.Candidates[0].Content.Parts) > 0 {
		return geminiResp.Candidates[0].Content.Parts[0].Text, nil
	}
	return "", errors.New("empty model response")
}

func buildPrompt(req AnalysisRequest) (string, error) {
	summary, err := json.Marshal(req)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf(`You are an SAT tutor reviewing a practice-test result. Return ONLY valid JSON matching this schema:
{
  "scoreConfidence": "high|medium|low",
  "scoreAssessment": "one-paragraph assessment",
  "verbal": {"strengths": ["..."], "weaknesses": ["..."], "tip": "..."},
  "quant": {"strengths": ["..."], "weaknesses": ["..."], "tip": "..."},
  "overallTip": "...",
  "estimatedScoreRange": {"low": 400, "high": 1600, "explanation": "..."}
}

Performance summary (per-question correctness with skill tags, plus section scores):
%s`, summary), nil
}
