// Package transcribe turns recorded questions into text through a hosted
// speech recognition endpoint.
package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"os"
	"time"

	"docqa/internal/config"

	"github.com/rs/zerolog/log"
)

const defaultTimeout = 60 * time.Second

type Client struct {
	url    string
	key    string
	client *http.Client
}

func NewClient(cfg config.TranscribeConfig) *Client {
	timeout := defaultTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	return &Client{
		url:    cfg.URL,
		key:    cfg.Key,
		client: &http.Client{Timeout: timeout},
	}
}

// Transcribe sends the audio and returns the recognized text. Any failure
// is logged and yields "".
func (c *Client) Transcribe(ctx context.Context, audio []byte) string {
	if c.url == "" {
		log.Warn().Msg("Transcription url is not configured")
		return ""
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(audio))
	if err != nil {
		log.Error().Err(err).Msg("Error creating transcription request")
		return ""
	}
	req.Header.Set("Authorization", "Bearer "+c.key)
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := c.client.Do(req)
	if err != nil {
		log.Error().Err(err).Msg("Error calling transcription service")
		return ""
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		log.Error().Int("status", resp.StatusCode).Str("body", string(body)).Msg("Transcription request failed")
		return ""
	}

	var out struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		log.Error().Err(err).Msg("Error decoding transcription")
		return ""
	}
	return out.Text
}

// TranscribeFile reads an audio file and transcribes it.
func (c *Client) TranscribeFile(ctx context.Context, path string) string {
	audio, err := os.ReadFile(path)
	if err != nil {
		log.Error().Err(err).Str("file", path).Msg("Error reading audio file")
		return ""
	}
	return c.Transcribe(ctx, audio)
}
