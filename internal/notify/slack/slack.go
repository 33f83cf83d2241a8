// Package slack delivers remediation notifications to a fixed Slack channel
// via the chat.postMessage API.
package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
	"unicode/utf8"
)

const (
	defaultAPIURL = "https://slack.com/api/chat.postMessage"
	httpTimeout   = 10 * time.Second
	maxMessageLen = 3000
)

// Notifier posts messages to one Slack channel using a bot token.
type Notifier struct {
	apiURL    string
	botToken  string
	channelID string
	client    *http.Client
}

// New creates a Notifier for the given bot token and destination channel.
func New(botToken, channelID string) *Notifier {
	return &Notifier{
		apiURL:    defaultAPIURL,
		botToken:  botToken,
		channelID: channelID,
		client:    &http.Client{Timeout: httpTimeout},
	}
}

// NewWithURL is New with an overridable API URL, for tests.
func NewWithURL(apiURL, botToken, channelID string) *Notifier {
	n := New(botToken, channelID)
	n.apiURL = apiURL
	return n
}

// Send posts message to the configured channel and returns a delivery
// confirmation. Slack-level rejections ("ok": false) are errors so the
// caller can record them as step failures.
func (n *Notifier) Send(ctx context.Context, message string) (string, error) {
	if n.botToken == "" || n.channelID == "" {
		return "", fmt.Errorf("slack: bot token or channel id not configured")
	}

	body, err := json.Marshal(map[string]string{
		"channel": n.channelID,
		"text":    truncate(message, maxMessageLen),
	})
	if err != nil {
		return "", fmt.Errorf("slack: marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.apiURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("slack: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	req.Header.Set("Authorization", "Bearer "+n.botToken)

	resp, err := n.client.Do(req) //nolint:gosec // G704: apiURL is from trusted config, not user input
	if err != nil {
		return "", fmt.Errorf("slack: post message: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		return "", fmt.Errorf("slack: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("slack: api returned %d: %s", resp.StatusCode, string(respBody))
	}

	var result struct {
		OK    bool   `json:"ok"`
		Error string `json:"error"`
		TS    string `json:"ts"`
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("slack: decode response: %w", err)
	}
	if !result.OK {
		return "", fmt.Errorf("slack: api error: %s", result.Error)
	}

	return fmt.Sprintf("Message sent to Slack channel %s (ts=%s)", n.channelID, result.TS), nil
}

// truncate cuts s to fit limit bytes including the ellipsis, backing up
// to a rune boundary so the result stays valid UTF-8.
func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	cut := limit - 3
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
