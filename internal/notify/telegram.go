package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"net/http"
	"strings"
)

// DefaultTelegramAPI is the Telegram Bot API base URL.
const DefaultTelegramAPI = "https://api.telegram.org"

var _ Sender = (*Telegram)(nil)

// Telegram sends HTML messages through a bot.
type Telegram struct {
	baseURL    string
	token      string
	chatID     string
	httpClient *http.Client
}

// NewTelegram creates a Telegram sender. An empty baseURL uses the public
// Bot API.
func NewTelegram(baseURL, token, chatID string) *Telegram {
	if baseURL == "" {
		baseURL = DefaultTelegramAPI
	}
	return &Telegram{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		token:      token,
		chatID:     chatID,
		httpClient: newHTTPClient(),
	}
}

func (t *Telegram) Name() string { return "telegram" }

type telegramRequest struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

type telegramResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

// Send posts the message with sendMessage.
func (t *Telegram) Send(ctx context.Context, m Message) error {
	body, err := json.Marshal(telegramRequest{
		ChatID:    t.chatID,
		Text:      renderHTML(m),
		ParseMode: "HTML",
	})
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		t.baseURL+"/bot"+t.token+"/sendMessage", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		// The URL carries the bot token.
		return fmt.Errorf("request failed: %w", redact(err, t.token))
	}
	defer func() { _ = resp.Body.Close() }()

	var out telegramResponse
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	_ = json.Unmarshal(data, &out)

	if err := statusError(resp); err != nil {
		if out.Description != "" {
			return fmt.Errorf("%w: %s", err, out.Description)
		}
		return err
	}
	if !out.OK {
		return fmt.Errorf("%w: %s", ErrRejected, out.Description)
	}
	return nil
}

// renderHTML builds the bold-title message body.
func renderHTML(m Message) string {
	var b strings.Builder
	b.WriteString("<b>")
	b.WriteString(html.EscapeString(m.Title))
	b.WriteString("</b>\n\n")
	b.WriteString(html.EscapeString(m.Body))
	if m.URL != "" {
		b.WriteString("\n\n")
		b.WriteString(html.EscapeString(m.URL))
	}
	return b.String()
}

func redact(err error, secret string) error {
	if secret == "" {
		return err
	}
	return fmt.Errorf("%s", strings.ReplaceAll(err.Error(), secret, "***"))
}
