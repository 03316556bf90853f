/**
 * @description
 * Telegram Bot API sink.
 * Posts ranking announcements to channels via sendMessage.
 *
 * @dependencies
 * - net/http
 * - encoding/json
 */

package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const DefaultTimeout = 10 * time.Second

// TelegramClient sends chat messages through the Bot API.
type TelegramClient struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
}

func NewTelegramClient(baseURL, token string) *TelegramClient {
	return &TelegramClient{
		BaseURL:    baseURL,
		Token:      token,
		HTTPClient: &http.Client{Timeout: DefaultTimeout},
	}
}

type telegramSendMessage struct {
	ChatID                string `json:"chat_id"`
	Text                  string `json:"text"`
	ParseMode             string `json:"parse_mode,omitempty"`
	DisableWebPagePreview bool   `json:"disable_web_page_preview"`
}

type telegramResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

func (c *TelegramClient) Name() string { return "telegram" }

// PublishMessage posts text to a chat or channel (e.g. "@ttms_alerts").
func (c *TelegramClient) PublishMessage(ctx context.Context, channel, text string, format Format) error {
	payload, err := json.Marshal(telegramSendMessage{
		ChatID:                channel,
		Text:                  text,
		ParseMode:             format.telegramParseMode(),
		DisableWebPagePreview: true,
	})
	if err != nil {
		return err
	}

	u := fmt.Sprintf("%s/bot%s/sendMessage", c.BaseURL, c.Token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var out telegramResponse
	_ = json.NewDecoder(resp.Body).Decode(&out)
	if resp.StatusCode != http.StatusOK || !out.OK {
		return fmt.Errorf("telegram api error: status %d: %s", resp.StatusCode, out.Description)
	}
	return nil
}
