/**
 * @description
 * X (Twitter) v2 API sink.
 * Creates a post through POST /2/tweets with an app bearer token.
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
	"io"
	"net/http"
	"strings"
)

// MaxPostLength is the character limit of a single post.
const MaxPostLength = 280

// TwitterClient creates posts on X.
type TwitterClient struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
}

func NewTwitterClient(baseURL, token string) *TwitterClient {
	return &TwitterClient{
		BaseURL:    baseURL,
		Token:      token,
		HTTPClient: &http.Client{Timeout: DefaultTimeout},
	}
}

type tweetMedia struct {
	MediaIDs []string `json:"media_ids"`
}

type tweetRequest struct {
	Text  string      `json:"text"`
	Media *tweetMedia `json:"media,omitempty"`
}

func (c *TwitterClient) Name() string { return "twitter" }

// PublishSocialPost creates a post. media holds already uploaded media ids.
func (c *TwitterClient) PublishSocialPost(ctx context.Context, text string, media []string) error {
	body := tweetRequest{Text: truncateRunes(text, MaxPostLength)}
	if len(media) > 0 {
		body.Media = &tweetMedia{MediaIDs: media}
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/2/tweets", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.Token)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("twitter api error: status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	return nil
}

func truncateRunes(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-1]) + "…"
}
