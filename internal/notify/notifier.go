/**
 * @description
 * Best-effort fan-out of ranking announcements.
 * Chat messages go to every MessageSink, posts to every SocialSink. Each sink sits
 * behind its own circuit breaker; failures are logged and counted, never returned.
 *
 * @dependencies
 * - github.com/sony/gobreaker
 * - github.com/redis/go-redis/v9
 * - backend/internal/metrics
 */

package notify

import (
	"context"

	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"

	"github.com/ttms-project/backend/internal/config"
	"github.com/ttms-project/backend/internal/logger"
	"github.com/ttms-project/backend/internal/metrics"
)

// Format selects how a chat sink renders text.
type Format string

const (
	FormatPlain    Format = "plain"
	FormatMarkdown Format = "markdown"
	FormatHTML     Format = "html"
)

func (f Format) telegramParseMode() string {
	switch f {
	case FormatMarkdown:
		return "MarkdownV2"
	case FormatHTML:
		return "HTML"
	}
	return ""
}

// MessageSink delivers chat-style messages.
type MessageSink interface {
	Name() string
	PublishMessage(ctx context.Context, channel, text string, format Format) error
}

// SocialSink delivers microblog posts.
type SocialSink interface {
	Name() string
	PublishSocialPost(ctx context.Context, text string, media []string) error
}

type guardedMessageSink struct {
	sink    MessageSink
	breaker *gobreaker.CircuitBreaker
}

type guardedSocialSink struct {
	sink    SocialSink
	breaker *gobreaker.CircuitBreaker
}

// Notifier fans messages out to the configured sinks.
type Notifier struct {
	channels []string
	messages []guardedMessageSink
	social   []guardedSocialSink
}

// NewNotifier creates a Notifier delivering to channels through the given sinks.
func NewNotifier(channels []string, messages []MessageSink, social []SocialSink) *Notifier {
	n := &Notifier{channels: channels}
	for _, s := range messages {
		n.messages = append(n.messages, guardedMessageSink{sink: s, breaker: newBreaker(s.Name())})
	}
	for _, s := range social {
		n.social = append(n.social, guardedSocialSink{sink: s, breaker: newBreaker(s.Name())})
	}
	return n
}

// NewFromConfig wires the sinks enabled by cfg. rdb may be nil.
func NewFromConfig(cfg *config.Config, rdb *redis.Client) *Notifier {
	var messages []MessageSink
	var social []SocialSink
	if cfg.Notify.TelegramBotToken != "" {
		messages = append(messages, NewTelegramClient(cfg.Notify.TelegramURL, cfg.Notify.TelegramBotToken))
	}
	if rdb != nil {
		messages = append(messages, NewRedisPublisher(rdb))
	}
	if cfg.Notify.TwitterEnabled && cfg.Notify.TwitterToken != "" {
		social = append(social, NewTwitterClient(cfg.Notify.TwitterURL, cfg.Notify.TwitterToken))
	}
	return NewNotifier(cfg.Notify.TelegramChannels, messages, social)
}

// Channels returns the default announcement channels.
func (n *Notifier) Channels() []string {
	return n.channels
}

// PublishMessage sends text to channel on every message sink.
// It returns the number of sinks that accepted the message.
func (n *Notifier) PublishMessage(ctx context.Context, channel, text string, format Format) int {
	delivered := 0
	for _, g := range n.messages {
		_, err := g.breaker.Execute(func() (interface{}, error) {
			return nil, g.sink.PublishMessage(ctx, channel, text, format)
		})
		if err != nil {
			metrics.PublishFailures.WithLabelValues(g.sink.Name()).Inc()
			logger.Error("Notifier: %s publish to %s failed: %v", g.sink.Name(), channel, err)
			continue
		}
		delivered++
	}
	return delivered
}

// Broadcast sends text to every default channel.
func (n *Notifier) Broadcast(ctx context.Context, text string, format Format) int {
	delivered := 0
	for _, ch := range n.channels {
		delivered += n.PublishMessage(ctx, ch, text, format)
	}
	return delivered
}

// PublishSocialPost posts text on every social sink and returns how many accepted it.
func (n *Notifier) PublishSocialPost(ctx context.Context, text string, media []string) int {
	delivered := 0
	for _, g := range n.social {
		_, err := g.breaker.Execute(func() (interface{}, error) {
			return nil, g.sink.PublishSocialPost(ctx, text, media)
		})
		if err != nil {
			metrics.PublishFailures.WithLabelValues(g.sink.Name()).Inc()
			logger.Error("Notifier: %s post failed: %v", g.sink.Name(), err)
			continue
		}
		delivered++
	}
	return delivered
}
