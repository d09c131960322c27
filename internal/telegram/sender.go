package telegram

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-telegram/bot"
)

const DefaultAPIURL = "https://api.telegram.org"

var ErrSenderNotConfigured = errors.New("telegram sender is not configured")

// BotSender delivers text messages through the Bot API sendMessage method.
type BotSender struct {
	bot     *bot.Bot
	timeout time.Duration
}

// NewBotSender creates a sender. An empty token yields an unconfigured sender
// whose sends fail with ErrSenderNotConfigured. The timeout caps each call.
func NewBotSender(apiURL, botToken string, timeout time.Duration) (*BotSender, error) {
	sender := &BotSender{timeout: timeout}
	if botToken == "" {
		return sender, nil
	}
	if apiURL == "" {
		apiURL = DefaultAPIURL
	}

	b, err := bot.New(botToken,
		bot.WithSkipGetMe(),
		bot.WithServerURL(strings.TrimRight(apiURL, "/")),
		bot.WithHTTPClient(timeout, &http.Client{Timeout: timeout}),
	)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot client: %w", err)
	}
	sender.bot = b
	return sender, nil
}

// IsConfigured returns true if a bot token is set
func (s *BotSender) IsConfigured() bool {
	return s.bot != nil
}

// SendMessage sends text to the chat of the given Telegram user id.
func (s *BotSender) SendMessage(ctx context.Context, chatID int64, text string) error {
	if !s.IsConfigured() {
		return ErrSenderNotConfigured
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	_, err := s.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatID,
		Text:   text,
	})
	if err != nil {
		// the request URL carries the bot token; drop it from the error
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			return fmt.Errorf("sendMessage: %w", urlErr.Err)
		}
		return fmt.Errorf("sendMessage: %w", err)
	}
	return nil
}
