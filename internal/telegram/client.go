// Package telegram delivers critical-article alerts via the Telegram Bot
// API. Messages use MarkdownV2 and sends are retried with linear backoff.
package telegram

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/aura-global/aura/internal/models"
)

// Client handles Telegram alert delivery.
type Client struct {
	bot            *tgbotapi.BotAPI
	chatID         int64
	maxRetries     int
	retryDelayBase time.Duration
}

// NewClient creates a new Telegram client.
func NewClient(botToken, chatID string, maxRetries int, retryDelayBase time.Duration) (*Client, error) {
	bot, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create Telegram bot: %w", err)
	}

	chatIDInt, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid chat ID: %w", err)
	}

	if maxRetries <= 0 {
		maxRetries = 3
	}
	if retryDelayBase <= 0 {
		retryDelayBase = time.Second
	}

	return &Client{
		bot:            bot,
		chatID:         chatIDInt,
		maxRetries:     maxRetries,
		retryDelayBase: retryDelayBase,
	}, nil
}

// SendCriticalAlert sends one message covering the cycle's critical
// articles for a country.
func (c *Client) SendCriticalAlert(country string, articles []models.Article) error {
	if len(articles) == 0 {
		return nil
	}
	return c.send(formatCriticalAlert(country, articles))
}

// SendCycleError notifies that a scan cycle failed.
func (c *Client) SendCycleError(err error) error {
	msg := fmt.Sprintf("⚠️ *Scan cycle failed*\n%s", escapeMarkdownV2(err.Error()))
	return c.send(msg)
}

// SendRecovery notifies that scanning recovered after consecutive failures.
func (c *Client) SendRecovery(failures int) error {
	msg := fmt.Sprintf("✅ *Scanning recovered* after %d failed cycle\\(s\\)", failures)
	return c.send(msg)
}

func (c *Client) send(text string) error {
	msg := tgbotapi.NewMessage(c.chatID, text)
	msg.ParseMode = "MarkdownV2"
	msg.DisableWebPagePreview = true

	var lastErr error
	for i := 0; i < c.maxRetries; i++ {
		_, err := c.bot.Send(msg)
		if err == nil {
			return nil
		}
		lastErr = err
		time.Sleep(c.retryDelayBase * time.Duration(i+1))
	}

	return fmt.Errorf("failed to send message after %d retries: %w", c.maxRetries, lastErr)
}

// formatCriticalAlert renders the alert body for a country's critical
// articles.
func formatCriticalAlert(country string, articles []models.Article) string {
	var b strings.Builder

	fmt.Fprintf(&b, "🚨 *Critical news — %s*\n\n", escapeMarkdownV2(strings.ToUpper(country)))

	for i, a := range articles {
		title := escapeMarkdownV2(a.Headline)
		if a.URL != "" {
			title = fmt.Sprintf("[%s](%s)", escapeMarkdownV2(a.Headline), a.URL)
		}
		fmt.Fprintf(&b, "%d\\. %s\n", i+1, title)
		if a.Category != "" {
			fmt.Fprintf(&b, "   🏷 %s\n", escapeMarkdownV2(a.Category))
		}
		fmt.Fprintf(&b, "   📉 Score: %s\n\n", escapeMarkdownV2(fmt.Sprintf("%.2f", a.Score)))
	}

	return b.String()
}

// escapeMarkdownV2 escapes the characters Telegram's MarkdownV2 parser
// treats as control characters.
func escapeMarkdownV2(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, char := range text {
		switch char {
		case '_', '*', '[', ']', '(', ')', '~', '`', '>', '#', '+', '-', '=', '|', '{', '}', '.', '!':
			b.WriteByte('\\')
		}
		b.WriteRune(char)
	}
	return b.String()
}
