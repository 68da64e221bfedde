// Package telegram provides a client for sending run summaries via Telegram Bot API.
// It formats a scoring run's summary statistics and top wallets into a
// MarkdownV2 message and handles delivery with retry logic.
package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"

	"github.com/rewired-gh/credscore/internal/report"
)

// sender is the part of tgbotapi.BotAPI the client uses.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Client handles Telegram notifications
type Client struct {
	bot            sender
	chatID         int64
	maxRetries     int
	retryDelayBase time.Duration
}

// NewClient creates a new Telegram client
func NewClient(botToken, chatID string, maxRetries int, retryDelayBase time.Duration) (*Client, error) {
	chatIDInt, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid chat ID: %w", err)
	}

	bot, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create Telegram bot: %w", err)
	}

	return newClient(bot, chatIDInt, maxRetries, retryDelayBase), nil
}

func newClient(bot sender, chatID int64, maxRetries int, retryDelayBase time.Duration) *Client {
	if maxRetries <= 0 {
		maxRetries = 3
	}
	if retryDelayBase <= 0 {
		retryDelayBase = time.Second
	}
	return &Client{
		bot:            bot,
		chatID:         chatID,
		maxRetries:     maxRetries,
		retryDelayBase: retryDelayBase,
	}
}

// Send sends the summary of a scoring run. Retries back off linearly and stop
// early if ctx is cancelled.
func (c *Client) Send(ctx context.Context, runID uuid.UUID, summary report.Summary) error {
	msg := tgbotapi.NewMessage(c.chatID, formatMessage(runID, summary))
	msg.ParseMode = tgbotapi.ModeMarkdownV2

	var lastErr error
	for i := 0; i < c.maxRetries; i++ {
		_, err := c.bot.Send(msg)
		if err == nil {
			return nil
		}
		lastErr = err

		if i == c.maxRetries-1 {
			break
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("telegram send cancelled: %w", ctx.Err())
		case <-time.After(c.retryDelayBase * time.Duration(i+1)):
		}
	}

	return fmt.Errorf("failed to send message after %d retries: %w", c.maxRetries, lastErr)
}

// formatMessage formats a run summary into a Telegram message
func formatMessage(runID uuid.UUID, s report.Summary) string {
	var b strings.Builder
	b.WriteString("🏦 *Wallet Credit Scores*\n\n")
	fmt.Fprintf(&b, "🆔 Run: `%s`\n", runID)
	fmt.Fprintf(&b, "👛 Wallets: %s\n", escapeMarkdownV2(humanize.Comma(int64(s.Count))))

	if s.Count > 0 {
		stats := fmt.Sprintf("mean %.1f, median %.1f, min %d, max %d", s.Mean, s.Median, s.Min, s.Max)
		fmt.Fprintf(&b, "📊 Scores: %s\n", escapeMarkdownV2(stats))
	}
	if s.Duration > 0 {
		fmt.Fprintf(&b, "⏱ Duration: %s\n", escapeMarkdownV2(formatDuration(s.Duration)))
	}

	if len(s.Top) > 0 {
		b.WriteString("\n🏆 *Top wallets*\n")
		for i, w := range s.Top {
			fmt.Fprintf(&b, "%d\\. `%s`: *%d*\n", i+1, w.UserWallet, w.CreditScore)
		}
	}

	return b.String()
}

// escapeMarkdownV2 escapes special characters for Telegram MarkdownV2
func escapeMarkdownV2(text string) string {
	// Characters that need escaping in MarkdownV2:
	// _ * [ ] ( ) ~ ` > # + - = | { } . !
	var b strings.Builder
	for _, char := range text {
		switch char {
		case '_', '*', '[', ']', '(', ')', '~', '`', '>', '#', '+', '-', '=', '|', '{', '}', '.', '!':
			b.WriteByte('\\')
		}
		b.WriteRune(char)
	}
	return b.String()
}

// formatDuration formats a run duration in a human-readable way
func formatDuration(d time.Duration) string {
	switch {
	case d >= time.Hour:
		return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
	case d >= time.Minute:
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	case d >= time.Second:
		return fmt.Sprintf("%.1fs", d.Seconds())
	default:
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
}
