package notify

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/bwmarrin/discordgo"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/onnwee/streamwatch/live"
)

func message(e live.Entry) string {
	if e.Title != "" {
		return fmt.Sprintf("%s is live: %s\n%s", e.DisplayName, e.Title, e.URL)
	}
	return fmt.Sprintf("%s is live\n%s", e.DisplayName, e.URL)
}

// LogSink writes notifications to the structured log. It is always wired so
// newly-live events are observable even with no chat sinks configured.
type LogSink struct{}

func (LogSink) Notify(_ context.Context, e live.Entry) error {
	slog.Info("channel went live",
		slog.String("key", e.PlatformKey),
		slog.String("name", e.DisplayName),
		slog.String("title", e.Title),
		slog.String("url", e.URL))
	return nil
}

// TelegramSink posts newly-live messages to a Telegram chat.
type TelegramSink struct {
	Bot    *tgbotapi.BotAPI
	ChatID int64
}

// NewTelegramSink builds a sink from TELEGRAM_BOT_TOKEN and TELEGRAM_CHAT_ID.
// It returns (nil, nil) when the token is unset so callers can skip wiring it.
func NewTelegramSink() (*TelegramSink, error) {
	token := os.Getenv("TELEGRAM_BOT_TOKEN")
	if token == "" {
		return nil, nil
	}
	chatID, err := strconv.ParseInt(os.Getenv("TELEGRAM_CHAT_ID"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parse TELEGRAM_CHAT_ID: %w", err)
	}
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram bot init: %w", err)
	}
	return &TelegramSink{Bot: bot, ChatID: chatID}, nil
}

func (s *TelegramSink) Notify(_ context.Context, e live.Entry) error {
	msg := tgbotapi.NewMessage(s.ChatID, message(e))
	if _, err := s.Bot.Send(msg); err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	return nil
}

// DiscordSink posts newly-live messages to a Discord channel over the REST
// API. No gateway connection is opened.
type DiscordSink struct {
	Session   *discordgo.Session
	ChannelID string
}

// NewDiscordSink builds a sink from DISCORD_BOT_TOKEN and DISCORD_CHANNEL_ID.
// It returns (nil, nil) when the token is unset.
func NewDiscordSink() (*DiscordSink, error) {
	token := os.Getenv("DISCORD_BOT_TOKEN")
	if token == "" {
		return nil, nil
	}
	channelID := os.Getenv("DISCORD_CHANNEL_ID")
	if channelID == "" {
		return nil, fmt.Errorf("DISCORD_CHANNEL_ID is required when DISCORD_BOT_TOKEN is set")
	}
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("discord session init: %w", err)
	}
	return &DiscordSink{Session: session, ChannelID: channelID}, nil
}

func (s *DiscordSink) Notify(_ context.Context, e live.Entry) error {
	if _, err := s.Session.ChannelMessageSend(s.ChannelID, message(e)); err != nil {
		return fmt.Errorf("discord send: %w", err)
	}
	return nil
}
