// Package telegram adapts the Bot API to the shapes the coordinator
// consumes: plain-text sends, file-ID resolution and a flattened message
// stream.
package telegram

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"tabkeeper/internal/bot"
)

// Client wraps an authorized Bot API session.
type Client struct {
	api *tgbotapi.BotAPI
}

// New authorizes against the Bot API.
func New(token string) (*Client, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram.New: authorize: %w", err)
	}
	return &Client{api: api}, nil
}

// Username returns the bot account's username.
func (c *Client) Username() string {
	return c.api.Self.UserName
}

// Send delivers a plain-text reply.
func (c *Client) Send(chatID int64, text string) error {
	if _, err := c.api.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		return fmt.Errorf("telegram: send to %d: %w", chatID, err)
	}
	return nil
}

// FileURL exchanges a photo file ID for its HTTPS download URL.
func (c *Client) FileURL(ctx context.Context, fileID string) (string, error) {
	file, err := c.api.GetFile(tgbotapi.FileConfig{FileID: fileID})
	if err != nil {
		return "", fmt.Errorf("telegram: resolve file %s: %w", fileID, err)
	}
	return file.Link(c.api.Token), nil
}

// Updates opens the long-poll update stream.
func (c *Client) Updates() tgbotapi.UpdatesChannel {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	return c.api.GetUpdatesChan(u)
}

// Stop ends the long-poll loop; the Updates channel closes after the
// in-flight request returns.
func (c *Client) Stop() {
	c.api.StopReceivingUpdates()
}

// Flatten extracts the coordinator's message shape from an update. The
// second return value is false for updates that carry nothing to handle.
// For photo messages the largest available size is used.
func Flatten(u tgbotapi.Update) (bot.Message, bool) {
	m := u.Message
	if m == nil {
		return bot.Message{}, false
	}

	msg := bot.Message{
		ChatID:  m.Chat.ID,
		Caption: m.Caption,
	}
	if m.IsCommand() {
		msg.Command = m.Command()
		msg.CommandArgs = m.CommandArguments()
		return msg, true
	}
	if len(m.Photo) > 0 {
		msg.PhotoFileID = m.Photo[len(m.Photo)-1].FileID
		return msg, true
	}
	if m.Text != "" {
		msg.Text = m.Text
		return msg, true
	}
	return bot.Message{}, false
}
