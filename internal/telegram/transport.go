// Package telegram adapts the Telegram Bot API to the notification and page
// rendering needs of the bot.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"newsbot/internal/notify"
)

// BotAPI is the subset of *tgbotapi.BotAPI the bot uses.
type BotAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

// Transport sends notifications through the Bot API.
type Transport struct {
	bot BotAPI
}

func NewTransport(bot BotAPI) *Transport {
	return &Transport{bot: bot}
}

// Send delivers text to the chat of subscriberID. A non-empty link is
// attached as a URL button.
func (t *Transport) Send(ctx context.Context, subscriberID int64, text, link string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := tgbotapi.NewMessage(subscriberID, text)
	if link != "" {
		msg.ReplyMarkup = LinkKeyboard(link)
	}
	if _, err := t.bot.Send(msg); err != nil {
		return Classify(err)
	}
	return nil
}

// Classify maps a Bot API error onto the notification error kinds. Only a
// rejected bot token takes the transport down; anything else, including a
// network error on one send, is a failure for that recipient only.
func Classify(err error) error {
	var apiErr *tgbotapi.Error
	if errors.As(err, &apiErr) && apiErr.Code == http.StatusUnauthorized {
		return fmt.Errorf("%w: %w", notify.ErrTransportUnavailable, err)
	}
	return fmt.Errorf("%w: %w", notify.ErrDeliveryFailed, err)
}
