package handlers

import (
	"context"
	"log"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"newsbot/internal/metrics"
	"newsbot/internal/telegram"
)

const (
	unknownCommand  = "Неизвестная команда. Нажмите News, чтобы получить новости."
	tooManyRequests = "Слишком много запросов, попробуйте позже."
	registerFailed  = "Не удалось зарегистрироваться, попробуйте позже."
	pageFailed      = "Не удалось загрузить новости, попробуйте позже."
	menuPrompt      = "Выберите пункт меню:"
	updateTimeout   = 30 * time.Second
	updatesLongPoll = 60
)

// Subscribers is the part of the subscriber registry the bot writes to.
type Subscribers interface {
	Register(ctx context.Context, id int64, displayName string) error
	Touch(ctx context.Context, id int64, at time.Time) error
}

// Limiter decides whether a subscriber may issue another command.
type Limiter interface {
	Allow(id int64) bool
}

// Bot answers subscriber commands: /start, News (or /news) and page
// navigation callbacks.
type Bot struct {
	api         telegram.BotAPI
	subscribers Subscribers
	pages       Pager
	pageSize    int
	limiter     Limiter
	now         func() time.Time
}

func NewBot(api telegram.BotAPI, subscribers Subscribers, pages Pager, pageSize int, limiter Limiter) *Bot {
	if pageSize < 1 {
		pageSize = 1
	}
	return &Bot{
		api:         api,
		subscribers: subscribers,
		pages:       pages,
		pageSize:    pageSize,
		limiter:     limiter,
		now:         time.Now,
	}
}

// StartTelegramBot polls for updates until ctx is canceled.
func StartTelegramBot(ctx context.Context, api *tgbotapi.BotAPI, bot *Bot) {
	log.Printf("Authorized on account %s", api.Self.UserName)

	u := tgbotapi.NewUpdate(0)
	u.Timeout = updatesLongPoll
	updates := api.GetUpdatesChan(u)

	go func() {
		<-ctx.Done()
		api.StopReceivingUpdates()
	}()
	bot.Serve(ctx, updates)
}

// Serve handles updates concurrently until the channel closes or ctx is
// canceled, then waits for in-flight updates.
func (b *Bot) Serve(ctx context.Context, updates <-chan tgbotapi.Update) {
	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		select {
		case <-ctx.Done():
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			wg.Add(1)
			go func() {
				defer wg.Done()
				uctx, cancel := context.WithTimeout(ctx, updateTimeout)
				defer cancel()
				b.HandleUpdate(uctx, update)
			}()
		}
	}
}

func (b *Bot) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.CallbackQuery != nil:
		b.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil && update.Message.From != nil:
		b.handleMessage(ctx, update.Message)
	}
}

func (b *Bot) handleMessage(ctx context.Context, message *tgbotapi.Message) {
	log.Printf("[%s] %s", message.From.UserName, message.Text)
	chatID := message.Chat.ID

	if !b.limiter.Allow(message.From.ID) {
		b.reply(tgbotapi.NewMessage(chatID, tooManyRequests))
		return
	}

	if message.IsCommand() {
		switch message.Command() {
		case "start":
			b.handleStart(ctx, message)
		case "news":
			b.handleNews(ctx, message)
		default:
			b.reply(tgbotapi.NewMessage(chatID, unknownCommand))
		}
		return
	}

	if message.Text == telegram.NewsButton {
		b.handleNews(ctx, message)
	}
}

func (b *Bot) handleStart(ctx context.Context, message *tgbotapi.Message) {
	chatID := message.Chat.ID
	if err := b.subscribers.Register(ctx, message.From.ID, message.From.UserName); err != nil {
		log.Printf("Error registering subscriber %d: %v", message.From.ID, err)
		b.reply(tgbotapi.NewMessage(chatID, registerFailed))
		return
	}

	b.reply(tgbotapi.NewMessage(chatID, telegram.Welcome(message.From.FirstName)))
	menu := tgbotapi.NewMessage(chatID, menuPrompt)
	menu.ReplyMarkup = telegram.MainKeyboard()
	b.reply(menu)
}

func (b *Bot) handleNews(ctx context.Context, message *tgbotapi.Message) {
	if err := b.subscribers.Touch(ctx, message.From.ID, b.now()); err != nil {
		log.Printf("Error touching subscriber %d: %v", message.From.ID, err)
	}
	b.sendPage(ctx, message.Chat.ID, 1)
}

func (b *Bot) handleCallback(ctx context.Context, query *tgbotapi.CallbackQuery) {
	if query.From == nil {
		return
	}
	if !b.limiter.Allow(query.From.ID) {
		b.answer(tgbotapi.NewCallback(query.ID, tooManyRequests))
		return
	}

	number, ok := telegram.ParsePageToken(query.Data)
	if !ok {
		log.Printf("Ignoring callback %q from %d", query.Data, query.From.ID)
		b.answer(tgbotapi.NewCallback(query.ID, ""))
		return
	}

	chatID := query.From.ID
	if query.Message != nil && query.Message.Chat != nil {
		chatID = query.Message.Chat.ID
	}
	b.sendPage(ctx, chatID, number)
	b.answer(tgbotapi.NewCallback(query.ID, ""))
}

// sendPage sends every article of the page as its own message, followed by
// the navigation buttons.
func (b *Bot) sendPage(ctx context.Context, chatID int64, number int) {
	metrics.PageRequestsTotal.WithLabelValues(metrics.ChannelTelegram).Inc()

	page, err := b.pages.GetPage(ctx, number, b.pageSize)
	if err != nil {
		log.Printf("Error getting page %d for chat %d: %v", number, chatID, err)
		b.reply(tgbotapi.NewMessage(chatID, pageFailed))
		return
	}
	if page.Total == 0 {
		b.reply(tgbotapi.NewMessage(chatID, telegram.NoNews))
		return
	}

	for _, a := range page.Items {
		msg := tgbotapi.NewMessage(chatID, telegram.FormatPageItem(a))
		msg.ReplyMarkup = telegram.LinkKeyboard(a.URL)
		b.reply(msg)
	}

	if kb, ok := telegram.NavigationKeyboard(page); ok {
		nav := tgbotapi.NewMessage(chatID, telegram.ChoosePage)
		nav.ReplyMarkup = kb
		b.reply(nav)
	}
}

func (b *Bot) reply(msg tgbotapi.MessageConfig) {
	if _, err := b.api.Send(msg); err != nil {
		log.Printf("Error sending message to chat %d: %v", msg.ChatID, err)
	}
}

func (b *Bot) answer(cb tgbotapi.CallbackConfig) {
	if _, err := b.api.Request(cb); err != nil {
		log.Printf("Error answering callback %s: %v", cb.CallbackQueryID, err)
	}
}
