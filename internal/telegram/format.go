package telegram

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"newsbot/internal/models"
	"newsbot/internal/paging"
)

const (
	NewsButton    = "News"
	OpenOnSite    = "Смотреть на сайте"
	ChoosePage    = "Выберите страницу:"
	NoNews        = "Новостей пока нет."
	PrevButton    = "⬅️"
	NextButton    = "➡️"
	menuHint      = "Выберите пункт меню"
	pageTokenHead = "page_"

	pageDateLayout = "02.01.2006 15:04"
)

// FormatNotification renders the message sent to every subscriber when a new
// article appears. The article URL is part of the text.
func FormatNotification(a models.Article) (text, link string) {
	text = fmt.Sprintf("📰 Новая новость!\nКатегория: %s\nЗаголовок: %s\nДата: %s\n%s",
		a.Category, a.Title, a.PublishedAt.Format(time.RFC3339), a.URL)
	return text, ""
}

// FormatPageItem renders an article shown while paging. The date is printed
// in the offset the source reported.
func FormatPageItem(a models.Article) string {
	return fmt.Sprintf("📰 %s\n💡 %s\n🕒 %s", a.Category, a.Title, a.PublishedAt.Format(pageDateLayout))
}

// Welcome greets a subscriber after /start.
func Welcome(firstName string) string {
	if firstName == "" {
		firstName = "друг"
	}
	return fmt.Sprintf("Привет, %s! Я бот новостей. Я могу предоставить тебе последние новости с сайта Nur.kz. "+
		"Чтобы начать, просто нажми кнопку %s в меню ниже.", firstName, NewsButton)
}

func LinkKeyboard(url string) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonURL(OpenOnSite, url)),
	)
}

func MainKeyboard() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(NewsButton)))
	kb.InputFieldPlaceholder = menuHint
	return kb
}

// NavigationKeyboard returns the prev/next buttons for p, and false when
// there is nowhere to go.
func NavigationKeyboard(p paging.Page) (tgbotapi.InlineKeyboardMarkup, bool) {
	var row []tgbotapi.InlineKeyboardButton
	if p.HasPrev() {
		prev := min(p.Number-1, p.TotalPages)
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(PrevButton, PageToken(prev)))
	}
	if p.HasNext() {
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(NextButton, PageToken(p.Number+1)))
	}
	if len(row) == 0 {
		return tgbotapi.InlineKeyboardMarkup{}, false
	}
	return tgbotapi.NewInlineKeyboardMarkup(row), true
}

func PageToken(number int) string {
	return pageTokenHead + strconv.Itoa(number)
}

// ParsePageToken extracts the page number from callback data.
func ParsePageToken(data string) (int, bool) {
	rest, ok := strings.CutPrefix(data, pageTokenHead)
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(rest)
	if err != nil || n < 1 {
		return 0, false
	}
	return n, true
}
