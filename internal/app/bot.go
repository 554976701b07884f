// Package app is the Telegram front-end for browsing task listings.
package app

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/go-pkgz/lgr"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/agalitsyn/tareas/internal/listing"
	"github.com/agalitsyn/tareas/version"
)

type Lister interface {
	List(ctx context.Context, flow listing.Flow, q listing.Query) listing.Page
}

type BotConfig struct {
	UpdateTimeout int
	PageSize      int
}

type Bot struct {
	api *tgbotapi.BotAPI

	cfg    BotConfig
	lister Lister
	log    lgr.L
}

func NewBot(cfg BotConfig, token string, logger lgr.L, lister Lister) (*Bot, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	if err := tgbotapi.SetLogger(botLogger{logger}); err != nil {
		return nil, fmt.Errorf("could not set bot logger: %w", err)
	}
	return &Bot{
		api:    bot,
		cfg:    cfg,
		lister: lister,
		log:    logger,
	}, nil
}

func (b *Bot) Start(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = b.cfg.UpdateTimeout
	updates := b.api.GetUpdatesChan(u)
	defer b.api.StopReceivingUpdates()

	for {
		select {
		case update := <-updates:
			if update.CallbackQuery != nil {
				if err := b.handleCallbackQuery(ctx, update); err != nil {
					b.log.Logf("[ERROR] handling callback query: %s", err)
				}
				continue
			}

			if update.Message == nil {
				continue
			}

			if !update.Message.IsCommand() {
				command, ok := parseCommand(update.Message.Text, b.api.Self.UserName)
				if !ok {
					continue
				}
				cmdUpdate := update
				cmdUpdate.Message.Text = "/" + command
				name, _, _ := strings.Cut(command, " ")
				cmdUpdate.Message.Entities = []tgbotapi.MessageEntity{
					{
						Type:   "bot_command",
						Offset: 0,
						Length: len(name) + 1,
					},
				}
				update = cmdUpdate
			}

			if err := b.handleCommand(ctx, update); err != nil {
				b.log.Logf("[ERROR] handling command: %s", err)
			}

		case <-ctx.Done():
			b.log.Logf("[DEBUG] bot stopped: %s", ctx.Err())
			return
		}
	}
}

func (b *Bot) handleCommand(ctx context.Context, update tgbotapi.Update) error {
	chatID := update.Message.Chat.ID
	switch update.Message.Command() {
	case "start", "help":
		return b.showMainMenu(chatID)
	case "tareas":
		return b.sendPage(ctx, chatID, listing.Active, 1, update.Message.CommandArguments())
	case "finalizadas":
		return b.sendPage(ctx, chatID, listing.Finished, 1, update.Message.CommandArguments())
	case "status":
		return b.sendStatus(chatID)
	default:
		_, err := b.api.Send(tgbotapi.NewMessage(chatID, "Comando desconocido. Use /help."))
		return err
	}
}

func (b *Bot) query(page int, term string) listing.Query {
	q := listing.NewQuery(term)
	q.Page = page
	if b.cfg.PageSize > 0 {
		q.PageSize = b.cfg.PageSize
	}
	return q
}

func (b *Bot) sendPage(ctx context.Context, chatID int64, flow listing.Flow, page int, term string) error {
	p := b.lister.List(ctx, flow, b.query(page, term))
	msg := tgbotapi.NewMessage(chatID, renderPage(flow, p))
	if kb, ok := pageKeyboard(flow, p); ok {
		msg.ReplyMarkup = kb
	}
	_, err := b.api.Send(msg)
	return err
}

func (b *Bot) editPage(ctx context.Context, chatID int64, messageID int, flow listing.Flow, page int, term string) error {
	p := b.lister.List(ctx, flow, b.query(page, term))
	edit := tgbotapi.NewEditMessageText(chatID, messageID, renderPage(flow, p))
	if kb, ok := pageKeyboard(flow, p); ok {
		edit.ReplyMarkup = &kb
	}
	_, err := b.api.Send(edit)
	return err
}

func (b *Bot) sendStatus(chatID int64) error {
	text := fmt.Sprintf("🤖 *Estado del bot*\n\n✅ Funcionando\n📊 Versión: %s", version.String())
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = "Markdown"
	_, err := b.api.Send(msg)
	return err
}

func (b *Bot) SetDebug(debug bool) {
	b.api.Debug = debug
}

func (b *Bot) GetSelf() tgbotapi.User {
	return b.api.Self
}

// parseCommand accepts "@bot /command args" mentions in group chats.
func parseCommand(text string, botUsername string) (string, bool) {
	prefix := "@" + botUsername + " /"
	if strings.HasPrefix(text, prefix) {
		return strings.TrimPrefix(text, prefix), true
	}
	return "", false
}

func (b *Bot) showMainMenu(chatID int64) error {
	text := fmt.Sprintf("🤖 *Tareas*\n\n/tareas [texto] lista las tareas activas\n/finalizadas [texto] lista las finalizadas\n\n_Versión: %s_", version.String())

	keyboard := tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📋 Tareas activas", encodeCallback(listing.Active, 1, "")),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ Finalizadas", encodeCallback(listing.Finished, 1, "")),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📊 Estado", "cmd_status"),
		),
	)

	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = "Markdown"
	msg.ReplyMarkup = keyboard

	_, err := b.api.Send(msg)
	return err
}

func (b *Bot) handleCallbackQuery(ctx context.Context, update tgbotapi.Update) error {
	callback := tgbotapi.NewCallback(update.CallbackQuery.ID, "")
	if _, err := b.api.Request(callback); err != nil {
		b.log.Logf("[ERROR] answering callback query: %s", err)
	}

	data := update.CallbackQuery.Data
	msg := update.CallbackQuery.Message
	if msg == nil {
		return nil
	}

	if data == "cmd_status" {
		return b.sendStatus(msg.Chat.ID)
	}

	nav, ok := parseCallback(data)
	if !ok {
		b.log.Logf("[DEBUG] ignoring callback data %q", data)
		return nil
	}
	return b.editPage(ctx, msg.Chat.ID, msg.MessageID, nav.Flow, nav.Page, nav.Term)
}

func flowTitle(flow listing.Flow) string {
	switch flow.Name {
	case listing.Finished.Name:
		return "✅ Tareas finalizadas"
	default:
		return "📋 Tareas activas"
	}
}

// renderPage formats one listing page as plain text.
func renderPage(flow listing.Flow, p listing.Page) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s (%d)\n", flowTitle(flow), p.Total)
	if p.SearchTerm != "" {
		fmt.Fprintf(&sb, "🔎 %s\n", p.SearchTerm)
	}
	sb.WriteString("\n")

	if len(p.Items) == 0 {
		sb.WriteString("No hay tareas.\n")
	}
	offset := (p.CurrentPage - 1) * p.PageSize
	for i, t := range p.Items {
		fmt.Fprintf(&sb, "%d. %s\n    📅 %s · %s · usuario %d\n",
			offset+i+1, t.Name, t.DueDate.Format("02/01/2006"),
			t.Status, t.OwnerID)
	}

	fmt.Fprintf(&sb, "\nPágina %d de %d", p.CurrentPage, p.TotalPages)
	return sb.String()
}

const buttonsPerRow = 5

// pageKeyboard builds the page window and prev/next buttons. ok is false when
// there is nothing to navigate to.
func pageKeyboard(flow listing.Flow, p listing.Page) (tgbotapi.InlineKeyboardMarkup, bool) {
	if p.TotalPages <= 1 {
		return tgbotapi.InlineKeyboardMarkup{}, false
	}

	var rows [][]tgbotapi.InlineKeyboardButton
	var row []tgbotapi.InlineKeyboardButton
	for _, n := range p.Window() {
		label := strconv.Itoa(n)
		if n == p.CurrentPage {
			label = "· " + label + " ·"
		}
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(label, encodeCallback(flow, n, p.SearchTerm)))
		if len(row) == buttonsPerRow {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}

	var nav []tgbotapi.InlineKeyboardButton
	if p.HasPrevPage {
		nav = append(nav, tgbotapi.NewInlineKeyboardButtonData("◀️ Anterior", encodeCallback(flow, p.CurrentPage-1, p.SearchTerm)))
	}
	if p.HasNextPage {
		nav = append(nav, tgbotapi.NewInlineKeyboardButtonData("Siguiente ▶️", encodeCallback(flow, p.CurrentPage+1, p.SearchTerm)))
	}
	if len(nav) > 0 {
		rows = append(rows, nav)
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...), true
}

// Telegram rejects callback data longer than 64 bytes.
const maxCallbackData = 64

type pageNav struct {
	Flow listing.Flow
	Page int
	Term string
}

// encodeCallback packs a page request as "p|flow|page|term". The term is cut on
// a rune boundary to keep the payload within maxCallbackData.
func encodeCallback(flow listing.Flow, page int, term string) string {
	head := "p|" + flow.Name + "|" + strconv.Itoa(page) + "|"
	room := maxCallbackData - len(head)
	for len(term) > room {
		_, size := utf8.DecodeLastRuneInString(term)
		term = term[:len(term)-size]
	}
	return head + term
}

func parseCallback(data string) (pageNav, bool) {
	parts := strings.SplitN(data, "|", 4)
	if len(parts) != 4 || parts[0] != "p" {
		return pageNav{}, false
	}
	flow, ok := listing.FlowByName(parts[1])
	if !ok {
		return pageNav{}, false
	}
	page, err := strconv.Atoi(parts[2])
	if err != nil {
		return pageNav{}, false
	}
	return pageNav{Flow: flow, Page: page, Term: parts[3]}, true
}

// botLogger routes library output to lgr at debug level.
type botLogger struct {
	l lgr.L
}

func (b botLogger) Printf(format string, v ...interface{}) {
	b.l.Logf("[DEBUG] telegram: "+format, v...)
}

func (b botLogger) Println(v ...interface{}) {
	b.l.Logf("[DEBUG] telegram: %s", strings.TrimSuffix(fmt.Sprintln(v...), "\n"))
}
