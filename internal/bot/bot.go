package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"wtq-task-mining/internal/core"

	log "github.com/sirupsen/logrus"
	tele "gopkg.in/telebot.v3"
)

// AdminStore is the subset of the storage layer the bot needs for its
// chat allow-list.
type AdminStore interface {
	IsTelegramAdmin(chatID int64) (bool, error)
	AddTelegramAdmin(chatID int64) error
	TelegramAdmins() ([]int64, error)
}

// Bot is the Telegram side of the admin panel: it announces new pending
// transactions and lets allow-listed chats approve or reject them.
type Bot struct {
	bot      *tele.Bot
	service  *core.Service
	admins   AdminStore
	adminKey string
}

// NewBot creates a new Bot instance. adminKey is the shared secret a chat
// must present to /start to get on the allow-list.
func NewBot(token string, service *core.Service, admins AdminStore, adminKey string) (*Bot, error) {
	pref := tele.Settings{
		Token:  token,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
	}

	b, err := tele.NewBot(pref)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	bot := &Bot{
		bot:      b,
		service:  service,
		admins:   admins,
		adminKey: adminKey,
	}

	bot.setupHandlers()
	return bot, nil
}

// Start starts the bot polling
func (b *Bot) Start() {
	log.Info("🤖 Telegram admin bot is now running...")
	b.bot.Start()
}

// Stop gracefully stops the bot
func (b *Bot) Stop() {
	b.bot.Stop()
}

// setupHandlers configures all command and callback handlers
func (b *Bot) setupHandlers() {
	b.bot.Handle("/start", b.handleStart)
	b.bot.Handle("/pending", b.requireAdmin(b.handlePending))
	b.bot.Handle("/stats", b.requireAdmin(b.handleStats))
	b.bot.Handle(tele.OnCallback, b.handleCallback)
}

// requireAdmin wraps a handler so only allow-listed chats can use it.
// Lookup failures deny access.
func (b *Bot) requireAdmin(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		ok, err := b.admins.IsTelegramAdmin(c.Chat().ID)
		if err != nil || !ok {
			return c.Send("🚫 This bot only talks to registered admin chats.")
		}
		return next(c)
	}
}

// handleStart registers a chat as admin when the shared key matches
func (b *Bot) handleStart(c tele.Context) error {
	if ok, _ := b.admins.IsTelegramAdmin(c.Chat().ID); ok {
		return c.Send("✅ This chat is already registered. Use /pending to review transactions.")
	}

	args := strings.Fields(c.Message().Payload)
	if b.adminKey == "" || len(args) != 1 || args[0] != b.adminKey {
		return c.Send("🔑 Send /start <admin key> to register this chat.")
	}

	if err := b.admins.AddTelegramAdmin(c.Chat().ID); err != nil {
		log.Errorf("Failed to register admin chat %d: %v", c.Chat().ID, err)
		return c.Send("❌ Registration failed, try again.")
	}

	log.WithFields(log.Fields{"chat_id": c.Chat().ID}).Info("🔐 Admin chat registered")
	return c.Send("✅ Registered! You will be notified about new deposits and withdrawals. Use /pending to see the queue.")
}

// handlePending lists the transactions awaiting review, one message each
// with approve and reject buttons
func (b *Bot) handlePending(c tele.Context) error {
	txs, err := b.service.PendingTransactions()
	if err != nil {
		log.Errorf("Failed to load pending transactions: %v", err)
		return c.Send("❌ Couldn't fetch the queue.")
	}

	if len(txs) == 0 {
		return c.Send("📭 Nothing pending right now.")
	}

	for _, tx := range txs {
		profile, err := b.service.GetProfile(tx.UserID)
		email := "unknown"
		if err == nil {
			email = profile.Email
		}
		if err := c.Send(transactionMessage(tx, email), transactionKeyboard(tx.ID)); err != nil {
			return err
		}
	}
	return nil
}

// handleStats sends a short summary of the user base
func (b *Bot) handleStats(c tele.Context) error {
	profiles, err := b.service.ListProfiles()
	if err != nil {
		log.Errorf("Failed to load profiles: %v", err)
		return c.Send("❌ Couldn't fetch stats.")
	}

	var vips int
	var locked, available float64
	for _, p := range profiles {
		if p.IsVIP {
			vips++
		}
		locked += p.LockedDeposit
		available += p.AvailableBalance
	}

	pending, err := b.service.PendingTransactions()
	if err != nil {
		return c.Send("❌ Couldn't fetch stats.")
	}

	return c.Send(fmt.Sprintf(
		"📊 Stats\n\n"+
			"👥 Users: %d (VIP: %d)\n"+
			"🔒 Locked deposits: %.2f USDT\n"+
			"💵 Available balances: %.2f USDT\n"+
			"⏳ Pending transactions: %d",
		len(profiles), vips, locked, available, len(pending),
	))
}

// handleCallback handles the approve/reject buttons
func (b *Bot) handleCallback(c tele.Context) error {
	ok, err := b.admins.IsTelegramAdmin(c.Chat().ID)
	if err != nil || !ok {
		return c.Respond(&tele.CallbackResponse{Text: "🚫 Not an admin chat"})
	}

	data := strings.TrimSpace(c.Callback().Data)
	parts := strings.Split(data, ":")
	if len(parts) != 2 {
		return c.Respond(&tele.CallbackResponse{Text: "❌ Invalid action"})
	}

	action := parts[0]
	txID, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return c.Respond(&tele.CallbackResponse{Text: "❌ Invalid ID"})
	}

	switch action {
	case "approve":
		return b.settleTransaction(c, txID, true)
	case "reject":
		return b.settleTransaction(c, txID, false)
	default:
		return c.Respond(&tele.CallbackResponse{Text: "❌ Unknown action"})
	}
}

// settleTransaction approves or rejects a transaction from a callback.
// The processing admin is external to the user table, so processed_by
// stays empty.
func (b *Bot) settleTransaction(c tele.Context, txID int64, approved bool) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	tx, err := b.service.ProcessTransaction(ctx, txID, approved, nil)
	if err != nil {
		log.WithFields(log.Fields{"tx_id": txID, "chat_id": c.Chat().ID}).Warnf("Settlement failed: %v", err)
		return c.Respond(&tele.CallbackResponse{Text: fmt.Sprintf("❌ %v", err)})
	}

	verdict := "❌ Rejected"
	if approved {
		verdict = "✅ Approved"
	}

	if err := c.Edit(fmt.Sprintf("%s %s #%d for %.2f USDT", verdict, tx.Type, tx.ID, tx.Amount)); err != nil {
		log.Errorf("Failed to edit settlement message: %v", err)
	}
	return c.Respond(&tele.CallbackResponse{Text: verdict})
}

// NotifyTransaction implements core.Notifier: broadcast a newly created
// pending transaction to every admin chat.
func (b *Bot) NotifyTransaction(tx *core.Transaction, userEmail string) {
	chats, err := b.admins.TelegramAdmins()
	if err != nil {
		log.Errorf("Failed to load admin chats: %v", err)
		return
	}

	msg := transactionMessage(tx, userEmail)
	markup := transactionKeyboard(tx.ID)

	for _, chatID := range chats {
		if _, err := b.bot.Send(&tele.Chat{ID: chatID}, msg, markup); err != nil {
			log.Warnf("Failed to notify admin chat %d: %v", chatID, err)
		}
	}
}

func transactionMessage(tx *core.Transaction, email string) string {
	emoji := "💰"
	if tx.Type == core.TransactionWithdrawal {
		emoji = "💸"
	}

	msg := fmt.Sprintf(
		"%s %s #%d\n\n"+
			"👤 %s\n"+
			"💵 %.2f USDT\n"+
			"🕒 %s",
		emoji, tx.Type, tx.ID, email, tx.Amount, tx.CreatedAt.Format("2006-01-02 15:04"),
	)
	if tx.WalletAddress != "" {
		msg += fmt.Sprintf("\n🏦 %s", tx.WalletAddress)
	}
	return msg
}

func transactionKeyboard(txID int64) *tele.ReplyMarkup {
	approve := tele.InlineButton{Text: "✅ Approve", Data: fmt.Sprintf("approve:%d", txID)}
	reject := tele.InlineButton{Text: "❌ Reject", Data: fmt.Sprintf("reject:%d", txID)}
	return &tele.ReplyMarkup{InlineKeyboard: [][]tele.InlineButton{{approve, reject}}}
}
