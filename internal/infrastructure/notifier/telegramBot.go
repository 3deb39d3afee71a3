package notifier

import (
	"context"
	"fmt"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"

	service "cardshop/internal/domain/service/order"
	"cardshop/pkg/contextx"
)

var logger = contextx.LoggerFromContextOrDefault //nolint:gochecknoglobals

type TelegramBot struct {
	bot    *telego.Bot
	chatID int64
}

func NewTelegramBot(token string, chatID int64) (*TelegramBot, error) {
	bot, err := telego.NewBot(token)
	if err != nil {
		return nil, fmt.Errorf("create bot: %w", err)
	}

	return &TelegramBot{
		bot:    bot,
		chatID: chatID,
	}, nil
}

// Run читает события продаж из канала до его закрытия или отмены контекста.
func (b *TelegramBot) Run(ctx context.Context, sales <-chan service.SaleEvent) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case sale, ok := <-sales:
			if !ok {
				return nil
			}
			if err := b.SendSale(ctx, sale); err != nil {
				logger(ctx).Error("failed to send sale alert", "error", err)
			}
		}
	}
}

func (b *TelegramBot) SendSale(ctx context.Context, sale service.SaleEvent) error {
	text := fmt.Sprintf(
		"💳 <b>Order paid</b>\n\n"+
			"🧾 <b>Order:</b> %s\n"+
			"📦 <b>Variant:</b> %s\n"+
			"🔢 <b>Quantity:</b> %d\n"+
			"💰 <b>Total:</b> %s",
		sale.OrderID,
		sale.VariantName,
		sale.Quantity,
		sale.TotalAmount.StringFixed(2),
	)

	msg := tu.Message(
		tu.ID(b.chatID),
		text,
	).WithParseMode(telego.ModeHTML)

	_, err := b.bot.SendMessage(ctx, msg)
	if err != nil {
		return fmt.Errorf("send message: %w", err)
	}

	return nil
}

// SendText отправляет простое текстовое сообщение.
func (b *TelegramBot) SendText(ctx context.Context, text string) error {
	msg := tu.Message(tu.ID(b.chatID), text)

	_, err := b.bot.SendMessage(ctx, msg)
	return err
}
