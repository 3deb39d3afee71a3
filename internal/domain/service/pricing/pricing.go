package pricing

import (
	"github.com/shopspring/decimal"

	"cardshop/internal/domain/value"
)

// Resolve вычисляет цену за единицу. Чистая функция, без I/O.
//
// При выборе конкретного ключа (selection) цена — база плюс наценка,
// оптовые правила не применяются (количество уже принудительно равно 1).
// Иначе берётся первое оптовое правило с порогом <= quantity,
// при отсутствии подходящего — базовая цена.
func Resolve(
	base decimal.Decimal,
	markup decimal.Decimal,
	tiers value.WholesaleTiers,
	quantity int,
	selection bool,
) decimal.Decimal {
	if selection {
		return base.Add(markup)
	}

	if price, ok := tiers.PriceFor(quantity); ok {
		return price
	}

	return base
}

// Total — итоговая сумма заказа, фиксируется один раз при создании.
func Total(unitPrice decimal.Decimal, quantity int) decimal.Decimal {
	return unitPrice.Mul(decimal.NewFromInt(int64(quantity)))
}
