package entity

import (
	"time"

	"github.com/shopspring/decimal"

	"cardshop/internal/domain/value"
)

// Variant — покупаемая конфигурация товара со своей ценой и правилами скидок.
type Variant struct {
	ID           int64                `json:"id"`
	ProductID    int64                `json:"product_id"`
	Name         string               `json:"name"`
	Price        decimal.Decimal      `json:"price"`
	CustomMarkup decimal.Decimal      `json:"custom_markup"` // Наценка за выбор конкретного ключа
	Wholesale    value.WholesaleTiers `json:"wholesale,omitempty"`
	UpdatedAt    time.Time            `json:"updated_at"`
}
