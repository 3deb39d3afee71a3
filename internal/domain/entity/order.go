package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus int

// Числовые статусы совместимы с клиентским API.
// Промежуточный статус 2 зарезервирован и ядром не выставляется.
const (
	OrderStatusPendingPayment OrderStatus = 0
	OrderStatusPaid           OrderStatus = 1
	OrderStatusReserved       OrderStatus = 2
	OrderStatusRefunded       OrderStatus = 3
)

type PurchaseMode string

const (
	PurchaseModeRandom    PurchaseMode = "random"    // N любых доступных ключей
	PurchaseModeSelection PurchaseMode = "selection" // Конкретный ключ, с наценкой
)

// Order — заказ покупателя. Сумма фиксируется при создании и не пересчитывается.
type Order struct {
	ID            string          `json:"id"`
	VariantID     int64           `json:"variant_id"`
	Quantity      int             `json:"quantity"`
	UnitPrice     decimal.Decimal `json:"unit_price"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	Status        OrderStatus     `json:"status"`
	PurchaseMode  PurchaseMode    `json:"purchase_mode"`
	Contact       string          `json:"contact"`
	PaymentMethod string          `json:"payment_method"`
	QuerySecret   string          `json:"query_secret,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	PaidAt        *time.Time      `json:"paid_at,omitempty"`
}

func (o *Order) IsPending() bool {
	return o.Status == OrderStatusPendingPayment
}
