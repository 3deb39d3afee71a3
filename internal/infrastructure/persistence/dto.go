package persistence

import (
	"time"

	"github.com/shopspring/decimal"

	"cardshop/internal/domain/entity"
	"cardshop/internal/domain/value"
)

// variantSchema — внутренняя структура для маппинга строки БД.
type variantSchema struct {
	ID              int64           `db:"id"`
	ProductID       int64           `db:"product_id"`
	Name            string          `db:"name"`
	Price           decimal.Decimal `db:"price"`
	CustomMarkup    decimal.Decimal `db:"custom_markup"`
	WholesaleConfig []byte          `db:"wholesale_config"`
	UpdatedAt       time.Time       `db:"updated_at"`
}

// toDomain разбирает оптовый конфиг лениво-терпимо: нечитаемый блоб
// даёт вариант без оптовых цен, ok=false остаётся на совести вызывающего (лог).
func (s *variantSchema) toDomain() (*entity.Variant, bool) {
	tiers, ok := value.ParseWholesaleTiers(s.WholesaleConfig)

	return &entity.Variant{
		ID:           s.ID,
		ProductID:    s.ProductID,
		Name:         s.Name,
		Price:        s.Price,
		CustomMarkup: s.CustomMarkup,
		Wholesale:    tiers,
		UpdatedAt:    s.UpdatedAt,
	}, ok
}

type keySchema struct {
	ID        int64     `db:"id"`
	VariantID int64     `db:"variant_id"`
	Content   string    `db:"content"`
	Note      string    `db:"note"`
	Status    string    `db:"status"`
	OrderID   *string   `db:"order_id"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (s *keySchema) toDomain() *entity.Key {
	return &entity.Key{
		ID:        s.ID,
		VariantID: s.VariantID,
		Content:   s.Content,
		Note:      s.Note,
		Status:    entity.KeyStatus(s.Status),
		OrderID:   s.OrderID,
		UpdatedAt: s.UpdatedAt,
	}
}

type orderSchema struct {
	ID            string          `db:"id"`
	VariantID     int64           `db:"variant_id"`
	Quantity      int             `db:"quantity"`
	UnitPrice     decimal.Decimal `db:"unit_price"`
	TotalAmount   decimal.Decimal `db:"total_amount"`
	Status        int             `db:"status"`
	PurchaseMode  string          `db:"purchase_mode"`
	Contact       string          `db:"contact"`
	PaymentMethod string          `db:"payment_method"`
	QuerySecret   string          `db:"query_secret"`
	CreatedAt     time.Time       `db:"created_at"`
	PaidAt        *time.Time      `db:"paid_at"`
}

func (s *orderSchema) toDomain() *entity.Order {
	return &entity.Order{
		ID:            s.ID,
		VariantID:     s.VariantID,
		Quantity:      s.Quantity,
		UnitPrice:     s.UnitPrice,
		TotalAmount:   s.TotalAmount,
		Status:        entity.OrderStatus(s.Status),
		PurchaseMode:  entity.PurchaseMode(s.PurchaseMode),
		Contact:       s.Contact,
		PaymentMethod: s.PaymentMethod,
		QuerySecret:   s.QuerySecret,
		CreatedAt:     s.CreatedAt,
		PaidAt:        s.PaidAt,
	}
}

func fromOrder(o *entity.Order) *orderSchema {
	return &orderSchema{
		ID:            o.ID,
		VariantID:     o.VariantID,
		Quantity:      o.Quantity,
		UnitPrice:     o.UnitPrice,
		TotalAmount:   o.TotalAmount,
		Status:        int(o.Status),
		PurchaseMode:  string(o.PurchaseMode),
		Contact:       o.Contact,
		PaymentMethod: o.PaymentMethod,
		QuerySecret:   o.QuerySecret,
		CreatedAt:     o.CreatedAt,
		PaidAt:        o.PaidAt,
	}
}
