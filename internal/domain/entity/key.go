package entity

import "time"

type KeyStatus string

const (
	KeyStatusAvailable KeyStatus = "available"
	KeyStatusReserved  KeyStatus = "reserved"
	KeyStatusSold      KeyStatus = "sold"
)

// Key — единица продаваемого секрета (код доступа). Статусы монотонны:
// available → reserved → sold, либо reserved → available при освобождении.
// Из sold выхода нет.
type Key struct {
	ID        int64     `json:"id"`
	VariantID int64     `json:"variant_id"`
	Content   string    `json:"content"`
	Note      string    `json:"note,omitempty"`
	Status    KeyStatus `json:"status"`
	OrderID   *string   `json:"order_id,omitempty"` // Не nil только для reserved/sold
	UpdatedAt time.Time `json:"updated_at"`
}
