// Данный файл должен быть сгенерирован из openapi спецификации и называться types.gen.go
package rest

type CreateOrderRequest struct {
	VariantID     int64  `json:"variant_id" validate:"required"`
	Quantity      int    `json:"quantity" validate:"required,min=1"`
	Contact       string `json:"contact" validate:"required"`
	PaymentMethod string `json:"payment_method" validate:"required"`
	KeyID         *int64 `json:"key_id,omitempty"`
	QuerySecret   string `json:"query_secret,omitempty"`
}

type CreateOrderResponse struct {
	OrderID     string `json:"order_id"`
	TotalAmount string `json:"total_amount"`
}

type PaymentInstructionResponse struct {
	ChannelType string `json:"channel_type"`
	Reference   string `json:"reference"`
	OrderID     string `json:"order_id"`
}

type OrderStatusResponse struct {
	// Status: 0 ожидает оплаты, 1 оплачен, 2 промежуточный, 3 возврат
	Status int `json:"status"`
}

type PaymentStatusResponse struct {
	OrderID string `json:"order_id"`
	Status  int    `json:"status"`
}

type OrderKey struct {
	Content string `json:"content"`
	Note    string `json:"note,omitempty"`
}

type OrderKeysResponse struct {
	OrderID string     `json:"order_id"`
	Keys    []OrderKey `json:"keys"`
}

type VariantResponse struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Price     string `json:"price"`
	Available int    `json:"available"`
}

// Error Модель ошибок
type Error struct {
	// Code Код ошибки
	Code ErrorCode `json:"code"`

	// Message Сообщение об ошибке (для отображения в UI в будущем)
	Message string `json:"message"`
}

// ErrorCode Код ошибки
type ErrorCode string
