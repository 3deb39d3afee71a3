package server

import (
	"cardshop/internal/domain/entity"
	service "cardshop/internal/domain/service/order"
	"cardshop/pkg/lox"
	"cardshop/pkg/rest"
)

func newCreateOrderInput(request rest.CreateOrderRequest) service.CreateOrderInput {
	return service.CreateOrderInput{
		VariantID:     request.VariantID,
		Quantity:      request.Quantity,
		Contact:       request.Contact,
		PaymentMethod: request.PaymentMethod,
		KeyID:         request.KeyID,
		QuerySecret:   request.QuerySecret,
	}
}

func newRESTOrder(order *entity.Order) rest.CreateOrderResponse {
	return rest.CreateOrderResponse{
		OrderID:     order.ID,
		TotalAmount: order.TotalAmount.StringFixed(2),
	}
}

func newRESTPaymentInstruction(instruction service.PaymentInstruction) rest.PaymentInstructionResponse {
	return rest.PaymentInstructionResponse{
		ChannelType: instruction.ChannelType,
		Reference:   instruction.Reference,
		OrderID:     instruction.OrderID,
	}
}

func newRESTOrderKeys(orderID string, keys []entity.Key) rest.OrderKeysResponse {
	return rest.OrderKeysResponse{
		OrderID: orderID,
		Keys: lox.Map(keys, func(key entity.Key) rest.OrderKey {
			return rest.OrderKey{
				Content: key.Content,
				Note:    key.Note,
			}
		}),
	}
}

func newRESTVariant(variant *entity.Variant, available int) rest.VariantResponse {
	return rest.VariantResponse{
		ID:        variant.ID,
		Name:      variant.Name,
		Price:     variant.Price.StringFixed(2),
		Available: available,
	}
}

func newRESTVariants(cards []service.VariantCard) []rest.VariantResponse {
	return lox.Map(cards, func(card service.VariantCard) rest.VariantResponse {
		return newRESTVariant(&card.Variant, card.Available)
	})
}
