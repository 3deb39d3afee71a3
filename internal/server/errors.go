package server

import (
	"errors"

	"git.appkode.ru/pub/go/failure"

	"cardshop/internal/domain"
	"cardshop/pkg/errcodes"
)

// mapDomainError переводит доменную AppError в failure-ошибку,
// которую pkg/httpx/reply умеет превращать в HTTP статус.
func mapDomainError(err error) error {
	var appErr *domain.AppError
	if !errors.As(err, &appErr) {
		return err
	}

	switch appErr.Code {
	case errcodes.NotFound, errcodes.VariantNotFound, errcodes.OrderNotFound, errcodes.KeyNotFound:
		return failure.NewNotFoundError(
			appErr.Error(),
			failure.WithCode(appErr.Code),
			failure.WithDescription(appErr.Message),
		)

	case errcodes.ValidationError, errcodes.InvalidQuantity, errcodes.OutOfStock,
		errcodes.InvalidVariantID, errcodes.InvalidOrderID:
		return failure.NewInvalidArgumentError(
			appErr.Error(),
			failure.WithCode(appErr.Code),
			failure.WithDescription(appErr.Message),
		)

	case errcodes.KeyUnavailable:
		return failure.NewConflictError(
			appErr.Error(),
			failure.WithCode(appErr.Code),
			failure.WithDescription(appErr.Message),
		)

	case errcodes.InvalidOrderState, errcodes.InsufficientStock:
		return failure.NewUnprocessableEntityError(
			appErr.Error(),
			failure.WithCode(appErr.Code),
			failure.WithDescription(appErr.Message),
		)

	default:
		return err
	}
}
