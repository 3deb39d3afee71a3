package errcodes

import "git.appkode.ru/pub/go/failure"

const (
	InternalServerError failure.ErrorCode = "InternalServerError"
	TimeoutExceeded     failure.ErrorCode = "TimeoutExceeded"
	Forbidden           failure.ErrorCode = "Forbidden"
	ValidationError     failure.ErrorCode = "ValidationError"
	NotFound            failure.ErrorCode = "NotFound"
	InvalidPaging       failure.ErrorCode = "InvalidPaging"

	// Коды для магазина ключей
	VariantNotFound   failure.ErrorCode = "VariantNotFound"   // Вариант товара не существует
	OrderNotFound     failure.ErrorCode = "OrderNotFound"     // Заказ не существует
	KeyNotFound       failure.ErrorCode = "KeyNotFound"       // Ключ не существует
	KeyUnavailable    failure.ErrorCode = "KeyUnavailable"    // Ключ уже занят другим заказом
	OutOfStock        failure.ErrorCode = "OutOfStock"        // Предварительная проверка остатка не прошла
	InsufficientStock failure.ErrorCode = "InsufficientStock" // Остатка не хватило в момент подтверждения
	InvalidQuantity   failure.ErrorCode = "InvalidQuantity"   // Количество некорректно (например >1 при выборе ключа)
	InvalidOrderState failure.ErrorCode = "InvalidOrderState" // Действие не применимо в текущем статусе заказа
	InvalidVariantID  failure.ErrorCode = "InvalidVariantID"
	InvalidOrderID    failure.ErrorCode = "InvalidOrderID"
)
