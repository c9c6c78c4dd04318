package domain

import "errors"

var (
	// ErrOrderNotFound возвращается, если заказа с таким orderId нет в журнале.
	ErrOrderNotFound = errors.New("order not found")
	// ErrInvalidStatus - статус не входит в фиксированный набор.
	ErrInvalidStatus = errors.New("invalid status")
	// ErrInvalidInput - прочие некорректные входные данные (например, параметры запроса).
	ErrInvalidInput = errors.New("invalid input")
	// ErrPersistence - хранилище не смогло прочитать или записать коллекцию.
	ErrPersistence = errors.New("persistence failure")
	// Ошибка отсутствующего идентификатора заказа.
	ErrOrderIDRequired = errors.New("orderId is required")
	// Ошибка расхождения items и количества позиций.
	ErrItemsCountMismatch = errors.New("items does not match itemDetails length")
	// Ошибка расхождения subtotal и суммы позиций.
	ErrSubtotalMismatch = errors.New("subtotal does not match line items sum")
	// Ошибка расхождения total и subtotal + deliveryFee.
	ErrTotalMismatch = errors.New("total does not match subtotal plus delivery fee")
)

// ErrorKind - категория ошибки для транспортного слоя.
type ErrorKind string

const (
	KindNotFound     ErrorKind = "not_found"
	KindInvalidInput ErrorKind = "invalid_input"
	KindPersistence  ErrorKind = "persistence"
	KindInternal     ErrorKind = "internal"
)

// KindOf сопоставляет ошибку с её категорией.
func KindOf(err error) ErrorKind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrOrderNotFound):
		return KindNotFound
	case errors.Is(err, ErrInvalidStatus), errors.Is(err, ErrInvalidInput):
		return KindInvalidInput
	case errors.Is(err, ErrPersistence):
		return KindPersistence
	default:
		return KindInternal
	}
}
