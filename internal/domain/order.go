package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// OrderStatus описывает жизненный цикл заказа на кампусе.
type OrderStatus string

const (
	// OrderStatusConfirmed - заказ принят при checkout, начальный статус.
	OrderStatusConfirmed OrderStatus = "confirmed"
	// OrderStatusPreparing - продавец собирает заказ.
	OrderStatusPreparing OrderStatus = "preparing"
	// OrderStatusReady - заказ ждёт покупателя в точке самовывоза.
	OrderStatusReady OrderStatus = "ready"
	// OrderStatusCompleted - заказ выдан.
	OrderStatusCompleted OrderStatus = "completed"
	// OrderStatusCancelled - заказ отменён.
	OrderStatusCancelled OrderStatus = "cancelled"
)

const (
	// OrderIDPrefix - префикс идентификатора заказа, за ним следуют unix-миллисекунды.
	OrderIDPrefix = "ORD-"
	// GuestCustomer подставляется, если покупатель не оставил телефон.
	GuestCustomer = "guest@unithrift.com"
	// DefaultCampus - кампус по умолчанию.
	DefaultCampus = "ADMU"
	// DefaultCategory - категория заказа без позиций или без категории у первой позиции.
	DefaultCategory = "Other"
	// DefaultPaymentMethod - способ оплаты по умолчанию.
	DefaultPaymentMethod = "cash"
	// PickupETAMinutes - ожидаемое время готовности к самовывозу.
	PickupETAMinutes = 15
	// PickupFee - стоимость самовывоза, входит в deliveryFee.
	PickupFee = 0.0
)

// AllStatuses возвращает допустимые статусы в порядке жизненного цикла.
func AllStatuses() []OrderStatus {
	return []OrderStatus{
		OrderStatusConfirmed,
		OrderStatusPreparing,
		OrderStatusReady,
		OrderStatusCompleted,
		OrderStatusCancelled,
	}
}

// Valid сообщает, входит ли статус в фиксированный набор.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusConfirmed, OrderStatusPreparing, OrderStatusReady, OrderStatusCompleted, OrderStatusCancelled:
		return true
	default:
		return false
	}
}

// ParseOrderStatus проверяет строку статуса без нормализации регистра.
// Ошибка перечисляет допустимые значения.
func ParseOrderStatus(raw string) (OrderStatus, error) {
	status := OrderStatus(raw)
	if !status.Valid() {
		allowed := make([]string, 0, len(AllStatuses()))
		for _, s := range AllStatuses() {
			allowed = append(allowed, string(s))
		}
		return "", fmt.Errorf("%w %q, expected one of: %s", ErrInvalidStatus, raw, strings.Join(allowed, ", "))
	}
	return status, nil
}

// Pickup описывает условия самовывоза.
type Pickup struct {
	EtaMins int     `json:"etaMins"`
	Fee     float64 `json:"fee"`
}

// Order - запись в журнале заказов. Имена JSON-полей совпадают с форматом orders.json.
type Order struct {
	OrderID       string      `json:"orderId"`
	Date          time.Time   `json:"date"`
	Customer      string      `json:"customer"`
	Phone         string      `json:"phone"`
	Address       string      `json:"address"`
	Items         int         `json:"items"`
	ItemDetails   []LineItem  `json:"itemDetails"`
	Category      string      `json:"category"`
	Campus        string      `json:"campus"`
	Subtotal      float64     `json:"subtotal"`
	DeliveryFee   float64     `json:"deliveryFee"`
	Total         float64     `json:"total"`
	PaymentMethod string      `json:"paymentMethod"`
	Status        OrderStatus `json:"status"`
	Pickup        Pickup      `json:"pickup"`
	CreatedAt     time.Time   `json:"createdAt"`
	UpdatedAt     *time.Time  `json:"updatedAt,omitempty"`
}

// FormatOrderID собирает идентификатор из unix-миллисекунд.
func FormatOrderID(unixMillis int64) string {
	return OrderIDPrefix + strconv.FormatInt(unixMillis, 10)
}

// CustomerKey - ключ уникального покупателя для аналитики: customer, иначе phone.
func (o Order) CustomerKey() string {
	if o.Customer != "" {
		return o.Customer
	}
	return o.Phone
}

// CategoryOrDefault возвращает категорию заказа или "Other".
func (o Order) CategoryOrDefault() string {
	if o.Category == "" {
		return DefaultCategory
	}
	return o.Category
}

// CampusOrDefault возвращает кампус заказа или кампус по умолчанию.
func (o Order) CampusOrDefault() string {
	if o.Campus == "" {
		return DefaultCampus
	}
	return o.Campus
}

// PaymentMethodOrDefault возвращает способ оплаты или "cash".
func (o Order) PaymentMethodOrDefault() string {
	if o.PaymentMethod == "" {
		return DefaultPaymentMethod
	}
	return o.PaymentMethod
}

// Clone возвращает глубокую копию заказа: срез позиций и указатель updatedAt не разделяются.
func (o Order) Clone() Order {
	out := o
	if o.ItemDetails != nil {
		out.ItemDetails = make([]LineItem, len(o.ItemDetails))
		copy(out.ItemDetails, o.ItemDetails)
	}
	if o.UpdatedAt != nil {
		ts := *o.UpdatedAt
		out.UpdatedAt = &ts
	}
	return out
}

// CloneOrders копирует коллекцию заказов; nil превращается в пустой срез.
func CloneOrders(orders []Order) []Order {
	out := make([]Order, len(orders))
	for i := range orders {
		out[i] = orders[i].Clone()
	}
	return out
}

// ValidateInvariants проверяет производные поля заказа и возвращает список замечаний.
func (o *Order) ValidateInvariants() []error {
	var errs []error

	if o.OrderID == "" {
		errs = append(errs, ErrOrderIDRequired)
	}
	if !o.Status.Valid() {
		errs = append(errs, ErrInvalidStatus)
	}
	if o.Items != len(o.ItemDetails) {
		errs = append(errs, ErrItemsCountMismatch)
	}

	var subtotal float64
	for _, item := range o.ItemDetails {
		subtotal += item.LineTotal()
	}
	if !amountsEqual(subtotal, o.Subtotal) {
		errs = append(errs, ErrSubtotalMismatch)
	}
	if !amountsEqual(o.Subtotal+o.DeliveryFee, o.Total) {
		errs = append(errs, ErrTotalMismatch)
	}

	return errs
}

func amountsEqual(a, b float64) bool {
	const epsilon = 1e-9
	diff := a - b
	return diff < epsilon && diff > -epsilon
}
