package domain

import (
	"encoding/json"
	"time"
)

// CheckoutInput - данные корзины, из которых строится заказ.
type CheckoutInput struct {
	Items         json.RawMessage `json:"items"`
	PaymentMethod string          `json:"paymentMethod"`
	Address       string          `json:"address"`
	Phone         string          `json:"phone"`
	Campus        string          `json:"campus"`
}

// UnmarshalJSON принимает тело корзины как есть: числовой phone становится строкой,
// тело, которое не является объектом, равносильно {}.
func (in *CheckoutInput) UnmarshalJSON(data []byte) error {
	*in = CheckoutInput{}

	fields := rawObject(data)
	if fields == nil {
		return nil
	}

	in.Items = fields["items"]
	in.PaymentMethod = stringField(rawScalar(fields["paymentMethod"]))
	in.Address = stringField(rawScalar(fields["address"]))
	in.Phone = stringField(rawScalar(fields["phone"]))
	in.Campus = stringField(rawScalar(fields["campus"]))
	return nil
}

// NewOrderFromCheckout строит полностью заполненный заказ в статусе confirmed.
// Некорректные позиции не отклоняются, а обнуляются.
func NewOrderFromCheckout(orderID string, in CheckoutInput, now time.Time) Order {
	items := DecodeLineItems(in.Items)

	var subtotal float64
	for _, item := range items {
		subtotal += item.LineTotal()
	}
	subtotal = finiteOrZero(subtotal)

	category := DefaultCategory
	if len(items) > 0 && items[0].Category != "" {
		category = items[0].Category
	}

	customer := in.Phone
	if customer == "" {
		customer = GuestCustomer
	}

	campus := in.Campus
	if campus == "" {
		campus = DefaultCampus
	}

	paymentMethod := in.PaymentMethod
	if paymentMethod == "" {
		paymentMethod = DefaultPaymentMethod
	}

	pickup := Pickup{EtaMins: PickupETAMinutes, Fee: PickupFee}
	createdAt := now.UTC().Truncate(time.Millisecond)

	return Order{
		OrderID:       orderID,
		Date:          createdAt,
		Customer:      customer,
		Phone:         in.Phone,
		Address:       in.Address,
		Items:         len(items),
		ItemDetails:   items,
		Category:      category,
		Campus:        campus,
		Subtotal:      subtotal,
		DeliveryFee:   pickup.Fee,
		Total:         finiteOrZero(subtotal + pickup.Fee),
		PaymentMethod: paymentMethod,
		Status:        OrderStatusConfirmed,
		Pickup:        pickup,
		CreatedAt:     createdAt,
	}
}
