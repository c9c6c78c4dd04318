package domain_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/psalsa30/unithrift/internal/domain"
)

func TestOrderUnmarshal_CoercesMixedTypes(t *testing.T) {
	raw := `{
		"orderId": "ORD-2",
		"date": "2025-02-01T08:00:00.000Z",
		"customer": 9171234567,
		"phone": 9171234567,
		"address": null,
		"items": "1",
		"itemDetails": [{"id":"s-201","price":"180","qty":1}],
		"category": "School Supplies",
		"campus": "UPD",
		"subtotal": "180",
		"deliveryFee": null,
		"total": 180,
		"paymentMethod": 1,
		"status": "ready",
		"pickup": {"etaMins": "15", "fee": 0},
		"createdAt": 1738396800000,
		"updatedAt": "not a date"
	}`

	var order domain.Order
	if err := json.Unmarshal([]byte(raw), &order); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if order.OrderID != "ORD-2" || order.Phone != "9171234567" || order.Customer != "9171234567" {
		t.Fatalf("string fields not coerced: %+v", order)
	}
	if order.PaymentMethod != "1" || order.Address != "" {
		t.Fatalf("unexpected paymentMethod/address %q/%q", order.PaymentMethod, order.Address)
	}
	if order.Items != 1 || len(order.ItemDetails) != 1 || order.ItemDetails[0].Price != 180 {
		t.Fatalf("unexpected items %d / %+v", order.Items, order.ItemDetails)
	}
	if order.Subtotal != 180 || order.DeliveryFee != 0 || order.Total != 180 {
		t.Fatalf("unexpected amounts %+v", order)
	}
	if order.Status != domain.OrderStatusReady {
		t.Fatalf("expected ready, got %s", order.Status)
	}
	if order.Pickup != (domain.Pickup{EtaMins: 15, Fee: 0}) {
		t.Fatalf("unexpected pickup %+v", order.Pickup)
	}
	if !order.Date.Equal(time.Date(2025, 2, 1, 8, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected date %v", order.Date)
	}
	if !order.CreatedAt.Equal(time.UnixMilli(1738396800000)) {
		t.Fatalf("unexpected createdAt %v", order.CreatedAt)
	}
	if order.UpdatedAt != nil {
		t.Fatalf("unparseable updatedAt must stay unset, got %v", order.UpdatedAt)
	}
}

func TestOrderUnmarshal_RoundTripsEncodedOrder(t *testing.T) {
	updated := time.Date(2025, 2, 2, 10, 0, 0, 0, time.UTC)
	want := domain.NewOrderFromCheckout("ORD-5", domain.CheckoutInput{
		Items: json.RawMessage(`[{"id":"b-101","price":120,"qty":1,"category":"Books"}]`),
		Phone: "0917",
	}, checkoutNow)
	want.Status = domain.OrderStatusCompleted
	want.UpdatedAt = &updated

	data, err := json.Marshal(want)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var got domain.Order
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if got.OrderID != want.OrderID || got.Total != want.Total || got.Status != want.Status || got.Customer != want.Customer {
		t.Fatalf("round trip changed order: %+v", got)
	}
	if !got.CreatedAt.Equal(want.CreatedAt) || got.UpdatedAt == nil || !got.UpdatedAt.Equal(updated) {
		t.Fatalf("timestamps changed: %v / %v", got.CreatedAt, got.UpdatedAt)
	}
	if len(got.ItemDetails) != 1 || got.ItemDetails[0] != want.ItemDetails[0] {
		t.Fatalf("line items changed: %+v", got.ItemDetails)
	}
}

func TestOrderUnmarshal_NonObjectIsEmpty(t *testing.T) {
	var orders []domain.Order
	if err := json.Unmarshal([]byte(`[{"orderId":"ORD-1"}, "junk", 7]`), &orders); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(orders) != 3 || orders[0].OrderID != "ORD-1" || orders[1].OrderID != "" {
		t.Fatalf("unexpected orders %+v", orders)
	}
}
