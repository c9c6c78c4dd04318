package domain

import (
	"encoding/json"
	"strings"
	"time"
)

// UnmarshalJSON читает запись журнала без отказов по типам полей.
// Строковые поля принимают и числа, суммы и items проходят через ParseAmount,
// нераспознанные даты становятся нулевыми. Запись, которая не является объектом, даёт пустой заказ.
func (o *Order) UnmarshalJSON(data []byte) error {
	*o = Order{}

	fields := rawObject(data)
	if fields == nil {
		return nil
	}

	o.OrderID = stringField(rawScalar(fields["orderId"]))
	o.Date = timeField(rawScalar(fields["date"]))
	o.Customer = stringField(rawScalar(fields["customer"]))
	o.Phone = stringField(rawScalar(fields["phone"]))
	o.Address = stringField(rawScalar(fields["address"]))
	o.Items = int(ParseAmount(rawScalar(fields["items"])))
	if details := fields["itemDetails"]; len(details) > 0 && string(details) != "null" {
		o.ItemDetails = DecodeLineItems(details)
	}
	o.Category = stringField(rawScalar(fields["category"]))
	o.Campus = stringField(rawScalar(fields["campus"]))
	o.Subtotal = ParseAmount(rawScalar(fields["subtotal"]))
	o.DeliveryFee = ParseAmount(rawScalar(fields["deliveryFee"]))
	o.Total = ParseAmount(rawScalar(fields["total"]))
	o.PaymentMethod = stringField(rawScalar(fields["paymentMethod"]))
	o.Status = OrderStatus(stringField(rawScalar(fields["status"])))
	o.CreatedAt = timeField(rawScalar(fields["createdAt"]))

	if updated := timeField(rawScalar(fields["updatedAt"])); !updated.IsZero() {
		o.UpdatedAt = &updated
	}

	if pickup := rawObject(fields["pickup"]); pickup != nil {
		o.Pickup = Pickup{
			EtaMins: int(ParseAmount(rawScalar(pickup["etaMins"]))),
			Fee:     ParseAmount(rawScalar(pickup["fee"])),
		}
	}
	return nil
}

// rawObject возвращает поля JSON-объекта или nil, если на входе не объект.
func rawObject(data []byte) map[string]json.RawMessage {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil
	}
	return fields
}

func rawScalar(data json.RawMessage) any {
	if len(data) == 0 {
		return nil
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil
	}
	return v
}

// timeField понимает ISO-строку и unix-миллисекунды.
func timeField(v any) time.Time {
	switch x := v.(type) {
	case string:
		ts, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(x))
		if err != nil {
			return time.Time{}
		}
		return ts.UTC()
	case float64:
		return time.UnixMilli(int64(x)).UTC()
	default:
		return time.Time{}
	}
}
