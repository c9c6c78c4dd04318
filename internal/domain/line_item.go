package domain

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// LineItem - позиция заказа в том виде, в каком её прислала корзина.
// Цена и количество приводятся через ParseAmount, остальные поля необязательны.
type LineItem struct {
	ID       string  `json:"id,omitempty"`
	Name     string  `json:"name,omitempty"`
	Price    float64 `json:"price"`
	Qty      float64 `json:"qty"`
	Category string  `json:"category,omitempty"`
	Campus   string  `json:"campus,omitempty"`
	Image    string  `json:"image,omitempty"`
}

// LineTotal возвращает price * qty; переполнение до ±Inf даёт 0, как и для самих price/qty.
func (i LineItem) LineTotal() float64 {
	return finiteOrZero(i.Price * i.Qty)
}

func finiteOrZero(f float64) float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

// UnmarshalJSON декодирует позицию без отказов: что не похоже на объект, становится нулевой позицией,
// нечисловые price/qty становятся 0.
func (i *LineItem) UnmarshalJSON(data []byte) error {
	*i = LineItem{}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil || raw == nil {
		return nil
	}

	i.ID = stringField(raw["id"])
	i.Name = stringField(raw["name"])
	i.Category = stringField(raw["category"])
	i.Campus = stringField(raw["campus"])
	i.Image = stringField(raw["image"])
	i.Price = ParseAmount(raw["price"])
	i.Qty = ParseAmount(raw["qty"])
	return nil
}

// ParseAmount - политика мягкого приведения чисел: числа проходят как есть,
// строки разбираются после обрезки пробелов, bool даёт 1/0, всё остальное (а также NaN и ±Inf) даёт 0.
func ParseAmount(v any) float64 {
	var f float64
	switch x := v.(type) {
	case float64:
		f = x
	case float32:
		f = float64(x)
	case int:
		f = float64(x)
	case int64:
		f = float64(x)
	case json.Number:
		parsed, err := x.Float64()
		if err != nil {
			return 0
		}
		f = parsed
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return 0
		}
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0
		}
		f = parsed
	case bool:
		if x {
			return 1
		}
		return 0
	default:
		return 0
	}

	return finiteOrZero(f)
}

// DecodeLineItems разбирает поле items из тела checkout.
// Не-массив даёт пустой список, каждый элемент массива даёт ровно одну позицию.
func DecodeLineItems(raw json.RawMessage) []LineItem {
	items := make([]LineItem, 0)

	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return items
	}

	var elems []json.RawMessage
	if err := json.Unmarshal(trimmed, &elems); err != nil {
		return items
	}

	for _, elem := range elems {
		var item LineItem
		_ = item.UnmarshalJSON(elem)
		items = append(items, item)
	}
	return items
}

func stringField(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		return ""
	}
}
