package engine

import (
	"strings"
	"time"

	"github.com/psalsa30/unithrift/internal/domain"
)

// filterAll - значение фильтра, равносильное его отсутствию.
const filterAll = "all"

var boundLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// Criteria - условия выборки; пустое значение или "all" отключает условие.
type Criteria struct {
	Campus   string `form:"campus"`
	Category string `form:"category"`
	Status   string `form:"status"`
	DateFrom string `form:"dateFrom"`
	DateTo   string `form:"dateTo"`
}

// FilterOrders применяет все условия одновременно и сохраняет исходный порядок.
// Нераспознанная граница даты не совпадает ни с одним заказом, и результат пуст.
func FilterOrders(orders []domain.Order, c Criteria) []domain.Order {
	from, fromSet, fromOK := parseBound(c.DateFrom)
	to, toSet, toOK := parseBound(c.DateTo)

	out := make([]domain.Order, 0, len(orders))
	for _, o := range orders {
		if !matchesField(c.Campus, o.Campus) ||
			!matchesField(c.Category, o.Category) ||
			!matchesField(c.Status, string(o.Status)) {
			continue
		}
		if fromSet && (!fromOK || o.Date.IsZero() || o.Date.Before(from)) {
			continue
		}
		if toSet && (!toOK || o.Date.IsZero() || o.Date.After(to)) {
			continue
		}
		out = append(out, o)
	}
	return out
}

func matchesField(want, got string) bool {
	if want == "" || want == filterAll {
		return true
	}
	return want == got
}

// parseBound возвращает (время, задана ли граница, распознана ли граница).
// Дата без зоны трактуется как UTC.
func parseBound(raw string) (time.Time, bool, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false, false
	}
	for _, layout := range boundLayouts {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts, true, true
		}
	}
	return time.Time{}, true, false
}
