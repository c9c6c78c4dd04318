// Package analytics считает агрегаты дашборда по коллекции заказов.
// Все функции чистые: время передаётся явно.
package analytics

import (
	"math"
	"sort"
	"time"

	"github.com/psalsa30/unithrift/internal/domain"
)

const (
	// Window - длина текущего и предыдущего периодов сравнения.
	Window = 30 * 24 * time.Hour
	// DefaultRevenueDays - окно графика выручки по умолчанию.
	DefaultRevenueDays = 30

	dateLayout = "2006-01-02"
)

// DashboardStats - показатели за последние 30 дней и их изменение к предыдущим 30 дням, в процентах.
type DashboardStats struct {
	TotalRevenue  float64 `json:"totalRevenue"`
	RevenueChange float64 `json:"revenueChange"`
	TotalOrders   int     `json:"totalOrders"`
	OrdersChange  float64 `json:"ordersChange"`
	AvgOrderValue float64 `json:"avgOrderValue"`
	AvgChange     float64 `json:"avgChange"`
	ActiveUsers   int     `json:"activeUsers"`
	UsersChange   float64 `json:"usersChange"`
}

// RevenueSeries - выручка по дням; Dates и Revenues выровнены по индексу.
type RevenueSeries struct {
	Dates    []string  `json:"dates"`
	Revenues []float64 `json:"revenues"`
}

type periodTotals struct {
	revenue   float64
	orders    int
	customers map[string]struct{}
}

func (p periodTotals) average() float64 {
	if p.orders == 0 {
		return 0
	}
	return p.revenue / float64(p.orders)
}

func (p *periodTotals) add(o domain.Order) {
	p.revenue += o.Total
	p.orders++
	p.customers[o.CustomerKey()] = struct{}{}
}

// Summarize сравнивает период [now-30d, ∞) с периодом [now-60d, now-30d).
func Summarize(orders []domain.Order, now time.Time) DashboardStats {
	currentStart := now.Add(-Window)
	previousStart := now.Add(-2 * Window)

	current := periodTotals{customers: map[string]struct{}{}}
	previous := periodTotals{customers: map[string]struct{}{}}

	for _, o := range orders {
		if o.Date.IsZero() {
			continue
		}
		switch {
		case !o.Date.Before(currentStart):
			current.add(o)
		case !o.Date.Before(previousStart):
			previous.add(o)
		}
	}

	return DashboardStats{
		TotalRevenue:  current.revenue,
		RevenueChange: Change(current.revenue, previous.revenue),
		TotalOrders:   current.orders,
		OrdersChange:  Change(float64(current.orders), float64(previous.orders)),
		AvgOrderValue: current.average(),
		AvgChange:     Change(current.average(), previous.average()),
		ActiveUsers:   len(current.customers),
		UsersChange:   Change(float64(len(current.customers)), float64(len(previous.customers))),
	}
}

// Change - процентное изменение с точностью до десятых; 0, если базы для сравнения нет.
func Change(current, previous float64) float64 {
	if previous <= 0 {
		return 0
	}
	return math.Round((current-previous)/previous*100*10) / 10
}

// RevenueByDate группирует выручку за последние days дней по UTC-датам. Дни без заказов не выводятся.
func RevenueByDate(orders []domain.Order, now time.Time, days int) RevenueSeries {
	if days <= 0 {
		days = DefaultRevenueDays
	}
	cutoff := now.Add(-time.Duration(days) * 24 * time.Hour)

	byDate := make(map[string]float64)
	for _, o := range orders {
		if o.Date.IsZero() || o.Date.Before(cutoff) {
			continue
		}
		byDate[o.Date.UTC().Format(dateLayout)] += o.Total
	}

	series := RevenueSeries{
		Dates:    make([]string, 0, len(byDate)),
		Revenues: make([]float64, 0, len(byDate)),
	}
	for date := range byDate {
		series.Dates = append(series.Dates, date)
	}
	sort.Strings(series.Dates)
	for _, date := range series.Dates {
		series.Revenues = append(series.Revenues, byDate[date])
	}
	return series
}

// OrdersByCategory считает заказы по категориям за всё время.
func OrdersByCategory(orders []domain.Order) map[string]int {
	out := make(map[string]int)
	for _, o := range orders {
		out[o.CategoryOrDefault()]++
	}
	return out
}

// RevenueByCampus суммирует выручку по кампусам за всё время.
func RevenueByCampus(orders []domain.Order) map[string]float64 {
	out := make(map[string]float64)
	for _, o := range orders {
		out[o.CampusOrDefault()] += o.Total
	}
	return out
}

// PaymentMethods считает заказы по способам оплаты за всё время.
func PaymentMethods(orders []domain.Order) map[string]int {
	out := make(map[string]int)
	for _, o := range orders {
		out[o.PaymentMethodOrDefault()]++
	}
	return out
}
