package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/psalsa30/unithrift/internal/domain"
)

func counterValue(t *testing.T, c prometheus.Collector) float64 {
	t.Helper()

	ch := make(chan prometheus.Metric, 1)
	c.Collect(ch)
	close(ch)

	var total float64
	for m := range ch {
		var out dto.Metric
		if err := m.Write(&out); err != nil {
			t.Fatalf("write metric: %v", err)
		}
		total += out.GetCounter().GetValue()
	}
	return total
}

func TestOrderMetrics_BusinessCounters(t *testing.T) {
	m := NewOrderMetricsWithRegisterer(prometheus.NewRegistry())

	m.OrderCheckedOut(domain.Order{Total: 150})
	m.OrderCheckedOut(domain.Order{Total: 0})
	m.OrderStatusChanged(domain.OrderStatusConfirmed, domain.OrderStatusReady)
	m.OrderDeleted()

	if got := counterValue(t, m.checkouts); got != 2 {
		t.Fatalf("expected 2 checkouts, got %v", got)
	}
	if got := counterValue(t, m.revenueBooked); got != 150 {
		t.Fatalf("expected revenue 150, got %v", got)
	}
	if got := counterValue(t, m.transitions.WithLabelValues("confirmed", "ready")); got != 1 {
		t.Fatalf("expected one transition, got %v", got)
	}
	if got := counterValue(t, m.deletions); got != 1 {
		t.Fatalf("expected one deletion, got %v", got)
	}
}

func TestOrderMetrics_StoreAndHTTP(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewOrderMetricsWithRegisterer(reg)

	m.ObserveStore("load", time.Millisecond, nil)
	m.ObserveStore("save", 2*time.Millisecond, errors.New("disk full"))
	m.ObserveHTTPRequest("GET", "/api/orders", 200, 3*time.Millisecond)

	if got := counterValue(t, m.storeFailures.WithLabelValues("save")); got != 1 {
		t.Fatalf("expected one save failure, got %v", got)
	}
	if got := counterValue(t, m.httpRequests.WithLabelValues("GET", "/api/orders", "200")); got != 1 {
		t.Fatalf("expected one request, got %v", got)
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	names := map[string]bool{}
	for _, f := range families {
		names[f.GetName()] = true
	}
	for _, want := range []string{"unithrift_store_operation_duration_seconds", "unithrift_http_request_duration_seconds"} {
		if !names[want] {
			t.Fatalf("metric %s not gathered", want)
		}
	}
}

func TestNewOrderMetrics_ReusesRegisteredCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	first := NewOrderMetricsWithRegisterer(reg)
	second := NewOrderMetricsWithRegisterer(reg)

	first.OrderDeleted()
	if got := counterValue(t, second.deletions); got != 1 {
		t.Fatalf("expected shared collector, got %v", got)
	}
}
