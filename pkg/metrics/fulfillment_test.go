package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestFulfillmentMetricsCounts(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewFulfillmentMetrics(reg)

	m.ObserveTransition("customer", "order_confirmed")
	m.ObserveTransition("customer", "order_confirmed")
	m.ObserveRejection("delivery")
	m.ObserveOTPFailure()
	m.ObserveNotification("delivered")
	m.ObserveNotification("dropped")
	m.ObserveDeliveryTime(45 * time.Minute)

	require.Equal(t, float64(2), testutil.ToFloat64(m.transitions.WithLabelValues("customer", "order_confirmed")))
	require.Equal(t, float64(1), testutil.ToFloat64(m.rejections.WithLabelValues("delivery")))
	require.Equal(t, float64(1), testutil.ToFloat64(m.otpFailures))
	require.Equal(t, float64(1), testutil.ToFloat64(m.notifications.WithLabelValues("dropped")))
}

func TestFulfillmentMetricsNilSafe(t *testing.T) {
	var m *FulfillmentMetrics
	require.NotPanics(t, func() {
		m.ObserveTransition("customer", "delivered")
		m.ObserveRejection("customer")
		m.ObserveOTPFailure()
		m.ObserveNotification("delivered")
		m.ObserveDeliveryTime(time.Second)
	})

	empty := NewFulfillmentMetrics(nil)
	require.NotPanics(t, func() {
		empty.ObserveTransition("customer", "delivered")
	})
}
