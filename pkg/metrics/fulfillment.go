package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// FulfillmentMetrics records order lifecycle activity.
type FulfillmentMetrics struct {
	transitions   *prometheus.CounterVec
	rejections    *prometheus.CounterVec
	otpFailures   prometheus.Counter
	deliveryTime  prometheus.Histogram
	notifications *prometheus.CounterVec
}

// NewFulfillmentMetrics registers the order fulfillment metrics on the provided registerer.
func NewFulfillmentMetrics(reg prometheus.Registerer) *FulfillmentMetrics {
	if reg == nil {
		return &FulfillmentMetrics{}
	}
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "order_status_transitions",
		Help: "Applied order status transitions by axis and target status.",
	}, []string{"axis", "to"})
	rejections := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "order_status_rejections",
		Help: "Rejected order status transitions by axis.",
	}, []string{"axis"})
	otpFailures := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "handoff_otp_failures",
		Help: "Pickup code verifications that did not match.",
	})
	deliveryTime := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "order_delivery_seconds",
		Help:    "Time from order placement to delivery in seconds.",
		Buckets: prometheus.ExponentialBuckets(60, 2, 12),
	})
	notifications := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "notification_pushes",
		Help: "Notification push attempts by outcome.",
	}, []string{"outcome"})
	reg.MustRegister(transitions, rejections, otpFailures, deliveryTime, notifications)
	return &FulfillmentMetrics{
		transitions:   transitions,
		rejections:    rejections,
		otpFailures:   otpFailures,
		deliveryTime:  deliveryTime,
		notifications: notifications,
	}
}

// ObserveTransition records an applied transition on the given axis.
func (m *FulfillmentMetrics) ObserveTransition(axis, to string) {
	if m == nil || m.transitions == nil {
		return
	}
	m.transitions.WithLabelValues(normalizeLabel(axis), normalizeLabel(to)).Inc()
}

// ObserveRejection records a disallowed transition attempt on the given axis.
func (m *FulfillmentMetrics) ObserveRejection(axis string) {
	if m == nil || m.rejections == nil {
		return
	}
	m.rejections.WithLabelValues(normalizeLabel(axis)).Inc()
}

// ObserveOTPFailure records a rejected pickup code.
func (m *FulfillmentMetrics) ObserveOTPFailure() {
	if m == nil || m.otpFailures == nil {
		return
	}
	m.otpFailures.Inc()
}

// ObserveDeliveryTime records the placement-to-delivery duration.
func (m *FulfillmentMetrics) ObserveDeliveryTime(elapsed time.Duration) {
	if m == nil || m.deliveryTime == nil {
		return
	}
	m.deliveryTime.Observe(elapsed.Seconds())
}

// ObserveNotification records a push attempt outcome, "delivered" or "dropped".
func (m *FulfillmentMetrics) ObserveNotification(outcome string) {
	if m == nil || m.notifications == nil {
		return
	}
	m.notifications.WithLabelValues(normalizeLabel(outcome)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
