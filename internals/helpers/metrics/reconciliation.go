// Package metrics berisi counter Prometheus untuk alur checkout & rekonsiliasi.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "courseku"

// Reconciliation: semua method aman dipanggil pada receiver nil.
type Reconciliation struct {
	checkout        *prometheus.CounterVec
	reconcile       *prometheus.CounterVec
	enrollments     *prometheus.CounterVec
	gatewayDuration *prometheus.HistogramVec
}

func NewReconciliation(reg prometheus.Registerer) (*Reconciliation, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Reconciliation{
		checkout: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkout_total",
			Help:      "Hasil checkout (free, payment_required, already_enrolled, rejected, error).",
		}, []string{"result"}),
		reconcile: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconcile_total",
			Help:      "Hasil rekonsiliasi per pintu masuk (callback, reverify, notification, sweep).",
		}, []string{"entry", "outcome"}),
		enrollments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "enrollments_created_total",
			Help:      "Enrollment baru yang benar-benar ter-insert.",
		}, []string{"source"}),
		gatewayDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "gateway_duration_seconds",
			Help:      "Latensi panggilan ke payment gateway.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op", "provider"}),
	}

	var err error
	if m.checkout, err = registerCounterVec(reg, m.checkout); err != nil {
		return nil, err
	}
	if m.reconcile, err = registerCounterVec(reg, m.reconcile); err != nil {
		return nil, err
	}
	if m.enrollments, err = registerCounterVec(reg, m.enrollments); err != nil {
		return nil, err
	}
	if err := reg.Register(m.gatewayDuration); err != nil {
		are, ok := err.(prometheus.AlreadyRegisteredError)
		if !ok {
			return nil, fmt.Errorf("register gateway histogram: %w", err)
		}
		existing, ok := are.ExistingCollector.(*prometheus.HistogramVec)
		if !ok {
			return nil, fmt.Errorf("register gateway histogram: %w", err)
		}
		m.gatewayDuration = existing
	}
	return m, nil
}

// registerCounterVec: kalau sudah terdaftar (mis. init ulang di test), pakai yang lama.
func registerCounterVec(reg prometheus.Registerer, c *prometheus.CounterVec) (*prometheus.CounterVec, error) {
	if err := reg.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
		}
		return nil, fmt.Errorf("register counter: %w", err)
	}
	return c, nil
}

func (m *Reconciliation) Checkout(result string) {
	if m == nil {
		return
	}
	m.checkout.WithLabelValues(result).Inc()
}

func (m *Reconciliation) Reconcile(entry, outcome string) {
	if m == nil {
		return
	}
	m.reconcile.WithLabelValues(entry, outcome).Inc()
}

func (m *Reconciliation) EnrollmentCreated(source string) {
	if m == nil {
		return
	}
	m.enrollments.WithLabelValues(source).Inc()
}

func (m *Reconciliation) ObserveGateway(op, provider string, started time.Time) {
	if m == nil {
		return
	}
	m.gatewayDuration.WithLabelValues(op, provider).Observe(time.Since(started).Seconds())
}
