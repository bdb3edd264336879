package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// チェックアウト・返金・webhookのカウンタ。
type ShopMetrics struct {
	Checkouts     *prometheus.CounterVec
	Refunds       *prometheus.CounterVec
	WebhookEvents *prometheus.CounterVec
}

func NewShopMetrics() *ShopMetrics {
	checkouts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "shop",
		Name:      "checkouts_total",
		Help:      "Total number of checkout attempts.",
	}, []string{"result"})
	refunds := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "shop",
		Name:      "refunds_total",
		Help:      "Total number of refund requests.",
	}, []string{"result"})
	webhookEvents := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "shop",
		Name:      "webhook_events_total",
		Help:      "Total number of payment gateway webhook events.",
	}, []string{"type"})

	prometheus.MustRegister(checkouts, refunds, webhookEvents)
	return &ShopMetrics{Checkouts: checkouts, Refunds: refunds, WebhookEvents: webhookEvents}
}

// nilレシーバでも落ちないようにしておく（テストや未設定時）
func (m *ShopMetrics) CountCheckout(result string) {
	if m == nil {
		return
	}
	m.Checkouts.WithLabelValues(result).Inc()
}

func (m *ShopMetrics) CountRefund(result string) {
	if m == nil {
		return
	}
	m.Refunds.WithLabelValues(result).Inc()
}

func (m *ShopMetrics) CountWebhookEvent(eventType string) {
	if m == nil {
		return
	}
	m.WebhookEvents.WithLabelValues(eventType).Inc()
}

func Handler() http.Handler {
	return promhttp.Handler()
}
