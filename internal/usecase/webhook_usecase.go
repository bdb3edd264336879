package usecase

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"app/internal/domain/model"
	"app/internal/event"
	"app/internal/metrics"
	"app/internal/payment"
	repo "app/internal/repository"

	"github.com/shopspring/decimal"
)

// WebhookUsecase は決済ゲートウェイからの非同期通知を処理する。
// 署名検証に失敗したpayloadは一切処理しない。
// 遷移は条件付きUPDATEなので同じイベントを何度受けても壊れない。
type WebhookUsecase struct {
	gateway payment.Gateway
	orders  repo.OrderRepository
	events  event.Publisher
	metrics *metrics.ShopMetrics
}

func NewWebhookUsecase(
	gateway payment.Gateway,
	orders repo.OrderRepository,
	events event.Publisher,
	m *metrics.ShopMetrics,
) *WebhookUsecase {
	return &WebhookUsecase{gateway: gateway, orders: orders, events: events, metrics: m}
}

// HandleEvent は署名検証→注文特定→ステータス遷移を行う。
// 知らないイベント種別はACKだけして無視する。
func (u *WebhookUsecase) HandleEvent(ctx context.Context, payload []byte, signature string) error {
	ev, err := u.gateway.VerifyEvent(payload, signature)
	if err != nil {
		if errors.Is(err, payment.ErrInvalidSignature) {
			return NewHTTPError(http.StatusBadRequest, CodeInvalidSignature, "invalid webhook signature")
		}
		return NewHTTPError(http.StatusBadRequest, CodeValidationError, "malformed webhook payload")
	}

	u.metrics.CountWebhookEvent(string(ev.Type))

	if ev.Type == payment.EventUnknown {
		return nil
	}

	order, found, err := u.orders.FindByTransactionRef(ctx, ev.TransactionRef)
	if err != nil {
		return NewHTTPError(http.StatusInternalServerError, CodeInternal, "db error")
	}
	if !found {
		//知らない取引への通知。ACKして終わり
		return nil
	}

	switch ev.Type {
	case payment.EventPaymentSucceeded:
		return u.transition(ctx, order, []model.OrderStatus{model.OrderStatusPending}, model.OrderStatusPaid)

	case payment.EventPaymentFailed:
		return u.transition(ctx, order, []model.OrderStatus{model.OrderStatusPending}, model.OrderStatusCancelled)

	case payment.EventChargeRefunded:
		refunded := decimal.NewFromInt(ev.AmountRefunded).Div(decimal.NewFromInt(100))
		target := model.OrderStatusPartiallyRefunded
		if refunded.GreaterThanOrEqual(order.Total) {
			target = model.OrderStatusRefunded
		}
		return u.transition(ctx, order,
			[]model.OrderStatus{model.OrderStatusPaid, model.OrderStatusPartiallyRefunded}, target)
	}

	return nil
}

// 現在ステータスがfromのときだけtoへ動かす。
// 2回目以降の同一イベントはRowsAffected=0で何も起きない。
func (u *WebhookUsecase) transition(ctx context.Context, order model.Order, from []model.OrderStatus, to model.OrderStatus) error {
	applied, err := u.orders.UpdateStatusFrom(ctx, order.ID, from, to)
	if err != nil {
		return NewHTTPError(http.StatusInternalServerError, CodeInternal, "db error")
	}
	if !applied {
		return nil
	}

	ev := event.OrderEvent{
		OrderID:    order.ID,
		Status:     string(to),
		Total:      order.Total.StringFixed(2),
		OccurredAt: time.Now(),
	}
	if err := u.events.PublishOrderEvent(ctx, ev); err != nil {
		log.Printf("publish order event failed: order=%d err=%v", order.ID, err)
	}
	return nil
}
