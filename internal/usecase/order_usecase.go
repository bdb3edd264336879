package usecase

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"app/internal/domain/model"
	"app/internal/event"
	"app/internal/metrics"
	"app/internal/payment"
	repo "app/internal/repository"

	"github.com/shopspring/decimal"
)

// OrderUsecase は注文台帳の参照と返金処理。
type OrderUsecase struct {
	tx      repo.TransactionManager
	orders  repo.OrderRepository
	refunds repo.RefundRepository
	gateway payment.Gateway
	events  event.Publisher
	metrics *metrics.ShopMetrics
}

func NewOrderUsecase(
	tx repo.TransactionManager,
	orders repo.OrderRepository,
	refunds repo.RefundRepository,
	gateway payment.Gateway,
	events event.Publisher,
	m *metrics.ShopMetrics,
) *OrderUsecase {
	return &OrderUsecase{tx: tx, orders: orders, refunds: refunds, gateway: gateway, events: events, metrics: m}
}

type OrderItemOutput struct {
	ProductID int64           `json:"product_id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int64           `json:"quantity"`
}

type OrderOutput struct {
	ID             int64             `json:"id"`
	Status         string            `json:"status"`
	Total          decimal.Decimal   `json:"total"`
	CartID         string            `json:"cart_id,omitempty"`
	TransactionRef string            `json:"transaction_ref,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
	Items          []OrderItemOutput `json:"items"`
	Refunds        []model.Refund    `json:"refunds"`
}

type OrderListOutput struct {
	Total  int           `json:"total"`
	Orders []OrderOutput `json:"orders"`
}

var orderStatuses = map[string]bool{
	string(model.OrderStatusPending):           true,
	string(model.OrderStatusPaid):              true,
	string(model.OrderStatusCancelled):         true,
	string(model.OrderStatusRefunded):          true,
	string(model.OrderStatusPartiallyRefunded): true,
}

// ListOrders は注文一覧（明細・返金込み、新しい順）。
func (u *OrderUsecase) ListOrders(ctx context.Context, status string) (OrderListOutput, error) {
	if status != "" && !orderStatuses[status] {
		return OrderListOutput{}, NewHTTPError(http.StatusBadRequest, CodeValidationError, "invalid status")
	}

	var outs []OrderOutput

	//一覧と明細を同一トランザクションで読む
	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		orders, err := r.Orders().List(ctx, repo.OrderListFilter{Status: status})
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, CodeInternal, "db error")
		}

		outs = make([]OrderOutput, 0, len(orders))
		for _, o := range orders {
			items, err := r.OrderItems().ListByOrderID(ctx, o.ID)
			if err != nil {
				return NewHTTPError(http.StatusInternalServerError, CodeInternal, "db error")
			}
			refunds, err := r.Refunds().ListByOrderID(ctx, o.ID)
			if err != nil {
				return NewHTTPError(http.StatusInternalServerError, CodeInternal, "db error")
			}
			outs = append(outs, toOrderOutput(o, items, refunds))
		}
		return nil
	})

	if err != nil {
		return OrderListOutput{}, err
	}
	return OrderListOutput{Total: len(outs), Orders: outs}, nil
}

type RefundInput struct {
	Amount   decimal.Decimal
	Reason   string
	Metadata map[string]string
}

type RefundOutput struct {
	Refund model.Refund `json:"refund"`
	Order  OrderOutput  `json:"order"`
}

// RequestRefund は明示的な返金依頼。
//
// ゲートウェイへの返金はtxの外で先に行う。ゲートウェイ成功後に
// ローカル保存が失敗した場合、金は既に動いているので返金行だけは
// tx外で必ず残し、REFUND_RECONCILIATIONとして呼び出し元に知らせる。
func (u *OrderUsecase) RequestRefund(ctx context.Context, orderID int64, in RefundInput) (RefundOutput, error) {
	if orderID <= 0 {
		return RefundOutput{}, NewHTTPError(http.StatusBadRequest, CodeValidationError, "invalid order id")
	}

	order, err := u.orders.FindByID(ctx, orderID)
	if err == repo.ErrNotFound {
		return RefundOutput{}, NewHTTPError(http.StatusNotFound, CodeNotFound, "order not found")
	}
	if err != nil {
		return RefundOutput{}, NewHTTPError(http.StatusInternalServerError, CodeInternal, "db error")
	}

	//支払い前・キャンセル済みは返金対象外。
	//全額返金済み（REFUNDED）は残額チェックでINVALID_AMOUNTになる
	if order.Status == model.OrderStatusPending || order.Status == model.OrderStatusCancelled {
		return RefundOutput{}, NewHTTPError(http.StatusBadRequest, CodeValidationError, "order is not refundable")
	}

	if !in.Amount.IsPositive() {
		return RefundOutput{}, NewHTTPError(http.StatusBadRequest, CodeInvalidAmount, "refund amount must be positive")
	}

	completed, err := u.refunds.SumCompletedByOrderID(ctx, orderID)
	if err != nil {
		return RefundOutput{}, NewHTTPError(http.StatusInternalServerError, CodeInternal, "db error")
	}

	//完了済みと合わせてTotalを超える返金は拒否
	if in.Amount.Add(completed).GreaterThan(order.Total) {
		return RefundOutput{}, NewHTTPError(http.StatusBadRequest, CodeInvalidAmount, "refund exceeds remaining refundable balance")
	}

	if order.TransactionRef == "" {
		return RefundOutput{}, NewHTTPError(http.StatusBadRequest, CodeMissingTransaction, "order has no payment transaction")
	}

	//セッションIDならその下のchargeへ解決してから返金
	chargeID := order.TransactionRef
	if strings.HasPrefix(chargeID, "cs_") {
		chargeID, err = u.gateway.ResolveCharge(ctx, order.TransactionRef)
		if err != nil {
			return RefundOutput{}, NewHTTPError(http.StatusBadGateway, CodeGatewayError, "payment gateway error")
		}
	}

	result, err := u.gateway.CreateRefund(ctx, chargeID, toMinorUnits(in.Amount))
	if err != nil {
		//何も永続化していないのでそのまま返す
		u.metrics.CountRefund("gateway_error")
		return RefundOutput{}, NewHTTPError(http.StatusBadGateway, CodeGatewayError, "payment gateway error")
	}

	refund := model.Refund{
		OrderID:         orderID,
		Amount:          in.Amount,
		Status:          model.RefundStatusCompleted,
		GatewayRefundID: result.ID,
		Reason:          in.Reason,
		MetadataJSON:    marshalMetadata(in.Metadata),
	}
	if !result.Succeeded {
		refund.Status = model.RefundStatusFailed
	}

	newStatus := order.Status
	if result.Succeeded {
		if in.Amount.Add(completed).Equal(order.Total) {
			newStatus = model.OrderStatusRefunded
		} else {
			newStatus = model.OrderStatusPartiallyRefunded
		}
	}

	var created model.Refund

	txErr := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		var err error
		created, err = r.Refunds().Create(ctx, refund)
		if err != nil {
			return err
		}
		if newStatus != order.Status {
			return r.Orders().UpdateStatus(ctx, orderID, newStatus)
		}
		return nil
	})

	if txErr != nil {
		//金は動いている。返金行だけでもtx外で残す
		log.Printf("refund persist failed after gateway success: order=%d refund=%s err=%v", orderID, result.ID, txErr)
		if _, ferr := u.refunds.Create(ctx, refund); ferr != nil {
			log.Printf("refund reconciliation fallback failed: order=%d refund=%s err=%v", orderID, result.ID, ferr)
		}
		u.metrics.CountRefund("reconciliation")
		return RefundOutput{}, NewHTTPError(http.StatusInternalServerError, CodeRefundReconciliation,
			"refund succeeded at gateway but local records need reconciliation")
	}

	if !result.Succeeded {
		u.metrics.CountRefund("failure")
		return RefundOutput{}, NewHTTPError(http.StatusBadGateway, CodeGatewayError, "refund failed at gateway")
	}

	u.metrics.CountRefund("success")

	ev := event.OrderEvent{
		OrderID:    orderID,
		Status:     string(newStatus),
		Total:      order.Total.StringFixed(2),
		OccurredAt: time.Now(),
	}
	if err := u.events.PublishOrderEvent(ctx, ev); err != nil {
		log.Printf("publish order event failed: order=%d err=%v", orderID, err)
	}

	order.Status = newStatus
	return RefundOutput{Refund: created, Order: toOrderOutput(order, nil, []model.Refund{created})}, nil
}

func toOrderOutput(o model.Order, items []model.OrderItem, refunds []model.Refund) OrderOutput {
	outItems := make([]OrderItemOutput, 0, len(items))
	for _, it := range items {
		outItems = append(outItems, OrderItemOutput{
			ProductID: it.ProductID,
			Name:      it.ProductNameSnapshot,
			Price:     it.UnitPriceSnapshot,
			Quantity:  it.Quantity,
		})
	}

	if refunds == nil {
		refunds = []model.Refund{}
	}

	return OrderOutput{
		ID:             o.ID,
		Status:         string(o.Status),
		Total:          o.Total,
		CartID:         o.CartID,
		TransactionRef: o.TransactionRef,
		CreatedAt:      o.CreatedAt,
		Items:          outItems,
		Refunds:        refunds,
	}
}

func marshalMetadata(md map[string]string) string {
	if len(md) == 0 {
		return ""
	}
	data, err := json.Marshal(md)
	if err != nil {
		return ""
	}
	return string(data)
}
