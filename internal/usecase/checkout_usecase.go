package usecase

import (
	"context"
	"fmt"
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

// チェックアウト系の外部URL・通貨設定
type CheckoutConfig struct {
	SuccessURL string
	CancelURL  string
	Currency   string
}

// CheckoutUsecase はカートを支払い済み注文に変換する本体。
// 在庫・決済・台帳の整合は1つのWithinTxで守る。
type CheckoutUsecase struct {
	tx      repo.TransactionManager
	gateway payment.Gateway
	events  event.Publisher
	metrics *metrics.ShopMetrics
	cfg     CheckoutConfig
}

func NewCheckoutUsecase(
	tx repo.TransactionManager,
	gateway payment.Gateway,
	events event.Publisher,
	m *metrics.ShopMetrics,
	cfg CheckoutConfig,
) *CheckoutUsecase {
	return &CheckoutUsecase{tx: tx, gateway: gateway, events: events, metrics: m, cfg: cfg}
}

type ContactInfo struct {
	Email string
	Phone string
}

type CheckoutOutput struct {
	Order        OrderOutput `json:"order"`
	ClientSecret string      `json:"client_secret"`
}

type CheckoutSessionOutput struct {
	CheckoutURL string `json:"checkout_url"`
	SessionID   string `json:"session_id"`
	OrderID     int64  `json:"order_id"`
}

// tx内で確定したチェックアウトの内容
type checkoutPlan struct {
	cart       model.Cart
	orderItems []model.OrderItem
	quantities map[int64]int64
	total      decimal.Decimal
}

// CheckoutCart は同期課金のチェックアウト。
//  1. カートと明細をロード（空ならEMPTY_CART）
//  2. 全明細の在庫を検証。不足は全件集めてOUT_OF_STOCKで中断
//  3. round(total×100)をゲートウェイに課金依頼
//  4. 注文PENDING・明細スナップショット・在庫減算・カート使用済み化
//
// どこで失敗しても全rollbackで、在庫も注文も途中状態は残らない。
func (u *CheckoutUsecase) CheckoutCart(ctx context.Context, cartID string, contact ContactInfo) (CheckoutOutput, error) {
	if cartID == "" {
		return CheckoutOutput{}, NewHTTPError(http.StatusBadRequest, CodeValidationError, "cart token required")
	}

	var out CheckoutOutput

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		plan, err := u.loadAndValidate(ctx, r, cartID)
		if err != nil {
			return err
		}

		//最小通貨単位に換算してから課金
		charge, err := u.gateway.CreateCharge(ctx, toMinorUnits(plan.total), u.cfg.Currency, map[string]string{
			"cart_id": cartID,
			"email":   contact.Email,
			"phone":   contact.Phone,
		})
		if err != nil {
			return NewHTTPError(http.StatusBadGateway, CodeGatewayError, "payment gateway error")
		}

		order, err := u.persistOrder(ctx, r, plan, charge.ID, contact)
		if err != nil {
			return err
		}

		items, err := r.OrderItems().ListByOrderID(ctx, order.ID)
		if err != nil {
			return NewHTTPError(http.StatusInternalServerError, CodeInternal, "db error")
		}

		out = CheckoutOutput{
			Order:        toOrderOutput(order, items, nil),
			ClientSecret: charge.ClientSecret,
		}
		return nil
	})

	if err != nil {
		u.metrics.CountCheckout("failure")
		return CheckoutOutput{}, err
	}

	u.metrics.CountCheckout("success")
	u.publishOrderEvent(ctx, out.Order.ID, string(model.OrderStatusPending), out.Order.Total)
	return out, nil
}

// CreateCheckoutSession はホスト型決済ページを使うチェックアウト。
// 課金の代わりに行アイテムからセッションを作り、そのIDを注文に記録する。
// 戻り値のURLへリダイレクトしてもらう。
func (u *CheckoutUsecase) CreateCheckoutSession(ctx context.Context, cartID string) (CheckoutSessionOutput, error) {
	if cartID == "" {
		return CheckoutSessionOutput{}, NewHTTPError(http.StatusBadRequest, CodeValidationError, "cart token required")
	}

	var out CheckoutSessionOutput
	var total decimal.Decimal

	err := u.tx.WithinTx(ctx, func(r repo.TxRepos) error {
		plan, err := u.loadAndValidate(ctx, r, cartID)
		if err != nil {
			return err
		}

		lineItems := make([]payment.SessionLineItem, 0, len(plan.orderItems))
		for _, oi := range plan.orderItems {
			lineItems = append(lineItems, payment.SessionLineItem{
				Name:       oi.ProductNameSnapshot,
				UnitAmount: toMinorUnits(oi.UnitPriceSnapshot),
				Quantity:   oi.Quantity,
			})
		}

		session, err := u.gateway.CreateCheckoutSession(ctx, lineItems, u.cfg.SuccessURL, u.cfg.CancelURL, map[string]string{
			"cart_id": cartID,
		})
		if err != nil {
			return NewHTTPError(http.StatusBadGateway, CodeGatewayError, "payment gateway error")
		}

		order, err := u.persistOrder(ctx, r, plan, session.ID, ContactInfo{})
		if err != nil {
			return err
		}

		total = order.Total
		out = CheckoutSessionOutput{
			CheckoutURL: session.URL,
			SessionID:   session.ID,
			OrderID:     order.ID,
		}
		return nil
	})

	if err != nil {
		u.metrics.CountCheckout("failure")
		return CheckoutSessionOutput{}, err
	}

	u.metrics.CountCheckout("success")
	u.publishOrderEvent(ctx, out.OrderID, string(model.OrderStatusPending), total)
	return out, nil
}

// カートをロードし、全明細の在庫を検証してスナップショットを作る。
// ここで読んだ明細がこのチェックアウトの確定スナップショット。
// 以後に他リクエストが追加した明細は含まれない。
func (u *CheckoutUsecase) loadAndValidate(ctx context.Context, r repo.TxRepos, cartID string) (checkoutPlan, error) {
	cart, err := r.Carts().FindByID(ctx, cartID)
	if err == repo.ErrNotFound {
		return checkoutPlan{}, NewHTTPError(http.StatusNotFound, CodeNotFound, "cart not found")
	}
	if err != nil {
		return checkoutPlan{}, NewHTTPError(http.StatusInternalServerError, CodeInternal, "db error")
	}
	if cart.Status != model.CartStatusActive {
		return checkoutPlan{}, NewHTTPError(http.StatusBadRequest, CodeValidationError, "cart already checked out")
	}

	cartItems, err := r.CartItems().ListByCartID(ctx, cart.ID)
	if err != nil {
		return checkoutPlan{}, NewHTTPError(http.StatusInternalServerError, CodeInternal, "db error")
	}
	if len(cartItems) == 0 {
		return checkoutPlan{}, NewHTTPError(http.StatusBadRequest, CodeEmptyCart, "cart is empty")
	}

	//在庫違反は最初の1件で止めず全部集める
	var violations []string
	orderItems := make([]model.OrderItem, 0, len(cartItems))
	quantities := make(map[int64]int64, len(cartItems))
	total := decimal.Zero

	for _, ci := range cartItems {
		p, err := r.Products().FindByID(ctx, ci.ProductID)
		if err == repo.ErrNotFound {
			violations = append(violations, missingProductDetail(ci.ProductID))
			continue
		}
		if err != nil {
			return checkoutPlan{}, NewHTTPError(http.StatusInternalServerError, CodeInternal, "db error")
		}

		if p.Stock < ci.Quantity {
			violations = append(violations, outOfStockDetail(p))
			continue
		}

		//単価はこの時点の価格で凍結
		orderItems = append(orderItems, model.OrderItem{
			ProductID:           p.ID,
			ProductNameSnapshot: p.Name,
			UnitPriceSnapshot:   p.Price,
			Quantity:            ci.Quantity,
		})
		quantities[p.ID] = ci.Quantity
		total = total.Add(p.Price.Mul(decimal.NewFromInt(ci.Quantity)))
	}

	if len(violations) > 0 {
		return checkoutPlan{}, NewHTTPErrorWithDetails(
			http.StatusBadRequest, CodeOutOfStock, "insufficient stock", violations,
		)
	}

	return checkoutPlan{cart: cart, orderItems: orderItems, quantities: quantities, total: total}, nil
}

// 注文・明細・在庫減算・カート使用済み化をまとめて書き込む。
// 在庫減算は条件付きUPDATEなので、検証後に他のチェックアウトへ
// 在庫を取られていたらここで失敗して全体がrollbackされる。
func (u *CheckoutUsecase) persistOrder(ctx context.Context, r repo.TxRepos, plan checkoutPlan, transactionRef string, contact ContactInfo) (model.Order, error) {
	order := model.Order{
		Total:          plan.total,
		Status:         model.OrderStatusPending,
		CartID:         plan.cart.ID,
		TransactionRef: transactionRef,
		Email:          contact.Email,
		Phone:          contact.Phone,
	}

	orderID, err := r.Orders().Create(ctx, order)
	if err != nil {
		return model.Order{}, NewHTTPError(http.StatusInternalServerError, CodeInternal, "db error")
	}
	order.ID = orderID

	if err := r.OrderItems().CreateBulk(ctx, orderID, plan.orderItems); err != nil {
		return model.Order{}, NewHTTPError(http.StatusInternalServerError, CodeInternal, "db error")
	}

	for productID, qty := range plan.quantities {
		ok, err := r.Inventory().DecreaseStockIfEnough(ctx, productID, qty)
		if err != nil {
			return model.Order{}, NewHTTPError(http.StatusInternalServerError, CodeInternal, "db error")
		}
		if !ok {
			//検証と減算の間に他のチェックアウトが在庫を取った
			return model.Order{}, NewHTTPErrorWithDetails(
				http.StatusBadRequest, CodeOutOfStock, "insufficient stock",
				[]string{missingProductDetail(productID)},
			)
		}

		if err := r.Inventory().CreateMovement(ctx, model.StockMovement{
			ProductID: productID,
			OrderID:   orderID,
			Delta:     -qty,
			Reason:    "checkout",
		}); err != nil {
			return model.Order{}, NewHTTPError(http.StatusInternalServerError, CodeInternal, "db error")
		}
	}

	//カートは消さずCHECKED_OUTにして明細を監査用に残す
	if err := r.Carts().MarkCheckedOut(ctx, plan.cart.ID); err != nil {
		return model.Order{}, NewHTTPError(http.StatusInternalServerError, CodeInternal, "db error")
	}

	order.CreatedAt = time.Now()
	return order, nil
}

func (u *CheckoutUsecase) publishOrderEvent(ctx context.Context, orderID int64, status string, total decimal.Decimal) {
	ev := event.OrderEvent{
		OrderID:    orderID,
		Status:     status,
		Total:      total.StringFixed(2),
		OccurredAt: time.Now(),
	}
	if err := u.events.PublishOrderEvent(ctx, ev); err != nil {
		log.Printf("publish order event failed: order=%d err=%v", orderID, err)
	}
}

// DECIMAL(10,2)の金額を最小通貨単位（cent）へ
func toMinorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

func missingProductDetail(productID int64) string {
	return fmt.Sprintf("product %d: insufficient stock", productID)
}
