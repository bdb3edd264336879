package usecase_test

import (
	"context"

	"app/internal/domain/model"
	"app/internal/event"
	"app/internal/payment"
	repo "app/internal/repository"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

// =====================
// Mocks
// =====================

type ProductRepoMock struct{ mock.Mock }

func (m *ProductRepoMock) List(ctx context.Context, q repo.ProductListQuery) ([]model.Product, error) {
	args := m.Called(ctx, q)
	items, _ := args.Get(0).([]model.Product)
	return items, args.Error(1)
}

func (m *ProductRepoMock) FindByID(ctx context.Context, id int64) (model.Product, error) {
	args := m.Called(ctx, id)
	p, _ := args.Get(0).(model.Product)
	return p, args.Error(1)
}

func (m *ProductRepoMock) Create(ctx context.Context, p model.Product) (model.Product, error) {
	args := m.Called(ctx, p)
	created, _ := args.Get(0).(model.Product)
	return created, args.Error(1)
}

type CartRepoMock struct{ mock.Mock }

func (m *CartRepoMock) FindByID(ctx context.Context, cartID string) (model.Cart, error) {
	args := m.Called(ctx, cartID)
	c, _ := args.Get(0).(model.Cart)
	return c, args.Error(1)
}

func (m *CartRepoMock) Create(ctx context.Context, cart model.Cart) (model.Cart, error) {
	args := m.Called(ctx, cart)
	c, _ := args.Get(0).(model.Cart)
	return c, args.Error(1)
}

func (m *CartRepoMock) MarkCheckedOut(ctx context.Context, cartID string) error {
	args := m.Called(ctx, cartID)
	return args.Error(0)
}

type CartItemRepoMock struct{ mock.Mock }

func (m *CartItemRepoMock) ListByCartID(ctx context.Context, cartID string) ([]model.CartItem, error) {
	args := m.Called(ctx, cartID)
	items, _ := args.Get(0).([]model.CartItem)
	return items, args.Error(1)
}

func (m *CartItemRepoMock) UpsertByCartAndProduct(ctx context.Context, cartID string, productID int64, addQty int64) error {
	args := m.Called(ctx, cartID, productID, addQty)
	return args.Error(0)
}

func (m *CartItemRepoMock) DeleteByCartAndProduct(ctx context.Context, cartID string, productID int64) error {
	args := m.Called(ctx, cartID, productID)
	return args.Error(0)
}

type OrderRepoMock struct{ mock.Mock }

func (m *OrderRepoMock) FindByID(ctx context.Context, orderID int64) (model.Order, error) {
	args := m.Called(ctx, orderID)
	o, _ := args.Get(0).(model.Order)
	return o, args.Error(1)
}

func (m *OrderRepoMock) FindByTransactionRef(ctx context.Context, ref string) (model.Order, bool, error) {
	args := m.Called(ctx, ref)
	o, _ := args.Get(0).(model.Order)
	return o, args.Bool(1), args.Error(2)
}

func (m *OrderRepoMock) List(ctx context.Context, f repo.OrderListFilter) ([]model.Order, error) {
	args := m.Called(ctx, f)
	orders, _ := args.Get(0).([]model.Order)
	return orders, args.Error(1)
}

func (m *OrderRepoMock) Create(ctx context.Context, order model.Order) (int64, error) {
	args := m.Called(ctx, order)
	return args.Get(0).(int64), args.Error(1)
}

func (m *OrderRepoMock) UpdateStatus(ctx context.Context, orderID int64, status model.OrderStatus) error {
	args := m.Called(ctx, orderID, status)
	return args.Error(0)
}

func (m *OrderRepoMock) UpdateStatusFrom(ctx context.Context, orderID int64, from []model.OrderStatus, to model.OrderStatus) (bool, error) {
	args := m.Called(ctx, orderID, from, to)
	return args.Bool(0), args.Error(1)
}

type OrderItemRepoMock struct{ mock.Mock }

func (m *OrderItemRepoMock) CreateBulk(ctx context.Context, orderID int64, items []model.OrderItem) error {
	args := m.Called(ctx, orderID, items)
	return args.Error(0)
}

func (m *OrderItemRepoMock) ListByOrderID(ctx context.Context, orderID int64) ([]model.OrderItem, error) {
	args := m.Called(ctx, orderID)
	items, _ := args.Get(0).([]model.OrderItem)
	return items, args.Error(1)
}

type RefundRepoMock struct{ mock.Mock }

func (m *RefundRepoMock) Create(ctx context.Context, r model.Refund) (model.Refund, error) {
	args := m.Called(ctx, r)
	created, _ := args.Get(0).(model.Refund)
	return created, args.Error(1)
}

func (m *RefundRepoMock) ListByOrderID(ctx context.Context, orderID int64) ([]model.Refund, error) {
	args := m.Called(ctx, orderID)
	refunds, _ := args.Get(0).([]model.Refund)
	return refunds, args.Error(1)
}

func (m *RefundRepoMock) SumCompletedByOrderID(ctx context.Context, orderID int64) (decimal.Decimal, error) {
	args := m.Called(ctx, orderID)
	sum, _ := args.Get(0).(decimal.Decimal)
	return sum, args.Error(1)
}

type InventoryRepoMock struct{ mock.Mock }

func (m *InventoryRepoMock) DecreaseStockIfEnough(ctx context.Context, productID int64, qty int64) (bool, error) {
	args := m.Called(ctx, productID, qty)
	return args.Bool(0), args.Error(1)
}

func (m *InventoryRepoMock) CreateMovement(ctx context.Context, mv model.StockMovement) error {
	args := m.Called(ctx, mv)
	return args.Error(0)
}

type GatewayMock struct{ mock.Mock }

func (m *GatewayMock) CreateCharge(ctx context.Context, amount int64, currency string, metadata map[string]string) (payment.Charge, error) {
	args := m.Called(ctx, amount, currency, metadata)
	c, _ := args.Get(0).(payment.Charge)
	return c, args.Error(1)
}

func (m *GatewayMock) CreateCheckoutSession(ctx context.Context, items []payment.SessionLineItem, successURL, cancelURL string, metadata map[string]string) (payment.CheckoutSession, error) {
	args := m.Called(ctx, items, successURL, cancelURL, metadata)
	s, _ := args.Get(0).(payment.CheckoutSession)
	return s, args.Error(1)
}

func (m *GatewayMock) ResolveCharge(ctx context.Context, sessionID string) (string, error) {
	args := m.Called(ctx, sessionID)
	return args.String(0), args.Error(1)
}

func (m *GatewayMock) CreateRefund(ctx context.Context, chargeID string, amount int64) (payment.RefundResult, error) {
	args := m.Called(ctx, chargeID, amount)
	r, _ := args.Get(0).(payment.RefundResult)
	return r, args.Error(1)
}

func (m *GatewayMock) VerifyEvent(payload []byte, signature string) (payment.Event, error) {
	args := m.Called(payload, signature)
	ev, _ := args.Get(0).(payment.Event)
	return ev, args.Error(1)
}

// 発行イベントを記録するだけのPublisher
type RecordingPublisher struct {
	Events []event.OrderEvent
}

func (p *RecordingPublisher) PublishOrderEvent(ctx context.Context, ev event.OrderEvent) error {
	p.Events = append(p.Events, ev)
	return nil
}

// =====================
// TxManagerのスタブ
// =====================

type txReposStub struct {
	products   *ProductRepoMock
	inventory  *InventoryRepoMock
	carts      *CartRepoMock
	cartItems  *CartItemRepoMock
	orders     *OrderRepoMock
	orderItems *OrderItemRepoMock
	refunds    *RefundRepoMock
}

func newTxReposStub() *txReposStub {
	return &txReposStub{
		products:   new(ProductRepoMock),
		inventory:  new(InventoryRepoMock),
		carts:      new(CartRepoMock),
		cartItems:  new(CartItemRepoMock),
		orders:     new(OrderRepoMock),
		orderItems: new(OrderItemRepoMock),
		refunds:    new(RefundRepoMock),
	}
}

func (s *txReposStub) Products() repo.ProductRepository    { return s.products }
func (s *txReposStub) Inventory() repo.InventoryRepository { return s.inventory }
func (s *txReposStub) Carts() repo.CartRepository          { return s.carts }
func (s *txReposStub) CartItems() repo.CartItemRepository  { return s.cartItems }
func (s *txReposStub) Orders() repo.OrderRepository        { return s.orders }
func (s *txReposStub) OrderItems() repo.OrderItemRepository {
	return s.orderItems
}
func (s *txReposStub) Refunds() repo.RefundRepository { return s.refunds }

// fnをそのまま実行する。commitErrを設定すると
// 業務ロジック成功後のcommit失敗を再現できる。
type txManagerStub struct {
	repos     *txReposStub
	commitErr error
}

func (m *txManagerStub) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	if err := fn(m.repos); err != nil {
		return err
	}
	return m.commitErr
}

func mustDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}
