package usecase_test

import (
	"context"
	"net/http"
	"testing"

	"app/internal/domain/model"
	"app/internal/payment"
	"app/internal/usecase"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func newCheckoutUsecase(repos *txReposStub, gw *GatewayMock, pub *RecordingPublisher) *usecase.CheckoutUsecase {
	return usecase.NewCheckoutUsecase(
		&txManagerStub{repos: repos},
		gw,
		pub,
		nil,
		usecase.CheckoutConfig{
			SuccessURL: "https://shop.example/checkout/success",
			CancelURL:  "https://shop.example/checkout/cancel",
			Currency:   "usd",
		},
	)
}

func activeCart(id string) model.Cart {
	return model.Cart{ID: id, Status: model.CartStatusActive}
}

func TestCheckoutCart_Success(t *testing.T) {
	repos := newTxReposStub()
	gw := new(GatewayMock)
	pub := &RecordingPublisher{}
	uc := newCheckoutUsecase(repos, gw, pub)

	cartID := "cart_abc"
	mug := model.Product{ID: 1, Name: "Mug", Price: mustDecimal("19.99"), Stock: 10}

	repos.carts.On("FindByID", mock.Anything, cartID).Return(activeCart(cartID), nil)
	repos.cartItems.On("ListByCartID", mock.Anything, cartID).Return([]model.CartItem{
		{ID: 7, CartID: cartID, ProductID: 1, Quantity: 2},
	}, nil)
	repos.products.On("FindByID", mock.Anything, int64(1)).Return(mug, nil)

	// 19.99 × 2 = 39.98 → 3998 cent
	gw.On("CreateCharge", mock.Anything, int64(3998), "usd", mock.Anything).
		Return(payment.Charge{ID: "pi_123", ClientSecret: "pi_123_secret"}, nil)

	repos.orders.On("Create", mock.Anything, mock.MatchedBy(func(o model.Order) bool {
		return o.Status == model.OrderStatusPending &&
			o.Total.Equal(mustDecimal("39.98")) &&
			o.TransactionRef == "pi_123" &&
			o.CartID == cartID
	})).Return(int64(42), nil)
	repos.orderItems.On("CreateBulk", mock.Anything, int64(42), mock.Anything).Return(nil)
	repos.inventory.On("DecreaseStockIfEnough", mock.Anything, int64(1), int64(2)).Return(true, nil)
	repos.inventory.On("CreateMovement", mock.Anything, mock.MatchedBy(func(mv model.StockMovement) bool {
		return mv.ProductID == 1 && mv.OrderID == 42 && mv.Delta == -2 && mv.Reason == "checkout"
	})).Return(nil)
	repos.carts.On("MarkCheckedOut", mock.Anything, cartID).Return(nil)
	repos.orderItems.On("ListByOrderID", mock.Anything, int64(42)).Return([]model.OrderItem{
		{ID: 1, OrderID: 42, ProductID: 1, ProductNameSnapshot: "Mug", UnitPriceSnapshot: mustDecimal("19.99"), Quantity: 2},
	}, nil)

	out, err := uc.CheckoutCart(context.Background(), cartID, usecase.ContactInfo{Email: "a@example.com"})

	assert.NoError(t, err)
	assert.Equal(t, "pi_123_secret", out.ClientSecret)
	assert.Equal(t, int64(42), out.Order.ID)
	assert.Equal(t, string(model.OrderStatusPending), out.Order.Status)
	assert.True(t, out.Order.Total.Equal(mustDecimal("39.98")))
	assert.Len(t, out.Order.Items, 1)

	//注文イベントが発行されている
	if assert.Len(t, pub.Events, 1) {
		assert.Equal(t, int64(42), pub.Events[0].OrderID)
		assert.Equal(t, string(model.OrderStatusPending), pub.Events[0].Status)
		assert.Equal(t, "39.98", pub.Events[0].Total)
	}

	repos.carts.AssertExpectations(t)
	repos.inventory.AssertExpectations(t)
	gw.AssertExpectations(t)
}

func TestCheckoutCart_EmptyCart(t *testing.T) {
	repos := newTxReposStub()
	gw := new(GatewayMock)
	pub := &RecordingPublisher{}
	uc := newCheckoutUsecase(repos, gw, pub)

	cartID := "cart_empty"
	repos.carts.On("FindByID", mock.Anything, cartID).Return(activeCart(cartID), nil)
	repos.cartItems.On("ListByCartID", mock.Anything, cartID).Return([]model.CartItem{}, nil)

	_, err := uc.CheckoutCart(context.Background(), cartID, usecase.ContactInfo{})

	he, ok := usecase.AsHTTPError(err)
	assert.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, he.Status)
	assert.Equal(t, usecase.CodeEmptyCart, he.Code)

	//空カートでは課金しない
	gw.AssertNotCalled(t, "CreateCharge", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	assert.Empty(t, pub.Events)
}

func TestCheckoutCart_InsufficientStock_CollectsAllViolations(t *testing.T) {
	repos := newTxReposStub()
	gw := new(GatewayMock)
	pub := &RecordingPublisher{}
	uc := newCheckoutUsecase(repos, gw, pub)

	cartID := "cart_over"
	repos.carts.On("FindByID", mock.Anything, cartID).Return(activeCart(cartID), nil)
	repos.cartItems.On("ListByCartID", mock.Anything, cartID).Return([]model.CartItem{
		{CartID: cartID, ProductID: 1, Quantity: 5},
		{CartID: cartID, ProductID: 2, Quantity: 1},
		{CartID: cartID, ProductID: 3, Quantity: 1},
	}, nil)
	repos.products.On("FindByID", mock.Anything, int64(1)).
		Return(model.Product{ID: 1, Name: "Mug", Price: mustDecimal("19.99"), Stock: 2}, nil)
	repos.products.On("FindByID", mock.Anything, int64(2)).
		Return(model.Product{ID: 2, Name: "Shirt", Price: mustDecimal("25.00"), Stock: 0}, nil)
	repos.products.On("FindByID", mock.Anything, int64(3)).
		Return(model.Product{ID: 3, Name: "Cap", Price: mustDecimal("9.50"), Stock: 4}, nil)

	_, err := uc.CheckoutCart(context.Background(), cartID, usecase.ContactInfo{})

	he, ok := usecase.AsHTTPError(err)
	assert.True(t, ok)
	assert.Equal(t, usecase.CodeOutOfStock, he.Code)
	//不足は全商品分まとめて返す（Capは足りているので含まない）
	assert.Len(t, he.Details, 2)

	gw.AssertNotCalled(t, "CreateCharge", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	repos.orders.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestCheckoutCart_StockTakenBetweenValidateAndDecrement(t *testing.T) {
	repos := newTxReposStub()
	gw := new(GatewayMock)
	pub := &RecordingPublisher{}
	uc := newCheckoutUsecase(repos, gw, pub)

	cartID := "cart_race"
	repos.carts.On("FindByID", mock.Anything, cartID).Return(activeCart(cartID), nil)
	repos.cartItems.On("ListByCartID", mock.Anything, cartID).Return([]model.CartItem{
		{CartID: cartID, ProductID: 1, Quantity: 2},
	}, nil)
	repos.products.On("FindByID", mock.Anything, int64(1)).
		Return(model.Product{ID: 1, Name: "Mug", Price: mustDecimal("19.99"), Stock: 2}, nil)
	gw.On("CreateCharge", mock.Anything, int64(3998), "usd", mock.Anything).
		Return(payment.Charge{ID: "pi_x", ClientSecret: "s"}, nil)
	repos.orders.On("Create", mock.Anything, mock.Anything).Return(int64(10), nil)
	repos.orderItems.On("CreateBulk", mock.Anything, int64(10), mock.Anything).Return(nil)

	//検証後に別のチェックアウトへ在庫を取られた
	repos.inventory.On("DecreaseStockIfEnough", mock.Anything, int64(1), int64(2)).Return(false, nil)

	_, err := uc.CheckoutCart(context.Background(), cartID, usecase.ContactInfo{})

	he, ok := usecase.AsHTTPError(err)
	assert.True(t, ok)
	assert.Equal(t, usecase.CodeOutOfStock, he.Code)
	assert.Empty(t, pub.Events)
	repos.carts.AssertNotCalled(t, "MarkCheckedOut", mock.Anything, cartID)
}

func TestCheckoutCart_CheckedOutCartRejected(t *testing.T) {
	repos := newTxReposStub()
	gw := new(GatewayMock)
	uc := newCheckoutUsecase(repos, gw, &RecordingPublisher{})

	cartID := "cart_used"
	repos.carts.On("FindByID", mock.Anything, cartID).
		Return(model.Cart{ID: cartID, Status: model.CartStatusCheckedOut}, nil)

	_, err := uc.CheckoutCart(context.Background(), cartID, usecase.ContactInfo{})

	he, ok := usecase.AsHTTPError(err)
	assert.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, he.Status)
	assert.Equal(t, usecase.CodeValidationError, he.Code)
}

func TestCreateCheckoutSession_Success(t *testing.T) {
	repos := newTxReposStub()
	gw := new(GatewayMock)
	pub := &RecordingPublisher{}
	uc := newCheckoutUsecase(repos, gw, pub)

	cartID := "cart_session"
	repos.carts.On("FindByID", mock.Anything, cartID).Return(activeCart(cartID), nil)
	repos.cartItems.On("ListByCartID", mock.Anything, cartID).Return([]model.CartItem{
		{CartID: cartID, ProductID: 1, Quantity: 2},
	}, nil)
	repos.products.On("FindByID", mock.Anything, int64(1)).
		Return(model.Product{ID: 1, Name: "Mug", Price: mustDecimal("19.99"), Stock: 10}, nil)

	gw.On("CreateCheckoutSession", mock.Anything,
		mock.MatchedBy(func(items []payment.SessionLineItem) bool {
			return len(items) == 1 && items[0].Name == "Mug" &&
				items[0].UnitAmount == 1999 && items[0].Quantity == 2
		}),
		"https://shop.example/checkout/success",
		"https://shop.example/checkout/cancel",
		mock.Anything,
	).Return(payment.CheckoutSession{ID: "cs_123", URL: "https://pay.example/cs_123"}, nil)

	//セッションIDを取引参照として記録する
	repos.orders.On("Create", mock.Anything, mock.MatchedBy(func(o model.Order) bool {
		return o.TransactionRef == "cs_123" && o.Status == model.OrderStatusPending
	})).Return(int64(99), nil)
	repos.orderItems.On("CreateBulk", mock.Anything, int64(99), mock.Anything).Return(nil)
	repos.inventory.On("DecreaseStockIfEnough", mock.Anything, int64(1), int64(2)).Return(true, nil)
	repos.inventory.On("CreateMovement", mock.Anything, mock.Anything).Return(nil)
	repos.carts.On("MarkCheckedOut", mock.Anything, cartID).Return(nil)

	out, err := uc.CreateCheckoutSession(context.Background(), cartID)

	assert.NoError(t, err)
	assert.Equal(t, "https://pay.example/cs_123", out.CheckoutURL)
	assert.Equal(t, "cs_123", out.SessionID)
	assert.Equal(t, int64(99), out.OrderID)
	assert.Len(t, pub.Events, 1)
	gw.AssertExpectations(t)
}

func TestCheckoutCart_GatewayFailureRollsBack(t *testing.T) {
	repos := newTxReposStub()
	gw := new(GatewayMock)
	uc := newCheckoutUsecase(repos, gw, &RecordingPublisher{})

	cartID := "cart_gw"
	repos.carts.On("FindByID", mock.Anything, cartID).Return(activeCart(cartID), nil)
	repos.cartItems.On("ListByCartID", mock.Anything, cartID).Return([]model.CartItem{
		{CartID: cartID, ProductID: 1, Quantity: 1},
	}, nil)
	repos.products.On("FindByID", mock.Anything, int64(1)).
		Return(model.Product{ID: 1, Name: "Mug", Price: mustDecimal("19.99"), Stock: 5}, nil)
	gw.On("CreateCharge", mock.Anything, int64(1999), "usd", mock.Anything).
		Return(payment.Charge{}, assert.AnError)

	_, err := uc.CheckoutCart(context.Background(), cartID, usecase.ContactInfo{})

	he, ok := usecase.AsHTTPError(err)
	assert.True(t, ok)
	assert.Equal(t, http.StatusBadGateway, he.Status)
	assert.Equal(t, usecase.CodeGatewayError, he.Code)

	repos.orders.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	repos.carts.AssertNotCalled(t, "MarkCheckedOut", mock.Anything, cartID)
}
