package handler

import (
	"net/http"
	"strconv"

	"app/internal/usecase"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

type OrderHandler struct {
	uc       *usecase.OrderUsecase
	checkout *usecase.CheckoutUsecase
}

func NewOrderHandler(uc *usecase.OrderUsecase, checkout *usecase.CheckoutUsecase) *OrderHandler {
	return &OrderHandler{uc: uc, checkout: checkout}
}

type CheckoutSessionRequest struct {
	CartID string `json:"cart_id"`
}

type RefundRequest struct {
	Amount   decimal.Decimal   `json:"amount"`
	Reason   string            `json:"reason"`
	Metadata map[string]string `json:"metadata"`
}

func (h *OrderHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/orders")
	g.GET("", h.list)
	g.POST("/checkout", h.createCheckoutSession)
	g.POST("/:orderId/refund", h.requestRefund)
}

// GET /api/orders?status=PAID
func (h *OrderHandler) list(c echo.Context) error {
	out, err := h.uc.ListOrders(c.Request().Context(), c.QueryParam("status"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// POST /api/orders/checkout
// リダイレクト先URLを返すホスト型決済ページのチェックアウト。
// cart_idはbody優先、無ければcookie。
func (h *OrderHandler) createCheckoutSession(c echo.Context) error {
	var req CheckoutSessionRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body", Code: usecase.CodeValidationError})
	}

	cartID := req.CartID
	if cartID == "" {
		if ck, err := c.Cookie(cartCookieName); err == nil {
			cartID = ck.Value
		}
	}

	out, err := h.checkout.CreateCheckoutSession(c.Request().Context(), cartID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// POST /api/orders/:orderId/refund
func (h *OrderHandler) requestRefund(c echo.Context) error {
	orderID, err := strconv.ParseInt(c.Param("orderId"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid order id", Code: usecase.CodeValidationError})
	}

	var req RefundRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body", Code: usecase.CodeValidationError})
	}

	out, err := h.uc.RequestRefund(c.Request().Context(), orderID, usecase.RefundInput{
		Amount:   req.Amount,
		Reason:   req.Reason,
		Metadata: req.Metadata,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}
