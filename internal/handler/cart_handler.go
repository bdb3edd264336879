package handler

import (
	"net/http"
	"strconv"
	"time"

	"app/internal/config"
	"app/internal/usecase"

	"github.com/labstack/echo/v4"
)

const cartCookieName = "cartId"

// /cartのHTTP。カートトークンはcookieで持ち回る。
type CartHandler struct {
	uc       *usecase.CartUsecase
	checkout *usecase.CheckoutUsecase
	cfg      config.Config
}

// DI
func NewCartHandler(uc *usecase.CartUsecase, checkout *usecase.CheckoutUsecase, cfg config.Config) *CartHandler {
	return &CartHandler{uc: uc, checkout: checkout, cfg: cfg}
}

type AddCartItemRequest struct {
	ProductID int64 `json:"product_id"`
	Quantity  int64 `json:"quantity"`
}

type CheckoutRequest struct {
	Email string `json:"email"`
	Phone string `json:"phone"`
}

func (h *CartHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/cart")
	g.GET("", h.getCart)
	g.POST("/add", h.addItem)
	g.DELETE("/remove/:productId", h.removeItem)
	g.POST("/checkout", h.checkoutCart)
}

// cookieのトークンを読む。無ければ空文字
func (h *CartHandler) cartToken(c echo.Context) string {
	if ck, err := c.Cookie(cartCookieName); err == nil && ck.Value != "" {
		return ck.Value
	}
	return c.QueryParam("cartId")
}

func (h *CartHandler) setCartCookie(c echo.Context, cartID string) {
	c.SetCookie(&http.Cookie{
		Name:     cartCookieName,
		Value:    cartID,
		Path:     "/",
		MaxAge:   int((30 * 24 * time.Hour).Seconds()),
		HttpOnly: true,
		Secure:   h.cfg.GoEnv == "prod",
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *CartHandler) clearCartCookie(c echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:     cartCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
}

// GET /api/cart
// トークンが無い・無効・使用済みなら新しいカートを発行してcookieを張り替える。
func (h *CartHandler) getCart(c echo.Context) error {
	sessionID := ""
	if ck, err := c.Cookie("sessionId"); err == nil {
		sessionID = ck.Value
	}

	out, isNew, err := h.uc.GetOrCreateCart(c.Request().Context(), h.cartToken(c), sessionID)
	if err != nil {
		return writeError(c, err)
	}

	if isNew {
		h.setCartCookie(c, out.CartID)
	}
	return c.JSON(http.StatusOK, out)
}

// POST /api/cart/add
func (h *CartHandler) addItem(c echo.Context) error {
	var req AddCartItemRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body", Code: usecase.CodeValidationError})
	}

	//quantity省略時は1
	if req.Quantity == 0 {
		req.Quantity = 1
	}

	out, err := h.uc.AddItem(c.Request().Context(), h.cartToken(c), usecase.AddCartItemInput{
		ProductID: req.ProductID,
		Quantity:  req.Quantity,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// DELETE /api/cart/remove/:productId
func (h *CartHandler) removeItem(c echo.Context) error {
	productID, err := strconv.ParseInt(c.Param("productId"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid product id", Code: usecase.CodeValidationError})
	}

	out, err := h.uc.RemoveItem(c.Request().Context(), h.cartToken(c), productID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// POST /api/cart/checkout
// 成功したらcookieを無効化して次のアクセスで新カートを発行させる。
func (h *CartHandler) checkoutCart(c echo.Context) error {
	var req CheckoutRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid body", Code: usecase.CodeValidationError})
	}

	out, err := h.checkout.CheckoutCart(c.Request().Context(), h.cartToken(c), usecase.ContactInfo{
		Email: req.Email,
		Phone: req.Phone,
	})
	if err != nil {
		return writeError(c, err)
	}

	h.clearCartCookie(c)
	return c.JSON(http.StatusCreated, out)
}
