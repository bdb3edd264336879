package usecase

import (
	"context"
	"fmt"
	"net/http"

	"app/internal/domain/model"
	repo "app/internal/repository"

	"github.com/shopspring/decimal"
)

// CartUsecase は /cart の業務ロジックです。
// カートはcookieの不透明トークンで識別する（ログイン不要）。
type CartUsecase struct {
	cartRepo     repo.CartRepository
	cartItemRepo repo.CartItemRepository
	productRepo  repo.ProductRepository
}

func NewCartUsecase(
	cartRepo repo.CartRepository,
	cartItemRepo repo.CartItemRepository,
	productRepo repo.ProductRepository,
) *CartUsecase {
	return &CartUsecase{
		cartRepo:     cartRepo,
		cartItemRepo: cartItemRepo,
		productRepo:  productRepo,
	}
}

// 明細＋商品詳細
type CartItemResponse struct {
	ID        int64           `json:"id"`
	ProductID int64           `json:"product_id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int64           `json:"quantity"`
	ImageURL  string          `json:"image_url,omitempty"`
}

type CartResponse struct {
	CartID string             `json:"cart_id"`
	Items  []CartItemResponse `json:"items"`
	Total  decimal.Decimal    `json:"total"`
}

type AddCartItemInput struct {
	ProductID int64
	Quantity  int64
}

// GetOrCreateCart はトークンのカートを返す。
// トークン無し・存在しない・CHECKED_OUT済みなら新しいカートを発行する。
// 呼び出し側（HTTP層）は返ったCartIDをcookieに保存すること。
func (u *CartUsecase) GetOrCreateCart(ctx context.Context, token string, sessionID string) (CartResponse, bool, error) {
	if token != "" {
		cart, err := u.cartRepo.FindByID(ctx, token)
		if err == nil && cart.Status == model.CartStatusActive {
			resp, berr := u.buildCartResponse(ctx, cart.ID)
			if berr != nil {
				return CartResponse{}, false, berr
			}
			return resp, false, nil
		}
		if err != nil && err != repo.ErrNotFound {
			return CartResponse{}, false, NewHTTPError(http.StatusInternalServerError, CodeInternal, "db error")
		}
		//存在しない or 使用済み → 新規発行
	}

	cart, err := u.cartRepo.Create(ctx, model.Cart{
		ID:        model.NewCartID(),
		SessionID: sessionID,
		Status:    model.CartStatusActive,
	})
	if err != nil {
		return CartResponse{}, false, NewHTTPError(http.StatusInternalServerError, CodeInternal, "db error")
	}

	return CartResponse{CartID: cart.ID, Items: []CartItemResponse{}, Total: decimal.Zero}, true, nil
}

// AddItem はカートに追加（同一商品は数量加算）。
func (u *CartUsecase) AddItem(ctx context.Context, cartID string, in AddCartItemInput) (CartResponse, error) {
	if cartID == "" {
		return CartResponse{}, NewHTTPError(http.StatusBadRequest, CodeValidationError, "cart token required")
	}
	if in.ProductID <= 0 {
		return CartResponse{}, NewHTTPError(http.StatusBadRequest, CodeValidationError, "invalid product_id")
	}
	if in.Quantity < 1 {
		return CartResponse{}, NewHTTPError(http.StatusBadRequest, CodeValidationError, "invalid quantity")
	}

	cart, err := u.cartRepo.FindByID(ctx, cartID)
	if err == repo.ErrNotFound {
		return CartResponse{}, NewHTTPError(http.StatusNotFound, CodeNotFound, "cart not found")
	}
	if err != nil {
		return CartResponse{}, NewHTTPError(http.StatusInternalServerError, CodeInternal, "db error")
	}

	//使用済みカートは変更不可。新しいカートを取り直してもらう
	if cart.Status != model.CartStatusActive {
		return CartResponse{}, NewHTTPError(http.StatusBadRequest, CodeValidationError, "cart already checked out")
	}

	p, err := u.productRepo.FindByID(ctx, in.ProductID)
	if err == repo.ErrNotFound {
		return CartResponse{}, NewHTTPError(http.StatusNotFound, CodeNotFound, "product not found")
	}
	if err != nil {
		return CartResponse{}, NewHTTPError(http.StatusInternalServerError, CodeInternal, "db error")
	}

	// 既存数量と合わせて在庫を超えないか
	items, err := u.cartItemRepo.ListByCartID(ctx, cart.ID)
	if err != nil {
		return CartResponse{}, NewHTTPError(http.StatusInternalServerError, CodeInternal, "db error")
	}

	var existingQty int64 = 0
	for _, it := range items {
		if it.ProductID == in.ProductID {
			existingQty = it.Quantity
			break
		}
	}

	if existingQty+in.Quantity > p.Stock {
		return CartResponse{}, NewHTTPErrorWithDetails(
			http.StatusBadRequest, CodeOutOfStock, "insufficient stock",
			[]string{outOfStockDetail(p)},
		)
	}

	if err := u.cartItemRepo.UpsertByCartAndProduct(ctx, cart.ID, in.ProductID, in.Quantity); err != nil {
		return CartResponse{}, NewHTTPError(http.StatusInternalServerError, CodeInternal, "db error")
	}

	return u.buildCartResponse(ctx, cart.ID)
}

// RemoveItem は明細を削除する。該当商品が無くてもエラーにしない。
func (u *CartUsecase) RemoveItem(ctx context.Context, cartID string, productID int64) (CartResponse, error) {
	if cartID == "" {
		return CartResponse{}, NewHTTPError(http.StatusBadRequest, CodeValidationError, "cart token required")
	}

	cart, err := u.cartRepo.FindByID(ctx, cartID)
	if err == repo.ErrNotFound {
		return CartResponse{}, NewHTTPError(http.StatusNotFound, CodeNotFound, "cart not found")
	}
	if err != nil {
		return CartResponse{}, NewHTTPError(http.StatusInternalServerError, CodeInternal, "db error")
	}

	if err := u.cartItemRepo.DeleteByCartAndProduct(ctx, cart.ID, productID); err != nil {
		return CartResponse{}, NewHTTPError(http.StatusInternalServerError, CodeInternal, "db error")
	}

	return u.buildCartResponse(ctx, cart.ID)
}

// cartIDの明細をまとめてCartResponseを作る。
func (u *CartUsecase) buildCartResponse(ctx context.Context, cartID string) (CartResponse, error) {
	items, err := u.cartItemRepo.ListByCartID(ctx, cartID)
	if err != nil {
		return CartResponse{}, NewHTTPError(http.StatusInternalServerError, CodeInternal, "db error")
	}

	respItems := make([]CartItemResponse, 0, len(items))
	total := decimal.Zero

	for _, it := range items {
		p, err := u.productRepo.FindByID(ctx, it.ProductID)
		if err != nil {
			continue
		}

		line := p.Price.Mul(decimal.NewFromInt(it.Quantity))
		total = total.Add(line)

		respItems = append(respItems, CartItemResponse{
			ID:        it.ID,
			ProductID: it.ProductID,
			Name:      p.Name,
			Price:     p.Price,
			Quantity:  it.Quantity,
			ImageURL:  p.ImageURL,
		})
	}

	return CartResponse{CartID: cartID, Items: respItems, Total: total}, nil
}

func outOfStockDetail(p model.Product) string {
	return fmt.Sprintf("product %d (%s): insufficient stock", p.ID, p.Name)
}
