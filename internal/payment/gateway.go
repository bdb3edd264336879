package payment

import (
	"context"
	"errors"
)

// webhook署名が検証できなかった
var ErrInvalidSignature = errors.New("invalid webhook signature")

// 決済ゲートウェイが作った支払い
type Charge struct {
	ID           string
	ClientSecret string
}

// ホスト型決済ページのセッション
type CheckoutSession struct {
	ID  string
	URL string
}

// セッションに載せる行
type SessionLineItem struct {
	Name string
	// 最小通貨単位（centなど）
	UnitAmount int64
	Quantity   int64
}

type RefundResult struct {
	ID        string
	Succeeded bool
}

type EventType string

const (
	EventPaymentSucceeded EventType = "payment_succeeded"
	EventPaymentFailed    EventType = "payment_failed"
	EventChargeRefunded   EventType = "charge_refunded"
	//処理対象外。ACKだけ返す
	EventUnknown EventType = "unknown"
)

// 署名検証済みのwebhookイベント
type Event struct {
	Type EventType
	// 注文のTransactionRefに対応するID
	TransactionRef string
	// charge_refundedのとき、累計返金額（最小通貨単位）
	AmountRefunded int64
}

// 外部決済プロセッサーへの窓口。
// 遅い・落ちる前提の相手なので呼び出しは全てctx付き。
// テストではフェイクに差し替える。
type Gateway interface {
	// amountは最小通貨単位
	CreateCharge(ctx context.Context, amount int64, currency string, metadata map[string]string) (Charge, error)
	CreateCheckoutSession(ctx context.Context, items []SessionLineItem, successURL, cancelURL string, metadata map[string]string) (CheckoutSession, error)
	// セッションIDから下層のcharge（PaymentIntent）を引く
	ResolveCharge(ctx context.Context, sessionID string) (string, error)
	CreateRefund(ctx context.Context, chargeID string, amount int64) (RefundResult, error)
	// 生payloadの署名を共有シークレットで検証してからイベントを返す
	VerifyEvent(payload []byte, signature string) (Event, error)
}
