package usecase

import (
	"errors"
	"fmt"
)

// エラーコード。クライアントが機械的に判定できるようにする。
const (
	CodeNotFound             = "NOT_FOUND"
	CodeEmptyCart            = "EMPTY_CART"
	CodeOutOfStock           = "OUT_OF_STOCK"
	CodeInvalidAmount        = "INVALID_AMOUNT"
	CodeMissingTransaction   = "MISSING_TRANSACTION_REF"
	CodeGatewayError         = "GATEWAY_ERROR"
	CodeInvalidSignature     = "INVALID_SIGNATURE"
	CodeValidationError      = "VALIDATION_ERROR"
	CodeRefundReconciliation = "REFUND_RECONCILIATION"
	CodeInternal             = "INTERNAL"
)

type HTTPError struct {
	Status  int
	Code    string
	Message string
	//OUT_OF_STOCKのとき、在庫不足の商品一覧
	Details []string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%d %s: %s", e.Status, e.Code, e.Message)
}

func NewHTTPError(status int, code string, message string) error {
	return &HTTPError{
		Status:  status,
		Code:    code,
		Message: message,
	}
}

func NewHTTPErrorWithDetails(status int, code string, message string, details []string) error {
	return &HTTPError{
		Status:  status,
		Code:    code,
		Message: message,
		Details: details,
	}
}

func AsHTTPError(err error) (*HTTPError, bool) {
	var he *HTTPError
	if errors.As(err, &he) {
		return he, true
	}
	return nil, false
}
