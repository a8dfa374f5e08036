package auction

import (
	"errors"
	"fmt"
)

// Code 為錯誤分類碼，對應到對外回應的 machine-readable 錯誤代碼
type Code string

const (
	// CodeValidationFailed 出價金額或輸入欄位不符合規則
	CodeValidationFailed Code = "VALIDATION_FAILED"
	// CodeNotFound 刊登商品、代理出價、出價申請或封鎖紀錄不存在
	CodeNotFound Code = "RESOURCE_NOT_FOUND"
	// CodeConflict 重複封鎖、重複驗證或拍賣已結束等狀態衝突
	CodeConflict Code = "CONFLICT"
	// CodeForbidden 賣家對自己的商品出價、非賣家執行驗證等權限問題
	CodeForbidden Code = "FORBIDDEN"
	// CodeDependencyUnavailable 使用者目錄服務無法連線或逾時
	CodeDependencyUnavailable Code = "DEPENDENCY_UNAVAILABLE"
	// CodeIntegrityFault 拍賣狀態毀損，例如最高出價者沒有對應的代理出價紀錄
	CodeIntegrityFault Code = "INTEGRITY_FAULT"
)

// Error 是核心模組對外的錯誤型別，攜帶分類碼與人類可讀訊息
type Error struct {
	Code    Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.cause
}

// NewError 建立一個帶分類碼的錯誤
func NewError(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WrapError 包裝底層錯誤並附上分類碼
func WrapError(code Code, cause error, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), cause: cause}
}

// CodeOf 取出錯誤的分類碼，非核心錯誤一律視為內部錯誤(空碼)
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsCode 判斷錯誤是否屬於指定分類
func IsCode(err error, code Code) bool {
	return CodeOf(err) == code
}
