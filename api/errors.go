package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"gavel/auction"
)

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

var codeToStatus = map[auction.Code]int{
	auction.CodeValidationFailed:      http.StatusBadRequest,
	auction.CodeNotFound:              http.StatusNotFound,
	auction.CodeConflict:              http.StatusConflict,
	auction.CodeForbidden:             http.StatusForbidden,
	auction.CodeDependencyUnavailable: http.StatusServiceUnavailable,
	auction.CodeIntegrityFault:        http.StatusInternalServerError,
}

// abortWithError 將核心模組的錯誤轉換為對應的HTTP回應
// 未分類的錯誤一律以500回應，並且不洩漏內部錯誤訊息
func abortWithError(c *gin.Context, err error) {
	var coreErr *auction.Error
	if errors.As(err, &coreErr) {
		status, ok := codeToStatus[coreErr.Code]
		if !ok {
			status = http.StatusInternalServerError
		}
		if status == http.StatusInternalServerError {
			slog.Error("Request failed with internal error", slog.String("path", c.FullPath()), slog.Any("error", err))
		}
		c.AbortWithStatusJSON(status, errorResponse{
			Code:    string(coreErr.Code),
			Message: coreErr.Message,
		})
		return
	}
	slog.Error("Request failed with unexpected error", slog.String("path", c.FullPath()), slog.Any("error", err))
	c.AbortWithStatusJSON(http.StatusInternalServerError, errorResponse{
		Code:    "INTERNAL_ERROR",
		Message: "unexpected error",
	})
}
