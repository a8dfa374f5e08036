package api

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"gavel/adapters/media"
	"gavel/models"
)

const defaultMaxUploadBytes = 5 << 20

// PostImage 上傳刊登商品的圖片
// (POST /images)
func (impl *ServerImpl) PostImage(c *gin.Context) {
	const op = "PostImage"
	userID := callerID(c)
	// 檢查是否達到上傳限制
	if impl.config.S3.RateLimitPerHour > 0 {
		key := fmt.Sprintf("upload-limit:%s", userID)
		allowed, err := UploadRateLimitScript.Run(c.Request.Context(), impl.redisClient, []string{key}, impl.config.S3.RateLimitPerHour, 3600).Int()
		if err != nil {
			abortWithError(c, fmt.Errorf("[%s] Fail to check upload rate limit, err=%w", op, err))
			return
		}
		if allowed == 0 {
			c.AbortWithStatus(http.StatusTooManyRequests)
			return
		}
	}
	// 限制圖片
	// 	1. 小於大小上限
	// 	2. MIME類型為不包含腳本的圖片檔案
	maxBytes := impl.config.S3.MaxUploadBytes
	if maxBytes <= 0 {
		maxBytes = defaultMaxUploadBytes
	}
	body := media.NewMaxSizeReader(c.Request.Body, maxBytes)
	file, err := io.ReadAll(body)
	if errors.As(err, &media.ErrReachLimitType) {
		c.JSON(http.StatusBadRequest, errorResponse{
			Code:    "VALIDATION_FAILED",
			Message: err.Error(),
		})
		return
	}
	if err != nil {
		abortWithError(c, fmt.Errorf("[%s] Fail to read image, err=%w", op, err))
		return
	}
	mimeType := http.DetectContentType(file)
	secure, ext := media.CheckSecureImageAndGetExtension(mimeType)
	if !secure {
		c.JSON(http.StatusBadRequest, errorResponse{
			Code:    "VALIDATION_FAILED",
			Message: fmt.Sprintf("Invalid image type: %s", mimeType),
		})
		return
	}
	// 透過S3 API儲存圖片
	url, err := impl.storage.Upload(c.Request.Context(), uuid.New().String()+"."+ext, mimeType, file)
	if err != nil {
		abortWithError(c, fmt.Errorf("[%s] Fail to upload image, err=%w", op, err))
		return
	}
	// 在DB紀錄圖片的上傳紀錄
	image := models.Image{
		UploaderID: userID,
		URL:        url,
	}
	if result := impl.db.WithContext(c.Request.Context()).Create(&image); result.Error != nil {
		abortWithError(c, fmt.Errorf("[%s] Fail to create image record, err=%w", op, result.Error))
		return
	}
	slog.Info("Image uploaded", slog.String("op", op), slog.String("uploader", userID.String()), slog.String("url", url))
	c.Header("Location", url)
	c.Status(http.StatusCreated)
}
