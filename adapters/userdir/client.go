package userdir

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"

	"gavel/auction"
)

// userInfoResponse 是使用者目錄服務內部介面的回應格式
type userInfoResponse struct {
	ID       uuid.UUID `json:"id"`
	Fullname string    `json:"fullname"`
	Avatar   string    `json:"avatar"`
	Like     int64     `json:"like"`
	Dislike  int64     `json:"dislike"`
}

type apiResponse struct {
	Data *userInfoResponse `json:"data"`
}

// Client 透過使用者目錄服務的內部介面查詢出價者資料
// 實作 auction.UserDirectory
type Client struct {
	// BaseURL 是使用者目錄服務的位址。
	BaseURL *url.URL
	// HTTPClient 是發送請求用的客戶端。
	HTTPClient *http.Client
	// ServiceID 是本服務呼叫內部介面時使用的身分。
	ServiceID uuid.UUID
	// ServiceRole 是本服務呼叫內部介面時使用的角色。
	ServiceRole string
}

type ClientOption func(*Client)

// WithHTTPClient 設置自定義的HTTP客戶端
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		c.HTTPClient = httpClient
	}
}

// WithServiceIdentity 設置呼叫內部介面時攜帶的服務身分
func WithServiceIdentity(id uuid.UUID, role string) ClientOption {
	return func(c *Client) {
		c.ServiceID = id
		c.ServiceRole = role
	}
}

func NewClient(baseURL string, opts ...ClientOption) (*Client, error) {
	const op = "NewClient"
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("[%s] Fail to parse base URL, err=%w", op, err)
	}
	client := &Client{
		BaseURL:     parsed,
		HTTPClient:  &http.Client{Timeout: 5 * time.Second},
		ServiceRole: "ADMIN",
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Profile 查詢指定使用者的基本資料與評價分數
// 查無使用者時回傳 (nil, nil)，服務無法連線或回應異常時回傳錯誤
func (c *Client) Profile(ctx context.Context, id uuid.UUID) (*auction.Profile, error) {
	const op = "Profile"
	uri := *c.BaseURL
	uri.Path, _ = url.JoinPath(uri.Path, "api", "user", "internal", id.String(), "info")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("[%s] Fail to build request, err=%w", op, err)
	}
	req.Header.Set("X-user-id", c.ServiceID.String())
	req.Header.Set("X-user-role", c.ServiceRole)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("[%s] Fail to call user directory, err=%w", op, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, nil
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("[%s] Unexpected status %d from user directory", op, resp.StatusCode)
	}

	var body apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("[%s] Fail to decode response, err=%w", op, err)
	}
	if body.Data == nil {
		return nil, nil
	}
	return toProfile(body.Data), nil
}

// toProfile 將目錄服務的回應轉為評價後的出價者資料
// 沒有任何評價、或只有一筆負評時視為未受評，給新使用者一次機會
func toProfile(info *userInfoResponse) *auction.Profile {
	profile := &auction.Profile{
		ID:          info.ID,
		DisplayName: info.Fullname,
		AvatarURL:   info.Avatar,
	}
	like, dislike := float64(info.Like), float64(info.Dislike)
	switch {
	case like == 0 && dislike == 0:
	case like == 0 && dislike == 1:
	default:
		assessment := like / (like + dislike) * 10
		profile.Assessment = &assessment
	}
	return profile
}
