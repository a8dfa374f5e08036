package userdir_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gavel/adapters/userdir"
)

func newDirectoryServer(t *testing.T, like, dislike int64) (*httptest.Server, uuid.UUID) {
	t.Helper()
	userID := uuid.New()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NotEmpty(t, r.Header.Get("X-user-id"))
		assert.NotEmpty(t, r.Header.Get("X-user-role"))

		if r.URL.Path != "/api/user/internal/"+userID.String()+"/info" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"data":{"id":"%s","fullname":"王小明","avatar":"https://img.example.com/a.png","like":%d,"dislike":%d}}`, userID, like, dislike)
	}))
	t.Cleanup(server.Close)
	return server, userID
}

func TestClientProfile(t *testing.T) {
	tests := []struct {
		name           string
		like           int64
		dislike        int64
		wantAssessment *float64
	}{
		{
			name:           "有評價時計算好評比例",
			like:           3,
			dislike:        1,
			wantAssessment: ptr(7.5),
		},
		{
			name: "沒有任何評價視為未受評",
		},
		{
			name:    "只有一筆負評也視為未受評",
			dislike: 1,
		},
		{
			name:           "只有負評超過一筆就要計分",
			dislike:        2,
			wantAssessment: ptr(0.0),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server, userID := newDirectoryServer(t, tt.like, tt.dislike)
			client, err := userdir.NewClient(server.URL, userdir.WithServiceIdentity(uuid.New(), "ADMIN"))
			require.NoError(t, err)

			profile, err := client.Profile(context.Background(), userID)
			require.NoError(t, err)
			require.NotNil(t, profile)

			assert.Equal(t, userID, profile.ID)
			assert.Equal(t, "王小明", profile.DisplayName)
			if tt.wantAssessment == nil {
				assert.Nil(t, profile.Assessment)
			} else {
				require.NotNil(t, profile.Assessment)
				assert.InDelta(t, *tt.wantAssessment, *profile.Assessment, 1e-9)
			}
		})
	}
}

func TestClientProfileNotFound(t *testing.T) {
	server, _ := newDirectoryServer(t, 0, 0)
	client, err := userdir.NewClient(server.URL)
	require.NoError(t, err)

	profile, err := client.Profile(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Nil(t, profile, "查無使用者時回傳nil而不是錯誤")
}

func TestClientProfileServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(server.Close)

	client, err := userdir.NewClient(server.URL)
	require.NoError(t, err)

	_, err = client.Profile(context.Background(), uuid.New())
	assert.Error(t, err)
}

func TestClientProfileUnreachable(t *testing.T) {
	client, err := userdir.NewClient("http://127.0.0.1:1")
	require.NoError(t, err)

	_, err = client.Profile(context.Background(), uuid.New())
	assert.Error(t, err)
}

func TestMaskFullname(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "空字串原樣回傳", input: "", expected: ""},
		{name: "單字元名字不遮蔽", input: "王", expected: "王"},
		{name: "兩字元名字遮蔽尾字", input: "小明", expected: "小*"},
		{name: "三字元名字保留頭尾", input: "王小明", expected: "王*明"},
		{name: "多段姓名只保留最後一段的頭尾", input: "John Smith", expected: "**** S***h"},
		{name: "前後空白先修剪", input: "  Alice  ", expected: "A***e"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, userdir.MaskFullname(tt.input))
		})
	}
}

func ptr(v float64) *float64 {
	return &v
}
