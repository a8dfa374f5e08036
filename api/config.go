package api

type ServerConfig struct {
	S3            S3Config
	DB            DBConfig
	Redis         RedisConfig
	UserDirectory UserDirectoryConfig
	Auth          AuthConfig
	Auction       AuctionConfig
}

type S3Config struct {
	AccessKeyID     string
	SecretAccessKey string
	Endpoint        string
	Bucket          string
	PublicBaseURL   string

	// RateLimitPerHour 每位使用者每小時可上傳的圖片數量，0表示不限制
	RateLimitPerHour int64
	// MaxUploadBytes 單張圖片的大小上限
	MaxUploadBytes int64
}

type DBConfig struct {
	User     string
	Password string
	Host     string
	Port     int
	Database string
	Schema   string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int

	StreamKeys RedisStreamKeys
}

type RedisStreamKeys struct {
	Bids string
}

type UserDirectoryConfig struct {
	BaseURL     string
	ServiceID   string
	ServiceRole string
}

type AuthConfig struct {
	// PublicKeyPEM 用於驗證access token簽章的Ed25519公鑰(PEM格式)
	PublicKeyPEM string
}

type AuctionConfig struct {
	// MinimumAssessment 系統設定缺失時的最低評價門檻
	MinimumAssessment float64
}
