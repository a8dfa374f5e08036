package api

import (
	"context"
	"crypto/ed25519"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	awsCfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/schema"

	"gavel/adapters/media"
	redisAdapter "gavel/adapters/redis"
	"gavel/adapters/sse"
	"gavel/adapters/userdir"
	"gavel/auction"
)

type ServerImpl struct {
	service     *auction.Service
	users       *userdir.Client
	sseManager  sse.IManager
	publisher   redisAdapter.IEventPublisher
	locker      *redisAdapter.ListingLocker
	storage     *media.Storage
	htmlChecker *bluemonday.Policy
	redisClient *redis.Client
	db          *gorm.DB
	authKey     ed25519.PublicKey

	config ServerConfig
}

func NewServer(config ServerConfig) (*ServerImpl, error) {
	const op = "NewServer"

	// 解析access token的驗證金鑰
	authKey, err := ParseEd25519PublicKey(config.Auth.PublicKeyPEM)
	if err != nil {
		return nil, fmt.Errorf("[%s] Fail to parse auth public key, err=%w", op, err)
	}

	// 初始化S3客戶端
	s3Cfg, err := awsCfg.LoadDefaultConfig(
		context.Background(),
		awsCfg.WithBaseEndpoint(config.S3.Endpoint),
		awsCfg.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(config.S3.AccessKeyID, config.S3.SecretAccessKey, "")),
		awsCfg.WithRegion("auto"),
	)
	if err != nil {
		return nil, fmt.Errorf("[%s] Fail to load AWS config, err=%w", op, err)
	}
	storage, err := media.NewStorage(s3.NewFromConfig(s3Cfg), config.S3.Bucket, config.S3.PublicBaseURL)
	if err != nil {
		return nil, fmt.Errorf("[%s] Fail to create media storage, err=%w", op, err)
	}

	// 初始化資料庫連線
	dsn := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable&search_path=%s", config.DB.User, config.DB.Password, config.DB.Host, config.DB.Port, config.DB.Database, config.DB.Schema)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		TranslateError: true,
		NamingStrategy: schema.NamingStrategy{
			TablePrefix: config.DB.Schema + ".",
		},
	})
	if err != nil {
		return nil, fmt.Errorf("[%s] Fail to connect to database, err=%w", op, err)
	}

	// 初始化Redis連線
	redisClient := redis.NewClient(&redis.Options{
		Addr:     config.Redis.Addr,
		Password: config.Redis.Password,
		DB:       config.Redis.DB,
	})

	// 初始化出價事件的發布與訂閱
	publisher, err := redisAdapter.NewEventPublisher(redisClient, config.Redis.StreamKeys.Bids)
	if err != nil {
		return nil, fmt.Errorf("[%s] Fail to create event publisher, err=%w", op, err)
	}
	subscriber, err := redisAdapter.NewEventSubscriber(redisClient, config.Redis.StreamKeys.Bids)
	if err != nil {
		return nil, fmt.Errorf("[%s] Fail to create event subscriber, err=%w", op, err)
	}
	sseManager := sse.NewManager(subscriber, slog.Default())

	// 初始化使用者目錄客戶端
	serviceID, err := uuid.Parse(config.UserDirectory.ServiceID)
	if err != nil {
		return nil, fmt.Errorf("[%s] Fail to parse user directory service id, err=%w", op, err)
	}
	users, err := userdir.NewClient(
		config.UserDirectory.BaseURL,
		userdir.WithServiceIdentity(serviceID, config.UserDirectory.ServiceRole),
	)
	if err != nil {
		return nil, fmt.Errorf("[%s] Fail to create user directory client, err=%w", op, err)
	}

	// 初始化核心服務
	service := auction.NewService(
		auction.NewGormStore(db),
		users,
		auction.Config{DefaultMinimumAssessment: config.Auction.MinimumAssessment},
		auction.WithEventPublisher(publisher),
	)

	return &ServerImpl{
		service:     service,
		users:       users,
		sseManager:  sseManager,
		publisher:   publisher,
		locker:      redisAdapter.NewListingLocker(redisClient),
		storage:     storage,
		htmlChecker: bluemonday.UGCPolicy(),
		redisClient: redisClient,
		db:          db,
		authKey:     authKey,
		config:      config,
	}, nil
}

func (impl *ServerImpl) Start() {
	// 啟動publisher
	impl.publisher.Start()
	// 啟動sse manager(連同其事件來源)
	impl.sseManager.Start()
}

func (impl *ServerImpl) Close() {
	// 關閉sse manager與其事件來源
	impl.sseManager.Done()
	// 關閉publisher
	impl.publisher.Close()
	// 關閉Redis連線
	if err := impl.redisClient.Close(); err != nil {
		slog.Error("Fail to close redis client", slog.Any("error", err))
	}
}

func (impl *ServerImpl) RegisterRoutes(router *gin.Engine) {
	auth := impl.requireAuth()

	group := router.Group("/auction")
	group.POST("/listings", auth, impl.CreateListing)
	group.GET("/listings/:listingID", impl.GetListing)
	group.POST("/listings/:listingID/bids", auth, impl.PlaceBid)
	group.GET("/listings/:listingID/can-bid", auth, impl.CheckCanBid)
	group.GET("/listings/:listingID/bid-history", impl.ListBidHistory)
	group.GET("/listings/:listingID/proxy-bids", auth, impl.ListProxyBids)
	group.POST("/listings/:listingID/blacklist", auth, impl.BlockBidder)
	group.GET("/listings/:listingID/blacklist", auth, impl.ListBlacklist)
	group.POST("/listings/:listingID/bid-requests/:bidderID/verify", auth, impl.VerifyBidRequest)
	group.GET("/listings/:listingID/bid-requests", auth, impl.ListBidRequests)
	group.GET("/listings/:listingID/events", impl.StreamListingEvents)

	router.POST("/images", auth, impl.PostImage)
}

const (
	contextKeyToken    = "token"
	contextKeyCallerID = "callerID"
)

// requireAuth 驗證access token並將呼叫者資訊放入請求上下文
func (impl *ServerImpl) requireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		const op = "RequireAuth"
		header := c.GetHeader("Authorization")
		tokenString, found := strings.CutPrefix(header, "Bearer ")
		if !found || tokenString == "" {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		token, err := ParseAndValidateToken(tokenString, impl.authKey)
		if err != nil {
			slog.Debug("Fail to parse and validate token", slog.String("op", op), slog.Any("error", err))
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		callerID, err := uuid.Parse(token.Subject)
		if err != nil {
			slog.Debug("Token subject is not a valid id", slog.String("op", op), slog.Any("error", err))
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		c.Set(contextKeyToken, token)
		c.Set(contextKeyCallerID, callerID)
		c.Next()
	}
}

func callerID(c *gin.Context) uuid.UUID {
	return c.MustGet(contextKeyCallerID).(uuid.UUID)
}

func callerToken(c *gin.Context) *Token {
	return c.MustGet(contextKeyToken).(*Token)
}

func listingIDParam(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("listingID"))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{
			Code:    string(auction.CodeValidationFailed),
			Message: "invalid listing id",
		})
		return uuid.Nil, false
	}
	return id, true
}
