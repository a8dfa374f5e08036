package redis

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"gavel/auction"
)

type subscriberOptions struct {
	logger       *slog.Logger
	bufferSize   int
	blockTimeout time.Duration
}

type SubscriberOption func(*subscriberOptions)

// WithSubscriberLogger 設置日誌記錄器
func WithSubscriberLogger(logger *slog.Logger) SubscriberOption {
	return func(o *subscriberOptions) {
		o.logger = logger
	}
}

// WithSubscriberBufferSize 設置下游channel的緩衝大小
func WithSubscriberBufferSize(size int) SubscriberOption {
	return func(o *subscriberOptions) {
		o.bufferSize = size
	}
}

// WithSubscriberBlockTimeout 設置阻塞讀取超時時間
func WithSubscriberBlockTimeout(d time.Duration) SubscriberOption {
	return func(o *subscriberOptions) {
		o.blockTimeout = d
	}
}

// EventSubscriber 從redis stream讀取出價事件並轉發到下游channel
// 每個服務實例各自從stream尾端開始讀，供SSE推播使用
type EventSubscriber struct {
	client     *redis.Client
	stream     string
	lastID     string
	downStream chan auction.BidEvent
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
	closed     bool
	logger     *slog.Logger
	options    subscriberOptions
}

func NewEventSubscriber(client *redis.Client, stream string, opts ...SubscriberOption) (*EventSubscriber, error) {
	if client == nil {
		return nil, errors.New("redis client cannot be nil")
	}
	if stream == "" {
		return nil, errors.New("stream cannot be empty")
	}

	// 默認選項
	options := subscriberOptions{
		logger:       slog.Default(),
		bufferSize:   100,
		blockTimeout: time.Second,
	}
	for _, opt := range opts {
		opt(&options)
	}

	return &EventSubscriber{
		client:  client,
		stream:  stream,
		lastID:  "$",
		closed:  true,
		logger:  options.logger.With(slog.String("caller", "EventSubscriber"), slog.String("stream", stream)),
		options: options,
	}, nil
}

func (s *EventSubscriber) Start() {
	if !s.closed {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.downStream = make(chan auction.BidEvent, s.options.bufferSize)
	s.closed = false
	s.cancelFunc = cancel
	s.logger.Info("starting bid event subscriber")

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.logger.Info("subscriber goroutine stopped")
		defer close(s.downStream)

		for {
			select {
			case <-ctx.Done():
				return
			default:
				message, err := s.fetchNextMessage(ctx)
				if err != nil {
					if errors.Is(err, redis.Nil) {
						continue
					}
					if errors.Is(err, context.Canceled) {
						return
					}
					s.logger.Error("fetch bid event error", slog.Any("error", err))
					continue
				}

				event, err := DecodeBidEvent(message.Values)
				if err != nil {
					s.logger.Error("failed to decode bid event",
						slog.String("messageId", message.ID),
						slog.Any("error", err))
					continue
				}

				select {
				case <-ctx.Done():
					return
				case s.downStream <- event:
					s.logger.Debug("bid event sent to downstream",
						slog.String("messageId", message.ID))
				}
			}
		}
	}()
}

func (s *EventSubscriber) fetchNextMessage(ctx context.Context) (redis.XMessage, error) {
	streams, err := s.client.XRead(ctx, &redis.XReadArgs{
		Streams: []string{s.stream, s.lastID},
		Count:   1,
		Block:   s.options.blockTimeout,
	}).Result()
	if err != nil {
		return redis.XMessage{}, err
	}

	if len(streams) > 0 && len(streams[0].Messages) > 0 {
		message := streams[0].Messages[0]
		s.lastID = message.ID
		return message, nil
	}
	return redis.XMessage{}, redis.Nil
}

// Subscribe 訂閱出價事件流
func (s *EventSubscriber) Subscribe() <-chan auction.BidEvent {
	return s.downStream
}

// Close 關閉訂閱者
func (s *EventSubscriber) Close() {
	if s.closed {
		return
	}
	s.logger.Info("closing bid event subscriber")
	s.closed = true
	s.cancelFunc()
	s.wg.Wait()
	s.logger.Info("bid event subscriber closed")
}
