package redis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/smallnest/chanx"

	"gavel/auction"
)

var ErrPublisherClosed = errors.New("event publisher is closed")

type publisherOptions struct {
	logger     *slog.Logger
	bufferSize int
}

type PublisherOption func(*publisherOptions)

// WithPublisherLogger 設置日誌記錄器
func WithPublisherLogger(logger *slog.Logger) PublisherOption {
	return func(o *publisherOptions) {
		o.logger = logger
	}
}

// WithPublisherBufferSize 設置緩衝大小
func WithPublisherBufferSize(size int) PublisherOption {
	return func(o *publisherOptions) {
		o.bufferSize = size
	}
}

// EventPublisher 將出價事件非同步寫入redis stream
// 實作 auction.BidEventPublisher，Publish 不會因redis慢而阻塞出價流程
type EventPublisher struct {
	client     *redis.Client
	stream     string
	upstream   *chanx.UnboundedChan[auction.BidEvent]
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
	closed     bool
	logger     *slog.Logger
	options    publisherOptions
}

func NewEventPublisher(client *redis.Client, stream string, opts ...PublisherOption) (*EventPublisher, error) {
	if client == nil {
		return nil, errors.New("redis client cannot be nil")
	}
	if stream == "" {
		return nil, errors.New("stream cannot be empty")
	}

	// 默認選項
	options := publisherOptions{
		logger:     slog.Default(),
		bufferSize: 100,
	}
	for _, opt := range opts {
		opt(&options)
	}

	return &EventPublisher{
		client:  client,
		stream:  stream,
		closed:  true,
		logger:  options.logger.With(slog.String("caller", "EventPublisher"), slog.String("stream", stream)),
		options: options,
	}, nil
}

func (p *EventPublisher) Start() {
	if !p.closed {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	p.upstream = chanx.NewUnboundedChan[auction.BidEvent](ctx, p.options.bufferSize)
	p.cancelFunc = cancel
	p.closed = false
	p.logger.Info("starting bid event publisher")

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer p.logger.Info("publisher goroutine stopped")

		for {
			select {
			case <-ctx.Done():
				return
			case event := <-p.upstream.Out:
				message, err := EncodeBidEvent(event)
				if err != nil {
					p.logger.Error("encode bid event error", slog.Any("error", err))
					continue
				}
				id, err := p.client.XAdd(ctx, &redis.XAddArgs{
					Stream: p.stream,
					Values: message,
				}).Result()
				if err != nil {
					if errors.Is(err, context.Canceled) {
						return
					}
					p.logger.Error("publish bid event error", slog.Any("error", err))
					continue
				}
				p.logger.Debug("bid event published", slog.String("messageId", id))
			}
		}
	}()
}

// Publish 將事件送入緩衝，由背景goroutine負責寫入stream
func (p *EventPublisher) Publish(event auction.BidEvent) error {
	if p.closed {
		return fmt.Errorf("publish bid event: %w", ErrPublisherClosed)
	}
	p.upstream.In <- event
	return nil
}

func (p *EventPublisher) Close() {
	if p.closed {
		return
	}
	p.logger.Info("closing bid event publisher")
	p.closed = true
	p.cancelFunc()
	p.wg.Wait()
	p.logger.Info("bid event publisher closed")
}
