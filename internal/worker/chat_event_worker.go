package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	"aichat-backend/internal/model"
	"aichat-backend/internal/platform/rabbitmq"
)

// ErrMalformedEvent marks deliveries that can never succeed; they are dropped
// instead of requeued.
var ErrMalformedEvent = errors.New("malformed chat event")

const retryDelay = time.Second

type HistoryLister interface {
	ListByUserID(ctx context.Context, userID uint, limit int) ([]model.ChatHistory, error)
}

type HistoryStore interface {
	SetHistory(ctx context.Context, userID uint, records []model.ChatHistory) error
}

// ChatEventWorker consumes chat.completed events and rebuilds the sender's
// cached history from the database.
type ChatEventWorker struct {
	conn      *amqp.Connection
	repo      HistoryLister
	cache     HistoryStore
	queueName string
	log       logrus.FieldLogger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewChatEventWorker(conn *amqp.Connection, repo HistoryLister, cache HistoryStore, queueName string, log logrus.FieldLogger) *ChatEventWorker {
	return &ChatEventWorker{
		conn:      conn,
		repo:      repo,
		cache:     cache,
		queueName: queueName,
		log:       log.WithField("component", "chat_event_worker"),
	}
}

func (w *ChatEventWorker) Start(ctx context.Context) error {
	if w.cancel != nil {
		return nil
	}

	workerCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	ch, err := w.conn.Channel()
	if err != nil {
		cancel()
		return fmt.Errorf("open worker channel failed: %w", err)
	}

	_, err = ch.QueueDeclare(
		w.queueName,
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("declare worker queue failed: %w", err)
	}

	deliveries, err := ch.Consume(
		w.queueName,
		"",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("consume queue failed: %w", err)
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer ch.Close()

		for {
			select {
			case <-workerCtx.Done():
				return
			case d, ok := <-deliveries:
				if !ok {
					return
				}
				if err := w.Handle(workerCtx, d.Body); err != nil {
					if errors.Is(err, ErrMalformedEvent) {
						w.log.WithError(err).Warn("chat event dropped")
						_ = d.Nack(false, false)
						continue
					}
					w.log.WithError(err).Warn("chat event requeued")
					select {
					case <-workerCtx.Done():
					case <-time.After(retryDelay):
					}
					_ = d.Nack(false, true)
					continue
				}
				_ = d.Ack(false)
			}
		}
	}()

	w.log.WithField("queue", w.queueName).Info("chat event worker started")
	return nil
}

// Handle refreshes the cached history of the user named in body.
func (w *ChatEventWorker) Handle(ctx context.Context, body []byte) error {
	var event rabbitmq.ChatEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	if event.UserID == 0 {
		return fmt.Errorf("%w: event %d has no user", ErrMalformedEvent, event.ID)
	}

	records, err := w.repo.ListByUserID(ctx, event.UserID, 0)
	if err != nil {
		return fmt.Errorf("list history for user %d failed: %w", event.UserID, err)
	}
	return w.cache.SetHistory(ctx, event.UserID, records)
}

func (w *ChatEventWorker) Close() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}
