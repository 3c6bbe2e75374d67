package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"aichat-backend/internal/model"
)

// ChatEvent is the body published after a chat record is committed.
type ChatEvent struct {
	ID        uint      `json:"id"`
	UserID    uint      `json:"user_id"`
	Message   string    `json:"message"`
	Response  string    `json:"response"`
	CreatedAt time.Time `json:"created_at"`
}

func NewChatEvent(record model.ChatHistory) ChatEvent {
	return ChatEvent{
		ID:        record.ID,
		UserID:    record.UserID,
		Message:   record.Message,
		Response:  record.Response,
		CreatedAt: record.CreatedAt,
	}
}

type ChatEventPublisher struct {
	conn      *amqp.Connection
	queueName string
}

func NewChatEventPublisher(conn *amqp.Connection, queueName string) *ChatEventPublisher {
	return &ChatEventPublisher{
		conn:      conn,
		queueName: queueName,
	}
}

func (p *ChatEventPublisher) PublishChatCreated(ctx context.Context, record model.ChatHistory) error {
	payload, err := json.Marshal(NewChatEvent(record))
	if err != nil {
		return fmt.Errorf("marshal chat event failed: %w", err)
	}

	ch, err := p.conn.Channel()
	if err != nil {
		return fmt.Errorf("open rabbitmq channel failed: %w", err)
	}
	defer ch.Close()

	_, err = ch.QueueDeclare(
		p.queueName,
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("declare queue failed: %w", err)
	}

	if err := ch.PublishWithContext(
		ctx,
		"",
		p.queueName,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         payload,
			DeliveryMode: amqp.Persistent,
			Timestamp:    record.CreatedAt,
		},
	); err != nil {
		return fmt.Errorf("publish chat event failed: %w", err)
	}
	return nil
}
