package app

import (
	"context"
	"errors"
	"strings"

	"github.com/sirupsen/logrus"

	"aichat-backend/internal/model"
	"aichat-backend/internal/repository"
)

var ErrMessageEmpty = errors.New("message is required")

// Completer produces one assistant reply for one user message.
type Completer interface {
	Complete(ctx context.Context, systemPrompt, userMessage string) (string, error)
}

type HistoryCache interface {
	GetHistory(ctx context.Context, userID uint) ([]model.ChatHistory, bool, error)
	SetHistory(ctx context.Context, userID uint, records []model.ChatHistory) error
	DeleteHistory(ctx context.Context, userID uint) error
	MarkDirty(ctx context.Context, userID uint) error
	IsDirty(ctx context.Context, userID uint) (bool, error)
}

type ChatEventPublisher interface {
	PublishChatCreated(ctx context.Context, record model.ChatHistory) error
}

type ChatService struct {
	historyRepo  *repository.ChatHistoryRepository
	llm          Completer
	systemPrompt string
	historyCache HistoryCache
	publisher    ChatEventPublisher
	log          logrus.FieldLogger
}

type ChatOption func(*ChatService)

func WithHistoryCache(cache HistoryCache) ChatOption {
	return func(s *ChatService) { s.historyCache = cache }
}

func WithEventPublisher(publisher ChatEventPublisher) ChatOption {
	return func(s *ChatService) { s.publisher = publisher }
}

func NewChatService(
	historyRepo *repository.ChatHistoryRepository,
	llm Completer,
	systemPrompt string,
	log logrus.FieldLogger,
	opts ...ChatOption,
) *ChatService {
	s := &ChatService{
		historyRepo:  historyRepo,
		llm:          llm,
		systemPrompt: systemPrompt,
		log:          log,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Send asks the model for a reply and records the exchange. Nothing is stored
// unless the model answered.
func (s *ChatService) Send(ctx context.Context, userID uint, message string) (*model.ChatHistory, error) {
	if userID == 0 {
		return nil, ErrInvalidCredential
	}
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, ErrMessageEmpty
	}

	logger := s.log.WithField("user_id", userID)

	reply, err := s.llm.Complete(ctx, s.systemPrompt, message)
	if err != nil {
		logger.WithError(err).Warn("completion failed")
		return nil, err
	}

	record := &model.ChatHistory{
		UserID:   userID,
		Message:  message,
		Response: reply,
	}
	if err := s.historyRepo.Create(ctx, record); err != nil {
		logger.WithError(err).Error("persist chat history failed")
		return nil, err
	}

	if s.historyCache != nil {
		if err := s.historyCache.MarkDirty(ctx, userID); err != nil {
			logger.WithError(err).Warn("mark history cache dirty failed")
		}
		if err := s.historyCache.DeleteHistory(ctx, userID); err != nil {
			logger.WithError(err).Warn("invalidate history cache failed")
		}
	}
	if s.publisher != nil {
		if err := s.publisher.PublishChatCreated(ctx, *record); err != nil {
			logger.WithError(err).Warn("publish chat event failed")
		}
	}
	return record, nil
}

// History lists every record of the user, newest first. The cache is neither
// read nor filled while a recent write has marked it dirty.
func (s *ChatService) History(ctx context.Context, userID uint) ([]model.ChatHistory, error) {
	if userID == 0 {
		return nil, ErrInvalidCredential
	}

	logger := s.log.WithField("user_id", userID)
	if s.historyCache != nil {
		dirty, err := s.historyCache.IsDirty(ctx, userID)
		if err != nil {
			logger.WithError(err).Warn("check history cache failed")
		} else if !dirty {
			cached, hit, err := s.historyCache.GetHistory(ctx, userID)
			if err != nil {
				logger.WithError(err).Warn("read history cache failed")
			} else if hit {
				return cached, nil
			}
		}
	}

	records, err := s.historyRepo.ListByUserID(ctx, userID, 0)
	if err != nil {
		return nil, err
	}

	if s.historyCache != nil {
		s.fillHistoryCache(ctx, logger, userID, records)
	}
	return records, nil
}

func (s *ChatService) fillHistoryCache(ctx context.Context, logger logrus.FieldLogger, userID uint, records []model.ChatHistory) {
	if dirty, err := s.historyCache.IsDirty(ctx, userID); err != nil || dirty {
		return
	}
	if err := s.historyCache.SetHistory(ctx, userID, records); err != nil {
		logger.WithError(err).Warn("fill history cache failed")
		return
	}

	// a send that committed after the listing marks the key before deleting it
	if dirty, err := s.historyCache.IsDirty(ctx, userID); err != nil || dirty {
		if err := s.historyCache.DeleteHistory(ctx, userID); err != nil {
			logger.WithError(err).Warn("drop stale history cache failed")
		}
	}
}
