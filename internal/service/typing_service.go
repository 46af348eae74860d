package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/driftchat/chat-service/internal/events"
	"github.com/driftchat/chat-service/internal/models"
	"github.com/driftchat/chat-service/internal/repository"
	"github.com/driftchat/chat-service/pkg/apperrors"
)

// typingTTL is the visibility window after the last keystroke.
const typingTTL = 3 * time.Second

type TypingService struct {
	typing repository.TypingRepository
	users  repository.UserRepository
	bus    events.Publisher
	log    *zap.SugaredLogger
	now    func() time.Time
}

func NewTypingService(typing repository.TypingRepository, users repository.UserRepository, bus events.Publisher, log *zap.SugaredLogger) *TypingService {
	return &TypingService{typing: typing, users: users, bus: bus, log: log, now: time.Now}
}

// SetTyping refreshes the caller's marker for another TTL window.
func (s *TypingService) SetTyping(ctx context.Context, conversationID, userID string) error {
	if err := s.typing.Upsert(ctx, conversationID, userID, s.now().UTC().Add(typingTTL)); err != nil {
		return fmt.Errorf("set typing: %w", err)
	}
	s.bus.Publish(events.Event{Type: events.TypingChanged, ConversationID: conversationID})
	return nil
}

// ClearTyping removes the caller's marker; clearing an absent marker is a
// no-op.
func (s *TypingService) ClearTyping(ctx context.Context, conversationID, userID string) error {
	if err := s.typing.Delete(ctx, conversationID, userID); err != nil {
		return fmt.Errorf("clear typing: %w", err)
	}
	s.bus.Publish(events.Event{Type: events.TypingChanged, ConversationID: conversationID})
	return nil
}

// ActiveTypers returns who is typing right now, excluding the caller and any
// marker past its expiry.
func (s *TypingService) ActiveTypers(ctx context.Context, conversationID, callerID string) ([]models.Typer, error) {
	indicators, err := s.typing.ListByConversation(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("list typing: %w", err)
	}

	now := s.now().UTC()
	out := make([]models.Typer, 0, len(indicators))
	for _, ind := range indicators {
		if ind.UserID == callerID || !ind.ExpiresAt.After(now) {
			continue
		}
		u, err := s.users.GetByID(ctx, ind.UserID)
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				continue
			}
			return nil, err
		}
		out = append(out, models.Typer{UserID: u.ID, Name: u.Name})
	}
	return out, nil
}
