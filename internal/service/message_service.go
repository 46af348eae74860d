package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/driftchat/chat-service/internal/events"
	"github.com/driftchat/chat-service/internal/metrics"
	"github.com/driftchat/chat-service/internal/models"
	"github.com/driftchat/chat-service/internal/repository"
	"github.com/driftchat/chat-service/pkg/apperrors"
)

const (
	// messageTTL is how long a message in an ephemeral conversation lives.
	messageTTL = 24 * time.Hour
	previewLen = 50

	defaultPageSize = 50
	maxPageSize     = 100
)

type MessageService struct {
	messages repository.MessageRepository
	convs    repository.ConversationRepository
	members  repository.MemberRepository
	users    repository.UserRepository
	typing   repository.TypingRepository
	bus      events.Publisher
	log      *zap.SugaredLogger
	now      func() time.Time
}

func NewMessageService(
	messages repository.MessageRepository,
	convs repository.ConversationRepository,
	members repository.MemberRepository,
	users repository.UserRepository,
	typing repository.TypingRepository,
	bus events.Publisher,
	log *zap.SugaredLogger,
) *MessageService {
	return &MessageService{
		messages: messages,
		convs:    convs,
		members:  members,
		users:    users,
		typing:   typing,
		bus:      bus,
		log:      log,
		now:      time.Now,
	}
}

// Send appends a message. Expiry is decided by the conversation's ephemeral
// flag at send time and never revisited. The preview update and the typing
// clear are separate steps after the insert; a stale indicator self-heals
// within its 3s TTL.
func (s *MessageService) Send(ctx context.Context, conversationID, senderID, content string) (*models.MessageView, error) {
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("%w: empty message", apperrors.ErrBadRequest)
	}

	conv, err := s.convs.Get(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	if _, err := s.members.Get(ctx, conversationID, senderID); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, fmt.Errorf("%w: not a member of this conversation", apperrors.ErrUnauthorized)
		}
		return nil, err
	}
	sender, err := s.users.GetByID(ctx, senderID)
	if err != nil {
		return nil, fmt.Errorf("sender: %w", err)
	}

	now := s.now().UTC()
	msg := &models.Message{
		ID:             uuid.NewString(),
		ConversationID: conversationID,
		SenderID:       senderID,
		Content:        content,
		Reactions:      []models.Reaction{},
		CreatedAt:      now,
	}
	if conv.IsEphemeral {
		expires := now.Add(messageTTL)
		msg.ExpiresAt = &expires
	}
	if err := s.messages.Insert(ctx, msg); err != nil {
		return nil, fmt.Errorf("insert message: %w", err)
	}

	preview := sender.Name + ": " + truncate(content, previewLen)
	if err := s.convs.UpdateLastMessage(ctx, conversationID, preview, now); err != nil {
		s.log.Warnw("update preview", "conversation", conversationID, "err", err)
	}
	if err := s.typing.Delete(ctx, conversationID, senderID); err != nil {
		s.log.Warnw("clear typing", "conversation", conversationID, "err", err)
	}

	view := &models.MessageView{Message: *msg, SenderName: sender.Name, SenderAvatarURL: sender.AvatarURL}
	s.bus.Publish(events.Event{Type: events.MessageSent, ConversationID: conversationID, Payload: view})
	metrics.MessagesSent.Inc()
	return view, nil
}

// List returns one page of messages, newest first. Messages past their expiry
// are filtered here even if the sweep has not deleted them yet, so a page may
// come back shorter than the limit. The cursor is taken from the raw page so
// pagination stays stable regardless of filtering.
func (s *MessageService) List(ctx context.Context, conversationID, cursor string, limit int) ([]models.MessageView, string, error) {
	if _, err := s.convs.Get(ctx, conversationID); err != nil {
		return nil, "", err
	}
	c, err := decodeCursor(cursor)
	if err != nil {
		return nil, "", err
	}
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}

	page, err := s.messages.ListPage(ctx, conversationID, c.CreatedAt, c.ID, int64(limit)+1)
	if err != nil {
		return nil, "", fmt.Errorf("list messages: %w", err)
	}

	next := ""
	if len(page) > limit {
		page = page[:limit]
		last := page[len(page)-1]
		next = encodeCursor(pageCursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}

	now := s.now().UTC()
	cache := newUserCache(s.users)
	out := make([]models.MessageView, 0, len(page))
	for _, msg := range page {
		if msg.Expired(now) {
			continue
		}
		view := models.MessageView{Message: msg, SenderName: "Unknown"}
		if sender, err := cache.get(ctx, msg.SenderID); err == nil {
			view.SenderName = sender.Name
			view.SenderAvatarURL = sender.AvatarURL
		}
		out = append(out, view)
	}
	return out, next, nil
}

// SoftDelete hides a message without removing the row; only the author may.
func (s *MessageService) SoftDelete(ctx context.Context, messageID, callerID string) error {
	msg, err := s.messages.Get(ctx, messageID)
	if err != nil {
		return err
	}
	if msg.SenderID != callerID {
		return fmt.Errorf("%w: you can only delete your own messages", apperrors.ErrUnauthorized)
	}
	if err := s.messages.SetDeleted(ctx, messageID); err != nil {
		return fmt.Errorf("soft delete: %w", err)
	}
	s.bus.Publish(events.Event{
		Type:           events.MessageDeleted,
		ConversationID: msg.ConversationID,
		Payload:        map[string]string{"message_id": messageID},
	})
	return nil
}

// ToggleReaction adds the caller's (emoji) reaction or removes it if already
// present. The list replace is last-writer-wins between concurrent togglers
// of the same pair; duplicate human clicks are self-correcting.
func (s *MessageService) ToggleReaction(ctx context.Context, messageID, callerID, emoji string) (bool, error) {
	if err := validateReaction(emoji); err != nil {
		return false, err
	}
	msg, err := s.messages.Get(ctx, messageID)
	if err != nil {
		return false, err
	}
	if _, err := s.members.Get(ctx, msg.ConversationID, callerID); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return false, fmt.Errorf("%w: not a member of this conversation", apperrors.ErrUnauthorized)
		}
		return false, err
	}

	added := true
	reactions := make([]models.Reaction, 0, len(msg.Reactions)+1)
	for _, r := range msg.Reactions {
		if r.UserID == callerID && r.Emoji == emoji {
			added = false
			continue
		}
		reactions = append(reactions, r)
	}
	if added {
		reactions = append(reactions, models.Reaction{UserID: callerID, Emoji: emoji})
	}

	if err := s.messages.ReplaceReactions(ctx, messageID, reactions); err != nil {
		return false, fmt.Errorf("replace reactions: %w", err)
	}
	s.bus.Publish(events.Event{
		Type:           events.ReactionToggled,
		ConversationID: msg.ConversationID,
		Payload:        map[string]any{"message_id": messageID, "reactions": reactions},
	})
	return added, nil
}

// CleanupExpired hard-deletes every message past its expiry and returns the
// count. Safe to run concurrently with sends and reads: it only removes rows
// the read path already filters.
func (s *MessageService) CleanupExpired(ctx context.Context) (int64, error) {
	n, err := s.messages.DeleteExpired(ctx, s.now().UTC())
	if err != nil {
		return 0, fmt.Errorf("delete expired: %w", err)
	}
	if n > 0 {
		metrics.MessagesExpired.Add(float64(n))
		s.log.Infow("expired messages swept", "deleted", n)
	}
	return n, nil
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
