package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/driftchat/chat-service/internal/events"
	"github.com/driftchat/chat-service/internal/models"
	"github.com/driftchat/chat-service/internal/repository"
	"github.com/driftchat/chat-service/pkg/apperrors"
)

type ConversationService struct {
	convs    repository.ConversationRepository
	members  repository.MemberRepository
	messages repository.MessageRepository
	users    repository.UserRepository
	bus      events.Publisher
	log      *zap.SugaredLogger
	now      func() time.Time
}

func NewConversationService(
	convs repository.ConversationRepository,
	members repository.MemberRepository,
	messages repository.MessageRepository,
	users repository.UserRepository,
	bus events.Publisher,
	log *zap.SugaredLogger,
) *ConversationService {
	return &ConversationService{
		convs:    convs,
		members:  members,
		messages: messages,
		users:    users,
		bus:      bus,
		log:      log,
		now:      time.Now,
	}
}

// GetOrCreateDM returns the existing direct conversation between the two
// users or creates it. The unique dm_key index makes concurrent creation
// collapse to one row: the loser of the race re-reads the winner's insert.
// Membership rows are upserted on every path, so a crash between the
// conversation insert and the member inserts heals on the next call.
func (s *ConversationService) GetOrCreateDM(ctx context.Context, selfID, otherID string) (*models.Conversation, error) {
	if selfID == otherID {
		return nil, fmt.Errorf("%w: cannot start a conversation with yourself", apperrors.ErrBadRequest)
	}
	if _, err := s.users.GetByID(ctx, otherID); err != nil {
		return nil, fmt.Errorf("other user: %w", err)
	}

	key := models.DMKey(selfID, otherID)
	now := s.now().UTC()
	if conv, err := s.convs.GetByDMKey(ctx, key); err == nil {
		if err := s.ensureMembers(ctx, conv.ID, now, selfID, otherID); err != nil {
			return nil, err
		}
		return conv, nil
	} else if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, fmt.Errorf("lookup dm: %w", err)
	}

	conv := &models.Conversation{
		ID:        uuid.NewString(),
		IsGroup:   false,
		DMKey:     key,
		CreatedAt: now,
	}
	if err := s.convs.Insert(ctx, conv); err != nil {
		if repository.IsDup(err) {
			winner, gerr := s.convs.GetByDMKey(ctx, key)
			if gerr != nil {
				return nil, fmt.Errorf("lookup dm: %w", gerr)
			}
			if err := s.ensureMembers(ctx, winner.ID, now, selfID, otherID); err != nil {
				return nil, err
			}
			return winner, nil
		}
		return nil, fmt.Errorf("create dm: %w", err)
	}
	if err := s.ensureMembers(ctx, conv.ID, now, selfID, otherID); err != nil {
		return nil, err
	}

	s.bus.Publish(events.Event{Type: events.ConversationUpdated, ConversationID: conv.ID})
	s.log.Infow("dm created", "conversation", conv.ID)
	return conv, nil
}

// ensureMembers upserts one membership row per user against the unique
// (conversation_id, user_id) index. Idempotent, so retries after a partial
// creation complete the member set instead of failing.
func (s *ConversationService) ensureMembers(ctx context.Context, conversationID string, now time.Time, userIDs ...string) error {
	for _, uid := range userIDs {
		if err := s.members.Ensure(ctx, &models.ConversationMember{
			ID:             uuid.NewString(),
			ConversationID: conversationID,
			UserID:         uid,
			LastReadTime:   now,
			JoinedAt:       now,
		}); err != nil {
			return fmt.Errorf("ensure member: %w", err)
		}
	}
	return nil
}

// CreateGroup creates a group conversation with the creator as admin and
// member. Duplicate ids in memberIDs are skipped rather than tripping the
// unique membership index.
func (s *ConversationService) CreateGroup(ctx context.Context, creatorID string, memberIDs []string, name string) (*models.Conversation, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: group name required", apperrors.ErrBadRequest)
	}
	if len(memberIDs) == 0 {
		return nil, fmt.Errorf("%w: group needs at least one other member", apperrors.ErrBadRequest)
	}

	now := s.now().UTC()
	conv := &models.Conversation{
		ID:         uuid.NewString(),
		IsGroup:    true,
		GroupName:  name,
		GroupAdmin: creatorID,
		CreatedAt:  now,
	}
	if err := s.convs.Insert(ctx, conv); err != nil {
		return nil, fmt.Errorf("create group: %w", err)
	}

	seen := map[string]bool{creatorID: true}
	ids := []string{creatorID}
	for _, uid := range memberIDs {
		if seen[uid] {
			continue
		}
		seen[uid] = true
		ids = append(ids, uid)
	}
	if err := s.ensureMembers(ctx, conv.ID, now, ids...); err != nil {
		return nil, err
	}

	s.bus.Publish(events.Event{Type: events.ConversationUpdated, ConversationID: conv.ID})
	s.log.Infow("group created", "conversation", conv.ID, "members", len(seen))
	return conv, nil
}

// List returns the caller's conversations, enriched and sorted by most
// recent message. User lookups are cached across conversations within the
// call.
func (s *ConversationService) List(ctx context.Context, userID string) ([]models.ConversationSummary, error) {
	memberships, err := s.members.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list memberships: %w", err)
	}

	cache := newUserCache(s.users)
	out := make([]models.ConversationSummary, 0, len(memberships))
	for _, membership := range memberships {
		conv, err := s.convs.Get(ctx, membership.ConversationID)
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				continue
			}
			return nil, fmt.Errorf("load conversation: %w", err)
		}

		summary, err := s.enrich(ctx, conv, userID, cache)
		if err != nil {
			return nil, err
		}

		unread, err := s.messages.CountUnread(ctx, conv.ID, membership.LastReadTime, userID)
		if err != nil {
			return nil, fmt.Errorf("count unread: %w", err)
		}
		summary.UnreadCount = unread
		summary.LastReadTime = membership.LastReadTime

		out = append(out, *summary)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].LastMessageTime.After(out[j].LastMessageTime)
	})
	return out, nil
}

// Get returns one conversation enriched for the caller.
func (s *ConversationService) Get(ctx context.Context, conversationID, userID string) (*models.ConversationSummary, error) {
	conv, err := s.convs.Get(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	return s.enrich(ctx, conv, userID, newUserCache(s.users))
}

func (s *ConversationService) enrich(ctx context.Context, conv *models.Conversation, userID string, cache *userCache) (*models.ConversationSummary, error) {
	members, err := s.members.ListByConversation(ctx, conv.ID)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}

	summary := &models.ConversationSummary{Conversation: *conv, Members: make([]models.User, 0, len(members))}
	for _, m := range members {
		u, err := cache.get(ctx, m.UserID)
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				continue
			}
			return nil, err
		}
		summary.Members = append(summary.Members, *u)
		if !conv.IsGroup && m.UserID != userID {
			other := *u
			summary.OtherUser = &other
		}
	}
	return summary, nil
}

// MarkAsRead advances the caller's last-read time. No membership, no effect.
func (s *ConversationService) MarkAsRead(ctx context.Context, conversationID, userID string) error {
	return s.members.SetLastRead(ctx, conversationID, userID, s.now().UTC())
}

// ToggleEphemeral flips the conversation's ephemeral flag and returns the new
// value. Only members may toggle, and on groups only the admin.
func (s *ConversationService) ToggleEphemeral(ctx context.Context, conversationID, userID string) (bool, error) {
	conv, err := s.convs.Get(ctx, conversationID)
	if err != nil {
		return false, err
	}
	if _, err := s.members.Get(ctx, conversationID, userID); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return false, fmt.Errorf("%w: not a member of this conversation", apperrors.ErrUnauthorized)
		}
		return false, err
	}
	if conv.IsGroup && conv.GroupAdmin != userID {
		return false, fmt.Errorf("%w: only the group admin can change this setting", apperrors.ErrUnauthorized)
	}

	next := !conv.IsEphemeral
	if err := s.convs.SetEphemeral(ctx, conversationID, next); err != nil {
		return false, fmt.Errorf("set ephemeral: %w", err)
	}
	s.bus.Publish(events.Event{Type: events.ConversationUpdated, ConversationID: conversationID})
	return next, nil
}

// userCache memoizes profile lookups for the duration of one request.
type userCache struct {
	users repository.UserRepository
	seen  map[string]*models.User
}

func newUserCache(users repository.UserRepository) *userCache {
	return &userCache{users: users, seen: make(map[string]*models.User)}
}

func (c *userCache) get(ctx context.Context, id string) (*models.User, error) {
	if u, ok := c.seen[id]; ok {
		if u == nil {
			return nil, apperrors.ErrNotFound
		}
		return u, nil
	}
	u, err := c.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			c.seen[id] = nil
		}
		return nil, err
	}
	c.seen[id] = u
	return u, nil
}
