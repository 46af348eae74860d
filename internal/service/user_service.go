package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/driftchat/chat-service/internal/models"
	"github.com/driftchat/chat-service/internal/repository"
	"github.com/driftchat/chat-service/pkg/apperrors"
)

// Identity is the verified claim set of the caller's session.
type Identity struct {
	Subject   string
	Name      string
	Email     string
	AvatarURL string
}

// PresenceStore is the TTL liveness layer backing heartbeats.
type PresenceStore interface {
	Heartbeat(ctx context.Context, userID string) error
	SetOffline(ctx context.Context, userID string) error
	Online(ctx context.Context, userID string) (bool, error)
}

type UserService struct {
	users    repository.UserRepository
	presence PresenceStore
	log      *zap.SugaredLogger
	now      func() time.Time
}

func NewUserService(users repository.UserRepository, presence PresenceStore, log *zap.SugaredLogger) *UserService {
	return &UserService{users: users, presence: presence, log: log, now: time.Now}
}

// Store upserts the local profile from the caller's session on sign-in.
// The profile row is keyed by the identity provider's subject and is never
// hard-deleted.
func (s *UserService) Store(ctx context.Context, ident Identity) (*models.User, error) {
	if ident.Subject == "" {
		return nil, apperrors.ErrNotAuthenticated
	}

	now := s.now().UTC()
	existing, err := s.users.GetBySubject(ctx, ident.Subject)
	if err == nil {
		if err := s.users.UpdateProfile(ctx, existing.ID, ident.Name, ident.Email, ident.AvatarURL, now); err != nil {
			return nil, fmt.Errorf("update profile: %w", err)
		}
		existing.Name = ident.Name
		existing.Email = ident.Email
		existing.AvatarURL = ident.AvatarURL
		existing.IsOnline = true
		existing.LastSeen = now
		return existing, nil
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, fmt.Errorf("lookup profile: %w", err)
	}

	u := &models.User{
		ID:        uuid.NewString(),
		SubjectID: ident.Subject,
		Name:      ident.Name,
		Email:     ident.Email,
		AvatarURL: ident.AvatarURL,
		IsOnline:  true,
		LastSeen:  now,
		CreatedAt: now,
	}
	if err := s.users.Insert(ctx, u); err != nil {
		return nil, fmt.Errorf("insert profile: %w", err)
	}
	s.log.Infow("profile created", "user", u.ID)
	return u, nil
}

// UpdateOnlineStatus patches the best-effort flag. A missing session or
// missing profile (sign-out races) is a no-op.
func (s *UserService) UpdateOnlineStatus(ctx context.Context, subjectID string, online bool) error {
	if subjectID == "" {
		return nil
	}
	u, err := s.users.GetBySubject(ctx, subjectID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil
		}
		return err
	}
	if err := s.users.SetOnline(ctx, u.ID, online, s.now().UTC()); err != nil {
		return fmt.Errorf("set online: %w", err)
	}
	if !online {
		if err := s.presence.SetOffline(ctx, u.ID); err != nil {
			s.log.Warnw("presence offline", "user", u.ID, "err", err)
		}
	}
	return nil
}

// Heartbeat extends the caller's TTL liveness window and refreshes the flag.
func (s *UserService) Heartbeat(ctx context.Context, userID string) error {
	if err := s.presence.Heartbeat(ctx, userID); err != nil {
		return fmt.Errorf("heartbeat: %w", err)
	}
	return s.users.SetOnline(ctx, userID, true, s.now().UTC())
}

// Online prefers the heartbeat over the page-lifecycle flag.
func (s *UserService) Online(ctx context.Context, userID string) (bool, error) {
	live, err := s.presence.Online(ctx, userID)
	if err == nil && live {
		return true, nil
	}
	u, uerr := s.users.GetByID(ctx, userID)
	if uerr != nil {
		return false, uerr
	}
	return u.IsOnline, nil
}

func (s *UserService) GetBySubject(ctx context.Context, subjectID string) (*models.User, error) {
	return s.users.GetBySubject(ctx, subjectID)
}

func (s *UserService) GetByID(ctx context.Context, id string) (*models.User, error) {
	return s.users.GetByID(ctx, id)
}

// ListAll returns every profile except the caller's.
func (s *UserService) ListAll(ctx context.Context, selfID string) ([]models.User, error) {
	all, err := s.users.List(ctx)
	if err != nil {
		return nil, err
	}
	return exclude(all, selfID), nil
}

// Search matches display names, falling back to the full list on a blank
// query. The caller is always excluded.
func (s *UserService) Search(ctx context.Context, query, selfID string) ([]models.User, error) {
	if strings.TrimSpace(query) == "" {
		return s.ListAll(ctx, selfID)
	}
	found, err := s.users.Search(ctx, query)
	if err != nil {
		return nil, err
	}
	return exclude(found, selfID), nil
}

func exclude(users []models.User, id string) []models.User {
	out := users[:0]
	for _, u := range users {
		if u.ID != id {
			out = append(out, u)
		}
	}
	return out
}
