package service

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/driftchat/chat-service/internal/events"
	"github.com/driftchat/chat-service/internal/models"
	"github.com/driftchat/chat-service/pkg/apperrors"
)

// In-memory repository fakes with the same lookup/ordering semantics as the
// Mongo implementations.

func testLogger() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}

type fakeUserRepo struct {
	byID map[string]models.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{byID: make(map[string]models.User)}
}

func (f *fakeUserRepo) Insert(_ context.Context, u *models.User) error {
	f.byID[u.ID] = *u
	return nil
}

func (f *fakeUserRepo) GetByID(_ context.Context, id string) (*models.User, error) {
	u, ok := f.byID[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	out := u
	return &out, nil
}

func (f *fakeUserRepo) GetBySubject(_ context.Context, subjectID string) (*models.User, error) {
	for _, u := range f.byID {
		if u.SubjectID == subjectID {
			out := u
			return &out, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (f *fakeUserRepo) UpdateProfile(_ context.Context, id, name, email, avatarURL string, now time.Time) error {
	u, ok := f.byID[id]
	if !ok {
		return nil
	}
	u.Name, u.Email, u.AvatarURL = name, email, avatarURL
	u.IsOnline, u.LastSeen = true, now
	f.byID[id] = u
	return nil
}

func (f *fakeUserRepo) SetOnline(_ context.Context, id string, online bool, now time.Time) error {
	u, ok := f.byID[id]
	if !ok {
		return nil
	}
	u.IsOnline, u.LastSeen = online, now
	f.byID[id] = u
	return nil
}

func (f *fakeUserRepo) List(_ context.Context) ([]models.User, error) {
	out := make([]models.User, 0, len(f.byID))
	for _, u := range f.byID {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (f *fakeUserRepo) Search(_ context.Context, query string) ([]models.User, error) {
	all, _ := f.List(context.Background())
	out := all[:0]
	for _, u := range all {
		if strings.Contains(strings.ToLower(u.Name), strings.ToLower(query)) {
			out = append(out, u)
		}
	}
	return out, nil
}

type fakeConvRepo struct {
	byID map[string]models.Conversation
	// onInsert, when set, runs before the insert to simulate races.
	onInsert func(*models.Conversation) error
}

func newFakeConvRepo() *fakeConvRepo {
	return &fakeConvRepo{byID: make(map[string]models.Conversation)}
}

func dupErr() error {
	return mongo.WriteException{WriteErrors: []mongo.WriteError{{Code: 11000}}}
}

func (f *fakeConvRepo) Insert(_ context.Context, c *models.Conversation) error {
	if f.onInsert != nil {
		if err := f.onInsert(c); err != nil {
			return err
		}
	}
	if c.DMKey != "" {
		for _, existing := range f.byID {
			if existing.DMKey == c.DMKey {
				return dupErr()
			}
		}
	}
	f.byID[c.ID] = *c
	return nil
}

func (f *fakeConvRepo) Get(_ context.Context, id string) (*models.Conversation, error) {
	c, ok := f.byID[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	out := c
	return &out, nil
}

func (f *fakeConvRepo) GetByDMKey(_ context.Context, key string) (*models.Conversation, error) {
	for _, c := range f.byID {
		if c.DMKey == key {
			out := c
			return &out, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (f *fakeConvRepo) SetEphemeral(_ context.Context, id string, ephemeral bool) error {
	c, ok := f.byID[id]
	if !ok {
		return nil
	}
	c.IsEphemeral = ephemeral
	f.byID[id] = c
	return nil
}

func (f *fakeConvRepo) UpdateLastMessage(_ context.Context, id, preview string, at time.Time) error {
	c, ok := f.byID[id]
	if !ok {
		return nil
	}
	c.LastMessagePreview, c.LastMessageTime = preview, at
	f.byID[id] = c
	return nil
}

type fakeMemberRepo struct {
	rows []models.ConversationMember
	// onEnsure, when set, runs before the upsert to inject write failures.
	onEnsure func(*models.ConversationMember) error
}

func newFakeMemberRepo() *fakeMemberRepo { return &fakeMemberRepo{} }

func (f *fakeMemberRepo) Insert(_ context.Context, m *models.ConversationMember) error {
	f.rows = append(f.rows, *m)
	return nil
}

func (f *fakeMemberRepo) Ensure(_ context.Context, m *models.ConversationMember) error {
	if f.onEnsure != nil {
		if err := f.onEnsure(m); err != nil {
			return err
		}
	}
	for _, existing := range f.rows {
		if existing.ConversationID == m.ConversationID && existing.UserID == m.UserID {
			return nil
		}
	}
	f.rows = append(f.rows, *m)
	return nil
}

func (f *fakeMemberRepo) Get(_ context.Context, conversationID, userID string) (*models.ConversationMember, error) {
	for _, m := range f.rows {
		if m.ConversationID == conversationID && m.UserID == userID {
			out := m
			return &out, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (f *fakeMemberRepo) ListByUser(_ context.Context, userID string) ([]models.ConversationMember, error) {
	var out []models.ConversationMember
	for _, m := range f.rows {
		if m.UserID == userID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeMemberRepo) ListByConversation(_ context.Context, conversationID string) ([]models.ConversationMember, error) {
	var out []models.ConversationMember
	for _, m := range f.rows {
		if m.ConversationID == conversationID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeMemberRepo) SetLastRead(_ context.Context, conversationID, userID string, at time.Time) error {
	for i, m := range f.rows {
		if m.ConversationID == conversationID && m.UserID == userID {
			f.rows[i].LastReadTime = at
		}
	}
	return nil
}

type fakeMessageRepo struct {
	byID map[string]models.Message
}

func newFakeMessageRepo() *fakeMessageRepo {
	return &fakeMessageRepo{byID: make(map[string]models.Message)}
}

func (f *fakeMessageRepo) Insert(_ context.Context, m *models.Message) error {
	f.byID[m.ID] = *m
	return nil
}

func (f *fakeMessageRepo) Get(_ context.Context, id string) (*models.Message, error) {
	m, ok := f.byID[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	out := m
	return &out, nil
}

func (f *fakeMessageRepo) ListPage(_ context.Context, conversationID string, beforeAt time.Time, beforeID string, limit int64) ([]models.Message, error) {
	var all []models.Message
	for _, m := range f.byID {
		if m.ConversationID != conversationID {
			continue
		}
		if !beforeAt.IsZero() {
			older := m.CreatedAt.Before(beforeAt) ||
				(m.CreatedAt.Equal(beforeAt) && m.ID < beforeID)
			if !older {
				continue
			}
		}
		all = append(all, m)
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.After(all[j].CreatedAt)
		}
		return all[i].ID > all[j].ID
	})
	if int64(len(all)) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (f *fakeMessageRepo) CountUnread(_ context.Context, conversationID string, after time.Time, excludeSender string) (int64, error) {
	var n int64
	for _, m := range f.byID {
		if m.ConversationID == conversationID && m.CreatedAt.After(after) && m.SenderID != excludeSender {
			n++
		}
	}
	return n, nil
}

func (f *fakeMessageRepo) SetDeleted(_ context.Context, id string) error {
	m, ok := f.byID[id]
	if !ok {
		return nil
	}
	m.IsDeleted = true
	f.byID[id] = m
	return nil
}

func (f *fakeMessageRepo) ReplaceReactions(_ context.Context, id string, reactions []models.Reaction) error {
	m, ok := f.byID[id]
	if !ok {
		return nil
	}
	m.Reactions = reactions
	f.byID[id] = m
	return nil
}

func (f *fakeMessageRepo) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	var n int64
	for id, m := range f.byID {
		if m.ExpiresAt != nil && m.ExpiresAt.Before(now) {
			delete(f.byID, id)
			n++
		}
	}
	return n, nil
}

type fakeTypingRepo struct {
	rows map[string]models.TypingIndicator // keyed conversation|user
}

func newFakeTypingRepo() *fakeTypingRepo {
	return &fakeTypingRepo{rows: make(map[string]models.TypingIndicator)}
}

func typingKey(conversationID, userID string) string { return conversationID + "|" + userID }

func (f *fakeTypingRepo) Upsert(_ context.Context, conversationID, userID string, expiresAt time.Time) error {
	f.rows[typingKey(conversationID, userID)] = models.TypingIndicator{
		ID:             typingKey(conversationID, userID),
		ConversationID: conversationID,
		UserID:         userID,
		ExpiresAt:      expiresAt,
	}
	return nil
}

func (f *fakeTypingRepo) Delete(_ context.Context, conversationID, userID string) error {
	delete(f.rows, typingKey(conversationID, userID))
	return nil
}

func (f *fakeTypingRepo) ListByConversation(_ context.Context, conversationID string) ([]models.TypingIndicator, error) {
	var out []models.TypingIndicator
	for _, t := range f.rows {
		if t.ConversationID == conversationID {
			out = append(out, t)
		}
	}
	return out, nil
}

// busRecorder captures published events for assertions.
type busRecorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (b *busRecorder) Publish(ev events.Event) {
	b.mu.Lock()
	b.events = append(b.events, ev)
	b.mu.Unlock()
}

func (b *busRecorder) ofType(t events.Type) []events.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []events.Event
	for _, ev := range b.events {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}

type fakePresence struct {
	online map[string]bool
}

func newFakePresence() *fakePresence { return &fakePresence{online: make(map[string]bool)} }

func (f *fakePresence) Heartbeat(_ context.Context, userID string) error {
	f.online[userID] = true
	return nil
}

func (f *fakePresence) SetOffline(_ context.Context, userID string) error {
	delete(f.online, userID)
	return nil
}

func (f *fakePresence) Online(_ context.Context, userID string) (bool, error) {
	return f.online[userID], nil
}
