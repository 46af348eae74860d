package handlers

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/driftchat/chat-service/internal/middleware"
	"github.com/driftchat/chat-service/internal/models"
	"github.com/driftchat/chat-service/internal/service"
	"github.com/driftchat/chat-service/pkg/apperrors"
)

type UserHandler struct {
	users *service.UserService
	log   *zap.SugaredLogger
}

func NewUserHandler(users *service.UserService, log *zap.SugaredLogger) *UserHandler {
	return &UserHandler{users: users, log: log}
}

// Sync upserts the caller's profile from the verified session. Clients call
// this on every session start, before anything else.
func (h *UserHandler) Sync(c *fiber.Ctx) error {
	ident, ok := middleware.CallerIdentity(c)
	if !ok {
		return fail(c, apperrors.ErrNotAuthenticated)
	}
	u, err := h.users.Store(c.Context(), ident)
	if err != nil {
		h.log.Errorw("user sync", "err", err)
		return fail(c, err)
	}
	return c.JSON(u)
}

// UpdateStatus toggles the caller's best-effort online flag from page
// lifecycle events.
func (h *UserHandler) UpdateStatus(c *fiber.Ctx) error {
	var body struct {
		IsOnline bool `json:"is_online"`
	}
	if err := c.BodyParser(&body); err != nil {
		return fail(c, apperrors.ErrBadRequest)
	}
	ident, _ := middleware.CallerIdentity(c)
	if err := h.users.UpdateOnlineStatus(c.Context(), ident.Subject, body.IsOnline); err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"status": "ok"})
}

// Heartbeat extends the caller's TTL presence window.
func (h *UserHandler) Heartbeat(c *fiber.Ctx) error {
	caller, err := h.caller(c)
	if err != nil {
		return fail(c, err)
	}
	if err := h.users.Heartbeat(c.Context(), caller.ID); err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"status": "ok"})
}

// List returns all other users, optionally filtered by a name search.
func (h *UserHandler) List(c *fiber.Ctx) error {
	caller, err := h.caller(c)
	if err != nil {
		return fail(c, err)
	}
	users, err := h.users.Search(c.Context(), c.Query("search"), caller.ID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(users)
}

// caller resolves the session identity to the synced profile. A verified
// session without a profile means the client has not called Sync yet.
func (h *UserHandler) caller(c *fiber.Ctx) (*models.User, error) {
	return resolveCaller(c, h.users)
}

func resolveCaller(c *fiber.Ctx, users *service.UserService) (*models.User, error) {
	ident, ok := middleware.CallerIdentity(c)
	if !ok {
		return nil, apperrors.ErrNotAuthenticated
	}
	u, err := users.GetBySubject(c.Context(), ident.Subject)
	if err != nil {
		return nil, fmt.Errorf("%w: profile not synced", apperrors.ErrNotAuthenticated)
	}
	return u, nil
}
