package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/driftchat/chat-service/internal/service"
	"github.com/driftchat/chat-service/pkg/apperrors"
)

type TypingHandler struct {
	typing *service.TypingService
	users  *service.UserService
	log    *zap.SugaredLogger
}

func NewTypingHandler(typing *service.TypingService, users *service.UserService, log *zap.SugaredLogger) *TypingHandler {
	return &TypingHandler{typing: typing, users: users, log: log}
}

// Update sets or clears the caller's typing marker for a conversation.
func (h *TypingHandler) Update(c *fiber.Ctx) error {
	caller, err := resolveCaller(c, h.users)
	if err != nil {
		return fail(c, err)
	}
	var body struct {
		Typing bool `json:"typing"`
	}
	if err := c.BodyParser(&body); err != nil {
		return fail(c, apperrors.ErrBadRequest)
	}

	conversationID := c.Params("id")
	if body.Typing {
		err = h.typing.SetTyping(c.Context(), conversationID, caller.ID)
	} else {
		err = h.typing.ClearTyping(c.Context(), conversationID, caller.ID)
	}
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"status": "ok"})
}

// Active lists who else is typing in the conversation right now.
func (h *TypingHandler) Active(c *fiber.Ctx) error {
	caller, err := resolveCaller(c, h.users)
	if err != nil {
		return fail(c, err)
	}
	typers, err := h.typing.ActiveTypers(c.Context(), c.Params("id"), caller.ID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(typers)
}
