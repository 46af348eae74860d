package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/driftchat/chat-service/internal/service"
	"github.com/driftchat/chat-service/pkg/apperrors"
)

type MessageHandler struct {
	messages *service.MessageService
	users    *service.UserService
	log      *zap.SugaredLogger
}

func NewMessageHandler(messages *service.MessageService, users *service.UserService, log *zap.SugaredLogger) *MessageHandler {
	return &MessageHandler{messages: messages, users: users, log: log}
}

func (h *MessageHandler) Send(c *fiber.Ctx) error {
	caller, err := resolveCaller(c, h.users)
	if err != nil {
		return fail(c, err)
	}
	var body struct {
		Content string `json:"content"`
	}
	if err := c.BodyParser(&body); err != nil {
		return fail(c, apperrors.ErrBadRequest)
	}
	view, err := h.messages.Send(c.Context(), c.Params("id"), caller.ID, body.Content)
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(view)
}

func (h *MessageHandler) List(c *fiber.Ctx) error {
	if _, err := resolveCaller(c, h.users); err != nil {
		return fail(c, err)
	}
	msgs, next, err := h.messages.List(c.Context(), c.Params("id"), c.Query("cursor"), c.QueryInt("limit"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"messages": msgs, "next_cursor": next})
}

func (h *MessageHandler) Delete(c *fiber.Ctx) error {
	caller, err := resolveCaller(c, h.users)
	if err != nil {
		return fail(c, err)
	}
	if err := h.messages.SoftDelete(c.Context(), c.Params("id"), caller.ID); err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"status": "deleted"})
}

func (h *MessageHandler) ToggleReaction(c *fiber.Ctx) error {
	caller, err := resolveCaller(c, h.users)
	if err != nil {
		return fail(c, err)
	}
	var body struct {
		Emoji string `json:"emoji"`
	}
	if err := c.BodyParser(&body); err != nil {
		return fail(c, apperrors.ErrBadRequest)
	}
	added, err := h.messages.ToggleReaction(c.Context(), c.Params("id"), caller.ID, body.Emoji)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"added": added})
}
