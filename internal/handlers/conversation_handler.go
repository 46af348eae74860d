package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/driftchat/chat-service/internal/service"
	"github.com/driftchat/chat-service/pkg/apperrors"
)

type ConversationHandler struct {
	convs *service.ConversationService
	users *service.UserService
	log   *zap.SugaredLogger
}

func NewConversationHandler(convs *service.ConversationService, users *service.UserService, log *zap.SugaredLogger) *ConversationHandler {
	return &ConversationHandler{convs: convs, users: users, log: log}
}

func (h *ConversationHandler) List(c *fiber.Ctx) error {
	caller, err := resolveCaller(c, h.users)
	if err != nil {
		return fail(c, err)
	}
	out, err := h.convs.List(c.Context(), caller.ID)
	if err != nil {
		h.log.Errorw("list conversations", "err", err)
		return fail(c, err)
	}
	return c.JSON(out)
}

func (h *ConversationHandler) Get(c *fiber.Ctx) error {
	caller, err := resolveCaller(c, h.users)
	if err != nil {
		return fail(c, err)
	}
	conv, err := h.convs.Get(c.Context(), c.Params("id"), caller.ID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(conv)
}

func (h *ConversationHandler) CreateDM(c *fiber.Ctx) error {
	caller, err := resolveCaller(c, h.users)
	if err != nil {
		return fail(c, err)
	}
	var body struct {
		OtherUserID string `json:"other_user_id"`
	}
	if err := c.BodyParser(&body); err != nil || body.OtherUserID == "" {
		return fail(c, apperrors.ErrBadRequest)
	}
	conv, err := h.convs.GetOrCreateDM(c.Context(), caller.ID, body.OtherUserID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(conv)
}

func (h *ConversationHandler) CreateGroup(c *fiber.Ctx) error {
	caller, err := resolveCaller(c, h.users)
	if err != nil {
		return fail(c, err)
	}
	var body struct {
		Name      string   `json:"name"`
		MemberIDs []string `json:"member_ids"`
	}
	if err := c.BodyParser(&body); err != nil {
		return fail(c, apperrors.ErrBadRequest)
	}
	conv, err := h.convs.CreateGroup(c.Context(), caller.ID, body.MemberIDs, body.Name)
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(conv)
}

func (h *ConversationHandler) MarkAsRead(c *fiber.Ctx) error {
	caller, err := resolveCaller(c, h.users)
	if err != nil {
		return fail(c, err)
	}
	if err := h.convs.MarkAsRead(c.Context(), c.Params("id"), caller.ID); err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"status": "ok"})
}

func (h *ConversationHandler) ToggleEphemeral(c *fiber.Ctx) error {
	caller, err := resolveCaller(c, h.users)
	if err != nil {
		return fail(c, err)
	}
	ephemeral, err := h.convs.ToggleEphemeral(c.Context(), c.Params("id"), caller.ID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"is_ephemeral": ephemeral})
}
