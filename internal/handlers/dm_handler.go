package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/yourorg/social-app/services/dm-service/internal/apperr"
	"github.com/yourorg/social-app/services/dm-service/internal/middleware"
	"github.com/yourorg/social-app/services/dm-service/internal/service"
)

type DMHandler struct {
	messaging *service.Messaging
	threads   *service.Threads
	log       *zap.SugaredLogger
}

func NewDMHandler(messaging *service.Messaging, threads *service.Threads, log *zap.SugaredLogger) *DMHandler {
	return &DMHandler{messaging: messaging, threads: threads, log: log}
}

func (h *DMHandler) ListThreads(c *fiber.Ctx) error {
	inbox, err := h.threads.List(c.UserContext(), middleware.UserID(c))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(inbox)
}

func (h *DMHandler) OpenWithContact(c *fiber.Ctx) error {
	view, err := h.messaging.Open(c.UserContext(), middleware.UserID(c), c.Params("contactId"), pageOpts(c))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(view)
}

func (h *DMHandler) GetConversation(c *fiber.Ctx) error {
	view, err := h.messaging.Get(c.UserContext(), middleware.UserID(c), c.Params("id"), pageOpts(c))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(view)
}

func (h *DMHandler) SendMessage(c *fiber.Ctx) error {
	var body struct {
		Text string `json:"text"`
	}
	if err := c.BodyParser(&body); err != nil {
		return c.Status(http.StatusBadRequest).JSON(fiber.Map{
			"error": fiber.Map{"code": apperr.CodeInvalidMessageText, "message": "malformed body"},
		})
	}
	res, err := h.messaging.Send(c.UserContext(), middleware.UserID(c), c.Params("contactId"), body.Text)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(res)
}

func (h *DMHandler) MarkRead(c *fiber.Ctx) error {
	total, err := h.messaging.MarkRead(c.UserContext(), middleware.UserID(c), c.Params("id"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{"total_unread": total})
}

func (h *DMHandler) Summary(c *fiber.Ctx) error {
	total, err := h.messaging.TotalUnread(c.UserContext(), middleware.UserID(c))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{"total_unread": total})
}

func pageOpts(c *fiber.Ctx) service.PageOpts {
	opts := service.PageOpts{}
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
			opts.Limit = n
		}
	}
	if raw := c.Query("before"); raw != "" {
		if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
			opts.Before = t
		}
	}
	return opts
}

func (h *DMHandler) fail(c *fiber.Ctx, err error) error {
	code := apperr.CodeOf(err)
	status := statusFor(code)
	if status == http.StatusInternalServerError {
		h.log.Errorw("request failed", "path", c.Path(), "err", err)
		return c.Status(status).JSON(fiber.Map{
			"error": fiber.Map{"code": code, "message": "internal error"},
		})
	}
	return c.Status(status).JSON(fiber.Map{
		"error": fiber.Map{"code": code, "message": err.Error()},
	})
}

func statusFor(code apperr.Code) int {
	switch code {
	case apperr.CodeInvalidParticipant, apperr.CodeSelfConversation, apperr.CodeInvalidMessageText:
		return http.StatusBadRequest
	case apperr.CodeConversationNotFound:
		return http.StatusNotFound
	case apperr.CodeUnauthorized, apperr.CodeAccessDenied:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}
