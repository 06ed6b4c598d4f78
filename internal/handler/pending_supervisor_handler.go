package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/fieldwork-go-api/internal/dto"
	"github.com/noah-isme/fieldwork-go-api/internal/service"
	"github.com/noah-isme/fieldwork-go-api/internal/utils"
)

// PendingSupervisorHandler manages the admin supervisor-vetting endpoints.
type PendingSupervisorHandler struct {
	service service.PendingSupervisorService
	logger  zerolog.Logger
}

// NewPendingSupervisorHandler builds a handler instance.
func NewPendingSupervisorHandler(service service.PendingSupervisorService, logger zerolog.Logger) *PendingSupervisorHandler {
	return &PendingSupervisorHandler{
		service: service,
		logger:  logger.With().Str("component", "pending_supervisor_handler").Logger(),
	}
}

// Register attaches the routes to the provided router group.
func (h *PendingSupervisorHandler) Register(router fiber.Router) {
	router.Get("", h.list)
	router.Post("/:id/approve", h.approve)
	router.Post("/:id/reject", h.reject)
}

func (h *PendingSupervisorHandler) list(c *fiber.Ctx) error {
	requests, err := h.service.ListPending(c.UserContext())
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "pending supervisors retrieved", requests)
}

func (h *PendingSupervisorHandler) approve(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	request, err := h.service.Approve(c.UserContext(), id, placementActorFromContext(c))
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "supervisor approved", request)
}

func (h *PendingSupervisorHandler) reject(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.PendingSupervisorRejectRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	request, err := h.service.Reject(c.UserContext(), id, payload, placementActorFromContext(c))
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "supervisor rejected", request)
}

func (h *PendingSupervisorHandler) handleError(c *fiber.Ctx, err error) error {
	var validationErrors validator.ValidationErrors
	switch {
	case errors.Is(err, service.ErrPendingSupervisorNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "pending supervisor request not found")
	case errors.Is(err, service.ErrPendingSupervisorResolved):
		return utils.SendError(c, fiber.StatusConflict, "pending supervisor request was already resolved")
	case errors.Is(err, service.ErrSupervisorEmailInUse):
		return utils.SendError(c, fiber.StatusConflict, "supervisor email already in use")
	case errors.As(err, &validationErrors):
		return utils.SendError(c, fiber.StatusBadRequest, validationErrors.Error())
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg("internal server error")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
