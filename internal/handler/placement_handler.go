package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/fieldwork-go-api/internal/dto"
	"github.com/noah-isme/fieldwork-go-api/internal/middleware"
	"github.com/noah-isme/fieldwork-go-api/internal/models"
	"github.com/noah-isme/fieldwork-go-api/internal/service"
	"github.com/noah-isme/fieldwork-go-api/internal/utils"
)

// PlacementHandler manages placement lifecycle endpoints.
type PlacementHandler struct {
	service   service.PlacementService
	documents service.DocumentService
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewPlacementHandler builds a placement handler instance.
func NewPlacementHandler(service service.PlacementService, documents service.DocumentService, validator *validator.Validate, logger zerolog.Logger) *PlacementHandler {
	return &PlacementHandler{
		service:   service,
		documents: documents,
		validator: validator,
		logger:    logger.With().Str("component", "placement_handler").Logger(),
	}
}

// Register attaches the routes to the provided router group. Lifecycle
// decisions are reserved for faculty and admins.
func (h *PlacementHandler) Register(router fiber.Router) {
	facultyOnly := middleware.RequireRole(models.RoleFaculty, models.RoleAdmin)

	router.Get("", h.list)
	router.Post("", h.apply)
	router.Get("/:id", h.get)
	router.Post("/:id/approve", facultyOnly, h.approve)
	router.Post("/:id/activate", facultyOnly, h.activate)
	router.Post("/:id/reject", facultyOnly, h.reject)
	router.Post("/:id/complete", facultyOnly, h.complete)
	router.Patch("/:id/checklist", facultyOnly, h.updateChecklist)
	router.Post("/:id/documents/:slot", h.attachDocument)
}

func (h *PlacementHandler) list(c *fiber.Ctx) error {
	filter := dto.PlacementFilter{}
	if studentID, err := parseQueryUint(c, "student_id"); err == nil && studentID != nil {
		filter.StudentID = studentID
	}
	if facultyID, err := parseQueryUint(c, "faculty_id"); err == nil && facultyID != nil {
		filter.FacultyID = facultyID
	}
	if status := c.Query("status"); status != "" {
		filter.Status = &status
	}

	placements, err := h.service.List(c.UserContext(), filter)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "placements retrieved", placements)
}

func (h *PlacementHandler) apply(c *fiber.Ctx) error {
	var payload dto.PlacementApplyRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	placement, err := h.service.Apply(c.UserContext(), payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "placement application submitted", placement)
}

func (h *PlacementHandler) get(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	placement, err := h.service.Get(c.UserContext(), id)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "placement retrieved", placement)
}

func (h *PlacementHandler) approve(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	placement, err := h.service.Approve(c.UserContext(), id, placementActorFromContext(c))
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "placement approved", placement)
}

func (h *PlacementHandler) activate(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	placement, err := h.service.Activate(c.UserContext(), id, placementActorFromContext(c))
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "placement activated", placement)
}

func (h *PlacementHandler) reject(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.PlacementRejectRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	placement, err := h.service.Reject(c.UserContext(), id, payload, placementActorFromContext(c))
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "placement rejected", placement)
}

func (h *PlacementHandler) complete(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	placement, err := h.service.Complete(c.UserContext(), id, placementActorFromContext(c))
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "placement completed", placement)
}

func (h *PlacementHandler) updateChecklist(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.ChecklistUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	placement, err := h.service.UpdateChecklist(c.UserContext(), id, payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "checklist updated", placement)
}

func (h *PlacementHandler) attachDocument(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	slot := c.Params("slot")
	file, err := c.FormFile("file")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "file is required")
	}

	placement, err := h.documents.Attach(c.UserContext(), id, slot, file)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "document attached", placement)
}

func (h *PlacementHandler) handleError(c *fiber.Ctx, err error) error {
	var validationErrors validator.ValidationErrors
	switch {
	case errors.Is(err, service.ErrPlacementNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "placement not found")
	case errors.Is(err, service.ErrDuplicatePlacement):
		return utils.SendError(c, fiber.StatusConflict, "student already has a placement for this class")
	case errors.Is(err, service.ErrPlacementAlreadyDecided):
		return utils.SendError(c, fiber.StatusConflict, "placement was already acted on")
	case errors.Is(err, service.ErrSupervisorEmailInUse):
		return utils.SendError(c, fiber.StatusConflict, "supervisor email already in use")
	case errors.Is(err, service.ErrPolicyDocumentMissing):
		return utils.SendError(c, fiber.StatusPreconditionFailed, "policy document has not been uploaded")
	case errors.Is(err, service.ErrNoFacultyAssigned):
		return utils.SendError(c, fiber.StatusPreconditionFailed, "student has no assigned faculty")
	case errors.Is(err, service.ErrSupervisorChoiceRequired),
		errors.Is(err, service.ErrSupervisorChoiceConflict),
		errors.Is(err, service.ErrUnknownDocumentSlot),
		errors.Is(err, service.ErrUnsupportedDocumentType):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	case errors.As(err, &validationErrors):
		return utils.SendError(c, fiber.StatusBadRequest, validationErrors.Error())
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg("internal server error")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
