package handler

import (
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/fieldwork-go-api/internal/dto"
	"github.com/noah-isme/fieldwork-go-api/internal/middleware"
	"github.com/noah-isme/fieldwork-go-api/internal/models"
	"github.com/noah-isme/fieldwork-go-api/internal/service"
	"github.com/noah-isme/fieldwork-go-api/internal/utils"
)

// TimesheetHandler manages timesheet entry, submission and decision endpoints.
type TimesheetHandler struct {
	service service.TimesheetService
	logger  zerolog.Logger
}

// NewTimesheetHandler builds a timesheet handler instance.
func NewTimesheetHandler(service service.TimesheetService, logger zerolog.Logger) *TimesheetHandler {
	return &TimesheetHandler{
		service: service,
		logger:  logger.With().Str("component", "timesheet_handler").Logger(),
	}
}

// Register attaches the routes to the provided router group. Students own
// entry and submission routes; each decision stage has its own role.
func (h *TimesheetHandler) Register(router fiber.Router) {
	studentOnly := middleware.RequireRole(models.RoleStudent, models.RoleAdmin)
	supervisorOnly := middleware.RequireRole(models.RoleSupervisor, models.RoleAdmin)
	facultyOnly := middleware.RequireRole(models.RoleFaculty, models.RoleAdmin)

	router.Post("/entries", studentOnly, h.logEntry)
	router.Patch("/entries/:id", studentOnly, h.updateEntry)
	router.Post("/submit-week", studentOnly, h.submitWeek)
	router.Post("/supervisor-decision", supervisorOnly, h.supervisorDecide)
	router.Post("/faculty-decision", facultyOnly, h.facultyDecide)
	router.Get("/week", h.weekSummary)
}

func (h *TimesheetHandler) logEntry(c *fiber.Ctx) error {
	var payload dto.TimesheetEntryCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	entry, err := h.service.LogEntry(c.UserContext(), payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "timesheet entry logged", entry)
}

func (h *TimesheetHandler) updateEntry(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.TimesheetEntryUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	entry, err := h.service.UpdateEntry(c.UserContext(), id, payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "timesheet entry updated", entry)
}

func (h *TimesheetHandler) submitWeek(c *fiber.Ctx) error {
	var payload dto.SubmitWeekRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	week, err := h.service.SubmitWeek(c.UserContext(), payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "week submitted for approval", week)
}

func (h *TimesheetHandler) supervisorDecide(c *fiber.Ctx) error {
	var payload dto.DecisionRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	entries, err := h.service.SupervisorDecide(c.UserContext(), payload, placementActorFromContext(c))
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "supervisor decision recorded", entries)
}

func (h *TimesheetHandler) facultyDecide(c *fiber.Ctx) error {
	var payload dto.DecisionRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	entries, err := h.service.FacultyDecide(c.UserContext(), payload, placementActorFromContext(c))
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "faculty decision recorded", entries)
}

func (h *TimesheetHandler) weekSummary(c *fiber.Ctx) error {
	placementID, err := parseQueryUint(c, "placement_id")
	if err != nil || placementID == nil {
		return utils.SendError(c, fiber.StatusBadRequest, "placement_id is required")
	}

	weekStart, err := parseDateQuery(c, "week_start")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid week_start")
	}

	week, err := h.service.WeekSummary(c.UserContext(), *placementID, weekStart)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "week retrieved", week)
}

func (h *TimesheetHandler) handleError(c *fiber.Ctx, err error) error {
	var validationErrors validator.ValidationErrors
	switch {
	case errors.Is(err, service.ErrEntryNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "timesheet entry not found")
	case errors.Is(err, service.ErrPlacementNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "placement not found")
	case errors.Is(err, service.ErrWeekAlreadyDecided):
		return utils.SendError(c, fiber.StatusConflict, "week was already acted on")
	case errors.Is(err, service.ErrPlacementNotActive),
		errors.Is(err, service.ErrWeekNotSubmittable),
		errors.Is(err, service.ErrEntryNotEditable):
		return utils.SendError(c, fiber.StatusPreconditionFailed, err.Error())
	case errors.Is(err, service.ErrEmptyWeek),
		errors.Is(err, service.ErrMixedWeekGroup),
		errors.Is(err, service.ErrPartialWeekGroup),
		errors.Is(err, service.ErrReactionTooShort),
		errors.Is(err, service.ErrRejectionNotesRequired):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	case errors.As(err, &validationErrors):
		return utils.SendError(c, fiber.StatusBadRequest, validationErrors.Error())
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg("internal server error")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}

func parseDateQuery(c *fiber.Ctx, key string) (time.Time, error) {
	value := strings.TrimSpace(c.Query(key))
	if value == "" {
		return time.Time{}, errors.New("missing " + key)
	}
	if parsed, err := time.Parse(time.RFC3339, value); err == nil {
		return parsed, nil
	}
	return time.Parse("2006-01-02", value)
}
