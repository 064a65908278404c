package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/ims-go-api/internal/models"
	"github.com/noah-isme/ims-go-api/internal/service"
	appErrors "github.com/noah-isme/ims-go-api/pkg/errors"
	"github.com/noah-isme/ims-go-api/pkg/response"
)

// ProgramHandler wires HTTP endpoints to the program service.
type ProgramHandler struct {
	service   *service.ProgramService
	dashboard *service.DashboardService
}

// NewProgramHandler creates a new handler.
func NewProgramHandler(svc *service.ProgramService, dashboard *service.DashboardService) *ProgramHandler {
	return &ProgramHandler{service: svc, dashboard: dashboard}
}

// Create godoc
// @Summary Create program
// @Description Create an internship program in the upcoming state
// @Tags Programs
// @Accept json
// @Produce json
// @Param payload body service.CreateProgramRequest true "Program payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /programs [post]
func (h *ProgramHandler) Create(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.CreateProgramRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid program payload"))
		return
	}

	program, err := h.service.Create(c.Request.Context(), claims.UserID, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	h.dashboard.InvalidateMentor(c.Request.Context(), program.MentorID)
	response.Created(c, program)
}

// List godoc
// @Summary List programs
// @Description List programs scoped to the caller's role
// @Tags Programs
// @Produce json
// @Param status query string false "Filter by status"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /programs [get]
func (h *ProgramHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var query struct {
		Status   string `form:"status"`
		Page     int    `form:"page"`
		PageSize int    `form:"page_size"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query"))
		return
	}

	filter := models.ProgramFilter{Page: query.Page, PageSize: query.PageSize}
	if query.Status != "" {
		status := models.ProgramStatus(query.Status)
		if !status.Valid() {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "unknown status filter"))
			return
		}
		filter.Statuses = []models.ProgramStatus{status}
	}
	switch claims.Role {
	case models.RoleMentor:
		filter.MentorID = claims.UserID
	case models.RoleIntern:
		filter.InternID = claims.UserID
	}

	programs, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, programs, pagination)
}

// Get godoc
// @Summary Program detail
// @Description Return a program with its mentor and enrollments
// @Tags Programs
// @Produce json
// @Param id path string true "Program ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /programs/{id} [get]
func (h *ProgramHandler) Get(c *gin.Context) {
	program, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, program, nil)
}

// Update godoc
// @Summary Update program
// @Description Edit program metadata; duration is recomputed from dates
// @Tags Programs
// @Accept json
// @Produce json
// @Param id path string true "Program ID"
// @Param payload body service.UpdateProgramRequest true "Patch payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Security BearerAuth
// @Router /programs/{id} [put]
func (h *ProgramHandler) Update(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.UpdateProgramRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid patch payload"))
		return
	}

	program, err := h.service.Update(c.Request.Context(), claims.UserID, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	h.dashboard.InvalidateMentor(c.Request.Context(), program.MentorID)
	response.JSON(c, http.StatusOK, program, nil)
}

// ChangeStatus godoc
// @Summary Advance program lifecycle
// @Description Move a program along upcoming -> active -> completed
// @Tags Programs
// @Accept json
// @Produce json
// @Param id path string true "Program ID"
// @Param payload body map[string]string true "Requested status"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Security BearerAuth
// @Router /programs/{id}/status [patch]
func (h *ProgramHandler) ChangeStatus(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var payload struct {
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "status required"))
		return
	}

	program, err := h.service.ChangeStatus(c.Request.Context(), claims.UserID, c.Param("id"), models.ProgramStatus(payload.Status))
	if err != nil {
		response.Error(c, err)
		return
	}

	h.dashboard.InvalidateMentor(c.Request.Context(), program.MentorID)
	response.JSON(c, http.StatusOK, program, nil)
}

// Enroll godoc
// @Summary Enroll intern
// @Description Add an intern to an upcoming program
// @Tags Programs
// @Accept json
// @Produce json
// @Param id path string true "Program ID"
// @Param payload body map[string]string true "Intern ID"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Security BearerAuth
// @Router /programs/{id}/enrollments [post]
func (h *ProgramHandler) Enroll(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var payload struct {
		InternID string `json:"intern_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "intern_id required"))
		return
	}

	enrollment, err := h.service.Enroll(c.Request.Context(), claims.UserID, c.Param("id"), payload.InternID)
	if err != nil {
		response.Error(c, err)
		return
	}

	h.dashboard.InvalidateMentor(c.Request.Context(), enrollment.MentorID)
	response.Created(c, enrollment)
}
