package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/ims-go-api/internal/service"
	appErrors "github.com/noah-isme/ims-go-api/pkg/errors"
	"github.com/noah-isme/ims-go-api/pkg/response"
)

// PerformanceHandler exposes performance aggregates and reports.
type PerformanceHandler struct {
	service *service.PerformanceService
}

// NewPerformanceHandler creates a new handler.
func NewPerformanceHandler(svc *service.PerformanceService) *PerformanceHandler {
	return &PerformanceHandler{service: svc}
}

// InternPerformance godoc
// @Summary Intern performance
// @Description Aggregate an intern's tasks within a program
// @Tags Performance
// @Produce json
// @Param intern_id path string true "Intern ID"
// @Param program_id path string true "Program ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /performance/interns/{intern_id}/programs/{program_id} [get]
func (h *PerformanceHandler) InternPerformance(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	performance, err := h.service.InternPerformance(c.Request.Context(),
		claims.UserID, claims.Role, c.Param("intern_id"), c.Param("program_id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, performance, nil)
}

// MentorReport godoc
// @Summary Mentor roster report
// @Description One aggregate row per intern the mentor has assigned tasks to
// @Tags Performance
// @Produce json
// @Success 200 {object} response.Envelope
// @Security BearerAuth
// @Router /performance/report [get]
func (h *PerformanceHandler) MentorReport(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	rows, err := h.service.MentorReport(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rows, nil)
}

// MentorReportCSV godoc
// @Summary Download mentor report
// @Description Mentor roster report as a CSV attachment
// @Tags Performance
// @Produce text/csv
// @Success 200 {string} string "CSV content"
// @Security BearerAuth
// @Router /performance/report/export [get]
func (h *PerformanceHandler) MentorReportCSV(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	data, err := h.service.MentorReportCSV(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}

	filename := fmt.Sprintf("performance-report-%s.csv", time.Now().UTC().Format("2006-01-02"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "text/csv", data)
}
