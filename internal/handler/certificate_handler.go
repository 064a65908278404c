package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/ims-go-api/internal/service"
	appErrors "github.com/noah-isme/ims-go-api/pkg/errors"
	"github.com/noah-isme/ims-go-api/pkg/response"
)

// CertificateHandler exposes the certificate gate and download.
type CertificateHandler struct {
	service *service.CertificateService
}

// NewCertificateHandler creates a new handler.
func NewCertificateHandler(svc *service.CertificateService) *CertificateHandler {
	return &CertificateHandler{service: svc}
}

// CheckEligibility godoc
// @Summary Certificate eligibility
// @Description Recompute the certificate gate for an intern in a program
// @Tags Certificates
// @Produce json
// @Param intern_id path string true "Intern ID"
// @Param program_id path string true "Program ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Security BearerAuth
// @Router /certificates/interns/{intern_id}/programs/{program_id}/eligibility [get]
func (h *CertificateHandler) CheckEligibility(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	eligibility, err := h.service.CheckEligibility(c.Request.Context(),
		claims.UserID, claims.Role, c.Param("intern_id"), c.Param("program_id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, eligibility, nil)
}

// Download godoc
// @Summary Download certificate
// @Description Render the completion certificate PDF for an eligible intern
// @Tags Certificates
// @Produce application/pdf
// @Param intern_id path string true "Intern ID"
// @Param program_id path string true "Program ID"
// @Success 200 {string} string "PDF content"
// @Failure 403 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Security BearerAuth
// @Router /certificates/interns/{intern_id}/programs/{program_id}/download [get]
func (h *CertificateHandler) Download(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	data, err := h.service.DownloadCertificate(c.Request.Context(),
		claims.UserID, claims.Role, c.Param("intern_id"), c.Param("program_id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	filename := fmt.Sprintf("certificate-%s.pdf", c.Param("program_id"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "application/pdf", data)
}
