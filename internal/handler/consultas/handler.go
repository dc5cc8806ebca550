package consultas

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/clinica/intranet-api/internal/middleware"
	"github.com/clinica/intranet-api/internal/service/patient"
	apperrors "github.com/clinica/intranet-api/pkg/errors"
	"github.com/clinica/intranet-api/pkg/pagination"
	"github.com/clinica/intranet-api/pkg/validator"
)

type Handler struct {
	service patient.PatientService
}

func NewHandler(service patient.PatientService) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes expects the /api/consultas group.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/paciente-por-nome/:nome",
		middleware.ValidateStringParam("nome", validator.DefaultMaxLength), h.SearchByName)
	r.GET("/paciente/:codigo",
		middleware.ValidateNumberParam("codigo", validator.Min(1)), h.GetByCode)
	r.GET("/pacientes-por-terapeuta/:terapeutaId",
		middleware.ValidateNumberParam("terapeutaId", validator.Min(1)), h.ListByTherapist)
	r.GET("/pacientes-com-pendencias", h.ListWithPendingItems)
	r.GET("/estatisticas", h.Statistics)
}

func (h *Handler) SearchByName(c *gin.Context) {
	resp, err := h.service.SearchByName(c.Request.Context(), c.GetString("nome"), pagination.FromContext(c))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) GetByCode(c *gin.Context) {
	p, err := h.service.GetByCode(c.Request.Context(), c.Param("codigo"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	if p == nil {
		_ = c.Error(apperrors.NotFound("patient", nil))
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *Handler) ListByTherapist(c *gin.Context) {
	resp, err := h.service.ListByTherapist(c.Request.Context(), c.Param("terapeutaId"), pagination.FromContext(c))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) ListWithPendingItems(c *gin.Context) {
	resp, err := h.service.ListWithPendingItems(c.Request.Context(), pagination.FromContext(c))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) Statistics(c *gin.Context) {
	stats, err := h.service.Statistics(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, stats)
}
