package user

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/clinica/intranet-api/internal/handler"
	"github.com/clinica/intranet-api/internal/middleware"
	"github.com/clinica/intranet-api/internal/model"
	"github.com/clinica/intranet-api/internal/service/user"
	apperrors "github.com/clinica/intranet-api/pkg/errors"
	"github.com/clinica/intranet-api/pkg/pagination"
	"github.com/clinica/intranet-api/pkg/validator"
)

type Handler struct {
	service user.UserServicer
}

func NewHandler(service user.UserServicer) *Handler {
	return &Handler{service: service}
}

// RegisterPublicRoutes registers the routes reachable without the API token.
// r is the /api/users group.
func (h *Handler) RegisterPublicRoutes(r *gin.RouterGroup) {
	r.POST("", h.CreateUser)
	r.POST("/login", h.Login)
}

// RegisterRoutes registers the token-protected routes on the /api/users group.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("", h.ListUsers)
	r.GET("/:id", h.GetUser)
	r.PUT("/:id", h.UpdateUser)
	r.DELETE("/:id", h.DeleteUser)
	r.POST("/change-password", h.ChangePassword)

	dfmed := r.Group("/dfmed")
	{
		dfmed.GET("", h.ListCandidates)
		dfmed.GET("/usuarios", h.ListStaff)
		dfmed.GET("/usuario-por-nome/:nome",
			middleware.ValidateStringParam("nome", validator.DefaultMaxLength), h.SearchStaff)
		dfmed.GET("/usuario/:codigo",
			middleware.ValidateNumberParam("codigo", validator.Min(1)), h.GetStaff)
	}
}

func (h *Handler) CreateUser(c *gin.Context) {
	var req model.CreateUserRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	created, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (h *Handler) ListUsers(c *gin.Context) {
	resp, err := h.service.List(c.Request.Context(), pagination.FromContext(c))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) GetUser(c *gin.Context) {
	id, ok := handler.PathID(c, "id")
	if !ok {
		return
	}

	u, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		_ = c.Error(err)
		return
	}
	if u == nil {
		_ = c.Error(apperrors.NotFound("user", nil))
		return
	}
	c.JSON(http.StatusOK, u)
}

func (h *Handler) UpdateUser(c *gin.Context) {
	id, ok := handler.PathID(c, "id")
	if !ok {
		return
	}

	var req model.UpdateUserRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	u, err := h.service.Update(c.Request.Context(), id, req)
	if err != nil {
		_ = c.Error(err)
		return
	}
	if u == nil {
		_ = c.Error(apperrors.NotFound("user", nil))
		return
	}
	c.JSON(http.StatusOK, u)
}

func (h *Handler) DeleteUser(c *gin.Context) {
	id, ok := handler.PathID(c, "id")
	if !ok {
		return
	}

	deleted, err := h.service.Delete(c.Request.Context(), id)
	if err != nil {
		_ = c.Error(err)
		return
	}
	if !deleted {
		_ = c.Error(apperrors.NotFound("user", nil))
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) Login(c *gin.Context) {
	var req model.LoginRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	u, err := h.service.Login(c.Request.Context(), req)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": u})
}

func (h *Handler) ChangePassword(c *gin.Context) {
	var req model.ChangePasswordRequest
	if !handler.BindJSON(c, &req) {
		return
	}

	if err := h.service.ChangePassword(c.Request.Context(), req); err != nil {
		_ = c.Error(err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) ListCandidates(c *gin.Context) {
	candidates, err := h.service.ListCandidates(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, candidates)
}

func (h *Handler) ListStaff(c *gin.Context) {
	resp, err := h.service.ListStaff(c.Request.Context(), pagination.FromContext(c))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) SearchStaff(c *gin.Context) {
	resp, err := h.service.SearchStaff(c.Request.Context(), c.GetString("nome"), pagination.FromContext(c))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) GetStaff(c *gin.Context) {
	member, err := h.service.GetStaff(c.Request.Context(), c.Param("codigo"))
	if err != nil {
		_ = c.Error(err)
		return
	}
	if member == nil {
		_ = c.Error(apperrors.NotFound("staff member", nil))
		return
	}
	c.JSON(http.StatusOK, member)
}
