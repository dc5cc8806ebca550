package user

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinica/intranet-api/internal/middleware"
	"github.com/clinica/intranet-api/internal/model"
	usersvc "github.com/clinica/intranet-api/internal/service/user"
	apperrors "github.com/clinica/intranet-api/pkg/errors"
	"github.com/clinica/intranet-api/pkg/pagination"
)

type fakeService struct {
	users     map[int64]*model.User
	passwords map[string]string
	created   []model.CreateUserRequest
}

var _ usersvc.UserServicer = (*fakeService)(nil)

func newFakeService() *fakeService {
	return &fakeService{
		users:     map[int64]*model.User{1: {ID: 1, Name: "master", Role: model.RoleMaster, Active: true}},
		passwords: map[string]string{"master": "segredo1"},
	}
}

func (f *fakeService) List(ctx context.Context, q pagination.Query) (pagination.Response[model.User], error) {
	var out []model.User
	for _, u := range f.users {
		out = append(out, *u)
	}
	p := q.Params()
	return pagination.NewResponse(out, len(out), p.Page, p.Limit), nil
}

func (f *fakeService) Get(ctx context.Context, id int64) (*model.User, error) {
	return f.users[id], nil
}

func (f *fakeService) Create(ctx context.Context, req model.CreateUserRequest) (*model.User, error) {
	f.created = append(f.created, req)
	u := &model.User{ID: int64(len(f.users) + 1), Name: req.Name, Role: model.RoleUser, Active: true}
	f.users[u.ID] = u
	return u, nil
}

func (f *fakeService) Update(ctx context.Context, id int64, req model.UpdateUserRequest) (*model.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, nil
	}
	if req.Name != nil {
		u.Name = *req.Name
	}
	return u, nil
}

func (f *fakeService) Delete(ctx context.Context, id int64) (bool, error) {
	_, ok := f.users[id]
	delete(f.users, id)
	return ok, nil
}

func (f *fakeService) Login(ctx context.Context, req model.LoginRequest) (*model.User, error) {
	if f.passwords[req.Identifier] != req.Password {
		return nil, apperrors.Unauthorized(usersvc.ErrInvalidCredentials)
	}
	for _, u := range f.users {
		if u.Name == req.Identifier {
			return u, nil
		}
	}
	return nil, apperrors.Unauthorized(usersvc.ErrInvalidCredentials)
}

func (f *fakeService) ChangePassword(ctx context.Context, req model.ChangePasswordRequest) error {
	u, ok := f.users[req.UserID]
	if !ok {
		return apperrors.NotFound("user", nil)
	}
	if f.passwords[u.Name] != req.CurrentPassword {
		return apperrors.Unauthorized(usersvc.ErrInvalidCredentials)
	}
	f.passwords[u.Name] = req.NewPassword
	return nil
}

func (f *fakeService) ListCandidates(ctx context.Context) ([]model.Candidate, error) {
	return []model.Candidate{{Code: 1, Name: "Ana Silva"}}, nil
}

func (f *fakeService) ListStaff(ctx context.Context, q pagination.Query) (pagination.Response[model.StaffMember], error) {
	return pagination.Empty[model.StaffMember](q.Params()), nil
}

func (f *fakeService) SearchStaff(ctx context.Context, name string, q pagination.Query) (pagination.Response[model.StaffMember], error) {
	return pagination.NewResponse([]model.StaffMember{{Code: 5, Name: name}}, 1, 1, 50), nil
}

func (f *fakeService) GetStaff(ctx context.Context, code string) (*model.StaffMember, error) {
	if code == "5" {
		return &model.StaffMember{Code: 5, Name: "DRJOAO"}, nil
	}
	return nil, nil
}

func setup(svc *fakeService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	middleware.UseJSONFieldNames()

	r := gin.New()
	r.Use(middleware.RequestID(), middleware.ErrorHandler())

	h := NewHandler(svc)
	h.RegisterPublicRoutes(r.Group("/api/users"))
	h.RegisterRoutes(r.Group("/api/users"))
	return r
}

func do(r *gin.Engine, method, url, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, url, nil)
	} else {
		req = httptest.NewRequest(method, url, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestCreateUser(t *testing.T) {
	svc := newFakeService()
	r := setup(svc)

	w := do(r, http.MethodPost, "/api/users", `{"nome":"ana","senha":"segredo1"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.NotContains(t, w.Body.String(), "segredo1")
	require.Len(t, svc.created, 1)

	w = do(r, http.MethodPost, "/api/users", `{"nome":"ana","senha":"123"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid parameter 'senha'")

	w = do(r, http.MethodPost, "/api/users", `{"nome":"ana","senha":"segredo1","role":"ROOT"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid parameter 'role'")
}

func TestLogin(t *testing.T) {
	r := setup(newFakeService())

	w := do(r, http.MethodPost, "/api/users/login", `{"usuario":"master","senha":"segredo1"}`)
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		User model.User `json:"user"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, model.RoleMaster, body.User.Role)

	w = do(r, http.MethodPost, "/api/users/login", `{"usuario":"master","senha":"errada"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(r, http.MethodPost, "/api/users/login", `{"usuario":"master"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetUpdateDelete(t *testing.T) {
	r := setup(newFakeService())

	w := do(r, http.MethodGet, "/api/users/1", "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(r, http.MethodGet, "/api/users/abc", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(r, http.MethodGet, "/api/users/99", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(r, http.MethodPut, "/api/users/1", `{"nome":"root"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"nome":"root"`)

	w = do(r, http.MethodPut, "/api/users/99", `{"nome":"x"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(r, http.MethodDelete, "/api/users/1", "")
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = do(r, http.MethodDelete, "/api/users/1", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestChangePassword(t *testing.T) {
	r := setup(newFakeService())

	w := do(r, http.MethodPost, "/api/users/change-password",
		`{"usuario_id":1,"senha_atual":"errada","nova_senha":"novasenha"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(r, http.MethodPost, "/api/users/change-password",
		`{"usuario_id":1,"senha_atual":"segredo1","nova_senha":"novasenha"}`)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = do(r, http.MethodPost, "/api/users/login", `{"usuario":"master","senha":"novasenha"}`)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestDfMedRoutes(t *testing.T) {
	r := setup(newFakeService())

	w := do(r, http.MethodGet, "/api/users/dfmed", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Ana Silva")

	w = do(r, http.MethodGet, "/api/users/dfmed/usuarios", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"data":[]`)

	w = do(r, http.MethodGet, "/api/users/dfmed/usuario-por-nome/joao", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"usrNome":"joao"`)

	w = do(r, http.MethodGet, "/api/users/dfmed/usuario/5", "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(r, http.MethodGet, "/api/users/dfmed/usuario/6", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(r, http.MethodGet, "/api/users/dfmed/usuario/x", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
