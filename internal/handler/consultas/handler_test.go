package consultas

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinica/intranet-api/internal/middleware"
	"github.com/clinica/intranet-api/internal/model"
	"github.com/clinica/intranet-api/pkg/pagination"
)

type fakeService struct {
	searchFn func(name string, q pagination.Query) (pagination.Response[model.Patient], error)
	getFn    func(code string) (*model.Patient, error)
	calls    int
}

func (f *fakeService) SearchByName(ctx context.Context, name string, q pagination.Query) (pagination.Response[model.Patient], error) {
	f.calls++
	return f.searchFn(name, q)
}

func (f *fakeService) GetByCode(ctx context.Context, code string) (*model.Patient, error) {
	f.calls++
	return f.getFn(code)
}

func (f *fakeService) ListByTherapist(ctx context.Context, therapistID string, q pagination.Query) (pagination.Response[model.TherapistPatient], error) {
	f.calls++
	return pagination.Empty[model.TherapistPatient](q.Params()), nil
}

func (f *fakeService) ListWithPendingItems(ctx context.Context, q pagination.Query) (pagination.Response[model.PendingPatient], error) {
	f.calls++
	return pagination.Empty[model.PendingPatient](q.Params()), nil
}

func (f *fakeService) Statistics(ctx context.Context) (*model.PatientStatistics, error) {
	f.calls++
	return &model.PatientStatistics{TotalPatients: 4, ActiveTherapists: 2}, nil
}

func (f *fakeService) ListCandidates(ctx context.Context) ([]model.Candidate, error) {
	return nil, nil
}

func setup(svc *fakeService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.RequestID(), middleware.ErrorHandler())
	NewHandler(svc).RegisterRoutes(r.Group("/api/consultas"))
	return r
}

func get(r *gin.Engine, url string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, url, nil))
	return w
}

func TestSearchByNamePassesSanitizedNameAndPagination(t *testing.T) {
	var gotName string
	var gotQuery pagination.Query
	svc := &fakeService{
		searchFn: func(name string, q pagination.Query) (pagination.Response[model.Patient], error) {
			gotName, gotQuery = name, q
			data := []model.Patient{{Code: 1, Name: "Ana Silva"}}
			return pagination.NewResponse(data, 12, 2, 5), nil
		},
	}
	r := setup(svc)

	w := get(r, "/api/consultas/paciente-por-nome/%20ana%20?page=2&limit=5&sortBy=pacCodigo&sortOrder=desc")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ana", gotName)
	assert.Equal(t, pagination.Query{Page: "2", Limit: "5", SortBy: "pacCodigo", SortOrder: "desc"}, gotQuery)

	var body struct {
		Data       []map[string]any `json:"data"`
		Pagination pagination.Meta  `json:"pagination"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Len(t, body.Data, 1)
	assert.Equal(t, 3, body.Pagination.TotalPages)
	assert.True(t, body.Pagination.HasNext)
	assert.True(t, body.Pagination.HasPrev)
}

func TestGetByCode(t *testing.T) {
	svc := &fakeService{
		getFn: func(code string) (*model.Patient, error) {
			if code == "7" {
				return &model.Patient{Code: 7, Name: "Carlos Souza"}, nil
			}
			return nil, nil
		},
	}
	r := setup(svc)

	w := get(r, "/api/consultas/paciente/7")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Carlos Souza")

	w = get(r, "/api/consultas/paciente/8")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "patient not found")
}

func TestInvalidParamsNeverReachService(t *testing.T) {
	svc := &fakeService{}
	r := setup(svc)

	for _, url := range []string{
		"/api/consultas/paciente/abc",
		"/api/consultas/paciente/0",
		"/api/consultas/pacientes-por-terapeuta/x",
		"/api/consultas/paciente-por-nome/%20%20",
	} {
		w := get(r, url)
		assert.Equal(t, http.StatusBadRequest, w.Code, url)
		assert.Contains(t, w.Body.String(), "invalid parameter", url)
	}
	assert.Zero(t, svc.calls)
}

func TestDatabaseErrorBecomesGeneric500(t *testing.T) {
	svc := &fakeService{
		getFn: func(code string) (*model.Patient, error) {
			return nil, errors.New("query failed: connection reset")
		},
	}
	r := setup(svc)

	w := get(r, "/api/consultas/paciente/7")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "connection reset")
}

func TestStatisticsAndPending(t *testing.T) {
	r := setup(&fakeService{})

	w := get(r, "/api/consultas/estatisticas")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"total_pacientes":4,"pacientes_ativos":0,"pacientes_com_pendencias":0,"terapeutas_ativos":2}`, w.Body.String())

	w = get(r, "/api/consultas/pacientes-com-pendencias")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"data":[]`)
}
