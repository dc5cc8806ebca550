package patient

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinica/intranet-api/internal/model"
	"github.com/clinica/intranet-api/internal/repository"
	"github.com/clinica/intranet-api/pkg/pagination"
)

type mockRepository struct {
	searchFn     func(ctx context.Context, name string, q pagination.Query) (pagination.Response[model.Patient], error)
	getFn        func(ctx context.Context, code string) (*model.Patient, error)
	statisticsFn func(ctx context.Context) (*model.PatientStatistics, error)

	statisticsCalls int
}

var _ repository.PatientRepository = (*mockRepository)(nil)

func (m *mockRepository) SearchByName(ctx context.Context, name string, q pagination.Query) (pagination.Response[model.Patient], error) {
	return m.searchFn(ctx, name, q)
}

func (m *mockRepository) GetByCode(ctx context.Context, code string) (*model.Patient, error) {
	return m.getFn(ctx, code)
}

func (m *mockRepository) ListByTherapist(ctx context.Context, therapistID string, q pagination.Query) (pagination.Response[model.TherapistPatient], error) {
	return pagination.Empty[model.TherapistPatient](q.Params()), nil
}

func (m *mockRepository) ListWithPendingItems(ctx context.Context, q pagination.Query) (pagination.Response[model.PendingPatient], error) {
	return pagination.Empty[model.PendingPatient](q.Params()), nil
}

func (m *mockRepository) Statistics(ctx context.Context) (*model.PatientStatistics, error) {
	m.statisticsCalls++
	return m.statisticsFn(ctx)
}

func (m *mockRepository) ListCandidates(ctx context.Context) ([]model.Candidate, error) {
	return []model.Candidate{}, nil
}

func TestStatisticsAreCached(t *testing.T) {
	repo := &mockRepository{
		statisticsFn: func(ctx context.Context) (*model.PatientStatistics, error) {
			return &model.PatientStatistics{TotalPatients: 10}, nil
		},
	}
	svc := NewService(repo, time.Minute, nil)

	first, err := svc.Statistics(context.Background())
	require.NoError(t, err)
	first.TotalPatients = 999

	second, err := svc.Statistics(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 10, second.TotalPatients, "callers cannot mutate the cached value")
	assert.Equal(t, 1, repo.statisticsCalls)
}

func TestStatisticsCacheDisabled(t *testing.T) {
	repo := &mockRepository{
		statisticsFn: func(ctx context.Context) (*model.PatientStatistics, error) {
			return &model.PatientStatistics{}, nil
		},
	}
	svc := NewService(repo, 0, nil)

	_, _ = svc.Statistics(context.Background())
	_, _ = svc.Statistics(context.Background())
	assert.Equal(t, 2, repo.statisticsCalls)
}

func TestStatisticsErrorsAreNotCached(t *testing.T) {
	calls := 0
	repo := &mockRepository{
		statisticsFn: func(ctx context.Context) (*model.PatientStatistics, error) {
			calls++
			if calls == 1 {
				return nil, errors.New("query failed: timeout")
			}
			return &model.PatientStatistics{TotalPatients: 3}, nil
		},
	}
	svc := NewService(repo, time.Minute, nil)

	_, err := svc.Statistics(context.Background())
	assert.Error(t, err)

	stats, err := svc.Statistics(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, stats.TotalPatients)
}

func TestGetByCodePassesThroughNotFound(t *testing.T) {
	repo := &mockRepository{
		getFn: func(ctx context.Context, code string) (*model.Patient, error) {
			return nil, nil
		},
	}
	svc := NewService(repo, time.Minute, nil)

	p, err := svc.GetByCode(context.Background(), "404")
	assert.NoError(t, err)
	assert.Nil(t, p)
}
