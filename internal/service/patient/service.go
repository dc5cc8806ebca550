package patient

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/clinica/intranet-api/internal/model"
	"github.com/clinica/intranet-api/internal/repository"
	"github.com/clinica/intranet-api/pkg/metrics"
	"github.com/clinica/intranet-api/pkg/pagination"
)

const statisticsKey = "statistics"

type PatientService interface {
	SearchByName(ctx context.Context, name string, q pagination.Query) (pagination.Response[model.Patient], error)
	GetByCode(ctx context.Context, code string) (*model.Patient, error)
	ListByTherapist(ctx context.Context, therapistID string, q pagination.Query) (pagination.Response[model.TherapistPatient], error)
	ListWithPendingItems(ctx context.Context, q pagination.Query) (pagination.Response[model.PendingPatient], error)
	Statistics(ctx context.Context) (*model.PatientStatistics, error)
	ListCandidates(ctx context.Context) ([]model.Candidate, error)
}

type Service struct {
	repo     repository.PatientRepository
	cache    *cache.Cache
	statsTTL time.Duration
	metrics  *metrics.Metrics
}

// NewService creates a patient service. Statistics are cached for statsTTL; a
// non-positive TTL disables the cache.
func NewService(repo repository.PatientRepository, statsTTL time.Duration, m *metrics.Metrics) *Service {
	return &Service{
		repo:     repo,
		cache:    cache.New(statsTTL, 2*statsTTL),
		statsTTL: statsTTL,
		metrics:  m,
	}
}

func (s *Service) SearchByName(ctx context.Context, name string, q pagination.Query) (pagination.Response[model.Patient], error) {
	return s.repo.SearchByName(ctx, name, q)
}

func (s *Service) GetByCode(ctx context.Context, code string) (*model.Patient, error) {
	return s.repo.GetByCode(ctx, code)
}

func (s *Service) ListByTherapist(ctx context.Context, therapistID string, q pagination.Query) (pagination.Response[model.TherapistPatient], error) {
	return s.repo.ListByTherapist(ctx, therapistID, q)
}

func (s *Service) ListWithPendingItems(ctx context.Context, q pagination.Query) (pagination.Response[model.PendingPatient], error) {
	return s.repo.ListWithPendingItems(ctx, q)
}

func (s *Service) Statistics(ctx context.Context) (*model.PatientStatistics, error) {
	if s.statsTTL > 0 {
		if cached, ok := s.cache.Get(statisticsKey); ok {
			s.metrics.CacheHit(statisticsKey, true)
			stats := cached.(model.PatientStatistics)
			return &stats, nil
		}
		s.metrics.CacheHit(statisticsKey, false)
	}

	stats, err := s.repo.Statistics(ctx)
	if err != nil {
		return nil, err
	}

	if s.statsTTL > 0 {
		s.cache.Set(statisticsKey, *stats, s.statsTTL)
	}
	return stats, nil
}

func (s *Service) ListCandidates(ctx context.Context) ([]model.Candidate, error) {
	return s.repo.ListCandidates(ctx)
}
