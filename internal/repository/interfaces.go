package repository

import (
	"context"

	"github.com/clinica/intranet-api/internal/model"
	"github.com/clinica/intranet-api/pkg/pagination"
)

// All repository interfaces in one file. Lookups by unique key return
// (nil, nil) when nothing matches.
type (
	PatientRepository interface {
		SearchByName(ctx context.Context, name string, q pagination.Query) (pagination.Response[model.Patient], error)
		GetByCode(ctx context.Context, code string) (*model.Patient, error)
		ListByTherapist(ctx context.Context, therapistID string, q pagination.Query) (pagination.Response[model.TherapistPatient], error)
		ListWithPendingItems(ctx context.Context, q pagination.Query) (pagination.Response[model.PendingPatient], error)
		Statistics(ctx context.Context) (*model.PatientStatistics, error)
		ListCandidates(ctx context.Context) ([]model.Candidate, error)
	}

	UserRepository interface {
		List(ctx context.Context, q pagination.Query) (pagination.Response[model.User], error)
		GetByID(ctx context.Context, id int64) (*model.User, error)
		FindForLogin(ctx context.Context, identifier string) (*model.User, error)
		GetWithPasswordByID(ctx context.Context, id int64) (*model.User, error)
		ExistsByName(ctx context.Context, name string) (bool, error)
		Create(ctx context.Context, user *model.User) (*model.User, error)
		Update(ctx context.Context, id int64, req model.UpdateUserRequest) (*model.User, error)
		Deactivate(ctx context.Context, id int64) (bool, error)
		UpdatePassword(ctx context.Context, id int64, hash string) (bool, error)
	}

	StaffRepository interface {
		SearchByName(ctx context.Context, name string, q pagination.Query) (pagination.Response[model.StaffMember], error)
		GetByCode(ctx context.Context, code string) (*model.StaffMember, error)
		List(ctx context.Context, q pagination.Query) (pagination.Response[model.StaffMember], error)
	}
)
