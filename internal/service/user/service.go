package user

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/clinica/intranet-api/internal/model"
	"github.com/clinica/intranet-api/internal/repository"
	apperrors "github.com/clinica/intranet-api/pkg/errors"
	"github.com/clinica/intranet-api/pkg/pagination"
	"github.com/clinica/intranet-api/pkg/security"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

type UserServicer interface {
	List(ctx context.Context, q pagination.Query) (pagination.Response[model.User], error)
	Get(ctx context.Context, id int64) (*model.User, error)
	Create(ctx context.Context, req model.CreateUserRequest) (*model.User, error)
	Update(ctx context.Context, id int64, req model.UpdateUserRequest) (*model.User, error)
	Delete(ctx context.Context, id int64) (bool, error)
	Login(ctx context.Context, req model.LoginRequest) (*model.User, error)
	ChangePassword(ctx context.Context, req model.ChangePasswordRequest) error

	ListCandidates(ctx context.Context) ([]model.Candidate, error)
	ListStaff(ctx context.Context, q pagination.Query) (pagination.Response[model.StaffMember], error)
	SearchStaff(ctx context.Context, name string, q pagination.Query) (pagination.Response[model.StaffMember], error)
	GetStaff(ctx context.Context, code string) (*model.StaffMember, error)
}

type Service struct {
	repo     repository.UserRepository
	staff    repository.StaffRepository
	patients repository.PatientRepository
	hasher   security.PasswordHasher
}

func NewService(repo repository.UserRepository, staff repository.StaffRepository, patients repository.PatientRepository, hasher security.PasswordHasher) *Service {
	return &Service{
		repo:     repo,
		staff:    staff,
		patients: patients,
		hasher:   hasher,
	}
}

func (s *Service) List(ctx context.Context, q pagination.Query) (pagination.Response[model.User], error) {
	return s.repo.List(ctx, q)
}

func (s *Service) Get(ctx context.Context, id int64) (*model.User, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) Create(ctx context.Context, req model.CreateUserRequest) (*model.User, error) {
	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		if errors.Is(err, security.ErrEmptyPassword) {
			return nil, apperrors.InvalidParam("senha")
		}
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &model.User{
		Name:     req.Name,
		Email:    req.Email,
		Password: &hash,
		Role:     req.Role,
	}

	created, err := s.repo.Create(ctx, user)
	if err != nil {
		return nil, err
	}

	log.Info().Int64("usuario_id", created.ID).Str("role", string(created.Role)).Msg("user created")
	return created, nil
}

// Update returns nil when the user does not exist.
func (s *Service) Update(ctx context.Context, id int64, req model.UpdateUserRequest) (*model.User, error) {
	return s.repo.Update(ctx, id, req)
}

// Delete deactivates the user and reports whether it existed.
func (s *Service) Delete(ctx context.Context, id int64) (bool, error) {
	ok, err := s.repo.Deactivate(ctx, id)
	if err != nil {
		return false, err
	}
	if ok {
		log.Info().Int64("usuario_id", id).Msg("user deactivated")
	}
	return ok, nil
}

func (s *Service) Login(ctx context.Context, req model.LoginRequest) (*model.User, error) {
	user, err := s.repo.FindForLogin(ctx, req.Identifier)
	if err != nil {
		return nil, err
	}

	if user == nil || user.Password == nil || s.hasher.Compare(*user.Password, req.Password) != nil {
		log.Warn().Str("usuario", req.Identifier).Msg("login failed")
		return nil, apperrors.Unauthorized(ErrInvalidCredentials)
	}

	user.Password = nil
	return user, nil
}

func (s *Service) ChangePassword(ctx context.Context, req model.ChangePasswordRequest) error {
	current, err := s.repo.GetWithPasswordByID(ctx, req.UserID)
	if err != nil {
		return err
	}
	if current == nil {
		return apperrors.NotFound("user", nil)
	}
	if current.Password == nil || s.hasher.Compare(*current.Password, req.CurrentPassword) != nil {
		return apperrors.Unauthorized(ErrInvalidCredentials)
	}

	hash, err := s.hasher.Hash(req.NewPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	ok, err := s.repo.UpdatePassword(ctx, req.UserID, hash)
	if err != nil {
		return err
	}
	if !ok {
		return apperrors.NotFound("user", nil)
	}

	log.Info().Int64("usuario_id", req.UserID).Msg("password changed")
	return nil
}

// EnsureUser creates the user unless one with the same name exists. It reports
// whether a user was created.
func (s *Service) EnsureUser(ctx context.Context, req model.CreateUserRequest) (bool, error) {
	exists, err := s.repo.ExistsByName(ctx, req.Name)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}

	if _, err := s.Create(ctx, req); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Service) ListCandidates(ctx context.Context) ([]model.Candidate, error) {
	return s.patients.ListCandidates(ctx)
}

func (s *Service) ListStaff(ctx context.Context, q pagination.Query) (pagination.Response[model.StaffMember], error) {
	return s.staff.List(ctx, q)
}

func (s *Service) SearchStaff(ctx context.Context, name string, q pagination.Query) (pagination.Response[model.StaffMember], error) {
	return s.staff.SearchByName(ctx, name, q)
}

func (s *Service) GetStaff(ctx context.Context, code string) (*model.StaffMember, error) {
	return s.staff.GetByCode(ctx, code)
}
