package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/clinica/intranet-api/internal/model"
	apperrors "github.com/clinica/intranet-api/pkg/errors"
	"github.com/clinica/intranet-api/pkg/security"
)

// DefaultPassword is the shared password of the built-in role accounts.
const DefaultPassword = "12345"

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNoWorkflowRole     = errors.New("user has no anamnesis role")
)

// Directory resolves credentials to a workflow user.
type Directory interface {
	Authenticate(ctx context.Context, username, password string) (*User, error)
}

// StaticDirectory knows one account per role, all sharing a password.
type StaticDirectory struct {
	hasher security.PasswordHasher
	hash   string
	users  map[string]Role
}

// NewStaticDirectory hashes password up front. An empty password selects
// DefaultPassword.
func NewStaticDirectory(hasher security.PasswordHasher, password string) (*StaticDirectory, error) {
	if password == "" {
		password = DefaultPassword
	}
	hash, err := hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash directory password: %w", err)
	}

	return &StaticDirectory{
		hasher: hasher,
		hash:   hash,
		users: map[string]Role{
			"TO":    RoleTO,
			"FONO":  RoleFono,
			"PSICO": RolePsico,
			"ADMIN": RoleAdmin,
		},
	}, nil
}

func (d *StaticDirectory) Authenticate(ctx context.Context, username, password string) (*User, error) {
	name := strings.ToUpper(strings.TrimSpace(username))
	role, ok := d.users[name]

	// Compare even for unknown users so both paths cost a bcrypt round.
	err := d.hasher.Compare(d.hash, password)
	if !ok || err != nil {
		return nil, ErrInvalidCredentials
	}
	return &User{Username: name, Role: role}, nil
}

// RemoteLogin is implemented by client.Client.
type RemoteLogin interface {
	Login(ctx context.Context, username, password string) (*model.User, error)
}

// RemoteDirectory authenticates against the intranet user API.
type RemoteDirectory struct {
	api RemoteLogin
}

func NewRemoteDirectory(api RemoteLogin) *RemoteDirectory {
	return &RemoteDirectory{api: api}
}

func (d *RemoteDirectory) Authenticate(ctx context.Context, username, password string) (*User, error) {
	u, err := d.api.Login(ctx, strings.TrimSpace(username), password)
	if err != nil {
		if apperrors.IsCode(err, apperrors.ErrUnauthorized) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to authenticate: %w", err)
	}

	role, err := roleFromServer(u.Role)
	if err != nil {
		return nil, err
	}
	return &User{Username: u.Name, Role: role}, nil
}

func roleFromServer(r model.Role) (Role, error) {
	switch r {
	case model.RoleTO:
		return RoleTO, nil
	case model.RoleFono:
		return RoleFono, nil
	case model.RolePsico:
		return RolePsico, nil
	case model.RoleMaster, model.RoleAdmin:
		return RoleAdmin, nil
	}
	return "", ErrNoWorkflowRole
}
