package sqlserver

import (
	"context"
	"fmt"

	"github.com/clinica/intranet-api/internal/model"
	"github.com/clinica/intranet-api/internal/repository"
	"github.com/clinica/intranet-api/pkg/pagination"
)

const userColumns = "usuario_id, nome, email, role, ativo, data_criacao, data_atualizacao"

type userRepository struct {
	BaseRepository
}

func NewUserRepository(base BaseRepository) repository.UserRepository {
	return &userRepository{base}
}

func (r *userRepository) List(ctx context.Context, q pagination.Query) (pagination.Response[model.User], error) {
	countQuery := `SELECT COUNT(*) AS total FROM Usuarios WHERE ativo = 1`
	pageQuery := `
		SELECT ` + userColumns + `
		FROM Usuarios
		WHERE ativo = 1
		ORDER BY nome
		` + pageClause

	resp, err := paginate[model.User](ctx, r.exec, countQuery, pageQuery, nil, q.Params())
	if err != nil {
		return resp, fmt.Errorf("failed to list users: %w", err)
	}
	return resp, nil
}

func (r *userRepository) GetByID(ctx context.Context, id int64) (*model.User, error) {
	if _, err := sanitizeID(id, "id"); err != nil {
		return nil, err
	}

	query := `
		SELECT ` + userColumns + `
		FROM Usuarios
		WHERE usuario_id = @id AND ativo = 1
	`

	user, err := first[model.User](ctx, r.exec, query, map[string]any{"id": id})
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// FindForLogin loads an active user, including the password hash, by name or
// e-mail.
func (r *userRepository) FindForLogin(ctx context.Context, identifier string) (*model.User, error) {
	clean, err := sanitizeName(identifier, "usuario")
	if err != nil {
		return nil, err
	}

	query := `
		SELECT TOP 1 ` + userColumns + `, senha
		FROM Usuarios
		WHERE (nome = @identifier OR email = @identifier) AND ativo = 1
		ORDER BY usuario_id
	`

	user, err := first[model.User](ctx, r.exec, query, map[string]any{"identifier": clean})
	if err != nil {
		return nil, fmt.Errorf("failed to find user for login: %w", err)
	}
	return user, nil
}

// GetWithPasswordByID is GetByID plus the password hash.
func (r *userRepository) GetWithPasswordByID(ctx context.Context, id int64) (*model.User, error) {
	if _, err := sanitizeID(id, "id"); err != nil {
		return nil, err
	}

	query := `
		SELECT ` + userColumns + `, senha
		FROM Usuarios
		WHERE usuario_id = @id AND ativo = 1
	`

	user, err := first[model.User](ctx, r.exec, query, map[string]any{"id": id})
	if err != nil {
		return nil, fmt.Errorf("failed to get user credentials: %w", err)
	}
	return user, nil
}

func (r *userRepository) ExistsByName(ctx context.Context, name string) (bool, error) {
	clean, err := sanitizeName(name, "nome")
	if err != nil {
		return false, err
	}

	n, err := r.exec.Count(ctx, `SELECT COUNT(*) AS total FROM Usuarios WHERE nome = @nome`, map[string]any{"nome": clean})
	if err != nil {
		return false, fmt.Errorf("failed to check user name: %w", err)
	}
	return n > 0, nil
}

func (r *userRepository) Create(ctx context.Context, user *model.User) (*model.User, error) {
	name, err := sanitizeName(user.Name, "nome")
	if err != nil {
		return nil, err
	}

	role := user.Role
	if role == "" {
		role = model.RoleUser
	}

	query := `
		INSERT INTO Usuarios (nome, email, senha, role)
		OUTPUT INSERTED.usuario_id, INSERTED.nome, INSERTED.email, INSERTED.role,
			INSERTED.ativo, INSERTED.data_criacao, INSERTED.data_atualizacao
		VALUES (@nome, @email, @senha, @role)
	`

	created, err := first[model.User](ctx, r.exec, query, map[string]any{
		"nome":  name,
		"email": user.Email,
		"senha": user.Password,
		"role":  string(role),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	if created == nil {
		return nil, fmt.Errorf("failed to create user: no row returned")
	}
	return created, nil
}

// Update applies the non-nil fields of req. It returns nil when the user does
// not exist.
func (r *userRepository) Update(ctx context.Context, id int64, req model.UpdateUserRequest) (*model.User, error) {
	if _, err := sanitizeID(id, "id"); err != nil {
		return nil, err
	}

	params := map[string]any{"id": id, "nome": nil, "email": nil, "role": nil, "ativo": nil}
	if req.Name != nil {
		name, err := sanitizeName(*req.Name, "nome")
		if err != nil {
			return nil, err
		}
		params["nome"] = name
	}
	if req.Email != nil {
		params["email"] = *req.Email
	}
	if req.Role != nil {
		params["role"] = string(*req.Role)
	}
	if req.Active != nil {
		params["ativo"] = *req.Active
	}

	query := `
		UPDATE Usuarios
		SET nome = COALESCE(@nome, nome),
			email = COALESCE(@email, email),
			role = COALESCE(@role, role),
			ativo = COALESCE(@ativo, ativo),
			data_atualizacao = GETDATE()
		OUTPUT INSERTED.usuario_id, INSERTED.nome, INSERTED.email, INSERTED.role,
			INSERTED.ativo, INSERTED.data_criacao, INSERTED.data_atualizacao
		WHERE usuario_id = @id
	`

	user, err := first[model.User](ctx, r.exec, query, params)
	if err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	return user, nil
}

// Deactivate soft-deletes the user; it reports false when no row matched.
func (r *userRepository) Deactivate(ctx context.Context, id int64) (bool, error) {
	if _, err := sanitizeID(id, "id"); err != nil {
		return false, err
	}

	rows, err := r.exec.Exec(ctx, `
		UPDATE Usuarios
		SET ativo = 0, data_atualizacao = GETDATE()
		WHERE usuario_id = @id AND ativo = 1
	`, map[string]any{"id": id})
	if err != nil {
		return false, fmt.Errorf("failed to deactivate user: %w", err)
	}
	return rows > 0, nil
}

func (r *userRepository) UpdatePassword(ctx context.Context, id int64, hash string) (bool, error) {
	if _, err := sanitizeID(id, "id"); err != nil {
		return false, err
	}

	rows, err := r.exec.Exec(ctx, `
		UPDATE Usuarios
		SET senha = @senha, data_atualizacao = GETDATE()
		WHERE usuario_id = @id AND ativo = 1
	`, map[string]any{"id": id, "senha": hash})
	if err != nil {
		return false, fmt.Errorf("failed to update password: %w", err)
	}
	return rows > 0, nil
}
