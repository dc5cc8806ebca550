package sqlserver

import (
	"context"

	"github.com/clinica/intranet-api/internal/database"
	"github.com/clinica/intranet-api/pkg/errors"
	"github.com/clinica/intranet-api/pkg/pagination"
	"github.com/clinica/intranet-api/pkg/validator"
)

const pageClause = "OFFSET @offset ROWS FETCH NEXT @limit ROWS ONLY"

type BaseRepository struct {
	exec *database.Executor
}

func NewBaseRepository(exec *database.Executor) BaseRepository {
	return BaseRepository{exec: exec}
}

// paginate runs countQuery and, when it finds rows, pageQuery with @offset and
// @limit bound from p.
func paginate[T any](ctx context.Context, exec *database.Executor, countQuery, pageQuery string, params database.Params, p pagination.Params) (pagination.Response[T], error) {
	total, err := exec.Count(ctx, countQuery, params)
	if err != nil {
		return pagination.Response[T]{}, err
	}
	if total == 0 {
		return pagination.Empty[T](p), nil
	}

	pageParams := make(database.Params, len(params)+2)
	for k, v := range params {
		pageParams[k] = v
	}
	pageParams["offset"] = p.Offset
	pageParams["limit"] = p.Limit

	var rows []T
	if err := exec.Select(ctx, &rows, pageQuery, pageParams); err != nil {
		return pagination.Response[T]{}, err
	}
	return pagination.NewResponse(rows, total, p.Page, p.Limit), nil
}

// first returns the first row of query or nil when there is none.
func first[T any](ctx context.Context, exec *database.Executor, query string, params database.Params) (*T, error) {
	var rows []T
	if err := exec.Select(ctx, &rows, query, params); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

func sanitizeName(name, param string) (string, error) {
	clean, ok := validator.SanitizeString(name, validator.DefaultMaxLength)
	if !ok {
		return "", errors.InvalidParam(param)
	}
	return clean, nil
}

func sanitizeID(value any, param string) (int64, error) {
	id, ok := validator.SanitizeInt(value, validator.Min(1))
	if !ok {
		return 0, errors.InvalidParam(param)
	}
	return id, nil
}

func like(s string) string {
	return "%" + s + "%"
}
