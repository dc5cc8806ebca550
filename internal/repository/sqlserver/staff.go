package sqlserver

import (
	"context"
	"fmt"

	"github.com/clinica/intranet-api/internal/model"
	"github.com/clinica/intranet-api/internal/repository"
	"github.com/clinica/intranet-api/pkg/pagination"
)

// Legacy bit flags can be NULL; they read as false.
const staffColumns = `
	usrCodigo,
	usrNome,
	usrDtNasc,
	ISNULL(usrFlagMedico, 0) AS usrFlagMedico,
	usrNomeCompleto,
	usrCRM,
	usrCpfCgc,
	ISNULL(usrFlagAtivo, 0) AS usrFlagAtivo,
	ISNULL(usrFlagDeletado, 0) AS usrFlagDeletado,
	usrAssinatura,
	ISNULL(usrFlagTemMensagem, 0) AS usrFlagTemMensagem`

const activeStaffFilter = `usrFlagAtivo = 1 AND ISNULL(usrFlagDeletado, 0) = 0`

type staffRepository struct {
	BaseRepository
}

func NewStaffRepository(base BaseRepository) repository.StaffRepository {
	return &staffRepository{base}
}

func (r *staffRepository) SearchByName(ctx context.Context, name string, q pagination.Query) (pagination.Response[model.StaffMember], error) {
	clean, err := sanitizeName(name, "nome")
	if err != nil {
		return pagination.Response[model.StaffMember]{}, err
	}

	countQuery := `
		SELECT COUNT(*) AS total
		FROM [dfMed].[dbo].[Usuarios]
		WHERE usrNome LIKE @nome AND ` + activeStaffFilter
	pageQuery := `
		SELECT ` + staffColumns + `
		FROM [dfMed].[dbo].[Usuarios]
		WHERE usrNome LIKE @nome AND ` + activeStaffFilter + `
		ORDER BY usrNome
		` + pageClause

	resp, err := paginate[model.StaffMember](ctx, r.exec, countQuery, pageQuery,
		map[string]any{"nome": like(clean)}, q.Params())
	if err != nil {
		return resp, fmt.Errorf("failed to search staff by name: %w", err)
	}
	return resp, nil
}

func (r *staffRepository) GetByCode(ctx context.Context, code string) (*model.StaffMember, error) {
	id, err := sanitizeID(code, "codigo")
	if err != nil {
		return nil, err
	}

	query := `
		SELECT ` + staffColumns + `
		FROM [dfMed].[dbo].[Usuarios]
		WHERE usrCodigo = @codigo AND ` + activeStaffFilter

	member, err := first[model.StaffMember](ctx, r.exec, query, map[string]any{"codigo": id})
	if err != nil {
		return nil, fmt.Errorf("failed to get staff member: %w", err)
	}
	return member, nil
}

func (r *staffRepository) List(ctx context.Context, q pagination.Query) (pagination.Response[model.StaffMember], error) {
	countQuery := `
		SELECT COUNT(*) AS total
		FROM [dfMed].[dbo].[Usuarios]
		WHERE ` + activeStaffFilter
	pageQuery := `
		SELECT ` + staffColumns + `
		FROM [dfMed].[dbo].[Usuarios]
		WHERE ` + activeStaffFilter + `
		ORDER BY usrNome
		` + pageClause

	resp, err := paginate[model.StaffMember](ctx, r.exec, countQuery, pageQuery, nil, q.Params())
	if err != nil {
		return resp, fmt.Errorf("failed to list staff: %w", err)
	}
	return resp, nil
}
