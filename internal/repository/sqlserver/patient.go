package sqlserver

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/clinica/intranet-api/internal/model"
	"github.com/clinica/intranet-api/internal/repository"
	"github.com/clinica/intranet-api/pkg/pagination"
	"github.com/clinica/intranet-api/pkg/validator"
)

var patientSortFields = []string{"pacNome", "pacCodigo", "pacDtNasc"}

const openPendingFilter = `s.nome_status NOT IN ('Concluída', 'Cancelada')`

type patientRepository struct {
	BaseRepository
}

func NewPatientRepository(base BaseRepository) repository.PatientRepository {
	return &patientRepository{base}
}

func (r *patientRepository) SearchByName(ctx context.Context, name string, q pagination.Query) (pagination.Response[model.Patient], error) {
	clean, err := sanitizeName(name, "nome")
	if err != nil {
		return pagination.Response[model.Patient]{}, err
	}

	sort := validator.SortParams(q.SortBy, q.SortOrder, patientSortFields, "pacNome")

	countQuery := `
		SELECT COUNT(*) AS total
		FROM CadPac
		WHERE pacNome LIKE @nome
	`
	pageQuery := fmt.Sprintf(`
		SELECT pacCodigo, pacNome, pacDtNasc, pacSexo
		FROM CadPac
		WHERE pacNome LIKE @nome
		ORDER BY %s
		%s
	`, sort.Clause(), pageClause)

	resp, err := paginate[model.Patient](ctx, r.exec, countQuery, pageQuery,
		map[string]any{"nome": like(clean)}, q.Params())
	if err != nil {
		return resp, fmt.Errorf("failed to search patients by name: %w", err)
	}
	return resp, nil
}

func (r *patientRepository) GetByCode(ctx context.Context, code string) (*model.Patient, error) {
	id, err := sanitizeID(code, "codigo")
	if err != nil {
		return nil, err
	}

	query := `
		SELECT pacCodigo, pacNome, pacDtNasc, pacSexo, pacPaiNome, pacMaeNome
		FROM CadPac
		WHERE pacCodigo = @pacCodigo
	`

	patient, err := first[model.Patient](ctx, r.exec, query, map[string]any{"pacCodigo": id})
	if err != nil {
		return nil, fmt.Errorf("failed to get patient: %w", err)
	}
	return patient, nil
}

func (r *patientRepository) ListByTherapist(ctx context.Context, therapistID string, q pagination.Query) (pagination.Response[model.TherapistPatient], error) {
	id, err := sanitizeID(therapistID, "terapeutaId")
	if err != nil {
		return pagination.Response[model.TherapistPatient]{}, err
	}

	countQuery := `
		SELECT COUNT(*) AS total
		FROM Pacientes p
		INNER JOIN Paciente_Terapeuta pt ON p.paciente_id = pt.paciente_id
		WHERE pt.terapeuta_id = @terapeuta_id AND pt.data_fim IS NULL
	`
	pageQuery := `
		SELECT
			p.paciente_id,
			p.nome,
			p.data_nascimento,
			p.genero,
			pt.data_inicio AS data_inicio_terapia
		FROM Pacientes p
		INNER JOIN Paciente_Terapeuta pt ON p.paciente_id = pt.paciente_id
		WHERE pt.terapeuta_id = @terapeuta_id AND pt.data_fim IS NULL
		ORDER BY p.nome
		` + pageClause

	resp, err := paginate[model.TherapistPatient](ctx, r.exec, countQuery, pageQuery,
		map[string]any{"terapeuta_id": id}, q.Params())
	if err != nil {
		return resp, fmt.Errorf("failed to list patients by therapist: %w", err)
	}
	return resp, nil
}

func (r *patientRepository) ListWithPendingItems(ctx context.Context, q pagination.Query) (pagination.Response[model.PendingPatient], error) {
	countQuery := `
		SELECT COUNT(DISTINCT p.paciente_id) AS total
		FROM Pacientes p
		INNER JOIN Pendencias pen ON p.paciente_id = pen.paciente_id
		INNER JOIN Status s ON pen.status_id = s.status_id
		WHERE ` + openPendingFilter
	pageQuery := `
		SELECT
			p.paciente_id,
			p.nome,
			p.data_nascimento,
			COUNT(pen.pendencia_id) AS total_pendencias,
			STRING_AGG(s.nome_status, ', ') AS status_pendencias
		FROM Pacientes p
		INNER JOIN Pendencias pen ON p.paciente_id = pen.paciente_id
		INNER JOIN Status s ON pen.status_id = s.status_id
		WHERE ` + openPendingFilter + `
		GROUP BY p.paciente_id, p.nome, p.data_nascimento
		ORDER BY total_pendencias DESC, p.nome
		` + pageClause

	resp, err := paginate[model.PendingPatient](ctx, r.exec, countQuery, pageQuery, nil, q.Params())
	if err != nil {
		return resp, fmt.Errorf("failed to list patients with pending items: %w", err)
	}
	return resp, nil
}

func (r *patientRepository) Statistics(ctx context.Context) (*model.PatientStatistics, error) {
	var stats model.PatientStatistics

	counts := []struct {
		dest  *int
		query string
	}{
		{&stats.TotalPatients, `SELECT COUNT(*) AS count FROM Pacientes`},
		{&stats.ActivePatients, `
			SELECT COUNT(DISTINCT p.paciente_id) AS count
			FROM Pacientes p
			INNER JOIN Paciente_Terapeuta pt ON p.paciente_id = pt.paciente_id
			WHERE pt.data_fim IS NULL`},
		{&stats.PatientsWithPending, `
			SELECT COUNT(DISTINCT p.paciente_id) AS count
			FROM Pacientes p
			INNER JOIN Pendencias pen ON p.paciente_id = pen.paciente_id
			INNER JOIN Status s ON pen.status_id = s.status_id
			WHERE ` + openPendingFilter},
		{&stats.ActiveTherapists, `SELECT COUNT(*) AS count FROM Terapeutas`},
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, c := range counts {
		c := c
		g.Go(func() error {
			n, err := r.exec.Count(gctx, c.query, nil)
			if err != nil {
				return err
			}
			*c.dest = n
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to load patient statistics: %w", err)
	}

	return &stats, nil
}

func (r *patientRepository) ListCandidates(ctx context.Context) ([]model.Candidate, error) {
	query := `
		SELECT TOP 100 pacCodigo, pacNome
		FROM CadPac
		WHERE pacNome IS NOT NULL AND LEN(pacNome) > 0
		ORDER BY pacNome
	`

	candidates := make([]model.Candidate, 0)
	if err := r.exec.Select(ctx, &candidates, query, nil); err != nil {
		return nil, fmt.Errorf("failed to list candidates: %w", err)
	}
	return candidates, nil
}
