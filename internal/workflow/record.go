package workflow

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusPending Status = "pendente"
	StatusDone    Status = "concluído"
)

type Overall string

const (
	OverallIncomplete Overall = "incompleto"
	OverallComplete   Overall = "completo"
)

// Field names used by search and the sample records.
const (
	FieldPatientName = "paciente-nome"
	FieldBirthDate   = "paciente-dn"
	FieldMotherName  = "mae-nome"
	FieldFatherName  = "pai-nome"
)

// Record is an anamnesis. Overall is derived from the three role statuses.
type Record struct {
	ID              int64          `json:"id"`
	Data            map[string]any `json:"data"`
	CadastralStatus Status         `json:"cadastralStatus"`
	TOStatus        Status         `json:"toStatus"`
	FonoStatus      Status         `json:"fonoStatus"`
	PsicoStatus     Status         `json:"psicoStatus"`
	OverallStatus   Overall        `json:"overallStatus"`
	CreatedAt       time.Time      `json:"createdAt"`
	UpdatedAt       time.Time      `json:"updatedAt"`
}

func NewRecord(id int64, data map[string]any, now time.Time) *Record {
	if data == nil {
		data = map[string]any{}
	}
	r := &Record{
		ID:              id,
		Data:            data,
		CadastralStatus: StatusDone,
		TOStatus:        StatusPending,
		FonoStatus:      StatusPending,
		PsicoStatus:     StatusPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	r.recompute()
	return r
}

// Merge copies fields into the record, overwriting existing keys.
func (r *Record) Merge(fields map[string]any) {
	if r.Data == nil {
		r.Data = make(map[string]any, len(fields))
	}
	for k, v := range fields {
		r.Data[k] = v
	}
}

// Complete marks role's section as done and reports whether it was pending.
func (r *Record) Complete(role Role, now time.Time) bool {
	var status *Status
	switch role {
	case RoleTO:
		status = &r.TOStatus
	case RoleFono:
		status = &r.FonoStatus
	case RolePsico:
		status = &r.PsicoStatus
	case RoleAdmin:
		return false
	default:
		panic(fmt.Sprintf("workflow: unhandled role %q", string(role)))
	}

	changed := *status != StatusDone
	*status = StatusDone
	r.UpdatedAt = now
	r.recompute()
	return changed
}

// StatusOf returns the status of role's section.
func (r *Record) StatusOf(role Role) (Status, bool) {
	switch role {
	case RoleTO:
		return r.TOStatus, true
	case RoleFono:
		return r.FonoStatus, true
	case RolePsico:
		return r.PsicoStatus, true
	}
	return "", false
}

func (r *Record) recompute() {
	if r.TOStatus == StatusDone && r.FonoStatus == StatusDone && r.PsicoStatus == StatusDone {
		r.OverallStatus = OverallComplete
		return
	}
	r.OverallStatus = OverallIncomplete
}

// Field returns a data field as a trimmed string.
func (r *Record) Field(name string) string {
	v, ok := r.Data[name]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(fmt.Sprint(v))
}

// Notification tells the next role that a section was completed.
type Notification struct {
	ID          string    `json:"id"`
	TargetRole  Role      `json:"targetRole"`
	Message     string    `json:"message"`
	AnamnesisID int64     `json:"anamnesisId"`
	Read        bool      `json:"read"`
	CreatedAt   time.Time `json:"createdAt"`
}

func newHandoff(from, to Role, anamnesisID int64, now time.Time) Notification {
	return Notification{
		ID:          uuid.NewString(),
		TargetRole:  to,
		Message:     fmt.Sprintf("Avaliação de %s concluída. Próxima etapa: %s.", from, to),
		AnamnesisID: anamnesisID,
		CreatedAt:   now,
	}
}
