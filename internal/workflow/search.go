package workflow

import (
	"context"
	"strings"

	"github.com/clinica/intranet-api/internal/model"
)

// PatientSearcher is implemented by client.Client.
type PatientSearcher interface {
	SearchPatients(ctx context.Context, name string, limit int) ([]model.Patient, error)
}

type SearchSource string

const (
	SourceRemote SearchSource = "remote"
	SourceLocal  SearchSource = "local"
	SourceSample SearchSource = "sample"
)

// PatientSummary is a search hit from any source. Code is set for remote hits,
// RecordID for local and sample ones.
type PatientSummary struct {
	Code       int64  `json:"codigo,omitempty"`
	RecordID   int64  `json:"anamneseId,omitempty"`
	Name       string `json:"nome"`
	BirthDate  string `json:"dataNascimento,omitempty"`
	MotherName string `json:"mae,omitempty"`
	FatherName string `json:"pai,omitempty"`
}

type SearchResult struct {
	Term       string           `json:"term"`
	Source     SearchSource     `json:"source"`
	Patients   []PatientSummary `json:"patients"`
	Generation uint64           `json:"generation"`
	// Stale is set when a newer search started before this one finished.
	Stale bool `json:"stale"`
	// RemoteErr is the remote failure that triggered the fallback, if any.
	RemoteErr string `json:"remoteError,omitempty"`
}

func fromPatient(p model.Patient) PatientSummary {
	s := PatientSummary{Code: p.Code, Name: p.Name}
	if p.BirthDate != nil {
		s.BirthDate = p.BirthDate.Format("02/01/2006")
	}
	if p.MotherName != nil {
		s.MotherName = *p.MotherName
	}
	if p.FatherName != nil {
		s.FatherName = *p.FatherName
	}
	return s
}

func fromRecord(r Record) PatientSummary {
	return PatientSummary{
		RecordID:   r.ID,
		Name:       r.Field(FieldPatientName),
		BirthDate:  r.Field(FieldBirthDate),
		MotherName: r.Field(FieldMotherName),
		FatherName: r.Field(FieldFatherName),
	}
}

// matchRecords keeps records whose patient name contains term, ignoring case.
func matchRecords(records []Record, term string) []PatientSummary {
	needle := strings.ToLower(term)
	out := make([]PatientSummary, 0)
	for _, r := range records {
		name := r.Field(FieldPatientName)
		if name != "" && strings.Contains(strings.ToLower(name), needle) {
			out = append(out, fromRecord(r))
		}
	}
	return out
}
