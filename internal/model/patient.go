package model

import "time"

// Patient is a row of the dfMed CadPac table. Lookup by name only fills the
// first four columns.
type Patient struct {
	Code       int64      `db:"pacCodigo" json:"pacCodigo"`
	Name       string     `db:"pacNome" json:"pacNome"`
	BirthDate  *time.Time `db:"pacDtNasc" json:"pacDtNasc"`
	Sex        *string    `db:"pacSexo" json:"pacSexo"`
	FatherName *string    `db:"pacPaiNome" json:"pacPaiNome,omitempty"`
	MotherName *string    `db:"pacMaeNome" json:"pacMaeNome,omitempty"`
}

// TherapistPatient is a patient with an open assignment to a therapist.
type TherapistPatient struct {
	ID           int64      `db:"paciente_id" json:"paciente_id"`
	Name         string     `db:"nome" json:"nome"`
	BirthDate    *time.Time `db:"data_nascimento" json:"data_nascimento"`
	Gender       *string    `db:"genero" json:"genero"`
	TherapyStart *time.Time `db:"data_inicio_terapia" json:"data_inicio_terapia"`
}

// PendingPatient is a patient with open pending items.
type PendingPatient struct {
	ID           int64      `db:"paciente_id" json:"paciente_id"`
	Name         string     `db:"nome" json:"nome"`
	BirthDate    *time.Time `db:"data_nascimento" json:"data_nascimento"`
	PendingCount int        `db:"total_pendencias" json:"total_pendencias"`
	Statuses     *string    `db:"status_pendencias" json:"status_pendencias"`
}

// PatientStatistics aggregates clinic-wide counts.
type PatientStatistics struct {
	TotalPatients       int `json:"total_pacientes"`
	ActivePatients      int `json:"pacientes_ativos"`
	PatientsWithPending int `json:"pacientes_com_pendencias"`
	ActiveTherapists    int `json:"terapeutas_ativos"`
}
