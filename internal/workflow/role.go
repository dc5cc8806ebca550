package workflow

import (
	"fmt"
	"strings"
)

// Role is a clinical role taking part in the anamnesis.
type Role string

const (
	RoleTO    Role = "TO"
	RoleFono  Role = "Fono"
	RolePsico Role = "Psico"
	RoleAdmin Role = "Admin"
)

// Form sections. The shared ones are visible to every role.
const (
	SectionIdentification = "IDENTIFICAÇÃO"
	SectionSchool         = "ESCOLA E ROTINA ESCOLAR"
	SectionDailyRoutine   = "ROTINA DIÁRIA E AVDs"
	SectionMedical        = "INFORMAÇÕES MÉDICAS"

	SectionOccupationalTherapy = "TERAPIA OCUPACIONAL"
	SectionSpeechTherapy       = "FONOAUDIOLOGIA"
	SectionPsychology          = "PSICOLOGIA"
)

// SharedSections returns the sections every role sees, in form order.
func SharedSections() []string {
	return []string{SectionIdentification, SectionSchool, SectionDailyRoutine, SectionMedical}
}

// Roles lists every role in workflow order.
func Roles() []Role {
	return []Role{RoleTO, RoleFono, RolePsico, RoleAdmin}
}

// ParseRole matches s case-insensitively.
func ParseRole(s string) (Role, error) {
	for _, r := range Roles() {
		if strings.EqualFold(strings.TrimSpace(s), string(r)) {
			return r, nil
		}
	}
	return "", fmt.Errorf("unknown role %q", s)
}

// Section is the role's own form section. Admin has none.
func (r Role) Section() (string, bool) {
	switch r {
	case RoleTO:
		return SectionOccupationalTherapy, true
	case RoleFono:
		return SectionSpeechTherapy, true
	case RolePsico:
		return SectionPsychology, true
	case RoleAdmin:
		return "", false
	}
	panic(fmt.Sprintf("workflow: unhandled role %q", string(r)))
}

// Next is the role notified once r completes its section.
func (r Role) Next() (Role, bool) {
	switch r {
	case RoleTO:
		return RoleFono, true
	case RoleFono:
		return RolePsico, true
	case RolePsico, RoleAdmin:
		return "", false
	}
	panic(fmt.Sprintf("workflow: unhandled role %q", string(r)))
}

// User is the logged-in session.
type User struct {
	Username string `json:"username"`
	Role     Role   `json:"role"`
}
