package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRole(t *testing.T) {
	for in, want := range map[string]Role{
		"TO": RoleTO, "fono": RoleFono, " PSICO ": RolePsico, "admin": RoleAdmin,
	} {
		got, err := ParseRole(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}

	_, err := ParseRole("medico")
	assert.Error(t, err)
}

func TestRoleSequence(t *testing.T) {
	tests := []struct {
		role       Role
		section    string
		hasSection bool
		next       Role
		hasNext    bool
	}{
		{RoleTO, SectionOccupationalTherapy, true, RoleFono, true},
		{RoleFono, SectionSpeechTherapy, true, RolePsico, true},
		{RolePsico, SectionPsychology, true, "", false},
		{RoleAdmin, "", false, "", false},
	}

	for _, tt := range tests {
		t.Run(string(tt.role), func(t *testing.T) {
			section, ok := tt.role.Section()
			assert.Equal(t, tt.section, section)
			assert.Equal(t, tt.hasSection, ok)

			next, ok := tt.role.Next()
			assert.Equal(t, tt.next, next)
			assert.Equal(t, tt.hasNext, ok)
		})
	}
}

func TestEveryRoleIsHandled(t *testing.T) {
	for _, r := range Roles() {
		assert.NotPanics(t, func() {
			r.Section()
			r.Next()
		}, string(r))
	}
	assert.Panics(t, func() { Role("Medico").Section() })
}
