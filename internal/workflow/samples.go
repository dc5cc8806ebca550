package workflow

import "time"

// sampleRecords are the intake records shown on a fresh installation and used
// as the last search fallback.
func sampleRecords(firstID int64, now time.Time) []Record {
	data := []map[string]any{
		{
			"anamnese-data":        "01/09/2025",
			"anamnese-responsavel": "Dra. Beatriz",
			FieldPatientName:       "Ana Silva",
			FieldBirthDate:         "15/03/2018",
			"paciente-idade":       "7",
			FieldMotherName:        "Maria Silva",
			FieldFatherName:        "João Silva",
		},
		{
			"anamnese-data":        "02/09/2025",
			"anamnese-responsavel": "Dr. Ricardo",
			FieldPatientName:       "Carlos Souza",
			FieldBirthDate:         "22/11/2016",
			"paciente-idade":       "8",
			FieldMotherName:        "Patrícia Souza",
			FieldFatherName:        "Roberto Souza",
		},
		{
			"anamnese-data":        "03/09/2025",
			"anamnese-responsavel": "Dra. Carla",
			FieldPatientName:       "Mariana Costa",
			FieldBirthDate:         "05/05/2017",
			"paciente-idade":       "8",
			FieldMotherName:        "Fernanda Costa",
			FieldFatherName:        "Carlos Costa",
		},
	}

	out := make([]Record, 0, len(data))
	for i, d := range data {
		out = append(out, *NewRecord(firstID+int64(i), d, now))
	}
	return out
}
