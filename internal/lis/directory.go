package lis

// Sample is one specimen awaiting analysis, with the tests ordered for it.
type Sample struct {
	ID            string
	PatientID     string
	PatientName   string
	PatientGender string
	PatientDOB    string
	Tests         []string
}

// HasTest reports whether the test code was ordered for this sample.
func (s Sample) HasTest(code string) bool {
	for _, t := range s.Tests {
		if t == code {
			return true
		}
	}
	return false
}

// TestDefinition maps an analyzer test code to its display name.
type TestDefinition struct {
	Code string
	Name string
}

// Directory holds the reference data the analyzer queries against. It is
// populated once at startup and read-only afterwards.
type Directory struct {
	samples map[string]Sample
	tests   []TestDefinition
}

func NewDirectory(samples []Sample, tests []TestDefinition) *Directory {
	d := &Directory{
		samples: make(map[string]Sample, len(samples)),
		tests:   tests,
	}
	for _, s := range samples {
		d.samples[s.ID] = s
	}
	return d
}

// DefaultDirectory returns the built-in demo samples and test catalog.
func DefaultDirectory() *Directory {
	return NewDirectory(
		[]Sample{
			{
				ID:            "S001",
				PatientID:     "P12345",
				PatientName:   "John Doe",
				PatientGender: "M",
				PatientDOB:    "1980-01-15",
				Tests:         []string{"CBC", "GLU", "CRE"},
			},
			{
				ID:            "S002",
				PatientID:     "P67890",
				PatientName:   "Jane Smith",
				PatientGender: "F",
				PatientDOB:    "1990-05-20",
				Tests:         []string{"HBA1C", "TSH"},
			},
		},
		[]TestDefinition{
			{Code: "CBC", Name: "Complete Blood Count"},
			{Code: "GLU", Name: "Glucose"},
			{Code: "CRE", Name: "Creatinine"},
			{Code: "HBA1C", Name: "Hemoglobin A1C"},
			{Code: "TSH", Name: "Thyroid Stimulating Hormone"},
			{Code: "ALT", Name: "Alanine Aminotransferase"},
			{Code: "AST", Name: "Aspartate Aminotransferase"},
		},
	)
}

// Sample looks up a specimen by its analyzer-facing ID.
func (d *Directory) Sample(id string) (Sample, bool) {
	s, ok := d.samples[id]
	return s, ok
}

// Tests returns the catalog in its defined order.
func (d *Directory) Tests() []TestDefinition {
	return d.tests
}

// TestName resolves a code to its display name.
func (d *Directory) TestName(code string) (string, bool) {
	for _, t := range d.tests {
		if t.Code == code {
			return t.Name, true
		}
	}
	return "", false
}
