package elders

import "time"

// Elder es la cuenta del adulto mayor (titular) que puede delegar acceso.
type Elder struct {
	ID   string
	Name string

	// Identifier es el documento nacional normalizado (YYMMDD-PB-NNNN).
	Identifier string

	DateOfBirth *time.Time
	Phone       string
	Address     string

	EmergencyContact  string
	PreferredLanguage string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Profile es la proyección que ve un cuidador con basic_info:read.
// El documento va enmascarado.
type Profile struct {
	ID                string
	Name              string
	MaskedIdentifier  string
	DateOfBirth       *time.Time
	Age               int
	Phone             string
	Address           string
	EmergencyContact  string
	PreferredLanguage string
}
