package auth

// Claims representa la información extraída del token.
type Claims struct {
	UserID   string
	Email    string
	TenantID string

	// Role: "caregiver" | "elder" | "admin". Informativo; la autorización fina
	// la decide el dominio comparando ids.
	Role string
	Name string
}
