package elders

import (
	"regexp"
	"strings"
	"time"

	"caregiver-access/internal/platform/apperrors"
)

var (
	identifierDashed = regexp.MustCompile(`^\d{6}-\d{2}-\d{4}$`)
	identifierPlain  = regexp.MustCompile(`^\d{12}$`)
)

// NormalizeIdentifier valida el documento nacional (formato YYMMDD-PB-NNNN) y lo devuelve
// con guiones. Acepta también los 12 dígitos sin separadores.
func NormalizeIdentifier(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	s = strings.ReplaceAll(s, " ", "")
	if s == "" {
		return "", apperrors.Validationf("target identifier required")
	}

	switch {
	case identifierDashed.MatchString(s):
	case identifierPlain.MatchString(s):
		s = s[:6] + "-" + s[6:8] + "-" + s[8:]
	default:
		return "", apperrors.Validationf("target identifier %q must match YYMMDD-PB-NNNN", raw)
	}

	// YYMMDD debe ser una fecha real; el siglo no importa para validar.
	if _, err := time.Parse("060102", s[:6]); err != nil {
		return "", apperrors.Validationf("target identifier %q has an invalid birth date", raw)
	}
	return s, nil
}

// MaskIdentifier deja visible la fecha y los dos últimos dígitos: 850101-**-**34.
func MaskIdentifier(id string) string {
	if !identifierDashed.MatchString(id) {
		if len(id) <= 2 {
			return strings.Repeat("*", len(id))
		}
		return strings.Repeat("*", len(id)-2) + id[len(id)-2:]
	}
	return id[:6] + "-**-**" + id[len(id)-2:]
}
