// Package registryhttp resuelve cuentas de adultos mayores contra el registro
// externo de residentes. Implementa elders.Repository.
package registryhttp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"caregiver-access/internal/domain/elders"
	"caregiver-access/internal/platform/apperrors"
	"caregiver-access/internal/platform/httpclient"
)

var (
	ErrNotConfigured = errors.New("resident registry not configured")
	ErrUnauthorized  = errors.New("resident registry unauthorized")
)

type Config struct {
	BaseURL string
	APIKey  string

	APIKeyHeader string
	Timeout      time.Duration
}

type Client struct {
	http         *httpclient.Client
	apiKey       string
	apiKeyHeader string
}

func NewClient(cfg Config) (*Client, error) {
	h := strings.TrimSpace(cfg.APIKeyHeader)
	if h == "" {
		h = "X-Api-Key"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	hc, err := httpclient.NewWithBaseURL(strings.TrimSpace(cfg.BaseURL), timeout)
	if err != nil {
		return nil, err
	}
	return &Client{
		http:         hc,
		apiKey:       strings.TrimSpace(cfg.APIKey),
		apiKeyHeader: h,
	}, nil
}

func (c *Client) IsConfigured() bool {
	return c != nil && c.http != nil && c.http.BaseURL != "" && c.apiKey != ""
}

type residentResponse struct {
	ID                string `json:"id"`
	Name              string `json:"name"`
	Identifier        string `json:"identifier"`
	DateOfBirth       string `json:"date_of_birth"` // YYYY-MM-DD
	Phone             string `json:"phone"`
	Address           string `json:"address"`
	EmergencyContact  string `json:"emergency_contact"`
	PreferredLanguage string `json:"preferred_language"`
}

func (c *Client) GetByID(ctx context.Context, id string) (elders.Elder, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return elders.Elder{}, apperrors.Validationf("elder id is required")
	}
	return c.fetch(ctx, "/v1/residents/"+url.PathEscape(id))
}

// GetByIdentifier espera el documento ya normalizado.
func (c *Client) GetByIdentifier(ctx context.Context, identifier string) (elders.Elder, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return elders.Elder{}, apperrors.Validationf("identifier is required")
	}
	return c.fetch(ctx, "/v1/residents?identifier="+url.QueryEscape(identifier))
}

func (c *Client) fetch(ctx context.Context, path string) (elders.Elder, error) {
	if !c.IsConfigured() {
		return elders.Elder{}, apperrors.Unavailable(ErrNotConfigured)
	}

	var out residentResponse
	err := c.http.DoJSON(ctx, http.MethodGet, path, map[string]string{c.apiKeyHeader: c.apiKey}, nil, &out)
	if err != nil {
		switch httpclient.StatusCode(err) {
		case http.StatusNotFound:
			return elders.Elder{}, apperrors.NotFoundf("elder not found")
		case http.StatusUnauthorized, http.StatusForbidden:
			return elders.Elder{}, apperrors.Unavailable(ErrUnauthorized)
		default:
			return elders.Elder{}, err
		}
	}
	return toElder(out)
}

func toElder(r residentResponse) (elders.Elder, error) {
	if strings.TrimSpace(r.ID) == "" {
		return elders.Elder{}, apperrors.Unavailable(fmt.Errorf("registry response missing id"))
	}

	identifier, err := elders.NormalizeIdentifier(r.Identifier)
	if err != nil {
		return elders.Elder{}, apperrors.Unavailable(fmt.Errorf("registry returned invalid identifier: %w", err))
	}

	e := elders.Elder{
		ID:                strings.TrimSpace(r.ID),
		Name:              strings.TrimSpace(r.Name),
		Identifier:        identifier,
		Phone:             r.Phone,
		Address:           r.Address,
		EmergencyContact:  r.EmergencyContact,
		PreferredLanguage: r.PreferredLanguage,
	}
	if r.DateOfBirth != "" {
		dob, err := time.Parse("2006-01-02", r.DateOfBirth)
		if err == nil {
			e.DateOfBirth = &dob
		}
	}
	return e, nil
}

var _ elders.Repository = (*Client)(nil)
