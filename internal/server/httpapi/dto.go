package httpapi

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/dmitrijs2005/travelkeeper/internal/common"
	"github.com/dmitrijs2005/travelkeeper/internal/server/models"
	"github.com/dmitrijs2005/travelkeeper/internal/server/services"
)

const (
	maxBodyBytes = 1 << 20
	dateLayout   = time.DateOnly
)

type credentialsRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type placeRequest struct {
	ExternalID string  `json:"external_id" validate:"required"`
	Notes      *string `json:"notes"`
}

type projectRequest struct {
	Name        string         `json:"name" validate:"required,max=255"`
	Description *string        `json:"description"`
	StartDate   *string        `json:"start_date" validate:"omitempty,datetime=2006-01-02"`
	Places      []placeRequest `json:"places" validate:"dive"`
}

type accountResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

type loginResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}

type accessTokenResponse struct {
	AccessToken string `json:"access_token"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type placeResponse struct {
	ID         int64   `json:"id"`
	ExternalID string  `json:"external_id"`
	Notes      *string `json:"notes"`
	IsVisited  bool    `json:"is_visited"`
	ProjectID  int64   `json:"project_id"`
}

type projectResponse struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Description *string         `json:"description"`
	StartDate   *string         `json:"start_date"`
	Places      []placeResponse `json:"places"`
}

// decodeJSON reads at most maxBodyBytes of r's body into dst.
func decodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(dst); err != nil {
		return common.NewValidationError("body", "Invalid JSON body")
	}
	return nil
}

func parseDate(field string, s *string) (*time.Time, error) {
	if s == nil {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, *s)
	if err != nil {
		return nil, common.NewValidationError(field, "Input should be a valid date in the format YYYY-MM-DD")
	}
	return &t, nil
}

func (p projectRequest) input() (services.ProjectInput, error) {
	start, err := parseDate("start_date", p.StartDate)
	if err != nil {
		return services.ProjectInput{}, err
	}

	in := services.ProjectInput{
		Name:        p.Name,
		Description: p.Description,
		StartDate:   start,
		Places:      make([]services.PlaceInput, len(p.Places)),
	}
	for i, pl := range p.Places {
		in.Places[i] = pl.input()
	}
	return in, nil
}

func (p placeRequest) input() services.PlaceInput {
	return services.PlaceInput{ExternalID: p.ExternalID, Notes: p.Notes}
}

var jsonNull = []byte("null")

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), jsonNull)
}

// nullable decodes an optional, clearable patch field. An absent key leaves
// the result unset; an explicit null sets it with a nil value.
func nullable[T any](fields map[string]json.RawMessage, key, msg string) (services.Nullable[T], error) {
	raw, ok := fields[key]
	if !ok {
		return services.Nullable[T]{}, nil
	}
	if isNull(raw) {
		return services.Nullable[T]{Set: true}, nil
	}
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return services.Nullable[T]{}, common.NewValidationError(key, msg)
	}
	return services.Nullable[T]{Set: true, Value: &v}, nil
}

// optional decodes a patch field that cannot be cleared; null means absent.
func optional[T any](fields map[string]json.RawMessage, key, msg string) (*T, error) {
	n, err := nullable[T](fields, key, msg)
	if err != nil {
		return nil, err
	}
	return n.Value, nil
}

func decodePatch(r *http.Request) (map[string]json.RawMessage, error) {
	var fields map[string]json.RawMessage
	if err := decodeJSON(r, &fields); err != nil {
		return nil, err
	}
	if fields == nil {
		return nil, common.NewValidationError("body", "Input should be a valid JSON object")
	}
	return fields, nil
}

func projectPatchFrom(fields map[string]json.RawMessage) (services.ProjectPatch, error) {
	var (
		patch services.ProjectPatch
		err   error
	)

	if patch.Name, err = optional[string](fields, "name", "Input should be a valid string"); err != nil {
		return patch, err
	}
	if patch.Description, err = nullable[string](fields, "description", "Input should be a valid string"); err != nil {
		return patch, err
	}

	start, err := nullable[string](fields, "start_date", "Input should be a valid date in the format YYYY-MM-DD")
	if err != nil {
		return patch, err
	}
	if start.Set {
		patch.StartDate.Set = true
		if patch.StartDate.Value, err = parseDate("start_date", start.Value); err != nil {
			return patch, err
		}
	}

	return patch, nil
}

func placePatchFrom(fields map[string]json.RawMessage) (services.PlacePatch, error) {
	var (
		patch services.PlacePatch
		err   error
	)

	if patch.Notes, err = nullable[string](fields, "notes", "Input should be a valid string"); err != nil {
		return patch, err
	}
	if patch.IsVisited, err = optional[bool](fields, "is_visited", "Input should be a valid boolean"); err != nil {
		return patch, err
	}
	return patch, nil
}

func toPlaceResponse(p models.Place) placeResponse {
	return placeResponse{
		ID:         p.ID,
		ExternalID: p.ExternalID,
		Notes:      p.Notes,
		IsVisited:  p.IsVisited,
		ProjectID:  p.ProjectID,
	}
}

func toPlaceResponses(list []models.Place) []placeResponse {
	out := make([]placeResponse, len(list))
	for i, p := range list {
		out[i] = toPlaceResponse(p)
	}
	return out
}

func toProjectResponse(p *models.Project) projectResponse {
	resp := projectResponse{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Places:      toPlaceResponses(p.Places),
	}
	if p.StartDate != nil {
		s := p.StartDate.Format(dateLayout)
		resp.StartDate = &s
	}
	return resp
}
