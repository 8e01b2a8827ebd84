// Package common contains shared constants and sentinel errors used across
// TravelKeeper components.
package common

const (
	// AuthorizationHeaderName carries the bearer access token on inbound requests.
	AuthorizationHeaderName = "Authorization"

	// BearerScheme is the authorization scheme expected in AuthorizationHeaderName.
	BearerScheme = "Bearer"

	// TokenTypeBearer is returned to clients alongside a freshly issued token pair.
	TokenTypeBearer = "bearer"

	// RequestIDHeaderName is echoed back on every HTTP response.
	RequestIDHeaderName = "X-Request-ID"

	// MaxPlacesPerProject caps how many catalog places one project may hold.
	MaxPlacesPerProject = 10
)
