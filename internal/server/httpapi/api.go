// Package httpapi is the REST transport: a gorilla/mux router with request
// middleware, bearer authentication and JSON error mapping.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/dmitrijs2005/travelkeeper/internal/dbx"
	"github.com/dmitrijs2005/travelkeeper/internal/logging"
	"github.com/dmitrijs2005/travelkeeper/internal/server/models"
	"github.com/dmitrijs2005/travelkeeper/internal/server/services"
	"github.com/gorilla/mux"
)

const readyTimeout = 2 * time.Second

// Sessions is the account and session surface the handlers need.
type Sessions interface {
	Register(ctx context.Context, email, password string) (*services.AccountView, error)
	Login(ctx context.Context, email, password string) (*services.TokenPair, error)
	Logout(ctx context.Context, accountID string) (string, error)
	RefreshAccessToken(ctx context.Context, refreshToken string) (string, error)
	ResolveCurrentUser(ctx context.Context, accessToken string) (string, error)
	GetAccount(ctx context.Context, accountID string) (*services.AccountView, error)
	DeleteAccount(ctx context.Context, accountID string) error
}

// Projects is the travel project surface the handlers need.
type Projects interface {
	Create(ctx context.Context, in services.ProjectInput) (*models.Project, error)
	List(ctx context.Context, skip, limit int) ([]*models.Project, error)
	Get(ctx context.Context, id int64) (*models.Project, error)
	Update(ctx context.Context, id int64, patch services.ProjectPatch) (*models.Project, error)
	Delete(ctx context.Context, id int64) error
}

// Places is the project place surface the handlers need.
type Places interface {
	Add(ctx context.Context, projectID int64, in services.PlaceInput) (*models.Place, error)
	ListForProject(ctx context.Context, projectID int64) ([]models.Place, error)
	Get(ctx context.Context, placeID int64) (*models.Place, error)
	Update(ctx context.Context, placeID int64, patch services.PlacePatch) (*models.Place, error)
}

// API holds the HTTP handlers and their dependencies.
type API struct {
	sessions Sessions
	projects Projects
	places   Places
	db       dbx.Pinger
	log      logging.Logger
}

// New builds an API; log gets a module=http child.
func New(sessions Sessions, projects Projects, places Places, db dbx.Pinger, log logging.Logger) *API {
	return &API{
		sessions: sessions,
		projects: projects,
		places:   places,
		db:       db,
		log:      log.With("module", "http"),
	}
}

// Router builds the route table with the versioned API under prefix.
func (a *API) Router(prefix string) *mux.Router {
	r := mux.NewRouter()
	r.Use(a.recoverer, a.requestID, a.logRequests, securityHeaders)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, errorBody{Detail: "Not Found", ErrorCode: "NOT_FOUND"})
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, errorBody{Detail: "Method Not Allowed", ErrorCode: "METHOD_NOT_ALLOWED"})
	})

	r.HandleFunc("/health", a.health).Methods(http.MethodGet)
	r.HandleFunc("/ready", a.ready).Methods(http.MethodGet)

	v1 := r.PathPrefix(prefix).Subrouter()
	v1.HandleFunc("/users", a.register).Methods(http.MethodPost)
	v1.HandleFunc("/sessions", a.login).Methods(http.MethodPost)
	v1.HandleFunc("/refresh", a.refresh).Methods(http.MethodPost)

	authed := v1.NewRoute().Subrouter()
	authed.Use(a.requireAuth)

	authed.HandleFunc("/logout", a.logout).Methods(http.MethodPost)
	authed.HandleFunc("/users/me", a.me).Methods(http.MethodGet)
	authed.HandleFunc("/users/me", a.deleteMe).Methods(http.MethodDelete)

	authed.HandleFunc("/projects", a.createProject).Methods(http.MethodPost)
	authed.HandleFunc("/projects", a.listProjects).Methods(http.MethodGet)
	authed.HandleFunc("/projects/{id:[0-9]+}", a.getProject).Methods(http.MethodGet)
	authed.HandleFunc("/projects/{id:[0-9]+}", a.updateProject).Methods(http.MethodPatch)
	authed.HandleFunc("/projects/{id:[0-9]+}", a.deleteProject).Methods(http.MethodDelete)
	authed.HandleFunc("/projects/{id:[0-9]+}/places", a.addPlace).Methods(http.MethodPost)
	authed.HandleFunc("/projects/{id:[0-9]+}/places", a.listPlaces).Methods(http.MethodGet)

	authed.HandleFunc("/places/{id:[0-9]+}", a.getPlace).Methods(http.MethodGet)
	authed.HandleFunc("/places/{id:[0-9]+}", a.updatePlace).Methods(http.MethodPatch)

	return r
}

func (a *API) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *API) ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	if err := a.db.PingContext(ctx); err != nil {
		a.log.Warn(ctx, "readiness check failed", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]bool{"ready": false})
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ready": true})
}
