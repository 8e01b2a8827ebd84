package httpapi

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dmitrijs2005/travelkeeper/internal/common"
	"github.com/dmitrijs2005/travelkeeper/internal/logging"
	"github.com/dmitrijs2005/travelkeeper/internal/server/models"
	"github.com/dmitrijs2005/travelkeeper/internal/server/services"
)

const (
	testPrefix  = "/api/v1"
	validToken  = "good-token"
	testAccount = "user-1"
)

var errNotStubbed = errors.New("not stubbed")

type fakeSessions struct {
	register func(email, password string) (*services.AccountView, error)
	login    func(email, password string) (*services.TokenPair, error)
	refresh  func(token string) (string, error)
	logout   func(id string) (string, error)
	deleted  []string
	resolve  func(token string) (string, error)
}

func (f *fakeSessions) Register(_ context.Context, email, password string) (*services.AccountView, error) {
	if f.register == nil {
		return nil, errNotStubbed
	}
	return f.register(email, password)
}

func (f *fakeSessions) Login(_ context.Context, email, password string) (*services.TokenPair, error) {
	if f.login == nil {
		return nil, errNotStubbed
	}
	return f.login(email, password)
}

func (f *fakeSessions) Logout(_ context.Context, id string) (string, error) {
	if f.logout == nil {
		return services.LogoutMessage, nil
	}
	return f.logout(id)
}

func (f *fakeSessions) RefreshAccessToken(_ context.Context, token string) (string, error) {
	if f.refresh == nil {
		return "", errNotStubbed
	}
	return f.refresh(token)
}

// ResolveCurrentUser accepts validToken by default.
func (f *fakeSessions) ResolveCurrentUser(_ context.Context, token string) (string, error) {
	if f.resolve != nil {
		return f.resolve(token)
	}
	if token == validToken {
		return testAccount, nil
	}
	return "", errNotStubbed
}

func (f *fakeSessions) GetAccount(_ context.Context, id string) (*services.AccountView, error) {
	return &services.AccountView{ID: id, Email: "a@x.com"}, nil
}

func (f *fakeSessions) DeleteAccount(_ context.Context, id string) error {
	f.deleted = append(f.deleted, id)
	return nil
}

type fakeProjects struct {
	create func(in services.ProjectInput) (*models.Project, error)
	list   func(skip, limit int) ([]*models.Project, error)
	get    func(id int64) (*models.Project, error)
	update func(id int64, patch services.ProjectPatch) (*models.Project, error)
	delete func(id int64) error
}

func (f *fakeProjects) Create(_ context.Context, in services.ProjectInput) (*models.Project, error) {
	return f.create(in)
}

func (f *fakeProjects) List(_ context.Context, skip, limit int) ([]*models.Project, error) {
	return f.list(skip, limit)
}

func (f *fakeProjects) Get(_ context.Context, id int64) (*models.Project, error) {
	return f.get(id)
}

func (f *fakeProjects) Update(_ context.Context, id int64, patch services.ProjectPatch) (*models.Project, error) {
	return f.update(id, patch)
}

func (f *fakeProjects) Delete(_ context.Context, id int64) error {
	return f.delete(id)
}

type fakePlaces struct {
	add    func(projectID int64, in services.PlaceInput) (*models.Place, error)
	list   func(projectID int64) ([]models.Place, error)
	get    func(id int64) (*models.Place, error)
	update func(id int64, patch services.PlacePatch) (*models.Place, error)
}

func (f *fakePlaces) Add(_ context.Context, projectID int64, in services.PlaceInput) (*models.Place, error) {
	return f.add(projectID, in)
}

func (f *fakePlaces) ListForProject(_ context.Context, projectID int64) ([]models.Place, error) {
	return f.list(projectID)
}

func (f *fakePlaces) Get(_ context.Context, id int64) (*models.Place, error) {
	return f.get(id)
}

func (f *fakePlaces) Update(_ context.Context, id int64, patch services.PlacePatch) (*models.Place, error) {
	return f.update(id, patch)
}

type fakePinger struct{ err error }

func (p fakePinger) PingContext(context.Context) error { return p.err }

type testAPI struct {
	sessions *fakeSessions
	projects *fakeProjects
	places   *fakePlaces
	pinger   *fakePinger
	handler  http.Handler
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	ta := &testAPI{
		sessions: &fakeSessions{},
		projects: &fakeProjects{},
		places:   &fakePlaces{},
		pinger:   &fakePinger{},
	}
	api := New(ta.sessions, ta.projects, ta.places, ta.pinger, logging.Nop{})
	ta.handler = api.Router(testPrefix)
	return ta
}

// do sends a request through the router. A non-empty token is sent as a
// bearer credential.
func (ta *testAPI) do(method, path, body, token string) *httptest.ResponseRecorder {
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set(common.AuthorizationHeaderName, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	ta.handler.ServeHTTP(rec, req)
	return rec
}

func newRequest(method, path string) *http.Request {
	return httptest.NewRequest(method, path, nil)
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}
