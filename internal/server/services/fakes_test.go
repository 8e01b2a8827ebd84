package services

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/travelkeeper/internal/common"
	"github.com/dmitrijs2005/travelkeeper/internal/dbx"
	"github.com/dmitrijs2005/travelkeeper/internal/server/models"
	"github.com/dmitrijs2005/travelkeeper/internal/server/repositories/places"
	"github.com/dmitrijs2005/travelkeeper/internal/server/repositories/projects"
	"github.com/dmitrijs2005/travelkeeper/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/travelkeeper/internal/server/repositories/users"
)

type errBoom struct{}

func (errBoom) Error() string { return "boom" }

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

// memStore backs every fake repository. fail maps a "repo.Method" name to
// the error that method returns.
type memStore struct {
	mu sync.Mutex

	users    map[string]*models.User
	tokens   map[string]*models.RefreshToken
	projects map[int64]*models.Project
	places   map[int64]*models.Place
	nextID   int64

	fail map[string]error
}

func newMemStore() *memStore {
	return &memStore{
		users:    map[string]*models.User{},
		tokens:   map[string]*models.RefreshToken{},
		projects: map[int64]*models.Project{},
		places:   map[int64]*models.Place{},
		fail:     map[string]error{},
	}
}

func (s *memStore) err(op string) error {
	return s.fail[op]
}

func (s *memStore) id() int64 {
	s.nextID++
	return s.nextID
}

func (s *memStore) tokensOf(userID string) []*models.RefreshToken {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.RefreshToken
	for _, t := range s.tokens {
		if t.UserID == userID {
			out = append(out, t)
		}
	}
	return out
}

type fakeUsers struct{ s *memStore }

func (f fakeUsers) Create(_ context.Context, u *models.User) (*models.User, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if err := f.s.err("users.Create"); err != nil {
		return nil, err
	}
	for _, existing := range f.s.users {
		if existing.Email == u.Email {
			return nil, common.ErrorAlreadyExists
		}
	}
	u.ID = "user-" + strconv.FormatInt(f.s.id(), 10)
	u.CreatedAt = time.Now()
	cp := *u
	f.s.users[u.ID] = &cp
	return u, nil
}

func (f fakeUsers) GetByEmail(_ context.Context, email string) (*models.User, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if err := f.s.err("users.GetByEmail"); err != nil {
		return nil, err
	}
	for _, u := range f.s.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f fakeUsers) GetByID(_ context.Context, id string) (*models.User, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if err := f.s.err("users.GetByID"); err != nil {
		return nil, err
	}
	u, ok := f.s.users[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *u
	return &cp, nil
}

func (f fakeUsers) LockByID(ctx context.Context, id string) (*models.User, error) {
	if err := f.s.err("users.LockByID"); err != nil {
		return nil, err
	}
	return f.GetByID(ctx, id)
}

func (f fakeUsers) Delete(_ context.Context, id string) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if err := f.s.err("users.Delete"); err != nil {
		return err
	}
	if _, ok := f.s.users[id]; !ok {
		return common.ErrorNotFound
	}
	for _, t := range f.s.tokens {
		if t.UserID == id {
			return errors.New("foreign key violation: refresh_tokens.user_id")
		}
	}
	delete(f.s.users, id)
	return nil
}

type fakeTokens struct{ s *memStore }

func (f fakeTokens) Create(_ context.Context, userID, token string, expiresAt time.Time) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if err := f.s.err("tokens.Create"); err != nil {
		return err
	}
	if _, dup := f.s.tokens[token]; dup {
		return common.ErrorAlreadyExists
	}
	f.s.tokens[token] = &models.RefreshToken{ID: f.s.id(), UserID: userID, Token: token, ExpiresAt: expiresAt, CreatedAt: time.Now()}
	return nil
}

func (f fakeTokens) FindByToken(_ context.Context, token string) (*models.RefreshToken, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if err := f.s.err("tokens.FindByToken"); err != nil {
		return nil, err
	}
	t, ok := f.s.tokens[token]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *t
	return &cp, nil
}

func (f fakeTokens) Delete(_ context.Context, token string) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if err := f.s.err("tokens.Delete"); err != nil {
		return err
	}
	delete(f.s.tokens, token)
	return nil
}

func (f fakeTokens) DeleteByUser(_ context.Context, userID string) (int64, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if err := f.s.err("tokens.DeleteByUser"); err != nil {
		return 0, err
	}
	var n int64
	for k, t := range f.s.tokens {
		if t.UserID == userID {
			delete(f.s.tokens, k)
			n++
		}
	}
	return n, nil
}

func (f fakeTokens) ListActiveByUser(_ context.Context, userID string, now time.Time) ([]models.RefreshToken, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if err := f.s.err("tokens.ListActiveByUser"); err != nil {
		return nil, err
	}
	out := make([]models.RefreshToken, 0)
	for _, t := range f.s.tokens {
		if t.UserID == userID && t.ExpiresAt.After(now) {
			out = append(out, *t)
		}
	}
	return out, nil
}

type fakeProjects struct{ s *memStore }

func (f fakeProjects) Create(_ context.Context, p *models.Project) (*models.Project, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if err := f.s.err("projects.Create"); err != nil {
		return nil, err
	}
	p.ID = f.s.id()
	p.CreatedAt = time.Now()
	p.UpdatedAt = p.CreatedAt
	cp := *p
	cp.Places = nil
	f.s.projects[p.ID] = &cp
	return p, nil
}

func (f fakeProjects) List(_ context.Context, skip, limit int) ([]*models.Project, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if err := f.s.err("projects.List"); err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(f.s.projects))
	for id := range f.s.projects {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	out := make([]*models.Project, 0)
	for i, id := range ids {
		if i < skip || len(out) >= limit {
			continue
		}
		cp := *f.s.projects[id]
		out = append(out, &cp)
	}
	return out, nil
}

func (f fakeProjects) GetByID(_ context.Context, id int64) (*models.Project, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if err := f.s.err("projects.GetByID"); err != nil {
		return nil, err
	}
	p, ok := f.s.projects[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *p
	return &cp, nil
}

func (f fakeProjects) LockByID(ctx context.Context, id int64) (*models.Project, error) {
	if err := f.s.err("projects.LockByID"); err != nil {
		return nil, err
	}
	return f.GetByID(ctx, id)
}

func (f fakeProjects) Update(_ context.Context, p *models.Project) (*models.Project, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if err := f.s.err("projects.Update"); err != nil {
		return nil, err
	}
	if _, ok := f.s.projects[p.ID]; !ok {
		return nil, common.ErrorNotFound
	}
	p.UpdatedAt = time.Now()
	cp := *p
	cp.Places = nil
	f.s.projects[p.ID] = &cp
	return p, nil
}

func (f fakeProjects) Delete(_ context.Context, id int64) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if err := f.s.err("projects.Delete"); err != nil {
		return err
	}
	if _, ok := f.s.projects[id]; !ok {
		return common.ErrorNotFound
	}
	delete(f.s.projects, id)
	return nil
}

type fakePlaces struct{ s *memStore }

func (f fakePlaces) Create(_ context.Context, p *models.Place) (*models.Place, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if err := f.s.err("places.Create"); err != nil {
		return nil, err
	}
	if _, ok := f.s.projects[p.ProjectID]; !ok {
		return nil, common.ErrorNotFound
	}
	for _, existing := range f.s.places {
		if existing.ProjectID == p.ProjectID && existing.ExternalID == p.ExternalID {
			return nil, common.ErrorAlreadyExists
		}
	}
	p.ID = f.s.id()
	p.CreatedAt = time.Now()
	cp := *p
	f.s.places[p.ID] = &cp
	return p, nil
}

func (f fakePlaces) listLocked(projectID int64) []models.Place {
	out := make([]models.Place, 0)
	for _, p := range f.s.places {
		if p.ProjectID == projectID {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (f fakePlaces) ListByProject(_ context.Context, projectID int64) ([]models.Place, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if err := f.s.err("places.ListByProject"); err != nil {
		return nil, err
	}
	return f.listLocked(projectID), nil
}

func (f fakePlaces) ListByProjectIDs(_ context.Context, ids []int64) (map[int64][]models.Place, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if err := f.s.err("places.ListByProjectIDs"); err != nil {
		return nil, err
	}
	out := make(map[int64][]models.Place)
	for _, id := range ids {
		if list := f.listLocked(id); len(list) > 0 {
			out[id] = list
		}
	}
	return out, nil
}

func (f fakePlaces) GetByID(_ context.Context, id int64) (*models.Place, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if err := f.s.err("places.GetByID"); err != nil {
		return nil, err
	}
	p, ok := f.s.places[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *p
	return &cp, nil
}

func (f fakePlaces) Update(_ context.Context, p *models.Place) (*models.Place, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if err := f.s.err("places.Update"); err != nil {
		return nil, err
	}
	if _, ok := f.s.places[p.ID]; !ok {
		return nil, common.ErrorNotFound
	}
	cp := *p
	f.s.places[p.ID] = &cp
	return p, nil
}

func (f fakePlaces) DeleteByProject(_ context.Context, projectID int64) (int64, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if err := f.s.err("places.DeleteByProject"); err != nil {
		return 0, err
	}
	var n int64
	for id, p := range f.s.places {
		if p.ProjectID == projectID {
			delete(f.s.places, id)
			n++
		}
	}
	return n, nil
}

type fakeRepoManager struct{ s *memStore }

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error    { return nil }
func (m *fakeRepoManager) Users(dbx.DBTX) users.Repository                 { return fakeUsers{m.s} }
func (m *fakeRepoManager) RefreshTokens(dbx.DBTX) refreshtokens.Repository { return fakeTokens{m.s} }
func (m *fakeRepoManager) Projects(dbx.DBTX) projects.Repository           { return fakeProjects{m.s} }
func (m *fakeRepoManager) Places(dbx.DBTX) places.Repository               { return fakePlaces{m.s} }

// fakeCatalog knows a fixed set of ids; err, when set, is returned for every call.
type fakeCatalog struct {
	known map[string]bool
	err   error
	calls int
}

func (c *fakeCatalog) Exists(_ context.Context, id string) (bool, error) {
	c.calls++
	if c.err != nil {
		return false, c.err
	}
	return c.known[id], nil
}
