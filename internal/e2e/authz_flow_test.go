package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sort"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/taskforge-app/taskforge/internal/app"
	"github.com/taskforge-app/taskforge/internal/audit"
	"github.com/taskforge-app/taskforge/internal/auth"
	"github.com/taskforge-app/taskforge/internal/authz"
	"github.com/taskforge-app/taskforge/internal/orgs"
	"github.com/taskforge-app/taskforge/internal/shared"
	"github.com/taskforge-app/taskforge/internal/tasks"
	"github.com/taskforge-app/taskforge/internal/users"
	_ "github.com/taskforge-app/taskforge/testing"
)

// In-memory repositories so the whole HTTP stack runs without Postgres.

type memAuthRepo struct {
	byEmail map[string]*auth.User
}

func (r *memAuthRepo) FindByEmail(_ context.Context, email string) (*auth.User, error) {
	if u, ok := r.byEmail[email]; ok {
		copied := *u
		return &copied, nil
	}
	return nil, shared.ErrNotFound
}

func (r *memAuthRepo) FindByID(_ context.Context, id string) (*auth.User, error) {
	for _, u := range r.byEmail {
		if u.ID == id {
			copied := *u
			return &copied, nil
		}
	}
	return nil, shared.ErrNotFound
}

type memTaskRepo struct {
	tasks map[string]tasks.Task
}

func (r *memTaskRepo) Create(_ context.Context, task tasks.Task) error {
	r.tasks[task.ID] = task
	return nil
}

func (r *memTaskRepo) GetByID(_ context.Context, id string) (tasks.Task, error) {
	task, ok := r.tasks[id]
	if !ok {
		return tasks.Task{}, shared.ErrNotFound
	}
	return task, nil
}

func (r *memTaskRepo) ListByOrg(_ context.Context, orgID string, offset, limit int) ([]tasks.Task, int, error) {
	var list []tasks.Task
	for _, task := range r.tasks {
		if task.OrgID == orgID {
			list = append(list, task)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].CreatedAt.After(list[j].CreatedAt) })
	return page(list, offset, limit), len(list), nil
}

func (r *memTaskRepo) ListForUser(_ context.Context, orgID, userID string, offset, limit int) ([]tasks.Task, int, error) {
	var list []tasks.Task
	for _, task := range r.tasks {
		if task.OrgID == orgID && (task.OwnerID == userID || task.AssigneeID == userID) {
			list = append(list, task)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].CreatedAt.After(list[j].CreatedAt) })
	return page(list, offset, limit), len(list), nil
}

func (r *memTaskRepo) Update(_ context.Context, task tasks.Task) error {
	if _, ok := r.tasks[task.ID]; !ok {
		return shared.ErrNotFound
	}
	r.tasks[task.ID] = task
	return nil
}

func (r *memTaskRepo) Delete(_ context.Context, id string) error {
	if _, ok := r.tasks[id]; !ok {
		return shared.ErrNotFound
	}
	delete(r.tasks, id)
	return nil
}

func page(list []tasks.Task, offset, limit int) []tasks.Task {
	if offset >= len(list) {
		return nil
	}
	end := offset + limit
	if end > len(list) {
		end = len(list)
	}
	return list[offset:end]
}

type memUserRepo struct {
	users map[string]users.User
}

func (r *memUserRepo) ListByOrg(_ context.Context, orgID string) ([]users.User, error) {
	var list []users.User
	for _, u := range r.users {
		if u.OrgID == orgID {
			list = append(list, u)
		}
	}
	return list, nil
}

func (r *memUserRepo) GetByID(_ context.Context, id string) (users.User, error) {
	u, ok := r.users[id]
	if !ok {
		return users.User{}, shared.ErrNotFound
	}
	return u, nil
}

func (r *memUserRepo) Create(_ context.Context, user users.User, _ string) error {
	r.users[user.ID] = user
	return nil
}

func (r *memUserRepo) Update(_ context.Context, user users.User) error {
	if _, ok := r.users[user.ID]; !ok {
		return shared.ErrNotFound
	}
	r.users[user.ID] = user
	return nil
}

func (r *memUserRepo) Delete(_ context.Context, id string) error {
	if _, ok := r.users[id]; !ok {
		return shared.ErrNotFound
	}
	delete(r.users, id)
	return nil
}

type memOrgRepo struct {
	orgs map[string]orgs.Organization
}

func (r *memOrgRepo) GetByID(_ context.Context, id string) (orgs.Organization, error) {
	org, ok := r.orgs[id]
	if !ok {
		return orgs.Organization{}, shared.ErrNotFound
	}
	return org, nil
}

func (r *memOrgRepo) Update(_ context.Context, org orgs.Organization) error {
	if _, ok := r.orgs[org.ID]; !ok {
		return shared.ErrNotFound
	}
	r.orgs[org.ID] = org
	return nil
}

type memAuditRepo struct {
	events []audit.Event
}

func (r *memAuditRepo) Insert(_ context.Context, event audit.Event) error {
	r.events = append(r.events, event)
	return nil
}

func (r *memAuditRepo) ListByOrg(_ context.Context, orgID string, offset, limit int) ([]audit.Event, int, error) {
	var list []audit.Event
	for _, e := range r.events {
		if e.OrgID == orgID {
			list = append(list, e)
		}
	}
	if offset >= len(list) {
		return nil, len(list), nil
	}
	end := offset + limit
	if end > len(list) {
		end = len(list)
	}
	return list[offset:end], len(list), nil
}

type stack struct {
	router    http.Handler
	auditRepo *memAuditRepo
	taskRepo  *memTaskRepo
}

func newStack(t *testing.T) *stack {
	t.Helper()
	logger := slog.Default()

	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = redisClient.Close() })

	hash, err := bcrypt.GenerateFromPassword([]byte("password1"), bcrypt.MinCost)
	require.NoError(t, err)

	now := time.Now().UTC()
	authRepo := &memAuthRepo{byEmail: map[string]*auth.User{
		"owner@acme.local": {
			ID: "owner-1", OrgID: "org-1", Email: "owner@acme.local",
			PasswordHash: string(hash), Role: authz.RoleOwner, IsActive: true, CreatedAt: now,
		},
		"admin@acme.local": {
			ID: "admin-1", OrgID: "org-1", Email: "admin@acme.local",
			PasswordHash: string(hash), Role: authz.RoleAdmin, IsActive: true, CreatedAt: now,
		},
		"viewer@acme.local": {
			ID: "viewer-1", OrgID: "org-1", Email: "viewer@acme.local",
			PasswordHash: string(hash), Role: authz.RoleViewer, IsActive: true, CreatedAt: now,
		},
	}}

	auditRepo := &memAuditRepo{}
	recorder := audit.NewRecorder(audit.RepositoryWriter{Repo: auditRepo}, logger)
	guard := authz.Middleware{Logger: logger, Sink: recorder}

	tokens := auth.NewTokens("e2e-secret-0123456789abcdef", 15*time.Minute)
	refreshStore := auth.NewRefreshStore(redisClient, time.Hour)
	authService := auth.NewService(authRepo, tokens, refreshStore)

	taskRepo := &memTaskRepo{tasks: map[string]tasks.Task{}}
	userRepo := &memUserRepo{users: map[string]users.User{
		"owner-1":  {ID: "owner-1", OrgID: "org-1", Email: "owner@acme.local", Name: "Ada", Role: authz.RoleOwner, IsActive: true},
		"admin-1":  {ID: "admin-1", OrgID: "org-1", Email: "admin@acme.local", Name: "Alan", Role: authz.RoleAdmin, IsActive: true},
		"viewer-1": {ID: "viewer-1", OrgID: "org-1", Email: "viewer@acme.local", Name: "Vera", Role: authz.RoleViewer, IsActive: true},
	}}
	orgRepo := &memOrgRepo{orgs: map[string]orgs.Organization{
		"org-1": {ID: "org-1", Name: "Acme", CreatedAt: now, UpdatedAt: now},
	}}

	cfg := &app.Config{AppEnv: "test", AppRequestTimeout: 5 * time.Second, LoginRateLimit: 100}
	router := app.NewRouter(app.RouterParams{
		Logger:        logger,
		Config:        cfg,
		Authenticator: auth.Authenticator{Tokens: tokens, Logger: logger},
		AuthHandler:   auth.NewHandler(logger, authService),
		TasksHandler:  tasks.NewHandler(logger, tasks.NewService(taskRepo, recorder), guard),
		UsersHandler:  users.NewHandler(logger, users.NewService(userRepo, recorder), guard),
		OrgsHandler:   orgs.NewHandler(logger, orgs.NewService(orgRepo, recorder)),
		AuditHandler:  audit.NewHandler(logger, audit.NewService(auditRepo), guard),
	})

	return &stack{router: router, auditRepo: auditRepo, taskRepo: taskRepo}
}

func (s *stack) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	s.router.ServeHTTP(rr, req)
	return rr
}

func (s *stack) login(t *testing.T, email string) (access, refresh string) {
	t.Helper()
	rr := s.do(t, http.MethodPost, "/auth/login", "", map[string]string{
		"email": email, "password": "password1",
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var resp struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	return resp.AccessToken, resp.RefreshToken
}

func TestAuthorizationBoundariesThroughHTTPStack(t *testing.T) {
	s := newStack(t)

	ownerToken, _ := s.login(t, "owner@acme.local")
	viewerToken, _ := s.login(t, "viewer@acme.local")
	adminToken, _ := s.login(t, "admin@acme.local")

	// Owner creates a task.
	rr := s.do(t, http.MethodPost, "/api/v1/tasks", ownerToken, map[string]string{"title": "Plan launch"})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	var created struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &created))

	// A viewer sees none of it: the list is filtered, direct reads and
	// deletes come back 403 with an opaque body.
	rr = s.do(t, http.MethodGet, "/api/v1/tasks", viewerToken, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	var listed struct {
		Tasks []json.RawMessage `json:"tasks"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &listed))
	assert.Empty(t, listed.Tasks)

	rr = s.do(t, http.MethodGet, "/api/v1/tasks/"+created.ID, viewerToken, nil)
	assert.Equal(t, http.StatusForbidden, rr.Code)
	rr = s.do(t, http.MethodDelete, "/api/v1/tasks/"+created.ID, viewerToken, nil)
	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.NotContains(t, rr.Body.String(), "not_owner")

	// The denial reason still lands in the audit trail.
	var foundDenial bool
	for _, event := range s.auditRepo.events {
		if event.Action == audit.ActionDenied && event.ActorID == "viewer-1" &&
			event.Reason == string(authz.ReasonNotOwner) {
			foundDenial = true
		}
	}
	assert.True(t, foundDenial, "expected a recorded not_owner denial")

	// An admin can update any task in the organization.
	rr = s.do(t, http.MethodPatch, "/api/v1/tasks/"+created.ID, adminToken, map[string]string{"status": "in_progress"})
	assert.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	// Only the owner reads the audit timeline.
	rr = s.do(t, http.MethodGet, "/api/v1/audit", ownerToken, nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	rr = s.do(t, http.MethodGet, "/api/v1/audit", viewerToken, nil)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	// No token at all never gets past the authenticator.
	rr = s.do(t, http.MethodGet, "/api/v1/tasks", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestRefreshRotationThroughHTTPStack(t *testing.T) {
	s := newStack(t)

	_, refreshToken := s.login(t, "viewer@acme.local")

	rr := s.do(t, http.MethodPost, "/auth/refresh", "", map[string]string{"refresh_token": refreshToken})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	// A refresh token is single use; replaying it must fail.
	rr = s.do(t, http.MethodPost, "/auth/refresh", "", map[string]string{"refresh_token": refreshToken})
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}
