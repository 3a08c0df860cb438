package testsupport

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"clipdeck/internal/api"
)

type fakeAccount struct {
	user     api.User
	password string
	saved    map[string]bool
}

type failure struct {
	status int
	detail string
}

// FakeService is an in-memory implementation of the remote video service
// served over httptest.
type FakeService struct {
	server *httptest.Server

	mu        sync.Mutex
	accounts  map[string]*fakeAccount
	tokens    map[string]string
	templates []api.Template
	projects  []*api.Project
	failures  map[string][]failure
	calls     map[string]int
	videos    map[string][]byte
	renderFor map[string]int

	// CompleteAfterPolls moves rendering projects to completed once they have
	// been listed this many times. Zero leaves them rendering.
	CompleteAfterPolls int
	// FailRenders makes auto-advanced renders end in failed instead of completed.
	FailRenders bool
}

// NewFakeService starts a fake service and closes it when the test ends.
func NewFakeService(t testing.TB) *FakeService {
	t.Helper()
	f := &FakeService{
		accounts:  map[string]*fakeAccount{},
		tokens:    map[string]string{},
		failures:  map[string][]failure{},
		calls:     map[string]int{},
		videos:    map[string][]byte{},
		renderFor: map[string]int{},
	}
	f.server = httptest.NewServer(f.routes())
	t.Cleanup(f.server.Close)
	return f
}

// URL returns the service root.
func (f *FakeService) URL() string {
	return f.server.URL
}

// Client returns an api.Client pointed at the fake.
func (f *FakeService) Client() *api.Client {
	return api.New(f.server.URL)
}

// AddUser registers an account and returns its profile.
func (f *FakeService) AddUser(username, password string) api.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.addUserLocked(api.RegisterRequest{Username: username, Password: password, Email: username + "@example.com"})
}

func (f *FakeService) addUserLocked(req api.RegisterRequest) api.User {
	user := api.User{
		ID:        len(f.accounts) + 1,
		Username:  req.Username,
		Email:     req.Email,
		FullName:  req.FullName,
		CreatedAt: time.Now().UTC().Format("2006-01-02T15:04:05"),
	}
	f.accounts[req.Username] = &fakeAccount{user: user, password: req.Password, saved: map[string]bool{}}
	return user
}

// IssueToken creates a valid bearer token for username.
func (f *FakeService) IssueToken(username string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.issueTokenLocked(username)
}

func (f *FakeService) issueTokenLocked(username string) string {
	token := "tok-" + uuid.NewString()
	f.tokens[token] = username
	return token
}

// RevokeTokens invalidates every issued token.
func (f *FakeService) RevokeTokens() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokens = map[string]string{}
}

// AddTemplate adds a catalog entry.
func (f *FakeService) AddTemplate(tpl api.Template) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.templates = append(f.templates, tpl)
}

// AddProject stores a project as-is. A missing _id is generated.
func (f *FakeService) AddProject(p api.Project) api.Project {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.ProjectID == "" {
		p.ProjectID = "proj-" + p.ID
	}
	cp := p
	f.projects = append(f.projects, &cp)
	return cp
}

// SetProjectStatus changes a project's status as the render farm would.
func (f *FakeService) SetProjectStatus(id string, status api.ProjectStatus) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p := f.findProjectLocked(id); p != nil {
		f.advanceLocked(p, status)
	}
}

// Project returns a copy of the stored project.
func (f *FakeService) Project(id string) (api.Project, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if p := f.findProjectLocked(id); p != nil {
		return *p, true
	}
	return api.Project{}, false
}

// IsSaved reports whether username has bookmarked templateID.
func (f *FakeService) IsSaved(username, templateID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	acct := f.accounts[username]
	return acct != nil && acct.saved[templateID]
}

// FailNext makes the next request matching key ("METHOD /route/pattern") fail.
func (f *FakeService) FailNext(key string, status int, detail string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[key] = append(f.failures[key], failure{status: status, detail: detail})
}

// Calls returns how many requests matched key ("METHOD /route/pattern").
func (f *FakeService) Calls(key string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[key]
}

// SetVideo registers bytes served at /videos/{name} and returns the absolute URL.
func (f *FakeService) SetVideo(name string, data []byte) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.videos[name] = data
	return f.server.URL + "/videos/" + name
}

func (f *FakeService) routes() http.Handler {
	r := chi.NewRouter()

	r.Get("/videos/{name}", f.handleVideo)
	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", f.handleRegister)
		r.Post("/login", f.handleLogin)
		r.With(f.authenticated).Get("/me", f.handleMe)
	})
	r.Route("/templates", func(r chi.Router) {
		r.Use(f.authenticated)
		r.Get("/", f.handleTemplates)
		r.Get("/categories", f.handleCategories)
		r.Get("/category/{category}", f.handleTemplatesByCategory)
		r.Get("/saved/my-templates", f.handleSavedTemplates)
		r.Get("/{id}", f.handleTemplate)
		r.Post("/{id}/save", f.handleSave)
		r.Delete("/{id}/unsave", f.handleUnsave)
	})
	r.Route("/projects", func(r chi.Router) {
		r.Use(f.authenticated)
		r.Get("/", f.handleProjects)
		r.Post("/", f.handleCreateProject)
		r.Get("/{id}", f.handleProject)
		r.Delete("/{id}", f.handleDeleteProject)
		r.Post("/{id}/render", f.handleRender)
	})
	return r
}

type userKey struct{}

func withUser(r *http.Request, username string) context.Context {
	return context.WithValue(r.Context(), userKey{}, username)
}

func userFrom(r *http.Request) string {
	username, _ := r.Context().Value(userKey{}).(string)
	return username
}

func (f *FakeService) routeKey(r *http.Request) string {
	pattern := r.URL.Path
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			pattern = p
		}
	}
	// chi reports a mounted "/" as the bare prefix; keys follow the request
	// path so "GET /projects/" names the collection.
	if strings.HasSuffix(r.URL.Path, "/") && !strings.HasSuffix(pattern, "/") {
		pattern += "/"
	}
	return r.Method + " " + pattern
}

func (f *FakeService) authenticated(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		f.mu.Lock()
		username, valid := f.tokens[token]
		f.mu.Unlock()
		if !ok || !valid {
			writeDetail(w, http.StatusUnauthorized, "Could not validate credentials")
			return
		}
		next.ServeHTTP(w, r.WithContext(withUser(r, username)))
	})
}

func (f *FakeService) intercept(w http.ResponseWriter, r *http.Request) bool {
	key := f.routeKey(r)
	f.mu.Lock()
	f.calls[key]++
	queue := f.failures[key]
	var fail *failure
	if len(queue) > 0 {
		fail = &queue[0]
		f.failures[key] = queue[1:]
	}
	f.mu.Unlock()
	if fail == nil {
		return false
	}
	if fail.detail == "" {
		w.WriteHeader(fail.status)
		return true
	}
	writeDetail(w, fail.status, fail.detail)
	return true
}

func (f *FakeService) handleVideo(w http.ResponseWriter, r *http.Request) {
	if f.intercept(w, r) {
		return
	}
	f.mu.Lock()
	data, ok := f.videos[chi.URLParam(r, "name")]
	f.mu.Unlock()
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "video/mp4")
	w.Header().Set("Content-Length", fmt.Sprint(len(data)))
	_, _ = w.Write(data)
}

func (f *FakeService) handleRegister(w http.ResponseWriter, r *http.Request) {
	if f.intercept(w, r) {
		return
	}
	var req api.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid body")
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.accounts[req.Username]; exists {
		writeDetail(w, http.StatusBadRequest, "Username already registered")
		return
	}
	f.addUserLocked(req)
	writeJSON(w, http.StatusOK, api.AuthResponse{AccessToken: f.issueTokenLocked(req.Username), TokenType: "bearer"})
}

func (f *FakeService) handleLogin(w http.ResponseWriter, r *http.Request) {
	if f.intercept(w, r) {
		return
	}
	if err := r.ParseForm(); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid form")
		return
	}
	username, password := r.PostForm.Get("username"), r.PostForm.Get("password")
	f.mu.Lock()
	defer f.mu.Unlock()
	acct, ok := f.accounts[username]
	if !ok || acct.password != password {
		writeDetail(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}
	writeJSON(w, http.StatusOK, api.AuthResponse{AccessToken: f.issueTokenLocked(username), TokenType: "bearer"})
}

func (f *FakeService) handleMe(w http.ResponseWriter, r *http.Request) {
	if f.intercept(w, r) {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	acct := f.accounts[userFrom(r)]
	if acct == nil {
		writeDetail(w, http.StatusUnauthorized, "Could not validate credentials")
		return
	}
	writeJSON(w, http.StatusOK, acct.user)
}

func (f *FakeService) templatesFor(username string, keep func(api.Template) bool) []api.Template {
	acct := f.accounts[username]
	out := make([]api.Template, 0, len(f.templates))
	for _, tpl := range f.templates {
		if keep != nil && !keep(tpl) {
			continue
		}
		tpl.IsSaved = acct != nil && acct.saved[tpl.TemplateID]
		tpl.TotalSaves = f.saveCountLocked(tpl.TemplateID)
		out = append(out, tpl)
	}
	return out
}

func (f *FakeService) saveCountLocked(templateID string) int {
	count := 0
	for _, acct := range f.accounts {
		if acct.saved[templateID] {
			count++
		}
	}
	return count
}

func (f *FakeService) handleTemplates(w http.ResponseWriter, r *http.Request) {
	if f.intercept(w, r) {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	writeJSON(w, http.StatusOK, f.templatesFor(userFrom(r), nil))
}

func (f *FakeService) handleCategories(w http.ResponseWriter, r *http.Request) {
	if f.intercept(w, r) {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	seen := map[string]bool{}
	categories := []string{}
	for _, tpl := range f.templates {
		if tpl.Category != "" && !seen[tpl.Category] {
			seen[tpl.Category] = true
			categories = append(categories, tpl.Category)
		}
	}
	sort.Strings(categories)
	writeJSON(w, http.StatusOK, map[string][]string{"categories": categories})
}

func (f *FakeService) handleTemplatesByCategory(w http.ResponseWriter, r *http.Request) {
	if f.intercept(w, r) {
		return
	}
	category := chi.URLParam(r, "category")
	f.mu.Lock()
	defer f.mu.Unlock()
	writeJSON(w, http.StatusOK, f.templatesFor(userFrom(r), func(t api.Template) bool {
		return t.Category == category
	}))
}

func (f *FakeService) handleSavedTemplates(w http.ResponseWriter, r *http.Request) {
	if f.intercept(w, r) {
		return
	}
	username := userFrom(r)
	f.mu.Lock()
	defer f.mu.Unlock()
	acct := f.accounts[username]
	writeJSON(w, http.StatusOK, f.templatesFor(username, func(t api.Template) bool {
		return acct != nil && acct.saved[t.TemplateID]
	}))
}

func (f *FakeService) handleTemplate(w http.ResponseWriter, r *http.Request) {
	if f.intercept(w, r) {
		return
	}
	id := chi.URLParam(r, "id")
	f.mu.Lock()
	defer f.mu.Unlock()
	matches := f.templatesFor(userFrom(r), func(t api.Template) bool { return t.TemplateID == id })
	if len(matches) == 0 {
		writeDetail(w, http.StatusNotFound, "Template not found")
		return
	}
	writeJSON(w, http.StatusOK, matches[0])
}

func (f *FakeService) handleSave(w http.ResponseWriter, r *http.Request) {
	f.setSaved(w, r, true)
}

func (f *FakeService) handleUnsave(w http.ResponseWriter, r *http.Request) {
	f.setSaved(w, r, false)
}

func (f *FakeService) setSaved(w http.ResponseWriter, r *http.Request, saved bool) {
	if f.intercept(w, r) {
		return
	}
	id := chi.URLParam(r, "id")
	f.mu.Lock()
	defer f.mu.Unlock()
	acct := f.accounts[userFrom(r)]
	if acct == nil {
		writeDetail(w, http.StatusUnauthorized, "Could not validate credentials")
		return
	}
	if saved {
		acct.saved[id] = true
		writeJSON(w, http.StatusOK, api.MessageResponse{Message: "Template saved successfully"})
		return
	}
	delete(acct.saved, id)
	writeJSON(w, http.StatusOK, api.MessageResponse{Message: "Template unsaved successfully"})
}

func (f *FakeService) handleProjects(w http.ResponseWriter, r *http.Request) {
	if f.intercept(w, r) {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]api.Project, 0, len(f.projects))
	for _, p := range f.projects {
		if p.Status.InFlight() && f.CompleteAfterPolls > 0 {
			f.renderFor[p.Key()]++
			if f.renderFor[p.Key()] >= f.CompleteAfterPolls {
				if f.FailRenders {
					f.advanceLocked(p, api.StatusFailed)
				} else {
					f.advanceLocked(p, api.StatusCompleted)
				}
			}
		}
		out = append(out, *p)
	}
	writeJSON(w, http.StatusOK, out)
}

func (f *FakeService) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	if f.intercept(w, r) {
		return
	}
	var req api.CreateProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "invalid body")
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var tpl *api.Template
	for i := range f.templates {
		if f.templates[i].TemplateID == req.TemplateID {
			tpl = &f.templates[i]
			break
		}
	}
	if tpl == nil {
		writeDetail(w, http.StatusNotFound, "Template not found")
		return
	}
	now := time.Now().UTC().Format("2006-01-02T15:04:05")
	p := &api.Project{
		ID:            uuid.NewString(),
		UserID:        userFrom(r),
		TemplateID:    req.TemplateID,
		Name:          req.Name,
		Description:   req.Description,
		Parameters:    req.Parameters,
		Status:        api.StatusDraft,
		RenderQuality: req.RenderQuality,
		CreatedAt:     now,
		UpdatedAt:     now,
		TemplateInfo:  api.TemplateInfo{Name: tpl.Name, Category: tpl.Category, ThumbnailURL: tpl.ThumbnailURL},
	}
	p.ProjectID = "proj-" + p.ID[:8]
	f.projects = append(f.projects, p)
	writeJSON(w, http.StatusOK, api.CreateProjectResponse{Message: "Project created successfully", ProjectID: p.ProjectID, ID: p.ID})
}

func (f *FakeService) handleProject(w http.ResponseWriter, r *http.Request) {
	if f.intercept(w, r) {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	p := f.findProjectLocked(chi.URLParam(r, "id"))
	if p == nil {
		writeDetail(w, http.StatusNotFound, "Project not found")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (f *FakeService) handleDeleteProject(w http.ResponseWriter, r *http.Request) {
	if f.intercept(w, r) {
		return
	}
	id := chi.URLParam(r, "id")
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, p := range f.projects {
		if p.ID == id || p.ProjectID == id {
			f.projects = append(f.projects[:i], f.projects[i+1:]...)
			writeJSON(w, http.StatusOK, api.MessageResponse{Message: "Project deleted successfully"})
			return
		}
	}
	writeDetail(w, http.StatusNotFound, "Project not found")
}

func (f *FakeService) handleRender(w http.ResponseWriter, r *http.Request) {
	if f.intercept(w, r) {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	p := f.findProjectLocked(chi.URLParam(r, "id"))
	if p == nil {
		writeDetail(w, http.StatusNotFound, "Project not found")
		return
	}
	if p.Status.InFlight() {
		writeDetail(w, http.StatusBadRequest, "Project is already rendering")
		return
	}
	f.advanceLocked(p, api.StatusRendering)
	writeJSON(w, http.StatusOK, api.RenderResponse{Message: "Render started", ProjectID: p.ProjectID, Status: p.Status})
}

func (f *FakeService) findProjectLocked(id string) *api.Project {
	for _, p := range f.projects {
		if p.ID == id || p.ProjectID == id {
			return p
		}
	}
	return nil
}

func (f *FakeService) advanceLocked(p *api.Project, status api.ProjectStatus) {
	now := time.Now().UTC().Format("2006-01-02T15:04:05")
	p.Status = status
	p.UpdatedAt = now
	switch status {
	case api.StatusRendering, api.StatusProcessing:
		p.RenderStartedAt = now
		p.RenderCompletedAt = ""
		delete(f.renderFor, p.Key())
	case api.StatusCompleted:
		p.RenderCompletedAt = now
		if p.VideoURL == "" {
			p.VideoURL = f.server.URL + "/videos/" + p.Key() + ".mp4"
		}
		p.FileSizeMB = 12.5
		p.DurationSeconds = 30
	case api.StatusFailed:
		p.RenderCompletedAt = now
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}
