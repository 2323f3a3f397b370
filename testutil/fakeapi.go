// Package testutil provides an in-memory fake of the task list REST API.
package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"tasklist/model"
)

// Route names accepted by Fail.
const (
	RouteLogin      = "login"
	RouteMe         = "me"
	RouteListLists  = "listLists"
	RouteCreateList = "createList"
	RouteUpdateList = "updateList"
	RouteDeleteList = "deleteList"
	RouteListTasks  = "listTasks"
	RouteCreateTask = "createTask"
	RouteUpdateTask = "updateTask"
	RouteDeleteTask = "deleteTask"
)

type fakeList struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"-"`
	Name      string    `json:"name"`
	TaskCount int       `json:"taskCount"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// fakeTask mirrors the API's task payload. The API never stores a due
// date, so dueDate is always null.
type fakeTask struct {
	ID          int64   `json:"id"`
	ListID      int64   `json:"listId"`
	Title       string  `json:"title"`
	Description string  `json:"description,omitempty"`
	Done        bool    `json:"done"`
	DueDate     *string `json:"dueDate"`
}

type fakeUser struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Name     string `json:"name"`
	Email    string `json:"email"`
}

// FakeAPI is an in-memory implementation of the REST API for tests.
// Any non-empty username/password pair signs in.
type FakeAPI struct {
	mu     sync.Mutex
	nextID int64
	users  map[string]fakeUser // username -> user
	tokens map[string]int64    // token -> user id
	lists  []fakeList
	tasks  map[int64][]fakeTask // list id -> tasks

	fail      map[string]int
	failOnce  map[string]int
	requests  []string
	lastAuth  string
	lastQuery map[string]string
}

// NewFakeAPI creates an empty fake.
func NewFakeAPI() *FakeAPI {
	return &FakeAPI{
		nextID:    1,
		users:     make(map[string]fakeUser),
		tokens:    make(map[string]int64),
		tasks:     make(map[int64][]fakeTask),
		fail:      make(map[string]int),
		failOnce:  make(map[string]int),
		lastQuery: make(map[string]string),
	}
}

// Serve starts an httptest server for the fake and returns the API base URL
// (server URL plus "/api"). The server is closed when the test ends.
func (f *FakeAPI) Serve(t testing.TB) string {
	t.Helper()
	server := httptest.NewServer(f.Handler())
	t.Cleanup(server.Close)
	return server.URL + "/api"
}

// Fail makes every call to route respond with status until cleared with 0.
func (f *FakeAPI) Fail(route string, status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if status == 0 {
		delete(f.fail, route)
		return
	}
	f.fail[route] = status
}

// FailOnce makes the next call to route respond with status.
func (f *FakeAPI) FailOnce(route string, status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failOnce[route] = status
}

// Requests returns "METHOD /path" for every request served, in order.
func (f *FakeAPI) Requests() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.requests...)
}

// LastAuthorization returns the Authorization header of the last request.
func (f *FakeAPI) LastAuthorization() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastAuth
}

// LastQuery returns the query string of the last request to route.
func (f *FakeAPI) LastQuery(route string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastQuery[route]
}

// AddUser registers a user and returns a valid token for it.
func (f *FakeAPI) AddUser(username string) (int64, string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u := f.userLocked(username)
	token := "token-" + username
	f.tokens[token] = u.ID
	return u.ID, token
}

// AddList adds a list owned by userID and returns its id.
func (f *FakeAPI) AddList(userID int64, name string) int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.id()
	f.lists = append(f.lists, fakeList{ID: id, UserID: userID, Name: name, UpdatedAt: time.Now().UTC()})
	return id
}

// AddTask adds a task to a list and returns its id.
func (f *FakeAPI) AddTask(listID int64, title string, done bool) int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.id()
	f.tasks[listID] = append(f.tasks[listID], fakeTask{ID: id, ListID: listID, Title: title, Done: done})
	return id
}

// TaskTitles returns the titles stored for a list, in order.
func (f *FakeAPI) TaskTitles(listID int64) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.tasks[listID]))
	for _, t := range f.tasks[listID] {
		out = append(out, t.Title)
	}
	return out
}

// ListNames returns the names of every list, in creation order.
func (f *FakeAPI) ListNames() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.lists))
	for _, l := range f.lists {
		out = append(out, l.Name)
	}
	return out
}

// Handler returns the chi router serving the fake under /api.
func (f *FakeAPI) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(f.record)
	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/login", f.guard(RouteLogin, f.login))
		r.Group(func(r chi.Router) {
			r.Use(f.authenticate)
			r.Get("/auth/me", f.guard(RouteMe, f.me))
			r.Get("/lists", f.guard(RouteListLists, f.listLists))
			r.Post("/lists", f.guard(RouteCreateList, f.createList))
			r.Put("/lists/{listID}", f.guard(RouteUpdateList, f.updateList))
			r.Delete("/lists/{listID}", f.guard(RouteDeleteList, f.deleteList))
			r.Get("/lists/{listID}/tasks", f.guard(RouteListTasks, f.listTasks))
			r.Post("/tasks", f.guard(RouteCreateTask, f.createTask))
			r.Put("/tasks/{taskID}", f.guard(RouteUpdateTask, f.updateTask))
			r.Delete("/tasks/{taskID}", f.guard(RouteDeleteTask, f.deleteTask))
		})
	})
	return r
}

type userKey struct{}

func (f *FakeAPI) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.requests = append(f.requests, r.Method+" "+r.URL.Path)
		f.lastAuth = r.Header.Get("Authorization")
		f.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (f *FakeAPI) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		f.mu.Lock()
		_, ok := f.tokens[token]
		f.mu.Unlock()
		if !ok {
			writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Token inválido ou ausente")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (f *FakeAPI) guard(route string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.lastQuery[route] = r.URL.RawQuery
		status := f.fail[route]
		if once, ok := f.failOnce[route]; ok {
			status = once
			delete(f.failOnce, route)
		}
		f.mu.Unlock()
		if status != 0 {
			writeError(w, status, "INJECTED", "falha simulada em "+route)
			return
		}
		h(w, r)
	}
}

func (f *FakeAPI) login(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "corpo inválido")
		return
	}
	if strings.TrimSpace(body.Username) == "" || strings.TrimSpace(body.Password) == "" {
		writeError(w, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Credenciais inválidas")
		return
	}
	f.mu.Lock()
	u := f.userLocked(body.Username)
	token := "token-" + body.Username
	f.tokens[token] = u.ID
	f.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"token": token, "user": u})
}

func (f *FakeAPI) me(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	f.mu.Lock()
	defer f.mu.Unlock()
	userID := f.tokens[token]
	for _, u := range f.users {
		if u.ID == userID {
			writeJSON(w, http.StatusOK, u)
			return
		}
	}
	writeError(w, http.StatusNotFound, "NOT_FOUND", "Usuário não encontrado")
}

func (f *FakeAPI) listLists(w http.ResponseWriter, r *http.Request) {
	userID, _ := strconv.ParseInt(r.URL.Query().Get("userId"), 10, 64)
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]fakeList, 0)
	for _, l := range f.lists {
		if l.UserID == userID {
			l.TaskCount = len(f.tasks[l.ID])
			out = append(out, l)
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (f *FakeAPI) createList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	userID, _ := strconv.ParseInt(q.Get("userId"), 10, 64)
	name := strings.TrimSpace(q.Get("name"))
	if name == "" {
		writeError(w, http.StatusBadRequest, "VALIDATION", "Nome da lista é obrigatório")
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, l := range f.lists {
		if l.UserID == userID && model.SameName(l.Name, name) {
			writeError(w, http.StatusConflict, "DUPLICATE", "Já existe uma lista com esse nome")
			return
		}
	}
	l := fakeList{ID: f.id(), UserID: userID, Name: name, UpdatedAt: time.Now().UTC()}
	f.lists = append(f.lists, l)
	writeJSON(w, http.StatusCreated, l)
}

func (f *FakeAPI) updateList(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(chi.URLParam(r, "listID"), 10, 64)
	name := strings.TrimSpace(r.URL.Query().Get("name"))
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.lists {
		if f.lists[i].ID == id {
			f.lists[i].Name = name
			f.lists[i].UpdatedAt = time.Now().UTC()
			l := f.lists[i]
			l.TaskCount = len(f.tasks[id])
			writeJSON(w, http.StatusOK, l)
			return
		}
	}
	writeError(w, http.StatusNotFound, "NOT_FOUND", "Lista não encontrada")
}

func (f *FakeAPI) deleteList(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(chi.URLParam(r, "listID"), 10, 64)
	force := r.URL.Query().Get("force") == "true"
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.lists {
		if f.lists[i].ID != id {
			continue
		}
		if len(f.tasks[id]) > 0 && !force {
			writeError(w, http.StatusConflict, "LIST_HAS_TASKS", "Lista possui tarefas")
			return
		}
		f.lists = append(f.lists[:i], f.lists[i+1:]...)
		delete(f.tasks, id)
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeError(w, http.StatusNotFound, "NOT_FOUND", "Lista não encontrada")
}

func (f *FakeAPI) listTasks(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(chi.URLParam(r, "listID"), 10, 64)
	f.mu.Lock()
	defer f.mu.Unlock()
	out := append([]fakeTask{}, f.tasks[id]...)
	writeJSON(w, http.StatusOK, out)
}

func (f *FakeAPI) createTask(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	listID, _ := strconv.ParseInt(q.Get("listId"), 10, 64)
	title := strings.TrimSpace(q.Get("title"))
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.hasListLocked(listID) {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Lista não encontrada")
		return
	}
	for _, t := range f.tasks[listID] {
		if model.SameName(t.Title, title) {
			writeError(w, http.StatusConflict, "DUPLICATE", "Já existe uma tarefa com esse título nesta lista")
			return
		}
	}
	t := fakeTask{
		ID:          f.id(),
		ListID:      listID,
		Title:       title,
		Description: q.Get("description"),
	}
	f.tasks[listID] = append(f.tasks[listID], t)
	writeJSON(w, http.StatusCreated, t)
}

func (f *FakeAPI) updateTask(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(chi.URLParam(r, "taskID"), 10, 64)
	q := r.URL.Query()
	f.mu.Lock()
	defer f.mu.Unlock()
	for listID, tasks := range f.tasks {
		for i := range tasks {
			if tasks[i].ID != id {
				continue
			}
			if q.Has("title") {
				tasks[i].Title = q.Get("title")
			}
			if q.Has("description") {
				tasks[i].Description = q.Get("description")
			}
			if q.Has("done") {
				tasks[i].Done = q.Get("done") == "true"
			}
			f.tasks[listID] = tasks
			writeJSON(w, http.StatusOK, tasks[i])
			return
		}
	}
	writeError(w, http.StatusNotFound, "NOT_FOUND", "Tarefa não encontrada")
}

func (f *FakeAPI) deleteTask(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(chi.URLParam(r, "taskID"), 10, 64)
	f.mu.Lock()
	defer f.mu.Unlock()
	for listID, tasks := range f.tasks {
		for i := range tasks {
			if tasks[i].ID == id {
				f.tasks[listID] = append(tasks[:i], tasks[i+1:]...)
				w.WriteHeader(http.StatusNoContent)
				return
			}
		}
	}
	writeError(w, http.StatusNotFound, "NOT_FOUND", "Tarefa não encontrada")
}

func (f *FakeAPI) userLocked(username string) fakeUser {
	if u, ok := f.users[username]; ok {
		return u
	}
	u := fakeUser{ID: f.id(), Username: username, Name: username, Email: username + "@example.com"}
	f.users[username] = u
	return u
}

func (f *FakeAPI) hasListLocked(id int64) bool {
	for _, l := range f.lists {
		if l.ID == id {
			return true
		}
	}
	return false
}

func (f *FakeAPI) id() int64 {
	id := f.nextID
	f.nextID++
	return id
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]any{
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"status":    status,
		"code":      code,
		"message":   message,
	})
}
