// Command sample serves an in-memory users API described with graceful.
//
// Run:
//
//	go run ./cmd/sample
//
// Print the resource descriptions as YAML:
//
//	go run ./cmd/sample -describe
//
// Then explore:
//
//	OPTIONS http://localhost:8080/v1/users        describe the collection
//	GET     http://localhost:8080/v1/users        list users (page, page_size, role)
//	POST    http://localhost:8080/v1/users        create a user
//	GET     http://localhost:8080/v1/users/{id}   get a user
//	PUT     http://localhost:8080/v1/users/{id}   replace a user
//	PATCH   http://localhost:8080/v1/users/{id}   update some fields of a user
//	DELETE  http://localhost:8080/v1/users/{id}   delete a user
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/bjaus/graceful"
)

func main() {
	describeFlag := flag.Bool("describe", false, "Print the resource descriptions as YAML and exit")
	addrFlag := flag.String("addr", ":8080", "Listen address")
	rateFlag := flag.Float64("rate", 20, "Requests per second allowed per client")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	app := newApp(logger, newUserStore())

	if *describeFlag {
		if err := app.describe(os.Stdout); err != nil {
			logger.Error("describe failed", "err", err)
			os.Exit(1)
		}
		return
	}

	srv := &http.Server{
		Addr:              *addrFlag,
		Handler:           app.routes(*rateFlag),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown failed", "err", err)
		}
	}()

	logger.Info("starting server", "addr", *addrFlag)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server error", "err", err)
	}

	logger.Info("server stopped")
}

// ---------------------------------------------------------------------------
// Domain
// ---------------------------------------------------------------------------

// User is the core domain entity.
type User struct {
	ID     int      `json:"id"`
	Name   string   `json:"name"`
	Email  string   `json:"email"`
	Role   string   `json:"role"`
	Tags   []string `json:"tags"`
	Active bool     `json:"active"`
}

var userFields = graceful.Fields(
	graceful.DeclareField("id", graceful.NewIntField("Unique user identifier", graceful.ReadOnly())),
	graceful.DeclareField("name", graceful.NewStringField("Display name",
		graceful.WithValidators(graceful.MinLength(1), graceful.MaxLength(64)),
	)),
	graceful.DeclareField("email", graceful.NewStringField("Email address",
		graceful.WithValidators(graceful.Match(`^[^@\s]+@[^@\s]+$`)),
	)),
	graceful.DeclareField("role", graceful.NewStringField("User role",
		graceful.WithValidators(graceful.Choices("admin", "member")),
	)),
	graceful.DeclareField("tags", graceful.NewStringField("Free-form labels", graceful.Many())),
	graceful.DeclareField("active", graceful.NewBoolField("Whether the user can sign in",
		graceful.WithRepresentations("no", "yes"),
	)),
)

// ---------------------------------------------------------------------------
// In-memory store
// ---------------------------------------------------------------------------

type userStore struct {
	mu     sync.RWMutex
	users  map[int]*User
	nextID int
}

func newUserStore() *userStore {
	return &userStore{
		users: map[int]*User{
			1: {ID: 1, Name: "Alice", Email: "alice@example.com", Role: "admin", Active: true},
			2: {ID: 2, Name: "Bob", Email: "bob@example.com", Role: "member", Tags: []string{"beta"}},
		},
		nextID: 3,
	}
}

// page returns one page of users ordered by id, and whether more follow.
func (s *userStore) page(role string, page, size int) ([]User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]int, 0, len(s.users))
	for id, u := range s.users {
		if role != "" && u.Role != role {
			continue
		}
		ids = append(ids, id)
	}
	slices.Sort(ids)

	page, size = max(page, 0), max(size, 1)
	start := min(page*size, len(ids))
	end := min(start+size, len(ids))

	out := make([]User, 0, end-start)
	for _, id := range ids[start:end] {
		out = append(out, *s.users[id])
	}
	return out, end < len(ids)
}

func (s *userStore) get(id int) (User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return User{}, false
	}
	return *u, true
}

func (s *userStore) create(u User) User {
	s.mu.Lock()
	defer s.mu.Unlock()
	u.ID = s.nextID
	s.nextID++
	s.users[u.ID] = &u
	return u
}

// update assigns patch to a copy of the user and stores the copy only when
// every value could be assigned.
func (s *userStore) update(id int, patch graceful.Map) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return User{}, notFound(id)
	}

	updated := *u
	updated.Tags = slices.Clone(u.Tags)
	obj := graceful.Struct(&updated)

	var failed map[string]string
	for name, value := range patch {
		if err := obj.Set(name, value); err != nil {
			if failed == nil {
				failed = make(map[string]string)
			}
			failed[name] = err.Error()
		}
	}
	if failed != nil {
		return User{}, &graceful.DeserializationError{Failed: failed}
	}

	s.users[id] = &updated
	return updated, nil
}

func (s *userStore) delete(id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[id]; !ok {
		return notFound(id)
	}
	delete(s.users, id)
	return nil
}

// ---------------------------------------------------------------------------
// Resources and handlers
// ---------------------------------------------------------------------------

type app struct {
	logger *slog.Logger
	store  *userStore
	users  *graceful.Resource
	user   *graceful.Resource
}

func newApp(logger *slog.Logger, store *userStore) *app {
	return &app{
		logger: logger,
		store:  store,
		users: graceful.NewResource("users",
			graceful.WithDetails(`
				Registered users.

				GET lists users one page at a time, POST creates a user.
			`),
			graceful.WithKind("list"),
			graceful.WithMethods(http.MethodGet, http.MethodPost),
			graceful.WithPagination(),
			graceful.WithParams(graceful.Params(
				graceful.DeclareParam("role", graceful.NewStringParam("Only list users with this role",
					graceful.WithValidators(graceful.Choices("admin", "member")),
				)),
			)),
			graceful.WithSerializer(graceful.NewSerializer(userFields,
				graceful.WithFactory(func() graceful.Object { return graceful.Struct(&User{}) }),
			)),
			graceful.WithLogger(logger),
		),
		user: graceful.NewResource("user",
			graceful.WithDetails(`
				A single user. PUT replaces every writable field,
				PATCH accepts any subset of them.
			`),
			graceful.WithKind("object"),
			graceful.WithMethods(http.MethodGet, http.MethodPut, http.MethodPatch, http.MethodDelete),
			graceful.WithSerializer(graceful.NewSerializer(userFields)),
			graceful.WithLogger(logger),
		),
	}
}

func (a *app) routes(rps float64) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/v1/users", a.users.Handler(graceful.Handlers{
		http.MethodGet:  a.users.PaginatedListHandler(a.listUsers),
		http.MethodPost: a.users.CreateHandler(a.createUser),
	}))
	mux.Handle("/v1/users/{id}", a.user.Handler(graceful.Handlers{
		http.MethodGet:    a.user.RetrieveHandler(a.getUser),
		http.MethodPut:    a.user.UpdateHandler(false, a.updateUser),
		http.MethodPatch:  a.user.UpdateHandler(true, a.updateUser),
		http.MethodDelete: a.user.DeleteHandler(a.deleteUser),
	}))

	return graceful.Chain(mux,
		graceful.Recovery(a.logger),
		graceful.RequestID(),
		graceful.Logger(a.logger),
		graceful.RateLimit(graceful.RateLimitConfig{Rate: rps, Burst: int(rps)}),
		graceful.BodyLimit(1<<20),
	)
}

// describe writes both resource descriptions as YAML documents.
func (a *app) describe(w io.Writer) error {
	if err := a.users.WriteDescriptionYAML(w, "/v1/users"); err != nil {
		return err
	}
	if _, err := fmt.Fprintln(w, "---"); err != nil {
		return err
	}
	return a.user.WriteDescriptionYAML(w, "/v1/users/{id}")
}

func (a *app) listUsers(_ *http.Request, params, meta map[string]any) ([]graceful.Object, error) {
	role, _ := params["role"].(string)
	users, more := a.store.page(role, params["page"].(int), params["page_size"].(int))
	meta["has_more"] = more

	objs := make([]graceful.Object, len(users))
	for i := range users {
		objs[i] = graceful.Struct(&users[i])
	}
	return objs, nil
}

func (a *app) createUser(req *http.Request, _ map[string]any, obj graceful.Object) (graceful.Object, string, error) {
	created := a.store.create(*obj.(*graceful.StructObject).Value().(*User))
	a.logger.InfoContext(req.Context(), "user created", "id", created.ID)
	return graceful.Struct(&created), "/v1/users/" + strconv.Itoa(created.ID), nil
}

func (a *app) getUser(req *http.Request, _, _ map[string]any) (graceful.Object, error) {
	id, err := pathID(req)
	if err != nil {
		return nil, err
	}
	u, ok := a.store.get(id)
	if !ok {
		return nil, notFound(id)
	}
	return graceful.Struct(&u), nil
}

func (a *app) updateUser(req *http.Request, _ map[string]any, obj graceful.Object) (graceful.Object, error) {
	id, err := pathID(req)
	if err != nil {
		return nil, err
	}
	u, err := a.store.update(id, obj.(graceful.Map))
	if err != nil {
		return nil, err
	}
	return graceful.Struct(&u), nil
}

func (a *app) deleteUser(req *http.Request, _ map[string]any) error {
	id, err := pathID(req)
	if err != nil {
		return err
	}
	return a.store.delete(id)
}

func pathID(req *http.Request) (int, error) {
	id, err := strconv.Atoi(req.PathValue("id"))
	if err != nil {
		return 0, notFound(req.PathValue("id"))
	}
	return id, nil
}

func notFound(id any) *graceful.ProblemDetail {
	return &graceful.ProblemDetail{
		Type:   "about:blank",
		Title:  http.StatusText(http.StatusNotFound),
		Status: http.StatusNotFound,
		Detail: fmt.Sprintf("user %v not found", id),
	}
}
