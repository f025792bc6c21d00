package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	goserde "github.com/reoring/goserde"
	"github.com/reoring/goserde/codec"
	"github.com/reoring/goserde/fields"
)

// User represents a user in our system
type User struct {
	ID       uuid.UUID       `json:"id"`
	Name     string          `json:"name"`
	Email    string          `json:"email"`
	Age      int             `json:"age"`
	Active   bool            `json:"active"`
	Balance  decimal.Decimal `json:"balance"`
	JoinedAt time.Time       `json:"joined_at"`
}

// UserStore is a simple in-memory store
type UserStore struct {
	mu    sync.RWMutex
	users map[uuid.UUID]User
	order []uuid.UUID
}

func NewUserStore() *UserStore {
	return &UserStore{
		users: make(map[uuid.UUID]User),
	}
}

func (s *UserStore) Create(user User) User {
	s.mu.Lock()
	defer s.mu.Unlock()

	user.ID = uuid.New()
	s.users[user.ID] = user
	s.order = append(s.order, user.ID)

	return user
}

func (s *UserStore) GetAll() []User {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]User, 0, len(s.order))
	for _, id := range s.order {
		users = append(users, s.users[id])
	}
	return users
}

func (s *UserStore) GetByID(id uuid.UUID) (User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, exists := s.users[id]
	return user, exists
}

func (s *UserStore) Update(id uuid.UUID, user User) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.users[id]; !exists {
		return false
	}

	user.ID = id
	s.users[id] = user
	return true
}

func (s *UserStore) Delete(id uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.users[id]; !exists {
		return false
	}

	delete(s.users, id)
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return true
}

// Server holds our application state
type Server struct {
	store     *UserStore
	userDef   *goserde.Def
	publicDef *goserde.Def
	enc       codec.Encoder
}

func displayName(_ context.Context, obj any) (any, error) {
	u := obj.(User)
	if u.Name == "" {
		return u.Email, nil
	}
	return u.Name, nil
}

func NewServer() *Server {
	// Define the full User view using the goserde field DSL
	userDef := goserde.Define().
		Field("id", fields.UUID()).
		Field("display_name", fields.Method(displayName)).
		Field("name", fields.Char()).
		Field("email", fields.Char()).
		Field("age", fields.Int()).
		Field("active", fields.Bool()).
		Field("balance", fields.Decimal()).
		Field("joined", fields.Date().WithSource("joined_at")).
		MustBuild()

	// The public view hides contact and billing details but keeps the order
	publicDef := goserde.Define().
		Extend(userDef).
		Exclude("email", "balance").
		MustBuild()

	return &Server{
		store:     NewUserStore(),
		userDef:   userDef,
		publicDef: publicDef,
		enc:       codec.JSON(),
	}
}

func (s *Server) defFor(r *http.Request) *goserde.Def {
	if r.URL.Query().Get("view") == "public" {
		return s.publicDef
	}
	return s.userDef
}

func (s *Server) handleUsers(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handleGetUsers(w, r)
	case http.MethodPost:
		s.handleCreateUser(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleUserByID(w http.ResponseWriter, r *http.Request) {
	// Extract ID from path
	path := strings.TrimPrefix(r.URL.Path, "/users/")
	id, err := uuid.Parse(path)
	if err != nil {
		http.Error(w, "Invalid user ID", http.StatusBadRequest)
		return
	}

	switch r.Method {
	case http.MethodGet:
		s.handleGetUser(w, r, id)
	case http.MethodPatch:
		s.handlePatchUser(w, r, id)
	case http.MethodDelete:
		s.handleDeleteUser(w, r, id)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleGetUsers(w http.ResponseWriter, r *http.Request) {
	users := s.store.GetAll()

	// All-or-nothing: one bad record fails the whole listing
	ms, err := s.defFor(r).SerializeMany(r.Context(), users)
	if err != nil {
		s.handleSerializeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]any{
		"users": ms,
		"count": len(ms),
	})
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	user, exists := s.store.GetByID(id)
	if !exists {
		http.Error(w, "User not found", http.StatusNotFound)
		return
	}

	m, err := s.defFor(r).Serialize(r.Context(), user)
	if err != nil {
		s.handleSerializeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, m)
}

type userInput struct {
	Name    string  `json:"name"`
	Email   string  `json:"email"`
	Age     int     `json:"age"`
	Active  *bool   `json:"active"`
	Balance *string `json:"balance"`
}

func (in userInput) toUser() (User, error) {
	u := User{
		Name:     in.Name,
		Email:    in.Email,
		Age:      in.Age,
		Active:   true,
		JoinedAt: time.Now().UTC(),
	}
	if in.Active != nil {
		u.Active = *in.Active
	}
	if in.Balance != nil {
		d, err := decimal.NewFromString(*in.Balance)
		if err != nil {
			return User{}, fmt.Errorf("invalid balance: %w", err)
		}
		u.Balance = d
	}
	return u, nil
}

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var in userInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}
	user, err := in.toUser()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	createdUser := s.store.Create(user)

	m, err := s.userDef.Serialize(r.Context(), createdUser)
	if err != nil {
		s.handleSerializeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, m)
}

func (s *Server) handlePatchUser(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	existingUser, exists := s.store.GetByID(id)
	if !exists {
		http.Error(w, "User not found", http.StatusNotFound)
		return
	}

	// Decode into a map so only the provided keys are applied
	var patch map[string]json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		http.Error(w, "Invalid JSON body", http.StatusBadRequest)
		return
	}

	updatedUser := existingUser
	var updatedFields []string
	apply := func(key string, dst any) bool {
		raw, ok := patch[key]
		if !ok {
			return true
		}
		if err := json.Unmarshal(raw, dst); err != nil {
			http.Error(w, fmt.Sprintf("Invalid value for %q", key), http.StatusBadRequest)
			return false
		}
		updatedFields = append(updatedFields, key)
		return true
	}
	if !apply("name", &updatedUser.Name) ||
		!apply("email", &updatedUser.Email) ||
		!apply("age", &updatedUser.Age) ||
		!apply("active", &updatedUser.Active) {
		return
	}

	s.store.Update(id, updatedUser)

	m, err := s.userDef.Serialize(r.Context(), updatedUser)
	if err != nil {
		s.handleSerializeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"user":           m,
		"updated_fields": updatedFields,
	})
}

func (s *Server) handleDeleteUser(w http.ResponseWriter, _ *http.Request, id uuid.UUID) {
	if !s.store.Delete(id) {
		http.Error(w, "User not found", http.StatusNotFound)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSchema(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	// Project the serializer definition into JSON Schema
	jsonSchema, err := s.userDef.JSONSchema()
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to generate schema: %v", err), http.StatusInternalServerError)
		return
	}

	s.writeJSON(w, http.StatusOK, jsonSchema)
}

func (s *Server) handleSerializeError(w http.ResponseWriter, err error) {
	// Serialization failures are server-side bugs: a stored record did not
	// match the definition
	if issues, ok := goserde.AsIssues(err); ok {
		details := make([]map[string]any, len(issues))
		for i, issue := range issues {
			details[i] = map[string]any{
				"path":    issue.Path,
				"code":    issue.Code,
				"message": issue.Message,
			}
		}
		s.writeJSON(w, http.StatusInternalServerError, map[string]any{
			"error":  "Serialization failed",
			"issues": details,
		})
		return
	}

	http.Error(w, fmt.Sprintf("Error: %v", err), http.StatusInternalServerError)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	out, err := s.enc.Encode(v)
	if err != nil {
		http.Error(w, fmt.Sprintf("Encode error: %v", err), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(out)
}

func main() {
	server := NewServer()

	// Add some initial data
	server.store.Create(User{
		Name:     "Taro",
		Email:    "taro@example.com",
		Age:      30,
		Active:   true,
		Balance:  decimal.RequireFromString("120.50"),
		JoinedAt: time.Date(2023, 4, 1, 9, 0, 0, 0, time.UTC),
	})
	server.store.Create(User{
		Name:     "Hanako",
		Email:    "hanako@example.com",
		Age:      25,
		Active:   true,
		Balance:  decimal.RequireFromString("87.00"),
		JoinedAt: time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC),
	})

	// Setup routes
	http.HandleFunc("/users", server.handleUsers)
	http.HandleFunc("/users/", server.handleUserByID)
	http.HandleFunc("/schema", server.handleSchema)

	// Health check
	http.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})

	// Root handler with usage instructions
	http.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"message": "goserde User API Sample",
			"endpoints": map[string]string{
				"GET /users":             "List all users",
				"GET /users?view=public": "List users without email and balance",
				"POST /users":            "Create a new user",
				"GET /users/{id}":        "Get user by ID",
				"PATCH /users/{id}":      "Partially update user",
				"DELETE /users/{id}":     "Delete user",
				"GET /schema":            "Get JSON Schema for the user view",
				"GET /health":            "Health check",
			},
			"examples": map[string]any{
				"create_user": map[string]any{
					"method": "POST",
					"url":    "/users",
					"body": map[string]any{
						"name":    "Taro",
						"email":   "taro@example.com",
						"age":     30,
						"active":  true,
						"balance": "120.50",
					},
				},
				"partial_update": map[string]any{
					"method": "PATCH",
					"url":    "/users/{id}",
					"body": map[string]any{
						"name": "Jiro",
					},
					"note": "Only updates the 'name' field, other fields remain unchanged",
				},
			},
		})
	})

	log.Println("🚀 goserde User API server starting on :8080")
	log.Println("📖 Visit http://localhost:8080 for usage instructions")
	log.Println("🔍 Visit http://localhost:8080/schema to see the JSON Schema")

	if err := http.ListenAndServe(":8080", nil); err != nil {
		log.Fatal("Server failed to start:", err)
	}
}
