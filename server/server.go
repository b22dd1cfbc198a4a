// Package server exposes formula parsing over HTTP.
package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/martinemde/chemformula/formula"
)

const (
	// maxBodyBytes bounds a POST /formulas request body.
	maxBodyBytes = 1 << 20
	// defaultMaxResults is how many results are kept before the oldest is
	// evicted.
	defaultMaxResults = 10_000
)

// ParseFunc parses formula text into atom counts.
type ParseFunc func(string) (*formula.AtomCount, error)

// FormulaServer provides HTTP endpoints for parsing formulas and retrieving
// earlier results.
type FormulaServer struct {
	mu         sync.RWMutex
	results    map[string]*Result
	order      []string
	maxResults int
	parse      ParseFunc
	now        func() time.Time
}

// Result is a successfully parsed formula.
type Result struct {
	ID        string             `json:"id"`
	Formula   string             `json:"formula"`
	Counts    *formula.AtomCount `json:"counts"`
	Canonical string             `json:"canonical"`
	CreatedAt time.Time          `json:"created_at"`
}

// NewFormulaServer creates a new FormulaServer. A nil parse uses formula.Parse.
func NewFormulaServer(parse ParseFunc) *FormulaServer {
	if parse == nil {
		parse = formula.Parse
	}
	return &FormulaServer{
		results:    make(map[string]*Result),
		maxResults: defaultMaxResults,
		parse:      parse,
		now:        time.Now,
	}
}

// Handler returns an http.Handler for the formula server.
func (s *FormulaServer) Handler() http.Handler {
	mux := http.NewServeMux()

	// POST /formulas - Parse a formula and store the result
	mux.HandleFunc("POST /formulas", s.handleCreateFormula)

	// GET /formulas - List stored results in submission order
	mux.HandleFunc("GET /formulas", s.handleListFormulas)

	// GET /formulas/{id} - Get a stored result
	mux.HandleFunc("GET /formulas/{id}", s.handleGetFormula)

	return mux
}

// createFormulaRequest is the request body for parsing a formula.
type createFormulaRequest struct {
	Formula *string `json:"formula"`
}

// errorResponse is the response body for a formula that failed to parse.
type errorResponse struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
	Offset  *int   `json:"offset,omitempty"`
}

// handleCreateFormula handles POST /formulas.
func (s *FormulaServer) handleCreateFormula(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var req createFormulaRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(w, "request body too large", http.StatusRequestEntityTooLarge)
			return
		}
		http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	if req.Formula == nil {
		http.Error(w, "formula is required", http.StatusBadRequest)
		return
	}

	counts, err := s.parse(*req.Formula)
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, newErrorResponse(err))
		return
	}

	result := &Result{
		ID:        uuid.New().String(),
		Formula:   *req.Formula,
		Counts:    counts,
		Canonical: counts.Formula(),
		CreatedAt: s.now().UTC(),
	}

	s.mu.Lock()
	s.results[result.ID] = result
	s.order = append(s.order, result.ID)
	if over := len(s.order) - s.maxResults; s.maxResults > 0 && over > 0 {
		for _, id := range s.order[:over] {
			delete(s.results, id)
		}
		s.order = slices.Delete(s.order, 0, over)
	}
	s.mu.Unlock()

	writeJSON(w, http.StatusCreated, result)
}

// handleGetFormula handles GET /formulas/{id}.
func (s *FormulaServer) handleGetFormula(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	s.mu.RLock()
	result, ok := s.results[id]
	s.mu.RUnlock()

	if !ok {
		http.Error(w, "formula not found", http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// handleListFormulas handles GET /formulas.
func (s *FormulaServer) handleListFormulas(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	results := make([]*Result, 0, len(s.order))
	for _, id := range s.order {
		results = append(results, s.results[id])
	}
	s.mu.RUnlock()

	writeJSON(w, http.StatusOK, struct {
		Formulas []*Result `json:"formulas"`
	}{results})
}

func newErrorResponse(err error) errorResponse {
	detail := errorDetail{Kind: formula.Kind(err), Message: err.Error()}
	if detail.Kind == "" {
		detail.Kind = "internal"
	}
	if pos, ok := formula.ErrorPosition(err); ok {
		detail.Offset = &pos.Offset
	}
	return errorResponse{Error: detail}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

