// Package upstreamtest provides an in-process stand-in for the upstream
// employee directory server, speaking its wire format.
package upstreamtest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
)

const BasePath = "/api/v1/employee"

// Record is an employee as the upstream stores it.
type Record struct {
	ID     string `json:"id"`
	Name   string `json:"employee_name"`
	Salary int    `json:"employee_salary"`
	Age    int    `json:"employee_age"`
	Title  string `json:"employee_title"`
	Email  string `json:"employee_email"`
}

// Server is a scriptable fake upstream. Failures queued with FailNext are
// served before normal handling resumes.
type Server struct {
	*httptest.Server

	mu       sync.Mutex
	records  []Record
	failures map[string][]int
	calls    map[string]int
	bodies   map[string][]map[string]any
	headers  map[string][]http.Header
	// NullData makes single-employee GETs answer 200 with "data": null for
	// the listed IDs even when the record exists.
	NullData map[string]bool
}

func NewServer(t testing.TB, seed ...Record) *Server {
	t.Helper()
	s := &Server{
		records:  append([]Record(nil), seed...),
		failures: make(map[string][]int),
		calls:    make(map[string]int),
		bodies:   make(map[string][]map[string]any),
		headers:  make(map[string][]http.Header),
		NullData: make(map[string]bool),
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	t.Cleanup(s.Close)
	return s
}

// BaseURL is the collection URL to configure clients with.
func (s *Server) BaseURL() string { return s.URL + BasePath }

// FailNext makes the next n requests with method answer status.
func (s *Server) FailNext(method string, status, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := 0; i < n; i++ {
		s.failures[method] = append(s.failures[method], status)
	}
}

// Calls returns how many requests with method were received.
func (s *Server) Calls(method string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[method]
}

// Bodies returns the decoded JSON bodies received with method.
func (s *Server) Bodies(method string) []map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]map[string]any(nil), s.bodies[method]...)
}

// Headers returns the request headers received with method.
func (s *Server) Headers(method string) []http.Header {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]http.Header(nil), s.headers[method]...)
}

func (s *Server) Records() []Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Record(nil), s.records...)
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls[r.Method]++
	s.headers[r.Method] = append(s.headers[r.Method], r.Header.Clone())

	var body map[string]any
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&body)
	}
	if body != nil {
		s.bodies[r.Method] = append(s.bodies[r.Method], body)
	}

	if queue := s.failures[r.Method]; len(queue) > 0 {
		status := queue[0]
		s.failures[r.Method] = queue[1:]
		http.Error(w, http.StatusText(status), status)
		return
	}

	if !strings.HasPrefix(r.URL.Path, BasePath) {
		http.NotFound(w, r)
		return
	}
	id := strings.Trim(strings.TrimPrefix(r.URL.Path, BasePath), "/")

	switch {
	case r.Method == http.MethodGet && id == "":
		writeJSON(w, map[string]any{"data": s.records, "status": "Successfully processed request."})
	case r.Method == http.MethodGet:
		rec, ok := s.find(id)
		if !ok || s.NullData[id] {
			writeJSON(w, map[string]any{"data": nil, "status": "Successfully processed request."})
			return
		}
		writeJSON(w, map[string]any{"data": rec, "status": "Successfully processed request."})
	case r.Method == http.MethodPost && id == "":
		rec := Record{
			ID:     uuid.NewString(),
			Name:   stringField(body, "employee_name"),
			Salary: intField(body, "employee_salary"),
			Age:    intField(body, "employee_age"),
			Title:  stringField(body, "employee_title"),
		}
		rec.Email = strings.ToLower(strings.ReplaceAll(rec.Name, " ", ".")) + "@company.com"
		s.records = append(s.records, rec)
		writeJSON(w, map[string]any{"data": rec, "status": "Successfully processed request."})
	case r.Method == http.MethodDelete && id == "":
		name := stringField(body, "name")
		deleted := false
		for i, rec := range s.records {
			if rec.Name == name {
				s.records = append(s.records[:i], s.records[i+1:]...)
				deleted = true
				break
			}
		}
		writeJSON(w, map[string]any{"data": deleted, "status": "Successfully processed request."})
	default:
		http.Error(w, fmt.Sprintf("unsupported %s %s", r.Method, r.URL.Path), http.StatusMethodNotAllowed)
	}
}

func (s *Server) find(id string) (Record, bool) {
	for _, rec := range s.records {
		if rec.ID == id {
			return rec, true
		}
	}
	return Record{}, false
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func stringField(body map[string]any, key string) string {
	v, _ := body[key].(string)
	return v
}

func intField(body map[string]any, key string) int {
	v, _ := body[key].(float64)
	return int(v)
}
