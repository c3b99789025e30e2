package httpapi

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/ent0n29/employee-api/internal/audit"
	"github.com/ent0n29/employee-api/internal/employee"
	"github.com/ent0n29/employee-api/internal/logging"
	"github.com/ent0n29/employee-api/internal/policy"
)

func (s *Server) handleListEmployees(w http.ResponseWriter, r *http.Request) {
	list, err := s.employees.ListAll(r.Context())
	if err != nil {
		s.respondFailure(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, list)
}

func (s *Server) handleSearchEmployees(w http.ResponseWriter, r *http.Request) {
	fragment := chi.URLParam(r, "searchString")
	if r.URL.RawPath != "" {
		// chi routed on the escaped path, so the parameter is still escaped.
		if decoded, err := url.PathUnescape(fragment); err == nil {
			fragment = decoded
		}
	}

	list, err := s.employees.ListAll(r.Context())
	if err != nil {
		s.respondFailure(w, r, err)
		return
	}
	logging.FromContext(r.Context()).Debug().Str("search", fragment).Msg("filtering employees by name")
	respondJSON(w, http.StatusOK, employee.SearchByName(list, fragment))
}

func (s *Server) handleGetEmployee(w http.ResponseWriter, r *http.Request) {
	e, err := s.employees.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondFailure(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, e)
}

func (s *Server) handleHighestSalary(w http.ResponseWriter, r *http.Request) {
	list, err := s.employees.ListAll(r.Context())
	if err != nil {
		s.respondFailure(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, employee.HighestSalary(list))
}

func (s *Server) handleTopEarners(w http.ResponseWriter, r *http.Request) {
	list, err := s.employees.ListAll(r.Context())
	if err != nil {
		s.respondFailure(w, r, err)
		return
	}
	n := s.cfg.App.TopN
	if n <= 0 {
		n = employee.DefaultTopN
	}
	respondJSON(w, http.StatusOK, employee.TopNBySalary(list, n))
}

func (s *Server) handleCreateEmployee(w http.ResponseWriter, r *http.Request) {
	var in employee.CreateInput
	if err := decodeJSON(r, &in); err != nil {
		if errors.Is(err, errEmptyBody) {
			respondError(w, http.StatusBadRequest, "invalid_request", "request body must be an employee object")
			return
		}
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	created, err := s.employees.Create(r.Context(), in)
	if err != nil {
		s.recordAudit(r.Context(), audit.Entry{
			Action:       audit.ActionCreate,
			EmployeeName: in.Name,
			Outcome:      audit.OutcomeFailed,
			Detail:       err.Error(),
		})
		s.respondFailure(w, r, err)
		return
	}
	s.recordAudit(r.Context(), audit.Entry{
		Action:       audit.ActionCreate,
		EmployeeID:   created.ID,
		EmployeeName: created.Name,
		Outcome:      audit.OutcomeSucceeded,
	})
	respondJSON(w, http.StatusOK, created)
}

func (s *Server) handleDeleteEmployee(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if strings.TrimSpace(id) == "" {
		respondError(w, http.StatusBadRequest, "invalid_employee_id", "missing employee id")
		return
	}

	outcome, err := s.employees.DeleteByID(r.Context(), id)
	if err != nil {
		s.recordAudit(r.Context(), audit.Entry{
			Action:     audit.ActionDelete,
			EmployeeID: id,
			Outcome:    audit.OutcomeFailed,
			Detail:     err.Error(),
		})
		s.respondFailure(w, r, err)
		return
	}
	s.recordAudit(r.Context(), audit.Entry{
		Action:       audit.ActionDelete,
		EmployeeID:   id,
		EmployeeName: outcome.Name,
		Outcome:      audit.OutcomeSucceeded,
	})
	logging.FromContext(r.Context()).Debug().Str("employee_id", id).Str("employee_name", outcome.Name).Msg("deleted employee")
	respondJSON(w, http.StatusOK, outcome.Name)
}

// recordAudit never fails the request; a store error is logged and counted.
func (s *Server) recordAudit(ctx context.Context, entry audit.Entry) {
	if s.audit == nil {
		return
	}
	if id, ok := logging.RequestIDFromContext(ctx); ok {
		entry.RequestID = id
	}
	entry.Detail, _ = policy.RedactPII(entry.Detail)
	if err := s.audit.Record(ctx, entry); err != nil {
		s.metrics.ObserveAudit(entry.Action, "store_error")
		logging.FromContext(ctx).Error().Err(err).Str("action", entry.Action).Msg("audit record failed")
		return
	}
	s.metrics.ObserveAudit(entry.Action, entry.Outcome)
}
