package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"github.com/Kerhoff/MedTracker/internal/models"
	"github.com/Kerhoff/MedTracker/internal/service"
)

const requestTimeout = 15 * time.Second

// Engine is the adherence engine the API dispatches to.
type Engine interface {
	FirstContact(ctx context.Context, accountID string) (bool, error)
	Take(ctx context.Context, accountID string, names ...string) (models.TakeResult, error)
	IsTakenToday(ctx context.Context, accountID, name string) (models.Outcome, error)
	Cancel(ctx context.Context, accountID, name string) (models.Outcome, error)
	AddMedication(ctx context.Context, accountID, name string) (models.Outcome, error)
	RemoveMedication(ctx context.Context, accountID, name string) (models.Outcome, error)
	ListTakenToday(ctx context.Context, accountID string) ([]string, error)
	ListMedications(ctx context.Context, accountID string) ([]string, error)
	SetTimezone(ctx context.Context, accountID, raw string) (models.Outcome, string, error)
}

// Server provides the JSON HTTP API over the adherence engine.
type Server struct {
	engine  Engine
	logger  *logrus.Logger
	router  chi.Router
	metrics http.Handler
}

// NewServer creates a Server, registers all routes, and returns it. A nil
// metrics handler leaves /metrics unrouted.
func NewServer(engine Engine, metrics http.Handler, logger *logrus.Logger) *Server {
	s := &Server{engine: engine, logger: logger, router: chi.NewRouter(), metrics: metrics}
	s.routes()
	return s
}

// Handler returns the http.Handler that can be passed to http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ---------------------------------------------------------------------------
// Routes
// ---------------------------------------------------------------------------

func (s *Server) routes() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.requestLogger)
	s.router.Use(middleware.Recoverer)

	s.router.Get("/healthz", s.handleHealth)
	if s.metrics != nil {
		s.router.Method(http.MethodGet, "/metrics", s.metrics)
	}

	s.router.Route("/api/accounts/{accountID}", func(r chi.Router) {
		r.Use(middleware.Timeout(requestTimeout))

		r.Post("/contact", s.handleContact)

		r.Get("/medications", s.handleListMedications)
		r.Post("/medications", s.handleAddMedication)
		r.Get("/medications/{name}", s.handleCheckMedication)
		r.Delete("/medications/{name}", s.handleRemoveMedication)
		r.Post("/medications/{name}/cancel", s.handleCancelMedication)

		r.Post("/take", s.handleTake)
		r.Get("/taken", s.handleListTaken)

		r.Put("/timezone", s.handleSetTimezone)
	})
}

// requestLogger logs every request through logrus.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		started := time.Now()

		next.ServeHTTP(ww, r)

		s.logger.WithFields(logrus.Fields{
			"method":     r.Method,
			"path":       r.URL.Path,
			"status":     ww.Status(),
			"duration":   time.Since(started),
			"request_id": middleware.GetReqID(r.Context()),
		}).Debug("HTTP request")
	})
}

// ---------------------------------------------------------------------------
// JSON helpers
// ---------------------------------------------------------------------------

func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			s.logger.WithError(err).Error("failed to encode JSON response")
		}
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}

// respondFailure logs an engine failure and answers with a generic 500.
func (s *Server) respondFailure(w http.ResponseWriter, r *http.Request, err error, message string) {
	s.logger.WithError(err).WithField("account_id", chi.URLParam(r, "accountID")).Error(message)
	s.respondError(w, http.StatusInternalServerError, message)
}

// decodeJSON reads the request body into dst and returns an error message on
// failure.  The caller should return immediately when ok == false.
func (s *Server) decodeJSON(r *http.Request, dst any) (ok bool, errMsg string) {
	if r.Body == nil {
		return false, "request body is empty"
	}
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return false, fmt.Sprintf("invalid JSON: %v", err)
	}
	return true, ""
}

// pathParams returns the account id and, when routed, the unescaped
// medication name.
func pathParams(r *http.Request) (accountID, name string, err error) {
	accountID = strings.TrimSpace(chi.URLParam(r, "accountID"))
	if accountID == "" {
		return "", "", errors.New("account id is required")
	}
	if raw := chi.URLParam(r, "name"); raw != "" {
		if name, err = url.PathUnescape(raw); err != nil {
			return "", "", fmt.Errorf("invalid medication name: %w", err)
		}
	}
	return accountID, name, nil
}

// outcomeStatus maps an engine outcome to its HTTP status.
func outcomeStatus(out models.Outcome) int {
	switch out {
	case models.OutcomeAdded:
		return http.StatusCreated
	case models.OutcomeNotTracked:
		return http.StatusNotFound
	case models.OutcomeAlreadyTracked, models.OutcomeNotTakenAnyway:
		return http.StatusConflict
	case models.OutcomeInvalidZone:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusOK
	}
}

type resultResponse struct {
	Result      models.Outcome `json:"result"`
	Name        string         `json:"name,omitempty"`
	Medications []string       `json:"medications,omitempty"`
	Missing     []string       `json:"missing,omitempty"`
	Timezone    string         `json:"timezone,omitempty"`
}

type listResponse struct {
	Medications []string `json:"medications"`
}

// ---------------------------------------------------------------------------
// Health
// ---------------------------------------------------------------------------

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ---------------------------------------------------------------------------
// Accounts
// ---------------------------------------------------------------------------

func (s *Server) handleContact(w http.ResponseWriter, r *http.Request) {
	accountID, _, err := pathParams(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	isNew, err := s.engine.FirstContact(r.Context(), accountID)
	if err != nil {
		s.respondFailure(w, r, err, "failed to record contact")
		return
	}

	s.respondJSON(w, http.StatusOK, map[string]bool{"is_new_account": isNew})
}

type setTimezoneRequest struct {
	Timezone string `json:"timezone"`
}

func (s *Server) handleSetTimezone(w http.ResponseWriter, r *http.Request) {
	accountID, _, err := pathParams(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req setTimezoneRequest
	if ok, msg := s.decodeJSON(r, &req); !ok {
		s.respondError(w, http.StatusBadRequest, msg)
		return
	}

	out, zone, err := s.engine.SetTimezone(r.Context(), accountID, req.Timezone)
	if err != nil {
		s.respondFailure(w, r, err, "failed to set timezone")
		return
	}

	s.respondJSON(w, outcomeStatus(out), resultResponse{Result: out, Timezone: zone})
}

// ---------------------------------------------------------------------------
// Medications
// ---------------------------------------------------------------------------

type addMedicationRequest struct {
	Name string `json:"name"`
}

func (s *Server) handleListMedications(w http.ResponseWriter, r *http.Request) {
	accountID, _, err := pathParams(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	names, err := s.engine.ListMedications(r.Context(), accountID)
	if err != nil {
		s.respondFailure(w, r, err, "failed to list medications")
		return
	}

	s.respondJSON(w, http.StatusOK, listResponse{Medications: names})
}

func (s *Server) handleAddMedication(w http.ResponseWriter, r *http.Request) {
	accountID, _, err := pathParams(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req addMedicationRequest
	if ok, msg := s.decodeJSON(r, &req); !ok {
		s.respondError(w, http.StatusBadRequest, msg)
		return
	}

	out, err := s.engine.AddMedication(r.Context(), accountID, req.Name)
	if errors.Is(err, service.ErrInvalidName) {
		s.respondError(w, http.StatusBadRequest, "name is required")
		return
	}
	if err != nil {
		s.respondFailure(w, r, err, "failed to add medication")
		return
	}

	s.respondJSON(w, outcomeStatus(out), resultResponse{Result: out, Name: strings.TrimSpace(req.Name)})
}

func (s *Server) handleCheckMedication(w http.ResponseWriter, r *http.Request) {
	accountID, name, err := pathParams(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	out, err := s.engine.IsTakenToday(r.Context(), accountID, name)
	if err != nil {
		s.respondFailure(w, r, err, "failed to check medication")
		return
	}

	s.respondJSON(w, outcomeStatus(out), resultResponse{Result: out, Name: name})
}

func (s *Server) handleRemoveMedication(w http.ResponseWriter, r *http.Request) {
	accountID, name, err := pathParams(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	out, err := s.engine.RemoveMedication(r.Context(), accountID, name)
	if err != nil {
		s.respondFailure(w, r, err, "failed to remove medication")
		return
	}

	s.respondJSON(w, outcomeStatus(out), resultResponse{Result: out, Name: name})
}

func (s *Server) handleCancelMedication(w http.ResponseWriter, r *http.Request) {
	accountID, name, err := pathParams(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	out, err := s.engine.Cancel(r.Context(), accountID, name)
	if err != nil {
		s.respondFailure(w, r, err, "failed to cancel medication")
		return
	}

	s.respondJSON(w, outcomeStatus(out), resultResponse{Result: out, Name: name})
}

// ---------------------------------------------------------------------------
// Takes
// ---------------------------------------------------------------------------

type takeRequest struct {
	Medications []string `json:"medications"`
}

func (s *Server) handleTake(w http.ResponseWriter, r *http.Request) {
	accountID, _, err := pathParams(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req takeRequest
	if ok, msg := s.decodeJSON(r, &req); !ok {
		s.respondError(w, http.StatusBadRequest, msg)
		return
	}

	res, err := s.engine.Take(r.Context(), accountID, req.Medications...)
	if errors.Is(err, service.ErrInvalidBatch) {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		s.respondFailure(w, r, err, "failed to record take")
		return
	}

	resp := resultResponse{Result: res.Outcome, Missing: res.Missing}
	if res.IsTaken() {
		resp.Medications = res.Medications
	}
	s.respondJSON(w, outcomeStatus(res.Outcome), resp)
}

func (s *Server) handleListTaken(w http.ResponseWriter, r *http.Request) {
	accountID, _, err := pathParams(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	names, err := s.engine.ListTakenToday(r.Context(), accountID)
	if err != nil {
		s.respondFailure(w, r, err, "failed to list taken medications")
		return
	}

	s.respondJSON(w, http.StatusOK, listResponse{Medications: names})
}
