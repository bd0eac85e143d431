package api

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/MimoJanra/UptimeGuard/internal/models"
	"github.com/MimoJanra/UptimeGuard/internal/monitor"
	"github.com/MimoJanra/UptimeGuard/internal/storage"
)

type TargetStore interface {
	FindAll(ctx context.Context) ([]models.Target, error)
	Insert(ctx context.Context, t models.Target) (models.Target, error)
	DeleteByID(ctx context.Context, id string) error
}

type CycleRunner interface {
	RunCycle(ctx context.Context) (models.CycleSummary, error)
}

type MetricsWriter interface {
	WriteText(w io.Writer) error
	ContentType() string
}

type Server struct {
	Targets TargetStore
	Cycles  CycleRunner
	Metrics MetricsWriter

	// APIKey guards the admin routes when non-empty.
	APIKey string
	// CronSecret must be presented by the external trigger. An empty secret
	// disables the trigger route.
	CronSecret string
}

type messageResponse struct {
	Message string `json:"message" example:"Site deleted"`
}

type cycleResponse struct {
	Message string              `json:"message" example:"Monitoring Completed Successfully"`
	Summary models.CycleSummary `json:"summary"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("api: encode response", "err", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, messageResponse{Message: msg})
}

var domainRegex = regexp.MustCompile(`^(?:[a-z0-9](?:[a-z0-9-]{0,61}[a-z0-9])?\.)+[a-z]{2,}$`)

// validateURL normalises a monitored URL. A missing scheme defaults to https.
func validateURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", errors.New("URL is required")
	}

	lower := strings.ToLower(raw)
	if !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") {
		if strings.Contains(raw, "://") {
			return "", errors.New("only http and https URLs can be monitored")
		}
		raw = "https://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", errors.New("invalid url")
	}
	u.Scheme = strings.ToLower(u.Scheme)

	host := strings.ToLower(u.Hostname())
	if host == "" || (!domainRegex.MatchString(host) && net.ParseIP(host) == nil) {
		return "", errors.New("invalid host name")
	}
	switch port := u.Port(); {
	case port != "":
		u.Host = net.JoinHostPort(host, port)
	case strings.Contains(host, ":"):
		u.Host = "[" + host + "]"
	default:
		u.Host = host
	}
	u.Fragment = ""

	return u.String(), nil
}

// ListTargets returns targets with the most recently checked first. A target
// whose state did not change is only re-stamped once per touch interval, so
// last_checked may lag the latest cycle by up to that interval.
func (s *Server) ListTargets(w http.ResponseWriter, r *http.Request) {
	targets, err := s.Targets.FindAll(r.Context())
	if err != nil {
		slog.Error("api: list targets", "err", err)
		writeError(w, http.StatusInternalServerError, "failed to get targets")
		return
	}
	if targets == nil {
		targets = []models.Target{}
	}
	writeJSON(w, http.StatusOK, targets)
}

func (s *Server) AddTarget(w http.ResponseWriter, r *http.Request) {
	var body struct {
		URL string `json:"url"`
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	normalized, err := validateURL(body.URL)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	target, err := s.Targets.Insert(r.Context(), models.Target{URL: normalized, Status: models.StatusPending})
	if errors.Is(err, storage.ErrDuplicate) {
		writeError(w, http.StatusConflict, "Site already exists")
		return
	}
	if err != nil {
		slog.Error("api: add target", "url", normalized, "err", err)
		writeError(w, http.StatusInternalServerError, "failed to add target")
		return
	}
	slog.Info("api: target added", "id", target.ID, "url", target.URL)
	writeJSON(w, http.StatusCreated, target)
}

func (s *Server) DeleteTarget(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := uuid.Parse(id); err != nil {
		writeError(w, http.StatusBadRequest, "invalid target id")
		return
	}

	err := s.Targets.DeleteByID(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		writeError(w, http.StatusNotFound, "target not found")
		return
	}
	if err != nil {
		slog.Error("api: delete target", "id", id, "err", err)
		writeError(w, http.StatusInternalServerError, "failed to delete target")
		return
	}
	slog.Info("api: target deleted", "id", id)
	writeJSON(w, http.StatusOK, messageResponse{Message: "Site deleted"})
}

// CronTask runs one cycle synchronously for an external pinger. The cycle is
// detached from the request so a pinger that hangs up does not abort it.
func (s *Server) CronTask(w http.ResponseWriter, r *http.Request) {
	secret := r.Header.Get(cronHeader)
	if s.CronSecret == "" || subtle.ConstantTimeCompare([]byte(secret), []byte(s.CronSecret)) != 1 {
		slog.Warn("api: unauthorized cron attempt", "remote", r.RemoteAddr)
		writeError(w, http.StatusForbidden, "Unauthorized")
		return
	}

	summary, err := s.Cycles.RunCycle(context.WithoutCancel(r.Context()))
	switch {
	case errors.Is(err, monitor.ErrCycleInProgress):
		writeError(w, http.StatusConflict, "A monitoring cycle is already running")
	case err != nil:
		slog.Error("api: cron cycle failed", "err", err)
		writeError(w, http.StatusInternalServerError, "Server Error")
	default:
		writeJSON(w, http.StatusOK, cycleResponse{Message: "Monitoring Completed Successfully", Summary: summary})
	}
}

func (s *Server) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) ServeMetrics(w http.ResponseWriter, _ *http.Request) {
	if s.Metrics == nil {
		http.NotFound(w, nil)
		return
	}
	w.Header().Set("Content-Type", s.Metrics.ContentType())
	if err := s.Metrics.WriteText(w); err != nil {
		slog.Error("api: write metrics", "err", err)
	}
}
