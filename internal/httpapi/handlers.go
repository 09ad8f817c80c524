// v1
// internal/httpapi/handlers.go
package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"amlio/rover/internal/distance"
	"amlio/rover/internal/drive"
	"amlio/rover/internal/metrics"
)

// API serves the endpoints the mobile app talks to.
type API struct {
	log     *slog.Logger
	store   *distance.Store
	drive   *drive.Controller
	health  *HealthState
	metrics *metrics.Metrics
}

// NewAPI wires the handlers to the shared store, drive controller, health
// state and metrics.
func NewAPI(log *slog.Logger, store *distance.Store, ctrl *drive.Controller, health *HealthState, m *metrics.Metrics) *API {
	return &API{log: log, store: store, drive: ctrl, health: health, metrics: m}
}

type errorResponse struct {
	Error string `json:"error"`
}

// getDistances returns the latest pair as {"gauche": L, "droite": R}.
func (a *API) getDistances(w http.ResponseWriter, _ *http.Request) {
	a.writeJSON(w, http.StatusOK, a.store.Latest())
}

func (a *API) ping(w http.ResponseWriter, _ *http.Request) {
	a.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// driveCommand handles /{direction}?speed=N. Without a speed parameter the
// current speed is kept.
func (a *API) driveCommand(w http.ResponseWriter, r *http.Request) {
	raw := mux.Vars(r)["direction"]
	dir, err := drive.ParseDirection(raw)
	if err != nil {
		a.metrics.ObserveDrive("unknown", err)
		a.writeError(w, http.StatusNotFound, drive.ErrUnknownDirection)
		return
	}
	if dir == drive.Stopped {
		a.metrics.ObserveDrive(string(dir), nil)
		a.writeJSON(w, http.StatusOK, a.drive.Stop())
		return
	}

	speed := a.drive.State().Speed
	if s := strings.TrimSpace(r.URL.Query().Get("speed")); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			a.metrics.ObserveDrive(string(dir), err)
			a.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid speed %q", s))
			return
		}
		speed = n
	}

	st, err := a.drive.Move(dir, speed)
	a.metrics.ObserveDrive(string(dir), err)
	switch {
	case errors.Is(err, drive.ErrSpeedRange):
		a.writeError(w, http.StatusBadRequest, err)
	case errors.Is(err, drive.ErrAutoMode):
		a.writeError(w, http.StatusConflict, err)
	case err != nil:
		a.writeError(w, http.StatusInternalServerError, err)
	default:
		a.writeJSON(w, http.StatusOK, st)
	}
}

func (a *API) enableAuto(w http.ResponseWriter, _ *http.Request) {
	a.writeJSON(w, http.StatusOK, a.drive.EnableAuto())
}

func (a *API) disableAuto(w http.ResponseWriter, _ *http.Request) {
	a.writeJSON(w, http.StatusOK, a.drive.DisableAuto())
}

// status is the plain text line polled by the auto mode screen.
func (a *API) status(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(a.drive.Status())); err != nil {
		a.log.Error("write_response_failed", slog.Any("err", err))
	}
}

func (a *API) notFound(w http.ResponseWriter, r *http.Request) {
	a.metrics.ObserveRequest("unmatched", http.StatusNotFound)
	a.writeError(w, http.StatusNotFound, errors.New("not found"))
}

// methodNotAllowed runs outside the mux middleware chain, so it counts
// itself like notFound.
func (a *API) methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	a.metrics.ObserveRequest("unmatched", http.StatusMethodNotAllowed)
	a.writeError(w, http.StatusMethodNotAllowed, fmt.Errorf("method %s not allowed", r.Method))
}

func (a *API) writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		a.log.Error("encode_failed", slog.Any("err", err))
	}
}

func (a *API) writeError(w http.ResponseWriter, code int, err error) {
	a.writeJSON(w, code, errorResponse{Error: err.Error()})
}
