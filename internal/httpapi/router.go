// v1
// internal/httpapi/router.go
package httpapi

import (
	"io"
	"net/http"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
)

// NewRouter registers the fixed routes before the /{direction} catch-all
// so that /distances, /ping and friends are never taken as drive commands.
func NewRouter(a *API) *mux.Router {
	r := mux.NewRouter()
	r.Use(a.instrument)

	r.HandleFunc("/distances", a.getDistances).Methods(http.MethodGet)
	r.HandleFunc("/ping", a.ping).Methods(http.MethodGet)
	r.HandleFunc("/autonome", a.enableAuto).Methods(http.MethodGet)
	r.HandleFunc("/stopauto", a.disableAuto).Methods(http.MethodGet)
	r.HandleFunc("/etat", a.status).Methods(http.MethodGet)
	r.HandleFunc("/health", healthLiveHandler).Methods(http.MethodGet)
	r.HandleFunc("/health/live", healthLiveHandler).Methods(http.MethodGet)
	r.HandleFunc("/health/ready", a.health.readyHandler).Methods(http.MethodGet)
	r.Handle("/metrics", a.metrics.Handler()).Methods(http.MethodGet)
	r.HandleFunc("/{direction}", a.driveCommand).Methods(http.MethodGet)

	r.NotFoundHandler = http.HandlerFunc(a.notFound)
	r.MethodNotAllowedHandler = http.HandlerFunc(a.methodNotAllowed)
	return r
}

// Wrap adds access logging, CORS for the app and panic recovery.
func Wrap(h http.Handler, accessLog io.Writer) http.Handler {
	cors := handlers.CORS(
		handlers.AllowedOrigins([]string{"*"}),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodOptions}),
	)
	return handlers.LoggingHandler(accessLog, handlers.RecoveryHandler()(cors(h)))
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rw *statusRecorder) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

// instrument counts requests per route template.
func (a *API) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rw, r)
		route := r.URL.Path
		if cur := mux.CurrentRoute(r); cur != nil {
			if tpl, err := cur.GetPathTemplate(); err == nil {
				route = tpl
			}
		}
		a.metrics.ObserveRequest(route, rw.status)
	})
}
