package misc

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"

	"github.com/2beens/edgetrack/internal/telemetry/tracing"
	"github.com/2beens/edgetrack/pkg"
)

const healthCheckTimeout = 2 * time.Second

// Pinger checks one backing service.
type Pinger func(ctx context.Context) error

type HealthResponse struct {
	Status   string            `json:"status"`
	Services map[string]string `json:"services"`
}

type Handler struct {
	versionInfo string
	pingers     map[string]Pinger
}

func NewHandler(versionInfo string, pingers map[string]Pinger) *Handler {
	return &Handler{
		versionInfo: versionInfo,
		pingers:     pingers,
	}
}

func (handler *Handler) SetupRoutes(mainRouter *mux.Router) {
	mainRouter.HandleFunc("/", handler.handleRoot).Methods("GET", "POST", "OPTIONS").Name("root")
	mainRouter.HandleFunc("/version", handler.handleGetVersionInfo).Methods("GET").Name("version")
	mainRouter.HandleFunc("/health", handler.handleHealth).Methods("GET").Name("health")
}

func (handler *Handler) handleRoot(w http.ResponseWriter, _ *http.Request) {
	pkg.WriteTextResponseOK(w, "I'm OK, thanks ;)")
}

func (handler *Handler) handleGetVersionInfo(w http.ResponseWriter, _ *http.Request) {
	pkg.WriteTextResponseOK(w, handler.versionInfo)
}

func (handler *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "miscHandler.health")
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()

	names := make([]string, 0, len(handler.pingers))
	for name := range handler.pingers {
		names = append(names, name)
	}
	sort.Strings(names)

	resp := HealthResponse{
		Status:   "ok",
		Services: make(map[string]string, len(names)),
	}
	for _, name := range names {
		if err := handler.pingers[name](ctx); err != nil {
			log.Warnf("health check [%s]: %s", name, err)
			resp.Services[name] = "down"
			resp.Status = "degraded"
			continue
		}
		resp.Services[name] = "ok"
	}
	span.SetAttributes(attribute.String("health.status", resp.Status))

	status := http.StatusOK
	if resp.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	pkg.WriteJSON(w, resp, status)
}
