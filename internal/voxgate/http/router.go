package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aussiebroadwan/voxgate/internal/voxgate/service"
	"github.com/aussiebroadwan/voxgate/internal/voxgate/store"
	"github.com/aussiebroadwan/voxgate/pkg/httpx"
	"github.com/aussiebroadwan/voxgate/pkg/slogx"

	_ "github.com/aussiebroadwan/voxgate/api/voxgate" // Swagger docs
	httpSwagger "github.com/swaggo/http-swagger"
)

// ModelStatus reports whether the embedding model is loaded.
type ModelStatus interface {
	Dimension() int
}

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	buildVersion string
	startTime    time.Time
	logger       *slog.Logger
	registry     *prometheus.Registry
	metrics      *httpMetrics

	store               store.Store
	Model               ModelStatus
	EnrollmentService   *service.EnrollmentService
	VerificationService *service.VerificationService

	// MaxAudioBytes caps the decoded audio of one request. The JSON body
	// limit is derived from it.
	MaxAudioBytes int64
}

func NewRouter(
	buildVersion string,
	st store.Store,
	registry *prometheus.Registry,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:           http.NewServeMux(),
		buildVersion:  buildVersion,
		startTime:     time.Now(),
		store:         st,
		registry:      registry,
		logger:        logger,
		MaxAudioBytes: 16 << 20,
	}
	var reg prometheus.Registerer
	if registry != nil {
		reg = registry
	}
	r.metrics = newHTTPMetrics(reg)

	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerAccount()
	r.registerSystem()

	r.Mux.Handle("/swagger/", httpSwagger.Handler())
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title			voxgate Voice Authentication API
//	@version		0.1.0
//	@description	Enrolls accounts with a password and a voice sample, then verifies later attempts against both.
//	@description
//	@description	Audio is sent as standard base64 of a WAV (integer PCM) or WebM/Opus recording.
//
//	@contact.name	AussieBroadWAN Team
//	@contact.url	https://github.com/aussiebroadwan/voxgate
//
//	@license.name	MIT
//	@license.url	https://opensource.org/licenses/MIT
//
//	@host			localhost:8080
//	@BasePath		/
//
//	@schemes		http https
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

// bodyLimit is the JSON body cap: base64 of MaxAudioBytes plus room for the
// other fields.
func (r *Router) bodyLimit() int64 {
	return (r.MaxAudioBytes+2)/3*4 + 4096
}

func (r *Router) registerAccount() {
	create := &AccountCreateHandler{
		EnrollmentService: r.EnrollmentService,
		BodyLimit:         r.bodyLimit(),
		MaxAudioBytes:     r.MaxAudioBytes,
	}
	login := &AccountLoginHandler{
		VerificationService: r.VerificationService,
		BodyLimit:           r.bodyLimit(),
		MaxAudioBytes:       r.MaxAudioBytes,
	}

	// Strict limit keyed by IP + username: guessing a password or replaying
	// voices against one account is throttled without locking out others.
	r.Mux.Handle("POST /account/create",
		httpx.Chain(create,
			r.metrics.instrument("/account/create"),
			httpx.RateLimitByIPAndJSONField(httpx.StrictLimit, "username", r.bodyLimit()),
		),
	)
	r.Mux.Handle("POST /account/login",
		httpx.Chain(login,
			r.metrics.instrument("/account/login"),
			httpx.RateLimitByIPAndJSONField(httpx.StrictLimit, "username", r.bodyLimit()),
		),
	)
}

func (r *Router) registerSystem() {
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.store, r.Model),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)

	var metrics http.Handler = promhttp.Handler()
	if r.registry != nil {
		metrics = promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
	}
	r.Mux.Handle("GET /metrics",
		httpx.Chain(metrics,
			httpx.RateLimitByIP(httpx.PublicLimit),
		),
	)
}
