package api

import (
	"context"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/m1k1o/go-hlsbundle/internal/metrics"
	"github.com/m1k1o/go-hlsbundle/pkg/hlsbundle"
)

type Pipeline interface {
	Run(ctx context.Context, mediaID string) (*hlsbundle.PipelineResult, error)
	OutputDir(mediaID string) string
}

type ApiManagerCtx struct {
	logger   zerolog.Logger
	pipeline Pipeline
	metrics  *metrics.Metrics
	hlsDir   string

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	running map[string]struct{}
}

// New creates the api, metrics may be nil to disable the endpoint.
func New(pipeline Pipeline, metrics *metrics.Metrics, hlsDir string) *ApiManagerCtx {
	ctx, cancel := context.WithCancel(context.Background())

	return &ApiManagerCtx{
		logger:   log.With().Str("module", "api").Logger(),
		pipeline: pipeline,
		metrics:  metrics,
		hlsDir:   hlsDir,

		ctx:    ctx,
		cancel: cancel,

		running: map[string]struct{}{},
	}
}

func (a *ApiManagerCtx) Mount(r chi.Router) {
	if a.metrics != nil {
		r.Method(http.MethodGet, "/metrics", a.metrics.Handler())
		r = r.With(metrics.RequestMiddleware(a.metrics))
	}

	r.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
		//nolint
		_, _ = w.Write([]byte("pong"))
	})

	r.Route("/api/media/{mediaID}", func(r chi.Router) {
		r.Post("/hls", a.createBundle)
		r.Get("/tracks", a.tracks)
	})

	r.Get("/hls/*", a.serveBundle)
}

// Shutdown cancels in-flight pipeline runs and waits for them to return.
func (a *ApiManagerCtx) Shutdown() {
	a.cancel()
	a.wg.Wait()
}
