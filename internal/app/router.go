package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/atelier-shop/atelier/internal/analytics"
	"github.com/atelier-shop/atelier/internal/finance"
	"github.com/atelier-shop/atelier/internal/jobs"
	"github.com/atelier-shop/atelier/internal/masterdata"
	"github.com/atelier-shop/atelier/internal/observability"
	"github.com/atelier-shop/atelier/internal/platform/httpx"
	"github.com/atelier-shop/atelier/internal/purchases"
	"github.com/atelier-shop/atelier/internal/sales"
)

// RouterParams carries everything NewRouter needs to assemble the HTTP surface.
type RouterParams struct {
	Logger     *slog.Logger
	Config     *Config
	Masterdata *masterdata.Handler
	Purchases  *purchases.Handler
	Sales      *sales.Handler
	Finance    *finance.Handler
	Analytics  *analytics.Handler
	Jobs       *jobs.Handler
	Pool       *pgxpool.Pool
	Metrics    *observability.Metrics
}

// NewRouter wires the middleware stack and mounts every module router.
func NewRouter(p RouterParams) chi.Router {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{Logger: p.Logger, Config: p.Config, Metrics: p.Metrics}) {
		r.Use(mw)
	}
	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		status := "ok"
		if p.Pool != nil {
			if err := p.Pool.Ping(req.Context()); err != nil {
				p.Logger.Error("healthz database ping failed", slog.Any("error", err))
				httpx.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
				return
			}
		}
		httpx.JSON(w, http.StatusOK, map[string]string{"status": status})
	})

	if p.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", p.Metrics.Handler())
	}

	r.Route("/artists", p.Masterdata.MountArtistRoutes)
	r.Route("/products", p.Masterdata.MountProductRoutes)
	r.Route("/purchases", p.Purchases.MountRoutes)
	r.Route("/sales", p.Sales.MountRoutes)
	r.Route("/finance", p.Finance.MountRoutes)
	r.Route("/dashboard", p.Analytics.MountRoutes)
	if p.Jobs != nil {
		r.Route("/jobs", p.Jobs.MountRoutes)
	}

	return r
}
