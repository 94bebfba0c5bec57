package http

import (
	"log/slog"
	"net/http"

	"github.com/geocoder89/habithub/internal/auth"
	"github.com/geocoder89/habithub/internal/config"
	"github.com/geocoder89/habithub/internal/http/handlers"
	"github.com/geocoder89/habithub/internal/http/middlewares"
	"github.com/geocoder89/habithub/internal/observability"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

// Deps is everything the router wires into handlers. Prom and Gatherer are
// optional; without them /metrics is not mounted.
type Deps struct {
	Log      *slog.Logger
	Cfg      config.Config
	Auth     handlers.Authenticator
	Habits   handlers.HabitStore
	Tokens   auth.TokenVerifier
	Prom     *observability.Prom
	Gatherer prometheus.Gatherer
	Checks   map[string]handlers.PingFunc

	// ShuttingDown flips /readyz to 503 during graceful shutdown.
	ShuttingDown func() bool
}

var availableRoutes = []string{
	"GET /health",
	"GET /healthz",
	"GET /readyz",
	"GET /metrics",
	"GET /docs",
	"POST /api/register",
	"POST /api/login",
	"GET /api/protected",
	"GET /api/profile",
	"POST /api/habits",
	"GET /api/habits",
	"GET /api/habits/:id",
	"PUT /api/habits/:id",
	"PATCH /api/habits/:id",
	"DELETE /api/habits/:id",
}

func NewRouter(d Deps) *gin.Engine {
	if !d.Cfg.IsDev() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// middleware
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware(serviceName(d.Cfg)))
	r.Use(middlewares.RequestID())
	r.Use(middlewares.DevMode(d.Cfg.IsDev()))
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddleware(d.Cfg.CORSOrigins))
	if d.Prom != nil {
		r.Use(d.Prom.GinHandleMiddleware())
	}
	r.Use(middlewares.RequestLogger(d.Log))

	// health
	health := handlers.NewHealthHandler(d.Cfg.Env, d.Checks)
	if d.ShuttingDown != nil {
		health.WithShutdown(d.ShuttingDown)
	}
	r.GET("/health", health.Health)
	r.GET("/healthz", health.Healthz)
	r.GET("/readyz", health.Readyz)

	if d.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{})))
	}

	r.GET("/docs", handlers.SwaggerUI)
	r.GET("/docs/openapi.yaml", handlers.OpenAPISpec)

	api := r.Group("/api")
	if d.Cfg.MaxBodyBytes > 0 {
		api.Use(middlewares.MaxBodyBytes(d.Cfg.MaxBodyBytes))
	}
	requireJSON := middlewares.RequireJSON()

	authHandler := handlers.NewAuthHandler(d.Auth)
	api.POST("/register", requireJSON, authHandler.Register)
	api.POST("/login", requireJSON, authHandler.Login)

	requireAuth := middlewares.NewAuthMiddleware(d.Tokens).RequireAuth()

	protected := api.Group("")
	protected.Use(requireAuth, requireJSON)
	protected.GET("/protected", authHandler.Protected)
	protected.GET("/profile", authHandler.Profile)

	habitsHandler := handlers.NewHabitsHandler(d.Habits)
	habits := api.Group("/habits")
	// the auth gate answers before content negotiation
	habits.Use(requireAuth, requireJSON)
	habits.POST("", habitsHandler.CreateHabit)
	habits.GET("", habitsHandler.ListHabits)
	habits.GET("/:id", habitsHandler.GetHabitByID)
	habits.PUT("/:id", habitsHandler.UpdateHabit)
	habits.PATCH("/:id", habitsHandler.PatchHabit)
	habits.DELETE("/:id", habitsHandler.DeleteHabit)

	r.NoRoute(func(ctx *gin.Context) {
		handlers.RespondError(ctx, http.StatusNotFound, "route_not_found",
			"The requested route "+ctx.Request.Method+" "+ctx.Request.URL.Path+" does not exist",
			gin.H{"availableRoutes": availableRoutes},
		)
	})

	return r
}

func serviceName(cfg config.Config) string {
	if cfg.ServiceName != "" {
		return cfg.ServiceName
	}
	return "habithub"
}
