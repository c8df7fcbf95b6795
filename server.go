package bloodliner

import (
	"context"
	"html/template"
	"io"
	"net/url"

	"github.com/aws/aws-lambda-go/events"
	echoadapter "github.com/awslabs/aws-lambda-go-api-proxy/echo"
	"github.com/bzimmer/activity/strava"
	"github.com/gorilla/sessions"
	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

type ServerConfig struct {
	BaseURL      string
	SessionKey   string
	ClientID     string
	ClientSecret string
	State        string
	Gatherer     prometheus.Gatherer
}

type renderer struct {
	t *template.Template
}

func (r *renderer) Render(w io.Writer, name string, data interface{}, _ echo.Context) error {
	return r.t.ExecuteTemplate(w, name, data)
}

// NewServer routes the engine's operations over http.
func NewServer(engine *Engine, cfg ServerConfig) (*echo.Echo, error) {
	t, err := template.ParseFS(Content, "templates/index.html")
	if err != nil {
		return nil, err
	}
	u, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, err
	}

	h := &handlers{
		engine:   engine,
		movement: NewMovement(engine.Config()),
		baseURL:  cfg.BaseURL,
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Scopes:       []string{"read_all,profile:read_all,activity:read_all"},
			RedirectURL:  cfg.BaseURL + "/auth/callback",
			Endpoint:     strava.Endpoint(),
		},
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Renderer = &renderer{t: t}
	e.Use(middleware.Recover())
	e.Use(requestLogger())
	e.Use(session.Middleware(sessions.NewCookieStore([]byte(cfg.SessionKey))))

	base := e.Group(u.Path)
	base.GET("/", h.index)
	base.GET("/feed.atom", h.feed)
	if cfg.Gatherer != nil {
		base.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{})))
	}

	base.GET("/auth/login", LoginHandler(h.oauth, cfg.State))
	base.GET("/auth/logout", LogoutHandler(cfg.BaseURL))
	base.GET("/auth/callback", AuthCallbackHandler(h.oauth, cfg.State, cfg.BaseURL))

	api := base.Group("/api")
	api.GET("/season", h.season)
	api.GET("/review", h.review)
	api.GET("/active", h.getActive)
	api.PUT("/active", h.setActive)
	api.POST("/events", h.quickEvent)
	api.POST("/habits", h.addHabit)
	api.DELETE("/habits/:name", h.removeHabit)
	api.POST("/shots", h.globalShot)
	api.POST("/sync/strava", h.sync)

	day := api.Group("/days/:day")
	day.GET("", h.day)
	day.POST("/events", h.logEvent)
	day.PUT("/wake", h.setWake)
	day.DELETE("/wake", h.clearWake)
	day.PUT("/habits/:name", h.setHabit)
	day.PUT("/taps/:slot", h.recordTap)
	day.PUT("/goal", h.setGoal)
	day.PUT("/rating", h.setRating)
	day.POST("/finalize", h.finalize)

	return e, nil
}

func requestLogger() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:     true,
		LogStatus:  true,
		LogMethod:  true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			log.Info().
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("elapsed", v.Latency).
				Msg("request")
			return nil
		},
	})
}

type LambdaFunc func(context.Context, events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error)

// LambdaHandler serves the echo routes as an api gateway function
func LambdaHandler(a *echoadapter.EchoLambda) LambdaFunc {
	return func(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
		log.Info().Str("path", req.Path).Str("method", req.HTTPMethod).Msg("function")
		return a.ProxyWithContext(ctx, req)
	}
}
