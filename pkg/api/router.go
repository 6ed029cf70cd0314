package api

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/urmzd/zwcore/pkg/api/handlers"
	"github.com/urmzd/zwcore/pkg/schema"
)

const shutdownTimeout = 5 * time.Second

// Router serves the REST API, the event streams and the docs.
type Router struct {
	engine *gin.Engine
}

// NewRouter wires every handler onto a fresh engine.
func NewRouter(network handlers.Network, subscriber handlers.EventSubscriber, validator *schema.Validator) *Router {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	SetupMiddleware(engine)

	health := handlers.NewHealthHandler(network).Health
	engine.GET("/health", health)
	engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	engine.GET("/docs", func(c *gin.Context) {
		c.Redirect(http.StatusMovedPermanently, "/swagger/index.html")
	})

	v1 := engine.Group("/api/v1")
	v1.GET("/health", health)
	eventRoutes(v1, handlers.NewEventsHandler(subscriber))
	driverRoutes(v1.Group("/drivers"), handlers.NewDriversHandler(network))
	homeRoutes(v1.Group("/homes/:home"), handlers.NewHomesHandler(network))
	valueRoutes(v1.Group("/values/:id"), handlers.NewValuesHandler(network, validator))

	return &Router{engine: engine}
}

func eventRoutes(g *gin.RouterGroup, h *handlers.EventsHandler) {
	g.GET("/events", h.Events)
	g.GET("/ws", h.Socket)
}

func driverRoutes(g *gin.RouterGroup, h *handlers.DriversHandler) {
	g.GET("", h.ListDrivers)
	g.POST("", h.AddDriver)
	g.DELETE("", h.RemoveDriver)
}

func homeRoutes(g *gin.RouterGroup, h *handlers.HomesHandler) {
	g.GET("", h.GetHome)
	g.GET("/statistics", h.Statistics)
	g.POST("/switch-all", h.SwitchAll)
	g.POST("/controller", h.BeginCommand)
	g.DELETE("/controller", h.CancelCommand)

	nodes := g.Group("/nodes")
	nodes.GET("", h.ListNodes)
	nodes.GET("/:node", h.GetNode)
	nodes.PATCH("/:node", h.UpdateNode)
	nodes.GET("/:node/values", h.ListValues)
	nodes.POST("/:node/on", h.TurnOn)
	nodes.POST("/:node/off", h.TurnOff)
	nodes.POST("/:node/refresh", h.RefreshNode)
}

func valueRoutes(g *gin.RouterGroup, h *handlers.ValuesHandler) {
	g.GET("", h.GetValue)
	g.PUT("", h.SetValue)
	g.GET("/schema", h.GetSchema)
	g.POST("/refresh", h.RefreshValue)
	g.PUT("/poll", h.EnablePoll)
	g.DELETE("/poll", h.DisablePoll)
}

// Handler exposes the engine as an http.Handler.
func (r *Router) Handler() http.Handler {
	return r.engine
}

// Serve listens on addr until ctx is done, then drains open requests.
// Request contexts derive from ctx so event streams end with it.
func (r *Router) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           r.engine,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Str("address", addr).Msg("Stopping API server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
