package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/hrygo/cogniflow/internal/profile"
	"github.com/hrygo/cogniflow/plugin/ai"
	"github.com/hrygo/cogniflow/plugin/ai/intake"
	"github.com/hrygo/cogniflow/plugin/ai/search"
	"github.com/hrygo/cogniflow/server/internal/observability"
	"github.com/hrygo/cogniflow/server/middleware"
	apiv1 "github.com/hrygo/cogniflow/server/router/api/v1"
	"github.com/hrygo/cogniflow/server/service/assist"
	"github.com/hrygo/cogniflow/server/service/item"
	"github.com/hrygo/cogniflow/server/service/related"
	"github.com/hrygo/cogniflow/server/service/schedule"
	"github.com/hrygo/cogniflow/store"
)

const cacheJanitorInterval = 10 * time.Minute

// Server wires the services behind the HTTP API and owns the background
// workers.
type Server struct {
	Profile *profile.Profile
	Store   *store.Store

	echoServer      *echo.Echo
	assistScheduler *assist.Scheduler
	relatedEngine   *related.Engine

	runnerCancelFuncs []context.CancelFunc
}

// NewServer builds the service graph. AI and search features degrade to
// their deterministic fallbacks when not configured.
func NewServer(ctx context.Context, profile *profile.Profile, store *store.Store) (*Server, error) {
	s := &Server{
		Profile: profile,
		Store:   store,
	}

	llm, searcher, err := newAIClients(profile)
	if err != nil {
		return nil, err
	}

	loc := profile.Location()
	classifier := intake.NewClassifier(llm, search.NewPageFetcher(), loc)
	conflicts := schedule.NewConflictResolver(store, loc)
	assistService := assist.NewService(store, assist.NewAssistant(llm, searcher))

	schedulerConfig := assist.DefaultSchedulerConfig()
	if profile.AssistInterval > 0 {
		schedulerConfig.Interval = profile.AssistInterval
	}
	if profile.AssistBatchSize > 0 {
		schedulerConfig.BatchSize = profile.AssistBatchSize
	}
	if profile.AssistTaskDelay >= 0 {
		schedulerConfig.TaskDelay = profile.AssistTaskDelay
	}
	s.assistScheduler = assist.NewScheduler(assistService, schedulerConfig)
	s.relatedEngine = related.NewEngine(store, llm)

	metrics := observability.NewMetrics(1000)
	echoServer := echo.New()
	echoServer.Debug = profile.IsDev()
	echoServer.HideBanner = true
	echoServer.HidePort = true
	echoServer.HTTPErrorHandler = apiv1.HTTPErrorHandler
	echoServer.Use(echomiddleware.Recover())
	echoServer.Use(middleware.RequestContext(slog.Default(), metrics))
	echoServer.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderAuthorization, echo.HeaderContentType, observability.HeaderRequestID},
	}))
	s.echoServer = echoServer

	apiV1Service := &apiv1.APIV1Service{
		Secret:          profile.JWTSecret,
		Profile:         profile,
		Store:           store,
		ItemService:     item.NewService(store, classifier, conflicts, assistService),
		AssistService:   assistService,
		AssistScheduler: s.assistScheduler,
		RelatedEngine:   s.relatedEngine,
		Metrics:         metrics,
		Limiter:         middleware.NewRateLimiter(0, 0),
	}
	apiV1Service.RegisterRoutes(echoServer)

	return s, nil
}

// newAIClients returns nil interfaces for disabled features so callers can
// compare against nil.
func newAIClients(profile *profile.Profile) (ai.LLMService, search.Searcher, error) {
	cfg := ai.NewConfigFromProfile(profile)
	if err := cfg.Validate(); err != nil {
		return nil, nil, errors.Wrap(err, "invalid AI configuration")
	}

	var llm ai.LLMService
	if cfg.Enabled {
		service, err := ai.NewLLMService(&cfg.LLM)
		if err != nil {
			return nil, nil, errors.Wrap(err, "failed to create LLM service")
		}
		llm = service
	} else {
		slog.Info("AI disabled, classification and summaries use fallbacks")
	}

	var searcher search.Searcher
	if cfg.Search.Enabled {
		searcher = search.NewClient(cfg.Search)
	}
	return llm, searcher, nil
}

// Start listens on the configured address and starts the background
// workers. It returns once the listener is bound.
func (s *Server) Start(ctx context.Context) error {
	address := fmt.Sprintf("%s:%d", s.Profile.Addr, s.Profile.Port)
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return errors.Wrap(err, "failed to listen")
	}
	s.echoServer.Listener = listener

	go func() {
		if err := s.echoServer.Start(address); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("failed to start echo server", "error", err)
		}
	}()

	s.StartBackgroundRunners(ctx)
	slog.Info("server started", "address", address, "mode", s.Profile.Mode, "version", s.Profile.Version)
	return nil
}

// StartBackgroundRunners starts the assist scheduler and the cache janitor.
func (s *Server) StartBackgroundRunners(ctx context.Context) {
	runnerCtx, cancel := context.WithCancel(ctx)
	s.runnerCancelFuncs = append(s.runnerCancelFuncs, cancel)

	if err := s.assistScheduler.Start(runnerCtx); err != nil {
		slog.Error("failed to start assist scheduler", "error", err)
	}
	go s.relatedEngine.Janitor(runnerCtx, cacheJanitorInterval)
}

// Shutdown stops the HTTP server, waits for the running assist batch and
// closes the store.
func (s *Server) Shutdown(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := s.echoServer.Shutdown(ctx); err != nil {
		slog.Error("failed to shutdown server", "error", err)
	}

	for _, cancelFunc := range s.runnerCancelFuncs {
		cancelFunc()
	}
	s.assistScheduler.Stop()

	if err := s.Store.Close(); err != nil {
		slog.Error("failed to close database", "error", err)
	}
	slog.Info("server stopped properly")
}

// Handler exposes the HTTP handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.echoServer
}
