package simulate

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/labstack/echo/v4"

	"github.com/rileyhilliard/fleetwatch/internal/fleet"
	"github.com/rileyhilliard/fleetwatch/internal/stream"
)

// DefaultHeartbeat is the interval of SSE keepalive comments.
const DefaultHeartbeat = 15 * time.Second

// Server exposes a Fleet over HTTP:
//
//	GET /events                                  SSE stream (init, then put/delete)
//	GET /instances                               current snapshot
//	GET /instances/:service/:id/cache-summary
//	GET /instances/:service/:id/request-stats
//	GET /instances/:service/:id/health           {healthy, error}; 200 when ready, 503 otherwise
type Server struct {
	fleet     *Fleet
	echo      *echo.Echo
	log       log.Logger
	heartbeat time.Duration

	done      chan struct{}
	closeOnce sync.Once
}

// NewServer creates a server for f. A zero heartbeat uses DefaultHeartbeat.
func NewServer(f *Fleet, logger log.Logger, heartbeat time.Duration) *Server {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	if heartbeat <= 0 {
		heartbeat = DefaultHeartbeat
	}

	s := &Server{
		fleet:     f,
		log:       log.WithPrefix(logger, "component", "server"),
		heartbeat: heartbeat,
		done:      make(chan struct{}),
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = s.handleError

	e.GET("/events", s.streamEvents)
	e.GET("/instances", s.listInstances)
	e.GET("/instances/:service/:id/cache-summary", s.cacheSummary)
	e.GET("/instances/:service/:id/request-stats", s.requestStats)
	e.GET("/instances/:service/:id/health", s.health)

	s.echo = e
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}

// Start listens on addr until Shutdown.
func (s *Server) Start(addr string) error {
	level.Info(s.log).Log("msg", "starting HTTP server", "addr", addr)
	if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown ends open event streams and stops the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	s.closeOnce.Do(func() { close(s.done) })
	return s.echo.Shutdown(ctx)
}

// ErrorBody is the JSON body of a failed request.
type ErrorBody struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (s *Server) handleError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	message := "an internal server error has occurred"
	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		if m, ok := he.Message.(string); ok {
			message = m
		}
	}

	if code >= http.StatusInternalServerError {
		level.Error(s.log).Log("msg", "HTTP request error", "path", c.Path(), "err", err)
	} else {
		level.Debug(s.log).Log("msg", "HTTP request rejected", "path", c.Path(), "code", code, "err", err)
	}

	var body ErrorBody
	body.Error.Code = code
	body.Error.Message = message
	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(code)
		return
	}
	_ = c.JSON(code, body)
}

// streamEvents serves the SSE feed: an init event with the current fleet,
// then every change, with periodic keepalive comments.
func (s *Server) streamEvents(c echo.Context) error {
	snapshot, events, cancel := s.fleet.Subscribe()
	defer cancel()

	res := c.Response()
	res.Header().Set(echo.HeaderContentType, "text/event-stream")
	res.Header().Set("Cache-Control", "no-cache")
	res.Header().Set("Connection", "keep-alive")
	res.WriteHeader(http.StatusOK)

	if err := writeEvent(res, fleet.InitEvent(snapshot...)); err != nil {
		return nil
	}
	res.Flush()
	level.Info(s.log).Log("msg", "stream client connected", "remote", c.RealIP(), "instances", len(snapshot))
	defer level.Info(s.log).Log("msg", "stream client disconnected", "remote", c.RealIP())

	keepalive := time.NewTicker(s.heartbeat)
	defer keepalive.Stop()

	ctx := c.Request().Context()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-s.done:
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if err := writeEvent(res, ev); err != nil {
				level.Warn(s.log).Log("msg", "dropping stream client", "err", err)
				return nil
			}
			res.Flush()
		case <-keepalive.C:
			if _, err := io.WriteString(res, ": keepalive\n\n"); err != nil {
				return nil
			}
			res.Flush()
		}
	}
}

func writeEvent(w io.Writer, ev fleet.Event) error {
	data, err := stream.Encode(ev)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, data)
	return err
}

func (s *Server) listInstances(c echo.Context) error {
	return c.JSON(http.StatusOK, s.fleet.Snapshot())
}

func identityParam(c echo.Context) fleet.Identity {
	return fleet.Identity{Service: c.Param("service"), ID: c.Param("id")}
}

func notFound(id fleet.Identity) error {
	return echo.NewHTTPError(http.StatusNotFound, fmt.Sprintf("instance %s not found", id))
}

func (s *Server) cacheSummary(c echo.Context) error {
	id := identityParam(c)
	summary, ok := s.fleet.CacheSummary(id)
	if !ok {
		return notFound(id)
	}
	return c.JSON(http.StatusOK, summary)
}

func (s *Server) requestStats(c echo.Context) error {
	id := identityParam(c)
	stats, ok := s.fleet.RequestStats(id)
	if !ok {
		return notFound(id)
	}
	return c.JSON(http.StatusOK, stats)
}

func (s *Server) health(c echo.Context) error {
	id := identityParam(c)
	healthy, reason, ok := s.fleet.Health(id)
	if !ok {
		return notFound(id)
	}
	body := HealthBody{Healthy: healthy, Error: reason}
	if !healthy {
		return c.JSON(http.StatusServiceUnavailable, body)
	}
	return c.JSON(http.StatusOK, body)
}

// HealthBody is the health endpoint's reply.
type HealthBody struct {
	Healthy bool   `json:"healthy"`
	Error   string `json:"error,omitempty"`
}
