// Package relay serves the relay function: a server-side endpoint that holds
// the gateway credentials and forwards named actions to the gateway.
package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/matheus3301/wppbridge/internal/gateway"
	"github.com/matheus3301/wppbridge/internal/instance"
	"go.uber.org/zap"
)

// Integration is the engine requested when the relay creates an instance.
const Integration = "WHATSAPP-BAILEYS"

// Config configures the relay server.
type Config struct {
	Function  string // empty accepts any function name
	JWTSecret string // empty disables auth
}

// Server forwards relay requests to the gateway.
type Server struct {
	echo     *echo.Echo
	upstream gateway.Transport
	function string
	logger   *zap.Logger
}

// badRequest marks errors caused by the relay request itself.
type badRequest struct{ msg string }

func (e *badRequest) Error() string { return e.msg }

func badRequestf(format string, args ...any) error {
	return &badRequest{msg: fmt.Sprintf(format, args...)}
}

// New creates the relay server over upstream.
func New(cfg Config, upstream gateway.Transport, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod: true,
		LogURI:    true,
		LogStatus: true,
		LogError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			logger.Info("request",
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Error(v.Error),
			)
			return nil
		},
	}))

	s := &Server{echo: e, upstream: upstream, function: strings.Trim(cfg.Function, "/"), logger: logger}

	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	g := e.Group("/functions/v1")
	if cfg.JWTSecret != "" {
		g.Use(JWTMiddleware(cfg.JWTSecret))
	} else {
		logger.Warn("relay auth disabled: no jwt secret configured")
	}
	g.POST("/:function", s.handle)
	return s
}

// Handler exposes the HTTP handler, mainly for tests.
func (s *Server) Handler() http.Handler { return s.echo }

// Start listens on addr. Blocks until shut down.
func (s *Server) Start(addr string) error {
	s.logger.Info("relay listening", zap.String("addr", addr))
	err := s.echo.Start(addr)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

func (s *Server) handle(c echo.Context) error {
	if s.function != "" && c.Param("function") != s.function {
		return echo.NewHTTPError(http.StatusNotFound, "unknown function")
	}
	var req gateway.RelayRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid relay request")
	}
	if err := instance.ValidateName(req.Instance); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := authorizeInstance(c, req.Instance); err != nil {
		return err
	}

	body, err := s.Dispatch(c.Request().Context(), req)
	if err != nil {
		var se *gateway.StatusError
		var br *badRequest
		switch {
		case errors.As(err, &se):
			return c.Blob(se.Status, echo.MIMEApplicationJSON, []byte(se.Body))
		case errors.As(err, &br):
			return echo.NewHTTPError(http.StatusBadRequest, br.msg)
		}
		s.logger.Warn("upstream request failed", zap.String("action", req.Action), zap.Error(err))
		return c.JSON(http.StatusBadGateway, map[string]string{"error": err.Error()})
	}
	if len(body) == 0 {
		return c.NoContent(http.StatusOK)
	}
	return c.Blob(http.StatusOK, echo.MIMEApplicationJSON, body)
}

// Dispatch performs one relay action against the gateway.
func (s *Server) Dispatch(ctx context.Context, req gateway.RelayRequest) ([]byte, error) {
	inst := req.Instance
	switch req.Action {
	case gateway.ActionFetchChats:
		return s.named(ctx, req, "/chat/findChats/"+inst, map[string]any{})
	case gateway.ActionFetchContacts:
		return s.named(ctx, req, "/chat/findContacts/"+inst, map[string]any{"where": map[string]any{}})
	case gateway.ActionConnectionState:
		return s.upstream.Send(ctx, http.MethodGet, "/instance/connectionState/"+inst, nil)
	case gateway.ActionSendText:
		if len(req.Payload) == 0 {
			return nil, badRequestf("send-text requires a payload")
		}
		return s.upstream.Send(ctx, http.MethodPost, "/message/sendText/"+inst, req.Payload)
	case gateway.ActionConnectInstance:
		return s.connect(ctx, req)
	case gateway.ActionProxy:
		return s.proxy(ctx, req)
	}
	return nil, badRequestf("unknown action %q", req.Action)
}

// named serves list actions. A GET keeps the legacy route working.
func (s *Server) named(ctx context.Context, req gateway.RelayRequest, path string, def any) ([]byte, error) {
	if strings.EqualFold(req.Method, http.MethodGet) {
		return s.upstream.Send(ctx, http.MethodGet, path, nil)
	}
	return s.upstream.Send(ctx, http.MethodPost, path, bodyOr(req.Payload, def))
}

// connect requests pairing and creates the instance when the gateway does
// not know it.
func (s *Server) connect(ctx context.Context, req gateway.RelayRequest) ([]byte, error) {
	create := map[string]any{"instanceName": req.Instance, "qrcode": true, "integration": Integration}
	if strings.HasPrefix(req.Path, "/instance/create") {
		return s.upstream.Send(ctx, http.MethodPost, "/instance/create", create)
	}
	body, err := s.upstream.Send(ctx, http.MethodGet, "/instance/connect/"+req.Instance, nil)
	if !gateway.IsNotFound(err) {
		return body, err
	}
	s.logger.Info("instance unknown upstream, creating", zap.String("instance", req.Instance))
	return s.upstream.Send(ctx, http.MethodPost, "/instance/create", create)
}

func (s *Server) proxy(ctx context.Context, req gateway.RelayRequest) ([]byte, error) {
	if !strings.HasPrefix(req.Path, "/") || strings.Contains(req.Path, "..") {
		return nil, badRequestf("proxy requires an absolute path")
	}
	method := strings.ToUpper(req.Method)
	if method == "" {
		method = http.MethodPost
	}
	var body any
	if len(req.Body) > 0 && method != http.MethodGet {
		body = req.Body
	}
	return s.upstream.Send(ctx, method, req.Path, body)
}

func bodyOr(raw json.RawMessage, def any) any {
	if len(raw) == 0 || string(raw) == "null" {
		return def
	}
	return raw
}
