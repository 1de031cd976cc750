package offline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
)

// RemoteConfig is the payload of ConfigPath.
type RemoteConfig struct {
	URL string `json:"url"`
	Key string `json:"key"`
}

// Server serves the runtime configuration and proxies the web client's
// assets through a Transport, so the client keeps loading when the asset
// origin is unreachable.
type Server struct {
	app       *fiber.App
	remote    RemoteConfig
	client    *http.Client
	transport *Transport
	log       zerolog.Logger
}

// NewServer builds the fiber app. transport.Origin is the upstream asset
// origin.
func NewServer(remote RemoteConfig, transport *Transport, logger zerolog.Logger) (*Server, error) {
	if transport == nil || strings.TrimSpace(transport.Origin) == "" {
		return nil, errors.New("offline: upstream origin is required")
	}
	s := &Server{
		remote:    remote,
		client:    &http.Client{Transport: transport},
		transport: transport,
		log:       logger.With().Str("component", "offline-server").Logger(),
	}

	s.app = fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			var e *fiber.Error
			if errors.As(err, &e) {
				return c.Status(e.Code).JSON(fiber.Map{"error": e.Message})
			}
			s.log.Error().Err(err).Str("path", c.Path()).Msg("request failed")
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		},
	})
	s.app.Get(ConfigPath, s.handleConfig)
	s.app.Get("/*", s.handleAsset)
	return s, nil
}

// App exposes the fiber app for tests and embedding.
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen serves on addr until ctx is cancelled.
func (s *Server) Listen(ctx context.Context, addr string) error {
	errCh := make(chan error, 1)
	go func() { errCh <- s.app.Listen(addr) }()

	select {
	case <-ctx.Done():
		if err := s.app.Shutdown(); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	case err := <-errCh:
		return err
	}
}

func (s *Server) handleConfig(c *fiber.Ctx) error {
	if s.remote.URL == "" || s.remote.Key == "" {
		return fiber.NewError(fiber.StatusServiceUnavailable, "configuración remota no disponible")
	}
	c.Set(fiber.HeaderCacheControl, "no-store")
	return c.JSON(s.remote)
}

func (s *Server) handleAsset(c *fiber.Ctx) error {
	target := s.transport.Origin + c.OriginalURL()
	req, err := http.NewRequestWithContext(c.UserContext(), http.MethodGet, target, nil)
	if err != nil {
		return fmt.Errorf("build upstream request: %w", err)
	}
	for _, h := range []string{fiber.HeaderAccept, "Sec-Fetch-Mode"} {
		if v := c.Get(h); v != "" {
			req.Header.Set(h, v)
		}
	}

	resp, err := s.client.Do(req)
	if err != nil {
		s.log.Warn().Err(err).Str("url", target).Msg("upstream unavailable")
		return fiber.NewError(fiber.StatusBadGateway, "sin conexión y sin copia en caché")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read upstream body: %w", err)
	}
	for _, h := range []string{fiber.HeaderContentType, CacheHeader} {
		if v := resp.Header.Get(h); v != "" {
			c.Set(h, v)
		}
	}
	return c.Status(resp.StatusCode).Send(body)
}
