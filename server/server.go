package server

import (
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"
	"strings"

	"github.com/ifrederico/shopify-bulkexport/admin"
	"github.com/ifrederico/shopify-bulkexport/installstate"
	"github.com/ifrederico/shopify-bulkexport/internal/config"
	"github.com/ifrederico/shopify-bulkexport/oauth"
	"github.com/ifrederico/shopify-bulkexport/sessiontoken"
	"github.com/ifrederico/shopify-bulkexport/shops"
	"github.com/rs/zerolog/log"
)

// AdminAPI is the subset of the Admin REST API the proxy endpoints use.
type AdminAPI interface {
	Shop(ctx context.Context, shop, token string) (json.RawMessage, error)
	List(ctx context.Context, shop, token string, resource admin.Resource, limit int) (json.RawMessage, error)
}

type Server struct {
	env      string // Environment (e.g., "DEV", "PROD")
	mux      *http.ServeMux
	routes   []string
	config   config.Config
	basePath string
	distDir  string

	shops     shops.Repo
	installer *oauth.Installer
	verifier  *oauth.Verifier
	sessions  *sessiontoken.Verifier
	exchanger oauth.Exchanger
	adminAPI  AdminAPI

	statusPage *template.Template
}

type Option func(*Server)

// WithExchanger replaces the Shopify token exchanger.
func WithExchanger(exchanger oauth.Exchanger) Option {
	return func(s *Server) {
		s.exchanger = exchanger
	}
}

// WithAdminAPI replaces the Admin REST API client.
func WithAdminAPI(api AdminAPI) Option {
	return func(s *Server) {
		s.adminAPI = api
	}
}

func New(cfg config.Config, shopRepo shops.Repo, stateRepo installstate.Repo, opts ...Option) (*Server, error) {
	verifier, err := oauth.NewVerifier(cfg.GetAPISecret())
	if err != nil {
		return nil, fmt.Errorf("[Server New] failed to create callback verifier: %w", err)
	}

	statusPage, err := ParseTemplate("status.html")
	if err != nil {
		return nil, fmt.Errorf("[Server New] failed to parse status page: %w", err)
	}

	s := &Server{
		env:        cfg.GetEnv(),
		mux:        http.NewServeMux(),
		config:     cfg,
		basePath:   cfg.GetBasePath(),
		distDir:    cfg.GetDistDir(),
		shops:      shopRepo,
		verifier:   verifier,
		sessions:   sessiontoken.NewVerifier(cfg.GetAPIKey(), cfg.GetAPISecret()),
		statusPage: statusPage,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.exchanger == nil {
		s.exchanger = oauth.NewTokenExchanger(oauth.ExchangerConfig{
			ClientID:     cfg.GetAPIKey(),
			ClientSecret: cfg.GetAPISecret(),
			Timeout:      cfg.GetHTTPTimeout(),
		})
	}
	if s.adminAPI == nil {
		s.adminAPI = admin.NewClient(admin.Config{
			APIVersion: cfg.GetAPIVersion(),
			Timeout:    cfg.GetHTTPTimeout(),
		})
	}

	s.installer = oauth.NewInstaller(oauth.InstallerConfig{
		ClientID:    cfg.GetAPIKey(),
		Scopes:      cfg.GetScopes(),
		RedirectURL: cfg.GetHost() + cfg.GetBasePath() + RouteAuthCallback,
		StateTTL:    cfg.GetInstallStateTTL(),
	}, verifier, s.exchanger, stateRepo, shopRepo)

	s.initRoutes()
	s.logRoutes()

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

// Routes lists every registered pattern in registration order.
func (s *Server) Routes() []string {
	return append([]string(nil), s.routes...)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)

		if len(parts) > 1 {
			logRoute(parts[0], parts[1])
		} else {
			logRoute("", parts[0])
		}
	}
}

func logRoute(method, path string) {
	log.Info().Msgf("[%-19s] %s", colouredMethod(method), path)
}

func logError(method, path, message string) {
	log.Error().Msgf("[%-19s] %s %s", colouredMethod(method), path, Red+message+ResetColor)
}

func colouredMethod(method string) string {
	paddedMethod := fmt.Sprintf(" %-7s", method)
	if color, ok := methodColors[method]; ok {
		return color + paddedMethod + ResetColor
	}
	return Gray + paddedMethod + ResetColor
}

// landingURL is where a merchant lands after a completed install.
func (s *Server) landingURL(shop string) string {
	path := s.basePath
	if path == "" {
		path = "/"
	}
	return s.config.GetHost() + path + "?shop=" + shop
}
