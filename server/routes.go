package server

import (
	"net/http"
)

func (s *Server) initRoutes() {
	// OAuth install, mounted with the UI so one proxied prefix serves both
	s.RegisterRouteHandler("GET "+s.basePath+RouteAuth, ChainMiddleware(s.AuthHandler(), s.HTMLMiddleWare()...))
	s.RegisterRouteHandler("GET "+s.basePath+RouteAuthCallback, ChainMiddleware(s.AuthCallbackHandler(), s.HTMLMiddleWare()...))

	// API routes
	s.RegisterRouteHandler("POST "+RouteAPIConnect, ChainMiddleware(s.ConnectHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteAPIDisconnect, ChainMiddleware(s.DisconnectHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteAPIStatus, ChainMiddleware(s.StatusHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteAPIResource, ChainMiddleware(s.ResourceHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("OPTIONS "+RouteAPIPreflight, ChainMiddleware(noContent, s.APIMiddleware()...))

	// Webhooks
	s.RegisterRouteHandler("POST "+RouteWebhookAppUninstalled, ChainMiddleware(s.AppUninstalledHandler(), s.WebhookMiddleware()...))

	s.RegisterRouteHandler("GET "+RouteHealth, ChainMiddleware(s.HealthHandler(), s.RecoverMiddleware))

	// Embedded UI
	if s.basePath == "" {
		s.RegisterRouteHandler("GET /{$}", ChainMiddleware(s.UIIndexHandler(), s.HTMLMiddleWare()...))
	} else {
		s.RegisterRouteHandler("GET "+s.basePath, ChainMiddleware(s.UIIndexHandler(), s.HTMLMiddleWare()...))
	}
	s.RegisterRouteHandler("GET "+s.basePath+RouteUIAssets, ChainMiddleware(s.UIAssetsHandler(), s.AssetMiddleware()...))
	s.RegisterRouteHandler("GET "+s.basePath+RouteUICatchAll, ChainMiddleware(s.UICatchAllHandler(), s.HTMLMiddleWare()...))
}

func noContent(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}
