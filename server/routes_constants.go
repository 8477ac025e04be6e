package server

// Route path constants
// All application routes are defined here to ensure consistency and prevent typos
const (
	// OAuth install, relative to the configured base path
	RouteAuth         = "/auth"
	RouteAuthCallback = "/auth/callback"

	// API Routes
	RouteAPIConnect    = "/api/connect"
	RouteAPIDisconnect = "/api/disconnect"
	RouteAPIStatus     = "/api/status"
	RouteAPIResource   = "/api/{resource}"
	RouteAPIPreflight  = "/api/{path...}"

	// Webhooks
	RouteWebhookAppUninstalled = "/webhooks/app/uninstalled"

	RouteHealth = "/healthz"

	// Embedded UI, relative to the configured base path
	RouteUIAssets   = "/assets/{file...}"
	RouteUICatchAll = "/{path...}"
)
