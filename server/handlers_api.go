package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/ifrederico/shopify-bulkexport/admin"
	apperrors "github.com/ifrederico/shopify-bulkexport/internal/errors"
	"github.com/ifrederico/shopify-bulkexport/sessiontoken"
	"github.com/ifrederico/shopify-bulkexport/shops"
	"github.com/rs/zerolog"
)

const maxRequestBody = 1 << 20

type connectRequest struct {
	ShopDomain string `json:"shopDomain"`
	APIKey     string `json:"apiKey"`
}

type statusResponse struct {
	Connected bool   `json:"connected"`
	Domain    string `json:"domain,omitempty"`
}

// ConnectHandler stores a manually supplied Admin API token after Shopify accepts it.
func (s *Server) ConnectHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := zerolog.Ctx(r.Context())

		var req connectRequest
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody)).Decode(&req); err != nil {
			writeJSONError(w, errCodeBadRequest, "Request body must be JSON", http.StatusBadRequest)
			return
		}
		req.ShopDomain = strings.TrimSpace(req.ShopDomain)
		req.APIKey = strings.TrimSpace(req.APIKey)
		if req.ShopDomain == "" || req.APIKey == "" {
			writeJSONError(w, errCodeBadRequest, "shopDomain and apiKey are required", http.StatusBadRequest)
			return
		}

		shop, err := shops.NormalizeDomain(req.ShopDomain)
		if err != nil {
			writeJSONError(w, errCodeBadRequest, "Invalid shop domain", http.StatusBadRequest)
			return
		}

		info, err := s.adminAPI.Shop(r.Context(), shop, req.APIKey)
		if err != nil {
			status, code, message := apiError(err, http.StatusInternalServerError)
			logger.Warn().Err(err).Str("shop", shop).Int("status", status).Msg("Connect rejected")
			writeJSONError(w, code, message, status)
			return
		}

		cred := &shops.Credential{
			Shop:        shop,
			AccessToken: req.APIKey,
			Source:      shops.SourceManual,
		}
		if err := s.shops.Upsert(r.Context(), cred); err != nil {
			logger.Error().Err(err).Str("shop", shop).Msg("Failed to store credential")
			writeJSONError(w, errCodeInternal, "Failed to store credential", http.StatusInternalServerError)
			return
		}

		logger.Info().Str("shop", shop).Msg("Store connected")
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"shop":    info,
		})
	}
}

// DisconnectHandler forgets the resolved shop's credential. It always answers 200.
func (s *Server) DisconnectHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := zerolog.Ctx(r.Context())

		cred, err := s.connectedCredential(r)
		switch {
		case err == nil:
			if err := s.shops.Delete(r.Context(), cred.Shop); err != nil && !errors.Is(err, shops.ErrNotFound) {
				logger.Error().Err(err).Str("shop", cred.Shop).Msg("Failed to delete credential")
			} else {
				logger.Info().Str("shop", cred.Shop).Msg("Store disconnected")
			}
		case errors.Is(err, apperrors.ErrNotConnected):
		default:
			logger.Warn().Err(err).Msg("Disconnect could not resolve a shop")
		}

		writeJSON(w, http.StatusOK, map[string]interface{}{"success": true})
	}
}

func (s *Server) StatusHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cred, err := s.connectedCredential(r)
		if err != nil {
			if !errors.Is(err, apperrors.ErrNotConnected) {
				zerolog.Ctx(r.Context()).Warn().Err(err).Msg("Status could not resolve a shop")
			}
			writeJSON(w, http.StatusOK, statusResponse{Connected: false})
			return
		}
		writeJSON(w, http.StatusOK, statusResponse{Connected: true, Domain: cred.Shop})
	}
}

// ResourceHandler proxies orders, products and customers reads to the Admin API.
func (s *Server) ResourceHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := zerolog.Ctx(r.Context())

		resource, ok := admin.ParseResource(r.PathValue("resource"))
		if !ok {
			writeJSONError(w, errCodeNotFound, "Unknown resource", http.StatusNotFound)
			return
		}

		limit := admin.DefaultLimit
		if raw := r.URL.Query().Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil {
				writeJSONError(w, errCodeBadRequest, "limit must be a number", http.StatusBadRequest)
				return
			}
			limit = admin.ClampLimit(n)
		}

		cred, err := s.connectedCredential(r)
		if err != nil {
			status, code, message := apiError(err, http.StatusBadRequest)
			writeJSONError(w, code, message, status)
			return
		}

		items, err := s.adminAPI.List(r.Context(), cred.Shop, cred.AccessToken, resource, limit)
		if err != nil {
			_, code, message := apiError(err, http.StatusBadRequest)
			logger.Warn().Err(err).Str("shop", cred.Shop).Str("resource", string(resource)).Msg("Admin API read failed")
			// every upstream failure is a 400 on the proxy endpoints
			writeJSONError(w, code, message, http.StatusBadRequest)
			return
		}

		writeJSON(w, http.StatusOK, map[string]json.RawMessage{string(resource): items})
	}
}

// connectedCredential picks the shop an /api request is about. A verified session token
// may name any connected shop. Without one only the most recently connected store is
// reachable, and a ?shop= naming any other store finds nothing.
func (s *Server) connectedCredential(r *http.Request) (*shops.Credential, error) {
	ctx := r.Context()

	if raw, ok := sessiontoken.FromRequest(r); ok {
		_, dest, err := s.sessions.Verify(raw)
		if err != nil {
			return nil, err
		}
		cred, err := s.shops.Get(ctx, dest)
		if errors.Is(err, shops.ErrNotFound) {
			return nil, apperrors.ErrNotConnected
		}
		return cred, err
	}

	requested := ""
	if param := r.URL.Query().Get("shop"); param != "" {
		normalized, err := shops.NormalizeDomain(param)
		if err != nil {
			return nil, apperrors.InvalidShop(err)
		}
		requested = normalized
	}

	cred, err := s.shops.Current(ctx)
	if errors.Is(err, shops.ErrNotFound) {
		return nil, apperrors.ErrNotConnected
	}
	if err != nil {
		return nil, err
	}
	if requested != "" && requested != cred.Shop {
		return nil, apperrors.ErrNotConnected
	}
	return cred, nil
}
