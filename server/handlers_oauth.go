package server

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/ifrederico/shopify-bulkexport/installstate"
	apperrors "github.com/ifrederico/shopify-bulkexport/internal/errors"
	"github.com/rs/zerolog"
)

// AuthHandler starts an install: it remembers a fresh state nonce and sends the merchant
// to the shop's consent screen.
func (s *Server) AuthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := zerolog.Ctx(r.Context())

		shop := strings.TrimSpace(r.URL.Query().Get("shop"))
		if shop == "" {
			http.Error(w, "Missing ?shop param", http.StatusBadRequest)
			return
		}

		inst, authorizeURL, err := s.installer.Begin(r.Context(), shop)
		if err != nil {
			if errors.Is(err, apperrors.ErrBadRequest) {
				http.Error(w, "Invalid shop domain", http.StatusBadRequest)
				return
			}
			if errors.Is(err, installstate.ErrFull) {
				logger.Warn().Str("shop", shop).Msg("Too many pending installs")
				http.Error(w, "Too many installs in progress, try again shortly", http.StatusServiceUnavailable)
				return
			}
			logger.Error().Err(err).Str("shop", shop).Msg("Failed to begin install")
			http.Error(w, "Failed to start install", http.StatusInternalServerError)
			return
		}

		logger.Info().Str("shop", inst.Shop).Str("phase", inst.Phase.String()).Msg("Redirecting to Shopify for consent")
		http.Redirect(w, r, authorizeURL, http.StatusFound)
	}
}

// AuthCallbackHandler completes an install. Nothing reaches Shopify unless the callback
// carries every required parameter, a valid signature and a state this server issued.
func (s *Server) AuthCallbackHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := zerolog.Ctx(r.Context())

		inst, _, err := s.installer.Complete(r.Context(), r.URL.Query())
		if err != nil {
			status, message := callbackError(err)
			level := zerolog.WarnLevel
			if status >= http.StatusInternalServerError {
				level = zerolog.ErrorLevel
			}
			logger.WithLevel(level).Err(err).Str("shop", inst.Shop).Str("phase", inst.Phase.String()).Msg("OAuth callback rejected")
			http.Error(w, message, status)
			return
		}

		logger.Info().Str("shop", inst.Shop).Str("phase", inst.Phase.String()).Msg("Shop installed")
		http.Redirect(w, r, s.landingURL(url.QueryEscape(inst.Shop)), http.StatusFound)
	}
}

func callbackError(err error) (int, string) {
	switch {
	case errors.Is(err, apperrors.ErrInvalidShop):
		return http.StatusBadRequest, "Invalid shop domain"
	case errors.Is(err, apperrors.ErrBadRequest):
		return http.StatusBadRequest, "Missing required params"
	case errors.Is(err, apperrors.ErrSignatureInvalid):
		return http.StatusBadRequest, "HMAC validation failed"
	case errors.Is(err, apperrors.ErrStateInvalid):
		return http.StatusBadRequest, "Invalid state parameter"
	default:
		return http.StatusInternalServerError, "Error obtaining access token"
	}
}
