package server

import (
	"errors"
	"io"
	"net/http"

	"github.com/ifrederico/shopify-bulkexport/shops"
	"github.com/rs/zerolog"
)

const (
	webhookHmacHeader  = "X-Shopify-Hmac-Sha256"
	webhookShopHeader  = "X-Shopify-Shop-Domain"
	webhookTopicHeader = "X-Shopify-Topic"
	maxWebhookBody     = 1 << 20
)

// AppUninstalledHandler drops the shop's credential once Shopify reports the app removed.
// Shopify retries on non-2xx, so an already forgotten shop is still a 200.
func (s *Server) AppUninstalledHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := zerolog.Ctx(r.Context())

		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
		if err != nil {
			http.Error(w, "Request body too large", http.StatusRequestEntityTooLarge)
			return
		}
		if err := s.verifier.VerifyWebhook(body, r.Header.Get(webhookHmacHeader)); err != nil {
			logger.Warn().Err(err).Str("topic", r.Header.Get(webhookTopicHeader)).Msg("Webhook signature rejected")
			http.Error(w, "Invalid webhook signature", http.StatusUnauthorized)
			return
		}

		shop, err := shops.NormalizeDomain(r.Header.Get(webhookShopHeader))
		if err != nil {
			http.Error(w, "Missing or invalid shop domain", http.StatusBadRequest)
			return
		}

		if err := s.shops.Delete(r.Context(), shop); err != nil && !errors.Is(err, shops.ErrNotFound) {
			logger.Error().Err(err).Str("shop", shop).Msg("Failed to delete credential on uninstall")
			http.Error(w, "Failed to process webhook", http.StatusInternalServerError)
			return
		}

		logger.Info().Str("shop", shop).Msg("App uninstalled, credential removed")
		w.WriteHeader(http.StatusOK)
	}
}
