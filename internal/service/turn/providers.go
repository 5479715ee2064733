package turn

import (
	"net/http"

	"go.uber.org/zap"

	"signaling-relay/pkg/config"
	"signaling-relay/pkg/logger"
)

type configurable interface {
	Provider
	Configured() bool
}

// ProvidersFromConfig builds the chain order Metered, Twilio, coturn,
// keeping only vendors that have credentials
func ProvidersFromConfig(cfg config.TURNConfig, client *http.Client) []Provider {
	if client == nil {
		client = &http.Client{Timeout: cfg.ProviderTimeout}
	}

	candidates := []configurable{
		NewMeteredProvider(cfg.MeteredAPIKey, cfg.MeteredDomain, client),
		NewTwilioProvider(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioAPIBase, client),
		NewCoturnProvider(cfg.RESTSecret, cfg.RESTURLs, cfg.RESTTTL, ""),
	}

	providers := make([]Provider, 0, len(candidates))
	for _, p := range candidates {
		if !p.Configured() {
			logger.Info("TURN provider disabled", zap.String("provider", p.Name()))
			continue
		}
		providers = append(providers, p)
		logger.Info("TURN provider enabled", zap.String("provider", p.Name()))
	}
	return providers
}
