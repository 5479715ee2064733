package turn

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"signaling-relay/internal/domain"
	"signaling-relay/pkg/constants"
	appErrors "signaling-relay/pkg/errors"
)

// MeteredProvider calls the Metered TURN credential API
type MeteredProvider struct {
	apiKey  string
	baseURL string
	client  *http.Client
	now     func() time.Time
}

// NewMeteredProvider creates a provider for domain, e.g. "app.metered.live".
// A domain with a scheme is used as-is.
func NewMeteredProvider(apiKey, domainName string, client *http.Client) *MeteredProvider {
	base := strings.TrimRight(domainName, "/")
	if base != "" && !strings.Contains(base, "://") {
		base = "https://" + base
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &MeteredProvider{
		apiKey:  apiKey,
		baseURL: base,
		client:  client,
		now:     time.Now,
	}
}

// Name implements Provider
func (p *MeteredProvider) Name() string { return constants.ProviderMetered }

// Configured reports whether an API key and domain are present
func (p *MeteredProvider) Configured() bool {
	return p.apiKey != "" && p.baseURL != ""
}

// Fetch implements Provider. The API answers with a bare server array.
func (p *MeteredProvider) Fetch(ctx context.Context, userID string) (*domain.CredentialSet, error) {
	if !p.Configured() {
		return nil, appErrors.ProviderNotConfiguredError(p.Name())
	}

	endpoint := fmt.Sprintf("%s/api/v1/turn/credentials?apiKey=%s", p.baseURL, url.QueryEscape(p.apiKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, appErrors.UpstreamProviderError(p.Name(), err)
	}
	req.Header.Set("Accept", "application/json")

	var body []iceServerJSON
	if err := doJSON(p.client, req, &body); err != nil {
		return nil, appErrors.UpstreamProviderError(p.Name(), err)
	}

	servers, err := normalizeServers(body)
	if err != nil {
		return nil, appErrors.UpstreamProviderError(p.Name(), err)
	}

	return &domain.CredentialSet{
		ICEServers: servers,
		TTL:        constants.MeteredTTL,
		UserID:     userID,
		Timestamp:  p.now().UnixMilli(),
	}, nil
}
