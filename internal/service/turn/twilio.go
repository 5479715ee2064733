package turn

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"signaling-relay/internal/domain"
	"signaling-relay/pkg/constants"
	appErrors "signaling-relay/pkg/errors"
)

// maxResponseBytes caps upstream bodies
const maxResponseBytes = 1 << 20

// TwilioProvider calls the Twilio Network Traversal Service
type TwilioProvider struct {
	accountSID string
	authToken  string
	baseURL    string
	client     *http.Client
	now        func() time.Time
}

// NewTwilioProvider creates a provider. Empty credentials leave it unconfigured.
func NewTwilioProvider(accountSID, authToken, baseURL string, client *http.Client) *TwilioProvider {
	if baseURL == "" {
		baseURL = "https://api.twilio.com"
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &TwilioProvider{
		accountSID: accountSID,
		authToken:  authToken,
		baseURL:    strings.TrimRight(baseURL, "/"),
		client:     client,
		now:        time.Now,
	}
}

// Name implements Provider
func (p *TwilioProvider) Name() string { return constants.ProviderTwilio }

// Configured reports whether account credentials are present
func (p *TwilioProvider) Configured() bool {
	return p.accountSID != "" && p.authToken != ""
}

// twilioTTL is sent as a string ("86400") by the API
type twilioTTL int64

func (t *twilioTTL) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*t = 0
		return nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid ttl %q: %w", s, err)
	}
	*t = twilioTTL(n)
	return nil
}

type twilioTokenResponse struct {
	ICEServers []iceServerJSON `json:"ice_servers"`
	TTL        twilioTTL       `json:"ttl"`
}

// Fetch implements Provider
func (p *TwilioProvider) Fetch(ctx context.Context, userID string) (*domain.CredentialSet, error) {
	if !p.Configured() {
		return nil, appErrors.ProviderNotConfiguredError(p.Name())
	}

	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Tokens.json", p.baseURL, url.PathEscape(p.accountSID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(""))
	if err != nil {
		return nil, appErrors.UpstreamProviderError(p.Name(), err)
	}
	req.SetBasicAuth(p.accountSID, p.authToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	var body twilioTokenResponse
	if err := doJSON(p.client, req, &body); err != nil {
		return nil, appErrors.UpstreamProviderError(p.Name(), err)
	}

	servers, err := normalizeServers(body.ICEServers)
	if err != nil {
		return nil, appErrors.UpstreamProviderError(p.Name(), err)
	}

	ttl := int64(body.TTL)
	if ttl <= 0 {
		ttl = constants.StunFallbackTTL
	}
	return &domain.CredentialSet{
		ICEServers: servers,
		TTL:        ttl,
		UserID:     userID,
		Timestamp:  p.now().UnixMilli(),
	}, nil
}

// doJSON executes req and decodes a 2xx JSON body into v
func doJSON(client *http.Client, req *http.Request, v interface{}) error {
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("malformed response: %w", err)
	}
	return nil
}
