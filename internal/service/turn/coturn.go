package turn

import (
	"context"
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"signaling-relay/internal/domain"
	"signaling-relay/pkg/constants"
	appErrors "signaling-relay/pkg/errors"
)

// CoturnProvider signs coturn TURN REST credentials locally:
//
//	username   = <unix_expiry>:<prefix>:<user id>
//	credential = base64(hmac_sha1(shared_secret, username))
type CoturnProvider struct {
	secret []byte
	urls   []string
	ttl    int64
	prefix string
	now    func() time.Time
}

// NewCoturnProvider creates a provider. An empty secret leaves it unconfigured.
func NewCoturnProvider(secret string, urls []string, ttlSeconds int64, prefix string) *CoturnProvider {
	if ttlSeconds <= 0 {
		ttlSeconds = constants.DefaultTurnRESTTTL
	}
	if prefix == "" {
		prefix = "relay"
	}
	return &CoturnProvider{
		secret: []byte(secret),
		urls:   urls,
		ttl:    ttlSeconds,
		prefix: strings.ReplaceAll(prefix, ":", "_"),
		now:    time.Now,
	}
}

// Name implements Provider
func (p *CoturnProvider) Name() string { return constants.ProviderCoturn }

// Configured reports whether a shared secret and at least one URL are present
func (p *CoturnProvider) Configured() bool {
	return len(p.secret) > 0 && len(p.urls) > 0
}

// Fetch implements Provider
func (p *CoturnProvider) Fetch(ctx context.Context, userID string) (*domain.CredentialSet, error) {
	if !p.Configured() {
		return nil, appErrors.ProviderNotConfiguredError(p.Name())
	}
	if err := ctx.Err(); err != nil {
		return nil, appErrors.UpstreamProviderError(p.Name(), err)
	}

	sessionID := userID
	if sessionID == "" {
		sessionID = uuid.New().String()
	}
	if strings.Contains(sessionID, ":") {
		return nil, appErrors.UpstreamProviderError(p.Name(), errors.New("user id must not contain ':'"))
	}

	expiry := p.now().UTC().Unix() + p.ttl
	username := fmt.Sprintf("%d:%s:%s", expiry, p.prefix, sessionID)

	servers := make([]iceServerJSON, 0, len(p.urls))
	for _, u := range p.urls {
		servers = append(servers, iceServerJSON{
			URLs:       stringOrStringSlice{u},
			Username:   username,
			Credential: signUsername(p.secret, username),
		})
	}

	normalized, err := normalizeServers(servers)
	if err != nil {
		return nil, appErrors.UpstreamProviderError(p.Name(), err)
	}

	return &domain.CredentialSet{
		ICEServers: normalized,
		TTL:        p.ttl,
		UserID:     userID,
		Timestamp:  p.now().UnixMilli(),
	}, nil
}

func signUsername(secret []byte, username string) string {
	mac := hmac.New(sha1.New, secret)
	_, _ = mac.Write([]byte(username))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}
