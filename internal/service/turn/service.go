// Package turn vends short-lived ICE server lists. Providers are tried in
// order and the static STUN list is the last resort, so a request never fails.
package turn

import (
	"context"
	"time"

	"go.uber.org/zap"

	"signaling-relay/internal/domain"
	"signaling-relay/pkg/constants"
	"signaling-relay/pkg/logger"
	"signaling-relay/pkg/resilience"
)

// Provider fetches credentials from one TURN vendor
type Provider interface {
	Name() string
	Fetch(ctx context.Context, userID string) (*domain.CredentialSet, error)
}

// Recorder receives provider metrics
type Recorder interface {
	RecordTURNProvider(provider, result string, duration time.Duration)
	RecordTURNSkipped(provider string)
	SetTURNCircuitState(provider string, state float64)
	RecordSTUNFallback()
}

type nopRecorder struct{}

func (nopRecorder) RecordTURNProvider(string, string, time.Duration) {}
func (nopRecorder) RecordTURNSkipped(string)                         {}
func (nopRecorder) SetTURNCircuitState(string, float64)              {}
func (nopRecorder) RecordSTUNFallback()                              {}

var fallbackSTUNURLs = []string{
	"stun:stun.l.google.com:19302",
	"stun:stun1.l.google.com:19302",
	"stun:stun2.l.google.com:19302",
	"stun:stun3.l.google.com:19302",
	"stun:stun4.l.google.com:19302",
}

// STUNServers returns a fresh copy of the static public STUN list
func STUNServers() []domain.ICEServer {
	servers := make([]domain.ICEServer, len(fallbackSTUNURLs))
	for i, u := range fallbackSTUNURLs {
		servers[i] = domain.ICEServer{URLs: []string{u}}
	}
	return servers
}

// Service walks the provider chain
type Service struct {
	providers []Provider
	timeout   time.Duration
	recorder  Recorder
	breakers  map[string]*resilience.Breaker
	now       func() time.Time
}

// NewService creates a chain over providers in their configured order.
// recorder may be nil.
func NewService(providers []Provider, timeout time.Duration, recorder Recorder) *Service {
	if timeout <= 0 {
		timeout = constants.DefaultProviderTimeout
	}
	if recorder == nil {
		recorder = nopRecorder{}
	}
	breakers := make(map[string]*resilience.Breaker, len(providers))
	for _, p := range providers {
		breakers[p.Name()] = resilience.NewBreaker(p.Name(),
			constants.ProviderBreakerThreshold,
			constants.ProviderBreakerCooldown,
			func(name string, state resilience.State) {
				recorder.SetTURNCircuitState(name, state.Value())
			})
	}
	return &Service{
		providers: providers,
		timeout:   timeout,
		recorder:  recorder,
		breakers:  breakers,
		now:       time.Now,
	}
}

// Fallback returns the STUN-only credential set
func (s *Service) Fallback(userID string) *domain.CredentialSet {
	return &domain.CredentialSet{
		ICEServers: STUNServers(),
		TTL:        constants.StunFallbackTTL,
		UserID:     userID,
		Timestamp:  s.now().UnixMilli(),
	}
}

// order puts the preferred provider first and keeps the rest in configured order
func (s *Service) order(preferred string) []Provider {
	ordered := make([]Provider, 0, len(s.providers))
	for _, p := range s.providers {
		if p.Name() == preferred {
			ordered = append(ordered, p)
		}
	}
	for _, p := range s.providers {
		if p.Name() != preferred {
			ordered = append(ordered, p)
		}
	}
	return ordered
}

// GetCredentials returns STUN entries followed by the first provider's
// servers. It never fails.
func (s *Service) GetCredentials(ctx context.Context, userID, preferred string) *domain.CredentialSet {
	for _, p := range s.order(preferred) {
		if ctx.Err() != nil {
			break
		}

		breaker := s.breakers[p.Name()]
		if !breaker.Allow() {
			s.recorder.RecordTURNSkipped(p.Name())
			continue
		}

		start := time.Now()
		pctx, cancel := context.WithTimeout(ctx, s.timeout)
		creds, err := p.Fetch(pctx, userID)
		cancel()

		if err == nil && (creds == nil || len(creds.ICEServers) == 0) {
			err = errNoUsableServers
		}
		if err != nil {
			breaker.Failure(err)
			s.recorder.RecordTURNProvider(p.Name(), "failure", time.Since(start))
			logger.Warn("TURN provider failed, trying next",
				zap.String("provider", p.Name()),
				zap.String("user_id", userID),
				zap.Error(err))
			continue
		}
		breaker.Success()
		s.recorder.RecordTURNProvider(p.Name(), "success", time.Since(start))

		servers := append(STUNServers(), creds.ICEServers...)
		return &domain.CredentialSet{
			ICEServers: servers,
			TTL:        creds.TTL,
			UserID:     userID,
			Timestamp:  s.now().UnixMilli(),
		}
	}

	s.recorder.RecordSTUNFallback()
	logger.Info("All TURN providers failed, using STUN only", zap.String("user_id", userID))
	return s.Fallback(userID)
}
