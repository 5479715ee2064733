package turn

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/pion/stun"

	"signaling-relay/internal/domain"
)

var errNoUsableServers = errors.New("no usable ice servers in response")

// stringOrStringSlice accepts `"urls": "stun:..."` as well as `"urls": [...]`
type stringOrStringSlice []string

func (s *stringOrStringSlice) UnmarshalJSON(b []byte) error {
	var single string
	if err := json.Unmarshal(b, &single); err == nil {
		*s = []string{single}
		return nil
	}
	var many []string
	if err := json.Unmarshal(b, &many); err != nil {
		return err
	}
	*s = many
	return nil
}

// iceServerJSON is the upstream server shape. Twilio still sends the
// deprecated singular "url" next to "urls".
type iceServerJSON struct {
	URLs       stringOrStringSlice `json:"urls"`
	URL        string              `json:"url,omitempty"`
	Username   string              `json:"username,omitempty"`
	Credential string              `json:"credential,omitempty"`
}

// normalizeServers validates every URL and drops what a browser would reject.
// It fails when nothing usable is left.
func normalizeServers(servers []iceServerJSON) ([]domain.ICEServer, error) {
	out := make([]domain.ICEServer, 0, len(servers))
	for _, server := range servers {
		raw := []string(server.URLs)
		if len(raw) == 0 && server.URL != "" {
			raw = []string{server.URL}
		}

		username := strings.TrimSpace(server.Username)
		credential := strings.TrimSpace(server.Credential)

		urls := make([]string, 0, len(raw))
		for _, u := range raw {
			u = strings.TrimSpace(u)
			if u == "" {
				continue
			}
			relay, err := validateURL(u)
			if err != nil {
				continue
			}
			if relay && (username == "" || credential == "") {
				continue
			}
			urls = append(urls, u)
		}
		if len(urls) == 0 {
			continue
		}

		out = append(out, domain.ICEServer{
			URLs:       urls,
			Username:   username,
			Credential: credential,
		})
	}

	if len(out) == 0 {
		return nil, errNoUsableServers
	}
	return out, nil
}

// validateURL parses a stun:, stuns:, turn: or turns: URL and reports
// whether it names a relay, which needs credentials
func validateURL(raw string) (bool, error) {
	uri, err := stun.ParseURI(raw)
	if err != nil {
		return false, fmt.Errorf("invalid ice url %q: %w", raw, err)
	}
	switch uri.Scheme {
	case stun.SchemeTypeTURN, stun.SchemeTypeTURNS:
		return true, nil
	case stun.SchemeTypeSTUN, stun.SchemeTypeSTUNS:
		return false, nil
	default:
		return false, fmt.Errorf("unsupported ice url scheme %q", raw)
	}
}
