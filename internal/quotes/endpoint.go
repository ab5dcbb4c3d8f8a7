package quotes

import (
	"regexp"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"
)

// Endpoint is one --url argument. URLs can be plain or carry an id,
// e.g. "prod=https://api.0x.org/swap/v0/quote".
type Endpoint struct {
	ID  string
	URL string
}

var urlSpecRe = regexp.MustCompile(`^(?:(.+)=)?([^/]+://.+)$`)

func ParseEndpoint(raw string) (Endpoint, bool) {
	m := urlSpecRe.FindStringSubmatch(strings.TrimSpace(raw))
	if m == nil {
		return Endpoint{}, false
	}
	if m[1] != "" {
		return Endpoint{ID: m[1], URL: m[2]}, true
	}
	return Endpoint{ID: m[2], URL: m[2]}, true
}

// ForEndpoint picks the adapter by endpoint shape, the same heuristic the
// scripts always used: anything mentioning 1inch speaks the 1inch API,
// everything else is 0x-style.
func ForEndpoint(ep Endpoint, taker common.Address, log zerolog.Logger) Fetcher {
	if strings.Contains(ep.URL, "1inch") {
		return NewOneInch(ep.URL, ep.ID, taker, log)
	}
	return NewZeroEx(ep.URL, ep.ID, log)
}
