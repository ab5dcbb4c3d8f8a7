package pricefeed

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/dexlab/quotefill/internal/tokens"
)

const defaultBaseURL = "https://api.coingecko.com/api/v3"

// Feed pulls spot USD prices keyed by CoinGecko asset IDs and pushes them
// into a token registry.
type Feed struct {
	baseURL string
	httpc   *http.Client
	reg     *tokens.Registry
	log     zerolog.Logger
}

func New(reg *tokens.Registry, log zerolog.Logger) *Feed {
	return NewWithBaseURL(defaultBaseURL, reg, log)
}

func NewWithBaseURL(baseURL string, reg *tokens.Registry, log zerolog.Logger) *Feed {
	return &Feed{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpc:   &http.Client{Timeout: 15 * time.Second},
		reg:     reg,
		log:     log.With().Str("component", "pricefeed").Logger(),
	}
}

// Refresh fetches every registered token's price in one request and
// writes the results back into the registry. Feeds the endpoint does not
// know stay at their previous price.
func (f *Feed) Refresh(ctx context.Context) error {
	ids := f.feedIDs()
	if len(ids) == 0 {
		return nil
	}
	qs := url.Values{}
	qs.Set("ids", strings.Join(ids, ","))
	qs.Set("vs_currencies", "usd")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.baseURL+"/simple/price?"+qs.Encode(), nil)
	if err != nil {
		return fmt.Errorf("build price request: %w", err)
	}
	resp, err := f.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("fetch prices: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("price endpoint returned %s", resp.Status)
	}

	var body map[string]struct {
		Usd float64 `json:"usd"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return fmt.Errorf("decode price response: %w", err)
	}
	for id, p := range body {
		if p.Usd <= 0 {
			continue
		}
		f.reg.SetPriceByFeedID(id, p.Usd)
	}
	f.log.Debug().Int("feeds", len(body)).Msg("prices refreshed")
	return nil
}

// Start refreshes once immediately, then keeps prices warm on the given
// cron schedule until ctx is cancelled.
func (f *Feed) Start(ctx context.Context, schedule string) error {
	if err := f.Refresh(ctx); err != nil {
		return fmt.Errorf("initial price refresh: %w", err)
	}
	c := cron.New()
	if _, err := c.AddFunc(schedule, func() {
		if err := f.Refresh(ctx); err != nil {
			f.log.Warn().Err(err).Msg("price refresh failed")
		}
	}); err != nil {
		return fmt.Errorf("schedule price refresh: %w", err)
	}
	c.Start()
	go func() {
		<-ctx.Done()
		c.Stop()
	}()
	return nil
}

func (f *Feed) feedIDs() []string {
	seen := map[string]bool{}
	var ids []string
	for _, t := range f.reg.Snapshot() {
		if t.FeedID == "" || seen[t.FeedID] {
			continue
		}
		seen[t.FeedID] = true
		ids = append(ids, t.FeedID)
	}
	return ids
}
