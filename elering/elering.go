package elering

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/orinocoz/energymeter/convert"
	"github.com/orinocoz/energymeter/types"
)

const DefaultURL = "https://dashboard.elering.ee/api/nps/price"

// Elering fetches Nord Pool day-ahead prices from the Estonian TSO dashboard API.
type Elering struct {
	url    string
	area   string
	client *http.Client
}

func New(baseURL, area string) Elering {
	if baseURL == "" {
		baseURL = DefaultURL
	}
	return Elering{
		url:    baseURL,
		area:   strings.ToLower(area),
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

func (e Elering) Name() string {
	return "elering"
}

type priceEntry struct {
	Timestamp int64   `json:"timestamp"` // Unix seconds, start of the slot
	Price     float64 `json:"price"`     // EUR/MWh
}

type response struct {
	Success bool                    `json:"success"`
	Data    map[string][]priceEntry `json:"data"`
}

func (e Elering) GetEnergyPrices(ctx context.Context, from, to time.Time) ([]types.EnergyPrice, error) {
	q := url.Values{}
	q.Set("start", from.UTC().Format("2006-01-02T15:04:05.000Z"))
	q.Set("end", to.UTC().Format("2006-01-02T15:04:05.000Z"))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.url+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch prices: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("elering API error: %d", resp.StatusCode)
	}

	var body response
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if !body.Success {
		return nil, fmt.Errorf("elering API reported failure")
	}

	entries := body.Data[e.area]
	prices := make([]types.EnergyPrice, 0, len(entries))
	for _, entry := range entries {
		prices = append(prices, types.EnergyPrice{
			Timestamp: time.Unix(entry.Timestamp, 0).UTC(),
			Price:     convert.MWh2CentsPerKwh(entry.Price),
		})
	}

	slices.SortFunc(prices, func(a, b types.EnergyPrice) int {
		return a.Timestamp.Compare(b.Timestamp)
	})
	return prices, nil
}
