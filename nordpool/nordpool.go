package nordpool

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

// Nord Pool publishes delivery days in CET.
var cet = mustLoad("Europe/Berlin")

func mustLoad(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic(fmt.Sprintf("failed to load %s location: %v", name, err))
	}
	return loc
}

type Nordpool struct {
	url    string
	area   string
	client *http.Client
}

func New(baseURL, area string) Nordpool {
	if baseURL == "" {
		baseURL = DefaultURL
	}
	return Nordpool{
		url:    baseURL,
		area:   strings.ToUpper(area),
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

func (n Nordpool) Name() string {
	return "nordpool"
}

// GetEnergyPrices fetches every CET delivery day touching [from, to) and
// keeps the slots inside the range.
func (n Nordpool) GetEnergyPrices(ctx context.Context, from, to time.Time) ([]types.EnergyPrice, error) {
	seen := make(map[int64]bool)
	var prices []types.EnergyPrice

	day := from.In(cet)
	day = time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, cet)
	for day.Before(to) {
		dayPrices, err := n.getEnergyPrices(ctx, day)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch prices from nordpool for %s: %w", day.Format("2006-01-02"), err)
		}
		for _, p := range dayPrices {
			if p.Timestamp.Before(from) || !p.Timestamp.Before(to) || seen[p.Timestamp.Unix()] {
				continue
			}
			seen[p.Timestamp.Unix()] = true
			prices = append(prices, p)
		}
		day = day.AddDate(0, 0, 1)
	}

	slices.SortFunc(prices, func(a, b types.EnergyPrice) int {
		return a.Timestamp.Compare(b.Timestamp)
	})
	return prices, nil
}

func (n Nordpool) getEnergyPrices(ctx context.Context, date time.Time) ([]types.EnergyPrice, error) {
	q := url.Values{}
	q.Set("date", date.Format("2006-01-02"))
	q.Set("market", "DayAhead")
	q.Set("deliveryArea", n.area)
	q.Set("currency", "EUR")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, n.url+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := n.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch prices: %w", err)
	}
	defer resp.Body.Close()

	// Not published yet
	if resp.StatusCode == http.StatusNoContent || resp.StatusCode == http.StatusNotFound {
		return []types.EnergyPrice{}, nil
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var nordpoolData nordpoolData
	if err := json.NewDecoder(resp.Body).Decode(&nordpoolData); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	prices := make([]types.EnergyPrice, 0, len(nordpoolData.MultiAreaEntries))
	for _, entry := range nordpoolData.MultiAreaEntries {
		price, ok := entry.EntryPerArea[n.area]
		if ok {
			prices = append(prices, types.EnergyPrice{
				Timestamp: entry.DeliveryStart.UTC(),
				Price:     convert.MWh2CentsPerKwh(price),
			})
		}
	}

	return prices, nil
}
