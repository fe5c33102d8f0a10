package publisher

import (
	"time"

	"github.com/orinocoz/energymeter/summary"
	"github.com/orinocoz/energymeter/tariff"
)

// Payload is the retained message published after every price refresh.
// Prices are in cents/kWh, costs in euros.
type Payload struct {
	Updated      time.Time      `json:"updated"`
	Stale        bool           `json:"stale"`
	Provider     string         `json:"provider"`
	Spot         *float64       `json:"spot"`
	Total        *float64       `json:"total"`
	Period       tariff.Period  `json:"period,omitempty"`
	TodayAverage *float64       `json:"todayAverage"`
	TodayMin     *float64       `json:"todayMin"`
	TodayMax     *float64       `json:"todayMax"`
	Window       *PayloadWindow `json:"bestWindow"`
	Savings      *float64       `json:"savings"`
	Advice       string         `json:"advice,omitempty"`
}

type PayloadWindow struct {
	Start        time.Time `json:"start"`
	End          time.Time `json:"end"`
	AveragePrice float64   `json:"averagePrice"`
	Active       bool      `json:"active"`
	Countdown    string    `json:"countdown"`
}

func ptr(v float64) *float64 {
	return &v
}

// NewPayload flattens a summary into the published message.
func NewPayload(s summary.Summary, now time.Time) Payload {
	p := Payload{
		Updated:  s.Updated,
		Stale:    s.Stale,
		Provider: s.Provider,
		Advice:   s.Advice,
	}
	if s.Current.IsValid() {
		cur := s.Current.Value()
		p.Spot = ptr(cur.Spot)
		p.Total = ptr(cur.Total)
		p.Period = cur.Breakdown.Period
	}
	if s.Today.IsValid() {
		today := s.Today.Value()
		p.TodayAverage = ptr(today.Average)
		p.TodayMin = ptr(today.Min)
		p.TodayMax = ptr(today.Max)
	}
	if s.BestWindow.IsValid() {
		w := s.BestWindow.Value()
		p.Window = &PayloadWindow{
			Start:        w.Start,
			End:          w.End,
			AveragePrice: w.AveragePrice,
			Active:       w.Active(now),
			Countdown:    w.Countdown,
		}
	}
	if s.Costs.Savings.IsValid() {
		p.Savings = ptr(s.Costs.Savings.Value())
	}
	return p
}
