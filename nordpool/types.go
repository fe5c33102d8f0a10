package nordpool

import "time"

const DefaultURL = "https://dataportal-api.nordpoolgroup.com/api/DayAheadPrices"

type nordpoolData struct {
	DeliveryDateCET  string       `json:"deliveryDateCET"`
	Version          int          `json:"version"`
	UpdatedAt        time.Time    `json:"updatedAt"`
	DeliveryAreas    []string     `json:"deliveryAreas"`
	Market           string       `json:"market"`
	MultiAreaEntries []multiEntry `json:"multiAreaEntries"`
	Currency         string       `json:"currency"`
}

type multiEntry struct {
	DeliveryStart time.Time          `json:"deliveryStart"`
	DeliveryEnd   time.Time          `json:"deliveryEnd"`
	EntryPerArea  map[string]float64 `json:"entryPerArea"` // Currency per MWh
}
