package tariff

// Config holds the user editable fee settings in cents/kWh excluding VAT.
// A nil field is unset and not applied. Without a network package the
// engine returns the raw spot price.
type Config struct {
	TransferDay          *float64 `json:"transferDay"`
	TransferNight        *float64 `json:"transferNight"`
	RenewableSurcharge   *float64 `json:"renewableSurcharge"`
	ExciseTax            *float64 `json:"exciseTax"`
	SecurityOfSupplyFee  *float64 `json:"securityOfSupplyFee"`
	BalancingCapacityFee *float64 `json:"balancingCapacityFee"`
	VatPercent           *float64 `json:"vatPercent"`
	PurchaseMargin       *float64 `json:"purchaseMargin"`
	SalesMargin          *float64 `json:"salesMargin"`
	NetworkPackageID     *string  `json:"networkPackageId"`
}

func (c Config) HasPackage() bool {
	return c.NetworkPackageID != nil && *c.NetworkPackageID != ""
}

func (c Config) PackageID() string {
	if c.NetworkPackageID == nil {
		return ""
	}
	return *c.NetworkPackageID
}

// Clone returns a deep copy so that edits never leak into shared snapshots.
func (c Config) Clone() Config {
	return Config{
		TransferDay:          clonePtr(c.TransferDay),
		TransferNight:        clonePtr(c.TransferNight),
		RenewableSurcharge:   clonePtr(c.RenewableSurcharge),
		ExciseTax:            clonePtr(c.ExciseTax),
		SecurityOfSupplyFee:  clonePtr(c.SecurityOfSupplyFee),
		BalancingCapacityFee: clonePtr(c.BalancingCapacityFee),
		VatPercent:           clonePtr(c.VatPercent),
		PurchaseMargin:       clonePtr(c.PurchaseMargin),
		SalesMargin:          clonePtr(c.SalesMargin),
		NetworkPackageID:     clonePtr(c.NetworkPackageID),
	}
}

// Overlay returns c with every field that is set in o replaced.
func (c Config) Overlay(o Config) Config {
	res := c.Clone()
	overlay(&res.TransferDay, o.TransferDay)
	overlay(&res.TransferNight, o.TransferNight)
	overlay(&res.RenewableSurcharge, o.RenewableSurcharge)
	overlay(&res.ExciseTax, o.ExciseTax)
	overlay(&res.SecurityOfSupplyFee, o.SecurityOfSupplyFee)
	overlay(&res.BalancingCapacityFee, o.BalancingCapacityFee)
	overlay(&res.VatPercent, o.VatPercent)
	overlay(&res.PurchaseMargin, o.PurchaseMargin)
	overlay(&res.SalesMargin, o.SalesMargin)
	overlay(&res.NetworkPackageID, o.NetworkPackageID)
	return res
}

func Float(v float64) *float64 {
	return &v
}

func String(v string) *string {
	return &v
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func overlay[T any](dst **T, src *T) {
	if src != nil {
		*dst = clonePtr(src)
	}
}
