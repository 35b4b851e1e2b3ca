package domain

// Category groups assets by the market that drives their reference price.
type Category string

const (
	CategoryCrypto    Category = "crypto"
	CategoryForex     Category = "forex"
	CategoryEquities  Category = "equities"
	CategoryCommodity Category = "commodity"
	CategoryIndex     Category = "index"
)

// USDReference is the stable asset every price and total is quoted against.
const USDReference = "sUSD"

// Asset describes a tradable synth.
type Asset struct {
	Name     string   `yaml:"name" json:"name"`
	Category Category `yaml:"category" json:"category"`
	Frozen   bool     `yaml:"frozen" json:"frozen"`
	// Symbol is the spot-market ticker used by reference-rate providers,
	// e.g. "BTCUSDT" for sBTC.
	Symbol string `yaml:"symbol,omitempty" json:"symbol,omitempty"`
}

// RestrictedHours reports whether the asset trades only while its reference
// market is open, so suspension must be checked before trading it.
func (a Asset) RestrictedHours() bool {
	return a.Category == CategoryEquities
}

// CurrencyKey encodes the asset name as the bytes32 currency key the
// exchange contracts expect.
func CurrencyKey(name string) [32]byte {
	var key [32]byte
	copy(key[:], name)
	return key
}

// AssetIndex is a read-only registry of known assets keyed by name.
type AssetIndex map[string]Asset

// Get returns the asset for name, reporting whether it is known.
func (idx AssetIndex) Get(name string) (Asset, bool) {
	a, ok := idx[name]
	return a, ok
}

// IsFrozen reports whether the asset is administratively disabled from
// trading. Unknown assets are not considered frozen.
func (idx AssetIndex) IsFrozen(name string) bool {
	a, ok := idx[name]
	return ok && a.Frozen
}
