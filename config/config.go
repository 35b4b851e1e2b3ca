package config

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/vadiminshakov/synthex/internal/domain"
)

// Contracts are the deployed exchange contract addresses.
type Contracts struct {
	Exchanger    string `yaml:"exchanger"`
	SystemStatus string `yaml:"system_status"`
	Synthetix    string `yaml:"synthetix"`
	LimitOrders  string `yaml:"limit_orders"`
}

type Config struct {
	Pair                 domain.Pair
	RPCURL               string
	ChainID              int64
	GasPriceGwei         decimal.Decimal
	DefaultGasLimit      uint64
	RatesProvider        string
	RatesRefreshInterval time.Duration
	RatesCacheTTL        time.Duration
	WalDir               string
	ListenAddr           string
	PrivateKey           string
	Contracts            Contracts
	Assets               []domain.Asset
}

type configTmp struct {
	Pair                 string         `yaml:"pair"`
	RPCURL               string         `yaml:"rpc_url"`
	ChainID              int64          `yaml:"chain_id"`
	GasPriceGwei         string         `yaml:"gas_price_gwei"`
	DefaultGasLimit      uint64         `yaml:"default_gas_limit,omitempty"`
	RatesProvider        string         `yaml:"rates_provider,omitempty"`
	RatesRefreshInterval time.Duration  `yaml:"rates_refresh_interval,omitempty"`
	RatesCacheTTL        time.Duration  `yaml:"rates_cache_ttl,omitempty"`
	WalDir               string         `yaml:"wal_dir,omitempty"`
	ListenAddr           string         `yaml:"listen_addr,omitempty"`
	Contracts            Contracts      `yaml:"contracts"`
	Assets               []domain.Asset `yaml:"assets"`
}

// Get reads the yaml config named by --config, falling back to flags for
// the basic fields. The signing key always comes from SYNTHEX_PRIVATE_KEY.
func Get() (Config, error) {
	configPath := flag.String("config", "", "path to yaml config")
	pairFlag := flag.String("pair", "sBTC_sUSD", "trade pair, example: sBTC_sUSD")
	rpcFlag := flag.String("rpc", "http://localhost:8545", "ethereum node RPC URL")
	gasPriceFlag := flag.String("gasprice", "20", "gas price in gwei")
	flag.Parse()

	var cfg Config
	var err error
	if *configPath != "" {
		cfg, err = getYaml(*configPath)
	} else {
		cfg, err = getFromCLI(*pairFlag, *rpcFlag, *gasPriceFlag)
	}
	if err != nil {
		return Config{}, err
	}

	cfg.PrivateKey = os.Getenv("SYNTHEX_PRIVATE_KEY")
	applyDefaults(&cfg)
	return cfg, nil
}

func getFromCLI(pairStr, rpcURL, gasPriceStr string) (Config, error) {
	pair, err := PairFromString(pairStr)
	if err != nil {
		return Config{}, fmt.Errorf("invalid --pair provided, --pair=%s", pairStr)
	}

	gasPrice, err := decimal.NewFromString(gasPriceStr)
	if err != nil {
		return Config{}, fmt.Errorf("invalid --gasprice provided, --gasprice=%s", gasPriceStr)
	}

	return Config{
		Pair:         pair,
		RPCURL:       rpcURL,
		ChainID:      1,
		GasPriceGwei: gasPrice,
	}, nil
}

func getYaml(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	var tmp configTmp
	if err := yaml.Unmarshal(data, &tmp); err != nil {
		return Config{}, err
	}

	pair, err := PairFromString(tmp.Pair)
	if err != nil {
		return Config{}, fmt.Errorf("invalid pair in config: %q", tmp.Pair)
	}

	gasPrice := decimal.NewFromInt(20)
	if tmp.GasPriceGwei != "" {
		gasPrice, err = decimal.NewFromString(tmp.GasPriceGwei)
		if err != nil {
			return Config{}, fmt.Errorf("invalid gas_price_gwei in config: %q", tmp.GasPriceGwei)
		}
	}

	return Config{
		Pair:                 pair,
		RPCURL:               tmp.RPCURL,
		ChainID:              tmp.ChainID,
		GasPriceGwei:         gasPrice,
		DefaultGasLimit:      tmp.DefaultGasLimit,
		RatesProvider:        tmp.RatesProvider,
		RatesRefreshInterval: tmp.RatesRefreshInterval,
		RatesCacheTTL:        tmp.RatesCacheTTL,
		WalDir:               tmp.WalDir,
		ListenAddr:           tmp.ListenAddr,
		Contracts:            tmp.Contracts,
		Assets:               tmp.Assets,
	}, nil
}

func applyDefaults(cfg *Config) {
	if cfg.ChainID == 0 {
		cfg.ChainID = 1
	}
	if cfg.DefaultGasLimit == 0 {
		cfg.DefaultGasLimit = 500000
	}
	if cfg.RatesProvider == "" {
		cfg.RatesProvider = "binance"
	}
	if cfg.RatesRefreshInterval == 0 {
		cfg.RatesRefreshInterval = time.Minute
	}
	if cfg.RatesCacheTTL == 0 {
		cfg.RatesCacheTTL = 10 * time.Second
	}
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":8080"
	}
}

// PairFromString parses "sBTC_sUSD" into a pair.
func PairFromString(s string) (domain.Pair, error) {
	parts := strings.Split(s, "_")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return domain.Pair{}, fmt.Errorf("pair must look like BASE_QUOTE, got %q", s)
	}
	if parts[0] == parts[1] {
		return domain.Pair{}, fmt.Errorf("pair base and quote must differ, got %q", s)
	}
	return domain.Pair{Base: parts[0], Quote: parts[1]}, nil
}

// AssetIndex builds the registry from the configured asset list.
func (c Config) AssetIndex() domain.AssetIndex {
	idx := make(domain.AssetIndex, len(c.Assets))
	for _, a := range c.Assets {
		idx[a.Name] = a
	}
	if _, ok := idx[domain.USDReference]; !ok {
		idx[domain.USDReference] = domain.Asset{Name: domain.USDReference, Category: domain.CategoryForex}
	}
	return idx
}
