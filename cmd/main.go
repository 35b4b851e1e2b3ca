// Command synthex runs the on-chain synth exchange order desk: it keeps
// reference rates fresh, opens an order session for the configured pair,
// and serves the transaction ledger over HTTP.
//
// Usage:
//
//	synthex --config config.yaml
//	synthex setup   (interactive configuration wizard)
//
// Required environment variables:
//
//	SYNTHEX_PRIVATE_KEY: hex-encoded signing key for the trading wallet
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/vadiminshakov/synthex/config"
	"github.com/vadiminshakov/synthex/internal/app"
	"github.com/vadiminshakov/synthex/internal/clients"
	"github.com/vadiminshakov/synthex/internal/services/rates"
	"github.com/vadiminshakov/synthex/internal/services/wallet"
	"github.com/vadiminshakov/synthex/internal/setup"
	"github.com/vadiminshakov/synthex/internal/storage/ledger"
	"github.com/vadiminshakov/synthex/internal/web"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "setup" {
		if err := setup.RunTUI(); err != nil {
			log.Fatal(err)
		}
		return
	}

	cfg, err := config.Get()
	if err != nil {
		log.Fatal(err)
	}
	if cfg.PrivateKey == "" {
		log.Fatal("SYNTHEX_PRIVATE_KEY environment variable must be set")
	}

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	exchange, err := clients.NewEthExchange(ctx, cfg.RPCURL, cfg.ChainID, clients.ContractAddresses{
		Exchanger:    common.HexToAddress(cfg.Contracts.Exchanger),
		SystemStatus: common.HexToAddress(cfg.Contracts.SystemStatus),
		Synthetix:    common.HexToAddress(cfg.Contracts.Synthetix),
		LimitOrders:  common.HexToAddress(cfg.Contracts.LimitOrders),
	}, cfg.PrivateKey)
	if err != nil {
		log.Fatal(err)
	}

	provider, err := buildProvider(cfg)
	if err != nil {
		log.Fatal(err)
	}

	cached, err := rates.NewCachedProvider(provider, cfg.RatesCacheTTL)
	if err != nil {
		log.Fatal(err)
	}

	assets := cfg.AssetIndex()
	rateTable := rates.NewTable()
	refresher, err := rates.NewRefresher(logger, rateTable, cached, assets)
	if err != nil {
		log.Fatal(err)
	}
	if err := refresher.Start(ctx, cfg.RatesRefreshInterval); err != nil {
		log.Fatal(err)
	}
	defer refresher.Close()

	book, err := ledger.NewWALStore(logger, cfg.WalDir)
	if err != nil {
		log.Fatal(err)
	}
	defer book.Close()

	walletCtx := wallet.NewContext()
	walletCtx.Connect(exchange.SignerAddress(), wallet.KindLocal)

	desk := app.NewDesk(logger, app.Config{
		Exchange:        exchange,
		LimitOrders:     exchange,
		Rates:           rateTable,
		Balances:        wallet.NewBalances(),
		Wallet:          walletCtx,
		Assets:          assets,
		Ledger:          book,
		Pair:            cfg.Pair,
		GasPriceGwei:    cfg.GasPriceGwei,
		DefaultGasLimit: cfg.DefaultGasLimit,
		GasPriceEditor: func() {
			logger.Info("gas price editor requested")
		},
	})
	desk.Open(ctx)

	logger.Info("order desk ready",
		zap.String("pair", cfg.Pair.String()),
		zap.String("wallet", exchange.SignerAddress().Hex()),
		zap.String("listen", cfg.ListenAddr))

	server := web.NewServer(logger, cfg.ListenAddr, book)
	if err := server.Start(ctx); err != nil {
		logger.Error("web server stopped", zap.Error(err))
	}
}

func buildProvider(cfg config.Config) (rates.Provider, error) {
	switch cfg.RatesProvider {
	case "binance":
		return rates.NewBinanceProvider(clients.NewBinanceClient(
			os.Getenv("BINANCE_API_KEY"), os.Getenv("BINANCE_API_SECRET"))), nil
	case "bybit":
		return rates.NewBybitProvider(clients.NewBybitClient(
			os.Getenv("BYBIT_API_KEY"), os.Getenv("BYBIT_API_SECRET"))), nil
	case "hyperliquid":
		info, err := clients.NewHyperliquidInfo(cfg.PrivateKey, os.Getenv("HYPERLIQUID_API_URL"))
		if err != nil {
			return nil, err
		}
		return rates.NewHyperliquidProvider(info), nil
	default:
		return nil, fmt.Errorf("unsupported rates provider: %s", cfg.RatesProvider)
	}
}
