// Package setup holds the interactive first-run configuration wizard.
package setup

import (
	"fmt"
	"os"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/vadiminshakov/synthex/config"
)

var (
	subtle    = lipgloss.AdaptiveColor{Light: "#D9DCCF", Dark: "#383838"}
	highlight = lipgloss.AdaptiveColor{Light: "#874BFD", Dark: "#7D56F4"}

	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Background(highlight).
			Padding(1, 2).
			Bold(true).
			MarginBottom(1)
)

// RunTUI walks the user through a minimal config and writes it to
// config.yaml.
func RunTUI() error {
	var (
		pairStr     string
		rpcURL      string
		gasPriceStr string
		provider    string
		listenAddr  string
		confirm     bool
	)

	// defaults
	pairStr = "sBTC_sUSD"
	rpcURL = "http://localhost:8545"
	gasPriceStr = "20"
	provider = "binance"
	listenAddr = ":8080"

	fmt.Print("\033[H\033[2J")
	fmt.Println(headerStyle.Render("SYNTHEX CONFIG WIZARD"))
	fmt.Println(lipgloss.NewStyle().Foreground(subtle).Render("Set up your order desk.\n"))

	err := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Trade pair").
				Description("BASE_QUOTE, e.g. sBTC_sUSD").
				Value(&pairStr),
			huh.NewInput().
				Title("Ethereum RPC URL").
				Value(&rpcURL),
			huh.NewInput().
				Title("Gas price (gwei)").
				Value(&gasPriceStr),
			huh.NewSelect[string]().
				Title("Reference rate provider").
				Options(
					huh.NewOption("Binance", "binance"),
					huh.NewOption("Bybit", "bybit"),
					huh.NewOption("Hyperliquid", "hyperliquid"),
				).
				Value(&provider),
			huh.NewInput().
				Title("HTTP listen address").
				Value(&listenAddr),
			huh.NewConfirm().
				Title("Write config.yaml?").
				Value(&confirm),
		),
	).Run()
	if err != nil {
		return err
	}
	if !confirm {
		return fmt.Errorf("configuration aborted")
	}

	if _, err := config.PairFromString(pairStr); err != nil {
		return err
	}
	if _, err := decimal.NewFromString(gasPriceStr); err != nil {
		return fmt.Errorf("invalid gas price %q", gasPriceStr)
	}

	out := map[string]interface{}{
		"pair":           pairStr,
		"rpc_url":        rpcURL,
		"gas_price_gwei": gasPriceStr,
		"rates_provider": provider,
		"listen_addr":    listenAddr,
	}

	data, err := yaml.Marshal(out)
	if err != nil {
		return err
	}
	if err := os.WriteFile("config.yaml", data, 0o644); err != nil {
		return err
	}

	fmt.Println(lipgloss.NewStyle().Foreground(subtle).Render("config.yaml written. Export SYNTHEX_PRIVATE_KEY and start the desk."))
	return nil
}
