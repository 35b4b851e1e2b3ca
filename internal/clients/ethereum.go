package clients

import (
	"context"
	"crypto/ecdsa"
	"math/big"
	"strings"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/vadiminshakov/synthex/internal/domain"
)

const exchangerABI = `[
	{"name":"feeRateForExchange","type":"function","stateMutability":"view","inputs":[{"name":"sourceCurrencyKey","type":"bytes32"},{"name":"destinationCurrencyKey","type":"bytes32"}],"outputs":[{"name":"","type":"uint256"}]},
	{"name":"maxSecsLeftInWaitingPeriod","type":"function","stateMutability":"view","inputs":[{"name":"account","type":"address"},{"name":"currencyKey","type":"bytes32"}],"outputs":[{"name":"","type":"uint256"}]}
]`

const systemStatusABI = `[
	{"name":"synthSuspension","type":"function","stateMutability":"view","inputs":[{"name":"currencyKey","type":"bytes32"}],"outputs":[{"name":"suspended","type":"bool"},{"name":"reason","type":"uint248"}]}
]`

const synthetixABI = `[
	{"name":"exchange","type":"function","stateMutability":"nonpayable","inputs":[{"name":"sourceCurrencyKey","type":"bytes32"},{"name":"sourceAmount","type":"uint256"},{"name":"destinationCurrencyKey","type":"bytes32"}],"outputs":[{"name":"amountReceived","type":"uint256"}]}
]`

const limitOrdersABI = `[
	{"name":"newOrder","type":"function","stateMutability":"payable","inputs":[{"name":"sourceCurrencyKey","type":"bytes32"},{"name":"sourceAmount","type":"uint256"},{"name":"destinationCurrencyKey","type":"bytes32"},{"name":"minDestinationAmount","type":"uint256"},{"name":"executionFee","type":"uint256"}],"outputs":[{"name":"orderID","type":"uint256"}]}
]`

// ContractAddresses are the deployed exchange contracts the client talks to.
type ContractAddresses struct {
	Exchanger    common.Address
	SystemStatus common.Address
	Synthetix    common.Address
	LimitOrders  common.Address
}

// EthExchange implements ExchangeClient and LimitOrderClient over a JSON-RPC
// ethereum node.
type EthExchange struct {
	eth       *ethclient.Client
	contracts ContractAddresses
	chainID   *big.Int

	exchanger    abi.ABI
	systemStatus abi.ABI
	synthetix    abi.ABI
	limitOrders  abi.ABI

	key  *ecdsa.PrivateKey
	from common.Address
}

// NewEthExchange dials the node and derives the signing address from the
// private key hex.
func NewEthExchange(ctx context.Context, rpcURL string, chainID int64, contracts ContractAddresses, privateKeyHex string) (*EthExchange, error) {
	eth, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, errors.Wrap(err, "dial ethereum node")
	}

	key := strings.TrimPrefix(strings.TrimPrefix(privateKeyHex, "0x"), "0X")
	privateKey, err := crypto.HexToECDSA(key)
	if err != nil {
		return nil, errors.Wrap(err, "parse private key")
	}

	pub, ok := privateKey.Public().(*ecdsa.PublicKey)
	if !ok {
		return nil, errors.New("error casting public key to ECDSA")
	}

	c := &EthExchange{
		eth:       eth,
		contracts: contracts,
		chainID:   big.NewInt(chainID),
		key:       privateKey,
		from:      crypto.PubkeyToAddress(*pub),
	}

	for _, a := range []struct {
		raw string
		dst *abi.ABI
	}{
		{exchangerABI, &c.exchanger},
		{systemStatusABI, &c.systemStatus},
		{synthetixABI, &c.synthetix},
		{limitOrdersABI, &c.limitOrders},
	} {
		parsed, err := abi.JSON(strings.NewReader(a.raw))
		if err != nil {
			return nil, errors.Wrap(err, "parse contract ABI")
		}
		*a.dst = parsed
	}

	return c, nil
}

// SignerAddress returns the wallet address transactions are sent from.
func (c *EthExchange) SignerAddress() common.Address {
	return c.from
}

func (c *EthExchange) call(ctx context.Context, contract common.Address, parsed abi.ABI, method string, args ...interface{}) ([]interface{}, error) {
	data, err := parsed.Pack(method, args...)
	if err != nil {
		return nil, errors.Wrapf(err, "pack %s", method)
	}

	out, err := c.eth.CallContract(ctx, ethereum.CallMsg{To: &contract, Data: data}, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "call %s", method)
	}

	res, err := parsed.Unpack(method, out)
	if err != nil {
		return nil, errors.Wrapf(err, "unpack %s result", method)
	}
	return res, nil
}

var weiUnit = decimal.New(1, 18)

func (c *EthExchange) FeeRate(ctx context.Context, source, dest string) (decimal.Decimal, error) {
	res, err := c.call(ctx, c.contracts.Exchanger, c.exchanger, "feeRateForExchange",
		domain.CurrencyKey(source), domain.CurrencyKey(dest))
	if err != nil {
		return decimal.Zero, err
	}

	rate, ok := res[0].(*big.Int)
	if !ok {
		return decimal.Zero, errors.New("unexpected feeRateForExchange result type")
	}
	return decimal.NewFromBigInt(rate, 0).Div(weiUnit), nil
}

func (c *EthExchange) IsSuspended(ctx context.Context, asset string) (bool, error) {
	res, err := c.call(ctx, c.contracts.SystemStatus, c.systemStatus, "synthSuspension",
		domain.CurrencyKey(asset))
	if err != nil {
		return false, err
	}

	suspended, ok := res[0].(bool)
	if !ok {
		return false, errors.New("unexpected synthSuspension result type")
	}
	return suspended, nil
}

func (c *EthExchange) WaitingPeriodSeconds(ctx context.Context, wallet common.Address, asset string) (int64, error) {
	res, err := c.call(ctx, c.contracts.Exchanger, c.exchanger, "maxSecsLeftInWaitingPeriod",
		wallet, domain.CurrencyKey(asset))
	if err != nil {
		return 0, err
	}

	secs, ok := res[0].(*big.Int)
	if !ok {
		return 0, errors.New("unexpected maxSecsLeftInWaitingPeriod result type")
	}
	return secs.Int64(), nil
}

func (c *EthExchange) EstimateGas(ctx context.Context, source string, amount *big.Int, dest string) (uint64, error) {
	data, err := c.synthetix.Pack("exchange",
		domain.CurrencyKey(source), amount, domain.CurrencyKey(dest))
	if err != nil {
		return 0, errors.Wrap(err, "pack exchange")
	}

	gas, err := c.eth.EstimateGas(ctx, ethereum.CallMsg{
		From: c.from,
		To:   &c.contracts.Synthetix,
		Data: data,
	})
	if err != nil {
		return 0, errors.Wrap(err, "estimate exchange gas")
	}
	return gas, nil
}

func (c *EthExchange) SubmitMarketOrder(ctx context.Context, source string, amount *big.Int, dest string, gas domain.GasParams) (domain.TxHandle, error) {
	data, err := c.synthetix.Pack("exchange",
		domain.CurrencyKey(source), amount, domain.CurrencyKey(dest))
	if err != nil {
		return domain.TxHandle{}, errors.Wrap(err, "pack exchange")
	}
	return c.send(ctx, c.contracts.Synthetix, big.NewInt(0), data, gas)
}

func (c *EthExchange) SubmitLimitOrder(ctx context.Context, req domain.OrderRequest) (domain.TxHandle, error) {
	minDestination := domain.ParseUnits(req.LimitPrice)
	data, err := c.limitOrders.Pack("newOrder",
		domain.CurrencyKey(req.Source), req.SourceAmount, domain.CurrencyKey(req.Destination),
		minDestination, req.ExecutionFee)
	if err != nil {
		return domain.TxHandle{}, errors.Wrap(err, "pack newOrder")
	}
	return c.send(ctx, c.contracts.LimitOrders, req.ExecutionFee, data, req.Gas)
}

func (c *EthExchange) send(ctx context.Context, to common.Address, value *big.Int, data []byte, gas domain.GasParams) (domain.TxHandle, error) {
	nonce, err := c.eth.PendingNonceAt(ctx, c.from)
	if err != nil {
		return domain.TxHandle{}, errors.Wrap(err, "fetch pending nonce")
	}

	tx := types.NewTransaction(nonce, to, value, gas.Limit, gweiToWei(gas.PriceGwei), data)
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(c.chainID), c.key)
	if err != nil {
		return domain.TxHandle{}, errors.Wrap(err, "sign transaction")
	}

	if err := c.eth.SendTransaction(ctx, signed); err != nil {
		return domain.TxHandle{}, errors.Wrap(err, "send transaction")
	}

	return domain.TxHandle{Hash: signed.Hash().Hex(), Nonce: nonce}, nil
}

var gweiInWei = decimal.New(1, 9)

func gweiToWei(gwei decimal.Decimal) *big.Int {
	return gwei.Mul(gweiInWei).BigInt()
}
