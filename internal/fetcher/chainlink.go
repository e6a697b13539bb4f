package fetcher

import (
	"context"
	"errors"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const aggregatorABIJSON = `[{"inputs":[],"name":"decimals","outputs":[{"internalType":"uint8","name":"","type":"uint8"}],"stateMutability":"view","type":"function"},{"inputs":[],"name":"latestRoundData","outputs":[{"internalType":"uint80","name":"roundId","type":"uint80"},{"internalType":"int256","name":"answer","type":"int256"},{"internalType":"uint256","name":"startedAt","type":"uint256"},{"internalType":"uint256","name":"updatedAt","type":"uint256"},{"internalType":"uint80","name":"answeredInRound","type":"uint80"}],"stateMutability":"view","type":"function"}]`

var aggregatorABI abi.ABI

func init() {
	parsed, err := abi.JSON(strings.NewReader(aggregatorABIJSON))
	if err != nil {
		panic("failed to parse aggregator ABI: " + err.Error())
	}
	aggregatorABI = parsed
}

// ChainlinkOptions parameterise the on-chain spot-price fetcher.
type ChainlinkOptions struct {
	RPCURL      string
	FeedAddress string
	Timeout     time.Duration
}

// Chainlink reads the latest answer from a Chainlink price-feed aggregator,
// used as a live spot cross-check against the provider's last daily close.
type Chainlink struct {
	opts      ChainlinkOptions
	logger    zerolog.Logger
	client    *ethclient.Client
	clientMux sync.Mutex

	feedDecimals    int32
	feedDecimalsSet bool
}

// NewChainlink builds an on-chain spot-price fetcher.
func NewChainlink(opts ChainlinkOptions, logger zerolog.Logger) *Chainlink {
	return &Chainlink{opts: opts, logger: logger.With().Str("component", "chainlink_fetcher").Logger()}
}

// FetchSpot retrieves the feed's latest price and its update time.
func (c *Chainlink) FetchSpot(ctx context.Context) (decimal.Decimal, time.Time, error) {
	if c.opts.RPCURL == "" {
		return decimal.Decimal{}, time.Time{}, errors.New("ethereum rpc url not configured")
	}
	if c.opts.FeedAddress == "" {
		return decimal.Decimal{}, time.Time{}, errors.New("chainlink feed address not configured")
	}

	timeout := c.opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	var cancel context.CancelFunc
	ctx, cancel = context.WithTimeout(ctx, timeout)
	defer cancel()

	client, err := c.getClient(ctx)
	if err != nil {
		return decimal.Decimal{}, time.Time{}, err
	}

	addr := common.HexToAddress(c.opts.FeedAddress)

	feedDecimals, err := c.getDecimals(ctx, client, addr)
	if err != nil {
		return decimal.Decimal{}, time.Time{}, err
	}

	payload, err := aggregatorABI.Pack("latestRoundData")
	if err != nil {
		return decimal.Decimal{}, time.Time{}, err
	}

	res, err := client.CallContract(ctx, ethereum.CallMsg{To: &addr, Data: payload}, nil)
	if err != nil {
		return decimal.Decimal{}, time.Time{}, err
	}

	outputs, err := aggregatorABI.Unpack("latestRoundData", res)
	if err != nil {
		return decimal.Decimal{}, time.Time{}, err
	}
	if len(outputs) != 5 {
		return decimal.Decimal{}, time.Time{}, errors.New("unexpected latestRoundData response")
	}

	answer, ok := outputs[1].(*big.Int)
	if !ok {
		return decimal.Decimal{}, time.Time{}, errors.New("failed to decode latestRoundData answer")
	}
	if answer.Sign() <= 0 {
		return decimal.Decimal{}, time.Time{}, errors.New("feed answer not positive")
	}

	updatedAtRaw, ok := outputs[3].(*big.Int)
	if !ok {
		return decimal.Decimal{}, time.Time{}, errors.New("failed to decode latestRoundData updatedAt")
	}

	spot := decimal.NewFromBigInt(answer, -feedDecimals)
	updatedAt := time.Unix(updatedAtRaw.Int64(), 0).UTC()

	return spot, updatedAt, nil
}

func (c *Chainlink) getDecimals(ctx context.Context, client *ethclient.Client, addr common.Address) (int32, error) {
	if c.feedDecimalsSet {
		return c.feedDecimals, nil
	}

	payload, err := aggregatorABI.Pack("decimals")
	if err != nil {
		return 0, err
	}

	res, err := client.CallContract(ctx, ethereum.CallMsg{To: &addr, Data: payload}, nil)
	if err != nil {
		return 0, err
	}

	outputs, err := aggregatorABI.Unpack("decimals", res)
	if err != nil {
		return 0, err
	}
	if len(outputs) != 1 {
		return 0, errors.New("unexpected decimals response")
	}

	dec, ok := outputs[0].(uint8)
	if !ok {
		return 0, errors.New("failed to decode decimals output")
	}

	c.feedDecimals = int32(dec)
	c.feedDecimalsSet = true
	return c.feedDecimals, nil
}

func (c *Chainlink) getClient(ctx context.Context) (*ethclient.Client, error) {
	c.clientMux.Lock()
	defer c.clientMux.Unlock()

	if c.client != nil {
		return c.client, nil
	}

	client, err := ethclient.DialContext(ctx, c.opts.RPCURL)
	if err != nil {
		return nil, err
	}
	c.client = client
	return client, nil
}

var _ SpotPriceFetcher = (*Chainlink)(nil)
