// Package oracle provides price sources for the vault: a Chainlink-style
// aggregator read over an EVM client, and a fixed-override variant used for
// demo determinism.
package oracle

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/synthlabs/vaultkeeper/internal/domain"
)

// aggregatorABI is the read surface of a Chainlink AggregatorV3 feed.
const aggregatorABI = `[
	{"inputs":[],"name":"decimals","outputs":[{"name":"","type":"uint8"}],"stateMutability":"view","type":"function"},
	{"inputs":[],"name":"latestRoundData","outputs":[
		{"name":"roundId","type":"uint80"},
		{"name":"answer","type":"int256"},
		{"name":"startedAt","type":"uint256"},
		{"name":"updatedAt","type":"uint256"},
		{"name":"answeredInRound","type":"uint80"}
	],"stateMutability":"view","type":"function"}
]`

// Feed reads the latest round of an on-chain aggregator. Every CurrentPrice
// call issues a fresh eth_call; only the feed's decimal precision, which is
// immutable per aggregator, is memoized.
type Feed struct {
	caller ethereum.ContractCaller
	addr   common.Address
	abi    abi.ABI
	logger *slog.Logger

	mu       sync.Mutex
	decimals *uint8
}

// NewFeed creates a Feed reading the aggregator at addr through caller.
func NewFeed(caller ethereum.ContractCaller, addr string, logger *slog.Logger) (*Feed, error) {
	parsed, err := abi.JSON(strings.NewReader(aggregatorABI))
	if err != nil {
		return nil, fmt.Errorf("oracle: parse aggregator abi: %w", err)
	}
	if !common.IsHexAddress(addr) {
		return nil, fmt.Errorf("oracle: invalid feed address %q", addr)
	}
	return &Feed{
		caller: caller,
		addr:   common.HexToAddress(addr),
		abi:    parsed,
		logger: logger.With(slog.String("component", "oracle")),
	}, nil
}

func (f *Feed) call(ctx context.Context, method string) ([]interface{}, error) {
	data, err := f.abi.Pack(method)
	if err != nil {
		return nil, fmt.Errorf("oracle: pack %s: %w", method, err)
	}
	out, err := f.caller.CallContract(ctx, ethereum.CallMsg{To: &f.addr, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("oracle: call %s: %w", method, err)
	}
	vals, err := f.abi.Unpack(method, out)
	if err != nil {
		return nil, fmt.Errorf("oracle: unpack %s: %w", method, err)
	}
	return vals, nil
}

// Decimals returns the feed's precision, querying it on first use.
func (f *Feed) Decimals(ctx context.Context) (uint8, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.decimals != nil {
		return *f.decimals, nil
	}
	vals, err := f.call(ctx, "decimals")
	if err != nil {
		return 0, err
	}
	dec, ok := vals[0].(uint8)
	if !ok {
		return 0, fmt.Errorf("oracle: unexpected decimals type %T", vals[0])
	}
	f.decimals = &dec
	return dec, nil
}

// CurrentPrice returns the latest validated round. A non-positive answer or a
// zero updatedAt timestamp (never updated) fails with domain.ErrInvalidPrice.
func (f *Feed) CurrentPrice(ctx context.Context) (domain.PriceQuote, error) {
	dec, err := f.Decimals(ctx)
	if err != nil {
		return domain.PriceQuote{}, err
	}

	vals, err := f.call(ctx, "latestRoundData")
	if err != nil {
		return domain.PriceQuote{}, err
	}
	answer, ok := vals[1].(*big.Int)
	if !ok {
		return domain.PriceQuote{}, fmt.Errorf("oracle: unexpected answer type %T", vals[1])
	}
	updatedAt, ok := vals[3].(*big.Int)
	if !ok {
		return domain.PriceQuote{}, fmt.Errorf("oracle: unexpected updatedAt type %T", vals[3])
	}

	if answer.Sign() <= 0 || updatedAt.Sign() == 0 {
		f.logger.WarnContext(ctx, "rejected oracle round",
			slog.String("answer", answer.String()),
			slog.String("updated_at", updatedAt.String()),
		)
		return domain.PriceQuote{}, domain.ErrInvalidPrice
	}

	return domain.PriceQuote{
		Price:    new(big.Int).Set(answer),
		Decimals: dec,
	}, nil
}

// Compile-time interface check.
var _ domain.PriceSource = (*Feed)(nil)
