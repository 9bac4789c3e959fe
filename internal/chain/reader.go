package chain

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/synthlabs/vaultkeeper/internal/domain"
)

// Reader exposes the vault contract's read surface as a domain.SolvencyReader.
// Every call is a fresh eth_call against the latest block.
type Reader struct {
	caller ethereum.ContractCaller
	addr   common.Address
	abi    abi.ABI
}

// NewReader creates a Reader for the vault contract at addr.
func NewReader(caller ethereum.ContractCaller, addr string) (*Reader, error) {
	if !common.IsHexAddress(addr) {
		return nil, fmt.Errorf("chain: invalid vault address %q", addr)
	}
	parsed, err := parseVaultABI()
	if err != nil {
		return nil, err
	}
	return &Reader{
		caller: caller,
		addr:   common.HexToAddress(addr),
		abi:    parsed,
	}, nil
}

func (r *Reader) call(ctx context.Context, method string, args ...interface{}) ([]interface{}, error) {
	data, err := r.abi.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("chain: pack %s: %w", method, err)
	}
	out, err := r.caller.CallContract(ctx, ethereum.CallMsg{To: &r.addr, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("chain: call %s: %w", method, err)
	}
	vals, err := r.abi.Unpack(method, out)
	if err != nil {
		return nil, fmt.Errorf("chain: unpack %s: %w", method, err)
	}
	return vals, nil
}

// NeedsLiquidation reports the contract's solvency verdict for id.
func (r *Reader) NeedsLiquidation(ctx context.Context, id uint64) (bool, error) {
	vals, err := r.call(ctx, "needsLiquidation", new(big.Int).SetUint64(id))
	if err != nil {
		return false, err
	}
	needs, ok := vals[0].(bool)
	if !ok {
		return false, fmt.Errorf("chain: unexpected needsLiquidation type %T", vals[0])
	}
	return needs, nil
}

// HealthFactor returns the contract's health factor for id (10^18 scale).
func (r *Reader) HealthFactor(ctx context.Context, id uint64) (*big.Int, error) {
	vals, err := r.call(ctx, "healthFactor", new(big.Int).SetUint64(id))
	if err != nil {
		return nil, err
	}
	hf, ok := vals[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("chain: unexpected healthFactor type %T", vals[0])
	}
	return hf, nil
}

// Position returns the stored record for id, mapped into the domain model.
func (r *Reader) Position(ctx context.Context, id uint64) (domain.Position, error) {
	vals, err := r.call(ctx, "positions", new(big.Int).SetUint64(id))
	if err != nil {
		return domain.Position{}, err
	}
	owner, ok1 := vals[0].(common.Address)
	collateral, ok2 := vals[1].(*big.Int)
	debt, ok3 := vals[2].(*big.Int)
	open, ok4 := vals[3].(bool)
	if !ok1 || !ok2 || !ok3 || !ok4 {
		return domain.Position{}, fmt.Errorf("chain: unexpected positions tuple for id %d", id)
	}

	status := domain.PositionStatusClosed
	if open {
		status = domain.PositionStatusOpen
	}
	return domain.Position{
		ID:         id,
		Owner:      owner.Hex(),
		Collateral: collateral,
		Debt:       debt,
		Status:     status,
	}, nil
}

// Compile-time interface check.
var _ domain.SolvencyReader = (*Reader)(nil)
