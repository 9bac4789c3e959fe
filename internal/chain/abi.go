// Package chain provides the EVM-facing boundary: a read-only solvency view
// over the deployed vault contract and a transaction submitter that encodes,
// signs, and dispatches liquidate calls.
package chain

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// vaultABI is the external surface of the deployed vault contract consumed by
// the keeper.
const vaultABI = `[
	{"inputs":[{"name":"id","type":"uint256"}],"name":"liquidate","outputs":[],"stateMutability":"nonpayable","type":"function"},
	{"inputs":[{"name":"id","type":"uint256"}],"name":"needsLiquidation","outputs":[{"name":"","type":"bool"}],"stateMutability":"view","type":"function"},
	{"inputs":[{"name":"id","type":"uint256"}],"name":"healthFactor","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
	{"inputs":[{"name":"id","type":"uint256"}],"name":"positions","outputs":[
		{"name":"owner","type":"address"},
		{"name":"collateral","type":"uint256"},
		{"name":"debt","type":"uint256"},
		{"name":"open","type":"bool"}
	],"stateMutability":"view","type":"function"}
]`

func parseVaultABI() (abi.ABI, error) {
	parsed, err := abi.JSON(strings.NewReader(vaultABI))
	if err != nil {
		return abi.ABI{}, fmt.Errorf("chain: parse vault abi: %w", err)
	}
	return parsed, nil
}
