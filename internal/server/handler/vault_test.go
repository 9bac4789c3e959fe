package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/synthlabs/vaultkeeper/internal/domain"
	"github.com/synthlabs/vaultkeeper/internal/vault"
)

type stubVaultLedger struct {
	minHF *big.Int
	err   error
}

func (s *stubVaultLedger) MinHealthFactor() *big.Int {
	return new(big.Int).Set(s.minHF)
}

func (s *stubVaultLedger) CollateralForMint(_ context.Context, mintUsd uint64) (*big.Int, error) {
	if s.err != nil {
		return nil, s.err
	}
	quote := domain.PriceQuote{Price: big.NewInt(310_000_000_000), Decimals: 8}
	return vault.CollateralForMint(mintUsd, quote, s.minHF)
}

func newVaultHandler(errOn error) *VaultHandler {
	return NewVaultHandler(
		&stubVaultLedger{minHF: big.NewInt(1_200_000_000_000_000_000), err: errOn},
		VaultParams{
			CollateralSymbol: "WETH",
			LiabilitySymbol:  "sUSD",
			CustodyAccount:   "vault",
		},
		slog.Default(),
	)
}

func TestGetParams(t *testing.T) {
	h := newVaultHandler(nil)

	rec := httptest.NewRecorder()
	h.GetParams(rec, httptest.NewRequest(http.MethodGet, "/api/vault/params", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "1200000000000000000", resp["min_health_factor"])
	assert.Equal(t, "WETH", resp["collateral_symbol"])
	assert.Equal(t, "sUSD", resp["liability_symbol"])
	assert.Equal(t, "vault", resp["custody_account"])
}

func TestCollateralForMintEndpoint(t *testing.T) {
	h := newVaultHandler(nil)

	rec := httptest.NewRecorder()
	h.CollateralForMint(rec, httptest.NewRequest(http.MethodGet, "/api/vault/collateral-for-mint?mint=1000", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Mint       uint64 `json:"mint"`
		Collateral string `json:"collateral"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, uint64(1000), resp.Mint)
	assert.Equal(t, "387096774193548388", resp.Collateral)
}

func TestCollateralForMintEndpointValidation(t *testing.T) {
	h := newVaultHandler(nil)

	for _, target := range []string{
		"/api/vault/collateral-for-mint",
		"/api/vault/collateral-for-mint?mint=0",
		"/api/vault/collateral-for-mint?mint=abc",
	} {
		rec := httptest.NewRecorder()
		h.CollateralForMint(rec, httptest.NewRequest(http.MethodGet, target, nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
	}
}

func TestCollateralForMintOracleFailure(t *testing.T) {
	h := newVaultHandler(domain.ErrInvalidPrice)

	rec := httptest.NewRecorder()
	h.CollateralForMint(rec, httptest.NewRequest(http.MethodGet, "/api/vault/collateral-for-mint?mint=1000", nil))
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}
