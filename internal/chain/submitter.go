package chain

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"log/slog"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/synthlabs/vaultkeeper/internal/domain"
)

// SubmitterConfig holds the transaction parameters for the EVM submitter.
type SubmitterConfig struct {
	VaultAddress string
	ChainID      int64
	GasLimit     uint64
}

// Submitter signs and broadcasts liquidate transactions against the vault
// contract, blocking until the receipt is mined. A mined-but-reverted
// transaction is a failure submission; transport errors are returned as
// errors for the caller to classify.
type Submitter struct {
	client   *ethclient.Client
	key      *ecdsa.PrivateKey
	from     common.Address
	addr     common.Address
	abi      abi.ABI
	chainID  *big.Int
	gasLimit uint64
	logger   *slog.Logger
}

// NewSubmitter creates a Submitter from a hex-encoded secp256k1 private key.
func NewSubmitter(client *ethclient.Client, privateKeyHex string, cfg SubmitterConfig, logger *slog.Logger) (*Submitter, error) {
	if !common.IsHexAddress(cfg.VaultAddress) {
		return nil, fmt.Errorf("chain: invalid vault address %q", cfg.VaultAddress)
	}
	key, err := ethcrypto.HexToECDSA(strings.TrimPrefix(privateKeyHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("chain: invalid private key: %w", err)
	}
	parsed, err := parseVaultABI()
	if err != nil {
		return nil, err
	}
	return &Submitter{
		client:   client,
		key:      key,
		from:     ethcrypto.PubkeyToAddress(key.PublicKey),
		addr:     common.HexToAddress(cfg.VaultAddress),
		abi:      parsed,
		chainID:  big.NewInt(cfg.ChainID),
		gasLimit: cfg.GasLimit,
		logger:   logger.With(slog.String("component", "submitter")),
	}, nil
}

// From returns the keeper's sending address.
func (s *Submitter) From() common.Address {
	return s.from
}

// SubmitLiquidation encodes liquidate(id), signs it, broadcasts it, and waits
// for the receipt.
func (s *Submitter) SubmitLiquidation(ctx context.Context, id uint64) (domain.Submission, error) {
	data, err := s.abi.Pack("liquidate", new(big.Int).SetUint64(id))
	if err != nil {
		return domain.Submission{}, fmt.Errorf("chain: pack liquidate: %w", err)
	}

	nonce, err := s.client.PendingNonceAt(ctx, s.from)
	if err != nil {
		return domain.Submission{}, fmt.Errorf("chain: nonce: %w", err)
	}
	gasPrice, err := s.client.SuggestGasPrice(ctx)
	if err != nil {
		return domain.Submission{}, fmt.Errorf("chain: gas price: %w", err)
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &s.addr,
		Gas:      s.gasLimit,
		GasPrice: gasPrice,
		Data:     data,
	})
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(s.chainID), s.key)
	if err != nil {
		return domain.Submission{}, fmt.Errorf("chain: sign liquidate: %w", err)
	}

	if err := s.client.SendTransaction(ctx, signed); err != nil {
		return domain.Submission{}, fmt.Errorf("chain: send liquidate: %w", err)
	}

	txHash := signed.Hash().Hex()
	s.logger.InfoContext(ctx, "liquidation transaction sent",
		slog.Uint64("position_id", id),
		slog.String("tx_hash", txHash),
	)

	receipt, err := bind.WaitMined(ctx, s.client, signed)
	if err != nil {
		return domain.Submission{}, fmt.Errorf("chain: wait mined %s: %w", txHash, err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return domain.Submission{
			Status:       domain.SubmissionFailure,
			TxHash:       txHash,
			ErrorMessage: "transaction reverted",
		}, nil
	}
	return domain.Submission{
		Status: domain.SubmissionSuccess,
		TxHash: txHash,
	}, nil
}

// Dial connects to an EVM JSON-RPC endpoint.
func Dial(ctx context.Context, url string) (*ethclient.Client, error) {
	client, err := ethclient.DialContext(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("chain: dial %s: %w", url, err)
	}
	return client, nil
}

// Compile-time interface check.
var _ domain.ActionSubmitter = (*Submitter)(nil)
