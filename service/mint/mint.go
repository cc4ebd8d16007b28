package mint

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/clawplet/go-clawplet/env"
	"github.com/clawplet/go-clawplet/service/persist"
	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// mintTypeDescriptor names every field bound by the digest and its solidity type. The
// verifying contract hashes the same string, so it must never change shape.
const mintTypeDescriptor = "ClawpletMint(uint256 fid,address recipient,string cid,address contractAddress,uint256 chainId,uint256 deadline)"

// defaultDeadlineWindow is how long an authorization stays valid when the caller
// doesn't pick a deadline
const defaultDeadlineWindow = 30 * time.Minute

var (
	// ErrInvalidRecipient is returned when the recipient is not a well-formed address
	ErrInvalidRecipient = errors.New("recipient is not a valid ethereum address")

	// ErrMissingCID is returned when no content identifier was supplied
	ErrMissingCID = errors.New("cid is required")

	// ErrInvalidDeadline is returned when the supplied deadline is negative; a negative
	// value would wrap around in the uint256 encoding and never expire
	ErrInvalidDeadline = errors.New("deadline must not be negative")
)

var (
	bytes32Type, _ = abi.NewType("bytes32", "", nil)
	uint256Type, _ = abi.NewType("uint256", "", nil)
	addressType, _ = abi.NewType("address", "", nil)

	// (typeHash, fid, recipient, cidHash, contractAddress, chainId, deadline)
	mintSigArguments = abi.Arguments{
		{Type: bytes32Type},
		{Type: uint256Type},
		{Type: addressType},
		{Type: bytes32Type},
		{Type: addressType},
		{Type: uint256Type},
		{Type: uint256Type},
	}
)

// ErrMissingConfig is returned when required signer configuration is absent. It is a
// fatal construction error; configuration is never silently defaulted.
type ErrMissingConfig struct {
	Name string
}

func (e ErrMissingConfig) Error() string {
	return fmt.Sprintf("missing required configuration: %s", e.Name)
}

// SignInput is the client-controllable surface of an authorization request. The
// contract address, chain ID and signing key always come from server configuration so a
// client cannot redirect a mint to another contract or chain.
type SignInput struct {
	FID       persist.FID
	CID       string
	Recipient string
	// Deadline is an optional unix timestamp; defaults to now + 30 minutes
	Deadline *int64
}

// Authorization is a signed, field-bound permission for one mint. Every canonical value
// that was signed is echoed back so the client cannot misrepresent what was authorized.
// Authorizations are computed fresh per request and never stored.
type Authorization struct {
	Signature       string `json:"signature"`
	Signer          string `json:"signer"`
	Digest          string `json:"digest"`
	FID             string `json:"fid"`
	Recipient       string `json:"recipient"`
	CID             string `json:"cid"`
	ContractAddress string `json:"contractAddress"`
	ChainID         string `json:"chainId"`
	Deadline        string `json:"deadline"`
}

// SignerConfig is the server-held configuration for issuing authorizations
type SignerConfig struct {
	ContractAddress string
	ChainID         int64
	PrivateKey      string
}

// Signer issues mint authorizations under the server verifier key
type Signer struct {
	contractAddress common.Address
	chainID         *big.Int
	key             *ecdsa.PrivateKey
	signerAddress   common.Address

	// now is swapped out in tests
	now func() time.Time
}

// NewSigner creates a Signer, failing fast on missing or malformed configuration
func NewSigner(cfg SignerConfig) (*Signer, error) {
	if cfg.ContractAddress == "" {
		return nil, ErrMissingConfig{Name: "MINT_CONTRACT_ADDRESS"}
	}
	if !common.IsHexAddress(cfg.ContractAddress) {
		return nil, fmt.Errorf("mint contract address %s is not a valid address", cfg.ContractAddress)
	}
	if cfg.PrivateKey == "" {
		return nil, ErrMissingConfig{Name: "MINT_VERIFIER_PRIVATE_KEY"}
	}
	if cfg.ChainID <= 0 {
		return nil, ErrMissingConfig{Name: "CHAIN_ID"}
	}

	key, err := crypto.HexToECDSA(strings.TrimPrefix(cfg.PrivateKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("error parsing verifier key: %w", err)
	}

	return &Signer{
		contractAddress: common.HexToAddress(cfg.ContractAddress),
		chainID:         big.NewInt(cfg.ChainID),
		key:             key,
		signerAddress:   crypto.PubkeyToAddress(key.PublicKey),
		now:             time.Now,
	}, nil
}

// NewSignerFromEnv creates a Signer from server environment configuration
func NewSignerFromEnv() (*Signer, error) {
	return NewSigner(SignerConfig{
		ContractAddress: env.GetString("MINT_CONTRACT_ADDRESS"),
		ChainID:         env.GetInt64("CHAIN_ID"),
		PrivateKey:      env.GetString("MINT_VERIFIER_PRIVATE_KEY"),
	})
}

// Address returns the address of the verifier key
func (s *Signer) Address() common.Address {
	return s.signerAddress
}

// Sign derives the typed digest for the input and signs it with the verifier key using
// EIP-191 personal-message signing over the raw 32-byte digest
func (s *Signer) Sign(pCtx context.Context, pInput SignInput) (Authorization, error) {
	if pInput.CID == "" {
		return Authorization{}, ErrMissingCID
	}
	if !common.IsHexAddress(pInput.Recipient) {
		return Authorization{}, ErrInvalidRecipient
	}
	recipient := common.HexToAddress(pInput.Recipient)

	deadline := new(big.Int)
	if pInput.Deadline != nil {
		if *pInput.Deadline < 0 {
			return Authorization{}, ErrInvalidDeadline
		}
		deadline.SetInt64(*pInput.Deadline)
	} else {
		deadline.SetInt64(s.now().Add(defaultDeadlineWindow).Unix())
	}

	digest, err := s.digest(pInput.FID, recipient, pInput.CID, deadline)
	if err != nil {
		return Authorization{}, err
	}

	signature, err := crypto.Sign(accounts.TextHash(digest.Bytes()), s.key)
	if err != nil {
		return Authorization{}, fmt.Errorf("error signing digest: %w", err)
	}
	// Contracts expect the legacy 27/28 recovery id
	signature[64] += 27

	return Authorization{
		Signature:       hexutil.Encode(signature),
		Signer:          s.signerAddress.Hex(),
		Digest:          digest.Hex(),
		FID:             pInput.FID.String(),
		Recipient:       recipient.Hex(),
		CID:             pInput.CID,
		ContractAddress: s.contractAddress.Hex(),
		ChainID:         s.chainID.String(),
		Deadline:        deadline.String(),
	}, nil
}

// digest deterministically hashes the bound fields. The cid is hashed rather than
// embedded so the digest stays fixed-width regardless of identifier length.
func (s *Signer) digest(fid persist.FID, recipient common.Address, cid string, deadline *big.Int) (common.Hash, error) {
	typeHash := crypto.Keccak256Hash([]byte(mintTypeDescriptor))
	cidHash := crypto.Keccak256Hash([]byte(cid))

	packed, err := mintSigArguments.Pack(
		[32]byte(typeHash),
		fid.BigInt(),
		recipient,
		[32]byte(cidHash),
		s.contractAddress,
		s.chainID,
		deadline,
	)
	if err != nil {
		return common.Hash{}, fmt.Errorf("error encoding digest fields: %w", err)
	}

	return crypto.Keccak256Hash(packed), nil
}
