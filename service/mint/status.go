package mint

import (
	"context"
	"math/big"

	"github.com/clawplet/go-clawplet/contracts"
	"github.com/clawplet/go-clawplet/service/logger"
	"github.com/clawplet/go-clawplet/service/persist"
	"github.com/clawplet/go-clawplet/util"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
)

// MintStatus is a best-effort, on-demand view of the ownership registry; it is never
// cached or persisted
type MintStatus struct {
	HasMinted bool                     `json:"hasMinted"`
	Owner     *persist.EthereumAddress `json:"owner"`
}

type ownerOfCaller interface {
	OwnerOf(opts *bind.CallOpts, tokenID *big.Int) (common.Address, error)
}

// StatusChecker reports whether a derivative has been minted for an FID
type StatusChecker struct {
	caller ownerOfCaller
}

// NewStatusChecker creates a StatusChecker against the mint contract. An empty contract
// address yields a checker that always reports not-minted, matching the error collapse
// in Status.
func NewStatusChecker(ethClient bind.ContractCaller, contractAddress string) *StatusChecker {
	if contractAddress == "" {
		return &StatusChecker{}
	}
	caller, err := contracts.NewIERC721MetadataCaller(common.HexToAddress(contractAddress), ethClient)
	if err != nil {
		panic(err)
	}
	return &StatusChecker{caller: caller}
}

// Status queries ownerOf for the FID. Any failure, including a revert for a token that
// doesn't exist, collapses to not-minted: the registry's "no token" and "query error"
// cases are indistinguishable here, so callers must not read HasMinted=false as a hard
// guarantee of non-existence.
func (s *StatusChecker) Status(pCtx context.Context, pFID persist.FID) MintStatus {
	if s.caller == nil {
		logger.For(pCtx).Debug("no mint contract configured; reporting not minted")
		return MintStatus{}
	}

	owner, err := s.caller.OwnerOf(&bind.CallOpts{Context: pCtx}, pFID.BigInt())
	if err != nil {
		logger.For(pCtx).Debugf("ownerOf failed for fid %s, reporting not minted: %s", pFID, err)
		return MintStatus{}
	}

	return MintStatus{HasMinted: true, Owner: util.ToPointer(persist.EthereumAddress(owner.Hex()))}
}
