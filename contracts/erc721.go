package contracts

import (
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
)

// erc721MetadataABI covers the two read-only functions the service needs: tokenURI for
// resolving the legacy warplet image and ownerOf for mint status checks.
const erc721MetadataABI = `[
	{"type":"function","name":"tokenURI","stateMutability":"view","inputs":[{"name":"tokenId","type":"uint256"}],"outputs":[{"name":"","type":"string"}]},
	{"type":"function","name":"ownerOf","stateMutability":"view","inputs":[{"name":"tokenId","type":"uint256"}],"outputs":[{"name":"owner","type":"address"}]}
]`

// IERC721MetadataCaller is a read-only binding to an ERC-721 contract with the metadata extension
type IERC721MetadataCaller struct {
	contract *bind.BoundContract
}

// NewIERC721MetadataCaller creates a new read-only instance of the contract, bound to a specific deployed contract
func NewIERC721MetadataCaller(address common.Address, caller bind.ContractCaller) (*IERC721MetadataCaller, error) {
	parsed, err := abi.JSON(strings.NewReader(erc721MetadataABI))
	if err != nil {
		return nil, err
	}
	return &IERC721MetadataCaller{contract: bind.NewBoundContract(address, parsed, caller, nil, nil)}, nil
}

// TokenURI is a free data retrieval call binding the contract method 0xc87b56dd.
//
// Solidity: function tokenURI(uint256 tokenId) view returns(string)
func (c *IERC721MetadataCaller) TokenURI(opts *bind.CallOpts, tokenID *big.Int) (string, error) {
	var out []interface{}
	err := c.contract.Call(opts, &out, "tokenURI", tokenID)
	if err != nil {
		return "", err
	}
	return *abi.ConvertType(out[0], new(string)).(*string), nil
}

// OwnerOf is a free data retrieval call binding the contract method 0x6352211e.
//
// Solidity: function ownerOf(uint256 tokenId) view returns(address owner)
func (c *IERC721MetadataCaller) OwnerOf(opts *bind.CallOpts, tokenID *big.Int) (common.Address, error) {
	var out []interface{}
	err := c.contract.Call(opts, &out, "ownerOf", tokenID)
	if err != nil {
		return common.Address{}, err
	}
	return *abi.ConvertType(out[0], new(common.Address)).(*common.Address), nil
}
