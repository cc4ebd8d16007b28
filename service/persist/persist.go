package persist

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/segmentio/ksuid"
)

// DBID represents a database ID
type DBID string

// GenerateID generates an application-wide unique ID
func GenerateID() DBID {
	id, err := ksuid.NewRandom()
	if err != nil {
		panic(err)
	}
	return DBID(id.String())
}

func (d DBID) String() string {
	return string(d)
}

const (
	// URITypeIPFS represents an IPFS URI
	URITypeIPFS URIType = "ipfs"
	// URITypeArweave represents an Arweave URI
	URITypeArweave URIType = "arweave"
	// URITypeHTTP represents an HTTP URI
	URITypeHTTP URIType = "http"
	// URITypeIPFSGateway represents an IPFS gateway URI
	URITypeIPFSGateway URIType = "ipfs-gateway"
	// URITypeBase64JSON represents a base64 encoded JSON document
	URITypeBase64JSON URIType = "base64json"
	// URITypeJSON represents a JSON document
	URITypeJSON URIType = "json"
	// URITypeUnknown represents an unknown URI type
	URITypeUnknown URIType = "unknown"
	// URITypeNone represents no URI
	URITypeNone URIType = "none"
)

// URIType represents the type of a token URI
type URIType string

// TokenURI represents the URI for an NFT's metadata
type TokenURI string

// TokenMetadata is a decoded JSON metadata document for a token
type TokenMetadata map[string]any

func (uri TokenURI) String() string {
	return string(uri)
}

// Type returns the type of the token URI
func (uri TokenURI) Type() URIType {
	asString := strings.TrimSpace(uri.String())
	switch {
	case strings.HasPrefix(asString, "ipfs://"), strings.HasPrefix(asString, "Qm"), strings.HasPrefix(asString, "bafy"):
		return URITypeIPFS
	case strings.HasPrefix(asString, "ar://"), strings.HasPrefix(asString, "arweave://"):
		return URITypeArweave
	case strings.HasPrefix(asString, "data:application/json;base64,"):
		return URITypeBase64JSON
	case strings.Contains(asString, "/ipfs/"):
		return URITypeIPFSGateway
	case strings.HasPrefix(asString, "http"):
		return URITypeHTTP
	case strings.HasPrefix(asString, "{"), strings.HasPrefix(asString, "data:application/json"):
		return URITypeJSON
	case asString == "":
		return URITypeNone
	default:
		return URITypeUnknown
	}
}

// EthereumAddress represents an Ethereum address
type EthereumAddress string

func (a EthereumAddress) String() string {
	return normalizeAddress(strings.ToLower(string(a)))
}

// Address returns the ethereum address byte representation of the address
func (a EthereumAddress) Address() common.Address {
	return common.HexToAddress(a.String())
}

// Value implements the driver.Valuer interface for addresses
func (a EthereumAddress) Value() (driver.Value, error) {
	return a.String(), nil
}

// Scan implements the sql.Scanner interface for addresses
func (a *EthereumAddress) Scan(src any) error {
	if src == nil {
		*a = EthereumAddress("")
		return nil
	}
	*a = EthereumAddress(src.(string))
	return nil
}

func normalizeAddress(address string) string {
	withoutPrefix := strings.TrimPrefix(address, "0x")
	if len(withoutPrefix) < 40 {
		return ""
	}
	return "0x" + withoutPrefix[len(withoutPrefix)-40:]
}

// FID is the Farcaster ID naming one warplet source asset and, by extension, at most
// one transform and at most one minted derivative. Assigned externally, never generated here.
type FID int64

func (f FID) String() string {
	return fmt.Sprint(int64(f))
}

// BigInt returns the FID as a big.Int for use as an ERC-721 token ID
func (f FID) BigInt() *big.Int {
	return new(big.Int).SetInt64(int64(f))
}

// CreationTime marks the time at which a row was created
type CreationTime time.Time

func (c CreationTime) Time() time.Time {
	return time.Time(c)
}

// Value implements the driver.Valuer interface for creation times
func (c CreationTime) Value() (driver.Value, error) {
	return c.Time(), nil
}

// Scan implements the sql.Scanner interface for creation times
func (c *CreationTime) Scan(src any) error {
	if src == nil {
		*c = CreationTime{}
		return nil
	}
	*c = CreationTime(src.(time.Time))
	return nil
}

// MarshalJSON implements the json.Marshaler interface for creation times
func (c CreationTime) MarshalJSON() ([]byte, error) {
	return []byte(`"` + c.Time().UTC().Format(time.RFC3339Nano) + `"`), nil
}

// UnmarshalJSON implements the json.Unmarshaler interface for creation times
func (c *CreationTime) UnmarshalJSON(b []byte) error {
	t := time.Time{}
	if err := json.Unmarshal(b, &t); err != nil {
		return err
	}
	*c = CreationTime(t)
	return nil
}
