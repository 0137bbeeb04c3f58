// Package chain produces the simulated on-chain identifiers recorded by the
// marketplace. Nothing here talks to a node: token ids, contract addresses
// and transaction hashes are generated locally in the formats a real chain
// would use.
package chain

import (
	"crypto/rand"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

var walletPattern = regexp.MustCompile(`^0x[a-fA-F0-9]{40}$`)

// IsWalletAddress reports whether s is a 0x-prefixed 20-byte hex address.
func IsWalletAddress(s string) bool {
	return walletPattern.MatchString(s) && common.IsHexAddress(s)
}

func randomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, fmt.Errorf("read random bytes: %w", err)
	}
	return b, nil
}

// NewTokenID returns a fresh token id of the form NFT_<unix millis>_<12 hex>.
func NewTokenID(now time.Time) (string, error) {
	b, err := randomBytes(6)
	if err != nil {
		return "", err
	}
	return "NFT_" + strconv.FormatInt(now.UnixMilli(), 10) + "_" + hex.EncodeToString(b), nil
}

// NewContractAddress derives a checksummed contract address the way a
// deployment would, from a random deployer and a time-based nonce.
func NewContractAddress(now time.Time) (string, error) {
	b, err := randomBytes(common.AddressLength)
	if err != nil {
		return "", err
	}
	deployer := common.BytesToAddress(b)
	return crypto.CreateAddress(deployer, uint64(now.UnixNano())).Hex(), nil
}

// TransactionHash returns a 0x-prefixed Keccak-256 hash over the sale
// parameters, the time and a random salt.
func TransactionHash(nftID, from, to string, price float64, at time.Time) (string, error) {
	salt, err := randomBytes(16)
	if err != nil {
		return "", err
	}
	var nanos [8]byte
	binary.BigEndian.PutUint64(nanos[:], uint64(at.UnixNano()))
	return crypto.Keccak256Hash(
		[]byte(nftID),
		[]byte(from),
		[]byte(to),
		[]byte(strconv.FormatFloat(price, 'f', -1, 64)),
		nanos[:],
		salt,
	).Hex(), nil
}
