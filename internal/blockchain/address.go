package blockchain

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/mr-tron/base58"
)

const (
	// AddressLength is the byte length of Sui addresses and object ids
	AddressLength = 32

	digestLength = 32
)

// NormalizeAddress lower-cases an address or object id and left-pads it
// to the canonical 0x + 64 hex digit form ("0x2" -> "0x000...002").
func NormalizeAddress(addr string) (string, error) {
	s := strings.ToLower(strings.TrimSpace(addr))
	s = strings.TrimPrefix(s, "0x")
	if s == "" || len(s) > AddressLength*2 {
		return "", fmt.Errorf("invalid address length: %q", addr)
	}
	s = "0x" + strings.Repeat("0", AddressLength*2-len(s)) + s
	if _, err := hexutil.Decode(s); err != nil {
		return "", fmt.Errorf("invalid address %q: %w", addr, err)
	}
	return s, nil
}

// IsValidAddress reports whether addr normalizes to a 32-byte address
func IsValidAddress(addr string) bool {
	_, err := NormalizeAddress(addr)
	return err == nil
}

func addressBytes(addr string) ([AddressLength]byte, error) {
	var out [AddressLength]byte
	norm, err := NormalizeAddress(addr)
	if err != nil {
		return out, err
	}
	raw, err := hexutil.Decode(norm)
	if err != nil {
		return out, err
	}
	copy(out[:], raw)
	return out, nil
}

// decodeDigest decodes a base58 transaction or object digest
func decodeDigest(digest string) ([]byte, error) {
	raw, err := base58.Decode(digest)
	if err != nil {
		return nil, fmt.Errorf("invalid digest %q: %w", digest, err)
	}
	if len(raw) != digestLength {
		return nil, fmt.Errorf("invalid digest %q: expected %d bytes, got %d", digest, digestLength, len(raw))
	}
	return raw, nil
}

// ValidateDigest checks that digest is a base58 encoded 32-byte value
func ValidateDigest(digest string) error {
	_, err := decodeDigest(digest)
	return err
}
