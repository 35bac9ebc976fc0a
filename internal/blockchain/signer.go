package blockchain

import (
	"context"
	"crypto/ed25519"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/btcsuite/btcd/btcutil/bech32"
	"golang.org/x/crypto/blake2b"
)

const (
	ed25519Flag = 0x00

	// privateKeyHRP is the bech32 prefix of exported Sui private keys
	privateKeyHRP = "suiprivkey"
)

// transactionIntent prefixes transaction bytes before hashing:
// scope TransactionData, version V0, app Sui
var transactionIntent = []byte{0, 0, 0}

// SignedTransaction is what a wallet hands back: base64 BCS bytes and a
// base64 serialized signature.
type SignedTransaction struct {
	Bytes     string
	Signature string
}

// Keypair is an ed25519 Sui key
type Keypair struct {
	priv ed25519.PrivateKey
}

// NewKeypairFromSeed derives a keypair from a 32-byte ed25519 seed
func NewKeypairFromSeed(seed []byte) (*Keypair, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("ed25519 seed must be %d bytes, got %d", ed25519.SeedSize, len(seed))
	}
	return &Keypair{priv: ed25519.NewKeyFromSeed(seed)}, nil
}

// ParsePrivateKey accepts a bech32 "suiprivkey1..." string, a base64 keystore
// entry (flag byte + 32-byte seed), or a hex encoded 32-byte seed.
func ParsePrivateKey(key string) (*Keypair, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, fmt.Errorf("private key is empty")
	}

	if strings.HasPrefix(key, privateKeyHRP) {
		hrp, data, err := bech32.Decode(key)
		if err != nil {
			return nil, fmt.Errorf("invalid bech32 private key: %w", err)
		}
		if hrp != privateKeyHRP {
			return nil, fmt.Errorf("unexpected private key prefix %q", hrp)
		}
		raw, err := bech32.ConvertBits(data, 5, 8, false)
		if err != nil {
			return nil, fmt.Errorf("invalid bech32 private key: %w", err)
		}
		return keypairFromFlagged(raw)
	}

	if strings.HasPrefix(key, "0x") {
		seed, err := hex.DecodeString(strings.TrimPrefix(key, "0x"))
		if err != nil {
			return nil, fmt.Errorf("invalid hex private key: %w", err)
		}
		return NewKeypairFromSeed(seed)
	}

	raw, err := base64.StdEncoding.DecodeString(key)
	if err != nil {
		return nil, fmt.Errorf("invalid base64 private key: %w", err)
	}
	if len(raw) == ed25519.SeedSize {
		return NewKeypairFromSeed(raw)
	}
	return keypairFromFlagged(raw)
}

func keypairFromFlagged(raw []byte) (*Keypair, error) {
	if len(raw) != ed25519.SeedSize+1 {
		return nil, fmt.Errorf("private key must be %d bytes with scheme flag, got %d", ed25519.SeedSize+1, len(raw))
	}
	if raw[0] != ed25519Flag {
		return nil, fmt.Errorf("unsupported signature scheme flag 0x%02x, only ed25519 is supported", raw[0])
	}
	return NewKeypairFromSeed(raw[1:])
}

// LoadKeystore reads a sui.keystore file (JSON array of base64 keys) and
// returns the key for address, or the first key when address is empty.
func LoadKeystore(path, address string) (*Keypair, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read keystore: %w", err)
	}

	var entries []string
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse keystore: %w", err)
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("keystore %s is empty", path)
	}

	want := ""
	if address != "" {
		if want, err = NormalizeAddress(address); err != nil {
			return nil, err
		}
	}

	for _, entry := range entries {
		kp, err := ParsePrivateKey(entry)
		if err != nil {
			continue
		}
		if want == "" || kp.Address() == want {
			return kp, nil
		}
	}

	if want != "" {
		return nil, fmt.Errorf("no ed25519 key for %s in keystore %s", want, path)
	}
	return nil, fmt.Errorf("no usable ed25519 key in keystore %s", path)
}

func (k *Keypair) PublicKey() ed25519.PublicKey {
	return k.priv.Public().(ed25519.PublicKey)
}

// Address derives the Sui address: blake2b-256(flag || public key)
func (k *Keypair) Address() string {
	buf := append([]byte{ed25519Flag}, k.PublicKey()...)
	sum := blake2b.Sum256(buf)
	return "0x" + hex.EncodeToString(sum[:])
}

// SignTransactionBytes signs BCS TransactionData and returns the base64
// serialized signature flag || signature || public key.
func (k *Keypair) SignTransactionBytes(txBytes []byte) string {
	msg := make([]byte, 0, len(transactionIntent)+len(txBytes))
	msg = append(msg, transactionIntent...)
	msg = append(msg, txBytes...)
	digest := blake2b.Sum256(msg)

	sig := ed25519.Sign(k.priv, digest[:])

	out := make([]byte, 0, 1+ed25519.SignatureSize+ed25519.PublicKeySize)
	out = append(out, ed25519Flag)
	out = append(out, sig...)
	out = append(out, k.PublicKey()...)
	return base64.StdEncoding.EncodeToString(out)
}

// KeystoreSigner is a wallet backed by a local key. It builds the
// transaction against the node and signs it.
type KeystoreSigner struct {
	key      *Keypair
	resolver BuildResolver
}

func NewKeystoreSigner(key *Keypair, resolver BuildResolver) *KeystoreSigner {
	return &KeystoreSigner{key: key, resolver: resolver}
}

func (s *KeystoreSigner) Address() string {
	return s.key.Address()
}

// SignTransaction sets the sender when unset, builds and signs tx
func (s *KeystoreSigner) SignTransaction(ctx context.Context, tx *Transaction) (*SignedTransaction, error) {
	if tx.Sender() == "" {
		tx.SetSender(s.Address())
	}

	txBytes, err := tx.Build(ctx, s.resolver)
	if err != nil {
		return nil, fmt.Errorf("build transaction: %w", err)
	}

	return &SignedTransaction{
		Bytes:     base64.StdEncoding.EncodeToString(txBytes),
		Signature: s.key.SignTransactionBytes(txBytes),
	}, nil
}
