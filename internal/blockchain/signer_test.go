package blockchain

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/btcsuite/btcd/btcutil/bech32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/blake2b"
)

func testSeed(b byte) []byte {
	return bytes.Repeat([]byte{b}, ed25519.SeedSize)
}

func keystoreEntry(seed []byte) string {
	return base64.StdEncoding.EncodeToString(append([]byte{ed25519Flag}, seed...))
}

func TestParsePrivateKey(t *testing.T) {
	seed := testSeed(7)
	want, err := NewKeypairFromSeed(seed)
	require.NoError(t, err)

	conv, err := bech32.ConvertBits(append([]byte{ed25519Flag}, seed...), 8, 5, true)
	require.NoError(t, err)
	bech, err := bech32.Encode(privateKeyHRP, conv)
	require.NoError(t, err)

	tests := []struct {
		name string
		key  string
	}{
		{"bech32", bech},
		{"keystore base64", keystoreEntry(seed)},
		{"bare base64 seed", base64.StdEncoding.EncodeToString(seed)},
		{"hex seed", "0x" + hex.EncodeToString(seed)},
		{"surrounding whitespace", "  " + keystoreEntry(seed) + "\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kp, err := ParsePrivateKey(tt.key)
			require.NoError(t, err)
			assert.Equal(t, want.Address(), kp.Address())
		})
	}
}

func TestParsePrivateKeyErrors(t *testing.T) {
	secp := base64.StdEncoding.EncodeToString(append([]byte{0x01}, testSeed(1)...))

	tests := []struct {
		name    string
		key     string
		wantErr string
	}{
		{"empty", " ", "empty"},
		{"not base64", "!!!", "invalid base64"},
		{"wrong length", base64.StdEncoding.EncodeToString([]byte{0, 1, 2}), "bytes with scheme flag"},
		{"secp256k1 flag", secp, "only ed25519"},
		{"short hex", "0xabcd", "seed must be 32 bytes"},
		{"bad bech32 checksum", "suiprivkey1qqqqqqqq", "invalid bech32"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParsePrivateKey(tt.key)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestKeypairAddress(t *testing.T) {
	kp, err := NewKeypairFromSeed(testSeed(9))
	require.NoError(t, err)

	sum := blake2b.Sum256(append([]byte{ed25519Flag}, kp.PublicKey()...))
	assert.Equal(t, "0x"+hex.EncodeToString(sum[:]), kp.Address())
	assert.True(t, IsValidAddress(kp.Address()))
}

func TestSignTransactionBytes(t *testing.T) {
	kp, err := NewKeypairFromSeed(testSeed(3))
	require.NoError(t, err)

	txBytes := []byte{0x00, 0x00, 0x01, 0x02}
	raw, err := base64.StdEncoding.DecodeString(kp.SignTransactionBytes(txBytes))
	require.NoError(t, err)
	require.Len(t, raw, 1+ed25519.SignatureSize+ed25519.PublicKeySize)

	assert.Equal(t, byte(ed25519Flag), raw[0])
	sig := raw[1 : 1+ed25519.SignatureSize]
	pub := raw[1+ed25519.SignatureSize:]
	assert.Equal(t, []byte(kp.PublicKey()), pub)

	digest := blake2b.Sum256(append([]byte{0, 0, 0}, txBytes...))
	assert.True(t, ed25519.Verify(kp.PublicKey(), digest[:], sig))
}

func TestLoadKeystore(t *testing.T) {
	first, err := NewKeypairFromSeed(testSeed(1))
	require.NoError(t, err)
	second, err := NewKeypairFromSeed(testSeed(2))
	require.NoError(t, err)

	entries := []string{
		base64.StdEncoding.EncodeToString(append([]byte{0x01}, testSeed(5)...)), // secp256k1, skipped
		keystoreEntry(testSeed(1)),
		keystoreEntry(testSeed(2)),
	}
	data, err := json.Marshal(entries)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "sui.keystore")
	require.NoError(t, os.WriteFile(path, data, 0o600))

	t.Run("first usable key", func(t *testing.T) {
		kp, err := LoadKeystore(path, "")
		require.NoError(t, err)
		assert.Equal(t, first.Address(), kp.Address())
	})

	t.Run("key for address", func(t *testing.T) {
		kp, err := LoadKeystore(path, second.Address())
		require.NoError(t, err)
		assert.Equal(t, second.Address(), kp.Address())
	})

	t.Run("unknown address", func(t *testing.T) {
		_, err := LoadKeystore(path, "0x1")
		assert.ErrorContains(t, err, "no ed25519 key")
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadKeystore(filepath.Join(t.TempDir(), "missing"), "")
		assert.ErrorContains(t, err, "failed to read keystore")
	})

	t.Run("empty keystore", func(t *testing.T) {
		empty := filepath.Join(t.TempDir(), "empty.keystore")
		require.NoError(t, os.WriteFile(empty, []byte("[]"), 0o600))
		_, err := LoadKeystore(empty, "")
		assert.ErrorContains(t, err, "is empty")
	})
}

func TestKeystoreSignerSignTransaction(t *testing.T) {
	kp, err := NewKeypairFromSeed(testSeed(4))
	require.NoError(t, err)

	resolver := &fakeResolver{
		pages:    []*CoinPage{{Data: []Coin{gasCoin("0xaa", "500", 1, 1)}}},
		gasPrice: 1,
	}
	signer := NewKeystoreSigner(kp, resolver)
	assert.Equal(t, kp.Address(), signer.Address())

	tx := NewTransaction()
	tx.SetGasBudget(100)
	tx.TransferObjects([]Argument{tx.Gas()}, tx.PureAddress(testSender))

	signed, err := signer.SignTransaction(context.Background(), tx)
	require.NoError(t, err)
	assert.Equal(t, kp.Address(), tx.Sender())

	txBytes, err := base64.StdEncoding.DecodeString(signed.Bytes)
	require.NoError(t, err)
	assert.Equal(t, kp.SignTransactionBytes(txBytes), signed.Signature)
	assert.True(t, bytes.Contains(txBytes, mustAddr(t, kp.Address())))
}

func TestKeystoreSignerBuildFailure(t *testing.T) {
	kp, err := NewKeypairFromSeed(testSeed(4))
	require.NoError(t, err)

	signer := NewKeystoreSigner(kp, &fakeResolver{pages: []*CoinPage{{Data: []Coin{}}}})

	tx := NewTransaction()
	tx.SetGasBudget(100)
	_, err = signer.SignTransaction(context.Background(), tx)
	assert.ErrorIs(t, err, ErrNoGasCoins)
}
