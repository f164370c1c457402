// Package ethereum provides the ECDSA secp256k1 keys used to sign and
// authenticate election transactions, following Ethereum conventions.
package ethereum

import (
	"bytes"
	"crypto/ecdsa"
	"errors"
	"fmt"

	ethcommon "github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"go.vocdoni.io/tokenvote/util"
)

// SignatureLength is the size of an ECDSA signature in bytes, including the
// recovery id.
const SignatureLength = ethcrypto.SignatureLength

// SigningPrefix is the prefix added when hashing
const SigningPrefix = "\u0019Ethereum Signed Message:\n"

// ErrNoPrivateKey is returned when signing with keys that were never
// generated nor imported.
var ErrNoPrivateKey = errors.New("no private key available")

// SignKeys represents an ECDSA pair of keys for signing.
type SignKeys struct {
	Public  ecdsa.PublicKey
	Private ecdsa.PrivateKey
}

// NewSignKeys returns an empty SignKeys, call Generate or AddHexKey before
// using it.
func NewSignKeys() *SignKeys {
	return &SignKeys{}
}

// Generate generates new keys
func (k *SignKeys) Generate() error {
	key, err := ethcrypto.GenerateKey()
	if err != nil {
		return err
	}
	k.Private = *key
	k.Public = key.PublicKey
	return nil
}

// AddHexKey imports a private hex key
func (k *SignKeys) AddHexKey(privHex string) error {
	key, err := ethcrypto.HexToECDSA(util.TrimHex(privHex))
	if err != nil {
		return err
	}
	k.Private = *key
	k.Public = key.PublicKey
	return nil
}

// HexString returns the public compressed and private keys as hex strings
func (k *SignKeys) HexString() (string, string) {
	pubHexComp := fmt.Sprintf("%x", ethcrypto.CompressPubkey(&k.Public))
	privHex := fmt.Sprintf("%x", ethcrypto.FromECDSA(&k.Private))
	return pubHexComp, privHex
}

// Address returns the SignKeys ethereum address
func (k *SignKeys) Address() ethcommon.Address {
	return ethcrypto.PubkeyToAddress(k.Public)
}

// Sign signs a message. Message is a normal string (no HexString nor a Hash)
func (k *SignKeys) Sign(message []byte) ([]byte, error) {
	if k.Private.D == nil {
		return nil, ErrNoPrivateKey
	}
	return ethcrypto.Sign(Hash(message), &k.Private)
}

// AddrFromSignature recovers the Ethereum address that created the signature of a message
func AddrFromSignature(msg, signature []byte) (ethcommon.Address, error) {
	if len(signature) != SignatureLength {
		return ethcommon.Address{}, fmt.Errorf("signature length not correct (%d)", len(signature))
	}
	sig := bytes.Clone(signature)
	if sig[64] > 1 {
		sig[64] -= 27
	}
	if sig[64] > 1 {
		return ethcommon.Address{}, errors.New("bad recover ID byte")
	}
	pubKey, err := ethcrypto.SigToPub(Hash(msg), sig)
	if err != nil {
		return ethcommon.Address{}, fmt.Errorf("sigToPub %w", err)
	}
	return ethcrypto.PubkeyToAddress(*pubKey), nil
}

// Hash string data adding Ethereum prefix
func Hash(data []byte) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%s%d%s", SigningPrefix, len(data), data)
	return HashRaw(buf.Bytes())
}

// HashRaw hashes data with no prefix
func HashRaw(data []byte) []byte {
	return ethcrypto.Keccak256(data)
}
