// Package security signs exported feature records so receivers can check
// their origin. Signatures are Ethereum-style secp256k1 signatures over the
// Keccak-256 hash of the exact body bytes.
package security

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/sirupsen/logrus"
)

// ErrBadSignature is returned for malformed signatures.
var ErrBadSignature = errors.New("malformed signature")

// Signer holds the private key used to sign payloads.
type Signer struct {
	key     *ecdsa.PrivateKey
	address common.Address
}

// NewSigner loads a hex-encoded private key. An empty key generates an
// ephemeral one, which receivers can only trust via the logged address.
func NewSigner(hexKey string) (*Signer, error) {
	var (
		key *ecdsa.PrivateKey
		err error
	)
	if hexKey == "" {
		key, err = crypto.GenerateKey()
		if err != nil {
			return nil, fmt.Errorf("failed to generate key: %w", err)
		}
	} else {
		key, err = crypto.HexToECDSA(strings.TrimPrefix(hexKey, "0x"))
		if err != nil {
			return nil, fmt.Errorf("failed to parse signing key: %w", err)
		}
	}

	s := &Signer{key: key, address: crypto.PubkeyToAddress(key.PublicKey)}
	logrus.Infof("Payload signer initialized with address %s", s.address.Hex())
	return s, nil
}

// Address returns the checksummed address matching the signing key.
func (s *Signer) Address() string {
	return s.address.Hex()
}

// Sign returns the 0x-prefixed 65-byte [R || S || V] signature of body.
func (s *Signer) Sign(body []byte) (string, error) {
	hash := crypto.Keccak256Hash(body)
	sig, err := crypto.Sign(hash.Bytes(), s.key)
	if err != nil {
		return "", fmt.Errorf("failed to sign payload: %w", err)
	}
	return hexutil.Encode(sig), nil
}

// Verify reports whether signature over body was produced by address.
func Verify(body []byte, signature, address string) (bool, error) {
	sig, err := hexutil.Decode(signature)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrBadSignature, err)
	}
	if len(sig) != crypto.SignatureLength {
		return false, fmt.Errorf("%w: length %d", ErrBadSignature, len(sig))
	}
	if !common.IsHexAddress(address) {
		return false, fmt.Errorf("invalid address %q", address)
	}

	hash := crypto.Keccak256Hash(body)
	pub, err := crypto.SigToPub(hash.Bytes(), sig)
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrBadSignature, err)
	}
	if crypto.PubkeyToAddress(*pub) != common.HexToAddress(address) {
		return false, nil
	}
	return crypto.VerifySignature(crypto.FromECDSAPub(pub), hash.Bytes(), sig[:64]), nil
}
