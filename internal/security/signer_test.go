package security

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// well-known development key (hardhat account #0)
const devKey = "0xac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"

func TestSigner_KnownKey(t *testing.T) {
	s, err := NewSigner(devKey)
	require.NoError(t, err)
	assert.Equal(t, "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266", s.Address())
}

func TestSigner_SignAndVerify(t *testing.T) {
	s, err := NewSigner("")
	require.NoError(t, err)

	body := []byte(`{"token_id":"mint1","record":{"Volatility":12.5}}`)
	sig, err := s.Sign(body)
	require.NoError(t, err)
	assert.Len(t, sig, 2+65*2)

	ok, err := Verify(body, sig, s.Address())
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = Verify([]byte(`{"token_id":"mint2"}`), sig, s.Address())
	require.NoError(t, err)
	assert.False(t, ok)

	other, err := NewSigner("")
	require.NoError(t, err)
	ok, err = Verify(body, sig, other.Address())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestVerify_Malformed(t *testing.T) {
	s, err := NewSigner(devKey)
	require.NoError(t, err)

	_, err = Verify([]byte("x"), "0x1234", s.Address())
	assert.ErrorIs(t, err, ErrBadSignature)

	_, err = Verify([]byte("x"), "not-hex", s.Address())
	assert.ErrorIs(t, err, ErrBadSignature)

	sig, err := s.Sign([]byte("x"))
	require.NoError(t, err)
	_, err = Verify([]byte("x"), sig, "nope")
	assert.Error(t, err)
}

func TestNewSigner_InvalidKey(t *testing.T) {
	_, err := NewSigner("0xzz")
	assert.Error(t, err)
}
