package attestation

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"math/big"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
)

const saltLength = 32

var ErrBadSignature = errors.New("signature verification failed")

// Attestation is one attester's signed endorsement of a set of drawn values.
// The signature covers sha256(encoded values || salt).
type Attestation struct {
	Values    []*big.Int
	Salt      []byte
	Signature []byte
	PublicKey ed25519.PublicKey
}

// Attester signs value sets under a per-instance ed25519 key.
type Attester struct {
	signingKey ed25519.PrivateKey
	publicKey  ed25519.PublicKey
}

func NewAttester() (*Attester, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, errors.Wrap(err, "failed to generate attestation key")
	}
	return &Attester{signingKey: priv, publicKey: pub}, nil
}

func (a *Attester) PublicKey() ed25519.PublicKey {
	return a.publicKey
}

// Attest salts and signs a set of values.
func (a *Attester) Attest(values []*big.Int) (*Attestation, error) {
	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return nil, errors.Wrap(err, "failed to draw attestation salt")
	}

	digest := attestationDigest(values, salt)
	return &Attestation{
		Values:    values,
		Salt:      salt,
		Signature: ed25519.Sign(a.signingKey, digest),
		PublicKey: a.publicKey,
	}, nil
}

// Verify checks an attestation against the values it claims to cover.
func Verify(att *Attestation, values []*big.Int) error {
	digest := attestationDigest(values, att.Salt)
	if !ed25519.Verify(att.PublicKey, digest, att.Signature) {
		return ErrBadSignature
	}
	return nil
}

// AggregateSignatures folds any number of attestation signatures into one
// commitment. This is a hash aggregation, not a threshold signature: each
// individual attestation stays independently verifiable and the aggregate
// pins the exact set and order of signatures a result was submitted with.
func AggregateSignatures(attestations []*Attestation) []byte {
	h := sha256.New()
	for _, att := range attestations {
		h.Write(att.Signature)
	}
	return h.Sum(nil)
}

// attestationDigest hashes the length-prefixed value encodings plus the salt.
// Length prefixes keep adjacent values from sharing byte boundaries.
func attestationDigest(values []*big.Int, salt []byte) []byte {
	h := sha256.New()
	var lenBuf [4]byte
	for _, v := range values {
		b := v.Bytes()
		binary.BigEndian.PutUint32(lenBuf[:], uint32(len(b)))
		h.Write(lenBuf[:])
		h.Write(b)
	}
	h.Write(salt)
	return h.Sum(nil)
}

// expandSeed derives the i-th deterministic block from a seed with keccak256
// over the seed and a counter.
func expandSeed(seed []byte, index uint64) []byte {
	var counter [8]byte
	binary.BigEndian.PutUint64(counter[:], index)
	return crypto.Keccak256(seed, counter[:])
}
