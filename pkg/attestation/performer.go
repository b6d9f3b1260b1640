// Package attestation holds the operator-side tooling for producing task
// results: drawing values in a requested range and signing them so other
// operators can attest the draw.
package attestation

import (
	"crypto/rand"
	"encoding/hex"
	"math/big"

	"github.com/pkg/errors"
)

var (
	ErrInvalidLength = errors.New("length must be positive")
	ErrInvalidRange  = errors.New("minValue must be below maxValue")
	ErrInvalidCount  = errors.New("count must be positive")
	ErrInvalidSeed   = errors.New("seed is not valid hex")
)

// Performer draws cryptographically secure random values. Stateless; one
// instance can serve any number of tasks.
type Performer struct{}

func NewPerformer() *Performer {
	return &Performer{}
}

// RandomBytes returns length bytes from the operating system's CSPRNG.
func (p *Performer) RandomBytes(length int) ([]byte, error) {
	if length <= 0 {
		return nil, ErrInvalidLength
	}
	out := make([]byte, length)
	if _, err := rand.Read(out); err != nil {
		return nil, errors.Wrap(err, "failed to read from system entropy source")
	}
	return out, nil
}

// DrawValues produces count uniform values in [minValue, maxValue] using
// rejection-free modular reduction over a wide random draw. The extra 16
// bytes over the range width make the modulo bias negligible.
func (p *Performer) DrawValues(minValue, maxValue *big.Int, count uint32) ([]*big.Int, error) {
	if minValue == nil || maxValue == nil || minValue.Cmp(maxValue) >= 0 {
		return nil, ErrInvalidRange
	}
	if count == 0 {
		return nil, ErrInvalidCount
	}

	width := new(big.Int).Sub(maxValue, minValue)
	width.Add(width, big.NewInt(1))
	drawLen := (width.BitLen()+7)/8 + 16

	values := make([]*big.Int, count)
	for i := range values {
		raw, err := p.RandomBytes(drawLen)
		if err != nil {
			return nil, err
		}
		v := new(big.Int).SetBytes(raw)
		v.Mod(v, width)
		v.Add(v, minValue)
		values[i] = v
	}
	return values, nil
}

// DeriveValues expands a hex seed into count deterministic values in
// [minValue, maxValue]. Every holder of the seed derives the same sequence,
// which lets attesters recompute a submission instead of trusting it.
func DeriveValues(seed string, minValue, maxValue *big.Int, count uint32) ([]*big.Int, error) {
	if minValue == nil || maxValue == nil || minValue.Cmp(maxValue) >= 0 {
		return nil, ErrInvalidRange
	}
	if count == 0 {
		return nil, ErrInvalidCount
	}
	seedBytes, err := hex.DecodeString(seed)
	if err != nil || len(seedBytes) == 0 {
		return nil, ErrInvalidSeed
	}

	width := new(big.Int).Sub(maxValue, minValue)
	width.Add(width, big.NewInt(1))

	values := make([]*big.Int, count)
	for i := range values {
		v := new(big.Int).SetBytes(expandSeed(seedBytes, uint64(i)))
		v.Mod(v, width)
		v.Add(v, minValue)
		values[i] = v
	}
	return values, nil
}
