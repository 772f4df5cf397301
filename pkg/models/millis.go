package models

import (
	"math/big"

	"github.com/pkg/errors"
)

// Millis is an exact time value in milliseconds, held as a reduced fraction.
//
// Offsets and hash deltas are derived from hop*1000/sampleRate, which is rarely a
// finite decimal. Keeping them rational makes equal offsets compare and print
// identically on every platform. A Millis is immutable; the zero value is 0 ms.
type Millis struct {
	r *big.Rat
}

// NewMillis returns num/den milliseconds. It panics if den is zero.
func NewMillis(num, den int64) Millis {
	return Millis{r: big.NewRat(num, den)}
}

// MillisFromInt returns ms whole milliseconds.
func MillisFromInt(ms int64) Millis {
	return Millis{r: new(big.Rat).SetInt64(ms)}
}

// ParseMillis parses "a/b", integer and decimal forms ("10240/441", "23", "23.5").
func ParseMillis(s string) (Millis, error) {
	r, ok := new(big.Rat).SetString(s)
	if !ok {
		return Millis{}, errors.Errorf("invalid millis value %q", s)
	}
	return Millis{r: r}, nil
}

func (m Millis) rat() *big.Rat {
	if m.r == nil {
		return new(big.Rat)
	}
	return m.r
}

// Sub returns m - o.
func (m Millis) Sub(o Millis) Millis {
	return Millis{r: new(big.Rat).Sub(m.rat(), o.rat())}
}

// Add returns m + o.
func (m Millis) Add(o Millis) Millis {
	return Millis{r: new(big.Rat).Add(m.rat(), o.rat())}
}

// Mul returns m * k.
func (m Millis) Mul(k int64) Millis {
	return Millis{r: new(big.Rat).Mul(m.rat(), new(big.Rat).SetInt64(k))}
}

// Cmp compares m and o and returns -1, 0 or +1.
func (m Millis) Cmp(o Millis) int {
	return m.rat().Cmp(o.rat())
}

// Equal reports whether m and o denote the same instant.
func (m Millis) Equal(o Millis) bool {
	return m.Cmp(o) == 0
}

// IsZero reports whether m is 0 ms.
func (m Millis) IsZero() bool {
	return m.rat().Sign() == 0
}

// Float64 returns the nearest float64 value. Use it for display only.
func (m Millis) Float64() float64 {
	f, _ := m.rat().Float64()
	return f
}

// String returns the canonical form: "n" for integers, "n/d" otherwise.
// Equal values always produce equal strings.
func (m Millis) String() string {
	return m.rat().RatString()
}

func (m Millis) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *Millis) UnmarshalText(text []byte) error {
	parsed, err := ParseMillis(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
