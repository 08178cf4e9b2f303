package refine

import (
	cryptoRand "crypto/rand"
	"encoding/binary"
	"hash/fnv"
	"math/rand/v2"
	"strconv"
	"strings"
)

// RandomSource abstract
type RandomSource interface {
	Float64() float64 // [0, 1)
}

// crypto random : default generation method for interactive sessions
type cryptoRNG struct{}

func (cryptoRNG) Float64() float64 {
	var buf [8]byte
	if _, err := cryptoRand.Read(buf[:]); err != nil {
		// back to math/rand/v2
		return rand.Float64()
	}
	u := binary.BigEndian.Uint64(buf[:]) >> 11 // 53 bits
	return float64(u) / (1 << 53)
}

func DefaultRNG() RandomSource { return cryptoRNG{} }

// Xorshift32 is the replicable generator used by every simulation.
type Xorshift32 struct{ x uint32 }

// NewXorshift32 seeds a generator. A zero seed would stay zero forever, so
// it is replaced by a fixed odd constant.
func NewXorshift32(seed uint32) *Xorshift32 {
	if seed == 0 {
		seed = 0x9E3779B9
	}
	return &Xorshift32{x: seed}
}

// Uint32 advances the generator.
func (r *Xorshift32) Uint32() uint32 {
	x := r.x
	x ^= x << 13
	x ^= x >> 17
	x ^= x << 5
	r.x = x
	return x
}

func (r *Xorshift32) Float64() float64 { return float64(r.Uint32()) / 4294967296.0 }

// Intn draws uniformly from [0, n). n must be > 0.
func Intn(rng RandomSource, n int) int {
	i := int(rng.Float64() * float64(n))
	if i >= n {
		i = n - 1
	}
	return i
}

// SeedField is one named input of a seed.
type SeedField struct {
	Name  string
	Value string
}

// F builds a SeedField from common scalar types.
func F(name string, v any) SeedField {
	switch t := v.(type) {
	case string:
		return SeedField{name, t}
	case int:
		return SeedField{name, strconv.Itoa(t)}
	case bool:
		return SeedField{name, strconv.FormatBool(t)}
	case uint32:
		return SeedField{name, strconv.FormatUint(uint64(t), 10)}
	default:
		return SeedField{name, "?"}
	}
}

// SeedOf hashes the fields, in the order given, as "name=value;" with
// 32-bit FNV-1a.
func SeedOf(fields ...SeedField) uint32 {
	var b strings.Builder
	for _, f := range fields {
		b.WriteString(f.Name)
		b.WriteByte('=')
		b.WriteString(f.Value)
		b.WriteByte(';')
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(b.String()))
	return h.Sum32()
}

// TrialSeed derives the independent stream of trial i from a request seed.
func TrialSeed(seed uint32, i int) uint32 {
	h := seed ^ (uint32(i)*0x9E3779B9 + 0x7F4A7C15)
	h ^= h >> 16
	h *= 0x85EBCA6B
	h ^= h >> 13
	h *= 0xC2B2AE35
	h ^= h >> 16
	return h
}
