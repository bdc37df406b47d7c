package id

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
)

const (
	// Len15 is the length of the case-sensitive form.
	Len15 = 15
	// Len18 is the length of the case-insensitive form.
	Len18 = 18
	// PrefixLen is the length of an object key prefix.
	PrefixLen = 3

	base62   = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"
	checksum = "ABCDEFGHIJKLMNOPQRSTUVWXYZ012345"

	seqLen = 9
)

// DefaultInstance is the two-character instance used when none is given.
const DefaultInstance = "0M"

// Generator issues sequential identities per key prefix. It is safe for
// concurrent use.
type Generator struct {
	instance string

	mu   sync.Mutex
	next map[string]uint64
}

// NewGenerator creates a generator for the given two-character instance.
func NewGenerator(instance string) *Generator {
	if len(instance) != 2 || !isBase62(instance) {
		instance = DefaultInstance
	}
	return &Generator{instance: instance, next: make(map[string]uint64)}
}

// Next returns the next 18-character identity for a key prefix.
func (g *Generator) Next(prefix string) (string, error) {
	if err := ValidatePrefix(prefix); err != nil {
		return "", err
	}

	g.mu.Lock()
	g.next[prefix]++
	n := g.next[prefix]
	g.mu.Unlock()

	return To18(prefix + g.instance + "0" + encodeSeq(n))
}

// Observe records an existing identity so the generator never issues it
// again. Identities with a different instance are ignored.
func (g *Generator) Observe(id string) {
	if len(id) != Len15 && len(id) != Len18 {
		return
	}
	if id[PrefixLen:PrefixLen+2] != g.instance {
		return
	}
	n, ok := decodeSeq(id[Len15-seqLen : Len15])
	if !ok {
		return
	}

	prefix := id[:PrefixLen]
	g.mu.Lock()
	defer g.mu.Unlock()
	if n > g.next[prefix] {
		g.next[prefix] = n
	}
}

// ValidatePrefix checks that prefix is a three-character base-62 key prefix.
func ValidatePrefix(prefix string) error {
	if len(prefix) != PrefixLen || !isBase62(prefix) {
		return fmt.Errorf("invalid key prefix %q: want %d alphanumeric characters", prefix, PrefixLen)
	}
	return nil
}

// Checksum returns the three-character suffix for a 15-character identity.
// Each suffix character encodes which of five input characters are upper case.
func Checksum(id15 string) (string, error) {
	if len(id15) != Len15 || !isBase62(id15) {
		return "", fmt.Errorf("invalid identity %q", id15)
	}

	var b strings.Builder
	for chunk := range 3 {
		bits := 0
		for i := range 5 {
			c := id15[chunk*5+i]
			if c >= 'A' && c <= 'Z' {
				bits |= 1 << i
			}
		}
		b.WriteByte(checksum[bits])
	}
	return b.String(), nil
}

// To18 converts an identity to its 18-character form. 18-character input is
// returned unchanged when its checksum is valid.
func To18(id string) (string, error) {
	switch len(id) {
	case Len15:
		sum, err := Checksum(id)
		if err != nil {
			return "", err
		}
		return id + sum, nil
	case Len18:
		if !Valid(id) {
			return "", fmt.Errorf("invalid identity %q", id)
		}
		return id, nil
	}
	return "", fmt.Errorf("invalid identity %q: want %d or %d characters", id, Len15, Len18)
}

// Valid reports whether id is a well-formed 15- or 18-character identity.
// For the 18-character form the checksum is verified against the first 15
// characters.
func Valid(id string) bool {
	switch len(id) {
	case Len15:
		return isBase62(id)
	case Len18:
		sum, err := Checksum(id[:Len15])
		return err == nil && strings.EqualFold(sum, id[Len15:])
	}
	return false
}

// Normalize returns the canonical 18-character form of a valid identity. An
// 18-character identity is rebuilt from its first 15 characters, so the
// checksum casing is canonical too.
func Normalize(id string) (string, error) {
	if !Valid(id) {
		return "", fmt.Errorf("invalid identity %q", id)
	}
	return To18(id[:Len15])
}

// Prefix returns the key prefix of an identity, or "" when it is too short.
func Prefix(id string) string {
	if len(id) < PrefixLen {
		return ""
	}
	return id[:PrefixLen]
}

// Short generates a short random hex ID (16 characters).
func Short() string {
	b := make([]byte, 8)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}

func encodeSeq(n uint64) string {
	out := make([]byte, seqLen)
	for i := seqLen - 1; i >= 0; i-- {
		out[i] = base62[n%62]
		n /= 62
	}
	return string(out)
}

func decodeSeq(s string) (uint64, bool) {
	var n uint64
	for i := 0; i < len(s); i++ {
		v := strings.IndexByte(base62, s[i])
		if v < 0 {
			return 0, false
		}
		n = n*62 + uint64(v)
	}
	return n, true
}

func isBase62(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !(c >= '0' && c <= '9' || c >= 'A' && c <= 'Z' || c >= 'a' && c <= 'z') {
			return false
		}
	}
	return true
}
