package idgen

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"
)

// Alphabet is the URL-safe set ids are drawn from. Its length is 64, so a
// random byte masked to six bits maps onto it without bias.
const Alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789_-"

const (
	DefaultLength         = 8
	DefaultFallbackLength = 12
	DefaultMaxAttempts    = 5
)

// ExistsFunc reports whether id is already taken.
type ExistsFunc func(ctx context.Context, id string) (bool, error)

// Generator allocates short ids, checking each candidate against an
// existence check. After MaxAttempts collisions at Length it returns an
// unchecked id of FallbackLength.
type Generator struct {
	exists         ExistsFunc
	random         io.Reader
	length         int
	fallbackLength int
	maxAttempts    int
}

// Option configures a Generator.
type Option func(*Generator)

// WithRandom replaces the random source (crypto/rand by default).
func WithRandom(r io.Reader) Option {
	return func(g *Generator) { g.random = r }
}

// WithLengths sets the short and fallback id lengths.
func WithLengths(short, fallback int) Option {
	return func(g *Generator) {
		g.length = short
		g.fallbackLength = fallback
	}
}

// WithMaxAttempts sets how many short ids are tried before escalating.
func WithMaxAttempts(n int) Option {
	return func(g *Generator) { g.maxAttempts = n }
}

// New builds a Generator around an existence check.
func New(exists ExistsFunc, opts ...Option) *Generator {
	g := &Generator{
		exists:         exists,
		random:         rand.Reader,
		length:         DefaultLength,
		fallbackLength: DefaultFallbackLength,
		maxAttempts:    DefaultMaxAttempts,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate returns an id that the existence check reported free, or a
// longer unchecked id once the retry budget is spent.
func (g *Generator) Generate(ctx context.Context) (string, error) {
	for attempt := 0; attempt < g.maxAttempts; attempt++ {
		id, err := g.draw(g.length)
		if err != nil {
			return "", err
		}
		taken, err := g.exists(ctx, id)
		if err != nil {
			return "", fmt.Errorf("check id %q: %w", id, err)
		}
		if !taken {
			return id, nil
		}
	}
	return g.draw(g.fallbackLength)
}

func (g *Generator) draw(n int) (string, error) {
	return Random(g.random, n)
}

// Random draws an id of length n from Alphabet using r.
func Random(r io.Reader, n int) (string, error) {
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return "", fmt.Errorf("read random: %w", err)
	}
	for i := range b {
		b[i] = Alphabet[b[i]&63]
	}
	return string(b), nil
}
