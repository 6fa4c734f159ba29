package translator

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeProvider translates by prefixing, or fails every call
type fakeProvider struct {
	name   string
	fail   bool
	calls  int
	prefix string
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) Translate(_ context.Context, texts []string, _, _ string) ([]string, error) {
	f.calls++
	if f.fail {
		return nil, fmt.Errorf("%s is down", f.name)
	}
	out := make([]string, len(texts))
	for i, t := range texts {
		out[i] = f.prefix + t
	}
	return out, nil
}

func TestChain_TranslateBatch(t *testing.T) {
	t.Run("first provider wins", func(t *testing.T) {
		p1 := &fakeProvider{name: "p1", prefix: "ru:"}
		p2 := &fakeProvider{name: "p2", prefix: "x:"}
		chain := NewChain([]Provider{p1, p2}, 5)

		got, err := chain.TranslateBatch(context.Background(), []string{"hello", "world"}, "en", "ru")
		require.NoError(t, err)
		assert.Equal(t, []string{"ru:hello", "ru:world"}, got)
		assert.Equal(t, 1, p1.calls)
		assert.Equal(t, 0, p2.calls)
	})

	t.Run("fallback to second provider", func(t *testing.T) {
		p1 := &fakeProvider{name: "p1", fail: true}
		p2 := &fakeProvider{name: "p2", prefix: "ru:"}
		chain := NewChain([]Provider{p1, p2}, 5)

		got, err := chain.TranslateBatch(context.Background(), []string{"hello"}, "en", "ru")
		require.NoError(t, err)
		assert.Equal(t, []string{"ru:hello"}, got)
		assert.Equal(t, 1, p1.calls)
		assert.Equal(t, 1, p2.calls)
	})

	t.Run("all providers fail", func(t *testing.T) {
		p1 := &fakeProvider{name: "p1", fail: true}
		p2 := &fakeProvider{name: "p2", fail: true}
		chain := NewChain([]Provider{p1, p2}, 5)

		_, err := chain.TranslateBatch(context.Background(), []string{"hello"}, "en", "ru")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "all providers failed")
	})

	t.Run("chunking calls provider per chunk", func(t *testing.T) {
		p := &fakeProvider{name: "p", prefix: "ru:"}
		chain := NewChain([]Provider{p}, 2)

		texts := []string{"a", "b", "c", "d", "e"}
		got, err := chain.TranslateBatch(context.Background(), texts, "en", "ru")
		require.NoError(t, err)
		assert.Equal(t, []string{"ru:a", "ru:b", "ru:c", "ru:d", "ru:e"}, got)
		assert.Equal(t, 3, p.calls) // 2+2+1
	})

	t.Run("empty texts pass through without provider", func(t *testing.T) {
		p := &fakeProvider{name: "p", prefix: "ru:"}
		chain := NewChain([]Provider{p}, 5)

		got, err := chain.TranslateBatch(context.Background(), []string{"", "hello", "  "}, "en", "ru")
		require.NoError(t, err)
		assert.Equal(t, []string{"", "ru:hello", "  "}, got)
		assert.Equal(t, 1, p.calls)
	})

	t.Run("empty batch", func(t *testing.T) {
		chain := NewChain([]Provider{&fakeProvider{name: "p"}}, 5)
		got, err := chain.TranslateBatch(context.Background(), nil, "en", "ru")
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("no providers", func(t *testing.T) {
		chain := NewChain(nil, 5)
		_, err := chain.TranslateBatch(context.Background(), []string{"x"}, "en", "ru")
		require.Error(t, err)
	})

	t.Run("glossary protected end to end", func(t *testing.T) {
		p := &fakeProvider{name: "p", prefix: ""}
		chain := NewChain([]Provider{p}, 5)

		got, err := chain.TranslateBatch(context.Background(), []string{"Docker news today"}, "en", "ru")
		require.NoError(t, err)
		// passthrough provider returns the protected text, restore must
		// bring the term back
		assert.Contains(t, got[0], "Docker")
		assert.NotContains(t, got[0], "__TECH_TERM_")
	})
}

func TestChain_Translate(t *testing.T) {
	p := &fakeProvider{name: "p", prefix: "ru:"}
	chain := NewChain([]Provider{p}, 5)

	got, err := chain.Translate(context.Background(), "hello", "en", "ru")
	require.NoError(t, err)
	assert.Equal(t, "ru:hello", got)
}

func TestAllot(t *testing.T) {
	tests := []struct {
		name        string
		remaining   int
		sourcesLeft int
		want        int
	}{
		{"even split", 20, 4, 5},
		{"floor division", 10, 3, 3},
		{"minimum one while budget remains", 2, 5, 1},
		{"no budget", 0, 3, 0},
		{"negative budget", -1, 3, 0},
		{"no sources", 10, 0, 0},
		{"last source takes the rest share", 7, 1, 7},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Allot(tt.remaining, tt.sourcesLeft))
		})
	}
}
