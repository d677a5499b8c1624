package profiler

import (
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jtallon/capindex-mcp/pkg/types"
)

func TestNew_Defaults(t *testing.T) {
	p := New(nil)
	require.NotNil(t, p)
	assert.Equal(t, 2, p.minTokenLength)
	assert.False(t, p.stemTokens)
}

func TestProfile_EmptyText(t *testing.T) {
	p := New(nil)

	profile := p.Profile(types.ElementRecord{ID: "empty", RawText: ""})

	assert.Equal(t, "empty", profile.ElementID)
	assert.Zero(t, profile.Entropy)
	assert.Empty(t, profile.TokenSet)
	assert.Zero(t, profile.TotalTermCount)
	assert.True(t, profile.Empty())
	assert.NoError(t, profile.Validate())
}

func TestProfile_PunctuationOnly(t *testing.T) {
	p := New(nil)

	profile := p.Profile(types.ElementRecord{ID: "punct", RawText: "!!! ... ??? ,"})

	assert.Zero(t, profile.Entropy)
	assert.Empty(t, profile.TokenSet)
}

func TestProfile_UniformDistribution(t *testing.T) {
	// Four distinct terms with equal frequency: H = log2(4) = 2 bits
	p := New(nil)

	profile := p.Profile(types.ElementRecord{
		ID:      "uniform",
		RawText: "alpha bravo charlie delta",
	})

	assert.InDelta(t, 2.0, profile.Entropy, 1e-9)
	assert.Equal(t, 4, profile.UniqueTermCount)
	assert.Equal(t, 4, profile.TotalTermCount)
	assert.Equal(t, []string{"alpha", "bravo", "charlie", "delta"}, profile.TokenSet)
}

func TestProfile_SingleRepeatedTerm(t *testing.T) {
	p := New(nil)

	profile := p.Profile(types.ElementRecord{ID: "one", RawText: "docker docker docker"})

	assert.Zero(t, profile.Entropy)
	assert.Equal(t, 1, profile.UniqueTermCount)
	assert.Equal(t, 3, profile.TotalTermCount)
}

func TestProfile_BoundedByLog2Vocabulary(t *testing.T) {
	p := New(nil)

	profile := p.Profile(types.ElementRecord{
		ID:      "skewed",
		RawText: "docker docker docker auth auth failure",
	})

	bound := math.Log2(float64(profile.UniqueTermCount))
	assert.Greater(t, profile.Entropy, 0.0)
	assert.LessOrEqual(t, profile.Entropy, bound+1e-9)
}

func TestProfile_Deterministic(t *testing.T) {
	p := New(nil)
	record := types.ElementRecord{
		ID:      "repeat",
		RawText: "Containers fail when auth tokens expire; debug container auth first.",
	}

	first := p.Profile(record)
	for i := 0; i < 50; i++ {
		assert.Equal(t, first, p.Profile(record))
	}
}

func TestProfile_EntropyBitIdenticalAcrossCalls(t *testing.T) {
	// A wide vocabulary forces many summation terms; the entropy must still
	// come out bit-for-bit equal on every call and from every instance,
	// independent of map iteration order.
	var text strings.Builder
	for i := 0; i < 40; i++ {
		for j := 0; j <= i%5; j++ {
			fmt.Fprintf(&text, "term%02d ", i)
		}
	}
	record := types.ElementRecord{ID: "wide", RawText: text.String()}

	first := New(nil).Profile(record).Entropy
	for i := 0; i < 100; i++ {
		again := New(nil).Profile(record).Entropy
		assert.Equal(t, first, again, "entropy drifted on call %d", i)
	}
}

func TestTokenize_CaseFoldingAndBoundaries(t *testing.T) {
	p := New(nil)

	tokens := p.Tokenize("Docker AUTH failure, docker-compose v2!")

	assert.Equal(t, []string{"docker", "auth", "failure", "docker-compose", "v2"}, tokens)
}

func TestTokenize_DropsShortTokens(t *testing.T) {
	p := New(&Config{MinTokenLength: 3})

	tokens := p.Tokenize("go is a very od small big language")

	assert.NotContains(t, tokens, "go")
	assert.NotContains(t, tokens, "is")
	assert.Contains(t, tokens, "very")
}

func TestTokenize_Stemming(t *testing.T) {
	p := New(&Config{StemTokens: true})

	tokens := p.Tokenize("debugging debugged debugs")

	// All forms collapse to the same stem
	require.Len(t, tokens, 3)
	assert.Equal(t, tokens[0], tokens[1])
	assert.Equal(t, tokens[1], tokens[2])
}

func TestTokenize_StemmingSkipsShortTokens(t *testing.T) {
	p := New(&Config{StemTokens: true, StemMinLength: 6})

	tokens := p.Tokenize("debug")

	assert.Equal(t, []string{"debug"}, tokens)
}
