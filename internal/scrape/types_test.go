package scrape

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanonicalName(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want string
	}{
		{"Carl Jung", "carl jung"},
		{"  Carl   Jung  ", "carl jung"},
		{"MARILYN\tMONROE", "marilyn monroe"},
		{"", ""},
		{"   ", ""},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, CanonicalName(tc.in))
	}
}

func TestFetchResultEmpty(t *testing.T) {
	t.Parallel()

	assert.True(t, FetchResult{}.Empty())
	assert.False(t, FetchResult{Results: []ExtractionResult{{Name: "x"}}}.Empty())
}

func TestOutcomeSatisfied(t *testing.T) {
	t.Parallel()

	assert.True(t, OutcomeSatisfiedStatic.Satisfied())
	assert.True(t, OutcomeSatisfiedBrowser.Satisfied())
	assert.False(t, OutcomeNoData.Satisfied())
	assert.False(t, OutcomeFallbackUnavailable.Satisfied())
	assert.False(t, OutcomeFailed.Satisfied())
}

func TestNetworkErrorUnwrap(t *testing.T) {
	t.Parallel()

	inner := assert.AnError
	err := &NetworkError{URL: "https://example.com/e", Err: inner}
	assert.ErrorIs(t, err, inner)
	assert.True(t, IsNetworkError(err))
	assert.False(t, IsNetworkError(inner))
	assert.Contains(t, err.Error(), "https://example.com/e")
}
