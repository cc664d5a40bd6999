package static

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const listingFixture = `<html><body><table>
<tr class="celebrity">
  <td><a class="name" href="/person/carl-jung">Carl Jung</a></td>
  <td><span class="type">LII</span></td>
  <td><span class="confidence">85%</span></td>
</tr>
<tr class="person">
  <td><span class="person-name">Marilyn Monroe</span></td>
  <td><div class="sociotype">ESE</div></td>
  <td><div class="votes">0.6</div></td>
</tr>
<tr class="celebrity">
  <td><a class="name" href="/person/no-type">Typeless Person</a></td>
</tr>
</table>
<div class="celebrity">
  <span class="name">Albert Einstein</span>
  <span class="mbti">ILE</span>
</div>
</body></html>`

func TestParseListing(t *testing.T) {
	t.Parallel()

	results, err := parseListing([]byte(listingFixture), "https://sociotype.xyz/e")
	require.NoError(t, err)
	require.Len(t, results, 3, "rows without a type code are skipped")

	jung := results[0]
	assert.Equal(t, "Carl Jung", jung.Name)
	assert.Equal(t, "LII", jung.TypeCode)
	assert.Equal(t, "/person/carl-jung", jung.ProfileURL)
	require.NotNil(t, jung.Confidence)
	assert.InDelta(t, 0.85, *jung.Confidence, 1e-9)
	assert.Equal(t, "Scraped from https://sociotype.xyz/e", jung.Evidence)

	monroe := results[1]
	assert.Equal(t, "Marilyn Monroe", monroe.Name)
	assert.Equal(t, "ESE", monroe.TypeCode)
	require.NotNil(t, monroe.Confidence)
	assert.InDelta(t, 0.6, *monroe.Confidence, 1e-9)
	assert.Empty(t, monroe.ProfileURL)

	einstein := results[2]
	assert.Equal(t, "Albert Einstein", einstein.Name)
	assert.Equal(t, "ILE", einstein.TypeCode)
	assert.Nil(t, einstein.Confidence, "no confidence markup means nil, not zero")
}

func TestParseListingNoRows(t *testing.T) {
	t.Parallel()

	results, err := parseListing([]byte(`<html><body><p>nothing here</p></body></html>`), "https://sociotype.xyz/e")
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestParseConfidence(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want *float64
	}{
		{"85%", ptr(0.85)},
		{"0.85", ptr(0.85)},
		{"confidence: 42", ptr(0.42)},
		{"1", ptr(1.0)},
		{"0.5 of something", ptr(0.5)},
		{"no numbers", nil},
		{"", nil},
	}
	for _, tc := range cases {
		got := parseConfidence(tc.in)
		if tc.want == nil {
			assert.Nil(t, got, "input %q", tc.in)
			continue
		}
		require.NotNil(t, got, "input %q", tc.in)
		assert.InDelta(t, *tc.want, *got, 1e-9, "input %q", tc.in)
	}
}

func TestTrimText(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Carl Jung", trimText("  Carl \n  Jung "))
	assert.Equal(t, "", trimText("   "))
}

func ptr(f float64) *float64 { return &f }
