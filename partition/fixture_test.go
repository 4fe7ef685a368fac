package partition

import (
	"os"
	"strconv"
	"strings"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/require"
)

// fixtureCase mirrors the table in §8 as a loadable JSON vector, the way
// tests/state_test_util.go loads Ethereum state-test vectors from JSON
// rather than hand-writing every scenario as Go literals.
type fixtureCase struct {
	Name     string            `json:"name"`
	Template []string          `json:"template"`
	Key      string            `json:"key"`
	Expect   map[string]string `json:"expect"`
}

func loadFixtureCases(t *testing.T) []fixtureCase {
	t.Helper()
	b, err := os.ReadFile("testdata/fixtures.json")
	require.NoError(t, err)
	var cases []fixtureCase
	require.NoError(t, json.Unmarshal(b, &cases))
	return cases
}

func parseFixtureTemplate(t *testing.T, specs []string) Template {
	t.Helper()
	parts := make([]TemplatePart, len(specs))
	for i, s := range specs {
		switch {
		case strings.HasPrefix(s, "tag:"):
			parts[i] = TagValue(strings.TrimPrefix(s, "tag:"))
		case strings.HasPrefix(s, "bucket:"):
			fields := strings.Split(strings.TrimPrefix(s, "bucket:"), ":")
			require.Len(t, fields, 2)
			n, err := strconv.ParseUint(fields[1], 10, 32)
			require.NoError(t, err)
			parts[i] = BucketPart(fields[0], uint32(n))
		default:
			parts[i] = TimeFormat(s)
		}
	}
	tmpl, err := New(parts)
	require.NoError(t, err)
	return tmpl
}

func TestFixtureVectors(t *testing.T) {
	for _, c := range loadFixtureCases(t) {
		t.Run(c.Name, func(t *testing.T) {
			tmpl := parseFixtureTemplate(t, c.Template)
			got := collect(tmpl, c.Key)
			for col, want := range c.Expect {
				require.Contains(t, got, col)
				require.Equal(t, want, got[col].Identity)
			}
		})
	}
}
