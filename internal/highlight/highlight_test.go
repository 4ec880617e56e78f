package highlight

import (
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = "diff --git a/main.go b/main.go\n" +
	"index 1111111..2222222 100644\n" +
	"--- a/main.go\n" +
	"+++ b/main.go\n" +
	"@@ -1,3 +1,3 @@\n" +
	" package main\n" +
	"-func old() {}\n" +
	"+func main() { println(\"hi\") }\n" +
	"\\ No newline at end of file\n"

var ansi = regexp.MustCompile(`\x1b\[[0-9;]*m`)

func TestDiff_PreservesText(t *testing.T) {
	t.Parallel()

	var out strings.Builder
	require.NoError(t, New("", true).Diff(&out, sample))
	assert.NotEqual(t, sample, out.String())
	assert.Contains(t, out.String(), "\x1b[")
	assert.Equal(t, sample, ansi.ReplaceAllString(out.String(), ""))
}

func TestDiff_Disabled(t *testing.T) {
	t.Parallel()

	var out strings.Builder
	require.NoError(t, New("github", false).Diff(&out, sample))
	assert.Equal(t, sample, out.String())
}

func TestDiff_NoTrailingNewline(t *testing.T) {
	t.Parallel()

	in := "diff --git a/x.py b/x.py\n@@ -1 +1 @@\n+print(1)"
	var out strings.Builder
	require.NoError(t, New("", true).Diff(&out, in))
	assert.Equal(t, in, ansi.ReplaceAllString(out.String(), ""))
}
