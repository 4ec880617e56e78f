package git

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseDiffSections(t *testing.T) {
	t.Parallel()

	diff := "diff --git a/main.go b/main.go\n" +
		"index 1111111..2222222 100644\n" +
		"--- a/main.go\n" +
		"+++ b/main.go\n" +
		"@@ -1 +1 @@\n" +
		"-package old\n" +
		"+package main\n" +
		"diff --git \"a/dir/with space.txt\" \"b/dir/with space.txt\"\n" +
		"new file mode 100644\n" +
		"diff --git \"a/caf\\303\\251.md\" \"b/caf\\303\\251.md\"\n"

	assert.Equal(t, []DiffSection{
		{Path: "main.go", Line: 1},
		{Path: "dir/with space.txt", Line: 8},
		{Path: "café.md", Line: 10},
	}, ParseDiffSections(diff))
	assert.Empty(t, ParseDiffSections("no diff here\n"))
}

func TestUnquotePath(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		`plain.txt`:          "plain.txt",
		`"tab\there.txt"`:    "tab\there.txt",
		`"quote\"d.txt"`:     `quote"d.txt`,
		`"\346\227\245.txt"`: "日.txt",
		`"`:                  `"`,
	}
	for in, want := range tests {
		assert.Equal(t, want, unquotePath(in), in)
	}
}
