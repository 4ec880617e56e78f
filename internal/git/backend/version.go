package backend

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// Minimum supported git version. Keep this aligned with the porcelain output
// the status and branch grammars were written against.
var minVersion = Version{Major: 2, Minor: 23, Patch: 0}

type Version struct {
	Major int
	Minor int
	Patch int
}

func MinVersion() Version {
	return minVersion
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

func (v Version) Less(other Version) bool {
	if v.Major != other.Major {
		return v.Major < other.Major
	}
	if v.Minor != other.Minor {
		return v.Minor < other.Minor
	}
	return v.Patch < other.Patch
}

// ParseVersion extracts a version from "<tool> --version" output.
func ParseVersion(out string) (Version, bool) {
	s := strings.TrimSpace(out)
	if s == "" {
		return Version{}, false
	}
	// Common formats:
	// - "git version 2.44.0"
	// - "git version 2.39.3 (Apple Git-146)"
	// - "git version 2.39.3.windows.1"
	if idx := strings.Index(s, " version"); idx >= 0 {
		s = strings.TrimSpace(s[idx+len(" version"):])
	}
	start := strings.IndexFunc(s, func(r rune) bool { return r >= '0' && r <= '9' })
	if start < 0 {
		return Version{}, false
	}
	s = s[start:]
	// Keep only the leading numeric/dot portion (e.g. "2.39.3" from "2.39.3.windows.1").
	end := 0
	for end < len(s) && (s[end] == '.' || (s[end] >= '0' && s[end] <= '9')) {
		end++
	}
	s = strings.Trim(s[:end], ".")
	if s == "" {
		return Version{}, false
	}

	parts := strings.Split(s, ".")
	if len(parts) < 2 {
		return Version{}, false
	}
	major, err := strconv.Atoi(parts[0])
	if err != nil {
		return Version{}, false
	}
	minor, err := strconv.Atoi(parts[1])
	if err != nil {
		return Version{}, false
	}
	patch := 0
	if len(parts) >= 3 {
		if p, err := strconv.Atoi(parts[2]); err == nil {
			patch = p
		}
	}
	return Version{Major: major, Minor: minor, Patch: patch}, true
}

func validateVersionOutput(program, out string) (Version, error) {
	got, ok := ParseVersion(out)
	if !ok {
		return Version{}, fmt.Errorf("unable to parse %s version output: %q", program, strings.TrimSpace(out))
	}
	if got.Less(minVersion) {
		return got, fmt.Errorf("%s %s is too old; gitstate requires %s >= %s", program, got, program, minVersion)
	}
	return got, nil
}

// DetectVersion runs "<program> --version" through r and rejects versions
// older than MinVersion. Launch failures keep their *LaunchError type so
// callers can tell a missing tool from an unusable one.
func DetectVersion(ctx context.Context, r Runner, program string) (Version, error) {
	if program == "" {
		program = DefaultProgram
	}
	var out strings.Builder
	_, err := r.Run(ctx, Invocation{
		Program: program,
		Args:    []string{"--version"},
		OnLine: func(stream Stream, line string) {
			if stream == StreamStdout {
				out.WriteString(line)
				out.WriteByte('\n')
			}
		},
	})
	if err != nil {
		return Version{}, fmt.Errorf("%s --version: %w", program, err)
	}
	return validateVersionOutput(program, out.String())
}
