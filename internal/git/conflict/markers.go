package conflict

import (
	"bytes"
	"io"
	"os"
	"regexp"
)

// markerBlock matches one conflict block. Group 2 is the common ancestor
// section written by the diff3 and zdiff3 conflict styles.
var markerBlock = regexp.MustCompile(`(?ms)^<{7}[^\n]*\n(.*?)(?:^\|{7}[^\n]*\n(.*?))?^={7}[^\n]*\n.*?^>{7}[^\n]*(?:\n|\z)`)

// stripConflictMarkers removes every conflict block from data. A block that
// carries an ancestor section is replaced by that section; other blocks are
// dropped. found reports whether any block was present.
func stripConflictMarkers(data []byte) (out []byte, found bool) {
	matches := markerBlock.FindAllSubmatchIndex(data, -1)
	if len(matches) == 0 {
		return data, false
	}
	var buf bytes.Buffer
	buf.Grow(len(data))
	last := 0
	for _, m := range matches {
		buf.Write(data[last:m[0]])
		if m[4] >= 0 {
			buf.Write(data[m[4]:m[5]])
		}
		last = m[1]
	}
	buf.Write(data[last:])
	return buf.Bytes(), true
}

// isBinary reports whether the file at path is over threshold bytes or has a
// NUL byte in its first threshold bytes. A missing file is not binary.
func isBinary(path string, threshold int64) (bool, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return false, err
	}
	if info.Size() > threshold {
		return true, nil
	}
	buf := make([]byte, 32*1024)
	var read int64
	for read < threshold {
		n, err := f.Read(buf)
		if bytes.IndexByte(buf[:n], 0) >= 0 {
			return true, nil
		}
		read += int64(n)
		if err == io.EOF {
			return false, nil
		}
		if err != nil {
			return false, err
		}
	}
	return false, nil
}
