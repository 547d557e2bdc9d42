package protocol

import (
	"bufio"
	"io"
	"strings"
)

// lineReader splits a stream into lines of at most max bytes. A longer line
// is consumed up to its newline and reported as too long, so one bad line
// never ends the stream.
type lineReader struct {
	r   *bufio.Reader
	max int
}

func newLineReader(r io.Reader, max int) *lineReader {
	return &lineReader{r: bufio.NewReaderSize(r, 64<<10), max: max}
}

// next returns the next line without its terminator. A final line without a
// newline is returned before the read error.
func (lr *lineReader) next() (line string, tooLong bool, err error) {
	var buf []byte
	for {
		chunk, err := lr.r.ReadSlice('\n')
		if !tooLong {
			if len(buf)+len(chunk) > lr.max+1 {
				tooLong = true
				buf = nil
			} else {
				buf = append(buf, chunk...)
			}
		}
		switch {
		case err == bufio.ErrBufferFull:
			continue
		case err != nil:
			if len(buf) > 0 || tooLong {
				return strings.TrimRight(string(buf), "\r\n"), tooLong, nil
			}
			return "", false, err
		default:
			return strings.TrimRight(string(buf), "\r\n"), tooLong, nil
		}
	}
}
