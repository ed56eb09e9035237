package command

import (
	"bufio"
	"bytes"
)

// SplitLines tokenizes terminal input into command lines. It has the
// signature of bufio.SplitFunc so it can be used with bufio.Scanner.
//
// A line ends at LF, CR or CRLF, so input from raw-mode consoles that only
// send CR splits the same way as piped input. A CR at the end of the buffer
// waits for more data unless atEOF is set.
func SplitLines(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}

	if i := bytes.IndexAny(data, "\r\n"); i >= 0 {
		if data[i] == '\n' {
			return i + 1, data[:i], nil
		}
		if i+1 < len(data) {
			if data[i+1] == '\n' {
				return i + 2, data[:i], nil
			}
			return i + 1, data[:i], nil
		}
		if atEOF {
			return i + 1, data[:i], nil
		}
		return 0, nil, nil
	}

	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}

var _ bufio.SplitFunc = SplitLines
