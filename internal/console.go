// v1
// console.go
package internal

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// AbortKey is the line the operator types to stop the drive.
const AbortKey = "q"

// Console is the sole owner of the operator terminal. A pump goroutine
// turns input lines into a channel so the control loop can poll for
// the abort key without blocking, while the shutdown sequence reads
// the same stream for its prompts. The two never contend: prompts only
// run after the loop has stopped polling.
type Console struct {
	out   io.Writer
	lines chan string
}

func NewConsole(r io.Reader, out io.Writer) *Console {
	c := &Console{out: out, lines: make(chan string)}
	go func() {
		sc := bufio.NewScanner(r)
		for sc.Scan() {
			c.lines <- strings.TrimSpace(sc.Text())
		}
		close(c.lines)
	}()
	return c
}

// PollAbort reports whether the operator entered the abort key since
// the last poll. Non-blocking; other input is discarded.
func (c *Console) PollAbort() bool {
	select {
	case line, ok := <-c.lines:
		return ok && line == AbortKey
	default:
		return false
	}
}

// Prompt prints the message and blocks for one input line. A closed
// terminal yields an empty answer so an unattended shutdown still
// completes.
func (c *Console) Prompt(msg string) string {
	fmt.Fprint(c.out, msg)
	line := <-c.lines
	return line
}
