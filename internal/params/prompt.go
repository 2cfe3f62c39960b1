// File: internal/params/prompt.go
// Brief: Line-oriented operator prompts.

package params

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
)

// Question describes the parameter the operator is asked about.
type Question struct {
	Name        string
	Description string
	Type        string
}

// Prompter asks the operator for a parameter value. The returned string is
// the raw reply including any line terminator.
type Prompter interface {
	Ask(ctx context.Context, q Question) (string, error)
}

// ErrPromptAbandoned is returned by Line after an earlier read was cut short
// by context cancellation.
var ErrPromptAbandoned = errors.New("prompt input abandoned after cancellation")

// LinePrompter reads one line per question from In and writes prompts to Out.
// It is not safe for concurrent use.
type LinePrompter struct {
	in  io.Reader
	out io.Writer

	once   sync.Once
	reader *bufio.Reader
	// abandoned is set when a cancelled read left its goroutine blocked on
	// reader; no further reads may share the buffer.
	abandoned bool
}

// NewLinePrompter builds a prompter over in/out.
func NewLinePrompter(in io.Reader, out io.Writer) *LinePrompter {
	return &LinePrompter{in: in, out: out}
}

// Ask prints the description/type pair and reads one reply line.
func (p *LinePrompter) Ask(ctx context.Context, q Question) (string, error) {
	fmt.Fprintf(p.out, "Description: %s\n", q.Description)
	fmt.Fprintf(p.out, "Type: %s\n", q.Type)
	return p.Line(ctx, "Enter parameter value: ")
}

// Line prints label and reads a single line, returned with its terminator.
// A reply cut short by EOF is returned as-is; EOF with no data is an error.
func (p *LinePrompter) Line(ctx context.Context, label string) (string, error) {
	if p.in == nil || p.out == nil {
		return "", errors.New("prompt input/output is not configured")
	}
	if p.abandoned {
		return "", ErrPromptAbandoned
	}
	p.once.Do(func() { p.reader = bufio.NewReader(p.in) })
	fmt.Fprint(p.out, label)

	type result struct {
		line string
		err  error
	}
	readResult := make(chan result, 1)
	go func() {
		line, err := p.reader.ReadString('\n')
		readResult <- result{line: line, err: err}
	}()
	select {
	case <-ctx.Done():
		p.abandoned = true
		// The process stdin stays open; only private readers are closed.
		if rc, ok := p.in.(io.ReadCloser); ok {
			if f, isFile := p.in.(*os.File); !isFile || f != os.Stdin {
				_ = rc.Close()
			}
		}
		fmt.Fprintln(p.out)
		return "", ctx.Err()
	case res := <-readResult:
		if res.err != nil {
			if errors.Is(res.err, io.EOF) && res.line != "" {
				return res.line, nil
			}
			return "", res.err
		}
		return res.line, nil
	}
}
