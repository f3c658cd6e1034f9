package source

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bft-labs/logship/pkg/event"
)

// KindStdin reads newline-delimited log lines.
const KindStdin = "stdin"

// DefaultMaxLineBytes bounds a single line read from stdin.
const DefaultMaxLineBytes = 100 * 1024

// StdinConfig is the stdin source table.
type StdinConfig struct {
	MaxLineBytes int               `toml:"max_line_bytes"`
	Fields       map[string]string `toml:"fields"`
}

// Stdin turns each input line into an event.Log.
type Stdin struct {
	lines *lineReader
	cfg   StdinConfig
	nowFn func() time.Time
}

// stdinLines is shared by every Stdin reading os.Stdin, so a pipeline
// started on reload picks up where the previous one stopped.
var stdinLines = sync.OnceValue(func() *lineReader { return newLineReader(os.Stdin) })

// NewStdin reads from os.Stdin.
func NewStdin(cfg StdinConfig) *Stdin {
	return newStdin(stdinLines(), cfg)
}

// NewReader reads lines from r.
func NewReader(r io.Reader, cfg StdinConfig) *Stdin {
	return newStdin(newLineReader(r), cfg)
}

func newStdin(lines *lineReader, cfg StdinConfig) *Stdin {
	if cfg.MaxLineBytes <= 0 {
		cfg.MaxLineBytes = DefaultMaxLineBytes
	}
	return &Stdin{lines: lines, cfg: cfg, nowFn: func() time.Time { return time.Now().UTC() }}
}

// OutputType implements Source.
func (s *Stdin) OutputType() event.DataType { return event.Log }

// Run implements Source. It returns nil at end of input and ctx.Err() as
// soon as ctx is done. Empty lines are skipped. A line taken from the
// reader but not emitted is handed back for the next Run.
func (s *Stdin) Run(ctx context.Context, out chan<- event.Event) error {
	s.lines.setMaxLine(s.cfg.MaxLineBytes)

	for {
		line, err := s.lines.next(ctx)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if line == "" {
			continue
		}

		ev := &event.Log{Timestamp: s.nowFn(), Message: line}
		if len(s.cfg.Fields) > 0 {
			ev.Fields = make(map[string]any, len(s.cfg.Fields))
			for k, v := range s.cfg.Fields {
				ev.Fields[k] = v
			}
		}
		if err := emit(ctx, out, ev); err != nil {
			s.lines.unread(line)
			return err
		}
	}
}

// lineReader reads r on one goroutine, started on first use. Consumers
// take lines with next and can return at any time without losing input.
type lineReader struct {
	r       *bufio.Reader
	maxLine atomic.Int64
	start   sync.Once
	lines   chan string
	err     error // written before lines is closed

	mu   sync.Mutex
	held []string
}

func newLineReader(r io.Reader) *lineReader {
	lr := &lineReader{r: bufio.NewReader(r), lines: make(chan string)}
	lr.maxLine.Store(DefaultMaxLineBytes)
	return lr
}

func (lr *lineReader) setMaxLine(n int) {
	lr.maxLine.Store(int64(n))
}

// next returns the next line. It returns io.EOF at end of input.
func (lr *lineReader) next(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	lr.mu.Lock()
	if len(lr.held) > 0 {
		line := lr.held[0]
		lr.held = lr.held[1:]
		lr.mu.Unlock()
		return line, nil
	}
	lr.mu.Unlock()

	lr.start.Do(func() { go lr.loop() })
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case line, ok := <-lr.lines:
		if !ok {
			if lr.err != nil {
				return "", lr.err
			}
			return "", io.EOF
		}
		return line, nil
	}
}

// unread puts line back in front of the stream.
func (lr *lineReader) unread(line string) {
	lr.mu.Lock()
	lr.held = append([]string{line}, lr.held...)
	lr.mu.Unlock()
}

func (lr *lineReader) loop() {
	defer close(lr.lines)
	for {
		line, err := lr.readLine()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				lr.err = fmt.Errorf("read stdin: %w", err)
			}
			return
		}
		lr.lines <- line
	}
}

// readLine returns one line without its line ending. A final line without
// a newline is returned before io.EOF.
func (lr *lineReader) readLine() (string, error) {
	var buf []byte
	for {
		frag, err := lr.r.ReadSlice('\n')
		buf = append(buf, frag...)
		line := bytes.TrimSuffix(bytes.TrimSuffix(buf, []byte("\n")), []byte("\r"))
		if limit := lr.maxLine.Load(); int64(len(line)) > limit {
			return "", fmt.Errorf("line exceeds %d bytes: %w", limit, bufio.ErrTooLong)
		}

		switch {
		case err == nil:
			return string(line), nil
		case errors.Is(err, bufio.ErrBufferFull):
			continue
		case errors.Is(err, io.EOF) && len(buf) > 0:
			return string(line), nil
		default:
			return "", err
		}
	}
}
