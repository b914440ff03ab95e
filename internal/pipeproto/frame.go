package pipeproto

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"syscall"

	"github.com/rs/zerolog/log"
)

// Message is one decoded line of the worker<->master protocol:
// "TAG pid[:payload]\n", minus the trailing newline.
type Message struct {
	Tag     Tag
	Pid     int
	Payload string // raw text after the ":" separator, if any
}

// Writer writes framed messages onto a shared worker_write-style pipe.
// Writes are best-effort: a broken pipe (peer gone) is swallowed rather
// than returned, so a dead reader never blocks or panics a writer.
type Writer struct {
	w io.Writer
}

func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// Write encodes and sends one message. Errors from a dead peer are logged
// at debug level and suppressed; only unexpected errors are returned.
//
// PING is the one tag whose payload isn't colon-prefixed: its line reads
// "p<pid>{json-metrics}", the JSON object running straight up against the
// pid with no separator. Every other tag's payload (when present) is
// colon-prefixed: "TAG<pid>:<payload>".
func (p *Writer) Write(tag Tag, pid int, payload string) error {
	var line string
	switch {
	case payload == "":
		line = fmt.Sprintf("%c%d\n", tag, pid)
	case tag == Ping:
		line = fmt.Sprintf("%c%d%s\n", tag, pid, payload)
	default:
		line = fmt.Sprintf("%c%d:%s\n", tag, pid, payload)
	}

	_, err := io.WriteString(p.w, line)
	if err != nil {
		if isPeerGone(err) {
			log.Debug().Err(err).Str("tag", tag.String()).Msg("peer gone, dropping message")
			return nil
		}
		return fmt.Errorf("pipeproto: write %s: %w", tag, err)
	}
	return nil
}

func isPeerGone(err error) bool {
	return errors.Is(err, syscall.EPIPE) || errors.Is(err, io.ErrClosedPipe)
}

// Reader decodes the tag-framed protocol off the master's read end of
// worker_write: one byte for the tag, then the rest of the line up to
// the newline. bufio.Reader.ReadByte plus ReadString('\n') gives that
// two-step shape directly, since the read end here is a plain blocking
// pipe read consumed from its own goroutine.
type Reader struct {
	r *bufio.Reader
}

func NewReader(r io.Reader) *Reader {
	return &Reader{r: bufio.NewReader(r)}
}

// ReadMessage blocks until one full line arrives or the pipe errors/EOFs.
func (p *Reader) ReadMessage() (Message, error) {
	tagByte, err := p.r.ReadByte()
	if err != nil {
		return Message{}, err
	}

	tag := Tag(tagByte)
	if tag == Wakeup {
		return Message{Tag: Wakeup}, nil
	}

	line, err := p.r.ReadString('\n')
	if err != nil {
		return Message{}, fmt.Errorf("pipeproto: read body for %s: %w", tag, err)
	}
	line = strings.TrimSuffix(line, "\n")

	if tag == Ping {
		pid, payload, err := splitLeadingPid(line)
		if err != nil {
			return Message{}, fmt.Errorf("pipeproto: malformed pid in %q: %w", line, err)
		}
		return Message{Tag: tag, Pid: pid, Payload: payload}, nil
	}

	pidStr, payload, _ := strings.Cut(line, ":")
	pid, err := strconv.Atoi(pidStr)
	if err != nil {
		return Message{}, fmt.Errorf("pipeproto: malformed pid in %q: %w", line, err)
	}

	return Message{Tag: tag, Pid: pid, Payload: payload}, nil
}

// splitLeadingPid reads the leading run of decimal digits off line as a
// pid, returning everything after it as the payload (no separator
// between the two, unlike every other tag).
func splitLeadingPid(line string) (int, string, error) {
	i := 0
	for i < len(line) && line[i] >= '0' && line[i] <= '9' {
		i++
	}
	if i == 0 {
		return 0, "", fmt.Errorf("no leading pid digits")
	}
	pid, err := strconv.Atoi(line[:i])
	if err != nil {
		return 0, "", err
	}
	return pid, line[i:], nil
}
