package command

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"sync"

	jsoniter "github.com/json-iterator/go"
)

var prettyJSON = jsoniter.ConfigCompatibleWithStandardLibrary

// Writer frames the five output-direction response shapes of spec §6.1
// onto an underlying byte-stream writer. It serializes concurrent writers
// (the output task polling both command completions and the background
// stream multiplexer, per §6.1's closing paragraph) behind one mutex so
// frames from different sources never interleave mid-line.
type Writer struct {
	mu sync.Mutex
	w  io.Writer
}

// NewWriter wraps w. Per spec §6.1, "Initial output is \n\n> " — callers
// emit that once via InitialPrompt after construction.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// InitialPrompt emits the protocol's opening bytes.
func (o *Writer) InitialPrompt() error {
	return o.raw("\n\n> ")
}

// Message writes an indented message-response frame: two leading spaces,
// with any embedded newline re-indented the same way (spec §6.1: "a
// message response (indented two spaces; embedded newlines re-indented)").
func (o *Writer) Message(msg string) error {
	lines := strings.Split(msg, "\n")
	var b bytes.Buffer
	for _, line := range lines {
		b.WriteString("  ")
		b.WriteString(line)
		b.WriteByte('\n')
	}
	return o.raw(b.String())
}

// JSON writes a pretty-printed JSON response frame followed by a newline.
func (o *Writer) JSON(v any) error {
	data, err := prettyJSON.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return o.raw(string(data) + "\n")
}

// OpenStream announces a new background stream numbered n: `<<< <n>\n`.
func (o *Writer) OpenStream(n int) error {
	return o.raw(fmt.Sprintf("<<< %d\n", n))
}

// Event writes one event from background stream n: `<<n> <json>\n`.
func (o *Writer) Event(n int, v any) error {
	data, err := prettyJSON.Marshal(v)
	if err != nil {
		return err
	}
	return o.raw(fmt.Sprintf("<<%d> %s\n", n, data))
}

// CloseStream announces background stream n has ended: `<EOS <n>\n`.
func (o *Writer) CloseStream(n int) error {
	return o.raw(fmt.Sprintf("<EOS %d\n", n))
}

// Error writes an error frame: `!!! <debug-string>\n` (spec §6.1, §7
// "the command interface renders errors as !!! <debug-string>\n").
func (o *Writer) Error(err error) error {
	return o.raw(fmt.Sprintf("!!! %v\n", err))
}

// Prompt writes the idle prompt: `\n> `.
func (o *Writer) Prompt() error {
	return o.raw("\n> ")
}

// Terminate writes the session termination frame: `\n\n.\n`.
func (o *Writer) Terminate() error {
	return o.raw("\n\n.\n")
}

func (o *Writer) raw(s string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	_, err := io.WriteString(o.w, s)
	return err
}
