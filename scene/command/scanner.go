// Package command implements the command/socket protocol framing of spec
// §6.1: a line-oriented input scanner that reads `<name> <json-value>\n`
// commands off any byte-stream duplex, and an output framer that writes
// the five response frame shapes back. The command *grammar* (pipes `|`,
// assignment `:=`, target direction `::`) and the concrete socket
// transports are explicitly out of scope (spec §1) — this package only
// implements the byte-level contract those collaborators would sit on top
// of.
/*
 * Copyright (c) 2024, Brayan-724. All rights reserved.
 */
package command

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"

	"github.com/Brayan-724/flo-scene/cmn/cos"
)

// Command is one parsed input line: a name token and its raw JSON
// argument value (spec §6.1).
type Command struct {
	Name string
	JSON json.RawMessage
}

// Scanner reads Commands off a byte stream, one line at a time.
type Scanner struct {
	r *bufio.Reader
}

// NewScanner wraps r.
func NewScanner(r io.Reader) *Scanner {
	return &Scanner{r: bufio.NewReader(r)}
}

func isNameStart(b byte) bool {
	return (b >= 'A' && b <= 'Z') || (b >= 'a' && b <= 'z') || b == '_'
}

func isNameCont(b byte) bool {
	return isNameStart(b) || (b >= '0' && b <= '9') || b == '.' || b == ':'
}

// Next reads and parses the next command line. On a parse error, per spec
// §6.1 ("parse errors reset parser state and discard tokens until the next
// newline"), Next discards the remainder of the malformed line before
// returning the error, so the caller can call Next again to resume at the
// next line. io.EOF is returned once the stream ends with no more input.
func (s *Scanner) Next() (Command, error) {
	if err := s.skipBlankLines(); err != nil {
		return Command{}, err
	}

	name, err := s.readName()
	if err != nil {
		s.discardLine()
		return Command{}, err
	}

	if err := s.skipRequiredSpace(); err != nil {
		s.discardLine()
		return Command{}, err
	}

	raw, err := s.readJSONValue()
	if err != nil {
		s.discardLine()
		return Command{}, err
	}

	if err := s.expectEndOfLine(); err != nil {
		s.discardLine()
		return Command{}, err
	}

	return Command{Name: name, JSON: raw}, nil
}

func (s *Scanner) skipBlankLines() error {
	for {
		b, err := s.r.ReadByte()
		if err != nil {
			return err
		}
		if b == '\n' || b == '\r' || b == ' ' || b == '\t' {
			continue
		}
		return s.r.UnreadByte()
	}
}

func (s *Scanner) readName() (string, error) {
	var buf bytes.Buffer
	b, err := s.r.ReadByte()
	if err != nil {
		return "", err
	}
	if !isNameStart(b) {
		return "", &cos.ErrCannotConvertResponse{Reason: "invalid command name start"}
	}
	buf.WriteByte(b)
	for {
		b, err := s.r.ReadByte()
		if err != nil {
			if err == io.EOF {
				break
			}
			return "", err
		}
		if !isNameCont(b) {
			_ = s.r.UnreadByte()
			break
		}
		buf.WriteByte(b)
	}
	return buf.String(), nil
}

func (s *Scanner) skipRequiredSpace() error {
	n := 0
	for {
		b, err := s.r.ReadByte()
		if err != nil {
			return err
		}
		if b == ' ' || b == '\t' {
			n++
			continue
		}
		if n == 0 {
			return &cos.ErrCannotConvertResponse{Reason: "expected whitespace after command name"}
		}
		return s.r.UnreadByte()
	}
}

// readJSONValue consumes exactly one JSON value: it tracks bracket/brace
// nesting depth and string-quote/escape state so an embedded newline
// inside a JSON string does not get mistaken for the command terminator
// (spec §6.1: "the tokenizer must correctly close JSON spans before
// treating the newline as terminator").
func (s *Scanner) readJSONValue() (json.RawMessage, error) {
	var buf bytes.Buffer
	depth := 0
	inString := false
	escaped := false
	started := false

	for {
		b, err := s.r.ReadByte()
		if err != nil {
			return nil, err
		}

		if inString {
			buf.WriteByte(b)
			switch {
			case escaped:
				escaped = false
			case b == '\\':
				escaped = true
			case b == '"':
				inString = false
				if depth == 0 {
					goto done
				}
			}
			continue
		}

		switch b {
		case '"':
			started = true
			inString = true
			buf.WriteByte(b)
		case '{', '[':
			started = true
			depth++
			buf.WriteByte(b)
		case '}', ']':
			depth--
			buf.WriteByte(b)
			if depth == 0 {
				goto done
			}
			if depth < 0 {
				return nil, &cos.ErrCannotConvertResponse{Reason: "unbalanced JSON value"}
			}
		case ' ', '\t':
			if depth == 0 && started {
				goto done
			}
			if depth > 0 {
				buf.WriteByte(b)
			}
		case '\n', '\r':
			if depth == 0 {
				if !started {
					return nil, &cos.ErrCannotConvertResponse{Reason: "missing JSON value"}
				}
				if err := s.r.UnreadByte(); err != nil {
					return nil, err
				}
				goto done
			}
			buf.WriteByte(b)
		default:
			started = true
			buf.WriteByte(b)
		}
	}

done:
	raw := buf.Bytes()
	if !json.Valid(raw) {
		return nil, &cos.ErrCannotConvertResponse{Reason: "invalid JSON value"}
	}
	out := make(json.RawMessage, len(raw))
	copy(out, raw)
	return out, nil
}

func (s *Scanner) expectEndOfLine() error {
	for {
		b, err := s.r.ReadByte()
		if err != nil {
			return err
		}
		switch b {
		case ' ', '\t', '\r':
			continue
		case '\n':
			return nil
		default:
			return &cos.ErrCannotConvertResponse{Reason: "trailing content after command"}
		}
	}
}

func (s *Scanner) discardLine() {
	for {
		b, err := s.r.ReadByte()
		if err != nil {
			return
		}
		if b == '\n' {
			return
		}
	}
}
