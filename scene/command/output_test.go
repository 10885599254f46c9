package command

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestWriterInitialPromptAndMessage(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)

	if err := w.InitialPrompt(); err != nil {
		t.Fatalf("InitialPrompt: %v", err)
	}
	if err := w.Message("hello\nworld"); err != nil {
		t.Fatalf("Message: %v", err)
	}

	want := "\n\n> " + "  hello\n  world\n"
	if buf.String() != want {
		t.Fatalf("want %q, got %q", want, buf.String())
	}
}

func TestWriterErrorFrame(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	if err := w.Error(errors.New("boom")); err != nil {
		t.Fatalf("Error: %v", err)
	}
	if buf.String() != "!!! boom\n" {
		t.Fatalf("want error frame, got %q", buf.String())
	}
}

func TestWriterBackgroundStreamFraming(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)

	if err := w.OpenStream(3); err != nil {
		t.Fatalf("OpenStream: %v", err)
	}
	if err := w.Event(3, map[string]int{"n": 1}); err != nil {
		t.Fatalf("Event: %v", err)
	}
	if err := w.CloseStream(3); err != nil {
		t.Fatalf("CloseStream: %v", err)
	}

	out := buf.String()
	if !strings.HasPrefix(out, "<<< 3\n") {
		t.Fatalf("missing open-stream frame: %q", out)
	}
	if !strings.Contains(out, "<<3> ") {
		t.Fatalf("missing event frame: %q", out)
	}
	if !strings.HasSuffix(out, "<EOS 3\n") {
		t.Fatalf("missing close-stream frame: %q", out)
	}
}

func TestWriterPromptAndTerminate(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	w.Prompt()
	w.Terminate()
	if buf.String() != "\n> \n\n.\n" {
		t.Fatalf("unexpected framing: %q", buf.String())
	}
}
