package errors

import (
	stderrors "errors"
	"io"
	"strings"
	"testing"
)

func TestNewFromRegistry(t *testing.T) {
	err := New("E201")
	if err.Category != CategorySocket {
		t.Errorf("category = %q, want socket", err.Category)
	}
	if !strings.Contains(err.Error(), "E201") {
		t.Errorf("Error() = %q, want code prefix", err.Error())
	}
	if err.Suggestion == "" {
		t.Error("registered suggestion lost")
	}
}

func TestNewUnknownCode(t *testing.T) {
	err := New("E999")
	if err.Code != "E999" || err.Message != "Unknown error" {
		t.Errorf("unknown code = %+v", err)
	}
}

func TestWrapSupportsErrorsIs(t *testing.T) {
	err := New("E204").Wrap(io.ErrClosedPipe)
	if !stderrors.Is(err, io.ErrClosedPipe) {
		t.Error("wrapped cause not reachable through errors.Is")
	}
	if err.Detail == "" {
		t.Error("Wrap should default Detail to the cause text")
	}
}

func TestBuilderChaining(t *testing.T) {
	err := New("E103").
		WithDetail("flush interval must be positive").
		WithSuggestion("Use a duration like \"8ms\"")
	if err.Detail != "flush interval must be positive" {
		t.Errorf("detail = %q", err.Detail)
	}
	if err.Suggestion == "" {
		t.Error("suggestion not set")
	}
}

func TestFromErrorPassthrough(t *testing.T) {
	orig := New("E101")
	if got := FromError(orig, "E102"); got != orig {
		t.Error("coded error should pass through FromError")
	}
	if got := FromError(nil, "E102"); got != nil {
		t.Errorf("FromError(nil) = %v", got)
	}
	wrapped := FromError(io.EOF, "E102")
	if wrapped.Code != "E102" || !stderrors.Is(wrapped, io.EOF) {
		t.Errorf("FromError wrap = %+v", wrapped)
	}
}

func TestFormatIncludesHint(t *testing.T) {
	DisableColors()
	defer EnableColors()

	out := New("E201").Format()
	if !strings.Contains(out, "E201") || !strings.Contains(out, "Hint:") {
		t.Errorf("Format() = %q", out)
	}
}

func TestFormatCompactSingleLine(t *testing.T) {
	out := New("E202").FormatCompact()
	if strings.Contains(out, "\n") {
		t.Errorf("FormatCompact() has newline: %q", out)
	}
	if !strings.HasPrefix(out, "E202: ") {
		t.Errorf("FormatCompact() = %q", out)
	}
}

func TestWrapTextRespectsWidth(t *testing.T) {
	lines := wrapText(strings.Repeat("word ", 40), 20)
	for _, line := range lines {
		if len(line) > 20 {
			t.Errorf("line %q exceeds width", line)
		}
	}
}
