package table

import (
	"bytes"
	"testing"
)

func TestParseHeaderOrdering(t *testing.T) {
	got, err := ParseHeader("site\tuser\turl\ttags\tmtime\tnote\tpassword")
	if err != nil {
		t.Fatalf("ParseHeader: %v", err)
	}
	want := []string{"site", "user", "url", "tags", "mtime", "note", "password"}
	if len(got) != len(want) {
		t.Fatalf("got %v want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v want %v", got, want)
		}
	}
}

func TestParseHeaderRejectsEmptyAndDuplicates(t *testing.T) {
	if _, err := ParseHeader(""); err == nil {
		t.Fatal("expected error for empty header")
	}
	if _, err := ParseHeader("site\tsite"); err == nil {
		t.Fatal("expected error for duplicate column")
	}
	var synErr *SyntaxError
	_, err := ParseHeader("site\t\tuser")
	if err == nil {
		t.Fatal("expected error for empty column name")
	}
	if se, ok := err.(*SyntaxError); ok {
		synErr = se
	}
	if synErr == nil || synErr.Line != 0 {
		t.Fatalf("expected header-level SyntaxError, got %v", err)
	}
}

func TestParseFormatRoundTrip(t *testing.T) {
	data := []byte("site\tuser\tpassword\nexample.com\tjohny\thunter2\nother.com\talice\ts3cr3t\n")
	header, rows, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	out, err := Format(header, rows)
	if err != nil {
		t.Fatalf("Format: %v", err)
	}
	if !bytes.Equal(out, data) {
		t.Fatalf("round trip mismatch: got %q want %q", out, data)
	}
}

func TestParseSkipsBlankLines(t *testing.T) {
	data := []byte("site\tuser\n\nexample.com\tjohny\n\n")
	header, rows, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(header) != 2 {
		t.Fatalf("unexpected header: %v", header)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
}

func TestParseWrongFieldCountReportsLine(t *testing.T) {
	data := []byte("site\tuser\tpassword\nexample.com\tjohny\n")
	_, _, err := Parse(data)
	se, ok := err.(*SyntaxError)
	if !ok {
		t.Fatalf("expected *SyntaxError, got %v", err)
	}
	if se.Line != 2 {
		t.Fatalf("expected line 2, got %d", se.Line)
	}
}

func TestParseMissingHeader(t *testing.T) {
	_, _, err := Parse(nil)
	se, ok := err.(*SyntaxError)
	if !ok || se.Line != 0 {
		t.Fatalf("expected header-level SyntaxError, got %v", err)
	}
}

// TestFormatRejectsTabInField covers the property that writing a tab inside
// a non-password field must fail rather than silently corrupt the table.
func TestFormatRejectsTabInField(t *testing.T) {
	header := []string{"site", "note"}
	rows := []Row{{"site": "example.com", "note": "has\ta tab"}}
	if _, err := Format(header, rows); err == nil {
		t.Fatal("expected error for tab embedded in field value")
	}
}

func TestFormatRejectsNewlineInField(t *testing.T) {
	header := []string{"site", "note"}
	rows := []Row{{"site": "example.com", "note": "line one\nline two"}}
	if _, err := Format(header, rows); err == nil {
		t.Fatal("expected error for newline embedded in field value")
	}
}

func TestValidateField(t *testing.T) {
	cases := []struct {
		value   string
		wantErr bool
	}{
		{"plain", false},
		{"", false},
		{"has\ttab", true},
		{"has\nnewline", true},
		{"has\rcr", true},
	}
	for _, c := range cases {
		err := ValidateField(c.value)
		if (err != nil) != c.wantErr {
			t.Errorf("ValidateField(%q): got err=%v, want err=%v", c.value, err, c.wantErr)
		}
	}
}
