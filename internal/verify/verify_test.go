package verify

import (
	"errors"
	"fmt"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestPutGet(t *testing.T) {
	tests := []struct {
		name    string
		output  string
		wantErr bool
	}{
		{"zero errors", "put speed: 120 rps\ntotal err: 0\n", false},
		{"errors reported", "put speed: 120 rps\ntotal err: 3\n", true},
		{"marker missing", "put speed: 120 rps\n", true},
		{"panic trumps zero errors", "thread 'main' panicked at src/main.rs\ntotal err: 0\n", true},
		{"empty output", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := PutGet(tt.output)
			if (err != nil) != tt.wantErr {
				t.Errorf("Expected wantErr=%v, got err=%v", tt.wantErr, err)
			}
			if err != nil && !errors.Is(err, ErrCheckFailed) {
				t.Errorf("Expected a check failure, got %v", err)
			}
		})
	}
}

func TestBehaviorMarker(t *testing.T) {
	if err := BehaviorMarker("put", "put speed: 100 rps\n"); err != nil {
		t.Errorf("Expected clean output to pass, got %v", err)
	}
	if err := BehaviorMarker("put", "put errors:\n  status Unavailable: 4\n"); err == nil {
		t.Error("Expected put error marker to fail")
	}
	if err := BehaviorMarker("get", "thread panicked at 'oops'\n"); err == nil {
		t.Error("Expected panic marker to fail")
	}
	// Another behavior's marker must not trip the check
	if err := BehaviorMarker("get", "put errors:\n"); err != nil {
		t.Errorf("Expected foreign marker to pass, got %v", err)
	}
}

func TestParseExist(t *testing.T) {
	tests := []struct {
		name        string
		output      string
		matched     uint64
		total       uint64
		wantErr     error
		expectError bool
	}{
		{name: "plain", output: "9 of 9", matched: 9, total: 9},
		{name: "surrounded", output: "exist speed: 10 rps\n900 of 1000 keys\ndone", matched: 900, total: 1000},
		{name: "newline separated", output: "42\nof\n43", matched: 42, total: 43},
		{name: "no tally", output: "exist finished", wantErr: ErrNoOutput, expectError: true},
		{name: "empty", output: "", wantErr: ErrNoOutput, expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			matched, total, err := ParseExist(tt.output)
			if tt.expectError {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("Expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Expected parse to succeed, got %v", err)
			}
			if matched != tt.matched || total != tt.total {
				t.Errorf("Expected %d of %d, got %d of %d", tt.matched, tt.total, matched, total)
			}
		})
	}
}

func TestExist(t *testing.T) {
	if err := Exist("9 of 9"); err != nil {
		t.Errorf("Expected full tally to pass, got %v", err)
	}

	err := Exist("8 of 9")
	if !errors.Is(err, ErrCheckFailed) {
		t.Errorf("Expected check failure on mismatch, got %v", err)
	}

	err = Exist("nothing to see")
	if !errors.Is(err, ErrNoOutput) {
		t.Errorf("Expected no-output error, got %v", err)
	}
	if errors.Is(err, ErrCheckFailed) {
		t.Error("Missing output is a harness-level error, not a check failure")
	}
}

func TestDoubledExist(t *testing.T) {
	// 9 written keys probed over a 19-key range: exactly 9 must match
	if err := DoubledExist("9 of 19", 9); err != nil {
		t.Errorf("Expected doubled exist to pass, got %v", err)
	}
	if err := DoubledExist("19 of 19", 9); !errors.Is(err, ErrCheckFailed) {
		t.Errorf("Expected over-count to fail the check, got %v", err)
	}
	if err := DoubledExist("8 of 19", 9); !errors.Is(err, ErrCheckFailed) {
		t.Errorf("Expected under-count to fail the check, got %v", err)
	}
}

func TestParseExistProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	whitespace := gen.OneConstOf(" ", "  ", "\t", "\n", " \n ")
	padding := gen.AlphaString()

	properties.Property("extracts the tally from arbitrary surroundings", prop.ForAll(
		func(n, m uint32, ws1, ws2, prefix, suffix string) bool {
			output := fmt.Sprintf("%s %d%sof%s%d %s", prefix, n, ws1, ws2, m, suffix)
			matched, total, err := ParseExist(output)
			return err == nil && matched == uint64(n) && total == uint64(m)
		},
		gen.UInt32(), gen.UInt32(), whitespace, whitespace, padding, padding,
	))

	properties.Property("absence of a tally is reported, never treated as zero", prop.ForAll(
		func(text string) bool {
			_, _, err := ParseExist(text)
			return errors.Is(err, ErrNoOutput)
		},
		gen.AlphaString(),
	))

	properties.TestingRun(t)
}
