// Package verify applies the pass/fail rules to captured workload driver
// output. It is the only place raw driver text is inspected; everything
// above it works with typed results.
package verify

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

const (
	zeroErrorsMarker = "total err: 0"
	panicMarker      = "panicked"
)

// ErrNoOutput indicates the driver output had no parsable existence tally
var ErrNoOutput = errors.New("no output captured")

// ErrCheckFailed marks a genuine verification failure (a product defect),
// as opposed to a harness defect. Callers report it with the comparison
// data instead of treating it as a crash.
var ErrCheckFailed = errors.New("check failed")

// existPattern matches the "<matched> of <total>" tally the driver prints,
// tolerating arbitrary surrounding text and whitespace
var existPattern = regexp.MustCompile(`\b([0-9]+)\s+of\s+([0-9]+)\b`)

// PutGet checks a put or get run: the output must report zero errors and
// must not contain a panic trace
func PutGet(output string) error {
	if strings.Contains(output, panicMarker) {
		return fmt.Errorf("%w: driver panicked, see output", ErrCheckFailed)
	}
	if !strings.Contains(output, zeroErrorsMarker) {
		return fmt.Errorf("%w: driver reported errors, see output", ErrCheckFailed)
	}
	return nil
}

// BehaviorMarker checks a run by the per-behavior error marker the driver
// prints when any operation failed ("put errors:", "get errors:", ...)
func BehaviorMarker(behavior, output string) error {
	if strings.Contains(output, panicMarker) {
		return fmt.Errorf("%w: driver panicked during %s, see output", ErrCheckFailed, behavior)
	}
	if strings.Contains(output, behavior+" errors:") {
		return fmt.Errorf("%w: %s test failed, see output", ErrCheckFailed, behavior)
	}
	return nil
}

// ParseExist extracts the (matched, total) pair from an exist run's output
func ParseExist(output string) (matched, total uint64, err error) {
	groups := existPattern.FindStringSubmatch(output)
	if groups == nil {
		return 0, 0, ErrNoOutput
	}

	matched, err = strconv.ParseUint(groups[1], 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid matched count %q: %w", groups[1], err)
	}
	total, err = strconv.ParseUint(groups[2], 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid total count %q: %w", groups[2], err)
	}

	return matched, total, nil
}

// Exist checks a plain exist run: every requested key must be found
func Exist(output string) error {
	matched, total, err := ParseExist(output)
	if err != nil {
		return err
	}
	if matched != total {
		return fmt.Errorf("%w: %d of %d keys exist", ErrCheckFailed, matched, total)
	}
	return nil
}

// DoubledExist checks an exist run over a range twice the written count:
// exactly the written keys must match, proving keys that were never written
// are not reported as present
func DoubledExist(output string, written uint64) error {
	matched, _, err := ParseExist(output)
	if err != nil {
		return err
	}
	if matched != written {
		return fmt.Errorf("%w: %d keys exist, expected exactly %d", ErrCheckFailed, matched, written)
	}
	return nil
}
