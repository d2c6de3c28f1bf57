package sge

import (
	"fmt"

	"github.com/rileyhilliard/sgebot/internal/errors"
)

// ParseError describes a report line that does not fit the expected columns.
type ParseError struct {
	Report string // qstat -f, qhost, qstat
	Line   int    // 1-based
	Text   string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s line %d: %s: %q", e.Report, e.Line, e.Reason, e.Text)
}

func newParseError(report string, line int, text, reason string) error {
	pe := &ParseError{Report: report, Line: line, Text: text, Reason: reason}
	return errors.WrapWithCode(pe, errors.ErrParse,
		fmt.Sprintf("Unexpected %s output", report),
		"The scheduler output format may have changed; run the command by hand and compare.")
}
