package model

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"strings"
	"time"

	"cuelang.org/go/cue"
	cueerrors "cuelang.org/go/cue/errors"
)

// CueErrorCode classifies a validation problem
type CueErrorCode string

const (
	CodeUnknownField      CueErrorCode = "unknown_field"
	CodeMissingRequired   CueErrorCode = "missing_required"
	CodeConflictingValues CueErrorCode = "conflicting_values"
	CodeValidationError   CueErrorCode = "validation_error"
)

type CueErrorPosition struct {
	Filename string
	Line     int
	Column   int
}

// CueErrorDetail is one validation problem in a form suitable for humans.
// Raw keeps the original cue message.
type CueErrorDetail struct {
	Path    string
	Code    CueErrorCode
	Message string
	Pos     CueErrorPosition
	Raw     string
}

func (d CueErrorDetail) Attr(key string) slog.Attr {
	attrs := []any{
		slog.String("path", d.Path),
		slog.String("code", string(d.Code)),
		slog.String("message", d.Message),
	}
	if d.Pos.Filename != "" {
		attrs = append(attrs, slog.Group("pos",
			slog.String("filename", d.Pos.Filename),
			slog.Int("line", d.Pos.Line),
			slog.Int("column", d.Pos.Column),
		))
	}
	return slog.Group(key, attrs...)
}

func humanize(err error, _ cue.Value, _ cue.Value) []CueErrorDetail {
	var ret []CueErrorDetail
	seen := make(map[string]struct{})
	for _, e := range cueerrors.Errors(err) {
		path := fieldPath(e.Path())
		format, args := e.Msg()
		msg := fmt.Sprintf(format, args...)

		raw := msg
		if full := strings.Join(e.Path(), "."); full != "" {
			raw = full + ": " + msg
		}
		if _, ok := seen[raw]; ok {
			continue
		}
		seen[raw] = struct{}{}

		code, human := classify(path, msg)
		ret = append(ret, CueErrorDetail{
			Path:    path,
			Code:    code,
			Message: human,
			Pos:     position(e),
			Raw:     raw,
		})
	}
	return ret
}

// fieldPath drops the schema definition (#Config) from the cue path
func fieldPath(p []string) string {
	if len(p) > 0 && strings.HasPrefix(p[0], "#") {
		p = p[1:]
	}
	return strings.Join(p, ".")
}

func classify(path, msg string) (CueErrorCode, string) {
	field := path
	if idx := strings.LastIndexByte(path, '.'); idx >= 0 {
		field = path[idx+1:]
	}
	switch {
	case strings.Contains(msg, "field not allowed"):
		return CodeUnknownField, "Field " + field + " is not allowed"
	case strings.Contains(msg, "incomplete value"):
		return CodeMissingRequired, "Field " + field + " is required"
	case strings.Contains(msg, "mismatched types"), strings.Contains(msg, "conflicting values"):
		return CodeConflictingValues, "Conflicting values for " + field + ": " + msg
	default:
		return CodeValidationError, "Field " + field + " is invalid: " + msg
	}
}

func position(e cueerrors.Error) CueErrorPosition {
	for _, pos := range cueerrors.Positions(e) {
		if pos.Filename() != configFilename {
			continue
		}
		return CueErrorPosition{
			Filename: pos.Filename(),
			Line:     pos.Line(),
			Column:   pos.Column(),
		}
	}
	return CueErrorPosition{}
}

// TCPAddr is a net.TCPAddr which can be read from the configuration. The
// textual form may reference environment variables.
type TCPAddr struct {
	*net.TCPAddr
}

func (a *TCPAddr) UnmarshalText(text []byte) error {
	s := os.ExpandEnv(string(text))
	if s == "" {
		return errors.New("tcp address can't be empty")
	}
	addr, err := net.ResolveTCPAddr("tcp", s)
	if err != nil {
		return fmt.Errorf("parsing tcp address %q: %w", s, err)
	}
	a.TCPAddr = addr
	return nil
}

func (a TCPAddr) MarshalText() ([]byte, error) {
	if a.TCPAddr == nil {
		return []byte{}, nil
	}
	return []byte(a.String()), nil
}

func (a TCPAddr) AsTCPAddr() *net.TCPAddr {
	return a.TCPAddr
}

// Duration is a time.Duration written as "500ms" or "2s" in the configuration
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(os.ExpandEnv(string(text)))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d Duration) IsZero() bool {
	return d.Duration == 0
}
