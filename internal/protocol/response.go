package protocol

import (
	"regexp"
	"strconv"
	"strings"
)

// ResponseKind classifies a response line.
type ResponseKind int

const (
	// ResponseEmpty is a blank line or a read that timed out.
	ResponseEmpty ResponseKind = iota
	// ResponseOK acknowledges a mutation.
	ResponseOK
	// ResponseError rejects a command.
	ResponseError
	// ResponseValue answers a query.
	ResponseValue
)

func (k ResponseKind) String() string {
	switch k {
	case ResponseOK:
		return "ok"
	case ResponseError:
		return "error"
	case ResponseValue:
		return "value"
	default:
		return "empty"
	}
}

// fieldSep splits "151 (0x97) in 412 ms" into its words.
var fieldSep = regexp.MustCompile(`[ ()]+`)

// Response is a parsed response line. Verbose-mode annotations are kept
// alongside the leading token rather than discarded.
type Response struct {
	Line string
	Kind ResponseKind

	// Token is the first word, e.g. "151", "OK" or "ERROR".
	Token string
	// Annotation is everything after the token, e.g. "(0x97) in 412 ms".
	Annotation string
	// Decoded is the text of the first parenthetical, e.g. "0x97" or "short".
	Decoded string
	// Fields is the line split on spaces and parentheses.
	Fields []string
}

// ParseResponse parses one response line with its terminator already
// stripped.
func ParseResponse(line string) Response {
	r := Response{Line: line}
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return r
	}

	for _, f := range fieldSep.Split(trimmed, -1) {
		if f != "" {
			r.Fields = append(r.Fields, f)
		}
	}

	token, rest, _ := strings.Cut(trimmed, " ")
	r.Token = token
	r.Annotation = strings.TrimSpace(rest)
	if open := strings.IndexByte(trimmed, '('); open >= 0 {
		if end := strings.IndexByte(trimmed[open:], ')'); end > 0 {
			r.Decoded = trimmed[open+1 : open+end]
		}
	}

	switch {
	case strings.HasPrefix(trimmed, TokenError):
		r.Kind = ResponseError
		r.Token = TokenError
	case token == TokenOK:
		r.Kind = ResponseOK
	default:
		r.Kind = ResponseValue
	}
	return r
}

// Value returns the token as an integer.
func (r Response) Value() (int, bool) {
	if r.Kind != ResponseValue {
		return 0, false
	}
	n, err := strconv.Atoi(r.Token)
	if err != nil {
		return 0, false
	}
	return n, true
}

// Byte returns the token as a CV byte value.
func (r Response) Byte() (uint8, bool) {
	n, ok := r.Value()
	if !ok || n < 0 || n > 255 {
		return 0, false
	}
	return uint8(n), true
}

// FunctionsOn parses the "F ?" reply ("0 4 OK") into function numbers.
func (r Response) FunctionsOn() ([]int, bool) {
	if len(r.Fields) == 0 || r.Fields[len(r.Fields)-1] != TokenOK {
		return nil, false
	}
	out := make([]int, 0, len(r.Fields)-1)
	for _, f := range r.Fields[:len(r.Fields)-1] {
		n, err := strconv.Atoi(f)
		if err != nil {
			return nil, false
		}
		out = append(out, n)
	}
	return out, true
}
