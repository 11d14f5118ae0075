package protocol

import (
	"errors"
	"strconv"
	"strings"
)

// ParseCommand turns a line into a Command. Lines that form a valid
// invocation in canonical spelling become typed commands; anything else
// (bad arity, out-of-range arguments, lower-case verbs, extra spaces) becomes
// a KindRaw command carrying the text unchanged, so the device still sees
// exactly what was written.
func ParseCommand(line string) (Command, error) {
	raw, err := NewRawCommand(line)
	if err != nil {
		return Command{}, err
	}
	typed, ok := parseTyped(line)
	if !ok || typed.Line() != line {
		return raw, nil
	}
	return typed, nil
}

var errMalformed = errors.New("malformed command")

func parseTyped(line string) (Command, bool) {
	f := strings.Fields(line)
	if len(f) == 0 || len(f[0]) != 1 {
		return Command{}, false
	}
	args := f[1:]

	var (
		c   Command
		err error
	)
	switch Verb(f[0][0]) {
	case VerbVerbosity:
		if len(args) != 2 || len(args[0]) != 1 {
			return Command{}, false
		}
		st, ok := ParseState(args[1])
		if !ok {
			return Command{}, false
		}
		c, err = NewVerbosityCommand(VerbosityTarget(args[0][0]), st)

	case VerbTrack:
		if len(args) != 1 {
			return Command{}, false
		}
		st, ok := ParseState(args[0])
		if !ok {
			return Command{}, false
		}
		c = NewTrackCommand(st)

	case VerbLoco:
		switch {
		case len(args) == 1 && args[0] == TokenQuery:
			c = NewLocoQuery()
		case len(args) == 1:
			n, ok := atoi(args[0])
			if !ok {
				return Command{}, false
			}
			c, err = NewLocoCommand(n)
		case len(args) == 2 && (args[0] == "+" || args[0] == "-"):
			n, ok := atoi(args[1])
			if !ok {
				return Command{}, false
			}
			if args[0] == "+" {
				c, err = NewLocoAddCommand(n)
			} else {
				c, err = NewLocoRemoveCommand(n)
			}
		default:
			return Command{}, false
		}

	case VerbSpeed:
		if len(args) != 1 {
			return Command{}, false
		}
		if args[0] == TokenQuery {
			c = NewSpeedQuery()
			break
		}
		n, ok := atoi(args[0])
		if !ok {
			return Command{}, false
		}
		c, err = NewSpeedCommand(n)

	case VerbFunction:
		switch {
		case len(args) == 1 && args[0] == TokenQuery:
			c = NewFunctionListQuery()
		case len(args) == 2:
			n, ok := atoi(args[0])
			if !ok {
				return Command{}, false
			}
			st, ok := ParseState(args[1])
			if !ok {
				return Command{}, false
			}
			c, err = NewFunctionCommand(n, st)
		default:
			return Command{}, false
		}

	case VerbCV:
		c, err = parseCV(args)

	case VerbAddress:
		if len(args) != 1 {
			return Command{}, false
		}
		if args[0] == TokenQuery {
			c = NewAddressQuery()
			break
		}
		n, ok := atoi(args[0])
		if !ok {
			return Command{}, false
		}
		c, err = NewAddressCommand(n)

	default:
		return Command{}, false
	}
	if err != nil {
		return Command{}, false
	}
	return c, true
}

func parseCV(args []string) (Command, error) {
	if len(args) != 2 && len(args) != 3 {
		return Command{}, errMalformed
	}
	ints := make([]int, 0, 3)
	query := args[len(args)-1] == TokenQuery
	numeric := args
	if query {
		numeric = args[:len(args)-1]
	}
	for _, a := range numeric {
		n, ok := atoi(a)
		if !ok {
			return Command{}, errMalformed
		}
		ints = append(ints, n)
	}
	switch {
	case query && len(ints) == 1:
		return NewCVReadCommand(ints[0])
	case query && len(ints) == 2:
		return NewCVBitReadCommand(ints[0], ints[1])
	case len(ints) == 2:
		return NewCVWriteCommand(ints[0], ints[1])
	default:
		return NewCVBitWriteCommand(ints[0], ints[1], ints[2])
	}
}

func atoi(s string) (int, bool) {
	n, err := strconv.Atoi(s)
	return n, err == nil
}
