package protocol

import (
	"fmt"
	"strconv"
	"strings"
)

// Verb is the single-letter command word.
type Verb byte

const (
	VerbVerbosity Verb = 'V'
	VerbTrack     Verb = 'T'
	VerbLoco      Verb = 'L'
	VerbSpeed     Verb = 'S'
	VerbFunction  Verb = 'F'
	VerbCV        Verb = 'C'
	VerbAddress   Verb = 'A'
)

// Kind identifies the variant held by a Command.
type Kind int

const (
	KindRaw Kind = iota
	KindVerbosity
	KindTrack
	KindLoco
	KindSpeed
	KindFunction
	KindCV
	KindAddress
)

func (k Kind) String() string {
	switch k {
	case KindRaw:
		return "raw"
	case KindVerbosity:
		return "verbosity"
	case KindTrack:
		return "track"
	case KindLoco:
		return "loco"
	case KindSpeed:
		return "speed"
	case KindFunction:
		return "function"
	case KindCV:
		return "cv"
	case KindAddress:
		return "address"
	default:
		return "unknown"
	}
}

// State is the ON/OFF/? argument shared by V, T and F.
type State int

const (
	StateQuery State = iota
	StateOn
	StateOff
)

func (s State) String() string {
	switch s {
	case StateOn:
		return TokenOn
	case StateOff:
		return TokenOff
	default:
		return TokenQuery
	}
}

// ParseState parses ON, OFF or ? (case-insensitive).
func ParseState(s string) (State, bool) {
	switch strings.ToUpper(s) {
	case TokenOn:
		return StateOn, true
	case TokenOff:
		return StateOff, true
	case TokenQuery:
		return StateQuery, true
	}
	return StateQuery, false
}

// VerbosityTarget selects which output the V command controls.
type VerbosityTarget byte

const (
	// TargetCommand controls command echo and response annotations.
	TargetCommand VerbosityTarget = 'C'
	// TargetDCC controls printing of DCC packets.
	TargetDCC VerbosityTarget = 'D'
	// TargetRailcom controls printing of RailCom packets.
	TargetRailcom VerbosityTarget = 'R'
	// TargetSpeed controls printing of RailCom reported speed.
	TargetSpeed VerbosityTarget = 'S'
)

func (t VerbosityTarget) valid() bool {
	switch t {
	case TargetCommand, TargetDCC, TargetRailcom, TargetSpeed:
		return true
	}
	return false
}

// LocoOp distinguishes the forms of the L command.
type LocoOp int

const (
	LocoQuery LocoOp = iota
	LocoSelect
	LocoAdd
	LocoRemove
)

// Command is one protocol invocation. Build it with the New* constructors;
// only KindRaw commands may carry arguments the device will reject.
type Command struct {
	Kind Kind

	Target   VerbosityTarget // V
	State    State           // V, T, F
	LocoOp   LocoOp          // L
	Query    bool            // S, F (list), C, A
	Address  int             // L, A
	Speed    int             // S
	Function int             // F
	CV       int             // C
	Bit      int             // C, -1 for a whole byte
	Value    int             // C write

	raw string
}

// NewVerbosityCommand sets or queries an output verbosity flag.
func NewVerbosityCommand(target VerbosityTarget, state State) (Command, error) {
	if !target.valid() {
		return Command{}, &ArgumentError{Kind: ErrKindInvalidTarget, Verb: VerbVerbosity, Name: "target", Value: string(rune(target))}
	}
	return Command{Kind: KindVerbosity, Target: target, State: state, Bit: -1}, nil
}

// VerbosityOn returns "V C ON".
func VerbosityOn() Command {
	return Command{Kind: KindVerbosity, Target: TargetCommand, State: StateOn, Bit: -1}
}

// VerbosityOff returns "V C OFF".
func VerbosityOff() Command {
	return Command{Kind: KindVerbosity, Target: TargetCommand, State: StateOff, Bit: -1}
}

// NewTrackCommand sets or queries track power.
func NewTrackCommand(state State) Command {
	return Command{Kind: KindTrack, State: state, Bit: -1}
}

// NewLocoCommand makes address the current throttle's locomotive.
func NewLocoCommand(address int) (Command, error) {
	return newLoco(LocoSelect, address)
}

// NewLocoAddCommand creates a throttle for address.
func NewLocoAddCommand(address int) (Command, error) {
	return newLoco(LocoAdd, address)
}

// NewLocoRemoveCommand deletes the throttle for address.
func NewLocoRemoveCommand(address int) (Command, error) {
	return newLoco(LocoRemove, address)
}

// NewLocoQuery returns "L ?".
func NewLocoQuery() Command {
	return Command{Kind: KindLoco, LocoOp: LocoQuery, Query: true, Bit: -1}
}

func newLoco(op LocoOp, address int) (Command, error) {
	if err := checkRange(VerbLoco, "address", address, AddressMin, AddressMax); err != nil {
		return Command{}, err
	}
	return Command{Kind: KindLoco, LocoOp: op, Address: address, Bit: -1}, nil
}

// NewSpeedCommand sets the current locomotive speed.
func NewSpeedCommand(speed int) (Command, error) {
	if err := checkRange(VerbSpeed, "speed", speed, SpeedMin, SpeedMax); err != nil {
		return Command{}, err
	}
	return Command{Kind: KindSpeed, Speed: speed, Bit: -1}, nil
}

// NewSpeedQuery returns "S ?".
func NewSpeedQuery() Command {
	return Command{Kind: KindSpeed, Query: true, Bit: -1}
}

// NewFunctionCommand sets or queries one function.
func NewFunctionCommand(function int, state State) (Command, error) {
	if err := checkRange(VerbFunction, "function", function, FunctionMin, FunctionMax); err != nil {
		return Command{}, err
	}
	return Command{Kind: KindFunction, Function: function, State: state, Bit: -1}, nil
}

// NewFunctionListQuery returns "F ?", listing the functions that are on.
func NewFunctionListQuery() Command {
	return Command{Kind: KindFunction, Query: true, Function: -1, Bit: -1}
}

// NewCVReadCommand returns "C <cv> ?".
func NewCVReadCommand(cv int) (Command, error) {
	if err := checkRange(VerbCV, "cv", cv, CVMin, CVMax); err != nil {
		return Command{}, err
	}
	return Command{Kind: KindCV, CV: cv, Bit: -1, Query: true}, nil
}

// NewCVBitReadCommand returns "C <cv> <bit> ?".
func NewCVBitReadCommand(cv, bit int) (Command, error) {
	if err := checkRange(VerbCV, "cv", cv, CVMin, CVMax); err != nil {
		return Command{}, err
	}
	if err := checkRange(VerbCV, "bit", bit, BitMin, BitMax); err != nil {
		return Command{}, err
	}
	return Command{Kind: KindCV, CV: cv, Bit: bit, Query: true}, nil
}

// NewCVWriteCommand returns "C <cv> <value>".
func NewCVWriteCommand(cv, value int) (Command, error) {
	if err := checkRange(VerbCV, "cv", cv, CVMin, CVMax); err != nil {
		return Command{}, err
	}
	if err := checkRange(VerbCV, "value", value, CVValueMin, CVValueMax); err != nil {
		return Command{}, err
	}
	return Command{Kind: KindCV, CV: cv, Bit: -1, Value: value}, nil
}

// NewCVBitWriteCommand returns "C <cv> <bit> <0|1>".
func NewCVBitWriteCommand(cv, bit, value int) (Command, error) {
	if err := checkRange(VerbCV, "cv", cv, CVMin, CVMax); err != nil {
		return Command{}, err
	}
	if err := checkRange(VerbCV, "bit", bit, BitMin, BitMax); err != nil {
		return Command{}, err
	}
	if err := checkRange(VerbCV, "bit value", value, 0, 1); err != nil {
		return Command{}, err
	}
	return Command{Kind: KindCV, CV: cv, Bit: bit, Value: value}, nil
}

// NewAddressCommand writes a decoder address (service mode only).
func NewAddressCommand(address int) (Command, error) {
	if err := checkRange(VerbAddress, "address", address, AddressMin, DecoderAddressMax); err != nil {
		return Command{}, err
	}
	return Command{Kind: KindAddress, Address: address, Bit: -1}, nil
}

// NewAddressQuery returns "A ?".
func NewAddressQuery() Command {
	return Command{Kind: KindAddress, Query: true, Bit: -1}
}

// NewRawCommand wraps a line sent verbatim. The line must not contain CR or
// LF, which would split it into two device commands.
func NewRawCommand(line string) (Command, error) {
	if strings.ContainsAny(line, "\r\n") {
		return Command{}, ErrEmbeddedNewline
	}
	if strings.TrimSpace(line) == "" {
		return Command{}, ErrEmptyCommand
	}
	return Command{Kind: KindRaw, Bit: -1, raw: line}, nil
}

// MustRaw is NewRawCommand for literal lines; it panics on error.
func MustRaw(line string) Command {
	c, err := NewRawCommand(line)
	if err != nil {
		panic(fmt.Sprintf("protocol: %v", err))
	}
	return c
}

// Verb returns the command word. Raw commands report their first byte
// upper-cased, or 0 when empty.
func (c Command) Verb() Verb {
	switch c.Kind {
	case KindVerbosity:
		return VerbVerbosity
	case KindTrack:
		return VerbTrack
	case KindLoco:
		return VerbLoco
	case KindSpeed:
		return VerbSpeed
	case KindFunction:
		return VerbFunction
	case KindCV:
		return VerbCV
	case KindAddress:
		return VerbAddress
	}
	s := strings.TrimSpace(c.raw)
	if s == "" {
		return 0
	}
	return Verb(strings.ToUpper(s[:1])[0])
}

// Line returns the command text without terminator. It is also what the
// device echoes back in verbose mode.
func (c Command) Line() string {
	itoa := strconv.Itoa
	switch c.Kind {
	case KindVerbosity:
		return join(VerbVerbosity, string(rune(c.Target)), c.State.String())
	case KindTrack:
		return join(VerbTrack, c.State.String())
	case KindLoco:
		switch c.LocoOp {
		case LocoSelect:
			return join(VerbLoco, itoa(c.Address))
		case LocoAdd:
			return join(VerbLoco, "+", itoa(c.Address))
		case LocoRemove:
			return join(VerbLoco, "-", itoa(c.Address))
		default:
			return join(VerbLoco, TokenQuery)
		}
	case KindSpeed:
		if c.Query {
			return join(VerbSpeed, TokenQuery)
		}
		return join(VerbSpeed, itoa(c.Speed))
	case KindFunction:
		if c.Query {
			return join(VerbFunction, TokenQuery)
		}
		return join(VerbFunction, itoa(c.Function), c.State.String())
	case KindCV:
		args := []string{itoa(c.CV)}
		if c.Bit >= 0 {
			args = append(args, itoa(c.Bit))
		}
		if c.Query {
			args = append(args, TokenQuery)
		} else {
			args = append(args, itoa(c.Value))
		}
		return join(VerbCV, args...)
	case KindAddress:
		if c.Query {
			return join(VerbAddress, TokenQuery)
		}
		return join(VerbAddress, itoa(c.Address))
	default:
		return c.raw
	}
}

// FormatLine returns the line as written to the wire.
func (c Command) FormatLine() string {
	return c.Line() + LineTerminator
}

func (c Command) String() string {
	return c.Line()
}

// IsWrite reports whether the command mutates a CV.
func (c Command) IsWrite() bool {
	return c.Kind == KindCV && !c.Query
}

func join(v Verb, args ...string) string {
	return string(rune(v)) + " " + strings.Join(args, " ")
}
