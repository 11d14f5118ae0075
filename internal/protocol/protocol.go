// Package protocol implements the line-oriented ASCII control protocol spoken
// by the DCC command station over its serial console.
//
// Protocol format:
//
//	Request:           <verb> [arg [arg [arg]]]\r\n
//	Echo (verbose):    <request line>\n
//	Mutation accepted: OK[ annotation]\n
//	Query accepted:    <value>[ annotation]\n
//	Rejected:          ERROR[: detail]\n
//
// Verbs are single letters and case-insensitive on the device. Commands are
// built with the typed constructors (NewSpeedCommand, NewCVReadCommand, ...),
// which validate arguments, and serialized only at the wire boundary with
// FormatLine. NewRawCommand exists for lines that must reach the device
// unvalidated, such as the malformed invocations a conformance suite sends on
// purpose.
//
// Example session with verbosity on:
//
//	> C 8 ?
//	< C 8 ?
//	< 151 (0x97) in 412 ms
//	> S 101
//	< S 101
//	< ERROR: invalid command: S 101
package protocol

// Wire constants.
const (
	// LineTerminator is appended to every command written to the device.
	LineTerminator = "\r\n"

	// TokenOK is the response to an accepted mutation.
	TokenOK = "OK"

	// TokenError is the response to any rejected or failed command.
	TokenError = "ERROR"

	TokenOn    = "ON"
	TokenOff   = "OFF"
	TokenQuery = "?"
)

// Argument ranges accepted by the command station.
const (
	AddressMin      = 1
	AddressShortMax = 127
	AddressMax      = 10239

	// DecoderAddressMax bounds the address the A command writes to a decoder.
	DecoderAddressMax = 9999

	SpeedMin = -100
	SpeedMax = 100

	FunctionMin = 0
	FunctionMax = 31

	CVMin = 1
	CVMax = 1024

	CVValueMin = -127
	CVValueMax = 255

	BitMin = 0
	BitMax = 7
)

// Well-known CV numbers.
const (
	CVAddress        = 1
	CVManufacturerID = 8
	CVAddressHigh    = 17
	CVAddressLow     = 18
	CVConfig         = 29
	CVPageSelectLow  = 31
	CVPageSelectHigh = 32

	// CVResetValue written to CVManufacturerID resets a decoder to factory
	// defaults.
	CVResetValue = 8

	// CVConfigLongAddressBit is the CV29 bit selecting long addressing.
	CVConfigLongAddressBit = 5
)
