package sim

import (
	"fmt"
	"strings"

	"github.com/tonylturner/dccverify/internal/protocol"
)

var helpLines = [][2]string{
	{"L ?", "read current address from throttle"},
	{"L <a>", "set address in throttle for subsequent operations"},
	{"L + <a>", "create throttle for address <a> if it does not already exist"},
	{"L - <a>", "delete throttle for address <a> if it exists"},
	{"S ?", "read speed for current loco"},
	{"S <s>", "set speed for current loco"},
	{"F ?", "show functions that are on for current loco"},
	{"F <f> ?", "get status of function f for current loco"},
	{"F <f> ON|OFF", "set a function for current loco on/off"},
	{"T ?", "get track power status"},
	{"T ON|OFF", "turn track power on/off"},
	{"C <c> ?", "read cv number <c>"},
	{"C <c> <b> ?", "read cv number <c> bit <b>"},
	{"C <c> <v>", "write cv number <c> with value <v>"},
	{"C <c> <b> 0|1", "write cv number <n> bit <b> with 0/1"},
	{"A ?", "read address from loco (long or short)"},
	{"A <a>", "write address to loco (long or short)"},
	{"V C ON|OFF", "show more command feedback"},
	{"V D ON|OFF", "show DCC packets or not"},
	{"V R ON|OFF", "show RailCom packets or not"},
	{"V S ON|OFF", "show RailCom reported speed or not"},
	{"V C|D|R ?", "get show setting"},
}

var paramLines = [][2]string{
	{fmt.Sprintf("%d <= a <= %d", protocol.AddressMin, protocol.AddressMax), "loco address"},
	{fmt.Sprintf("%d <= s <= %d", protocol.SpeedMin, protocol.SpeedMax), "loco speed"},
	{fmt.Sprintf("%d <= f <= %d", protocol.FunctionMin, protocol.FunctionMax), "function number"},
	{fmt.Sprintf("%d <= c <= %d", protocol.CVMin, protocol.CVMax), "cv number"},
	{fmt.Sprintf("%d <= v <= %d", protocol.CVValueMin, protocol.CVValueMax), "cv value"},
	{fmt.Sprintf("%d <= b <= %d", protocol.BitMin, protocol.BitMax), "bit number"},
}

// writeHelp prints the command summary the station shows after an invalid
// command in verbose mode.
func writeHelp(b *strings.Builder) {
	b.WriteString("Commands:" + eol)
	for _, l := range helpLines {
		fmt.Fprintf(b, "%-20s%s%s", l[0], l[1], eol)
	}
	b.WriteString(eol + "Parameters:" + eol)
	for _, l := range paramLines {
		fmt.Fprintf(b, "%-20s%s%s", l[0], l[1], eol)
	}
}
