package suite

import "strconv"

// Expectations used by the catalog tables.
const (
	ok       = "OK"
	errorRsp = "ERROR"
	anyRsp   = ""
)

func cases(pairs ...string) []Case {
	out := make([]Case, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, Case{Command: pairs[i], Expect: pairs[i+1]})
	}
	return out
}

// Catalog returns the built-in conformance groups in run order.
func Catalog() []Group {
	return []Group{
		{Name: "verbosity", Cases: cases(
			"V", errorRsp,
			"V C", errorRsp,
			"V X ON", errorRsp,
			"V C 0", errorRsp,
		)},
		{Name: "track", Cases: cases(
			"T", errorRsp,
			"T X", errorRsp,
			"T 2", errorRsp,
			"T ON 0", errorRsp,
			"T ON", ok,
			"T ?", "ON",
			"T OFF", ok,
			"T ?", "OFF",
		)},
		{Name: "loco", Cases: cases(
			"L", errorRsp,
			"L X", errorRsp,
			"L 20000", errorRsp,
			"L 3", ok,
			"L ?", "3",
			"L 2265", ok,
			"L ?", "2265",
			"L 3", ok,
			"L ?", "3",
			"L 3 3", errorRsp,
			"L + 4", ok,
			"L - 4", ok,
			"L - 4", ok,
			"L 3 4 5", errorRsp,
		)},
		{Name: "speed", Cases: cases(
			"S", errorRsp,
			"S X", errorRsp,
			"S 200", errorRsp,
			"S -200", errorRsp,
			"S 50", ok,
			"S -50", ok,
			"S 0", ok,
			"S ?", "0",
			"S 3 X", errorRsp,
		)},
		{Name: "function", Cases: functionCases()},
		{Name: "cv", Cases: cases(
			"T OFF", ok,
			"C 8 8", ok,
			"T ON", ok,
			"L 3", ok,
			"C 8 ?", "151",
			"L 4", ok,
			"C 8 ?", errorRsp,
			"T OFF", ok,
		)},
		{Name: "address", Cases: cases(
			"T ?", "OFF",
			"A", errorRsp,
			"A X", errorRsp,
			"A 0", errorRsp,
			"A 99999", errorRsp,
			"A 3", ok,
			"A ?", "3",
			"A 2265", ok,
			"A ?", "2265",
			"A 3", ok,
			"A ?", "3",
		)},
		{Name: "railcom", Railcom: true, Cases: railcomCases()},
	}
}

func functionCases() []Case {
	out := cases(
		"F", errorRsp,
		"F 0", errorRsp,
		"F X", errorRsp,
		"F -1 OFF", errorRsp,
	)
	for f := 0; f <= 31; f++ {
		out = append(out, Case{Command: "F " + strconv.Itoa(f) + " OFF", Expect: ok})
	}
	return append(out, cases(
		"F 32 OFF", errorRsp,
		"F X ON", errorRsp,
		"F ? ON", errorRsp,
		"F ? X", errorRsp,
		"F 0 ON", ok,
		"F 0 ?", "ON",
		"F 0 OFF", ok,
		"F 0 ?", "OFF",
		"F 0 X", errorRsp,
		"F 0 1 ON", errorRsp,
	)...)
}

func railcomCases() []Case {
	out := cases(
		"C 8 8", ok,
		"C 31 0", ok,
		"C 32 255", ok,
	)
	for cv := 257; cv <= 272; cv++ {
		out = append(out, Case{Command: "C " + strconv.Itoa(cv) + " ?", Expect: anyRsp})
	}
	return out
}
