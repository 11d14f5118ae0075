package sim

// Config describes the emulated command station and its decoder.
type Config struct {
	// Railcom is the 16-byte manufacturer/product/serial/date block the
	// decoder exposes on the RailCom page.
	Railcom [16]byte `yaml:"-"`

	// OpMillis is the duration reported in verbose annotations.
	OpMillis int `yaml:"op_ms"`

	Faults Faults `yaml:"faults"`
}

// Faults injects the line noise a real serial console produces.
// Every counter is in exchanges; 0 disables the fault.
type Faults struct {
	Banner            bool `yaml:"banner"`
	StrayEvery        int  `yaml:"stray_every"`
	CorruptEchoEvery  int  `yaml:"corrupt_echo_every"`
	DropResponseEvery int  `yaml:"drop_response_every"`
}

// DefaultRailcom is the block read back from an ESU LokSound decoder.
var DefaultRailcom = [16]byte{
	0x00, 0x00, 0x00, 0x97, // manufacturer id
	0x02, 0x00, 0x00, 0x93, // product id
	0xdf, 0xfa, 0xb4, 0xac, // serial number
	0x27, 0xd2, 0xe4, 0xbe, // production date
}

// DefaultConfig returns a fault-free station with an ESU decoder.
func DefaultConfig() Config {
	return Config{
		Railcom:  DefaultRailcom,
		OpMillis: 45,
	}
}
