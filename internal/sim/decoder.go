package sim

import "github.com/tonylturner/dccverify/internal/protocol"

// Factory values after a CV8 reset.
const (
	factoryAddress        = 3
	factoryManufacturerID = 151
	factoryConfig         = 0x06
	defaultPageLow        = 16
	defaultPageHigh       = 0
	railcomPageLow        = 0
	railcomPageHigh       = 255
	extendedFirst         = 257
	extendedLast          = 512
)

// decoder models the CV store of one mobile decoder.
type decoder struct {
	cvs      map[int]uint8
	extended map[int]uint8 // default page, CV 257-512
	railcom  [16]byte
}

func newDecoder(railcom [16]byte) *decoder {
	d := &decoder{railcom: railcom}
	d.reset()
	return d
}

func (d *decoder) reset() {
	d.cvs = map[int]uint8{
		protocol.CVAddress:        factoryAddress,
		protocol.CVManufacturerID: factoryManufacturerID,
		protocol.CVAddressHigh:    0xc0,
		protocol.CVAddressLow:     0,
		protocol.CVConfig:         factoryConfig,
		protocol.CVPageSelectLow:  defaultPageLow,
		protocol.CVPageSelectHigh: defaultPageHigh,
	}
	d.extended = make(map[int]uint8)
}

func (d *decoder) page() (uint8, uint8) {
	return d.cvs[protocol.CVPageSelectLow], d.cvs[protocol.CVPageSelectHigh]
}

func (d *decoder) read(cv int) uint8 {
	if cv < extendedFirst || cv > extendedLast {
		return d.cvs[cv]
	}
	switch lo, hi := d.page(); {
	case lo == railcomPageLow && hi == railcomPageHigh:
		if off := cv - extendedFirst; off < len(d.railcom) {
			return d.railcom[off]
		}
		return 0
	case lo == defaultPageLow && hi == defaultPageHigh:
		return d.extended[cv]
	default:
		return 0
	}
}

func (d *decoder) write(cv int, v uint8) {
	if cv == protocol.CVManufacturerID {
		if v == protocol.CVResetValue {
			d.reset()
		}
		return
	}
	if cv < extendedFirst || cv > extendedLast {
		d.cvs[cv] = v
		return
	}
	if lo, hi := d.page(); lo == defaultPageLow && hi == defaultPageHigh {
		d.extended[cv] = v
	}
}

func (d *decoder) readBit(cv, bit int) uint8 {
	return (d.read(cv) >> uint(bit)) & 1
}

func (d *decoder) writeBit(cv, bit int, v uint8) {
	cur := d.read(cv)
	if v == 0 {
		cur &^= 1 << uint(bit)
	} else {
		cur |= 1 << uint(bit)
	}
	d.write(cv, cur)
}

// address returns the active address and whether it is long.
func (d *decoder) address() (int, bool) {
	if d.readBit(protocol.CVConfig, protocol.CVConfigLongAddressBit) == 0 {
		return int(d.cvs[protocol.CVAddress]), false
	}
	hi := int(d.cvs[protocol.CVAddressHigh] &^ 0xc0)
	return hi<<8 | int(d.cvs[protocol.CVAddressLow]), true
}

func (d *decoder) setAddress(a int) {
	if a <= protocol.AddressShortMax {
		d.write(protocol.CVAddress, uint8(a))
		d.writeBit(protocol.CVConfig, protocol.CVConfigLongAddressBit, 0)
		return
	}
	d.write(protocol.CVAddressLow, uint8(a&0xff))
	d.write(protocol.CVAddressHigh, uint8(a>>8)|0xc0)
	d.writeBit(protocol.CVConfig, protocol.CVConfigLongAddressBit, 1)
}
