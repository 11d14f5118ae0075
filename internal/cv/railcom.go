package cv

import (
	"encoding/binary"
	"fmt"
)

// RailcomField is one 32-bit field of the RailCom identification block.
type RailcomField int

const (
	ManufacturerID RailcomField = iota
	ProductID
	SerialNumber
	ProductionDate
)

// RailcomBlockSize is the number of page offsets the four fields cover.
const RailcomBlockSize = 16

// RailcomFields lists the fields in block order.
var RailcomFields = []RailcomField{ManufacturerID, ProductID, SerialNumber, ProductionDate}

func (f RailcomField) String() string {
	switch f {
	case ManufacturerID:
		return "manufacturer_id"
	case ProductID:
		return "product_id"
	case SerialNumber:
		return "serial_number"
	case ProductionDate:
		return "production_date"
	default:
		return "unknown"
	}
}

// FirstOffset returns the page offset of the field's most significant byte.
func (f RailcomField) FirstOffset() int {
	return int(f) * 4
}

// CVs returns the four CVs holding the field on the RailCom page.
func (f RailcomField) CVs() [4]int {
	first := ExtendedFirst + f.FirstOffset()
	return [4]int{first, first + 1, first + 2, first + 3}
}

// RailcomBlock is the decoded identification block. Complete is false for a
// field when any of its four bytes could not be read.
type RailcomBlock struct {
	ManufacturerID uint32  `json:"manufacturer_id"`
	ProductID      uint32  `json:"product_id"`
	SerialNumber   uint32  `json:"serial_number"`
	ProductionDate uint32  `json:"production_date"`
	Complete       [4]bool `json:"complete"`
}

// Get returns a field value and whether all of its bytes were read.
func (b RailcomBlock) Get(f RailcomField) (uint32, bool) {
	switch f {
	case ManufacturerID:
		return b.ManufacturerID, b.Complete[f]
	case ProductID:
		return b.ProductID, b.Complete[f]
	case SerialNumber:
		return b.SerialNumber, b.Complete[f]
	case ProductionDate:
		return b.ProductionDate, b.Complete[f]
	}
	return 0, false
}

// IsComplete reports whether every field was read in full.
func (b RailcomBlock) IsComplete() bool {
	for _, c := range b.Complete {
		if !c {
			return false
		}
	}
	return true
}

// DecodeRailcom assembles the block from bytes keyed by page offset. Each
// field is big-endian: the lowest offset is the most significant byte.
func DecodeRailcom(bytes map[int]uint8) RailcomBlock {
	var b RailcomBlock
	for _, f := range RailcomFields {
		var raw [4]byte
		complete := true
		for i := 0; i < 4; i++ {
			v, ok := bytes[f.FirstOffset()+i]
			if !ok {
				complete = false
			}
			raw[i] = v
		}
		val := binary.BigEndian.Uint32(raw[:])
		switch f {
		case ManufacturerID:
			b.ManufacturerID = val
		case ProductID:
			b.ProductID = val
		case SerialNumber:
			b.SerialNumber = val
		case ProductionDate:
			b.ProductionDate = val
		}
		b.Complete[f] = complete
	}
	return b
}

// FormatHex renders a field as byte groups, most significant first:
// 151 becomes "00_00_00_97".
func FormatHex(v uint32) string {
	return fmt.Sprintf("%02x_%02x_%02x_%02x", byte(v>>24), byte(v>>16), byte(v>>8), byte(v))
}
