package xsettings

import (
	"encoding/binary"
	"fmt"
	"sort"
)

// Type is the XSETTINGS value type tag.
type Type uint8

const (
	TypeInt Type = iota
	TypeString
	TypeColor
)

const (
	byteOrderLSB = 0
	byteOrderMSB = 1
)

type Color struct {
	Red, Green, Blue, Alpha uint16
}

type Setting struct {
	Name   string
	Type   Type
	Int    int32
	Str    string
	Color  Color
	Serial uint32
}

func (s Setting) sameValue(o Setting) bool {
	if s.Type != o.Type {
		return false
	}
	switch s.Type {
	case TypeInt:
		return s.Int == o.Int
	case TypeString:
		return s.Str == o.Str
	default:
		return s.Color == o.Color
	}
}

func pad4(n int) int {
	return (4 - n%4) % 4
}

// Encode serializes settings, sorted by name, into the _XSETTINGS_SETTINGS
// property layout using little-endian byte order.
func Encode(serial uint32, settings []Setting) []byte {
	sorted := append([]Setting(nil), settings...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	order := binary.LittleEndian
	size := 12
	for _, s := range sorted {
		size += 8 + len(s.Name) + pad4(len(s.Name))
		switch s.Type {
		case TypeInt:
			size += 4
		case TypeString:
			size += 4 + len(s.Str) + pad4(len(s.Str))
		case TypeColor:
			size += 8
		}
	}

	buf := make([]byte, size)
	buf[0] = byteOrderLSB
	order.PutUint32(buf[4:], serial)
	order.PutUint32(buf[8:], uint32(len(sorted)))

	off := 12
	for _, s := range sorted {
		buf[off] = byte(s.Type)
		order.PutUint16(buf[off+2:], uint16(len(s.Name)))
		off += 4
		off += copy(buf[off:], s.Name) + pad4(len(s.Name))
		order.PutUint32(buf[off:], s.Serial)
		off += 4

		switch s.Type {
		case TypeInt:
			order.PutUint32(buf[off:], uint32(s.Int))
			off += 4
		case TypeString:
			order.PutUint32(buf[off:], uint32(len(s.Str)))
			off += 4
			off += copy(buf[off:], s.Str) + pad4(len(s.Str))
		case TypeColor:
			// The wire order is red, blue, green, alpha.
			order.PutUint16(buf[off:], s.Color.Red)
			order.PutUint16(buf[off+2:], s.Color.Blue)
			order.PutUint16(buf[off+4:], s.Color.Green)
			order.PutUint16(buf[off+6:], s.Color.Alpha)
			off += 8
		}
	}
	return buf
}

// Decode parses a _XSETTINGS_SETTINGS property in either byte order.
func Decode(data []byte) (uint32, []Setting, error) {
	if len(data) < 12 {
		return 0, nil, fmt.Errorf("%w: header too short", ErrMalformed)
	}
	var order binary.ByteOrder
	switch data[0] {
	case byteOrderLSB:
		order = binary.LittleEndian
	case byteOrderMSB:
		order = binary.BigEndian
	default:
		return 0, nil, fmt.Errorf("%w: byte order %d", ErrMalformed, data[0])
	}

	serial := order.Uint32(data[4:])
	count := order.Uint32(data[8:])
	off := 12

	need := func(n int) error {
		if off+n > len(data) {
			return fmt.Errorf("%w: truncated at offset %d", ErrMalformed, off)
		}
		return nil
	}

	settings := make([]Setting, 0, min(int(count), len(data)/12))
	for i := uint32(0); i < count; i++ {
		if err := need(4); err != nil {
			return 0, nil, err
		}
		s := Setting{Type: Type(data[off])}
		nameLen := int(order.Uint16(data[off+2:]))
		off += 4
		if err := need(nameLen + pad4(nameLen) + 4); err != nil {
			return 0, nil, err
		}
		s.Name = string(data[off : off+nameLen])
		off += nameLen + pad4(nameLen)
		s.Serial = order.Uint32(data[off:])
		off += 4

		switch s.Type {
		case TypeInt:
			if err := need(4); err != nil {
				return 0, nil, err
			}
			s.Int = int32(order.Uint32(data[off:]))
			off += 4
		case TypeString:
			if err := need(4); err != nil {
				return 0, nil, err
			}
			strLen := int(order.Uint32(data[off:]))
			off += 4
			if err := need(strLen + pad4(strLen)); err != nil {
				return 0, nil, err
			}
			s.Str = string(data[off : off+strLen])
			off += strLen + pad4(strLen)
		case TypeColor:
			if err := need(8); err != nil {
				return 0, nil, err
			}
			s.Color = Color{
				Red:   order.Uint16(data[off:]),
				Blue:  order.Uint16(data[off+2:]),
				Green: order.Uint16(data[off+4:]),
				Alpha: order.Uint16(data[off+6:]),
			}
			off += 8
		default:
			return 0, nil, fmt.Errorf("%w: unknown type %d for %q", ErrMalformed, s.Type, s.Name)
		}
		settings = append(settings, s)
	}
	return serial, settings, nil
}
