// SPDX-License-Identifier:Apache-2.0

// Package safeconvert narrows integers for wire fields, failing instead
// of silently truncating.
package safeconvert

import (
	"fmt"
	"math"
)

func IntToUInt8(toConvert int) (uint8, error) {
	if toConvert < 0 {
		return 0, fmt.Errorf("trying to convert negative value to uint8: %d", toConvert)
	}
	if toConvert > math.MaxUint8 {
		return 0, fmt.Errorf("trying to convert value to uint8: %d, would overflow", toConvert)
	}
	return uint8(toConvert), nil
}

func IntToUInt16(toConvert int) (uint16, error) {
	if toConvert < 0 {
		return 0, fmt.Errorf("trying to convert negative value to uint16: %d", toConvert)
	}
	if toConvert > math.MaxUint16 {
		return 0, fmt.Errorf("trying to convert value to uint16: %d, would overflow", toConvert)
	}
	return uint16(toConvert), nil
}

// Uint32ToUint24 packs v into three big-endian bytes, as used by the
// CAC duration field.
func Uint32ToUint24(v uint32) ([3]byte, error) {
	if v > 0xffffff {
		return [3]byte{}, fmt.Errorf("trying to convert value to uint24: %d, would overflow", v)
	}
	return [3]byte{byte(v >> 16), byte(v >> 8), byte(v)}, nil
}
