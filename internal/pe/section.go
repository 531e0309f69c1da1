package pe

import "debug/pe"

// alignUp aligns a value up to the nearest multiple of alignment.
func alignUp(value, alignment uint32) uint32 {
	if alignment == 0 {
		return value
	}
	return ((value + alignment - 1) / alignment) * alignment
}

// Permissions renders section characteristics as an R/W/X triple.
func Permissions(c uint32) string {
	perms := [3]byte{'-', '-', '-'}

	if c&pe.IMAGE_SCN_MEM_READ != 0 {
		perms[0] = 'R'
	}
	if c&pe.IMAGE_SCN_MEM_WRITE != 0 {
		perms[1] = 'W'
	}
	if c&pe.IMAGE_SCN_MEM_EXECUTE != 0 {
		perms[2] = 'X'
	}

	return string(perms[:])
}
