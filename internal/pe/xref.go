package pe

import (
	"encoding/binary"
	"errors"
	"io"

	"golang.org/x/arch/x86/x86asm"
)

// Opcodes whose 4-byte immediate can carry a string address.
const (
	opMovEAXImm32 = 0xB8
	opPushImm32   = 0x68
	immInstrLen   = 5
)

// ReadSection reads the raw bytes of s. A file shorter than the section's
// declared raw size yields only the bytes present.
func ReadSection(r io.ReaderAt, s *SectionHeader) ([]byte, error) {
	buf := make([]byte, s.SizeOfRawData)
	n, err := r.ReadAt(buf, int64(s.PointerToRawData))
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, ioErr("读取节区 "+s.NameString(), err)
	}
	return buf[:n], nil
}

// ScanXrefs decodes code as 32-bit x86 starting at instruction pointer base
// and records, on the matching table entry, the address of every
// `mov eax, imm32` or `push imm32` whose immediate is a known string address.
// It returns the number of references recorded.
//
// The scan is a single linear sweep: a byte the decoder cannot recognise is
// skipped on its own and a truncated tail ends the sweep. A matching 5-byte
// pattern in data mixed into code is indistinguishable from a real reference.
func ScanXrefs(code []byte, base uint32, table StringTable) int {
	found := 0
	for off := 0; off < len(code); {
		inst, err := x86asm.Decode(code[off:], 32)
		if err != nil {
			if errors.Is(err, x86asm.ErrTruncated) {
				break
			}
			off++
			continue
		}

		if inst.Len == immInstrLen {
			op := code[off]
			if op == opMovEAXImm32 || op == opPushImm32 {
				addr := binary.LittleEndian.Uint32(code[off+1 : off+immInstrLen])
				if ref, ok := table[addr]; ok {
					ref.Xrefs = append(ref.Xrefs, base+uint32(off))
					found++
				}
			}
		}

		off += inst.Len
	}
	return found
}
