package pe

import (
	"bytes"
	"encoding/binary"
)

// Fixed signatures checked while loading an image.
const (
	DOSSignature      = 0x5A4D     // "MZ"
	PESignature       = 0x00004550 // "PE\0\0"
	PE32Magic         = 0x010B
	lfanewOffset      = 0x3C
	MinImageSize      = 0x10000
	COFFHeaderSize    = 24
	OptionalSize      = 28
	WindowsSize       = 68
	SectionHeaderSize = 40
	headersSize       = COFFHeaderSize + OptionalSize + WindowsSize
)

// COFFHeader is the PE signature followed by the COFF file header.
type COFFHeader struct {
	Signature            uint32
	Machine              uint16
	NumberOfSections     uint16
	TimeDateStamp        uint32
	PointerToSymbolTable uint32
	NumberOfSymbols      uint32
	SizeOfOptionalHeader uint16
	Characteristics      uint16
}

// OptionalHeader holds the standard fields of a PE32 optional header.
type OptionalHeader struct {
	Magic                   uint16
	LinkerVersion           uint16
	SizeOfCode              uint32
	SizeOfInitializedData   uint32
	SizeOfUninitializedData uint32
	AddressOfEntryPoint     uint32
	BaseOfCode              uint32
	BaseOfData              uint32
}

// WindowsHeader holds the Windows-specific fields of a PE32 optional header.
// Version pairs are kept as single words; they are only carried through.
type WindowsHeader struct {
	ImageBase           uint32
	SectionAlignment    uint32
	FileAlignment       uint32
	OSVersion           uint32
	ImageVersion        uint32
	SubsystemVersion    uint32
	Win32VersionValue   uint32
	SizeOfImage         uint32
	SizeOfHeaders       uint32
	CheckSum            uint32
	Subsystem           uint16
	DllCharacteristics  uint16
	SizeOfStackReserve  uint32
	SizeOfStackCommit   uint32
	SizeOfHeapReserve   uint32
	SizeOfHeapCommit    uint32
	LoaderFlags         uint32
	NumberOfRvaAndSizes uint32
}

// SectionHeader is one 40-byte section table record.
type SectionHeader struct {
	Name             [8]byte
	VirtualSize      uint32
	VirtualAddress   uint32
	SizeOfRawData    uint32
	PointerToRawData uint32
	// Relocation/line-number pointers and counts, then characteristics.
	Reserved [4]uint32
}

// Characteristics returns the section flags stored in the last reserved word.
func (s *SectionHeader) Characteristics() uint32 {
	return s.Reserved[3]
}

// decode reads a fixed-size little-endian record from b.
func decode(b []byte, v any) error {
	return binary.Read(bytes.NewReader(b), binary.LittleEndian, v)
}

// encode serializes a fixed-size record the same way decode reads it.
func encode(v any) []byte {
	var buf bytes.Buffer
	// Writing fixed-size values into a bytes.Buffer cannot fail.
	_ = binary.Write(&buf, binary.LittleEndian, v)
	return buf.Bytes()
}
