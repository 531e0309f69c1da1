package pe

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
)

// Image is the structural metadata of a PE32 executable.
// Only the last section's sizes and SizeOfImage are ever changed after loading.
type Image struct {
	HeaderOffset       uint32
	SectionTableOffset uint32

	COFF     COFFHeader
	Optional OptionalHeader
	Windows  WindowsHeader

	Sections []SectionHeader
}

// NewImage validates and loads the headers and section table of an image of
// the given size. It never returns a partially loaded image.
func NewImage(r io.ReaderAt, size int64) (*Image, error) {
	if size < MinImageSize {
		return nil, invalid("文件过小 (%d 字节)", size)
	}

	mz, err := readAt(r, 0, 2, "读取DOS头")
	if err != nil {
		return nil, err
	}
	if binary.LittleEndian.Uint16(mz) != DOSSignature {
		return nil, invalid("缺少MZ签名")
	}

	lfanew, err := readAt(r, lfanewOffset, 4, "读取PE头偏移")
	if err != nil {
		return nil, err
	}

	img := &Image{HeaderOffset: binary.LittleEndian.Uint32(lfanew)}
	if size < int64(img.HeaderOffset)+headersSize {
		return nil, invalid("PE头超出文件范围 (偏移: 0x%X)", img.HeaderOffset)
	}

	hdr, err := readAt(r, int64(img.HeaderOffset), headersSize, "读取PE头")
	if err != nil {
		return nil, err
	}
	if err := decode(hdr[:COFFHeaderSize], &img.COFF); err != nil {
		return nil, ioErr("解析COFF头", err)
	}
	if img.COFF.Signature != PESignature || img.COFF.NumberOfSections == 0 {
		return nil, invalid("PE签名错误或节区数量为0")
	}
	if err := decode(hdr[COFFHeaderSize:COFFHeaderSize+OptionalSize], &img.Optional); err != nil {
		return nil, ioErr("解析可选头", err)
	}
	if err := decode(hdr[COFFHeaderSize+OptionalSize:], &img.Windows); err != nil {
		return nil, ioErr("解析Windows头", err)
	}
	if img.Optional.Magic != PE32Magic {
		return nil, invalid("不是PE32映像 (Magic: 0x%04X)", img.Optional.Magic)
	}

	img.SectionTableOffset = img.HeaderOffset + COFFHeaderSize + uint32(img.COFF.SizeOfOptionalHeader)
	tableSize := int64(img.COFF.NumberOfSections) * SectionHeaderSize
	if size < int64(img.SectionTableOffset)+tableSize {
		return nil, invalid("节区表超出文件范围")
	}

	table, err := readAt(r, int64(img.SectionTableOffset), int(tableSize), "读取节区表")
	if err != nil {
		return nil, err
	}
	img.Sections = make([]SectionHeader, img.COFF.NumberOfSections)
	if err := decode(table, img.Sections); err != nil {
		return nil, ioErr("解析节区表", err)
	}

	return img, nil
}

// Section returns the first section whose raw name equals name padded with
// zero bytes to 8 bytes, or nil.
func (img *Image) Section(name string) *SectionHeader {
	var want [8]byte
	copy(want[:], name)

	for i := range img.Sections {
		if img.Sections[i].Name == want {
			return &img.Sections[i]
		}
	}
	return nil
}

// RequireSections fails with a *SectionError for the first absent name.
func (img *Image) RequireSections(names ...string) error {
	for _, name := range names {
		if img.Section(name) == nil {
			return &SectionError{Name: name}
		}
	}
	return nil
}

// LastSection returns the section stored furthest into the file.
func (img *Image) LastSection() *SectionHeader {
	last := &img.Sections[0]
	for i := range img.Sections {
		if img.Sections[i].PointerToRawData > last.PointerToRawData {
			last = &img.Sections[i]
		}
	}
	return last
}

// ImageBase returns the preferred load address.
func (img *Image) ImageBase() uint32 {
	return img.Windows.ImageBase
}

// ToVirtual translates a file offset inside s to a loaded-image address.
func (s *SectionHeader) ToVirtual(imageBase, phys uint32) uint32 {
	return imageBase + s.VirtualAddress + (phys - s.PointerToRawData)
}

// ToPhysical is the inverse of ToVirtual.
func (s *SectionHeader) ToPhysical(imageBase, virt uint32) uint32 {
	return virt - imageBase - s.VirtualAddress + s.PointerToRawData
}

// Contains reports whether the file offset lies in the section's raw data.
func (s *SectionHeader) Contains(phys uint32) bool {
	return phys >= s.PointerToRawData && phys-s.PointerToRawData < s.SizeOfRawData
}

// NameString returns the section name without trailing NUL padding.
func (s *SectionHeader) NameString() string {
	return string(bytes.TrimRight(s.Name[:], "\x00"))
}

// WriteHeaders writes the three header records and the section table back at
// their original offsets.
func (img *Image) WriteHeaders(w io.WriterAt) error {
	var hdr bytes.Buffer
	hdr.Write(encode(&img.COFF))
	hdr.Write(encode(&img.Optional))
	hdr.Write(encode(&img.Windows))
	if _, err := w.WriteAt(hdr.Bytes(), int64(img.HeaderOffset)); err != nil {
		return ioErr("写入PE头", err)
	}

	if _, err := w.WriteAt(encode(img.Sections), int64(img.SectionTableOffset)); err != nil {
		return ioErr("写入节区表", err)
	}
	return nil
}

// readAt reads exactly n bytes at off.
func readAt(r io.ReaderAt, off int64, n int, op string) ([]byte, error) {
	buf := make([]byte, n)
	read, err := r.ReadAt(buf, off)
	if read == n {
		return buf, nil
	}
	if err == nil || errors.Is(err, io.EOF) {
		err = io.ErrUnexpectedEOF
	}
	return nil, ioErr(op, err)
}
