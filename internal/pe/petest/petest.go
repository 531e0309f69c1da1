// Package petest builds small synthetic PE32 images for tests.
package petest

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/ZacharyZcR/pelocal/internal/pe"
)

// Layout constants of the default image.
const (
	HeaderOffset     = 0x80
	OptionalHdrSize  = 0xE0
	ImageBase        = 0x400000
	SectionAlignment = 0x1000
	FileAlignment    = 0x200
)

// Section describes one section of a synthetic image.
type Section struct {
	Name            string
	VirtualAddress  uint32
	VirtualSize     uint32
	Offset          uint32
	Size            uint32
	Characteristics uint32
	Data            []byte // Copied to Offset; may be shorter than Size.
}

// Builder assembles an image.
type Builder struct {
	ImageBase        uint32
	SectionAlignment uint32
	FileAlignment    uint32
	SizeOfImage      uint32
	OptionalMagic    uint16
	Sections         []Section
	Overlay          []byte
}

// New returns a builder for a 64 KiB image with .text, .rdata, .data and
// .rsrc, the last of which ends exactly at the end of the file.
func New() *Builder {
	return &Builder{
		ImageBase:        ImageBase,
		SectionAlignment: SectionAlignment,
		FileAlignment:    FileAlignment,
		SizeOfImage:      0x12000,
		OptionalMagic:    pe.PE32Magic,
		Sections: []Section{
			{Name: ".text", VirtualAddress: 0x1000, VirtualSize: 0x1000, Offset: 0x400, Size: 0x1000, Characteristics: 0x60000020},
			{Name: ".rdata", VirtualAddress: 0x2000, VirtualSize: 0x1000, Offset: 0x1400, Size: 0x1000, Characteristics: 0x40000040},
			{Name: ".data", VirtualAddress: 0x3000, VirtualSize: 0x200, Offset: 0x2400, Size: 0x200, Characteristics: 0xC0000040},
			{Name: ".rsrc", VirtualAddress: 0x4000, VirtualSize: 0xDA00, Offset: 0x2600, Size: 0xDA00, Characteristics: 0x40000040},
		},
	}
}

// Section returns the named section for modification, or nil.
func (b *Builder) Section(name string) *Section {
	for i := range b.Sections {
		if b.Sections[i].Name == name {
			return &b.Sections[i]
		}
	}
	return nil
}

// Bytes renders the image.
func (b *Builder) Bytes() []byte {
	end := uint32(0)
	for _, s := range b.Sections {
		if s.Offset+s.Size > end {
			end = s.Offset + s.Size
		}
	}
	img := make([]byte, end, int(end)+len(b.Overlay))

	binary.LittleEndian.PutUint16(img[0:], pe.DOSSignature)
	binary.LittleEndian.PutUint32(img[0x3C:], HeaderOffset)

	var hdr bytes.Buffer
	write := func(v any) { _ = binary.Write(&hdr, binary.LittleEndian, v) }
	write(pe.COFFHeader{
		Signature:            pe.PESignature,
		Machine:              0x14C,
		NumberOfSections:     uint16(len(b.Sections)),
		SizeOfOptionalHeader: OptionalHdrSize,
		Characteristics:      0x0102,
	})
	write(pe.OptionalHeader{
		Magic:               b.OptionalMagic,
		AddressOfEntryPoint: 0x1000,
		BaseOfCode:          0x1000,
		BaseOfData:          0x2000,
	})
	write(pe.WindowsHeader{
		ImageBase:           b.ImageBase,
		SectionAlignment:    b.SectionAlignment,
		FileAlignment:       b.FileAlignment,
		SizeOfImage:         b.SizeOfImage,
		SizeOfHeaders:       0x400,
		Subsystem:           2,
		NumberOfRvaAndSizes: 16,
	})
	copy(img[HeaderOffset:], hdr.Bytes())

	hdr.Reset()
	for _, s := range b.Sections {
		h := pe.SectionHeader{
			VirtualSize:      s.VirtualSize,
			VirtualAddress:   s.VirtualAddress,
			SizeOfRawData:    s.Size,
			PointerToRawData: s.Offset,
		}
		copy(h.Name[:], s.Name)
		h.Reserved[3] = s.Characteristics
		write(h)
	}
	copy(img[HeaderOffset+pe.COFFHeaderSize+OptionalHdrSize:], hdr.Bytes())

	for _, s := range b.Sections {
		copy(img[s.Offset:s.Offset+s.Size], s.Data)
	}

	return append(img, b.Overlay...)
}

// File is an in-memory file supporting the reads and writes the patcher uses.
type File struct {
	data []byte
	pos  int64
}

// NewFile wraps data; the slice is owned by the File afterwards.
func NewFile(data []byte) *File {
	return &File{data: data}
}

// Bytes returns the current contents.
func (f *File) Bytes() []byte {
	return f.data
}

// Size returns the current length.
func (f *File) Size() int64 {
	return int64(len(f.data))
}

func (f *File) Read(p []byte) (int, error) {
	n, err := f.ReadAt(p, f.pos)
	f.pos += int64(n)
	return n, err
}

func (f *File) ReadAt(p []byte, off int64) (int, error) {
	if off >= int64(len(f.data)) {
		return 0, io.EOF
	}
	n := copy(p, f.data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (f *File) Write(p []byte) (int, error) {
	n, err := f.WriteAt(p, f.pos)
	f.pos += int64(n)
	return n, err
}

func (f *File) WriteAt(p []byte, off int64) (int, error) {
	if end := off + int64(len(p)); end > int64(len(f.data)) {
		f.data = append(f.data, make([]byte, end-int64(len(f.data)))...)
	}
	return copy(f.data[off:], p), nil
}
