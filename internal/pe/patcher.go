package pe

import (
	"bytes"
	"encoding/binary"
	"io"
)

// Relocation describes where relocated strings were placed and how the
// image metadata changed to hold them.
type Relocation struct {
	VirtualBase  uint32 // Address of the first relocated string.
	PhysicalBase uint32 // File offset of the first relocated string.
	Size         uint32 // Bytes used by strings, terminators and 4-byte padding.
	Staging      []byte // Everything appended to the file, alignment padding included.

	OldSectionSize uint32
	NewSectionSize uint32
	OldImageSize   uint32
	NewImageSize   uint32
}

// PatchWriter is the destination of a patched image.
type PatchWriter interface {
	io.Writer
	io.WriterAt
}

// Relocate assigns every string in table a new home right after the last
// section's raw data, grows that section to cover it and recomputes
// SizeOfImage. Strings are laid out in ascending order of their previous
// virtual address.
func Relocate(img *Image, table StringTable) (*Relocation, error) {
	sectionAlign := img.Windows.SectionAlignment
	fileAlign := img.Windows.FileAlignment
	if sectionAlign == 0 || fileAlign == 0 {
		return nil, invalid("对齐值为0 (SectionAlignment: 0x%X, FileAlignment: 0x%X)", sectionAlign, fileAlign)
	}

	last := img.LastSection()
	rel := &Relocation{
		VirtualBase:    img.ImageBase() + last.VirtualAddress + last.SizeOfRawData,
		PhysicalBase:   last.PointerToRawData + last.SizeOfRawData,
		OldSectionSize: last.SizeOfRawData,
		OldImageSize:   img.Windows.SizeOfImage,
	}

	var staging bytes.Buffer
	for _, ref := range table.ByVirtual() {
		ref.Virtual = rel.VirtualBase + rel.Size
		ref.Physical = rel.PhysicalBase + rel.Size

		staging.Write(ref.Text)
		staging.WriteByte(0)
		rel.Size += uint32(len(ref.Text)) + 1
		for rel.Size%4 != 0 {
			staging.WriteByte(0)
			rel.Size++
		}
	}

	oldVirtualSize := last.VirtualSize
	grown := last.SizeOfRawData + rel.Size
	newSize := alignUp(grown, max(sectionAlign, fileAlign))
	staging.Write(make([]byte, newSize-grown))

	last.SizeOfRawData = newSize
	last.VirtualSize = newSize

	// The loader reserves SizeOfImage bytes; reads past it fault at runtime.
	img.Windows.SizeOfImage = alignUp(img.Windows.SizeOfImage+(newSize-oldVirtualSize), fileAlign)

	rel.NewSectionSize = newSize
	rel.NewImageSize = img.Windows.SizeOfImage
	rel.Staging = staging.Bytes()
	return rel, nil
}

// WritePatched copies the original image from src into dst, appends the
// relocated strings, points every reference at its string's new address and
// finally rewrites the headers and section table.
func WritePatched(dst PatchWriter, src io.Reader, img *Image, table StringTable, rel *Relocation) error {
	if _, err := io.Copy(dst, src); err != nil {
		return ioErr("复制原始文件", err)
	}

	if _, err := dst.Write(rel.Staging); err != nil {
		return ioErr("追加字符串数据", err)
	}

	addr := make([]byte, 4)
	for _, ref := range table.ByVirtual() {
		binary.LittleEndian.PutUint32(addr, ref.Virtual)
		for _, xref := range ref.Xrefs {
			// Skip the opcode byte.
			if _, err := dst.WriteAt(addr, int64(xref)+1); err != nil {
				return ioErr("改写字符串引用", err)
			}
		}
	}

	return img.WriteHeaders(dst)
}
