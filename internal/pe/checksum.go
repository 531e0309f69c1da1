package pe

import (
	"encoding/binary"
	"errors"
	"io"
)

// checksumFieldOffset is where CheckSum sits relative to the PE signature.
const checksumFieldOffset = COFFHeaderSize + OptionalSize + 36

// ChecksumOffset returns the file offset of the optional header CheckSum field.
func (img *Image) ChecksumOffset() int64 {
	return int64(img.HeaderOffset) + checksumFieldOffset
}

// CalculatePEChecksum computes the PE image checksum over filesize bytes of r,
// skipping the 4-byte field at checksumOffset. A negative offset skips nothing.
func CalculatePEChecksum(r io.ReaderAt, filesize int64, checksumOffset int64) (uint32, error) {
	var checksum uint64
	buf := make([]byte, 4)

	for offset := int64(0); offset < filesize; offset += 4 {
		if checksumOffset >= 0 && offset == checksumOffset {
			continue
		}

		n, err := r.ReadAt(buf, offset)
		if err != nil && !errors.Is(err, io.EOF) {
			return 0, ioErr("计算校验和", err)
		}
		for i := n; i < 4; i++ {
			buf[i] = 0
		}

		checksum += uint64(binary.LittleEndian.Uint32(buf))
		// Fold the carry back in.
		if checksum > 0xFFFFFFFF {
			checksum = (checksum & 0xFFFFFFFF) + (checksum >> 32)
		}
	}

	checksum = (checksum & 0xFFFF) + (checksum >> 16)
	checksum += checksum >> 16
	checksum &= 0xFFFF
	checksum += uint64(filesize)

	return uint32(checksum), nil
}

// ChecksumFile is a file whose checksum can be recomputed in place.
type ChecksumFile interface {
	io.ReaderAt
	io.WriterAt
}

// UpdateChecksum recomputes the checksum of a patched image of the given size
// and stores it both in f and in img.
func UpdateChecksum(f ChecksumFile, size int64, img *Image) (uint32, error) {
	sum, err := CalculatePEChecksum(f, size, img.ChecksumOffset())
	if err != nil {
		return 0, err
	}

	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, sum)
	if _, err := f.WriteAt(b, img.ChecksumOffset()); err != nil {
		return 0, ioErr("写入校验和", err)
	}

	img.Windows.CheckSum = sum
	return sum, nil
}
