package pe

import (
	"errors"
	"io"
)

// DefaultChunkSize is how many bytes the extractor reads per call.
const DefaultChunkSize = 4096

// Region is a half-open range of file offsets known to hold text.
type Region struct {
	Begin uint32
	End   uint32
}

// Extractor pulls NUL-delimited byte runs out of configured regions.
type Extractor struct {
	ChunkSize int
}

// NewExtractor creates an extractor reading DefaultChunkSize bytes at a time.
func NewExtractor() *Extractor {
	return &Extractor{ChunkSize: DefaultChunkSize}
}

// Extract scans every region and returns the strings found, keyed by the
// virtual address obtained through the .rdata section. Regions are assumed to
// lie inside .rdata.
func (e *Extractor) Extract(r io.ReaderAt, img *Image, regions []Region) (StringTable, error) {
	rdata := img.Section(".rdata")
	if rdata == nil {
		return nil, &SectionError{Name: ".rdata"}
	}

	chunkSize := e.ChunkSize
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}

	s := &scanState{
		table:     make(StringTable),
		rdata:     rdata,
		imageBase: img.ImageBase(),
	}
	buf := make([]byte, chunkSize)

	for _, region := range regions {
		if region.End <= region.Begin {
			continue
		}

		pos := region.Begin
		for pos < region.End {
			want := region.End - pos
			if want > uint32(len(buf)) {
				want = uint32(len(buf))
			}

			n, err := r.ReadAt(buf[:want], int64(pos))
			if err != nil && !errors.Is(err, io.EOF) {
				return nil, ioErr("读取字符串区域", err)
			}
			if n == 0 {
				// Region runs past the end of the file.
				break
			}

			s.feed(buf[:n], pos)
			pos += uint32(n)
		}

		if len(s.pending) > 0 {
			s.emit(region.End - uint32(len(s.pending)))
		}
	}

	return s.table, nil
}

// scanState carries the pending bytes across chunk boundaries.
type scanState struct {
	table     StringTable
	rdata     *SectionHeader
	imageBase uint32
	pending   []byte
}

func (s *scanState) feed(chunk []byte, base uint32) {
	for i, b := range chunk {
		if b != 0 {
			s.pending = append(s.pending, b)
			continue
		}
		if len(s.pending) > 0 {
			s.emit(base + uint32(i) - uint32(len(s.pending)))
		}
	}
}

func (s *scanState) emit(phys uint32) {
	text := make([]byte, len(s.pending))
	copy(text, s.pending)
	s.pending = s.pending[:0]

	s.table.Add(&StringRef{
		Text:     text,
		Virtual:  s.rdata.ToVirtual(s.imageBase, phys),
		Physical: phys,
		Xrefs:    []uint32{},
	})
}
