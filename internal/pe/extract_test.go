package pe_test

import (
	"bytes"
	"testing"

	"github.com/ZacharyZcR/pelocal/internal/pe"
	"github.com/ZacharyZcR/pelocal/internal/pe/petest"
	"github.com/stretchr/testify/require"
)

// .rdata of the default image: raw data at 0x1400, loaded at 0x402000.
const (
	rdataOffset  = 0x1400
	rdataVirtual = petest.ImageBase + 0x2000
)

func loadImage(t *testing.T, b *petest.Builder) ([]byte, *pe.Image) {
	t.Helper()
	data := b.Bytes()
	img, err := pe.NewImage(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	return data, img
}

func imageWithRdata(t *testing.T, at uint32, content []byte) ([]byte, *pe.Image) {
	t.Helper()
	b := petest.New()
	rdata := b.Section(".rdata")
	rdata.Data = make([]byte, at-rdata.Offset+uint32(len(content)))
	copy(rdata.Data[at-rdata.Offset:], content)
	return loadImage(t, b)
}

func TestExtract(t *testing.T) {
	const p = rdataOffset + 0x100
	data, img := imageWithRdata(t, p, []byte("ABC\x00DE\x00"))

	table, err := pe.NewExtractor().Extract(bytes.NewReader(data), img, []pe.Region{{Begin: p, End: p + 7}})
	require.NoError(t, err)
	require.Len(t, table, 2)

	abc := table[rdataVirtual+0x100]
	require.NotNil(t, abc)
	require.Equal(t, []byte("ABC"), abc.Text)
	require.Equal(t, uint32(p), abc.Physical)
	require.Empty(t, abc.Xrefs)

	de := table[rdataVirtual+0x104]
	require.NotNil(t, de)
	require.Equal(t, []byte("DE"), de.Text)
	require.Equal(t, uint32(p+4), de.Physical)
}

func TestExtractChunkBoundaries(t *testing.T) {
	const p = rdataOffset + 0x10
	content := []byte("\x00\x00ABC\x00DE\x00FGHIJ\x00\x00K")
	data, img := imageWithRdata(t, p, content)
	region := []pe.Region{{Begin: p, End: p + uint32(len(content))}}

	want, err := (&pe.Extractor{ChunkSize: 4096}).Extract(bytes.NewReader(data), img, region)
	require.NoError(t, err)
	require.Len(t, want, 4)

	for chunk := 1; chunk <= len(content); chunk++ {
		got, err := (&pe.Extractor{ChunkSize: chunk}).Extract(bytes.NewReader(data), img, region)
		require.NoError(t, err)
		require.Equal(t, want, got, "chunk size %d", chunk)
	}
}

func TestExtractUnterminatedRegion(t *testing.T) {
	const p = rdataOffset + 0x200
	data, img := imageWithRdata(t, p, []byte("HELLO\x00WORLD"))

	// The region stops in the middle of "WORLD".
	table, err := pe.NewExtractor().Extract(bytes.NewReader(data), img, []pe.Region{{Begin: p, End: p + 9}})
	require.NoError(t, err)
	require.Len(t, table, 2)

	tail := table[rdataVirtual+0x206]
	require.NotNil(t, tail)
	require.Equal(t, []byte("WOR"), tail.Text)
	require.Equal(t, uint32(p+6), tail.Physical)
}

func TestExtractRegions(t *testing.T) {
	const p = rdataOffset + 0x300
	data, img := imageWithRdata(t, p, []byte("ONE\x00TWO\x00THREE\x00"))

	tests := []struct {
		name    string
		regions []pe.Region
		want    []string
	}{
		{
			name:    "No regions",
			regions: nil,
			want:    nil,
		},
		{
			name:    "Empty and inverted regions are skipped",
			regions: []pe.Region{{Begin: p, End: p}, {Begin: p + 8, End: p}},
			want:    nil,
		},
		{
			name:    "Accumulator does not leak across regions",
			regions: []pe.Region{{Begin: p, End: p + 2}, {Begin: p + 4, End: p + 8}},
			want:    []string{"ON", "TWO"},
		},
		{
			name:    "Overlapping regions keep the last entry per address",
			regions: []pe.Region{{Begin: p, End: p + 8}, {Begin: p + 4, End: p + 14}},
			want:    []string{"ONE", "TWO", "THREE"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table, err := pe.NewExtractor().Extract(bytes.NewReader(data), img, tt.regions)
			require.NoError(t, err)

			var got []string
			for _, ref := range table.Sorted() {
				got = append(got, string(ref.Text))
				require.Equal(t, ref.Physical-rdataOffset+rdataVirtual, ref.Virtual)
			}
			require.Equal(t, tt.want, got)
		})
	}
}

func TestExtractRequiresRdata(t *testing.T) {
	b := petest.New()
	b.Section(".rdata").Name = ".rodata"
	data, img := loadImage(t, b)

	_, err := pe.NewExtractor().Extract(bytes.NewReader(data), img, []pe.Region{{Begin: 0x1400, End: 0x1410}})
	require.ErrorIs(t, err, pe.ErrNoSection)
}
