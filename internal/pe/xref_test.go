package pe_test

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/ZacharyZcR/pelocal/internal/pe"
	"github.com/ZacharyZcR/pelocal/internal/pe/petest"
	"github.com/stretchr/testify/require"
)

func imm(op byte, v uint32) []byte {
	b := []byte{op, 0, 0, 0, 0}
	binary.LittleEndian.PutUint32(b[1:], v)
	return b
}

func code(parts ...[]byte) []byte {
	return bytes.Join(parts, nil)
}

func TestScanXrefs(t *testing.T) {
	const (
		base    = 0x400
		known   = 0x402100
		other   = 0x402200
		unknown = 0x402300
	)

	tests := []struct {
		name      string
		code      []byte
		wantKnown []uint32
		wantOther []uint32
	}{
		{
			name:      "mov eax, imm32",
			code:      imm(0xB8, known),
			wantKnown: []uint32{base},
		},
		{
			name:      "push imm32",
			code:      code([]byte{0x90, 0x90}, imm(0x68, known)),
			wantKnown: []uint32{base + 2},
		},
		{
			name: "Unknown address",
			code: imm(0xB8, unknown),
		},
		{
			name: "Other opcode with a matching immediate",
			code: code(imm(0xB9, known), imm(0xBB, other)),
		},
		{
			name: "Immediate inside a longer instruction",
			// mov dword [eax], imm32 is six bytes long.
			code: code([]byte{0xC7, 0x00}, imm(0x68, known)[1:], []byte{0x90}),
		},
		{
			name:      "Several references in order",
			code:      code(imm(0x68, other), imm(0xB8, known), []byte{0x50}, imm(0x68, known), imm(0xB8, other)),
			wantKnown: []uint32{base + 5, base + 11},
			wantOther: []uint32{base, base + 16},
		},
		{
			name: "Truncated tail is ignored",
			code: code([]byte{0x90}, imm(0xB8, known)[:3]),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table := pe.StringTable{}
			table.Add(&pe.StringRef{Text: []byte("known"), Virtual: known, Xrefs: []uint32{}})
			table.Add(&pe.StringRef{Text: []byte("other"), Virtual: other, Xrefs: []uint32{}})

			found := pe.ScanXrefs(tt.code, base, table)

			want := func(v []uint32) []uint32 {
				if v == nil {
					return []uint32{}
				}
				return v
			}
			require.Equal(t, want(tt.wantKnown), table[known].Xrefs)
			require.Equal(t, want(tt.wantOther), table[other].Xrefs)
			require.Equal(t, len(tt.wantKnown)+len(tt.wantOther), found)
		})
	}
}

func TestReadSection(t *testing.T) {
	b := petest.New()
	b.Section(".text").Data = imm(0xB8, 0x402100)
	data, img := loadImage(t, b)

	text := img.Section(".text")
	got, err := pe.ReadSection(bytes.NewReader(data), text)
	require.NoError(t, err)
	require.Len(t, got, int(text.SizeOfRawData))
	require.Equal(t, imm(0xB8, 0x402100), got[:5])

	// A section running past the end of the file yields what is there.
	short, err := pe.ReadSection(bytes.NewReader(data[:0x800]), text)
	require.NoError(t, err)
	require.Len(t, short, 0x400)
}
