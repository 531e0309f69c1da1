package pe

import (
	"debug/pe"
	"fmt"
)

// Info contains the header summary of an image.
type Info struct {
	FilePath     string
	FileSize     int64
	Architecture string
	Subsystem    string
	EntryPoint   uint32
	ImageBase    uint32
	ImageSize    uint32
	Alignment    [2]uint32 // Section, file.
	Checksum     uint32
	Sections     []SectionInfo
	// OverlaySize is the number of bytes stored past the last section.
	OverlaySize int64
}

// SectionInfo contains information about one section.
type SectionInfo struct {
	Name             string
	VirtualAddress   uint32
	VirtualSize      uint32
	PointerToRawData uint32
	Size             uint32
	Characteristics  uint32
	Permissions      string
	Entropy          float64
}

// Analyzer extracts a summary from an opened image.
type Analyzer struct {
	reader *Reader
}

// NewAnalyzer creates a new analyzer for the given reader.
func NewAnalyzer(r *Reader) *Analyzer {
	return &Analyzer{reader: r}
}

// Analyze builds the summary of the image.
func (a *Analyzer) Analyze() *Info {
	img := a.reader.Image()

	info := &Info{
		FilePath:     a.reader.FilePath(),
		FileSize:     a.reader.FileSize(),
		Architecture: getArchitecture(img.COFF.Machine),
		Subsystem:    getSubsystem(img.Windows.Subsystem),
		EntryPoint:   img.Optional.AddressOfEntryPoint,
		ImageBase:    img.ImageBase(),
		ImageSize:    img.Windows.SizeOfImage,
		Alignment:    [2]uint32{img.Windows.SectionAlignment, img.Windows.FileAlignment},
		Checksum:     img.Windows.CheckSum,
	}

	for i := range img.Sections {
		s := &img.Sections[i]
		entropy, err := SectionEntropy(a.reader.File(), s)
		if err != nil {
			entropy = 0.0
		}

		info.Sections = append(info.Sections, SectionInfo{
			Name:             s.NameString(),
			VirtualAddress:   s.VirtualAddress,
			VirtualSize:      s.VirtualSize,
			PointerToRawData: s.PointerToRawData,
			Size:             s.SizeOfRawData,
			Characteristics:  s.Characteristics(),
			Permissions:      Permissions(s.Characteristics()),
			Entropy:          entropy,
		})
	}

	last := img.LastSection()
	if end := int64(last.PointerToRawData) + int64(last.SizeOfRawData); info.FileSize > end {
		info.OverlaySize = info.FileSize - end
	}

	return info
}

func getArchitecture(machine uint16) string {
	switch machine {
	case pe.IMAGE_FILE_MACHINE_I386:
		return "x86 (32位)"
	case pe.IMAGE_FILE_MACHINE_AMD64:
		return "x64 (64位)"
	default:
		return fmt.Sprintf("未知 (0x%X)", machine)
	}
}

func getSubsystem(subsystem uint16) string {
	switch subsystem {
	case pe.IMAGE_SUBSYSTEM_WINDOWS_GUI:
		return "Windows GUI"
	case pe.IMAGE_SUBSYSTEM_WINDOWS_CUI:
		return "Windows 控制台"
	case pe.IMAGE_SUBSYSTEM_NATIVE:
		return "Native"
	default:
		return fmt.Sprintf("未知 (0x%X)", subsystem)
	}
}
