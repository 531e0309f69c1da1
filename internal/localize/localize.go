// Package localize drives the two workflows: generating a translation
// manifest from an executable and patching an executable from a manifest.
package localize

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/ZacharyZcR/pelocal/internal/manifest"
	"github.com/ZacharyZcR/pelocal/internal/pe"
	"github.com/ZacharyZcR/pelocal/internal/regions"
	"github.com/rs/zerolog"
)

// ErrInvalidOperation is returned when a method of one mode is called on a
// Patcher created for the other.
var ErrInvalidOperation = errors.New("无效操作")

// RequiredSections must all be present in the input executable.
var RequiredSections = []string{".text", ".data", ".rdata", ".rsrc"}

// Mode selects which workflow a Patcher serves.
type Mode int

const (
	// ModeGenerate extracts strings and writes a manifest.
	ModeGenerate Mode = iota
	// ModePatch reads a manifest and writes a patched executable.
	ModePatch
)

func (m Mode) String() string {
	if m == ModePatch {
		return "patch"
	}
	return "generate"
}

// Progress receives user-facing status lines.
type Progress interface {
	Step(format string, args ...any)
	Warn(format string, args ...any)
}

type nopProgress struct{}

func (nopProgress) Step(string, ...any) {}
func (nopProgress) Warn(string, ...any) {}

// Patcher owns the input executable and the string table for one run.
type Patcher struct {
	mode    Mode
	regions []pe.Region

	reader  *pe.Reader
	strings pe.StringTable

	updateChecksum bool
	progress       Progress
	log            zerolog.Logger
}

// NewGenerator creates a Patcher for generate mode.
func NewGenerator() *Patcher {
	return newPatcher(ModeGenerate)
}

// NewPatcher creates a Patcher for patch mode.
func NewPatcher() *Patcher {
	return newPatcher(ModePatch)
}

func newPatcher(mode Mode) *Patcher {
	return &Patcher{
		mode:     mode,
		regions:  regions.Default(),
		strings:  make(pe.StringTable),
		progress: nopProgress{},
		log:      zerolog.Nop(),
	}
}

// SetRegions replaces the scanned regions.
func (p *Patcher) SetRegions(r []pe.Region) {
	p.regions = r
}

// SetProgress sets the status line sink.
func (p *Patcher) SetProgress(progress Progress) {
	p.progress = progress
}

// SetLogger sets the diagnostic logger.
func (p *Patcher) SetLogger(log zerolog.Logger) {
	p.log = log
}

// SetUpdateChecksum makes WritePatchedExe recompute the image checksum.
func (p *Patcher) SetUpdateChecksum(update bool) {
	p.updateChecksum = update
}

// Mode returns the workflow this Patcher serves.
func (p *Patcher) Mode() Mode {
	return p.mode
}

// Strings returns the current string table.
func (p *Patcher) Strings() pe.StringTable {
	return p.strings
}

// Image returns the parsed input, or nil before Open.
func (p *Patcher) Image() *pe.Image {
	if p.reader == nil {
		return nil
	}
	return p.reader.Image()
}

// Open loads the input executable and checks the sections the workflows need.
func (p *Patcher) Open(path string) error {
	reader, err := pe.Open(path)
	if err != nil {
		return err
	}

	if err := reader.Image().RequireSections(RequiredSections...); err != nil {
		_ = reader.Close()
		return err
	}

	img := reader.Image()
	p.log.Debug().
		Str("path", path).
		Uint16("sections", img.COFF.NumberOfSections).
		Str("image_base", fmt.Sprintf("0x%08x", img.ImageBase())).
		Msg("executable loaded")

	p.reader = reader
	return nil
}

// Close releases the input executable.
func (p *Patcher) Close() error {
	if p.reader == nil {
		return nil
	}
	err := p.reader.Close()
	p.reader = nil
	return err
}

func (p *Patcher) require(mode Mode) error {
	if p.mode != mode {
		return fmt.Errorf("%w: %s 模式不支持此操作", ErrInvalidOperation, p.mode)
	}
	if p.reader == nil {
		return fmt.Errorf("%w: 尚未打开可执行文件", ErrInvalidOperation)
	}
	return nil
}

// LoadStringsAndRefs extracts the strings of the configured regions and
// finds every instruction in .text that loads one of their addresses.
func (p *Patcher) LoadStringsAndRefs() error {
	if err := p.require(ModeGenerate); err != nil {
		return err
	}

	p.progress.Step("正在读取可执行文件...")

	img := p.reader.Image()
	table, err := pe.NewExtractor().Extract(p.reader.File(), img, p.regions)
	if err != nil {
		return err
	}
	p.strings = table
	p.log.Debug().Int("strings", len(table)).Int("regions", len(p.regions)).Msg("strings extracted")

	text := img.Section(".text")
	code, err := pe.ReadSection(p.reader.File(), text)
	if err != nil {
		return err
	}

	found := pe.ScanXrefs(code, text.PointerToRawData, p.strings)
	p.log.Debug().Int("code_bytes", len(code)).Int("xrefs", found).Msg("code scanned")

	for _, ref := range p.strings.Sorted() {
		if len(ref.Xrefs) == 0 {
			p.log.Debug().Str("virtual", fmt.Sprintf("%08x", ref.Virtual)).Msg("string has no references")
		}
	}

	return nil
}

// WriteManifest writes the extracted strings to path.
func (p *Patcher) WriteManifest(path string) error {
	if err := p.require(ModeGenerate); err != nil {
		return err
	}

	p.progress.Step("正在创建翻译文件...")
	return manifest.WriteFile(path, p.strings)
}

// LoadManifest reads the strings to patch from a translation file.
func (p *Patcher) LoadManifest(path string) error {
	if err := p.require(ModePatch); err != nil {
		return err
	}

	p.progress.Step("正在读取翻译文件...")

	table, err := manifest.ReadFile(path)
	if err != nil {
		return err
	}
	p.strings = table

	p.progress.Step("发现 %d 个待修改的字符串", len(table))
	return nil
}

// WritePatchedExe writes a copy of the input with the loaded strings
// relocated and their references rewritten. The result is staged next to
// path and only renamed into place once complete.
func (p *Patcher) WritePatchedExe(path string) (err error) {
	if err := p.require(ModePatch); err != nil {
		return err
	}

	p.progress.Step("正在修改可执行文件...")

	img := p.reader.Image()
	rel, err := pe.Relocate(img, p.strings)
	if err != nil {
		return err
	}
	p.log.Debug().
		Str("virtual_base", fmt.Sprintf("0x%08x", rel.VirtualBase)).
		Str("physical_base", fmt.Sprintf("0x%08x", rel.PhysicalBase)).
		Uint32("reloc_size", rel.Size).
		Uint32("section_size", rel.NewSectionSize).
		Uint32("image_size", rel.NewImageSize).
		Msg("strings relocated")

	if size := p.reader.FileSize(); size != int64(rel.PhysicalBase) {
		p.progress.Warn("输入文件大小 (0x%X) 与最后一个节区末尾 (0x%X) 不一致，新字符串将追加到文件末尾",
			size, rel.PhysicalBase)
	}

	out, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("创建输出文件失败: %w", err)
	}
	_ = out.Chmod(0o644)
	defer func() {
		if err != nil {
			_ = out.Close()
			_ = os.Remove(out.Name())
		}
	}()

	src := p.reader.File()
	if _, err = src.Seek(0, io.SeekStart); err != nil {
		return &pe.IOError{Op: "定位输入文件", Err: err}
	}
	if err = pe.WritePatched(out, src, img, p.strings, rel); err != nil {
		return err
	}

	if p.updateChecksum {
		size := p.reader.FileSize() + int64(len(rel.Staging))
		sum, cerr := pe.UpdateChecksum(out, size, img)
		if cerr != nil {
			err = cerr
			return err
		}
		p.log.Debug().Str("checksum", fmt.Sprintf("0x%08x", sum)).Msg("checksum updated")
	}

	if err = out.Close(); err != nil {
		return &pe.IOError{Op: "关闭输出文件", Err: err}
	}
	if err = os.Rename(out.Name(), path); err != nil {
		return &pe.IOError{Op: "重命名输出文件", Err: err}
	}

	p.progress.Step("可执行文件修改成功")
	return nil
}
