// Package manifest reads and writes the translation file that sits between
// string extraction and patching.
//
// Each data line has the form
//
//	[vvvvvvvv,pppppppp] {{replacement}}                {{original}} [x1,x2,...]
//
// with lowercase hex virtual/physical addresses and a comma-separated list of
// referencing instruction offsets. Anything else is a comment.
package manifest

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/ZacharyZcR/pelocal/internal/pe"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/transform"
)

// minLineLength is the shortest line that can carry an entry.
const minLineLength = 20

// ASCII only: the file is decoded as Shift-JIS when read back.
var header = []string{
	"// Do not edit the hexadecimal values",
	"",
	"//    Format: [...] {{Replacing String}} {{Original String}} ...",
	"// The \"Replacing String\" field may be left empty, in which case the string will not be patched.",
	"",
	"// IMPORTANT: Strings of certain types have maximum sizes (in bytes, using Shift-JIS encoding).",
	"//    Spell card name:    62 bytes",
	"//    Dialogue line:      43 bytes",
	"//    Ending line:        94 bytes",
	"//    * Exceeding the max size can and will crash the game.",
	"",
	"",
}

// Group 1: virtual address, group 2: replacement text, group 3: xref list.
var linePattern = regexp.MustCompile(
	`(?:\[([0-9a-f]{8}),[0-9a-f]{8}\]\s+)` +
		`(?:\{\{(.*)\}\}\s+)` +
		`(?:\{\{.*\}\}\s+)` +
		`(?:\[((?:[0-9a-f]{8},?)*)\])`)

// Write emits the header and one line per string, ordered by physical
// address. Original text is written as raw bytes.
func Write(w io.Writer, table pe.StringTable) error {
	bw := bufio.NewWriter(w)

	for _, line := range header {
		if _, err := fmt.Fprintln(bw, line); err != nil {
			return err
		}
	}

	for _, ref := range table.Sorted() {
		fmt.Fprintf(bw, "[%08x,%08x] {{}}                {{", ref.Virtual, ref.Physical)
		bw.Write(ref.Text)
		bw.WriteString("}} [")
		for i, xref := range ref.Xrefs {
			if i > 0 {
				bw.WriteByte(',')
			}
			fmt.Fprintf(bw, "%08x", xref)
		}
		if _, err := bw.WriteString("]\n"); err != nil {
			return err
		}
	}

	return bw.Flush()
}

// WriteFile writes the manifest to path.
func WriteFile(path string, table pe.StringTable) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("创建翻译文件失败: %w", err)
	}

	if err := Write(f, table); err != nil {
		_ = f.Close()
		return fmt.Errorf("写入翻译文件失败: %w", err)
	}
	return f.Close()
}

// Read parses a Shift-JIS manifest. Entries with an empty replacement are
// left out; a later line for the same virtual address replaces an earlier one.
// The returned strings carry Shift-JIS bytes and no physical address.
func Read(r io.Reader) (pe.StringTable, error) {
	table := make(pe.StringTable)
	encoder := japanese.ShiftJIS.NewEncoder()

	scanner := bufio.NewScanner(transform.NewReader(r, japanese.ShiftJIS.NewDecoder()))
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if len(line) < minLineLength || !strings.HasPrefix(line, "[") {
			continue
		}

		m := linePattern.FindStringSubmatch(strings.TrimSpace(line))
		if m == nil || m[2] == "" {
			continue
		}

		virt, err := strconv.ParseUint(m[1], 16, 32)
		if err != nil {
			continue
		}

		text, err := encoder.String(m[2])
		if err != nil {
			return nil, fmt.Errorf("第%d行: 替换文本无法编码为Shift-JIS: %w", lineNo, err)
		}

		table.Add(&pe.StringRef{
			Text:    []byte(text),
			Virtual: uint32(virt),
			Xrefs:   parseXrefs(m[3]),
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return table, nil
}

// ReadFile reads the manifest at path.
func ReadFile(path string) (pe.StringTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("打开翻译文件失败: %w", err)
	}
	defer func() { _ = f.Close() }()

	table, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("读取翻译文件失败: %w", err)
	}
	return table, nil
}

// parseXrefs drops empty, malformed and zero entries.
func parseXrefs(list string) []uint32 {
	xrefs := []uint32{}
	for _, s := range strings.Split(list, ",") {
		v, err := strconv.ParseUint(s, 16, 32)
		if err != nil || v == 0 {
			continue
		}
		xrefs = append(xrefs, uint32(v))
	}
	return xrefs
}
