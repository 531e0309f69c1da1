// Package cli provides command-line interface utilities.
package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/ZacharyZcR/pelocal/internal/pe"
	"github.com/fatih/color"
)

// Reporter formats and prints an image summary.
type Reporter struct {
	out  io.Writer
	info *pe.Info
}

// NewReporter creates a new reporter for the given image info.
func NewReporter(out io.Writer, info *pe.Info) *Reporter {
	return &Reporter{out: out, info: info}
}

// Print outputs the complete report.
func (r *Reporter) Print() {
	r.printHeader()
	r.printBasicInfo()
	r.printSections()
}

func (r *Reporter) printHeader() {
	cyan := color.New(color.FgCyan, color.Bold)
	cyan.Fprintln(r.out, "\n╔════════════════════════════════════════╗")
	cyan.Fprintln(r.out, "║          pelocal 映像信息              ║")
	cyan.Fprintln(r.out, "╚════════════════════════════════════════╝")
}

func (r *Reporter) printBasicInfo() {
	yellow := color.New(color.FgYellow, color.Bold)
	yellow.Fprintln(r.out, "\n【基本信息】")

	fmt.Fprintf(r.out, "  %-20s: %s\n", "文件路径", r.info.FilePath)
	fmt.Fprintf(r.out, "  %-20s: %s\n", "文件大小", formatSize(r.info.FileSize))
	fmt.Fprintf(r.out, "  %-20s: %s\n", "架构", r.info.Architecture)
	fmt.Fprintf(r.out, "  %-20s: %s\n", "子系统", r.info.Subsystem)
	fmt.Fprintf(r.out, "  %-20s: 0x%X\n", "入口点", r.info.EntryPoint)
	fmt.Fprintf(r.out, "  %-20s: 0x%X\n", "镜像基址", r.info.ImageBase)
	fmt.Fprintf(r.out, "  %-20s: 0x%X\n", "镜像大小", r.info.ImageSize)
	fmt.Fprintf(r.out, "  %-20s: 0x%X / 0x%X\n", "节区/文件对齐", r.info.Alignment[0], r.info.Alignment[1])

	fmt.Fprintf(r.out, "  %-20s: ", "校验和")
	if r.info.Checksum == 0 {
		gray := color.New(color.FgHiBlack)
		gray.Fprint(r.out, "未设置")
	} else {
		fmt.Fprintf(r.out, "0x%08X", r.info.Checksum)
	}
	fmt.Fprintln(r.out)

	if r.info.OverlaySize > 0 {
		red := color.New(color.FgRed, color.Bold)
		red.Fprintf(r.out, "  %-20s: %s (修改时字符串将追加在附加数据之后)\n", "附加数据", formatSize(r.info.OverlaySize))
	}
}

func (r *Reporter) printSections() {
	sections := r.info.Sections

	yellow := color.New(color.FgYellow, color.Bold)
	yellow.Fprintf(r.out, "\n【节区信息】(共 %d 个)\n", len(sections))

	fmt.Fprintln(r.out, strings.Repeat("-", 100))
	fmt.Fprintf(r.out, "  %-10s %-12s %-12s %-12s %-12s %-8s %-8s\n",
		"名称", "虚拟地址", "虚拟大小", "文件偏移", "原始大小", "权限", "熵")
	fmt.Fprintln(r.out, strings.Repeat("-", 100))

	for _, section := range sections {
		permColor := color.New(color.FgWhite)
		if section.Permissions == "RWX" {
			permColor = color.New(color.FgRed, color.Bold)
		} else if strings.Contains(section.Permissions, "X") {
			permColor = color.New(color.FgYellow)
		}

		fmt.Fprintf(r.out, "  %-10s 0x%08X   0x%08X   0x%08X   0x%08X   ",
			section.Name,
			section.VirtualAddress,
			section.VirtualSize,
			section.PointerToRawData,
			section.Size,
		)
		permColor.Fprintf(r.out, "%-8s", section.Permissions)
		fmt.Fprintf(r.out, " %.2f\n", section.Entropy)
	}
	fmt.Fprintln(r.out, strings.Repeat("-", 100))
}

// PrintStringSummary reports how many extracted strings are referenced.
func PrintStringSummary(out io.Writer, table pe.StringTable) {
	unreferenced := 0
	for _, ref := range table {
		if len(ref.Xrefs) == 0 {
			unreferenced++
		}
	}

	green := color.New(color.FgGreen)
	green.Fprintf(out, "  提取字符串: %d 个, 引用: %d 处\n", len(table), table.XrefCount())
	if unreferenced > 0 {
		gray := color.New(color.FgHiBlack)
		gray.Fprintf(out, "  其中 %d 个字符串未找到引用 (修改后不会生效)\n", unreferenced)
	}
}

// PrintRelocationSummary reports where the patched strings went.
func PrintRelocationSummary(out io.Writer, img *pe.Image, table pe.StringTable) {
	last := img.LastSection()
	green := color.New(color.FgGreen)
	green.Fprintf(out, "  已重定位字符串: %d 个, 改写引用: %d 处\n", len(table), table.XrefCount())
	fmt.Fprintf(out, "  节区 %s 新大小: %s, 镜像大小: 0x%X\n",
		last.NameString(), formatSize(int64(last.SizeOfRawData)), img.Windows.SizeOfImage)
}

func formatSize(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
