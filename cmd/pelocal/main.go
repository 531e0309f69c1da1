// Package main provides the pelocal CLI tool.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/ZacharyZcR/pelocal/internal/cli"
	"github.com/ZacharyZcR/pelocal/internal/localize"
	"github.com/ZacharyZcR/pelocal/internal/pe"
	"github.com/ZacharyZcR/pelocal/internal/regions"
	"github.com/fatih/color"
	"github.com/rs/zerolog"
)

var (
	regionFile  = flag.String("regions", "", "字符串区域配置文件 (TOML，默认使用内置区域表)")
	debug       = flag.Bool("debug", false, "输出调试日志")
	updateCksum = flag.Bool("update-checksum", false, "修改后更新校验和")
)

// errUsage makes main print the usage text.
var errUsage = errors.New("参数错误")

func main() {
	flag.Usage = printUsage
	flag.Parse()

	err := run(flag.Args())
	if errors.Is(err, errUsage) {
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		cli.Failure(os.Stderr, err)
		os.Exit(1)
	}
}

func run(args []string) error {
	if len(args) < 1 {
		return errUsage
	}

	switch args[0] {
	case "generate", "g":
		if len(args) < 3 {
			return errUsage
		}
		return generate(args[1], args[2])
	case "patch", "b", "p":
		if len(args) < 4 {
			return errUsage
		}
		return patch(args[1], args[2], args[3])
	case "info", "i":
		if len(args) < 2 {
			return errUsage
		}
		return info(args[1])
	default:
		return errUsage
	}
}

func newLogger(out io.Writer) zerolog.Logger {
	level := zerolog.InfoLevel
	if *debug {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: out, NoColor: color.NoColor}).
		Level(level).
		With().Timestamp().Logger()
}

func setup(p *localize.Patcher) error {
	p.SetProgress(cli.NewProgress(os.Stdout))
	p.SetLogger(newLogger(os.Stderr))
	p.SetUpdateChecksum(*updateCksum)

	if *regionFile == "" {
		return nil
	}
	r, err := regions.Load(*regionFile)
	if err != nil {
		return err
	}
	p.SetRegions(r)
	return nil
}

func generate(exePath, manifestPath string) error {
	loader := localize.NewGenerator()
	if err := setup(loader); err != nil {
		return err
	}
	defer func() { _ = loader.Close() }()

	if err := loader.Open(exePath); err != nil {
		return err
	}
	if err := loader.LoadStringsAndRefs(); err != nil {
		return err
	}
	if err := loader.WriteManifest(manifestPath); err != nil {
		return err
	}

	fmt.Println()
	cli.PrintStringSummary(os.Stdout, loader.Strings())
	cli.Success(os.Stdout, "已生成翻译文件: %s", manifestPath)
	return nil
}

func patch(exePath, manifestPath, outPath string) error {
	patcher := localize.NewPatcher()
	if err := setup(patcher); err != nil {
		return err
	}
	defer func() { _ = patcher.Close() }()

	if err := patcher.Open(exePath); err != nil {
		return err
	}
	if err := patcher.LoadManifest(manifestPath); err != nil {
		return err
	}
	if err := patcher.WritePatchedExe(outPath); err != nil {
		return err
	}

	fmt.Println()
	cli.PrintRelocationSummary(os.Stdout, patcher.Image(), patcher.Strings())
	cli.Success(os.Stdout, "已生成修改后的可执行文件: %s", outPath)
	return nil
}

func info(exePath string) error {
	reader, err := pe.Open(exePath)
	if err != nil {
		return err
	}
	defer func() { _ = reader.Close() }()

	cli.NewReporter(os.Stdout, pe.NewAnalyzer(reader).Analyze()).Print()

	if err := reader.Image().RequireSections(localize.RequiredSections...); err != nil {
		yellow := color.New(color.FgYellow)
		_, _ = yellow.Printf("\n⚠️  %v (generate/patch 模式需要 .text .data .rdata .rsrc)\n", err)
	}
	fmt.Println()
	return nil
}

func printUsage() {
	cyan := color.New(color.FgCyan, color.Bold)
	_, _ = cyan.Println("\npelocal - PE可执行文件文本提取与本地化修改工具")

	fmt.Println("\n用法:")
	fmt.Println("  pelocal [选项] generate <输入exe> <输出翻译文件>")
	fmt.Println("      提取字符串及其引用，生成翻译文本文件 (别名: g)")
	fmt.Println("  pelocal [选项] patch <输入exe> <翻译文件> <输出exe>")
	fmt.Println("      根据翻译文件生成修改后的可执行文件 (别名: b, p)")
	fmt.Println("  pelocal [选项] info <输入exe>")
	fmt.Println("      显示PE头与节区信息 (别名: i)")

	fmt.Println("\n选项:")
	fmt.Println("  -regions <文件>    字符串区域配置文件 (TOML，默认使用内置区域表)")
	fmt.Println("  -debug             输出调试日志")
	fmt.Println("  -update-checksum   修改后更新PE校验和 (默认: false)")

	fmt.Println("\n翻译文件使用 Shift-JIS 编码保存，替换文本留空的行不会被修改。")

	fmt.Println("\n示例:")
	fmt.Println("  pelocal generate game.exe strings.txt")
	fmt.Println("  pelocal patch game.exe strings.txt game_patched.exe")
	fmt.Println("  pelocal -regions regions.toml g game.exe strings.txt")
	fmt.Println()
}
