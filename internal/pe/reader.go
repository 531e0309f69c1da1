// Package pe reads, scans and patches 32-bit PE executables whose text is
// referenced through absolute-address immediates.
package pe

import (
	"fmt"
	"os"
)

// Reader pairs an open executable with its parsed image.
type Reader struct {
	file     *os.File
	image    *Image
	filepath string
	filesize int64
}

// Open opens a PE file for reading and validates its headers.
func Open(filepath string) (*Reader, error) {
	f, err := os.Open(filepath)
	if err != nil {
		return nil, ioErr("打开PE文件", err)
	}

	stat, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, ioErr("获取文件信息", err)
	}

	img, err := NewImage(f, stat.Size())
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("解析PE文件失败: %w", err)
	}

	return &Reader{
		file:     f,
		image:    img,
		filepath: filepath,
		filesize: stat.Size(),
	}, nil
}

// Close closes the underlying file.
func (r *Reader) Close() error {
	return r.file.Close()
}

// Image returns the parsed headers and section table.
func (r *Reader) Image() *Image {
	return r.image
}

// File returns the open file handle.
func (r *Reader) File() *os.File {
	return r.file
}

// FilePath returns the file path.
func (r *Reader) FilePath() string {
	return r.filepath
}

// FileSize returns the file size in bytes.
func (r *Reader) FileSize() int64 {
	return r.filesize
}
