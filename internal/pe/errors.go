package pe

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidExecutable reports any structural validation failure of the image.
	ErrInvalidExecutable = errors.New("无效的可执行文件")

	// ErrNoSection reports a required section that the image does not carry.
	ErrNoSection = errors.New("未找到节区")
)

// SectionError is returned when a required section is absent.
// It matches both ErrNoSection and ErrInvalidExecutable.
type SectionError struct {
	Name string
}

func (e *SectionError) Error() string {
	return fmt.Sprintf("%v: %s", ErrNoSection, e.Name)
}

// Is lets errors.Is treat a missing section as an invalid executable too.
func (e *SectionError) Is(target error) bool {
	return target == ErrNoSection || target == ErrInvalidExecutable
}

// IOError wraps a failed read, write or seek together with what was being done.
type IOError struct {
	Op  string
	Err error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s失败: %v", e.Op, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

func ioErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return &IOError{Op: op, Err: err}
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidExecutable, fmt.Sprintf(format, args...))
}
