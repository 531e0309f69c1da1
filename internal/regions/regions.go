// Package regions holds the file ranges of the target binary that contain
// translatable text.
package regions

import (
	"errors"
	"fmt"

	"github.com/BurntSushi/toml"
	"github.com/ZacharyZcR/pelocal/internal/pe"
)

// ErrConfig reports an unusable region file.
var ErrConfig = errors.New("区域配置错误")

// Named is a region with a human-readable label.
type Named struct {
	Name  string `toml:"name"`
	Begin uint32 `toml:"begin"`
	End   uint32 `toml:"end"`
}

// builtin is the region table of the supported game revision.
var builtin = []Named{
	{"spell names", 0x2c4f18, 0x2c6003},
	{"pause menu strings", 0x2c6170, 0x2c6263},
	{"music names", 0x2c6374, 0x2c6517},
	{"menu strings", 0x2c6518, 0x2c681f},
	{"menu strings 2", 0x2c6820, 0x2c6ee3},
	{"stage strings", 0x2c75c8, 0x2c7737},
	{"dialogues", 0x2c7738, 0x2cdc1b},
	{"game name", 0x2cdc6c, 0x2cdc8b},
	{"player spell names", 0x2ceb38, 0x2cec1f},
	{"endings", 0x2cec28, 0x2d0ac4},
}

// Builtin returns a copy of the built-in labelled table.
func Builtin() []Named {
	out := make([]Named, len(builtin))
	copy(out, builtin)
	return out
}

// Default returns the built-in table as extractor regions.
func Default() []pe.Region {
	return toRegions(builtin)
}

type file struct {
	Region []Named `toml:"region"`
}

// Load reads a TOML file of the form
//
//	[[region]]
//	name = "dialogues"
//	begin = 0x2c7738
//	end = 0x2cdc1b
func Load(path string) ([]pe.Region, error) {
	var f file
	if _, err := toml.DecodeFile(path, &f); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrConfig, path, err)
	}
	return Parse(f.Region)
}

// Parse validates a labelled table.
func Parse(named []Named) ([]pe.Region, error) {
	if len(named) == 0 {
		return nil, fmt.Errorf("%w: 未定义任何区域", ErrConfig)
	}
	for i, n := range named {
		if n.End < n.Begin {
			return nil, fmt.Errorf("%w: 区域 %d (%s) 结束地址 0x%X 小于起始地址 0x%X",
				ErrConfig, i+1, n.Name, n.End, n.Begin)
		}
	}
	return toRegions(named), nil
}

func toRegions(named []Named) []pe.Region {
	out := make([]pe.Region, len(named))
	for i, n := range named {
		out[i] = pe.Region{Begin: n.Begin, End: n.End}
	}
	return out
}
