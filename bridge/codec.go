package bridge

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"

	dsc "github.com/caarlos0/homekit-dsc"
)

// ErrInvalidLine is returned for lines that are not a frame.
var ErrInvalidLine = errors.New("invalid frame line")

// ParseFrame parses a frame line sent by a bridge:
//
//	<bits> <panel hex> [<module hex>]
//
// It is the same format dsc.Frame.String produces.
func ParseFrame(line string) (dsc.Frame, error) {
	var f dsc.Frame
	fields := strings.Fields(line)
	if len(fields) < 2 || len(fields) > 3 {
		return f, fmt.Errorf("%w: %q", ErrInvalidLine, line)
	}

	bits, err := strconv.Atoi(fields[0])
	if err != nil || bits < 1 || bits > dsc.ReadSize*8 {
		return f, fmt.Errorf("%w: bad bit count %q", ErrInvalidLine, fields[0])
	}

	data, err := hex.DecodeString(fields[1])
	if err != nil || len(data) == 0 || len(data) > dsc.ReadSize {
		return f, fmt.Errorf("%w: bad panel data %q", ErrInvalidLine, fields[1])
	}
	f.Bits = bits
	f.Bytes = len(data)
	copy(f.Data[:], data)

	if len(fields) == 3 {
		module, err := hex.DecodeString(fields[2])
		if err != nil || len(module) > dsc.ReadSize {
			return f, fmt.Errorf("%w: bad module data %q", ErrInvalidLine, fields[2])
		}
		copy(f.Module[:], module)
		f.ModuleBits = bits
	}
	return f, nil
}

// FormatFrame is the inverse of ParseFrame.
func FormatFrame(f dsc.Frame) string {
	return f.String() + "\n"
}

// FormatKeys formats a key write request for the bridge.
func FormatKeys(keys string) string {
	return "K" + keys + "\n"
}

// ParseKeys parses a key write request, as a bridge receives it.
func ParseKeys(line string) (string, bool) {
	line = strings.TrimRight(line, "\r\n")
	if !strings.HasPrefix(line, "K") || len(line) < 2 {
		return "", false
	}
	return line[1:], true
}
