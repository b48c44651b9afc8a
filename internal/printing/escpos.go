package printing

import (
	"bytes"
	"strings"
)

var (
	cmdInit    = []byte{0x1b, 0x40}       // ESC @
	cmdCutFull = []byte{0x1d, 0x56, 0x00} // GS V 0
)

// GS ! n, width and height magnification 1..8
func sizeCmd(w, h int) []byte {
	return []byte{0x1d, 0x21, byte((w-1)<<4 | (h - 1))}
}

func invertCmd(on bool) []byte {
	if on {
		return []byte{0x1d, 0x42, 0x01} // GS B 1
	}
	return []byte{0x1d, 0x42, 0x00}
}

// TextReceipt: ESC/POS init + text + newline + full cut.
func TextReceipt(text string) []byte {
	var b bytes.Buffer
	b.Write(cmdInit)
	b.WriteString(text)
	if len(text) == 0 || text[len(text)-1] != '\n' {
		b.WriteByte('\n')
	}
	b.Write(cmdCutFull)
	return b.Bytes()
}

// printable drops C0 controls and DEL so caller text cannot inject commands.
func printable(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, s)
}
