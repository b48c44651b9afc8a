package printing

import (
	"bytes"
	"unicode/utf8"
)

type SymbolOption int

const (
	Standard  SymbolOption = 0
	Truncated SymbolOption = 1
)

const (
	// maxSymbolStorage bounds the stored payload plus its 3 mode bytes.
	maxSymbolStorage = 500
	storeOverhead    = 3
)

// GS ( k function bytes for PDF417 (cn = 0x30).
const (
	fnColumns   = 0x41
	fnRows      = 0x42
	fnWidth     = 0x43
	fnHeight    = 0x44
	fnErrorCorr = 0x45
	fnOptions   = 0x46
	fnStore     = 0x50
	fnPrint     = 0x51
)

var (
	alignCenter = []byte{0x1b, 0x61, 0x01} // ESC a 1
	gsK         = []byte{0x1d, 0x28, 0x6b} // GS ( k
	gsKOneParam = []byte{0x1d, 0x28, 0x6b, 0x03, 0x00, 0x30}
)

// BarcodeRequest describes one PDF417 symbol.
type BarcodeRequest struct {
	Content          string
	ModuleWidth      int
	Rows             int
	HeightMultiplier int
	DataColumns      int
	ErrorCorrection  int
	Options          SymbolOption
}

// DefaultBarcode returns a request with the printer's factory-like defaults.
func DefaultBarcode(content string) BarcodeRequest {
	return BarcodeRequest{
		Content:         content,
		ModuleWidth:     2,
		ErrorCorrection: 20,
		Options:         Standard,
	}
}

func (r BarcodeRequest) Validate() error {
	if !utf8.ValidString(r.Content) {
		return ErrInvalidEncoding
	}
	if n := len(r.Content); n+storeOverhead >= maxSymbolStorage {
		return &ValidationError{Field: "content_length", Value: n, Err: ErrContentTooLarge}
	}
	if r.ModuleWidth < 2 || r.ModuleWidth > 8 {
		return &ValidationError{Field: "width", Value: r.ModuleWidth, Err: ErrInvalidModuleWidth}
	}
	if r.Rows != 0 && (r.Rows < 3 || r.Rows > 90) {
		return &ValidationError{Field: "rows", Value: r.Rows, Err: ErrInvalidRowCount}
	}
	if r.HeightMultiplier < 0 || r.HeightMultiplier > 16 {
		return &ValidationError{Field: "height_multiplier", Value: r.HeightMultiplier, Err: ErrInvalidHeightMultiplier}
	}
	if r.DataColumns < 0 || r.DataColumns > 30 {
		return &ValidationError{Field: "data_column_count", Value: r.DataColumns, Err: ErrInvalidColumnCount}
	}
	if r.ErrorCorrection < 1 || r.ErrorCorrection > 40 {
		return &ValidationError{Field: "error_correction_level", Value: r.ErrorCorrection, Err: ErrInvalidErrorCorrectionLevel}
	}
	if r.Options != Standard && r.Options != Truncated {
		return &ValidationError{Field: "options", Value: int(r.Options), Err: ErrInvalidOptions}
	}
	return nil
}

// BuildPDF417 validates req and returns the GS ( k command sequence that
// centers, configures, stores and prints the symbol. Nothing is returned on a
// validation failure.
func BuildPDF417(req BarcodeRequest) ([]byte, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	content := []byte(req.Content)

	var b bytes.Buffer
	b.Grow(len(content) + 64)
	b.Write(alignCenter)

	for _, p := range [...]struct{ fn, v byte }{
		{fnOptions, byte(req.Options)},
		{fnColumns, byte(req.DataColumns)},
		{fnRows, byte(req.Rows)},
		{fnWidth, byte(req.ModuleWidth)},
		{fnHeight, byte(req.HeightMultiplier)},
	} {
		b.Write(gsKOneParam)
		b.WriteByte(p.fn)
		b.WriteByte(p.v)
	}

	// error correction takes a selector byte, so pL = 4
	b.Write(gsK)
	b.Write([]byte{0x04, 0x00, 0x30, fnErrorCorr, 0x31, byte(req.ErrorCorrection)})

	pL, pH := LengthPrefix(len(content) + storeOverhead)
	b.Write(gsK)
	b.Write([]byte{pL, pH, 0x30, fnStore, 0x30})
	b.Write(content)

	b.Write(gsKOneParam)
	b.Write([]byte{fnPrint, 0x30})

	return b.Bytes(), nil
}

// LengthPrefix splits n into the little-endian (pL, pH) pair used by GS ( k.
func LengthPrefix(n int) (pL, pH byte) {
	return byte(n % 256), byte(n / 256)
}
