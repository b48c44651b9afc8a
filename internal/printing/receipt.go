package printing

import (
	"bytes"
	"fmt"
	"strconv"
	"time"
)

const (
	headerTimeLayout  = "01/02/2006 15:04:05 MST"
	reprintTimeLayout = "2006-01-02 15:04:05 (MST)"
	calibrationSample = ` !"#$%&'()*+,-./0123456789:;<=>?@ABCDEFGHIJKLMNOPQRSTUVWXYZ[\]^_` + "`" + `abcdefghijklmnopqrstuvwxyz{|}~`
)

// Receipt accumulates one print job. After the first error every further call
// is a no-op and Bytes returns nil; check Err once at the end.
type Receipt struct {
	f   *LineFormatter
	buf bytes.Buffer
	err error
}

func NewReceipt(f *LineFormatter) *Receipt {
	return &Receipt{f: f}
}

func (r *Receipt) write(p ...[]byte) *Receipt {
	if r.err != nil {
		return r
	}
	for _, b := range p {
		r.buf.Write(b)
	}
	return r
}

func (r *Receipt) Init() *Receipt { return r.write(cmdInit) }

func (r *Receipt) Text(s string) *Receipt { return r.write([]byte(s)) }

func (r *Receipt) Feed(n int) *Receipt {
	if n <= 0 {
		return r
	}
	return r.write(bytes.Repeat([]byte{'\n'}, n))
}

// Title prints s centered at double width and height, then resets the printer.
func (r *Receipt) Title(s string) *Receipt {
	return r.write(alignCenter, sizeCmd(2, 2), []byte(s)).Feed(2).Init()
}

// Banner is Title on an inverted background.
func (r *Receipt) Banner(s string) *Receipt {
	return r.write(alignCenter, sizeCmd(2, 2), invertCmd(true), []byte(s)).
		Feed(2).
		write(invertCmd(false))
}

// Line resets the printer and prints one justified row. Control characters in
// label and value are dropped before layout.
func (r *Receipt) Line(label, value string) *Receipt {
	if r.err != nil {
		return r
	}
	line, err := r.f.Justify(printable(label), printable(value), DefaultPad)
	if err != nil {
		r.err = fmt.Errorf("line %q: %w", label, err)
		return r
	}
	return r.Init().Text(line)
}

func (r *Receipt) Rule() *Receipt {
	if r.err != nil {
		return r
	}
	line, err := r.f.Rule("-")
	if err != nil {
		r.err = err
		return r
	}
	return r.Text(line)
}

func (r *Receipt) Barcode(req BarcodeRequest) *Receipt {
	if r.err != nil {
		return r
	}
	data, err := BuildPDF417(req)
	if err != nil {
		r.err = fmt.Errorf("barcode: %w", err)
		return r
	}
	return r.write(data)
}

func (r *Receipt) Cut() *Receipt { return r.write(cmdCutFull) }

func (r *Receipt) Err() error { return r.err }

func (r *Receipt) Bytes() []byte {
	if r.err != nil {
		return nil
	}
	return r.buf.Bytes()
}

// Item is one (label, value) row of a list.
type Item struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// ListJob describes a printed list such as an inventory report or a shopping
// list. A zero ReprintOf marks a first print.
type ListJob struct {
	Title     string
	Items     []Item
	ListID    string
	Barcode   bool
	PrintedAt time.Time
	ReprintOf time.Time
}

// BuildListJob renders job into one byte sequence: header, title, one justified
// line per item and, when requested, a PDF417 symbol carrying job.ListID.
// barcode supplies the symbol parameters; its Content is replaced.
func BuildListJob(f *LineFormatter, job ListJob, barcode BarcodeRequest) ([]byte, error) {
	r := NewReceipt(f).Init()
	r.Text("Printed at: " + job.PrintedAt.UTC().Format(headerTimeLayout)).Feed(2)
	if !job.ReprintOf.IsZero() {
		r.Banner("REPRINT\n" + job.ReprintOf.UTC().Format(reprintTimeLayout)).Init()
	}
	if job.Title != "" {
		r.Title(job.Title)
	}
	for _, it := range job.Items {
		r.Line(it.Label, it.Value)
	}
	r.Feed(1)
	if job.Barcode {
		if job.ListID == "" {
			return nil, ErrMissingListID
		}
		barcode.Content = job.ListID
		r.Barcode(barcode)
	}
	r.Cut()
	if err := r.Err(); err != nil {
		return nil, err
	}
	return r.Bytes(), nil
}

// CalibrationPage prints the configured width next to a rule of that width and
// a PDF417 symbol of printable ASCII, so both can be checked on paper.
func CalibrationPage(f *LineFormatter, printedAt time.Time) ([]byte, error) {
	r := NewReceipt(f).Init()
	r.Text("Printed at: " + printedAt.UTC().Format(headerTimeLayout)).Feed(2)
	r.Banner("CHR TEST").Init()
	r.Text("Current setting is: " + strconv.Itoa(f.Width())).Feed(1)
	r.Rule().Feed(2)
	r.Banner("PDF417 TEST").Init()
	r.Barcode(DefaultBarcode(calibrationSample)).Feed(1)
	r.Cut()
	if err := r.Err(); err != nil {
		return nil, err
	}
	return r.Bytes(), nil
}
