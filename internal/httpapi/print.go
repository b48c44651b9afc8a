package httpapi

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"receipt-bridge/internal/ble"
	"receipt-bridge/internal/config"
	"receipt-bridge/internal/printing"
)

type listRequest struct {
	Title     string          `json:"title"`
	Items     []printing.Item `json:"items"`
	ListID    string          `json:"list_id"`
	Barcode   bool            `json:"barcode"`
	ReprintOf *time.Time      `json:"reprint_of"`
}

// barcodeRequest leaves omitted parameters at the configured defaults.
type barcodeRequest struct {
	Content          string `json:"content"`
	Width            *int   `json:"width"`
	Rows             *int   `json:"rows"`
	HeightMultiplier *int   `json:"height_multiplier"`
	DataColumnCount  *int   `json:"data_column_count"`
	ErrorCorrection  *int   `json:"error_correction_level"`
	Options          *int   `json:"options"`
}

func (b barcodeRequest) resolve(def config.Barcode) printing.BarcodeRequest {
	req := def.Request(b.Content)
	override := func(dst *int, src *int) {
		if src != nil {
			*dst = *src
		}
	}
	override(&req.ModuleWidth, b.Width)
	override(&req.Rows, b.Rows)
	override(&req.HeightMultiplier, b.HeightMultiplier)
	override(&req.DataColumns, b.DataColumnCount)
	override(&req.ErrorCorrection, b.ErrorCorrection)
	if b.Options != nil {
		req.Options = printing.SymbolOption(*b.Options)
	}
	return req
}

func formatterFor(cfg config.Config) (*printing.LineFormatter, error) {
	return printing.NewLineFormatter(cfg.Printer.CharWidth)
}

func targetFor(cfg config.Config) ble.Target {
	return ble.Target{
		ServiceUUID:        cfg.BLE.ServiceUUID,
		CharacteristicUUID: cfg.BLE.WriteCharacteristicUUID,
		ChunkSize:          cfg.BLE.ChunkSize,
		WithResponse:       cfg.BLE.WriteWithResponse,
	}
}

// send hands a finished job to the device and writes the response. route is
// only used for log lines.
func (s *Server) send(w http.ResponseWriter, route string, cfg config.Config, data []byte, extra map[string]any) {
	target := targetFor(cfg)
	s.log.Info("%s: bytes=%d chunk=%d with_response=%v", route, len(data), target.ChunkSize, target.WithResponse)

	if err := s.client.Send(target, data); err != nil {
		s.log.Error("%s error: %v", route, err)
		status := http.StatusInternalServerError
		if errors.Is(err, ble.ErrNotConnected) {
			status = http.StatusServiceUnavailable
		}
		http.Error(w, err.Error(), status)
		return
	}
	s.log.Info("%s ok", route)

	resp := map[string]any{"ok": true, "bytes": len(data)}
	for k, v := range extra {
		resp[k] = v
	}
	writeJSON(w, resp)
}

// buildFailed reports an encoder error; caller input errors become 400.
func (s *Server) buildFailed(w http.ResponseWriter, route string, err error) {
	if printing.IsInputError(err) {
		s.log.Warn("%s rejected: %v", route, err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.log.Error("%s build error: %v", route, err)
	http.Error(w, err.Error(), http.StatusInternalServerError)
}

func (s *Server) printText(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	s.send(w, "print/text", s.configSnapshot(), printing.TextReceipt(req.Text), nil)
}

func (s *Server) printRaw(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		Base64 string `json:"base64"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Base64 == "" {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	data, err := base64.StdEncoding.DecodeString(req.Base64)
	if err != nil {
		http.Error(w, "invalid base64", http.StatusBadRequest)
		return
	}
	s.send(w, "print/raw", s.configSnapshot(), data, nil)
}

// buildList decodes a list request and encodes it. A list that asks for a
// barcode without an id gets a fresh UUID.
func (s *Server) buildList(r *http.Request, cfg config.Config) (data []byte, listID string, err error) {
	var req listRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return nil, "", errBadBody
	}
	if req.Barcode && req.ListID == "" {
		req.ListID = s.newID()
	}
	f, err := formatterFor(cfg)
	if err != nil {
		return nil, "", err
	}
	job := printing.ListJob{
		Title:     req.Title,
		Items:     req.Items,
		ListID:    req.ListID,
		Barcode:   req.Barcode,
		PrintedAt: s.now(),
	}
	if req.ReprintOf != nil {
		job.ReprintOf = *req.ReprintOf
	}
	data, err = printing.BuildListJob(f, job, cfg.Barcode.Request(""))
	return data, req.ListID, err
}

var errBadBody = errors.New("invalid body")

func (s *Server) printList(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	cfg := s.configSnapshot()
	data, listID, err := s.buildList(r, cfg)
	if errors.Is(err, errBadBody) {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err != nil {
		s.buildFailed(w, "print/list", err)
		return
	}
	s.send(w, "print/list", cfg, data, map[string]any{"list_id": listID})
}

// encodeList returns the job bytes without touching the device.
func (s *Server) encodeList(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	data, listID, err := s.buildList(r, s.configSnapshot())
	if errors.Is(err, errBadBody) {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err != nil {
		s.buildFailed(w, "encode/list", err)
		return
	}
	writeJSON(w, map[string]any{
		"ok":      true,
		"list_id": listID,
		"bytes":   len(data),
		"base64":  base64.StdEncoding.EncodeToString(data),
	})
}

func (s *Server) printBarcode(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	cfg := s.configSnapshot()
	var req barcodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	f, err := formatterFor(cfg)
	if err != nil {
		s.buildFailed(w, "print/barcode", err)
		return
	}
	rc := printing.NewReceipt(f).Init().Barcode(req.resolve(cfg.Barcode)).Feed(1).Cut()
	if err := rc.Err(); err != nil {
		s.buildFailed(w, "print/barcode", err)
		return
	}
	s.send(w, "print/barcode", cfg, rc.Bytes(), nil)
}

func (s *Server) printTest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	cfg := s.configSnapshot()
	f, err := formatterFor(cfg)
	if err != nil {
		s.buildFailed(w, "print/test", err)
		return
	}
	data, err := printing.CalibrationPage(f, s.now())
	if err != nil {
		s.buildFailed(w, "print/test", err)
		return
	}
	s.send(w, "print/test", cfg, data, map[string]any{"char_width": f.Width()})
}
