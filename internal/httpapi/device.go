package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"receipt-bridge/internal/ble"
)

const (
	defaultScanSeconds = 8
	debugScanSeconds   = 4
	debugScanMaxHits   = 8
)

// scanner is swapped in tests; BLE scans need a real adapter.
var scanner = ble.Scan

func (s *Server) scan(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	filter := s.configSnapshot().BLE.DeviceNameContains
	var req struct {
		Seconds int `json:"seconds"`
	}
	_ = json.NewDecoder(r.Body).Decode(&req)
	if req.Seconds <= 0 {
		req.Seconds = defaultScanSeconds
	}

	s.log.Info("ble scan start: seconds=%d filter=%q", req.Seconds, filter)
	hits, err := scanner(req.Seconds, filter)
	if err != nil {
		s.log.Error("ble scan error: %v", err)
		status := http.StatusInternalServerError
		if errors.Is(err, ble.ErrScanBusy) {
			status = http.StatusConflict
		}
		http.Error(w, err.Error(), status)
		return
	}
	s.log.Info("ble scan done: found=%d", len(hits))
	writeJSON(w, map[string]any{"ok": true, "found": hits})
}

func (s *Server) connect(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		Address string `json:"address"`
	}
	_ = json.NewDecoder(r.Body).Decode(&req)
	if req.Address == "" {
		// fall back to the configured printer
		req.Address = s.configSnapshot().BLE.PrinterAddress
	}
	address, err := ble.NormalizeAddress(req.Address)
	if err != nil {
		s.log.Warn("ble connect rejected: %v", err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	s.log.Info("ble connect start: address=%s", address)
	if err := s.client.Connect(address); err != nil {
		s.log.Error("ble connect error: address=%s err=%v", address, err)
		go s.debugScan(address)
		http.Error(w, fmt.Sprintf("%v (address=%s; verify the printer is advertising and run /ble/scan)", err, address), http.StatusBadGateway)
		return
	}
	s.log.Info("ble connect ok: address=%s", address)
	writeJSON(w, map[string]any{"ok": true, "address": address})
}

// debugScan logs whether a printer that refused a connection is advertising.
func (s *Server) debugScan(address string) {
	hits, err := scanner(debugScanSeconds, "")
	switch {
	case errors.Is(err, ble.ErrScanBusy):
		s.log.Debug("ble debug scan skipped: scan in progress")
		return
	case err != nil:
		s.log.Warn("ble debug scan failed: %v", err)
		return
	}

	visible := false
	for i, hit := range hits {
		if hit.Address == address {
			visible = true
		}
		if i < debugScanMaxHits {
			s.log.Debug("ble debug hit[%d]: address=%s name=%q rssi=%d", i, hit.Address, hit.Name, hit.RSSI)
		}
	}
	s.log.Info("ble debug scan done: hits=%d target_visible=%v", len(hits), visible)
}

func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, map[string]any{"ok": true, "connected": s.client.IsConnected()})
}

func (s *Server) disconnect(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := s.client.Disconnect(); err != nil {
		s.log.Error("ble disconnect error: %v", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	s.log.Info("ble disconnected")
	writeJSON(w, map[string]any{"ok": true, "connected": false})
}

func (s *Server) describe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	desc, err := s.client.Describe()
	if err != nil {
		s.log.Error("ble describe error: %v", err)
		status := http.StatusInternalServerError
		if errors.Is(err, ble.ErrNotConnected) {
			status = http.StatusServiceUnavailable
		}
		http.Error(w, err.Error(), status)
		return
	}
	s.log.Info("ble describe ok: services=%d", len(desc.Services))
	writeJSON(w, map[string]any{"ok": true, "device": desc})
}
