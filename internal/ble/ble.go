package ble

import (
	"errors"
	"fmt"
	"net"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"tinygo.org/x/bluetooth"
)

var Adapter = bluetooth.DefaultAdapter

const (
	scanStopGrace    = 2 * time.Second
	chunkPause       = 10 * time.Millisecond
	DefaultChunkSize = 180
)

// the adapter supports one scan at a time
var scanning atomic.Bool

var (
	ErrScanBusy               = errors.New("bluetooth scan already in progress")
	ErrScanTimeout            = errors.New("bluetooth scan timed out while stopping")
	ErrNotConnected           = errors.New("printer not connected")
	ErrServiceNotFound        = errors.New("service not found")
	ErrCharacteristicNotFound = errors.New("characteristic not found")
)

type ScanHit struct {
	Address string `json:"address"`
	Name    string `json:"name"`
	RSSI    int16  `json:"rssi"`
}

type CharacteristicInfo struct {
	UUID                 string `json:"uuid"`
	Write                bool   `json:"write"`
	WriteWithoutResponse bool   `json:"write_without_response"`
	Notify               bool   `json:"notify"`
	Read                 bool   `json:"read"`
}

type ServiceInfo struct {
	UUID            string               `json:"uuid"`
	Characteristics []CharacteristicInfo `json:"characteristics"`
}

type DescribeResult struct {
	Services []ServiceInfo `json:"services"`
}

// Client owns the link to one printer. Every method serializes on mu, so
// jobs from concurrent requests never interleave on the wire.
type Client struct {
	mu        sync.Mutex
	dev       bluetooth.Device
	connected bool
}

func Enable() error { return Adapter.Enable() }

// Scan listens for advertisements for the given number of seconds and returns
// devices whose local name contains nameContains (case-insensitive), one hit
// per address, strongest signal first.
func Scan(seconds int, nameContains string) ([]ScanHit, error) {
	if seconds <= 0 {
		seconds = 8
	}
	if !scanning.CompareAndSwap(false, true) {
		return nil, ErrScanBusy
	}
	defer scanning.Store(false)

	window := time.Duration(seconds) * time.Second
	seen := newHitSet()
	scanDone := make(chan error, 1)
	go func() {
		scanDone <- Adapter.Scan(func(_ *bluetooth.Adapter, r bluetooth.ScanResult) {
			name := r.LocalName()
			if !nameMatches(name, nameContains) {
				return
			}
			seen.add(ScanHit{Address: r.Address.String(), Name: name, RSSI: r.RSSI})
		})
	}()

	time.Sleep(window)
	_ = Adapter.StopScan()

	select {
	case err := <-scanDone:
		if err != nil {
			return nil, err
		}
	case <-time.After(scanStopGrace):
		return nil, fmt.Errorf("%w after %s scan window", ErrScanTimeout, window)
	}
	return seen.sorted(), nil
}

func nameMatches(name, filter string) bool {
	if filter == "" {
		return true
	}
	return strings.Contains(strings.ToLower(name), strings.ToLower(filter))
}

// hitSet keeps the latest advertisement per address. Printers advertise
// several times a second and some only send their name in the scan response.
type hitSet struct {
	mu   sync.Mutex
	hits map[string]ScanHit
}

func newHitSet() *hitSet { return &hitSet{hits: make(map[string]ScanHit)} }

func (s *hitSet) add(h ScanHit) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if prev, ok := s.hits[h.Address]; ok && h.Name == "" {
		h.Name = prev.Name
	}
	s.hits[h.Address] = h
}

func (s *hitSet) sorted() []ScanHit {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ScanHit, 0, len(s.hits))
	for _, h := range s.hits {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].RSSI != out[j].RSSI {
			return out[i].RSSI > out[j].RSSI
		}
		return out[i].Address < out[j].Address
	})
	return out
}

// Connect replaces any current link with one to address. Service discovery
// runs once so a half-open link is reported here and not on the first print.
func (c *Client) Connect(address string) error {
	mac, err := NormalizeAddress(address)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.dropLocked()
	var target bluetooth.Address
	target.Set(mac)
	dev, err := Adapter.Connect(target, bluetooth.ConnectionParams{})
	if err != nil {
		return fmt.Errorf("connect %s: %w", mac, err)
	}
	if _, err := dev.DiscoverServices(nil); err != nil {
		_ = dev.Disconnect()
		return fmt.Errorf("connected to %s but could not verify link: %w", mac, err)
	}
	c.dev, c.connected = dev, true
	return nil
}

func (c *Client) dropLocked() {
	if c.connected {
		_ = c.dev.Disconnect()
		c.connected = false
	}
}

// NormalizeAddress returns a 48-bit MAC address in upper-case colon form.
// Dash and dot separators are accepted.
func NormalizeAddress(address string) (string, error) {
	hw, err := net.ParseMAC(strings.TrimSpace(address))
	if err != nil || len(hw) != 6 {
		return "", fmt.Errorf("invalid device address format: %q", address)
	}
	return strings.ToUpper(hw.String()), nil
}

func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.connected {
		return false
	}
	if _, err := c.dev.DiscoverServices(nil); err != nil {
		_ = c.dev.Disconnect()
		c.connected = false
	}
	return c.connected
}

func (c *Client) Disconnect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.connected {
		return nil
	}
	if err := c.dev.Disconnect(); err != nil {
		return err
	}
	c.connected = false
	return nil
}

func (c *Client) Describe() (*DescribeResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.connected {
		return nil, ErrNotConnected
	}
	services, err := c.dev.DiscoverServices(nil)
	if err != nil {
		return nil, err
	}
	out := &DescribeResult{Services: make([]ServiceInfo, 0, len(services))}
	for _, s := range services {
		si := ServiceInfo{UUID: s.UUID().String()}
		// a service whose characteristics cannot be read is still listed
		if chars, err := s.DiscoverCharacteristics(nil); err == nil {
			for _, ch := range chars {
				si.Characteristics = append(si.Characteristics,
					characteristicInfo(ch.UUID().String(), uint32(ch.Properties())))
			}
		}
		out.Services = append(out.Services, si)
	}
	return out, nil
}

// GATT characteristic property bits, Bluetooth Core Vol 3 Part G 3.3.1.1.
const (
	propRead                 = 0x02
	propWriteWithoutResponse = 0x04
	propWrite                = 0x08
	propNotify               = 0x10
)

func characteristicInfo(uuid string, props uint32) CharacteristicInfo {
	return CharacteristicInfo{
		UUID:                 uuid,
		Read:                 props&propRead != 0,
		WriteWithoutResponse: props&propWriteWithoutResponse != 0,
		Write:                props&propWrite != 0,
		Notify:               props&propNotify != 0,
	}
}

// Target names the GATT characteristic a print job is written to.
type Target struct {
	ServiceUUID        string
	CharacteristicUUID string
	ChunkSize          int
	WithResponse       bool
}

// Send writes a finished print job to the connected printer in ChunkSize
// pieces. The bytes are delivered unmodified.
func (c *Client) Send(target Target, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.connected {
		return ErrNotConnected
	}

	su, err := bluetooth.ParseUUID(target.ServiceUUID)
	if err != nil {
		return fmt.Errorf("service uuid: %w", err)
	}
	cu, err := bluetooth.ParseUUID(target.CharacteristicUUID)
	if err != nil {
		return fmt.Errorf("characteristic uuid: %w", err)
	}

	services, err := c.dev.DiscoverServices([]bluetooth.UUID{su})
	if err != nil {
		return err
	}
	if len(services) == 0 {
		return ErrServiceNotFound
	}

	chars, err := services[0].DiscoverCharacteristics([]bluetooth.UUID{cu})
	if err != nil {
		return err
	}
	if len(chars) == 0 {
		return ErrCharacteristicNotFound
	}
	ch := chars[0]

	for i, part := range Chunks(data, target.ChunkSize) {
		if target.WithResponse {
			_, err = ch.Write(part)
		} else {
			_, err = ch.WriteWithoutResponse(part)
		}
		if err != nil {
			return fmt.Errorf("write chunk %d: %w", i, err)
		}
		time.Sleep(chunkPause)
	}
	return nil
}

// Chunks splits data into consecutive pieces of at most size bytes.
// A non-positive size falls back to DefaultChunkSize.
func Chunks(data []byte, size int) [][]byte {
	if size <= 0 {
		size = DefaultChunkSize
	}
	out := make([][]byte, 0, (len(data)+size-1)/size)
	for i := 0; i < len(data); i += size {
		end := min(i+size, len(data))
		out = append(out, data[i:end])
	}
	return out
}
