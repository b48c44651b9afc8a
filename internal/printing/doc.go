// Package printing encodes receipts into ESC/POS byte streams: fixed-width
// justified lines, rules and PDF417 symbols. It performs no I/O; callers hand
// the returned bytes to a device transport.
package printing
