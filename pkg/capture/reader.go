package capture

import (
	"errors"
	"io"
	"os"
	"time"

	"github.com/fxamacker/cbor/v2"

	"github.com/urmzd/zwcore/pkg/zwave"
)

// Filter selects records. Zero fields match everything.
type Filter struct {
	Session string
	HomeID  zwave.HomeID
	NodeID  zwave.NodeID
	Types   []zwave.NotificationType
	Since   time.Time
	Until   time.Time
}

func (f *Filter) matches(r Record) bool {
	if f.Session != "" && r.Session != f.Session {
		return false
	}
	if f.HomeID != 0 && zwave.HomeID(r.HomeID) != f.HomeID {
		return false
	}
	if f.NodeID != 0 && zwave.NodeID(r.NodeID) != f.NodeID {
		return false
	}
	if len(f.Types) > 0 {
		found := false
		for _, t := range f.Types {
			if uint8(t) == r.Type {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if !f.Since.IsZero() && r.Time.Before(f.Since) {
		return false
	}
	if !f.Until.IsZero() && !r.Time.Before(f.Until) {
		return false
	}
	return true
}

// Reader streams records from a capture file.
type Reader struct {
	file    *os.File
	decoder *cbor.Decoder
	filter  Filter
}

// Open opens a capture file for reading records that match filter.
func Open(path string, filter Filter) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	return &Reader{file: f, decoder: decMode.NewDecoder(f), filter: filter}, nil
}

// Next returns the next matching record, or io.EOF at the end of the file.
func (r *Reader) Next() (Record, error) {
	for {
		var rec Record
		if err := r.decoder.Decode(&rec); err != nil {
			return Record{}, err
		}
		if r.filter.matches(rec) {
			return rec, nil
		}
	}
}

// Walk calls fn for every matching record until the end of the file or
// until fn returns false.
func (r *Reader) Walk(fn func(Record) bool) error {
	for {
		rec, err := r.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if !fn(rec) {
			return nil
		}
	}
}

// Close closes the file.
func (r *Reader) Close() error {
	return r.file.Close()
}
