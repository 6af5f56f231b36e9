// Package storage provides byte-oriented key/value backends for the METAR
// data cache. All backends share the same two-operation contract: Get
// returns (nil, nil) when the key is absent, and Put replaces the value
// atomically from the reader's point of view.
package storage

// Backend stores named byte blobs.
type Backend interface {
	// Get returns the stored bytes for name, or (nil, nil) if no value
	// has been stored under that name.
	Get(name string) ([]byte, error)

	// Put stores data under name, replacing any previous value.
	Put(name string, data []byte) error
}
