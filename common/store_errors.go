package common

import "fmt"

// StoreErrType ...
type StoreErrType uint32

const (
	// KeyNotFound ...
	KeyNotFound StoreErrType = iota
	// KeyAlreadyExists ...
	KeyAlreadyExists
	// OpenSnapshotExists is returned when saving a second open-ended snapshot
	// for the same versioned entity.
	OpenSnapshotExists
	// NoOpenSnapshot is returned when closing a snapshot that is not open.
	NoOpenSnapshot
	// ShortWindow is returned when a measurement window is requested over
	// fewer recorded periods than the window size.
	ShortWindow
	// Empty ...
	Empty
)

// StoreErr is a typed error returned by the snapshot, measurement and
// subscription stores.
type StoreErr struct {
	dataType string
	errType  StoreErrType
	key      string
}

// NewStoreErr ...
func NewStoreErr(dataType string, errType StoreErrType, key string) StoreErr {
	return StoreErr{
		dataType: dataType,
		errType:  errType,
		key:      key,
	}
}

// Error ...
func (e StoreErr) Error() string {
	m := ""
	switch e.errType {
	case KeyNotFound:
		m = "Not Found"
	case KeyAlreadyExists:
		m = "Key Already Exists"
	case OpenSnapshotExists:
		m = "Open Snapshot Exists"
	case NoOpenSnapshot:
		m = "No Open Snapshot"
	case ShortWindow:
		m = "Short Window"
	case Empty:
		m = "Empty"
	}

	return fmt.Sprintf("%s, %s, %s", e.dataType, e.key, m)
}

// IsStore checks that an error is of type StoreErr and that its code matches
// the provided StoreErr code.
func IsStore(err error, t StoreErrType) bool {
	storeErr, ok := err.(StoreErr)
	return ok && storeErr.errType == t
}
