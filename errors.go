package geotrie

import "fmt"

// ErrBadMagic is returned when a shard buffer does not begin with the "STRI" magic.
var ErrBadMagic = fmt.Errorf("geotrie: bad magic bytes")

// ErrGunzipUnavailable is returned when a gzip-prefixed shard is supplied but
// no Gunzipper collaborator was configured.
var ErrGunzipUnavailable = fmt.Errorf("geotrie: gzip-prefixed shard but no gunzipper configured")

// ErrShardNotFound is returned by a Fetcher when the remote has no shard for a key.
var ErrShardNotFound = fmt.Errorf("geotrie: shard not found")

// UnsupportedVersionError reports a shard format version geotrie does not decode.
type UnsupportedVersionError struct {
	Version byte
}

func (e *UnsupportedVersionError) Error() string {
	return fmt.Sprintf("geotrie: unsupported shard version %d", e.Version)
}

// BadFormatError reports a structural problem in a shard buffer. For failures
// found while reading the buffer, Offset is the byte offset at which the
// problem was discovered, so a caller can correlate it with a hex dump of the
// offending shard; checks made after the bytes are read (the LOUDS edge count
// and index validation) report 0, and a LOUDS bit that names a missing edge
// reports its bit index within the bitmap.
type BadFormatError struct {
	Offset  int
	Message string
}

func (e *BadFormatError) Error() string {
	return fmt.Sprintf("geotrie: bad format at offset %d: %s", e.Offset, e.Message)
}

// TransportError wraps a failure from the Fetcher collaborator.
type TransportError struct {
	URL string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("geotrie: fetching %s: %v", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

func badFormat(offset int, format string, args ...any) error {
	return &BadFormatError{Offset: offset, Message: fmt.Sprintf(format, args...)}
}
