// Package errs defines the sentinel errors shared across the gorch chunk
// layer and its serialization surfaces.
//
// All errors are plain sentinels so callers can branch with errors.Is:
//
//	if errors.Is(err, errs.ErrChunkFull) {
//	    // allocate a successor chunk and retry
//	}
package errs

import "errors"

var (
	// ErrChunkFull is returned by Append when the chunk has no byte or bit
	// budget left for another sample. The caller is expected to roll over to
	// a new chunk.
	ErrChunkFull = errors.New("chunk is full")

	// ErrDuplicateRejected is returned by Upsert when the duplicate policy
	// refused the incoming sample for an already-present timestamp.
	ErrDuplicateRejected = errors.New("duplicate sample rejected by policy")

	// ErrTimestampOutOfRange is returned internally when a timestamp
	// delta-of-delta exceeds the signed 32-bit range the compressed codec can
	// represent. Append surfaces it as ErrChunkFull so the caller rolls over
	// instead of losing data.
	ErrTimestampOutOfRange = errors.New("timestamp delta-of-delta out of range")

	// ErrDecode is returned when a serialized chunk stream ends prematurely
	// or contains a field that fails validation. The partially constructed
	// chunk is released; the caller abandons the load.
	ErrDecode = errors.New("chunk decode failed")

	// ErrInvalidMagicNumber is returned by the snapshot reader when the frame
	// does not start with the gorch magic number.
	ErrInvalidMagicNumber = errors.New("invalid magic number")

	// ErrInvalidVersion is returned by the snapshot reader for an unknown
	// frame version.
	ErrInvalidVersion = errors.New("invalid snapshot version")

	// ErrInvalidEncoding is returned when a chunk encoding byte does not name
	// a known representation.
	ErrInvalidEncoding = errors.New("invalid chunk encoding")

	// ErrChecksumMismatch is returned by the snapshot reader when the frame
	// digest does not match the payload.
	ErrChecksumMismatch = errors.New("snapshot checksum mismatch")
)
