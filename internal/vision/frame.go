package vision

import "time"

// Frame represents one grayscale capture with immutability contract for
// zero-copy sharing.
//
// IMMUTABILITY CONTRACT:
//   - Sources MUST NOT modify frame.Data after publishing it
//   - Consumers MUST NOT modify frame.Data (read-only access)
//   - Enforcement: documentation-based (runtime checks would add overhead)
//
// Data length may be shorter than Width*Height (a capture can be truncated
// at the transport); every pixel access must be bounds-checked against
// len(Data). A frame is logically consumed after one detection cycle and
// must be released back to its source; it must not be retained.
type Frame struct {
	// Data contains the raw 8-bit grayscale pixel values, row-major.
	// MUST NOT be modified after publication (shared by reference).
	Data []byte

	// Width of the frame in pixels
	Width int

	// Height of the frame in pixels
	Height int

	// Timestamp when the frame was captured (source time, not processing time)
	Timestamp time.Time

	// Seq is a per-source monotonic sequence number.
	Seq uint64

	// TraceID is a unique identifier assigned by the source, used to follow
	// a single capture through logs.
	TraceID string
}
