package frame

// Reframer accumulates bytes from a stream and yields complete frames as
// they become available. It owns the receive buffer exclusively; callers
// must not read it concurrently (matching the session invariant that a
// receive-buffer belongs to exactly one receive loop).
//
// A corrupt byte anywhere in the stream is recoverable: Feed scans forward
// for the next sync byte and re-validates from there, so one bad byte never
// wedges the connection.
type Reframer struct {
	buf []byte
}

// NewReframer returns an empty reframer.
func NewReframer() *Reframer {
	return &Reframer{}
}

// Feed appends chunk to the internal buffer and returns every frame that can
// be fully decoded from it. Leftover bytes (a partial frame, or a prefix
// still being resynced) are retained for the next call.
func (r *Reframer) Feed(chunk []byte) []Frame {
	r.buf = append(r.buf, chunk...)

	var out []Frame
	for {
		if len(r.buf) < HeaderSize {
			break
		}

		if r.buf[0] != Sync {
			idx := indexByte(r.buf, Sync)
			if idx < 0 {
				r.buf = r.buf[:0]
				break
			}
			r.buf = r.buf[idx:]
			continue
		}

		h := parseHeader(r.buf)
		if h.bodyLength > MaxBodyLength {
			// Resync: the sync byte we matched on was not really the start
			// of a frame. Drop it and keep scanning.
			r.buf = r.buf[1:]
			continue
		}

		total := HeaderSize + int(h.bodyLength)
		if len(r.buf) < total {
			// Wait for more bytes; this is not an error.
			break
		}

		body := make([]byte, h.bodyLength)
		copy(body, r.buf[HeaderSize:total])
		out = append(out, Frame{
			Sequence:    h.sequence,
			MessageType: h.messageType,
			Body:        body,
		})
		r.buf = r.buf[total:]
	}

	return out
}

// Reset discards any buffered, not-yet-decoded bytes. Used when a session
// reconnects and the old partial frame can no longer be completed.
func (r *Reframer) Reset() {
	r.buf = r.buf[:0]
}

func indexByte(b []byte, c byte) int {
	for i, v := range b {
		if v == c {
			return i
		}
	}
	return -1
}
