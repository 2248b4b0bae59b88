package tracing

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"sync/atomic"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
)

// spanSeq prefixes span ids so ids minted by this process never repeat
// before the counter wraps.
var spanSeq atomic.Uint32

// newTraceID returns 32 hex characters from a UUIDv7: a millisecond
// timestamp followed by random bits. The result is a valid W3C trace id.
func newTraceID() string {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return hex.EncodeToString(id[:])
}

// newSpanID returns 16 hex characters: a 32-bit process sequence followed
// by 32 random bits. The result is never all zeros.
func newSpanID() string {
	var b [8]byte
	binary.BigEndian.PutUint32(b[:4], spanSeq.Add(1))
	_, _ = rand.Read(b[4:])
	if b == [8]byte{} {
		b[7] = 1
	}
	return hex.EncodeToString(b[:])
}

// otelTraceID converts a trace id to its OpenTelemetry form. Ids minted
// by this package are W3C hex and convert directly; foreign ids taken
// from headers are hashed into a stable 16-byte id.
func otelTraceID(id string) trace.TraceID {
	if tid, err := trace.TraceIDFromHex(id); err == nil {
		return tid
	}
	sum := sha256.Sum256([]byte(id))
	var tid trace.TraceID
	copy(tid[:], sum[:16])
	return tid
}

// otelSpanID converts a span id to its OpenTelemetry form, hashing
// foreign ids. An empty id converts to the invalid zero span id.
func otelSpanID(id string) trace.SpanID {
	if id == "" {
		return trace.SpanID{}
	}
	if sid, err := trace.SpanIDFromHex(id); err == nil {
		return sid
	}
	sum := sha256.Sum256([]byte(id))
	var sid trace.SpanID
	copy(sid[:], sum[:8])
	return sid
}
