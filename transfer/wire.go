// Package transfer implements the codec that moves a handle across an
// isolation boundary. Encoding is move, not copy: the origin handle
// stops being usable the moment its content is on the wire, and is
// permanently consumed once the destination confirms receipt.
package transfer

import (
	"fmt"
	"reflect"

	"github.com/fxamacker/cbor/v2"

	"github.com/chazu/blok/runtime"
)

// WireVersion is the envelope format version. Decoders reject any
// other value.
const WireVersion = 1

// envelope is the wire representation of a handle: the body source,
// the declared capture set and the provided capture values. The
// destination re-validates the source on decode, so a corrupted or
// hand-built envelope cannot smuggle an invariant-violating body in.
type envelope struct {
	Version  int                      `cbor:"v"`
	Source   string                   `cbor:"src"`
	Declared []string                 `cbor:"cap"`
	Provided map[string]runtime.Value `cbor:"val"`
}

// cborEncMode uses canonical options for deterministic encoding.
var cborEncMode cbor.EncMode

// cborDecMode decodes integers to int64 and maps to map[string]Value,
// keeping decoded capture values inside the runtime value domain.
var cborDecMode cbor.DecMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("transfer: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em

	dm, err := cbor.DecOptions{
		IntDec:         cbor.IntDecConvertSigned,
		DefaultMapType: reflect.TypeOf(map[string]runtime.Value(nil)),
	}.DecMode()
	if err != nil {
		panic(fmt.Sprintf("transfer: failed to create CBOR dec mode: %v", err))
	}
	cborDecMode = dm
}

// marshalEnvelope serializes an envelope to CBOR bytes.
func marshalEnvelope(e *envelope) ([]byte, error) {
	return cborEncMode.Marshal(e)
}

// unmarshalEnvelope deserializes an envelope from CBOR bytes.
func unmarshalEnvelope(data []byte) (*envelope, error) {
	var e envelope
	if err := cborDecMode.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("transfer: unmarshal envelope: %w", err)
	}
	if e.Version != WireVersion {
		return nil, fmt.Errorf("transfer: unsupported envelope version %d (want %d)", e.Version, WireVersion)
	}
	return &e, nil
}
