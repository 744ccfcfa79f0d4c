package transfer

import (
	"fmt"

	"github.com/tliron/commonlog"

	"github.com/chazu/blok/compiler"
	"github.com/chazu/blok/runtime"
)

var log = commonlog.GetLogger("blok.transfer")

// Encode serializes a Local handle for crossing an isolation boundary
// and moves it to Transferred: from this point the origin handle is
// unusable unless the transfer is aborted. A capture value outside the
// clonable domain fails with a CloneError naming the capture and
// leaves the handle Local.
func Encode(h *runtime.Handle) ([]byte, error) {
	snap, err := h.BeginTransfer()
	if err != nil {
		return nil, err
	}

	data, err := marshalEnvelope(&envelope{
		Version:  WireVersion,
		Source:   snap.Source,
		Declared: snap.Declared,
		Provided: snap.Provided,
	})
	if err != nil {
		// Marshalling failed after the state transition; hand the
		// handle back rather than stranding it mid-transfer.
		if abortErr := h.AbortTransfer(); abortErr != nil {
			return nil, fmt.Errorf("transfer: encode failed (%v) and abort failed: %w", err, abortErr)
		}
		return nil, fmt.Errorf("transfer: encode handle %s: %w", h.ID(), err)
	}

	log.Debugf("encoded handle %s (%d bytes, %d captures)", h.ID(), len(data), len(snap.Provided))
	return data, nil
}

// Decode rebuilds a fresh Local handle on the destination side of the
// boundary. The body source is re-parsed and re-validated against the
// declared capture set, and every provided capture value arrives as an
// independent clone with no live aliasing to the origin.
func Decode(data []byte, runner runtime.Submitter) (*runtime.Handle, error) {
	env, err := unmarshalEnvelope(data)
	if err != nil {
		return nil, err
	}

	res, err := compiler.CompileBody(env.Source, env.Declared)
	if err != nil {
		return nil, fmt.Errorf("transfer: decode: invalid body: %w", err)
	}

	def := runtime.NewDefinition(res)
	h, err := runtime.NewHandle(def, env.Provided, runner)
	if err != nil {
		return nil, fmt.Errorf("transfer: decode: %w", err)
	}

	log.Debugf("decoded handle %s (%d captures)", h.ID(), len(env.Provided))
	return h, nil
}

// Confirm acknowledges receipt at the destination, consuming the
// origin handle permanently.
func Confirm(h *runtime.Handle) error {
	return h.ConfirmTransfer()
}

// Abort reports a failed delivery, returning the origin handle to
// Local.
func Abort(h *runtime.Handle) error {
	return h.AbortTransfer()
}

// Move performs a complete in-process transfer: encode at the origin,
// decode into the destination context, then confirm. If decoding
// fails the origin is handed back via Abort.
func Move(h *runtime.Handle, runner runtime.Submitter) (*runtime.Handle, error) {
	data, err := Encode(h)
	if err != nil {
		return nil, err
	}

	dest, err := Decode(data, runner)
	if err != nil {
		if abortErr := Abort(h); abortErr != nil {
			return nil, fmt.Errorf("transfer: move failed (%v) and abort failed: %w", err, abortErr)
		}
		return nil, err
	}

	if err := Confirm(h); err != nil {
		return nil, err
	}
	return dest, nil
}
