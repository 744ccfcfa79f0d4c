package transfer

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/chazu/blok/compiler"
	"github.com/chazu/blok/runtime"
)

func makeHandle(t *testing.T, source string, explicit []string, provided map[string]runtime.Value) *runtime.Handle {
	t.Helper()
	res, err := compiler.CompileBody(source, explicit)
	if err != nil {
		t.Fatalf("compile %q: %v", source, err)
	}
	h, err := runtime.NewHandle(runtime.NewDefinition(res), provided, nil)
	if err != nil {
		t.Fatalf("new handle: %v", err)
	}
	return h
}

func run(t *testing.T, h *runtime.Handle, bindings map[string]runtime.Value) runtime.Value {
	t.Helper()
	task, err := h.Reify(bindings)
	if err != nil {
		t.Fatalf("reify: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	v, err := task.Invoke(ctx).Await(ctx)
	if err != nil {
		t.Fatalf("invoke: %v", err)
	}
	return v
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	origin := makeHandle(t, "return greeting + name;",
		[]string{"greeting", "name"},
		map[string]runtime.Value{"greeting": "hello "})

	data, err := Encode(origin)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if origin.State() != runtime.StateTransferred {
		t.Fatalf("origin state = %s, want transferred", origin.State())
	}

	dest, err := Decode(data, nil)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if dest.State() != runtime.StateLocal {
		t.Errorf("dest state = %s, want local", dest.State())
	}
	if !reflect.DeepEqual(dest.Declared(), []string{"greeting", "name"}) {
		t.Errorf("dest declared = %v", dest.Declared())
	}
	if !reflect.DeepEqual(dest.Provided(), []string{"greeting"}) {
		t.Errorf("dest provided = %v", dest.Provided())
	}

	if err := Confirm(origin); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if origin.State() != runtime.StateConsumed {
		t.Errorf("origin state = %s, want consumed", origin.State())
	}

	if v := run(t, dest, map[string]runtime.Value{"name": "world"}); v != "hello world" {
		t.Errorf("got %v, want hello world", v)
	}
}

func TestEncodeConsumesOrigin(t *testing.T) {
	origin := makeHandle(t, "return 1;", nil, nil)

	if _, err := Encode(origin); err != nil {
		t.Fatalf("encode: %v", err)
	}

	// Mid-transfer the origin is unusable.
	var tce *runtime.TransferConsumedError
	if _, err := origin.Reify(nil); !errors.As(err, &tce) {
		t.Errorf("reify mid-transfer: got %v, want TransferConsumedError", err)
	}
	if _, err := Encode(origin); !errors.As(err, &tce) {
		t.Errorf("double encode: got %v, want TransferConsumedError", err)
	}
}

func TestAbortRestoresOrigin(t *testing.T) {
	origin := makeHandle(t, "return 1;", nil, nil)

	if _, err := Encode(origin); err != nil {
		t.Fatalf("encode: %v", err)
	}
	if err := Abort(origin); err != nil {
		t.Fatalf("abort: %v", err)
	}
	if origin.State() != runtime.StateLocal {
		t.Fatalf("state = %s, want local", origin.State())
	}

	// The handle is usable and transferable again.
	if v := run(t, origin, nil); v != int64(1) {
		t.Errorf("got %v, want 1", v)
	}
	if _, err := Encode(origin); err != nil {
		t.Errorf("re-encode after abort: %v", err)
	}
}

func TestMove(t *testing.T) {
	origin := makeHandle(t, "return n * n;", []string{"n"},
		map[string]runtime.Value{"n": int64(6)})

	dest, err := Move(origin, nil)
	if err != nil {
		t.Fatalf("move: %v", err)
	}
	if origin.State() != runtime.StateConsumed {
		t.Errorf("origin state = %s, want consumed", origin.State())
	}
	if dest.ID() == origin.ID() {
		t.Error("destination should have a fresh identity")
	}
	if v := run(t, dest, nil); v != int64(36) {
		t.Errorf("got %v, want 36", v)
	}
}

func TestDecodeCapturesAreIndependent(t *testing.T) {
	items := []runtime.Value{int64(1), int64(2)}
	origin := makeHandle(t, "return items[0];", []string{"items"},
		map[string]runtime.Value{"items": items})

	dest, err := Move(origin, nil)
	if err != nil {
		t.Fatalf("move: %v", err)
	}

	// The decoded side must not alias the origin's value.
	items[0] = int64(99)
	if v := run(t, dest, nil); v != int64(1) {
		t.Errorf("got %v, want 1", v)
	}
}

func TestDecodeRejectsInvalidBody(t *testing.T) {
	// A hand-built envelope whose body references an undeclared variable
	// must fail re-validation on decode.
	data, err := marshalEnvelope(&envelope{
		Version:  WireVersion,
		Source:   "return secret;",
		Declared: nil,
	})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	_, err = Decode(data, nil)
	if err == nil {
		t.Fatal("expected decode to fail")
	}
	if !strings.Contains(err.Error(), "invalid body") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestDecodeRejectsWrongVersion(t *testing.T) {
	data, err := marshalEnvelope(&envelope{
		Version: WireVersion + 1,
		Source:  "return 1;",
	})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	_, err = Decode(data, nil)
	if err == nil || !strings.Contains(err.Error(), "version") {
		t.Errorf("got %v, want version error", err)
	}
}

func TestDecodeRejectsGarbage(t *testing.T) {
	if _, err := Decode([]byte{0xff, 0x00, 0x13}, nil); err == nil {
		t.Fatal("expected decode of garbage to fail")
	}
}

func TestWireValueDomain(t *testing.T) {
	// Composite capture values survive the wire with their runtime
	// types intact: int64 integers, map[string]Value objects.
	origin := makeHandle(t, "return obj.count + nums[1];",
		[]string{"nums", "obj"},
		map[string]runtime.Value{
			"nums": []runtime.Value{int64(10), int64(20)},
			"obj":  map[string]runtime.Value{"count": int64(5)},
		})

	dest, err := Move(origin, nil)
	if err != nil {
		t.Fatalf("move: %v", err)
	}
	if v := run(t, dest, nil); v != int64(25) {
		t.Errorf("got %v, want 25", v)
	}
}
