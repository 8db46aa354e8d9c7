package interfaces

import (
	"errors"
	"testing"
)

func TestValidate(t *testing.T) {
	for _, iface := range []*Interface{Display, Registry, Callback} {
		if err := iface.Validate(); err != nil {
			t.Errorf("%s: %v", iface.Name, err)
		}
	}

	bad := &Interface{Version: 1}
	if err := bad.Validate(); !errors.Is(err, ErrNoName) {
		t.Errorf("Validate(no name) = %v, want ErrNoName", err)
	}

	bad = &Interface{Name: "x", Version: 0}
	if err := bad.Validate(); !errors.Is(err, ErrBadVersion) {
		t.Errorf("Validate(version 0) = %v, want ErrBadVersion", err)
	}

	bad = &Interface{
		Name:    "x",
		Version: 2,
		Events:  []Message{{Name: "late", Signature: "", Since: 3}},
	}
	if err := bad.Validate(); !errors.Is(err, ErrBadSince) {
		t.Errorf("Validate(since > version) = %v, want ErrBadSince", err)
	}
}

func TestOpcodeLookup(t *testing.T) {
	if m := Display.Request(1); m == nil || m.Name != "get_registry" {
		t.Errorf("Display.Request(1) = %v", m)
	}
	if m := Display.Request(2); m != nil {
		t.Errorf("Display.Request(2) = %v, want nil", m)
	}
	if m := Registry.Event(0); m == nil || m.Name != "global" {
		t.Errorf("Registry.Event(0) = %v", m)
	}

	op, ok := Display.EventOpcode("delete_id")
	if !ok || op != 1 {
		t.Errorf("EventOpcode(delete_id) = %d, %v", op, ok)
	}
	if _, ok := Display.EventOpcode("missing"); ok {
		t.Error("EventOpcode(missing) reported found")
	}
}

func TestCoreTypesWired(t *testing.T) {
	if Display.Requests[0].Types[0] != Callback {
		t.Error("sync new id not typed as wl_callback")
	}
	if Display.Requests[1].Types[0] != Registry {
		t.Error("get_registry new id not typed as wl_registry")
	}
}
