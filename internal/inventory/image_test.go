package inventory

import (
	"context"
	"errors"
	"testing"
)

func TestAttachImage(t *testing.T) {
	reg, rec := newTestRegistry(t)
	ctx := context.Background()
	dev := mustRegisterDevice(t, reg, "Laptop-1")

	if _, err := reg.ResolveImage(ctx, dev.ID); !errors.Is(err, ErrNoImage) {
		t.Fatalf("ResolveImage() before attach error = %v, want ErrNoImage", err)
	}

	prev, err := reg.AttachImage(ctx, dev.ID, "first.png")
	if err != nil {
		t.Fatalf("AttachImage() error = %v", err)
	}
	if prev != "" {
		t.Errorf("previous = %q, want empty", prev)
	}

	prev, err = reg.AttachImage(ctx, dev.ID, "second.png")
	if err != nil {
		t.Fatalf("AttachImage() error = %v", err)
	}
	if prev != "first.png" {
		t.Errorf("previous = %q, want %q", prev, "first.png")
	}

	ref, err := reg.ResolveImage(ctx, dev.ID)
	if err != nil || ref != "second.png" {
		t.Errorf("ResolveImage() = %q, %v; want second.png", ref, err)
	}

	got, _ := reg.GetDevice(ctx, dev.ID)
	if got.ImagePath != "second.png" {
		t.Errorf("ImagePath = %q, want %q", got.ImagePath, "second.png")
	}

	types := rec.types()
	if types[len(types)-1] != EventDeviceImageAttached {
		t.Errorf("last event = %s, want %s", types[len(types)-1], EventDeviceImageAttached)
	}
}

func TestAttachImage_Errors(t *testing.T) {
	reg, _ := newTestRegistry(t)
	ctx := context.Background()
	dev := mustRegisterDevice(t, reg, "Laptop-1")

	if _, err := reg.AttachImage(ctx, "99", "x.png"); !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("AttachImage(missing) error = %v, want ErrDeviceNotFound", err)
	}
	if _, err := reg.AttachImage(ctx, dev.ID, " "); !errors.Is(err, ErrInvalidName) {
		t.Errorf("AttachImage(empty ref) error = %v, want ErrInvalidName", err)
	}
	if _, err := reg.ResolveImage(ctx, "99"); !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("ResolveImage(missing) error = %v, want ErrDeviceNotFound", err)
	}
	if !errors.Is(ErrNoImage, ErrNotFound) {
		t.Error("ErrNoImage should match ErrNotFound")
	}
}

func TestNotifierFunc(t *testing.T) {
	reg := NewRegistry(Options{})
	var got []Event
	reg.AddNotifier(NotifierFunc(func(_ context.Context, ev Event) {
		got = append(got, ev)
	}))

	user := mustRegisterUser(t, reg, "Alice")
	if len(got) != 1 {
		t.Fatalf("events = %d, want 1", len(got))
	}
	ev := got[0]
	if ev.Type.EntityType() != "user" || ev.EntityID() != user.ID {
		t.Errorf("event entity = %s/%s, want user/%s", ev.Type.EntityType(), ev.EntityID(), user.ID)
	}

	// Mutating the delivered snapshot must not leak into the registry.
	ev.User.Name = "mutated"
	again, _ := reg.GetUser(context.Background(), user.ID)
	if again.Name != "Alice" {
		t.Errorf("registry user renamed through event snapshot: %q", again.Name)
	}
}
