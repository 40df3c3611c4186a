package inventory

import (
	"context"
	"fmt"
	"strings"
)

// AttachImage records a blob reference on a device, replacing any previous
// one. The previous reference (empty if none) is returned so the caller can
// release the orphaned blob.
func (r *Registry) AttachImage(ctx context.Context, deviceID, ref string) (previous string, err error) {
	if strings.TrimSpace(ref) == "" {
		return "", fmt.Errorf("%w: empty image reference", ErrInvalidName)
	}

	r.mu.Lock()
	dev, ok := r.devices.find(deviceID)
	if !ok {
		r.mu.Unlock()
		return "", ErrDeviceNotFound
	}

	now := r.now()
	previous = dev.ImagePath
	dev.ImagePath = ref
	dev.UpdatedAt = now
	out := dev.Copy()
	t := r.ticket()
	r.mu.Unlock()

	r.logger.Info("device image attached", "device_id", deviceID, "ref", ref)
	r.publish(ctx, t, Event{Type: EventDeviceImageAttached, DeviceID: deviceID, Device: out, Timestamp: now})
	return previous, nil
}

// ResolveImage returns the blob reference recorded on a device.
// Returns ErrDeviceNotFound for an unknown device and ErrNoImage when no
// image has been attached; both match ErrNotFound.
func (r *Registry) ResolveImage(_ context.Context, deviceID string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	dev, ok := r.devices.find(deviceID)
	if !ok {
		return "", ErrDeviceNotFound
	}
	if dev.ImagePath == "" {
		return "", ErrNoImage
	}
	return dev.ImagePath, nil
}
