package inventory

import (
	"context"
	"fmt"
)

// Take assigns a device to a user.
//
// Transition: unused | in_storage → in_use. Both identifiers must resolve
// (ErrDeviceNotFound, ErrUserNotFound) and the device must not already be
// held (ErrConflict). On success the device records its holder and the
// device identifier is appended to the user's list.
func (r *Registry) Take(ctx context.Context, deviceID, userID string) (*Device, error) {
	r.mu.Lock()
	dev, user, err := r.resolvePair(deviceID, userID)
	if err != nil {
		r.mu.Unlock()
		return nil, err
	}

	if !dev.AssignedTo.Assignable() {
		holder := dev.HeldBy
		r.mu.Unlock()
		return nil, fmt.Errorf("%w: device %s is already in use by user %s", ErrConflict, deviceID, holder)
	}

	now := r.now()
	dev.AssignedTo = StatusInUse
	dev.HeldBy = user.id
	dev.UpdatedAt = now
	user.deviceIDs = append(user.deviceIDs, dev.ID)
	out := dev.Copy()
	t := r.ticket()
	r.mu.Unlock()

	r.logger.Info("device taken", "device_id", out.ID, "user_id", userID)
	r.publish(ctx, t, Event{Type: EventDeviceTaken, DeviceID: out.ID, UserID: userID, Device: out.Copy(), Timestamp: now})
	return out, nil
}

// Return hands a device back to storage.
//
// Transition: in_use → in_storage, only by the current holder. Both
// identifiers must resolve; a device that is not in use, or is held by a
// different user, is rejected with ErrConflict and nothing changes. The
// device is removed from the user's list by identifier.
func (r *Registry) Return(ctx context.Context, deviceID, userID string) (*Device, error) {
	r.mu.Lock()
	dev, user, err := r.resolvePair(deviceID, userID)
	if err != nil {
		r.mu.Unlock()
		return nil, err
	}

	if dev.AssignedTo != StatusInUse {
		state := dev.AssignedTo
		r.mu.Unlock()
		return nil, fmt.Errorf("%w: device %s is %s, not in use", ErrConflict, deviceID, state)
	}
	if dev.HeldBy != user.id {
		holder := dev.HeldBy
		r.mu.Unlock()
		return nil, fmt.Errorf("%w: device %s is held by user %s, not %s", ErrConflict, deviceID, holder, userID)
	}

	if !user.release(dev.ID) {
		// Holder matched but the list did not carry the id; state is still
		// corrected below so the invariant holds again.
		r.logger.Warn("holder list missing returned device", "device_id", dev.ID, "user_id", user.id)
	}

	now := r.now()
	dev.AssignedTo = StatusInStorage
	dev.HeldBy = ""
	dev.UpdatedAt = now
	out := dev.Copy()
	t := r.ticket()
	r.mu.Unlock()

	r.logger.Info("device returned", "device_id", out.ID, "user_id", userID)
	r.publish(ctx, t, Event{Type: EventDeviceReturned, DeviceID: out.ID, UserID: userID, Device: out.Copy(), Timestamp: now})
	return out, nil
}

// ListDevicesForUser returns the current records of the devices a user holds,
// in the order they were taken. The slice is empty, never nil, when the user
// holds nothing.
func (r *Registry) ListDevicesForUser(_ context.Context, userID string) ([]Device, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.users.find(userID)
	if !ok {
		return nil, ErrUserNotFound
	}
	return r.resolveDevices(user), nil
}

// resolvePair looks up a device and a user. Caller must hold r.mu.
func (r *Registry) resolvePair(deviceID, userID string) (*Device, *userRecord, error) {
	dev, ok := r.devices.find(deviceID)
	if !ok {
		return nil, nil, ErrDeviceNotFound
	}
	user, ok := r.users.find(userID)
	if !ok {
		return nil, nil, ErrUserNotFound
	}
	return dev, user, nil
}
