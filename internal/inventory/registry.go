package inventory

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

// Logger defines the logging interface used by the Registry.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Options configures a Registry.
type Options struct {
	// IDPolicy selects the wraparound behaviour of both allocators.
	IDPolicy IDPolicy
}

// Registry owns the device and user stores, their identifier allocators,
// and the take/return state machine.
//
// A single RWMutex guards every collection so that each operation is one
// critical section. Returned values are copies; callers never see the
// stored records.
//
// All public methods are thread-safe.
type Registry struct {
	mu        sync.RWMutex
	devices   orderedStore[*Device]
	users     orderedStore[*userRecord]
	deviceIDs *Allocator
	userIDs   *Allocator

	notifyMu  sync.RWMutex
	notifiers []Notifier

	// Delivery order. A ticket is drawn under mu by every mutation that
	// emits events; publish waits until all earlier tickets are delivered.
	nextTicket uint64 // guarded by mu
	turnMu     sync.Mutex
	turn       *sync.Cond
	serving    uint64 // guarded by turnMu

	logger Logger
	now    func() time.Time
}

// NewRegistry creates an empty registry.
func NewRegistry(opts Options) *Registry {
	r := &Registry{
		deviceIDs: NewAllocator(opts.IDPolicy),
		userIDs:   NewAllocator(opts.IDPolicy),
		logger:    noopLogger{},
		now:       func() time.Time { return time.Now().UTC() },
	}
	r.turn = sync.NewCond(&r.turnMu)
	return r
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger Logger) {
	r.logger = logger
}

// AddNotifier registers a receiver for mutation events.
func (r *Registry) AddNotifier(n Notifier) {
	r.notifyMu.Lock()
	r.notifiers = append(r.notifiers, n)
	r.notifyMu.Unlock()
}

// IDPolicy returns the allocator wraparound policy in effect.
func (r *Registry) IDPolicy() IDPolicy {
	return r.deviceIDs.Policy()
}

// ticket reserves the next delivery slot. Must be called with r.mu held,
// and the ticket must always be passed to publish.
func (r *Registry) ticket() uint64 {
	t := r.nextTicket
	r.nextTicket++
	return t
}

// publish delivers events to every notifier once every earlier ticket has
// been delivered, so notifiers observe mutations in the order they were
// applied to the stores. Must be called without r.mu held. Notifiers may
// read the registry but must not mutate it synchronously.
func (r *Registry) publish(ctx context.Context, t uint64, events ...Event) {
	r.turnMu.Lock()
	for r.serving != t {
		r.turn.Wait()
	}
	r.turnMu.Unlock()

	defer func() {
		r.turnMu.Lock()
		r.serving++
		r.turn.Broadcast()
		r.turnMu.Unlock()
	}()

	r.notifyMu.RLock()
	notifiers := r.notifiers
	r.notifyMu.RUnlock()

	for _, ev := range events {
		for _, n := range notifiers {
			n.Notify(ctx, ev)
		}
	}
}

// =============================================================================
// Devices
// =============================================================================

// RegisterDevice adds a new device in the StatusUnused state.
// Returns ErrDuplicateName if another device already has the same name.
func (r *Registry) RegisterDevice(ctx context.Context, in DeviceInput) (*Device, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, fmt.Errorf("%w: device name is required", ErrInvalidName)
	}

	r.mu.Lock()
	if _, exists := r.devices.findByName(in.Name); exists {
		r.mu.Unlock()
		return nil, fmt.Errorf("%w: device %q", ErrDuplicateName, in.Name)
	}

	id, err := r.deviceIDs.Next(r.devices.has)
	if err != nil {
		r.mu.Unlock()
		return nil, fmt.Errorf("allocating device id: %w", err)
	}

	now := r.now()
	dev := &Device{
		ID:           id,
		Name:         in.Name,
		Description:  in.Description,
		SerialNumber: in.SerialNumber,
		Manufacturer: in.Manufacturer,
		AssignedTo:   StatusUnused,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	r.devices.add(dev)
	out := dev.Copy()
	t := r.ticket()
	r.mu.Unlock()

	r.logger.Info("device registered", "id", out.ID, "name", out.Name)
	r.publish(ctx, t, Event{Type: EventDeviceRegistered, DeviceID: out.ID, Device: out.Copy(), Timestamp: now})
	return out, nil
}

// GetDevice retrieves a device by ID.
// Returns ErrDeviceNotFound if the device does not exist.
func (r *Registry) GetDevice(_ context.Context, id string) (*Device, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	dev, ok := r.devices.find(id)
	if !ok {
		return nil, ErrDeviceNotFound
	}
	return dev.Copy(), nil
}

// FindDeviceByName retrieves a device by its exact name.
func (r *Registry) FindDeviceByName(_ context.Context, name string) (*Device, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	dev, ok := r.devices.findByName(name)
	if !ok {
		return nil, ErrDeviceNotFound
	}
	return dev.Copy(), nil
}

// ListDevices returns every device in registration order.
func (r *Registry) ListDevices(_ context.Context) []Device {
	r.mu.RLock()
	defer r.mu.RUnlock()

	devices := make([]Device, 0, r.devices.len())
	for _, d := range r.devices.all() {
		devices = append(devices, *d)
	}
	return devices
}

// UpdateDevice merges patch onto an existing device.
//
// The identifier and the assignment fields (AssignedTo, HeldBy) are never
// changed here; use Take and Return for that. Renaming onto a name used by
// another device returns ErrDuplicateName.
func (r *Registry) UpdateDevice(ctx context.Context, id string, patch DevicePatch) (*Device, error) {
	if patch.Name != nil && strings.TrimSpace(*patch.Name) == "" {
		return nil, fmt.Errorf("%w: device name cannot be empty", ErrInvalidName)
	}

	r.mu.Lock()
	dev, ok := r.devices.find(id)
	if !ok {
		r.mu.Unlock()
		return nil, ErrDeviceNotFound
	}
	if patch.Name != nil && r.devices.nameTaken(*patch.Name, dev) {
		r.mu.Unlock()
		return nil, fmt.Errorf("%w: device %q", ErrDuplicateName, *patch.Name)
	}

	changed := patch.apply(dev)
	var t uint64
	if changed {
		dev.UpdatedAt = r.now()
		t = r.ticket()
	}
	out := dev.Copy()
	r.mu.Unlock()

	if changed {
		r.logger.Info("device updated", "id", out.ID, "name", out.Name)
		r.publish(ctx, t, Event{Type: EventDeviceUpdated, DeviceID: out.ID, Device: out.Copy(), Timestamp: out.UpdatedAt})
	}
	return out, nil
}

// RemoveDevice deletes a device.
//
// A device that is currently held is not removed unless force is set, in
// which case it is first returned from its holder so no user list keeps a
// dangling reference. Without force the call fails with ErrConflict.
func (r *Registry) RemoveDevice(ctx context.Context, id string, force bool) (*Device, error) {
	r.mu.Lock()
	dev, ok := r.devices.find(id)
	if !ok {
		r.mu.Unlock()
		return nil, ErrDeviceNotFound
	}

	now := r.now()
	var events []Event

	if dev.AssignedTo == StatusInUse {
		if !force {
			holder := dev.HeldBy
			r.mu.Unlock()
			return nil, fmt.Errorf("%w: device %s is held by user %s", ErrConflict, id, holder)
		}
		holderID := dev.HeldBy
		if holder, found := r.users.find(holderID); found {
			holder.release(dev.ID)
		}
		dev.AssignedTo = StatusInStorage
		dev.HeldBy = ""
		dev.UpdatedAt = now
		events = append(events, Event{Type: EventDeviceReturned, DeviceID: dev.ID, UserID: holderID, Device: dev.Copy(), Timestamp: now})
	}

	r.devices.remove(dev)
	out := dev.Copy()
	t := r.ticket()
	r.mu.Unlock()

	events = append(events, Event{Type: EventDeviceRemoved, DeviceID: out.ID, Device: out.Copy(), Timestamp: now})
	r.logger.Info("device removed", "id", out.ID, "name", out.Name, "forced_return", len(events) > 1)
	r.publish(ctx, t, events...)
	return out, nil
}

// =============================================================================
// Users
// =============================================================================

// RegisterUser adds a new user with an empty device list.
// Returns ErrDuplicateName if another user already has the same name.
func (r *Registry) RegisterUser(ctx context.Context, in UserInput) (*User, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, fmt.Errorf("%w: user name is required", ErrInvalidName)
	}

	r.mu.Lock()
	if _, exists := r.users.findByName(in.Name); exists {
		r.mu.Unlock()
		return nil, fmt.Errorf("%w: user %q", ErrDuplicateName, in.Name)
	}

	id, err := r.userIDs.Next(r.users.has)
	if err != nil {
		r.mu.Unlock()
		return nil, fmt.Errorf("allocating user id: %w", err)
	}

	rec := &userRecord{
		id:        id,
		name:      in.Name,
		createdAt: r.now(),
	}
	r.users.add(rec)
	out := r.userView(rec)
	t := r.ticket()
	r.mu.Unlock()

	r.logger.Info("user registered", "id", out.ID, "name", out.Name)
	r.publish(ctx, t, Event{Type: EventUserRegistered, UserID: out.ID, User: out.Copy(), Timestamp: out.CreatedAt})
	return out, nil
}

// GetUser retrieves a user by ID with the user's current devices resolved.
// Returns ErrUserNotFound if the user does not exist.
func (r *Registry) GetUser(_ context.Context, id string) (*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.users.find(id)
	if !ok {
		return nil, ErrUserNotFound
	}
	return r.userView(rec), nil
}

// FindUserByName retrieves a user by exact name.
func (r *Registry) FindUserByName(_ context.Context, name string) (*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.users.findByName(name)
	if !ok {
		return nil, ErrUserNotFound
	}
	return r.userView(rec), nil
}

// ListUsers returns every user in registration order.
func (r *Registry) ListUsers(_ context.Context) []User {
	r.mu.RLock()
	defer r.mu.RUnlock()

	users := make([]User, 0, r.users.len())
	for _, rec := range r.users.all() {
		users = append(users, *r.userView(rec))
	}
	return users
}

// UpdateUser merges patch onto an existing user. The device list is preserved.
func (r *Registry) UpdateUser(ctx context.Context, id string, patch UserPatch) (*User, error) {
	if patch.Name != nil && strings.TrimSpace(*patch.Name) == "" {
		return nil, fmt.Errorf("%w: user name cannot be empty", ErrInvalidName)
	}

	r.mu.Lock()
	rec, ok := r.users.find(id)
	if !ok {
		r.mu.Unlock()
		return nil, ErrUserNotFound
	}
	if patch.Name != nil && r.users.nameTaken(*patch.Name, rec) {
		r.mu.Unlock()
		return nil, fmt.Errorf("%w: user %q", ErrDuplicateName, *patch.Name)
	}

	changed := patch.Name != nil && *patch.Name != rec.name
	var t uint64
	if changed {
		rec.name = *patch.Name
		t = r.ticket()
	}
	out := r.userView(rec)
	now := r.now()
	r.mu.Unlock()

	if changed {
		r.logger.Info("user updated", "id", out.ID, "name", out.Name)
		r.publish(ctx, t, Event{Type: EventUserUpdated, UserID: out.ID, User: out.Copy(), Timestamp: now})
	}
	return out, nil
}

// userView resolves a stored user into its public form. Caller must hold r.mu.
func (r *Registry) userView(rec *userRecord) *User {
	u := &User{
		ID:        rec.id,
		Name:      rec.name,
		Devices:   r.resolveDevices(rec),
		CreatedAt: rec.createdAt,
	}
	return u
}

// resolveDevices looks up the current record of every device the user holds.
// Caller must hold r.mu.
func (r *Registry) resolveDevices(rec *userRecord) []Device {
	devices := make([]Device, 0, len(rec.deviceIDs))
	for _, id := range rec.deviceIDs {
		dev, ok := r.devices.find(id)
		if !ok {
			r.logger.Warn("user references unknown device", "user_id", rec.id, "device_id", id)
			continue
		}
		devices = append(devices, *dev)
	}
	return devices
}

// =============================================================================
// Statistics
// =============================================================================

// GetStats returns current registry statistics.
func (r *Registry) GetStats() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := Stats{
		TotalDevices: r.devices.len(),
		TotalUsers:   r.users.len(),
		ByStatus:     make(map[Status]int, len(AllStatuses())),
	}
	for _, s := range AllStatuses() {
		stats.ByStatus[s] = 0
	}
	for _, d := range r.devices.all() {
		stats.ByStatus[d.AssignedTo]++
	}
	return stats
}
