package inventory

import (
	"slices"
	"time"
)

// Status is the assignment state of a device.
type Status string

// Assignment states.
const (
	// StatusUnused is the initial state of a freshly registered device.
	StatusUnused Status = "unused"

	// StatusInUse means exactly one user currently holds the device.
	StatusInUse Status = "in_use"

	// StatusInStorage means the device was returned and is available again.
	StatusInStorage Status = "in_storage"
)

// Assignable reports whether a device in this state may be taken.
// StatusUnused and StatusInStorage are equivalent for transition purposes.
func (s Status) Assignable() bool {
	return s == StatusUnused || s == StatusInStorage
}

// AllStatuses returns every assignment state in lifecycle order.
func AllStatuses() []Status {
	return []Status{StatusUnused, StatusInUse, StatusInStorage}
}

// Device is a physical item tracked by the registry.
type Device struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Description  string `json:"description"`
	SerialNumber string `json:"serialNumber"`
	Manufacturer string `json:"manufacturer"`
	AssignedTo   Status `json:"assignedTo"`

	// ImagePath is an opaque blob store reference; the registry never reads it.
	ImagePath string `json:"imagePath,omitempty"`

	// HeldBy is the ID of the holding user while AssignedTo is StatusInUse.
	HeldBy string `json:"heldBy,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Copy returns an independent copy of the device.
func (d *Device) Copy() *Device {
	if d == nil {
		return nil
	}
	c := *d
	return &c
}

func (d *Device) key() string   { return d.ID }
func (d *Device) label() string { return d.Name }

// User is a borrower as seen by callers. Devices holds the current records
// of every device the user holds, in the order they were taken.
type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Devices   []Device  `json:"devices"`
	CreatedAt time.Time `json:"createdAt"`
}

// Copy returns an independent copy of the user.
func (u *User) Copy() *User {
	if u == nil {
		return nil
	}
	c := *u
	c.Devices = slices.Clone(u.Devices)
	return &c
}

// userRecord is the stored form of a user. It keeps device identifiers only;
// the Device records are resolved through the device store on every read.
type userRecord struct {
	id        string
	name      string
	deviceIDs []string
	createdAt time.Time
}

func (u *userRecord) key() string   { return u.id }
func (u *userRecord) label() string { return u.name }

// holds reports whether the user's list contains deviceID.
func (u *userRecord) holds(deviceID string) bool {
	return slices.Contains(u.deviceIDs, deviceID)
}

// release removes the first occurrence of deviceID from the user's list.
// It is a no-op when the identifier is not present.
func (u *userRecord) release(deviceID string) bool {
	i := slices.Index(u.deviceIDs, deviceID)
	if i < 0 {
		return false
	}
	u.deviceIDs = slices.Delete(u.deviceIDs, i, i+1)
	return true
}

// DeviceInput carries the caller-supplied fields of a new device.
type DeviceInput struct {
	Name         string `json:"name"`
	Description  string `json:"description"`
	SerialNumber string `json:"serialNumber"`
	Manufacturer string `json:"manufacturer"`
}

// DevicePatch is a partial device update. Nil fields keep their current
// value. Identity and assignment fields are not patchable.
type DevicePatch struct {
	Name         *string `json:"name,omitempty"`
	Description  *string `json:"description,omitempty"`
	SerialNumber *string `json:"serialNumber,omitempty"`
	Manufacturer *string `json:"manufacturer,omitempty"`
}

// apply merges the patch onto d and reports whether anything changed.
func (p DevicePatch) apply(d *Device) bool {
	changed := false
	set := func(dst *string, src *string) {
		if src != nil && *dst != *src {
			*dst = *src
			changed = true
		}
	}
	set(&d.Name, p.Name)
	set(&d.Description, p.Description)
	set(&d.SerialNumber, p.SerialNumber)
	set(&d.Manufacturer, p.Manufacturer)
	return changed
}

// UserInput carries the caller-supplied fields of a new user.
type UserInput struct {
	Name string `json:"name"`
}

// UserPatch is a partial user update. The device list is not patchable.
type UserPatch struct {
	Name *string `json:"name,omitempty"`
}

// Stats summarises the registry contents.
type Stats struct {
	TotalDevices int            `json:"totalDevices"`
	TotalUsers   int            `json:"totalUsers"`
	ByStatus     map[Status]int `json:"byStatus"`
}
