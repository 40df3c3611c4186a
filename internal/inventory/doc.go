// Package inventory provides the assignment registry for the inventory service.
//
// The registry tracks physical devices and the users who borrow them. It owns
// two insertion-ordered stores, one identifier allocator per store, and the
// take/return state machine that keeps device and user records consistent.
//
// # Architecture
//
//	┌──────────────────────────────────────────────────────────────┐
//	│                          Registry                            │
//	│                                                              │
//	│  ┌──────────────┐   ┌──────────────┐   ┌──────────────────┐  │
//	│  │ Device store │   │  User store  │   │ Allocators (×2)  │  │
//	│  │  (store.go)  │   │  (store.go)  │   │  (allocator.go)  │  │
//	│  └──────────────┘   └──────────────┘   └──────────────────┘  │
//	│          ▲                  ▲                                │
//	│          └──── Take / Return (assignment.go) ────┘           │
//	│                                                              │
//	└─────────────────────────────┬────────────────────────────────┘
//	                              │ Event (events.go)
//	                              ▼
//	          Notifiers: audit trail, MQTT, InfluxDB, WebSocket
//
// # Assignment states
//
//	unused ──take──▶ in_use ──return──▶ in_storage ──take──▶ in_use …
//
// Take is legal only from unused or in_storage; Return only by the user
// recorded as the holder. Anything else fails with ErrConflict.
//
// Users store device identifiers, not copies. Reading a user resolves each
// identifier through the device store, so edits to a held device are
// visible immediately.
//
// # Identifiers
//
// Identifiers are two decimal digits ("00" … "99"), allocated per kind.
// Under IDPolicyChecked identifiers held by live records are skipped after
// wraparound; IDPolicyLegacy reissues them.
//
// # Usage
//
//	reg := inventory.NewRegistry(inventory.Options{IDPolicy: inventory.IDPolicyChecked})
//	reg.SetLogger(log)
//
//	dev, _ := reg.RegisterDevice(ctx, inventory.DeviceInput{Name: "Laptop-1", SerialNumber: "SN1"})
//	user, _ := reg.RegisterUser(ctx, inventory.UserInput{Name: "Alice"})
//	if _, err := reg.Take(ctx, dev.ID, user.ID); err != nil {
//	    return err
//	}
//
// # Thread Safety
//
// The Registry is safe for concurrent use. Every operation runs under one
// registry-wide mutex, so multi-collection updates are never observed half
// applied.
package inventory
