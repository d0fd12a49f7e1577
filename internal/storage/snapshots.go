package storage

import (
	"github.com/dokzlo13/tradfrid/internal/tradfri"
)

// Record kinds in the resource_state table.
const (
	KindLight = "light"
	KindGroup = "group"
)

// Snapshots holds the persisted light and group records. They let the bridge
// re-announce every known entity on startup before the gateway has answered,
// and survive gateway outages.
type Snapshots struct {
	Lights *TypedStore[tradfri.LightRecord]
	Groups *TypedStore[tradfri.GroupRecord]
}

func NewSnapshots(store *Store) *Snapshots {
	return &Snapshots{
		Lights: NewTypedStore[tradfri.LightRecord](store, KindLight),
		Groups: NewTypedStore[tradfri.GroupRecord](store, KindGroup),
	}
}
