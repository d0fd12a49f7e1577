package gateway

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/dokzlo13/tradfrid/internal/tradfri"
)

// Resource roots on the gateway.
const (
	uriDevices   = "/15001"
	uriGroups    = "/15004"
	uriGateway   = "/15011/15012"
	uriProvision = "/15011/9063"
)

// The gateway reports no color temperature bounds; every white-spectrum
// bulb accepts this fixed mired range.
const (
	MinMireds = 250
	MaxMireds = 454
)

// Documents use numeric LWM2M-style attribute keys: 9001 name, 9003
// instance id, 9019 reachable, 3 device info, 3311 light control, 5850
// power, 5851 dimmer, 5709/5710 scaled xy, 5711 color temperature, 5712
// transition time.

type deviceDoc struct {
	ID        int64          `json:"9003"`
	Name      string         `json:"9001"`
	Reachable int            `json:"9019"`
	Info      *deviceInfoDoc `json:"3,omitempty"`
	Lights    []lightDoc     `json:"3311,omitempty"`
}

type deviceInfoDoc struct {
	Manufacturer string `json:"0,omitempty"`
	Model        string `json:"1,omitempty"`
	Firmware     string `json:"3,omitempty"`
}

type lightDoc struct {
	Power     *int `json:"5850,omitempty"`
	Dimmer    *int `json:"5851,omitempty"`
	ColorTemp *int `json:"5711,omitempty"`
	ColorX    *int `json:"5709,omitempty"`
	ColorY    *int `json:"5710,omitempty"`
}

type groupDoc struct {
	ID      int64            `json:"9003"`
	Name    string           `json:"9001"`
	Power   int              `json:"5850"`
	Dimmer  int              `json:"5851"`
	Members *groupMembersDoc `json:"9018,omitempty"`
}

type groupMembersDoc struct {
	Link struct {
		IDs []int64 `json:"9003"`
	} `json:"15002"`
}

// Set requests reuse the same attribute keys. Device attributes nest under
// the 3311 array, group attributes sit at the top level.

type lightSetDoc struct {
	Power      *int `json:"5850,omitempty"`
	Dimmer     *int `json:"5851,omitempty"`
	ColorTemp  *int `json:"5711,omitempty"`
	ColorX     *int `json:"5709,omitempty"`
	ColorY     *int `json:"5710,omitempty"`
	Transition *int `json:"5712,omitempty"`
}

type lightSetRequest struct {
	Lights []lightSetDoc `json:"3311"`
}

type groupSetDoc struct {
	Power      *int `json:"5850,omitempty"`
	Dimmer     *int `json:"5851,omitempty"`
	Transition *int `json:"5712,omitempty"`
}

type gatewayInfoDoc struct {
	Firmware string `json:"9029,omitempty"`
	NTP      string `json:"9023,omitempty"`
}

// decodeDevice maps a device document onto the adapter model. Control
// capabilities are derived from which attributes the light control block
// reports: 5711 means settable color temperature, 5709/5710 mean settable
// xy color.
func decodeDevice(data []byte) (tradfri.Device, error) {
	var doc deviceDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return tradfri.Device{}, fmt.Errorf("decode device: %w", err)
	}

	dev := tradfri.Device{
		ID:        strconv.FormatInt(doc.ID, 10),
		Name:      doc.Name,
		Reachable: doc.Reachable == 1,
	}
	if doc.Info != nil {
		dev.Info = tradfri.DeviceInfo{
			Manufacturer: doc.Info.Manufacturer,
			Model:        doc.Info.Model,
			Firmware:     doc.Info.Firmware,
		}
	}
	if len(doc.Lights) == 0 {
		return dev, nil
	}

	ld := doc.Lights[0]
	lc := &tradfri.LightControl{}
	if ld.Power != nil {
		lc.Power = *ld.Power == 1
	}
	if ld.Dimmer != nil {
		lc.Brightness = clampDimmer(*ld.Dimmer)
	}
	if ld.ColorTemp != nil {
		lc.ColorTemp = uint16(*ld.ColorTemp)
		lc.CanSetTemp = true
		lc.MinMireds = MinMireds
		lc.MaxMireds = MaxMireds
	}
	if ld.ColorX != nil && ld.ColorY != nil {
		lc.HasXY = true
		lc.X = colorFromWire(*ld.ColorX)
		lc.Y = colorFromWire(*ld.ColorY)
		lc.CanSetColor = true
	}
	dev.Light = lc
	return dev, nil
}

func decodeGroup(data []byte) (tradfri.Group, error) {
	var doc groupDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return tradfri.Group{}, fmt.Errorf("decode group: %w", err)
	}

	g := tradfri.Group{
		ID:         strconv.FormatInt(doc.ID, 10),
		Name:       doc.Name,
		Power:      doc.Power == 1,
		Brightness: clampDimmer(doc.Dimmer),
	}
	if doc.Members != nil {
		for _, id := range doc.Members.Link.IDs {
			g.DeviceIDs = append(g.DeviceIDs, strconv.FormatInt(id, 10))
		}
	}
	return g, nil
}

// decodeIDList parses a resource root listing, a bare JSON array of
// instance IDs.
func decodeIDList(data []byte) ([]string, error) {
	var ids []int64
	if err := json.Unmarshal(data, &ids); err != nil {
		return nil, fmt.Errorf("decode id list: %w", err)
	}

	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, strconv.FormatInt(id, 10))
	}
	return out, nil
}

// encodeCommand turns one adapter command into the request path and JSON
// payload for the gateway.
func encodeCommand(cmd tradfri.Command) (string, []byte, error) {
	doc := lightSetDoc{}
	switch cmd.Op {
	case tradfri.OpSetPower:
		doc.Power = intPtr(boolToInt(cmd.Power))
	case tradfri.OpSetBrightness:
		doc.Dimmer = intPtr(int(cmd.Brightness))
	case tradfri.OpSetColorTemp:
		doc.ColorTemp = intPtr(int(cmd.ColorTemp))
	case tradfri.OpSetColor:
		doc.ColorX = intPtr(colorToWire(cmd.X))
		doc.ColorY = intPtr(colorToWire(cmd.Y))
	default:
		return "", nil, fmt.Errorf("unsupported op %v", cmd.Op)
	}
	if cmd.Transition != nil {
		doc.Transition = intPtr(int(*cmd.Transition))
	}

	switch cmd.Target.Kind {
	case tradfri.TargetDevice:
		payload, err := json.Marshal(lightSetRequest{Lights: []lightSetDoc{doc}})
		if err != nil {
			return "", nil, err
		}
		return uriDevices + "/" + cmd.Target.ID, payload, nil
	case tradfri.TargetGroup:
		if cmd.Op != tradfri.OpSetPower && cmd.Op != tradfri.OpSetBrightness {
			return "", nil, fmt.Errorf("op %s not supported for groups", cmd.Op)
		}
		payload, err := json.Marshal(groupSetDoc{
			Power:      doc.Power,
			Dimmer:     doc.Dimmer,
			Transition: doc.Transition,
		})
		if err != nil {
			return "", nil, err
		}
		return uriGroups + "/" + cmd.Target.ID, payload, nil
	default:
		return "", nil, fmt.Errorf("unsupported target kind %v", cmd.Target.Kind)
	}
}

// xy pairs ride the wire as 16-bit scaled integers.
func colorToWire(v float64) int {
	return int(v*65535 + 0.5)
}

func colorFromWire(v int) float64 {
	return float64(v) / 65535.0
}

func clampDimmer(v int) uint8 {
	if v < 0 {
		return 0
	}
	if v > tradfri.DimmerMax {
		return tradfri.DimmerMax
	}
	return uint8(v)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func intPtr(v int) *int {
	return &v
}
