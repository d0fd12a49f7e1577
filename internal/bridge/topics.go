package bridge

import "strings"

// topics builds the topic tree under the configured base:
//
//	<base>/bridge/state                  bridge availability
//	<base>/light/<id>                    light state
//	<base>/light/<id>/set                light commands
//	<base>/light/<id>/availability       light availability
//	<base>/group/<id>[...]               same layout for groups
//
// Discovery configs go under the Home Assistant discovery prefix.
type topics struct {
	base            string
	discoveryPrefix string
}

const (
	kindLight = "light"
	kindGroup = "group"
)

func (t topics) bridgeState() string {
	return t.base + "/bridge/state"
}

func (t topics) state(kind, id string) string {
	return t.base + "/" + kind + "/" + id
}

func (t topics) set(kind, id string) string {
	return t.state(kind, id) + "/set"
}

func (t topics) availability(kind, id string) string {
	return t.state(kind, id) + "/availability"
}

func (t topics) setFilter(kind string) string {
	return t.base + "/" + kind + "/+/set"
}

func (t topics) discovery(kind, id string) string {
	return t.discoveryPrefix + "/light/" + uniqueID(kind, id) + "/config"
}

// uniqueID is the stable Home Assistant object id for a resource.
func uniqueID(kind, id string) string {
	if kind == kindGroup {
		return "tradfri_group_" + id
	}
	return "tradfri_" + id
}

// parseSet extracts the resource kind and id from a command topic. Reports
// false for topics outside the command tree.
func (t topics) parseSet(topic string) (kind, id string, ok bool) {
	rest, found := strings.CutPrefix(topic, t.base+"/")
	if !found {
		return "", "", false
	}
	parts := strings.Split(rest, "/")
	if len(parts) != 3 || parts[2] != "set" {
		return "", "", false
	}
	if parts[0] != kindLight && parts[0] != kindGroup {
		return "", "", false
	}
	if parts[1] == "" {
		return "", "", false
	}
	return parts[0], parts[1], true
}
