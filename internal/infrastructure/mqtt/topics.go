package mqtt

import "fmt"

// Availability payloads published on Topics.Availability.
const (
	PayloadOnline  = "online"
	PayloadOffline = "offline"
)

// Topics builds the topic layout for one panel.
//
// Control, status and availability live under the bridge namespace:
//
//	hadashboard/<device>/control
//	hadashboard/<device>/status/<entityKey>
//	hadashboard/<device>/availability
//
// Discovery documents live under the controller's discovery prefix:
//
//	homeassistant/<component>/<device>/<entityKey>/config
type Topics struct {
	Namespace       string
	DiscoveryPrefix string
	DeviceID        string
}

// Control returns the topic the bridge subscribes to for text commands.
func (t Topics) Control() string {
	return fmt.Sprintf("%s/%s/control", t.Namespace, t.DeviceID)
}

// Status returns the retained state topic for one entity.
func (t Topics) Status(entityKey string) string {
	return fmt.Sprintf("%s/%s/status/%s", t.Namespace, t.DeviceID, entityKey)
}

// Availability returns the LWT topic.
func (t Topics) Availability() string {
	return fmt.Sprintf("%s/%s/availability", t.Namespace, t.DeviceID)
}

// DiscoveryConfig returns the retained discovery document topic for one entity.
func (t Topics) DiscoveryConfig(component, entityKey string) string {
	return fmt.Sprintf("%s/%s/%s/%s/config", t.DiscoveryPrefix, component, t.DeviceID, entityKey)
}

// Will returns the availability Will for this layout.
func (t Topics) Will() Will {
	return Will{
		Topic:          t.Availability(),
		OnlinePayload:  PayloadOnline,
		OfflinePayload: PayloadOffline,
	}
}
