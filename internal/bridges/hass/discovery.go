package hass

import (
	"encoding/json"

	"github.com/nerrad567/panelnode/internal/entity"
	"github.com/nerrad567/panelnode/internal/infrastructure/mqtt"
)

// Status payloads for switches.
const (
	stateOn  = "ON"
	stateOff = "OFF"
)

// binding maps a catalog entity to its discovery component and the
// topic segment ("entity key") used for its status and discovery topics.
type binding struct {
	entityID  string
	key       string
	component string

	payloadOn  string
	payloadOff string
	press      string
}

// bindings lists every entity the bridge announces, in catalog order.
var bindings = []binding{
	{entityID: entity.IDScreen, key: "screen_state", component: "switch", payloadOn: "SCREEN_ON", payloadOff: "SCREEN_OFF"},
	{entityID: entity.IDKiosk, key: "kiosk", component: "switch", payloadOn: "KIOSK_ON", payloadOff: "KIOSK_OFF"},
	{entityID: entity.IDBacklight, key: "brightness", component: "number"},
	{entityID: entity.IDBattery, key: "battery", component: "sensor"},
	{entityID: entity.IDStorage, key: "storage", component: "sensor"},
	{entityID: entity.IDRAM, key: "ram", component: "sensor"},
	{entityID: entity.IDUptime, key: "uptime", component: "sensor"},
	{entityID: entity.IDReload, key: "reload", component: "button", press: "RELOAD"},
	{entityID: entity.IDZoomIn, key: "zoom_in", component: "button", press: "ZOOM_IN"},
	{entityID: entity.IDZoomOut, key: "zoom_out", component: "button", press: "ZOOM_OUT"},
	{entityID: entity.IDMedia, key: "media", component: "sensor"},
}

func bindingFor(entityID string) (binding, bool) {
	for _, b := range bindings {
		if b.entityID == entityID {
			return b, true
		}
	}
	return binding{}, false
}

// DeviceInfo is the device block shared by every discovery document.
type DeviceInfo struct {
	ID           string
	Name         string
	Model        string
	Manufacturer string
	Version      string
}

type deviceDoc struct {
	Identifiers  []string `json:"identifiers"`
	Name         string   `json:"name"`
	Model        string   `json:"model,omitempty"`
	Manufacturer string   `json:"manufacturer,omitempty"`
	SWVersion    string   `json:"sw_version,omitempty"`
}

// discoveryDoc is the retained config document for one entity.
type discoveryDoc struct {
	Name              string    `json:"name"`
	UniqueID          string    `json:"unique_id"`
	ObjectID          string    `json:"object_id"`
	Device            deviceDoc `json:"device"`
	AvailabilityTopic string    `json:"availability_topic"`

	StateTopic      string `json:"state_topic,omitempty"`
	CommandTopic    string `json:"command_topic,omitempty"`
	CommandTemplate string `json:"command_template,omitempty"`

	PayloadOn    string `json:"payload_on,omitempty"`
	PayloadOff   string `json:"payload_off,omitempty"`
	StateOn      string `json:"state_on,omitempty"`
	StateOff     string `json:"state_off,omitempty"`
	PayloadPress string `json:"payload_press,omitempty"`

	Min  *float64 `json:"min,omitempty"`
	Max  *float64 `json:"max,omitempty"`
	Step float64  `json:"step,omitempty"`
	Mode string   `json:"mode,omitempty"`

	UnitOfMeasurement string `json:"unit_of_measurement,omitempty"`
	DeviceClass       string `json:"device_class,omitempty"`
	StateClass        string `json:"state_class,omitempty"`
	Icon              string `json:"icon,omitempty"`
}

// discoveryDocument builds the document for one bound entity.
func discoveryDocument(dev DeviceInfo, topics mqtt.Topics, b binding, e entity.Entity) discoveryDoc {
	doc := discoveryDoc{
		Name:     e.Name,
		UniqueID: dev.ID + "_" + b.key,
		ObjectID: dev.ID + "_" + b.key,
		Device: deviceDoc{
			Identifiers:  []string{dev.ID},
			Name:         dev.Name,
			Model:        dev.Model,
			Manufacturer: dev.Manufacturer,
			SWVersion:    dev.Version,
		},
		AvailabilityTopic: topics.Availability(),
		Icon:              e.Icon,
	}

	switch b.component {
	case "switch":
		doc.CommandTopic = topics.Control()
		doc.StateTopic = topics.Status(b.key)
		doc.PayloadOn = b.payloadOn
		doc.PayloadOff = b.payloadOff
		doc.StateOn = stateOn
		doc.StateOff = stateOff

	case "number":
		lo, hi := 0.0, 100.0
		doc.CommandTopic = topics.Control()
		doc.CommandTemplate = prefixBrightness + "{{ value | int }}"
		doc.StateTopic = topics.Status(b.key)
		doc.Min = &lo
		doc.Max = &hi
		doc.Step = 1
		doc.Mode = "slider"
		doc.UnitOfMeasurement = "%"
		if doc.Icon == "" {
			doc.Icon = "mdi:brightness-6"
		}

	case "sensor":
		doc.StateTopic = topics.Status(b.key)
		doc.UnitOfMeasurement = e.Unit
		doc.DeviceClass = e.DeviceClass
		doc.StateClass = e.StateClass
		if e.Kind == entity.KindMediaPlayer && doc.Icon == "" {
			doc.Icon = "mdi:speaker"
		}

	case "button":
		doc.CommandTopic = topics.Control()
		doc.PayloadPress = b.press
	}

	return doc
}

func (d discoveryDoc) marshal() ([]byte, error) {
	return json.Marshal(d)
}
