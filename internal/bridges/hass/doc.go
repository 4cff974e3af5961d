// Package hass bridges the panel to Home Assistant over MQTT discovery.
//
// On every broker connect the bridge subscribes to
// <namespace>/<device>/control, publishes one retained discovery document
// per entity under <discovery_prefix>/<component>/<device>/<key>/config
// (once per device and firmware version), and publishes every entity's
// current value retained under <namespace>/<device>/status/<key>.
//
// Control messages are plain text:
//
//	SCREEN_ON  SCREEN_OFF  KIOSK_ON  KIOSK_OFF  RELOAD  ZOOM_IN  ZOOM_OUT
//	BRIGHTNESS:75  VOLUME:40  PLAY_URL:http://...  MEDIA_PLAY  MEDIA_PAUSE  MEDIA_STOP
package hass
