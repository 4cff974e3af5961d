package entity

// Entity ids of the default catalog. Other packages refer to entities by
// these ids; keys are only meaningful on the native API wire.
const (
	IDScreen    = "tablet_screen"
	IDKiosk     = "kiosk_mode"
	IDBacklight = "tablet_backlight"
	IDBattery   = "tablet_battery"
	IDStorage   = "tablet_storage"
	IDRAM       = "tablet_ram"
	IDUptime    = "tablet_uptime"
	IDReload    = "tablet_reload"
	IDZoomIn    = "tablet_zoom_in"
	IDZoomOut   = "tablet_zoom_out"
	IDMedia     = "tablet_media"
)

// DefaultCatalog returns the panel's entity set in listing order. Keys are
// fixed so a controller that has paired with the panel keeps its entity
// history across restarts and upgrades.
func DefaultCatalog(deviceName string) []Entity {
	return []Entity{
		{ID: IDScreen, Key: 101, Kind: KindSwitch, Name: "Screen"},
		{ID: IDKiosk, Key: 206, Kind: KindSwitch, Name: "Kiosk Mode", Icon: "mdi:lock"},
		{ID: IDBacklight, Key: 200, Kind: KindLight, Name: "Backlight",
			ColorModes: []ColorMode{ColorModeBrightness}},
		{ID: IDBattery, Key: 201, Kind: KindSensor, Name: "Battery", Unit: "%",
			DeviceClass: "battery", StateClass: "measurement"},
		{ID: IDStorage, Key: 202, Kind: KindSensor, Name: "Storage Used", Unit: "%",
			Icon: "mdi:database", StateClass: "measurement"},
		{ID: IDRAM, Key: 203, Kind: KindSensor, Name: "RAM Used", Unit: "%",
			Icon: "mdi:memory", StateClass: "measurement"},
		{ID: IDUptime, Key: 204, Kind: KindSensor, Name: "Uptime", Unit: "min",
			Icon: "mdi:timer-outline", StateClass: "total_increasing"},
		{ID: IDReload, Key: 205, Kind: KindButton, Name: "Reload Dashboard", Icon: "mdi:refresh"},
		{ID: IDZoomIn, Key: 207, Kind: KindButton, Name: "Zoom In", Icon: "mdi:magnify-plus"},
		{ID: IDZoomOut, Key: 208, Kind: KindButton, Name: "Zoom Out", Icon: "mdi:magnify-minus"},
		{ID: IDMedia, Key: 300, Kind: KindMediaPlayer, Name: deviceName + " Speaker",
			SupportsPause: true, FeatureFlags: defaultMediaFeatureMask},
	}
}

// NewDefaultRegistry builds a registry over DefaultCatalog.
func NewDefaultRegistry(deviceName string) (*Registry, error) {
	return NewRegistry(DefaultCatalog(deviceName)...)
}
