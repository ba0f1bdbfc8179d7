package viewer

import (
	"math"
	"strconv"
	"strings"
)

// Limits is an inclusive zoom range.
type Limits struct {
	Min, Max float64
}

var (
	ViewerLimits = Limits{Min: 0.25, Max: 5}
	EditorLimits = Limits{Min: 0.3, Max: 5}
)

// Clamp confines z to the range. NaN maps to Min.
func (l Limits) Clamp(z float64) float64 {
	if math.IsNaN(z) {
		return l.Min
	}
	return math.Max(l.Min, math.Min(l.Max, z))
}

// Contains reports whether z lies in the range.
func (l Limits) Contains(z float64) bool {
	return z >= l.Min && z <= l.Max
}

// Default zooms per device class.
const (
	TouchDefaultZoom   = 0.6
	DesktopDefaultZoom = 1.0
)

// DeviceDefault returns the starting zoom when nothing valid is stored.
func DeviceDefault(touch bool) float64 {
	if touch {
		return TouchDefaultZoom
	}
	return DesktopDefaultZoom
}

// KV is the host's string preference storage.
type KV interface {
	String(key string) string
	SetString(key, value string)
}

// ZoomStore persists the zoom level under a single key.
type ZoomStore struct {
	kv     KV
	key    string
	touch  bool
	limits Limits
}

// NewZoomStore creates a store. A nil kv keeps nothing between sessions.
func NewZoomStore(kv KV, key string, touch bool, limits Limits) *ZoomStore {
	return &ZoomStore{kv: kv, key: key, touch: touch, limits: limits}
}

// Load returns the stored zoom, or the device default when the value is
// missing, unparseable or out of range.
func (z *ZoomStore) Load() float64 {
	def := z.limits.Clamp(DeviceDefault(z.touch))
	if z.kv == nil {
		return def
	}
	raw := strings.TrimSpace(z.kv.String(z.key))
	if raw == "" {
		return def
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || !z.limits.Contains(v) {
		return def
	}
	return v
}

// Save stores scale.
func (z *ZoomStore) Save(scale float64) {
	if z.kv == nil {
		return
	}
	z.kv.SetString(z.key, strconv.FormatFloat(scale, 'f', -1, 64))
}
