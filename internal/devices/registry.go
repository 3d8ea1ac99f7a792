// Package devices tracks the video inputs the capture source offers and
// which one is current.
package devices

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/smazurov/camalbum/internal/api/models"
	"github.com/smazurov/camalbum/internal/events"
	"github.com/smazurov/camalbum/internal/logging"
	"github.com/smazurov/camalbum/internal/media"
	"github.com/smazurov/camalbum/internal/metrics"
)

// ErrUnknownDevice is returned when selecting a device that is not listed.
var ErrUnknownDevice = errors.New("unknown device")

// Device is a video input with optional V4L2 details.
type Device struct {
	ID    string
	Label string
	Kind  string
	Details
}

// Details are host level facts about a device.
type Details struct {
	Path         string
	StableID     string
	Driver       string
	Capabilities []string
}

// Describer looks up host details for a device reported by the source.
type Describer interface {
	Describe(d media.DeviceInfo) (Details, bool)
	Formats(path string) ([]models.FormatInfo, error)
}

// EventPublisher publishes device events.
type EventPublisher interface {
	Publish(ev events.Event)
}

// Selection is delivered to subscribers when the current device changes.
type Selection struct {
	Device   Device
	Previous string
}

// Registry lists devices and remembers the current one.
type Registry struct {
	source    media.Source
	describer Describer
	publisher EventPublisher
	logger    *slog.Logger

	mu       sync.Mutex
	devices  []Device
	selected string
	subs     map[int]func(Selection)
	nextSub  int
}

// Option configures a Registry.
type Option func(*Registry)

// WithDescriber enriches devices with host details.
func WithDescriber(d Describer) Option {
	return func(r *Registry) { r.describer = d }
}

// WithPublisher publishes discovery and selection events.
func WithPublisher(p EventPublisher) Option {
	return func(r *Registry) { r.publisher = p }
}

// NewRegistry creates a registry over source.
func NewRegistry(source media.Source, opts ...Option) *Registry {
	r := &Registry{
		source: source,
		logger: logging.GetLogger("devices"),
		subs:   make(map[int]func(Selection)),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Refresh enumerates the source. The first device becomes current when none
// is selected or the selected one disappeared.
func (r *Registry) Refresh(ctx context.Context) ([]Device, error) {
	infos, err := r.source.Devices(ctx)
	if err != nil {
		return nil, fmt.Errorf("enumerate devices: %w", err)
	}

	video := media.VideoDevices(infos)
	list := make([]Device, len(video))
	for i, info := range video {
		d := Device{ID: info.ID, Label: info.Label, Kind: info.Kind}
		if d.Label == "" {
			d.Label = "Camera " + strconv.Itoa(i+1)
		}
		if r.describer != nil {
			if det, ok := r.describer.Describe(info); ok {
				d.Details = det
			}
		}
		list[i] = d
	}

	r.mu.Lock()
	added, removed := diff(r.devices, list)
	r.devices = list
	var sel *Selection
	if len(list) > 0 && indexOf(list, r.selected) < 0 {
		sel = &Selection{Device: list[0], Previous: r.selected}
		r.selected = list[0].ID
	} else if len(list) == 0 && r.selected != "" {
		r.selected = ""
	}
	subs := r.subscribersLocked()
	r.mu.Unlock()

	metrics.SetDeviceCount(len(list))
	for _, d := range added {
		r.logger.Info("Device added", "device_id", d.ID, "label", d.Label, "path", d.Path)
		r.publishDiscovery("added", d)
	}
	for _, d := range removed {
		r.logger.Info("Device removed", "device_id", d.ID, "label", d.Label)
		r.publishDiscovery("removed", d)
	}
	if sel != nil {
		r.announce(*sel, subs)
	}

	return slices.Clone(list), nil
}

// List returns the devices seen by the last Refresh.
func (r *Registry) List() []Device {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.devices)
}

// Get returns a listed device by id.
func (r *Registry) Get(id string) (Device, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if i := indexOf(r.devices, id); i >= 0 {
		return r.devices[i], true
	}
	return Device{}, false
}

// Selected returns the current device.
func (r *Registry) Selected() (Device, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if i := indexOf(r.devices, r.selected); i >= 0 {
		return r.devices[i], true
	}
	return Device{}, false
}

// Select makes id the current device. Subscribers are notified only when
// the selection changes.
func (r *Registry) Select(id string) error {
	r.mu.Lock()
	i := indexOf(r.devices, id)
	if i < 0 {
		r.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownDevice, id)
	}
	if r.selected == id {
		r.mu.Unlock()
		return nil
	}
	sel := Selection{Device: r.devices[i], Previous: r.selected}
	r.selected = id
	subs := r.subscribersLocked()
	r.mu.Unlock()

	r.announce(sel, subs)
	return nil
}

// Subscribe registers fn for selection changes and returns a function that
// removes it.
func (r *Registry) Subscribe(fn func(Selection)) func() {
	r.mu.Lock()
	id := r.nextSub
	r.nextSub++
	r.subs[id] = fn
	r.mu.Unlock()

	return func() {
		r.mu.Lock()
		delete(r.subs, id)
		r.mu.Unlock()
	}
}

// Formats lists the formats of a device. It needs a describer that knows the
// device's V4L2 node.
func (r *Registry) Formats(id string) ([]models.FormatInfo, error) {
	d, ok := r.Get(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownDevice, id)
	}
	if r.describer == nil || d.Path == "" {
		return nil, fmt.Errorf("no format information for %s", id)
	}
	return r.describer.Formats(d.Path)
}

// ToAPI converts a device to its API model.
func (r *Registry) ToAPI(d Device) models.DeviceInfo {
	r.mu.Lock()
	selected := r.selected
	r.mu.Unlock()
	return toModel(d, d.ID == selected)
}

func toModel(d Device, selected bool) models.DeviceInfo {
	return models.DeviceInfo{
		DeviceID:     d.ID,
		Label:        d.Label,
		Kind:         d.Kind,
		DevicePath:   d.Path,
		StableID:     d.StableID,
		Driver:       d.Driver,
		Capabilities: d.Capabilities,
		Selected:     selected,
	}
}

func (r *Registry) subscribersLocked() []func(Selection) {
	ids := make([]int, 0, len(r.subs))
	for id := range r.subs {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	out := make([]func(Selection), len(ids))
	for i, id := range ids {
		out[i] = r.subs[id]
	}
	return out
}

func (r *Registry) announce(sel Selection, subs []func(Selection)) {
	r.logger.Info("Device selected", "device_id", sel.Device.ID, "label", sel.Device.Label, "previous", sel.Previous)
	if r.publisher != nil {
		r.publisher.Publish(events.DeviceSelectedEvent{
			DeviceID:  sel.Device.ID,
			Previous:  sel.Previous,
			Timestamp: time.Now().Format(time.RFC3339),
		})
	}
	for _, fn := range subs {
		fn(sel)
	}
}

func (r *Registry) publishDiscovery(action string, d Device) {
	if r.publisher == nil {
		return
	}
	r.publisher.Publish(events.DeviceDiscoveryEvent{
		DeviceInfo: toModel(d, false),
		Action:     action,
		Timestamp:  time.Now().Format(time.RFC3339),
	})
}

func indexOf(list []Device, id string) int {
	if id == "" {
		return -1
	}
	return slices.IndexFunc(list, func(d Device) bool { return d.ID == id })
}

func diff(prev, next []Device) (added, removed []Device) {
	for _, d := range next {
		if indexOf(prev, d.ID) < 0 {
			added = append(added, d)
		}
	}
	for _, d := range prev {
		if indexOf(next, d.ID) < 0 {
			removed = append(removed, d)
		}
	}
	return added, removed
}
