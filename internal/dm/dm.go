// SPDX-License-Identifier:Apache-2.0

// Package dm is the per-device EasyMesh data model: radio records, their
// capabilities, and the commit path used when a command finishes.
package dm

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/pkg/errors"
	"sigs.k8s.io/yaml"
)

// CommitTarget scopes a commit.
type CommitTarget int

const (
	// TargetEM commits only the record of the committing engine's radio.
	TargetEM CommitTarget = iota
	// TargetNetwork commits the device record and every radio.
	TargetNetwork
)

func (t CommitTarget) String() string {
	if t == TargetNetwork {
		return "network"
	}
	return "em"
}

// EasyMesh is the data model of one device. It is safe for concurrent
// use; records returned by lookups are shared and must not be mutated.
type EasyMesh struct {
	mu     sync.RWMutex
	device Device
	radios map[MAC]*Radio
	// order keeps radios in insertion order for stable dumps.
	order []MAC
}

type document struct {
	Device Device   `json:"device"`
	Radios []*Radio `json:"radios"`
}

// New returns an empty data model.
func New() *EasyMesh {
	return &EasyMesh{radios: map[MAC]*Radio{}}
}

// Load reads a YAML data model from path.
func Load(path string) (*EasyMesh, error) {
	b, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, errors.Wrapf(err, "reading data model %q", path)
	}
	return Parse(b)
}

// Parse decodes a YAML data model.
func Parse(b []byte) (*EasyMesh, error) {
	var doc document
	if err := yaml.Unmarshal(b, &doc); err != nil {
		return nil, errors.Wrap(err, "could not parse data model")
	}

	ret := New()
	ret.device = doc.Device
	for i, r := range doc.Radios {
		if r == nil {
			return nil, errors.Errorf("radio %d is empty", i)
		}
		if _, ok := ret.radios[r.ID]; ok {
			return nil, errors.Errorf("duplicate radio %s", r.ID)
		}
		ret.putLocked(r)
	}
	return ret, nil
}

// Marshal encodes the model as YAML.
func (d *EasyMesh) Marshal() ([]byte, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	doc := document{Device: d.device}
	for _, id := range d.order {
		doc.Radios = append(doc.Radios, d.radios[id])
	}
	return yaml.Marshal(doc)
}

// Device returns the device record.
func (d *EasyMesh) Device() Device {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.device
}

// SetDevice replaces the device record.
func (d *EasyMesh) SetDevice(dev Device) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.device = dev
}

// SetRadio inserts or replaces a radio record.
func (d *EasyMesh) SetRadio(r *Radio) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.putLocked(r)
}

func (d *EasyMesh) putLocked(r *Radio) {
	if _, ok := d.radios[r.ID]; !ok {
		d.order = append(d.order, r.ID)
	}
	d.radios[r.ID] = r
}

// Radio returns the operational record of radio id, or nil.
func (d *EasyMesh) Radio(id MAC) *RadioInfo {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if r := d.radios[id]; r != nil {
		return r.Info
	}
	return nil
}

// RadioCap returns the capability record of radio id, or nil.
func (d *EasyMesh) RadioCap(id MAC) *RadioCap {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if r := d.radios[id]; r != nil {
		return r.Cap
	}
	return nil
}

// Radios returns the IDs of every radio, in insertion order.
func (d *EasyMesh) Radios() []MAC {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]MAC(nil), d.order...)
}

// Commit copies configuration from src into d. With TargetEM only the
// radio ruid is copied; a radio missing from src is left untouched.
func (d *EasyMesh) Commit(src *EasyMesh, target CommitTarget, ruid MAC) error {
	if src == nil {
		return errors.New("nothing to commit")
	}
	if src == d {
		return nil
	}

	src.mu.RLock()
	defer src.mu.RUnlock()
	d.mu.Lock()
	defer d.mu.Unlock()

	switch target {
	case TargetEM:
		if r := src.radios[ruid]; r != nil {
			d.putLocked(r)
		}
	case TargetNetwork:
		d.device = src.device
		for _, id := range src.order {
			d.putLocked(src.radios[id])
		}
	default:
		return errors.Errorf("unknown commit target %d", target)
	}
	return nil
}

// LogConfig writes a summary of the model to l.
func (d *EasyMesh) LogConfig(l log.Logger) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	level.Info(l).Log("op", "dataModel", "alMAC", d.device.ALMAC, "radios", len(d.order), "msg", "data model loaded")
	for _, id := range d.order {
		r := d.radios[id]
		level.Debug(l).Log("op", "dataModel", "radio", id, "hasInfo", r.Info != nil, "hasCap", r.Cap != nil)
	}
}
