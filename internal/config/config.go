// SPDX-License-Identifier:Apache-2.0

// Package config parses the agent configuration file.
package config // import "github.com/onewifi-go/easymesh/internal/config"

import (
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	"sigs.k8s.io/yaml"

	"github.com/onewifi-go/easymesh/internal/dm"
	"github.com/onewifi-go/easymesh/internal/em"
)

// DefaultTimeoutSeconds is the protocol timeout used when the file
// sets none.
const DefaultTimeoutSeconds = 1

// configFile is the on-disk representation.
type configFile struct {
	Service        string          `json:"service"`
	Profile        string          `json:"profile"`
	ALInterface    interfaceConfig `json:"alInterface"`
	Radios         []radioConfig   `json:"radios"`
	TimeoutSeconds *int            `json:"timeoutSeconds,omitempty"`
	DataModel      string          `json:"dataModel,omitempty"`
	ControllerMAC  string          `json:"controllerMAC,omitempty"`
}

type interfaceConfig struct {
	Name string `json:"name"`
	MAC  string `json:"mac"`
}

type radioConfig struct {
	Name     string `json:"name"`
	MAC      string `json:"mac"`
	FreqBand string `json:"freqBand"`
	OpClass  uint8  `json:"opClass"`
	Channel  uint8  `json:"channel"`
}

// Config is a parsed agent configuration.
type Config struct {
	Role    em.Role
	Profile em.Profile
	// AL is the 1905 abstraction layer interface. The radio whose MAC
	// equals the AL MAC owns the receive socket.
	AL     em.Interface
	Radios []*Radio
	// Timeout is the protocol retransmission timeout.
	Timeout time.Duration
	// DataModel is the path of the data model seed, or empty.
	DataModel string
	// Controller is the controller's AL MAC if known in advance.
	Controller net.HardwareAddr
}

// Radio is one radio an engine is run for.
type Radio struct {
	Interface em.Interface
	FreqBand  dm.FreqBand
	OpClass   uint8
	Channel   uint8
}

// Load reads and parses the configuration at path.
func Load(path string, validate Validate) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "reading config %q", path)
	}
	return Parse(b, validate)
}

// Parse parses a YAML configuration and runs validate against it.
func Parse(b []byte, validate Validate) (*Config, error) {
	var raw configFile
	if err := yaml.Unmarshal(b, &raw); err != nil {
		return nil, errors.Wrap(err, "could not parse config")
	}
	if validate != nil {
		if err := validate(&raw); err != nil {
			return nil, err
		}
	}

	ret := &Config{
		Timeout:   DefaultTimeoutSeconds * time.Second,
		DataModel: raw.DataModel,
	}

	var err error
	if ret.Role, err = parseRole(raw.Service); err != nil {
		return nil, err
	}
	if ret.Profile, err = parseProfile(raw.Profile); err != nil {
		return nil, err
	}
	if ret.AL, err = parseInterface("alInterface", raw.ALInterface); err != nil {
		return nil, err
	}
	if raw.TimeoutSeconds != nil {
		if *raw.TimeoutSeconds <= 0 {
			return nil, fmt.Errorf("invalid timeoutSeconds %d, must be positive", *raw.TimeoutSeconds)
		}
		ret.Timeout = time.Duration(*raw.TimeoutSeconds) * time.Second
	}
	if raw.ControllerMAC != "" {
		mac, err := net.ParseMAC(raw.ControllerMAC)
		if err != nil || len(mac) != 6 {
			return nil, fmt.Errorf("invalid controllerMAC %q", raw.ControllerMAC)
		}
		ret.Controller = mac
	}

	seen := map[dm.MAC]string{}
	for i, r := range raw.Radios {
		radio, err := parseRadio(r)
		if err != nil {
			return nil, errors.Wrapf(err, "parsing radio %d", i)
		}
		if prev, ok := seen[radio.Interface.MAC]; ok {
			return nil, fmt.Errorf("radios %q and %q share MAC %s", prev, radio.Interface.Name, radio.Interface.MAC)
		}
		seen[radio.Interface.MAC] = radio.Interface.Name
		ret.Radios = append(ret.Radios, radio)
	}

	return ret, nil
}

func parseRadio(r radioConfig) (*Radio, error) {
	intf, err := parseInterface("radio", interfaceConfig{Name: r.Name, MAC: r.MAC})
	if err != nil {
		return nil, err
	}
	band, err := ParseFreqBand(r.FreqBand)
	if err != nil {
		return nil, err
	}
	return &Radio{
		Interface: intf,
		FreqBand:  band,
		OpClass:   r.OpClass,
		Channel:   r.Channel,
	}, nil
}

func parseInterface(field string, c interfaceConfig) (em.Interface, error) {
	if c.Name == "" {
		return em.Interface{}, fmt.Errorf("%s: missing interface name", field)
	}
	mac, err := dm.ParseMAC(c.MAC)
	if err != nil {
		return em.Interface{}, errors.Wrapf(err, "%s %q: invalid mac", field, c.Name)
	}
	return em.Interface{Name: c.Name, MAC: mac}, nil
}

func parseRole(s string) (em.Role, error) {
	switch strings.ToLower(s) {
	case "", "agent":
		return em.RoleAgent, nil
	case "controller":
		return em.RoleController, nil
	default:
		return 0, fmt.Errorf("unknown service %q, must be agent or controller", s)
	}
}

func parseProfile(s string) (em.Profile, error) {
	if s == "" {
		return em.Profile2, nil
	}
	for _, p := range []em.Profile{em.Profile1, em.Profile2, em.Profile3} {
		if s == p.String() {
			return p, nil
		}
	}
	return 0, fmt.Errorf("unknown profile %q", s)
}

// ParseFreqBand parses a band name as written in the config file:
// 2.4g, 5g or 6g.
func ParseFreqBand(s string) (dm.FreqBand, error) {
	switch strings.ToLower(s) {
	case "2.4g", "2g":
		return dm.Band2G, nil
	case "5g":
		return dm.Band5G, nil
	case "6g":
		return dm.Band6G, nil
	default:
		return 0, fmt.Errorf("unknown frequency band %q", s)
	}
}

// Engines returns the interfaces an engine is run for, the AL first.
// A radio sharing the AL MAC becomes the AL engine; otherwise the AL
// interface gets an engine of its own.
func (c *Config) Engines() []*Radio {
	al := &Radio{Interface: c.AL}
	var rest []*Radio
	for _, r := range c.Radios {
		if r.Interface.MAC == c.AL.MAC {
			al = r
			continue
		}
		rest = append(rest, r)
	}
	return append([]*Radio{al}, rest...)
}
