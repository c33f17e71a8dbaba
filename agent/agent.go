// SPDX-License-Identifier:Apache-2.0

package main

import (
	"fmt"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"golang.org/x/sync/errgroup"

	"github.com/onewifi-go/easymesh/internal/command"
	"github.com/onewifi-go/easymesh/internal/config"
	"github.com/onewifi-go/easymesh/internal/dm"
	"github.com/onewifi-go/easymesh/internal/em"
	"github.com/onewifi-go/easymesh/internal/em/phases"
)

// agent runs one engine per configured interface. The first engine is
// the AL engine.
type agent struct {
	logger  log.Logger
	cfg     *config.Config
	radios  []*config.Radio
	engines []*em.Engine
}

func newAgent(l log.Logger, cfg *config.Config, model *dm.EasyMesh, mods ...func(*em.Config)) (*agent, error) {
	a := &agent{
		logger: l,
		cfg:    cfg,
		radios: cfg.Engines(),
	}
	for _, r := range a.radios {
		ecfg := em.Config{
			Identity: em.Identity{
				Radio:   r.Interface,
				ALMAC:   cfg.AL.MAC,
				Role:    cfg.Role,
				Profile: cfg.Profile,
			},
			DataModel: model,
			Phases:    phases.Registrations(),
			Timeout:   cfg.Timeout,
		}
		for _, mod := range mods {
			mod(&ecfg)
		}
		e, err := em.New(l, ecfg)
		if err != nil {
			a.stop()
			return nil, fmt.Errorf("creating engine for %q: %w", r.Interface.Name, err)
		}
		a.engines = append(a.engines, e)
	}
	return a, nil
}

// start brings every engine up concurrently, then kicks off device
// onboarding on the AL engine of an agent.
func (a *agent) start() error {
	var g errgroup.Group
	for _, e := range a.engines {
		e := e
		g.Go(e.Init)
	}
	if err := g.Wait(); err != nil {
		return err
	}

	if a.cfg.Role != em.RoleAgent {
		level.Info(a.logger).Log("op", "startup", "role", a.cfg.Role, "engines", len(a.engines), "msg", "engines started")
		return nil
	}
	cmd := devInit(a.cfg, a.radios[0])
	a.engines[0].SubmitCommand(cmd)
	level.Info(a.logger).Log("op", "startup", "engines", len(a.engines), "command", cmd, "msg", "engines started, onboarding")
	return nil
}

// wait blocks until stopCh is closed or an engine's worker exits on its
// own. It reports whether an engine failed.
func (a *agent) wait(stopCh <-chan struct{}) bool {
	exited := make(chan int, len(a.engines))
	for i, e := range a.engines {
		i, e := i, e
		go func() {
			<-e.Done()
			exited <- i
		}()
	}

	select {
	case <-stopCh:
		return false
	case i := <-exited:
		level.Error(a.logger).Log("op", "supervise", "radio", a.radios[i].Interface.Name, "error", a.engines[i].Err(), "msg", "engine stopped unexpectedly")
		return true
	}
}

func (a *agent) stop() {
	for i, e := range a.engines {
		if err := e.Deinit(); err != nil {
			level.Error(a.logger).Log("op", "shutdown", "radio", a.radios[i].Interface.Name, "error", err, "msg", "failed to stop engine")
		}
	}
}

// devInit is the onboarding command for the AL radio.
func devInit(cfg *config.Config, r *config.Radio) *command.Command {
	cmd := command.New(command.DevInit, command.Interface{Name: cfg.AL.Name, MAC: cfg.AL.MAC.HardwareAddr()})
	cmd.Peer = cfg.Controller
	cmd.FreqBand = r.FreqBand
	cmd.OpClass = r.OpClass
	cmd.Channel = r.Channel
	return cmd
}

// loadDataModel reads the configured seed, or starts empty, and makes
// sure the device record carries the AL MAC.
func loadDataModel(cfg *config.Config) (*dm.EasyMesh, error) {
	model := dm.New()
	if cfg.DataModel != "" {
		var err error
		if model, err = dm.Load(cfg.DataModel); err != nil {
			return nil, err
		}
	}
	dev := model.Device()
	if dev.ALMAC == (dm.MAC{}) {
		dev.ALMAC = cfg.AL.MAC
		model.SetDevice(dev)
	}
	return model, nil
}
