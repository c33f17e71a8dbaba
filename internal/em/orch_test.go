// SPDX-License-Identifier:Apache-2.0

package em

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/onewifi-go/easymesh/internal/command"
	"github.com/onewifi-go/easymesh/internal/dm"
)

func TestSubmitCommand(t *testing.T) {
	tests := []struct {
		cmd  command.Type
		want State
	}{
		{command.StaList, StateTopologyNotify},
		{command.DevInit, StateConfigNone},
		{command.CfgRenew, StateAutoconfigRenewPending},
		{command.StartDPP, StateProvNone},
		{command.APCapQuery, StateAPCapReport},
		{command.ClientCapQuery, StateClientCapReport},
		// Unmapped commands keep whatever state the engine was in.
		{command.SetSSID, StateWscM2Pending},
		{command.None, StateWscM2Pending},
	}
	for _, tc := range tests {
		t.Run(tc.cmd.String(), func(t *testing.T) {
			e := newTestEngine(t, RoleAgent, radioMAC, nil)
			e.SetState(StateWscM2Pending)

			cmd := command.New(tc.cmd, command.Interface{Name: "al0"})
			e.SubmitCommand(cmd)

			if e.OrchState() != OrchInProgress {
				t.Errorf("orchestration %s, want in-progress", e.OrchState())
			}
			if e.State() != tc.want {
				t.Errorf("state %s, want %s", e.State(), tc.want)
			}
			if e.Command() != cmd {
				t.Error("submitted command is not the active one")
			}
		})
	}
}

func TestSubmitReplacesActiveCommand(t *testing.T) {
	e := newTestEngine(t, RoleAgent, radioMAC, nil)
	first := command.New(command.DevInit, command.Interface{Name: "al0"})
	second := command.New(command.APCapQuery, command.Interface{Name: "al0"})

	e.SubmitCommand(first)
	e.SetOrchState(OrchFinished)
	e.SubmitCommand(second)

	if e.Command() != second || e.OrchState() != OrchInProgress {
		t.Errorf("active %s in %s, want %s in progress", e.Command(), e.OrchState(), second)
	}
}

func TestSetOrchStateCommit(t *testing.T) {
	tests := []struct {
		desc        string
		set         OrchState
		wantOrch    OrchState
		wantCommits int
	}{
		{desc: "finished", set: OrchFinished, wantOrch: OrchFinished, wantCommits: 1},
		{desc: "cancelled", set: OrchCancelled, wantOrch: OrchFinished, wantCommits: 1},
		{desc: "idle", set: OrchIdle, wantOrch: OrchIdle},
		{desc: "in progress", set: OrchInProgress, wantOrch: OrchInProgress},
	}
	for _, tc := range tests {
		t.Run(tc.desc, func(t *testing.T) {
			e := newTestEngine(t, RoleAgent, radioMAC, nil)
			e.SubmitCommand(command.New(command.DevInit, command.Interface{Name: "al0"}))

			before := testutil.ToFloat64(stats.commits.WithLabelValues(radioMAC.String()))
			e.SetOrchState(tc.set)

			if e.OrchState() != tc.wantOrch {
				t.Errorf("orchestration %s, want %s", e.OrchState(), tc.wantOrch)
			}
			if got := e.dm.count(); got != tc.wantCommits {
				t.Errorf("%d commits, want %d", got, tc.wantCommits)
			}
			after := testutil.ToFloat64(stats.commits.WithLabelValues(radioMAC.String()))
			if int(after-before) != tc.wantCommits {
				t.Errorf("commit counter moved by %v, want %d", after-before, tc.wantCommits)
			}
		})
	}
}

func TestCommitScopedToOwnRadio(t *testing.T) {
	e := newTestEngine(t, RoleAgent, radioMAC, nil)
	e.SubmitCommand(command.New(command.CfgRenew, command.Interface{Name: "al0"}))
	e.SetOrchState(OrchFinished)
	e.SetOrchState(OrchCancelled)

	if diff := cmp.Diff([]dm.CommitTarget{dm.TargetEM, dm.TargetEM}, e.dm.commits); diff != "" {
		t.Errorf("unexpected commit targets (-want +got)\n%s", diff)
	}
	if diff := cmp.Diff([]dm.MAC{radioMAC, radioMAC}, e.dm.ruids); diff != "" {
		t.Errorf("unexpected committed radios (-want +got)\n%s", diff)
	}
}

func TestFinishWithoutCommand(t *testing.T) {
	e := newTestEngine(t, RoleAgent, radioMAC, nil)
	e.SetOrchState(OrchFinished)
	if e.dm.count() != 0 {
		t.Error("committed without an active command")
	}
	if e.OrchState() != OrchFinished {
		t.Errorf("orchestration %s, want finished", e.OrchState())
	}
}

func TestCommitIntoDataModel(t *testing.T) {
	model := dm.New()
	e := newTestEngine(t, RoleAgent, radioMAC, func(c *Config) { c.DataModel = model })

	cmd := command.New(command.DevInit, command.Interface{Name: "al0"})
	cmd.Config.SetRadio(&dm.Radio{ID: radioMAC, Info: &dm.RadioInfo{Name: "configured"}})
	cmd.Config.SetRadio(&dm.Radio{ID: dm.MAC{2, 9, 9, 9, 9, 9}, Info: &dm.RadioInfo{Name: "other"}})
	e.SubmitCommand(cmd)
	e.SetOrchState(OrchFinished)

	if info := model.Radio(radioMAC); info == nil || info.Name != "configured" {
		t.Errorf("own radio not committed: %+v", info)
	}
	if model.Radio(dm.MAC{2, 9, 9, 9, 9, 9}) != nil {
		t.Error("commit leaked another radio's record")
	}
}
