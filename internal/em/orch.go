// SPDX-License-Identifier:Apache-2.0

package em

import (
	"github.com/go-kit/log/level"

	"github.com/onewifi-go/easymesh/internal/command"
	"github.com/onewifi-go/easymesh/internal/dm"
)

// SubmitCommand makes cmd the active command, replacing any previous
// one, puts orchestration in progress and moves the protocol state to
// the start of the command's exchange.
func (e *Engine) SubmitCommand(cmd *command.Command) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.cmd = cmd
	e.orch = OrchInProgress
	if s, ok := initialStates[cmd.Type]; ok {
		e.setStateLocked(s)
	}

	stats.Command(e.radio, cmd.Type)
	level.Info(e.logger).Log("op", "submit", "command", cmd, "state", e.state, "msg", "orchestrating command")
}

// SetOrchState moves orchestration to s. Reaching finished commits the
// active command's configuration for this radio into the data model;
// a cancel is handled as a finish.
func (e *Engine) SetOrchState(s OrchState) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if s == OrchCancelled {
		level.Warn(e.logger).Log("op", "setOrchState", "command", e.cmd, "msg", "command cancelled, committing its configuration as finished")
		s = OrchFinished
	}
	if s == OrchFinished {
		e.commitLocked()
	}
	e.orch = s
}

func (e *Engine) commitLocked() {
	if e.cmd == nil {
		level.Error(e.logger).Log("op", "commit", "error", ErrNoCommand, "msg", "nothing to commit")
		return
	}

	stats.Commit(e.radio)
	if err := e.dm.Commit(e.cmd.Config, dm.TargetEM, e.id.Radio.MAC); err != nil {
		level.Error(e.logger).Log("op", "commit", "command", e.cmd, "error", err, "msg", "failed to commit configuration")
		return
	}
	level.Info(e.logger).Log("op", "commit", "command", e.cmd, "msg", "configuration committed")
}
