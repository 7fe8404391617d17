package ops

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// CheckMunge verifies munge is usable: the munged unit must be active
// and a credential minted with munge must decode through unmunge. The
// round trip proves the local key works.
func (m *Manager) CheckMunge(ctx context.Context) error {
	unit := m.cfg.Service.MungeUnit
	active, err := m.unitActive(ctx, unit)
	if err != nil {
		return err
	}
	if !active {
		return fmt.Errorf("%s is not active", unit)
	}

	m.log.Debug("testing if munge is working correctly")
	cred, err := exec.CommandContext(ctx, m.mungeBin, "-n").Output()
	if err != nil {
		return fmt.Errorf("munge: %w", err)
	}

	unmunge := exec.CommandContext(ctx, m.unmungeBin)
	unmunge.Stdin = bytes.NewReader(cred)
	out, err := unmunge.Output()
	if err != nil {
		return fmt.Errorf("unmunge: %w", err)
	}
	if !strings.Contains(string(out), "Success") {
		return fmt.Errorf("munge key is not properly configured: %s", strings.TrimSpace(string(out)))
	}

	m.log.Debug("munge working as expected")
	return nil
}
