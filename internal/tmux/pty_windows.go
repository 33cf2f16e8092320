//go:build windows

package tmux

import (
	"context"
	"errors"
)

var errNoPTY = errors.New("attach is not supported on windows")

func (m *Manager) Attach(ctx context.Context) error { return errNoPTY }

func (m *Manager) AttachReadOnly(ctx context.Context) error { return errNoPTY }
