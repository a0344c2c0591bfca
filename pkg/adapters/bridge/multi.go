package bridge

import (
	"context"
	"errors"
	"fmt"

	"github.com/aescanero/dapipe/pkg/domain"
	"github.com/aescanero/dapipe/pkg/ports"
)

// Multi sends messages through several bridges. Every bridge is attempted;
// failures are joined into one error wrapping domain.ErrBridge.
type Multi struct {
	names   []string
	bridges []ports.Bridge
}

// NewMulti creates an empty fan-out bridge
func NewMulti() *Multi {
	return &Multi{}
}

// Add registers a named bridge
func (m *Multi) Add(name string, b ports.Bridge) *Multi {
	m.names = append(m.names, name)
	m.bridges = append(m.bridges, b)
	return m
}

// Len returns the number of registered bridges
func (m *Multi) Len() int {
	return len(m.bridges)
}

// Send delivers msg to all bridges
func (m *Multi) Send(ctx context.Context, msg domain.Message) error {
	var errs []error
	for i, b := range m.bridges {
		if err := b.Send(ctx, msg); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", m.names[i], err))
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", domain.ErrBridge, errors.Join(errs...))
}
