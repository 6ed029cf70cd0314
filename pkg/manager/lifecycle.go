package manager

import (
	"github.com/rs/zerolog/log"

	"github.com/urmzd/zwcore/pkg/notify"
)

// Start creates the Manager, registers fn with ctx and adds the driver for
// endpoint. On any failure everything is rolled back and the process is
// left as if Start had never been called.
func Start(opts Options, endpoint string, fn notify.WatcherFunc, ctx any, options ...Option) (*Manager, error) {
	m, err := Create(opts, options...)
	if err != nil {
		return nil, err
	}
	if fn != nil {
		if err := m.AddWatcher(fn, ctx); err != nil {
			m.rollback()
			return nil, err
		}
	}
	if err := m.AddDriver(endpoint); err != nil {
		m.rollback()
		return nil, err
	}
	return m, nil
}

// Stop releases a Manager returned by Start. A second Stop returns
// ErrNotInitialized.
func (m *Manager) Stop() error {
	return m.Destroy()
}

func (m *Manager) rollback() {
	if err := m.Destroy(); err != nil {
		log.Warn().Err(err).Msg("Rolling back start")
	}
}
