package flood

import (
	"errors"
	"fmt"

	"github.com/joeycumines/go-catrate"
	"github.com/joeycumines/go-udpflood/loop"
	"github.com/joeycumines/logiface"
)

type (
	// Manager creates and destroys workers, sharing one configuration
	// snapshot and one [Stats].
	Manager struct {
		logger       *logiface.Logger[logiface.Event]
		traceLimiter *catrate.Limiter
		resolver     loop.Resolver
		stats        *Stats
		template     *Template
		hooks        *managerHooks
		udpOptions   []loop.UDPOption
		config       Config
		ports        Range
		sizes        Range
		cpuAffinity  bool
	}

	// for testing purposes
	managerHooks struct {
		initStep func(w *Worker, step string) error
		onSent   func(w *Worker)
	}
)

// NewManager validates cfg, then returns a manager that will record traffic
// in stats.
func NewManager(cfg Config, stats *Stats, opts ...Option) (*Manager, error) {
	if stats == nil {
		return nil, errors.New(`flood: nil stats`)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	template, err := ParseTemplate(cfg.Address)
	if err != nil {
		return nil, err
	}

	o, err := resolveOptions(opts)
	if err != nil {
		return nil, err
	}

	m := &Manager{
		logger:       o.logger,
		traceLimiter: o.traceLimiter,
		resolver:     o.resolver,
		stats:        stats,
		template:     template,
		config:       cfg,
		ports:        cfg.PortRange(),
		sizes:        cfg.SizeRange(),
		cpuAffinity:  o.cpuAffinity,
	}
	if o.sendBuffer > 0 {
		m.udpOptions = append(m.udpOptions, loop.WithSendBuffer(o.sendBuffer))
	}

	return m, nil
}

// Config returns the configuration snapshot.
func (m *Manager) Config() Config {
	return m.config
}

// Stats returns the shared traffic counters.
func (m *Manager) Stats() *Stats {
	return m.stats
}

// CreateInline creates a worker embedded in l, which must not be running on
// another goroutine. The first send cycle is triggered, but nothing happens
// until l runs.
func (m *Manager) CreateInline(l *loop.Loop, index int) (*Worker, error) {
	w := m.newWorker(index, false)
	if err := w.init(l); err != nil {
		w.refs.Release()
		return nil, err
	}
	w.logger.Trace().Log(`worker started`)
	return w, nil
}

// CreateThreaded creates a worker with its own loop, running on a dedicated
// OS thread. It blocks until the worker reports whether it initialized.
func (m *Manager) CreateThreaded(index int) (*Worker, error) {
	w := m.newWorker(index, true)
	w.ready = make(chan error, 1)
	w.done = make(chan struct{})

	// for the goroutine, released when it exits
	w.refs.Retain()
	go w.run()

	if err := <-w.ready; err != nil {
		<-w.done
		w.refs.Release()
		return nil, err
	}

	w.logger.Trace().Log(`worker started`)
	return w, nil
}

// Destroy terminates w, waiting for a threaded worker's thread to exit, then
// releases the manager's reference. An inline worker finishes closing as
// its loop continues, or is drained, see [loop.Loop.Close]. Calling Destroy
// more than once has no effect.
//
// Destroy must not be called from a threaded worker's own loop.
func (m *Manager) Destroy(w *Worker) {
	if w == nil || !w.destroyed.CompareAndSwap(false, true) {
		return
	}

	if err := w.term.Send(); err != nil {
		w.logger.Warning().Err(err).Log(`failed to signal worker termination`)
	}

	if w.threaded {
		<-w.done
	}

	w.logger.Trace().Log(`worker stopped`)

	w.refs.Release()
}

// Start creates the configured number of workers: worker 1 inline on l, the
// rest threaded. If any fails, those already created are destroyed, in
// reverse order.
func (m *Manager) Start(l *loop.Loop) ([]*Worker, error) {
	workers := make([]*Worker, 0, m.config.Workers)
	for index := 1; index <= m.config.Workers; index++ {
		var (
			w   *Worker
			err error
		)
		if index == 1 {
			w, err = m.CreateInline(l, index)
		} else {
			w, err = m.CreateThreaded(index)
		}
		if err != nil {
			for i := len(workers) - 1; i >= 0; i-- {
				m.Destroy(workers[i])
			}
			return nil, err
		}
		workers = append(workers, w)
	}
	return workers, nil
}

// Stop destroys every worker, in order.
func (m *Manager) Stop(workers []*Worker) {
	for _, w := range workers {
		m.Destroy(w)
	}
}

func (m *Manager) newWorker(index int, threaded bool) *Worker {
	w := &Worker{
		manager:  m,
		logger:   m.logger.Clone().Int(`worker`, index).Logger(),
		rand:     newRand(),
		payload:  make([]byte, m.config.SizeMax),
		index:    index,
		threaded: threaded,
	}
	w.refs.free = w.free
	w.refs.n.Store(1)
	return w
}

func (m *Manager) loopOptions(index int) []loop.Option {
	opts := []loop.Option{
		loop.WithName(fmt.Sprintf(`worker-%d`, index)),
		loop.WithLogger(m.logger),
	}
	if m.resolver != nil {
		opts = append(opts, loop.WithResolver(m.resolver))
	}
	return opts
}

func (x *managerHooks) step(w *Worker, step string) error {
	if x == nil || x.initStep == nil {
		return nil
	}
	return x.initStep(w, step)
}

func (x *managerHooks) sent(w *Worker) {
	if x == nil || x.onSent == nil {
		return
	}
	x.onSent(w)
}
