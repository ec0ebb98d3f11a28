package cmd

import (
	"fmt"
	"io"
	"log"
	"os"
	"sync"

	"github.com/sarchlab/cachesim/datarecording"
	"github.com/sarchlab/cachesim/mem/cache"
	"github.com/sarchlab/cachesim/mem/mem"
	"github.com/sarchlab/cachesim/mem/trace"
	"github.com/sarchlab/cachesim/monitoring"
	"github.com/sarchlab/cachesim/sim"
)

// simOptions are the options shared by the commands that replay traces.
type simOptions struct {
	tracePath   string
	uniqueIDs   bool
	recordName  string
	traceLog    string
	monitor     bool
	monitorPort int
	openBrowser bool
}

// simulation replays one trace against a group of caches. Every cache runs on
// its own goroutine. The caches share nothing but the read-only trace.
type simulation struct {
	options  simOptions
	builders []namedBuilder

	caches   []*cache.Cache
	reqs     []*mem.AccessReq
	tracer   *trace.DBTracer
	recorder datarecording.DataRecorder
	monitor  *monitoring.Monitor
	cleanups []func() error
}

func newSimulation(options simOptions, builders []namedBuilder) *simulation {
	return &simulation{
		options:  options,
		builders: builders,
	}
}

// run executes the whole simulation and returns the caches in the order of
// the builders.
func (s *simulation) run() (caches []*cache.Cache, err error) {
	defer func() {
		cleanupErr := s.cleanup()
		if err == nil {
			err = cleanupErr
		}
	}()

	err = s.readTrace()
	if err != nil {
		return nil, err
	}

	err = s.buildCaches()
	if err != nil {
		return nil, err
	}

	err = s.startMonitor()
	if err != nil {
		return nil, err
	}

	s.replay()

	if s.tracer != nil {
		for _, c := range s.caches {
			s.tracer.RecordStats(c)
		}
	}

	return s.caches, nil
}

func (s *simulation) readTrace() error {
	f, err := os.Open(s.options.tracePath)
	if err != nil {
		return fmt.Errorf("failed to open trace: %w", err)
	}
	defer f.Close()

	reader := trace.NewReader(f)
	if s.options.uniqueIDs {
		reader = reader.WithIDGenerator(sim.NewParallelIDGenerator())
	}

	s.reqs, err = reader.ReadAll()
	if err != nil {
		return fmt.Errorf("failed to read trace %s: %w", s.options.tracePath, err)
	}

	return nil
}

func (s *simulation) buildCaches() error {
	hooks, err := s.hooks()
	if err != nil {
		return err
	}

	for _, nb := range s.builders {
		b := nb.builder
		for _, h := range hooks {
			b = b.WithHook(h)
		}

		s.caches = append(s.caches, b.Build(nb.name))
	}

	return nil
}

func (s *simulation) hooks() ([]sim.Hook, error) {
	var hooks []sim.Hook

	if s.options.recordName != "" {
		filename := s.options.recordName + ".sqlite3"

		_, err := os.Stat(filename)
		if err == nil {
			return nil, fmt.Errorf("recording %s already exists", filename)
		}
	}

	if s.options.traceLog != "" {
		f, err := os.Create(s.options.traceLog)
		if err != nil {
			return nil, fmt.Errorf("failed to create trace log: %w", err)
		}

		s.cleanups = append(s.cleanups, f.Close)
		hooks = append(hooks, trace.NewTracer(log.New(f, "", 0)))
	}

	if s.options.recordName != "" {
		s.recorder = datarecording.New(s.options.recordName)
		s.cleanups = append(s.cleanups, s.recorder.Close)
		s.tracer = trace.NewDBTracer(s.recorder)
		hooks = append(hooks, s.tracer)
	}

	return hooks, nil
}

func (s *simulation) startMonitor() error {
	if !s.options.monitor {
		return nil
	}

	s.monitor = monitoring.NewMonitor().
		WithPortNumber(s.options.monitorPort).
		WithOpenBrowser(s.options.openBrowser)

	for _, c := range s.caches {
		s.monitor.RegisterCache(c)
	}

	_, err := s.monitor.StartServer()
	if err != nil {
		return err
	}

	s.cleanups = append(s.cleanups, s.monitor.StopServer)

	return nil
}

func (s *simulation) replay() {
	var wg sync.WaitGroup

	for _, c := range s.caches {
		wg.Add(1)

		go func(c *cache.Cache) {
			defer wg.Done()

			var bar *monitoring.ProgressBar
			if s.monitor != nil {
				bar = s.monitor.CreateProgressBar(c.Name(), uint64(len(s.reqs)))
				defer s.monitor.CompleteProgressBar(bar)
			}

			for _, req := range s.reqs {
				c.Access(req)

				if bar != nil {
					bar.IncrementFinished(1)
				}
			}
		}(c)
	}

	wg.Wait()
}

func (s *simulation) cleanup() error {
	var firstErr error

	for i := len(s.cleanups) - 1; i >= 0; i-- {
		err := s.cleanups[i]()
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}

	s.cleanups = nil

	return firstErr
}

func printReports(w io.Writer, caches []*cache.Cache) error {
	for _, c := range caches {
		_, err := fmt.Fprintf(w, "%s: %d bytes, %d sets, %d ways\n",
			c.Name(), c.ByteSize(), c.NumSets(), c.NumWays())
		if err != nil {
			return err
		}

		err = c.Stats().Report(w)
		if err != nil {
			return err
		}
	}

	return nil
}
