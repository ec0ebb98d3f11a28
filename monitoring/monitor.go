// Package monitoring turns a running simulation into a web server so that the
// progress and the cache state can be inspected while a trace is replayed.
package monitoring

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"runtime/pprof"
	"strconv"
	"sync"
	"time"

	// Enable profiling
	_ "net/http/pprof"

	"github.com/google/pprof/profile"
	"github.com/gorilla/mux"
	"github.com/pkg/browser"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/xid"
	"github.com/shirou/gopsutil/process"
	"github.com/syifan/goseth"

	"github.com/sarchlab/cachesim/mem/cache"
	"github.com/sarchlab/cachesim/monitoring/web"
)

// Monitor can turn a simulation into a server and allows external monitoring
// of the simulated caches.
type Monitor struct {
	portNumber  int
	openBrowser bool

	cachesLock sync.RWMutex
	caches     []*cache.Cache
	registry   *prometheus.Registry

	progressBarsLock sync.Mutex
	progressBars     []*ProgressBar

	server *http.Server
}

// NewMonitor creates a new Monitor
func NewMonitor() *Monitor {
	m := &Monitor{
		registry: prometheus.NewRegistry(),
	}

	m.registry.MustRegister(newCacheCollector(m))

	return m
}

// WithPortNumber sets the port number of the monitor.
func (m *Monitor) WithPortNumber(portNumber int) *Monitor {
	if portNumber != 0 && portNumber < 1000 {
		fmt.Fprintf(os.Stderr,
			"Port number %d is assigned to the monitoring server, "+
				"which is not allowed. Using a random port instead.\n", portNumber)
		portNumber = 0
	}

	m.portNumber = portNumber

	return m
}

// WithOpenBrowser makes the monitor open the monitoring page in a browser
// once the server starts.
func (m *Monitor) WithOpenBrowser(openBrowser bool) *Monitor {
	m.openBrowser = openBrowser
	return m
}

// RegisterCache registers a cache to be monitored.
func (m *Monitor) RegisterCache(c *cache.Cache) {
	m.cachesLock.Lock()
	defer m.cachesLock.Unlock()

	m.caches = append(m.caches, c)
}

func (m *Monitor) registeredCaches() []*cache.Cache {
	m.cachesLock.RLock()
	defer m.cachesLock.RUnlock()

	caches := make([]*cache.Cache, len(m.caches))
	copy(caches, m.caches)

	return caches
}

// CreateProgressBar creates a new progress bar.
func (m *Monitor) CreateProgressBar(name string, total uint64) *ProgressBar {
	bar := &ProgressBar{
		ID:        xid.New().String(),
		Name:      name,
		StartTime: time.Now(),
		Total:     total,
	}

	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	m.progressBars = append(m.progressBars, bar)

	return bar
}

// CompleteProgressBar removes a bar to be shown on the webpage.
func (m *Monitor) CompleteProgressBar(pb *ProgressBar) {
	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	newBars := make([]*ProgressBar, 0, len(m.progressBars))
	for _, b := range m.progressBars {
		if b != pb {
			newBars = append(newBars, b)
		}
	}

	m.progressBars = newBars
}

func (m *Monitor) router() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/api/list_caches", m.listCaches)
	r.HandleFunc("/api/cache/{name}", m.cacheDetails)
	r.HandleFunc("/api/stats/{name}", m.cacheStats)
	r.HandleFunc("/api/set/{name}/{id}", m.setDetails)
	r.HandleFunc("/api/progress", m.listProgressBars)
	r.HandleFunc("/api/resource", m.listResources)
	r.HandleFunc("/api/profile", m.collectProfile)
	r.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
	r.PathPrefix("/debug/pprof/").Handler(http.DefaultServeMux)
	r.PathPrefix("/").Handler(http.FileServer(web.GetAssets()))

	return r
}

// StartServer starts the monitor as a web server and returns its URL.
func (m *Monitor) StartServer() (string, error) {
	actualPort := ":0"
	if m.portNumber > 1000 {
		actualPort = ":" + strconv.Itoa(m.portNumber)
	}

	listener, err := net.Listen("tcp", actualPort)
	if err != nil {
		return "", fmt.Errorf("monitor cannot listen on %s: %w", actualPort, err)
	}

	url := fmt.Sprintf("http://localhost:%d",
		listener.Addr().(*net.TCPAddr).Port)
	fmt.Fprintf(os.Stderr, "Monitoring simulation with %s\n", url)

	m.server = &http.Server{
		Handler:           m.router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		err := m.server.Serve(listener)
		if err != nil && err != http.ErrServerClosed {
			log.Printf("monitor stopped: %v", err)
		}
	}()

	if m.openBrowser {
		err = browser.OpenURL(url)
		if err != nil {
			log.Printf("cannot open browser: %v", err)
		}
	}

	return url, nil
}

// StopServer shuts the web server down.
func (m *Monitor) StopServer() error {
	if m.server == nil {
		return nil
	}

	return m.server.Close()
}

func (m *Monitor) listCaches(w http.ResponseWriter, _ *http.Request) {
	names := []string{}
	for _, c := range m.registeredCaches() {
		names = append(names, c.Name())
	}

	writeJSON(w, names)
}

type cacheInfo struct {
	Name      string
	ByteSize  uint64
	BlockSize uint64
	NumSets   int
	NumWays   int
}

func (m *Monitor) cacheDetails(w http.ResponseWriter, r *http.Request) {
	c := m.findCacheOr404(w, mux.Vars(r)["name"])
	if c == nil {
		return
	}

	info := &cacheInfo{
		Name:      c.Name(),
		ByteSize:  c.ByteSize(),
		BlockSize: c.Decoder().BlockSize(),
		NumSets:   c.NumSets(),
		NumWays:   c.NumWays(),
	}

	serializer := goseth.NewSerializer()
	serializer.SetRoot(info)
	serializer.SetMaxDepth(1)
	err := serializer.Serialize(w)

	dieOnErr(err)
}

type statsRsp struct {
	Name          string  `json:"name"`
	TotalAccesses uint64  `json:"total_accesses"`
	Reads         uint64  `json:"reads"`
	Writes        uint64  `json:"writes"`
	Hits          uint64  `json:"hits"`
	Misses        uint64  `json:"misses"`
	Evictions     uint64  `json:"evictions"`
	Writebacks    uint64  `json:"writebacks"`
	HitRatio      float64 `json:"hit_ratio"`
	MissRatio     float64 `json:"miss_ratio"`
}

func (m *Monitor) cacheStats(w http.ResponseWriter, r *http.Request) {
	c := m.findCacheOr404(w, mux.Vars(r)["name"])
	if c == nil {
		return
	}

	s := c.Stats().Snapshot()

	writeJSON(w, statsRsp{
		Name:          c.Name(),
		TotalAccesses: s.TotalAccesses,
		Reads:         s.Reads,
		Writes:        s.Writes,
		Hits:          s.Hits,
		Misses:        s.Misses,
		Evictions:     s.Evictions,
		Writebacks:    s.Writebacks,
		HitRatio:      s.HitRatio(),
		MissRatio:     s.MissRatio(),
	})
}

func (m *Monitor) setDetails(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	c := m.findCacheOr404(w, vars["name"])
	if c == nil {
		return
	}

	setID, err := strconv.Atoi(vars["id"])
	if err != nil {
		http.Error(w, "Invalid set id: "+vars["id"], http.StatusBadRequest)
		return
	}

	state, err := c.SetState(setID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	writeJSON(w, state)
}

func (m *Monitor) findCacheOr404(
	w http.ResponseWriter,
	name string,
) *cache.Cache {
	for _, c := range m.registeredCaches() {
		if c.Name() == name {
			return c
		}
	}

	w.WriteHeader(http.StatusNotFound)
	_, err := w.Write([]byte("Cache not found"))
	dieOnErr(err)

	return nil
}

func (m *Monitor) listProgressBars(w http.ResponseWriter, _ *http.Request) {
	m.progressBarsLock.Lock()
	bars := make([]progressBarRsp, 0, len(m.progressBars))
	for _, b := range m.progressBars {
		bars = append(bars, b.snapshot())
	}
	m.progressBarsLock.Unlock()

	writeJSON(w, bars)
}

type resourceRsp struct {
	CPUPercent float64 `json:"cpu_percent"`
	MemorySize uint64  `json:"memory_size"`
}

func (m *Monitor) listResources(w http.ResponseWriter, _ *http.Request) {
	pid := os.Getpid()
	process, err := process.NewProcess(int32(pid))
	dieOnErr(err)

	cpuPercent, err := process.CPUPercent()
	dieOnErr(err)

	memorySize, err := process.MemoryInfo()
	dieOnErr(err)

	writeJSON(w, resourceRsp{
		CPUPercent: cpuPercent,
		MemorySize: memorySize.RSS,
	})
}

func (m *Monitor) collectProfile(w http.ResponseWriter, _ *http.Request) {
	buf := bytes.NewBuffer(nil)

	err := pprof.StartCPUProfile(buf)
	if err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}

	time.Sleep(time.Second)

	pprof.StopCPUProfile()

	prof, err := profile.ParseData(buf.Bytes())
	dieOnErr(err)

	writeJSON(w, prof)
}

func writeJSON(w http.ResponseWriter, v any) {
	bytes, err := json.Marshal(v)
	dieOnErr(err)

	w.Header().Set("Content-Type", "application/json")

	_, err = w.Write(bytes)
	dieOnErr(err)
}

func dieOnErr(err error) {
	if err != nil {
		log.Panic(err)
	}
}
