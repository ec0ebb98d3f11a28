package monitoring

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/cachesim/mem/cache"
	"github.com/sarchlab/cachesim/mem/mem"
)

var _ = Describe("Monitor", func() {
	var (
		m *Monitor
		c *cache.Cache
	)

	get := func(url string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, url, nil)
		m.router().ServeHTTP(rec, req)

		return rec
	}

	BeforeEach(func() {
		m = NewMonitor()
		c = cache.MakeBuilder().
			WithByteSize(1 * cache.KB).
			WithLog2BlockSize(6).
			WithWayAssociativity(4).
			Build("L1")
		m.RegisterCache(c)

		c.Access(mem.NewReadReq("1", 0x40))
		c.Access(mem.NewReadReq("2", 0x40))
		c.Access(mem.NewWriteReq("3", 0x80))
	})

	It("should fall back to a random port for reserved ports", func() {
		m.WithPortNumber(80)

		Expect(m.portNumber).To(Equal(0))
	})

	It("should list caches", func() {
		rec := get("/api/list_caches")

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.String()).To(MatchJSON(`["L1"]`))
	})

	It("should report the statistics of a cache", func() {
		rec := get("/api/stats/L1")

		Expect(rec.Code).To(Equal(http.StatusOK))

		rsp := statsRsp{}
		Expect(json.Unmarshal(rec.Body.Bytes(), &rsp)).To(Succeed())
		Expect(rsp.Name).To(Equal("L1"))
		Expect(rsp.TotalAccesses).To(Equal(uint64(3)))
		Expect(rsp.Hits).To(Equal(uint64(1)))
		Expect(rsp.Misses).To(Equal(uint64(2)))
		Expect(rsp.Writes).To(Equal(uint64(1)))
		Expect(rsp.HitRatio).To(BeNumerically("~", 100.0/3, 1e-9))
	})

	It("should return 404 for an unknown cache", func() {
		rec := get("/api/stats/L9")

		Expect(rec.Code).To(Equal(http.StatusNotFound))
		Expect(rec.Body.String()).To(Equal("Cache not found"))
	})

	It("should describe the geometry of a cache", func() {
		rec := get("/api/cache/L1")

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.String()).To(ContainSubstring("L1"))
	})

	It("should report the state of a set", func() {
		rec := get("/api/set/L1/2")

		Expect(rec.Code).To(Equal(http.StatusOK))

		var state []cache.BlockState
		Expect(json.Unmarshal(rec.Body.Bytes(), &state)).To(Succeed())
		Expect(state).To(HaveLen(4))
		Expect(state[0].Valid).To(BeTrue())
		Expect(state[0].Dirty).To(BeTrue())
		Expect(state[1].Valid).To(BeFalse())
	})

	It("should reject invalid set ids", func() {
		Expect(get("/api/set/L1/abc").Code).To(Equal(http.StatusBadRequest))
		Expect(get("/api/set/L1/4").Code).To(Equal(http.StatusBadRequest))
	})

	It("should track progress bars", func() {
		bar := m.CreateProgressBar("trace", 10)
		bar.IncrementInProgress(4)
		bar.MoveInProgressToFinished(3)

		rec := get("/api/progress")

		var bars []map[string]any
		Expect(json.Unmarshal(rec.Body.Bytes(), &bars)).To(Succeed())
		Expect(bars).To(HaveLen(1))
		Expect(bars[0]["name"]).To(Equal("trace"))
		Expect(bars[0]["finished"]).To(BeNumerically("==", 3))
		Expect(bars[0]["in_progress"]).To(BeNumerically("==", 1))
		Expect(bar.Percent()).To(BeNumerically("~", 30.0, 1e-9))

		m.CompleteProgressBar(bar)

		Expect(get("/api/progress").Body.String()).To(MatchJSON(`[]`))
	})

	It("should report process resources", func() {
		rec := get("/api/resource")

		Expect(rec.Code).To(Equal(http.StatusOK))

		rsp := resourceRsp{}
		Expect(json.Unmarshal(rec.Body.Bytes(), &rsp)).To(Succeed())
		Expect(rsp.MemorySize).To(BeNumerically(">", 0))
	})

	It("should export Prometheus metrics", func() {
		rec := get("/metrics")

		Expect(rec.Code).To(Equal(http.StatusOK))
		body, err := io.ReadAll(rec.Body)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(body)).To(ContainSubstring(
			`cachesim_cache_events_total{cache="L1",event="hit"} 1`))
		Expect(string(body)).To(ContainSubstring(
			`cachesim_cache_events_total{cache="L1",event="access"} 3`))
		Expect(string(body)).To(ContainSubstring(
			`cachesim_cache_info{cache="L1",sets="4",ways="4"} 1`))
	})

	It("should serve the index page", func() {
		rec := get("/")

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.String()).To(HavePrefix("<!DOCTYPE html>"))
	})

	It("should start and stop the server", func() {
		url, err := m.WithPortNumber(0).StartServer()
		Expect(err).NotTo(HaveOccurred())
		defer m.StopServer()

		rsp, err := http.Get(url + "/api/list_caches")
		Expect(err).NotTo(HaveOccurred())
		defer rsp.Body.Close()

		Expect(rsp.StatusCode).To(Equal(http.StatusOK))
	})
})
