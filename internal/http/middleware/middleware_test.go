package middleware_test

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/gin-gonic/gin"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"basegraph.app/ticketsmith/internal/http/middleware"
)

func captureLogs() *bytes.Buffer {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewJSONHandler(&buf, nil)))
	DeferCleanup(func() { slog.SetDefault(prev) })
	return &buf
}

func logLines(buf *bytes.Buffer) []map[string]any {
	var lines []map[string]any
	for _, raw := range bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n")) {
		if len(raw) == 0 {
			continue
		}
		var line map[string]any
		Expect(json.Unmarshal(raw, &line)).To(Succeed())
		lines = append(lines, line)
	}
	return lines
}

var _ = Describe("Middleware", func() {
	var router *gin.Engine

	BeforeEach(func() {
		gin.SetMode(gin.TestMode)
		router = gin.New()
	})

	Describe("Recovery", func() {
		It("turns a panic into a 500 JSON response", func() {
			router.Use(middleware.Recovery(), middleware.Logger())
			router.GET("/boom", func(*gin.Context) { panic("boom") })

			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))

			Expect(w.Code).To(Equal(http.StatusInternalServerError))
			Expect(w.Body.String()).To(ContainSubstring("internal server error"))
		})

		It("keeps the status of a response that was already written", func() {
			router.Use(middleware.Recovery())
			router.GET("/half", func(c *gin.Context) {
				c.String(http.StatusOK, "partial")
				panic("late")
			})

			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/half", nil))

			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(w.Body.String()).To(Equal("partial"))
		})
	})

	Describe("Logger", func() {
		It("logs the route, status and query of a request", func() {
			buf := captureLogs()
			router.Use(middleware.Logger())
			router.GET("/sessions/:id", func(c *gin.Context) { c.Status(http.StatusNotFound) })

			router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/sessions/9?verbose=1", nil))

			lines := logLines(buf)
			Expect(lines).To(HaveLen(1))
			Expect(lines[0]).To(HaveKeyWithValue("level", "WARN"))
			Expect(lines[0]).To(HaveKeyWithValue("route", "/sessions/:id"))
			Expect(lines[0]).To(HaveKeyWithValue("path", "/sessions/9"))
			Expect(lines[0]).To(HaveKeyWithValue("query", "verbose=1"))
			Expect(lines[0]).To(HaveKeyWithValue("status", float64(http.StatusNotFound)))
		})

		It("serves skipped paths without a log line", func() {
			buf := captureLogs()
			router.Use(middleware.Logger("/health"))
			router.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })

			w := httptest.NewRecorder()
			router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(logLines(buf)).To(BeEmpty())
		})
	})

	Describe("Timeout", func() {
		It("sets a deadline on the request context", func() {
			var deadline time.Time
			var hasDeadline bool
			router.Use(middleware.Timeout(time.Minute))
			router.GET("/", func(c *gin.Context) {
				deadline, hasDeadline = c.Request.Context().Deadline()
				c.Status(http.StatusOK)
			})

			router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

			Expect(hasDeadline).To(BeTrue())
			Expect(time.Until(deadline)).To(BeNumerically("<=", time.Minute))
		})

		It("leaves the context alone for a zero duration", func() {
			var hasDeadline bool
			router.Use(middleware.Timeout(0))
			router.GET("/", func(c *gin.Context) {
				_, hasDeadline = c.Request.Context().Deadline()
				c.Status(http.StatusOK)
			})

			router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

			Expect(hasDeadline).To(BeFalse())
		})

		It("cancels the context once the handler returns", func() {
			var done <-chan struct{}
			router.Use(middleware.Timeout(time.Minute))
			router.GET("/", func(c *gin.Context) {
				done = c.Request.Context().Done()
				c.Status(http.StatusOK)
			})

			router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

			Eventually(done).Should(BeClosed())
		})
	})
})
