package document_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"basegraph.app/ticketsmith/internal/decompose"
	"basegraph.app/ticketsmith/internal/model"
	"basegraph.app/ticketsmith/internal/service/document"
)

type confluenceMock struct {
	server   *httptest.Server
	title    string
	storage  string
	version  int
	status   int
	expands  []string
	puts     []map[string]any
	putCount int
}

func newConfluenceMock() *confluenceMock {
	m := &confluenceMock{title: "Login Revamp", version: 7, status: http.StatusOK}
	m.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Path != "/wiki/rest/api/content/123456" {
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, `{"statusCode":404,"message":"No content found with id"}`)
			return
		}
		if m.status != http.StatusOK {
			w.WriteHeader(m.status)
			_, _ = io.WriteString(w, `{"statusCode":500,"message":"boom"}`)
			return
		}

		switch r.Method {
		case http.MethodGet:
			m.expands = append(m.expands, r.URL.Query().Get("expand"))
			page := map[string]any{
				"id":    "123456",
				"type":  "page",
				"title": m.title,
				"body": map[string]any{
					"storage": map[string]any{"value": m.storage, "representation": "storage"},
					"editor":  map[string]any{"value": "editor:" + m.storage, "representation": "editor"},
					"view":    map[string]any{"value": "view:" + m.storage, "representation": "view"},
				},
				"version": map[string]any{"number": m.version},
			}
			_ = json.NewEncoder(w).Encode(page)
		case http.MethodPut:
			m.putCount++
			var payload map[string]any
			_ = json.NewDecoder(r.Body).Decode(&payload)
			m.puts = append(m.puts, payload)
			_, _ = io.WriteString(w, fmt.Sprintf(`{"id":"123456","type":"page","title":%q,"version":{"number":%d}}`, m.title, m.version+1))
		}
	}))
	return m
}

const pageURL = "https://acme.atlassian.net/wiki/spaces/ENG/pages/123456/Login+Revamp"

var _ = Describe("confluenceStore", func() {
	var (
		ctx   context.Context
		mock  *confluenceMock
		store document.Store
	)

	BeforeEach(func() {
		ctx = context.Background()
		mock = newConfluenceMock()
		DeferCleanup(mock.server.Close)

		var err error
		store, err = document.NewConfluenceStore(document.ConfluenceConfig{
			BaseURL:  mock.server.URL,
			Email:    "bot@acme.io",
			APIToken: "secret",
		})
		Expect(err).NotTo(HaveOccurred())
	})

	Describe("FetchPage", func() {
		It("returns content, title and project key", func() {
			mock.storage = "<p>Project: ENG</p><h2>Requirements</h2><p>Login</p>"

			page, err := store.FetchPage(ctx, pageURL)
			Expect(err).NotTo(HaveOccurred())
			Expect(page.ID).To(Equal("123456"))
			Expect(page.Title).To(Equal("Login Revamp"))
			Expect(page.Content).To(Equal(mock.storage))
			Expect(page.ProjectKey).To(Equal("ENG"))
			Expect(page.Version).To(Equal(7))
			Expect(mock.expands).To(Equal([]string{"body.storage,version"}))
		})

		It("fails without a project key instead of returning a partial page", func() {
			mock.storage = "<h2>Requirements</h2><p>Login</p>"

			page, err := store.FetchPage(ctx, pageURL)
			Expect(page).To(BeNil())
			Expect(errors.Is(err, decompose.ErrProjectKeyNotFound)).To(BeTrue())
		})

		It("fails on a url without page id before calling the API", func() {
			_, err := store.FetchPage(ctx, "https://acme.atlassian.net/wiki/spaces/ENG/overview")
			Expect(err).To(MatchError(decompose.ErrPageIDNotFound))
			Expect(mock.expands).To(BeEmpty())
		})

		It("reports the upstream status", func() {
			_, err := store.FetchPage(ctx, "https://acme.atlassian.net/wiki/spaces/ENG/pages/999/Other")

			var upstream *model.UpstreamError
			Expect(errors.As(err, &upstream)).To(BeTrue())
			Expect(upstream.Service).To(Equal("confluence"))
			Expect(upstream.StatusCode).To(Equal(http.StatusNotFound))
		})
	})

	It("fetches every page format", func() {
		mock.storage = "<p>x</p>"

		formats, err := store.FetchPageFormats(ctx, pageURL)
		Expect(err).NotTo(HaveOccurred())
		Expect(formats).To(Equal(&model.PageFormats{
			Title:   "Login Revamp",
			Storage: "<p>x</p>",
			Editor:  "editor:<p>x</p>",
			View:    "view:<p>x</p>",
		}))
		Expect(mock.expands).To(Equal([]string{"body.storage,body.view,body.editor"}))
	})

	Describe("AppendToPage", func() {
		It("appends the fragment as the next version", func() {
			mock.storage = "<p>Project: ENG</p>"

			page, err := store.AppendToPage(ctx, pageURL, "<p>added</p>")
			Expect(err).NotTo(HaveOccurred())
			Expect(page.Version).To(Equal(8))
			Expect(page.Content).To(Equal("<p>Project: ENG</p><p>added</p>"))

			Expect(mock.puts).To(HaveLen(1))
			put := mock.puts[0]
			Expect(put["type"]).To(Equal("page"))
			Expect(put["title"]).To(Equal("Login Revamp"))
			Expect(put["version"]).To(HaveKeyWithValue("number", BeNumerically("==", 8)))
			storage := put["body"].(map[string]any)["storage"].(map[string]any)
			Expect(storage["value"]).To(Equal("<p>Project: ENG</p><p>added</p>"))
			Expect(storage["representation"]).To(Equal("storage"))
		})

		It("does not write when the page cannot be read", func() {
			mock.status = http.StatusInternalServerError

			_, err := store.AppendToPage(ctx, pageURL, "<p>added</p>")
			var upstream *model.UpstreamError
			Expect(errors.As(err, &upstream)).To(BeTrue())
			Expect(upstream.StatusCode).To(Equal(http.StatusInternalServerError))
			Expect(mock.putCount).To(BeZero())
		})
	})
})
