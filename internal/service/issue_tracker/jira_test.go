package issue_tracker_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"basegraph.app/ticketsmith/internal/model"
	"basegraph.app/ticketsmith/internal/service/issue_tracker"
)

type jiraMock struct {
	server   *httptest.Server
	searchFn func(r *http.Request) (int, string)
	createFn func(fields map[string]any) (int, string)
	searches []*http.Request
	created  []map[string]any
	username string
	password string
}

func newJiraMock() *jiraMock {
	m := &jiraMock{}
	m.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.username, m.password, _ = r.BasicAuth()
		w.Header().Set("Content-Type", "application/json")

		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/rest/api/3/search/jql":
			m.searches = append(m.searches, r)
			status, body := m.searchFn(r)
			w.WriteHeader(status)
			_, _ = io.WriteString(w, body)
		case r.Method == http.MethodPost && r.URL.Path == "/rest/api/2/issue":
			var payload struct {
				Fields map[string]any `json:"fields"`
			}
			_ = json.NewDecoder(r.Body).Decode(&payload)
			m.created = append(m.created, payload.Fields)
			status, body := m.createFn(payload.Fields)
			w.WriteHeader(status)
			_, _ = io.WriteString(w, body)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	return m
}

type closeTracker struct {
	base   http.RoundTripper
	closed int
}

func (c *closeTracker) RoundTrip(r *http.Request) (*http.Response, error) {
	resp, err := c.base.RoundTrip(r)
	if err != nil {
		return nil, err
	}
	resp.Body = &trackedBody{ReadCloser: resp.Body, onClose: func() { c.closed++ }}
	return resp, nil
}

type trackedBody struct {
	io.ReadCloser
	onClose func()
}

func (b *trackedBody) Close() error {
	b.onClose()
	return b.ReadCloser.Close()
}

var _ = Describe("jiraTracker", func() {
	var (
		ctx     context.Context
		mock    *jiraMock
		tracker issue_tracker.IssueTracker
	)

	BeforeEach(func() {
		ctx = context.Background()
		mock = newJiraMock()
		DeferCleanup(mock.server.Close)

		var err error
		tracker, err = issue_tracker.NewJiraTracker(issue_tracker.JiraConfig{
			BaseURL:     mock.server.URL,
			Email:       "bot@acme.io",
			APIToken:    "secret",
			BrowseURL:   "https://acme.atlassian.net/",
			ImpactField: "customfield_10077",
		})
		Expect(err).NotTo(HaveOccurred())
	})

	Describe("FindEpic", func() {
		It("searches epics by title within the project", func() {
			mock.searchFn = func(r *http.Request) (int, string) {
				return http.StatusOK, `{"issues":[],"isLast":true}`
			}

			_, found, err := tracker.FindEpic(ctx, `Login "v2"`, "ENG")
			Expect(err).NotTo(HaveOccurred())
			Expect(found).To(BeFalse())

			Expect(mock.searches).To(HaveLen(1))
			Expect(mock.searches[0].URL.Query().Get("maxResults")).To(Equal("50"))
			Expect(mock.searches[0].URL.Query().Get("jql")).To(Equal(`project = "ENG" AND summary ~ "Login \"v2\"" AND issuetype = Epic`))
			Expect(mock.username).To(Equal("bot@acme.io"))
			Expect(mock.password).To(Equal("secret"))
		})

		It("prefers the hit whose summary equals the title", func() {
			mock.searchFn = func(r *http.Request) (int, string) {
				return http.StatusOK, `{"isLast":true,"issues":[
					{"key":"ENG-1","fields":{"summary":"Login revamp follow-up"}},
					{"key":"ENG-7","fields":{"summary":"Login revamp"}}]}`
			}

			key, found, err := tracker.FindEpic(ctx, "Login revamp", "ENG")
			Expect(err).NotTo(HaveOccurred())
			Expect(found).To(BeTrue())
			Expect(key).To(Equal("ENG-7"))
		})

		It("falls back to the first partial match", func() {
			mock.searchFn = func(r *http.Request) (int, string) {
				return http.StatusOK, `{"isLast":true,"issues":[{"key":"ENG-1","fields":{"summary":"Login revamp (old)"}}]}`
			}

			key, found, err := tracker.FindEpic(ctx, "Login revamp", "ENG")
			Expect(err).NotTo(HaveOccurred())
			Expect(found).To(BeTrue())
			Expect(key).To(Equal("ENG-1"))
		})

		It("reports the upstream status", func() {
			mock.searchFn = func(r *http.Request) (int, string) {
				return http.StatusBadRequest, `{"errorMessages":["The value 'NOPE' does not exist for the field 'project'."],"errors":{}}`
			}

			_, _, err := tracker.FindEpic(ctx, "x", "NOPE")
			var upstream *model.UpstreamError
			Expect(errors.As(err, &upstream)).To(BeTrue())
			Expect(upstream.StatusCode).To(Equal(http.StatusBadRequest))
			Expect(upstream.Service).To(Equal("jira"))
		})
	})

	Describe("CreateEpic", func() {
		It("creates an Epic issue in the project", func() {
			mock.createFn = func(map[string]any) (int, string) {
				return http.StatusCreated, `{"id":"10001","key":"ENG-42","self":"x"}`
			}

			key, err := tracker.CreateEpic(ctx, "Login revamp", "ENG")
			Expect(err).NotTo(HaveOccurred())
			Expect(key).To(Equal("ENG-42"))

			fields := mock.created[0]
			Expect(fields["summary"]).To(Equal("Login revamp"))
			Expect(fields["project"]).To(HaveKeyWithValue("key", "ENG"))
			Expect(fields["issuetype"]).To(HaveKeyWithValue("name", "Epic"))
		})
	})

	Describe("CreateChildItem", func() {
		It("creates a story under the epic", func() {
			mock.createFn = func(map[string]any) (int, string) {
				return http.StatusCreated, `{"id":"10002","key":"ENG-43","self":"x"}`
			}

			key, err := tracker.CreateChildItem(ctx, issue_tracker.CreateChildParams{
				ParentKey:   "ENG-42",
				ProjectKey:  "ENG",
				Summary:     "Add login form",
				Description: "Goal: a\n\nRequirements: b",
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(key).To(Equal("ENG-43"))

			fields := mock.created[0]
			Expect(fields["summary"]).To(Equal("Add login form"))
			Expect(fields["description"]).To(Equal("Goal: a\n\nRequirements: b"))
			Expect(fields["issuetype"]).To(HaveKeyWithValue("name", "Story"))
			Expect(fields["parent"]).To(HaveKeyWithValue("key", "ENG-42"))
		})

		It("reports the upstream status of a rejected create", func() {
			mock.createFn = func(map[string]any) (int, string) {
				return http.StatusForbidden, `{"errorMessages":["You do not have permission"],"errors":{}}`
			}

			_, err := tracker.CreateChildItem(ctx, issue_tracker.CreateChildParams{ParentKey: "ENG-42", ProjectKey: "ENG", Summary: "x"})
			var upstream *model.UpstreamError
			Expect(errors.As(err, &upstream)).To(BeTrue())
			Expect(upstream.StatusCode).To(Equal(http.StatusForbidden))
		})
	})

	Describe("ListItems", func() {
		It("follows nextPageToken through the project and maps the impact field", func() {
			mock.searchFn = func(r *http.Request) (int, string) {
				if r.URL.Query().Get("nextPageToken") == "" {
					return http.StatusOK, `{"nextPageToken":"page-2","isLast":false,"issues":[
						{"key":"ENG-1","fields":{"summary":"Login crash","description":"Crashes on submit","labels":["auth","bug"],"customfield_10077":"High"}},
						{"key":"ENG-2","fields":{"summary":"Dark mode","customfield_10077":{"value":"Low"}}}]}`
				}
				return http.StatusOK, `{"isLast":true,"issues":[
					{"key":"ENG-3","fields":{"summary":"Export","customfield_10077":null}}]}`
			}

			records, err := tracker.ListItems(ctx, "ENG")
			Expect(err).NotTo(HaveOccurred())
			Expect(records).To(Equal([]model.IssueRecord{
				{Key: "ENG-1", Summary: "Login crash", Description: "Crashes on submit", Labels: []string{"auth", "bug"}, Impact: "High"},
				{Key: "ENG-2", Summary: "Dark mode", Impact: "Low"},
				{Key: "ENG-3", Summary: "Export"},
			}))

			Expect(mock.searches).To(HaveLen(2))
			query := mock.searches[0].URL.Query()
			Expect(query.Get("jql")).To(Equal(`project = "ENG" ORDER BY created ASC`))
			Expect(query.Get("fields")).To(Equal("summary,description,labels,customfield_10077"))
			Expect(query.Get("maxResults")).To(Equal("100"))
			Expect(query.Has("nextPageToken")).To(BeFalse())
			Expect(mock.searches[1].URL.Query().Get("nextPageToken")).To(Equal("page-2"))
		})

		It("flattens rich text descriptions to plain lines", func() {
			mock.searchFn = func(r *http.Request) (int, string) {
				return http.StatusOK, `{"isLast":true,"issues":[{"key":"ENG-1","fields":{"summary":"Login crash","description":{
					"type":"doc","version":1,"content":[
						{"type":"paragraph","content":[{"type":"text","text":"Crashes on "},{"type":"text","text":"submit","marks":[{"type":"strong"}]}]},
						{"type":"bulletList","content":[
							{"type":"listItem","content":[{"type":"paragraph","content":[{"type":"text","text":"Chrome"}]}]},
							{"type":"listItem","content":[{"type":"paragraph","content":[{"type":"text","text":"Safari"}]}]}]}]}}}]}`
			}

			records, err := tracker.ListItems(ctx, "ENG")
			Expect(err).NotTo(HaveOccurred())
			Expect(records).To(HaveLen(1))
			Expect(records[0].Description).To(Equal("Crashes on submit\nChrome\nSafari"))
		})

		It("returns an empty list for an empty project", func() {
			mock.searchFn = func(r *http.Request) (int, string) {
				return http.StatusOK, `{"issues":[],"isLast":true}`
			}

			records, err := tracker.ListItems(ctx, "ENG")
			Expect(err).NotTo(HaveOccurred())
			Expect(records).To(BeEmpty())
		})

		It("reports the upstream status", func() {
			mock.searchFn = func(r *http.Request) (int, string) {
				return http.StatusUnauthorized, `{"errorMessages":["unauthorized"],"errors":{}}`
			}

			_, err := tracker.ListItems(ctx, "ENG")
			var upstream *model.UpstreamError
			Expect(errors.As(err, &upstream)).To(BeTrue())
			Expect(upstream.StatusCode).To(Equal(http.StatusUnauthorized))
		})
	})

	It("closes the body of a failed response", func() {
		mock.searchFn = func(r *http.Request) (int, string) {
			return http.StatusBadRequest, `{"errorMessages":["bad jql"],"errors":{}}`
		}
		transport := &closeTracker{base: http.DefaultTransport}
		tracker, err := issue_tracker.NewJiraTracker(issue_tracker.JiraConfig{
			BaseURL:   mock.server.URL,
			Transport: transport,
		})
		Expect(err).NotTo(HaveOccurred())

		_, err = tracker.ListItems(ctx, "ENG")
		var upstream *model.UpstreamError
		Expect(errors.As(err, &upstream)).To(BeTrue())
		Expect(upstream.StatusCode).To(Equal(http.StatusBadRequest))
		Expect(transport.closed).To(Equal(1))
	})

	It("builds browse links from the browse url", func() {
		Expect(tracker.BrowseURL("ENG-42")).To(Equal("https://acme.atlassian.net/browse/ENG-42"))
	})
})
