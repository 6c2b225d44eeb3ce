// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ForgeSim Contributors

//go:build integration

package access_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"slices"
	"sync"
	"sync/atomic"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/forgesim/forgesim/internal/access"
	"github.com/forgesim/forgesim/internal/api"
	"github.com/forgesim/forgesim/internal/forge"
	"github.com/forgesim/forgesim/internal/identity"
	"github.com/forgesim/forgesim/internal/repo"
)

const goroutines = 50

// apiWorld is a programmatically built world behind a running handler.
// The API layer serializes every request under one lock; these specs
// hammer it from many goroutines to verify that serialization holds.
type apiWorld struct {
	store   *forge.Store
	project *forge.Project
	server  *httptest.Server
	users   []*forge.User
	tokens  map[string]string
}

// buildAPIWorld creates one private project under a group that grants
// Developer to every test user, then serves the API over it.
func buildAPIWorld() *apiWorld {
	store := forge.NewStore(repo.Factory)
	registry := identity.NewRegistry(store, identity.NewArgon2idHasher())
	gate := access.NewGate(access.NewResolver(store))
	service := forge.NewService(forge.ServiceConfig{Store: store, Gate: gate})

	team, err := store.CreateGroup("Engineering", nil)
	Expect(err).NotTo(HaveOccurred())
	project, err := store.CreateProject(team.ID, "Widget", forge.VisibilityPrivate)
	Expect(err).NotTo(HaveOccurred())

	w := &apiWorld{
		store:   store,
		project: project,
		tokens:  make(map[string]string),
	}
	for i := range goroutines {
		u, err := store.AddUser(fmt.Sprintf("user%02d", i), fmt.Sprintf("User %02d", i), false)
		Expect(err).NotTo(HaveOccurred())
		grant, err := forge.NewUserGrant(u.ID, forge.AccessLevelDeveloper)
		Expect(err).NotTo(HaveOccurred())
		Expect(team.AddGrant(grant)).To(Succeed())

		plaintext, _, err := registry.IssueToken(u.ID, "load-test")
		Expect(err).NotTo(HaveOccurred())
		w.users = append(w.users, u)
		w.tokens[u.Username] = plaintext
	}

	apiServer, err := api.NewServer(api.Config{
		Addr:     "127.0.0.1:0",
		BaseURL:  "http://forge.test",
		Store:    store,
		Service:  service,
		Gate:     gate,
		Registry: registry,
	})
	Expect(err).NotTo(HaveOccurred())
	w.server = httptest.NewServer(apiServer.Handler())
	return w
}

// call performs one request and returns the status with the decoded
// body. Used from spec goroutines, so failures surface as return values
// rather than assertions.
func (w *apiWorld) call(method, path, token string, body any, out any) (int, error) {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return 0, err
		}
		reader = bytes.NewReader(encoded)
	}
	req, err := http.NewRequest(method, w.server.URL+path, reader)
	if err != nil {
		return 0, err
	}
	if token != "" {
		req.Header.Set("PRIVATE-TOKEN", token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, err
	}
	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return resp.StatusCode, fmt.Errorf("decode %s: %w", string(raw), err)
		}
	}
	return resp.StatusCode, nil
}

var _ = Describe("Concurrent API Access", func() {
	var w *apiWorld

	BeforeEach(func() {
		w = buildAPIWorld()
	})

	AfterEach(func() {
		w.server.Close()
	})

	Describe("authorization decisions under fan-out", func() {
		const perGoroutine = 20

		It("answers every decision consistently", func() {
			var wg sync.WaitGroup
			var agreed atomic.Int32
			errs := make([]error, goroutines)

			for i := range goroutines {
				wg.Add(1)
				go func() {
					defer GinkgoRecover()
					defer wg.Done()

					username := w.users[i].Username
					for j := range perGoroutine {
						// Alternate between a member (allowed) and an
						// anonymous subject (denied on a private project).
						subject := username
						wantAllowed := true
						if j%2 == 1 {
							subject = ""
							wantAllowed = false
						}

						path := "/api/v4/authorize?action=view&project=engineering%2Fwidget"
						if subject != "" {
							path += "&subject=" + subject
						}
						var decision api.DecisionPayload
						status, err := w.call(http.MethodGet, path, "", nil, &decision)
						if err != nil {
							errs[i] = err
							return
						}
						if status != http.StatusOK {
							errs[i] = fmt.Errorf("status %d", status)
							return
						}
						if decision.Allowed == wantAllowed {
							agreed.Add(1)
						}
					}
				}()
			}
			wg.Wait()

			for i, err := range errs {
				Expect(err).NotTo(HaveOccurred(), "goroutine %d", i)
			}
			Expect(agreed.Load()).To(Equal(int32(goroutines * perGoroutine)))
		})
	})

	Describe("forks from every user at once", func() {
		It("lands each fork in its own namespace", func() {
			var wg sync.WaitGroup
			errs := make([]error, goroutines)
			paths := make([]string, goroutines)

			projectRef := w.project.ID.String()
			for i := range goroutines {
				wg.Add(1)
				go func() {
					defer GinkgoRecover()
					defer wg.Done()

					var payload api.ProjectPayload
					status, err := w.call(http.MethodPost,
						"/api/v4/projects/"+projectRef+"/fork",
						w.tokens[w.users[i].Username], nil, &payload)
					if err != nil {
						errs[i] = err
						return
					}
					if status != http.StatusCreated {
						errs[i] = fmt.Errorf("status %d", status)
						return
					}
					paths[i] = payload.PathWithNamespace
				}()
			}
			wg.Wait()

			for i, err := range errs {
				Expect(err).NotTo(HaveOccurred(), "goroutine %d", i)
				Expect(paths[i]).To(Equal(w.users[i].Username + "/widget"))
			}
			// The upstream plus one fork per user.
			Expect(w.store.Projects()).To(HaveLen(goroutines + 1))
		})
	})

	Describe("merge requests opened at once", func() {
		It("allocates a dense unique iid sequence", func() {
			var wg sync.WaitGroup
			errs := make([]error, goroutines)
			iids := make([]int, goroutines)

			projectRef := w.project.ID.String()
			for i := range goroutines {
				wg.Add(1)
				go func() {
					defer GinkgoRecover()
					defer wg.Done()

					var payload api.MergeRequestPayload
					status, err := w.call(http.MethodPost,
						"/api/v4/projects/"+projectRef+"/merge_requests",
						w.tokens[w.users[i].Username],
						map[string]string{
							"source_branch": fmt.Sprintf("feature/change-%02d", i),
							"title":         fmt.Sprintf("Change %02d", i),
						}, &payload)
					if err != nil {
						errs[i] = err
						return
					}
					if status != http.StatusCreated {
						errs[i] = fmt.Errorf("status %d", status)
						return
					}
					iids[i] = payload.IID
				}()
			}
			wg.Wait()

			for i, err := range errs {
				Expect(err).NotTo(HaveOccurred(), "goroutine %d", i)
			}
			slices.Sort(iids)
			for i, iid := range iids {
				Expect(iid).To(Equal(i+1), "iids must be unique and dense")
			}
			Expect(w.project.MergeRequests()).To(HaveLen(goroutines))
		})
	})

	Describe("reads racing writes", func() {
		It("keeps answering while the store mutates", func() {
			var wg sync.WaitGroup
			var reads atomic.Int32
			var writes atomic.Int32
			errs := make([]error, goroutines)

			projectRef := w.project.ID.String()
			for i := range goroutines {
				wg.Add(1)
				go func() {
					defer GinkgoRecover()
					defer wg.Done()

					if i%2 == 0 {
						var payload api.ProjectPayload
						status, err := w.call(http.MethodPost,
							"/api/v4/projects/"+projectRef+"/fork",
							w.tokens[w.users[i].Username], nil, &payload)
						if err != nil {
							errs[i] = err
							return
						}
						if status != http.StatusCreated {
							errs[i] = fmt.Errorf("fork status %d", status)
							return
						}
						writes.Add(1)
						return
					}
					for range 10 {
						var decision api.DecisionPayload
						status, err := w.call(http.MethodGet,
							"/api/v4/authorize?action=contribute&project="+projectRef+
								"&subject="+w.users[i].Username, "", nil, &decision)
						if err != nil {
							errs[i] = err
							return
						}
						if status != http.StatusOK || !decision.Allowed {
							errs[i] = fmt.Errorf("status %d allowed %v", status, decision.Allowed)
							return
						}
					}
					reads.Add(1)
				}()
			}
			wg.Wait()

			for i, err := range errs {
				Expect(err).NotTo(HaveOccurred(), "goroutine %d", i)
			}
			Expect(writes.Load()).To(Equal(int32(goroutines / 2)))
			Expect(reads.Load()).To(Equal(int32(goroutines / 2)))
		})
	})
})
