// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ForgeSim Contributors

//go:build integration

// Package integration provides end-to-end integration tests for ForgeSim.
package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/forgesim/forgesim/internal/access"
	"github.com/forgesim/forgesim/internal/api"
	"github.com/forgesim/forgesim/internal/fixture"
	"github.com/forgesim/forgesim/internal/forge"
	"github.com/forgesim/forgesim/internal/repo"
)

// serverFixture is the world every spec starts from: a nested group
// tree, one private project with a protected mainline, and one public
// project.
const serverFixture = `
version: 1.0.0
users:
  - username: alice
    name: Alice Liddell
    password: wonderland-4ever
  - username: bob
    name: Bob Stone
    password: quarry-33-granite
  - username: root
    name: Administrator
    password: super-secret-sauce
    admin: true
groups:
  - name: Engineering
  - name: Backend Team
    parent: engineering
    grants:
      - user: alice
        level: maintainer
      - user: bob
        level: developer
projects:
  - name: Widget
    group: engineering/backend-team
    visibility: private
    protected_branches:
      - pattern: main
        level: maintainer
  - name: Site
    group: engineering
    visibility: public
`

const widgetPath = "engineering%2Fbackend-team%2Fwidget"

// testEnv holds a running API server over a fixture world, with one
// issued token per fixture user.
type testEnv struct {
	ctx    context.Context
	cancel context.CancelFunc
	world  *fixture.World
	server *api.Server
	errCh  <-chan error
	base   string
	tokens map[string]string
}

// setupTestEnv loads the fixture, starts the API server on a random
// port, and issues an access token for every user.
func setupTestEnv() (*testEnv, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)

	world, err := fixture.Load([]byte(serverFixture), repo.Factory)
	if err != nil {
		cancel()
		return nil, err
	}

	gate := access.NewGate(access.NewResolver(world.Store))
	service := forge.NewService(forge.ServiceConfig{Store: world.Store, Gate: gate})

	server, err := api.NewServer(api.Config{
		Addr:     "127.0.0.1:0",
		BaseURL:  "http://forge.test",
		Store:    world.Store,
		Service:  service,
		Gate:     gate,
		Registry: world.Registry,
	})
	if err != nil {
		cancel()
		return nil, err
	}

	errCh, err := server.Start()
	if err != nil {
		cancel()
		return nil, err
	}

	env := &testEnv{
		ctx:    ctx,
		cancel: cancel,
		world:  world,
		server: server,
		errCh:  errCh,
		base:   "http://" + server.Addr(),
		tokens: make(map[string]string),
	}
	for _, username := range []string{"alice", "bob", "root"} {
		u, ok := world.Store.UserByUsername(username)
		if !ok {
			env.cleanup()
			return nil, fmt.Errorf("fixture user %q missing", username)
		}
		plaintext, _, err := world.Registry.IssueToken(u.ID, "integration")
		if err != nil {
			env.cleanup()
			return nil, err
		}
		env.tokens[username] = plaintext
	}
	return env, nil
}

// cleanup releases the server and the context.
func (env *testEnv) cleanup() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = env.server.Stop(ctx)
	env.cancel()
}

// request performs one HTTP request against the running server. A nil
// body sends an empty request; a non-nil body is sent as JSON. An empty
// token makes the request anonymous.
func (env *testEnv) request(method, path, token string, body any) (int, []byte) {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		ExpectWithOffset(1, err).NotTo(HaveOccurred())
		reader = bytes.NewReader(encoded)
	}
	req, err := http.NewRequestWithContext(env.ctx, method, env.base+path, reader)
	ExpectWithOffset(1, err).NotTo(HaveOccurred())
	if token != "" {
		req.Header.Set("PRIVATE-TOKEN", token)
	}

	resp, err := http.DefaultClient.Do(req)
	ExpectWithOffset(1, err).NotTo(HaveOccurred())
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	ExpectWithOffset(1, err).NotTo(HaveOccurred())
	return resp.StatusCode, payload
}

// authorize queries the decision endpoint. An empty subject asks about
// anonymous access.
func (env *testEnv) authorize(subject, action, project string) api.DecisionPayload {
	q := url.Values{}
	q.Set("action", action)
	q.Set("project", project)
	if subject != "" {
		q.Set("subject", subject)
	}
	status, body := env.request(http.MethodGet, "/api/v4/authorize?"+q.Encode(), "", nil)
	ExpectWithOffset(1, status).To(Equal(http.StatusOK), "authorize failed: %s", string(body))

	var decision api.DecisionPayload
	ExpectWithOffset(1, json.Unmarshal(body, &decision)).To(Succeed())
	return decision
}

func errorMessage(body []byte) string {
	var wire struct {
		Message string `json:"message"`
	}
	ExpectWithOffset(1, json.Unmarshal(body, &wire)).To(Succeed())
	return wire.Message
}

var _ = Describe("API Server", func() {
	var env *testEnv

	BeforeEach(func() {
		var err error
		env, err = setupTestEnv()
		Expect(err).NotTo(HaveOccurred())

		// Wait for the listener to accept connections.
		Eventually(func() bool {
			conn, err := net.DialTimeout("tcp", env.server.Addr(), 100*time.Millisecond)
			if err != nil {
				return false
			}
			conn.Close()
			return true
		}).Should(BeTrue())
	})

	AfterEach(func() {
		env.cleanup()
	})

	Describe("Project Visibility", func() {
		It("serves a public project to anonymous callers", func() {
			status, body := env.request(http.MethodGet, "/api/v4/projects/engineering%2Fsite", "", nil)
			Expect(status).To(Equal(http.StatusOK))

			var project api.ProjectPayload
			Expect(json.Unmarshal(body, &project)).To(Succeed())
			Expect(project.PathWithNamespace).To(Equal("engineering/site"))
			Expect(project.Visibility).To(Equal("public"))
			Expect(project.WebURL).To(Equal("http://forge.test/engineering/site"))
			Expect(project.DefaultBranch).To(Equal(forge.DefaultBranchName))
		})

		It("answers identically for hidden and missing projects", func() {
			hiddenStatus, hiddenBody := env.request(http.MethodGet, "/api/v4/projects/"+widgetPath, "", nil)
			missingStatus, missingBody := env.request(http.MethodGet, "/api/v4/projects/engineering%2Fnope", "", nil)

			Expect(hiddenStatus).To(Equal(http.StatusNotFound))
			Expect(missingStatus).To(Equal(http.StatusNotFound))
			Expect(errorMessage(hiddenBody)).To(Equal(errorMessage(missingBody)),
				"a caller must not be able to probe for private projects")
		})

		It("serves a private project to a member", func() {
			status, body := env.request(http.MethodGet, "/api/v4/projects/"+widgetPath, env.tokens["bob"], nil)
			Expect(status).To(Equal(http.StatusOK), "body: %s", string(body))

			var project api.ProjectPayload
			Expect(json.Unmarshal(body, &project)).To(Succeed())
			Expect(project.Name).To(Equal("Widget"))
			Expect(project.Namespace.FullPath).To(Equal("engineering/backend-team"))
		})

		It("rejects unknown tokens", func() {
			status, body := env.request(http.MethodGet, "/api/v4/projects/"+widgetPath, "bogus-token", nil)
			Expect(status).To(Equal(http.StatusUnauthorized))
			Expect(errorMessage(body)).To(Equal("401 Unauthorized"))
		})
	})

	Describe("Authorization Decisions", func() {
		It("resolves inherited levels over the wire", func() {
			decision := env.authorize("bob", "contribute", widgetPath)
			Expect(decision.Allowed).To(BeTrue(), "bob inherits developer from the backend group")
			Expect(decision.Level).To(Equal("developer"))

			decision = env.authorize("bob", "edit", widgetPath)
			Expect(decision.Allowed).To(BeFalse(), "developer is below maintainer")

			decision = env.authorize("alice", "edit", widgetPath)
			Expect(decision.Allowed).To(BeTrue())
			Expect(decision.Level).To(Equal("maintainer"))
		})

		It("denies anonymous access to private projects", func() {
			decision := env.authorize("", "view", widgetPath)
			Expect(decision.Allowed).To(BeFalse())
			Expect(decision.Level).To(BeEmpty())
		})

		It("gives admins powers but not membership", func() {
			decision := env.authorize("root", "edit", widgetPath)
			Expect(decision.Allowed).To(BeTrue(), "admins bypass level checks")

			decision = env.authorize("root", "owner", widgetPath)
			Expect(decision.Allowed).To(BeFalse(), "the owner predicate carries no admin bypass")
			Expect(decision.Level).To(BeEmpty())
		})
	})

	Describe("Fork and Merge Request Workflow", func() {
		It("completes the full fork and merge request workflow", func() {
			upstream, ok := env.world.Store.ProjectByPath("engineering/backend-team/widget")
			Expect(ok).To(BeTrue())

			By("Step 1: Fork the upstream into bob's personal namespace")
			status, body := env.request(http.MethodPost, "/api/v4/projects/"+widgetPath+"/fork", env.tokens["bob"], nil)
			Expect(status).To(Equal(http.StatusCreated), "fork failed: %s", string(body))

			var fork api.ProjectPayload
			Expect(json.Unmarshal(body, &fork)).To(Succeed())
			Expect(fork.PathWithNamespace).To(Equal("bob/widget"))
			Expect(fork.ForkedFromID).To(Equal(upstream.ID.String()))
			Expect(fork.ImportStatus).To(Equal("finished"))

			By("Step 2: Verify bob owns the fork regardless of his upstream level")
			decision := env.authorize("bob", "owner", "bob%2Fwidget")
			Expect(decision.Allowed).To(BeTrue())
			Expect(decision.Level).To(Equal("owner"))

			By("Step 3: Open a merge request on the fork")
			status, body = env.request(http.MethodPost, "/api/v4/projects/"+fork.ID+"/merge_requests", env.tokens["bob"],
				map[string]string{"source_branch": "feature/login", "title": "Add login"})
			Expect(status).To(Equal(http.StatusCreated), "merge request failed: %s", string(body))

			var mr api.MergeRequestPayload
			Expect(json.Unmarshal(body, &mr)).To(Succeed())
			Expect(mr.IID).To(Equal(1))
			Expect(mr.State).To(Equal("opened"))
			Expect(mr.SourceBranch).To(Equal("feature/login"))
			Expect(mr.TargetBranch).To(Equal(forge.DefaultBranchName), "empty target means the default branch")
			Expect(mr.Author.Username).To(Equal("bob"))

			By("Step 4: Reject a push to the protected upstream mainline by a developer")
			status, body = env.request(http.MethodPost, "/api/v4/projects/"+widgetPath+"/merge_requests", env.tokens["bob"],
				map[string]string{"source_branch": "feature/login", "title": "Add login"})
			Expect(status).To(Equal(http.StatusForbidden))
			Expect(errorMessage(body)).To(Equal("403 Forbidden"))

			By("Step 5: Accept the same push from a maintainer")
			status, body = env.request(http.MethodPost, "/api/v4/projects/"+widgetPath+"/merge_requests", env.tokens["alice"],
				map[string]string{"source_branch": "feature/login", "title": "Add login"})
			Expect(status).To(Equal(http.StatusCreated), "merge request failed: %s", string(body))

			By("Step 6: Report bob's inherited membership on the upstream")
			bob, ok := env.world.Store.UserByUsername("bob")
			Expect(ok).To(BeTrue())
			status, body = env.request(http.MethodGet,
				"/api/v4/projects/"+widgetPath+"/members/all/"+bob.ID.String(), env.tokens["alice"], nil)
			Expect(status).To(Equal(http.StatusOK))

			var member api.MemberPayload
			Expect(json.Unmarshal(body, &member)).To(Succeed())
			Expect(member.Username).To(Equal("bob"))
			Expect(member.AccessLevel).To(Equal(int(forge.AccessLevelDeveloper)))

			By("Step 7: Register a runner as the maintainer")
			status, body = env.request(http.MethodPost, "/api/v4/projects/"+widgetPath+"/runners", env.tokens["alice"],
				map[string]any{"name": "ci-shell-1", "description": "shell executor"})
			Expect(status).To(Equal(http.StatusCreated), "runner registration failed: %s", string(body))

			var runner api.RunnerPayload
			Expect(json.Unmarshal(body, &runner)).To(Succeed())
			Expect(runner.Name).To(Equal("ci-shell-1"))
			Expect(runner.Active).To(BeTrue())

			By("Step 8: Clean shutdown")
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			Expect(env.server.Stop(ctx)).To(Succeed())
			Expect(env.server.Running()).To(BeFalse())
			Eventually(env.errCh).Should(BeClosed())
		})
	})

	Describe("Server Lifecycle", func() {
		It("refuses to start twice", func() {
			_, err := env.server.Start()
			Expect(err).To(HaveOccurred())
			Expect(env.server.Running()).To(BeTrue(), "the running server stays up")
		})
	})
})
