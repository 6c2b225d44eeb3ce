// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ForgeSim Contributors

//go:build integration

package forge_test

import (
	"errors"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/forgesim/forgesim/internal/access"
	"github.com/forgesim/forgesim/internal/forge"
	"github.com/forgesim/forgesim/internal/repo"
	"github.com/forgesim/forgesim/pkg/errutil"
)

var _ = Describe("Forge Lifecycle", func() {
	var (
		store   *forge.Store
		gate    *access.Gate
		service *forge.Service
		admin   *forge.User
		alice   *forge.User
		bob     *forge.User
		carol   *forge.User
	)

	BeforeEach(func() {
		store = forge.NewStore(repo.Factory)
		gate = access.NewGate(access.NewResolver(store))
		service = forge.NewService(forge.ServiceConfig{Store: store, Gate: gate})

		var err error
		admin, err = store.AddUser("root", "Administrator", true)
		Expect(err).NotTo(HaveOccurred())
		alice, err = store.AddUser("alice", "Alice Liddell", false)
		Expect(err).NotTo(HaveOccurred())
		bob, err = store.AddUser("bob", "Bob Stone", false)
		Expect(err).NotTo(HaveOccurred())
		carol, err = store.AddUser("carol", "Carol Quinn", false)
		Expect(err).NotTo(HaveOccurred())
	})

	It("runs a company forge from scaffold to teardown", func() {
		By("Step 1: The admin scaffolds the company namespace")
		acme, err := service.CreateGroup(admin, "Acme", nil)
		Expect(err).NotTo(HaveOccurred())
		ownerGrant, err := forge.NewUserGrant(alice.ID, forge.AccessLevelOwner)
		Expect(err).NotTo(HaveOccurred())
		Expect(service.AddGrant(admin, acme.ID, ownerGrant)).To(Succeed())

		By("Step 2: The owner builds out a team")
		platform, err := service.CreateGroup(alice, "Platform Team", &acme.ID)
		Expect(err).NotTo(HaveOccurred())
		devGrant, err := forge.NewUserGrant(bob.ID, forge.AccessLevelDeveloper)
		Expect(err).NotTo(HaveOccurred())
		Expect(service.AddGrant(alice, platform.ID, devGrant)).To(Succeed())

		By("Step 3: A developer starts a project")
		project, err := service.CreateProject(bob, platform.ID, "Widget", forge.VisibilityPrivate)
		Expect(err).NotTo(HaveOccurred())
		path, err := store.ProjectPathWithNamespace(project)
		Expect(err).NotTo(HaveOccurred())
		Expect(path).To(Equal("acme/platform-team/widget"))

		By("Step 4: Levels flow down from the ancestor groups")
		level, ok, err := gate.EffectiveLevel(alice, project)
		Expect(err).NotTo(HaveOccurred())
		Expect(ok).To(BeTrue())
		Expect(level).To(Equal(forge.AccessLevelOwner), "alice inherits owner from the company group")

		visible, err := gate.CanView(carol, project)
		Expect(err).NotTo(HaveOccurred())
		Expect(visible).To(BeFalse())
		_, err = service.ViewProject(carol, project.ID)
		Expect(errutil.Code(err)).To(Equal("FORGE_PROJECT_NOT_FOUND"), "hidden must read as missing")

		By("Step 5: Sharing with a group brings its members in")
		qa, err := store.CreateGroup("QA", nil)
		Expect(err).NotTo(HaveOccurred())
		reporterGrant, err := forge.NewUserGrant(carol.ID, forge.AccessLevelReporter)
		Expect(err).NotTo(HaveOccurred())
		Expect(qa.AddGrant(reporterGrant)).To(Succeed())
		Expect(service.AddGrant(alice, project.ID, forge.NewGroupGrant(qa.ID))).To(Succeed())

		visible, err = gate.CanView(carol, project)
		Expect(err).NotTo(HaveOccurred())
		Expect(visible).To(BeTrue())
		contribute, err := gate.CanContribute(carol, project)
		Expect(err).NotTo(HaveOccurred())
		Expect(contribute).To(BeFalse(), "the share confers reporter, below developer")

		By("Step 6: The owner protects the mainline")
		_, err = service.ProtectBranch(alice, project.ID, forge.DefaultBranchName, forge.AccessLevelMaintainer)
		Expect(err).NotTo(HaveOccurred())

		_, err = service.OpenMergeRequest(bob, project.ID, "feature/login", "", "Add login", "")
		Expect(errors.Is(err, forge.ErrPermissionDenied)).To(BeTrue(),
			"a developer may not target the protected mainline")

		mr, err := service.OpenMergeRequest(alice, project.ID, "feature/login", "", "Add login", "")
		Expect(err).NotTo(HaveOccurred())
		Expect(mr.IID).To(Equal(1))
		Expect(mr.TargetBranch).To(Equal(forge.DefaultBranchName))

		By("Step 7: The developer forks around the protection")
		fork, err := service.Fork(bob, project.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(fork.ForkedFromID).NotTo(BeNil())
		Expect(*fork.ForkedFromID).To(Equal(project.ID))
		forkPath, err := store.ProjectPathWithNamespace(fork)
		Expect(err).NotTo(HaveOccurred())
		Expect(forkPath).To(Equal("bob/widget"))
		Expect(fork.ProtectedBranches()).To(BeEmpty(), "protections do not follow the fork")

		mr, err = service.OpenMergeRequest(bob, fork.ID, "feature/login", "", "Add login", "")
		Expect(err).NotTo(HaveOccurred())
		Expect(mr.IID).To(Equal(1), "fork iids count from one")
		Expect(fork.Repo.Branches()).To(ContainElements(forge.DefaultBranchName, "feature/login"))

		By("Step 8: Membership reporting matches the resolution")
		memberLevel, err := service.MemberLevel(alice, project.ID, bob.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(memberLevel).To(Equal(forge.AccessLevelDeveloper))

		_, err = service.MemberLevel(alice, project.ID, admin.ID)
		Expect(errutil.Code(err)).To(Equal("FORGE_MEMBER_NOT_FOUND"), "admin powers are not membership")

		By("Step 9: Only the owner can retire the project")
		err = service.RemoveProject(bob, project.ID)
		Expect(errors.Is(err, forge.ErrPermissionDenied)).To(BeTrue())

		Expect(service.RemoveProject(alice, project.ID)).To(Succeed())
		_, ok = store.Project(project.ID)
		Expect(ok).To(BeFalse())
		Expect(platform.Projects()).NotTo(ContainElement(project.ID))
	})

	It("tracks origin across fork chains and rejects colliding forks", func() {
		openSource, err := store.CreateGroup("Open Source", nil)
		Expect(err).NotTo(HaveOccurred())
		tool, err := store.CreateProject(openSource.ID, "Tool", forge.VisibilityPublic)
		Expect(err).NotTo(HaveOccurred())

		first, err := service.Fork(bob, tool.ID)
		Expect(err).NotTo(HaveOccurred())
		second, err := service.Fork(carol, first.ID)
		Expect(err).NotTo(HaveOccurred())

		Expect(*first.ForkedFromID).To(Equal(tool.ID))
		Expect(*second.ForkedFromID).To(Equal(first.ID), "origin points to the immediate parent, not the root")
		Expect(second.Repo).NotTo(BeIdenticalTo(first.Repo), "each fork gets its own repository")

		_, err = service.Fork(bob, tool.ID)
		Expect(errutil.Code(err)).To(Equal("FORGE_PATH_TAKEN"),
			"a second fork would collide in the personal namespace")

		owner, err := gate.IsOwner(carol, second)
		Expect(err).NotTo(HaveOccurred())
		Expect(owner).To(BeTrue())
		member, err := gate.IsMember(carol, first)
		Expect(err).NotTo(HaveOccurred())
		Expect(member).To(BeFalse(), "forking grants nothing on the source")
	})

	It("lets an admin operate everywhere without appearing as a member", func() {
		team, err := store.CreateGroup("Skunkworks", nil)
		Expect(err).NotTo(HaveOccurred())
		secret, err := store.CreateProject(team.ID, "Secret", forge.VisibilityPrivate)
		Expect(err).NotTo(HaveOccurred())
		_, err = secret.ProtectBranch(forge.DefaultBranchName, forge.AccessLevelOwner)
		Expect(err).NotTo(HaveOccurred())

		visible, err := gate.CanView(admin, secret)
		Expect(err).NotTo(HaveOccurred())
		Expect(visible).To(BeTrue())
		edit, err := gate.CanEdit(admin, secret)
		Expect(err).NotTo(HaveOccurred())
		Expect(edit).To(BeTrue())

		member, err := gate.IsMember(admin, secret)
		Expect(err).NotTo(HaveOccurred())
		Expect(member).To(BeFalse())

		mr, err := service.OpenMergeRequest(admin, secret.ID, "hotfix/crash", "", "Fix crash", "")
		Expect(err).NotTo(HaveOccurred(), "admins pass even owner-level branch protections")
		Expect(mr.State).To(Equal(forge.MergeRequestOpened))
	})
})
