// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ForgeSim Contributors

//go:build integration

package forge_test

import (
	"testing"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention
)

func TestForgeIntegration(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Forge Lifecycle Suite")
}
