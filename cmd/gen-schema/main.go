// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ForgeSim Contributors

// Command gen-schema writes the world fixture JSON Schema to a file or
// to stdout.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/forgesim/forgesim/internal/fixture"
)

func main() {
	out := flag.String("out", filepath.Join("schemas", "fixture.schema.json"), `output path ("-" for stdout)`)
	flag.Parse()

	schema, err := fixture.GenerateSchema()
	if err != nil {
		fmt.Fprintf(os.Stderr, "generate schema: %v\n", err)
		os.Exit(1)
	}

	if *out == "-" {
		if _, err := os.Stdout.Write(schema); err != nil {
			os.Exit(1)
		}
		return
	}

	if err := os.MkdirAll(filepath.Dir(*out), 0o750); err != nil {
		fmt.Fprintf(os.Stderr, "create output directory: %v\n", err)
		os.Exit(1)
	}
	if err := os.WriteFile(*out, schema, 0o600); err != nil {
		fmt.Fprintf(os.Stderr, "write schema: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Generated %s\n", *out)
}
