// Package main provides knwctl, the operator CLI: it validates rules
// content, resolves development tracks and imports compendium packs.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
