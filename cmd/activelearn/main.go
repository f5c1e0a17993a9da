// Command activelearn compares pool-based active learning strategies on a
// text corpus. Each selected strategy grows the training set one acquired
// item at a time and records test accuracy after every round; the resulting
// learning curves are printed as a table.
//
// Usage:
//
//	go run ./cmd/activelearn -a -n 100 --seed 1 [--config configs/activelearn.yaml]
//	go run ./cmd/activelearn -m -e --lr2 1.0 -b 1 --store --publish
//	go run ./cmd/activelearn curves <run-id>
//	go run ./cmd/activelearn cache flush
package main

import (
	"fmt"
	"os"

	apperrors "github.com/Adithya-Monish-Kumar-K/activelearn/pkg/errors"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "activelearn: %v\n", err)
		os.Exit(apperrors.ExitCode(err))
	}
}
