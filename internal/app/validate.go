package app

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"skywatch.earth/skywatch/internal/corpus"
)

// validate checks externally maintained corpus snapshot documents against
// their schemas before an operator imports them. No database access.
func runValidate(args []string) int {
	fs := flag.NewFlagSet("validate", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	termsPath := fs.String("terms", "", "Path to the term snapshot JSON document")
	provenancePath := fs.String("provenance", "", "Path to the provenance snapshot JSON document")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "validate does not accept positional arguments")
		return 2
	}
	if *termsPath == "" || *provenancePath == "" {
		fmt.Fprintln(os.Stderr, "--terms and --provenance are required")
		return 2
	}

	snap, err := corpus.LoadDocuments(*termsPath, *provenancePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Validation failed: %v\n", err)
		return 1
	}

	fmt.Printf("validate version=%s total_documents=%d terms=%d provenance_entries=%d\n",
		snap.Version, snap.TotalDocs, snap.TermCount(), snap.ProvenanceCount())
	return 0
}
