package main

import (
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"github.com/WessleyAI/legisearch/engine/ingest"
	"github.com/WessleyAI/legisearch/engine/legis"
)

// printReport writes a human summary of r, or JSON when asJSON is set.
func printReport(w io.Writer, scope string, r ingest.RunReport, asJSON bool) error {
	if asJSON {
		data, err := marshalReport(scope, r)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(w, "%s\n", data)
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Summary for %s\n", scope)
	fmt.Fprintf(tw, "  bills processed:\t%d / %d\n", r.BillsProcessed, r.BillsSeen)
	fmt.Fprintf(tw, "  embeddings created:\t%d\n", r.EmbeddingsCreated)
	fmt.Fprintf(tw, "  average per bill:\t%.1f\n", r.AveragePerBill())
	fmt.Fprintf(tw, "  documents:\t%d succeeded, %d skipped, %d failed\n",
		r.DocumentsSucceeded, r.DocumentsSkipped, r.DocumentsFailed)
	fmt.Fprintf(tw, "  duration:\t%s\n", r.Duration.Round(1e6))
	if err := tw.Flush(); err != nil {
		return err
	}

	if len(r.Failures) == 0 {
		return nil
	}
	kinds := r.FailureKinds()
	names := make([]string, 0, len(kinds))
	for k := range kinds {
		names = append(names, string(k))
	}
	sort.Strings(names)
	fmt.Fprintf(w, "Failures (%d):\n", len(r.Failures))
	for _, k := range names {
		fmt.Fprintf(w, "  %s: %d\n", k, kinds[legis.ErrorKind(k)])
	}
	for _, f := range r.Failures {
		fmt.Fprintf(w, "  - %s [%s] %s\n", f.Unit, f.Kind, f.Message)
	}
	return nil
}
