package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/msrp-tools/msrp-contract-tests/framework/ldtest"
)

func printResults(out io.Writer, results ldtest.Results) {
	var ran, skipped int
	for _, r := range results.Tests {
		switch {
		case len(r.TestID.Path) == 0:
		case r.Skipped:
			skipped++
		default:
			ran++
		}
	}
	if results.OK() {
		passedColor.Fprintf(out, "All tests passed")
		fmt.Fprintf(out, " (%d run, %d skipped)\n", ran, skipped)
		return
	}
	failedColor.Fprintf(out, "%d test(s) failed", len(results.Failures))
	fmt.Fprintf(out, " (%d run, %d skipped):\n", ran, skipped)
	for _, f := range results.Failures {
		fmt.Fprintf(out, "  %s\n", f.TestID)
	}
}

type jsonResults struct {
	OK       bool          `json:"ok"`
	Tests    []string      `json:"tests"`
	Skipped  []string      `json:"skipped"`
	Failures []jsonFailure `json:"failures"`
}

type jsonFailure struct {
	Test   string   `json:"test"`
	Errors []string `json:"errors"`
}

func writeJSONResults(out io.Writer, results ldtest.Results) error {
	ret := jsonResults{OK: results.OK(), Tests: []string{}, Skipped: []string{}, Failures: []jsonFailure{}}
	for _, r := range results.Tests {
		if len(r.TestID.Path) == 0 {
			continue
		}
		if r.Skipped {
			ret.Skipped = append(ret.Skipped, r.TestID.String())
		} else {
			ret.Tests = append(ret.Tests, r.TestID.String())
		}
	}
	for _, f := range results.Failures {
		failure := jsonFailure{Test: f.TestID.String(), Errors: []string{}}
		for _, err := range f.Errors {
			failure.Errors = append(failure.Errors, err.Error())
		}
		ret.Failures = append(ret.Failures, failure)
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(ret)
}
