package downloader

import "strings"

// Status classifies the result of a single download attempt. One attempt
// is terminal for that track in a run; retrying is the caller's choice.
type Status string

const (
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
	StatusTimedOut  Status = "timed_out"
)

// Outcome records the classification of exactly one track URL, together
// with the diagnostic lines captured from the tool's combined output.
type Outcome struct {
	URL         string
	Status      Status
	Diagnostics []string
}

// ProgressFunc is invoked after each track completes, whatever the
// outcome, with the number of processed tracks and the batch total.
type ProgressFunc func(completed, total int)

// Partition splits outcomes into the per-status URL sets, preserving
// input order within each set.
func Partition(outcomes []Outcome) (succeeded, failed, timedOut []string) {
	for _, o := range outcomes {
		switch o.Status {
		case StatusSucceeded:
			succeeded = append(succeeded, o.URL)
		case StatusTimedOut:
			timedOut = append(timedOut, o.URL)
		default:
			failed = append(failed, o.URL)
		}
	}
	return succeeded, failed, timedOut
}

// Keyword heuristics for surfacing the interesting lines of spotDL's
// output. Reporting only, never used for classification.
var (
	successKeywords = []string{"saved", "converting", "found", "skipping"}
	failureKeywords = []string{"error", "failed", "not found", "skipping"}
)

// filterLines returns the trimmed output lines containing any of the
// given keywords, case-insensitively.
func filterLines(output string, keywords []string) []string {
	var matched []string
	for _, line := range strings.Split(output, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		lower := strings.ToLower(line)
		for _, keyword := range keywords {
			if strings.Contains(lower, keyword) {
				matched = append(matched, line)
				break
			}
		}
	}
	return matched
}
