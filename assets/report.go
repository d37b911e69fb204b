package assets

import "fmt"

// Report aggregates results of processing a directory, in source name order.
type Report struct {
	Results []*Result
}

// Failed returns results of sources which were skipped because of errors.
func (r *Report) Failed() []*Result {
	var failed []*Result
	for _, v := range r.Results {
		if !v.OK() {
			failed = append(failed, v)
		}
	}
	return failed
}

// Artifacts returns all written artifacts.
func (r *Report) Artifacts() []Artifact {
	var a []Artifact
	for _, v := range r.Results {
		a = append(a, v.Artifacts...)
	}
	return a
}

func (r *Report) String() string {
	var minified, copied, failed int
	var in, out int64
	for _, v := range r.Results {
		switch {
		case !v.OK():
			failed++
			continue
		case v.Copied:
			copied++
		default:
			minified++
		}
		in += v.InSize
		for _, a := range v.Artifacts {
			out += a.Size
		}
	}
	return fmt.Sprintf("minified %d, copied %d, skipped %d (%d → %d bytes)",
		minified, copied, failed, in, out)
}
