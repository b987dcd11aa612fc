package model

import "sort"

// Counter is a found/hit pair for one kind of coverage.
type Counter struct {
	Found int
	Hit   int
}

// Percent returns the hit ratio in percent. Nothing to cover counts as fully covered.
func (c Counter) Percent() float64 {
	if c.Found == 0 {
		return 100
	}
	return float64(c.Hit) * 100 / float64(c.Found)
}

func (c Counter) Add(other Counter) Counter {
	return Counter{
		Found: c.Found + other.Found,
		Hit:   c.Hit + other.Hit,
	}
}

type FileCoverage struct {
	Path      string
	Lines     Counter
	Branches  Counter
	Functions Counter
}

// CoverageReport is parsed line/branch/function coverage keyed by file path.
type CoverageReport struct {
	Files []FileCoverage
}

// Totals sums the counters of every file.
func (r *CoverageReport) Totals() FileCoverage {
	var total FileCoverage
	if r == nil {
		return total
	}
	for _, f := range r.Files {
		total.Lines = total.Lines.Add(f.Lines)
		total.Branches = total.Branches.Add(f.Branches)
		total.Functions = total.Functions.Add(f.Functions)
	}
	return total
}

// Sorted returns a copy of the files ordered by path.
func (r *CoverageReport) Sorted() []FileCoverage {
	if r == nil {
		return nil
	}
	files := make([]FileCoverage, len(r.Files))
	copy(files, r.Files)
	sort.SliceStable(files, func(i, j int) bool {
		a, b := files[i], files[j]
		if a.Path != b.Path {
			return a.Path < b.Path
		}
		if a.Lines != b.Lines {
			return a.Lines.Found < b.Lines.Found || (a.Lines.Found == b.Lines.Found && a.Lines.Hit < b.Lines.Hit)
		}
		return a.Branches.Found < b.Branches.Found
	})
	return files
}
