package usecase

import (
	"bufio"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/m-mizutani/covcomment/pkg/domain"
	"github.com/m-mizutani/covcomment/pkg/domain/model"
	"github.com/m-mizutani/goerr/v2"
)

const maxLcovLineSize = 1 << 20

// lcovFile accumulates every record seen for one source path. Detail lines
// (DA, BRDA, FN/FNDA) are kept as sets so repeated records merge correctly;
// summary lines (LF, BRF, FNF, ...) are only used when no detail was given.
type lcovFile struct {
	lines     map[int]bool
	branches  map[string]bool
	functions map[string]bool

	lf, lh, brf, brh, fnf, fnh int
}

func newLcovFile() *lcovFile {
	return &lcovFile{
		lines:     make(map[int]bool),
		branches:  make(map[string]bool),
		functions: make(map[string]bool),
	}
}

func (f *lcovFile) coverage(path string) model.FileCoverage {
	cov := model.FileCoverage{Path: path}

	if len(f.lines) > 0 {
		cov.Lines = countSet(f.lines)
	} else {
		cov.Lines = model.Counter{Found: f.lf, Hit: f.lh}
	}
	if len(f.branches) > 0 {
		cov.Branches = countSet(f.branches)
	} else {
		cov.Branches = model.Counter{Found: f.brf, Hit: f.brh}
	}
	if len(f.functions) > 0 {
		cov.Functions = countSet(f.functions)
	} else {
		cov.Functions = model.Counter{Found: f.fnf, Hit: f.fnh}
	}

	return cov
}

func countSet[K comparable](set map[K]bool) model.Counter {
	c := model.Counter{Found: len(set)}
	for _, hit := range set {
		if hit {
			c.Hit++
		}
	}
	return c
}

// ParseLcov reads an lcov tracefile into a CoverageReport. Only the fields
// needed for line, branch and function totals are interpreted.
func ParseLcov(r io.Reader) (*model.CoverageReport, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLcovLineSize)

	files := make(map[string]*lcovFile)
	var order []string
	var current *lcovFile
	lineNo := 0

	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "end_of_record" {
			current = nil
			continue
		}

		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}

		if key == "SF" {
			if value == "" {
				return nil, lcovError("empty source file path", lineNo, line)
			}
			if _, exists := files[value]; !exists {
				files[value] = newLcovFile()
				order = append(order, value)
			}
			current = files[value]
			continue
		}

		if current == nil {
			switch key {
			case "DA", "LF", "LH", "BRDA", "BRF", "BRH", "FN", "FNDA", "FNF", "FNH":
				return nil, lcovError("coverage data outside of a source file record", lineNo, line)
			}
			continue
		}

		if err := current.apply(key, value); err != nil {
			return nil, goerr.Wrap(err, "malformed lcov line",
				goerr.V("line_no", lineNo),
				goerr.V("line", line),
			)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, domain.ErrParse.Wrap(err)
	}

	if len(order) == 0 {
		return nil, goerr.Wrap(domain.ErrParse, "no coverage records in lcov data")
	}

	report := &model.CoverageReport{Files: make([]model.FileCoverage, 0, len(order))}
	for _, path := range order {
		report.Files = append(report.Files, files[path].coverage(path))
	}

	return report, nil
}

func (f *lcovFile) apply(key, value string) error {
	switch key {
	case "DA":
		// DA:<line>,<hits>[,<checksum>]
		fields := strings.Split(value, ",")
		if len(fields) < 2 {
			return goerr.Wrap(domain.ErrParse, "DA needs line and hit count")
		}
		line, err := parseCount(fields[0])
		if err != nil {
			return err
		}
		hits, err := parseHits(fields[1])
		if err != nil {
			return err
		}
		f.lines[line] = f.lines[line] || hits > 0

	case "BRDA":
		// BRDA:<line>,<block>,<branch>,<taken|->
		fields := strings.Split(value, ",")
		if len(fields) != 4 {
			return goerr.Wrap(domain.ErrParse, "BRDA needs line, block, branch and taken")
		}
		taken := 0
		if fields[3] != "-" {
			n, err := parseHits(fields[3])
			if err != nil {
				return err
			}
			taken = n
		}
		id := fields[0] + "," + fields[1] + "," + fields[2]
		f.branches[id] = f.branches[id] || taken > 0

	case "FN":
		// FN:<line>,<name> or FN:<start>,<end>,<name> in lcov 2.x. The name
		// may contain commas, so only leading numeric fields are split off.
		lineRaw, name, ok := strings.Cut(value, ",")
		if !ok || name == "" {
			return goerr.Wrap(domain.ErrParse, "FN needs line and name")
		}
		if _, err := parseCount(lineRaw); err != nil {
			return err
		}
		if endRaw, rest, ok := strings.Cut(name, ","); ok && rest != "" {
			if _, err := strconv.Atoi(endRaw); err == nil {
				name = rest
			}
		}
		if _, ok := f.functions[name]; !ok {
			f.functions[name] = false
		}

	case "FNDA":
		// FNDA:<hits>,<name>
		hitsRaw, name, ok := strings.Cut(value, ",")
		if !ok || name == "" {
			return goerr.Wrap(domain.ErrParse, "FNDA needs hit count and name")
		}
		hits, err := parseHits(hitsRaw)
		if err != nil {
			return err
		}
		f.functions[name] = f.functions[name] || hits > 0

	case "LF", "LH", "BRF", "BRH", "FNF", "FNH":
		n, err := parseCount(value)
		if err != nil {
			return err
		}
		switch key {
		case "LF":
			f.lf += n
		case "LH":
			f.lh += n
		case "BRF":
			f.brf += n
		case "BRH":
			f.brh += n
		case "FNF":
			f.fnf += n
		case "FNH":
			f.fnh += n
		}
	}

	return nil
}

func parseCount(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, domain.ErrParse.Wrap(err)
	}
	if n < 0 {
		return 0, goerr.Wrap(domain.ErrParse, "negative count", goerr.V("value", s))
	}
	return n, nil
}

// parseHits accepts float hit counts, which some generators emit for large values.
func parseHits(s string) (int, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		if n < 0 {
			return 0, goerr.Wrap(domain.ErrParse, "negative hit count", goerr.V("value", s))
		}
		return n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, domain.ErrParse.Wrap(err)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, goerr.Wrap(domain.ErrParse, "hit count is not finite", goerr.V("value", s))
	}
	if f < 0 {
		return 0, goerr.Wrap(domain.ErrParse, "negative hit count", goerr.V("value", s))
	}
	if f > 0 && f < 1 {
		return 1, nil
	}
	if f > math.MaxInt32 {
		return math.MaxInt32, nil
	}
	return int(f), nil
}

func lcovError(msg string, lineNo int, line string) error {
	return goerr.Wrap(domain.ErrParse, msg,
		goerr.V("line_no", lineNo),
		goerr.V("line", line),
	)
}
