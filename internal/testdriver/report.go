package testdriver

import (
	"encoding/xml"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/gt-coar/coarbuild/internal/errors"
)

// JUnit report model, the only shape the driver understands. Reports
// are consumed purely as aggregation input.

// TestSuites is the <testsuites> document root
type TestSuites struct {
	XMLName  xml.Name    `xml:"testsuites"`
	Tests    int         `xml:"tests,attr"`
	Failures int         `xml:"failures,attr"`
	Errors   int         `xml:"errors,attr"`
	Skipped  int         `xml:"skipped,attr"`
	Suites   []TestSuite `xml:"testsuite"`
}

// TestSuite is one <testsuite> element
type TestSuite struct {
	Name     string     `xml:"name,attr"`
	Tests    int        `xml:"tests,attr"`
	Failures int        `xml:"failures,attr"`
	Errors   int        `xml:"errors,attr"`
	Skipped  int        `xml:"skipped,attr"`
	Cases    []TestCase `xml:"testcase"`
}

// TestCase is one <testcase> element
type TestCase struct {
	ClassName string   `xml:"classname,attr"`
	Name      string   `xml:"name,attr"`
	Failure   *Verdict `xml:"failure,omitempty"`
	Error     *Verdict `xml:"error,omitempty"`
	Skipped   *Verdict `xml:"skipped,omitempty"`
}

// Verdict carries a non-pass outcome's message
type Verdict struct {
	Message string `xml:"message,attr,omitempty"`
	Body    string `xml:",chardata"`
}

// ID returns the stable identity of a case across attempts
func (c TestCase) ID() string {
	return c.ClassName + "." + c.Name
}

// ReadReport parses a JUnit XML file, accepting either a <testsuites>
// or a bare <testsuite> document root.
func ReadReport(path string) (*TestSuites, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read report %s: %w", path, err)
	}

	var suites TestSuites
	if err := xml.Unmarshal(data, &suites); err == nil && len(suites.Suites) > 0 {
		return &suites, nil
	}

	var suite TestSuite
	if err := xml.Unmarshal(data, &suite); err != nil {
		return nil, errors.Wrap(errors.ErrCodeTestReportMerge,
			fmt.Sprintf("report %s is not JUnit XML", path), err)
	}
	return &TestSuites{Suites: []TestSuite{suite}}, nil
}

// MergeReports aggregates attempt reports into one combined document.
// A case's verdict from a later attempt replaces its earlier one, so a
// retried-and-passed case counts as passed. Missing files are skipped;
// merging zero readable reports is an error.
func MergeReports(paths []string, out string) (*TestSuites, error) {
	cases := make(map[string]TestCase)
	read := 0

	for _, path := range paths {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		report, err := ReadReport(path)
		if err != nil {
			return nil, err
		}
		read++
		for _, suite := range report.Suites {
			for _, c := range suite.Cases {
				cases[c.ID()] = c
			}
		}
	}

	if read == 0 {
		return nil, errors.New(errors.ErrCodeTestReportMerge,
			fmt.Sprintf("no attempt reports found among %s", strings.Join(paths, ", ")))
	}

	ids := make([]string, 0, len(cases))
	for id := range cases {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	combined := TestSuite{Name: "combined"}
	for _, id := range ids {
		c := cases[id]
		combined.Cases = append(combined.Cases, c)
		combined.Tests++
		switch {
		case c.Failure != nil:
			combined.Failures++
		case c.Error != nil:
			combined.Errors++
		case c.Skipped != nil:
			combined.Skipped++
		}
	}

	doc := &TestSuites{
		Tests:    combined.Tests,
		Failures: combined.Failures,
		Errors:   combined.Errors,
		Skipped:  combined.Skipped,
		Suites:   []TestSuite{combined},
	}

	data, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeTestReportMerge, "marshal combined report", err)
	}
	data = append([]byte(xml.Header), data...)

	if err := os.WriteFile(out, data, 0o644); err != nil {
		return nil, fmt.Errorf("write combined report: %w", err)
	}

	return doc, nil
}
