package reporting

import (
	"encoding/xml"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/loopless/loopcheck/internal/models"
)

// JUnit XML schema types

// JUnitTestSuites is the top-level container.
type JUnitTestSuites struct {
	XMLName    xml.Name         `xml:"testsuites"`
	Tests      int              `xml:"tests,attr"`
	Failures   int              `xml:"failures,attr"`
	Errors     int              `xml:"errors,attr"`
	Time       float64          `xml:"time,attr"`
	TestSuites []JUnitTestSuite `xml:"testsuite"`
}

// JUnitTestSuite maps to one evaluation batch.
type JUnitTestSuite struct {
	XMLName    xml.Name        `xml:"testsuite"`
	Name       string          `xml:"name,attr"`
	Tests      int             `xml:"tests,attr"`
	Failures   int             `xml:"failures,attr"`
	Errors     int             `xml:"errors,attr"`
	Skipped    int             `xml:"skipped,attr"`
	Time       float64         `xml:"time,attr"`
	Timestamp  string          `xml:"timestamp,attr"`
	Properties []JUnitProperty `xml:"properties>property,omitempty"`
	TestCases  []JUnitTestCase `xml:"testcase"`
}

// JUnitTestCase maps to one evaluated run.
type JUnitTestCase struct {
	XMLName   xml.Name      `xml:"testcase"`
	Name      string        `xml:"name,attr"`
	Classname string        `xml:"classname,attr"`
	Time      float64       `xml:"time,attr"`
	Failure   *JUnitFailure `xml:"failure,omitempty"`
	Error     *JUnitError   `xml:"error,omitempty"`
}

// JUnitFailure represents a run that did not pass its verdict.
type JUnitFailure struct {
	Message string `xml:"message,attr"`
	Type    string `xml:"type,attr"`
	Body    string `xml:",chardata"`
}

// JUnitError represents a run whose state capture could not be evaluated.
type JUnitError struct {
	Message string `xml:"message,attr"`
	Type    string `xml:"type,attr"`
}

// JUnitProperty is a key-value metadata entry.
type JUnitProperty struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value,attr"`
}

// ConvertToJUnit converts a batch of evaluation reports to JUnit XML. Each
// run becomes one test case; a run with an unresolvable state capture is an
// error, a failed verdict is a failure.
func ConvertToJUnit(suiteName string, reports []*models.EvaluationReport) *JUnitTestSuites {
	suite := JUnitTestSuite{
		Name:  suiteName,
		Tests: len(reports),
	}

	var totalTime float64
	for _, r := range reports {
		tc := convertReport(r)
		if tc.Failure != nil {
			suite.Failures++
		}
		if tc.Error != nil {
			suite.Errors++
		}
		totalTime += tc.Time
		suite.TestCases = append(suite.TestCases, tc)
	}
	suite.Time = totalTime
	if len(reports) > 0 {
		suite.Timestamp = reports[0].Timestamp.Format(time.RFC3339)
	}

	return &JUnitTestSuites{
		Tests:      suite.Tests,
		Failures:   suite.Failures,
		Errors:     suite.Errors,
		Time:       totalTime,
		TestSuites: []JUnitTestSuite{suite},
	}
}

func convertReport(r *models.EvaluationReport) JUnitTestCase {
	tc := JUnitTestCase{
		Name:      r.RunID,
		Classname: r.TaskID,
	}
	if r.ElapsedKnown && r.ElapsedSeconds > 0 {
		tc.Time = r.ElapsedSeconds
	}

	if r.DiffError != "" {
		tc.Error = &JUnitError{
			Message: r.DiffError,
			Type:    "SnapshotError",
		}
		return tc
	}

	if !r.Verdict.Passed {
		tc.Failure = &JUnitFailure{
			Message: fmt.Sprintf("%s: score=%.2f", r.RunID, r.Verdict.OverallScore),
			Type:    "VerdictFailure",
			Body:    formatVerdictFailure(r),
		}
	}
	return tc
}

func formatVerdictFailure(r *models.EvaluationReport) string {
	var b strings.Builder
	for _, issue := range r.Verdict.Issues {
		fmt.Fprintf(&b, "[ISSUE] %s\n", issue)
	}
	for _, rec := range r.Verdict.Recommendations {
		fmt.Fprintf(&b, "[HINT] %s\n", rec)
	}
	for _, a := range r.Assertions {
		if !a.Passed {
			fmt.Fprintf(&b, "[FAIL] %s (%s): %s\n", a.Description, a.Kind, a.Message)
		}
	}
	return b.String()
}

// WriteJUnitXML writes JUnit XML to the specified file path.
func WriteJUnitXML(suiteName string, reports []*models.EvaluationReport, path string) error {
	suites := ConvertToJUnit(suiteName, reports)

	data, err := xml.MarshalIndent(suites, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JUnit XML: %w", err)
	}

	output := append([]byte(xml.Header), data...)
	return os.WriteFile(path, output, 0644)
}
