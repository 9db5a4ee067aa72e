package report

import (
	"encoding/xml"
	"os"
	"path/filepath"

	"github.com/regrada-ai/finetune/internal/policy"
)

type testSuite struct {
	XMLName  xml.Name   `xml:"testsuite"`
	Name     string     `xml:"name,attr"`
	Tests    int        `xml:"tests,attr"`
	Failures int        `xml:"failures,attr"`
	Skipped  int        `xml:"skipped,attr"`
	Cases    []testCase `xml:"testcase"`
}

type testCase struct {
	Name      string    `xml:"name,attr"`
	ClassName string    `xml:"classname,attr"`
	Failure   *testFail `xml:"failure,omitempty"`
	Skipped   *struct{} `xml:"skipped,omitempty"`
	SystemOut string    `xml:"system-out,omitempty"`
}

type testFail struct {
	Message string `xml:"message,attr"`
	Body    string `xml:",chardata"`
}

// WriteJUnit emits one testcase per policy. Error violations fail, warnings
// pass with the message in system-out, and policies whose metric this run
// did not produce are skipped.
func WriteJUnit(summary RunSummary, path string) error {
	suite := testSuite{Name: "finetune." + summary.Stage, Tests: len(summary.Outcomes)}
	for _, o := range summary.Outcomes {
		tc := testCase{Name: o.Policy.ID, ClassName: o.Policy.Metric}
		switch {
		case !o.Applies:
			suite.Skipped++
			tc.Skipped = &struct{}{}
		case o.Violation != nil && o.Violation.Severity == policy.SeverityError:
			suite.Failures++
			tc.Failure = &testFail{Message: "policy violation", Body: o.Violation.Message}
		case o.Violation != nil:
			tc.SystemOut = o.Violation.Severity + ": " + o.Violation.Message
		}
		suite.Cases = append(suite.Cases, tc)
	}

	data, err := xml.MarshalIndent(suite, "", "  ")
	if err != nil {
		return err
	}
	data = append([]byte(xml.Header), data...)

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
