package report_test

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/gitfo/internal/fleet"
	"github.com/temirov/gitfo/internal/report"
)

const reportSubtestTemplateConstant = "%d_%s"

func newReporter(testInstance *testing.T) (*report.Reporter, *bytes.Buffer) {
	testInstance.Helper()
	buffer := &bytes.Buffer{}
	reporter, reporterError := report.NewReporter(buffer, false)
	require.NoError(testInstance, reporterError)
	return reporter, buffer
}

func TestRenderTable(testInstance *testing.T) {
	reporter, buffer := newReporter(testInstance)
	fleetReport := fleet.Report{Rows: []fleet.ReportRow{
		{Name: "acme/widget", BranchOrStatus: "main", Ahead: 2, Behind: 5, IsDirty: true, Status: fleet.RepositoryStatusGood},
		{Name: "acme/gadget", BranchOrStatus: "DirectoryMissing", Status: fleet.RepositoryStatusDirectoryMissing, Detail: "directory missing: /fleet/acme/gadget"},
	}}

	require.NoError(testInstance, reporter.RenderTable(fleetReport))

	output := buffer.String()
	for _, expected := range []string{"Repo name", "Current branch", "Ahead", "Behind", "Dirty", "acme/widget", "main", "true", "DirectoryMissing"} {
		require.Contains(testInstance, output, expected)
	}
	require.Contains(testInstance, output, "acme/gadget: directory missing: /fleet/acme/gadget\n")
	require.NotContains(testInstance, output, "\x1b[")
	require.Less(testInstance, strings.Index(output, "acme/widget"), strings.Index(output, "acme/gadget"))
}

func TestRenderTableWithoutRepositories(testInstance *testing.T) {
	reporter, buffer := newReporter(testInstance)
	require.NoError(testInstance, reporter.RenderTable(fleet.BuildReport(nil)))
	require.Equal(testInstance, "No git repos found\n", buffer.String())
}

func TestRenderOutcomes(testInstance *testing.T) {
	reporter, buffer := newReporter(testInstance)
	result := fleet.ProfileResult{
		Profile: "default",
		Outcomes: []fleet.Outcome{
			{Repository: &fleet.Repository{Name: "acme/widget"}, Action: fleet.ActionFetch, Succeeded: true},
			{Repository: &fleet.Repository{Name: "acme/gadget"}, Action: fleet.ActionFetch, Err: errors.New("authentication failed")},
		},
	}

	require.NoError(testInstance, reporter.RenderProfileHeader(result.Profile))
	require.NoError(testInstance, reporter.RenderOutcomes(result))
	require.NoError(testInstance, reporter.RenderSummary(fleet.Aggregate{Attempted: 2, Succeeded: 1, Failed: 1}))

	require.Equal(testInstance,
		"Profile default\n"+
			"Fetch succeeded for acme/widget\n"+
			"Fetch failed for acme/gadget: authentication failed\n"+
			"2 attempted, 1 succeeded, 1 failed\n",
		buffer.String())
}

func TestTruncate(testInstance *testing.T) {
	testCases := []struct {
		name     string
		value    string
		width    int
		expected string
	}{
		{name: "short", value: "acme/widget", width: 30, expected: "acme/widget"},
		{name: "exact", value: strings.Repeat("a", 30), width: 30, expected: strings.Repeat("a", 30)},
		{name: "long", value: strings.Repeat("b", 31), width: 30, expected: strings.Repeat("b", 27) + "..."},
		{name: "multibyte", value: "ünïcödé-repository", width: 8, expected: "ünïcö..."},
	}

	for testCaseIndex, testCase := range testCases {
		testInstance.Run(fmt.Sprintf(reportSubtestTemplateConstant, testCaseIndex, testCase.name), func(testInstance *testing.T) {
			require.Equal(testInstance, testCase.expected, report.Truncate(testCase.value, testCase.width))
		})
	}
}

func TestActionLabel(testInstance *testing.T) {
	require.Equal(testInstance, "Checkout", report.ActionLabel(fleet.ActionCheckout))
	require.Equal(testInstance, "Sync", report.ActionLabel(fleet.ActionSync))
	require.Equal(testInstance, "", report.ActionLabel(""))
}

func TestNewReporterRequiresWriter(testInstance *testing.T) {
	_, reporterError := report.NewReporter(nil, false)
	require.Error(testInstance, reporterError)
	require.False(testInstance, report.IsTerminal(&bytes.Buffer{}))
}
