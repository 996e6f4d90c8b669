package fleet

// ReportRow is one rendered line of the fleet table.
// BranchOrStatus holds the current branch for Good repositories and the status label otherwise.
type ReportRow struct {
	Name           string
	BranchOrStatus string
	Ahead          uint
	Behind         uint
	IsDirty        bool
	Status         RepositoryStatus
	Detail         string
}

// Report is the data handed to a renderer.
type Report struct {
	Rows           []ReportRow
	NoRepositories bool
}

// BuildReport converts inspected repositories into ordered rows.
func BuildReport(repositories []*Repository) Report {
	rows := make([]ReportRow, 0, len(repositories))
	for _, repository := range repositories {
		row := ReportRow{
			Name:           repository.Name,
			BranchOrStatus: repository.Status.String(),
			Status:         repository.Status,
		}
		if repository.Status == RepositoryStatusGood {
			row.BranchOrStatus = repository.CurrentBranch
			row.Ahead = repository.Ahead
			row.Behind = repository.Behind
			row.IsDirty = repository.IsDirty
		} else if statusError := repository.StatusError(); statusError != nil {
			row.Detail = statusError.Error()
		}
		rows = append(rows, row)
	}
	return Report{Rows: rows, NoRepositories: len(rows) == 0}
}
