package fleet

import "path"

// MaterializedProfile pairs a profile name with its runtime repository handles.
type MaterializedProfile struct {
	Name         string
	Repositories []*Repository
}

// Materialize binds every entry of profile to its path under rootPath, in profile order.
func Materialize(rootPath string, profile Profile) []*Repository {
	repositories := make([]*Repository, 0, len(profile.Repositories))
	for _, info := range profile.Repositories {
		repositories = append(repositories, &Repository{
			Name:          path.Join(info.Folder(), info.RepoName),
			Path:          info.LocalPath(rootPath),
			DefaultBranch: info.DefaultBranch,
		})
	}
	return repositories
}

// MaterializeAll binds every profile of configuration in declaration order.
func MaterializeAll(rootPath string, configuration Configuration) []MaterializedProfile {
	profiles := make([]MaterializedProfile, 0, len(configuration.Profiles))
	for _, profile := range configuration.Profiles {
		profiles = append(profiles, MaterializedProfile{Name: profile.Name, Repositories: Materialize(rootPath, profile)})
	}
	return profiles
}
