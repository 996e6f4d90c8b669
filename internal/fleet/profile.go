package fleet

import (
	"fmt"
	"strings"
)

const defaultProfileMarkerConstant = "default"

// ResolveProfile selects a profile by exact name. When the name was not given explicitly it falls back
// to the first profile whose name contains "default", then to the first declared profile.
func ResolveProfile(configuration Configuration, requestedName string, explicit bool) (Profile, error) {
	if len(configuration.Profiles) == 0 {
		return Profile{}, fmt.Errorf("%w: configuration declares no profiles", ErrProfileNotFound)
	}

	for _, profile := range configuration.Profiles {
		if profile.Name == requestedName {
			return profile, nil
		}
	}

	if explicit {
		return Profile{}, fmt.Errorf("%w: %q (available: %s)", ErrProfileNotFound, requestedName, strings.Join(configuration.ProfileNames(), ", "))
	}

	for _, profile := range configuration.Profiles {
		if strings.Contains(profile.Name, defaultProfileMarkerConstant) {
			return profile, nil
		}
	}

	return configuration.Profiles[0], nil
}
