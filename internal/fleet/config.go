package fleet

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

const (
	profilesKeyConstant                   = "profiles"
	jsonIndentConstant                    = "  "
	expectedObjectTemplateConstant        = "expected a JSON object for %s"
	duplicateProfileTemplateConstant      = "duplicate profile %q"
	missingProfilesMessageConstant        = "missing \"profiles\" object"
	missingRepositoryNameTemplateConstant = "profile %q entry %d has no repoName"
	missingOwnerTemplateConstant          = "profile %q entry %d has neither owner nor localFolder"
	trailingDataMessageConstant           = "unexpected data after configuration object"
	rootObjectLabelConstant               = "configuration"
)

// RepositoryInfo describes where one repository lives under the control root.
type RepositoryInfo struct {
	Owner         string `json:"owner"`
	RepoName      string `json:"repoName"`
	LocalFolder   string `json:"localFolder,omitempty"`
	DefaultBranch string `json:"defaultBranch"`
}

// Folder returns the directory directly under the control root that holds the checkout.
func (info RepositoryInfo) Folder() string {
	if len(strings.TrimSpace(info.LocalFolder)) > 0 {
		return info.LocalFolder
	}
	return info.Owner
}

// LocalPath joins the control root, folder, and repository name.
func (info RepositoryInfo) LocalPath(rootPath string) string {
	return filepath.Join(rootPath, info.Folder(), info.RepoName)
}

// Profile is a named, ordered list of repositories.
type Profile struct {
	Name         string
	Repositories []RepositoryInfo
}

// Configuration holds profiles in declaration order. Names are unique and case-sensitive.
type Configuration struct {
	Profiles []Profile
}

// ProfileNames lists profile names in declaration order.
func (configuration Configuration) ProfileNames() []string {
	names := make([]string, 0, len(configuration.Profiles))
	for _, profile := range configuration.Profiles {
		names = append(names, profile.Name)
	}
	return names
}

// MarshalJSON writes {"profiles": {...}} keeping declaration order.
func (configuration Configuration) MarshalJSON() ([]byte, error) {
	var buffer bytes.Buffer
	buffer.WriteString(`{"` + profilesKeyConstant + `":{`)
	for profileIndex, profile := range configuration.Profiles {
		if profileIndex > 0 {
			buffer.WriteByte(',')
		}
		encodedName, nameError := json.Marshal(profile.Name)
		if nameError != nil {
			return nil, nameError
		}
		repositories := profile.Repositories
		if repositories == nil {
			repositories = []RepositoryInfo{}
		}
		encodedRepositories, repositoriesError := json.Marshal(repositories)
		if repositoriesError != nil {
			return nil, repositoriesError
		}
		buffer.Write(encodedName)
		buffer.WriteByte(':')
		buffer.Write(encodedRepositories)
	}
	buffer.WriteString(`}}`)
	return buffer.Bytes(), nil
}

// UnmarshalJSON reads {"profiles": {...}} keeping declaration order.
// The profiles key is matched case-insensitively and unknown top-level keys are ignored.
func (configuration *Configuration) UnmarshalJSON(data []byte) error {
	decoder := json.NewDecoder(bytes.NewReader(data))
	if openError := expectDelimiter(decoder, '{', rootObjectLabelConstant); openError != nil {
		return openError
	}

	var profiles []Profile
	profilesSeen := false
	for decoder.More() {
		keyToken, keyError := decoder.Token()
		if keyError != nil {
			return keyError
		}
		key, _ := keyToken.(string)
		if !strings.EqualFold(key, profilesKeyConstant) {
			var ignored json.RawMessage
			if skipError := decoder.Decode(&ignored); skipError != nil {
				return skipError
			}
			continue
		}

		decodedProfiles, profilesError := decodeProfiles(decoder)
		if profilesError != nil {
			return profilesError
		}
		profiles = decodedProfiles
		profilesSeen = true
	}

	if _, closeError := decoder.Token(); closeError != nil {
		return closeError
	}
	if _, trailingError := decoder.Token(); !errors.Is(trailingError, io.EOF) {
		return errors.New(trailingDataMessageConstant)
	}
	if !profilesSeen {
		return errors.New(missingProfilesMessageConstant)
	}

	configuration.Profiles = profiles
	return nil
}

func decodeProfiles(decoder *json.Decoder) ([]Profile, error) {
	if openError := expectDelimiter(decoder, '{', profilesKeyConstant); openError != nil {
		return nil, openError
	}

	profiles := []Profile{}
	seenNames := make(map[string]struct{})
	for decoder.More() {
		nameToken, nameError := decoder.Token()
		if nameError != nil {
			return nil, nameError
		}
		profileName, _ := nameToken.(string)
		if _, duplicate := seenNames[profileName]; duplicate {
			return nil, fmt.Errorf(duplicateProfileTemplateConstant, profileName)
		}
		seenNames[profileName] = struct{}{}

		var repositories []RepositoryInfo
		if decodeError := decoder.Decode(&repositories); decodeError != nil {
			return nil, decodeError
		}
		for entryIndex, repository := range repositories {
			if len(strings.TrimSpace(repository.RepoName)) == 0 {
				return nil, fmt.Errorf(missingRepositoryNameTemplateConstant, profileName, entryIndex)
			}
			if len(strings.TrimSpace(repository.Folder())) == 0 {
				return nil, fmt.Errorf(missingOwnerTemplateConstant, profileName, entryIndex)
			}
		}
		profiles = append(profiles, Profile{Name: profileName, Repositories: repositories})
	}

	if _, closeError := decoder.Token(); closeError != nil {
		return nil, closeError
	}
	return profiles, nil
}

func expectDelimiter(decoder *json.Decoder, expected json.Delim, label string) error {
	token, tokenError := decoder.Token()
	if tokenError != nil {
		return tokenError
	}
	if delimiter, isDelimiter := token.(json.Delim); !isDelimiter || delimiter != expected {
		return fmt.Errorf(expectedObjectTemplateConstant, label)
	}
	return nil
}

// EncodeConfiguration renders the configuration as indented JSON terminated by a newline.
func EncodeConfiguration(configuration Configuration) ([]byte, error) {
	compact, marshalError := json.Marshal(configuration)
	if marshalError != nil {
		return nil, marshalError
	}
	var indented bytes.Buffer
	if indentError := json.Indent(&indented, compact, "", jsonIndentConstant); indentError != nil {
		return nil, indentError
	}
	indented.WriteByte('\n')
	return indented.Bytes(), nil
}

// DecodeConfiguration parses .gitfo content.
func DecodeConfiguration(data []byte) (Configuration, error) {
	var configuration Configuration
	if unmarshalError := json.Unmarshal(data, &configuration); unmarshalError != nil {
		return Configuration{}, unmarshalError
	}
	return configuration, nil
}
