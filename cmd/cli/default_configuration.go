package cli

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"
)

const (
	configurationInvalidTemplateConstant        = "configuration is invalid: %w"
	configurationUnknownSectionTemplateConstant = "configuration has unknown section %q"
)

//go:embed default_config.yaml
var embeddedDefaultConfigurationContent []byte

var knownConfigurationSections = map[string]struct{}{
	commonConfigurationKeyConstant: {},
	fleetConfigurationKeyConstant:  {},
}

// EmbeddedDefaultConfiguration returns the embedded default configuration data and type identifier.
func EmbeddedDefaultConfiguration() ([]byte, string) {
	duplicatedContent := make([]byte, len(embeddedDefaultConfigurationContent))
	copy(duplicatedContent, embeddedDefaultConfigurationContent)
	return duplicatedContent, configurationTypeConstant
}

// ValidateConfigurationDocument checks that content is YAML made only of known sections.
func ValidateConfigurationDocument(content []byte) error {
	sections := map[string]any{}
	if decodeError := yaml.Unmarshal(content, &sections); decodeError != nil {
		return fmt.Errorf(configurationInvalidTemplateConstant, decodeError)
	}
	for section := range sections {
		if _, known := knownConfigurationSections[section]; !known {
			return fmt.Errorf(configurationUnknownSectionTemplateConstant, section)
		}
	}
	return nil
}
