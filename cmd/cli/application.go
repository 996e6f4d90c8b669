package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime/debug"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	fleetcmd "github.com/temirov/gitfo/cmd/cli/fleet"
	"github.com/temirov/gitfo/internal/utils"
)

const (
	applicationNameConstant                 = "gitfo"
	applicationShortDescriptionConstant     = "Manage a fleet of git repositories from one control directory"
	applicationLongDescriptionConstant      = "gitfo inspects and synchronizes the repositories listed in the .gitfo file of a control directory, one named profile at a time."
	configFileFlagNameConstant              = "config"
	configFileFlagUsageConstant             = "Optional path to an application configuration file (YAML)."
	logLevelFlagNameConstant                = "log-level"
	logLevelFlagUsageConstant               = "Override the configured log level (debug, info, warn, error)."
	logFormatFlagNameConstant               = "log-format"
	logFormatFlagUsageConstant              = "Override the configured log format (structured or console)."
	directoryFlagNameConstant               = "directory"
	directoryFlagShorthandConstant          = "C"
	directoryFlagUsageConstant              = "Control directory holding .gitfo (defaults to the working directory)."
	profileFlagNameConstant                 = "profile"
	profileFlagShorthandConstant            = "p"
	profileFlagUsageConstant                = "Profile to operate on; an unknown name is an error."
	commonConfigurationKeyConstant          = "common"
	commonLogLevelConfigKeyConstant         = commonConfigurationKeyConstant + ".log_level"
	commonLogFormatConfigKeyConstant        = commonConfigurationKeyConstant + ".log_format"
	fleetConfigurationKeyConstant           = "fleet"
	environmentPrefixConstant               = "GITFO"
	configurationNameConstant               = "config"
	configurationTypeConstant               = "yaml"
	configurationDirectoryNameConstant      = "gitfo"
	xdgConfigHomeEnvironmentConstant        = "XDG_CONFIG_HOME"
	userConfigDirectoryConstant             = ".config"
	configurationInitializedMessageConstant = "configuration initialized"
	configurationLogLevelFieldConstant      = "log_level"
	configurationLogFormatFieldConstant     = "log_format"
	configurationFileFieldConstant          = "config_file"
	configurationLoadErrorTemplateConstant  = "unable to load configuration: %w"
	loggerCreationErrorTemplateConstant     = "unable to create logger: %w"
	loggerSyncErrorTemplateConstant         = "unable to flush logger: %w"
	defaultConfigurationSearchPathConstant  = "."
	versionTemplateConstant                 = "gitfo {{.Version}}\n"
	developmentVersionConstant              = "dev"
	moduleDevelopmentVersionConstant        = "(devel)"
	commandBuildErrorTemplateConstant       = "unable to build fleet commands: %w"
)

// Version is the released version of gitfo, set with
// -ldflags "-X github.com/temirov/gitfo/cmd/cli.Version=v1.2.3".
// When empty, the module version recorded in the binary is used.
var Version string

// ApplicationConfiguration describes the persisted configuration for the CLI entrypoint.
type ApplicationConfiguration struct {
	Common ApplicationCommonConfiguration `mapstructure:"common"`
	Fleet  fleetcmd.Configuration         `mapstructure:"fleet"`
}

// ApplicationCommonConfiguration stores logging configuration shared across commands.
type ApplicationCommonConfiguration struct {
	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`
}

// Application wires the Cobra root command, configuration loader, and structured logger.
type Application struct {
	rootCommand           *cobra.Command
	configurationLoader   *utils.ConfigurationLoader
	loggerFactory         *utils.LoggerFactory
	logger                *zap.Logger
	configuration         ApplicationConfiguration
	configurationMetadata utils.LoadedConfiguration
	configurationFilePath string
	logLevelFlagValue     string
	logFormatFlagValue    string
	directoryFlagValue    string
	profileFlagValue      string
	profileExplicit       bool
	commandBuildError     error
}

// NewApplication assembles a fully wired CLI application instance.
func NewApplication() *Application {
	return NewApplicationWithCommandBuilder(fleetcmd.CommandBuilder{})
}

// NewApplicationWithCommandBuilder assembles the application around a preconfigured fleet
// command builder. Its providers are replaced with ones backed by the application.
func NewApplicationWithCommandBuilder(fleetBuilder fleetcmd.CommandBuilder) *Application {
	configurationLoader := utils.NewConfigurationLoader(
		configurationNameConstant,
		configurationTypeConstant,
		environmentPrefixConstant,
		configurationSearchPaths(),
	)
	configurationLoader.SetEmbeddedConfiguration(EmbeddedDefaultConfiguration())

	application := &Application{
		configurationLoader: configurationLoader,
		loggerFactory:       utils.NewLoggerFactory(),
		logger:              zap.NewNop(),
	}

	cobraCommand := &cobra.Command{
		Use:           applicationNameConstant,
		Short:         applicationShortDescriptionConstant,
		Long:          applicationLongDescriptionConstant,
		Version:       ResolveVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(command *cobra.Command, arguments []string) error {
			return application.initializeConfiguration(command)
		},
		RunE: func(command *cobra.Command, arguments []string) error {
			return command.Help()
		},
	}

	cobraCommand.SetContext(context.Background())
	cobraCommand.SetVersionTemplate(versionTemplateConstant)
	persistentFlags := cobraCommand.PersistentFlags()
	persistentFlags.StringVar(&application.configurationFilePath, configFileFlagNameConstant, "", configFileFlagUsageConstant)
	persistentFlags.StringVar(&application.logLevelFlagValue, logLevelFlagNameConstant, "", logLevelFlagUsageConstant)
	persistentFlags.StringVar(&application.logFormatFlagValue, logFormatFlagNameConstant, "", logFormatFlagUsageConstant)
	persistentFlags.StringVarP(&application.directoryFlagValue, directoryFlagNameConstant, directoryFlagShorthandConstant, "", directoryFlagUsageConstant)
	persistentFlags.StringVarP(&application.profileFlagValue, profileFlagNameConstant, profileFlagShorthandConstant, "", profileFlagUsageConstant)

	fleetBuilder.LoggerProvider = func() *zap.Logger {
		return application.logger
	}
	fleetBuilder.HumanReadableLoggingProvider = application.humanReadableLoggingEnabled
	fleetBuilder.ConfigurationProvider = func() fleetcmd.Configuration {
		return application.configuration.Fleet
	}
	fleetBuilder.SelectionProvider = application.selection

	fleetCommands, fleetBuildError := fleetBuilder.Build()
	if fleetBuildError != nil {
		application.commandBuildError = fmt.Errorf(commandBuildErrorTemplateConstant, fleetBuildError)
	}
	cobraCommand.AddCommand(fleetCommands...)

	application.rootCommand = cobraCommand

	return application
}

// ResolveVersion returns Version, the module version embedded by go install, or "dev".
func ResolveVersion() string {
	if len(strings.TrimSpace(Version)) > 0 {
		return strings.TrimSpace(Version)
	}
	buildInfo, available := debug.ReadBuildInfo()
	if available && len(buildInfo.Main.Version) > 0 && buildInfo.Main.Version != moduleDevelopmentVersionConstant {
		return buildInfo.Main.Version
	}
	return developmentVersionConstant
}

// RootCommand exposes the Cobra root command.
func (application *Application) RootCommand() *cobra.Command {
	return application.rootCommand
}

// Execute runs the command hierarchy until completion or SIGINT/SIGTERM and flushes the logger.
// Failures are returned as ExitError values.
func (application *Application) Execute() error {
	return application.ExecuteContext(context.Background())
}

// ExecuteContext runs the command hierarchy under executionContext.
// A fleet command construction failure is returned without running anything.
func (application *Application) ExecuteContext(executionContext context.Context) error {
	if application.commandBuildError != nil {
		return NewExitError(application.commandBuildError)
	}

	signalContext, stopSignals := signal.NotifyContext(executionContext, os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	executionError := application.rootCommand.ExecuteContext(signalContext)
	if syncError := application.flushLogger(); syncError != nil && executionError == nil {
		executionError = fmt.Errorf(loggerSyncErrorTemplateConstant, syncError)
	}
	return NewExitError(executionError)
}

// Execute builds a fresh application instance and executes the root command hierarchy.
func Execute() error {
	return NewApplication().Execute()
}

func (application *Application) initializeConfiguration(command *cobra.Command) error {
	defaultValues := map[string]any{
		commonLogLevelConfigKeyConstant:  string(utils.LogLevelWarn),
		commonLogFormatConfigKeyConstant: string(utils.LogFormatConsole),
	}
	for configurationKey, configurationValue := range fleetcmd.DefaultConfigurationValues(fleetConfigurationKeyConstant) {
		defaultValues[configurationKey] = configurationValue
	}

	embeddedConfiguration, _ := EmbeddedDefaultConfiguration()
	if validationError := ValidateConfigurationDocument(embeddedConfiguration); validationError != nil {
		return fmt.Errorf(configurationLoadErrorTemplateConstant, validationError)
	}

	loadedConfiguration, loadError := application.configurationLoader.LoadConfiguration(application.configurationFilePath, defaultValues, &application.configuration)
	if loadError != nil {
		return fmt.Errorf(configurationLoadErrorTemplateConstant, loadError)
	}

	application.configurationMetadata = loadedConfiguration
	if len(loadedConfiguration.ConfigFileUsed) > 0 {
		configurationContent, readError := os.ReadFile(loadedConfiguration.ConfigFileUsed)
		if readError != nil {
			return fmt.Errorf(configurationLoadErrorTemplateConstant, readError)
		}
		if validationError := ValidateConfigurationDocument(configurationContent); validationError != nil {
			return fmt.Errorf(configurationLoadErrorTemplateConstant, validationError)
		}
	}

	if application.persistentFlagChanged(command, logLevelFlagNameConstant) {
		application.configuration.Common.LogLevel = application.logLevelFlagValue
	}

	if application.persistentFlagChanged(command, logFormatFlagNameConstant) {
		application.configuration.Common.LogFormat = application.logFormatFlagValue
	}

	if application.persistentFlagChanged(command, profileFlagNameConstant) {
		application.configuration.Fleet.Profile = application.profileFlagValue
	}
	application.profileExplicit = len(strings.TrimSpace(application.configuration.Fleet.Profile)) > 0

	logger, loggerCreationError := application.loggerFactory.CreateLogger(
		utils.LogLevel(application.configuration.Common.LogLevel),
		utils.LogFormat(application.configuration.Common.LogFormat),
	)
	if loggerCreationError != nil {
		return fmt.Errorf(loggerCreationErrorTemplateConstant, loggerCreationError)
	}

	application.logger = logger

	application.logger.Debug(
		configurationInitializedMessageConstant,
		zap.String(configurationLogLevelFieldConstant, application.configuration.Common.LogLevel),
		zap.String(configurationLogFormatFieldConstant, application.configuration.Common.LogFormat),
		zap.String(configurationFileFieldConstant, application.configurationMetadata.ConfigFileUsed),
	)

	return nil
}

func (application *Application) selection() fleetcmd.Selection {
	return fleetcmd.Selection{
		RootDirectory:   application.directoryFlagValue,
		ProfileName:     strings.TrimSpace(application.configuration.Fleet.Profile),
		ProfileExplicit: application.profileExplicit,
	}
}

func (application *Application) humanReadableLoggingEnabled() bool {
	logFormatValue := strings.TrimSpace(application.configuration.Common.LogFormat)
	return strings.EqualFold(logFormatValue, string(utils.LogFormatConsole))
}

func (application *Application) flushLogger() error {
	if application.logger == nil {
		return nil
	}

	syncError := application.logger.Sync()
	switch {
	case syncError == nil:
		return nil
	case errors.Is(syncError, syscall.ENOTSUP):
		return nil
	case errors.Is(syncError, syscall.EINVAL):
		return nil
	case errors.Is(syncError, syscall.ENOTTY):
		return nil
	default:
		return syncError
	}
}

func (application *Application) persistentFlagChanged(command *cobra.Command, flagName string) bool {
	if command == nil {
		return false
	}

	flagSetsToInspect := []*pflag.FlagSet{
		command.PersistentFlags(),
		command.InheritedFlags(),
	}

	rootCommand := command.Root()
	if rootCommand != nil {
		flagSetsToInspect = append(flagSetsToInspect, rootCommand.PersistentFlags())
	}

	for _, flagSet := range flagSetsToInspect {
		if flagSet == nil {
			continue
		}

		if flagSet.Changed(flagName) {
			return true
		}
	}

	return false
}

// configurationSearchPaths lists the working directory and the user configuration directory.
func configurationSearchPaths() []string {
	searchPaths := []string{defaultConfigurationSearchPathConstant}
	if configurationHome := strings.TrimSpace(os.Getenv(xdgConfigHomeEnvironmentConstant)); len(configurationHome) > 0 {
		return append(searchPaths, filepath.Join(configurationHome, configurationDirectoryNameConstant))
	}
	if homeDirectory, homeError := os.UserHomeDir(); homeError == nil {
		searchPaths = append(searchPaths, filepath.Join(homeDirectory, userConfigDirectoryConstant, configurationDirectoryNameConstant))
	}
	return searchPaths
}
