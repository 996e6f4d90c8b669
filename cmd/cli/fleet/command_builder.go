package fleet

import (
	"context"
	"errors"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/temirov/gitfo/internal/execshell"
	fleetcore "github.com/temirov/gitfo/internal/fleet"
	"github.com/temirov/gitfo/internal/gitrepo"
	"github.com/temirov/gitfo/internal/report"
	"github.com/temirov/gitfo/internal/repos/dependencies"
	"github.com/temirov/gitfo/internal/ui"
	pathutils "github.com/temirov/gitfo/internal/utils/path"
)

const (
	concurrencyFlagNameConstant       = "concurrency"
	concurrencyFlagUsageConstant      = "Maximum number of repositories processed in parallel."
	timeoutFlagNameConstant           = "timeout"
	timeoutFlagUsageConstant          = "Per-repository operation timeout; 0 disables it."
	controlRootLogMessageConstant     = "Control directory resolved"
	profileSelectedLogMessageConstant = "Profile selected"
	logFieldRootConstant              = "root"
	logFieldProfileConstant           = "profile"
	logFieldRepositoriesConstant      = "repositories"
)

var errCommandBuilderMissing = errors.New("fleet command builder not configured")

// LoggerProvider yields a zap logger for command execution.
type LoggerProvider func() *zap.Logger

// Selection identifies the control directory and the requested profile.
// ProfileExplicit is set when the profile was requested by the user rather than defaulted.
type Selection struct {
	RootDirectory   string
	ProfileName     string
	ProfileExplicit bool
}

// CommandBuilder assembles the fleet commands. Unset collaborators fall back to OS and git backed defaults.
type CommandBuilder struct {
	LoggerProvider               LoggerProvider
	HumanReadableLoggingProvider func() bool
	ConfigurationProvider        func() Configuration
	SelectionProvider            func() Selection
	WorkingDirectoryProvider     pathutils.WorkingDirectoryProvider
	FileSystem                   dependencies.FileSystem
	Discoverer                   fleetcore.CandidateDiscoverer
	OriginReader                 fleetcore.OriginReader
	GitExecutor                  gitrepo.GitExecutor
	Engine                       fleetcore.VcsEngine
}

// Build constructs every fleet command in display order.
func (builder *CommandBuilder) Build() ([]*cobra.Command, error) {
	if builder == nil {
		return nil, errCommandBuilderMissing
	}
	return []*cobra.Command{
		builder.buildGenerateCommand(),
		builder.buildStatusCommand(),
		builder.buildFetchCommand(),
		builder.buildPullCommand(),
		builder.buildCheckoutCommand(),
		builder.buildSyncCommand(),
	}, nil
}

type session struct {
	executionContext context.Context
	logger           *zap.Logger
	configuration    Configuration
	selection        Selection
	rootPath         string
	store            *fleetcore.ConfigStore
	runner           *fleetcore.Runner
	reporter         *report.Reporter
}

func (builder *CommandBuilder) newSession(command *cobra.Command, probeRemote bool) (*session, error) {
	logger := resolveLogger(builder.LoggerProvider)
	configuration := builder.resolveConfiguration(command)
	selection := builder.resolveSelection()

	rootPath, rootError := pathutils.NewHomeExpander().ResolveControlRoot(selection.RootDirectory, builder.WorkingDirectoryProvider)
	if rootError != nil {
		return nil, rootError
	}
	logger.Debug(controlRootLogMessageConstant, zap.String(logFieldRootConstant, rootPath))

	fileSystem := dependencies.ResolveFileSystem(builder.FileSystem)
	store, storeError := fleetcore.NewConfigStore(fleetcore.StoreDependencies{
		FileSystem:   fileSystem,
		Discoverer:   dependencies.ResolveCandidateDiscoverer(builder.Discoverer, fileSystem),
		OriginReader: dependencies.ResolveOriginReader(builder.OriginReader, configuration.Remote),
		Logger:       logger,
	})
	if storeError != nil {
		return nil, storeError
	}

	var observer execshell.CommandEventObserver
	if builder.HumanReadableLoggingProvider != nil && builder.HumanReadableLoggingProvider() {
		observer = ui.NewConsoleCommandEventLogger(logger)
	}
	gitExecutor, executorError := dependencies.ResolveGitExecutor(builder.GitExecutor, logger, observer)
	if executorError != nil {
		return nil, executorError
	}
	engine, engineError := dependencies.ResolveVcsEngine(builder.Engine, gitExecutor)
	if engineError != nil {
		return nil, engineError
	}

	inspector, inspectorError := fleetcore.NewInspector(fleetcore.InspectorDependencies{
		Engine:        engine,
		FileSystem:    fileSystem,
		Logger:        logger,
		ProbeRemote:   probeRemote && configuration.ProbeRemote,
		DefaultRemote: configuration.Remote,
	})
	if inspectorError != nil {
		return nil, inspectorError
	}
	runner, runnerError := fleetcore.NewRunner(fleetcore.RunnerDependencies{
		Engine:           engine,
		Inspector:        inspector,
		Logger:           logger,
		Concurrency:      configuration.Concurrency,
		OperationTimeout: configuration.OperationTimeout,
		DefaultRemote:    configuration.Remote,
	})
	if runnerError != nil {
		return nil, runnerError
	}

	output := command.OutOrStdout()
	reporter, reporterError := report.NewReporter(output, report.IsTerminal(output))
	if reporterError != nil {
		return nil, reporterError
	}

	executionContext := command.Context()
	if executionContext == nil {
		executionContext = context.Background()
	}

	return &session{
		executionContext: executionContext,
		logger:           logger,
		configuration:    configuration,
		selection:        selection,
		rootPath:         rootPath,
		store:            store,
		runner:           runner,
		reporter:         reporter,
	}, nil
}

// loadProfiles reads .gitfo and returns either the selected profile or every profile.
func (currentSession *session) loadProfiles(allProfiles bool) ([]fleetcore.MaterializedProfile, error) {
	configuration, loadError := currentSession.store.Load(currentSession.rootPath)
	if loadError != nil {
		return nil, loadError
	}
	if allProfiles {
		return fleetcore.MaterializeAll(currentSession.rootPath, configuration), nil
	}

	requestedName := currentSession.selection.ProfileName
	if len(requestedName) == 0 {
		requestedName = DefaultProfileRequestConstant
	}
	profile, profileError := fleetcore.ResolveProfile(configuration, requestedName, currentSession.selection.ProfileExplicit)
	if profileError != nil {
		return nil, profileError
	}

	currentSession.logger.Info(profileSelectedLogMessageConstant,
		zap.String(logFieldProfileConstant, profile.Name),
		zap.Int(logFieldRepositoriesConstant, len(profile.Repositories)),
	)
	return []fleetcore.MaterializedProfile{{
		Name:         profile.Name,
		Repositories: fleetcore.Materialize(currentSession.rootPath, profile),
	}}, nil
}

func (builder *CommandBuilder) resolveConfiguration(command *cobra.Command) Configuration {
	configuration := DefaultConfiguration()
	if builder.ConfigurationProvider != nil {
		configuration = builder.ConfigurationProvider()
	}

	if command != nil {
		if command.Flags().Changed(concurrencyFlagNameConstant) {
			if concurrency, flagError := command.Flags().GetInt(concurrencyFlagNameConstant); flagError == nil {
				configuration.Concurrency = concurrency
			}
		}
		if command.Flags().Changed(timeoutFlagNameConstant) {
			if timeout, flagError := command.Flags().GetDuration(timeoutFlagNameConstant); flagError == nil {
				configuration.OperationTimeout = timeout
			}
		}
	}
	return configuration.sanitize()
}

func (builder *CommandBuilder) resolveSelection() Selection {
	if builder.SelectionProvider == nil {
		return Selection{}
	}
	return builder.SelectionProvider()
}

func addExecutionFlags(command *cobra.Command) {
	defaults := DefaultConfiguration()
	command.Flags().Int(concurrencyFlagNameConstant, defaults.Concurrency, concurrencyFlagUsageConstant)
	command.Flags().Duration(timeoutFlagNameConstant, defaults.OperationTimeout, timeoutFlagUsageConstant)
}

func resolveLogger(provider LoggerProvider) *zap.Logger {
	if provider == nil {
		return zap.NewNop()
	}
	logger := provider()
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}
