package fleet

import (
	"fmt"

	"github.com/spf13/cobra"

	fleetcore "github.com/temirov/gitfo/internal/fleet"
)

const (
	generateUseConstant                = "generate"
	generateShortDescriptionConstant   = "Write a .gitfo file listing the repositories under the control directory"
	generateLongDescriptionConstant    = "generate scans <root>/<owner>/<repository> for git checkouts and records them in a \"default\" profile. An existing .gitfo file is never overwritten."
	statusUseConstant                  = "status"
	statusShortDescriptionConstant     = "Show branch, divergence, and dirty state for a profile"
	fetchUseConstant                   = "fetch"
	fetchShortDescriptionConstant      = "Fetch every repository in a profile"
	pullUseConstant                    = "pull"
	pullShortDescriptionConstant       = "Fast-forward every repository in a profile"
	checkoutUseConstant                = "checkout [branch]"
	checkoutShortDescriptionConstant   = "Check out a branch across a profile"
	checkoutLongDescriptionConstant    = "checkout switches every repository in a profile to branch, or to each repository's default branch when none is given."
	syncUseConstant                    = "sync"
	syncShortDescriptionConstant       = "Fetch, check out the default branch, and pull"
	syncLongDescriptionConstant        = "sync fetches each repository, checks out its default branch, and fast-forwards it. Failures stop that repository only."
	offlineFlagNameConstant            = "offline"
	offlineFlagUsageConstant           = "Skip contacting remotes while inspecting."
	allProfilesFlagNameConstant        = "all"
	allProfilesFlagUsageConstant       = "Synchronize every profile instead of the selected one."
	generatedSummaryTemplateConstant   = "Wrote %s with %d repositories\n"
	repositoryFailuresTemplateConstant = "%w: %d of %d failed"
)

func (builder *CommandBuilder) buildGenerateCommand() *cobra.Command {
	command := &cobra.Command{
		Use:   generateUseConstant,
		Short: generateShortDescriptionConstant,
		Long:  generateLongDescriptionConstant,
		Args:  cobra.NoArgs,
		RunE:  builder.runGenerate,
	}
	addExecutionFlags(command)
	return command
}

func (builder *CommandBuilder) buildStatusCommand() *cobra.Command {
	command := &cobra.Command{
		Use:   statusUseConstant,
		Short: statusShortDescriptionConstant,
		Args:  cobra.NoArgs,
		RunE:  builder.runStatus,
	}
	command.Flags().Bool(offlineFlagNameConstant, false, offlineFlagUsageConstant)
	addExecutionFlags(command)
	return command
}

func (builder *CommandBuilder) buildFetchCommand() *cobra.Command {
	command := &cobra.Command{
		Use:   fetchUseConstant,
		Short: fetchShortDescriptionConstant,
		Args:  cobra.NoArgs,
		RunE: func(command *cobra.Command, arguments []string) error {
			return builder.runAction(command, fleetcore.Action{Name: fleetcore.ActionFetch}, false)
		},
	}
	addExecutionFlags(command)
	return command
}

func (builder *CommandBuilder) buildPullCommand() *cobra.Command {
	command := &cobra.Command{
		Use:   pullUseConstant,
		Short: pullShortDescriptionConstant,
		Args:  cobra.NoArgs,
		RunE: func(command *cobra.Command, arguments []string) error {
			return builder.runAction(command, fleetcore.Action{Name: fleetcore.ActionPull}, false)
		},
	}
	addExecutionFlags(command)
	return command
}

func (builder *CommandBuilder) buildCheckoutCommand() *cobra.Command {
	command := &cobra.Command{
		Use:   checkoutUseConstant,
		Short: checkoutShortDescriptionConstant,
		Long:  checkoutLongDescriptionConstant,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(command *cobra.Command, arguments []string) error {
			action := fleetcore.Action{Name: fleetcore.ActionCheckout}
			if len(arguments) == 1 {
				action.Branch = arguments[0]
			}
			return builder.runAction(command, action, false)
		},
	}
	addExecutionFlags(command)
	return command
}

func (builder *CommandBuilder) buildSyncCommand() *cobra.Command {
	command := &cobra.Command{
		Use:   syncUseConstant,
		Short: syncShortDescriptionConstant,
		Long:  syncLongDescriptionConstant,
		Args:  cobra.NoArgs,
		RunE: func(command *cobra.Command, arguments []string) error {
			allProfiles, flagError := command.Flags().GetBool(allProfilesFlagNameConstant)
			if flagError != nil {
				return flagError
			}
			return builder.runAction(command, fleetcore.Action{Name: fleetcore.ActionSync}, allProfiles)
		},
	}
	command.Flags().Bool(allProfilesFlagNameConstant, false, allProfilesFlagUsageConstant)
	addExecutionFlags(command)
	return command
}

func (builder *CommandBuilder) runGenerate(command *cobra.Command, _ []string) error {
	currentSession, sessionError := builder.newSession(command, true)
	if sessionError != nil {
		return sessionError
	}

	configuration, generateError := currentSession.store.Generate(currentSession.executionContext, currentSession.rootPath)
	if generateError != nil {
		return generateError
	}

	repositories := make([]*fleetcore.Repository, 0)
	for _, profile := range configuration.Profiles {
		repositories = append(repositories, fleetcore.Materialize(currentSession.rootPath, profile)...)
	}
	if _, writeError := fmt.Fprintf(command.OutOrStdout(), generatedSummaryTemplateConstant, fleetcore.ConfigPath(currentSession.rootPath), len(repositories)); writeError != nil {
		return writeError
	}

	currentSession.runner.InspectAll(currentSession.executionContext, repositories)
	return currentSession.reporter.RenderTable(fleetcore.BuildReport(repositories))
}

// runStatus renders the table without changing any repository. Unhealthy repositories are
// reported in the table and do not affect the exit code.
func (builder *CommandBuilder) runStatus(command *cobra.Command, _ []string) error {
	offline, flagError := command.Flags().GetBool(offlineFlagNameConstant)
	if flagError != nil {
		return flagError
	}

	currentSession, sessionError := builder.newSession(command, !offline)
	if sessionError != nil {
		return sessionError
	}

	profiles, profilesError := currentSession.loadProfiles(false)
	if profilesError != nil {
		return profilesError
	}

	for _, profile := range profiles {
		currentSession.runner.InspectAll(currentSession.executionContext, profile.Repositories)
		if renderError := currentSession.reporter.RenderTable(fleetcore.BuildReport(profile.Repositories)); renderError != nil {
			return renderError
		}
	}
	return nil
}

func (builder *CommandBuilder) runAction(command *cobra.Command, action fleetcore.Action, allProfiles bool) error {
	currentSession, sessionError := builder.newSession(command, true)
	if sessionError != nil {
		return sessionError
	}

	profiles, profilesError := currentSession.loadProfiles(allProfiles)
	if profilesError != nil {
		return profilesError
	}

	var renderError error
	_, aggregate := currentSession.runner.RunAllProfiles(currentSession.executionContext, profiles, action, func(result fleetcore.ProfileResult) {
		if renderError != nil {
			return
		}
		renderError = currentSession.renderProfileResult(result, allProfiles)
	})
	if renderError != nil {
		return renderError
	}
	if allProfiles {
		if summaryError := currentSession.reporter.RenderSummary(aggregate); summaryError != nil {
			return summaryError
		}
	}

	if aggregate.ExitCode() != fleetcore.ExitCodeSuccess {
		return fmt.Errorf(repositoryFailuresTemplateConstant, fleetcore.ErrRepositoryFailures, aggregate.Failed, aggregate.Attempted)
	}
	return nil
}

func (currentSession *session) renderProfileResult(result fleetcore.ProfileResult, withHeader bool) error {
	if withHeader {
		if headerError := currentSession.reporter.RenderProfileHeader(result.Profile); headerError != nil {
			return headerError
		}
	}
	if outcomesError := currentSession.reporter.RenderOutcomes(result); outcomesError != nil {
		return outcomesError
	}
	return currentSession.reporter.RenderTable(fleetcore.BuildReport(result.Repositories()))
}
