package execshell

import (
	"fmt"
	"strings"
)

type messageStage int

const (
	messageStageStart messageStage = iota
	messageStageSuccess
	messageStageFailure
	messageStageExecutionFailure
)

const (
	genericStartTemplateConstant            = "Running %s"
	genericSuccessTemplateConstant          = "Completed %s"
	genericFailureTemplateConstant          = "%s failed with exit code %d%s"
	genericExecutionFailureTemplateConstant = "%s failed: %s"
	workingDirectorySuffixTemplateConstant  = " (in %s)"
	commandArgumentsJoinSeparatorConstant   = " "
	standardErrorSuffixTemplateConstant     = ": %s"
	unknownFailureMessageConstant           = "unknown error"
	emptyStringConstant                     = ""
	defaultWorkingDirectoryLabelConstant    = "current directory"
	allRemotesLabelConstant                 = "all remotes"
	flagPrefixConstant                      = "-"
)

const (
	gitRevParseSubcommandNameConstant   = "rev-parse"
	gitRevListSubcommandNameConstant    = "rev-list"
	gitStatusSubcommandNameConstant     = "status"
	gitFetchSubcommandNameConstant      = "fetch"
	gitPullSubcommandNameConstant       = "pull"
	gitCheckoutSubcommandNameConstant   = "checkout"
	gitSwitchSubcommandNameConstant     = "switch"
	gitForEachRefSubcommandNameConstant = "for-each-ref"
	gitLSRemoteSubcommandNameConstant   = "ls-remote"
	gitWorkTreeFlagConstant             = "--is-inside-work-tree"
	gitLocalBranchPrefixConstant        = "refs/heads/"
)

// messageTemplates holds the start, success, failure, and execution failure sentences for one git action.
// Each template receives the action subject followed by the working directory.
type messageTemplates struct {
	start            string
	success          string
	failure          string
	executionFailure string
}

var (
	workTreeMessageTemplates = messageTemplates{
		start:            "Analyzing repository at %[2]s",
		success:          "%[2]s is a Git repository",
		failure:          "Could not confirm %[2]s is a Git repository",
		executionFailure: "Could not analyze %[2]s",
	}
	currentBranchMessageTemplates = messageTemplates{
		start:            "Identifying current branch in %[2]s",
		success:          "Identified current branch in %[2]s",
		failure:          "Failed to identify current branch in %[2]s",
		executionFailure: "Unable to identify current branch in %[2]s",
	}
	upstreamMessageTemplates = messageTemplates{
		start:            "Checking tracking branch of %[1]s in %[2]s",
		success:          "Resolved tracking branch of %[1]s in %[2]s",
		failure:          "No tracking branch resolved for %[1]s in %[2]s",
		executionFailure: "Unable to check tracking branch of %[1]s in %[2]s",
	}
	divergenceMessageTemplates = messageTemplates{
		start:            "Counting commits between %[1]s in %[2]s",
		success:          "Counted commits between %[1]s in %[2]s",
		failure:          "Failed to count commits between %[1]s in %[2]s",
		executionFailure: "Unable to count commits between %[1]s in %[2]s",
	}
	statusMessageTemplates = messageTemplates{
		start:            "Reviewing working tree status in %[2]s",
		success:          "Collected working tree status for %[2]s",
		failure:          "Failed to review working tree status in %[2]s",
		executionFailure: "Unable to review working tree status in %[2]s",
	}
	fetchMessageTemplates = messageTemplates{
		start:            "Fetching from %[1]s in %[2]s",
		success:          "Fetched from %[1]s in %[2]s",
		failure:          "Failed to fetch from %[1]s in %[2]s",
		executionFailure: "Unable to fetch from %[1]s in %[2]s",
	}
	pullMessageTemplates = messageTemplates{
		start:            "Pulling latest changes in %[2]s",
		success:          "Pulled latest changes in %[2]s",
		failure:          "Failed to pull latest changes in %[2]s",
		executionFailure: "Unable to pull latest changes in %[2]s",
	}
	checkoutMessageTemplates = messageTemplates{
		start:            "Switching %[2]s to branch %[1]s",
		success:          "%[2]s now on branch %[1]s",
		failure:          "Failed to switch %[2]s to branch %[1]s",
		executionFailure: "Unable to switch %[2]s to branch %[1]s",
	}
	lsRemoteMessageTemplates = messageTemplates{
		start:            "Querying remote references on %[1]s from %[2]s",
		success:          "Queried remote references on %[1]s from %[2]s",
		failure:          "Failed to query remote references on %[1]s from %[2]s",
		executionFailure: "Unable to query remote references on %[1]s from %[2]s",
	}
)

// CommandMessageFormatter builds human-readable messages for command lifecycle events.
type CommandMessageFormatter struct{}

// BuildStartedMessage formats the message describing a command about to run.
func (formatter CommandMessageFormatter) BuildStartedMessage(command ShellCommand) string {
	return formatter.buildMessage(command, ExecutionResult{}, nil, messageStageStart)
}

// BuildSuccessMessage formats the message describing a completed command with a zero exit code.
func (formatter CommandMessageFormatter) BuildSuccessMessage(command ShellCommand) string {
	return formatter.buildMessage(command, ExecutionResult{}, nil, messageStageSuccess)
}

// BuildFailureMessage formats the message describing a command that returned a non-zero exit code.
func (formatter CommandMessageFormatter) BuildFailureMessage(command ShellCommand, result ExecutionResult) string {
	return formatter.buildMessage(command, result, nil, messageStageFailure)
}

// BuildExecutionFailureMessage formats the message describing an unexpected execution failure.
func (formatter CommandMessageFormatter) BuildExecutionFailureMessage(command ShellCommand, failure error) string {
	return formatter.buildMessage(command, ExecutionResult{}, failure, messageStageExecutionFailure)
}

func (formatter CommandMessageFormatter) buildMessage(command ShellCommand, result ExecutionResult, failure error, stage messageStage) string {
	if command.Name != CommandGit || len(command.Details.Arguments) == 0 {
		return formatter.buildGenericMessage(command, result, failure, stage)
	}

	arguments := command.Details.Arguments
	operands := nonFlagArguments(arguments[1:])

	var templates messageTemplates
	subject := emptyStringConstant

	switch strings.TrimSpace(arguments[0]) {
	case gitRevParseSubcommandNameConstant:
		if containsArgument(arguments, gitWorkTreeFlagConstant) {
			templates = workTreeMessageTemplates
		} else {
			templates = currentBranchMessageTemplates
		}
	case gitForEachRefSubcommandNameConstant:
		templates = upstreamMessageTemplates
		subject = strings.TrimPrefix(firstOrEmpty(operands), gitLocalBranchPrefixConstant)
	case gitRevListSubcommandNameConstant:
		templates = divergenceMessageTemplates
		subject = firstOrEmpty(operands)
	case gitStatusSubcommandNameConstant:
		templates = statusMessageTemplates
	case gitFetchSubcommandNameConstant:
		templates = fetchMessageTemplates
		subject = firstOrEmpty(operands)
		if len(subject) == 0 {
			subject = allRemotesLabelConstant
		}
	case gitPullSubcommandNameConstant:
		templates = pullMessageTemplates
	case gitCheckoutSubcommandNameConstant, gitSwitchSubcommandNameConstant:
		templates = checkoutMessageTemplates
		subject = firstOrEmpty(operands)
	case gitLSRemoteSubcommandNameConstant:
		templates = lsRemoteMessageTemplates
		subject = firstOrEmpty(operands)
	default:
		return formatter.buildGenericMessage(command, result, failure, stage)
	}

	workingDirectory := formatter.describeWorkingDirectory(command)
	switch stage {
	case messageStageStart:
		return fmt.Sprintf(templates.start, subject, workingDirectory)
	case messageStageSuccess:
		return fmt.Sprintf(templates.success, subject, workingDirectory)
	case messageStageFailure:
		return fmt.Sprintf(templates.failure, subject, workingDirectory) + formatter.formatExitSuffix(result)
	default:
		return fmt.Sprintf(templates.executionFailure, subject, workingDirectory) + fmt.Sprintf(standardErrorSuffixTemplateConstant, formatter.describeFailure(failure))
	}
}

func (formatter CommandMessageFormatter) buildGenericMessage(command ShellCommand, result ExecutionResult, failure error, stage messageStage) string {
	label := formatter.formatCommandLabel(command)
	switch stage {
	case messageStageStart:
		return fmt.Sprintf(genericStartTemplateConstant, label)
	case messageStageSuccess:
		return fmt.Sprintf(genericSuccessTemplateConstant, label)
	case messageStageFailure:
		return fmt.Sprintf(genericFailureTemplateConstant, label, result.ExitCode, formatter.formatStandardErrorSuffix(result.StandardError))
	default:
		return fmt.Sprintf(genericExecutionFailureTemplateConstant, label, formatter.describeFailure(failure))
	}
}

func (formatter CommandMessageFormatter) formatCommandLabel(command ShellCommand) string {
	commandParts := []string{string(command.Name)}
	if len(command.Details.Arguments) > 0 {
		commandParts = append(commandParts, strings.Join(command.Details.Arguments, commandArgumentsJoinSeparatorConstant))
	}
	commandLabel := strings.Join(commandParts, commandArgumentsJoinSeparatorConstant)
	trimmedWorkingDirectory := strings.TrimSpace(command.Details.WorkingDirectory)
	if len(trimmedWorkingDirectory) == 0 {
		return commandLabel
	}
	return commandLabel + fmt.Sprintf(workingDirectorySuffixTemplateConstant, trimmedWorkingDirectory)
}

func (formatter CommandMessageFormatter) describeWorkingDirectory(command ShellCommand) string {
	trimmedWorkingDirectory := strings.TrimSpace(command.Details.WorkingDirectory)
	if len(trimmedWorkingDirectory) == 0 {
		return defaultWorkingDirectoryLabelConstant
	}
	return trimmedWorkingDirectory
}

func (formatter CommandMessageFormatter) formatExitSuffix(result ExecutionResult) string {
	return fmt.Sprintf(" (exit code %d%s)", result.ExitCode, formatter.formatStandardErrorSuffix(result.StandardError))
}

func (formatter CommandMessageFormatter) formatStandardErrorSuffix(standardError string) string {
	trimmedStandardError := strings.TrimSpace(standardError)
	if len(trimmedStandardError) == 0 {
		return emptyStringConstant
	}
	return fmt.Sprintf(standardErrorSuffixTemplateConstant, trimmedStandardError)
}

func (formatter CommandMessageFormatter) describeFailure(failure error) string {
	if failure == nil {
		return unknownFailureMessageConstant
	}
	return failure.Error()
}

func containsArgument(arguments []string, expected string) bool {
	for _, argument := range arguments {
		if strings.TrimSpace(argument) == expected {
			return true
		}
	}
	return false
}

func nonFlagArguments(arguments []string) []string {
	operands := make([]string, 0, len(arguments))
	for _, argument := range arguments {
		trimmed := strings.TrimSpace(argument)
		if len(trimmed) == 0 || strings.HasPrefix(trimmed, flagPrefixConstant) {
			continue
		}
		operands = append(operands, trimmed)
	}
	return operands
}

func firstOrEmpty(values []string) string {
	if len(values) == 0 {
		return emptyStringConstant
	}
	return values[0]
}
