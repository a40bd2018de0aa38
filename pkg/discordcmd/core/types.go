// Package core provides the command registry, router, and response
// builder shared by the slash command surface.
package core

import (
	"strconv"
	"strings"

	"github.com/bwmarrin/discordgo"
)

// Command is a top-level slash command or a command group.
type Command interface {
	Name() string
	Description() string
	Options() []*discordgo.ApplicationCommandOption
	Handle(ctx *Context) error
	RequiresAdmin() bool
}

// Context is the unified execution context handed to every command
// handler.
type Context struct {
	Session     *discordgo.Session
	Interaction *discordgo.InteractionCreate
	UserID      uint64
	IsAdmin     bool
}

// OptionExtractor simplifies reading named options out of a slash
// command or subcommand interaction.
type OptionExtractor struct {
	options []*discordgo.ApplicationCommandInteractionDataOption
}

// NewOptionExtractor wraps the option list of the invoked (sub)command.
func NewOptionExtractor(options []*discordgo.ApplicationCommandInteractionDataOption) *OptionExtractor {
	return &OptionExtractor{options: options}
}

// String returns the named string option, or "" if absent.
func (e *OptionExtractor) String(name string) string {
	for _, opt := range e.options {
		if opt.Name == name {
			return strings.TrimSpace(opt.StringValue())
		}
	}
	return ""
}

// Int returns the named integer option, or 0 if absent.
func (e *OptionExtractor) Int(name string) int64 {
	for _, opt := range e.options {
		if opt.Name == name {
			return opt.IntValue()
		}
	}
	return 0
}

// UserID returns the named user-mention option's snowflake, or 0 if absent.
func (e *OptionExtractor) UserID(s *discordgo.Session, name string) uint64 {
	for _, opt := range e.options {
		if opt.Name == name {
			id, _ := ParseSnowflake(opt.UserValue(s).ID)
			return id
		}
	}
	return 0
}

// HasOption reports whether a named option was supplied.
func (e *OptionExtractor) HasOption(name string) bool {
	for _, opt := range e.options {
		if opt.Name == name {
			return true
		}
	}
	return false
}

// ParseSnowflake parses a Discord ID string into a uint64.
func ParseSnowflake(s string) (uint64, bool) {
	id, err := strconv.ParseUint(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

// ExtractUserID returns the invoking user's snowflake from an interaction.
func ExtractUserID(i *discordgo.InteractionCreate) uint64 {
	var raw string
	if i.Member != nil && i.Member.User != nil {
		raw = i.Member.User.ID
	} else if i.User != nil {
		raw = i.User.ID
	}
	id, _ := ParseSnowflake(raw)
	return id
}

// GetSubCommandName returns the invoked subcommand's name, if any.
func GetSubCommandName(i *discordgo.InteractionCreate) string {
	options := i.ApplicationCommandData().Options
	if len(options) > 0 && options[0].Type == discordgo.ApplicationCommandOptionSubCommand {
		return options[0].Name
	}
	return ""
}

// GetSubCommandOptions returns the invoked subcommand's option list.
func GetSubCommandOptions(i *discordgo.InteractionCreate) []*discordgo.ApplicationCommandInteractionDataOption {
	options := i.ApplicationCommandData().Options
	if len(options) > 0 && options[0].Type == discordgo.ApplicationCommandOptionSubCommand {
		return options[0].Options
	}
	return options
}

// CommandError carries a user-facing message and its visibility.
type CommandError struct {
	Message   string
	Ephemeral bool
}

func (e *CommandError) Error() string { return e.Message }

// NewCommandError builds a CommandError.
func NewCommandError(message string, ephemeral bool) *CommandError {
	return &CommandError{Message: message, Ephemeral: ephemeral}
}

// Registry holds the set of top-level commands known to the router.
type Registry struct {
	commands map[string]Command
}

// NewRegistry creates an empty command registry.
func NewRegistry() *Registry {
	return &Registry{commands: make(map[string]Command)}
}

// Register adds a command to the registry, keyed by name.
func (r *Registry) Register(cmd Command) {
	r.commands[cmd.Name()] = cmd
}

// Get returns a registered command by name.
func (r *Registry) Get(name string) (Command, bool) {
	cmd, ok := r.commands[name]
	return cmd, ok
}

// All returns every registered command, for Discord command sync.
func (r *Registry) All() map[string]Command {
	return r.commands
}
