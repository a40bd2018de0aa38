package core

import (
	"github.com/bwmarrin/discordgo"

	"github.com/small-frappuccino/argus/pkg/log"
)

// AdminChecker reports whether a Discord member holds the admin role,
// so the router can gate commands without importing the engine package
// (keeping this package usable from tests with a fake checker).
type AdminChecker func(discordID uint64) bool

// Router dispatches interactions to registered commands.
type Router struct {
	registry     *Registry
	isAdmin      AdminChecker
	publicSubset map[string]bool
}

// NewRouter creates a Router. publicSubset lists the subcommand names
// exempt from admin gating: apply, my, and help remain open to any
// guild member.
func NewRouter(isAdmin AdminChecker) *Router {
	return &Router{
		registry: NewRegistry(),
		isAdmin:  isAdmin,
		publicSubset: map[string]bool{
			"apply": true,
			"my":    true,
			"help":  true,
		},
	}
}

// Register adds a top-level command.
func (r *Router) Register(cmd Command) {
	r.registry.Register(cmd)
}

// Registry exposes the underlying registry for command sync.
func (r *Router) Registry() *Registry {
	return r.registry
}

// IsPublicSubcommand reports whether a whitelist subcommand name is
// exempt from admin gating.
func (r *Router) IsPublicSubcommand(name string) bool {
	return r.publicSubset[name]
}

// HandleInteraction is registered with discordgo.Session.AddHandler.
func (r *Router) HandleInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}

	commandName := i.ApplicationCommandData().Name
	cmd, ok := r.registry.Get(commandName)
	if !ok {
		log.Warn().Discordf("unknown slash command invoked: %s", commandName)
		return
	}

	userID := ExtractUserID(i)
	isAdmin := r.isAdmin != nil && r.isAdmin(userID)
	sub := GetSubCommandName(i)

	if cmd.RequiresAdmin() && !isAdmin && !(sub != "" && r.IsPublicSubcommand(sub)) {
		NewResponseBuilder(s).Ephemeral().Error(i, "You do not have permission to use this command.")
		return
	}

	ctx := &Context{Session: s, Interaction: i, UserID: userID, IsAdmin: isAdmin}
	if err := cmd.Handle(ctx); err != nil {
		if cmdErr, ok := err.(*CommandError); ok {
			builder := NewResponseBuilder(s)
			if cmdErr.Ephemeral {
				builder = builder.Ephemeral()
			}
			builder.Error(i, cmdErr.Message)
			return
		}
		log.Error().Errorf("command %s failed: %v", commandName, err)
		NewResponseBuilder(s).Ephemeral().Error(i, "An error occurred while executing the command.")
	}
}

// SyncCommands registers/updates/removes the bot's slash commands against
// Discord to match the registry.
func SyncCommands(s *discordgo.Session, r *Router) error {
	registered, err := s.ApplicationCommands(s.State.User.ID, "")
	if err != nil {
		return err
	}
	byName := make(map[string]*discordgo.ApplicationCommand, len(registered))
	for _, rc := range registered {
		byName[rc.Name] = rc
	}

	desired := r.registry.All()
	for name, cmd := range desired {
		def := &discordgo.ApplicationCommand{
			Name:        cmd.Name(),
			Description: cmd.Description(),
			Options:     cmd.Options(),
		}
		if existing, ok := byName[name]; ok {
			if _, err := s.ApplicationCommandEdit(s.State.User.ID, "", existing.ID, def); err != nil {
				return err
			}
			continue
		}
		if _, err := s.ApplicationCommandCreate(s.State.User.ID, "", def); err != nil {
			return err
		}
	}

	for _, rc := range registered {
		if _, ok := desired[rc.Name]; !ok {
			if err := s.ApplicationCommandDelete(s.State.User.ID, "", rc.ID); err != nil {
				log.Warn().Discordf("failed to remove orphan command %s: %v", rc.Name, err)
			}
		}
	}
	return nil
}
