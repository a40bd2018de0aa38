// Package discordcmd wires the slash command surface to engine.Core
// using thin command structs that parse options with
// core.OptionExtractor and delegate all decisions to the engine.
package discordcmd

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"github.com/small-frappuccino/argus/pkg/discordcmd/core"
	"github.com/small-frappuccino/argus/pkg/engine"
	"github.com/small-frappuccino/argus/pkg/storage"
)

// resolvePlayer accepts either a Minecraft UUID or a cached player name
// and resolves it to the canonical game UUID used as the player record
// key throughout the engine.
func resolvePlayer(c *engine.Core, raw string) (uuid.UUID, bool) {
	raw = strings.TrimSpace(raw)
	if id, err := uuid.Parse(raw); err == nil {
		return id, true
	}
	id, _, found := c.Store.FindByName(raw)
	return id, found
}

func formatDuration(minutes int64) *int64 {
	if minutes <= 0 {
		return nil
	}
	until := minutes * 60 * 1000
	return &until
}

// LinkCommand implements "/link token:<string>".
type LinkCommand struct {
	core *engine.Core
}

// NewLinkCommand builds the /link command bound to the engine core.
func NewLinkCommand(c *engine.Core) *LinkCommand { return &LinkCommand{core: c} }

func (c *LinkCommand) Name() string        { return "link" }
func (c *LinkCommand) Description() string { return "Link your Discord account to a Minecraft account" }
func (c *LinkCommand) RequiresAdmin() bool  { return false }

func (c *LinkCommand) Options() []*discordgo.ApplicationCommandOption {
	return []*discordgo.ApplicationCommandOption{
		{
			Type:        discordgo.ApplicationCommandOptionString,
			Name:        "token",
			Description: "The link token shown in-game",
			Required:    true,
		},
	}
}

func (c *LinkCommand) Handle(ctx *core.Context) error {
	opts := core.NewOptionExtractor(ctx.Interaction.ApplicationCommandData().Options)
	token := opts.String("token")
	if token == "" {
		return core.NewCommandError("A link token is required.", true)
	}

	var nick *string
	if ctx.Interaction.Member != nil && ctx.Interaction.Member.Nick != "" {
		n := ctx.Interaction.Member.Nick
		nick = &n
	}
	username := ctx.Interaction.Member.User.Username

	msg, err := c.core.LinkDiscordUser(token, ctx.UserID, username, nick)
	if err != nil {
		return core.NewCommandError(err.Error(), true)
	}
	return core.NewResponseBuilder(ctx.Session).Ephemeral().Success(ctx.Interaction, msg)
}

// WhitelistCommand implements the "/whitelist" subcommand group. Admin
// gating for its subcommands is enforced by core.Router before Handle is
// ever called; this command trusts that gate.
type WhitelistCommand struct {
	core   *engine.Core
	mirror *storage.Store
}

// NewWhitelistCommand builds the /whitelist command group.
func NewWhitelistCommand(c *engine.Core, mirror *storage.Store) *WhitelistCommand {
	return &WhitelistCommand{core: c, mirror: mirror}
}

func (c *WhitelistCommand) Name() string { return "whitelist" }
func (c *WhitelistCommand) Description() string {
	return "Manage whitelist access, applications, and moderation"
}
func (c *WhitelistCommand) RequiresAdmin() bool { return true }

func (c *WhitelistCommand) Options() []*discordgo.ApplicationCommandOption {
	playerOpt := &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionString,
		Name:        "player",
		Description: "Minecraft UUID or cached player name",
		Required:    true,
	}
	reasonOpt := &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionString,
		Name:        "reason",
		Description: "Reason",
	}
	durationOpt := &discordgo.ApplicationCommandOption{
		Type:        discordgo.ApplicationCommandOptionInteger,
		Name:        "duration_minutes",
		Description: "Ban duration in minutes (omit for permanent)",
	}

	return []*discordgo.ApplicationCommandOption{
		{
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Name:        "add",
			Description: "Whitelist a player",
			Options: []*discordgo.ApplicationCommandOption{
				playerOpt,
				{Type: discordgo.ApplicationCommandOptionString, Name: "mcname", Description: "Minecraft name to record"},
			},
		},
		{
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Name:        "remove",
			Description: "Remove a player from the whitelist",
			Options:     []*discordgo.ApplicationCommandOption{playerOpt},
		},
		{
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Name:        "status",
			Description: "Show a player's whitelist status",
			Options:     []*discordgo.ApplicationCommandOption{playerOpt},
		},
		{
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Name:        "apply",
			Description: "Apply for whitelist access",
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionString, Name: "mcname", Description: "Your Minecraft name", Required: true},
			},
		},
		{
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Name:        "list-applications",
			Description: "List pending whitelist applications",
		},
		{
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Name:        "approve",
			Description: "Approve a pending application",
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionString, Name: "application", Description: "Application ID", Required: true},
				reasonOpt,
			},
		},
		{
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Name:        "deny",
			Description: "Deny a pending application",
			Options: []*discordgo.ApplicationCommandOption{
				{Type: discordgo.ApplicationCommandOptionString, Name: "application", Description: "Application ID", Required: true},
				reasonOpt,
			},
		},
		{
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Name:        "comment",
			Description: "Leave an audit-only note on a player",
			Options: []*discordgo.ApplicationCommandOption{
				playerOpt,
				{Type: discordgo.ApplicationCommandOptionString, Name: "note", Description: "Note text", Required: true},
			},
		},
		{
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Name:        "review",
			Description: "Show the recent event history for a player",
			Options:     []*discordgo.ApplicationCommandOption{playerOpt},
		},
		{
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Name:        "warn",
			Description: "Issue a warning to a player",
			Options:     []*discordgo.ApplicationCommandOption{playerOpt, reasonOpt},
		},
		{
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Name:        "ban",
			Description: "Ban a player",
			Options:     []*discordgo.ApplicationCommandOption{playerOpt, reasonOpt, durationOpt},
		},
		{
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Name:        "unban",
			Description: "Lift a player's ban",
			Options:     []*discordgo.ApplicationCommandOption{playerOpt, reasonOpt},
		},
		{
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Name:        "my",
			Description: "Show your own warning count and ban status",
		},
		{
			Type:        discordgo.ApplicationCommandOptionSubCommand,
			Name:        "help",
			Description: "List available whitelist commands",
		},
	}
}

func (c *WhitelistCommand) Handle(ctx *core.Context) error {
	sub := core.GetSubCommandName(ctx.Interaction)
	opts := core.NewOptionExtractor(core.GetSubCommandOptions(ctx.Interaction))

	switch sub {
	case "add":
		return c.handleAdd(ctx, opts)
	case "remove":
		return c.handleRemove(ctx, opts)
	case "status":
		return c.handleStatus(ctx, opts)
	case "apply":
		return c.handleApply(ctx, opts)
	case "list-applications":
		return c.handleListApplications(ctx)
	case "approve":
		return c.handleApprove(ctx, opts)
	case "deny":
		return c.handleDeny(ctx, opts)
	case "comment":
		return c.handleComment(ctx, opts)
	case "review":
		return c.handleReview(ctx, opts)
	case "warn":
		return c.handleWarn(ctx, opts)
	case "ban":
		return c.handleBan(ctx, opts)
	case "unban":
		return c.handleUnban(ctx, opts)
	case "my":
		return c.handleMy(ctx)
	case "help":
		return c.handleHelp(ctx)
	default:
		return core.NewCommandError("Unknown whitelist subcommand.", true)
	}
}

func (c *WhitelistCommand) handleAdd(ctx *core.Context, opts *core.OptionExtractor) error {
	id, ok := resolvePlayer(c.core, opts.String("player"))
	if !ok {
		return core.NewCommandError("Could not resolve that player.", true)
	}
	var mcName *string
	if v := opts.String("mcname"); v != "" {
		mcName = &v
	}
	actorLabel := fmt.Sprintf("%d", ctx.UserID)
	msg := c.core.WhitelistAdd(id, mcName, actorLabel)
	return core.NewResponseBuilder(ctx.Session).Success(ctx.Interaction, msg)
}

func (c *WhitelistCommand) handleRemove(ctx *core.Context, opts *core.OptionExtractor) error {
	id, ok := resolvePlayer(c.core, opts.String("player"))
	if !ok {
		return core.NewCommandError("Could not resolve that player.", true)
	}
	actorLabel := fmt.Sprintf("%d", ctx.UserID)
	msg := c.core.WhitelistRemove(id, actorLabel)
	return core.NewResponseBuilder(ctx.Session).Success(ctx.Interaction, msg)
}

func (c *WhitelistCommand) handleStatus(ctx *core.Context, opts *core.OptionExtractor) error {
	id, ok := resolvePlayer(c.core, opts.String("player"))
	if !ok {
		return core.NewCommandError("Could not resolve that player.", true)
	}
	return core.NewResponseBuilder(ctx.Session).Info(ctx.Interaction, c.core.WhitelistStatus(id))
}

func (c *WhitelistCommand) handleApply(ctx *core.Context, opts *core.OptionExtractor) error {
	mcName := opts.String("mcname")
	if mcName == "" {
		return core.NewCommandError("A Minecraft name is required.", true)
	}
	id, err := c.core.SubmitApplication(context.Background(), ctx.UserID, mcName)
	if err != nil {
		return core.NewCommandError("Could not submit application: "+err.Error(), true)
	}
	return core.NewResponseBuilder(ctx.Session).Ephemeral().Success(ctx.Interaction,
		fmt.Sprintf("Application submitted (id=%s). An admin will review it.", id))
}

func (c *WhitelistCommand) handleListApplications(ctx *core.Context) error {
	pending := c.core.ListPendingApplications()
	if len(pending) == 0 {
		return core.NewResponseBuilder(ctx.Session).Info(ctx.Interaction, "No pending applications.")
	}
	var b strings.Builder
	for _, app := range pending {
		fmt.Fprintf(&b, "- `%s` %s (discord=%d)\n", app.ID, app.MCName, app.DiscordID)
	}
	return core.NewResponseBuilder(ctx.Session).Info(ctx.Interaction, b.String())
}

func (c *WhitelistCommand) handleApprove(ctx *core.Context, opts *core.OptionExtractor) error {
	appID := opts.String("application")
	var reason *string
	if v := opts.String("reason"); v != "" {
		reason = &v
	}
	msg, err := c.core.ApproveApplication(appID, ctx.UserID, reason)
	if err != nil {
		return core.NewCommandError(err.Error(), true)
	}
	return core.NewResponseBuilder(ctx.Session).Success(ctx.Interaction, msg)
}

func (c *WhitelistCommand) handleDeny(ctx *core.Context, opts *core.OptionExtractor) error {
	appID := opts.String("application")
	var reason *string
	if v := opts.String("reason"); v != "" {
		reason = &v
	}
	msg, err := c.core.DenyApplication(appID, ctx.UserID, reason)
	if err != nil {
		return core.NewCommandError(err.Error(), true)
	}
	return core.NewResponseBuilder(ctx.Session).Success(ctx.Interaction, msg)
}

func (c *WhitelistCommand) handleComment(ctx *core.Context, opts *core.OptionExtractor) error {
	id, ok := resolvePlayer(c.core, opts.String("player"))
	if !ok {
		return core.NewCommandError("Could not resolve that player.", true)
	}
	note := opts.String("note")
	if note == "" {
		return core.NewCommandError("A note is required.", true)
	}
	msg := c.core.CommentOnPlayer(id, ctx.UserID, note)
	return core.NewResponseBuilder(ctx.Session).Success(ctx.Interaction, msg)
}

func (c *WhitelistCommand) handleReview(ctx *core.Context, opts *core.OptionExtractor) error {
	id, ok := resolvePlayer(c.core, opts.String("player"))
	if !ok {
		return core.NewCommandError("Could not resolve that player.", true)
	}
	if c.mirror == nil {
		return core.NewCommandError("Event history is unavailable.", true)
	}
	events, err := c.mirror.EventsForTarget(id.String(), 10)
	if err != nil {
		return core.NewCommandError("Could not load event history: "+err.Error(), true)
	}
	if len(events) == 0 {
		return core.NewResponseBuilder(ctx.Session).Info(ctx.Interaction, "No recorded events for "+id.String())
	}
	var b strings.Builder
	for _, e := range events {
		msg := ""
		if e.Message != nil {
			msg = *e.Message
		}
		when := humanize.Time(time.UnixMilli(e.AtEpochMs))
		fmt.Fprintf(&b, "- %s (%s): %s\n", e.Type, when, msg)
	}
	return core.NewResponseBuilder(ctx.Session).Info(ctx.Interaction, b.String())
}

func (c *WhitelistCommand) handleWarn(ctx *core.Context, opts *core.OptionExtractor) error {
	id, ok := resolvePlayer(c.core, opts.String("player"))
	if !ok {
		return core.NewCommandError("Could not resolve that player.", true)
	}
	reason := opts.String("reason")
	if reason == "" {
		return core.NewCommandError("A reason is required.", true)
	}
	msg := c.core.WarnPlayer(id, ctx.UserID, reason)
	return core.NewResponseBuilder(ctx.Session).Success(ctx.Interaction, msg)
}

func (c *WhitelistCommand) handleBan(ctx *core.Context, opts *core.OptionExtractor) error {
	id, ok := resolvePlayer(c.core, opts.String("player"))
	if !ok {
		return core.NewCommandError("Could not resolve that player.", true)
	}
	reason := opts.String("reason")
	if reason == "" {
		return core.NewCommandError("A reason is required.", true)
	}
	var until *int64
	if offset := formatDuration(opts.Int("duration_minutes")); offset != nil {
		u := time.Now().UnixMilli() + *offset
		until = &u
	}
	msg := c.core.BanPlayer(id, ctx.UserID, reason, until)
	if until != nil {
		msg = fmt.Sprintf("%s (expires %s)", msg, humanize.Time(time.UnixMilli(*until)))
	}
	return core.NewResponseBuilder(ctx.Session).Success(ctx.Interaction, msg)
}

func (c *WhitelistCommand) handleUnban(ctx *core.Context, opts *core.OptionExtractor) error {
	id, ok := resolvePlayer(c.core, opts.String("player"))
	if !ok {
		return core.NewCommandError("Could not resolve that player.", true)
	}
	var reason *string
	if v := opts.String("reason"); v != "" {
		reason = &v
	}
	msg := c.core.UnbanPlayer(id, ctx.UserID, reason)
	return core.NewResponseBuilder(ctx.Session).Success(ctx.Interaction, msg)
}

func (c *WhitelistCommand) handleMy(ctx *core.Context) error {
	id, pdata, exists := c.core.Store.FindByDiscordID(ctx.UserID)
	if !exists {
		return core.NewResponseBuilder(ctx.Session).Ephemeral().Info(ctx.Interaction, "You are not linked to a Minecraft account yet.")
	}
	msg := fmt.Sprintf("warnCount=%d", pdata.WarnCount)
	if pdata.BanReason != nil {
		msg += fmt.Sprintf(", banned: %s", *pdata.BanReason)
	}
	_ = id
	return core.NewResponseBuilder(ctx.Session).Ephemeral().Info(ctx.Interaction, msg)
}

func (c *WhitelistCommand) handleHelp(ctx *core.Context) error {
	help := "Available: add, remove, status, apply, list-applications, approve, deny, comment, review, warn, ban, unban, my, help"
	return core.NewResponseBuilder(ctx.Session).Ephemeral().Info(ctx.Interaction, help)
}

// AdminCheckerFor builds an AdminChecker from the engine's configured
// admin role against live guild member state, used by the router to
// gate every whitelist subcommand except the public subset.
func AdminCheckerFor(c *engine.Core, session *discordgo.Session, guildID string) core.AdminChecker {
	return func(discordID uint64) bool {
		settings := c.Settings.Current()
		if settings.AdminRoleID == nil {
			return false
		}
		member, err := session.State.Member(guildID, strconv.FormatUint(discordID, 10))
		if err != nil || member == nil {
			member, err = session.GuildMember(guildID, strconv.FormatUint(discordID, 10))
			if err != nil || member == nil {
				return false
			}
		}
		adminRole := strconv.FormatUint(*settings.AdminRoleID, 10)
		for _, r := range member.Roles {
			if r == adminRole {
				return true
			}
		}
		return false
	}
}
