// Package discordbridge implements the Discord Bridge component against
// a live discordgo session: session construction wraps intents and
// Open() with classified errors, and the live role-status query applies
// the same classified-error style to GuildMember fetches. The
// member/role cache is a github.com/hashicorp/golang-lru/v2 bounded
// cache.
package discordbridge

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/small-frappuccino/argus/pkg/bridge"
	"github.com/small-frappuccino/argus/pkg/errutil"
	"github.com/small-frappuccino/argus/pkg/log"
)

const (
	defaultRoleQueryTimeout = 2 * time.Second
	memberCacheSize         = 4096
	memberCacheTTL          = 30 * time.Second
)

type cachedMember struct {
	roleIDs  []string
	cachedAt time.Time
}

// Bridge is the concrete discordgo-backed Discord Bridge.
type Bridge struct {
	session         *discordgo.Session
	guildID         string
	whitelistRoleID string
	adminRoleID     string
	logChannelID    string

	memberCache *lru.Cache[string, cachedMember]
	sink        bridge.EventSink
}

// New constructs a Bridge. Call Open to establish the gateway connection.
func New(token, guildID, whitelistRoleID, adminRoleID, logChannelID string) (*Bridge, error) {
	if token == "" {
		return nil, fmt.Errorf("discord bot token is empty")
	}

	var session *discordgo.Session
	if err := errutil.HandleDiscordError("create_session", func() error {
		var sessionErr error
		session, sessionErr = discordgo.New("Bot " + token)
		return sessionErr
	}); err != nil {
		return nil, fmt.Errorf("failed to create discord session: %w", err)
	}

	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMembers |
		discordgo.IntentsGuildPresences

	cache, err := lru.New[string, cachedMember](memberCacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to construct member cache: %w", err)
	}

	return &Bridge{
		session:         session,
		guildID:         guildID,
		whitelistRoleID: whitelistRoleID,
		adminRoleID:     adminRoleID,
		logChannelID:    logChannelID,
		memberCache:     cache,
	}, nil
}

// SetEventSink wires the decision engine as the recipient of identity
// and role-set change notifications. Must be called before Open.
func (b *Bridge) SetEventSink(sink bridge.EventSink) {
	b.sink = sink
}

// Open connects to the Discord gateway and registers the gateway
// handlers that fan events into the configured EventSink.
func (b *Bridge) Open() error {
	b.session.AddHandler(b.onMemberUpdate)
	b.session.AddHandler(b.onPresenceUpdate)

	if err := errutil.HandleDiscordError("connect", func() error {
		return b.session.Open()
	}); err != nil {
		return fmt.Errorf("failed to connect to discord: %w", err)
	}
	log.Info().Discordf("discord bridge connected")
	return nil
}

// Close disconnects the gateway session.
func (b *Bridge) Close() error {
	return b.session.Close()
}

// Session returns the underlying discordgo session, used by the slash
// command surface (component L) for interaction registration.
func (b *Bridge) Session() *discordgo.Session {
	return b.session
}

// CheckWhitelistStatus implements bridge.RoleStatusChecker.
func (b *Bridge) CheckWhitelistStatus(ctx context.Context, discordID uint64) bridge.RoleStatus {
	ctx, cancel := context.WithTimeout(ctx, defaultRoleQueryTimeout)
	defer cancel()

	userID := fmt.Sprintf("%d", discordID)

	if cached, ok := b.memberCache.Get(userID); ok && time.Since(cached.cachedAt) < memberCacheTTL {
		return classifyRoles(cached.roleIDs, b.whitelistRoleID)
	}

	done := make(chan struct {
		member *discordgo.Member
		err    error
	}, 1)

	go func() {
		m, err := b.session.GuildMember(b.guildID, userID, discordgo.WithContext(ctx))
		done <- struct {
			member *discordgo.Member
			err    error
		}{m, err}
	}()

	select {
	case <-ctx.Done():
		return bridge.Indeterminate
	case result := <-done:
		if result.err != nil {
			return classifyMemberFetchError(result.err)
		}
		b.memberCache.Add(userID, cachedMember{roleIDs: result.member.Roles, cachedAt: time.Now()})
		return classifyRoles(result.member.Roles, b.whitelistRoleID)
	}
}

func classifyRoles(roleIDs []string, whitelistRoleID string) bridge.RoleStatus {
	for _, r := range roleIDs {
		if r == whitelistRoleID {
			return bridge.HasRole
		}
	}
	return bridge.MissingRole
}

func classifyMemberFetchError(err error) bridge.RoleStatus {
	var restErr *discordgo.RESTError
	if asRESTError(err, &restErr) && restErr != nil && restErr.Response != nil {
		switch restErr.Response.StatusCode {
		case 404, 403:
			return bridge.NotInGuild
		}
	}
	return bridge.Indeterminate
}

func asRESTError(err error, target **discordgo.RESTError) bool {
	for err != nil {
		if re, ok := err.(*discordgo.RESTError); ok {
			*target = re
			return true
		}
		unwrapper, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = unwrapper.Unwrap()
	}
	return false
}

// Dispatch implements bridge.AuditDispatcher by posting a best-effort
// embed to the configured log channel.
func (b *Bridge) Dispatch(entry bridge.AuditEntry) error {
	if b.logChannelID == "" {
		return nil
	}
	embed := &discordgo.MessageEmbed{
		Title:       entry.Action,
		Description: entry.Description,
	}
	if entry.Subject != "" {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{Name: "Subject", Value: entry.Subject, Inline: true})
	}
	if entry.Actor != "" {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{Name: "Actor", Value: entry.Actor, Inline: true})
	}
	for k, v := range entry.Metadata {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{Name: k, Value: v, Inline: true})
	}
	_, err := b.session.ChannelMessageSendEmbed(b.logChannelID, embed)
	return err
}

func (b *Bridge) onMemberUpdate(s *discordgo.Session, m *discordgo.GuildMemberUpdate) {
	if b.sink == nil || m.GuildID != b.guildID || m.Member == nil || m.Member.User == nil {
		return
	}
	var discordID uint64
	if _, err := fmt.Sscanf(m.Member.User.ID, "%d", &discordID); err != nil {
		return
	}

	name := m.Member.User.Username
	nick := m.Member.Nick
	b.sink.OnIdentityChange(bridge.IdentityChange{DiscordID: discordID, NewName: &name, NewNick: &nick})

	roleIDs := make([]uint64, 0, len(m.Member.Roles))
	for _, r := range m.Member.Roles {
		var id uint64
		if _, err := fmt.Sscanf(r, "%d", &id); err == nil {
			roleIDs = append(roleIDs, id)
		}
	}
	b.sink.OnRoleSetChange(bridge.RoleSetChange{DiscordID: discordID, RoleIDs: roleIDs})

	b.memberCache.Add(m.Member.User.ID, cachedMember{roleIDs: m.Member.Roles, cachedAt: time.Now()})
}

func (b *Bridge) onPresenceUpdate(s *discordgo.Session, p *discordgo.PresenceUpdate) {
	// Presence intent is requested so role/member caches stay warm for
	// active users; no decision-engine fan-in is needed from presence
	// alone.
}
