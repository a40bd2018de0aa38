package core

import (
	"github.com/bwmarrin/discordgo"

	"github.com/small-frappuccino/argus/pkg/theme"
)

// ResponseBuilder constructs and sends interaction responses with a
// fluent, chainable API.
type ResponseBuilder struct {
	session   *discordgo.Session
	ephemeral bool
}

// NewResponseBuilder wraps a session for response construction.
func NewResponseBuilder(session *discordgo.Session) *ResponseBuilder {
	return &ResponseBuilder{session: session}
}

// Ephemeral marks the next response as visible only to the invoking user.
func (rb *ResponseBuilder) Ephemeral() *ResponseBuilder {
	rb.ephemeral = true
	return rb
}

func (rb *ResponseBuilder) flags() discordgo.MessageFlags {
	if rb.ephemeral {
		return discordgo.MessageFlagsEphemeral
	}
	return 0
}

// Success sends a success-colored embed response.
func (rb *ResponseBuilder) Success(i *discordgo.InteractionCreate, message string) error {
	return rb.send(i, "✅ "+message, theme.Success())
}

// Error sends an error-colored embed response.
func (rb *ResponseBuilder) Error(i *discordgo.InteractionCreate, message string) error {
	return rb.send(i, "❌ "+message, theme.Error())
}

// Info sends an info-colored embed response.
func (rb *ResponseBuilder) Info(i *discordgo.InteractionCreate, message string) error {
	return rb.send(i, message, theme.Info())
}

func (rb *ResponseBuilder) send(i *discordgo.InteractionCreate, message string, color theme.Color) error {
	return rb.session.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{{Description: message, Color: color}},
			Flags:  rb.flags(),
		},
	})
}
