package core

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/bwmarrin/discordgo"
)

type responseRecorder struct {
	mu        sync.Mutex
	responses []discordgo.InteractionResponse
}

func (r *responseRecorder) add(resp discordgo.InteractionResponse) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.responses = append(r.responses, resp)
}

func (r *responseRecorder) last() (discordgo.InteractionResponse, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.responses) == 0 {
		return discordgo.InteractionResponse{}, false
	}
	return r.responses[len(r.responses)-1], true
}

// newTestSession fakes out discordgo's HTTP endpoints so responses can
// be asserted without reaching Discord.
func newTestSession(t *testing.T) (*discordgo.Session, *responseRecorder) {
	t.Helper()
	rec := &responseRecorder{}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "/callback") {
			var resp discordgo.InteractionResponse
			_ = json.NewDecoder(r.Body).Decode(&resp)
			rec.add(resp)
		}
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(server.Close)

	oldAPI := discordgo.EndpointAPI
	discordgo.EndpointAPI = server.URL + "/"
	t.Cleanup(func() { discordgo.EndpointAPI = oldAPI })

	session, err := discordgo.New("Bot test-token")
	if err != nil {
		t.Fatalf("failed to create session: %v", err)
	}
	return session, rec
}

type fakeCommand struct {
	name          string
	requiresAdmin bool
	handler       func(ctx *Context) error
}

func (c fakeCommand) Name() string        { return c.name }
func (c fakeCommand) Description() string { return c.name }
func (c fakeCommand) Options() []*discordgo.ApplicationCommandOption { return nil }
func (c fakeCommand) RequiresAdmin() bool { return c.requiresAdmin }
func (c fakeCommand) Handle(ctx *Context) error {
	if c.handler != nil {
		return c.handler(ctx)
	}
	return nil
}

func buildInteraction(command, userID string, sub string) *discordgo.InteractionCreate {
	var opts []*discordgo.ApplicationCommandInteractionDataOption
	if sub != "" {
		opts = []*discordgo.ApplicationCommandInteractionDataOption{
			{Type: discordgo.ApplicationCommandOptionSubCommand, Name: sub},
		}
	}
	return &discordgo.InteractionCreate{
		Interaction: &discordgo.Interaction{
			ID:      "interaction-" + command,
			AppID:   "app",
			Token:   "token",
			Type:    discordgo.InteractionApplicationCommand,
			Member:  &discordgo.Member{User: &discordgo.User{ID: userID}},
			Data: discordgo.ApplicationCommandInteractionData{
				Name:    command,
				Options: opts,
			},
		},
	}
}

func TestRouterRejectsNonAdminForAdminCommand(t *testing.T) {
	session, rec := newTestSession(t)
	var handled bool
	router := NewRouter(func(discordID uint64) bool { return false })
	router.Register(fakeCommand{name: "whitelist", requiresAdmin: true, handler: func(ctx *Context) error {
		handled = true
		return nil
	}})

	router.HandleInteraction(session, buildInteraction("whitelist", "42", "add"))

	if handled {
		t.Fatal("expected the handler to never run for a non-admin invoking an admin command")
	}
	resp, ok := rec.last()
	if !ok {
		t.Fatal("expected an error response to be sent")
	}
	if resp.Data == nil || len(resp.Data.Embeds) == 0 {
		t.Fatal("expected an embed denying permission")
	}
}

func TestRouterAllowsPublicSubcommandForNonAdmin(t *testing.T) {
	session, _ := newTestSession(t)
	var handled bool
	router := NewRouter(func(discordID uint64) bool { return false })
	router.Register(fakeCommand{name: "whitelist", requiresAdmin: true, handler: func(ctx *Context) error {
		handled = true
		return nil
	}})

	router.HandleInteraction(session, buildInteraction("whitelist", "42", "apply"))

	if !handled {
		t.Fatal("expected the public 'apply' subcommand to bypass admin gating")
	}
}

func TestRouterAllowsAdminForAdminCommand(t *testing.T) {
	session, _ := newTestSession(t)
	var handled bool
	router := NewRouter(func(discordID uint64) bool { return discordID == 42 })
	router.Register(fakeCommand{name: "whitelist", requiresAdmin: true, handler: func(ctx *Context) error {
		handled = true
		return nil
	}})

	router.HandleInteraction(session, buildInteraction("whitelist", "42", "ban"))

	if !handled {
		t.Fatal("expected an admin user to reach the handler")
	}
}

func TestRouterSurfacesCommandErrorAsEphemeralResponse(t *testing.T) {
	session, rec := newTestSession(t)
	router := NewRouter(func(discordID uint64) bool { return true })
	router.Register(fakeCommand{name: "link", handler: func(ctx *Context) error {
		return NewCommandError("bad token", true)
	}})

	router.HandleInteraction(session, buildInteraction("link", "1", ""))

	resp, ok := rec.last()
	if !ok {
		t.Fatal("expected a response to be sent")
	}
	if resp.Data == nil || resp.Data.Flags&discordgo.MessageFlagsEphemeral == 0 {
		t.Fatal("expected the command error to surface as an ephemeral response")
	}
}

func TestRouterIgnoresUnknownCommand(t *testing.T) {
	session, rec := newTestSession(t)
	router := NewRouter(func(discordID uint64) bool { return true })

	router.HandleInteraction(session, buildInteraction("nonexistent", "1", ""))

	if _, ok := rec.last(); ok {
		t.Fatal("expected no response for an unregistered command")
	}
}
