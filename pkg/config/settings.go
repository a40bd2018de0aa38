// Package config implements the Settings component: a typed, reloadable
// configuration with a closed, enumerated schema, backed by JSON
// load/save, directory creation, and an RWMutex-guarded pointer.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/small-frappuccino/argus/pkg/arguserr"
	"github.com/small-frappuccino/argus/pkg/log"
)

// DefaultApplicationMessage is shown to players who are denied access and
// told to go apply in Discord.
const DefaultApplicationMessage = "Access Denied: Please apply in Discord."

// DefaultCacheFile is the default path for the cache store's JSON snapshot.
const DefaultCacheFile = "config/argus_db.json"

// Settings is the closed schema of configuration fields the bridge reads.
type Settings struct {
	BotToken            string  `json:"botToken"`
	GuildID             *uint64 `json:"guildId"`
	WhitelistRoleID     *uint64 `json:"whitelistRoleId"`
	AdminRoleID         *uint64 `json:"adminRoleId"`
	LogChannelID        *uint64 `json:"logChannelId"`
	ApplicationMessage  string  `json:"applicationMessage"`
	EnforcementEnabled  bool    `json:"enforcementEnabled"`
	CacheFile           string  `json:"cacheFile"`
	DiscordInviteURL    *string `json:"discordInviteUrl"`
}

// Default returns the zero-value configuration with its documented defaults applied.
func Default() Settings {
	return Settings{
		ApplicationMessage: DefaultApplicationMessage,
		EnforcementEnabled: false,
		CacheFile:          DefaultCacheFile,
	}
}

// IsConfigured reports whether enough of the schema is populated to start
// the decision engine's Discord-dependent checks.
func (s Settings) IsConfigured() bool {
	return strings.TrimSpace(s.BotToken) != "" && s.GuildID != nil && s.WhitelistRoleID != nil && s.AdminRoleID != nil
}

// FieldNames lists the recognised, settable field names.
func FieldNames() []string {
	return []string{
		"botToken", "guildId", "whitelistRoleId", "adminRoleId", "logChannelId",
		"applicationMessage", "enforcementEnabled", "cacheFile", "discordInviteUrl",
	}
}

// SampleValue returns an example value for a field, used by help text and
// first-run scaffolding.
func SampleValue(field string) string {
	switch field {
	case "botToken":
		return "<your bot token>"
	case "guildId", "whitelistRoleId", "adminRoleId", "logChannelId":
		return "123456789012345678"
	case "applicationMessage":
		return DefaultApplicationMessage
	case "enforcementEnabled":
		return "false"
	case "cacheFile":
		return DefaultCacheFile
	case "discordInviteUrl":
		return "https://discord.gg/your-invite"
	default:
		return ""
	}
}

// Manager owns the current Settings value and its backing file.
type Manager struct {
	mu       sync.RWMutex
	path     string
	settings Settings
}

// NewManager creates a Manager for the settings file at path. Call Load
// before using Current.
func NewManager(path string) *Manager {
	return &Manager{path: path, settings: Default()}
}

// Load reads the settings file. If it does not exist, the defaults are
// written to it first (ensuring parent directories exist), seeding a
// fresh config on first run.
func (m *Manager) Load() error {
	if err := os.MkdirAll(filepath.Dir(m.path), 0o755); err != nil {
		return arguserr.NewConfigError("mkdir", m.path, err)
	}

	data, err := os.ReadFile(m.path)
	if err != nil {
		if os.IsNotExist(err) {
			log.Info().Applicationf("settings file %s not found; writing defaults", m.path)
			m.mu.Lock()
			m.settings = Default()
			m.mu.Unlock()
			return m.save()
		}
		log.Error().Errorf("failed to read settings file %s: %v", m.path, err)
		return arguserr.NewConfigError("read", m.path, err)
	}

	settings := Default()
	if err := json.Unmarshal(data, &settings); err != nil {
		log.Error().Errorf("failed to parse settings file %s: %v", m.path, err)
		return arguserr.NewConfigError("unmarshal", m.path, err)
	}

	m.mu.Lock()
	m.settings = settings
	m.mu.Unlock()
	log.Info().Applicationf("settings loaded from %s", m.path)
	return nil
}

// Current returns a copy of the current settings.
func (m *Manager) Current() Settings {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.settings
}

// Get returns the string representation of a single field.
func (m *Manager) Get(field string) (string, error) {
	s := m.Current()
	switch field {
	case "botToken":
		return s.BotToken, nil
	case "guildId":
		return uintPtrString(s.GuildID), nil
	case "whitelistRoleId":
		return uintPtrString(s.WhitelistRoleID), nil
	case "adminRoleId":
		return uintPtrString(s.AdminRoleID), nil
	case "logChannelId":
		return uintPtrString(s.LogChannelID), nil
	case "applicationMessage":
		return s.ApplicationMessage, nil
	case "enforcementEnabled":
		return strconv.FormatBool(s.EnforcementEnabled), nil
	case "cacheFile":
		return s.CacheFile, nil
	case "discordInviteUrl":
		if s.DiscordInviteURL == nil {
			return "", nil
		}
		return *s.DiscordInviteURL, nil
	default:
		return "", fmt.Errorf("unknown field %q", field)
	}
}

// Update validates, coerces, and applies a single field change, then
// persists the result.
func (m *Manager) Update(field, value string) error {
	m.mu.Lock()
	s := m.settings

	switch field {
	case "botToken":
		s.BotToken = value
	case "guildId":
		v, err := parseOptionalUint64(value)
		if err != nil {
			m.mu.Unlock()
			return err
		}
		s.GuildID = v
	case "whitelistRoleId":
		v, err := parseOptionalUint64(value)
		if err != nil {
			m.mu.Unlock()
			return err
		}
		s.WhitelistRoleID = v
	case "adminRoleId":
		v, err := parseOptionalUint64(value)
		if err != nil {
			m.mu.Unlock()
			return err
		}
		s.AdminRoleID = v
	case "logChannelId":
		v, err := parseOptionalUint64(value)
		if err != nil {
			m.mu.Unlock()
			return err
		}
		s.LogChannelID = v
	case "applicationMessage":
		s.ApplicationMessage = value
	case "enforcementEnabled":
		b, err := strconv.ParseBool(value)
		if err != nil {
			m.mu.Unlock()
			return fmt.Errorf("must be a boolean")
		}
		s.EnforcementEnabled = b
	case "cacheFile":
		s.CacheFile = value
	case "discordInviteUrl":
		trimmed := strings.TrimSpace(value)
		if trimmed == "" {
			s.DiscordInviteURL = nil
		} else {
			s.DiscordInviteURL = &trimmed
		}
	default:
		m.mu.Unlock()
		return fmt.Errorf("unknown field %q", field)
	}

	m.settings = s
	m.mu.Unlock()
	return m.save()
}

func (m *Manager) save() error {
	m.mu.RLock()
	data, err := json.MarshalIndent(m.settings, "", "  ")
	m.mu.RUnlock()
	if err != nil {
		return arguserr.NewConfigError("marshal", m.path, err)
	}

	if err := os.MkdirAll(filepath.Dir(m.path), 0o755); err != nil {
		return arguserr.NewConfigError("mkdir", m.path, err)
	}
	if err := os.WriteFile(m.path, data, 0o644); err != nil {
		log.Error().Errorf("failed to write settings file %s: %v", m.path, err)
		return arguserr.NewConfigError("write", m.path, err)
	}
	log.Info().Applicationf("settings saved to %s", m.path)
	return nil
}

func uintPtrString(v *uint64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatUint(*v, 10)
}

func parseOptionalUint64(value string) (*uint64, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, nil
	}
	n, err := strconv.ParseUint(trimmed, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("must be a number")
	}
	return &n, nil
}
