// Package theme holds the color roles used by the slash command
// response embeds: a small registry of named palettes with a
// currently-active one, so operators can restyle the bot without
// touching command code.
package theme

import (
	"fmt"
	"sync"
)

// Color is the int value used by discordgo.MessageEmbed.Color
type Color = int

// Theme holds all color roles used across the bridge's command surface.
type Theme struct {
	Name string

	Primary Color
	Accent  Color
	Info    Color
	Success Color
	Warning Color
	Loading Color
	Error   Color
	Danger  Color
	Muted   Color

	WhitelistAdd        Color
	WhitelistRemove     Color
	ApplicationPending  Color
	ApplicationApproved Color
	ApplicationDenied   Color
	BanAction           Color
	WarnAction          Color
}

// Clone returns a copy of the Theme.
func (t *Theme) Clone() *Theme {
	cp := *t
	return &cp
}

// ensureDefaults fills zero-valued fields with sensible fallbacks derived
// from other roles, so a theme can override only a subset of fields.
func (t *Theme) ensureDefaults() {
	if t.Accent == 0 {
		t.Accent = t.Primary
	}
	if t.Info == 0 {
		t.Info = 0x3B82F6
	}
	if t.Success == 0 {
		t.Success = 0x57F287
	}
	if t.Warning == 0 {
		t.Warning = 0xF59E0B
	}
	if t.Loading == 0 {
		t.Loading = 0xFEE75C
	}
	if t.Error == 0 {
		t.Error = 0xED4245
	}
	if t.Danger == 0 {
		t.Danger = 0xED4245
	}
	if t.Muted == 0 {
		t.Muted = 0x99AAB5
	}

	if t.WhitelistAdd == 0 {
		t.WhitelistAdd = t.Success
	}
	if t.WhitelistRemove == 0 {
		t.WhitelistRemove = t.Muted
	}
	if t.ApplicationPending == 0 {
		t.ApplicationPending = t.Info
	}
	if t.ApplicationApproved == 0 {
		t.ApplicationApproved = t.Success
	}
	if t.ApplicationDenied == 0 {
		t.ApplicationDenied = t.Error
	}
	if t.BanAction == 0 {
		t.BanAction = t.Danger
	}
	if t.WarnAction == 0 {
		t.WarnAction = t.Warning
	}
}

func defaultTheme() *Theme {
	th := &Theme{
		Name:    "default",
		Primary: 0x5865F2, // Discord blurple
		Info:    0x3B82F6,
		Success: 0x57F287,
		Warning: 0xF59E0B,
		Loading: 0xFEE75C,
		Error:   0xED4245,
		Danger:  0xED4245,
		Muted:   0x99AAB5,
	}
	th.ensureDefaults()
	return th
}

var (
	mu        sync.RWMutex
	registry  = map[string]*Theme{}
	currentTh = defaultTheme()
)

// Register adds a theme to the registry. It returns an error if the name
// is empty or already registered.
func Register(t *Theme) error {
	if t == nil {
		return fmt.Errorf("theme: cannot register nil theme")
	}
	if t.Name == "" {
		return fmt.Errorf("theme: name is required")
	}
	cp := t.Clone()
	cp.ensureDefaults()

	mu.Lock()
	defer mu.Unlock()
	if _, exists := registry[cp.Name]; exists {
		return fmt.Errorf("theme: theme %q already registered", cp.Name)
	}
	registry[cp.Name] = cp
	return nil
}

// MustRegister is like Register but panics on error.
func MustRegister(t *Theme) {
	if err := Register(t); err != nil {
		panic(err)
	}
}

// SetCurrent switches the active theme by name.
func SetCurrent(name string) error {
	mu.Lock()
	defer mu.Unlock()
	if name == "" {
		currentTh = defaultTheme()
		return nil
	}
	th, ok := registry[name]
	if !ok {
		return fmt.Errorf("theme: theme %q not found", name)
	}
	currentTh = th.Clone()
	currentTh.ensureDefaults()
	return nil
}

// Current returns a copy of the current theme. Modifying the returned
// value does not affect the global theme.
func Current() *Theme {
	mu.RLock()
	defer mu.RUnlock()
	return currentTh.Clone()
}

// Default returns a copy of the built-in default theme.
func Default() *Theme {
	return defaultTheme()
}

func Primary() Color             { return Current().Primary }
func Accent() Color              { return Current().Accent }
func Info() Color                { return Current().Info }
func Success() Color             { return Current().Success }
func Warning() Color             { return Current().Warning }
func Error() Color               { return Current().Error }
func Danger() Color              { return Current().Danger }
func Muted() Color               { return Current().Muted }
func Loading() Color             { return Current().Loading }
func WhitelistAdd() Color        { return Current().WhitelistAdd }
func WhitelistRemove() Color     { return Current().WhitelistRemove }
func ApplicationPending() Color  { return Current().ApplicationPending }
func ApplicationApproved() Color { return Current().ApplicationApproved }
func ApplicationDenied() Color   { return Current().ApplicationDenied }
func BanAction() Color           { return Current().BanAction }
func WarnAction() Color          { return Current().WarnAction }
