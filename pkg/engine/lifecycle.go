package engine

import "fmt"

// Initialize loads Settings, then loads the cache store from the
// configured cache file.
func (c *Core) Initialize() error {
	if err := c.Settings.Load(); err != nil {
		return err
	}
	return c.Store.Load(c.Settings.Current().CacheFile)
}

// StartDiscord opens the Discord bridge. It is idempotent, and a no-op
// success when the bridge is not yet configured (bot token, guild id,
// whitelist role id or admin role id missing).
func (c *Core) StartDiscord() error {
	if c.isDiscordUp() {
		return nil
	}
	settings := c.Settings.Current()
	if !settings.IsConfigured() {
		return nil
	}
	if c.bridgeOpener != nil {
		if err := c.bridgeOpener(); err != nil {
			return fmt.Errorf("start discord bridge: %w", err)
		}
	}
	c.discordStarted.Store(true)
	return nil
}

// StopDiscord disconnects the bridge, if running. Safe to call when
// already stopped.
func (c *Core) StopDiscord() error {
	if !c.isDiscordUp() {
		return nil
	}
	if c.bridgeCloser != nil {
		if err := c.bridgeCloser(); err != nil {
			return fmt.Errorf("stop discord bridge: %w", err)
		}
	}
	c.discordStarted.Store(false)
	return nil
}

// ReloadConfig stops the bridge, re-initializes Core, then starts the
// bridge again against the freshly loaded settings.
func (c *Core) ReloadConfig() error {
	if err := c.StopDiscord(); err != nil {
		return err
	}
	if err := c.Initialize(); err != nil {
		return err
	}
	return c.StartDiscord()
}
