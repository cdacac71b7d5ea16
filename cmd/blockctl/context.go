package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"winamp-block/internal/database"
	"winamp-block/internal/player"
	"winamp-block/internal/startup"
)

// commandContext lazily resolves configuration and opens the database for
// the commands that need them.
type commandContext struct {
	configFlag *string
	jsonFlag   *bool

	config *startup.Config
	db     *database.Database
	lock   *startup.Lock
}

func newCommandContext(configFlag *string, jsonFlag *bool) *commandContext {
	return &commandContext{configFlag: configFlag, jsonFlag: jsonFlag}
}

func (c *commandContext) ensureConfig() (*startup.Config, error) {
	if c.config != nil {
		return c.config, nil
	}
	if c.configFlag != nil && *c.configFlag != "" {
		if err := os.Setenv("CONFIG_FILE", *c.configFlag); err != nil {
			return nil, err
		}
	}
	cfg, err := startup.ReadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	c.config = cfg
	return cfg, nil
}

func (c *commandContext) database(ctx context.Context) (*database.Database, error) {
	if c.db != nil {
		return c.db, nil
	}
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	if _, err := os.Stat(cfg.DatabasePath); err != nil {
		return nil, fmt.Errorf("open database %s: %w", cfg.DatabasePath, err)
	}
	db, err := database.New(ctx, cfg.DatabasePath)
	if err != nil {
		return nil, err
	}
	c.db = db
	return db, nil
}

// exclusive takes the instance lock so edits never race a running server.
func (c *commandContext) exclusive() error {
	if c.lock != nil {
		return nil
	}
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	lock, err := startup.AcquireLock(cfg.DatabaseDir)
	if err != nil {
		return fmt.Errorf("%w; stop the server before editing blocks", err)
	}
	c.lock = lock
	return nil
}

func (c *commandContext) skins() (*player.SkinResolver, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return player.NewSkinResolver(cfg.SkinHost, cfg.SkinCDNHost, cfg.DefaultSkinURL), nil
}

// wantJSON reports whether output to w should be JSON rather than a table.
func (c *commandContext) wantJSON(w io.Writer) bool {
	if c.jsonFlag != nil && *c.jsonFlag {
		return true
	}
	return !isTerminal(w)
}

func (c *commandContext) close() error {
	var firstErr error
	if c.db != nil {
		firstErr = c.db.Close()
		c.db = nil
	}
	if c.lock != nil {
		if err := c.lock.Release(); err != nil && firstErr == nil {
			firstErr = err
		}
		c.lock = nil
	}
	return firstErr
}
