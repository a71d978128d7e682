// Package channeldb stores settings of persistent (+P) channels in a
// SQLite database so they survive daemon restarts. It is an ordinary
// registry client: everything it does goes through hook, event and
// channel mode registration.
package channeldb

import (
	"fmt"
	"os"
	"time"

	"github.com/k4bek4be/unrealircd/internal/core"
	"github.com/k4bek4be/unrealircd/internal/domain"
	"github.com/k4bek4be/unrealircd/internal/extension"
	"github.com/k4bek4be/unrealircd/internal/module"
	"github.com/k4bek4be/unrealircd/internal/store"
)

// Config configures the channeldb module.
type Config struct {
	// Database is the path of the SQLite file.
	Database string
	// SaveEvery is the interval between periodic saves.
	SaveEvery time.Duration
}

var migrations = []store.Migration{
	{
		Version: 1,
		Name:    "create channels",
		SQL: `
			CREATE TABLE channels (
				name          TEXT PRIMARY KEY,
				topic         TEXT NOT NULL DEFAULT '',
				topic_set_by  TEXT NOT NULL DEFAULT '',
				topic_set_at  INTEGER NOT NULL DEFAULT 0,
				modes         TEXT NOT NULL DEFAULT '',
				mode_params   TEXT NOT NULL DEFAULT ''
			);
		`,
	},
}

// Module implements the persistent channel database.
type Module struct {
	core *core.Core
	cfg  Config
	db   *store.DB

	// channels tracks the live +P channels this module must save.
	channels map[string]*domain.Channel
}

// New creates the channeldb module.
func New(c *core.Core, cfg Config) *Module {
	return &Module{
		core:     c,
		cfg:      cfg,
		channels: make(map[string]*domain.Channel),
	}
}

// Header returns the module header.
func (m *Module) Header() module.Info {
	return module.Info{
		Name:        "channeldb",
		Version:     "1.0",
		Description: "Stores and retrieves settings of persistent (+P) channels",
		Author:      "k4bek4be",
	}
}

// Test validates the configuration-time requirements.
func (m *Module) Test(*module.Module) error {
	if m.cfg.Database == "" {
		return fmt.Errorf("channeldb: database path must not be empty")
	}
	if m.cfg.SaveEvery <= 0 {
		return fmt.Errorf("channeldb: save interval must be positive, got %v", m.cfg.SaveEvery)
	}
	return nil
}

// Init registers the +P channel mode and the channel tracking hooks.
func (m *Module) Init(mod *module.Module) error {
	_, err := m.core.ChannelModes.Add(mod, extension.ChannelModeRequest{
		Flag: 'P',
		// Only IRC operators may make a channel persistent.
		IsOK: func(client *domain.Client, _ *domain.Channel, _ byte, _ string, check extension.ModeCheck, _ bool) extension.ModeVerdict {
			if check != extension.ModeCheckAccess && check != extension.ModeCheckAccessErr {
				return extension.ModeAllow
			}
			if client != nil && client.Oper {
				return extension.ModeAllow
			}
			return extension.ModeDeny
		},
	})
	if err != nil {
		return err
	}

	m.core.Points.ChannelCreate.Register(mod, 0, m.channelCreated)
	m.core.Points.ChannelDestroy.Register(mod, 0, m.channelDestroyed)
	return nil
}

// Load opens the database, recovers saved channels on the first load of
// this process image, and starts the periodic save event.
func (m *Module) Load(mod *module.Module) error {
	db, err := store.Open(m.cfg.Database, mod.Log(), migrations)
	if err != nil {
		// A corrupt database is sidelined, never silently overwritten.
		sidelined := m.cfg.Database + ".corrupt"
		if renameErr := os.Rename(m.cfg.Database, sidelined); renameErr == nil {
			mod.Log().Warn().Err(err).Str("renamed", sidelined).
				Msg("existing database unreadable; renamed and starting a new one")
			db, err = store.Open(m.cfg.Database, mod.Log(), migrations)
		}
		if err != nil {
			return fmt.Errorf("channeldb: opening database: %w", err)
		}
	}
	m.db = db

	// Recover only once per process: a reload of this module during a
	// rehash must not re-read channels the daemon already knows about.
	// The tracked set itself is handed over from the previous incarnation.
	if v, ok := mod.LoadPointer("channels"); ok {
		m.channels = v.(map[string]*domain.Channel)
	}
	loaded, _ := mod.LoadInt("db_loaded")
	if loaded == 0 {
		if err := m.read(); err != nil {
			m.db.Close()
			return fmt.Errorf("channeldb: reading database: %w", err)
		}
	}
	mod.SaveInt("db_loaded", 1)
	mod.SavePointer("channels", m.channels)

	m.core.Events.Add(mod, "channeldb_write", m.cfg.SaveEvery, 0, func(time.Time) {
		if err := m.write(); err != nil {
			mod.Log().Error().Err(err).Msg("periodic save failed (database not saved)")
		}
	})
	return nil
}

// Unload saves one final time and closes the database.
func (m *Module) Unload(mod *module.Module) error {
	if m.db == nil {
		return nil
	}
	if err := m.write(); err != nil {
		mod.Log().Error().Err(err).Msg("final save failed (database not saved)")
	}
	return m.db.Close()
}

// Channels returns the persistent channels currently tracked.
func (m *Module) Channels() []*domain.Channel {
	out := make([]*domain.Channel, 0, len(m.channels))
	for _, ch := range m.channels {
		out = append(out, ch)
	}
	return out
}

func (m *Module) channelCreated(ch *domain.Channel) {
	if ch.Persistent {
		m.channels[ch.Name] = ch
	}
}

func (m *Module) channelDestroyed(ch *domain.Channel) {
	// A destroyed +P channel leaves the live set but keeps its saved row
	// until the next write; a destroyed regular channel was never saved.
	delete(m.channels, ch.Name)
}

// read loads every saved channel into the tracked set.
func (m *Module) read() error {
	rows, err := m.db.SQL().Query(
		"SELECT name, topic, topic_set_by, topic_set_at, modes, mode_params FROM channels")
	if err != nil {
		return err
	}
	defer rows.Close()

	n := 0
	for rows.Next() {
		ch := &domain.Channel{Persistent: true}
		var setAt int64
		if err := rows.Scan(&ch.Name, &ch.Topic, &ch.TopicSetBy, &setAt, &ch.Modes, &ch.ModeParams); err != nil {
			return err
		}
		if setAt > 0 {
			ch.TopicSetAt = time.Unix(setAt, 0)
		}
		m.channels[ch.Name] = ch
		n++
	}
	if err := rows.Err(); err != nil {
		return err
	}
	m.core.Log.Info().Int("channels", n).Msg("channeldb: recovered persistent channels")
	return nil
}

// write replaces the saved set with the tracked channels, atomically.
func (m *Module) write() error {
	tx, err := m.db.SQL().Begin()
	if err != nil {
		return err
	}
	if _, err := tx.Exec("DELETE FROM channels"); err != nil {
		tx.Rollback()
		return err
	}
	for _, ch := range m.channels {
		var setAt int64
		if !ch.TopicSetAt.IsZero() {
			setAt = ch.TopicSetAt.Unix()
		}
		if _, err := tx.Exec(
			"INSERT INTO channels (name, topic, topic_set_by, topic_set_at, modes, mode_params) VALUES (?, ?, ?, ?, ?, ?)",
			ch.Name, ch.Topic, ch.TopicSetBy, setAt, ch.Modes, ch.ModeParams,
		); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}
