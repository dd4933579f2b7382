package badger

import (
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/hotstocks/internal/common"
	"github.com/ternarybob/hotstocks/internal/interfaces"
)

// Manager owns the Badger connection and the storages built on it
type Manager struct {
	db        *BadgerDB
	kv        interfaces.KeyValueStorage
	snapshots interfaces.SnapshotStorage
	logger    arbor.ILogger
}

// NewManager opens the database and wires every storage
func NewManager(logger arbor.ILogger, config *common.BadgerConfig) (*Manager, error) {
	db, err := NewBadgerDB(logger, config)
	if err != nil {
		return nil, err
	}

	manager := &Manager{
		db:        db,
		kv:        NewKVStorage(db, logger),
		snapshots: NewSnapshotStorage(db, logger),
		logger:    logger,
	}

	logger.Debug().Str("path", config.Path).Msg("Badger storage manager initialized")
	return manager, nil
}

func (m *Manager) KeyValueStorage() interfaces.KeyValueStorage {
	return m.kv
}

func (m *Manager) SnapshotStorage() interfaces.SnapshotStorage {
	return m.snapshots
}

// Close closes the database connection
func (m *Manager) Close() error {
	if m.db != nil {
		return m.db.Close()
	}
	return nil
}
