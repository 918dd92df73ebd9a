package main

import (
	"fmt"

	"github.com/Seednode/reach100/storage"
	"github.com/Seednode/reach100/storage/bolt"
	"github.com/Seednode/reach100/storage/sqlite"
)

// openStore opens the blob store selected by --storage.
func openStore(cfg *Config) (storage.Store, error) {
	switch cfg.storage {
	case storageMemory, "":
		return storage.NewMemory(), nil
	case storageBolt:
		store, err := bolt.Open(cfg.dbPath)
		if err != nil {
			return nil, err
		}
		return store, nil
	case storageSQLite:
		store, err := sqlite.Open(cfg.dbPath)
		if err != nil {
			return nil, err
		}
		return store, nil
	}
	return nil, fmt.Errorf("unknown storage %q", cfg.storage)
}
