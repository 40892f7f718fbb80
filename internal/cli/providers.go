package cli

import (
	"context"
	"fmt"

	"github.com/eshaffer321/openvera/internal/application/matching"
	"github.com/eshaffer321/openvera/internal/importer"
	"github.com/eshaffer321/openvera/internal/infrastructure/config"
	"github.com/eshaffer321/openvera/internal/infrastructure/storage"
)

// openStore opens the configured database and brings its schema up to date
func openStore(ctx context.Context, cfg *config.Config) (*storage.Storage, error) {
	store, err := storage.OpenStorage(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if _, err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// newMatchingService wires the batch matcher to the store
func newMatchingService(a *app, store storage.Repository) *matching.Service {
	return matching.NewService(store, a.cfg.Matching.AcceptThreshold, a.system("matching"))
}

// newImporter wires the statement importer to the store
func newImporter(a *app, store importer.Store) *importer.Importer {
	return importer.New(store, a.system("import"))
}
