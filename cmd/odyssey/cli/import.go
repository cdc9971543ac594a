package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/odyssey-erp/odyssey-catalog/internal/catalog"
)

// SnapshotImporter writes a snapshot into the backing store.
type SnapshotImporter interface {
	ImportSnapshot(ctx context.Context, snap catalog.Snapshot) (int, error)
}

// VersionBumper advances the sales version after new sales land.
type VersionBumper interface {
	Bump(ctx context.Context) (int64, error)
}

// ImportOptions defines available flags for the import command.
type ImportOptions struct {
	Snapshot catalog.Snapshot
	Stdout   io.Writer
	Stderr   io.Writer
}

// ImportCommand loads a snapshot and bumps the sales version when sale rows
// were written so serving processes rebuild their index.
func ImportCommand(ctx context.Context, importer SnapshotImporter, versions VersionBumper, opts ImportOptions) int {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	if importer == nil {
		_, _ = fmt.Fprintln(opts.Stderr, "import: no importer configured")
		return 1
	}
	written, err := importer.ImportSnapshot(ctx, opts.Snapshot)
	if err != nil {
		_, _ = fmt.Fprintf(opts.Stderr, "import: %v\n", err)
		return 1
	}
	_, _ = fmt.Fprintf(opts.Stdout, "Imported %d product(s) and %d sale(s)\n", len(opts.Snapshot.Products), written)
	if written == 0 || versions == nil {
		return 0
	}
	ver, err := versions.Bump(ctx)
	if err != nil {
		_, _ = fmt.Fprintf(opts.Stderr, "import: bump sales version: %v\n", err)
		return 1
	}
	_, _ = fmt.Fprintf(opts.Stdout, "Sales version now %d\n", ver)
	return 0
}
