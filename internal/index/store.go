package index

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

const schemaVersion = 1

const schema = `
CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS symbols (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    path TEXT NOT NULL,
    line INTEGER NOT NULL,
    col INTEGER NOT NULL,
    name TEXT NOT NULL,
    display_name TEXT,
    kind TEXT NOT NULL,
    definition INTEGER NOT NULL DEFAULT 0,
    start_line INTEGER NOT NULL DEFAULT 0,
    start_col INTEGER NOT NULL DEFAULT 0,
    end_line INTEGER NOT NULL DEFAULT 0,
    end_col INTEGER NOT NULL DEFAULT 0,
    UNIQUE(path, line, col)
);

CREATE INDEX IF NOT EXISTS idx_symbols_name ON symbols(name);
CREATE INDEX IF NOT EXISTS idx_symbols_path ON symbols(path);

CREATE TABLE IF NOT EXISTS files (
    path TEXT PRIMARY KEY,
    mtime INTEGER NOT NULL,
    size INTEGER NOT NULL,
    indexed_at INTEGER NOT NULL
);
`

// OpenDB opens or creates the symbol database at the given path.
func OpenDB(dbPath string) (*sql.DB, error) {
	// Ensure parent directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Enable WAL mode for better concurrent performance
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting WAL mode: %w", err)
	}

	if err := initSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}

	return db, nil
}

func initSchema(db *sql.DB) error {
	var version int
	err := db.QueryRow("SELECT version FROM schema_version LIMIT 1").Scan(&version)
	if err != nil {
		// Fresh database or missing table either way, create the schema.
		if _, err := db.Exec(schema); err != nil {
			return fmt.Errorf("creating schema: %w", err)
		}
		if _, err := db.Exec("INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
			return fmt.Errorf("setting schema version: %w", err)
		}
		return nil
	}

	if version < schemaVersion {
		// Future: add migration logic here
		if _, err := db.Exec("UPDATE schema_version SET version = ?", schemaVersion); err != nil {
			return fmt.Errorf("updating schema version: %w", err)
		}
	}

	return nil
}

// Load reads the symbol database at dbPath into an in-memory ordered
// index plus the file table resolving its file IDs. The database handle
// is closed before returning so an external indexer can rewrite the file
// freely afterwards.
func Load(dbPath string) (*SymbolIndex, *FileTable, error) {
	db, err := OpenDB(dbPath)
	if err != nil {
		return nil, nil, err
	}
	defer db.Close()

	rows, err := db.Query(`SELECT path, line, col, name, display_name, kind, definition,
               start_line, start_col, end_line, end_col
        FROM symbols
        ORDER BY path, line, col`)
	if err != nil {
		return nil, nil, fmt.Errorf("querying symbols: %w", err)
	}
	defer rows.Close()

	idx := NewSymbolIndex()
	files := NewFileTable()

	for rows.Next() {
		var (
			path, name, kind string
			displayName      sql.NullString
			line, col        uint32
			definition       bool
			startLine        uint32
			startCol         uint32
			endLine          uint32
			endCol           uint32
		)
		if err := rows.Scan(&path, &line, &col, &name, &displayName, &kind, &definition,
			&startLine, &startCol, &endLine, &endCol); err != nil {
			return nil, nil, fmt.Errorf("scanning symbol: %w", err)
		}

		loc := Location{FileID: files.Intern(path), Line: line, Column: col}
		display := displayName.String
		if display == "" {
			display = name
		}
		idx.Insert(loc, &Symbol{
			Name:        name,
			DisplayName: display,
			Kind:        Kind(kind),
			Definition:  definition,
			StartLine:   startLine,
			StartColumn: startCol,
			EndLine:     endLine,
			EndColumn:   endCol,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("reading symbols: %w", err)
	}

	return idx, files, nil
}

// Stats returns symbol and file counts from the database at dbPath.
func Stats(dbPath string) (symbolCount int, fileCount int, err error) {
	db, err := OpenDB(dbPath)
	if err != nil {
		return 0, 0, err
	}
	defer db.Close()

	if err := db.QueryRow("SELECT COUNT(*) FROM symbols").Scan(&symbolCount); err != nil {
		return 0, 0, err
	}
	if err := db.QueryRow("SELECT COUNT(DISTINCT path) FROM symbols").Scan(&fileCount); err != nil {
		return 0, 0, err
	}
	return symbolCount, fileCount, nil
}
