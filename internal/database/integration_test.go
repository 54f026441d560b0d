package database

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := Initialize(filepath.Join(t.TempDir(), "piggybank.db"))
	if err != nil {
		t.Fatalf("Failed to initialize database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.RunMigrations(); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}
	return db
}

// TestDatabaseIntegration tests the complete database lifecycle
func TestDatabaseIntegration(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	tables := []string{"families", "parents", "children", "transactions", "invitations", "sessions"}
	for _, table := range tables {
		var name string
		err := db.QueryRowContext(ctx, "SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		if err != nil {
			t.Errorf("Table %s not found: %v", table, err)
		}
	}

	version, dirty, err := db.MigrationVersion()
	if err != nil {
		t.Fatalf("Failed to read migration version: %v", err)
	}
	if version != 1 || dirty {
		t.Errorf("expected clean version 1, got %d dirty=%v", version, dirty)
	}

	// Applying again is a no-op
	if err := db.RunMigrations(); err != nil {
		t.Fatalf("Second migration run failed: %v", err)
	}
}

// TestDatabaseTransactions tests transaction support
func TestDatabaseTransactions(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	now := time.Now().UTC()

	var familyID int64
	err := db.WithTx(ctx, func(tx *Tx) error {
		id, err := tx.ExecReturningID(ctx, "INSERT INTO families (name, created_at, updated_at) VALUES (?, ?, ?)", "Smiths", now, now)
		familyID = id
		return err
	})
	if err != nil {
		t.Fatalf("Failed to commit transaction: %v", err)
	}
	if familyID == 0 {
		t.Fatal("expected non-zero family id")
	}

	errRollback := errors.New("rollback please")
	err = db.WithTx(ctx, func(tx *Tx) error {
		if _, err := tx.ExecContext(ctx, "INSERT INTO families (name, created_at, updated_at) VALUES (?, ?, ?)", "Joneses", now, now); err != nil {
			return err
		}
		return errRollback
	})
	if !errors.Is(err, errRollback) {
		t.Fatalf("expected rollback error, got %v", err)
	}

	var count int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM families").Scan(&count); err != nil {
		t.Fatalf("Failed to count families: %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 family after rollback, got %d", count)
	}
}

func TestSchemaConstraints(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	now := time.Now().UTC()

	familyID, err := db.ExecReturningID(ctx, "INSERT INTO families (name, created_at, updated_at) VALUES (?, ?, ?)", "Smiths", now, now)
	if err != nil {
		t.Fatalf("insert family: %v", err)
	}

	insertChild := "INSERT INTO children (family_id, username, name, pin_hash, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)"
	if _, err := db.ExecContext(ctx, insertChild, familyID, "ana", "Ana", "hash", now, now); err != nil {
		t.Fatalf("insert child: %v", err)
	}

	_, err = db.ExecContext(ctx, insertChild, familyID, "ana", "Other Ana", "hash", now, now)
	if !db.Dialect.IsUniqueViolation(err) {
		t.Errorf("expected unique violation for duplicate username, got %v", err)
	}

	_, err = db.ExecContext(ctx, "UPDATE children SET balance_cents = -1 WHERE username = ?", "ana")
	if err == nil {
		t.Error("expected negative balance to violate check constraint")
	}

	insertOwner := "INSERT INTO parents (family_id, username, name, password_hash, role, created_at) VALUES (?, ?, ?, ?, 'owner', ?)"
	if _, err := db.ExecContext(ctx, insertOwner, familyID, "sam", "Sam", "hash", now); err != nil {
		t.Fatalf("insert owner: %v", err)
	}
	_, err = db.ExecContext(ctx, insertOwner, familyID, "pat", "Pat", "hash", now)
	if !db.Dialect.IsUniqueViolation(err) {
		t.Errorf("expected a second owner to be rejected, got %v", err)
	}

	_, err = db.ExecContext(ctx, insertChild, 9999, "ghost", "Ghost", "hash", now, now)
	if err == nil {
		t.Error("expected foreign key violation for unknown family")
	}
}
