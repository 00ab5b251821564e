package store

import (
	"database/sql"
	"testing"

	"github.com/sorenhale/chorebank/internal/database"
	"github.com/sorenhale/chorebank/internal/model"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// seedFamily creates a family with one parent and one child.
func seedFamily(t *testing.T, db *sql.DB) (family *model.Family, parent, child *model.User) {
	t.Helper()
	us := NewUserStore(db)

	family, err := us.CreateFamily("testers")
	if err != nil {
		t.Fatalf("create family: %v", err)
	}
	parent, err = us.Create("mom", "hash", "Mom Tester", model.RoleParent, family.ID)
	if err != nil {
		t.Fatalf("create parent: %v", err)
	}
	child, err = us.Create("kid", "hash", "Kid Tester", model.RoleChild, family.ID)
	if err != nil {
		t.Fatalf("create child: %v", err)
	}
	return family, parent, child
}
