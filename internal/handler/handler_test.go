package handler

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sorenhale/chorebank/internal/auth"
	"github.com/sorenhale/chorebank/internal/database"
	"github.com/sorenhale/chorebank/internal/model"
	"github.com/sorenhale/chorebank/internal/store"
)

var testLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

func intPtr(n int) *int { return &n }

type handlerTestDeps struct {
	db      *sql.DB
	users   *store.UserStore
	points  *store.PointStore
	tasks   *store.TaskStore
	rewards *store.RewardStore
	family  *model.Family
	parent  *model.User
	child   *model.User
}

func setupHandlerTest(t *testing.T) *handlerTestDeps {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	d := &handlerTestDeps{
		db:      db,
		users:   store.NewUserStore(db),
		points:  store.NewPointStore(db),
		tasks:   store.NewTaskStore(db),
		rewards: store.NewRewardStore(db),
	}

	d.family, err = d.users.CreateFamily("testers")
	if err != nil {
		t.Fatalf("create family: %v", err)
	}
	d.parent, err = d.users.Create("mom", "hash", "Mom Tester", model.RoleParent, d.family.ID)
	if err != nil {
		t.Fatalf("create parent: %v", err)
	}
	d.child, err = d.users.Create("kid", "hash", "Kid Tester", model.RoleChild, d.family.ID)
	if err != nil {
		t.Fatalf("create child: %v", err)
	}
	return d
}

// asUser returns a request context authenticated as the given user.
func asUser(u *model.User) context.Context {
	return auth.WithIdentity(context.Background(), auth.Identity{
		UserID:   u.ID,
		FamilyID: u.FamilyID,
		Role:     u.Role,
	})
}

func jsonRequest(t *testing.T, ctx context.Context, method, target string, body any) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode request body: %v", err)
		}
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	if ctx == nil {
		ctx = context.Background()
	}
	return req.WithContext(ctx)
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	if err := json.NewDecoder(rec.Body).Decode(&env); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return env
}
