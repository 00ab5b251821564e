package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sorenhale/chorebank/internal/model"
)

func newAuthHandler(d *handlerTestDeps) *AuthHandler {
	return NewAuthHandler(d.users, "test-secret", time.Hour, testLogger)
}

func TestRegisterNewFamily(t *testing.T) {
	d := setupHandlerTest(t)
	h := newAuthHandler(d)

	req := jsonRequest(t, nil, "POST", "/auth/register", map[string]any{
		"username":  "dad",
		"password":  "longenough",
		"full_name": "Dad Tester",
		"role":      model.RoleParent,
	})
	rec := httptest.NewRecorder()
	h.Register(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusCreated, rec.Body.String())
	}
	env := decodeEnvelope(t, rec)
	if !env.Success {
		t.Fatalf("success = false: %s", env.Error)
	}
	data, ok := env.Data.(map[string]any)
	if !ok || data["token"] == "" {
		t.Error("response should carry a token")
	}

	u, err := d.users.GetByUsername("dad")
	if err != nil || u == nil {
		t.Fatalf("registered user not found: %v", err)
	}
	if u.FamilyID == d.family.ID {
		t.Error("registration without family_id should start a new family")
	}
	if u.PasswordHash == "longenough" {
		t.Error("password must be stored hashed")
	}
}

func TestRegisterJoinExistingFamily(t *testing.T) {
	d := setupHandlerTest(t)
	h := newAuthHandler(d)

	req := jsonRequest(t, nil, "POST", "/auth/register", map[string]any{
		"username":  "sibling",
		"password":  "longenough",
		"role":      model.RoleChild,
		"family_id": d.family.ID,
	})
	rec := httptest.NewRecorder()
	h.Register(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	u, err := d.users.GetByUsername("sibling")
	if err != nil || u == nil {
		t.Fatalf("registered user not found: %v", err)
	}
	if u.FamilyID != d.family.ID {
		t.Errorf("family_id = %d, want %d", u.FamilyID, d.family.ID)
	}
}

func TestRegisterValidation(t *testing.T) {
	d := setupHandlerTest(t)
	h := newAuthHandler(d)

	cases := []struct {
		name string
		body map[string]any
	}{
		{"missing username", map[string]any{"password": "longenough", "role": "child"}},
		{"short password", map[string]any{"username": "x", "password": "short", "role": "child"}},
		{"bad role", map[string]any{"username": "x", "password": "longenough", "role": "admin"}},
		{"taken username", map[string]any{"username": "kid", "password": "longenough", "role": "child"}},
		{"unknown family", map[string]any{"username": "x", "password": "longenough", "role": "child", "family_id": 9999}},
	}
	for _, tc := range cases {
		req := jsonRequest(t, nil, "POST", "/auth/register", tc.body)
		rec := httptest.NewRecorder()
		h.Register(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want %d", tc.name, rec.Code, http.StatusBadRequest)
		}
	}
}

func TestLogin(t *testing.T) {
	d := setupHandlerTest(t)
	h := newAuthHandler(d)

	// Register through the handler so the password is properly hashed
	req := jsonRequest(t, nil, "POST", "/auth/register", map[string]any{
		"username": "login-me",
		"password": "correcthorse",
		"role":     model.RoleChild,
	})
	rec := httptest.NewRecorder()
	h.Register(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("register status = %d: %s", rec.Code, rec.Body.String())
	}

	req = jsonRequest(t, nil, "POST", "/auth/login", map[string]any{
		"username": "login-me",
		"password": "correcthorse",
	})
	rec = httptest.NewRecorder()
	h.Login(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("login status = %d: %s", rec.Code, rec.Body.String())
	}
	env := decodeEnvelope(t, rec)
	data, ok := env.Data.(map[string]any)
	if !ok || data["token"] == "" {
		t.Error("login should return a token")
	}
}

func TestLoginBadCredentials(t *testing.T) {
	d := setupHandlerTest(t)
	h := newAuthHandler(d)

	// Unknown user and wrong password must be indistinguishable
	for _, body := range []map[string]any{
		{"username": "ghost", "password": "whatever123"},
		{"username": "kid", "password": "not-the-hash"},
	} {
		req := jsonRequest(t, nil, "POST", "/auth/login", body)
		rec := httptest.NewRecorder()
		h.Login(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
		}
		env := decodeEnvelope(t, rec)
		if env.Error != "invalid username or password" {
			t.Errorf("error = %q, want uniform message", env.Error)
		}
	}
}

func TestMe(t *testing.T) {
	d := setupHandlerTest(t)
	h := newAuthHandler(d)

	req := jsonRequest(t, asUser(d.child), "GET", "/auth/me", nil)
	rec := httptest.NewRecorder()
	h.Me(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	env := decodeEnvelope(t, rec)
	data, ok := env.Data.(map[string]any)
	if !ok {
		t.Fatal("expected user object in data")
	}
	if data["username"] != "kid" {
		t.Errorf("username = %v, want kid", data["username"])
	}
	if _, leaked := data["password_hash"]; leaked {
		t.Error("password hash must not be serialized")
	}
}
