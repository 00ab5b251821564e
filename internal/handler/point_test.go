package handler

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newPointHandler(d *handlerTestDeps) *PointHandler {
	return NewPointHandler(d.points, d.users, nil, testLogger)
}

func TestGetBalanceDefaultsToCaller(t *testing.T) {
	d := setupHandlerTest(t)
	h := newPointHandler(d)

	if _, err := d.points.Credit(d.child.ID, 30, "seed", nil); err != nil {
		t.Fatalf("credit: %v", err)
	}

	req := jsonRequest(t, asUser(d.child), "GET", "/points/user", nil)
	rec := httptest.NewRecorder()
	h.GetBalance(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	env := decodeEnvelope(t, rec)
	data := env.Data.(map[string]any)
	if data["balance"] != float64(30) {
		t.Errorf("balance = %v, want 30", data["balance"])
	}
}

func TestGetBalanceForOtherFamilyMember(t *testing.T) {
	d := setupHandlerTest(t)
	h := newPointHandler(d)

	req := jsonRequest(t, asUser(d.parent), "GET", fmt.Sprintf("/points/user/%d", d.child.ID), nil)
	req.SetPathValue("userId", fmt.Sprint(d.child.ID))
	rec := httptest.NewRecorder()
	h.GetBalance(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
}

func TestGetBalanceOutsideFamily(t *testing.T) {
	d := setupHandlerTest(t)
	h := newPointHandler(d)

	other, err := d.users.CreateFamily("others")
	if err != nil {
		t.Fatalf("create family: %v", err)
	}
	stranger, err := d.users.Create("stranger", "hash", "Stranger", "child", other.ID)
	if err != nil {
		t.Fatalf("create stranger: %v", err)
	}

	req := jsonRequest(t, asUser(d.parent), "GET", fmt.Sprintf("/points/user/%d", stranger.ID), nil)
	req.SetPathValue("userId", fmt.Sprint(stranger.ID))
	rec := httptest.NewRecorder()
	h.GetBalance(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusForbidden)
	}
}

func TestAddAndDeductPoints(t *testing.T) {
	d := setupHandlerTest(t)
	h := newPointHandler(d)

	req := jsonRequest(t, asUser(d.parent), "POST", "/points/add", map[string]any{
		"user_id": d.child.ID,
		"amount":  50,
		"reason":  "extra chores",
	})
	rec := httptest.NewRecorder()
	h.Add(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("add status = %d: %s", rec.Code, rec.Body.String())
	}

	req = jsonRequest(t, asUser(d.parent), "POST", "/points/deduct", map[string]any{
		"user_id": d.child.ID,
		"amount":  20,
		"reason":  "screen time",
	})
	rec = httptest.NewRecorder()
	h.Deduct(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("deduct status = %d: %s", rec.Code, rec.Body.String())
	}
	env := decodeEnvelope(t, rec)
	data := env.Data.(map[string]any)
	if data["balance"] != float64(30) {
		t.Errorf("balance = %v, want 30", data["balance"])
	}
}

func TestDeductInsufficient(t *testing.T) {
	d := setupHandlerTest(t)
	h := newPointHandler(d)

	req := jsonRequest(t, asUser(d.parent), "POST", "/points/deduct", map[string]any{
		"user_id": d.child.ID,
		"amount":  5,
	})
	rec := httptest.NewRecorder()
	h.Deduct(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
	env := decodeEnvelope(t, rec)
	if env.Error != "insufficient points" {
		t.Errorf("error = %q, want %q", env.Error, "insufficient points")
	}
}

func TestAddRejectsNonPositiveAmount(t *testing.T) {
	d := setupHandlerTest(t)
	h := newPointHandler(d)

	for _, amount := range []int{0, -5} {
		req := jsonRequest(t, asUser(d.parent), "POST", "/points/add", map[string]any{
			"user_id": d.child.ID,
			"amount":  amount,
		})
		rec := httptest.NewRecorder()
		h.Add(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("amount %d: status = %d, want %d", amount, rec.Code, http.StatusBadRequest)
		}
	}
}

func TestHistoryOwnershipGate(t *testing.T) {
	d := setupHandlerTest(t)
	h := newPointHandler(d)

	// Child reading the parent's history is forbidden
	req := jsonRequest(t, asUser(d.child), "GET", fmt.Sprintf("/points/history/%d", d.parent.ID), nil)
	req.SetPathValue("userId", fmt.Sprint(d.parent.ID))
	rec := httptest.NewRecorder()
	h.History(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Errorf("child reading parent history: status = %d, want %d", rec.Code, http.StatusForbidden)
	}

	// Parent reading the child's history is fine
	req = jsonRequest(t, asUser(d.parent), "GET", fmt.Sprintf("/points/history/%d", d.child.ID), nil)
	req.SetPathValue("userId", fmt.Sprint(d.child.ID))
	rec = httptest.NewRecorder()
	h.History(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("parent reading child history: status = %d, want %d", rec.Code, http.StatusOK)
	}
}

func TestLeaderboardFamilyGate(t *testing.T) {
	d := setupHandlerTest(t)
	h := newPointHandler(d)

	req := jsonRequest(t, asUser(d.child), "GET", fmt.Sprintf("/points/leaderboard/%d", d.family.ID), nil)
	req.SetPathValue("familyId", fmt.Sprint(d.family.ID))
	rec := httptest.NewRecorder()
	h.Leaderboard(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	env := decodeEnvelope(t, rec)
	entries := env.Data.([]any)
	if len(entries) != 2 {
		t.Errorf("entries = %d, want 2", len(entries))
	}

	req = jsonRequest(t, asUser(d.child), "GET", "/points/leaderboard/999", nil)
	req.SetPathValue("familyId", "999")
	rec = httptest.NewRecorder()
	h.Leaderboard(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Errorf("other family: status = %d, want %d", rec.Code, http.StatusForbidden)
	}
}
