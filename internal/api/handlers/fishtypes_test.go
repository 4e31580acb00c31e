package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"biteindex/internal/types"
)

type mockCategories struct {
	cats []types.Category
	err  error
}

func (m *mockCategories) List(context.Context) ([]types.Category, error) { return m.cats, m.err }

func TestFishTypesHandler_List(t *testing.T) {
	h := NewFishTypesHandler(&mockCategories{cats: []types.Category{
		{ID: "pike", DisplayName: "Щука", NameEN: "Pike", SortOrder: 1},
		{ID: "perch", DisplayName: "Окунь", NameEN: "Perch", SortOrder: 2},
	}}, testLogger())

	rec := serve(mount("/v1/fish-types", h.RegisterRoutes), httptest.NewRequest(http.MethodGet, "/v1/fish-types", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got := rec.Header().Get("Cache-Control"); got != "public, max-age=300" {
		t.Errorf("Cache-Control = %q", got)
	}
	var cats []types.Category
	decodeData(t, rec, &cats)
	if len(cats) != 2 || cats[0].ID != "pike" || cats[1].DisplayName != "Окунь" {
		t.Errorf("unexpected categories: %+v", cats)
	}
}

func TestFishTypesHandler_EmptyIsArray(t *testing.T) {
	h := NewFishTypesHandler(&mockCategories{}, testLogger())

	rec := serve(mount("/v1/fish-types", h.RegisterRoutes), httptest.NewRequest(http.MethodGet, "/v1/fish-types", nil))

	if rec.Body.String() != `{"data":[]}` {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestFishTypesHandler_Error(t *testing.T) {
	h := NewFishTypesHandler(&mockCategories{
		err: types.NewAppError(types.ErrCodeInternalDB, "failed to list fish types", errors.New("conn reset")),
	}, testLogger())

	rec := serve(mount("/v1/fish-types", h.RegisterRoutes), httptest.NewRequest(http.MethodGet, "/v1/fish-types", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	if code := errorCode(t, rec); code != string(types.ErrCodeInternalDB) {
		t.Errorf("code = %q", code)
	}
}
