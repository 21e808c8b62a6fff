package plugin

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRegistryRegisterAndList(t *testing.T) {
	reg := NewRegistry(discardLogger())
	for _, name := range []string{"example.zeta", "example.alpha"} {
		if err := reg.Register(newTestApp(name, "^"+name+"/", "")); err != nil {
			t.Fatalf("Register(%s): %v", name, err)
		}
	}

	apps := reg.List()
	if len(apps) != 2 {
		t.Fatalf("List() len = %d", len(apps))
	}
	if apps[0].Descriptor().Name() != "example.zeta" {
		t.Errorf("List() should keep registration order, got %s first", apps[0].Descriptor().Name())
	}
	if _, ok := reg.Get("example.alpha"); !ok {
		t.Error("Get(example.alpha) not found")
	}
	if _, ok := reg.Get("example.missing"); ok {
		t.Error("Get(example.missing) should not be found")
	}
	if ds := reg.Descriptors(); len(ds) != 2 || ds[1].Name() != "example.alpha" {
		t.Errorf("Descriptors() = %v", ds)
	}
}

func TestRegistryRejectsDuplicateNames(t *testing.T) {
	reg := NewRegistry(discardLogger())
	if err := reg.Register(newTestApp("example.dup", "^a/", "")); err != nil {
		t.Fatal(err)
	}
	err := reg.Register(newTestApp("example.dup", "^b/", ""))
	if !errors.Is(err, ErrDuplicateApp) {
		t.Fatalf("error = %v, want ErrDuplicateApp", err)
	}
	if len(reg.List()) != 1 {
		t.Error("duplicate should not be added")
	}
}

func TestRegistryRejectsNil(t *testing.T) {
	reg := NewRegistry(nil)
	if err := reg.Register(nil); err == nil {
		t.Error("expected error for nil app")
	}
	if err := reg.Register(&testApp{}); !errors.Is(err, ErrInvalidDescriptor) {
		t.Errorf("error = %v, want ErrInvalidDescriptor", err)
	}
}

func TestRegistryHandler(t *testing.T) {
	reg := NewRegistry(discardLogger())
	_ = reg.Register(newTestApp("example.widget", "^widget/", "widget"))
	disp := NewDispatcher(discardLogger())
	if err := disp.MountAll(reg, ProjectTypeLMS, NewSettings(nil, nil)); err != nil {
		t.Fatal(err)
	}

	mux := http.NewServeMux()
	NewRegistryHandler(reg, disp).RegisterRoutes(mux)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/plugins", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("list status = %d", rec.Code)
	}
	var list struct {
		Data []struct {
			Name string `json:"name"`
		} `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&list); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(list.Data) != 1 || list.Data[0].Name != "example.widget" {
		t.Errorf("list = %+v", list)
	}

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/plugins/example.missing", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/plugins/mounts", nil))
	var mounts struct {
		Data []Mount `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&mounts); err != nil {
		t.Fatalf("decode mounts: %v", err)
	}
	if len(mounts.Data) != 1 || mounts.Data[0].Regex != "^widget/" || mounts.Data[0].Namespace != "widget" {
		t.Errorf("mounts = %+v", mounts.Data)
	}
}
