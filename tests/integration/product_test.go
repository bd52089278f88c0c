//go:build integration

package integration

import (
	"net/http"
	"testing"
)

func TestListProducts(t *testing.T) {
	resp := doGet(t, "/api/products")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	products := decodeJSON[[]productResponse](t, resp)
	if len(products) != 5 {
		t.Fatalf("expected 5 products, got %d", len(products))
	}
	for _, p := range products {
		if p.ID == "" || p.Name == "" || p.Price <= 0 {
			t.Fatalf("incomplete product: %+v", p)
		}
	}
}

func TestGetProduct_ByLegacyID(t *testing.T) {
	resp := doGet(t, "/api/products/1")
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	p := decodeJSON[productResponse](t, resp)
	if p.LegacyID != 1 {
		t.Fatalf("expected legacyId 1, got %d", p.LegacyID)
	}
}

func TestGetProduct_ByUUID(t *testing.T) {
	listResp := doGet(t, "/api/products")
	products := decodeJSON[[]productResponse](t, listResp)
	listResp.Body.Close()
	if len(products) == 0 {
		t.Fatal("no products seeded")
	}

	resp := doGet(t, "/api/products/"+products[0].ID)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	p := decodeJSON[productResponse](t, resp)
	if p.ID != products[0].ID {
		t.Fatalf("expected product %s, got %s", products[0].ID, p.ID)
	}
}

func TestGetProduct_NotFound(t *testing.T) {
	for _, path := range []string{
		"/api/products/99999",
		"/api/products/not-a-reference",
	} {
		resp := doGet(t, path)
		if resp.StatusCode != http.StatusNotFound {
			t.Fatalf("GET %s: expected 404, got %d", path, resp.StatusCode)
		}
		resp.Body.Close()
	}
}
