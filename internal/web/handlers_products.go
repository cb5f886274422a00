package web

import (
	"fmt"
	"net/http"

	"github.com/AarnabDutta/Product-Importer-FullStack/internal/core"
)

func (s *Server) handleListProducts(w http.ResponseWriter, r *http.Request) {
	page, err := queryInt(r, "page", 1)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	size, err := queryInt(r, "size", core.DefaultPageSize)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	active, err := queryBool(r, "active")
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	q := r.URL.Query()
	result, err := s.service.ListProducts(r.Context(), core.ProductFilter{
		SKU:         q.Get("sku"),
		Name:        q.Get("name"),
		Description: q.Get("description"),
		Active:      active,
		Page:        page,
		Size:        size,
	})
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	p, err := s.service.GetProduct(r.Context(), id)
	if err != nil {
		s.respondError(w, r, entityError("Product", err))
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleCreateProduct(w http.ResponseWriter, r *http.Request) {
	var in core.ProductInput
	if err := decodeJSON(w, r, &in); err != nil {
		s.respondError(w, r, err)
		return
	}
	p, err := s.service.CreateProduct(r.Context(), in)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (s *Server) handleUpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	var patch core.ProductPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		s.respondError(w, r, err)
		return
	}
	p, err := s.service.UpdateProduct(r.Context(), id, patch)
	if err != nil {
		s.respondError(w, r, entityError("Product", err))
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleDeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if err := s.service.DeleteProduct(r.Context(), id); err != nil {
		s.respondError(w, r, entityError("Product", err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleDeleteAllProducts empties the catalog.
func (s *Server) handleDeleteAllProducts(w http.ResponseWriter, r *http.Request) {
	n, err := s.service.DeleteAllProducts(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": fmt.Sprintf("Deleted %d products", n),
		"count":   n,
	})
}
