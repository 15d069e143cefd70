package api

import (
	"net/http"

	"github.com/example/ec-orders/internal/api/middleware"
	"github.com/example/ec-orders/internal/command"
	"github.com/example/ec-orders/internal/domain/product"
	"github.com/go-chi/chi/v5"
)

// Product Handlers

func (h *Handlers) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var cmd command.CreateProduct
	if err := decodeJSON(w, r, &cmd); err != nil {
		respondError(w, err)
		return
	}

	created, err := h.cmdHandler.CreateProduct(r.Context(), middleware.GetActor(r.Context()), cmd)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, "Product created successfully", created)
}

func (h *Handlers) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.queryHandler.ListProducts(r.Context(), middleware.GetActor(r.Context()))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, "", products)
}

func (h *Handlers) GetProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.queryHandler.GetProduct(r.Context(), middleware.GetActor(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, "", p)
}

func (h *Handlers) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	var patch product.Patch
	if err := decodeJSON(w, r, &patch); err != nil {
		respondError(w, err)
		return
	}

	cmd := command.UpdateProduct{ProductID: chi.URLParam(r, "id"), Patch: patch}
	updated, err := h.cmdHandler.UpdateProduct(r.Context(), middleware.GetActor(r.Context()), cmd)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, "Product updated successfully", updated)
}

func (h *Handlers) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	cmd := command.DeleteProduct{ProductID: chi.URLParam(r, "id")}
	deleted, err := h.cmdHandler.DeleteProduct(r.Context(), middleware.GetActor(r.Context()), cmd)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, "Product deleted successfully", deleted)
}
