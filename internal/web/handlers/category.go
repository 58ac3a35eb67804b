package handlers

import (
	"net/http"

	"product-service/internal/domain/catalog"
)

func (h *Handler) listCategoriesHandler(w http.ResponseWriter, r *http.Request) {
	categories, err := h.categories.ListCategories(r.Context())
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, categories)
}

func (h *Handler) getCategoryHandler(w http.ResponseWriter, r *http.Request) {
	name, err := pathParam(r, "name")
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	category, err := h.categories.GetCategoryByName(r.Context(), name)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, category)
}

func (h *Handler) createCategoryHandler(w http.ResponseWriter, r *http.Request) {
	var req CategoryRequest
	if err := h.decodeJSON(r, &req); err != nil {
		h.handleError(w, r, err)
		return
	}

	category := &catalog.Category{Name: req.Name}
	if err := h.categories.AddCategory(r.Context(), category); err != nil {
		h.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, category)
}

// deleteCategoryHandler refuses to delete a category that still has products
func (h *Handler) deleteCategoryHandler(w http.ResponseWriter, r *http.Request) {
	name, err := pathParam(r, "name")
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	if err := h.categories.DeleteCategoryByName(r.Context(), name); err != nil {
		h.handleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
