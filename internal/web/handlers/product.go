package handlers

import (
	"net/http"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"product-service/internal/domain/catalog"
)

func (h *Handler) listProductsHandler(w http.ResponseWriter, r *http.Request) {
	products, err := h.products.ListProducts(r.Context())
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, products)
}

// listProductsByCategoryHandler returns 404 when the category does not exist
func (h *Handler) listProductsByCategoryHandler(w http.ResponseWriter, r *http.Request) {
	category, err := pathParam(r, "category")
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	products, err := h.products.ListProductsByCategory(r.Context(), category)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, products)
}

func (h *Handler) createProductHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req ProductRequest
	if err := h.decodeJSON(r, &req); err != nil {
		h.handleError(w, r, err)
		return
	}

	product := req.toProduct()
	tags := catalog.NormalizeNames(req.Tags)

	var err error
	if len(tags) > 0 {
		err = h.products.AddProductWithTags(ctx, product, tags)
	} else {
		err = h.products.AddProduct(ctx, product)
	}
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	trace.SpanFromContext(ctx).SetAttributes(
		attribute.Int64("product.id", product.ID),
		attribute.Int("product.tag_count", len(product.Tags)),
	)
	writeJSON(w, http.StatusCreated, product)
}

func (h *Handler) updateProductHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req ProductUpdateRequest
	if err := h.decodeJSON(r, &req); err != nil {
		h.handleError(w, r, err)
		return
	}

	product, err := h.products.GetProductByID(ctx, req.ID)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	req.apply(product)

	if err := h.products.UpdateProduct(ctx, product); err != nil {
		h.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, product)
}

// deleteProductHandler deletes by id when one is given, otherwise by name.
// An unknown name is reported as 404; an unknown id is a no-op.
func (h *Handler) deleteProductHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req ProductDeleteRequest
	if err := h.decodeJSON(r, &req); err != nil {
		h.handleError(w, r, err)
		return
	}

	id := req.ID
	if id == 0 {
		product, err := h.products.GetProductByName(ctx, strings.TrimSpace(req.Name))
		if err != nil {
			h.handleError(w, r, err)
			return
		}
		id = product.ID
	}

	if err := h.products.DeleteProduct(ctx, id); err != nil {
		h.handleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) searchProductsHandler(w http.ResponseWriter, r *http.Request) {
	var req catalog.SearchRequest
	if err := h.decodeJSON(r, &req); err != nil {
		h.handleError(w, r, err)
		return
	}

	products, err := h.products.Search(r.Context(), &req)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, products)
}

// searchByTagsHandler returns products carrying any of ?tags=a,b
func (h *Handler) searchByTagsHandler(w http.ResponseWriter, r *http.Request) {
	products, err := h.products.SearchByTags(r.Context(), queryList(r, "tags"))
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, products)
}

// searchByAllTagsHandler returns products carrying every one of ?tags=a,b
func (h *Handler) searchByAllTagsHandler(w http.ResponseWriter, r *http.Request) {
	products, err := h.products.SearchByAllTags(r.Context(), queryList(r, "tags"))
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, products)
}

func (h *Handler) searchByTagPatternHandler(w http.ResponseWriter, r *http.Request) {
	pattern := strings.TrimSpace(r.URL.Query().Get("pattern"))
	if pattern == "" {
		writeError(w, http.StatusBadRequest, "pattern is required")
		return
	}

	products, err := h.products.SearchByTagPattern(r.Context(), pattern)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, products)
}

func (h *Handler) inventoryHandler(w http.ResponseWriter, r *http.Request) {
	var req InventoryRequest
	if err := h.decodeJSON(r, &req); err != nil {
		h.handleError(w, r, err)
		return
	}

	products, err := h.products.ApplyInventoryChanges(r.Context(), req.Changes)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, products)
}

// addProductTagsHandler links the tag names in the body, a JSON array,
// creating tags that do not exist yet.
func (h *Handler) addProductTagsHandler(w http.ResponseWriter, r *http.Request) {
	id, names, err := h.productTagsRequest(r)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	product, err := h.products.AddTagsToProduct(r.Context(), id, names)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, product)
}

func (h *Handler) removeProductTagsHandler(w http.ResponseWriter, r *http.Request) {
	id, names, err := h.productTagsRequest(r)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	product, err := h.products.RemoveTagsFromProduct(r.Context(), id, names)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, product)
}

func (h *Handler) productTagsRequest(r *http.Request) (int64, []string, error) {
	id, err := pathID(r, "id")
	if err != nil {
		return 0, nil, err
	}

	var names []string
	if err := decodeBody(r, &names); err != nil {
		return 0, nil, err
	}
	if err := h.validate.Var(names, "required,max=50,dive,max=100"); err != nil {
		return 0, nil, err
	}
	return id, names, nil
}
