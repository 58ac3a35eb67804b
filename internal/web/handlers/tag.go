package handlers

import (
	"net/http"
)

func (h *Handler) listTagsHandler(w http.ResponseWriter, r *http.Request) {
	tags, err := h.tags.ListTags(r.Context())
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tags)
}

func (h *Handler) getTagHandler(w http.ResponseWriter, r *http.Request) {
	name, err := pathParam(r, "name")
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	tag, err := h.tags.GetTagByName(r.Context(), name)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tag)
}

// searchTagsHandler matches ?q= against tag names, case-insensitively
func (h *Handler) searchTagsHandler(w http.ResponseWriter, r *http.Request) {
	tags, err := h.tags.SearchTags(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tags)
}

func (h *Handler) createTagHandler(w http.ResponseWriter, r *http.Request) {
	var req TagRequest
	if err := h.decodeJSON(r, &req); err != nil {
		h.handleError(w, r, err)
		return
	}

	tag, err := h.tags.CreateTag(r.Context(), req.Name, req.Description)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, tag)
}

func (h *Handler) deleteTagHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	if err := h.tags.DeleteTag(r.Context(), id); err != nil {
		h.handleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
