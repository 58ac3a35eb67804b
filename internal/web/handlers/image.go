package handlers

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/gabriel-vasile/mimetype"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"product-service/internal/domain/catalog"
)

const (
	uploadFormField = "file"
	// Parts above this size spill to temporary files
	maxMemoryPerUpload = 1 << 20
)

// uploadImageHandler stores the multipart "file" field for a product
func (h *Handler) uploadImageHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	productID, err := pathID(r, "id")
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	limit := h.config.Storage.MaxRequestSize
	if limit > 0 {
		if r.ContentLength > limit {
			h.handleError(w, r, fmt.Errorf("%w: %d bytes exceeds the %d byte limit", errRequestSize, r.ContentLength, limit))
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, limit)
	}

	if err := r.ParseMultipartForm(maxMemoryPerUpload); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			h.handleError(w, r, fmt.Errorf("%w: %s", errRequestSize, err.Error()))
			return
		}
		h.handleError(w, r, fmt.Errorf("%w: failed to parse form: %s", catalog.ErrBadRequest, err.Error()))
		return
	}
	defer func() {
		_ = r.MultipartForm.RemoveAll() //nolint:errcheck // Cleanup operation
	}()

	file, header, err := r.FormFile(uploadFormField)
	if err != nil {
		h.handleError(w, r, fmt.Errorf("%w: multipart field %q is required", catalog.ErrInvalidFile, uploadFormField))
		return
	}
	defer func() {
		_ = file.Close() //nolint:errcheck // Read-only file
	}()

	if maxSize := h.config.Storage.MaxFileSize; maxSize > 0 && header.Size > maxSize {
		h.handleError(w, r, fmt.Errorf("%w: %d bytes exceeds the %d byte limit", catalog.ErrFileTooLarge, header.Size, maxSize))
		return
	}

	contentType, err := detectContentType(file, header)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	upload := &catalog.Upload{
		FileName:    rawFileName(header),
		ContentType: contentType,
		Size:        header.Size,
		Content:     file,
	}

	trace.SpanFromContext(ctx).SetAttributes(
		attribute.Int64("product.id", productID),
		attribute.String("upload.content_type", contentType),
		attribute.Int64("upload.size", header.Size),
	)

	img, err := h.files.Store(ctx, productID, upload)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, newProductImageResponse(img))
}

// detectContentType trusts the part's declared type unless it is missing or
// generic, in which case the content is sniffed.
func detectContentType(file multipart.File, header *multipart.FileHeader) (string, error) {
	declared := catalog.MediaType(header.Header.Get("Content-Type"))
	if declared != "" && declared != "application/octet-stream" {
		return declared, nil
	}

	mtype, err := mimetype.DetectReader(file)
	if err != nil {
		return "", fmt.Errorf("failed to read upload: %w", err)
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return "", fmt.Errorf("failed to rewind upload: %w", err)
	}
	return catalog.MediaType(mtype.String()), nil
}

// rawFileName returns the file name as sent by the client. FileHeader.Filename
// has directory components stripped, which would hide traversal attempts.
func rawFileName(header *multipart.FileHeader) string {
	_, params, err := mime.ParseMediaType(header.Header.Get("Content-Disposition"))
	if err == nil {
		if name, ok := params["filename"]; ok {
			return name
		}
	}
	return header.Filename
}

func (h *Handler) downloadImageHandler(w http.ResponseWriter, r *http.Request) {
	productID, err := pathID(r, "id")
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	fileName, err := pathParam(r, "fileName")
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	img, content, err := h.files.Load(r.Context(), productID, fileName)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	defer func() {
		_ = content.Close() //nolint:errcheck // Read-only stream
	}()

	w.Header().Set("Content-Type", img.ContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("inline", map[string]string{"filename": img.FileName}))
	if img.Size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(img.Size, 10))
	}
	w.WriteHeader(http.StatusOK)

	if _, err := io.Copy(w, content); err != nil {
		h.logger.Warn(r.Context()).Err(err).
			Int64("image_id", img.ID).
			Msg("failed to stream product file")
	}
}

func (h *Handler) listImagesHandler(w http.ResponseWriter, r *http.Request) {
	productID, err := pathID(r, "id")
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	images, err := h.files.List(r.Context(), productID)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	response := make([]ProductImageResponse, 0, len(images))
	for _, img := range images {
		response = append(response, newProductImageResponse(img))
	}
	writeJSON(w, http.StatusOK, response)
}

func (h *Handler) deleteImageHandler(w http.ResponseWriter, r *http.Request) {
	productID, err := pathID(r, "id")
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	imageID, err := pathID(r, "imageId")
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	if err := h.files.Delete(r.Context(), productID, imageID); err != nil {
		h.handleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
