package api

import (
	"log/slog"
	"net/http"

	"github.com/j-shelfwood/obsidian-local-rest-api/internal/noteservice"
)

type fileMessage struct {
	Message string `json:"message"`
	Path    string `json:"path"`
}

type fileContent struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

// ListFiles handles GET /api/files.
func (h *Handler) ListFiles(w http.ResponseWriter, r *http.Request) {
	files, err := h.svc.ListFiles(r.Context())
	if err != nil {
		writeError(w, err, "list files")
		return
	}
	writeJSON(w, http.StatusOK, dataResponse{Data: files})
}

// GetFile handles GET /api/files/*. Directories answer 404.
func (h *Handler) GetFile(w http.ResponseWriter, r *http.Request) {
	path := wildcardPath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	content, err := h.svc.ReadFile(r.Context(), path)
	if err != nil {
		writeError(w, err, "read file", slog.String("path", path))
		return
	}
	writeJSON(w, http.StatusOK, fileContent{Path: path, Content: content})
}

// WriteFile handles POST /api/files/write.
//
//	@Summary		Write a file in overwrite, append or prepend mode
//	@Tags			files
//	@Accept			json
//	@Produce		json
//	@Param			body	body		WriteFileRequest	true	"Write request"
//	@Success		200		{object}	noteservice.WriteResult
//	@Failure		422		{object}	validationResponse
//	@Router			/files/write [post]
func (h *Handler) WriteFile(w http.ResponseWriter, r *http.Request) {
	var req WriteFileRequest
	if !decodeBody(w, r, &req) {
		return
	}
	res, err := h.svc.WriteFile(r.Context(), req.Path, req.Content, req.Mode)
	if err != nil {
		writeError(w, err, "write file", slog.String("path", req.Path))
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// CreateFile handles POST /api/files for both files and directories.
func (h *Handler) CreateFile(w http.ResponseWriter, r *http.Request) {
	var req CreateFileRequest
	if !decodeBody(w, r, &req) {
		return
	}

	msg := "File created successfully"
	var err error
	if req.Type == noteservice.TypeDirectory {
		msg = "Directory created successfully"
		err = h.svc.CreateDirectory(r.Context(), req.Path)
	} else {
		err = h.svc.CreateFile(r.Context(), req.Path, req.Content)
	}
	if err != nil {
		writeError(w, err, "create file", slog.String("path", req.Path))
		return
	}
	writeJSON(w, http.StatusCreated, fileMessage{Message: msg, Path: req.Path})
}

// UpdateFile handles PUT /api/files/*.
func (h *Handler) UpdateFile(w http.ResponseWriter, r *http.Request) {
	path := wildcardPath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	var req UpdateFileRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.svc.UpdateFile(r.Context(), path, *req.Content); err != nil {
		writeError(w, err, "update file", slog.String("path", path))
		return
	}
	writeJSON(w, http.StatusOK, fileMessage{Message: "File updated successfully", Path: path})
}

// DeleteFile handles DELETE /api/files/*, removing a file or a directory tree.
func (h *Handler) DeleteFile(w http.ResponseWriter, r *http.Request) {
	path := wildcardPath(r)
	if path == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return
	}
	kind, err := h.svc.DeleteEntry(r.Context(), path)
	if err != nil {
		writeError(w, err, "delete file", slog.String("path", path))
		return
	}
	msg := "File deleted successfully"
	if kind == noteservice.TypeDirectory {
		msg = "Directory deleted successfully"
	}
	writeJSON(w, http.StatusOK, fileMessage{Message: msg, Path: path})
}
