package api

import (
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/jmcleod/sharedrop/authz"
	"github.com/jmcleod/sharedrop/filestore"
)

// maxUploadSize caps multipart upload bodies.
const maxUploadSize = 100 << 20

// authorize checks the authenticated principal against the policy table.
// RequireAuth runs first on every mutating route, so missing claims means a
// wiring bug rather than a missing token; it still maps to 401.
func (a *API) authorize(w http.ResponseWriter, r *http.Request, op authz.Operation) bool {
	claims := claimsFromContext(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return false
	}
	if err := authz.Authorize(claims.Role, op); err != nil {
		a.events.logFailure(EventForbidden, r, string(op),
			"username", claims.Username, "role", string(claims.Role))
		mapError(w, err)
		return false
	}
	return true
}

// ListFiles handles GET /files. The listing is rebuilt from the store on
// every call and returned as download URLs, oldest upload first.
func (a *API) ListFiles(w http.ResponseWriter, r *http.Request) {
	entries, err := a.files.List(r.Context())
	if err != nil {
		mapError(w, err)
		return
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })

	urls := make([]string, 0, len(entries))
	for _, e := range entries {
		urls = append(urls, baseURL(r)+"/uploads/"+url.PathEscape(e.Name))
	}
	writeJSON(w, http.StatusOK, urls)
}

// Download handles GET /uploads/{name}, streaming the stored file as an
// attachment.
func (a *API) Download(w http.ResponseWriter, r *http.Request) {
	name, err := filestore.CleanName(chi.URLParam(r, "name"))
	if err != nil {
		mapError(w, err)
		return
	}

	content, entry, err := a.files.Open(r.Context(), name)
	if err != nil {
		mapError(w, err)
		return
	}
	defer content.Close()

	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment",
		map[string]string{"filename": entry.Name}))
	w.Header().Set("Content-Type", "application/octet-stream")
	if entry.Size > 0 {
		w.Header().Set("Content-Length", fmt.Sprintf("%d", entry.Size))
	}
	io.Copy(w, content)
}

// Upload handles POST /upload (admin only, multipart field "file").
func (a *API) Upload(w http.ResponseWriter, r *http.Request) {
	if !a.authorize(w, r, authz.UploadFile) {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "no file uploaded")
		return
	}
	defer file.Close()

	name, err := filestore.CleanName(header.Filename)
	if err != nil {
		mapError(w, err)
		return
	}

	entry, err := a.files.Save(r.Context(), name, file)
	if err != nil {
		mapError(w, err)
		return
	}

	claims := claimsFromContext(r.Context())
	a.events.logEvent(EventFileUploaded, r, claims.Username, "file", entry.Name)
	writeJSON(w, http.StatusOK, UploadResponse{
		URL: baseURL(r) + "/uploads/" + url.PathEscape(entry.Name),
	})
}

// DeleteFile handles DELETE /files (admin only).
func (a *API) DeleteFile(w http.ResponseWriter, r *http.Request) {
	if !a.authorize(w, r, authz.DeleteFile) {
		return
	}

	req, ok := decodeJSON[DeleteFileRequest](w, r, maxJSONBodySize)
	if !ok {
		return
	}
	if req.Filename == "" {
		writeError(w, http.StatusBadRequest, "filename is required")
		return
	}

	name, err := filestore.CleanName(req.Filename)
	if err != nil {
		mapError(w, err)
		return
	}
	if err := a.files.Delete(r.Context(), name); err != nil {
		mapError(w, err)
		return
	}

	claims := claimsFromContext(r.Context())
	a.events.logEvent(EventFileDeleted, r, claims.Username, "file", name)
	writeJSON(w, http.StatusOK, SuccessResponse{Success: true})
}

// RenameFile handles POST /rename-file (admin only). Renaming onto an
// existing name is refused with 409 rather than overwriting.
func (a *API) RenameFile(w http.ResponseWriter, r *http.Request) {
	if !a.authorize(w, r, authz.RenameFile) {
		return
	}

	req, ok := decodeJSON[RenameFileRequest](w, r, maxJSONBodySize)
	if !ok {
		return
	}
	if req.OldName == "" || req.NewName == "" {
		writeError(w, http.StatusBadRequest, "both oldName and newName are required")
		return
	}

	oldName, err := filestore.CleanName(req.OldName)
	if err != nil {
		mapError(w, err)
		return
	}
	newName, err := filestore.CleanName(req.NewName)
	if err != nil {
		mapError(w, err)
		return
	}
	if err := a.files.Rename(r.Context(), oldName, newName); err != nil {
		mapError(w, err)
		return
	}

	claims := claimsFromContext(r.Context())
	a.events.logEvent(EventFileRenamed, r, claims.Username,
		"from", oldName, "to", newName)
	writeJSON(w, http.StatusOK, SuccessResponse{Success: true})
}

func baseURL(r *http.Request) string {
	scheme := "http"
	if requestIsSecure(r) {
		scheme = "https"
	}
	return scheme + "://" + r.Host
}

func requestIsSecure(r *http.Request) bool {
	if r.TLS != nil {
		return true
	}
	if strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https") {
		return true
	}
	return strings.Contains(strings.ToLower(r.Header.Get("Forwarded")), "proto=https")
}
