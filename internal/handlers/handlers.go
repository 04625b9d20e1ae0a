package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/Lllllllleong/lecturenotes/internal/auth"
	"github.com/Lllllllleong/lecturenotes/internal/models"
	"github.com/Lllllllleong/lecturenotes/internal/services"
)

const (
	// DefaultMaxUploadBytes caps the multipart body of an upload.
	DefaultMaxUploadBytes = 50 << 20
	multipartMemory       = 32 << 20
)

// Ingester runs one upload through the lecture pipeline.
type Ingester interface {
	Process(ctx context.Context, req *models.UploadRequest) (*models.UploadResponse, error)
}

// Upload accepts the admin upload form: pdfFile, prompt, unit, lectureTitle.
type Upload struct {
	Ingest   Ingester
	MaxBytes int64
	Now      func() time.Time
}

func (h *Upload) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}
	now := h.Now
	if now == nil {
		now = time.Now
	}
	maxBytes := h.MaxBytes
	if maxBytes <= 0 {
		maxBytes = DefaultMaxUploadBytes
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		slog.Warn("Could not parse upload form", "error", err)
		writeJSON(w, http.StatusBadRequest, services.NewErrorResponse("Could not parse upload form.",
			&services.StageError{Stage: services.StageInput, Message: "malformed form", Err: err}, now()))
		return
	}

	file, header, err := r.FormFile("pdfFile")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, services.NewErrorResponse("No file uploaded.",
			&services.StageError{Stage: services.StageInput, Message: "missing upload", Err: services.ErrNoFile}, now()))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		slog.Error("Failed to read uploaded file", "error", err, "filename", header.Filename)
		writeJSON(w, http.StatusBadRequest, services.NewErrorResponse("Could not read uploaded file.",
			&services.StageError{Stage: services.StageInput, Message: "unreadable upload", Err: err}, now()))
		return
	}

	res, err := h.Ingest.Process(r.Context(), &models.UploadRequest{
		Filename:    header.Filename,
		MIMEType:    header.Header.Get("Content-Type"),
		Data:        data,
		Prompt:      r.FormValue("prompt"),
		Unit:        r.FormValue("unit"),
		Title:       r.FormValue("lectureTitle"),
		SubmittedBy: submittedBy(r),
	})
	if err != nil {
		// The specific error is already logged inside the Process method.
		status := http.StatusInternalServerError
		if services.IsInputError(err) {
			status = http.StatusBadRequest
		}
		writeJSON(w, status, services.NewErrorResponse("Failed to process lecture content", err, now()))
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Editor serves the raw store on GET and replaces it on POST.
type Editor struct {
	Editor *services.EditorFunction
}

func (h *Editor) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		doc, err := h.Editor.Load()
		if err != nil {
			slog.Error("Failed to load lecture store", "error", err)
			http.Error(w, "Internal Server Error: failed to load lectures", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = io.WriteString(w, doc)

	case http.MethodPost:
		var req models.SaveLecturesRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			slog.Warn("Could not decode editor request", "error", err)
			http.Error(w, "Bad Request: could not parse JSON", http.StatusBadRequest)
			return
		}
		slog.Info("Editor save requested.", "admin", submittedBy(r), "bytes", len(req.Content))
		backupPath, err := h.Editor.Save(r.Context(), req.Content)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, models.SaveLecturesResponse{
				Success: false,
				Message: "Failed to save content.",
			})
			return
		}
		writeJSON(w, http.StatusOK, models.SaveLecturesResponse{
			Success:       true,
			Message:       "Lectures saved successfully!",
			BackupCreated: backupPath != "",
		})

	default:
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
	}
}

// Catalog serves the unit navigation, or one lecture page when the id query
// parameter is present.
type Catalog struct {
	Catalog *services.CatalogFunction
}

func (h *Catalog) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	if !r.URL.Query().Has("id") {
		catalog, err := h.Catalog.List()
		if err != nil {
			http.Error(w, "Internal Server Error: failed to list lectures", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, catalog)
		return
	}

	page, err := h.Catalog.Page(r.URL.Query().Get("id"))
	switch {
	case errors.Is(err, services.ErrLectureNotFound):
		writeJSON(w, http.StatusNotFound, page)
	case err != nil:
		slog.Error("Failed to build lecture page", "error", err)
		http.Error(w, "Internal Server Error: failed to load lecture", http.StatusInternalServerError)
	default:
		writeJSON(w, http.StatusOK, page)
	}
}

// Login exchanges admin credentials for a session cookie. DELETE logs out.
type Login struct {
	Auth   *auth.Authenticator
	Tokens *auth.TokenManager
	Now    func() time.Time
}

func (h *Login) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.login(w, r)
	case http.MethodDelete:
		http.SetCookie(w, &http.Cookie{Name: auth.CookieName, Value: "", Path: "/", MaxAge: -1, HttpOnly: true, Secure: true})
		w.WriteHeader(http.StatusNoContent)
	default:
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
	}
}

func (h *Login) login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if r.Header.Get("Content-Type") == "application/json" {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Bad Request: could not parse JSON", http.StatusBadRequest)
			return
		}
	} else {
		req.Username = r.FormValue("username")
		req.Password = r.FormValue("password")
	}

	if err := h.Auth.Authenticate(req.Username, req.Password); err != nil {
		// The log keeps the reason; the caller cannot tell which part was wrong.
		slog.Warn("Admin login rejected", "username", req.Username, "error", err)
		http.Error(w, "Invalid credentials.", http.StatusUnauthorized)
		return
	}

	token, err := h.Tokens.Issue(req.Username, auth.RoleAdmin)
	if err != nil {
		slog.Error("Failed to issue admin token", "error", err)
		http.Error(w, "Internal Server Error: failed to issue token", http.StatusInternalServerError)
		return
	}

	now := time.Now
	if h.Now != nil {
		now = h.Now
	}
	expiresAt := now().Add(h.Tokens.TTL())
	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	})
	slog.Info("Admin logged in.", "username", req.Username)
	writeJSON(w, http.StatusOK, models.LoginResponse{
		Success:   true,
		Message:   "Logged in.",
		ExpiresAt: expiresAt.UTC().Format(time.RFC3339),
	})
}

// submittedBy names the admin RequireAdmin let through, if any.
func submittedBy(r *http.Request) string {
	if claims, ok := auth.ClaimsFrom(r.Context()); ok {
		return claims.Username
	}
	return ""
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("Failed to write response", "error", err)
	}
}
