package models

import "github.com/Lllllllleong/lecturenotes/internal/content"

// These structs define the JSON payloads exchanged with the admin UI and the
// public lecture pages.

// UploadRequest is the parsed form of an admin PDF upload.
type UploadRequest struct {
	Filename    string
	MIMEType    string
	Data        []byte
	Prompt      string // optional stage-1 prompt override
	Unit        string // defaults to content.DefaultUnit
	Title       string // defaults to the file name without extension
	ExecutionID string
	SubmittedBy string // admin who uploaded the file, if known
}

// UploadResponse is returned after a successful ingest.
type UploadResponse struct {
	Success bool           `json:"success"`
	Message string         `json:"message"`
	Data    UploadData     `json:"data"`
	Content UploadContents `json:"content"`
}

type UploadData struct {
	PdfURL     string           `json:"pdfUrl"`
	LectureID  string           `json:"lectureId"`
	PageCount  int              `json:"pageCount"`
	Metadata   content.Metadata `json:"metadata"`
	Processing ProcessingReport `json:"processing"`
}

type ProcessingReport struct {
	Stage1Validation content.ValidationReport `json:"stage1Validation"`
	FinalValidation  content.ValidationReport `json:"finalValidation"`
	BackupCreated    bool                     `json:"backupCreated"`
}

type UploadContents struct {
	RawTranscription string `json:"rawTranscription"`
	EnhancedHTML     string `json:"enhancedHtml"`
}

// ErrorResponse is the body of every failed admin call.
type ErrorResponse struct {
	Success bool         `json:"success"`
	Error   string       `json:"error"`
	Details ErrorDetails `json:"details"`
}

type ErrorDetails struct {
	Message   string `json:"message"`
	Stage     string `json:"stage"`
	Timestamp string `json:"timestamp"`
}

// SaveLecturesRequest carries a full replacement of the lecture store.
type SaveLecturesRequest struct {
	Content string `json:"content"`
}

// SaveLecturesResponse acknowledges an editor save.
type SaveLecturesResponse struct {
	Success       bool   `json:"success"`
	Message       string `json:"message"`
	BackupCreated bool   `json:"backupCreated"`
}

// LoginRequest is the admin login form.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse acknowledges a successful admin login. The token itself is
// only sent as a cookie.
type LoginResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	ExpiresAt string `json:"expiresAt"`
}

// LecturePage is the student view of one lecture plus the unit navigation.
type LecturePage struct {
	Units              []content.UnitLectures `json:"units"`
	CurrentLectureID   string                 `json:"currentLectureId"`
	CurrentLectureHTML string                 `json:"currentLectureHtml"`
}
