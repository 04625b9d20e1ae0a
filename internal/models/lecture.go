package models

import "time"

// Lecture is the Firestore index entry written for every published lecture.
// The HTML itself lives in the lecture store; this record tracks where it
// came from.
type Lecture struct {
	LectureID        string    `firestore:"lectureId,omitempty"`
	Unit             string    `firestore:"unit,omitempty"`
	Title            string    `firestore:"title,omitempty"`
	SectionCount     int       `firestore:"sectionCount"`
	PageCount        int       `firestore:"pageCount,omitempty"`
	OriginalFilename string    `firestore:"originalFilename,omitempty"`
	SourceHash       string    `firestore:"sourceHash,omitempty"`
	PdfURL           string    `firestore:"pdfUrl,omitempty"`
	ValidationIssues []string  `firestore:"validationIssues,omitempty"`
	ExecutionID      string    `firestore:"executionId,omitempty"` // For traceability
	SubmittedBy      string    `firestore:"submittedBy,omitempty"`
	CreatedAt        time.Time `firestore:"createdAt,omitempty"`
}

// Part is one element of a prompt sent to the text-completion service: text,
// or an inline binary payload with its MIME type.
type Part struct {
	Text     string
	MIMEType string
	Data     []byte
}

// TextPart returns a text prompt part.
func TextPart(text string) Part { return Part{Text: text} }

// BlobPart returns an inline binary part.
func BlobPart(mimeType string, data []byte) Part {
	return Part{MIMEType: mimeType, Data: data}
}

// IsBlob reports whether the part carries binary data.
func (p Part) IsBlob() bool { return p.Data != nil }
