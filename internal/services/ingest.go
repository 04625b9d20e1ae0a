package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/Lllllllleong/lecturenotes/internal/content"
	"github.com/Lllllllleong/lecturenotes/internal/gcp"
	"github.com/Lllllllleong/lecturenotes/internal/models"
	"github.com/Lllllllleong/lecturenotes/internal/store"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// State is a step of an ingest run. Runs move strictly forward through the
// states below and end in StateResponded or StateErrored.
type State string

const (
	StateReceived        State = "received"
	StateStage1Requested State = "stage1_requested"
	StateStage1Sanitized State = "stage1_sanitized"
	StateStage2Requested State = "stage2_requested"
	StateStage2Sanitized State = "stage2_sanitized"
	StatePostProcessed   State = "post_processed"
	StateValidated       State = "validated"
	StateBackedUp        State = "backed_up"
	StatePersisted       State = "persisted"
	StateResponded       State = "responded"
	StateErrored         State = "errored"
)

const defaultCallTimeout = 3 * time.Minute

// refusalPhrases mark a model reply that declined the task.
var refusalPhrases = []string{
	"i am unable to",
	"i cannot fulfill",
	"i cannot answer",
	"i cannot provide",
	"as a large language model",
}

// IngestConfig holds all configuration for the ingest service.
type IngestConfig struct {
	Store            StoreConfig
	ProjectID        string
	VertexAIRegion   string
	GeminiModel      string
	CallTimeout      time.Duration
	UploadsDir       string
	UploadsBucket    string
	LectureColl      string
	WorkflowID       string
	WorkflowLocation string
}

// IngestDeps are the collaborators of an IngestFunction. Registry, Notifier,
// Now and OnTransition are optional.
type IngestDeps struct {
	Transcriber  Completer
	Enhancer     Completer
	Store        *store.Store
	Uploads      UploadSink
	Inspector    PDFInspector
	Formatter    content.Formatter
	IDs          *content.IDGenerator
	Units        content.Units
	Registry     Registry
	Notifier     Notifier
	CallTimeout  time.Duration
	Now          func() time.Time
	OnTransition func(State)
}

// IngestFunction turns an uploaded PDF into a published lecture.
type IngestFunction struct {
	deps   IngestDeps
	opened closers
}

// loadIngestConfig loads and validates all necessary environment variables for this service.
func loadIngestConfig() (*IngestConfig, error) {
	storeCfg, err := loadStoreConfig()
	if err != nil {
		return nil, err
	}
	projectID := gcp.GetEnv("PROJECT_ID", "")
	if projectID == "" {
		return nil, fmt.Errorf("PROJECT_ID environment variable must be set")
	}
	callTimeout, err := gcp.GetEnvDuration("AI_CALL_TIMEOUT", defaultCallTimeout)
	if err != nil {
		return nil, err
	}

	return &IngestConfig{
		Store:            *storeCfg,
		ProjectID:        projectID,
		VertexAIRegion:   gcp.GetEnv("VERTEX_AI_REGION", "us-central1"),
		GeminiModel:      gcp.GetEnv("GEMINI_MODEL", "gemini-1.5-flash"),
		CallTimeout:      callTimeout,
		UploadsDir:       gcp.GetEnv("UPLOADS_DIR", "uploads"),
		UploadsBucket:    gcp.GetEnv("UPLOADS_BUCKET", ""),
		LectureColl:      gcp.GetEnv("FIRESTORE_COLLECTION", ""),
		WorkflowID:       gcp.GetEnv("WORKFLOW_ID", ""),
		WorkflowLocation: gcp.GetEnv("WORKFLOW_LOCATION", "us-central1"),
	}, nil
}

// NewIngest creates a new IngestFunction wired to Vertex AI and, when
// configured, GCS, Firestore and Workflows.
func NewIngest(ctx context.Context) (_ *IngestFunction, err error) {
	config, err := loadIngestConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	var opened closers
	defer func() {
		if err != nil {
			opened.closeAll()
		}
	}()

	vertexClient, err := gcp.NewVertexClient(ctx, config.ProjectID, config.VertexAIRegion, config.GeminiModel)
	if err != nil {
		return nil, fmt.Errorf("failed to create vertex client: %w", err)
	}
	opened.add(vertexClient)

	lectureStore, err := openStore(ctx, config.Store)
	if err != nil {
		return nil, err
	}
	opened.add(lectureStore)

	deps := IngestDeps{
		Transcriber: vertexClient.Transcriber(),
		Enhancer:    vertexClient.Enhancer(),
		Store:       lectureStore,
		Uploads:     LocalUploadSink{Dir: config.UploadsDir, URLPrefix: "/uploads"},
		CallTimeout: config.CallTimeout,
	}

	if config.UploadsBucket != "" {
		storageClient, err := storage.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to create storage client: %w", err)
		}
		opened.add(storageClient)
		deps.Uploads = gcp.NewBucketUploadSink(storageClient, config.UploadsBucket)
	}

	if config.LectureColl != "" {
		firestoreClient, err := gcp.NewFirestoreClient(ctx, config.ProjectID)
		if err != nil {
			return nil, fmt.Errorf("failed to create firestore client: %w", err)
		}
		registry := gcp.NewLectureRegistry(firestoreClient, config.LectureColl)
		opened.add(registry)
		deps.Registry = registry
	}

	if config.WorkflowID != "" {
		notifier, err := gcp.NewWorkflowNotifier(ctx, config.ProjectID, config.WorkflowLocation, config.WorkflowID)
		if err != nil {
			return nil, fmt.Errorf("failed to create workflow notifier: %w", err)
		}
		opened.add(notifier)
		deps.Notifier = notifier
	}

	slog.Info("Lecture ingest initialized.", "store", config.Store.StorePath(), "model", config.GeminiModel)
	f := NewIngestFunction(deps)
	f.opened = opened
	return f, nil
}

// NewIngestFunction fills in defaults for any missing optional dependency.
func NewIngestFunction(deps IngestDeps) *IngestFunction {
	if deps.Inspector == nil {
		deps.Inspector = PdfcpuInspector{}
	}
	if deps.Formatter == nil {
		deps.Formatter = content.IndentFormatter{}
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.IDs == nil {
		deps.IDs = content.NewIDGenerator(deps.Now)
	}
	if deps.Units == nil {
		deps.Units = content.DefaultUnits()
	}
	if deps.CallTimeout <= 0 {
		deps.CallTimeout = defaultCallTimeout
	}
	return &IngestFunction{deps: deps}
}

// Close releases the clients NewIngest opened.
func (f *IngestFunction) Close() {
	f.opened.closeAll()
	f.opened = nil
}

// run tracks one pass through the pipeline.
type run struct {
	logCtx       *slog.Logger
	state        State
	onTransition func(State)
}

func (r *run) enter(s State) {
	r.state = s
	r.logCtx.Debug("Pipeline state changed.", "state", s)
	if r.onTransition != nil {
		r.onTransition(s)
	}
}

func (r *run) fail(err error) error {
	r.logCtx.Error("Lecture ingest failed.", "failedState", r.state, "stage", StageOf(err), "error", err)
	r.enter(StateErrored)
	return err
}

// Process handles the core logic of turning one uploaded PDF into a stored
// lecture. Nothing is written to the store unless both model stages succeed.
func (f *IngestFunction) Process(ctx context.Context, req *models.UploadRequest) (*models.UploadResponse, error) {
	executionID := req.ExecutionID
	if executionID == "" {
		executionID = uuid.NewString()
	}
	r := &run{
		logCtx:       slog.With("executionId", executionID, "filename", req.Filename),
		onTransition: f.deps.OnTransition,
	}
	r.enter(StateReceived)

	// --- 0. Reject bad input before any model call ---
	if len(req.Data) == 0 {
		return nil, r.fail(&StageError{Stage: StageInput, Message: "missing upload", Err: ErrNoFile})
	}
	unit := req.Unit
	if unit == "" {
		unit = content.DefaultUnit
	}
	if !f.deps.Units.Contains(unit) {
		return nil, r.fail(&StageError{Stage: StageInput, Message: "invalid unit " + unit, Err: ErrUnknownUnit})
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = strings.TrimSuffix(filepath.Base(req.Filename), filepath.Ext(req.Filename))
	}
	mimeType := req.MIMEType
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = "application/pdf"
	}
	pageCount, err := f.deps.Inspector.PageCount(req.Data)
	if err != nil {
		return nil, r.fail(&StageError{Stage: StageInput, Message: "invalid PDF", Err: fmt.Errorf("%w: %v", ErrNotPDF, err)})
	}

	lectureID := f.deps.IDs.Next()
	r.logCtx = r.logCtx.With("lectureId", lectureID, "unit", unit)
	r.logCtx.Info("Starting lecture ingest.", "pageCount", pageCount)

	// --- 1. Stage 1: faithful transcription of the PDF ---
	r.enter(StateStage1Requested)
	rawTranscription, err := f.complete(ctx, StageTranscription, "failed to transcribe PDF content", f.deps.Transcriber,
		models.TextPart(buildStage1Prompt(req.Prompt, lectureID, unit, title)),
		models.BlobPart(mimeType, req.Data),
	)
	if err != nil {
		return nil, r.fail(err)
	}
	r.enter(StateStage1Sanitized)

	stage1Validation := content.Validate(rawTranscription)
	if !stage1Validation.IsValid {
		r.logCtx.Warn("Stage 1 validation issues.", "issues", stage1Validation.Issues)
	}

	// --- 2. Stage 2: pedagogical restructuring ---
	r.enter(StateStage2Requested)
	enhanced, err := f.complete(ctx, StageEnhancement, "failed to enhance educational structure", f.deps.Enhancer,
		models.TextPart(buildStage2Prompt(lectureID, unit, rawTranscription)),
	)
	if err != nil {
		return nil, r.fail(err)
	}
	r.enter(StateStage2Sanitized)

	finalHTML, restamped := content.StampIdentity(f.deps.Formatter.Format(enhanced), lectureID, unit)
	if restamped {
		r.logCtx.Warn("Model changed the lecture container identity; restored the assigned one.")
	}
	r.enter(StatePostProcessed)

	finalValidation := content.Validate(finalHTML)
	if !finalValidation.IsValid {
		r.logCtx.Warn("Final validation issues.", "issues", finalValidation.Issues)
	}
	metadata := content.ExtractMetadata(finalHTML)
	r.enter(StateValidated)

	// --- 3. Back up and append to the store ---
	backupPath, err := f.deps.Store.Append(ctx, finalHTML)
	if err != nil {
		return nil, r.fail(storeStageError(err))
	}
	if backupPath != "" {
		r.logCtx.Info("Backup created.", "backup", backupPath)
	}
	r.enter(StateBackedUp)
	r.enter(StatePersisted)

	// --- 4. Keep the original PDF now that the lecture is live ---
	uploadName := fmt.Sprintf("%d-%s", f.deps.Now().UnixMilli(), filepath.Base(req.Filename))
	pdfURL, err := f.deps.Uploads.Save(ctx, uploadName, mimeType, req.Data)
	if err != nil {
		return nil, r.fail(&StageError{Stage: StageUpload, Message: "failed to save original upload", Err: err})
	}

	f.announce(ctx, r.logCtx, models.Lecture{
		LectureID:        lectureID,
		Unit:             unit,
		Title:            metadata.Title,
		SectionCount:     metadata.SectionCount,
		PageCount:        pageCount,
		OriginalFilename: req.Filename,
		SourceHash:       SourceHash(req.Data),
		PdfURL:           pdfURL,
		ValidationIssues: finalValidation.Issues,
		ExecutionID:      executionID,
		SubmittedBy:      req.SubmittedBy,
		CreatedAt:        f.deps.Now(),
	})

	r.enter(StateResponded)
	r.logCtx.Info("Lecture ingest complete.", "pdfUrl", pdfURL, "sections", metadata.SectionCount)
	return &models.UploadResponse{
		Success: true,
		Message: "Lecture processed with advanced educational formatting!",
		Data: models.UploadData{
			PdfURL:    pdfURL,
			LectureID: lectureID,
			PageCount: pageCount,
			Metadata:  metadata,
			Processing: models.ProcessingReport{
				Stage1Validation: stage1Validation,
				FinalValidation:  finalValidation,
				BackupCreated:    backupPath != "",
			},
		},
		Content: models.UploadContents{
			RawTranscription: rawTranscription,
			EnhancedHTML:     finalHTML,
		},
	}, nil
}

// complete runs one model call under the configured timeout and returns the
// sanitized reply. Empty replies and refusals fail the stage.
func (f *IngestFunction) complete(ctx context.Context, stage Stage, message string, c Completer, parts ...models.Part) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, f.deps.CallTimeout)
	defer cancel()

	raw, err := c.Complete(callCtx, parts...)
	if err != nil {
		return "", &StageError{Stage: stage, Message: message, Err: err}
	}

	cleaned := content.SanitizeStrict(raw)
	if cleaned == "" {
		return "", &StageError{Stage: stage, Message: message, Err: ErrEmptyCompletion}
	}
	// A finished lecture may quote these phrases; only a reply without a
	// lecture container is treated as a refusal.
	if content.HasLectureContainer(cleaned) {
		return cleaned, nil
	}
	lower := strings.ToLower(cleaned)
	for _, phrase := range refusalPhrases {
		if strings.Contains(lower, phrase) {
			return "", &StageError{Stage: stage, Message: message, Err: fmt.Errorf("%w: %q", ErrRefusal, phrase)}
		}
	}
	return cleaned, nil
}

// announce records and broadcasts a published lecture. The store is the
// source of truth, so failures here are logged and not returned.
func (f *IngestFunction) announce(ctx context.Context, logCtx *slog.Logger, lecture models.Lecture) {
	if f.deps.Registry == nil && f.deps.Notifier == nil {
		return
	}
	var eg errgroup.Group
	if f.deps.Registry != nil {
		eg.Go(func() error {
			if err := f.deps.Registry.Record(ctx, lecture); err != nil {
				logCtx.Warn("Failed to record lecture in registry.", "error", err)
			}
			return nil
		})
	}
	if f.deps.Notifier != nil {
		eg.Go(func() error {
			if err := f.deps.Notifier.LecturePublished(ctx, lecture); err != nil {
				logCtx.Warn("Failed to notify lecture publication.", "error", err)
			}
			return nil
		})
	}
	_ = eg.Wait()
}

// SourceHash fingerprints an uploaded file so repeated uploads can be spotted.
func SourceHash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// storeStageError maps a store failure onto the pipeline stage it belongs to.
func storeStageError(err error) error {
	var opErr *store.OpError
	if errors.As(err, &opErr) {
		switch opErr.Op {
		case store.OpLock, store.OpBackup:
			return &StageError{Stage: StageBackup, Message: "failed to back up lecture store", Err: err}
		}
	}
	return &StageError{Stage: StagePersist, Message: "failed to write lecture store", Err: err}
}
