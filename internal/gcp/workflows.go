package gcp

import (
	"context"
	"encoding/json"
	"fmt"

	executions "cloud.google.com/go/workflows/executions/apiv1"
	"cloud.google.com/go/workflows/executions/apiv1/executionspb"
	"github.com/Lllllllleong/lecturenotes/internal/models"
)

// WorkflowNotifier starts a Cloud Workflows execution for every published
// lecture, e.g. to rebuild a static site or notify students.
type WorkflowNotifier struct {
	client *executions.Client
	parent string
}

func NewWorkflowNotifier(ctx context.Context, projectID, location, workflowID string) (*WorkflowNotifier, error) {
	if projectID == "" || location == "" || workflowID == "" {
		return nil, fmt.Errorf("NewWorkflowNotifier: projectID, location and workflowID cannot be empty")
	}
	client, err := executions.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create Workflows Executions client: %w", err)
	}
	return &WorkflowNotifier{
		client: client,
		parent: fmt.Sprintf("projects/%s/locations/%s/workflows/%s", projectID, location, workflowID),
	}, nil
}

// LecturePublished triggers the workflow with the lecture as its argument.
func (n *WorkflowNotifier) LecturePublished(ctx context.Context, lecture models.Lecture) error {
	payload := map[string]interface{}{
		"lectureId":   lecture.LectureID,
		"unit":        lecture.Unit,
		"title":       lecture.Title,
		"executionId": lecture.ExecutionID,
	}
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal workflow payload: %w", err)
	}
	req := &executionspb.CreateExecutionRequest{
		Parent: n.parent,
		Execution: &executionspb.Execution{
			Argument: string(payloadBytes),
		},
	}
	if _, err := n.client.CreateExecution(ctx, req); err != nil {
		return fmt.Errorf("failed to trigger workflow execution: %w", err)
	}
	return nil
}

func (n *WorkflowNotifier) Close() error {
	return n.client.Close()
}
