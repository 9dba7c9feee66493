package tasksync

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"connectrpc.com/connect"
	"github.com/mcdev12/pomotrack/go/internal/models"
)

// UpdateTaskProcedure is the fully-qualified name of the task service's
// UpdateTask RPC.
const UpdateTaskProcedure = "/task.v1.TaskService/UpdateTask"

// UpdateTaskRequest is the request body of UpdateTask.
type UpdateTaskRequest struct {
	TaskID           string            `json:"task_id"`
	Status           models.TaskStatus `json:"status"`
	AddWorkedMinutes int               `json:"add_worked_minutes,omitempty"`
}

// UpdateTaskResponse is the response body of UpdateTask.
type UpdateTaskResponse struct {
	Task models.Task `json:"task"`
}

// Client talks to the task service over Connect.
type Client struct {
	updateTask *connect.Client[UpdateTaskRequest, UpdateTaskResponse]
}

// NewClient creates a task service client rooted at baseURL.
func NewClient(httpClient connect.HTTPClient, baseURL string) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	baseURL = strings.TrimRight(baseURL, "/")
	return &Client{
		updateTask: connect.NewClient[UpdateTaskRequest, UpdateTaskResponse](
			httpClient,
			baseURL+UpdateTaskProcedure,
			connect.WithCodec(jsonCodec{}),
		),
	}
}

// UpdateTask moves taskID to update.Status and adds any worked minutes.
func (c *Client) UpdateTask(ctx context.Context, taskID string, update models.StatusUpdate) (*models.Task, error) {
	resp, err := c.updateTask.CallUnary(ctx, connect.NewRequest(&UpdateTaskRequest{
		TaskID:           taskID,
		Status:           update.Status,
		AddWorkedMinutes: update.AddWorkedMinutes,
	}))
	if err != nil {
		return nil, fmt.Errorf("update task %s (%s): %w", taskID, connect.CodeOf(err), err)
	}
	return &resp.Msg.Task, nil
}
