package external

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"schedassist/internal/config"
	"schedassist/internal/types"
)

// SolveRequest is the body POSTed to the constraint solver's solve-day
// endpoint. The solver fetches nothing itself: the file key and callback URL
// let it reference the staged payload and report the solution back.
type SolveRequest struct {
	SingletonID   string              `json:"singletonId"`
	HostID        string              `json:"hostId"`
	FileKey       string              `json:"fileKey"`
	Delay         int64               `json:"delay"`
	CallBackURL   string              `json:"callBackUrl"`
	TimeslotList  []types.Timeslot    `json:"timeslotList"`
	UserList      []types.PlannerUser `json:"userList"`
	EventPartList []types.EventPart   `json:"eventPartList"`
}

// PlannerClient submits solve requests to the external constraint solver.
type PlannerClient struct {
	base        *BaseClient
	url         string
	username    string
	password    config.SecretString
	callbackURL string
	delayMillis int64
}

// NewPlannerClient creates a PlannerClient from the planner and server
// configuration. The callback URL is where the solver POSTs solutions.
func NewPlannerClient(base *BaseClient, cfg config.PlannerConfig, callbackURL string) *PlannerClient {
	return &PlannerClient{
		base:        base,
		url:         cfg.URL,
		username:    cfg.Username,
		password:    cfg.Password,
		callbackURL: callbackURL,
		delayMillis: cfg.SolveDelayMillis,
	}
}

// SolveDay submits a planning run to the solver. The solver answers
// asynchronously via the callback URL; a 2xx here only acknowledges intake.
func (c *PlannerClient) SolveDay(ctx context.Context, singletonID, hostID, fileKey string, timeslots []types.Timeslot, users []types.PlannerUser, eventParts []types.EventPart) error {
	reqBody := SolveRequest{
		SingletonID:   singletonID,
		HostID:        hostID,
		FileKey:       fileKey,
		Delay:         c.delayMillis,
		CallBackURL:   c.callbackURL,
		TimeslotList:  timeslots,
		UserList:      users,
		EventPartList: eventParts,
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalUnexpected, "failed to marshal solve request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.url+"/timeTable/admin/solve-day", bytes.NewReader(body))
	if err != nil {
		return types.NewAppError(types.ErrCodeInternalUnexpected, "failed to build solve request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(c.username, c.password.Unmask())

	resp, err := c.base.Do(req)
	if err != nil {
		return types.NewAppError(types.ErrCodeUpstreamPlanner, "solver request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return types.NewAppErrorWithDetails(types.ErrCodeUpstreamPlanner,
			fmt.Sprintf("solver rejected solve request with status %d", resp.StatusCode), nil,
			map[string]any{"singleton_id": singletonID, "file_key": fileKey})
	}
	return nil
}
