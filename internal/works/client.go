// Package works is the task-management side client: sign-in, parameter set
// reads, nanotask creation and response watching over a duct.
package works

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/iflb/neji-tutti-client/internal/domain"
	"github.com/iflb/neji-tutti-client/internal/ports"
)

// Duct event names consumed on the task-management side.
const (
	eventSignIn                    = "SIGN_IN"
	eventSignOut                   = "SIGN_OUT"
	eventAutomationParameterSetGet = "AUTOMATION_PARAMETER_SET_GET"
	eventPlatformParameterSetGet   = "PLATFORM_PARAMETER_SET_GET"
	eventCreateNanotasks           = "CREATE_NANOTASKS"
	eventCreateNanotaskGroup       = "CREATE_NANOTASK_GROUP"
	eventWatchResponses            = "WATCH_RESPONSES_FOR_AUTOMATION_PARAMETER_SET"
)

type Client struct {
	duct   ports.Duct
	logger *slog.Logger

	mu          sync.Mutex
	accessToken string
}

func NewClient(duct ports.Duct, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{duct: duct, logger: logger}
}

func (c *Client) Open(ctx context.Context, wsdURL string) error {
	return c.duct.Open(ctx, wsdURL)
}

func (c *Client) Close() error {
	return c.duct.Close()
}

// SetConnectionErrorListener forwards asynchronous transport errors, which the
// duct reports out-of-band from the call that triggered them.
func (c *Client) SetConnectionErrorListener(fn func(err error)) {
	c.duct.SetErrorListener(fn)
}

// SignIn authenticates with exactly one credential form and stores the
// returned access token for subsequent calls.
func (c *Client) SignIn(ctx context.Context, creds domain.WorksCredentials) error {
	if !creds.Valid() {
		return domain.ErrNoCredentials
	}

	payload := map[string]any{}
	switch creds.Form {
	case domain.WorksCredentialAccessToken:
		payload["access_token"] = creds.AccessToken
	case domain.WorksCredentialPasswordHash:
		payload["user_name"] = creds.UserName
		payload["password_hash"] = creds.PasswordHash
	case domain.WorksCredentialPassword:
		payload["user_name"] = creds.UserName
		payload["password"] = creds.Password
	}

	reply, err := c.duct.Call(ctx, eventSignIn, payload)
	if err != nil {
		return fmt.Errorf("works sign in: %w", err)
	}

	content, err := contentMap(reply)
	if err != nil {
		return fmt.Errorf("works sign in: %w", err)
	}
	token, _ := content["access_token"].(string)
	if token == "" {
		return fmt.Errorf("works sign in: response carries no access token")
	}

	c.mu.Lock()
	c.accessToken = token
	c.mu.Unlock()

	c.logger.Debug("signed in to works", "user", creds.UserName)
	return nil
}

func (c *Client) SignOut(ctx context.Context) error {
	token, err := c.AccessToken()
	if err != nil {
		return err
	}

	if _, err := c.duct.Call(ctx, eventSignOut, map[string]any{"access_token": token}); err != nil {
		return fmt.Errorf("works sign out: %w", err)
	}

	c.mu.Lock()
	c.accessToken = ""
	c.mu.Unlock()
	return nil
}

func (c *Client) AccessToken() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.accessToken == "" {
		return "", domain.ErrNotSignedIn
	}
	return c.accessToken, nil
}

func (c *Client) GetAutomationParameterSet(ctx context.Context, id domain.AutomationParameterSetID) (domain.AutomationParameterSet, error) {
	token, err := c.AccessToken()
	if err != nil {
		return domain.AutomationParameterSet{}, err
	}

	reply, err := c.duct.Call(ctx, eventAutomationParameterSetGet, map[string]any{
		"automation_parameter_set_id": string(id),
		"access_token":                token,
	})
	if err != nil {
		return domain.AutomationParameterSet{}, fmt.Errorf("get automation parameter set: %w", err)
	}

	content, err := contentMap(reply)
	if err != nil || len(content) == 0 {
		return domain.AutomationParameterSet{}, fmt.Errorf("automation parameter set ID %q: %w", id, domain.ErrParameterSetNotFound)
	}

	return domain.AutomationParameterSet{
		ID:                     id,
		PlatformParameterSetID: domain.PlatformParameterSetID(stringField(content, "platform_parameter_set_id")),
		ProjectName:            stringField(content, "project_name"),
	}, nil
}

func (c *Client) GetPlatformParameterSet(ctx context.Context, id domain.PlatformParameterSetID) (domain.PlatformParameterSet, error) {
	token, err := c.AccessToken()
	if err != nil {
		return domain.PlatformParameterSet{}, err
	}

	reply, err := c.duct.Call(ctx, eventPlatformParameterSetGet, map[string]any{
		"platform_parameter_set_id": string(id),
		"access_token":              token,
	})
	if err != nil {
		return domain.PlatformParameterSet{}, fmt.Errorf("get platform parameter set: %w", err)
	}

	content, err := contentMap(reply)
	if err != nil || len(content) == 0 {
		return domain.PlatformParameterSet{}, fmt.Errorf("platform parameter set ID %q: %w", id, domain.ErrParameterSetNotFound)
	}

	parameters, _ := content["parameters"].(map[string]any)
	return domain.PlatformParameterSet{
		ID:       id,
		Platform: stringField(content, "platform"),
		Parameters: domain.PlatformParameters{
			JobClassID:           stringField(parameters, "job_class_id"),
			NumJobAssignmentsMax: stringField(parameters, "num_job_assignments_max"),
			// The server stores this one key camel-cased.
			PriorityScore: stringField(parameters, "priorityScore"),
		},
	}, nil
}

type CreateNanotasksRequest struct {
	ProjectName   string
	TemplateName  string
	Nanotasks     []domain.Nanotask
	Tag           string
	Priority      int
	NumAssignable int
}

func (c *Client) CreateNanotasks(ctx context.Context, req CreateNanotasksRequest) ([]domain.NanotaskID, error) {
	token, err := c.AccessToken()
	if err != nil {
		return nil, err
	}

	nanotasks := make([]map[string]any, 0, len(req.Nanotasks))
	for _, nt := range req.Nanotasks {
		nanotasks = append(nanotasks, map[string]any{
			"id":    string(nt.ID),
			"props": map[string]any{"sync_id": nt.Props.SyncID},
		})
	}

	reply, err := c.duct.Call(ctx, eventCreateNanotasks, map[string]any{
		"project_name":   req.ProjectName,
		"template_name":  req.TemplateName,
		"nanotasks":      nanotasks,
		"tag":            req.Tag,
		"priority":       req.Priority,
		"num_assignable": req.NumAssignable,
		"access_token":   token,
	})
	if err != nil {
		return nil, fmt.Errorf("create nanotasks: %w", err)
	}

	content, err := contentMap(reply)
	if err != nil {
		return nil, fmt.Errorf("create nanotasks: %w", err)
	}
	rawIDs, _ := content["nanotask_ids"].([]any)
	if len(rawIDs) == 0 {
		return nil, fmt.Errorf("create nanotasks: response carries no nanotask ids")
	}

	ids := make([]domain.NanotaskID, 0, len(rawIDs))
	for _, raw := range rawIDs {
		s, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("create nanotasks: nanotask id %v is not a string", raw)
		}
		ids = append(ids, domain.NanotaskID(s))
	}
	return ids, nil
}

type CreateNanotaskGroupRequest struct {
	Name         string
	NanotaskIDs  []domain.NanotaskID
	ProjectName  string
	TemplateName string
}

func (c *Client) CreateNanotaskGroup(ctx context.Context, req CreateNanotaskGroupRequest) (domain.NanotaskGroupID, error) {
	token, err := c.AccessToken()
	if err != nil {
		return "", err
	}

	ids := make([]string, 0, len(req.NanotaskIDs))
	for _, id := range req.NanotaskIDs {
		ids = append(ids, string(id))
	}

	reply, err := c.duct.Call(ctx, eventCreateNanotaskGroup, map[string]any{
		"name":          req.Name,
		"nanotask_ids":  ids,
		"project_name":  req.ProjectName,
		"template_name": req.TemplateName,
		"access_token":  token,
	})
	if err != nil {
		return "", fmt.Errorf("create nanotask group: %w", err)
	}

	content, err := contentMap(reply)
	if err != nil {
		return "", fmt.Errorf("create nanotask group: %w", err)
	}
	groupID := stringField(content, "nanotask_group_id")
	if groupID == "" {
		return "", fmt.Errorf("create nanotask group: response carries no group id")
	}
	return domain.NanotaskGroupID(groupID), nil
}

// WatchResponses subscribes handler as the exclusive consumer of the response
// stream scoped to one automation parameter set, asks the server to replay
// everything after lastWatchID and then blocks until ctx is canceled or the
// send fails. Re-invoking replaces the previous subscription.
func (c *Client) WatchResponses(ctx context.Context, id domain.AutomationParameterSetID, lastWatchID domain.WatchID, handler func(domain.WatchedResponse)) error {
	token, err := c.AccessToken()
	if err != nil {
		return err
	}

	c.duct.Subscribe(eventWatchResponses, func(payload map[string]any) {
		data, _ := payload["data"].(map[string]any)
		handler(domain.WatchedResponse{
			LastWatchID: domain.WatchID(stringField(payload, "last_watch_id")),
			Data:        data,
		})
	})
	defer c.duct.Subscribe(eventWatchResponses, nil)

	err = c.duct.Send(ctx, eventWatchResponses, map[string]any{
		"automation_parameter_set_id": string(id),
		"last_watch_id":               string(lastWatchID),
		"exclusive":                   true,
		"access_token":                token,
	})
	if err != nil {
		return fmt.Errorf("start watching responses: %w", err)
	}

	c.logger.Debug("watching responses", "automation_parameter_set_id", string(id), "last_watch_id", string(lastWatchID))

	<-ctx.Done()
	return ctx.Err()
}

// contentMap extracts the "content" body common to task-management replies.
func contentMap(reply map[string]any) (map[string]any, error) {
	if reply == nil {
		return nil, fmt.Errorf("empty reply")
	}
	content, ok := reply["content"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("reply carries no content")
	}
	return content, nil
}

func stringField(m map[string]any, key string) string {
	if m == nil {
		return ""
	}
	s, _ := m[key].(string)
	return s
}
