// Package market is the marketplace side controller: a minimal typed surface
// over the marketplace duct, covering open, sign-in, job registration and
// sign-out.
package market

import (
	"context"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/iflb/neji-tutti-client/internal/domain"
	"github.com/iflb/neji-tutti-client/internal/ports"
)

// Duct event names consumed on the marketplace side.
const (
	eventSignIn      = "SIGN_IN"
	eventSignOut     = "SIGN_OUT"
	eventRegisterJob = "REGISTER_JOB"
)

// Controller holds at most one authenticated session. Sharing one instance
// between logical sessions is unsupported.
type Controller struct {
	duct   ports.Duct
	logger *slog.Logger

	mu      sync.Mutex
	session domain.MarketSession
}

func NewController(duct ports.Duct, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{duct: duct, logger: logger}
}

func (c *Controller) Open(ctx context.Context, wsdURL string) error {
	return c.duct.Open(ctx, wsdURL)
}

func (c *Controller) Close() error {
	return c.duct.Close()
}

func (c *Controller) SetConnectionErrorListener(fn func(err error)) {
	c.duct.SetErrorListener(fn)
}

// SignIn authenticates with the marketplace and returns the session handle.
// The password is hashed with SHA-512 before transmission; the plaintext never
// enters the outbound payload.
func (c *Controller) SignIn(ctx context.Context, userID, password string, accessTokenLifetime time.Duration) (domain.MarketSession, error) {
	if accessTokenLifetime <= 0 {
		accessTokenLifetime = domain.DefaultAccessTokenLifetime
	}

	digest := sha512.Sum512([]byte(password))
	reply, err := c.duct.Call(ctx, eventSignIn, map[string]any{
		"user_id":               userID,
		"password_hash":         hex.EncodeToString(digest[:]),
		"access_token_lifetime": accessTokenLifetime.Milliseconds(),
	})
	if err != nil {
		return domain.MarketSession{}, fmt.Errorf("market sign in: %w", err)
	}

	body, _ := reply["body"].(map[string]any)
	token, _ := body["access_token"].(string)
	if token == "" {
		return domain.MarketSession{}, fmt.Errorf("market sign in: response carries no access token")
	}

	session := domain.MarketSession{
		UserID:      userID,
		AccessToken: token,
		ExpiresAt:   time.Now().Add(accessTokenLifetime),
	}

	c.mu.Lock()
	c.session = session
	c.mu.Unlock()

	c.logger.Debug("signed in to market", "user_id", userID)
	return session, nil
}

// Session returns the session established by the last SignIn.
func (c *Controller) Session() (domain.MarketSession, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.session.Valid() {
		return domain.MarketSession{}, domain.ErrNotSignedIn
	}
	return c.session, nil
}

type RegisterJobRequest struct {
	JobClassID           string
	JobParameter         domain.JobParameter
	Description          string
	NumJobAssignmentsMax *int
	PriorityScore        *int
}

// RegisterJobResponse is the raw marketplace answer. Interpreting Success is
// the caller's business.
type RegisterJobResponse struct {
	Success bool
	Body    string
}

func (c *Controller) RegisterJob(ctx context.Context, session domain.MarketSession, req RegisterJobRequest) (RegisterJobResponse, error) {
	if !session.Valid() {
		return RegisterJobResponse{}, domain.ErrNotSignedIn
	}

	groupIDs := make([]string, 0, len(req.JobParameter.NanotaskGroupIDs))
	for _, id := range req.JobParameter.NanotaskGroupIDs {
		groupIDs = append(groupIDs, string(id))
	}

	payload := map[string]any{
		"access_token": session.AccessToken,
		"job_class_id": req.JobClassID,
		"job_parameter": map[string]any{
			"nanotask_group_ids":          groupIDs,
			"automation_parameter_set_id": string(req.JobParameter.AutomationParameterSetID),
			"platform_parameter_set_id":   string(req.JobParameter.PlatformParameterSetID),
		},
		"description":             req.Description,
		"num_job_assignments_max": intOrNil(req.NumJobAssignmentsMax),
		"priority_score":          intOrNil(req.PriorityScore),
	}

	reply, err := c.duct.Call(ctx, eventRegisterJob, payload)
	if err != nil {
		return RegisterJobResponse{}, fmt.Errorf("register job: %w", err)
	}

	success, _ := reply["success"].(bool)
	body, _ := reply["body"].(string)
	return RegisterJobResponse{Success: success, Body: body}, nil
}

// SignOut invalidates the stored session server-side. The controller is
// unusable afterwards until re-signed-in.
func (c *Controller) SignOut(ctx context.Context) error {
	session, err := c.Session()
	if err != nil {
		return err
	}

	if _, err := c.duct.Call(ctx, eventSignOut, map[string]any{"access_token": session.AccessToken}); err != nil {
		return fmt.Errorf("market sign out: %w", err)
	}

	c.mu.Lock()
	c.session = domain.MarketSession{}
	c.mu.Unlock()
	return nil
}

func intOrNil(n *int) any {
	if n == nil {
		return nil
	}
	return *n
}
