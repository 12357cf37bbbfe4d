package application

import (
	"context"
	"fmt"
	"strconv"

	"github.com/iflb/neji-tutti-client/internal/domain"
	"github.com/iflb/neji-tutti-client/internal/market"
	"github.com/iflb/neji-tutti-client/internal/works"
)

// PublishResult holds the IDs of the resources a successful publish created.
type PublishResult struct {
	NanotaskGroupID domain.NanotaskGroupID
	JobID           domain.JobID
}

// PublishTasksToMarket turns one annotation task into a marketplace job:
// resolve the automation parameter set and its platform parameter set, create
// a nanotask plus a group holding it, then register a job referencing the
// group. Every failure is returned; failures after remote resources were
// already created come back as a PublishError carrying those IDs so the
// caller can clean up.
func (c *Client) PublishTasksToMarket(ctx context.Context, apsID domain.AutomationParameterSetID, syncID string) (PublishResult, error) {
	aps, err := c.works.GetAutomationParameterSet(ctx, apsID)
	if err != nil {
		return PublishResult{}, err
	}

	pps, err := c.works.GetPlatformParameterSet(ctx, aps.PlatformParameterSetID)
	if err != nil {
		return PublishResult{}, err
	}

	if pps.Platform != domain.PlatformMarket {
		return PublishResult{}, &domain.ValidationError{PlatformParameterSetID: pps.ID, Platform: pps.Platform}
	}

	numJobAssignmentsMax, err := domain.IntOrNone(pps.Parameters.NumJobAssignmentsMax)
	if err != nil {
		return PublishResult{}, fmt.Errorf("platform parameter num_job_assignments_max: %w", err)
	}
	priorityScore, err := domain.IntOrNone(pps.Parameters.PriorityScore)
	if err != nil {
		return PublishResult{}, fmt.Errorf("platform parameter priority_score: %w", err)
	}

	timestamp := strconv.FormatInt(c.clock.Now().Unix(), 10)

	nanotaskIDs, err := c.works.CreateNanotasks(ctx, works.CreateNanotasksRequest{
		ProjectName:  aps.ProjectName,
		TemplateName: domain.NanotaskTemplateName,
		Nanotasks: []domain.Nanotask{{
			ID:    domain.NanotaskID(timestamp),
			Props: domain.NanotaskProps{SyncID: syncID},
		}},
		Tag:           domain.NanotaskTag,
		Priority:      domain.NanotaskPriority,
		NumAssignable: domain.NanotaskNumAssignable,
	})
	if err != nil {
		return PublishResult{}, &domain.PublishError{Step: "create nanotasks", Err: err}
	}

	groupID, err := c.works.CreateNanotaskGroup(ctx, works.CreateNanotaskGroupRequest{
		Name:         timestamp,
		NanotaskIDs:  nanotaskIDs,
		ProjectName:  aps.ProjectName,
		TemplateName: domain.NanotaskTemplateName,
	})
	if err != nil {
		return PublishResult{}, &domain.PublishError{Step: "create nanotask group", NanotaskIDs: nanotaskIDs, Err: err}
	}

	session, err := c.market.Session()
	if err != nil {
		return PublishResult{}, &domain.PublishError{Step: "market session", NanotaskIDs: nanotaskIDs, NanotaskGroupID: groupID, Err: err}
	}

	resp, err := c.market.RegisterJob(ctx, session, market.RegisterJobRequest{
		JobClassID: pps.Parameters.JobClassID,
		JobParameter: domain.JobParameter{
			NanotaskGroupIDs:         []domain.NanotaskGroupID{groupID},
			AutomationParameterSetID: apsID,
			PlatformParameterSetID:   pps.ID,
		},
		Description:          "created at " + timestamp,
		NumJobAssignmentsMax: numJobAssignmentsMax,
		PriorityScore:        priorityScore,
	})
	if err != nil {
		return PublishResult{}, &domain.PublishError{Step: "register job", NanotaskIDs: nanotaskIDs, NanotaskGroupID: groupID, Err: err}
	}
	if !resp.Success {
		return PublishResult{}, &domain.PublishError{Step: "register job", NanotaskIDs: nanotaskIDs, NanotaskGroupID: groupID, Err: domain.ErrJobRegistration}
	}

	return PublishResult{NanotaskGroupID: groupID, JobID: domain.JobID(resp.Body)}, nil
}

// WatchResponsesForTasks streams collected responses for the automation
// parameter set to handler, replaying everything after lastWatchID first and
// then following new entries. An empty cursor means "only future entries".
// The call blocks until ctx is canceled.
func (c *Client) WatchResponsesForTasks(ctx context.Context, apsID domain.AutomationParameterSetID, handler func(domain.WatchedResponse), lastWatchID domain.WatchID) error {
	if lastWatchID == "" {
		lastWatchID = domain.WatchOnlyNew
	}
	if err := lastWatchID.Validate(); err != nil {
		return err
	}
	return c.works.WatchResponses(ctx, apsID, lastWatchID, handler)
}
