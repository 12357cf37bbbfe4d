package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iflb/neji-tutti-client/internal/domain"
)

// publishFixture scripts the happy-path replies for the aps-1/pps-1 scenario:
// platform "market", job class "jc1", no assignment cap, priority score 5.
func (h *harness) publishFixture(t *testing.T) {
	t.Helper()

	h.signInBoth(t)
	h.worksDuct.Replies["AUTOMATION_PARAMETER_SET_GET"] = map[string]any{
		"content": map[string]any{
			"platform_parameter_set_id": "pps-1",
			"project_name":              "neji_finder",
		},
	}
	h.worksDuct.Replies["PLATFORM_PARAMETER_SET_GET"] = map[string]any{
		"content": map[string]any{
			"platform": "market",
			"parameters": map[string]any{
				"job_class_id":            "jc1",
				"num_job_assignments_max": "",
				"priorityScore":           "5",
			},
		},
	}
	h.worksDuct.Replies["CREATE_NANOTASKS"] = map[string]any{
		"content": map[string]any{"nanotask_ids": []any{"nt-1"}},
	}
	h.worksDuct.Replies["CREATE_NANOTASK_GROUP"] = map[string]any{
		"content": map[string]any{"nanotask_group_id": "ng-1"},
	}
	h.marketDuct.Replies["REGISTER_JOB"] = map[string]any{
		"success": true,
		"body":    "job-1",
	}
}

func TestPublishReturnsGroupAndJobIDs(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.publishFixture(t)

	result, err := h.client.PublishTasksToMarket(context.Background(), "aps-1", "sync-1")
	require.NoError(t, err)
	assert.Equal(t, domain.NanotaskGroupID("ng-1"), result.NanotaskGroupID)
	assert.Equal(t, domain.JobID("job-1"), result.JobID)
}

func TestPublishCoercesOptionalIntParameters(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.publishFixture(t)

	_, err := h.client.PublishTasksToMarket(context.Background(), "aps-1", "sync-1")
	require.NoError(t, err)

	calls := h.marketDuct.CallsFor("REGISTER_JOB")
	require.Len(t, calls, 1)
	payload := calls[0].Payload
	assert.Equal(t, "jc1", payload["job_class_id"])
	assert.Nil(t, payload["num_job_assignments_max"], `empty string coerces to absent`)
	assert.Equal(t, 5, payload["priority_score"])
}

func TestPublishUsesOneTimestampThroughout(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.publishFixture(t)

	_, err := h.client.PublishTasksToMarket(context.Background(), "aps-1", "sync-1")
	require.NoError(t, err)

	create := h.worksDuct.CallsFor("CREATE_NANOTASKS")
	require.Len(t, create, 1)
	nanotasks := create[0].Payload["nanotasks"].([]map[string]any)
	require.Len(t, nanotasks, 1)
	assert.Equal(t, "1700000000", nanotasks[0]["id"])
	assert.Equal(t, map[string]any{"sync_id": "sync-1"}, nanotasks[0]["props"])
	assert.Equal(t, "neji_finder", create[0].Payload["project_name"])

	group := h.worksDuct.CallsFor("CREATE_NANOTASK_GROUP")
	require.Len(t, group, 1)
	assert.Equal(t, "1700000000", group[0].Payload["name"])

	register := h.marketDuct.CallsFor("REGISTER_JOB")
	require.Len(t, register, 1)
	assert.Equal(t, "created at 1700000000", register[0].Payload["description"])
}

func TestPublishMissingAutomationParameterSetFailsBeforeAnyCreation(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.publishFixture(t)
	h.worksDuct.Replies["AUTOMATION_PARAMETER_SET_GET"] = map[string]any{"content": nil}

	_, err := h.client.PublishTasksToMarket(context.Background(), "aps-missing", "sync-1")
	require.ErrorIs(t, err, domain.ErrParameterSetNotFound)
	assert.Contains(t, err.Error(), "aps-missing")
	assert.Empty(t, h.worksDuct.CallsFor("CREATE_NANOTASKS"))
	assert.Empty(t, h.marketDuct.CallsFor("REGISTER_JOB"))
}

func TestPublishNonMarketPlatformFailsBeforeAnyCreation(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.publishFixture(t)
	h.worksDuct.Replies["PLATFORM_PARAMETER_SET_GET"] = map[string]any{
		"content": map[string]any{
			"platform":   "private",
			"parameters": map[string]any{},
		},
	}

	_, err := h.client.PublishTasksToMarket(context.Background(), "aps-1", "sync-1")
	var validationErr *domain.ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, domain.PlatformParameterSetID("pps-1"), validationErr.PlatformParameterSetID)
	assert.Contains(t, err.Error(), "pps-1")
	assert.Empty(t, h.worksDuct.CallsFor("CREATE_NANOTASKS"))
}

func TestPublishRejectedJobCarriesPartialResourceIDs(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.publishFixture(t)
	h.marketDuct.Replies["REGISTER_JOB"] = map[string]any{"success": false, "body": ""}

	_, err := h.client.PublishTasksToMarket(context.Background(), "aps-1", "sync-1")
	require.ErrorIs(t, err, domain.ErrJobRegistration)

	var publishErr *domain.PublishError
	require.ErrorAs(t, err, &publishErr)
	assert.Equal(t, []domain.NanotaskID{"nt-1"}, publishErr.NanotaskIDs)
	assert.Equal(t, domain.NanotaskGroupID("ng-1"), publishErr.NanotaskGroupID)
}

func TestPublishGroupCreationFailureCarriesNanotaskIDs(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.publishFixture(t)
	h.worksDuct.CallErrs["CREATE_NANOTASK_GROUP"] = errors.New("remote unavailable")

	_, err := h.client.PublishTasksToMarket(context.Background(), "aps-1", "sync-1")
	var publishErr *domain.PublishError
	require.ErrorAs(t, err, &publishErr)
	assert.Equal(t, []domain.NanotaskID{"nt-1"}, publishErr.NanotaskIDs)
	assert.Empty(t, publishErr.NanotaskGroupID)
}

func TestWatchResponsesForTasksValidatesCursor(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.signInBoth(t)

	err := h.client.WatchResponsesForTasks(context.Background(), "aps-1", func(domain.WatchedResponse) {}, "not-a-cursor")
	require.Error(t, err)
	assert.Empty(t, h.worksDuct.Sends())
}

func TestWatchResponsesForTasksDefaultsToOnlyNew(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.signInBoth(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- h.client.WatchResponsesForTasks(ctx, "aps-1", func(domain.WatchedResponse) {}, "")
	}()

	require.Eventually(t, func() bool { return len(h.worksDuct.Sends()) == 1 }, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, "+", h.worksDuct.Sends()[0].Payload["last_watch_id"])

	cancel()
	require.ErrorIs(t, <-done, context.Canceled)
}

func TestWatchResponsesForTasksRequestsFullHistoryWithZeroCursor(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.signInBoth(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- h.client.WatchResponsesForTasks(ctx, "aps-1", func(domain.WatchedResponse) {}, domain.WatchFullHistory)
	}()

	require.Eventually(t, func() bool { return len(h.worksDuct.Sends()) == 1 }, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, "0", h.worksDuct.Sends()[0].Payload["last_watch_id"])

	cancel()
	require.ErrorIs(t, <-done, context.Canceled)
}

func TestWatchDeliveriesArriveInNonDecreasingCursorOrder(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.signInBoth(t)

	received := make(chan domain.WatchedResponse, 3)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- h.client.WatchResponsesForTasks(ctx, "aps-1", func(r domain.WatchedResponse) {
			received <- r
		}, domain.WatchFullHistory)
	}()

	require.Eventually(t, func() bool { return len(h.worksDuct.Sends()) == 1 }, 5*time.Second, 10*time.Millisecond)

	for _, id := range []string{"1700000000000-0", "1700000000000-1", "1700000000500-0"} {
		h.worksDuct.Push("WATCH_RESPONSES_FOR_AUTOMATION_PARAMETER_SET", map[string]any{
			"last_watch_id": id,
			"data":          map[string]any{},
		})
	}

	previous := domain.WatchFullHistory
	for i := 0; i < 3; i++ {
		select {
		case r := <-received:
			cmp, err := previous.Compare(r.LastWatchID)
			require.NoError(t, err)
			assert.LessOrEqual(t, cmp, 0, "cursor went backwards")
			previous = r.LastWatchID
		case <-time.After(5 * time.Second):
			t.Fatal("missing delivery")
		}
	}

	cancel()
	require.ErrorIs(t, <-done, context.Canceled)
}
