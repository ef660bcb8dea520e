package identityclient

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/jpvillegas/taskmesh/internal/models"
)

// Assignee is the reduced identity shape attached to enriched tasks.
type Assignee struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Resolution is the outcome of one best-effort lookup. A nil Assignee
// means the lookup failed and the task renders as unassigned; the
// degrade-on-failure policy is this data shape, not a swallowed error.
type Resolution struct {
	Assignee *Assignee
}

func (r Resolution) Resolved() bool {
	return r.Assignee != nil
}

// EnrichedTask pairs a task with its resolved assignee, if any.
type EnrichedTask struct {
	Task       *models.Task
	AssignedTo *Assignee
}

// Resolver resolves identity references for the task service. Enrich is
// best-effort per item; ResolveOne surfaces failures to the caller.
type Resolver struct {
	logger zerolog.Logger
	client *Client
}

func NewResolver(logger zerolog.Logger, client *Client) *Resolver {
	return &Resolver{
		logger: logger,
		client: client,
	}
}

// ResolveOne looks up a single identity with the caller's token.
// Failures are fatal to the caller's operation: assignment is an
// authoritative write, not a display concern.
func (r *Resolver) ResolveOne(ctx context.Context, identityID, token string) (*PublicIdentity, error) {
	return r.client.FetchByID(ctx, identityID, token)
}

// Enrich resolves the assignee of every assigned task concurrently and
// returns exactly one result per input task, in input order. A failed
// lookup degrades that one entry to an absent assignee; the batch never
// fails wholesale, so listing stays available while the identity
// service is down.
func (r *Resolver) Enrich(ctx context.Context, tasks []*models.Task, token string) []EnrichedTask {
	enriched := make([]EnrichedTask, len(tasks))

	var wg sync.WaitGroup
	for i, t := range tasks {
		enriched[i].Task = t
		if t.AssignedToID == "" {
			continue
		}

		wg.Add(1)
		go func(i int, t *models.Task) {
			defer wg.Done()
			res := r.resolve(ctx, t.AssignedToID, token)
			enriched[i].AssignedTo = res.Assignee
		}(i, t)
	}
	wg.Wait()

	return enriched
}

func (r *Resolver) resolve(ctx context.Context, identityID, token string) Resolution {
	identity, err := r.client.FetchByID(ctx, identityID, token)
	if err != nil {
		r.logger.Warn().
			Err(err).
			Str("identity_id", identityID).
			Msg("assignee lookup degraded to unresolved")
		return Resolution{}
	}
	return Resolution{Assignee: &Assignee{
		ID:   identity.ID,
		Name: identity.Name,
	}}
}
