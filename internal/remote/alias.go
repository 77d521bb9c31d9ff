package remote

import (
	"context"

	"github.com/ffRTwegrFEW555/android-training-notes-app-sub001/internal/notes"
)

// Aliased sends every call to one fixed remote account, whatever local
// account id the caller passes. It serves local accounts whose remote id
// differs.
type Aliased struct {
	client   *Client
	remoteID string
}

// Alias returns a view of c bound to remoteID.
func (c *Client) Alias(remoteID string) *Aliased {
	return &Aliased{client: c, remoteID: remoteID}
}

// RemoteID returns the bound remote account id.
func (a *Aliased) RemoteID() string {
	return a.remoteID
}

func (a *Aliased) GetAll(ctx context.Context, _ string) ([]notes.RemoteEntry, error) {
	return a.client.GetAll(ctx, a.remoteID)
}

func (a *Aliased) Get(ctx context.Context, _, syncID string) (*notes.RemoteEntry, error) {
	return a.client.Get(ctx, a.remoteID, syncID)
}

func (a *Aliased) Add(ctx context.Context, _ string, entry notes.RemoteEntry) (string, error) {
	return a.client.Add(ctx, a.remoteID, entry)
}

func (a *Aliased) Update(ctx context.Context, _, syncID string, entry notes.RemoteEntry) error {
	return a.client.Update(ctx, a.remoteID, syncID, entry)
}

func (a *Aliased) Delete(ctx context.Context, _, syncID string) error {
	return a.client.Delete(ctx, a.remoteID, syncID)
}
