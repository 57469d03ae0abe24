package api

import (
	"context"

	"github.com/rizkyab/dicerita/internal/client/models"
)

// Client is the transport-agnostic contract for the DiCerita backend.
// All operations accept a context and must honor cancellation/timeouts.
type Client interface {
	// Login authenticates and returns the session. The returned token is
	// also remembered for subsequent authenticated calls.
	Login(ctx context.Context, email, password string) (*models.Session, error)

	// Register creates a new account.
	Register(ctx context.Context, name, email, password string) error

	// ListStories fetches one page of stories, newest first.
	ListStories(ctx context.Context, page, size int) (*models.StoryPage, error)

	// GetStory fetches a single story by id.
	GetStory(ctx context.Context, id string) (*models.Story, error)

	// CreateStory uploads a new story as multipart form data.
	CreateStory(ctx context.Context, description string, photo []byte, photoName string, lat, lon *float64) error

	// SubscribePush registers a web-push subscription with the backend.
	SubscribePush(ctx context.Context, sub PushSubscription) error

	// UnsubscribePush removes a web-push subscription.
	UnsubscribePush(ctx context.Context, endpoint string) error

	// Ping probes backend reachability.
	Ping(ctx context.Context) error

	// SetToken installs a bearer token, e.g. one restored from the local
	// credential cache.
	SetToken(token string)
}

// PushSubscription mirrors the web-push subscribe request body.
type PushSubscription struct {
	Endpoint string       `json:"endpoint"`
	Keys     PushSubsKeys `json:"keys"`
}

// PushSubsKeys holds the client's web-push encryption keys.
type PushSubsKeys struct {
	P256DH string `json:"p256dh"`
	Auth   string `json:"auth"`
}
