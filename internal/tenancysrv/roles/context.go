package roles

import (
	"context"

	"github.com/tansive/tansive-tenancy/pkg/types"
)

type ctxKeyType string

const episodeContextKey ctxKeyType = "RoleEpisode"

func WithEpisode(ctx context.Context, ep *Episode) context.Context {
	return context.WithValue(ctx, episodeContextKey, ep)
}

// EpisodeFromContext returns the episode of the current request, or nil.
func EpisodeFromContext(ctx context.Context) *Episode {
	if ep, ok := ctx.Value(episodeContextKey).(*Episode); ok {
		return ep
	}
	return nil
}

// EpisodeFor returns the request's episode when it belongs to user, and a fresh one otherwise.
func EpisodeFor(ctx context.Context, r *Resolver, user types.User) *Episode {
	if ep := EpisodeFromContext(ctx); ep != nil && ep.user == user {
		return ep
	}
	return r.NewEpisode(user)
}
