package roadside

import (
	"github.com/goliatone/go-router"
)

// ActorLocalsKey is the router locals key holding the authenticated Actor.
const ActorLocalsKey = "roadside_actor"

// SetRouterActor stores actor on the request. Only the HTTP edge uses
// locals; domain operations always receive the Actor as an argument.
func SetRouterActor(c router.Context, actor Actor) {
	c.Locals(ActorLocalsKey, actor)
}

// ActorFromRouter returns the actor stored by the auth middleware.
func ActorFromRouter(c router.Context) (Actor, bool) {
	raw := c.Locals(ActorLocalsKey)
	if raw == nil {
		return Actor{}, false
	}
	actor, ok := raw.(Actor)
	if !ok || actor.IsZero() {
		return Actor{}, false
	}
	return actor, true
}

// RequireRouterActor is ActorFromRouter returning ErrUnauthenticated.
func RequireRouterActor(c router.Context) (Actor, error) {
	actor, ok := ActorFromRouter(c)
	if !ok {
		return Actor{}, ErrUnauthenticated
	}
	return actor, nil
}
