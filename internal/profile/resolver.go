// Package profile turns an opaque inbound user identifier into a usable
// preference profile. Resolution never fails: every miss or downstream error
// degrades to the placeholder profile.
package profile

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/b-max/backend/pkg/logger"
)

const placeholderName = "User"

type Profile struct {
	FirstName           string
	PreferredCategories []string
	PreferredSites      []string
}

// Default is the profile used when every lookup strategy misses.
func Default() Profile {
	return Profile{FirstName: placeholderName}
}

type UserStore interface {
	GetUserByID(ctx context.Context, userID string) (map[string]any, error)
	FindUserByEmail(ctx context.Context, email string) (map[string]any, error)
}

type IdentityLookup interface {
	LookupUser(ctx context.Context, username string) (sub, email string, err error)
}

type Resolver struct {
	store UserStore
	idp   IdentityLookup
}

// NewResolver accepts a nil store or idp; the corresponding strategies are
// skipped.
func NewResolver(store UserStore, idp IdentityLookup) *Resolver {
	return &Resolver{store: store, idp: idp}
}

// Resolve tries, in order: the users table under the raw identifier, the
// Cognito sub for that identifier, the verified email. Exhausting all three
// yields the placeholder profile.
func (r *Resolver) Resolve(ctx context.Context, userID string) Profile {
	if r == nil || r.store == nil {
		return Default()
	}

	if item, err := r.store.GetUserByID(ctx, userID); err == nil && item != nil {
		return fromItem(item)
	} else if err != nil {
		logger.Warn("Direct profile lookup failed", zap.String("user_id", userID), zap.Error(err))
	}

	if r.idp == nil {
		return Default()
	}

	sub, email, err := r.idp.LookupUser(ctx, userID)
	if err != nil {
		logger.Debug("Identity lookup failed", zap.String("user_id", userID), zap.Error(err))
		return Default()
	}

	if item, err := r.store.GetUserByID(ctx, sub); err == nil && item != nil {
		return fromItem(item)
	}

	if email != "" {
		if item, err := r.store.FindUserByEmail(ctx, email); err == nil && item != nil {
			return fromItem(item)
		}
	}

	logger.Debug("Profile unresolved, using placeholder", zap.String("user_id", userID))
	return Default()
}

func fromItem(item map[string]any) Profile {
	p := Profile{
		FirstName:           stringField(item, "firstName", "first_name", "name"),
		PreferredCategories: stringsField(item, "preferredCategories", "preferred_categories"),
		PreferredSites:      stringsField(item, "preferredSites", "preferred_sites"),
	}
	if p.FirstName == "" {
		p.FirstName = placeholderName
	}
	return p
}

func stringField(item map[string]any, keys ...string) string {
	for _, key := range keys {
		if s, ok := item[key].(string); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	return ""
}

func stringsField(item map[string]any, keys ...string) []string {
	for _, key := range keys {
		switch v := item[key].(type) {
		case []string:
			return v
		case []any:
			out := make([]string, 0, len(v))
			for _, el := range v {
				if s, ok := el.(string); ok {
					out = append(out, s)
				}
			}
			if len(out) > 0 {
				return out
			}
		}
	}
	return nil
}
