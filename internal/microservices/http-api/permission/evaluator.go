// Package permission decides whether an actor may perform an action on a
// resource kind. The rules live in an embedded casbin model and policy;
// ownership is passed in as a request attribute so one table covers the
// "author or moderator" rules.
package permission

import (
	_ "embed"
	"fmt"
	"strings"

	"mediareview/internal/logging"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
)

//go:embed model.conf
var embeddedModel string

//go:embed policy.csv
var embeddedPolicy string

type ResourceKind string

const (
	KindCategory ResourceKind = "category"
	KindGenre    ResourceKind = "genre"
	KindTitle    ResourceKind = "title"
	KindReview   ResourceKind = "review"
	KindComment  ResourceKind = "comment"
	KindUser     ResourceKind = "user"
	// KindSelf is the current user reached through the "me" alias.
	KindSelf ResourceKind = "self"
)

type Action string

const (
	ActionList     Action = "list"
	ActionRetrieve Action = "retrieve"
	ActionCreate   Action = "create"
	ActionUpdate   Action = "update"
	ActionDelete   Action = "delete"
)

type Decision int

const (
	Allow Decision = iota
	DenyUnauthenticated
	DenyForbidden
)

func (d Decision) String() string {
	switch d {
	case Allow:
		return "allow"
	case DenyUnauthenticated:
		return "deny_unauthenticated"
	case DenyForbidden:
		return "deny_forbidden"
	default:
		return fmt.Sprintf("decision(%d)", int(d))
	}
}

const (
	scopeOwn   = "own"
	scopeOther = "other"
)

// Evaluator is safe for concurrent use.
type Evaluator struct {
	enforcer *casbin.SyncedEnforcer
}

// NewEvaluator builds the evaluator from the embedded model and policy.
func NewEvaluator() (*Evaluator, error) {
	m, err := model.NewModelFromString(embeddedModel)
	if err != nil {
		return nil, fmt.Errorf("failed to load casbin model: %w", err)
	}

	enforcer, err := casbin.NewSyncedEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("failed to create casbin enforcer: %w", err)
	}
	if err := loadEmbeddedPolicy(enforcer, embeddedPolicy); err != nil {
		return nil, err
	}

	return &Evaluator{enforcer: enforcer}, nil
}

// MustNewEvaluator is NewEvaluator for wiring code that cannot continue
// without it.
func MustNewEvaluator() *Evaluator {
	e, err := NewEvaluator()
	if err != nil {
		panic(err)
	}
	return e
}

func loadEmbeddedPolicy(enforcer *casbin.SyncedEnforcer, policy string) error {
	for _, line := range strings.Split(policy, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.Split(line, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}

		ptype, rule := parts[0], parts[1:]
		switch {
		case ptype == "p" && len(rule) == 4:
			if _, err := enforcer.AddPolicy(rule[0], rule[1], rule[2], rule[3]); err != nil {
				return fmt.Errorf("failed to add policy %v: %w", rule, err)
			}
		case ptype == "g" && len(rule) == 2:
			if _, err := enforcer.AddGroupingPolicy(rule[0], rule[1]); err != nil {
				return fmt.Errorf("failed to add grouping policy %v: %w", rule, err)
			}
		default:
			return fmt.Errorf("malformed policy line %q", line)
		}
	}
	return nil
}

// Evaluate decides whether actor may perform action on a resource of kind.
// ownerID is the author of the target, or nil when the action has no
// single owned target.
func (e *Evaluator) Evaluate(actor Actor, kind ResourceKind, action Action, ownerID *int64) Decision {
	scope := scopeOther
	if ownerID != nil && !actor.IsAnonymous() && *ownerID == actor.ID {
		scope = scopeOwn
	}

	allowed, err := e.enforcer.Enforce(actor.role(), string(kind), string(action), scope)
	if err != nil {
		logging.Error().Err(err).
			Str("kind", string(kind)).
			Str("action", string(action)).
			Msg("permission check failed")
		allowed = false
	}

	switch {
	case allowed:
		return Allow
	case actor.IsAnonymous():
		return DenyUnauthenticated
	default:
		return DenyForbidden
	}
}
