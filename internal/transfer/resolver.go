package transfer

import (
	"fmt"
	"strings"

	"github.com/khanrajesh/JewelVaultMobile-sub002/internal/entity"
)

// RestoreMode selects the reconciliation policy of an import
type RestoreMode string

const (
	// ModeMerge inserts records whose natural key is absent and never touches existing data
	ModeMerge RestoreMode = "MERGE"
	// ModeReplace writes every record except the operator's own user and store rows
	ModeReplace RestoreMode = "REPLACE"
)

// ParseRestoreMode accepts merge/replace in any case
func ParseRestoreMode(s string) (RestoreMode, error) {
	switch RestoreMode(strings.ToUpper(strings.TrimSpace(s))) {
	case ModeMerge:
		return ModeMerge, nil
	case ModeReplace:
		return ModeReplace, nil
	default:
		return "", fmt.Errorf("unknown restore mode %q (want merge or replace)", s)
	}
}

func (m RestoreMode) String() string {
	return string(m)
}

// Action is the resolver's verdict for one row
type Action int

const (
	ActionInsert Action = iota
	ActionSkip
)

func (a Action) String() string {
	if a == ActionSkip {
		return "skip"
	}
	return "insert"
}

// Decision is the outcome of resolving one incoming record
type Decision struct {
	Action Action
	// Record is what to persist, with scope fields rewritten to the operating identity
	Record entity.Record
	Reason string
}

// Resolver applies MERGE or REPLACE to one row at a time. It holds no state
// between rows.
type Resolver struct{}

// NewResolver creates a resolver
func NewResolver() *Resolver {
	return &Resolver{}
}

// Resolve decides whether incoming should be written. existing is the local
// record with the same natural key or primary key, or nil.
func (r *Resolver) Resolve(mode RestoreMode, def *entity.Definition, existing, incoming entity.Record, userID, storeID string) Decision {
	switch mode {
	case ModeReplace:
		if protected, reason := isProtected(def, incoming, userID, storeID); protected {
			return Decision{Action: ActionSkip, Reason: reason}
		}
		return Decision{Action: ActionInsert, Record: def.WithScope(incoming, userID, storeID), Reason: "replace"}
	default:
		if existing != nil {
			return Decision{Action: ActionSkip, Reason: "record already present"}
		}
		return Decision{Action: ActionInsert, Record: def.WithScope(incoming, userID, storeID), Reason: "new record"}
	}
}

func isProtected(def *entity.Definition, incoming entity.Record, userID, storeID string) (bool, string) {
	key := def.ProtectedKey(incoming)
	if key == "" {
		return false, ""
	}
	switch def.Protected {
	case entity.ProtectUser:
		if key == userID {
			return true, "current user record is protected"
		}
	case entity.ProtectStore:
		if key == storeID {
			return true, "current store record is protected"
		}
	}
	return false, ""
}
