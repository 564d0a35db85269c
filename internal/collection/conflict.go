package collection

import "github.com/maxiofs/collectionsync/internal/record"

// Strategy selects how a Collection reconciles conflicts during Sync.
type Strategy string

const (
	// StrategyManual surfaces every conflict in SyncResult.Conflicts and
	// leaves the record's local pending change untouched.
	StrategyManual Strategy = "manual"
	// StrategyServerWins discards the local change and adopts the
	// remote's version for every conflict.
	StrategyServerWins Strategy = "server_wins"
	// StrategyClientWins keeps the local change and re-publishes it,
	// forcing the remote to accept the client's version.
	StrategyClientWins Strategy = "client_wins"
	// StrategyPullOnly pulls remote changes and reconciles conflicts
	// like StrategyServerWins, but never pushes local changes.
	StrategyPullOnly Strategy = "pull_only"
)

// resolve applies strategy to one conflict, returning the record that
// should be written locally and whether it should also be queued for
// re-publish (true for every StrategyClientWins resolution, incoming or
// outgoing).
//
// In every resolution path last_modified is forced to the remote's value:
// that is the precondition a subsequent push must present as If-Match,
// so an incorrect local last_modified here would make every later push
// fail with a spurious 412.
func resolve(strategy Strategy, c Conflict) (resolved record.Record, rePublish bool) {
	switch strategy {
	case StrategyServerWins, StrategyPullOnly:
		return adoptRemote(c), false
	case StrategyClientWins:
		return adoptLocalWithRemoteTimestamp(c), true
	default: // StrategyManual: caller leaves the conflict unresolved.
		return nil, false
	}
}

func adoptRemote(c Conflict) record.Record {
	if c.Remote == nil {
		return nil
	}
	r := c.Remote.Clone()
	r.SetStatus(record.StatusSynced)
	return r
}

func adoptLocalWithRemoteTimestamp(c Conflict) record.Record {
	r := c.Local.Clone()
	if lm, ok := c.Remote.LastModified(); ok {
		r.SetLastModified(lm)
	}
	r.SetStatus(record.StatusUpdated)
	return r
}
