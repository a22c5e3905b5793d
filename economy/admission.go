package economy

import (
	"errors"
	"fmt"
	"sync"
)

// Source identifies which ledger covered an admitted request.
type Source string

const (
	SourceUser  Source = "user"
	SourceGroup Source = "group"
	SourceNone  Source = "none"
)

// ErrReceiptUsed is returned when a receipt is refunded a second time.
var ErrReceiptUsed = errors.New("receipt already refunded")

// Receipt binds an admitted debit to its eventual refund. The command
// layer holds it for the duration of the downstream work and hands it
// back exactly once if that work fails. A request admitted without a
// debit has no receipt.
type Receipt struct {
	mu      sync.Mutex
	used    bool
	subject string
	source  Source
	amount  int64
}

// Source returns the ledger the receipt's debit came from.
func (r *Receipt) Source() Source { return r.source }

// Amount returns the number of credits the receipt's debit consumed.
func (r *Receipt) Amount() int64 { return r.amount }

// consume marks the receipt used, failing on the second call.
func (r *Receipt) consume() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.used {
		return ErrReceiptUsed
	}
	r.used = true
	return nil
}

// Decision is the reported outcome of an admission check. Rejection is
// a normal outcome, not an error: Reason is forwarded to the user
// verbatim by the presentation layer.
type Decision struct {
	Admitted bool
	Source   Source
	Reason   string
	Receipt  *Receipt // nil unless a ledger was debited
}

// GateOptions are the two independent admission gates.
type GateOptions struct {
	UserLimit  bool
	GroupLimit bool
}

// Gatekeeper decides whether a request may proceed and which ledger
// pays for it. It is the only writer to the two ledgers besides the
// check-in service.
type Gatekeeper struct {
	gates  GateOptions
	users  *Ledger
	groups *Ledger
}

// NewGatekeeper constructs a gatekeeper over the two ledgers.
func NewGatekeeper(gates GateOptions, users, groups *Ledger) *Gatekeeper {
	return &Gatekeeper{gates: gates, users: users, groups: groups}
}

// Admit runs the admission protocol for a request identified by userID
// and an optional groupID (empty when the request came from a direct
// message). cost must be positive.
//
// Precedence, in order:
//  1. neither gate enabled: admit with no debit;
//  2. group gate on, group present, group underfunded: reject outright,
//     even when the user alone could pay;
//  3. user gate on: debit the user, falling back to the group when the
//     user is short and the group gate allows it;
//  4. group gate only: debit the group;
//  5. catch-all (unreachable with two booleans): admit with no debit.
func (g *Gatekeeper) Admit(userID, groupID string, cost int64) Decision {
	if !g.gates.UserLimit && !g.gates.GroupLimit {
		return Decision{Admitted: true, Source: SourceNone, Reason: "unrestricted mode"}
	}

	groupGated := g.gates.GroupLimit && groupID != ""

	if groupGated {
		if have := g.groups.Get(groupID); have < cost {
			return Decision{
				Admitted: false,
				Source:   SourceNone,
				Reason:   fmt.Sprintf("this group has insufficient credits (%d left)", have),
			}
		}
	}

	if g.gates.UserLimit {
		if _, err := g.users.Debit(userID, cost); err == nil {
			return g.admitted(userID, SourceUser, cost)
		}
		userHave := g.users.Get(userID)

		if groupGated {
			if _, err := g.groups.Debit(groupID, cost); err == nil {
				return g.admitted(groupID, SourceGroup, cost)
			}
			return Decision{
				Admitted: false,
				Source:   SourceNone,
				Reason: fmt.Sprintf("you have insufficient credits (%d) and so does this group (%d)",
					userHave, g.groups.Get(groupID)),
			}
		}

		return Decision{
			Admitted: false,
			Source:   SourceNone,
			Reason:   fmt.Sprintf("you have insufficient credits (%d left)", userHave),
		}
	}

	if groupGated {
		if _, err := g.groups.Debit(groupID, cost); err == nil {
			return g.admitted(groupID, SourceGroup, cost)
		}
		have := g.groups.Get(groupID)
		return Decision{
			Admitted: false,
			Source:   SourceNone,
			Reason:   fmt.Sprintf("this group has insufficient credits (%d left)", have),
		}
	}

	// Group gate enabled but no group on the request: nothing to charge.
	return Decision{Admitted: true, Source: SourceNone, Reason: "no applicable limit"}
}

func (g *Gatekeeper) admitted(subject string, source Source, cost int64) Decision {
	return Decision{
		Admitted: true,
		Source:   source,
		Reason:   "ok",
		Receipt: &Receipt{
			subject: subject,
			source:  source,
			amount:  cost,
		},
	}
}

// Refund credits an admitted debit back to the ledger it came from. The
// receipt is consumed: refunding it twice fails with ErrReceiptUsed, so
// a retried failure path cannot mint credits.
func (g *Gatekeeper) Refund(r *Receipt) error {
	if r == nil {
		return nil
	}
	if err := r.consume(); err != nil {
		return err
	}

	switch r.source {
	case SourceGroup:
		g.groups.Credit(r.subject, r.amount)
	default:
		g.users.Credit(r.subject, r.amount)
	}
	return nil
}

// UserBalance returns a user's remaining credits.
func (g *Gatekeeper) UserBalance(userID string) int64 {
	return g.users.Get(userID)
}

// GroupBalance returns a group's remaining credits.
func (g *Gatekeeper) GroupBalance(groupID string) int64 {
	return g.groups.Get(groupID)
}

// AdminCredit adds credits to a user or group balance and returns the
// new balance. Administrative, no upper bound.
func (g *Gatekeeper) AdminCredit(subjectID string, amount int64, isGroup bool) int64 {
	if isGroup {
		return g.groups.Credit(subjectID, amount)
	}
	return g.users.Credit(subjectID, amount)
}
