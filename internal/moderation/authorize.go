package moderation

import "fmt"

// DenialReason explains a refused authorization. The zero value means allowed.
type DenialReason string

const (
	DenialNone               DenialReason = ""
	DenialNotStaff           DenialReason = "not_staff"
	DenialOutOfJurisdiction  DenialReason = "target_out_of_jurisdiction"
	DenialTargetUnresolvable DenialReason = "target_unresolvable"
)

// Decision is the outcome of Authorize.
type Decision struct {
	Allowed bool
	Reason  DenialReason
}

func allow() Decision { return Decision{Allowed: true} }

func deny(reason DenialReason) Decision { return Decision{Reason: reason} }

// RoleOrder maps role identifiers to their rank, 0 being the lowest authority.
type RoleOrder struct {
	rank map[string]int
}

// NewRoleOrder indexes an ordered role list, lowest authority first.
func NewRoleOrder(roles []string) (RoleOrder, error) {
	rank := make(map[string]int, len(roles))
	for i, r := range roles {
		if r == "" {
			return RoleOrder{}, fmt.Errorf("empty role at position %d", i)
		}
		if _, dup := rank[r]; dup {
			return RoleOrder{}, fmt.Errorf("role %q listed twice", r)
		}
		rank[r] = i
	}
	return RoleOrder{rank: rank}, nil
}

// Rank returns the position of role in the list.
func (o RoleOrder) Rank(role string) (int, bool) {
	r, ok := o.rank[role]
	return r, ok
}

// Highest returns the highest rank among roles. Unknown roles are ignored; ok is false
// when none of them is known.
func (o RoleOrder) Highest(roles []string) (rank int, ok bool) {
	rank = -1
	for _, role := range roles {
		if r, known := o.rank[role]; known && r > rank {
			rank = r
		}
	}
	return rank, rank >= 0
}

// Policy holds the two thresholds of the hierarchy check.
type Policy struct {
	// StaffRole is the lowest role allowed to issue sanctions.
	StaffRole string
	// MaxBannableRole is the highest role that may still be sanctioned.
	MaxBannableRole string
}

// Validate checks that both thresholds appear in the role order.
func (p Policy) Validate(order RoleOrder) error {
	if _, ok := order.Rank(p.StaffRole); !ok {
		return fmt.Errorf("staff role %q is not in the role list", p.StaffRole)
	}
	if _, ok := order.Rank(p.MaxBannableRole); !ok {
		return fmt.Errorf("max bannable role %q is not in the role list", p.MaxBannableRole)
	}
	return nil
}

// Target describes who an action is aimed at. Resolved is false when the subject is not a
// current member, in which case no role data exists.
type Target struct {
	Resolved bool
	Roles    []string
}

// Authorize decides whether an actor holding actorRoles may act on target. A nil target
// checks staff status only. Thresholds missing from the order fail closed.
func Authorize(order RoleOrder, actorRoles []string, target *Target, policy Policy) Decision {
	staff, ok := order.Rank(policy.StaffRole)
	if !ok {
		return deny(DenialNotStaff)
	}
	actorRank, ok := order.Highest(actorRoles)
	if !ok || actorRank < staff {
		return deny(DenialNotStaff)
	}

	if target == nil || !target.Resolved {
		return allow()
	}

	targetRank, ok := order.Highest(target.Roles)
	if !ok {
		if len(target.Roles) > 0 {
			return deny(DenialTargetUnresolvable)
		}
		return allow()
	}

	ceiling, ok := order.Rank(policy.MaxBannableRole)
	if !ok || targetRank > ceiling {
		return deny(DenialOutOfJurisdiction)
	}
	return allow()
}
