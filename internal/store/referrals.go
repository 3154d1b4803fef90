package store

import (
	"database/sql"
	"fmt"

	"wtq-task-mining/internal/core"
)

// AncestorsUpTo walks the invite chain upward from a user and returns up to
// depth ancestors, nearest first. The walk stops at the root, at depth, or
// when a cycle is detected.
func (s *Store) AncestorsUpTo(userID int64, depth int) ([]*core.Profile, error) {
	var ancestors []*core.Profile
	seen := map[int64]bool{userID: true}
	current := userID

	for hop := 0; hop < depth; hop++ {
		var invitedBy sql.NullInt64
		err := s.DB.QueryRow(`SELECT invited_by FROM profiles WHERE id = ?`, current).Scan(&invitedBy)
		if err != nil {
			if err == sql.ErrNoRows {
				break
			}
			return nil, fmt.Errorf("failed to look up inviter: %w", err)
		}
		if !invitedBy.Valid || seen[invitedBy.Int64] {
			break
		}

		ancestor, err := s.GetProfileByID(invitedBy.Int64)
		if err != nil {
			return nil, err
		}
		ancestors = append(ancestors, ancestor)
		seen[ancestor.ID] = true
		current = ancestor.ID
	}
	return ancestors, nil
}

// DirectChildren returns the profiles a user invited directly
func (s *Store) DirectChildren(userID int64) ([]*core.Profile, error) {
	rows, err := s.DB.Query(`SELECT `+profileColumns+` FROM profiles WHERE invited_by = ? ORDER BY created_at ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query children: %w", err)
	}
	defer rows.Close()

	var children []*core.Profile
	for rows.Next() {
		p, err := scanProfileRow(rows)
		if err != nil {
			return nil, err
		}
		children = append(children, p)
	}
	return children, rows.Err()
}

// DescendantsUpTo returns a user's invitees grouped by tier: tier 1 is the
// direct invitees, tier 2 their invitees, and so on down to depth. A seen
// set keeps cyclic invited_by data from looping forever.
func (s *Store) DescendantsUpTo(userID int64, depth int) (map[int][]*core.Profile, error) {
	byTier := make(map[int][]*core.Profile)
	seen := map[int64]bool{userID: true}
	frontier := []int64{userID}

	for tier := 1; tier <= depth && len(frontier) > 0; tier++ {
		var next []int64
		for _, parent := range frontier {
			children, err := s.DirectChildren(parent)
			if err != nil {
				return nil, err
			}
			for _, child := range children {
				if seen[child.ID] {
					continue
				}
				seen[child.ID] = true
				byTier[tier] = append(byTier[tier], child)
				next = append(next, child.ID)
			}
		}
		frontier = next
	}
	return byTier, nil
}

// CountTeamAtLevel counts a user's direct invitees holding at least the
// given level on the regular track. VIP accounts do not count toward the
// upgrade requirement.
func (s *Store) CountTeamAtLevel(userID int64, minLevel int) (int, error) {
	var count int
	err := s.DB.QueryRow(`
		SELECT COUNT(*) FROM profiles
		WHERE invited_by = ? AND level >= ? AND is_vip = 0
	`, userID, minLevel).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count team: %w", err)
	}
	return count, nil
}
