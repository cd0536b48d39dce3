package service

import (
	"context"
	"errors"

	"kinship/internal/member/models"
	"kinship/internal/notify"
	id "kinship/pkg/domain"
	dErrors "kinship/pkg/domain-errors"
	audit "kinship/pkg/platform/audit"
	"kinship/pkg/requestcontext"
)

const maxRelockAttempts = 3

var errPartnerMoved = errors.New("spouse pointer changed while locking")

// AttachSpouse marries a and b, setting both pointers in one transaction.
// It fails with already_married if either side points at another member
// that still exists, deleted or not. Re-attaching an existing couple is a
// no-op.
func (s *Service) AttachSpouse(ctx context.Context, familyID id.FamilyID, aID, bID id.MemberID) (_ []*models.Member, err error) {
	ctx, finish := s.startOp(ctx, "attach_spouse", familyID, aID)
	defer func() { finish(err) }()

	if aID == bID {
		return nil, dErrors.New(dErrors.CodeSelfReference, "a member cannot be their own spouse")
	}
	if err := s.requireFamily(ctx, familyID); err != nil {
		return nil, err
	}
	var (
		a, b    *models.Member
		changed bool
	)
	err = s.tx.RunInPairTx(ctx, aID, bID, func(ctx context.Context) error {
		if a, err = s.findActive(ctx, familyID, aID, "member"); err != nil {
			return err
		}
		if b, err = s.findActive(ctx, familyID, bID, "spouse"); err != nil {
			return err
		}
		if a.IsMarriedTo(b.ID) && b.IsMarriedTo(a.ID) {
			return nil
		}
		if err := s.ensureUnmarried(ctx, a, b.ID); err != nil {
			return err
		}
		if err := s.ensureUnmarried(ctx, b, a.ID); err != nil {
			return err
		}

		now := requestcontext.Now(ctx)
		a.SpouseID, a.UpdatedAt = models.Ref(b.ID), now
		b.SpouseID, b.UpdatedAt = models.Ref(a.ID), now
		if err := s.save(ctx, a); err != nil {
			return err
		}
		if err := s.save(ctx, b); err != nil {
			return err
		}
		changed = true
		return s.logAudit(ctx, audit.EventSpouseAttached, auditTarget{familyID: familyID, memberID: a.ID, relatedID: b.ID})
	})
	if err != nil {
		return nil, txErr(err)
	}
	if changed {
		s.publish(ctx, notify.ActionSpouseAttached, familyID, a.ID, b.ID)
	}
	return []*models.Member{a, b}, nil
}

// DetachSpouse clears the member's spouse pointer and, when the partner
// points back, the partner's too. A missing or purged partner is not an
// error, and detaching an unmarried member is a no-op.
func (s *Service) DetachSpouse(ctx context.Context, familyID id.FamilyID, memberID id.MemberID) (_ []*models.Member, err error) {
	ctx, finish := s.startOp(ctx, "detach_spouse", familyID, memberID)
	defer func() { finish(err) }()

	if err := s.requireFamily(ctx, familyID); err != nil {
		return nil, err
	}
	var (
		affected []*models.Member
		detached bool
	)
	err = s.withPartnerLock(ctx, familyID, memberID, func(ctx context.Context, m *models.Member) error {
		if m.IsDeleted() {
			return dErrors.New(dErrors.CodeNotFound, "member not found")
		}
		affected = []*models.Member{m}
		if m.SpouseID == nil {
			return nil
		}
		partner, err := s.resolve(ctx, m.SpouseID)
		if err != nil {
			return err
		}

		now := requestcontext.Now(ctx)
		m.SpouseID, m.UpdatedAt = nil, now
		if err := s.save(ctx, m); err != nil {
			return err
		}
		target := auditTarget{familyID: familyID, memberID: m.ID}
		if partner != nil && partner.IsMarriedTo(m.ID) {
			partner.SpouseID, partner.UpdatedAt = nil, now
			if err := s.save(ctx, partner); err != nil {
				return err
			}
			affected = append(affected, partner)
			target.relatedID = partner.ID
		}
		detached = true
		return s.logAudit(ctx, audit.EventSpouseDetached, target)
	})
	if err != nil {
		return nil, txErr(err)
	}
	if detached {
		ids := make([]id.MemberID, len(affected))
		for i, m := range affected {
			ids[i] = m.ID
		}
		s.publish(ctx, notify.ActionSpouseDetached, familyID, ids...)
	}
	return affected, nil
}

// AttachParent sets the child's father or mother. Only the child's record
// changes: children are derived from parent pointers.
func (s *Service) AttachParent(ctx context.Context, familyID id.FamilyID, childID id.MemberID, role models.Role, parentID id.MemberID) (_ *models.Member, err error) {
	ctx, finish := s.startOp(ctx, "attach_parent", familyID, childID)
	defer func() { finish(err) }()

	if childID == parentID {
		return nil, dErrors.New(dErrors.CodeSelfReference, "a member cannot be their own "+string(role))
	}
	if err := s.requireFamily(ctx, familyID); err != nil {
		return nil, err
	}
	var (
		child   *models.Member
		changed bool
	)
	err = s.tx.RunInPairTx(ctx, childID, parentID, func(ctx context.Context) error {
		if child, err = s.findActive(ctx, familyID, childID, "member"); err != nil {
			return err
		}
		parent, err := s.findActive(ctx, familyID, parentID, string(role))
		if err != nil {
			return err
		}
		if err := parent.CanServeAs(role); err != nil {
			return err
		}
		if current := child.Parent(role); current != nil && *current == parentID {
			return nil
		}
		if other := child.Parent(role.Other()); other != nil && *other == parentID {
			return dErrors.New(dErrors.CodeValidation, "father and mother must be different members")
		}
		if err := s.checkAncestry(ctx, child, parent); err != nil {
			return err
		}
		if err := checkParentFit(child.Generation, parent, role); err != nil {
			return err
		}

		child.SetParent(role, models.Ref(parentID))
		child.UpdatedAt = requestcontext.Now(ctx)
		if err := s.save(ctx, child); err != nil {
			return err
		}
		changed = true
		return s.logAudit(ctx, audit.EventParentAttached, auditTarget{familyID: familyID, memberID: child.ID, relatedID: parentID},
			"role", string(role))
	})
	if err != nil {
		return nil, txErr(err)
	}
	if changed {
		s.publish(ctx, notify.ActionParentAttached, familyID, child.ID, parentID)
	}
	return child, nil
}

// DetachParent clears the child's father or mother. Idempotent.
func (s *Service) DetachParent(ctx context.Context, familyID id.FamilyID, childID id.MemberID, role models.Role) (_ *models.Member, err error) {
	ctx, finish := s.startOp(ctx, "detach_parent", familyID, childID)
	defer func() { finish(err) }()

	if err := s.requireFamily(ctx, familyID); err != nil {
		return nil, err
	}
	var (
		child    *models.Member
		formerID id.MemberID
	)
	err = s.tx.RunInPairTx(ctx, childID, childID, func(ctx context.Context) error {
		if child, err = s.findActive(ctx, familyID, childID, "member"); err != nil {
			return err
		}
		current := child.Parent(role)
		if current == nil {
			return nil
		}
		formerID = *current
		child.SetParent(role, nil)
		child.UpdatedAt = requestcontext.Now(ctx)
		if err := s.save(ctx, child); err != nil {
			return err
		}
		return s.logAudit(ctx, audit.EventParentDetached, auditTarget{familyID: familyID, memberID: child.ID, relatedID: formerID},
			"role", string(role))
	})
	if err != nil {
		return nil, txErr(err)
	}
	if !formerID.IsNil() {
		s.publish(ctx, notify.ActionParentDetached, familyID, child.ID, formerID)
	}
	return child, nil
}

// ensureUnmarried fails when m points at a spouse other than partnerID that
// still exists. A pointer to a purged member counts as absent.
func (s *Service) ensureUnmarried(ctx context.Context, m *models.Member, partnerID id.MemberID) error {
	if m.SpouseID == nil || *m.SpouseID == partnerID {
		return nil
	}
	current, err := s.resolve(ctx, m.SpouseID)
	if err != nil {
		return err
	}
	if current == nil {
		return nil
	}
	return dErrors.New(dErrors.CodeAlreadyMarried, m.Name+" is already married; detach the current spouse first")
}

// checkAncestry walks the parent's active ancestors breadth-first, up to
// ancestryMaxDepth generations, and fails if the child is among them.
func (s *Service) checkAncestry(ctx context.Context, child, parent *models.Member) error {
	frontier := []*models.Member{parent}
	seen := map[id.MemberID]bool{parent.ID: true}
	for depth := 0; depth < s.ancestryMaxDepth && len(frontier) > 0; depth++ {
		var next []*models.Member
		for _, m := range frontier {
			for _, role := range parentRoles {
				ref := m.Parent(role)
				if ref == nil || seen[*ref] {
					continue
				}
				if *ref == child.ID {
					return dErrors.New(dErrors.CodeAncestryCycle,
						child.Name+" is an ancestor of "+parent.Name+" and cannot also be their child")
				}
				seen[*ref] = true
				ancestor, err := s.resolve(ctx, ref)
				if err != nil {
					return err
				}
				if ancestor == nil || ancestor.IsDeleted() {
					continue
				}
				next = append(next, ancestor)
			}
		}
		frontier = next
	}
	return nil
}

// withPartnerLock runs fn while holding the locks for the member and its
// current spouse. The spouse pointer is read before locking, so fn only runs
// once it is confirmed unchanged under the lock.
func (s *Service) withPartnerLock(ctx context.Context, familyID id.FamilyID, memberID id.MemberID, fn func(ctx context.Context, m *models.Member) error) error {
	for range maxRelockAttempts {
		peek, err := s.findScoped(ctx, familyID, memberID, "member")
		if err != nil {
			return err
		}
		partnerID := memberID
		if peek.SpouseID != nil {
			partnerID = *peek.SpouseID
		}
		err = s.tx.RunInPairTx(ctx, memberID, partnerID, func(ctx context.Context) error {
			m, err := s.findScoped(ctx, familyID, memberID, "member")
			if err != nil {
				return err
			}
			if !sameRef(m.SpouseID, peek.SpouseID) {
				return errPartnerMoved
			}
			return fn(ctx, m)
		})
		if !errors.Is(err, errPartnerMoved) {
			return err
		}
	}
	return dErrors.New(dErrors.CodeConflict, "spouse changed concurrently, retry the request")
}

func sameRef(a, b *id.MemberID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
