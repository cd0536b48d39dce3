package service

import (
	"context"
	"errors"
	"fmt"

	"kinship/internal/member/models"
	"kinship/internal/notify"
	id "kinship/pkg/domain"
	dErrors "kinship/pkg/domain-errors"
	audit "kinship/pkg/platform/audit"
	"kinship/pkg/platform/sentinel"
	"kinship/pkg/requestcontext"
)

var parentRoles = []models.Role{models.RoleFather, models.RoleMother}

// Create adds a member, optionally attaching father, mother and spouse in the
// same transaction. The spouse's pointer is set to the new member.
func (s *Service) Create(ctx context.Context, params models.CreateParams) (_ *models.Member, err error) {
	ctx, finish := s.startOp(ctx, "create", params.FamilyID, id.MemberID{})
	defer func() { finish(err) }()

	if err := s.requireFamily(ctx, params.FamilyID); err != nil {
		return nil, err
	}
	now := requestcontext.Now(ctx)
	m, err := models.NewMember(id.NewMemberID(), params.FamilyID, params.Name, params.Gender, params.Generation, params.Profile, now)
	if err != nil {
		return nil, err
	}
	if params.FatherID != nil && params.MotherID != nil && *params.FatherID == *params.MotherID {
		return nil, dErrors.New(dErrors.CodeValidation, "father and mother must be different members")
	}
	m.FatherID = params.FatherID
	m.MotherID = params.MotherID
	m.LinkedAccountID = params.LinkedAccountID
	if m.FatherID != nil || m.MotherID != nil {
		defer s.lockLineage(m.FamilyID)()
	}

	partnerID := m.ID
	if params.SpouseID != nil {
		partnerID = *params.SpouseID
	}
	var spouse *models.Member
	err = s.tx.RunInPairTx(ctx, m.ID, partnerID, func(ctx context.Context) error {
		for _, role := range parentRoles {
			ref := m.Parent(role)
			if ref == nil {
				continue
			}
			parent, err := s.findActive(ctx, m.FamilyID, *ref, string(role))
			if err != nil {
				return err
			}
			if err := checkParentFit(m.Generation, parent, role); err != nil {
				return err
			}
		}
		if params.SpouseID != nil {
			spouse, err = s.findActive(ctx, m.FamilyID, *params.SpouseID, "spouse")
			if err != nil {
				return err
			}
			if err := s.ensureUnmarried(ctx, spouse, m.ID); err != nil {
				return err
			}
			m.SpouseID = models.Ref(spouse.ID)
		}
		if m.LinkedAccountID != nil {
			if err := s.ensureAccountFree(ctx, m.FamilyID, *m.LinkedAccountID, m.ID); err != nil {
				return err
			}
		}

		if err := s.store.Create(ctx, m); err != nil {
			return translateWrite(err, "failed to create member")
		}
		if spouse != nil {
			spouse.SpouseID = models.Ref(m.ID)
			spouse.UpdatedAt = now
			if err := s.save(ctx, spouse); err != nil {
				return err
			}
		}

		if err := s.logAudit(ctx, audit.EventMemberCreated, auditTarget{familyID: m.FamilyID, memberID: m.ID}); err != nil {
			return err
		}
		if spouse != nil {
			return s.logAudit(ctx, audit.EventSpouseAttached, auditTarget{familyID: m.FamilyID, memberID: m.ID, relatedID: spouse.ID})
		}
		return nil
	})
	if err != nil {
		return nil, txErr(err)
	}

	affected := []id.MemberID{m.ID}
	if spouse != nil {
		affected = append(affected, spouse.ID)
	}
	s.publish(ctx, notify.ActionMemberCreated, m.FamilyID, affected...)
	return m, nil
}

// Get returns an active member. Soft-deleted members are only reachable
// through the trash listing.
func (s *Service) Get(ctx context.Context, familyID id.FamilyID, memberID id.MemberID) (*models.Member, error) {
	if err := s.requireFamily(ctx, familyID); err != nil {
		return nil, err
	}
	return s.findActive(ctx, familyID, memberID, "member")
}

// Update applies a JSON merge patch to the editable fields.
func (s *Service) Update(ctx context.Context, familyID id.FamilyID, memberID id.MemberID, patch []byte) (_ *models.Member, err error) {
	ctx, finish := s.startOp(ctx, "update", familyID, memberID)
	defer func() { finish(err) }()

	if err := s.requireFamily(ctx, familyID); err != nil {
		return nil, err
	}
	if touchesLineage(patch) {
		defer s.lockLineage(familyID)()
	}
	var updated *models.Member
	err = s.tx.RunInPairTx(ctx, memberID, memberID, func(ctx context.Context) error {
		m, err := s.findActive(ctx, familyID, memberID, "member")
		if err != nil {
			return err
		}
		edit, err := models.ApplyPatch(m, patch)
		if err != nil {
			return err
		}
		if err := s.checkEditAgainstRelatives(ctx, m, edit); err != nil {
			return err
		}

		m.ApplyEditable(edit)
		m.UpdatedAt = requestcontext.Now(ctx)
		if err := s.save(ctx, m); err != nil {
			return err
		}
		updated = m
		return s.logAudit(ctx, audit.EventMemberUpdated, auditTarget{familyID: familyID, memberID: m.ID})
	})
	if err != nil {
		return nil, txErr(err)
	}
	s.publish(ctx, notify.ActionMemberUpdated, familyID, updated.ID)
	return updated, nil
}

// checkEditAgainstRelatives refuses gender or generation changes that would
// contradict an active child or a parent that is active or tombstoned. A
// tombstoned parent can be restored with the child's pointer intact, so it
// keeps constraining the child until the pointer is detached or the parent
// is purged.
func (s *Service) checkEditAgainstRelatives(ctx context.Context, m *models.Member, edit models.Editable) error {
	if edit.Gender == m.Gender && edit.Generation == m.Generation {
		return nil
	}
	children, err := s.store.ListChildren(ctx, m.FamilyID, m.ID)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load children")
	}
	for _, child := range children {
		role, _ := child.RoleOf(m.ID)
		if models.GenderFits(edit.Gender, role) != nil {
			return dErrors.New(dErrors.CodeGenderMismatch,
				fmt.Sprintf("gender cannot change to %s while %s is the %s of %s", edit.Gender, m.Name, role, child.Name))
		}
		if child.Generation != edit.Generation+1 {
			return dErrors.New(dErrors.CodeValidation,
				fmt.Sprintf("generation %d contradicts child %s at generation %d", edit.Generation, child.Name, child.Generation))
		}
	}
	if edit.Generation == m.Generation {
		return nil
	}
	for _, role := range parentRoles {
		parent, err := s.resolve(ctx, m.Parent(role))
		if err != nil {
			return err
		}
		if parent == nil || parent.FamilyID != m.FamilyID {
			continue
		}
		if parent.Generation+1 != edit.Generation {
			return dErrors.New(dErrors.CodeValidation,
				fmt.Sprintf("generation %d contradicts %s %s at generation %d", edit.Generation, role, parent.Name, parent.Generation))
		}
	}
	return nil
}

// SoftDelete tombstones a member. Every pointer is kept for restore.
func (s *Service) SoftDelete(ctx context.Context, familyID id.FamilyID, memberID id.MemberID) (err error) {
	ctx, finish := s.startOp(ctx, "soft_delete", familyID, memberID)
	defer func() { finish(err) }()

	if err := s.requireFamily(ctx, familyID); err != nil {
		return err
	}
	err = s.tx.RunInPairTx(ctx, memberID, memberID, func(ctx context.Context) error {
		m, err := s.findScoped(ctx, familyID, memberID, "member")
		if err != nil {
			return err
		}
		if m.IsDeleted() {
			return dErrors.New(dErrors.CodeConflict, "member is already deleted")
		}
		now := requestcontext.Now(ctx)
		m.DeletedAt = &now
		m.UpdatedAt = now
		if err := s.save(ctx, m); err != nil {
			return err
		}
		return s.logAudit(ctx, audit.EventMemberDeleted, auditTarget{familyID: familyID, memberID: memberID})
	})
	if err != nil {
		return txErr(err)
	}
	s.publish(ctx, notify.ActionMemberDeleted, familyID, memberID)
	return nil
}

// Purge removes a member permanently, active or deleted. Pointers held by
// other members are left dangling and read as absent.
func (s *Service) Purge(ctx context.Context, familyID id.FamilyID, memberID id.MemberID) (err error) {
	ctx, finish := s.startOp(ctx, "purge", familyID, memberID)
	defer func() { finish(err) }()

	if err := s.requireFamily(ctx, familyID); err != nil {
		return err
	}
	err = s.tx.RunInPairTx(ctx, memberID, memberID, func(ctx context.Context) error {
		if _, err := s.findScoped(ctx, familyID, memberID, "member"); err != nil {
			return err
		}
		if err := s.store.Delete(ctx, memberID); err != nil {
			return translateWrite(err, "failed to purge member")
		}
		return s.logAudit(ctx, audit.EventMemberPurged, auditTarget{familyID: familyID, memberID: memberID})
	})
	if err != nil {
		return txErr(err)
	}
	s.publish(ctx, notify.ActionMemberPurged, familyID, memberID)
	return nil
}

// List returns members matching filter. The zero filter lists active members.
func (s *Service) List(ctx context.Context, familyID id.FamilyID, filter models.ListFilter) ([]*models.Member, error) {
	if err := s.requireFamily(ctx, familyID); err != nil {
		return nil, err
	}
	members, err := s.store.List(ctx, familyID, filter)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list members")
	}
	return members, nil
}

// ListDeleted is the admin trash view.
func (s *Service) ListDeleted(ctx context.Context, familyID id.FamilyID) ([]*models.Member, error) {
	return s.List(ctx, familyID, models.ListFilter{Scope: models.DeletedOnly})
}

// ListUnlinked returns active members without a linked account.
func (s *Service) ListUnlinked(ctx context.Context, familyID id.FamilyID) ([]*models.Member, error) {
	return s.List(ctx, familyID, models.ListFilter{UnlinkedOnly: true})
}

// FindByAccount returns the active member linked to accountID.
func (s *Service) FindByAccount(ctx context.Context, familyID id.FamilyID, accountID id.AccountID) (*models.Member, error) {
	m, err := s.store.FindActiveByAccount(ctx, familyID, accountID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "no member is linked to this account")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load member by account")
	}
	return m, nil
}

// LinkAccount binds an external account to a member. A member already bound
// to the same account is returned unchanged; a different account is never
// overwritten.
func (s *Service) LinkAccount(ctx context.Context, familyID id.FamilyID, memberID id.MemberID, accountID id.AccountID) (_ *models.Member, err error) {
	ctx, finish := s.startOp(ctx, "link_account", familyID, memberID)
	defer func() { finish(err) }()

	if accountID.IsNil() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "account id is required")
	}
	if err := s.requireFamily(ctx, familyID); err != nil {
		return nil, err
	}
	var (
		linked  *models.Member
		changed bool
	)
	err = s.tx.RunInPairTx(ctx, memberID, memberID, func(ctx context.Context) error {
		m, err := s.findActive(ctx, familyID, memberID, "member")
		if err != nil {
			return err
		}
		linked = m
		if m.IsLinkedTo(accountID) {
			return nil
		}
		if m.LinkedAccountID != nil {
			return dErrors.New(dErrors.CodeAlreadyLinked, "member is already linked to a different account")
		}
		if err := s.ensureAccountFree(ctx, familyID, accountID, m.ID); err != nil {
			return err
		}
		m.LinkedAccountID = &accountID
		m.UpdatedAt = requestcontext.Now(ctx)
		if err := s.save(ctx, m); err != nil {
			return err
		}
		changed = true
		return s.logAudit(ctx, audit.EventMemberLinked, auditTarget{familyID: familyID, memberID: m.ID})
	})
	if err != nil {
		return nil, txErr(err)
	}
	if changed {
		s.publish(ctx, notify.ActionMemberLinked, familyID, linked.ID)
	}
	return linked, nil
}

func (s *Service) ensureAccountFree(ctx context.Context, familyID id.FamilyID, accountID id.AccountID, self id.MemberID) error {
	holder, err := s.store.FindActiveByAccount(ctx, familyID, accountID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to check linked account")
	}
	if holder.ID == self {
		return nil
	}
	return dErrors.New(dErrors.CodeConflict, "account is already linked to another member of this family")
}

// checkParentFit checks a prospective parent's gender and generation.
func checkParentFit(childGeneration int, parent *models.Member, role models.Role) error {
	if err := parent.CanServeAs(role); err != nil {
		return err
	}
	if parent.Generation+1 != childGeneration {
		return dErrors.New(dErrors.CodeValidation,
			fmt.Sprintf("generation must be %d, one more than the %s's", parent.Generation+1, role))
	}
	return nil
}
