package service

import (
	"context"
	"errors"
	"strings"

	"golang.org/x/sync/errgroup"

	"kinship/internal/member/models"
	"kinship/internal/notify"
	id "kinship/pkg/domain"
	dErrors "kinship/pkg/domain-errors"
	audit "kinship/pkg/platform/audit"
	"kinship/pkg/platform/sentinel"
	txcontext "kinship/pkg/platform/tx"
	"kinship/pkg/requestcontext"
)

// Restore clears the tombstone and repairs the member's pointers:
//   - a parent is kept only if it is active and still fits the role
//   - the spouse link is kept, and re-established on the partner, only if
//     the partner is active and its own pointer is empty or points back
//   - a linked account now held by another active member is dropped
//
// The report lists which pointers were cleared.
func (s *Service) Restore(ctx context.Context, familyID id.FamilyID, memberID id.MemberID) (_ *models.Member, _ models.RestoreReport, err error) {
	ctx, finish := s.startOp(ctx, "restore", familyID, memberID)
	defer func() { finish(err) }()

	if err := s.requireFamily(ctx, familyID); err != nil {
		return nil, models.RestoreReport{}, err
	}
	defer s.lockLineage(familyID)()
	var (
		restored *models.Member
		report   models.RestoreReport
	)
	err = s.withPartnerLock(ctx, familyID, memberID, func(ctx context.Context, m *models.Member) error {
		report = models.RestoreReport{}
		if !m.IsDeleted() {
			return dErrors.New(dErrors.CodeConflict, "member is not deleted")
		}
		father, mother, spouse, err := s.loadCounterparts(ctx, m)
		if err != nil {
			return err
		}
		now := requestcontext.Now(ctx)

		if m.FatherID != nil && !canKeepParent(m, father, models.RoleFather) {
			m.FatherID = nil
			report.ClearedFather = true
		}
		if m.MotherID != nil && !canKeepParent(m, mother, models.RoleMother) {
			m.MotherID = nil
			report.ClearedMother = true
		}

		if m.SpouseID != nil {
			if canKeepSpouse(m, spouse) {
				if spouse.SpouseID == nil {
					spouse.SpouseID, spouse.UpdatedAt = models.Ref(m.ID), now
					if err := s.save(ctx, spouse); err != nil {
						return err
					}
					report.RelinkedSpouse = true
				}
			} else {
				m.SpouseID = nil
				report.ClearedSpouse = true
			}
		}

		if m.LinkedAccountID != nil {
			holder, err := s.store.FindActiveByAccount(ctx, familyID, *m.LinkedAccountID)
			switch {
			case err == nil && holder.ID != m.ID:
				m.LinkedAccountID = nil
				report.ClearedAccount = true
			case err != nil && !errors.Is(err, sentinel.ErrNotFound):
				return dErrors.Wrap(err, dErrors.CodeInternal, "failed to check linked account")
			}
		}

		m.DeletedAt = nil
		m.UpdatedAt = now
		if err := s.save(ctx, m); err != nil {
			return err
		}
		restored = m
		return s.logAudit(ctx, audit.EventMemberRestored, auditTarget{familyID: familyID, memberID: m.ID},
			"reason", strings.Join(report.Cleared(), ","))
	})
	if err != nil {
		return nil, models.RestoreReport{}, txErr(err)
	}

	if s.metrics != nil {
		for _, field := range report.Cleared() {
			s.metrics.IncRestoreRepair(field)
		}
	}
	affected := []id.MemberID{restored.ID}
	if report.RelinkedSpouse {
		affected = append(affected, *restored.SpouseID)
	}
	s.publish(ctx, notify.ActionMemberRestored, familyID, affected...)
	return restored, report, nil
}

// loadCounterparts resolves father, mother and spouse concurrently. A SQL
// transaction owns a single connection, so loads inside one run in turn.
func (s *Service) loadCounterparts(ctx context.Context, m *models.Member) (father, mother, spouse *models.Member, err error) {
	g, gctx := errgroup.WithContext(ctx)
	if _, inTx := txcontext.From(ctx); inTx {
		g.SetLimit(1)
	}
	g.Go(func() (err error) {
		father, err = s.resolve(gctx, m.FatherID)
		return err
	})
	g.Go(func() (err error) {
		mother, err = s.resolve(gctx, m.MotherID)
		return err
	})
	g.Go(func() (err error) {
		spouse, err = s.resolve(gctx, m.SpouseID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, nil, err
	}
	return father, mother, spouse, nil
}

func canKeepParent(child, parent *models.Member, role models.Role) bool {
	if parent == nil || parent.IsDeleted() || parent.FamilyID != child.FamilyID {
		return false
	}
	return checkParentFit(child.Generation, parent, role) == nil
}

func canKeepSpouse(m, spouse *models.Member) bool {
	if spouse == nil || spouse.IsDeleted() || spouse.FamilyID != m.FamilyID {
		return false
	}
	return spouse.SpouseID == nil || spouse.IsMarriedTo(m.ID)
}
