package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/aussiebroadwan/alimatrix/internal/survey/domain"
	"github.com/aussiebroadwan/alimatrix/internal/survey/store"
)

// SubmissionService stores questionnaires and newsletter subscriptions.
type SubmissionService struct {
	Store store.Store
	Now   func() time.Time
}

func (s *SubmissionService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// Submit upserts the subscription for in.Email and stores a new submission
// under it, atomically.
func (s *SubmissionService) Submit(ctx context.Context, in SubmissionInput) (domain.Submission, error) {
	now := s.now()

	var out domain.Submission
	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		sub, err := tx.Subscriptions().UpsertSubscription(ctx, domain.Subscription{
			ID:              uuid.NewString(),
			Email:           in.Email,
			AcceptedTerms:   in.AcceptedTerms,
			AcceptedContact: in.AcceptedContact,
			Status:          domain.SubscriptionStatusActive,
			CreatedAt:       now,
			UpdatedAt:       now,
		})
		if err != nil {
			return fmt.Errorf("upsert subscription: %w", err)
		}

		out = newSubmission(sub, in, now)
		if err := tx.Submissions().CreateSubmission(ctx, out); err != nil {
			return fmt.Errorf("create submission: %w", err)
		}
		return nil
	})
	if err != nil {
		return domain.Submission{}, err
	}
	return out, nil
}

// SubscribeResult identifies what Subscribe created.
type SubscribeResult struct {
	SubscriptionID string
	// SubmissionID is empty for a newsletter-only subscription.
	SubmissionID string
}

// Subscribe creates a new subscription, plus a submission when the form
// carried answers. A known email yields ErrDuplicateEmail.
func (s *SubmissionService) Subscribe(ctx context.Context, in SubmissionInput) (SubscribeResult, error) {
	now := s.now()

	var res SubscribeResult
	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		sub := domain.Subscription{
			ID:              uuid.NewString(),
			Email:           in.Email,
			AcceptedTerms:   in.AcceptedTerms,
			AcceptedContact: in.AcceptedContact,
			Status:          domain.SubscriptionStatusActive,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		if err := tx.Subscriptions().CreateSubscription(ctx, sub); err != nil {
			if errors.Is(err, store.ErrAlreadyExists) {
				return ErrDuplicateEmail
			}
			return fmt.Errorf("create subscription: %w", err)
		}
		res.SubscriptionID = sub.ID

		if len(in.Data) == 0 {
			return nil
		}
		submission := newSubmission(sub, in, now)
		if err := tx.Submissions().CreateSubmission(ctx, submission); err != nil {
			return fmt.Errorf("create submission: %w", err)
		}
		res.SubmissionID = submission.ID
		return nil
	})
	if err != nil {
		return SubscribeResult{}, err
	}
	return res, nil
}

// Get returns a stored submission or store.ErrNotFound.
func (s *SubmissionService) Get(ctx context.Context, id string) (domain.Submission, error) {
	if _, err := uuid.Parse(id); err != nil {
		return domain.Submission{}, store.ErrNotFound
	}
	return s.Store.Submissions().GetSubmissionByID(ctx, id)
}

// Delete removes a stored submission or returns store.ErrNotFound.
func (s *SubmissionService) Delete(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return store.ErrNotFound
	}
	return s.Store.Submissions().DeleteSubmission(ctx, id)
}

func newSubmission(sub domain.Subscription, in SubmissionInput, now time.Time) domain.Submission {
	data := in.Data
	if data == nil {
		data = map[string]any{}
	}
	return domain.Submission{
		ID:             uuid.NewString(),
		SubscriptionID: sub.ID,
		Email:          sub.Email,
		Data:           data,
		Status:         domain.SubmissionStatusSubmitted,
		IPAddress:      in.IPAddress,
		UserAgent:      in.UserAgent,
		SubmittedAt:    now,
	}
}
