// Package reconcile decides, per scraped listing, whether the record store gains a
// new record, fills gaps in an existing one, or is left alone.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"letraz-harvester/internal/logging"
	"letraz-harvester/internal/logging/types"
	"letraz-harvester/internal/store"
	"letraz-harvester/pkg/models"
)

// Action is the outcome of reconciling one listing
type Action string

const (
	ActionInserted Action = "inserted"
	ActionUpdated  Action = "updated"
	ActionSkipped  Action = "skipped"
)

// shortDescription is the rune length under which a stored description may be
// replaced by a longer one
const shortDescription = 50

// salaryPlaceholder is what boards show when the employer hides the salary
const salaryPlaceholder = "Not disclosed"

// Counts tallies the actions of a batch
type Counts struct {
	Added   int
	Updated int
	Skipped int
}

// Reconciler writes listings into a record store
type Reconciler struct {
	store  store.Store
	logger types.Logger
}

// New creates a reconciler over s
func New(s store.Store, logger types.Logger) *Reconciler {
	return &Reconciler{store: s, logger: logging.ForComponent(logger, "reconcile")}
}

// Reconcile inserts an unseen listing or patches the empty fields of the stored one
func (r *Reconciler) Reconcile(ctx context.Context, listing models.Listing) (Action, error) {
	existing, err := r.store.FindByURL(ctx, listing.URL)
	if errors.Is(err, store.ErrNotFound) {
		if _, err := r.store.Insert(ctx, models.NewJobRecord(listing)); err != nil {
			// a concurrent writer got there first; the record exists, nothing to add
			if errors.Is(err, store.ErrDuplicate) {
				return ActionSkipped, nil
			}
			return "", err
		}
		return ActionInserted, nil
	}
	if err != nil {
		return "", err
	}

	patch := BuildPatch(existing, listing)
	if patch.Empty() {
		return ActionSkipped, nil
	}
	if err := r.store.Patch(ctx, existing.ID, patch); err != nil {
		return "", err
	}
	return ActionUpdated, nil
}

// ReconcileAll reconciles listings in order. A failing listing is recorded and skipped over.
func (r *Reconciler) ReconcileAll(ctx context.Context, listings []models.Listing) (Counts, []string) {
	var (
		counts Counts
		errs   []string
	)

	for _, listing := range listings {
		action, err := r.Reconcile(ctx, listing)
		if err != nil {
			errs = append(errs, fmt.Sprintf("Failed to save job: %v", err))
			r.logger.Warn("Failed to save job", map[string]interface{}{
				"url":   listing.URL,
				"error": err.Error(),
			})
			continue
		}

		switch action {
		case ActionInserted:
			counts.Added++
		case ActionUpdated:
			counts.Updated++
			r.logger.Debug("Filled missing fields on existing job", map[string]interface{}{"url": listing.URL})
		default:
			counts.Skipped++
		}
	}

	return counts, errs
}

// BuildPatch selects the fields of incoming that may overwrite existing.
// Scraped data only fills gaps; operator-owned fields are never touched.
func BuildPatch(existing *models.JobRecord, incoming models.Listing) models.JobPatch {
	var patch models.JobPatch

	if present(incoming.Description) && (blank(existing.Description) || longerShortDescription(existing.Description, incoming.Description)) {
		patch.Description = value(incoming.Description)
	}
	if present(incoming.Requirements) && blank(existing.Requirements) {
		patch.Requirements = value(incoming.Requirements)
	}
	if present(incoming.Experience) && blank(existing.Experience) {
		patch.Experience = value(incoming.Experience)
	}
	if present(incoming.Salary) && (blank(existing.Salary) || (undisclosed(existing.Salary) && !undisclosed(incoming.Salary))) {
		patch.Salary = value(incoming.Salary)
	}
	if present(incoming.PostedAt) && blank(existing.PostedAt) {
		patch.PostedAt = value(incoming.PostedAt)
	}
	if present(incoming.Email) && blank(existing.Email) {
		patch.Email = value(incoming.Email)
	}
	if present(incoming.ApplyURL) && blank(existing.ApplyURL) {
		patch.ApplyURL = value(incoming.ApplyURL)
	}

	return patch
}

// longerShortDescription reports whether a short stored description should give
// way to a longer incoming one.
func longerShortDescription(existing, incoming string) bool {
	have := utf8.RuneCountInString(strings.TrimSpace(existing))
	return have < shortDescription && utf8.RuneCountInString(strings.TrimSpace(incoming)) > have
}

func undisclosed(salary string) bool {
	return strings.EqualFold(strings.TrimSpace(salary), salaryPlaceholder)
}

func present(s string) bool { return strings.TrimSpace(s) != "" }
func blank(s string) bool   { return strings.TrimSpace(s) == "" }
func value(s string) *string {
	return &s
}
