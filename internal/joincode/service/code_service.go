package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"homeroom/internal/joincode"
	codemetrics "homeroom/internal/joincode/metrics"
	"homeroom/internal/joincode/models"
	"homeroom/internal/sentinel"
	id "homeroom/pkg/domain"
	dErrors "homeroom/pkg/domain-errors"
	"homeroom/pkg/requestcontext"
)

const (
	// codeTTL is how long a join code admits members. Initial and
	// regenerated codes get the same window.
	codeTTL = 24 * time.Hour

	// maxGenerateAttempts bounds collision redraws before the operation
	// fails with code_space_exhausted.
	maxGenerateAttempts = 5

	// maxSwapRetries bounds regeneration retries after a lost conditional
	// write before surfacing concurrent_modification to the caller.
	maxSwapRetries = 3
)

// CodeService owns the access-code lifecycle: reserving codes for the
// registration saga, binding them to schools, regenerating, and verifying.
type CodeService struct {
	codes        CodeStore
	schools      SchoolStore
	generator    joincode.Generator
	cache        VerificationCache
	auditEmitter *auditEmitter
	logger       *slog.Logger
	metrics      *codemetrics.Metrics
	tx           StoreTx
}

func NewCodeService(codes CodeStore, schools SchoolStore, opts ...Option) *CodeService {
	cfg := &serviceConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	generator := cfg.generator
	if generator == nil {
		generator = joincode.NewGenerator()
	}
	tx := cfg.tx
	if tx == nil {
		tx = newInMemoryStoreTx()
	}
	return &CodeService{
		codes:        codes,
		schools:      schools,
		generator:    generator,
		cache:        cfg.cache,
		auditEmitter: newAuditEmitter(cfg.logger, cfg.auditPublisher),
		logger:       cfg.logger,
		metrics:      cfg.metrics,
		tx:           tx,
	}
}

// IssueInitial reserves a fresh code for a school that does not exist
// yet. The registration saga calls this before creating the School row
// and releases the reservation if a later step fails.
func (s *CodeService) IssueInitial(ctx context.Context, schoolName string) (string, error) {
	schoolName = strings.TrimSpace(schoolName)
	if schoolName == "" {
		return "", dErrors.New(dErrors.CodeBadRequest, "school name is required")
	}

	now := requestcontext.Now(ctx)
	expiresAt := now.Add(codeTTL)
	code, err := s.claimCode(ctx, func(candidate string) (*models.AccessCode, error) {
		return models.NewReservation(candidate, schoolName, now, &expiresAt)
	})
	if err != nil {
		return "", err
	}

	s.incrementCodesIssued()
	return code, nil
}

// ReleaseReservation deletes a reservation row. Registration compensation
// calls this; a code that is already gone counts as released.
func (s *CodeService) ReleaseReservation(ctx context.Context, code string) error {
	if code == "" {
		return dErrors.New(dErrors.CodeBadRequest, "code is required")
	}
	if err := s.codes.Delete(ctx, code); err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "code store unavailable")
	}
	return nil
}

// Bind stamps the owning school onto a reservation once the School row
// exists.
func (s *CodeService) Bind(ctx context.Context, code string, schoolID id.SchoolID) error {
	if code == "" {
		return dErrors.New(dErrors.CodeBadRequest, "code is required")
	}
	if err := requireSchoolID(schoolID); err != nil {
		return err
	}
	return s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		row, err := s.codes.FindByCode(txCtx, code)
		if err != nil {
			return wrapCodeErr(err)
		}
		if err := row.Bind(schoolID); err != nil {
			if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
				return dErrors.New(dErrors.CodeConflict, "code is bound to another school")
			}
			return err
		}
		if err := s.codes.Update(txCtx, row); err != nil {
			return wrapCodeErr(err)
		}
		return nil
	})
}

// Regenerate replaces a school's active code: a fresh row is claimed, the
// school's code pointer is advanced with a conditional write, and the
// previous row is revoked, all inside one transaction. A lost conditional
// write retries the whole sequence; after maxSwapRetries the caller gets
// concurrent_modification and may retry the operation itself.
func (s *CodeService) Regenerate(ctx context.Context, schoolID id.SchoolID) (string, time.Time, error) {
	if err := requireSchoolID(schoolID); err != nil {
		return "", time.Time{}, err
	}

	var lastErr error
	for attempt := 0; attempt < maxSwapRetries; attempt++ {
		newCode, expiresAt, revoked, err := s.regenerateOnce(ctx, schoolID)
		if err == nil {
			s.invalidateCached(ctx, revoked)
			s.incrementCodesIssued()
			s.incrementCodesRegenerated()
			return newCode, expiresAt, nil
		}
		if errors.Is(err, sentinel.ErrVersionConflict) {
			s.incrementSwapConflicts()
			lastErr = err
			continue
		}
		return "", time.Time{}, err
	}
	return "", time.Time{}, dErrors.Wrap(lastErr, dErrors.CodeConcurrentModification,
		"regeneration kept losing to concurrent writers; retry the operation")
}

func (s *CodeService) regenerateOnce(ctx context.Context, schoolID id.SchoolID) (newCode string, expiresAt time.Time, revoked string, err error) {
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		school, err := s.schools.FindByID(txCtx, schoolID)
		if err != nil {
			return wrapSchoolErr(err)
		}
		if !school.IsActive() {
			return dErrors.New(dErrors.CodeConflict, "school is inactive")
		}

		now := requestcontext.Now(txCtx)
		expires := now.Add(codeTTL)
		candidate, err := s.claimCode(txCtx, func(code string) (*models.AccessCode, error) {
			return models.NewBoundCode(code, school.Name, schoolID, now, &expires)
		})
		if err != nil {
			return err
		}

		previous := school.ActiveCode
		expectedVersion := school.UpdatedAt
		if err := school.SwapCode(candidate, now); err != nil {
			return err
		}
		if err := s.schools.SwapActiveCode(txCtx, schoolID, candidate, expectedVersion, now); err != nil {
			if errors.Is(err, sentinel.ErrVersionConflict) {
				// Raw sentinel: the retry loop in Regenerate keys on it.
				return err
			}
			return wrapSchoolErr(err)
		}

		if previous != "" {
			if err := s.revokePrevious(txCtx, previous); err != nil {
				return err
			}
		}

		if err := s.auditEmitter.emitJoinCodeRegenerated(txCtx, models.JoinCodeRegenerated{SchoolID: schoolID}); err != nil {
			return err
		}

		newCode = candidate
		expiresAt = expires
		revoked = previous
		return nil
	})
	return newCode, expiresAt, revoked, err
}

// revokePrevious retires the replaced code row. A missing or already
// inactive row is tolerated: the school's code pointer is authoritative
// and the sweeper may have gotten there first.
func (s *CodeService) revokePrevious(ctx context.Context, code string) error {
	row, err := s.codes.FindByCode(ctx, code)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil
	}
	if err != nil {
		return wrapCodeErr(err)
	}
	if !row.IsActive() {
		return nil
	}
	if err := row.Revoke(); err != nil {
		return err
	}
	if err := s.codes.Update(ctx, row); err != nil {
		return wrapCodeErr(err)
	}
	return nil
}

// Verify reports whether a code currently grants access and which school
// it belongs to. An unknown code is a negative result, not an error.
func (s *CodeService) Verify(ctx context.Context, code string) (joincode.Verification, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return joincode.Verification{}, dErrors.New(dErrors.CodeBadRequest, "code is required")
	}

	start := time.Now()
	defer s.observeVerify(start)

	if cached, ok := s.cachedVerification(ctx, code); ok {
		return cached, nil
	}

	var result joincode.Verification
	row, err := s.codes.FindByCode(ctx, code)
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		// Negative result; cached below like any other.
	case err != nil:
		return joincode.Verification{}, dErrors.Wrap(err, dErrors.CodeUnavailable, "code store unavailable")
	default:
		if row.VerifiableAt(requestcontext.Now(ctx)) {
			result.Valid = true
			result.SchoolID = row.SchoolID
		}
	}

	s.cacheVerification(ctx, code, result)
	return result, nil
}

// claimCode draws candidates from the generator until one survives the
// insert-if-absent write. Collisions are redrawn up to maxGenerateAttempts
// times; store failures abort immediately without retry.
func (s *CodeService) claimCode(ctx context.Context, build func(code string) (*models.AccessCode, error)) (string, error) {
	for attempt := 0; attempt < maxGenerateAttempts; attempt++ {
		candidate, err := s.generator.Generate()
		if err != nil {
			return "", err
		}
		row, err := build(candidate)
		if err != nil {
			return "", err
		}
		err = s.codes.CreateIfAvailable(ctx, row)
		if err == nil {
			return candidate, nil
		}
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			s.incrementCollisionRetries()
			continue
		}
		return "", dErrors.Wrap(err, dErrors.CodeUnavailable, "code store unavailable")
	}
	return "", dErrors.New(dErrors.CodeCodeSpaceExhausted, "all generated codes collided; code space is saturating")
}

func (s *CodeService) cachedVerification(ctx context.Context, code string) (joincode.Verification, bool) {
	if s.cache == nil {
		return joincode.Verification{}, false
	}
	v, err := s.cache.Get(ctx, code)
	if err != nil {
		s.logCacheError(ctx, "verification cache read failed", err)
		return joincode.Verification{}, false
	}
	if v == nil {
		s.incrementCacheMisses()
		return joincode.Verification{}, false
	}
	s.incrementCacheHits()
	return *v, true
}

func (s *CodeService) cacheVerification(ctx context.Context, code string, v joincode.Verification) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Put(ctx, code, v); err != nil {
		s.logCacheError(ctx, "verification cache write failed", err)
	}
}

func (s *CodeService) invalidateCached(ctx context.Context, code string) {
	if s.cache == nil || code == "" {
		return
	}
	if err := s.cache.Invalidate(ctx, code); err != nil {
		s.logCacheError(ctx, "verification cache invalidation failed", err)
	}
}

func (s *CodeService) logCacheError(ctx context.Context, msg string, err error) {
	if s.logger != nil {
		s.logger.WarnContext(ctx, msg, "error", err)
	}
}

func (s *CodeService) incrementCodesIssued() {
	if s.metrics != nil {
		s.metrics.IncrementCodesIssued()
	}
}

func (s *CodeService) incrementCodesRegenerated() {
	if s.metrics != nil {
		s.metrics.IncrementCodesRegenerated()
	}
}

func (s *CodeService) incrementCollisionRetries() {
	if s.metrics != nil {
		s.metrics.IncrementCollisionRetries()
	}
}

func (s *CodeService) incrementSwapConflicts() {
	if s.metrics != nil {
		s.metrics.IncrementSwapConflicts()
	}
}

func (s *CodeService) incrementCacheHits() {
	if s.metrics != nil {
		s.metrics.IncrementCacheHits()
	}
}

func (s *CodeService) incrementCacheMisses() {
	if s.metrics != nil {
		s.metrics.IncrementCacheMisses()
	}
}

func (s *CodeService) observeVerify(start time.Time) {
	if s.metrics != nil {
		s.metrics.ObserveVerify(start)
	}
}
