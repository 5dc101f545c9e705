// Package service issues and accepts invitations into existing schools.
// Issuance is authorized against the issuer's stored assignment record;
// acceptance consumes the invitation with a conditional status flip so a
// code is spent exactly once however many acceptors race for it.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	invmetrics "homeroom/internal/invitation/metrics"
	invmodels "homeroom/internal/invitation/models"
	"homeroom/internal/joincode"
	membermodels "homeroom/internal/member/models"
	"homeroom/internal/sentinel"
	id "homeroom/pkg/domain"
	dErrors "homeroom/pkg/domain-errors"
	"homeroom/pkg/requestcontext"
)

// maxGenerateAttempts bounds collision redraws before issuance fails
// with code_space_exhausted. Invitations share the join-code alphabet,
// so the same saturation math applies.
const maxGenerateAttempts = 5

// IssueInvitation describes an invitation to create.
type IssueInvitation struct {
	SchoolID id.SchoolID
	IssuerID id.IdentityID
	Mode     invmodels.InviteMode
	Email    string
	Role     id.Role
}

// IssuedInvitation is returned once the invitation row is claimed. Link
// is set only for email-mode invitations when a signer is configured.
type IssuedInvitation struct {
	Code      string
	ExpiresAt time.Time
	Link      string
}

// AcceptInvitation identifies the invitation being consumed and who is
// consuming it. Exactly one of Code and Token is set; Token is the
// signed form carried by emailed links.
type AcceptInvitation struct {
	Code        string
	Token       string
	IdentityID  id.IdentityID
	DisplayName string
}

// AcceptedInvitation reports the membership the acceptor was granted.
type AcceptedInvitation struct {
	SchoolID id.SchoolID
	Role     id.Role
}

// InvitationService owns the invitation lifecycle for provisioned
// schools.
type InvitationService struct {
	invites      InviteStore
	schools      SchoolStore
	profiles     ProfileStore
	assignments  AssignmentStore
	generator    joincode.Generator
	signer       LinkSigner
	auditEmitter *auditEmitter
	logger       *slog.Logger
	metrics      *invmetrics.Metrics
}

func New(invites InviteStore, schools SchoolStore, profiles ProfileStore, assignments AssignmentStore, opts ...Option) *InvitationService {
	cfg := &serviceConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	generator := cfg.generator
	if generator == nil {
		generator = joincode.NewGenerator()
	}
	return &InvitationService{
		invites:      invites,
		schools:      schools,
		profiles:     profiles,
		assignments:  assignments,
		generator:    generator,
		signer:       cfg.signer,
		auditEmitter: newAuditEmitter(cfg.logger, cfg.auditPublisher),
		logger:       cfg.logger,
		metrics:      cfg.metrics,
	}
}

// Issue creates a pending invitation for an existing school. The issuer
// must hold a teacher record there; the stored assignment is the
// authority, never caller-supplied role claims. Any number of
// invitations may be pending per school at once.
func (s *InvitationService) Issue(ctx context.Context, cmd IssueInvitation) (*IssuedInvitation, error) {
	if err := s.validateIssue(&cmd); err != nil {
		return nil, err
	}

	school, err := s.schools.FindByID(ctx, cmd.SchoolID)
	if err != nil {
		return nil, wrapSchoolErr(err)
	}
	if !school.IsActive() {
		return nil, dErrors.New(dErrors.CodeConflict, "school is inactive")
	}

	if err := s.authorizeIssuer(ctx, cmd.IssuerID, cmd.SchoolID); err != nil {
		return nil, err
	}

	var email *string
	if cmd.Mode == invmodels.InviteModeEmail {
		email = &cmd.Email
	}

	now := requestcontext.Now(ctx)
	invite, err := s.claimInvite(ctx, func(code string) (*invmodels.InvitationCode, error) {
		return invmodels.NewInvitation(id.InviteID(uuid.New()), code, cmd.SchoolID, cmd.IssuerID, cmd.Role, email, now)
	})
	if err != nil {
		return nil, err
	}

	result := &IssuedInvitation{Code: invite.Code, ExpiresAt: invite.ExpiresAt}
	if cmd.Mode == invmodels.InviteModeEmail && s.signer != nil {
		token, err := s.signer.Sign(invite)
		if err != nil {
			// The invitation row stands either way; a link that could
			// not be signed just means the recipient types the code.
			s.logWarn(ctx, "invitation link not signed", err)
		} else {
			result.Link = s.signer.BuildURL(token)
		}
	}

	s.auditEmitter.emitInviteIssued(ctx, invmodels.InviteIssued{
		SchoolID: cmd.SchoolID,
		IssuedBy: cmd.IssuerID,
		Mode:     cmd.Mode,
		Role:     cmd.Role,
	})
	s.incrementInvitesIssued(string(cmd.Mode))
	return result, nil
}

// Accept consumes an invitation and enrolls the accepting identity. The
// pending -> accepted flip is a single conditional write: of two racing
// acceptors exactly one wins, the other gets already_accepted. Member
// rows created after the flip are compensated in reverse order if a
// later write fails.
func (s *InvitationService) Accept(ctx context.Context, cmd AcceptInvitation) (*AcceptedInvitation, error) {
	if cmd.IdentityID.IsNil() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "identity ID required")
	}

	now := requestcontext.Now(ctx)
	code, err := s.resolveCode(cmd, now)
	if err != nil {
		return nil, err
	}

	invite, err := s.invites.FindByCode(ctx, code)
	if err != nil {
		return nil, wrapInviteErr(err)
	}
	if invite.Status == invmodels.InviteStatusAccepted {
		return nil, dErrors.New(dErrors.CodeAlreadyAccepted, "invitation was already accepted")
	}
	if !invite.AcceptableAt(now) {
		return nil, dErrors.New(dErrors.CodeInvalidOrExpiredCode, "invitation is invalid or expired")
	}

	if _, err := s.profiles.FindByIdentityAndSchool(ctx, cmd.IdentityID, invite.SchoolID); err == nil {
		return nil, dErrors.New(dErrors.CodeConflict, "identity already holds a profile in this school")
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "profile store unavailable")
	}

	if err := s.invites.MarkAccepted(ctx, code, cmd.IdentityID, now); err != nil {
		if errors.Is(err, sentinel.ErrVersionConflict) {
			s.incrementAcceptConflicts()
			return nil, dErrors.New(dErrors.CodeAlreadyAccepted, "invitation was already accepted")
		}
		return nil, wrapInviteErr(err)
	}

	if err := s.enroll(ctx, invite, cmd, now); err != nil {
		// The flip is this call's own partial work; reopen the
		// invitation before reporting failure so the code is not burned.
		if reopenErr := s.invites.Reopen(ctx, code); reopenErr != nil {
			s.logWarn(ctx, "invitation left accepted after failed enrollment", reopenErr)
		}
		return nil, err
	}

	s.auditEmitter.emitInviteAccepted(ctx, invmodels.InviteAccepted{
		SchoolID:   invite.SchoolID,
		AcceptedBy: cmd.IdentityID,
		Role:       invite.Role,
	})
	s.incrementInvitesAccepted()
	return &AcceptedInvitation{SchoolID: invite.SchoolID, Role: invite.Role}, nil
}

func (s *InvitationService) validateIssue(cmd *IssueInvitation) error {
	if cmd.SchoolID.IsNil() {
		return dErrors.New(dErrors.CodeBadRequest, "school ID required")
	}
	if cmd.IssuerID.IsNil() {
		return dErrors.New(dErrors.CodeBadRequest, "issuer ID required")
	}
	if !cmd.Mode.IsValid() {
		return dErrors.New(dErrors.CodeBadRequest, "unknown invitation mode")
	}
	if !cmd.Role.Grantable() {
		return dErrors.New(dErrors.CodeBadRequest, "role cannot be granted by invitation")
	}
	cmd.Email = strings.ToLower(strings.TrimSpace(cmd.Email))
	if cmd.Mode == invmodels.InviteModeEmail && cmd.Email == "" {
		return dErrors.New(dErrors.CodeBadRequest, "email is required for email invitations")
	}
	if cmd.Mode == invmodels.InviteModeOpen && cmd.Email != "" {
		return dErrors.New(dErrors.CodeBadRequest, "open invitations cannot carry an email")
	}
	return nil
}

// authorizeIssuer checks that the issuer holds an inviting role in the
// school, backed by an actual teacher record. Admins are stored as
// supervising teachers, so one lookup covers both roles.
func (s *InvitationService) authorizeIssuer(ctx context.Context, issuerID id.IdentityID, schoolID id.SchoolID) error {
	profile, err := s.profiles.FindByIdentityAndSchool(ctx, issuerID, schoolID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeForbidden, "issuer is not a member of this school")
	}
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "profile store unavailable")
	}
	if !profile.Role.CanInvite() {
		return dErrors.New(dErrors.CodeForbidden, "issuer may not invite members")
	}
	if _, err := s.assignments.FindTeacherByProfile(ctx, profile.ID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			// A profile without its assignment row marks a provisioning
			// run that never finished; it grants nothing.
			return dErrors.New(dErrors.CodeForbidden, "issuer has no active assignment")
		}
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "assignment store unavailable")
	}
	return nil
}

// resolveCode normalizes the raw code or unwraps a signed link token.
func (s *InvitationService) resolveCode(cmd AcceptInvitation, now time.Time) (string, error) {
	if cmd.Token != "" {
		if s.signer == nil {
			return "", dErrors.New(dErrors.CodeBadRequest, "invitation links are not supported")
		}
		return s.signer.Parse(cmd.Token, now)
	}
	code := strings.ToUpper(strings.TrimSpace(cmd.Code))
	if code == "" {
		return "", dErrors.New(dErrors.CodeBadRequest, "code or token is required")
	}
	return code, nil
}

// enroll creates the acceptor's profile and role record. On a failed
// role record the profile is taken back out; the caller reopens the
// invitation.
func (s *InvitationService) enroll(ctx context.Context, invite *invmodels.InvitationCode, cmd AcceptInvitation, now time.Time) error {
	displayName := resolveDisplayName(cmd.DisplayName, invite.Email)
	profile, err := membermodels.NewProfile(id.ProfileID(uuid.New()), cmd.IdentityID, invite.SchoolID, invite.Role, displayName, now)
	if err != nil {
		return err
	}
	if err := s.profiles.Create(ctx, profile); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			return dErrors.New(dErrors.CodeConflict, "identity already holds a profile in this school")
		}
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "profile store unavailable")
	}

	if err := s.createRoleRecord(ctx, profile, invite.Role, now); err != nil {
		if delErr := s.profiles.Delete(ctx, profile.ID); delErr != nil {
			s.logWarn(ctx, "profile left behind after failed role record", delErr)
		}
		return err
	}
	return nil
}

func (s *InvitationService) createRoleRecord(ctx context.Context, profile *membermodels.ProfileRecord, role id.Role, now time.Time) error {
	switch role {
	case id.RoleTeacher:
		rec, err := membermodels.NewTeacherRecord(profile.ID, profile.SchoolID, false, now)
		if err != nil {
			return err
		}
		if err := s.assignments.CreateTeacher(ctx, rec); err != nil {
			return dErrors.Wrap(err, dErrors.CodeUnavailable, "assignment store unavailable")
		}
	case id.RoleStudent:
		rec, err := membermodels.NewStudentRecord(profile.ID, profile.SchoolID, now)
		if err != nil {
			return err
		}
		if err := s.assignments.CreateStudent(ctx, rec); err != nil {
			return dErrors.Wrap(err, dErrors.CodeUnavailable, "assignment store unavailable")
		}
	default:
		return dErrors.New(dErrors.CodeInvariantViolation, "role cannot be granted by invitation")
	}
	return nil
}

// claimInvite draws candidates from the generator until one survives the
// insert-if-absent write. Collisions are redrawn up to maxGenerateAttempts
// times; store failures abort immediately without retry.
func (s *InvitationService) claimInvite(ctx context.Context, build func(code string) (*invmodels.InvitationCode, error)) (*invmodels.InvitationCode, error) {
	for attempt := 0; attempt < maxGenerateAttempts; attempt++ {
		candidate, err := s.generator.Generate()
		if err != nil {
			return nil, err
		}
		invite, err := build(candidate)
		if err != nil {
			return nil, err
		}
		err = s.invites.ClaimIfAvailable(ctx, invite)
		if err == nil {
			return invite, nil
		}
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			s.incrementCollisionRetries()
			continue
		}
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "invitation store unavailable")
	}
	return nil, dErrors.New(dErrors.CodeCodeSpaceExhausted, "all generated codes collided; code space is saturating")
}

func (s *InvitationService) logWarn(ctx context.Context, msg string, err error) {
	if s.logger != nil {
		s.logger.WarnContext(ctx, msg, "error", err)
	}
}

func (s *InvitationService) incrementInvitesIssued(mode string) {
	if s.metrics != nil {
		s.metrics.IncrementInvitesIssued(mode)
	}
}

func (s *InvitationService) incrementInvitesAccepted() {
	if s.metrics != nil {
		s.metrics.IncrementInvitesAccepted()
	}
}

func (s *InvitationService) incrementAcceptConflicts() {
	if s.metrics != nil {
		s.metrics.IncrementAcceptConflicts()
	}
}

func (s *InvitationService) incrementCollisionRetries() {
	if s.metrics != nil {
		s.metrics.IncrementCollisionRetries()
	}
}

// resolveDisplayName picks the display name with explicit precedence:
// what the acceptor asked for, then the invited address's local part,
// then a placeholder the member can edit later.
func resolveDisplayName(requested string, email *string) string {
	if name := strings.TrimSpace(requested); name != "" {
		return name
	}
	if email != nil {
		if local, _, ok := strings.Cut(*email, "@"); ok && local != "" {
			return local
		}
	}
	return "New member"
}
