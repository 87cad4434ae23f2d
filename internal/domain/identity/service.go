package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/nidipo/portal/internal/platform/auth"
)

// resetTTL bounds how long a password-reset link stays usable.
const resetTTL = time.Hour

// TxRunner executes fn inside a database transaction. A nil runner executes
// fn directly, which keeps the in-memory test repositories simple.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type Service struct {
	profiles    ProfileRepository
	invitations InvitationRepository
	resets      PasswordResetRepository
	tokens      *auth.TokenService
	tx          TxRunner
	baseURL     string
}

func NewService(profiles ProfileRepository, invitations InvitationRepository, resets PasswordResetRepository, tokens *auth.TokenService, tx TxRunner, baseURL string) *Service {
	return &Service{
		profiles:    profiles,
		invitations: invitations,
		resets:      resets,
		tokens:      tokens,
		tx:          tx,
		baseURL:     strings.TrimRight(baseURL, "/"),
	}
}

func (s *Service) runInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.tx == nil {
		return fn(ctx)
	}
	return s.tx.RunInTx(ctx, fn)
}

// -- Auth --

// AdminRegistered reports whether at least one administrator account exists.
// The client shows the bootstrap form until this turns true.
func (s *Service) AdminRegistered(ctx context.Context) (bool, error) {
	n, err := s.profiles.CountByRole(ctx, auth.RoleAdmin)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Bootstrap creates the very first administrator. It refuses to run once any
// admin exists, so the endpoint cannot be used to escalate later.
func (s *Service) Bootstrap(ctx context.Context, name, email, password string) (*Profile, string, error) {
	name, email = strings.TrimSpace(name), strings.TrimSpace(email)
	if name == "" || email == "" {
		return nil, "", fmt.Errorf("name and email are required")
	}
	if err := auth.ValidatePassword(password); err != nil {
		return nil, "", err
	}

	var p *Profile
	err := s.runInTx(ctx, func(ctx context.Context) error {
		registered, err := s.AdminRegistered(ctx)
		if err != nil {
			return err
		}
		if registered {
			return ErrAdminTaken
		}
		hash, err := auth.HashPassword(password)
		if err != nil {
			return err
		}
		p = &Profile{Name: name, Email: email, Role: auth.RoleAdmin, PasswordHash: hash}
		return s.profiles.Create(ctx, p)
	})
	if err != nil {
		return nil, "", err
	}
	token, err := s.tokens.Issue(p.ID, p.Name, p.Role, p.CenterID)
	if err != nil {
		return nil, "", err
	}
	return p, token, nil
}

// Login verifies credentials and issues a session token. Unknown email and
// wrong password are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, email, password string) (*Profile, string, error) {
	p, err := s.profiles.GetByEmail(ctx, strings.TrimSpace(email))
	if errors.Is(err, ErrNotFound) {
		return nil, "", ErrBadLogin
	}
	if err != nil {
		return nil, "", err
	}
	if !auth.VerifyPassword(p.PasswordHash, password) {
		return nil, "", ErrBadLogin
	}
	token, err := s.tokens.Issue(p.ID, p.Name, p.Role, p.CenterID)
	if err != nil {
		return nil, "", err
	}
	return p, token, nil
}

// GetProfile returns a profile by id.
func (s *Service) GetProfile(ctx context.Context, id uuid.UUID) (*Profile, error) {
	return s.profiles.GetByID(ctx, id)
}

// -- Invitations --

// Invite records a pending account and returns the signup link the admin
// hands to the invitee.
func (s *Service) Invite(ctx context.Context, email, role string, centerID *int64) (*Invitation, string, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, "", fmt.Errorf("email is required")
	}
	if role != auth.RoleAdmin && role != auth.RoleUser {
		return nil, "", fmt.Errorf("role must be admin or user")
	}
	if role == auth.RoleUser && centerID == nil {
		return nil, "", fmt.Errorf("a center is required for non-admin users")
	}
	if _, err := s.profiles.GetByEmail(ctx, email); err == nil {
		return nil, "", ErrDuplicate
	} else if !errors.Is(err, ErrNotFound) {
		return nil, "", err
	}

	inv := &Invitation{Email: email, Role: role, CenterID: centerID, Token: uuid.New()}
	if err := s.invitations.Create(ctx, inv); err != nil {
		return nil, "", err
	}
	return inv, s.inviteLink(inv.Token), nil
}

func (s *Service) inviteLink(token uuid.UUID) string {
	return fmt.Sprintf("%s/#/?token=%s", s.baseURL, token)
}

// GetInvitation resolves an invitation token. Invitees hit this before they
// have an account, so it carries no auth.
func (s *Service) GetInvitation(ctx context.Context, token uuid.UUID) (*Invitation, error) {
	return s.invitations.GetByToken(ctx, token)
}

func (s *Service) ListInvitations(ctx context.Context) ([]*Invitation, error) {
	return s.invitations.List(ctx)
}

func (s *Service) DeleteInvitation(ctx context.Context, id uuid.UUID) error {
	return s.invitations.Delete(ctx, id)
}

// Signup redeems an invitation: the new profile inherits the invitation's
// email, role, and center, and the invitation is consumed in the same
// transaction.
func (s *Service) Signup(ctx context.Context, token uuid.UUID, name, password string) (*Profile, string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, "", fmt.Errorf("name is required")
	}
	if err := auth.ValidatePassword(password); err != nil {
		return nil, "", err
	}

	var p *Profile
	err := s.runInTx(ctx, func(ctx context.Context) error {
		inv, err := s.invitations.GetByToken(ctx, token)
		if errors.Is(err, ErrNotFound) {
			return ErrBadToken
		}
		if err != nil {
			return err
		}
		hash, err := auth.HashPassword(password)
		if err != nil {
			return err
		}
		p = &Profile{Name: name, Email: inv.Email, Role: inv.Role, CenterID: inv.CenterID, PasswordHash: hash}
		if err := s.profiles.Create(ctx, p); err != nil {
			return err
		}
		return s.invitations.Delete(ctx, inv.ID)
	})
	if err != nil {
		return nil, "", err
	}
	sessionToken, err := s.tokens.Issue(p.ID, p.Name, p.Role, p.CenterID)
	if err != nil {
		return nil, "", err
	}
	return p, sessionToken, nil
}

// -- User administration --

func (s *Service) ListProfiles(ctx context.Context, limit, offset int) ([]*Profile, int, error) {
	return s.profiles.List(ctx, limit, offset)
}

// UpdateProfile changes a user's name, role, or center assignment.
func (s *Service) UpdateProfile(ctx context.Context, p *Profile) error {
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return fmt.Errorf("name is required")
	}
	if p.Role != auth.RoleAdmin && p.Role != auth.RoleUser {
		return fmt.Errorf("role must be admin or user")
	}
	if p.Role == auth.RoleUser && p.CenterID == nil {
		return fmt.Errorf("a center is required for non-admin users")
	}
	return s.profiles.Update(ctx, p)
}

// DeleteUser removes an account. Admins cannot delete themselves, and the
// last administrator cannot be removed.
func (s *Service) DeleteUser(ctx context.Context, actorID, id uuid.UUID) error {
	if actorID == id {
		return fmt.Errorf("cannot delete your own account")
	}
	return s.runInTx(ctx, func(ctx context.Context) error {
		p, err := s.profiles.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if p.Role == auth.RoleAdmin {
			n, err := s.profiles.CountByRole(ctx, auth.RoleAdmin)
			if err != nil {
				return err
			}
			if n <= 1 {
				return fmt.Errorf("cannot delete the last administrator")
			}
		}
		if err := s.resets.DeleteByUser(ctx, id); err != nil {
			return err
		}
		return s.profiles.Delete(ctx, id)
	})
}

// -- Password reset --

// RequestReset creates a reset token for the given email. It reports success
// whether or not the account exists, so the endpoint cannot be used to probe
// for registered emails. Without an outbound mailer the link is written to
// the server log for an operator to relay.
func (s *Service) RequestReset(ctx context.Context, email string) error {
	p, err := s.profiles.GetByEmail(ctx, strings.TrimSpace(email))
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	pr := &PasswordReset{
		UserID:    p.ID,
		Token:     uuid.New(),
		ExpiresAt: time.Now().Add(resetTTL),
	}
	if err := s.resets.Create(ctx, pr); err != nil {
		return err
	}
	log.Info().
		Str("email", p.Email).
		Str("link", fmt.Sprintf("%s/#/reset?token=%s", s.baseURL, pr.Token)).
		Msg("password reset link generated")
	return nil
}

// ResetPassword consumes a reset token and sets the new password.
func (s *Service) ResetPassword(ctx context.Context, token uuid.UUID, password string) error {
	if err := auth.ValidatePassword(password); err != nil {
		return err
	}
	return s.runInTx(ctx, func(ctx context.Context) error {
		pr, err := s.resets.GetByToken(ctx, token)
		if errors.Is(err, ErrNotFound) {
			return ErrBadToken
		}
		if err != nil {
			return err
		}
		if time.Now().After(pr.ExpiresAt) {
			// Expired tokens are junk either way; clean up eagerly.
			_ = s.resets.Delete(ctx, pr.ID)
			return ErrBadToken
		}
		hash, err := auth.HashPassword(password)
		if err != nil {
			return err
		}
		if err := s.profiles.UpdatePassword(ctx, pr.UserID, hash); err != nil {
			return err
		}
		return s.resets.Delete(ctx, pr.ID)
	})
}
