package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aussiebroadwan/agentauth/internal/auth/domain"
	"github.com/aussiebroadwan/agentauth/internal/auth/store"
	"github.com/aussiebroadwan/agentauth/pkg/idx"
)

// UserStore is the user collaborator the session manager needs: find or
// create an account by email.
type UserStore interface {
	UpsertByEmail(ctx context.Context, p domain.Profile) (domain.User, error)
}

type UserService struct {
	Store store.Store
}

var _ UserStore = (*UserService)(nil)

// GetUserByID fetches a user by id.
func (s *UserService) GetUserByID(ctx context.Context, userID string) (domain.User, error) {
	return s.Store.Users().GetUserByID(ctx, userID)
}

// UpsertByEmail returns the user with the profile's email, creating it when
// absent. A non-empty provider name or picture refreshes the stored profile.
func (s *UserService) UpsertByEmail(ctx context.Context, p domain.Profile) (domain.User, error) {
	email := strings.ToLower(strings.TrimSpace(p.Email))
	if email == "" {
		return domain.User{}, ErrEmailRequired
	}

	var user domain.User
	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		existing, err := tx.Users().GetUserByEmail(ctx, email)
		switch {
		case err == nil:
			user = existing
			if (p.Name != "" && p.Name != existing.Name) || (p.Picture != "" && p.Picture != existing.Picture) {
				name, picture := pick(p.Name, existing.Name), pick(p.Picture, existing.Picture)
				if err := tx.Users().UpdateProfile(ctx, existing.ID, name, picture); err != nil {
					return fmt.Errorf("update profile: %w", err)
				}
				user.Name, user.Picture = name, picture
			}
			return nil
		case errors.Is(err, store.ErrNotFound):
			user = domain.User{
				ID:      idx.New().String(),
				Email:   email,
				Name:    p.Name,
				Picture: p.Picture,
			}
			return tx.Users().CreateUser(ctx, user)
		default:
			return err
		}
	})
	if err != nil {
		return domain.User{}, fmt.Errorf("upsert user: %w", err)
	}
	return user, nil
}

func pick(preferred, fallback string) string {
	if preferred != "" {
		return preferred
	}
	return fallback
}
