package application

import (
	"context"
	"net/mail"
	"strings"

	"github.com/amir0eveloper/rdmc-srshb/internal/domain"
)

type UserInput struct {
	Name     string      `json:"name"`
	Email    string      `json:"email"`
	Username string      `json:"username"`
	Password string      `json:"password"`
	Role     domain.Role `json:"role"`
}

// UserUpdate changes the set fields only. A non-nil Password resets it.
type UserUpdate struct {
	Name     *string      `json:"name"`
	Email    *string      `json:"email"`
	Username *string      `json:"username"`
	Password *string      `json:"password"`
	Role     *domain.Role `json:"role"`
}

func (s *Service) ListUsers(ctx context.Context, actor *domain.Identity, query string, limit int) ([]domain.User, error) {
	if err := domain.Authorize(actor, 0, domain.ActionManageUsers); err != nil {
		return nil, err
	}
	return s.repo.ListUsers(ctx, query, clampLimit(limit, 100, 1000))
}

func (s *Service) GetUser(ctx context.Context, actor *domain.Identity, id uint) (domain.User, error) {
	if err := domain.Authorize(actor, 0, domain.ActionManageUsers); err != nil {
		return domain.User{}, err
	}
	return s.repo.GetUserByID(ctx, id)
}

func (s *Service) CreateUser(ctx context.Context, actor *domain.Identity, in UserInput) (domain.User, error) {
	if err := domain.Authorize(actor, 0, domain.ActionManageUsers); err != nil {
		return domain.User{}, err
	}
	u := domain.User{
		Name:     strings.TrimSpace(in.Name),
		Email:    strings.TrimSpace(in.Email),
		Username: strings.TrimSpace(in.Username),
		Role:     in.Role,
	}
	if u.Role == "" {
		u.Role = domain.RoleUser
	}
	if u.Username == "" || in.Password == "" {
		return domain.User{}, domain.ErrValidation.New("username and password are required")
	}
	if err := validateUser(u); err != nil {
		return domain.User{}, err
	}
	hash, err := hashPassword(in.Password)
	if err != nil {
		return domain.User{}, err
	}
	u.PasswordHash = hash
	created, err := s.repo.CreateUser(ctx, u)
	if err != nil {
		return domain.User{}, err
	}
	s.audit(ctx, actor, "user.create", "user", created.ID, string(created.Role))
	return created, nil
}

func (s *Service) UpdateUser(ctx context.Context, actor *domain.Identity, id uint, in UserUpdate) (domain.User, error) {
	if err := domain.Authorize(actor, 0, domain.ActionManageUsers); err != nil {
		return domain.User{}, err
	}
	u, err := s.repo.GetUserByID(ctx, id)
	if err != nil {
		return domain.User{}, err
	}
	if in.Name != nil {
		u.Name = strings.TrimSpace(*in.Name)
	}
	if in.Email != nil {
		u.Email = strings.TrimSpace(*in.Email)
	}
	if in.Username != nil {
		u.Username = strings.TrimSpace(*in.Username)
		if u.Username == "" {
			return domain.User{}, domain.ErrValidation.New("username must not be empty")
		}
	}
	if in.Role != nil {
		u.Role = *in.Role
	}
	if err := validateUser(u); err != nil {
		return domain.User{}, err
	}
	if in.Password != nil {
		if *in.Password == "" {
			return domain.User{}, domain.ErrValidation.New("password must not be empty")
		}
		if u.PasswordHash, err = hashPassword(*in.Password); err != nil {
			return domain.User{}, err
		}
	}
	updated, err := s.repo.UpdateUser(ctx, u)
	if err != nil {
		return domain.User{}, err
	}
	s.audit(ctx, actor, "user.update", "user", id, string(updated.Role))
	return updated, nil
}

// DeleteUser refuses to delete the caller and anyone who still owns items.
func (s *Service) DeleteUser(ctx context.Context, actor *domain.Identity, id uint) error {
	if err := domain.Authorize(actor, 0, domain.ActionManageUsers); err != nil {
		return err
	}
	if actor.UserID == id {
		return domain.ErrValidation.New("cannot delete yourself")
	}
	err := s.repo.InTx(ctx, func(tx domain.Repository) error {
		if _, err := tx.GetUserByID(ctx, id); err != nil {
			return err
		}
		_, owned, err := tx.ListItems(ctx, domain.ItemFilter{SubmitterID: id, Limit: 1})
		if err != nil {
			return err
		}
		if owned > 0 {
			return domain.ErrValidation.New("user still owns %d items", owned)
		}
		return tx.DeleteUser(ctx, id)
	})
	if err != nil {
		return err
	}
	s.audit(ctx, actor, "user.delete", "user", id, "")
	return nil
}

func validateUser(u domain.User) error {
	if u.Email == "" {
		return domain.ErrValidation.New("email is required")
	}
	if _, err := mail.ParseAddress(u.Email); err != nil {
		return domain.ErrValidation.New("invalid email %q", u.Email)
	}
	if _, ok := domain.ParseRole(string(u.Role)); !ok {
		return domain.ErrValidation.New("unknown role %q", u.Role)
	}
	return nil
}
