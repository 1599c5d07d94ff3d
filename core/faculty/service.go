package faculty

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/marksheet/core"
	"github.com/trezcool/marksheet/core/auth"
)

var (
	// errors
	ErrNotFound           = errors.New("faculty not found")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmployeeIDExists   = errors.New("a faculty with this employee id already exists")
)

type (
	Repository interface {
		// GetFacultyByEmail returns the Faculty with its Assignments loaded.
		GetFacultyByEmail(ctx context.Context, email string, exec ...core.DBExecutor) (Faculty, error)
		UpdateOrCreateFaculty(ctx context.Context, f Faculty, exec ...core.DBExecutor) (Faculty, error)
		AddAssignment(ctx context.Context, facultyID string, a Assignment, exec ...core.DBExecutor) error
		RemoveAssignment(ctx context.Context, facultyID string, a Assignment, exec ...core.DBExecutor) error
	}

	TokenService interface {
		Issue(email string) (auth.Token, error)
		Verify(token string) (string, error)
	}

	Service struct {
		repo   Repository
		tokens TokenService
		hasher Hasher
	}
)

func NewService(repo Repository, tokens TokenService, hasher Hasher) *Service {
	return &Service{repo: repo, tokens: tokens, hasher: hasher}
}

// Login checks the credentials and issues a token for the Faculty.
// Unknown emails and wrong passwords both fail with ErrInvalidCredentials.
func (svc *Service) Login(ctx context.Context, email, pwd string) (auth.Token, Faculty, error) {
	f, err := svc.repo.GetFacultyByEmail(ctx, core.CleanString(email))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			if b, ok := svc.hasher.(interface{ burn(string) }); ok {
				b.burn(pwd)
			}
			return auth.Token{}, Faculty{}, ErrInvalidCredentials
		}
		return auth.Token{}, Faculty{}, errors.Wrap(err, "finding faculty by email")
	}
	if !svc.hasher.Verify(pwd, f.PasswordHash) {
		return auth.Token{}, Faculty{}, ErrInvalidCredentials
	}

	token, err := svc.tokens.Issue(f.Email)
	if err != nil {
		return auth.Token{}, Faculty{}, errors.Wrap(err, "issuing token")
	}
	return token, f, nil
}

// Resolve verifies the bearer token and loads the Faculty it was issued for.
// It fails with auth.ErrInvalidToken, auth.ErrExpiredToken or ErrNotFound (faculty removed since).
func (svc *Service) Resolve(ctx context.Context, token string) (Faculty, error) {
	email, err := svc.tokens.Verify(token)
	if err != nil {
		return Faculty{}, err
	}
	f, err := svc.repo.GetFacultyByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Faculty{}, ErrNotFound
		}
		return Faculty{}, errors.Wrap(err, "finding faculty by email")
	}
	return f, nil
}

func (svc *Service) GetByEmail(ctx context.Context, email string) (Faculty, error) {
	return svc.repo.GetFacultyByEmail(ctx, core.CleanString(email))
}

// Register updates the Faculty with the given email or creates it.
func (svc *Service) Register(ctx context.Context, nf NewFaculty) (Faculty, error) {
	f, err := svc.repo.GetFacultyByEmail(ctx, nf.Email)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return Faculty{}, errors.Wrap(err, "finding faculty by email")
	}
	f.Name = nf.Name
	f.Email = nf.Email
	f.EmployeeID = nf.EmployeeID
	if f.PasswordHash, err = svc.hasher.Hash(nf.Password); err != nil {
		return Faculty{}, errors.Wrap(err, "hashing password")
	}
	return svc.repo.UpdateOrCreateFaculty(ctx, f)
}

func (svc *Service) Assign(ctx context.Context, email string, a Assignment) (Faculty, error) {
	f, err := svc.GetByEmail(ctx, email)
	if err != nil {
		return Faculty{}, err
	}
	if f.IsAssignedTo(a.ClassName, a.Subject) {
		return f, nil
	}
	if err = svc.repo.AddAssignment(ctx, f.ID, a); err != nil {
		return Faculty{}, errors.Wrap(err, "adding assignment")
	}
	return svc.GetByEmail(ctx, email)
}

func (svc *Service) Unassign(ctx context.Context, email string, a Assignment) (Faculty, error) {
	f, err := svc.GetByEmail(ctx, email)
	if err != nil {
		return Faculty{}, err
	}
	if err = svc.repo.RemoveAssignment(ctx, f.ID, a); err != nil {
		return Faculty{}, errors.Wrap(err, "removing assignment")
	}
	return svc.GetByEmail(ctx, email)
}
