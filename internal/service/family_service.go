package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"piggybank/internal/credentials"
	"piggybank/internal/database"
	"piggybank/internal/log"
	"piggybank/internal/models"
	"piggybank/internal/repository"
	"piggybank/internal/security"
	"piggybank/internal/validation"
)

// maxUsernameAttempts bounds retries when a generated child username collides
const maxUsernameAttempts = 5

// CreateChildInput holds the fields of a new child. Username and PIN are
// generated when left empty.
type CreateChildInput struct {
	Username string
	Name     string
	PIN      string
	Avatar   string
	Age      *int
}

// CreatedChild is a new child plus the PIN that was generated for it, if any.
// The generated PIN is only ever returned here.
type CreatedChild struct {
	Child        *models.Child
	GeneratedPIN string
}

// FamilyOverview is a family with its parents
type FamilyOverview struct {
	Family  *models.Family
	Parents []models.Parent
}

// FamilyService handles family and child business logic
type FamilyService struct {
	families *repository.FamilyRepository
	parents  *repository.ParentRepository
	children *repository.ChildRepository
	pins     security.Hasher
	logger   *log.Logger
	now      Clock
}

// NewFamilyService creates a new family service
func NewFamilyService(db *database.DB, pins security.Hasher, logger *log.Logger) *FamilyService {
	return &FamilyService{
		families: repository.NewFamilyRepository(db),
		parents:  repository.NewParentRepository(db),
		children: repository.NewChildRepository(db),
		pins:     pins,
		logger:   logger.WithComponent(log.ComponentMembership),
		now:      SystemClock,
	}
}

// GetFamily returns the caller's family and its parents
func (s *FamilyService) GetFamily(ctx context.Context, p models.Principal) (*FamilyOverview, error) {
	if err := requireParent(p); err != nil {
		return nil, err
	}

	family, err := s.families.GetFamilyByID(ctx, p.FamilyID)
	if err != nil {
		return nil, err
	}
	if family == nil {
		return nil, ErrFamilyNotFound
	}

	parents, err := s.parents.GetFamilyParents(ctx, p.FamilyID)
	if err != nil {
		return nil, err
	}

	return &FamilyOverview{Family: family, Parents: parents}, nil
}

// ListChildren returns all children in the caller's family
func (s *FamilyService) ListChildren(ctx context.Context, p models.Principal) ([]models.Child, error) {
	if err := requireParent(p); err != nil {
		return nil, err
	}
	return s.children.GetFamilyChildren(ctx, p.FamilyID)
}

// GetChild returns one child of the caller's family. Children of other
// families are reported as not found.
func (s *FamilyService) GetChild(ctx context.Context, p models.Principal, childID int64) (*models.Child, error) {
	if err := requireParent(p); err != nil {
		return nil, err
	}

	child, err := s.children.GetFamilyChild(ctx, childID, p.FamilyID)
	if err != nil {
		return nil, err
	}
	if child == nil {
		return nil, ErrChildNotFound
	}
	return child, nil
}

// CreateChild adds a child with a zero balance to the caller's family
func (s *FamilyService) CreateChild(ctx context.Context, p models.Principal, in CreateChildInput) (*CreatedChild, error) {
	if err := requireParent(p); err != nil {
		return nil, err
	}

	in.Name = strings.TrimSpace(in.Name)
	in.Username = strings.TrimSpace(in.Username)
	in.Avatar = strings.TrimSpace(in.Avatar)

	if err := validation.ValidateName("name", in.Name); err != nil {
		return nil, err
	}
	if in.Username != "" {
		if err := validation.ValidateUsername(in.Username); err != nil {
			return nil, err
		}
	}
	if err := validation.ValidateAvatar(in.Avatar); err != nil {
		return nil, err
	}
	if err := validation.ValidateAge(in.Age); err != nil {
		return nil, err
	}

	generatedPIN := ""
	if in.PIN == "" {
		pin, err := credentials.GeneratePIN()
		if err != nil {
			return nil, fmt.Errorf("failed to generate pin: %w", err)
		}
		in.PIN = pin
		generatedPIN = pin
	} else if err := validation.ValidatePIN(in.PIN); err != nil {
		return nil, err
	}

	pinHash, err := s.pins.Hash(in.PIN)
	if err != nil {
		return nil, fmt.Errorf("failed to hash pin: %w", err)
	}

	child, err := s.insertChild(ctx, p.FamilyID, in, pinHash)
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "child created",
		log.FieldFamilyID, p.FamilyID,
		log.FieldChildID, child.ID,
		log.FieldParentID, p.ID,
	)

	return &CreatedChild{Child: child, GeneratedPIN: generatedPIN}, nil
}

// insertChild creates the row, regenerating the username on collision
// when the caller did not choose one.
func (s *FamilyService) insertChild(ctx context.Context, familyID int64, in CreateChildInput, pinHash string) (*models.Child, error) {
	chosen := in.Username != ""

	for attempt := 0; attempt < maxUsernameAttempts; attempt++ {
		username := in.Username
		if !chosen {
			generated, err := credentials.GenerateChildUsername()
			if err != nil {
				return nil, fmt.Errorf("failed to generate username: %w", err)
			}
			username = generated
		}

		child, err := s.children.CreateChild(ctx, familyID, username, in.Name, pinHash, in.Avatar, in.Age, s.now())
		if err == nil {
			return child, nil
		}
		if !errors.Is(err, repository.ErrDuplicate) {
			return nil, err
		}
		if chosen {
			return nil, ErrUsernameTaken
		}
	}

	return nil, fmt.Errorf("failed to generate a free username after %d attempts", maxUsernameAttempts)
}

// UpdateChild edits the profile fields of a child in the caller's family
func (s *FamilyService) UpdateChild(ctx context.Context, p models.Principal, childID int64, update models.ChildUpdate) (*models.Child, error) {
	if err := requireParent(p); err != nil {
		return nil, err
	}

	if update.Name != nil {
		name := strings.TrimSpace(*update.Name)
		if err := validation.ValidateName("name", name); err != nil {
			return nil, err
		}
		update.Name = &name
	}
	if update.Avatar != nil {
		avatar := strings.TrimSpace(*update.Avatar)
		if err := validation.ValidateAvatar(avatar); err != nil {
			return nil, err
		}
		update.Avatar = &avatar
	}
	if err := validation.ValidateAge(update.Age); err != nil {
		return nil, err
	}

	if !update.IsEmpty() {
		ok, err := s.children.UpdateChildProfile(ctx, childID, p.FamilyID, update, s.now())
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, ErrChildNotFound
		}
	}

	return s.GetChild(ctx, p, childID)
}
