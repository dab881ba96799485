package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"learnhub/internal/domain"
	"learnhub/internal/models"
	"learnhub/internal/repository"
	"learnhub/pkg/cloudinary"

	"gorm.io/gorm"
)

const avatarFolder = "learnhub/children"

var ErrUploadsDisabled = domain.Validation("image uploads are not configured")

type ChildService struct {
	db        *gorm.DB
	childRepo *repository.ChildProfileRepository
	ppRepo    *repository.PurchasedPlanRepository
	cloud     cloudinary.Client
	now       Clock
}

func NewChildService(db *gorm.DB, childRepo *repository.ChildProfileRepository, ppRepo *repository.PurchasedPlanRepository, cloud cloudinary.Client) *ChildService {
	return &ChildService{db: db, childRepo: childRepo, ppRepo: ppRepo, cloud: cloud, now: SystemClock}
}

func (s *ChildService) SetClock(c Clock) { s.now = c }

type ChildInput struct {
	Name        string `json:"name" binding:"required,max=128"`
	DateOfBirth string `json:"date_of_birth" binding:"omitempty,datetime=2006-01-02"`
	GradeLevel  string `json:"grade_level" binding:"omitempty,max=32"`
}

// ChildView is a child profile with its current plan resolved.
type ChildView struct {
	*models.ChildProfile
	CurrentPlan *models.PurchasedPlan `json:"current_plan"`
}

func (s *ChildService) view(c *models.ChildProfile) ChildView {
	return ChildView{ChildProfile: c, CurrentPlan: c.CurrentPlan(s.now())}
}

func (s *ChildService) Create(parentID uint, in ChildInput) (*ChildView, error) {
	c := &models.ChildProfile{ParentID: parentID}
	if err := applyChildInput(c, in); err != nil {
		return nil, err
	}
	if err := s.childRepo.Create(c); err != nil {
		return nil, err
	}
	v := s.view(c)
	return &v, nil
}

func (s *ChildService) List(parentID uint) ([]ChildView, error) {
	list, err := s.childRepo.ListByParent(parentID)
	if err != nil {
		return nil, err
	}
	out := make([]ChildView, len(list))
	for i := range list {
		out[i] = s.view(&list[i])
	}
	return out, nil
}

func (s *ChildService) get(parentID, id uint) (*models.ChildProfile, error) {
	c, err := s.childRepo.GetForParent(id, parentID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrChildNotFound
	}
	return c, err
}

func (s *ChildService) Get(parentID, id uint) (*ChildView, error) {
	c, err := s.get(parentID, id)
	if err != nil {
		return nil, err
	}
	v := s.view(c)
	return &v, nil
}

// CurrentPlan returns the child's active plan with the latest expiry, or nil.
func (s *ChildService) CurrentPlan(parentID, id uint) (*models.PurchasedPlan, error) {
	c, err := s.get(parentID, id)
	if err != nil {
		return nil, err
	}
	return c.CurrentPlan(s.now()), nil
}

func (s *ChildService) Update(parentID, id uint, in ChildInput) (*ChildView, error) {
	c, err := s.get(parentID, id)
	if err != nil {
		return nil, err
	}
	if err := applyChildInput(c, in); err != nil {
		return nil, err
	}
	if err := s.childRepo.Update(c); err != nil {
		return nil, err
	}
	v := s.view(c)
	return &v, nil
}

// Delete removes the profile and releases its plans back to the parent.
func (s *ChildService) Delete(ctx context.Context, parentID, id uint) error {
	c, err := s.get(parentID, id)
	if err != nil {
		return err
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.ppRepo.WithTx(tx).UnassignChild(c.ID); err != nil {
			return err
		}
		return s.childRepo.WithTx(tx).Delete(c.ID)
	})
	if err != nil {
		return err
	}
	if s.cloud != nil && c.AvatarURL != "" {
		if err := s.cloud.Delete(ctx, avatarFolder, avatarID(c.ID)); err != nil {
			log.Printf("[child] delete avatar of %d: %v", c.ID, err)
		}
	}
	return nil
}

func (s *ChildService) UploadAvatar(ctx context.Context, parentID, id uint, file io.Reader) (*ChildView, error) {
	if s.cloud == nil {
		return nil, ErrUploadsDisabled
	}
	c, err := s.get(parentID, id)
	if err != nil {
		return nil, err
	}
	url, _, err := s.cloud.UploadImage(ctx, file, avatarFolder, avatarID(c.ID))
	if err != nil {
		return nil, err
	}
	c.AvatarURL = url
	if err := s.childRepo.Update(c); err != nil {
		return nil, err
	}
	v := s.view(c)
	return &v, nil
}

func avatarID(childID uint) string { return fmt.Sprintf("child_%d", childID) }

func applyChildInput(c *models.ChildProfile, in ChildInput) error {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return domain.Validation("name is required")
	}
	c.Name = name
	c.GradeLevel = strings.TrimSpace(in.GradeLevel)
	c.DateOfBirth = nil
	if in.DateOfBirth != "" {
		dob, err := time.Parse("2006-01-02", in.DateOfBirth)
		if err != nil {
			return domain.Validation("date_of_birth must be YYYY-MM-DD")
		}
		c.DateOfBirth = &dob
	}
	return nil
}
