package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/luftkuhl/ninethree-backend/internal/platform/logger"
	"github.com/luftkuhl/ninethree-backend/internal/platform/nhtsa"
	"github.com/luftkuhl/ninethree-backend/internal/platform/s3"
	"github.com/luftkuhl/ninethree-backend/internal/types"
)

// ProfileService manages the per-user car profile. A 17-character VIN is
// decoded against vPIC on save and fills year and model when the user left
// them blank; decode failures are silent.
type ProfileService interface {
	Load(ctx context.Context, userID string) (*types.CarProfile, error)
	Save(ctx context.Context, userID string, profile *types.CarProfile) (*types.CarProfile, error)
}

type profileService struct {
	log  *logger.Logger
	blob BlobStore
	vins nhtsa.Client
}

func NewProfileService(log *logger.Logger, blob BlobStore, vins nhtsa.Client) ProfileService {
	return &profileService{
		log:  log.With("service", "ProfileService"),
		blob: blob,
		vins: vins,
	}
}

// Load returns nil without error when the user has no profile yet.
func (s *profileService) Load(ctx context.Context, userID string) (*types.CarProfile, error) {
	raw, err := s.blob.Get(ctx, profileKey(userID))
	if err != nil {
		if errors.Is(err, s3.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	var profile types.CarProfile
	if err := json.Unmarshal(raw, &profile); err != nil {
		return nil, fmt.Errorf("decode profile for %s: %w", userID, err)
	}
	return &profile, nil
}

func (s *profileService) Save(ctx context.Context, userID string, profile *types.CarProfile) (*types.CarProfile, error) {
	if profile == nil {
		return nil, fmt.Errorf("profile required")
	}
	p := *profile
	p.VIN = strings.ToUpper(strings.TrimSpace(p.VIN))

	if len(p.VIN) == 17 && (strings.TrimSpace(p.Year) == "" || strings.TrimSpace(p.Model) == "") {
		decoded, err := s.vins.DecodeVIN(ctx, p.VIN)
		if err != nil {
			s.log.Warn("VIN decode failed", "error", err.Error())
		} else if decoded != nil {
			if strings.TrimSpace(p.Year) == "" {
				p.Year = decoded.Year
			}
			if strings.TrimSpace(p.Model) == "" {
				p.Model = decoded.Model
			}
		}
	}

	if !p.Complete() {
		return nil, fmt.Errorf("profile requires at least year and model")
	}

	raw, err := json.MarshalIndent(&p, "", "  ")
	if err != nil {
		return nil, err
	}
	if err := s.blob.Put(ctx, profileKey(userID), raw, "application/json"); err != nil {
		return nil, err
	}
	return &p, nil
}
