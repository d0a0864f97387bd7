package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/vendorops-backend/internal/notifications"
	pkgAuth "github.com/angelmondragon/vendorops-backend/pkg/auth"
	"github.com/angelmondragon/vendorops-backend/pkg/config"
	"github.com/angelmondragon/vendorops-backend/pkg/db/models"
	"github.com/angelmondragon/vendorops-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/vendorops-backend/pkg/errors"
	"github.com/angelmondragon/vendorops-backend/pkg/logger"
	"github.com/angelmondragon/vendorops-backend/pkg/redis"
	"github.com/angelmondragon/vendorops-backend/pkg/security"
)

const invalidCodeMessage = "code not found or expired"

// Service defines the vendor login flow used by the auth controller.
type Service interface {
	Register(ctx context.Context, req RegisterRequest) (*RegisterResponse, error)
	Verify(ctx context.Context, req VerifyRequest) (*VerifyResponse, error)
}

type vendorRepository interface {
	FindByMobile(ctx context.Context, mobile string) (*models.Vendor, error)
	FindOrCreateByMobile(ctx context.Context, mobile, name string) (*models.Vendor, bool, error)
	MarkMobileVerified(ctx context.Context, id uuid.UUID) error
}

type codeStore interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	GetDel(ctx context.Context, key string) (string, error)
	LoginCodeKey(mobile string) string
}

type codeHasher interface {
	Hash(code string) (string, error)
	Verify(code, encoded string) (bool, error)
}

type service struct {
	vendors    vendorRepository
	codes      codeStore
	hasher     codeHasher
	notifier   notifications.Notifier
	jwtCfg     config.JWTConfig
	lifecycle  config.LifecycleConfig
	exposeCode bool
	logg       *logger.Logger
	now        func() time.Time
	generate   func(length int) (string, error)
}

// ServiceParams bundles the dependencies required to build an auth service.
type ServiceParams struct {
	VendorRepo vendorRepository
	Codes      codeStore
	Hasher     codeHasher
	Notifier   notifications.Notifier
	JWTConfig  config.JWTConfig
	Lifecycle  config.LifecycleConfig
	// ExposeCode returns the plaintext login code in the register response.
	ExposeCode bool
	Logger     *logger.Logger
}

// NewService constructs a login service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.VendorRepo == nil {
		return nil, fmt.Errorf("vendor repository is required")
	}
	if params.Codes == nil {
		return nil, fmt.Errorf("code store is required")
	}
	if params.Hasher == nil {
		return nil, fmt.Errorf("code hasher is required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{
		vendors:    params.VendorRepo,
		codes:      params.Codes,
		hasher:     params.Hasher,
		notifier:   params.Notifier,
		jwtCfg:     params.JWTConfig,
		lifecycle:  params.Lifecycle,
		exposeCode: params.ExposeCode,
		logg:       logg,
		now:        time.Now,
		generate:   security.GenerateNumericCode,
	}, nil
}

func (s *service) Register(ctx context.Context, req RegisterRequest) (*RegisterResponse, error) {
	mobile := normalizeMobile(req.Mobile)
	if mobile == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "mobile is required")
	}

	name := strings.TrimSpace(req.VendorName)
	if name == "" {
		name = "Vendor " + lastDigits(mobile, 4)
	}
	vendor, created, err := s.vendors.FindOrCreateByMobile(ctx, mobile, name)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load vendor")
	}

	code, err := s.generate(s.lifecycle.LoginCodeLength)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate login code")
	}
	hash, err := s.hasher.Hash(code)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash login code")
	}
	if err := s.codes.Set(ctx, s.codes.LoginCodeKey(mobile), hash, s.lifecycle.LoginCodeTTL); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store login code")
	}

	ctx = s.logg.WithVendorID(ctx, vendor.ID.String())
	s.logg.Info(s.logg.WithField(ctx, "new_vendor", created), "login code issued")
	s.notifyCodeIssued(ctx, vendor)

	resp := &RegisterResponse{
		VendorID:  vendor.ID,
		IsNew:     created,
		ExpiresIn: int(s.lifecycle.LoginCodeTTL / time.Second),
	}
	if s.exposeCode {
		resp.Code = code
	}
	return resp, nil
}

func (s *service) Verify(ctx context.Context, req VerifyRequest) (*VerifyResponse, error) {
	mobile := normalizeMobile(req.Mobile)
	code := strings.TrimSpace(req.Code)
	if mobile == "" || code == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "mobile and code are required")
	}

	// GETDEL consumes the code whether or not it matches.
	hash, err := s.codes.GetDel(ctx, s.codes.LoginCodeKey(mobile))
	if errors.Is(err, redis.Nil) {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCodeMessage)
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load login code")
	}
	ok, err := s.hasher.Verify(code, hash)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify login code")
	}
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid code")
	}

	vendor, err := s.vendors.FindByMobile(ctx, mobile)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCodeMessage)
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load vendor")
	}
	if !vendor.MobileVerified {
		if err := s.vendors.MarkMobileVerified(ctx, vendor.ID); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark mobile verified")
		}
		vendor.MobileVerified = true
	}

	now := s.now()
	token, err := pkgAuth.MintAccessToken(s.jwtCfg, now, pkgAuth.AccessTokenPayload{
		ActorID: vendor.ID,
		Role:    enums.ActorVendor,
		Mobile:  vendor.Mobile,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint jwt")
	}

	s.logg.Info(s.logg.WithVendorID(ctx, vendor.ID.String()), "vendor logged in")
	return &VerifyResponse{
		AccessToken: token,
		ExpiresAt:   now.Add(time.Duration(s.jwtCfg.ExpirationMinutes) * time.Minute),
		Vendor: VendorSummary{
			ID:             vendor.ID,
			Mobile:         vendor.Mobile,
			VendorName:     vendor.VendorName,
			MobileVerified: vendor.MobileVerified,
		},
	}, nil
}

// notifyCodeIssued pings the vendor device. The code itself never leaves the service.
func (s *service) notifyCodeIssued(ctx context.Context, vendor *models.Vendor) {
	if s.notifier == nil {
		return
	}
	_, err := s.notifier.Notify(ctx, notifications.Message{
		RecipientID:   vendor.ID,
		RecipientRole: enums.ActorVendor,
		Type:          enums.NotificationTypeVerification,
		Title:         "Login code",
		Body:          "Your login code has been sent.",
		Data:          map[string]any{"expiresIn": int(s.lifecycle.LoginCodeTTL / time.Second)},
	})
	if err != nil {
		s.logg.Error(ctx, "login code notification failed", err)
	}
}

func normalizeMobile(mobile string) string {
	return strings.ReplaceAll(strings.TrimSpace(mobile), " ", "")
}

func lastDigits(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
