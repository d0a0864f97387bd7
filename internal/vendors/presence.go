package vendors

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/angelmondragon/vendorops-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/vendorops-backend/pkg/errors"
	"github.com/angelmondragon/vendorops-backend/pkg/logger"
	"github.com/angelmondragon/vendorops-backend/pkg/redis"
	"github.com/angelmondragon/vendorops-backend/pkg/types"
)

// PresenceStore is the slice of the redis client presence needs.
type PresenceStore interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
	Exists(ctx context.Context, keys ...string) (int64, error)
	GeoAdd(ctx context.Context, key, member string, lat, lng float64) error
	GeoNearby(ctx context.Context, key string, lat, lng, radiusMeters float64, count int) ([]redis.GeoPoint, error)
	SetMembers(ctx context.Context, key string) ([]string, error)
	RemoveMembers(ctx context.Context, key string, members ...string) (int64, error)
	PresenceGeoKey() string
	PresenceKey(vendorID string) string
}

// HeartbeatInput is one presence report from a vendor app.
type HeartbeatInput struct {
	Online   *bool    `json:"online"`
	Lat      *float64 `json:"lat"`
	Lng      *float64 `json:"lng"`
	Accuracy *float64 `json:"accuracy"`
}

// Position is a reported vendor location.
type Position struct {
	Lat      float64  `json:"lat"`
	Lng      float64  `json:"lng"`
	Accuracy *float64 `json:"accuracy,omitempty"`
}

// Presence is the live state of a vendor. Offline vendors have no expiry.
type Presence struct {
	VendorID   uuid.UUID  `json:"vendorId"`
	Online     bool       `json:"online"`
	Location   *Position  `json:"location"`
	UpdatedAt  *time.Time `json:"updatedAt,omitempty"`
	ExpiresAt  *time.Time `json:"expiresAt,omitempty"`
	TTLSeconds int        `json:"ttlSeconds,omitempty"`
}

// PresenceService tracks which vendors are online and where.
type PresenceService struct {
	store      PresenceStore
	ttl        time.Duration
	maxResults int
	logg       *logger.Logger
	now        func() time.Time
}

// NewPresenceService builds the presence tracker. Heartbeats expire after
// PresenceTTL; lookups return at most DispatchMaxVendors vendors.
func NewPresenceService(store PresenceStore, cfg config.LifecycleConfig, logg *logger.Logger) (*PresenceService, error) {
	if store == nil {
		return nil, fmt.Errorf("presence store required")
	}
	if cfg.PresenceTTL <= 0 {
		return nil, fmt.Errorf("presence ttl must be positive")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &PresenceService{
		store:      store,
		ttl:        cfg.PresenceTTL,
		maxResults: cfg.DispatchMaxVendors,
		logg:       logg,
		now:        time.Now,
	}, nil
}

// ValidateHeartbeat returns one message per failed check.
func ValidateHeartbeat(in HeartbeatInput) []string {
	var problems []string
	if in.Online == nil {
		problems = append(problems, "online must be a boolean value")
	}
	if in.Lat != nil && (math.IsNaN(*in.Lat) || *in.Lat < -90 || *in.Lat > 90) {
		problems = append(problems, "lat must be a number between -90 and 90")
	}
	if in.Lng != nil && (math.IsNaN(*in.Lng) || *in.Lng < -180 || *in.Lng > 180) {
		problems = append(problems, "lng must be a number between -180 and 180")
	}
	if in.Accuracy != nil && (math.IsNaN(*in.Accuracy) || *in.Accuracy < 0) {
		problems = append(problems, "accuracy must be a non-negative number")
	}
	if (in.Lat == nil) != (in.Lng == nil) {
		problems = append(problems, "lat and lng must be provided together")
	}
	return problems
}

// Heartbeat records an online report (refreshing the TTL and, when given,
// the position) or removes the vendor on an offline report.
func (s *PresenceService) Heartbeat(ctx context.Context, vendorID uuid.UUID, in HeartbeatInput) (*Presence, error) {
	if vendorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "vendor identity missing")
	}
	if problems := ValidateHeartbeat(in); len(problems) > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "validation failed").WithDetails(problems)
	}
	member := vendorID.String()
	ctx = s.logg.WithVendorID(ctx, member)

	if !*in.Online {
		return &Presence{VendorID: vendorID}, s.remove(ctx, member)
	}

	now := s.now().UTC()
	expires := now.Add(s.ttl)
	presence := &Presence{
		VendorID:   vendorID,
		Online:     true,
		UpdatedAt:  &now,
		ExpiresAt:  &expires,
		TTLSeconds: int(s.ttl / time.Second),
	}
	if in.Lat != nil {
		presence.Location = &Position{Lat: *in.Lat, Lng: *in.Lng, Accuracy: in.Accuracy}
		if err := s.store.GeoAdd(ctx, s.store.PresenceGeoKey(), member, *in.Lat, *in.Lng); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record vendor position")
		}
	} else if previous, err := s.load(ctx, member); err == nil && previous != nil {
		presence.Location = previous.Location
	}

	raw, err := json.Marshal(presence)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode presence")
	}
	if err := s.store.Set(ctx, s.store.PresenceKey(member), string(raw), s.ttl); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record vendor heartbeat")
	}
	return presence, nil
}

// Get returns the vendor's live presence, or an offline record.
func (s *PresenceService) Get(ctx context.Context, vendorID uuid.UUID) (*Presence, error) {
	presence, err := s.load(ctx, vendorID.String())
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load vendor presence")
	}
	if presence == nil {
		return &Presence{VendorID: vendorID}, nil
	}
	return presence, nil
}

func (s *PresenceService) load(ctx context.Context, member string) (*Presence, error) {
	raw, err := s.store.Get(ctx, s.store.PresenceKey(member))
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var presence Presence
	if err := json.Unmarshal([]byte(raw), &presence); err != nil {
		return nil, err
	}
	return &presence, nil
}

func (s *PresenceService) remove(ctx context.Context, member string) error {
	if err := s.store.Del(ctx, s.store.PresenceKey(member)); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear vendor heartbeat")
	}
	if _, err := s.store.RemoveMembers(ctx, s.store.PresenceGeoKey(), member); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear vendor position")
	}
	s.logg.Info(ctx, "vendor went offline")
	return nil
}

// FindOnlineVendors returns vendors with a live heartbeat within
// maxDistanceMeters of point, nearest first, capped at the service limit.
func (s *PresenceService) FindOnlineVendors(ctx context.Context, point types.Location, maxDistanceMeters float64) ([]uuid.UUID, error) {
	// stale members are filtered below
	fetch := 0
	if s.maxResults > 0 {
		fetch = s.maxResults * 2
	}
	nearby, err := s.store.GeoNearby(ctx, s.store.PresenceGeoKey(), point.Lat, point.Lng, maxDistanceMeters, fetch)
	if err != nil {
		return nil, err
	}
	out := make([]uuid.UUID, 0, len(nearby))
	for _, p := range nearby {
		if s.maxResults > 0 && len(out) == s.maxResults {
			break
		}
		id, err := uuid.Parse(p.Member)
		if err != nil {
			continue
		}
		alive, err := s.store.Exists(ctx, s.store.PresenceKey(p.Member))
		if err != nil {
			return nil, err
		}
		if alive > 0 {
			out = append(out, id)
		}
	}
	return out, nil
}

// Sweep drops geo members whose heartbeat expired. It returns how many were
// removed; per-member lookup failures are combined.
func (s *PresenceService) Sweep(ctx context.Context) (int, error) {
	key := s.store.PresenceGeoKey()
	members, err := s.store.SetMembers(ctx, key)
	if err != nil {
		return 0, err
	}
	var (
		stale []string
		errs  error
	)
	for _, member := range members {
		alive, err := s.store.Exists(ctx, s.store.PresenceKey(member))
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("check %s: %w", member, err))
			continue
		}
		if alive == 0 {
			stale = append(stale, member)
		}
	}
	removed, err := s.store.RemoveMembers(ctx, key, stale...)
	if err != nil {
		errs = multierr.Append(errs, err)
	}
	return int(removed), errs
}
