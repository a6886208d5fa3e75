package geo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/dishpal/coupon-core/internal/domain/entity"
)

var ErrLookupFailed = errors.New("geolocation lookup failed")

// Location is the result of an IP lookup.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	City      string  `json:"city"`
	Region    string  `json:"region"`
	Country   string  `json:"country"`
	Timezone  string  `json:"timezone"`
}

// Point returns the coordinate part of the location.
func (l Location) Point() entity.Point {
	return entity.Point{Latitude: l.Latitude, Longitude: l.Longitude}
}

// String formats the location as "City, Region, Country" skipping blanks.
func (l Location) String() string {
	var parts []string
	for _, s := range []string{l.City, l.Region, l.Country} {
		if s = strings.TrimSpace(s); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, ", ")
}

// TestLocation is returned for loopback and private addresses.
var TestLocation = Location{Latitude: 37.751, Longitude: -97.822, City: "Test City", Country: "Test Country", Timezone: "UTC"}

type Resolver interface {
	Lookup(ctx context.Context, ip string) (Location, error)
}

// IsLocalIP reports whether ip is loopback, private or unparsable-as-public.
func IsLocalIP(ip string) bool {
	parsed := net.ParseIP(strings.TrimSpace(ip))
	if parsed == nil {
		return false
	}
	return parsed.IsLoopback() || parsed.IsPrivate() || parsed.IsUnspecified()
}

// IPAPIResolver implements Resolver using an ip-api.com compatible JSON service.
type IPAPIResolver struct {
	BaseURL string // e.g. http://ip-api.com/json/
	Client  *http.Client
}

func NewIPAPIResolver(baseURL string) *IPAPIResolver {
	return &IPAPIResolver{BaseURL: baseURL, Client: &http.Client{Timeout: 2 * time.Second}}
}

func (r *IPAPIResolver) Lookup(ctx context.Context, ip string) (Location, error) {
	ip = strings.TrimSpace(ip)
	if ip == "" {
		return Location{}, fmt.Errorf("%w: empty ip", ErrLookupFailed)
	}
	if IsLocalIP(ip) {
		return TestLocation, nil
	}
	client := r.Client
	if client == nil {
		client = &http.Client{Timeout: 2 * time.Second}
	}
	base := r.BaseURL
	if !strings.HasSuffix(base, "/") {
		base += "/"
	}
	url := base + ip + "?fields=status,message,country,regionName,city,timezone,lat,lon"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Location{}, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return Location{}, fmt.Errorf("%w: %v", ErrLookupFailed, err)
	}
	defer resp.Body.Close()

	var body struct {
		Status     string  `json:"status"`
		Message    string  `json:"message"`
		Country    string  `json:"country"`
		RegionName string  `json:"regionName"`
		City       string  `json:"city"`
		Timezone   string  `json:"timezone"`
		Lat        float64 `json:"lat"`
		Lon        float64 `json:"lon"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Location{}, fmt.Errorf("%w: %v", ErrLookupFailed, err)
	}
	if !strings.EqualFold(body.Status, "success") {
		return Location{}, fmt.Errorf("%w: %s", ErrLookupFailed, body.Message)
	}
	return Location{
		Latitude: body.Lat, Longitude: body.Lon,
		City: body.City, Region: body.RegionName, Country: body.Country, Timezone: body.Timezone,
	}, nil
}

// CachedResolver memoizes lookups in Redis under location:<ip>.
type CachedResolver struct {
	Next   Resolver
	Redis  *redis.Client
	TTL    time.Duration
	Logger *logrus.Logger
}

func NewCachedResolver(next Resolver, rdb *redis.Client, ttl time.Duration, logger *logrus.Logger) *CachedResolver {
	return &CachedResolver{Next: next, Redis: rdb, TTL: ttl, Logger: logger}
}

func CacheKey(ip string) string { return "location:" + ip }

func (r *CachedResolver) Lookup(ctx context.Context, ip string) (Location, error) {
	key := CacheKey(ip)
	if r.Redis != nil {
		if b, err := r.Redis.Get(ctx, key).Bytes(); err == nil {
			var loc Location
			if json.Unmarshal(b, &loc) == nil {
				return loc, nil
			}
		} else if !errors.Is(err, redis.Nil) && r.Logger != nil {
			r.Logger.WithError(err).WithField("key", key).Warn("geo cache read failed")
		}
	}
	loc, err := r.Next.Lookup(ctx, ip)
	if err != nil {
		return Location{}, err
	}
	if r.Redis != nil {
		if b, mErr := json.Marshal(loc); mErr == nil {
			if sErr := r.Redis.Set(ctx, key, b, r.TTL).Err(); sErr != nil && r.Logger != nil {
				r.Logger.WithError(sErr).WithField("key", key).Warn("geo cache write failed")
			}
		}
	}
	return loc, nil
}
