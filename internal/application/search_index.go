package application

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/sirupsen/logrus"

	"github.com/dishpal/coupon-core/internal/domain/entity"
	"github.com/dishpal/coupon-core/pkg/helpers"
)

// UserIndex mirrors users into a full-text index for admin search.
type UserIndex interface {
	Index(ctx context.Context, u *entity.User, p *entity.UserProfile) error
	Remove(ctx context.Context, ids ...int64) error
	Search(ctx context.Context, q string, size int) ([]map[string]any, error)
}

const usersIndexMapping = `{
  "mappings": {
    "properties": {
      "id":         {"type": "long"},
      "username":   {"type": "keyword"},
      "email":      {"type": "keyword"},
      "full_name":  {"type": "text"},
      "roles":      {"type": "keyword"},
      "is_guest":   {"type": "boolean"},
      "is_active":  {"type": "boolean"},
      "location":   {"type": "geo_point"},
      "created_at": {"type": "date"},
      "updated_at": {"type": "date"}
    }
  }
}`

// ESUserIndex is the Elasticsearch implementation of UserIndex. A nil client
// makes every call a no-op.
type ESUserIndex struct {
	ES        *elasticsearch.Client
	IndexName string
	Logger    *logrus.Logger
}

func NewESUserIndex(es *elasticsearch.Client, index string, logger *logrus.Logger) *ESUserIndex {
	return &ESUserIndex{ES: es, IndexName: index, Logger: logger}
}

func (s *ESUserIndex) disabled() bool { return s == nil || s.ES == nil || s.IndexName == "" }

// EnsureIndex creates the users index with its mapping.
func (s *ESUserIndex) EnsureIndex(ctx context.Context) error {
	if s.disabled() {
		return nil
	}
	return helpers.EnsureIndex(ctx, s.ES, s.IndexName, usersIndexMapping)
}

func userDocument(u *entity.User, p *entity.UserProfile) map[string]any {
	roles := make([]string, 0, len(u.Roles))
	for _, r := range u.Roles {
		roles = append(roles, r.Name)
	}
	doc := map[string]any{
		"id":         u.ID,
		"username":   u.Username,
		"email":      u.Email,
		"full_name":  strings.TrimSpace(u.FirstName + " " + u.LastName),
		"roles":      roles,
		"is_guest":   u.IsGuest,
		"is_active":  u.IsActive,
		"created_at": u.CreatedAt.Format(time.RFC3339Nano),
		"updated_at": u.UpdatedAt.Format(time.RFC3339Nano),
	}
	if p != nil && p.Location != nil {
		doc["location"] = map[string]float64{"lat": p.Location.Latitude, "lon": p.Location.Longitude}
	}
	return doc
}

func (s *ESUserIndex) Index(ctx context.Context, u *entity.User, p *entity.UserProfile) error {
	if s.disabled() || u == nil {
		return nil
	}
	b, err := json.Marshal(userDocument(u, p))
	if err != nil {
		return err
	}
	req := esapi.IndexRequest{Index: s.IndexName, DocumentID: strconv.FormatInt(u.ID, 10), Body: bytes.NewReader(b), Refresh: "false"}
	c, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	res, err := req.Do(c, s.ES)
	if err != nil {
		if s.Logger != nil {
			s.Logger.WithError(err).WithField("user_id", u.ID).Warn("es index failed")
		}
		return err
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() {
		if s.Logger != nil {
			s.Logger.WithField("status", res.Status()).WithField("user_id", u.ID).Warn("es index response error")
		}
		return fmt.Errorf("es index: %s", res.Status())
	}
	return nil
}

func (s *ESUserIndex) Remove(ctx context.Context, ids ...int64) error {
	if s.disabled() {
		return nil
	}
	c, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	for _, id := range ids {
		res, err := s.ES.Delete(s.IndexName, strconv.FormatInt(id, 10), s.ES.Delete.WithContext(c))
		if err != nil {
			if s.Logger != nil {
				s.Logger.WithError(err).WithField("user_id", id).Warn("es delete failed")
			}
			return err
		}
		_ = res.Body.Close()
	}
	return nil
}

// Search performs a multi_match search on username, email and name.
func (s *ESUserIndex) Search(ctx context.Context, q string, size int) ([]map[string]any, error) {
	if s.disabled() {
		return []map[string]any{}, nil
	}
	if size <= 0 || size > 50 {
		size = 10
	}
	query := map[string]any{
		"query": map[string]any{
			"multi_match": map[string]any{
				"query":  q,
				"fields": []string{"email^2", "username^2", "full_name"},
			},
		},
		"size": size,
	}
	b, _ := json.Marshal(query)

	c, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	res, err := s.ES.Search(s.ES.Search.WithContext(c), s.ES.Search.WithIndex(s.IndexName), s.ES.Search.WithBody(bytes.NewReader(b)))
	if err != nil {
		return nil, err
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() {
		return nil, fmt.Errorf("es search: %s", res.Status())
	}

	var parsed struct {
		Hits struct {
			Hits []struct {
				ID     string         `json:"_id"`
				Source map[string]any `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, err
	}

	out := make([]map[string]any, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		out = append(out, h.Source)
	}
	return out, nil
}
