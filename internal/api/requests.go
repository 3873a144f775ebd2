// Civitas - Semantic Content Discovery Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/civitas

package api

import (
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/goccy/go-json"

	"github.com/tomtom215/civitas/internal/models"
	"github.com/tomtom215/civitas/internal/validation"
)

// maxBodyBytes caps request bodies. Text length is enforced by ingest.
const maxBodyBytes = 256 << 10

type submitContentRequest struct {
	Text        string `json:"text" validate:"required,notblank"`
	Region      string `json:"region,omitempty" validate:"omitempty,region"`
	IsPolitical bool   `json:"is_political"`
}

type editContentRequest struct {
	Text string `json:"text" validate:"required,notblank"`
}

type engagementRequest struct {
	Kind string `json:"kind" validate:"required,oneof=like reply share"`
}

type regionQuery struct {
	Region string `query:"region" validate:"omitempty,region"`
}

type feedPageQuery struct {
	PageSize int                  `query:"page_size" validate:"gte=0"`
	Seed     int64                `query:"seed"`
	Cursor   string               `query:"cursor" validate:"max=512"`
	Weights  *models.ScoreWeights `query:"-" validate:"-"`
}

// decodeJSON reads a size-limited JSON body into dst and validates it.
// Unknown fields are rejected.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return validation.NewFieldError("body", "json", "request body must be a JSON object: "+err.Error())
	}
	return validate(dst)
}

// validate returns a nil error interface when s passes.
func validate(s any) error {
	if verr := validation.ValidateStruct(s); verr != nil {
		return verr
	}
	return nil
}

func parseRegionQuery(q url.Values) (regionQuery, error) {
	out := regionQuery{Region: q.Get("region")}
	return out, validate(&out)
}

func parseFeedPageQuery(q url.Values) (feedPageQuery, error) {
	var out feedPageQuery
	var err error
	if out.PageSize, err = intParam(q, "page_size"); err != nil {
		return out, err
	}
	if v := q.Get("seed"); v != "" {
		if out.Seed, err = strconv.ParseInt(v, 10, 64); err != nil {
			return out, validation.NewFieldError("seed", "int", "seed must be an integer")
		}
	}
	out.Cursor = q.Get("cursor")
	if out.Weights, err = weightParams(q); err != nil {
		return out, err
	}
	return out, validate(&out)
}

func intParam(q url.Values, name string) (int, error) {
	v := q.Get(name)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, validation.NewFieldError(name, "int", name+" must be an integer")
	}
	return n, nil
}

// weightParams reads w_recency, w_similarity, w_social and w_trending. When
// any is present the set overrides the configured weights for this page and
// absent ones count as zero. The sum is checked by the navigation layer.
func weightParams(q url.Values) (*models.ScoreWeights, error) {
	var w models.ScoreWeights
	fields := []struct {
		name string
		dst  *float64
	}{
		{"w_recency", &w.Recency},
		{"w_similarity", &w.Similarity},
		{"w_social", &w.Social},
		{"w_trending", &w.Trending},
	}
	found := false
	for _, f := range fields {
		v := q.Get(f.name)
		if v == "" {
			continue
		}
		x, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, validation.NewFieldError(f.name, "float", f.name+" must be a number")
		}
		*f.dst = x
		found = true
	}
	if !found {
		return nil, nil
	}
	return &w, nil
}
