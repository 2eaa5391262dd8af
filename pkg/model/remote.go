// pkg/model/remote.go

package model

import (
	"context"
	"net"
	"time"

	"github.com/go-resty/resty/v2"

	"riego/pkg/errors"
	"riego/pkg/features"
)

type scoreReq struct {
	Features map[string]float64 `json:"features"`
	Vector   []float64          `json:"vector"`
}

type scoreResp struct {
	Score *float64 `json:"score"`
}

type remote struct {
	endpoint string
	client   *resty.Client
}

// NewRemote scores over HTTP: POST {features, vector} to endpoint, expecting
// {"score": x}.
func NewRemote(endpoint string, timeout time.Duration) Scorer {
	c := resty.New().
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")
	return &remote{endpoint: endpoint, client: c}
}

func (r *remote) Score(ctx context.Context, v features.FeatureVector) (float64, error) {
	var out scoreResp
	start := time.Now()
	resp, err := r.client.R().
		SetContext(ctx).
		SetBody(scoreReq{Features: v.Map(), Vector: v.Values()}).
		SetResult(&out).
		Post(r.endpoint)
	if err != nil {
		cat := errors.CategoryModel
		var ne net.Error
		if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &ne) && ne.Timeout()) {
			cat = errors.CategoryTimeout
		}
		return 0, errors.New(err).Category(cat).Component("model").
			Context("endpoint", r.endpoint).Timing("score", time.Since(start)).Build()
	}
	if resp.IsError() {
		return 0, errors.Newf("model endpoint returned %d", resp.StatusCode()).Category(errors.CategoryModel).
			Component("model").Context("endpoint", r.endpoint).Build()
	}
	if out.Score == nil {
		return 0, errors.Newf("model response has no score").Category(errors.CategoryModel).
			Component("model").Context("endpoint", r.endpoint).Build()
	}
	return *out.Score, nil
}
