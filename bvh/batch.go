package bvh

import (
	"context"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.uber.org/atomic"

	"go.viam.com/bvh/utils"
)

// RayHit is the result of one ray query. Element is nil when the ray hits nothing.
type RayHit struct {
	Element Boundable
	Param   float64
}

// BatchNearestPoints runs NearestPoint for every query concurrently. Results are in query order;
// queries with no result have a nil Element.
func (t *Tree) BatchNearestPoints(ctx context.Context, queries []r3.Vector) ([]NearestResult, error) {
	results := make([]NearestResult, len(queries))
	var found atomic.Int64
	err := utils.ForEachParallel(ctx, len(queries), func(ctx context.Context, i int) error {
		e, pt, ok := t.NearestPoint(queries[i])
		if !ok {
			return nil
		}
		results[i] = NearestResult{Element: e, Point: pt, Distance: pt.Distance(queries[i])}
		found.Inc()
		return nil
	})
	if err != nil {
		return nil, err
	}
	t.logger.Debugw("batch nearest points", "queries", len(queries), "found", found.Load())
	return results, nil
}

// BatchNearestAlongRays runs NearestAlongRay for every origin and direction pair concurrently.
func (t *Tree) BatchNearestAlongRays(ctx context.Context, origins, dirs []r3.Vector) ([]RayHit, error) {
	if len(origins) != len(dirs) {
		return nil, errors.Errorf("got %d ray origins but %d directions", len(origins), len(dirs))
	}
	hits := make([]RayHit, len(origins))
	var found atomic.Int64
	err := utils.ForEachParallel(ctx, len(origins), func(ctx context.Context, i int) error {
		e, s, ok := t.NearestAlongRay(origins[i], dirs[i])
		if !ok {
			return nil
		}
		hits[i] = RayHit{Element: e, Param: s}
		found.Inc()
		return nil
	})
	if err != nil {
		return nil, err
	}
	t.logger.Debugw("batch ray casts", "rays", len(origins), "hits", found.Load())
	return hits, nil
}
