package service

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"fieldops_backend/internal/metrics"
	"fieldops_backend/internal/technicians/repository"
	"fieldops_backend/internal/technicians/transport"
	"fieldops_backend/platform/logger"
)

// JobSite is the location a work order has to be serviced at.
type JobSite struct {
	WorkOrderID uuid.UUID
	Latitude    float64
	Longitude   float64
}

// WorkOrderLocator resolves a work order to its job site. Implemented by the
// work orders module and wired in at startup.
type WorkOrderLocator interface {
	JobSite(ctx context.Context, workOrderID uuid.UUID) (JobSite, error)
}

// DistanceProvider computes the distance in kilometers between two points.
type DistanceProvider interface {
	DistanceKm(fromLat, fromLng, toLat, toLng float64) float64
}

// HaversineDistance is the default great-circle distance provider.
type HaversineDistance struct{}

const earthRadiusKm = 6371.0

func (HaversineDistance) DistanceKm(fromLat, fromLng, toLat, toLng float64) float64 {
	lat1 := fromLat * math.Pi / 180
	lat2 := toLat * math.Pi / 180
	dLat := (toLat - fromLat) * math.Pi / 180
	dLng := (toLng - fromLng) * math.Pi / 180

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return earthRadiusKm * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

// Candidate is one eligible technician ranked for a job site.
type Candidate struct {
	Technician repository.Technician
	OpenCount  int
	DistanceKm float64
}

// RankCandidates builds the ranked candidate list for a job site from a
// roster snapshot and its open work order counts. Blocked technicians are
// excluded outright. A non-zero open count makes a candidate busy, which is
// advisory only: busy technicians stay in the list with a warning and the
// dispatcher decides. Ordering is ascending distance, ties broken by
// technician ID so repeated calls over the same snapshot agree.
func RankCandidates(techs []repository.Technician, counts map[uuid.UUID]int, site JobSite, distance DistanceProvider) []Candidate {
	candidates := make([]Candidate, 0, len(techs))
	for _, tech := range techs {
		if tech.Status == repository.StatusBlocked {
			continue
		}
		candidates = append(candidates, Candidate{
			Technician: tech,
			OpenCount:  counts[tech.ID],
			DistanceKm: distance.DistanceKm(tech.Latitude, tech.Longitude, site.Latitude, site.Longitude),
		})
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].DistanceKm != candidates[j].DistanceKm {
			return candidates[i].DistanceKm < candidates[j].DistanceKm
		}
		return candidates[i].Technician.ID.String() < candidates[j].Technician.ID.String()
	})
	return candidates
}

// Resolver produces ranked assignment candidates for work orders.
type Resolver struct {
	repo     repository.TechnicianReader
	locator  WorkOrderLocator
	distance DistanceProvider
	metrics  *metrics.DispatchMetrics
	logger   *logger.Logger
}

// NewResolver creates a resolver. A nil distance provider falls back to
// haversine.
func NewResolver(repo repository.TechnicianReader, locator WorkOrderLocator, distance DistanceProvider, m *metrics.DispatchMetrics, log *logger.Logger) *Resolver {
	if distance == nil {
		distance = HaversineDistance{}
	}
	return &Resolver{repo: repo, locator: locator, distance: distance, metrics: m, logger: log}
}

// CandidatesForJob returns the ranked candidate list for a work order.
// Roster and open counts are fetched concurrently; both reflect the same
// request-time snapshot, and the ranking itself is pure. An empty list is a
// normal outcome: the work order simply stays pending.
func (r *Resolver) CandidatesForJob(ctx context.Context, workOrderID uuid.UUID) (transport.CandidateListResponse, error) {
	started := time.Now()

	site, err := r.locator.JobSite(ctx, workOrderID)
	if err != nil {
		return transport.CandidateListResponse{}, err
	}

	var (
		techs  []repository.Technician
		counts map[uuid.UUID]int
	)
	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		var listErr error
		techs, _, listErr = r.repo.List(groupCtx, repository.ListParams{Limit: 1000})
		return listErr
	})
	group.Go(func() error {
		var countErr error
		counts, countErr = r.repo.OpenWorkOrderCounts(groupCtx)
		return countErr
	})
	if err := group.Wait(); err != nil {
		return transport.CandidateListResponse{}, err
	}

	ranked := RankCandidates(techs, counts, site, r.distance)

	items := make([]transport.CandidateResponse, 0, len(ranked))
	for _, candidate := range ranked {
		item := transport.CandidateResponse{
			Technician: toResponse(candidate.Technician, candidate.OpenCount),
			DistanceKm: math.Round(candidate.DistanceKm*10) / 10,
		}
		if candidate.OpenCount > 0 {
			warning := fmt.Sprintf("busy with %d open work order(s)", candidate.OpenCount)
			item.Warning = &warning
		}
		items = append(items, item)
	}

	r.metrics.ObserveCandidateQuery(time.Since(started).Seconds())
	r.logger.WithContext(ctx).Debug("candidates ranked",
		"workOrderId", workOrderID, "count", len(items))

	return transport.CandidateListResponse{
		WorkOrderID: workOrderID,
		Items:       items,
		Total:       len(items),
	}, nil
}
