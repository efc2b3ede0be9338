package service

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"fieldops_backend/internal/metrics"
	"fieldops_backend/internal/technicians/repository"
	"fieldops_backend/platform/logger"
)

func tech(id byte, status repository.Status, lat float64) repository.Technician {
	return repository.Technician{
		ID:       uuid.UUID{id},
		Name:     "Tech",
		Status:   status,
		Latitude: lat,
	}
}

// latitudeDistance treats the technician latitude as kilometers straight to
// the job site, which keeps expected orderings readable.
type latitudeDistance struct{}

func (latitudeDistance) DistanceKm(fromLat, _, _, _ float64) float64 { return fromLat }

func TestRankCandidatesExcludesBlocked(t *testing.T) {
	techs := []repository.Technician{
		tech(1, repository.StatusActive, 5),
		tech(2, repository.StatusBlocked, 1),
		tech(3, repository.StatusActive, 3),
	}

	ranked := RankCandidates(techs, nil, JobSite{}, latitudeDistance{})

	if len(ranked) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(ranked))
	}
	for _, c := range ranked {
		if c.Technician.Status == repository.StatusBlocked {
			t.Fatalf("blocked technician %s made the list", c.Technician.ID)
		}
	}
}

func TestRankCandidatesKeepsBusyWithCount(t *testing.T) {
	busy := tech(1, repository.StatusActive, 2)
	free := tech(2, repository.StatusActive, 8)
	counts := map[uuid.UUID]int{busy.ID: 3}

	ranked := RankCandidates([]repository.Technician{free, busy}, counts, JobSite{}, latitudeDistance{})

	if len(ranked) != 2 {
		t.Fatalf("expected 2 candidates, got %d", len(ranked))
	}
	if ranked[0].Technician.ID != busy.ID {
		t.Fatalf("busy but closer technician should rank first")
	}
	if ranked[0].OpenCount != 3 {
		t.Fatalf("expected open count 3, got %d", ranked[0].OpenCount)
	}
}

func TestRankCandidatesOrdersByDistance(t *testing.T) {
	techs := []repository.Technician{
		tech(1, repository.StatusActive, 12),
		tech(2, repository.StatusActive, 4),
		tech(3, repository.StatusActive, 7),
	}

	ranked := RankCandidates(techs, nil, JobSite{}, latitudeDistance{})

	want := []uuid.UUID{{2}, {3}, {1}}
	for i, id := range want {
		if ranked[i].Technician.ID != id {
			t.Fatalf("position %d: expected %s, got %s", i, id, ranked[i].Technician.ID)
		}
	}
}

func TestRankCandidatesTiesBreakOnID(t *testing.T) {
	// Same distance for everyone; ordering must still be deterministic.
	techs := []repository.Technician{
		tech(9, repository.StatusActive, 5),
		tech(1, repository.StatusActive, 5),
		tech(4, repository.StatusActive, 5),
	}

	first := RankCandidates(techs, nil, JobSite{}, latitudeDistance{})
	second := RankCandidates([]repository.Technician{techs[2], techs[0], techs[1]}, nil, JobSite{}, latitudeDistance{})

	for i := range first {
		if first[i].Technician.ID != second[i].Technician.ID {
			t.Fatalf("ranking is not deterministic at position %d", i)
		}
	}
	if first[0].Technician.ID != (uuid.UUID{1}) {
		t.Fatalf("expected lowest id first on distance tie, got %s", first[0].Technician.ID)
	}
}

func TestRankCandidatesEmptyRoster(t *testing.T) {
	ranked := RankCandidates(nil, nil, JobSite{}, latitudeDistance{})
	if len(ranked) != 0 {
		t.Fatalf("expected empty list, got %d", len(ranked))
	}
}

func TestHaversineDistanceZeroForSamePoint(t *testing.T) {
	d := HaversineDistance{}.DistanceKm(52.1, 4.3, 52.1, 4.3)
	if d != 0 {
		t.Fatalf("expected 0 km, got %f", d)
	}
}

func TestHaversineDistanceKnownPair(t *testing.T) {
	// Amsterdam to Rotterdam is roughly 57 km.
	d := HaversineDistance{}.DistanceKm(52.3676, 4.9041, 51.9244, 4.4777)
	if d < 50 || d > 65 {
		t.Fatalf("expected roughly 57 km, got %f", d)
	}
}

type fakeLocator struct {
	site JobSite
	err  error
}

func (f fakeLocator) JobSite(_ context.Context, _ uuid.UUID) (JobSite, error) {
	return f.site, f.err
}

var resolverTestMetrics = metrics.New()

func TestCandidatesForJobFlagsBusy(t *testing.T) {
	busy := tech(1, repository.StatusActive, 3)
	repo := &fakeRepo{
		techs:  []repository.Technician{busy, tech(2, repository.StatusActive, 9)},
		counts: map[uuid.UUID]int{busy.ID: 2},
	}
	workOrderID := uuid.New()
	resolver := NewResolver(repo, fakeLocator{site: JobSite{WorkOrderID: workOrderID}}, latitudeDistance{}, resolverTestMetrics, logger.New("test"))

	resp, err := resolver.CandidatesForJob(context.Background(), workOrderID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Total != 2 {
		t.Fatalf("expected 2 candidates, got %d", resp.Total)
	}
	if resp.Items[0].Warning == nil {
		t.Fatalf("expected busy warning on closest candidate")
	}
	if resp.Items[1].Warning != nil {
		t.Fatalf("unexpected warning on available candidate")
	}
}
