package service_test

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"

	"homeservices/internal/domain"
	"homeservices/internal/repository"
	"homeservices/internal/service"
)

func TestApplyRating_ConcurrentScores(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.addProvider("p-1", nairobiNear)

	var wg sync.WaitGroup
	for _, score := range []float64{4, 5} {
		score := score
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := f.ratingSvc.ApplyRating(context.Background(), "p-1", score); err != nil {
				t.Errorf("apply %v: %v", score, err)
			}
		}()
	}
	wg.Wait()

	got := f.providers.GetProvider("p-1").Rating
	if got != (domain.RatingStat{Sum: 9, Count: 2}) {
		t.Fatalf("expected sum 9 over 2, got %+v", got)
	}
	if got.Average() != 4.5 {
		t.Errorf("expected average 4.5, got %v", got.Average())
	}
}

func TestApplyRating_OrderIndependent(t *testing.T) {
	t.Parallel()

	scores := []float64{1, 5, 3, 4, 2, 5, 3.5}
	orders := [][]int{
		{0, 1, 2, 3, 4, 5, 6},
		{6, 5, 4, 3, 2, 1, 0},
		{3, 0, 6, 1, 5, 2, 4},
	}

	var averages []float64
	for _, order := range orders {
		f := newFixture(t)
		f.addProvider("p-1", nairobiNear)

		var last float64
		for _, i := range order {
			avg, err := f.ratingSvc.ApplyRating(context.Background(), "p-1", scores[i])
			if err != nil {
				t.Fatalf("apply: %v", err)
			}
			last = avg
		}
		averages = append(averages, last)
	}

	for i := 1; i < len(averages); i++ {
		if averages[i] != averages[0] {
			t.Errorf("order %d produced %v, order 0 produced %v", i, averages[i], averages[0])
		}
	}
}

func TestApplyRating_ManyConcurrentNoLostUpdates(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.addProvider("p-1", nairobiNear)

	const n = 200
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _ = f.ratingSvc.ApplyRating(context.Background(), "p-1", float64(i%5+1))
		}(i)
	}
	wg.Wait()

	got := f.providers.GetProvider("p-1").Rating
	if got.Count != n || got.Sum != 600 {
		t.Errorf("expected %d ratings summing to 600, got %+v", n, got)
	}
}

func TestApplyRating_Validation(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.addProvider("p-1", nairobiNear)

	for _, score := range []float64{0, 0.99, 5.01, -3, math.NaN(), math.Inf(1)} {
		if _, err := f.ratingSvc.ApplyRating(context.Background(), "p-1", score); !errors.Is(err, service.ErrInvalidRating) {
			t.Errorf("score %v: expected ErrInvalidRating, got %v", score, err)
		}
	}
	if f.providers.AddRatingCallCount != 0 {
		t.Errorf("expected no writes for invalid scores, got %d", f.providers.AddRatingCallCount)
	}

	for _, score := range []float64{1, 5} {
		if _, err := f.ratingSvc.ApplyRating(context.Background(), "p-1", score); err != nil {
			t.Errorf("score %v: unexpected error %v", score, err)
		}
	}

	if _, err := f.ratingSvc.ApplyRating(context.Background(), "ghost", 3); !errors.Is(err, repository.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestCompleteBooking_ConcurrentRatingsForSameProvider(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.addProvider("p-1", nairobiNear)
	first := f.bookInProgress(t, "p-1")
	second := f.bookInProgress(t, "p-1")

	var wg sync.WaitGroup
	for id, score := range map[string]float64{first.ID: 4, second.ID: 5} {
		id, score := id, score
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.bookingSvc.CompleteBooking(context.Background(), adminActor, id, service.CompleteBookingRequest{Score: &score})
			if err != nil {
				t.Errorf("complete %s: %v", id, err)
			}
		}()
	}
	wg.Wait()

	if got := f.providers.GetProvider("p-1").Rating; got.Average() != 4.5 || got.Count != 2 {
		t.Errorf("expected {4.5, 2}, got %+v", got)
	}
}
