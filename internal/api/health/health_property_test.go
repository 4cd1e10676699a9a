package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

type mockPinger struct {
	delay time.Duration
	fail  bool
}

func (m *mockPinger) Ping(ctx context.Context) error {
	select {
	case <-time.After(m.delay):
	case <-ctx.Done():
		return ctx.Err()
	}
	if m.fail {
		return errors.New("mock ping failed")
	}
	return nil
}

// The overall status is the worst of the store status and every probe.
func TestPropertyOverallStatusIsWorstComponent(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	rank := map[Status]int{StatusHealthy: 0, StatusDegraded: 1, StatusUnhealthy: 2}
	genStatus := gen.OneConstOf(StatusHealthy, StatusDegraded, StatusUnhealthy)

	properties.Property("overall status is worst component", prop.ForAll(
		func(storeHealthy bool, probeStatuses []Status) bool {
			checker := NewChecker(&mockPinger{fail: !storeHealthy}, "v1.0.0")
			want := StatusHealthy
			if !storeHealthy {
				want = StatusUnhealthy
			}
			for i, st := range probeStatuses {
				st := st
				checker.Register(string(rune('a'+i)), func(context.Context) ComponentStatus {
					return ComponentStatus{Status: st}
				})
				if rank[st] > rank[want] {
					want = st
				}
			}

			resp := checker.Check(context.Background())
			if _, ok := resp.Components["store"]; !ok {
				return false
			}
			return resp.Status == want && len(resp.Components) == len(probeStatuses)+1
		},
		gen.Bool(),
		gen.SliceOfN(3, genStatus),
	))

	properties.TestingRun(t)
}

func TestHandlerStatusCodes(t *testing.T) {
	healthy := NewChecker(&mockPinger{}, "dev")
	rr := httptest.NewRecorder()
	healthy.Handler()(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("healthy store: got %d", rr.Code)
	}

	var body Response
	if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body.Components["store"].Status != StatusHealthy {
		t.Fatalf("store component: %+v", body.Components["store"])
	}

	down := NewChecker(nil, "dev")
	rr = httptest.NewRecorder()
	down.Handler()(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("missing store: got %d", rr.Code)
	}
}

func TestCheckHonoursTimeout(t *testing.T) {
	checker := NewChecker(&mockPinger{delay: time.Second}, "dev")
	checker.SetTimeout(20 * time.Millisecond)

	start := time.Now()
	resp := checker.Check(context.Background())
	if time.Since(start) > 500*time.Millisecond {
		t.Fatalf("check took %v", time.Since(start))
	}
	if resp.Status != StatusUnhealthy {
		t.Fatalf("slow store should be unhealthy, got %s", resp.Status)
	}
}
