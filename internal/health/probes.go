package health

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type ProbeResult struct {
	Name   string `json:"name"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

type Probe struct {
	Name  string
	Check func(ctx context.Context) error
}

// ProbeRunner answers readiness by running each dependency probe with a
// short per-probe timeout.
type ProbeRunner struct {
	probes  []Probe
	timeout time.Duration
}

func NewProbeRunner(probes ...Probe) *ProbeRunner {
	return &ProbeRunner{probes: probes, timeout: 2 * time.Second}
}

func (r *ProbeRunner) Ready(ctx context.Context) (bool, []ProbeResult) {
	ready := true
	results := make([]ProbeResult, 0, len(r.probes))
	for _, p := range r.probes {
		probeCtx, cancel := context.WithTimeout(ctx, r.timeout)
		err := p.Check(probeCtx)
		cancel()
		res := ProbeResult{Name: p.Name, Status: "ok"}
		if err != nil {
			ready = false
			res.Status = "unavailable"
			res.Error = err.Error()
		}
		results = append(results, res)
	}
	return ready, results
}

func DatabaseProbe(db *gorm.DB) Probe {
	return Probe{
		Name: "database",
		Check: func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	}
}

func RedisProbe(client redis.UniversalClient) Probe {
	return Probe{
		Name: "redis",
		Check: func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		},
	}
}
