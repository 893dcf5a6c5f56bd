package sensors

import (
	"context"

	"github.com/shirou/gopsutil/v3/host"
)

// localSource reads the machine's own temperature sensors instead of a
// daemon.
type localSource struct{}

func (s *localSource) Readings(ctx context.Context) ([]reading, error) {
	stats, err := host.SensorsTemperaturesWithContext(ctx)
	if err != nil {
		return nil, err
	}
	readings := make([]reading, 0, len(stats))
	for _, stat := range stats {
		readings = append(readings, reading{
			Type:     "temperature",
			Instance: stat.SensorKey,
			Value:    stat.Temperature,
		})
	}
	return readings, nil
}
