package host

import (
	"context"
	"fmt"

	psnet "github.com/shirou/gopsutil/v4/net"

	"github.com/oshokin/beacon-engine/internal/beacon"
)

// IOCounters samples the I/O counters of every network interface.
func (h *Host) IOCounters(ctx context.Context) (map[string]beacon.Counters, error) {
	stats, err := psnet.IOCountersWithContext(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("read network counters: %w", err)
	}

	result := make(map[string]beacon.Counters, len(stats))

	for _, stat := range stats {
		result[stat.Name] = beacon.Counters{
			BytesSent:   stat.BytesSent,
			BytesRecv:   stat.BytesRecv,
			PacketsSent: stat.PacketsSent,
			PacketsRecv: stat.PacketsRecv,
			Errin:       stat.Errin,
			Errout:      stat.Errout,
			Dropin:      stat.Dropin,
			Dropout:     stat.Dropout,
		}
	}

	return result, nil
}
