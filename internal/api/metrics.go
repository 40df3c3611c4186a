package api

import (
	"net/http"
	"runtime"
	"time"

	"github.com/nerrad567/inventory-core/internal/infrastructure/influxdb"
	"github.com/nerrad567/inventory-core/internal/infrastructure/mqtt"
	"github.com/nerrad567/inventory-core/internal/inventory"
)

// SystemMetrics represents the complete system metrics response.
type SystemMetrics struct {
	Timestamp     string          `json:"timestamp"`
	Version       string          `json:"version"`
	UptimeSeconds int64           `json:"uptime_seconds"`
	Runtime       RuntimeMetrics  `json:"runtime"`
	WebSocket     WSMetrics       `json:"websocket"`
	MQTT          ConnMetrics     `json:"mqtt"`
	InfluxDB      ConnMetrics     `json:"influxdb"`
	Inventory     InventoryMetric `json:"inventory"`
}

// RuntimeMetrics contains Go runtime statistics.
type RuntimeMetrics struct {
	Goroutines    int     `json:"goroutines"`
	MemoryAllocMB float64 `json:"memory_alloc_mb"`
	MemoryTotalMB float64 `json:"memory_total_mb"`
	NumGC         uint32  `json:"num_gc"`
}

// WSMetrics contains WebSocket hub statistics.
type WSMetrics struct {
	ConnectedClients int `json:"connected_clients"`
}

// ConnMetrics reports an optional outbound connection.
type ConnMetrics struct {
	Enabled   bool            `json:"enabled"`
	Connected bool            `json:"connected"`
	Publishes *mqtt.Stats     `json:"publishes,omitempty"`
	Writes    *influxdb.Stats `json:"writes,omitempty"`
}

// InventoryMetric contains registry statistics.
type InventoryMetric struct {
	Devices  int            `json:"devices"`
	Users    int            `json:"users"`
	ByStatus map[string]int `json:"by_status"`
	IDPolicy string         `json:"id_policy"`
}

// handleMetrics returns comprehensive system metrics.
func (s *Server) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	metrics := SystemMetrics{
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		Version:       s.version,
		UptimeSeconds: int64(time.Since(s.startTime).Seconds()),
		Runtime: RuntimeMetrics{
			Goroutines:    runtime.NumGoroutine(),
			MemoryAllocMB: float64(memStats.Alloc) / 1024 / 1024,
			MemoryTotalMB: float64(memStats.TotalAlloc) / 1024 / 1024,
			NumGC:         memStats.NumGC,
		},
		WebSocket: WSMetrics{
			ConnectedClients: s.hub.ClientCount(),
		},
		Inventory: inventoryMetric(s.registry.GetStats(), s.registry.IDPolicy()),
	}

	if s.mqtt != nil {
		publishes := s.mqtt.Stats()
		metrics.MQTT = ConnMetrics{Enabled: true, Connected: s.mqtt.IsConnected(), Publishes: &publishes}
	}
	if s.influx != nil {
		writes := s.influx.Stats()
		metrics.InfluxDB = ConnMetrics{Enabled: true, Connected: s.influx.IsConnected(), Writes: &writes}
	}

	writeJSON(w, http.StatusOK, metrics)
}

func inventoryMetric(stats inventory.Stats, policy inventory.IDPolicy) InventoryMetric {
	m := InventoryMetric{
		Devices:  stats.TotalDevices,
		Users:    stats.TotalUsers,
		ByStatus: make(map[string]int, len(stats.ByStatus)),
		IDPolicy: string(policy),
	}
	for status, n := range stats.ByStatus {
		m.ByStatus[string(status)] = n
	}
	return m
}
