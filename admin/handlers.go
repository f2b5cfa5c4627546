// Package admin exposes instance health and runtime metrics.
package admin

import (
    "encoding/json"
    "net/http"
    "time"

    "github.com/redis/go-redis/v9"

    "parlor/appcontext"
    "parlor/bus"
    "parlor/chat"
    "parlor/db"
    "parlor/presence"
)

type Monitor struct {
    Pool     *db.DBPool
    Redis    *redis.Client
    Bus      *bus.Bus
    Coord    *chat.Coordinator
    Presence *presence.Tracker
}

type healthStatus struct {
    Database bool `json:"database"`
    Redis    bool `json:"redis"`
    Bus      bool `json:"bus"`
}

type metricsReport struct {
    LocalClients int       `json:"local_clients"`
    LocalRooms   int       `json:"local_rooms"`
    ActiveUsers  []string  `json:"active_users"`
    Timestamp    time.Time `json:"timestamp"`
}

// HealthzHandler reports whether this instance can serve chat traffic. A
// lost bus subscription fails the check: the instance would silently stop
// receiving cross-instance broadcasts otherwise.
func (m *Monitor) HealthzHandler(ctx *appcontext.AppContext) {
    status := healthStatus{
        Database: m.Pool.Ping(ctx.Context) == nil,
        Redis:    m.Redis.Ping(ctx.Context).Err() == nil,
        Bus:      m.Bus.Healthy(),
    }

    code := http.StatusOK
    if !status.Database || !status.Redis || !status.Bus {
        code = http.StatusServiceUnavailable
    }

    ctx.Writer.Header().Set("Content-Type", "application/json")
    ctx.Writer.WriteHeader(code)
    json.NewEncoder(ctx.Writer).Encode(status)
}

func (m *Monitor) MetricsHandler(ctx *appcontext.AppContext) {
    active, err := m.Presence.ListActive(ctx.Context)
    if err != nil {
        ctx.Logger.Printf("Failed to list active users: %v", err)
    }

    report := metricsReport{
        LocalClients: m.Coord.ClientCount(),
        LocalRooms:   m.Coord.RoomCount(),
        ActiveUsers:  active,
        Timestamp:    time.Now(),
    }

    ctx.Writer.Header().Set("Content-Type", "application/json")
    json.NewEncoder(ctx.Writer).Encode(report)
}
