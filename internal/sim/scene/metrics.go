package scene

import "time"

// Metrics is a read-only view of the loop, published once per tick and safe to read
// from HTTP handlers.
type Metrics struct {
	Tick      uint64 `json:"tick"`
	Mode      string `json:"mode"`
	Viewers   int    `json:"viewers"`
	Busy      bool   `json:"busy"`
	Greetings int    `json:"greetings"`
	Status    string `json:"status,omitempty"`
	Terminal  bool   `json:"terminal"`

	Counts      map[string]int `json:"counts"`
	QueueDepths QueueDepths    `json:"queue_depths"`

	TrackerCalls   uint64 `json:"tracker_calls"`
	TrackerDropped uint64 `json:"tracker_dropped"`
	ViewerDrops    uint64 `json:"viewer_drops"`

	StepMS float64 `json:"step_ms"`
}

type QueueDepths struct {
	Inbox int `json:"inbox"`
	Join  int `json:"join"`
	Leave int `json:"leave"`
}

func (s *Scene) Metrics() Metrics {
	if s == nil {
		return Metrics{}
	}
	m, ok := s.metrics.Load().(Metrics)
	if !ok {
		return Metrics{}
	}
	return m
}

func (s *Scene) publishMetrics(tick uint64, took time.Duration) {
	counts := make(map[string]int, len(s.fields))
	for _, f := range s.fields {
		counts[f.Kind().String()] = f.Count()
	}
	m := Metrics{
		Tick:      tick,
		Mode:      s.mode.Mode().String(),
		Viewers:   len(s.viewers),
		Busy:      s.disp.Busy(),
		Greetings: s.greetingCount(),
		Status:    s.status,
		Terminal:  s.terminal,
		Counts:    counts,
		QueueDepths: QueueDepths{
			Inbox: len(s.inbox),
			Join:  len(s.join),
			Leave: len(s.leave),
		},
		ViewerDrops: s.drops,
		StepMS:      took.Seconds() * 1000,
	}
	if s.pump != nil {
		m.TrackerCalls, m.TrackerDropped = s.pump.Stats()
	}
	s.metrics.Store(m)
}
