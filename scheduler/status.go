package scheduler

import (
	"encoding/json"
	"net/http"
	"time"
)

// JobStatus 任务状态的 JSON 表示.
type JobStatus struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Timing       string    `json:"timing"`
	Offsets      []string  `json:"offsets"`
	Aware        bool      `json:"aware"`
	Distributed  bool      `json:"distributed"`
	Attempts     int64     `json:"attempts"`
	NextDue      time.Time `json:"next_due"`
	RunCount     int64     `json:"run_count"`
	SuccessCount int64     `json:"success_count"`
	FailCount    int64     `json:"fail_count"`
	SkipCount    int64     `json:"skip_count"`
	LastRunAt    time.Time `json:"last_run_at,omitzero"`
	LastError    string    `json:"last_error,omitempty"`
}

// Status 按注册顺序返回所有任务的状态.
func (s *Scheduler) Status() []JobStatus {
	jobs := s.Jobs()
	out := make([]JobStatus, 0, len(jobs))
	for _, j := range jobs {
		snap := j.Snapshot()
		st := JobStatus{
			ID:           snap.ID,
			Name:         snap.Name,
			Timing:       snap.Timing.String(),
			Offsets:      make([]string, len(snap.Offsets)),
			Aware:        snap.Aware,
			Distributed:  j.Distributed(),
			Attempts:     snap.Attempts,
			NextDue:      snap.NextDue,
			RunCount:     snap.Stats.RunCount,
			SuccessCount: snap.Stats.SuccessCount,
			FailCount:    snap.Stats.FailCount,
			SkipCount:    snap.Stats.SkipCount,
			LastRunAt:    snap.Stats.LastRunAt,
		}
		for i, off := range snap.Offsets {
			st.Offsets[i] = off.String()
		}
		if snap.Stats.LastError != nil {
			st.LastError = snap.Stats.LastError.Error()
		}
		out = append(out, st)
	}
	return out
}

// StatusHandler 返回以 JSON 输出任务状态的 HTTP 处理器.
func (s *Scheduler) StatusHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.Header().Set("Allow", http.MethodGet)
			http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(s.Status()); err != nil {
			s.logErrorf("输出任务状态失败 [error:%v]", err)
		}
	})
}
