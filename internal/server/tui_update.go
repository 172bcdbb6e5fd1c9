// ABOUTME: TUI update helpers for server
// ABOUTME: Builds the job table shown by the server TUI
package server

import (
	"sort"

	"github.com/Resonate-Protocol/whisperprep/pkg/transcribe"
)

// updateTUI sends current server state to TUI
func (s *Server) updateTUI() {
	if s.tui == nil {
		return
	}

	s.tui.Update(s.status())
}

func (s *Server) status() ServerStatus {
	return ServerStatus{
		Name:        s.config.Name,
		Port:        s.config.Port,
		Queued:      s.service.QueueLength(),
		Subscribers: s.subscriberCount(),
		Jobs:        jobRows(s.service.Jobs()),
	}
}

// jobRows lists jobs newest first
func jobRows(jobs []transcribe.Job) []JobInfo {
	sort.Slice(jobs, func(i, j int) bool {
		return jobs[i].Submitted.After(jobs[j].Submitted)
	})

	rows := make([]JobInfo, 0, len(jobs))
	for _, job := range jobs {
		rows = append(rows, JobInfo{
			ID:    job.ID,
			Input: job.Input,
			State: string(job.State),
			Error: job.Error,
		})
	}
	return rows
}
