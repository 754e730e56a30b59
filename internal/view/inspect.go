package view

import (
	"context"
	"errors"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"cherrycake/internal/dataset"
)

// DocumentStatus describes one dataset document as seen by the loader.
type DocumentStatus struct {
	Ref      string         `json:"ref"`
	Status   dataset.Status `json:"status"`
	Records  int            `json:"records"`
	HTTP     int            `json:"http_status,omitempty"`
	Error    string         `json:"error,omitempty"`
	Duration time.Duration  `json:"duration_ns"`
	UsedBy   []string       `json:"used_by,omitempty"`
}

// Inspect fetches every document used by defs and reports its state. Each
// document loads independently; one failure does not hide the others.
func Inspect(ctx context.Context, loader *dataset.Loader, defs []Definition) []DocumentStatus {
	users := make(map[string][]string)
	for _, d := range defs {
		for _, ref := range d.Documents() {
			users[ref] = append(users[ref], d.Name)
		}
	}
	refs := make([]string, 0, len(users))
	for ref := range users {
		refs = append(refs, ref)
	}
	sort.Strings(refs)

	out := make([]DocumentStatus, len(refs))
	var g errgroup.Group
	g.SetLimit(4)
	for i, ref := range refs {
		g.Go(func() error {
			start := time.Now()
			st := DocumentStatus{Ref: ref, UsedBy: users[ref]}
			target := dataset.Target(ref)
			err := loader.Fetch(ctx, ref, target)
			st.Duration = time.Since(start)
			if err != nil {
				st.Status = dataset.StatusFailed
				st.Error = err.Error()
				var fetchErr *dataset.FetchError
				if errors.As(err, &fetchErr) {
					st.HTTP = fetchErr.Status
				}
			} else {
				st.Status = dataset.StatusReady
				st.Records = dataset.Records(target)
			}
			out[i] = st
			return nil
		})
	}
	_ = g.Wait()
	return out
}
