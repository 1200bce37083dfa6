package aria2

import "context"

const defaultOverviewWindow = 1000

// Overview returns every download the engine currently knows about: active
// tasks first, then queued ones, then a window of the most recently stopped.
// The window caps both the queued and stopped lists.
func Overview(ctx context.Context, c Client, window int) ([]*Snapshot, error) {
	if window <= 0 {
		window = defaultOverviewWindow
	}

	active, err := c.TellActive(ctx)
	if err != nil {
		return nil, err
	}
	waiting, err := c.TellWaiting(ctx, 0, window)
	if err != nil {
		return nil, err
	}
	stopped, err := c.TellStopped(ctx, 0, window)
	if err != nil {
		return nil, err
	}

	out := make([]*Snapshot, 0, len(active)+len(waiting)+len(stopped))
	out = append(out, active...)
	out = append(out, waiting...)
	out = append(out, stopped...)
	return out, nil
}
