package monitor

// Fanout distributes every lifecycle call and event to a set of monitors.
// Lets the chat manager feed the CLI monitor and the API server's stream
// from a single hook.
type Fanout []Monitor

func (f Fanout) Start() error {
	for _, m := range f {
		if err := m.Start(); err != nil {
			return err
		}
	}
	return nil
}

func (f Fanout) Stop() error {
	var firstErr error
	for _, m := range f {
		if err := m.Stop(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (f Fanout) OnEvent(ev TranscriptEvent) {
	for _, m := range f {
		m.OnEvent(ev)
	}
}
