package trajhash

// Close evicts all loaded indices and rejects further use. Closing an
// already closed store is a no-op.
func (s *Store) Close() error {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.engines = nil
	s.mu.Unlock()

	return s.registry.Close()
}
