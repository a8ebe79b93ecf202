package supervisor

// DebugCgroup logs the container's current task membership, to diagnose why
// a cleanup failed to fully remove a cgroup. Nothing in this module calls
// it; the self-test command's --debug-cgroups flag only raises the log
// level. It only logs a note for uncontained handles.
func (s *Supervisor) DebugCgroup(h *Handle) {
	if h.cgroup == nil {
		s.logger.Debug().Str("handle", h.ID).Msg("uncontained handle, no cgroup to inspect")
		return
	}
	empty, err := h.cgroup.Empty()
	if err != nil {
		s.logger.Warn().Err(err).Str("handle", h.ID).Msg("failed to inspect cgroup membership")
		return
	}
	s.logger.Debug().Str("handle", h.ID).Bool("empty", empty).Msg("cgroup membership snapshot")
}
