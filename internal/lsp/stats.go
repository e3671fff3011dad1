package lsp

func (s *Server) handleStats(msg *rpcMessage) error {
	ss := s.session
	counters, err := s.metrics.Snapshot(s.baseCtx)
	if err != nil {
		s.logf("stats: %v", err)
		return s.sendError(msg.ID, codeInternalError, err.Error())
	}
	result := statsResult{
		Mode:          ss.cfg.Compiler.Mode,
		BatchRunning:  ss.batchRunning,
		OpenDocuments: ss.docs.len(),
		Folders:       append([]string{}, ss.folders...),
		OutputPath:    ss.outputPath,
		Counters:      counters,
	}
	if p := ss.persistent; p != nil {
		result.Running = p.Running()
		result.ProcessID = p.ProcessID()
		result.Spawns = p.Spawns()
		if result.Running {
			result.PID = p.PID()
		}
	}
	if ss.hub != nil {
		result.ReloadClients = ss.hub.Clients()
	}
	return s.sendResponse(msg.ID, result)
}
