package userstore

// ClusterHealth is a point-in-time snapshot of the external signals the
// store derives its readiness from. The orchestrator builds one from its
// cluster-state event stream and feeds it to CanStart and
// HandleClusterChange.
type ClusterHealth struct {
	// RecoveryDone is true once the larger system has finished restoring
	// persisted state from disk. Before that the index may exist without
	// being visible yet.
	RecoveryDone bool
	// TemplateUpToDate is true when the index schema/template is confirmed
	// current.
	TemplateUpToDate bool
	// IndexExists is true when the backing index is present in cluster
	// metadata.
	IndexExists bool
	// AllPrimariesActive is true when every primary partition of the index
	// is active. Only meaningful while IndexExists is true.
	AllPrimariesActive bool
}

// CanStart reports whether the orchestrator may call Start. It is a pure
// function of the snapshot except for one side effect: when the index
// exists and is fully active, the store-existence flag is set before
// returning true.
func (s *Store) CanStart(health ClusterHealth) bool {
	if s.lifecycle.current() != StateInitialized {
		return false
	}

	if !health.RecoveryDone {
		// wait until state has been recovered from disk, otherwise the
		// index may exist without having been restored into cluster
		// metadata yet
		s.logger.Debug("user store waiting until storage recovery completes")
		return false
	}

	if !health.TemplateUpToDate {
		return false
	}

	if !health.IndexExists {
		s.logger.Debug("index [%s] does not exist, so service can start", s.index)
		return true
	}

	if health.AllPrimariesActive {
		s.logger.Debug("index [%s] all primary partitions active, so service can start", s.index)
		s.indexExists.Store(true)
		return true
	}

	return false
}

// HandleClusterChange is the cluster-event observer. It is the only writer
// of the store-existence flag outside Reset and may run at any lifecycle
// state. Readers of IndexExists must tolerate the staleness window between
// an event and their next read; the flag is advisory, not a gate.
func (s *Store) HandleClusterChange(health ClusterHealth) {
	if health.IndexExists && health.AllPrimariesActive {
		s.logger.Debug("index [%s] all primary partitions active", s.index)
		s.indexExists.Store(true)
	} else {
		// always set the value, it may have changed
		s.indexExists.Store(false)
	}
}

// IndexExists reports the last observed existence of the backing index.
func (s *Store) IndexExists() bool {
	return s.indexExists.Load()
}
